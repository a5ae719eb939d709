package calendar

import (
	"time"
	"vet-clinic/internal/auth"
)

// Action is something staff can do to an appointment.
type Action string

const (
	ActionConfirm    Action = "confirm"
	ActionStart      Action = "start"
	ActionComplete   Action = "complete"
	ActionCancel     Action = "cancel"
	ActionNoShow     Action = "no-show"
	ActionReschedule Action = "reschedule"
	ActionDelete     Action = "delete"
)

// Transition describes a lifecycle action: the statuses it may leave, the status it enters and
// the roles that may perform it.
type Transition struct {
	From  []Status
	To    Status
	Roles auth.Roles
}

var (
	frontDesk    = auth.Roles{auth.AdminRole, auth.ReceptionistRole}
	clinicians   = auth.Roles{auth.AdminRole, auth.VeterinarianRole}
	anyStaff     = auth.Roles{auth.AdminRole, auth.ReceptionistRole, auth.VeterinarianRole}
	nonTerminal  = []Status{StatusRequested, StatusScheduled, StatusConfirmed, StatusInProgress}
	rescheduling = frontDesk
	deleting     = frontDesk
)

var transitions = map[Action]Transition{
	ActionConfirm: {
		From:  []Status{StatusRequested},
		To:    StatusConfirmed,
		Roles: frontDesk,
	},
	ActionStart: {
		From:  []Status{StatusScheduled, StatusConfirmed},
		To:    StatusInProgress,
		Roles: clinicians,
	},
	ActionComplete: {
		From:  []Status{StatusScheduled, StatusConfirmed, StatusInProgress},
		To:    StatusCompleted,
		Roles: clinicians,
	},
	ActionCancel: {
		From:  nonTerminal,
		To:    StatusCancelled,
		Roles: anyStaff,
	},
	ActionNoShow: {
		From:  []Status{StatusRequested, StatusScheduled, StatusConfirmed},
		To:    StatusNoShow,
		Roles: frontDesk,
	},
}

// TransitionFor returns the transition performed by the action.
func TransitionFor(action Action) (Transition, bool) {
	transition, ok := transitions[action]
	return transition, ok
}

func (t Transition) leaves(status Status) bool {
	for _, from := range t.From {
		if from == status {
			return true
		}
	}
	return false
}

// InitialStatus is the status of a new appointment: requests made by veterinarians wait for the
// front desk to confirm them.
func InitialStatus(role auth.Role) Status {
	if role == auth.VeterinarianRole {
		return StatusRequested
	}
	return StatusScheduled
}

func authorize(role auth.Role, action Action, allowed auth.Roles) error {
	if !allowed.Contains(role) {
		return &UnauthorizedRoleError{Role: role, Action: action, Allowed: allowed}
	}
	return nil
}

// Plan checks that the user may perform the action on the appointment at the given time, returning
// the status the appointment enters.
func Plan(action Action, user auth.User, appointment Appointment, now time.Time) (Status, error) {
	transition, ok := transitions[action]
	if !ok {
		return "", &InvalidTransitionError{From: appointment.Status, Reason: "unknown action " + string(action)}
	}
	if err := authorize(user.Role, action, transition.Roles); err != nil {
		return "", err
	}
	if !transition.leaves(appointment.Status) {
		return "", &InvalidTransitionError{From: appointment.Status, To: transition.To}
	}
	if action == ActionNoShow && !now.After(appointment.ScheduledAt) {
		return "", &InvalidTransitionError{From: appointment.Status, To: transition.To, Reason: "the appointment time has not passed yet"}
	}
	return transition.To, nil
}

// checkEditable checks that the appointment can still be rescheduled.
func checkEditable(appointment Appointment) error {
	if appointment.Status.Terminal() {
		return &InvalidTransitionError{From: appointment.Status, To: appointment.Status, Reason: "finished appointments cannot be rescheduled"}
	}
	return nil
}
