package calendar

import (
	"fmt"
	"time"
	"vet-clinic/internal/auth"
	"vet-clinic/internal/shifts"
)

const (
	ErrAppointmentNotFound  = "appointment not found"
	ErrPatientNotFound      = "patient not found"
	ErrInactivePatient      = "patient is inactive"
	ErrInvalidIdentifier    = "invalid identifier"
	ErrInvalidDateReference = "invalid date reference - e.g. 2030-06-03"
)

// PastDateError is returned when an appointment is requested before the current time.
type PastDateError struct {
	ScheduledAt time.Time
}

func (e *PastDateError) Error() string {
	return fmt.Sprintf("%s is in the past", e.ScheduledAt.Format(time.RFC3339))
}

func (e *PastDateError) Code() string {
	return "past_date"
}

// NoWorkingHoursError is returned when the veterinarian has no block in the requested weekday.
type NoWorkingHoursError struct {
	Weekday shifts.Weekday
}

func (e *NoWorkingHoursError) Error() string {
	return fmt.Sprintf("the veterinarian does not work on %s", e.Weekday)
}

func (e *NoWorkingHoursError) Code() string {
	return "no_working_hours"
}

// OutsideWorkingHoursError is returned when the requested time is not inside any block of the
// veterinarian in that weekday.
type OutsideWorkingHoursError struct {
	Weekday shifts.Weekday
	At      shifts.TimeOfDay
}

func (e *OutsideWorkingHoursError) Error() string {
	return fmt.Sprintf("%s at %s is outside the veterinarian working hours", e.Weekday, e.At)
}

func (e *OutsideWorkingHoursError) Code() string {
	return "outside_working_hours"
}

// DoubleBookingError is returned when the veterinarian already has an appointment at the
// requested instant.
type DoubleBookingError struct {
	ScheduledAt time.Time
}

func (e *DoubleBookingError) Error() string {
	return fmt.Sprintf("the veterinarian already has an appointment at %s", e.ScheduledAt.Format(time.RFC3339))
}

func (e *DoubleBookingError) Code() string {
	return "double_booking"
}

// InvalidTransitionError is returned when the appointment status doesn't allow the requested
// change.
type InvalidTransitionError struct {
	From   Status
	To     Status
	Reason string
}

func (e *InvalidTransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("cannot change appointment from %s to %s: %s", e.From, e.To, e.Reason)
	}
	return fmt.Sprintf("cannot change appointment from %s to %s", e.From, e.To)
}

func (e *InvalidTransitionError) Code() string {
	return "invalid_transition"
}

// UnauthorizedRoleError is returned when the acting user role may not perform the action.
type UnauthorizedRoleError struct {
	Role    auth.Role
	Action  Action
	Allowed auth.Roles
}

func (e *UnauthorizedRoleError) Error() string {
	return fmt.Sprintf("role %s cannot %s appointments, allowed roles: %s", e.Role, e.Action, e.Allowed)
}

func (e *UnauthorizedRoleError) Code() string {
	return "unauthorized_role"
}
