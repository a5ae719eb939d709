// Package calendar contains handlers, services and structures used to schedule the clinic
// appointments and to move them through their lifecycle.
package calendar

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"vet-clinic/internal/apierrors"
	"vet-clinic/internal/auth"
	"vet-clinic/internal/clock"
	"vet-clinic/internal/database"
	"vet-clinic/internal/metrics"
	"vet-clinic/internal/shifts"

	"github.com/google/uuid"
)

// Reader determines the methods available to read the appointments.
type Reader interface {

	// Get returns the appointment with the given UUID.
	Get(ctx context.Context, appointmentUUID uuid.UUID) (*Appointment, error)

	// ListPatients lists the patients, optionally only those whose name contains the given text.
	ListPatients(ctx context.Context, name string) ([]Patient, error)

	// ListAgenda returns the appointments of the clinic day, ordered by time, optionally only those
	// of a veterinarian.
	ListAgenda(ctx context.Context, day time.Time, veterinarianUUID *uuid.UUID) ([]Appointment, error)

	// ListCurrent returns today's appointments still to be attended.
	ListCurrent(ctx context.Context) ([]Appointment, error)
}

// Writer determines the methods available to place and remove appointments.
type Writer interface {

	// Schedule places a new appointment, after checking the scheduling rules.
	Schedule(ctx context.Context, user auth.User, request AppointmentRequest) (*Appointment, error)

	// Reschedule changes an appointment, checking the scheduling rules as if it were new but
	// without conflicting with itself.
	Reschedule(ctx context.Context, user auth.User, appointmentUUID uuid.UUID, request AppointmentRequest) (*Appointment, error)

	// Delete removes an appointment, whatever its status.
	Delete(ctx context.Context, user auth.User, appointmentUUID uuid.UUID) error
}

// Lifecycle determines the methods that move an appointment through its statuses.
type Lifecycle interface {
	Confirm(ctx context.Context, user auth.User, appointmentUUID uuid.UUID) (*Appointment, error)
	Start(ctx context.Context, user auth.User, appointmentUUID uuid.UUID) (*Appointment, error)
	Complete(ctx context.Context, user auth.User, appointmentUUID uuid.UUID, request CompletionRequest) (*Appointment, error)
	Cancel(ctx context.Context, user auth.User, appointmentUUID uuid.UUID, request CancellationRequest) (*Appointment, error)
	MarkNoShow(ctx context.Context, user auth.User, appointmentUUID uuid.UUID) (*Appointment, error)
}

// Service determines the methods used to manage the clinic appointments.
type Service interface {
	Reader
	Writer
	Lifecycle
}

type defaultService struct {
	repository   Repository
	availability Availability
	scheduler    *Scheduler
	clock        clock.Clock
}

func newService(repository Repository, availability Availability, clk clock.Clock, location *time.Location) *defaultService {
	return &defaultService{
		repository:   repository,
		availability: availability,
		scheduler:    NewScheduler(availability, repository, clk, location),
		clock:        clk,
	}
}

// coded is implemented by the errors that carry a machine readable code.
type coded interface {
	Code() string
}

func rejected(err error) error {
	if c, ok := err.(coded); ok {
		metrics.SchedulingRejected(c.Code())
	}
	return err
}

func notFound(detail string) error {
	return apierrors.NewAPIError(apierrors.WithDetail(detail), apierrors.WithHTTPStatusCode(http.StatusNotFound))
}

func (d defaultService) Get(ctx context.Context, appointmentUUID uuid.UUID) (*Appointment, error) {
	appointment, err := d.repository.FindAppointmentByUUID(ctx, appointmentUUID)
	if err != nil {
		return nil, fmt.Errorf("could not find appointment: %w", err)
	}
	if appointment == nil {
		return nil, notFound(ErrAppointmentNotFound)
	}
	return appointment, nil
}

func (d defaultService) ListPatients(ctx context.Context, name string) ([]Patient, error) {
	patients, err := d.repository.ListPatients(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("could not list patients: %w", err)
	}
	return patients, nil
}

func (d defaultService) ListAgenda(ctx context.Context, day time.Time, veterinarianUUID *uuid.UUID) ([]Appointment, error) {
	var veterinarianID int64
	if veterinarianUUID != nil {
		veterinarian, err := d.availability.FindVeterinarian(ctx, *veterinarianUUID)
		if err != nil {
			return nil, err
		}
		veterinarianID = veterinarian.ID
	}
	from, to := d.scheduler.Day(day)
	appointments, err := d.repository.ListAppointments(ctx, from, to, veterinarianID)
	if err != nil {
		return nil, fmt.Errorf("could not list appointments: %w", err)
	}
	return appointments, nil
}

func (d defaultService) ListCurrent(ctx context.Context) ([]Appointment, error) {
	from, to := d.scheduler.Day(d.clock.Now())
	appointments, err := d.repository.ListAppointmentsByStatus(ctx, from, to, activeStatuses)
	if err != nil {
		return nil, fmt.Errorf("could not list current appointments: %w", err)
	}
	return appointments, nil
}

// resolve looks up the patient and the veterinarian of the request.
func (d defaultService) resolve(ctx context.Context, request AppointmentRequest) (*Patient, *shifts.Veterinarian, error) {
	patient, err := d.repository.FindPatientByUUID(ctx, request.PatientUUID)
	if err != nil {
		return nil, nil, fmt.Errorf("could not find patient: %w", err)
	}
	if patient == nil {
		return nil, nil, notFound(ErrPatientNotFound)
	}
	if !patient.Active {
		return nil, nil, apierrors.NewValidationError("patient_uuid", ErrInactivePatient)
	}
	veterinarian, err := d.availability.FindVeterinarian(ctx, request.VeterinarianUUID)
	if err != nil {
		return nil, nil, err
	}
	return patient, veterinarian, nil
}

func (d defaultService) Schedule(ctx context.Context, user auth.User, request AppointmentRequest) (*Appointment, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}
	patient, veterinarian, err := d.resolve(ctx, request)
	if err != nil {
		return nil, err
	}
	if err = d.scheduler.Check(ctx, veterinarian.ID, request.ScheduledAt, 0); err != nil {
		return nil, rejected(err)
	}
	createdBy := user.ID
	appointment := Appointment{
		UUID:             uuid.New(),
		PatientID:        patient.ID,
		PatientUUID:      patient.UUID,
		PatientName:      patient.Name,
		VeterinarianID:   veterinarian.ID,
		VeterinarianUUID: veterinarian.UUID,
		VeterinarianName: veterinarian.Name,
		ScheduledAt:      request.ScheduledAt,
		Reason:           strings.TrimSpace(request.Reason),
		Status:           InitialStatus(user.Role),
		CreatedBy:        &createdBy,
	}
	appointment.ID, err = d.repository.InsertAppointment(ctx, appointment)
	if database.IsUniqueViolation(err) {
		return nil, rejected(&DoubleBookingError{ScheduledAt: request.ScheduledAt})
	}
	if err != nil {
		return nil, fmt.Errorf("could not insert appointment: %w", err)
	}
	return &appointment, nil
}

func (d defaultService) Reschedule(ctx context.Context, user auth.User, appointmentUUID uuid.UUID, request AppointmentRequest) (*Appointment, error) {
	if err := authorize(user.Role, ActionReschedule, rescheduling); err != nil {
		return nil, err
	}
	if err := request.Validate(); err != nil {
		return nil, err
	}
	appointment, err := d.Get(ctx, appointmentUUID)
	if err != nil {
		return nil, err
	}
	if err = checkEditable(*appointment); err != nil {
		return nil, err
	}
	patient, veterinarian, err := d.resolve(ctx, request)
	if err != nil {
		return nil, err
	}
	if err = d.scheduler.Check(ctx, veterinarian.ID, request.ScheduledAt, appointment.ID); err != nil {
		return nil, rejected(err)
	}
	appointment.PatientID, appointment.PatientUUID, appointment.PatientName = patient.ID, patient.UUID, patient.Name
	appointment.VeterinarianID, appointment.VeterinarianUUID, appointment.VeterinarianName = veterinarian.ID, veterinarian.UUID, veterinarian.Name
	appointment.ScheduledAt = request.ScheduledAt
	appointment.Reason = strings.TrimSpace(request.Reason)
	err = d.repository.UpdateSchedule(ctx, *appointment)
	switch {
	case database.IsUniqueViolation(err):
		return nil, rejected(&DoubleBookingError{ScheduledAt: request.ScheduledAt})
	case errors.Is(err, errStaleStatus):
		return nil, &InvalidTransitionError{From: appointment.Status, To: appointment.Status, Reason: err.Error()}
	case err != nil:
		return nil, fmt.Errorf("could not update appointment: %w", err)
	}
	return appointment, nil
}

func (d defaultService) Delete(ctx context.Context, user auth.User, appointmentUUID uuid.UUID) error {
	if err := authorize(user.Role, ActionDelete, deleting); err != nil {
		return err
	}
	appointment, err := d.Get(ctx, appointmentUUID)
	if err != nil {
		return err
	}
	if err = d.repository.DeleteAppointment(ctx, appointment.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFound(ErrAppointmentNotFound)
		}
		return fmt.Errorf("could not delete appointment: %w", err)
	}
	return nil
}

// transition performs the action on the appointment. The fill function validates the action
// payload and records its fields in the change.
func (d defaultService) transition(ctx context.Context, user auth.User, appointmentUUID uuid.UUID, action Action, fill func(change *StatusChange) error) (*Appointment, error) {
	appointment, err := d.Get(ctx, appointmentUUID)
	if err != nil {
		return nil, err
	}
	to, err := Plan(action, user, *appointment, d.clock.Now())
	if err != nil {
		return nil, err
	}
	change := StatusChange{From: appointment.Status, To: to, ActorID: user.ID}
	if fill != nil {
		if err = fill(&change); err != nil {
			return nil, err
		}
	}
	err = d.repository.ChangeStatus(ctx, appointment.ID, change)
	if errors.Is(err, errStaleStatus) {
		return nil, &InvalidTransitionError{From: appointment.Status, To: to, Reason: err.Error()}
	}
	if err != nil {
		return nil, fmt.Errorf("could not %s appointment: %w", action, err)
	}
	metrics.AppointmentTransitioned(string(action))
	appointment.Status = to
	if change.Amount != nil {
		appointment.Amount = change.Amount
	}
	if change.PaymentMethod != nil {
		appointment.PaymentMethod = change.PaymentMethod
	}
	if change.VeterinarianNotes != nil {
		appointment.VeterinarianNotes = *change.VeterinarianNotes
	}
	if change.CancellationReason != nil {
		appointment.CancellationReason = *change.CancellationReason
	}
	return appointment, nil
}

func (d defaultService) Confirm(ctx context.Context, user auth.User, appointmentUUID uuid.UUID) (*Appointment, error) {
	return d.transition(ctx, user, appointmentUUID, ActionConfirm, nil)
}

func (d defaultService) Start(ctx context.Context, user auth.User, appointmentUUID uuid.UUID) (*Appointment, error) {
	return d.transition(ctx, user, appointmentUUID, ActionStart, nil)
}

func (d defaultService) Complete(ctx context.Context, user auth.User, appointmentUUID uuid.UUID, request CompletionRequest) (*Appointment, error) {
	return d.transition(ctx, user, appointmentUUID, ActionComplete, func(change *StatusChange) error {
		if err := request.Validate(); err != nil {
			return err
		}
		notes := strings.TrimSpace(request.Notes)
		change.Amount = request.Amount
		change.PaymentMethod = &request.PaymentMethod
		change.VeterinarianNotes = &notes
		return nil
	})
}

func (d defaultService) Cancel(ctx context.Context, user auth.User, appointmentUUID uuid.UUID, request CancellationRequest) (*Appointment, error) {
	return d.transition(ctx, user, appointmentUUID, ActionCancel, func(change *StatusChange) error {
		if err := request.Validate(); err != nil {
			return err
		}
		reason := strings.TrimSpace(request.Reason)
		change.CancellationReason = &reason
		return nil
	})
}

func (d defaultService) MarkNoShow(ctx context.Context, user auth.User, appointmentUUID uuid.UUID) (*Appointment, error) {
	return d.transition(ctx, user, appointmentUUID, ActionNoShow, nil)
}
