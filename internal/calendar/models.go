package calendar

import (
	"strings"
	"time"
	"vet-clinic/internal/apierrors"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusRequested  Status = "REQUESTED"
	StatusScheduled  Status = "SCHEDULED"
	StatusConfirmed  Status = "CONFIRMED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
	StatusNoShow     Status = "NO_SHOW"
)

// Terminal checks if no transition leaves the status.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusNoShow
}

// activeStatuses are the statuses of the appointments still to be attended today.
var activeStatuses = []Status{StatusScheduled, StatusConfirmed, StatusInProgress}

type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "CASH"
	PaymentDebit    PaymentMethod = "DEBIT"
	PaymentCredit   PaymentMethod = "CREDIT"
	PaymentTransfer PaymentMethod = "TRANSFER"
)

func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentCash, PaymentDebit, PaymentCredit, PaymentTransfer:
		return true
	}
	return false
}

type Patient struct {
	ID         int64     `json:"-" dbfield:"id"`
	UUID       uuid.UUID `json:"uuid" dbfield:"uuid"`
	GuardianID int64     `json:"-" dbfield:"guardian_id"`
	Name       string    `json:"name" dbfield:"name"`
	Species    string    `json:"species" dbfield:"species"`
	Active     bool      `json:"active" dbfield:"active"`
}

// Appointment is a visit of a patient to a veterinarian at an exact instant. Appointments have
// no duration.
type Appointment struct {
	ID                 int64          `json:"-" dbfield:"id"`
	UUID               uuid.UUID      `json:"uuid" dbfield:"uuid"`
	PatientID          int64          `json:"-" dbfield:"patient_id"`
	PatientUUID        uuid.UUID      `json:"patient_uuid" dbfield:"patient_uuid"`
	PatientName        string         `json:"patient_name" dbfield:"patient_name"`
	VeterinarianID     int64          `json:"-" dbfield:"veterinarian_id"`
	VeterinarianUUID   uuid.UUID      `json:"veterinarian_uuid" dbfield:"veterinarian_uuid"`
	VeterinarianName   string         `json:"veterinarian_name" dbfield:"veterinarian_name"`
	ScheduledAt        time.Time      `json:"scheduled_at" dbfield:"scheduled_at"`
	Reason             string         `json:"reason" dbfield:"reason"`
	Status             Status         `json:"status" dbfield:"status"`
	CreatedBy          *int64         `json:"-" dbfield:"created_by"`
	Amount             *int64         `json:"amount,omitempty" dbfield:"amount"`
	PaymentMethod      *PaymentMethod `json:"payment_method,omitempty" dbfield:"payment_method"`
	VeterinarianNotes  string         `json:"veterinarian_notes,omitempty" dbfield:"veterinarian_notes"`
	CancellationReason string         `json:"cancellation_reason,omitempty" dbfield:"cancellation_reason"`
}

// AppointmentRequest asks for an appointment to be placed, or moved, to the given instant.
type AppointmentRequest struct {
	PatientUUID      uuid.UUID `json:"patient_uuid"`
	VeterinarianUUID uuid.UUID `json:"veterinarian_uuid"`
	ScheduledAt      time.Time `json:"scheduled_at"`
	Reason           string    `json:"reason"`
}

// Validate checks if the given request is valid.
func (a AppointmentRequest) Validate() error {
	if a.PatientUUID == uuid.Nil {
		return apierrors.NewValidationError("patient_uuid", "required")
	}
	if a.VeterinarianUUID == uuid.Nil {
		return apierrors.NewValidationError("veterinarian_uuid", "required")
	}
	if a.ScheduledAt.IsZero() {
		return apierrors.NewValidationError("scheduled_at", "required")
	}
	if strings.TrimSpace(a.Reason) == "" {
		return apierrors.NewValidationError("reason", "required")
	}
	return nil
}

// CompletionRequest holds what is recorded when an appointment is completed.
type CompletionRequest struct {
	Amount        *int64        `json:"amount"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	Notes         string        `json:"veterinarian_notes"`
}

// Validate checks if the given request is valid.
func (c CompletionRequest) Validate() error {
	if c.Amount == nil {
		return apierrors.NewValidationError("amount", "required")
	}
	if *c.Amount < 0 {
		return apierrors.NewValidationError("amount", "must not be negative")
	}
	if c.PaymentMethod == "" {
		return apierrors.NewValidationError("payment_method", "required")
	}
	if !c.PaymentMethod.Valid() {
		return apierrors.NewValidationError("payment_method", "must be one of CASH, DEBIT, CREDIT, TRANSFER")
	}
	return nil
}

// CancellationRequest holds why an appointment is cancelled.
type CancellationRequest struct {
	Reason string `json:"reason"`
}

// Validate checks if the given request is valid.
func (c CancellationRequest) Validate() error {
	if strings.TrimSpace(c.Reason) == "" {
		return apierrors.NewValidationError("reason", "required")
	}
	return nil
}
