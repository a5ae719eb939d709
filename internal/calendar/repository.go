package calendar

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
	"vet-clinic/internal/database"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const (
	selectAppointmentQuery = "SELECT a.id, a.uuid, a.patient_id, p.uuid AS patient_uuid, p.name AS patient_name, a.veterinarian_id, v.uuid AS veterinarian_uuid, v.name AS veterinarian_name, a.scheduled_at, a.reason, a.status, a.created_by, a.amount, a.payment_method, a.veterinarian_notes, a.cancellation_reason FROM tb_appointment a JOIN tb_patient p ON p.id = a.patient_id JOIN tb_veterinarian v ON v.id = a.veterinarian_id"

	findPatientByUUIDQuery      = "SELECT id, uuid, guardian_id, name, species, active FROM tb_patient WHERE uuid = $1"
	listPatientsQuery           = "SELECT id, uuid, guardian_id, name, species, active FROM tb_patient WHERE name ILIKE $1 ORDER BY name"
	findAppointmentByUUIDQuery  = selectAppointmentQuery + " WHERE a.uuid = $1"
	listAppointmentsQuery       = selectAppointmentQuery + " WHERE a.scheduled_at >= $1 AND a.scheduled_at < $2 ORDER BY a.scheduled_at, v.name"
	listVetAppointmentsQuery    = selectAppointmentQuery + " WHERE a.scheduled_at >= $1 AND a.scheduled_at < $2 AND a.veterinarian_id = $3 ORDER BY a.scheduled_at"
	listStatusAppointmentsQuery = selectAppointmentQuery + " WHERE a.scheduled_at >= $1 AND a.scheduled_at < $2 AND a.status = ANY($3) ORDER BY a.scheduled_at, v.name"
	countConflictsQuery         = "SELECT count(*) FROM tb_appointment WHERE veterinarian_id = $1 AND scheduled_at = $2 AND id <> $3"
	insertAppointmentQuery      = "INSERT INTO tb_appointment (uuid, patient_id, veterinarian_id, scheduled_at, reason, status, created_by) VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id"
	updateScheduleQuery         = "UPDATE tb_appointment SET patient_id = $2, veterinarian_id = $3, scheduled_at = $4, reason = $5, updated_at = now() WHERE id = $1 AND status = $6"
	updateStatusQuery           = "UPDATE tb_appointment SET status = $3, amount = COALESCE($4, amount), payment_method = COALESCE($5, payment_method), veterinarian_notes = COALESCE($6, veterinarian_notes), cancellation_reason = COALESCE($7, cancellation_reason), updated_at = now() WHERE id = $1 AND status = $2"
	insertEventQuery            = "INSERT INTO tb_appointment_event (appointment_id, from_status, to_status, actor_id) VALUES ($1, $2, $3, $4)"
	deleteAppointmentQuery      = "DELETE FROM tb_appointment WHERE id = $1"
)

// errStaleStatus is returned when the appointment status changed since it was read.
var errStaleStatus = errors.New("appointment status changed concurrently")

// StatusChange is a status transition along with the fields recorded by it. Nil fields are kept.
type StatusChange struct {
	From               Status
	To                 Status
	ActorID            int64
	Amount             *int64
	PaymentMethod      *PaymentMethod
	VeterinarianNotes  *string
	CancellationReason *string
}

// Repository provides access to appointments.
type Repository interface {
	ConflictFinder

	// FindPatientByUUID finds a patient by its UUID. If none was found, nil is returned.
	FindPatientByUUID(ctx context.Context, uuid uuid.UUID) (*Patient, error)

	// ListPatients lists the patients whose name contains the given text, ordered by name.
	ListPatients(ctx context.Context, name string) ([]Patient, error)

	// FindAppointmentByUUID finds an appointment by its UUID. If none was found, nil is returned.
	FindAppointmentByUUID(ctx context.Context, uuid uuid.UUID) (*Appointment, error)

	// ListAppointments lists the appointments in [from, to), ordered by time. A veterinarianID of
	// zero lists the appointments of every veterinarian.
	ListAppointments(ctx context.Context, from, to time.Time, veterinarianID int64) ([]Appointment, error)

	// ListAppointmentsByStatus lists the appointments in [from, to) with any of the given statuses.
	ListAppointmentsByStatus(ctx context.Context, from, to time.Time, statuses []Status) ([]Appointment, error)

	// InsertAppointment inserts the appointment, returning its ID.
	InsertAppointment(ctx context.Context, appointment Appointment) (int64, error)

	// UpdateSchedule moves the appointment, provided its status is still the given one.
	UpdateSchedule(ctx context.Context, appointment Appointment) error

	// ChangeStatus applies the change and records it in the appointment events, atomically.
	ChangeStatus(ctx context.Context, appointmentID int64, change StatusChange) error

	// DeleteAppointment deletes the appointment with the given ID.
	DeleteAppointment(ctx context.Context, id int64) error
}

type defaultRepository struct {
	dbConn database.Connection
}

// NewRepository creates a new Repository.
func NewRepository(dbConn database.Connection) Repository {
	return &defaultRepository{dbConn: dbConn}
}

func (d defaultRepository) FindPatientByUUID(ctx context.Context, uuid uuid.UUID) (*Patient, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	rows, err := d.dbConn.DB().QueryContext(ctx, findPatientByUUIDQuery, uuid.String())
	if err != nil {
		return nil, err
	}
	defer database.CloseRows(rows)
	if !rows.Next() {
		return nil, rows.Err()
	}
	patient := new(Patient)
	if err = database.TransformRow(rows, patient); err != nil {
		return nil, err
	}
	return patient, nil
}

func (d defaultRepository) ListPatients(ctx context.Context, name string) ([]Patient, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	rows, err := d.dbConn.DB().QueryContext(ctx, listPatientsQuery, database.ContainsPattern(name))
	if err != nil {
		return nil, err
	}
	defer database.CloseRows(rows)
	patients := make([]Patient, 0)
	for rows.Next() {
		var patient Patient
		if err = database.TransformRow(rows, &patient); err != nil {
			return nil, err
		}
		patients = append(patients, patient)
	}
	return patients, rows.Err()
}

func (d defaultRepository) listAppointments(ctx context.Context, query string, params ...interface{}) ([]Appointment, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	rows, err := d.dbConn.DB().QueryContext(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	defer database.CloseRows(rows)
	appointments := make([]Appointment, 0)
	for rows.Next() {
		var appointment Appointment
		if err = database.TransformRow(rows, &appointment); err != nil {
			return nil, err
		}
		appointments = append(appointments, appointment)
	}
	return appointments, rows.Err()
}

func (d defaultRepository) FindAppointmentByUUID(ctx context.Context, uuid uuid.UUID) (*Appointment, error) {
	appointments, err := d.listAppointments(ctx, findAppointmentByUUIDQuery, uuid.String())
	if err != nil || len(appointments) == 0 {
		return nil, err
	}
	return &appointments[0], nil
}

func (d defaultRepository) ListAppointments(ctx context.Context, from, to time.Time, veterinarianID int64) ([]Appointment, error) {
	if veterinarianID == 0 {
		return d.listAppointments(ctx, listAppointmentsQuery, from, to)
	}
	return d.listAppointments(ctx, listVetAppointmentsQuery, from, to, veterinarianID)
}

func (d defaultRepository) ListAppointmentsByStatus(ctx context.Context, from, to time.Time, statuses []Status) ([]Appointment, error) {
	names := make([]string, len(statuses))
	for i, status := range statuses {
		names[i] = string(status)
	}
	return d.listAppointments(ctx, listStatusAppointmentsQuery, from, to, pq.Array(names))
}

func (d defaultRepository) CountConflicts(ctx context.Context, veterinarianID int64, at time.Time, excludedID int64) (int, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	var count int
	err := d.dbConn.DB().QueryRowContext(ctx, countConflictsQuery, veterinarianID, at, excludedID).Scan(&count)
	return count, err
}

func (d defaultRepository) InsertAppointment(ctx context.Context, appointment Appointment) (int64, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	params := []interface{}{
		appointment.UUID.String(),
		appointment.PatientID,
		appointment.VeterinarianID,
		appointment.ScheduledAt,
		appointment.Reason,
		string(appointment.Status),
		appointment.CreatedBy,
	}
	var id int64
	if err := d.dbConn.DB().QueryRowContext(ctx, insertAppointmentQuery, params...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// expectOneRow converts an update that matched no rows into errStaleStatus.
func expectOneRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errStaleStatus
	}
	return nil
}

func (d defaultRepository) UpdateSchedule(ctx context.Context, appointment Appointment) error {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	params := []interface{}{
		appointment.ID,
		appointment.PatientID,
		appointment.VeterinarianID,
		appointment.ScheduledAt,
		appointment.Reason,
		string(appointment.Status),
	}
	result, err := d.dbConn.DB().ExecContext(ctx, updateScheduleQuery, params...)
	if err != nil {
		return err
	}
	return expectOneRow(result)
}

func (d defaultRepository) ChangeStatus(ctx context.Context, appointmentID int64, change StatusChange) error {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	var paymentMethod *string
	if change.PaymentMethod != nil {
		method := string(*change.PaymentMethod)
		paymentMethod = &method
	}
	return database.WithTransaction(ctx, d.dbConn, func(tx *sql.Tx) error {
		params := []interface{}{
			appointmentID,
			string(change.From),
			string(change.To),
			change.Amount,
			paymentMethod,
			change.VeterinarianNotes,
			change.CancellationReason,
		}
		result, err := tx.ExecContext(ctx, updateStatusQuery, params...)
		if err != nil {
			return fmt.Errorf("could not update status: %w", err)
		}
		if err = expectOneRow(result); err != nil {
			return err
		}
		if _, err = tx.ExecContext(ctx, insertEventQuery, appointmentID, string(change.From), string(change.To), change.ActorID); err != nil {
			return fmt.Errorf("could not record event: %w", err)
		}
		return nil
	})
}

func (d defaultRepository) DeleteAppointment(ctx context.Context, id int64) error {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	result, err := d.dbConn.DB().ExecContext(ctx, deleteAppointmentQuery, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
