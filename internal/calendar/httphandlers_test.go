package calendar

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"
	"vet-clinic/internal/auth"
	"vet-clinic/internal/configs"
	"vet-clinic/internal/logging"
	"vet-clinic/internal/mock"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	logger             = logging.Discard()
	patientColumns     = []string{"id", "uuid", "guardian_id", "name", "species", "active"}
	appointmentColumns = []string{"id", "uuid", "patient_id", "patient_uuid", "patient_name", "veterinarian_id", "veterinarian_uuid", "veterinarian_name", "scheduled_at", "reason", "status", "created_by", "amount", "payment_method", "veterinarian_notes", "cancellation_reason"}
	appointmentUUID    = uuid.MustParse("9d2e4b7a-5c1f-4e3a-a6b8-7f0c1d2e3f40")
)

type mockAuthorizer struct {
	user auth.User
}

func (m mockAuthorizer) ValidateToken(ctx context.Context, token string) (*auth.User, error) {
	return &m.user, nil
}

func (m mockAuthorizer) RefreshTokens(ctx context.Context, tokens auth.Tokens) (*auth.Tokens, error) {
	return nil, auth.NewUnauthorizedError()
}

func (m mockAuthorizer) GetAuthenticatedUser(ctx context.Context) (auth.User, error) {
	return m.user, nil
}

func withPatient(patient Patient) mock.DBResultOption {
	return func(dbConn mock.Connection) {
		dbConn.SQLMock.ExpectQuery(regexp.QuoteMeta(findPatientByUUIDQuery)).
			WithArgs(patient.UUID.String()).
			WillReturnRows(sqlmock.NewRows(patientColumns).AddRow(patient.ID, patient.UUID.String(), 1, patient.Name, patient.Species, patient.Active))
	}
}

func withConflicts(count int) mock.DBResultOption {
	return func(dbConn mock.Connection) {
		dbConn.SQLMock.ExpectQuery(regexp.QuoteMeta(countConflictsQuery)).
			WithArgs(1, sqlmock.AnyArg(), 0).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(count))
	}
}

func withInsertAppointmentResult(id int64) mock.DBResultOption {
	return func(dbConn mock.Connection) {
		dbConn.SQLMock.ExpectQuery(regexp.QuoteMeta(insertAppointmentQuery)).
			WithArgs(sqlmock.AnyArg(), luna.ID, 1, sqlmock.AnyArg(), "Annual vaccination", string(StatusScheduled), receptionist.ID).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(id))
	}
}

func withInsertAppointmentError(err error) mock.DBResultOption {
	return func(dbConn mock.Connection) {
		dbConn.SQLMock.ExpectQuery(regexp.QuoteMeta(insertAppointmentQuery)).WillReturnError(err)
	}
}

func appointmentRows(status Status) *sqlmock.Rows {
	return sqlmock.NewRows(appointmentColumns).AddRow(
		5, appointmentUUID.String(), luna.ID, luna.UUID.String(), luna.Name,
		1, "6f1c2a36-8f0e-4c47-9a43-3d3c2b8f9a10", "Dr. Rojas",
		at(monday, 9, 0), "Annual vaccination", string(status), nil, nil, nil, "", "",
	)
}

func withAppointment(rows *sqlmock.Rows) mock.DBResultOption {
	return func(dbConn mock.Connection) {
		dbConn.SQLMock.ExpectQuery(regexp.QuoteMeta(findAppointmentByUUIDQuery)).WithArgs(appointmentUUID.String()).WillReturnRows(rows)
	}
}

func withUpdateStatusResult(from, to Status, affected int64) mock.DBResultOption {
	return func(dbConn mock.Connection) {
		dbConn.SQLMock.ExpectExec(regexp.QuoteMeta(updateStatusQuery)).
			WithArgs(5, string(from), string(to), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, affected))
	}
}

func withInsertEventResult(from, to Status, actorID int64) mock.DBResultOption {
	return func(dbConn mock.Connection) {
		dbConn.SQLMock.ExpectExec(regexp.QuoteMeta(insertEventQuery)).
			WithArgs(5, string(from), string(to), actorID).
			WillReturnResult(sqlmock.NewResult(1, 1))
	}
}

func withListAppointmentsResult(rows *sqlmock.Rows) mock.DBResultOption {
	return func(dbConn mock.Connection) {
		dbConn.SQLMock.ExpectQuery(regexp.QuoteMeta(listAppointmentsQuery)).
			WithArgs(monday, monday.AddDate(0, 0, 1)).
			WillReturnRows(rows)
	}
}

func withListStatusAppointmentsResult(rows *sqlmock.Rows) mock.DBResultOption {
	return func(dbConn mock.Connection) {
		dbConn.SQLMock.ExpectQuery(regexp.QuoteMeta(listStatusAppointmentsQuery)).
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), pq.Array([]string{"SCHEDULED", "CONFIRMED", "IN_PROGRESS"})).
			WillReturnRows(rows)
	}
}

func withDeleteAppointmentResult(affected int64) mock.DBResultOption {
	return func(dbConn mock.Connection) {
		dbConn.SQLMock.ExpectExec(regexp.QuoteMeta(deleteAppointmentQuery)).WithArgs(5).WillReturnResult(sqlmock.NewResult(0, affected))
	}
}

func serve(t *testing.T, user auth.User, dbConn mock.Connection, method, target string, body string) *http.Response {
	t.Helper()
	config := configs.MustLoad("./../../test/testdata/config_valid.json")
	router := chi.NewRouter()
	Setup(router, logger, mockAuthorizer{user: user}, config, dbConn, mondayMornings())

	req, _ := http.NewRequest(method, target, strings.NewReader(body))
	req.Header.Add("Authorization", "Bearer testing")

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder.Result()
}

func decodeBody(t *testing.T, response *http.Response, v interface{}) {
	t.Helper()
	defer response.Body.Close()
	require.NoError(t, json.NewDecoder(response.Body).Decode(v))
}

func scheduleBody(scheduledAt time.Time) string {
	return fmt.Sprintf(`{"patient_uuid":%q,"veterinarian_uuid":"6f1c2a36-8f0e-4c47-9a43-3d3c2b8f9a10","scheduled_at":%q,"reason":"Annual vaccination"}`,
		luna.UUID.String(), scheduledAt.Format(time.RFC3339))
}

func TestSchedule(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		dbResults  []mock.DBResultOption
		wantStatus int
		wantCode   string
	}{
		{
			name:       "should schedule an appointment",
			body:       scheduleBody(at(monday, 9, 0)),
			dbResults:  []mock.DBResultOption{withPatient(luna), withConflicts(0), withInsertAppointmentResult(5)},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "should reject a time outside the working hours",
			body:       scheduleBody(at(monday, 12, 0)),
			dbResults:  []mock.DBResultOption{withPatient(luna)},
			wantStatus: http.StatusBadRequest,
			wantCode:   "outside_working_hours",
		},
		{
			name:       "should reject a day off",
			body:       scheduleBody(at(monday.AddDate(0, 0, 5), 9, 0)),
			dbResults:  []mock.DBResultOption{withPatient(luna)},
			wantStatus: http.StatusBadRequest,
			wantCode:   "no_working_hours",
		},
		{
			name:       "should reject a past time",
			body:       scheduleBody(time.Date(2020, time.June, 1, 9, 0, 0, 0, time.UTC)),
			dbResults:  []mock.DBResultOption{withPatient(luna)},
			wantStatus: http.StatusBadRequest,
			wantCode:   "past_date",
		},
		{
			name:       "should reject a taken time",
			body:       scheduleBody(at(monday, 9, 0)),
			dbResults:  []mock.DBResultOption{withPatient(luna), withConflicts(1)},
			wantStatus: http.StatusConflict,
			wantCode:   "double_booking",
		},
		{
			name:       "should reject a time taken concurrently",
			body:       scheduleBody(at(monday, 9, 0)),
			dbResults:  []mock.DBResultOption{withPatient(luna), withConflicts(0), withInsertAppointmentError(&pq.Error{Code: "23505"})},
			wantStatus: http.StatusConflict,
			wantCode:   "double_booking",
		},
		{
			name:       "should fail when the database fails",
			body:       scheduleBody(at(monday, 9, 0)),
			dbResults:  []mock.DBResultOption{withPatient(luna), withConflicts(0), withInsertAppointmentError(sql.ErrConnDone)},
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "should reject an invalid body",
			body:       `{"patient_uuid":`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "should reject a request without reason",
			body:       strings.Replace(scheduleBody(at(monday, 9, 0)), "Annual vaccination", "", 1),
			wantStatus: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			dbConn := mock.MustCreateConnectionMock()
			defer dbConn.Close()
			mock.MockDBResults(dbConn, tt.dbResults...)

			response := serve(t, receptionist, dbConn, http.MethodPost, "/api/v1/appointments", tt.body)
			assert.Equal(t, tt.wantStatus, response.StatusCode)
			if tt.wantCode != "" {
				var body errorResponse
				decodeBody(t, response, &body)
				assert.Equal(t, tt.wantCode, body.Code)
				assert.NotEmpty(t, body.Detail)
			}
			if tt.wantStatus == http.StatusCreated {
				var appointment Appointment
				decodeBody(t, response, &appointment)
				assert.Equal(t, StatusScheduled, appointment.Status)
				assert.Equal(t, "Dr. Rojas", appointment.VeterinarianName)
			}
			assert.NoError(t, dbConn.ExpectationsWereMet())
		})
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		name       string
		user       auth.User
		dbResults  []mock.DBResultOption
		wantStatus int
		wantCode   string
	}{
		{
			name: "should confirm a requested appointment and record the event",
			user: receptionist,
			dbResults: []mock.DBResultOption{
				withAppointment(appointmentRows(StatusRequested)),
				mock.WithBegin(),
				withUpdateStatusResult(StatusRequested, StatusConfirmed, 1),
				withInsertEventResult(StatusRequested, StatusConfirmed, receptionist.ID),
				mock.WithCommit(),
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "should forbid veterinarians",
			user:       veterinarian,
			dbResults:  []mock.DBResultOption{withAppointment(appointmentRows(StatusRequested))},
			wantStatus: http.StatusForbidden,
			wantCode:   "unauthorized_role",
		},
		{
			name:       "should reject an appointment already confirmed",
			user:       receptionist,
			dbResults:  []mock.DBResultOption{withAppointment(appointmentRows(StatusConfirmed))},
			wantStatus: http.StatusConflict,
			wantCode:   "invalid_transition",
		},
		{
			name: "should reject a status changed concurrently",
			user: receptionist,
			dbResults: []mock.DBResultOption{
				withAppointment(appointmentRows(StatusRequested)),
				mock.WithBegin(),
				withUpdateStatusResult(StatusRequested, StatusConfirmed, 0),
				mock.WithRollback(),
			},
			wantStatus: http.StatusConflict,
			wantCode:   "invalid_transition",
		},
		{
			name:       "should fail when the appointment doesn't exist",
			user:       receptionist,
			dbResults:  []mock.DBResultOption{withAppointment(sqlmock.NewRows(appointmentColumns))},
			wantStatus: http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			dbConn := mock.MustCreateConnectionMock()
			defer dbConn.Close()
			mock.MockDBResults(dbConn, tt.dbResults...)

			response := serve(t, tt.user, dbConn, http.MethodPost, "/api/v1/appointments/"+appointmentUUID.String()+"/confirm", "")
			assert.Equal(t, tt.wantStatus, response.StatusCode)
			if tt.wantCode != "" {
				var body errorResponse
				decodeBody(t, response, &body)
				assert.Equal(t, tt.wantCode, body.Code)
			}
			if tt.wantStatus == http.StatusOK {
				var appointment Appointment
				decodeBody(t, response, &appointment)
				assert.Equal(t, StatusConfirmed, appointment.Status)
			}
			assert.NoError(t, dbConn.ExpectationsWereMet())
		})
	}
}

func TestComplete(t *testing.T) {
	dbConn := mock.MustCreateConnectionMock()
	defer dbConn.Close()
	mock.MockDBResults(dbConn,
		withAppointment(appointmentRows(StatusInProgress)),
		withAppointment(appointmentRows(StatusInProgress)),
		withAppointment(appointmentRows(StatusInProgress)),
		mock.WithBegin(),
		withUpdateStatusResult(StatusInProgress, StatusCompleted, 1),
		withInsertEventResult(StatusInProgress, StatusCompleted, veterinarian.ID),
		mock.WithCommit(),
	)
	target := "/api/v1/appointments/" + appointmentUUID.String() + "/complete"

	response := serve(t, veterinarian, dbConn, http.MethodPost, target, `{"payment_method":"CASH"}`)
	assert.Equal(t, http.StatusBadRequest, response.StatusCode, "the amount is required")

	response = serve(t, veterinarian, dbConn, http.MethodPost, target, `{"amount":-1,"payment_method":"CASH"}`)
	assert.Equal(t, http.StatusBadRequest, response.StatusCode, "the amount must not be negative")

	response = serve(t, veterinarian, dbConn, http.MethodPost, target, `{"amount":25000,"payment_method":"CASH","veterinarian_notes":"healthy"}`)
	require.Equal(t, http.StatusOK, response.StatusCode)
	var appointment Appointment
	decodeBody(t, response, &appointment)
	assert.Equal(t, StatusCompleted, appointment.Status)
	assert.Equal(t, int64(25000), *appointment.Amount)
	assert.Equal(t, PaymentCash, *appointment.PaymentMethod)
	assert.NoError(t, dbConn.ExpectationsWereMet())
}

func TestListPatients(t *testing.T) {
	t.Run("should look patients up by name", func(t *testing.T) {
		dbConn := mock.MustCreateConnectionMock()
		defer dbConn.Close()
		dbConn.SQLMock.ExpectQuery(regexp.QuoteMeta(listPatientsQuery)).WithArgs("%lu%").
			WillReturnRows(sqlmock.NewRows(patientColumns).AddRow(luna.ID, luna.UUID.String(), 1, luna.Name, luna.Species, luna.Active))

		response := serve(t, receptionist, dbConn, http.MethodGet, "/api/v1/patients?q=lu", "")
		require.Equal(t, http.StatusOK, response.StatusCode)
		var patients []Patient
		decodeBody(t, response, &patients)
		require.Len(t, patients, 1)
		assert.Equal(t, luna.UUID, patients[0].UUID)
		assert.Equal(t, "Cat", patients[0].Species)
		assert.NoError(t, dbConn.ExpectationsWereMet())
	})
	t.Run("should list every patient without a filter", func(t *testing.T) {
		dbConn := mock.MustCreateConnectionMock()
		defer dbConn.Close()
		dbConn.SQLMock.ExpectQuery(regexp.QuoteMeta(listPatientsQuery)).WithArgs("%%").
			WillReturnRows(sqlmock.NewRows(patientColumns))

		response := serve(t, veterinarian, dbConn, http.MethodGet, "/api/v1/patients", "")
		require.Equal(t, http.StatusOK, response.StatusCode)
		var patients []Patient
		decodeBody(t, response, &patients)
		assert.Empty(t, patients)
		assert.NoError(t, dbConn.ExpectationsWereMet())
	})
	t.Run("should fail due to a database error", func(t *testing.T) {
		dbConn := mock.MustCreateConnectionMock()
		defer dbConn.Close()
		dbConn.SQLMock.ExpectQuery(regexp.QuoteMeta(listPatientsQuery)).WillReturnError(sql.ErrConnDone)

		response := serve(t, receptionist, dbConn, http.MethodGet, "/api/v1/patients", "")
		assert.Equal(t, http.StatusInternalServerError, response.StatusCode)
	})
}

func TestListAgenda(t *testing.T) {
	t.Run("should list the appointments of the day", func(t *testing.T) {
		dbConn := mock.MustCreateConnectionMock()
		defer dbConn.Close()
		mock.MockDBResults(dbConn, withListAppointmentsResult(appointmentRows(StatusScheduled)))

		response := serve(t, receptionist, dbConn, http.MethodGet, "/api/v1/appointments?date=2030-06-03", "")
		require.Equal(t, http.StatusOK, response.StatusCode)
		var appointments []Appointment
		decodeBody(t, response, &appointments)
		require.Len(t, appointments, 1)
		assert.Equal(t, appointmentUUID, appointments[0].UUID)
		assert.True(t, at(monday, 9, 0).Equal(appointments[0].ScheduledAt))
		assert.NoError(t, dbConn.ExpectationsWereMet())
	})
	t.Run("should reject an invalid date", func(t *testing.T) {
		dbConn := mock.MustCreateConnectionMock()
		defer dbConn.Close()
		response := serve(t, receptionist, dbConn, http.MethodGet, "/api/v1/appointments?date=03-06-2030", "")
		assert.Equal(t, http.StatusBadRequest, response.StatusCode)
	})
	t.Run("should reject an unknown veterinarian", func(t *testing.T) {
		dbConn := mock.MustCreateConnectionMock()
		defer dbConn.Close()
		response := serve(t, receptionist, dbConn, http.MethodGet, "/api/v1/appointments?date=2030-06-03&veterinarian="+uuid.New().String(), "")
		assert.Equal(t, http.StatusNotFound, response.StatusCode)
	})
}

func TestListCurrent(t *testing.T) {
	t.Run("should be restricted to the clinical staff", func(t *testing.T) {
		dbConn := mock.MustCreateConnectionMock()
		defer dbConn.Close()
		response := serve(t, receptionist, dbConn, http.MethodGet, "/api/v1/appointments/current", "")
		assert.Equal(t, http.StatusForbidden, response.StatusCode)
	})
	t.Run("should list the active appointments of today", func(t *testing.T) {
		dbConn := mock.MustCreateConnectionMock()
		defer dbConn.Close()
		mock.MockDBResults(dbConn, withListStatusAppointmentsResult(appointmentRows(StatusConfirmed)))
		response := serve(t, veterinarian, dbConn, http.MethodGet, "/api/v1/appointments/current", "")
		require.Equal(t, http.StatusOK, response.StatusCode)
		var appointments []Appointment
		decodeBody(t, response, &appointments)
		assert.Len(t, appointments, 1)
		assert.NoError(t, dbConn.ExpectationsWereMet())
	})
}

func TestDelete(t *testing.T) {
	tests := []struct {
		name       string
		user       auth.User
		target     string
		dbResults  []mock.DBResultOption
		wantStatus int
	}{
		{
			name:       "should delete an appointment whatever its status",
			user:       receptionist,
			target:     appointmentUUID.String(),
			dbResults:  []mock.DBResultOption{withAppointment(appointmentRows(StatusCompleted)), withDeleteAppointmentResult(1)},
			wantStatus: http.StatusNoContent,
		},
		{
			name:       "should forbid veterinarians",
			user:       veterinarian,
			target:     appointmentUUID.String(),
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "should fail when deleted concurrently",
			user:       admin,
			target:     appointmentUUID.String(),
			dbResults:  []mock.DBResultOption{withAppointment(appointmentRows(StatusScheduled)), withDeleteAppointmentResult(0)},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "should reject an invalid identifier",
			user:       admin,
			target:     "not-an-uuid",
			wantStatus: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			dbConn := mock.MustCreateConnectionMock()
			defer dbConn.Close()
			mock.MockDBResults(dbConn, tt.dbResults...)

			response := serve(t, tt.user, dbConn, http.MethodDelete, "/api/v1/appointments/"+tt.target, "")
			assert.Equal(t, tt.wantStatus, response.StatusCode)
			assert.NoError(t, dbConn.ExpectationsWereMet())
		})
	}
}
