package calendar

import (
	"encoding/json"
	"fmt"
	"net/http"
	"vet-clinic/internal/apierrors"
	"vet-clinic/internal/auth"
	"vet-clinic/internal/clock"
	"vet-clinic/internal/configs"
	"vet-clinic/internal/database"
	"vet-clinic/internal/logging"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type httpHandler struct {
	authorizer auth.Authorizer
	service    Service
	scheduler  *Scheduler
	logger     zerolog.Logger
}

// errorResponse is the body sent along with the scheduling and lifecycle errors.
type errorResponse struct {
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

// Setup setups the routes handled by calendar context.
func Setup(router *chi.Mux, logger zerolog.Logger, authorizer auth.Authorizer, config configs.Config, dbConn database.Connection, availability Availability) {
	service := newService(NewRepository(dbConn), availability, clock.System(), config.Location())
	handler := &httpHandler{logger: logger, authorizer: authorizer, service: service, scheduler: service.scheduler}

	// protected routes, for every staff member; role rules per action are checked by the service
	router.Group(func(group chi.Router) {
		group.Use(auth.JwtValidator(authorizer))
		group.Get("/api/v1/patients", handler.ListPatients)
		group.Get("/api/v1/appointments", handler.ListAgenda)
		group.Post("/api/v1/appointments", handler.Schedule)
		group.Get("/api/v1/appointments/{appointmentUUID}", handler.Get)
		group.Put("/api/v1/appointments/{appointmentUUID}", handler.Reschedule)
		group.Delete("/api/v1/appointments/{appointmentUUID}", handler.Delete)
		group.Post("/api/v1/appointments/{appointmentUUID}/confirm", handler.Confirm)
		group.Post("/api/v1/appointments/{appointmentUUID}/start", handler.Start)
		group.Post("/api/v1/appointments/{appointmentUUID}/complete", handler.Complete)
		group.Post("/api/v1/appointments/{appointmentUUID}/cancel", handler.Cancel)
		group.Post("/api/v1/appointments/{appointmentUUID}/no-show", handler.MarkNoShow)
	})

	// protected routes, only for the staff attending the patients
	router.Group(func(group chi.Router) {
		group.Use(auth.JwtValidator(authorizer))
		group.Use(auth.AllowedRoles(authorizer, auth.AdminRole, auth.VeterinarianRole))
		group.Get("/api/v1/appointments/current", handler.ListCurrent)
	})
}

// parseUUIDParameter parses a UUID parameter into a valid UUID.
func parseUUIDParameter(parName string, r *http.Request) (uuid.UUID, error) {
	parsedUUID, err := uuid.Parse(chi.URLParam(r, parName))
	if err != nil {
		return uuid.Nil, apierrors.NewAPIError(apierrors.WithDetail(ErrInvalidIdentifier), apierrors.WithHTTPStatusCode(http.StatusBadRequest))
	}
	return parsedUUID, nil
}

// statusCode maps the scheduling and lifecycle errors to HTTP status codes.
func statusCode(err error) int {
	switch err.(type) {
	case *PastDateError, *NoWorkingHoursError, *OutsideWorkingHoursError:
		return http.StatusBadRequest
	case *UnauthorizedRoleError:
		return http.StatusForbidden
	case *DoubleBookingError, *InvalidTransitionError:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (h httpHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	logging.PrintlnError(h.logger, fmt.Sprint(r.Context().Value(middleware.RequestIDKey), " ", err))
	switch e := err.(type) {
	case *apierrors.ValidationError:
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(e)
	case *apierrors.APIError:
		w.WriteHeader(e.HTTPStatusCode())
		_ = json.NewEncoder(w).Encode(e)
	case coded:
		w.WriteHeader(statusCode(err))
		_ = json.NewEncoder(w).Encode(errorResponse{Code: e.Code(), Detail: err.Error()})
	default:
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func (h httpHandler) write(w http.ResponseWriter, status int, body interface{}) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// decode reads the request body into v, reporting malformed bodies as validation errors.
func decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apierrors.NewValidationError("body", err.Error())
	}
	return nil
}

// ListPatients handles the request to look up the patients, by name when q is given.
func (h httpHandler) ListPatients(w http.ResponseWriter, r *http.Request) {
	patients, err := h.service.ListPatients(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.write(w, http.StatusOK, patients)
}

// ListAgenda handles the request to list the appointments of a day, optionally of a single
// veterinarian.
func (h httpHandler) ListAgenda(w http.ResponseWriter, r *http.Request) {
	day := h.scheduler.clock.Now()
	if value := r.URL.Query().Get("date"); value != "" {
		parsed, err := h.scheduler.ParseDay(value)
		if err != nil {
			h.writeError(w, r, apierrors.NewAPIError(apierrors.WithDetail(ErrInvalidDateReference), apierrors.WithHTTPStatusCode(http.StatusBadRequest)))
			return
		}
		day = parsed
	}
	var veterinarianUUID *uuid.UUID
	if value := r.URL.Query().Get("veterinarian"); value != "" {
		parsed, err := uuid.Parse(value)
		if err != nil {
			h.writeError(w, r, apierrors.NewAPIError(apierrors.WithDetail(ErrInvalidIdentifier), apierrors.WithHTTPStatusCode(http.StatusBadRequest)))
			return
		}
		veterinarianUUID = &parsed
	}
	appointments, err := h.service.ListAgenda(r.Context(), day, veterinarianUUID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.write(w, http.StatusOK, appointments)
}

// ListCurrent handles the request to list today's appointments still to be attended.
func (h httpHandler) ListCurrent(w http.ResponseWriter, r *http.Request) {
	appointments, err := h.service.ListCurrent(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.write(w, http.StatusOK, appointments)
}

// Get handles the request to return an appointment.
func (h httpHandler) Get(w http.ResponseWriter, r *http.Request) {
	appointmentUUID, err := parseUUIDParameter("appointmentUUID", r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	appointment, err := h.service.Get(r.Context(), appointmentUUID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.write(w, http.StatusOK, appointment)
}

// Schedule handles the request to place a new appointment.
func (h httpHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	user, err := h.authorizer.GetAuthenticatedUser(r.Context())
	if err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	request := new(AppointmentRequest)
	if err = decode(r, request); err != nil {
		h.writeError(w, r, err)
		return
	}
	appointment, err := h.service.Schedule(r.Context(), user, *request)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.write(w, http.StatusCreated, appointment)
}

// Reschedule handles the request to change an appointment.
func (h httpHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	user, err := h.authorizer.GetAuthenticatedUser(r.Context())
	if err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	appointmentUUID, err := parseUUIDParameter("appointmentUUID", r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	request := new(AppointmentRequest)
	if err = decode(r, request); err != nil {
		h.writeError(w, r, err)
		return
	}
	appointment, err := h.service.Reschedule(r.Context(), user, appointmentUUID, *request)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.write(w, http.StatusOK, appointment)
}

// Delete handles the request to delete an appointment.
func (h httpHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, err := h.authorizer.GetAuthenticatedUser(r.Context())
	if err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	appointmentUUID, err := parseUUIDParameter("appointmentUUID", r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err = h.service.Delete(r.Context(), user, appointmentUUID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// lifecycleHandler builds the handler of a lifecycle action. The perform function decodes the
// action payload, if it has one, and calls the service.
func (h httpHandler) lifecycleHandler(perform func(r *http.Request, user auth.User, appointmentUUID uuid.UUID) (*Appointment, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := h.authorizer.GetAuthenticatedUser(r.Context())
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		appointmentUUID, err := parseUUIDParameter("appointmentUUID", r)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		appointment, err := perform(r, user, appointmentUUID)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		h.write(w, http.StatusOK, appointment)
	}
}

// Confirm handles the request to confirm a requested appointment.
func (h httpHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.lifecycleHandler(func(r *http.Request, user auth.User, appointmentUUID uuid.UUID) (*Appointment, error) {
		return h.service.Confirm(r.Context(), user, appointmentUUID)
	})(w, r)
}

// Start handles the request to start attending an appointment.
func (h httpHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.lifecycleHandler(func(r *http.Request, user auth.User, appointmentUUID uuid.UUID) (*Appointment, error) {
		return h.service.Start(r.Context(), user, appointmentUUID)
	})(w, r)
}

// Complete handles the request to finish an appointment, recording its payment.
func (h httpHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.lifecycleHandler(func(r *http.Request, user auth.User, appointmentUUID uuid.UUID) (*Appointment, error) {
		request := new(CompletionRequest)
		if err := decode(r, request); err != nil {
			return nil, err
		}
		return h.service.Complete(r.Context(), user, appointmentUUID, *request)
	})(w, r)
}

// Cancel handles the request to cancel an appointment.
func (h httpHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.lifecycleHandler(func(r *http.Request, user auth.User, appointmentUUID uuid.UUID) (*Appointment, error) {
		request := new(CancellationRequest)
		if err := decode(r, request); err != nil {
			return nil, err
		}
		return h.service.Cancel(r.Context(), user, appointmentUUID, *request)
	})(w, r)
}

// MarkNoShow handles the request to record that the patient missed the appointment.
func (h httpHandler) MarkNoShow(w http.ResponseWriter, r *http.Request) {
	h.lifecycleHandler(func(r *http.Request, user auth.User, appointmentUUID uuid.UUID) (*Appointment, error) {
		return h.service.MarkNoShow(r.Context(), user, appointmentUUID)
	})(w, r)
}
