package shifts

import (
	"encoding/json"
	"fmt"
	"net/http"
	"vet-clinic/internal/apierrors"
	"vet-clinic/internal/auth"
	"vet-clinic/internal/logging"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type httpHandler struct {
	service Service
	logger  zerolog.Logger
}

// Setup setups the routes handled by shifts context.
func Setup(router *chi.Mux, logger zerolog.Logger, authorizer auth.Authorizer, service Service) {
	handler := &httpHandler{logger: logger, service: service}

	// protected routes, for every staff member
	router.Group(func(group chi.Router) {
		group.Use(auth.JwtValidator(authorizer))
		group.Get("/api/v1/veterinarians", handler.ListVeterinarians)
		group.Get("/api/v1/veterinarians/{veterinarianUUID}/shifts", handler.ListBlocks)
	})

	// protected routes, only for admins
	router.Group(func(group chi.Router) {
		group.Use(auth.JwtValidator(authorizer))
		group.Use(auth.AllowedRoles(authorizer, auth.AdminRole))
		group.Post("/api/v1/veterinarians/{veterinarianUUID}/shifts", handler.CreateBlocks)
		group.Delete("/api/v1/shifts/{shiftUUID}", handler.DeleteBlock)
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

func (h httpHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	logging.PrintlnError(h.logger, fmt.Sprint(r.Context().Value(middleware.RequestIDKey), " ", err))
	switch e := err.(type) {
	case *apierrors.ValidationError:
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(e)
	case *apierrors.APIError:
		w.WriteHeader(e.HTTPStatusCode())
		_ = json.NewEncoder(w).Encode(e)
	default:
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// ListVeterinarians handles the request to look up the veterinarians, by name when q is given.
func (h httpHandler) ListVeterinarians(w http.ResponseWriter, r *http.Request) {
	veterinarians, err := h.service.ListVeterinarians(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	_ = json.NewEncoder(w).Encode(veterinarians)
}

// ListBlocks handles the request to list the weekly blocks of a veterinarian.
func (h httpHandler) ListBlocks(w http.ResponseWriter, r *http.Request) {
	veterinarianUUID, err := parseUUIDParameter("veterinarianUUID", r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	blocks, err := h.service.ListBlocks(r.Context(), veterinarianUUID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	_ = json.NewEncoder(w).Encode(blocks)
}

// CreateBlocks handles the request to open a window in several weekdays at once. If at least one
// block was created the request succeeds, reporting the weekdays that were rejected.
func (h httpHandler) CreateBlocks(w http.ResponseWriter, r *http.Request) {
	veterinarianUUID, err := parseUUIDParameter("veterinarianUUID", r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	request := new(BlockRequest)
	if err = json.NewDecoder(r.Body).Decode(request); err != nil {
		h.writeError(w, r, apierrors.NewValidationError("body", err.Error()))
		return
	}
	result, err := h.service.CreateBlocks(r.Context(), veterinarianUUID, *request)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if result.Created == 0 {
		w.WriteHeader(http.StatusBadRequest)
	} else {
		w.WriteHeader(http.StatusCreated)
	}
	_ = json.NewEncoder(w).Encode(result)
}

// DeleteBlock handles the request to delete a block.
func (h httpHandler) DeleteBlock(w http.ResponseWriter, r *http.Request) {
	blockUUID, err := parseUUIDParameter("shiftUUID", r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err = h.service.DeleteBlock(r.Context(), blockUUID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
