package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"

	appinstances "botdash/internal/app/instances"
	appusers "botdash/internal/app/users"

	"github.com/go-chi/chi/v5"
)

type UserHandlers struct {
	svc *appusers.Service
}

func NewUserHandlers(svc *appusers.Service) *UserHandlers {
	return &UserHandlers{svc: svc}
}

func (h *UserHandlers) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := h.svc.Users(r.Context())
		if err != nil {
			writeUserError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func (h *UserHandlers) Create() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req appusers.CreateUserRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		u, err := h.svc.Create(r.Context(), req)
		if err != nil {
			writeUserError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, u)
	}
}

func (h *UserHandlers) Update() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req appusers.UpdateUserRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		u, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), req)
		if err != nil {
			writeUserError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	}
}

func (h *UserHandlers) Delete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeUserError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, appinstances.DeleteResponse{Message: "User deleted"})
	}
}

func writeUserError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appusers.ErrInvalidRequest):
		WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
	case errors.Is(err, appusers.ErrUserNotFound):
		WriteHTTPError(w, http.StatusNotFound, "user_not_found")
	case errors.Is(err, appusers.ErrUserExists):
		WriteHTTPError(w, http.StatusConflict, "user_exists")
	case errors.Is(err, appusers.ErrEmailTaken):
		WriteHTTPError(w, http.StatusConflict, "email_taken")
	default:
		WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
	}
}
