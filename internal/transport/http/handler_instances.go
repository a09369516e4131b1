package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"

	appinstances "botdash/internal/app/instances"

	"github.com/go-chi/chi/v5"
)

type InstanceHandlers struct {
	svc *appinstances.Service
}

func NewInstanceHandlers(svc *appinstances.Service) *InstanceHandlers {
	return &InstanceHandlers{svc: svc}
}

func (h *InstanceHandlers) Bots() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := h.svc.Bots(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func (h *InstanceHandlers) CreateBot() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, _ := CallerFromContext(r.Context())
		var req appinstances.CreateBotRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		bot, err := h.svc.CreateBot(r.Context(), caller, req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, bot)
	}
}

func (h *InstanceHandlers) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, _ := CallerFromContext(r.Context())
		items, err := h.svc.Instances(r.Context(), caller)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func (h *InstanceHandlers) ListAll() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, _ := CallerFromContext(r.Context())
		items, err := h.svc.AllInstances(r.Context(), caller)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func (h *InstanceHandlers) Create() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, _ := CallerFromContext(r.Context())
		var req appinstances.CreateInstanceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		in, err := h.svc.CreateInstance(r.Context(), caller, req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, in)
	}
}

func (h *InstanceHandlers) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, _ := CallerFromContext(r.Context())
		in, err := h.svc.Instance(r.Context(), caller, chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, in)
	}
}

func (h *InstanceHandlers) Update() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, _ := CallerFromContext(r.Context())
		var req appinstances.UpdateInstanceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		in, err := h.svc.UpdateInstance(r.Context(), caller, chi.URLParam(r, "id"), req)
		if err != nil {
			if errors.Is(err, appinstances.ErrControlFailed) {
				metricControlErrors.Inc()
			}
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, in)
	}
}

func (h *InstanceHandlers) Delete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, _ := CallerFromContext(r.Context())
		resp, err := h.svc.DeleteInstance(r.Context(), caller, chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (h *InstanceHandlers) BetHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, _ := CallerFromContext(r.Context())
		limit := ParseLimit(r, 50, 500)
		items, err := h.svc.BetHistory(r.Context(), caller, chi.URLParam(r, "instanceId"), limit)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appinstances.ErrInvalidRequest):
		WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
	case errors.Is(err, appinstances.ErrForbidden):
		WriteHTTPError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, appinstances.ErrBotNotFound):
		WriteHTTPError(w, http.StatusNotFound, "bot_not_found")
	case errors.Is(err, appinstances.ErrInstanceNotFound):
		WriteHTTPError(w, http.StatusNotFound, "instance_not_found")
	case errors.Is(err, appinstances.ErrBotExists):
		WriteHTTPError(w, http.StatusConflict, "bot_exists")
	case errors.Is(err, appinstances.ErrControlFailed):
		WriteHTTPError(w, http.StatusBadGateway, "control_failed")
	default:
		WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
	}
}
