package httptransport

import (
	"net/http"
	"strconv"
	"time"

	appinstances "botdash/internal/app/instances"
	"botdash/internal/monitor"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

var ssePingInterval = 15 * time.Second

type MonitorHandlers struct {
	svc      *appinstances.Service
	registry *monitor.Registry
	loc      *time.Location
}

func NewMonitorHandlers(svc *appinstances.Service, registry *monitor.Registry) *MonitorHandlers {
	return &MonitorHandlers{svc: svc, registry: registry, loc: time.UTC}
}

// Events mounts a monitor view for the duration of the request and streams
// its rendered state. The first event names the view so the client can
// address it, e.g. to request a balance refresh.
func (h *MonitorHandlers) Events() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, _ := CallerFromContext(r.Context())
		instanceID := chi.URLParam(r, "instanceId")
		if err := h.svc.Authorize(r.Context(), caller, instanceID); err != nil {
			writeServiceError(w, err)
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			WriteHTTPError(w, http.StatusInternalServerError, "stream_not_supported")
			return
		}

		metricMonitorSSETotal.Inc()
		metricMonitorSSEActive.Inc()
		defer metricMonitorSSEActive.Dec()

		view := h.registry.Open(r.Context(), instanceID, caller.UserID, h.svc.HistorySource(caller))
		ch := view.Monitor.Watch()
		defer view.Monitor.Unwatch(ch)

		SetSSEHeaders(w)
		w.WriteHeader(http.StatusOK)
		log.Info().
			Str("request_id", chimw.GetReqID(r.Context())).
			Str("view_id", view.ID).
			Str("instance_id", instanceID).
			Msg("monitor stream opened")

		hello := StreamEvent{
			Event:    "view",
			ViewID:   view.ID,
			ServerTS: time.Now().UnixMilli(),
			Data:     map[string]any{"view_id": view.ID, "instance_id": instanceID},
		}
		if err := WriteSSE(w, hello); err != nil {
			return
		}
		flusher.Flush()

		ticker := time.NewTicker(ssePingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-r.Context().Done():
				log.Info().
					Str("request_id", chimw.GetReqID(r.Context())).
					Str("view_id", view.ID).
					Err(r.Context().Err()).
					Msg("monitor stream closed")
				return
			case s, ok := <-ch:
				if !ok {
					return
				}
				ev := StreamEvent{
					EventID:  strconv.FormatUint(s.Version, 10),
					Event:    "state",
					ViewID:   view.ID,
					ServerTS: time.Now().UnixMilli(),
					Data:     monitor.Render(s, h.loc),
				}
				if err := WriteSSE(w, ev); err != nil {
					return
				}
				flusher.Flush()
			case <-ticker.C:
				ping := StreamEvent{
					Event:    "ping",
					ViewID:   view.ID,
					ServerTS: time.Now().UnixMilli(),
					Data:     map[string]any{"ts": time.Now().UnixMilli()},
				}
				if err := WriteSSE(w, ping); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}

func (h *MonitorHandlers) RefreshBalance() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, _ := CallerFromContext(r.Context())
		view, ok := h.registry.Get(chi.URLParam(r, "viewId"))
		if !ok || view.Owner != caller.UserID {
			WriteHTTPError(w, http.StatusNotFound, "view_not_found")
			return
		}
		view.Monitor.RefreshBalance()
		writeJSON(w, http.StatusAccepted, map[string]any{"ok": true})
	}
}
