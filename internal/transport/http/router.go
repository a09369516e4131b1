package httptransport

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"

	appinstances "botdash/internal/app/instances"
	appusers "botdash/internal/app/users"
	"botdash/internal/monitor"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

type HealthFunc func(ctx context.Context) error

func NewRouter(svc *appinstances.Service, users *appusers.Service, registry *monitor.Registry, health HealthFunc) *chi.Mux {
	instanceHandlers := NewInstanceHandlers(svc)
	monitorHandlers := NewMonitorHandlers(svc, registry)
	var roles RoleResolver
	if users != nil {
		roles = users
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.With(APILogMiddleware()).Get("/healthz", Health(health))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(UserAuthMiddleware(roles))
		r.Use(APILogMiddleware())

		r.Get("/bots", instanceHandlers.Bots())
		r.Post("/bots", instanceHandlers.CreateBot())

		r.Get("/bot-instances", instanceHandlers.List())
		r.Post("/bot-instances", instanceHandlers.Create())
		r.Get("/bot-instances/{id}", instanceHandlers.Get())
		r.Patch("/bot-instances/{id}", instanceHandlers.Update())
		r.Delete("/bot-instances/{id}", instanceHandlers.Delete())

		r.Get("/bet-history/{instanceId}", instanceHandlers.BetHistory())

		r.Get("/monitor/{instanceId}/events", monitorHandlers.Events())
		r.Post("/monitor/views/{viewId}/refresh-balance", monitorHandlers.RefreshBalance())

		r.Route("/admin", func(r chi.Router) {
			r.Use(AdminOnlyMiddleware())
			r.Use(BodyCaptureMiddleware(4096))
			r.Get("/bot-instances", instanceHandlers.ListAll())

			if users != nil {
				userHandlers := NewUserHandlers(users)
				r.Get("/users", userHandlers.List())
				r.Post("/users", userHandlers.Create())
				r.Patch("/users/{id}", userHandlers.Update())
				r.Delete("/users/{id}", userHandlers.Delete())
			}
		})
	})
	return r
}

func Health(check HealthFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false, "db": "down"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "db": "up"})
	}
}

func LogRoutes(r chi.Router) {
	type routeDef struct {
		Method string
		Path   string
	}
	routes := make([]routeDef, 0, 32)
	err := chi.Walk(r, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, routeDef{Method: method, Path: route})
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("walk routes failed")
		return
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Registered routes (%d):\n", len(routes)))
	for _, rt := range routes {
		b.WriteString(fmt.Sprintf("  %-6s %s\n", rt.Method, rt.Path))
	}
	fmt.Print(b.String())
}
