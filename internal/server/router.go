// Package server assembles the HTTP surface: REST routes, the realtime
// endpoint and operational endpoints.
package server

import (
	"log/slog"
	"net/http"

	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/gorilla/mux"

	"linkcamp/internal/auth"
	"linkcamp/internal/config"
	"linkcamp/internal/httpapi"
	"linkcamp/internal/media"
	"linkcamp/internal/metrics"
	"linkcamp/internal/ops"
	"linkcamp/internal/realtime"
)

// RouteRegistrar is implemented by every authenticated REST handler.
type RouteRegistrar interface {
	Register(r *mux.Router, a *auth.Authenticator)
}

type Routes []RouteRegistrar

// RouterDeps gathers what NewRouter mounts. Realtime and Sentry are nil
// when disabled.
type RouterDeps struct {
	Config   *config.Config
	Log      *slog.Logger
	Metrics  *metrics.Metrics
	Auth     *auth.Authenticator
	Health   *ops.HealthServer
	Realtime *realtime.Handler
	Sentry   *sentryhttp.Handler
	Media    *media.Handler
	Routes   Routes
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func NewRouter(d RouterDeps) http.Handler {
	r := mux.NewRouter()
	r.Use(httpapi.Recover, httpapi.Metrics(d.Metrics))

	r.HandleFunc("/health", func(w http.ResponseWriter, req *http.Request) {
		if d.Health == nil {
			httpapi.WriteJSON(w, http.StatusOK, healthResponse{Status: "ok"})
			return
		}
		ok, checks := d.Health.Probe(req.Context())
		if !ok {
			httpapi.WriteJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable", Checks: checks})
			return
		}
		httpapi.WriteJSON(w, http.StatusOK, healthResponse{Status: "ok", Checks: checks})
	}).Methods(http.MethodGet)

	if d.Config.Server.MetricsEnabled && d.Metrics != nil {
		r.Handle("/metrics", d.Metrics.Handler()).Methods(http.MethodGet)
	}
	if d.Realtime != nil {
		r.HandleFunc("/ws", d.Realtime.ServeWS)
	}

	api := r.NewRoute().Subrouter()
	if d.Sentry != nil {
		api.Use(d.Sentry.Handle)
	}
	for _, routes := range d.Routes {
		routes.Register(api, d.Auth)
	}
	if d.Media != nil {
		d.Media.Register(api)
	}

	api.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		httpapi.WriteMessage(w, http.StatusNotFound, "Not found")
	})

	// CORS and request logging sit outside mux so preflights and unmatched
	// paths pass through them.
	return httpapi.CORS(d.Config.Server.AllowedOrigins)(
		httpapi.RequestLogger(d.Log)(r),
	)
}
