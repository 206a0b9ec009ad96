// Package httpapi assembles the HTTP surface: middleware, domain handlers and
// the health, readiness and metrics endpoints.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"pwd-access/internal/common/httputil"
	"pwd-access/internal/common/logger"
	"pwd-access/internal/common/observability"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registrar is implemented by every domain handler.
type Registrar interface {
	Register(r chi.Router)
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Resolver      ActorResolver
	Guard         LoginGuard
	MaxFailures   int
	WindowSeconds int
	Observability *observability.Observability
	Checks        map[string]Pinger
	Version       string
}

func NewRouter(opts Options, log logger.Logger, handlers ...Registrar) http.Handler {
	log = logger.Component(log, "http")
	if opts.Resolver == nil {
		opts.Resolver = HeaderResolver{}
	}

	r := chi.NewRouter()
	r.Use(RequestMeta)
	r.Use(Recover(log))
	r.Use(Instrument(opts.Observability, log))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": opts.Version})
	})
	r.Get("/ready", readyHandler(opts.Checks))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(Authenticate(opts.Resolver, opts.Guard, opts.MaxFailures, opts.WindowSeconds, log))
		for _, h := range handlers {
			h.Register(r)
		}
	})
	return r
}

func readyHandler(checks map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, c := range checks {
			if err := c.Ping(ctx); err != nil {
				results[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}
		httputil.WriteJSON(w, status, map[string]interface{}{"checks": results})
	}
}
