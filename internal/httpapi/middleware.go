package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	apperrors "pwd-access/internal/common/errors"
	"pwd-access/internal/common/logger"
	"pwd-access/internal/common/observability"
	"pwd-access/internal/common/requestctx"
	"pwd-access/internal/models"

	"github.com/go-chi/chi/v5"
)

const (
	HeaderRequestID = "X-Request-ID"
	HeaderUserID    = "X-User-ID"
	HeaderRole      = "X-User-Role"
	HeaderSector    = "X-User-Sector"
	HeaderCitizenID = "X-Citizen-ID"
)

// ActorResolver turns an authenticated request into an Actor. ok is false
// when the request carries no identity at all.
type ActorResolver interface {
	Resolve(r *http.Request) (actor models.Actor, ok bool, err error)
}

// HeaderResolver trusts identity headers set by the session gateway in front
// of this service.
type HeaderResolver struct{}

func (HeaderResolver) Resolve(r *http.Request) (models.Actor, bool, error) {
	rawID := r.Header.Get(HeaderUserID)
	if rawID == "" {
		return models.Actor{}, false, nil
	}
	userID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || userID <= 0 {
		return models.Actor{}, true, apperrors.NewUnauthorizedError("malformed user id")
	}

	actor := models.Actor{UserID: userID}
	switch strings.ToLower(r.Header.Get(HeaderRole)) {
	case "super_admin", "admin":
		actor.Role = models.SuperAdmin{}
	case "sector_admin", "sub_admin":
		sector := strings.ToLower(r.Header.Get(HeaderSector))
		if !models.ValidSector(sector) {
			return models.Actor{}, true, apperrors.NewUnauthorizedError("sector admin without a valid sector")
		}
		actor.Role = models.SectorAdmin{Sector: sector}
	case "citizen":
		citizenID, err := strconv.ParseInt(r.Header.Get(HeaderCitizenID), 10, 64)
		if err != nil || citizenID <= 0 {
			return models.Actor{}, true, apperrors.NewUnauthorizedError("citizen without a citizen record")
		}
		actor.Role = models.CitizenRole{CitizenID: citizenID}
	default:
		return models.Actor{}, true, apperrors.NewUnauthorizedError("unknown role")
	}
	return actor, true, nil
}

// LoginGuard tracks rejected identities per client address.
type LoginGuard interface {
	RecordFailedLogin(ctx context.Context, username string)
	CountRecentFailedLogins(ctx context.Context, identifier string, windowSeconds int) (int, error)
}

// RequestMeta stores request id, client IP and user agent for audit logging.
func RequestMeta(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		meta := requestctx.Meta{
			RequestID: r.Header.Get(HeaderRequestID),
			ClientIP:  clientIP(r),
			UserAgent: r.UserAgent(),
		}
		ctx := requestctx.WithMeta(r.Context(), meta)
		w.Header().Set(HeaderRequestID, requestctx.MetaFrom(ctx).RequestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Authenticate resolves the actor. Requests without identity pass through
// and are rejected by handlers that need one. Failed resolutions are counted
// per client address; past maxFailures they are refused without being
// recorded again.
func Authenticate(resolver ActorResolver, guard LoginGuard, maxFailures, windowSeconds int, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			actor, ok, err := resolver.Resolve(r)
			if err != nil {
				if throttled(ctx, guard, maxFailures, windowSeconds, log) {
					apperrors.WriteError(w, apperrors.NewUnauthorizedError("too many failed attempts, try again later"), log)
					return
				}
				if guard != nil {
					guard.RecordFailedLogin(ctx, r.Header.Get(HeaderUserID))
				}
				apperrors.WriteError(w, err, log)
				return
			}
			if ok {
				ctx = requestctx.WithActor(ctx, actor)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func throttled(ctx context.Context, guard LoginGuard, maxFailures, windowSeconds int, log logger.Logger) bool {
	if guard == nil || maxFailures <= 0 {
		return false
	}
	n, err := guard.CountRecentFailedLogins(ctx, requestctx.MetaFrom(ctx).ClientIP, windowSeconds)
	if err != nil {
		log.Warn("failed login count unavailable", map[string]interface{}{"error": err})
		return false
	}
	return n >= maxFailures
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Instrument records each request against its chi route pattern.
func Instrument(obs *observability.Observability, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			elapsed := time.Since(start)
			obs.RecordRequest(r.Context(), route, rec.status, elapsed)
			log.Debug("request handled", map[string]interface{}{
				"method":    r.Method,
				"route":     route,
				"status":    rec.status,
				"duration":  elapsed.String(),
				"requestId": requestctx.MetaFrom(r.Context()).RequestID,
			})
		})
	}
}

// Recover turns a handler panic into a 500 envelope.
func Recover(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if p := recover(); p != nil {
					log.Error("panic in handler", map[string]interface{}{
						"panic":     p,
						"path":      r.URL.Path,
						"requestId": requestctx.MetaFrom(r.Context()).RequestID,
					})
					apperrors.WriteError(w, apperrors.NewSystemError("handler panic", nil), log)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if idx := strings.LastIndex(r.RemoteAddr, ":"); idx != -1 {
		return r.RemoteAddr[:idx]
	}
	return r.RemoteAddr
}
