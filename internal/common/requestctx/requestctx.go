// Package requestctx carries per-request metadata through context.Context.
package requestctx

import (
	"context"

	"pwd-access/internal/models"

	"github.com/google/uuid"
)

type ctxKey int

const (
	metaKey ctxKey = iota
	actorKey
)

// Meta is captured once by the HTTP layer and read by audit logging.
type Meta struct {
	RequestID string
	ClientIP  string
	UserAgent string
}

func WithMeta(ctx context.Context, m Meta) context.Context {
	if m.RequestID == "" {
		m.RequestID = uuid.NewString()
	}
	return context.WithValue(ctx, metaKey, m)
}

// MetaFrom returns the request metadata, or a zero Meta outside a request.
func MetaFrom(ctx context.Context) Meta {
	m, _ := ctx.Value(metaKey).(Meta)
	return m
}

func WithActor(ctx context.Context, a models.Actor) context.Context {
	return context.WithValue(ctx, actorKey, a)
}

func ActorFrom(ctx context.Context) (models.Actor, bool) {
	a, ok := ctx.Value(actorKey).(models.Actor)
	return a, ok
}
