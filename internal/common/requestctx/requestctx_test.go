package requestctx

import (
	"context"
	"testing"

	"pwd-access/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestMeta_GeneratesRequestID(t *testing.T) {
	ctx := WithMeta(context.Background(), Meta{ClientIP: "10.0.0.5"})

	m := MetaFrom(ctx)
	assert.Equal(t, "10.0.0.5", m.ClientIP)
	assert.NotEmpty(t, m.RequestID)
}

func TestMeta_ZeroOutsideRequest(t *testing.T) {
	assert.Equal(t, Meta{}, MetaFrom(context.Background()))
}

func TestActorRoundTrip(t *testing.T) {
	_, ok := ActorFrom(context.Background())
	assert.False(t, ok)

	ctx := WithActor(context.Background(), models.Actor{UserID: 9, Role: models.SuperAdmin{}})
	a, ok := ActorFrom(ctx)
	assert.True(t, ok)
	assert.Equal(t, int64(9), a.UserID)
}
