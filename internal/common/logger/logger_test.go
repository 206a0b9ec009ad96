package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestBuild_LevelAndFallback(t *testing.T) {
	l := Build(Settings{Level: "debug", Format: "json", Service: "pwd-access", Environment: "test"})
	require.NotNil(t, l)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	l = Build(Settings{Level: "chatty", Format: "console"})
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
}

func TestComponent_TagsEntries(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := Component(NewZapAdapter(zap.New(core)), "applications")

	log.Warn("notification failed", map[string]interface{}{
		"applicationId": int64(7),
		"error":         errors.New("pq: timeout"),
	})

	require.Equal(t, 1, logs.Len())
	ctx := logs.All()[0].ContextMap()
	assert.Equal(t, "applications", ctx["component"])
	assert.Equal(t, int64(7), ctx["applicationId"])
	assert.Equal(t, "pq: timeout", ctx["error"])
}

func TestComponent_NilLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		Component(nil, "renewals").Info("scan", nil)
	})
}
