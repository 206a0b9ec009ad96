package database

import (
	"context"
	"testing"

	"pwd-access/internal/common/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "pwd:service:12", Key("service", "12"))
	assert.Equal(t, "pwd:lock:renewal-scan", Key("lock", "renewal-scan"))
}

func TestNewRedis(t *testing.T) {
	_, err := NewRedis(config.RedisConfig{})
	assert.Error(t, err)

	mr := miniredis.RunT(t)
	rc, err := NewRedis(config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	defer rc.Close()

	assert.NoError(t, rc.Ping(context.Background()))

	mr.Close()
	assert.Error(t, rc.Ping(context.Background()))
}
