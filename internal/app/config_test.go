package app

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, ":8090", cfg.ListenAddr)
	require.Equal(t, int64(60), cfg.RequestLimit)
	require.Equal(t, int64(100000), cfg.TokenLimit)
	require.True(t, cfg.VaultEnabled)
	require.NotEmpty(t, cfg.Rotation)
	require.Len(t, cfg.Providers, 5)
}

func TestValidateRejectsBadRateLimit(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	cfg.RateLimitRPS = 0
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsEmptyRotation(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	cfg.Rotation = nil
	require.Error(t, cfg.Validate())
}
