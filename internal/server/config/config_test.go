package config

import (
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	assert.Equal(t, ":8080", cfg.EndpointAddr)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, TransportBoth, cfg.TokenTransport)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenValidityDuration)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTokenValidityDuration)
	assert.Empty(t, cfg.SecretKey, "no signing secret may be baked in")
	assert.False(t, cfg.IsProduction())
}

func TestEnvOverlay(t *testing.T) {
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("ENV", "production")
	t.Setenv("ACCESS_TOKEN_TTL", "5m")
	t.Setenv("TOKEN_TRANSPORT", TransportCookie)

	cfg := &Config{}
	cfg.LoadDefaults()
	require.NoError(t, env.Parse(cfg))

	assert.Equal(t, "from-env", cfg.SecretKey)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 5*time.Minute, cfg.AccessTokenValidityDuration)
	assert.Equal(t, TransportCookie, cfg.TokenTransport)
}

func TestParseFlagArgs(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	parseFlagArgs(cfg, []string{"-a", ":9090", "-s", "flag-secret", "-t", "30", "-e", "production"})

	assert.Equal(t, ":9090", cfg.EndpointAddr)
	assert.Equal(t, "flag-secret", cfg.SecretKey)
	assert.Equal(t, 30*time.Minute, cfg.AccessTokenValidityDuration)
	assert.True(t, cfg.IsProduction())
}

func TestParseFlagArgs_KeepsDefaultsWhenAbsent(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	parseFlagArgs(cfg, nil)

	assert.Equal(t, 15*time.Minute, cfg.AccessTokenValidityDuration)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTokenValidityDuration)
}
