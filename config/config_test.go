package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	t.Setenv("SIGN", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, DriverSQLite, cfg.DBDriver)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 5, cfg.LoginRateLimit)
	assert.Equal(t, time.Minute, cfg.LoginRateWindow)
	assert.True(t, cfg.CookieSecure)

	assert.Error(t, cfg.ValidateServer(), "missing signing key must fail server validation")
}

func TestLoadDriverSpecificSettings(t *testing.T) {
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("DATABASE_URL", "")
	_, err := Load()
	assert.ErrorContains(t, err, "DATABASE_URL")

	t.Setenv("DATABASE_URL", "postgres://localhost/conference")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.DBDriver)

	t.Setenv("DB_DRIVER", "mongo")
	t.Setenv("MONGODB_CONNSTRING", "")
	_, err = Load()
	assert.ErrorContains(t, err, "MONGODB_CONNSTRING")

	t.Setenv("DB_DRIVER", "cassandra")
	_, err = Load()
	assert.ErrorContains(t, err, "unknown DB_DRIVER")
}

func TestValidateServer(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SIGN", "a-signing-key-that-is-long-enough")
	t.Setenv("JWT_TTL", "2h")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.ValidateServer())
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL)

	cfg.SigningKey = "short"
	assert.Error(t, cfg.ValidateServer())
}
