package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8081", cfg.HTTPAddr)
	assert.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, []byte("s3cret"), cfg.JWTSecret)
	assert.Equal(t, 24*time.Hour, cfg.ReservationTTL)
	assert.Equal(t, 30*time.Second, cfg.SweepInterval)
	assert.Equal(t, 4, cfg.ReservationWorkers)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("KAFKA_BROKERS", " k1:9092, ,k2:9092 ")
	t.Setenv("RESERVATION_TTL", "2h")
	t.Setenv("RESERVATION_WORKERS", "12")
	t.Setenv("ADMIN_EMAIL", "admin@urbandrip.pe")
	t.Setenv("ADMIN_PASSWORD", "changeme")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 2*time.Hour, cfg.ReservationTTL)
	assert.Equal(t, 12, cfg.ReservationWorkers)
	assert.Equal(t, "admin@urbandrip.pe", cfg.AdminEmail)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing secret", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")
		_, err := Load()
		assert.ErrorContains(t, err, "JWT_SECRET")
	})

	t.Run("bad duration", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "x")
		t.Setenv("SWEEP_INTERVAL", "soon")
		_, err := Load()
		assert.ErrorContains(t, err, "SWEEP_INTERVAL")
	})

	t.Run("admin half configured", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "x")
		t.Setenv("ADMIN_EMAIL", "admin@urbandrip.pe")
		_, err := Load()
		assert.Error(t, err)
	})
}
