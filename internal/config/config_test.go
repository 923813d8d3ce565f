package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("GEMA_JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTPAddress())
	require.Equal(t, "secret", cfg.StudentSessionSecret)
	require.Equal(t, 12*time.Hour, cfg.StudentSessionTTL)
	require.Equal(t, 5*time.Minute, cfg.StatisticsCacheTTL)
	require.Equal(t, 10*time.Minute, cfg.ExpirySweepInterval)
	require.Equal(t, "gema", cfg.RealtimeChannel)
	require.Equal(t, 20, cfg.PublicFormRateLimit)
	require.Equal(t, 20, cfg.DatabaseMaxOpenConns)
	require.Equal(t, 30*time.Minute, cfg.DatabaseConnMaxLifetime)
}

func TestLoadReadsOverrides(t *testing.T) {
	t.Setenv("GEMA_JWT_SECRET", "secret")
	t.Setenv("GEMA_STUDENT_SESSION_SECRET", "student-secret")
	t.Setenv("GEMA_STATISTICS_CACHE_TTL", "30s")
	t.Setenv("GEMA_SURVEY_EXPIRY_SWEEP_INTERVAL", "1m")
	t.Setenv("GEMA_APP_PORT", ":9090")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.HTTPAddress())
	require.Equal(t, "student-secret", cfg.StudentSessionSecret)
	require.Equal(t, 30*time.Second, cfg.StatisticsCacheTTL)
	require.Equal(t, time.Minute, cfg.ExpirySweepInterval)
}

func TestLoadRejectsMissingSecret(t *testing.T) {
	t.Setenv("GEMA_JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsInvalidDuration(t *testing.T) {
	t.Setenv("GEMA_JWT_SECRET", "secret")
	t.Setenv("GEMA_STATISTICS_CACHE_TTL", "soon")

	_, err := Load()
	require.ErrorContains(t, err, "statistics.cache_ttl")
}
