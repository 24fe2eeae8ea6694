package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, StorageMemory, cfg.Storage.Backend)
	require.Equal(t, CacheMemory, cfg.Cache.Backend)
	require.Equal(t, 10, cfg.Schedule.GridStartHour)
	require.Equal(t, "Oud", cfg.Schedule.DefaultSpecialization)
	require.Equal(t, 5*time.Minute, cfg.Cache.TTL)
}

func TestLoadFromEnvironment(t *testing.T) {
	chdirTemp(t)
	t.Setenv("STORAGE_BACKEND", "POSTGRES")
	t.Setenv("NOTIFY_ADMIN_EMAILS", "a@school.test, b@school.test ,")
	t.Setenv("SCHEDULE_GRID_START_HOUR", "9")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, StoragePostgres, cfg.Storage.Backend)
	require.Equal(t, []string{"a@school.test", "b@school.test"}, cfg.Notify.AdminEmails)
	require.Equal(t, 9, cfg.Schedule.GridStartHour)
}

func TestParseDurationFallback(t *testing.T) {
	require.Equal(t, time.Minute, parseDuration("nope", time.Minute))
	require.Equal(t, 2*time.Second, parseDuration("2s", time.Minute))
}

func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
