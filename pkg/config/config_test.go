package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "DATA_PATH", "ADMIN_USERNAME", "LOG_DIR", "LOG_DEBUG", "DATABASE_URL"} {
		t.Setenv(k, "")
	}

	cfg := FromEnv()
	require.Equal(t, "8000", cfg.Port)
	require.Equal(t, "calendar.db", cfg.DataPath)
	require.Equal(t, "admin", cfg.AdminUsername)
	require.Equal(t, "logs", cfg.LogDir)
	require.False(t, cfg.LogDebug)
	require.Empty(t, cfg.DatabaseURL)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DATA_PATH", "/tmp/other.db")
	t.Setenv("LOG_DEBUG", "true")
	t.Setenv("API_MASTER_SECRET", "s3cret")

	cfg := FromEnv()
	require.Equal(t, "9090", cfg.Port)
	require.Equal(t, "/tmp/other.db", cfg.DataPath)
	require.True(t, cfg.LogDebug)
	require.Equal(t, "s3cret", cfg.APIMasterSecret)
}

func TestLoad_ReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SEED_FILE=seed.yaml\n"), 0o600))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	t.Setenv("SEED_FILE", "")
	require.NoError(t, os.Unsetenv("SEED_FILE"))

	cfg := Load()
	require.Equal(t, "seed.yaml", cfg.SeedFile)
}
