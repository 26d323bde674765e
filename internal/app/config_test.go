package app

import (
	"testing"

	"github.com/stretchr/testify/require"

	_ "github.com/madaris-app/madaris/internal/testing/guard"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("MADARIS_SESSION_SECRET", "test-session-secret")
	t.Setenv("MADARIS_CSRF_SECRET", "test-csrf-secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.AppAddr)
	require.Equal(t, "development", cfg.AppEnv)
	require.Equal(t, "SAR", cfg.DefaultCurrency)
	require.Equal(t, "/files", cfg.FilesBaseURL)
	require.False(t, cfg.IsProduction())
}

func TestLoadConfigRequiresSecrets(t *testing.T) {
	t.Setenv("MADARIS_SESSION_SECRET", "")
	t.Setenv("MADARIS_CSRF_SECRET", "")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestInTestMode(t *testing.T) {
	RefreshTestMode()
	require.True(t, InTestMode(), "guard import sets the flag")
}
