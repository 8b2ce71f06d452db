package internal_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ryanmoran/mt32pi-updater/internal"
)

// TestConfigErrorCases tests the ways a settings file or release path can be wrong
func TestConfigErrorCases(t *testing.T) {
	t.Run("LoadConfig", func(t *testing.T) {
		t.Run("missing explicit file", func(t *testing.T) {
			_, err := internal.LoadConfig(filepath.Join(t.TempDir(), "missing.toml"), nil)
			require.ErrorContains(t, err, "failed to read settings file")
		})

		t.Run("malformed TOML", func(t *testing.T) {
			_, err := internal.LoadConfig(writeSettings(t, "host = "), nil)
			require.ErrorContains(t, err, "failed to parse settings file")
		})

		t.Run("wrong value type", func(t *testing.T) {
			_, err := internal.LoadConfig(writeSettings(t, `max_retries = "five"`), nil)
			require.ErrorContains(t, err, "failed to parse settings file")
		})

		t.Run("unknown setting", func(t *testing.T) {
			_, err := internal.LoadConfig(writeSettings(t, `hots = "mt32-pi"`), nil)
			require.ErrorContains(t, err, `unknown setting "hots"`)
		})

		t.Run("invalid retry delay", func(t *testing.T) {
			_, err := internal.LoadConfig(writeSettings(t, `retry_delay = "soon"`), nil)
			require.ErrorContains(t, err, "invalid retry_delay")
		})

		t.Run("settings path is a directory", func(t *testing.T) {
			_, err := internal.LoadConfig(t.TempDir(), nil)
			require.Error(t, err)
		})
	})

	t.Run("Validate", func(t *testing.T) {
		t.Run("release path does not exist", func(t *testing.T) {
			config := internal.DefaultConfig()
			config.ReleaseDir = filepath.Join(t.TempDir(), "missing")
			require.ErrorContains(t, config.Validate(), "failed to open release directory")
		})

		t.Run("release path is a file", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "mt32-pi-v0.13.0.zip")
			require.NoError(t, os.WriteFile(path, []byte("PK"), 0644))

			config := internal.DefaultConfig()
			config.ReleaseDir = path
			require.ErrorContains(t, config.Validate(), "is not a directory")
		})

		t.Run("negative retry delay", func(t *testing.T) {
			config := internal.DefaultConfig()
			config.ReleaseDir = t.TempDir()
			config.RetryDelay = -1
			require.ErrorContains(t, config.Validate(), "retry_delay must not be negative")
		})
	})
}
