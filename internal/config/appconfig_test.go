package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadAppConfig(filepath.Join(t.TempDir(), "absent.yml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultAppConfig(), cfg)
}

func TestLoadAppConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	contents := `
server:
  listen: ":9090"
storage:
  db_path: /var/lib/speedcam/detections.db
  media_dir: /var/lib/speedcam/media
units: mph
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := LoadAppConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Listen)
	assert.Equal(t, "/var/lib/speedcam/detections.db", cfg.Storage.DBPath)
	assert.Equal(t, "mph", cfg.Units)
	// Derived paths fall back under the media dir.
	assert.Equal(t, "/var/lib/speedcam/media/processed", cfg.Storage.ProcessedDir)
	assert.Equal(t, "/var/lib/speedcam/media/csv", cfg.Storage.CSVDir)
}

func TestLoadAppConfigRejectsBadUnits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	contents := `
server:
  listen: ":8080"
storage:
  db_path: detections.db
  media_dir: media
units: parsecs
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	_, err := LoadAppConfig(path)
	assert.Error(t, err)
}

func TestLoadAppConfigRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(":\n  - ["), 0o644))

	_, err := LoadAppConfig(path)
	assert.Error(t, err)
}
