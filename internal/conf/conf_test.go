package conf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:5030", cfg.HTTPAddr)
	assert.Equal(t, "America/New_York", cfg.Timezone)
	assert.Equal(t, 5, cfg.Recalc.Workers)
	assert.Equal(t, 1700, cfg.Recalc.NotifyMaxLength)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", loc.String())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("http_addr: 0.0.0.0:8080\ndb_path: /tmp/stats.db\nrecalc:\n  workers: 2\n")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTPAddr)
	assert.Equal(t, "/tmp/stats.db", cfg.DBPath)
	assert.Equal(t, 2, cfg.Recalc.Workers)
	assert.Equal(t, "America/New_York", cfg.Timezone)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestBadTimezone(t *testing.T) {
	cfg := Default()
	cfg.Timezone = "Mars/Olympus"
	_, err := cfg.Location()
	require.Error(t, err)
}
