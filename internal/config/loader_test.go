package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleHCL = `
schema_version = "1.0"
log_level      = "debug"

allowlist {
  custom          = ["203.0.113.7", "198.51.100.0/28"]
  include_private = true

  remote {
    enabled = true
    url     = "https://example.net/crawler-ips.txt"
    timeout = 15
  }
}

firewall {
  table      = "palisade"
  backup_dir = "/tmp/palisade-backups"
}

monitor {
  log_sources = ["/var/log/kern.log"]
}
`

func TestLoadHCLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "palisade.hcl")
	require.NoError(t, os.WriteFile(path, []byte(sampleHCL), 0644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []string{"203.0.113.7", "198.51.100.0/28"}, cfg.AllowList.Custom)
	assert.True(t, cfg.AllowList.IncludePrivate)
	assert.True(t, cfg.AllowList.Remote.Enabled)
	assert.Equal(t, 15, cfg.AllowList.Remote.Timeout)
	assert.Equal(t, "/tmp/palisade-backups", cfg.Firewall.BackupDir)

	// Defaults fill unset fields
	assert.Equal(t, DefaultLogPrefix, cfg.Firewall.LogPrefix)
	assert.Equal(t, 100, cfg.Monitor.StatusEvery)
}

func TestLoadJSONFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "palisade.json")
	data := `{"schema_version":"1.0","allowlist":{"custom":["192.0.2.1"]}}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"192.0.2.1"}, cfg.AllowList.Custom)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile("/nonexistent/palisade.hcl")
	assert.Error(t, err)
}

func TestLoadFileInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "palisade.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`firewall { table = "bad table" }`), 0644))

	_, err := LoadFile(path)
	assert.Error(t, err)
}

func TestLoadHCLBadSyntax(t *testing.T) {
	_, err := LoadHCL([]byte(`allowlist {`), "broken.hcl")
	assert.Error(t, err)
}
