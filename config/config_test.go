package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "cluster.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadValid(t *testing.T) {
	path := writeTemp(t, `
self: 127.0.0.1:9001
addrs:
  - 127.0.0.1:9001
  - 127.0.0.1:9002
  - 127.0.0.1:9003
timeouts:
  heartbeat: 100ms
`)

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9001", c.Self)
	assert.Len(t, c.Addrs, 3)
	assert.Equal(t, 100_000_000, int(c.Timeouts.Heartbeat))
}

func TestLoadSelfNotInAddrs(t *testing.T) {
	path := writeTemp(t, `
self: 127.0.0.1:9999
addrs:
  - 127.0.0.1:9001
  - 127.0.0.1:9002
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidateDuplicateSelf(t *testing.T) {
	c := &Cluster{Self: "a", Addrs: []string{"a", "a", "b"}}
	assert.Error(t, c.Validate())
}
