package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "memory", c.Storage.Backend)
	assert.Equal(t, "main", c.Chain.Name)
	assert.Equal(t, 3000, c.API.Port)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	raw := []byte(`
storage:
  backend: bolt
  path: /tmp/chain.db
chain:
  name: testnet
  autocommit: 5s
api:
  port: 8080
`)
	require.NoError(t, os.WriteFile(path, raw, 0600))
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "bolt", c.Storage.Backend)
	assert.Equal(t, "/tmp/chain.db", c.Storage.Path)
	assert.Equal(t, "testnet", c.Chain.Name)
	assert.Equal(t, Duration(5*time.Second), c.Chain.Autocommit)
	assert.Equal(t, 8080, c.API.Port)
	// untouched sections keep their defaults
	assert.Equal(t, "127.0.0.1", c.API.Interface)
}

func TestLoadMissingFile(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), c)
}

func TestLoadBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("{null"), 0600))
	_, err := Load(path)
	assert.Error(t, err)
}
