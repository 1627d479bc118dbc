package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func timeoutCh() <-chan time.Time {
	return time.After(2 * time.Second)
}

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "pgshim.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
auth:
  credentials:
    alice: s3cret
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:5432", cfg.Listen.Address)
	require.Equal(t, "db", cfg.Database)
}

func TestLoadSubstitutesEnvVars(t *testing.T) {
	t.Setenv("PGSHIM_PASSWORD", "from-env")
	path := writeConfig(t, `
auth:
  credentials:
    alice: ${PGSHIM_PASSWORD}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.Auth.Credentials["alice"])
}

func TestLoadRejectsMismatchedRowWidth(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
tables:
  users:
    columns:
      - name: id
        type: int8
    rows:
      - [1, "extra"]
`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsTableWithNoColumns(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
tables:
  users:
    columns: []
`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
database: first
auth:
  credentials:
    alice: s3cret
`)

	reloaded := make(chan *Config, 1)
	w, err := NewWatcher(path, func(cfg *Config) { reloaded <- cfg }, nil)
	require.NoError(t, err)
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte(`
database: second
auth:
  credentials:
    alice: s3cret
`), 0o644))

	select {
	case cfg := <-reloaded:
		require.Equal(t, "second", cfg.Database)
	case <-timeoutCh():
		t.Fatal("timed out waiting for config reload")
	}
}
