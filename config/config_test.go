package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"xdao.co/keysig/storage"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, defaultTarget, cfg.Node.Target)
	require.Equal(t, defaultDialTimeout, cfg.Node.DialTimeout)
	require.Equal(t, BackendLocalFS, cfg.Store.Backend)
	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, defaultListen, cfg.Lookupd.Listen)
	require.Empty(t, cfg.Store.Mirrors)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keysig.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
node:
  target: node0.example:50211
  timeout: 3s
store:
  backend: badger
  dir: /var/lib/keysig
  mirrors: [/mnt/a, /mnt/b]
lookupd:
  cost: 25
  max_in_flight: 4
`), 0o600))
	t.Setenv("KEYSIG_LOG_LEVEL", "debug")
	t.Setenv("KEYSIG_NODE_TARGET", "node1.example:50211")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "node1.example:50211", cfg.Node.Target)
	require.Equal(t, 3*time.Second, cfg.Node.Timeout)
	require.Equal(t, BackendBadger, cfg.Store.Backend)
	require.Equal(t, []string{"/mnt/a", "/mnt/b"}, cfg.Store.Mirrors)
	require.Equal(t, uint64(25), cfg.Lookupd.Cost)
	require.Equal(t, 4, cfg.Lookupd.MaxInFlight)
	require.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return *cfg
	}

	cases := map[string]func(*Config){
		"backend":   func(c *Config) { c.Store.Backend = "s3" },
		"dir":       func(c *Config) { c.Store.Dir = "" },
		"format":    func(c *Config) { c.Log.Format = "xml" },
		"timeout":   func(c *Config) { c.Node.Timeout = -time.Second },
		"msg bytes": func(c *Config) { c.Node.MaxMsgBytes = -1 },
		"in flight": func(c *Config) { c.Lookupd.MaxInFlight = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := base()
			mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	log, err := LogConfig{Level: "warn", Format: "json"}.Logger(&buf)
	require.NoError(t, err)
	log.Info().Msg("hidden")
	log.Warn().Msg("shown")
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), "shown")
}

func TestStoreOpen(t *testing.T) {
	for _, backend := range []string{BackendLocalFS, BackendBadger, BackendReplicated} {
		t.Run(backend, func(t *testing.T) {
			cas, closeFn, err := StoreConfig{Backend: backend, Dir: t.TempDir()}.Open()
			require.NoError(t, err)
			defer func() { require.NoError(t, closeFn()) }()

			id, err := cas.Put([]byte("threshold 2 of 3"))
			require.NoError(t, err)
			got, err := cas.Get(id)
			require.NoError(t, err)
			require.Equal(t, []byte("threshold 2 of 3"), got)
		})
	}
}

func TestStoreOpenMirrors(t *testing.T) {
	mirrorDir := t.TempDir()
	seeded, closeMirror, err := StoreConfig{Backend: BackendLocalFS, Dir: mirrorDir}.Open()
	require.NoError(t, err)
	id, err := seeded.Put([]byte("only in the mirror"))
	require.NoError(t, err)
	require.NoError(t, closeMirror())

	cas, closeFn, err := StoreConfig{
		Backend: BackendLocalFS,
		Dir:     t.TempDir(),
		Mirrors: []string{mirrorDir},
		Hydrate: true,
	}.Open()
	require.NoError(t, err)
	defer func() { require.NoError(t, closeFn()) }()

	_, ok := cas.(storage.MultiCAS)
	require.True(t, ok)
	got, err := cas.Get(id)
	require.NoError(t, err)
	require.Equal(t, []byte("only in the mirror"), got)

	primary := cas.(storage.MultiCAS).Primary
	require.True(t, primary.Has(id))
}

func TestStoreOpenUnknownBackend(t *testing.T) {
	_, _, err := StoreConfig{Backend: "nope", Dir: t.TempDir()}.Open()
	require.Error(t, err)
}
