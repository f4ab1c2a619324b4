package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "127.0.0.1", cfg.Server.Address)
	assert.Equal(t, 80, cfg.Server.Port)
	assert.Equal(t, 500*time.Millisecond, cfg.Server.Interval)
	assert.Equal(t, "pages/dashboard.html", cfg.Site.DefaultPage)
	assert.False(t, cfg.Console.DisconnectOnError)
}

func TestLoad(t *testing.T) {
	t.Run("empty path returns defaults", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "wsconsole.yaml")
		data := []byte(`
log:
  level: debug
  format: json
console:
  address: ws://localhost:8080
  auto_scroll: true
  handshake_timeout: 5s
site:
  base_url: http://localhost:8080/
  links:
    - title: Dashboard
      file: pages/dashboard.html
      script: pages/js/dashboard.js
server:
  port: 8080
  interval: 1s
`)
		require.NoError(t, os.WriteFile(path, data, 0o600))

		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "debug", cfg.Log.Level)
		assert.Equal(t, "json", cfg.Log.Format)
		assert.Equal(t, "ws://localhost:8080", cfg.Console.Address)
		assert.True(t, cfg.Console.AutoScroll)
		assert.Equal(t, 5*time.Second, cfg.Console.HandshakeTimeout)
		assert.Equal(t, "http://localhost:8080/", cfg.Site.BaseURL)
		require.Len(t, cfg.Site.Links, 1)
		assert.Equal(t, "pages/js/dashboard.js", cfg.Site.Links[0].Script)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, time.Second, cfg.Server.Interval)

		// untouched fields keep their defaults
		assert.Equal(t, "127.0.0.1", cfg.Server.Address)
		assert.Equal(t, "pages/dashboard.html", cfg.Site.DefaultPage)
	})
}

func TestParse(t *testing.T) {
	t.Run("empty document", func(t *testing.T) {
		cfg, err := Parse(nil)
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("unknown field", func(t *testing.T) {
		_, err := Parse([]byte("consol:\n  address: x\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "consol")
	})

	t.Run("invalid values are all reported", func(t *testing.T) {
		_, err := Parse([]byte(`
log:
  format: xml
site:
  base_url: ftp://example.com
server:
  port: 70000
  interval: 0s
`))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalid)
		assert.Contains(t, err.Error(), "log.format")
		assert.Contains(t, err.Error(), "site.base_url")
		assert.Contains(t, err.Error(), "server.port")
		assert.Contains(t, err.Error(), "server.interval")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "no site source",
			mutate:  func(c *Config) { c.Site.Root = "" },
			wantErr: "site.base_url or site.root",
		},
		{
			name:    "link without file",
			mutate:  func(c *Config) { c.Site.Links = []LinkConfig{{Title: "x"}} },
			wantErr: "site.links[0].file",
		},
		{
			name:    "negative handshake timeout",
			mutate:  func(c *Config) { c.Console.HandshakeTimeout = -time.Second },
			wantErr: "handshake_timeout",
		},
		{
			name:    "negative burst",
			mutate:  func(c *Config) { c.Server.Burst = -1 },
			wantErr: "rate limit",
		},
		{
			name:    "missing default page",
			mutate:  func(c *Config) { c.Site.DefaultPage = "" },
			wantErr: "default_page",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadExample(t *testing.T) {
	cfg, err := Load("../wsconsole.example.yaml")
	require.NoError(t, err)

	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "ws://127.0.0.1:8080/ws", cfg.Console.Address)
	assert.Equal(t, 5*time.Second, cfg.Console.HandshakeTimeout)
	assert.Equal(t, "http://127.0.0.1:8080/", cfg.Site.BaseURL)
	assert.Equal(t, 8080, cfg.Server.Port)
}
