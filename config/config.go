// Package config loads the YAML configuration shared by the wsconsole
// and siteserver commands.
//
// A missing file is not an error: Load returns Default. Fields present in
// the file override the defaults; unknown fields are rejected.
//
//	log:
//	  level: debug
//	console:
//	  address: ws://127.0.0.1:8080/ws
//	  auto_scroll: true
//	site:
//	  base_url: http://127.0.0.1:8080/
//	server:
//	  port: 8080
//	  root: ./website
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration document.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	Console ConsoleConfig `yaml:"console"`
	Site    SiteConfig    `yaml:"site"`
	Server  ServerConfig  `yaml:"server"`
}

// LogConfig selects the slog level and output format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// ConsoleConfig configures the connection console.
type ConsoleConfig struct {
	// Address pre-fills the address field.
	Address string `yaml:"address"`

	// AutoScroll scrolls the log to its end after every received frame.
	AutoScroll bool `yaml:"auto_scroll"`

	// DisconnectOnError closes the connection on any error instead of
	// only logging it.
	DisconnectOnError bool `yaml:"disconnect_on_error"`

	// HandshakeTimeout bounds the opening handshake. Zero means no limit.
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
}

// LinkConfig is a sidebar entry declared in the configuration file.
type LinkConfig struct {
	Title  string `yaml:"title"`
	File   string `yaml:"file"`
	Script string `yaml:"script"`
}

// SiteConfig tells the fragment loader where pages come from.
type SiteConfig struct {
	// BaseURL is the site the fragments are fetched from. When empty,
	// Root is read from the local file system instead.
	BaseURL string `yaml:"base_url"`
	Root    string `yaml:"root"`

	// Index is the page whose .sidebar-link elements become the sidebar.
	Index string `yaml:"index"`

	// DefaultPage is loaded on start.
	DefaultPage string `yaml:"default_page"`

	// Links replaces the links parsed from Index when not empty.
	Links []LinkConfig `yaml:"links"`
}

// ServerConfig configures the site server.
type ServerConfig struct {
	Address  string        `yaml:"address"`
	Port     int           `yaml:"port"`
	Root     string        `yaml:"root"`
	Hostname string        `yaml:"hostname"`
	Interval time.Duration `yaml:"interval"`

	// MessagesPerSecond limits inbound frames per client. Zero disables
	// the limit.
	MessagesPerSecond float64 `yaml:"messages_per_second"`
	Burst             int     `yaml:"burst"`
}

// Default returns the configuration used when no file is given. The
// server listens on 127.0.0.1:80 and publishes a log line every 500ms.
func Default() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Console: ConsoleConfig{
			Address: "ws://127.0.0.1:80/ws",
		},
		Site: SiteConfig{
			Root:        "website",
			Index:       "index.html",
			DefaultPage: "pages/dashboard.html",
		},
		Server: ServerConfig{
			Address:           "127.0.0.1",
			Port:              80,
			Root:              "website",
			Interval:          500 * time.Millisecond,
			MessagesPerSecond: 20,
			Burst:             40,
		},
	}
}

// Load reads the file at path over Default. An empty path returns Default.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	return Parse(data)
}

// Parse decodes a YAML document over Default and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("config: invalid configuration")

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error

	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("%w: log.format must be text or json, got %q", ErrInvalid, c.Log.Format))
	}

	if c.Console.HandshakeTimeout < 0 {
		errs = append(errs, fmt.Errorf("%w: console.handshake_timeout must not be negative", ErrInvalid))
	}

	if c.Site.BaseURL != "" {
		u, err := url.Parse(c.Site.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("%w: site.base_url must be an absolute http(s) URL, got %q", ErrInvalid, c.Site.BaseURL))
		}
	} else if c.Site.Root == "" {
		errs = append(errs, fmt.Errorf("%w: one of site.base_url or site.root is required", ErrInvalid))
	}

	if c.Site.DefaultPage == "" {
		errs = append(errs, fmt.Errorf("%w: site.default_page is required", ErrInvalid))
	}

	for i, link := range c.Site.Links {
		if link.File == "" {
			errs = append(errs, fmt.Errorf("%w: site.links[%d].file is required", ErrInvalid, i))
		}
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("%w: server.port must be between 0 and 65535, got %d", ErrInvalid, c.Server.Port))
	}

	if c.Server.Interval <= 0 {
		errs = append(errs, fmt.Errorf("%w: server.interval must be positive", ErrInvalid))
	}

	if c.Server.MessagesPerSecond < 0 || c.Server.Burst < 0 {
		errs = append(errs, fmt.Errorf("%w: server rate limit must not be negative", ErrInvalid))
	}

	return errors.Join(errs...)
}
