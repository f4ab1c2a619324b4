// Command wsconsole is a terminal WebSocket console. It loads the pages
// of a console website, over HTTP or from a local directory, and shows
// them with a sidebar and the connection console.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vitalvas/wsconsole/config"
	"github.com/vitalvas/wsconsole/console"
	"github.com/vitalvas/wsconsole/fragment"
	"github.com/vitalvas/wsconsole/logging"
	"github.com/vitalvas/wsconsole/metrics"
	"github.com/vitalvas/wsconsole/tui"
)

const fetchTimeout = 10 * time.Second

type flags struct {
	configFile        string
	site              string
	root              string
	index             string
	page              string
	address           string
	autoScroll        bool
	disconnectOnError bool
	handshakeTimeout  time.Duration
	logLevel          string
	logFormat         string
	logFile           string
	metricsAddr       string
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "wsconsole:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, f, err := parseConfig(args)
	if err != nil {
		return err
	}

	logger, closeLog, err := openLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	if f.metricsAddr != "" {
		srv := &http.Server{
			Addr:              f.metricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: fetchTimeout,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics listener failed", "error", err)
			}
		}()
		defer srv.Close()
	}

	fetcher, err := newFetcher(cfg.Site)
	if err != nil {
		return err
	}

	links := loadLinks(ctx, cfg.Site, fetcher, logger)

	policy := console.ErrorLogOnly
	if cfg.Console.DisconnectOnError {
		policy = console.ErrorDisconnects
	}

	app, err := tui.New(tui.Options{
		Links:       links,
		Fetcher:     fetcher,
		DefaultPage: cfg.Site.DefaultPage,
		Address:     cfg.Console.Address,
		AutoScroll:  cfg.Console.AutoScroll,
		ErrorPolicy: policy,
		Dialer: &console.WebSocketDialer{
			HandshakeTimeout: cfg.Console.HandshakeTimeout,
		},
		Logger:         logger,
		ConsoleMetrics: metrics.NewConsole(reg),
		LoaderMetrics:  metrics.NewLoader(reg),
	})
	if err != nil {
		return err
	}

	logger.Info("starting console", "site", siteSource(cfg.Site), "links", len(links))

	return app.Run(ctx)
}

// parseConfig reads the flags, from the command line or WSCONSOLE_*
// variables, and applies the ones that were set over the config file.
func parseConfig(args []string) (config.Config, flags, error) {
	var f flags

	fs := flag.NewFlagSet("wsconsole", flag.ContinueOnError)
	fs.StringVar(&f.configFile, "config", "", "YAML configuration file")
	fs.StringVar(&f.site, "site", "", "base URL of the console website")
	fs.StringVar(&f.root, "root", "", "local website directory, used when -site is empty")
	fs.StringVar(&f.index, "index", "", "page holding the sidebar links")
	fs.StringVar(&f.page, "page", "", "fragment loaded on start")
	fs.StringVar(&f.address, "address", "", "WebSocket address pre-filled in the console")
	fs.BoolVar(&f.autoScroll, "auto-scroll", false, "scroll the log on every received frame")
	fs.BoolVar(&f.disconnectOnError, "disconnect-on-error", false, "close the connection on any error")
	fs.DurationVar(&f.handshakeTimeout, "handshake-timeout", 0, "opening handshake timeout, 0 for none")
	fs.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error")
	fs.StringVar(&f.logFormat, "log-format", "", "log format: text or json")
	fs.StringVar(&f.logFile, "log-file", "", "log file; logs are discarded when empty")
	fs.StringVar(&f.metricsAddr, "metrics", "", "address serving Prometheus metrics, disabled when empty")

	if err := ff.Parse(fs, args, ff.WithEnvVarPrefix("WSCONSOLE")); err != nil {
		return config.Config{}, f, err
	}

	cfg, err := config.Load(f.configFile)
	if err != nil {
		return config.Config{}, f, err
	}

	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "site":
			cfg.Site.BaseURL = f.site
		case "root":
			cfg.Site.Root = f.root
		case "index":
			cfg.Site.Index = f.index
		case "page":
			cfg.Site.DefaultPage = f.page
		case "address":
			cfg.Console.Address = f.address
		case "auto-scroll":
			cfg.Console.AutoScroll = f.autoScroll
		case "disconnect-on-error":
			cfg.Console.DisconnectOnError = f.disconnectOnError
		case "handshake-timeout":
			cfg.Console.HandshakeTimeout = f.handshakeTimeout
		case "log-level":
			cfg.Log.Level = f.logLevel
		case "log-format":
			cfg.Log.Format = f.logFormat
		case "log-file":
			cfg.Log.File = f.logFile
		}
	})

	if err := cfg.Validate(); err != nil {
		return config.Config{}, f, err
	}

	return cfg, f, nil
}

// openLogger writes to the configured file. Without one, records are
// discarded since the terminal belongs to the UI.
func openLogger(cfg config.LogConfig) (*slog.Logger, func(), error) {
	if cfg.File == "" {
		return logging.Discard(), func() {}, nil
	}

	file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	return logging.New(cfg.Level, cfg.Format, file), func() { file.Close() }, nil
}

func newFetcher(cfg config.SiteConfig) (fragment.Fetcher, error) {
	if cfg.BaseURL != "" {
		return fragment.NewHTTPFetcher(cfg.BaseURL, &http.Client{Timeout: fetchTimeout})
	}

	return fragment.FSFetcher{FS: os.DirFS(cfg.Root)}, nil
}

// loadLinks returns the configured links, or the ones of the index page.
// A missing index leaves the sidebar empty.
func loadLinks(ctx context.Context, cfg config.SiteConfig, fetcher fragment.Fetcher, logger *slog.Logger) []fragment.Link {
	if len(cfg.Links) > 0 {
		links := make([]fragment.Link, 0, len(cfg.Links))
		for _, l := range cfg.Links {
			title := l.Title
			if title == "" {
				title = l.File
			}
			links = append(links, fragment.Link{Title: title, File: l.File, Script: l.Script})
		}
		return links
	}

	if cfg.Index == "" {
		return nil
	}

	markup, err := fetcher.Fetch(ctx, cfg.Index)
	if err != nil {
		logger.Warn("error loading index page", "path", cfg.Index, "error", err)
		return nil
	}

	links, err := fragment.ParseLinks(bytes.NewReader(markup))
	if err != nil {
		logger.Warn("error parsing index page", "path", cfg.Index, "error", err)
		return nil
	}

	return links
}

func siteSource(cfg config.SiteConfig) string {
	if cfg.BaseURL != "" {
		return cfg.BaseURL
	}
	return cfg.Root
}
