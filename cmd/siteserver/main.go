// Command siteserver serves the console website and its WebSocket
// endpoint, and publishes a numbered console log line to every connected
// client on a fixed interval.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/vitalvas/wsconsole/config"
	"github.com/vitalvas/wsconsole/logging"
	"github.com/vitalvas/wsconsole/siteserver"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "siteserver:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := parseConfig(args)
	if err != nil {
		return err
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format, nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	srv := siteserver.New(siteserver.Config{
		Hostname:          cfg.Server.Hostname,
		MessagesPerSecond: cfg.Server.MessagesPerSecond,
		Burst:             cfg.Server.Burst,
		Logger:            logger,
		Registerer:        reg,
		Gatherer:          reg,
	})
	srv.Configure(cfg.Server.Address, cfg.Server.Port, cfg.Server.Root)

	if err := srv.Start(); err != nil {
		return err
	}

	logger.Info("initialized", "address", srv.Addr().String(), "interval", cfg.Server.Interval)

	pub := &siteserver.Publisher{
		Sink:     srv,
		Interval: cfg.Server.Interval,
		Logger:   logger,
	}
	_, runErr := pub.Run(ctx)
	if runErr != nil {
		if err := srv.LastError(); err != nil {
			runErr = fmt.Errorf("%w: %w", runErr, err)
		}
		logger.Error("web server stopped", "error", runErr)
	}

	logger.Info("closing")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return errors.Join(runErr, srv.Stop(shutdownCtx))
}

// parseConfig reads the flags, from the command line or SITESERVER_*
// variables, and applies the ones that were set over the config file.
func parseConfig(args []string) (config.Config, error) {
	var (
		configFile string
		server     config.ServerConfig
		logLevel   string
		logFormat  string
	)

	fs := flag.NewFlagSet("siteserver", flag.ContinueOnError)
	fs.StringVar(&configFile, "config", "", "YAML configuration file")
	fs.StringVar(&server.Address, "address", "", "address to listen on")
	fs.IntVar(&server.Port, "port", 0, "port to listen on")
	fs.StringVar(&server.Root, "root", "", "website root directory")
	fs.StringVar(&server.Hostname, "hostname", "", "hostname reported in X-Server-Hostname")
	fs.DurationVar(&server.Interval, "interval", 0, "console log interval")
	fs.Float64Var(&server.MessagesPerSecond, "rate", 0, "inbound frames per second per client, 0 for no limit")
	fs.IntVar(&server.Burst, "burst", 0, "inbound frame burst per client")
	fs.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	fs.StringVar(&logFormat, "log-format", "", "log format: text or json")

	if err := ff.Parse(fs, args, ff.WithEnvVarPrefix("SITESERVER")); err != nil {
		return config.Config{}, err
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		return config.Config{}, err
	}

	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "address":
			cfg.Server.Address = server.Address
		case "port":
			cfg.Server.Port = server.Port
		case "root":
			cfg.Server.Root = server.Root
		case "hostname":
			cfg.Server.Hostname = server.Hostname
		case "interval":
			cfg.Server.Interval = server.Interval
		case "rate":
			cfg.Server.MessagesPerSecond = server.MessagesPerSecond
		case "burst":
			cfg.Server.Burst = server.Burst
		case "log-level":
			cfg.Log.Level = logLevel
		case "log-format":
			cfg.Log.Format = logFormat
		}
	})

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}

	return cfg, nil
}
