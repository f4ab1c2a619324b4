package siteserver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vitalvas/wsconsole/metrics"
)

// Version identifies the server in the X-Server response header.
const Version = "Web Server v0.1.0"

const readHeaderTimeout = 10 * time.Second

var (
	// ErrAlreadyStarted is returned by Start on a running server.
	ErrAlreadyStarted = errors.New("siteserver: server already started")

	// ErrNotConfigured is returned by Start before the address, port and
	// website root are set.
	ErrNotConfigured = errors.New("siteserver: server info not set")

	// ErrListenerInit wraps the error of the listener setup.
	ErrListenerInit = errors.New("siteserver: failed to initialize http listener")
)

// Config configures a Server. Address, Port and Root can also be set
// later with Configure.
type Config struct {
	// Address is the host to listen on. An http:// or https:// prefix is
	// ignored.
	Address string

	// Port to listen on. Zero picks a free port.
	Port int

	// Root is the website directory.
	Root string

	// RootFS overrides Root with a file system.
	RootFS fs.FS

	// Hostname is reported in X-Server-Hostname. Empty uses os.Hostname.
	Hostname string

	// MessagesPerSecond and Burst limit inbound console frames per client.
	MessagesPerSecond float64
	Burst             int

	Logger *slog.Logger

	// Registerer receives the server collectors. Nil disables metrics.
	Registerer prometheus.Registerer

	// Gatherer is exposed on /metrics. Nil uses prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer
}

// Server is the website and console server.
type Server struct {
	hostname string
	logger   *slog.Logger
	gatherer prometheus.Gatherer
	hubCfg   HubConfig

	mu       sync.Mutex
	hub      *Hub
	address  string
	port     int
	root     string
	rootFS   fs.FS
	running  bool
	lastErr  error
	listener net.Listener
	httpSrv  *http.Server
	done     chan struct{}
}

// New returns a stopped server.
func New(cfg Config) *Server {
	s := &Server{
		hostname: cfg.Hostname,
		logger:   cfg.Logger,
		gatherer: cfg.Gatherer,
		rootFS:   cfg.RootFS,
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	if s.gatherer == nil {
		s.gatherer = prometheus.DefaultGatherer
	}

	var m *metrics.Server
	if cfg.Registerer != nil {
		m = metrics.NewServer(cfg.Registerer)
	}

	s.hubCfg = HubConfig{
		MessagesPerSecond: cfg.MessagesPerSecond,
		Burst:             cfg.Burst,
		Logger:            s.logger,
		Metrics:           m,
	}
	s.hub = NewHub(s.hubCfg)

	s.Configure(cfg.Address, cfg.Port, cfg.Root)

	return s
}

// Configure sets where the server listens and what it serves. It takes
// effect on the next Start.
func (s *Server) Configure(address string, port int, root string) {
	address = strings.TrimPrefix(address, "http://")
	address = strings.TrimPrefix(address, "https://")

	s.mu.Lock()
	defer s.mu.Unlock()

	s.address = address
	s.port = port
	s.root = root
}

// Start listens and serves in the background. The error is also kept
// for LastError.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return s.failLocked(ErrAlreadyStarted)
	}

	if !s.configuredLocked() {
		return s.failLocked(ErrNotConfigured)
	}

	root := s.rootFS
	if root == nil {
		root = os.DirFS(s.root)
	}

	handler, err := s.handler(root, s.hub)
	if err != nil {
		return s.failLocked(err)
	}

	addr := net.JoinHostPort(s.address, strconv.Itoa(s.port))

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return s.failLocked(fmt.Errorf("%w: %w", ErrListenerInit, err))
	}

	s.listener = ln
	s.httpSrv = &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	s.done = make(chan struct{})
	s.running = true
	s.lastErr = nil

	s.logger.Info("web server started", "version", Version, "listen", ln.Addr().String(), "root", s.root)

	go s.serve(s.httpSrv, ln, s.done)

	return nil
}

func (s *Server) serve(srv *http.Server, ln net.Listener, done chan struct{}) {
	defer close(done)

	err := srv.Serve(ln)
	if err == nil || errors.Is(err, http.ErrServerClosed) {
		return
	}

	s.logger.Error("web server failed", "error", err)

	s.mu.Lock()
	if s.httpSrv == srv {
		s.running = false
		s.lastErr = err
	}
	s.mu.Unlock()
}

// Stop disconnects the console clients and shuts the HTTP server down.
// Stopping a stopped server is a no-op.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv, done, hub := s.httpSrv, s.done, s.hub
	if srv != nil {
		s.hub = NewHub(s.hubCfg)
	}
	s.httpSrv = nil
	s.listener = nil
	s.running = false
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	hub.Close()

	err := srv.Shutdown(ctx)
	if err != nil {
		srv.Close()
	}

	<-done

	s.logger.Info("web server stopped")
	return err
}

// IsRunning reports whether the server is serving.
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}

// LastError returns the error of the last failed Start, or of the serve
// loop if it ended unexpectedly. It is nil after a successful Start.
func (s *Server) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastErr
}

// Addr returns the listening address, or nil when stopped.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}

	return s.listener.Addr()
}

// SendConsoleLog broadcasts line to every console client and returns the
// number of clients it was queued for.
func (s *Server) SendConsoleLog(line string) int {
	return s.currentHub().Broadcast(line)
}

// Clients returns the number of connected console clients.
func (s *Server) Clients() int {
	return s.currentHub().Len()
}

func (s *Server) currentHub() *Hub {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.hub
}

// Handler returns the router for the configured website root, without
// starting a listener.
func (s *Server) Handler() (http.Handler, error) {
	s.mu.Lock()
	root, dir, hub := s.rootFS, s.root, s.hub
	s.mu.Unlock()

	if root == nil {
		if dir == "" {
			return nil, ErrNotConfigured
		}
		root = os.DirFS(dir)
	}

	return s.handler(root, hub)
}

func (s *Server) handler(root fs.FS, hub *Hub) (http.Handler, error) {
	files, err := staticFiles(root)
	if err != nil {
		return nil, err
	}

	serverHeader, err := ServerMiddleware(ServerConfig{Hostname: s.hostname})
	if err != nil {
		return nil, err
	}

	securityHeaders, err := SecurityHeadersMiddleware(SecurityHeadersConfig{FrameOption: "SAMEORIGIN"})
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(
		echo.WrapMiddleware(RequestIDMiddleware(RequestIDConfig{TrustIncoming: true})),
		echo.WrapMiddleware(RecoveryMiddleware(RecoveryConfig{Logger: s.logger})),
		echo.WrapMiddleware(serverHeader),
		echo.WrapMiddleware(securityHeaders),
		echo.WrapMiddleware(AccessLogMiddleware(AccessLogConfig{Logger: s.logger})),
	)

	e.GET("/ws", echo.WrapHandler(hub))
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"status":  "ok",
			"version": Version,
			"clients": hub.Len(),
		})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	e.Match([]string{http.MethodGet, http.MethodHead}, "/*", echo.WrapHandler(files))

	return e, nil
}

func (s *Server) configuredLocked() bool {
	if s.address == "" || s.port < 0 || s.port > 65535 {
		return false
	}

	return s.root != "" || s.rootFS != nil
}

func (s *Server) failLocked(err error) error {
	s.lastErr = err
	s.logger.Error("web server start failed", "error", err)
	return err
}
