package siteserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"runtime/debug"

	"github.com/google/uuid"
)

// ErrInvalidFrameOption is returned when SecurityHeadersConfig.FrameOption
// is not "DENY", "SAMEORIGIN" or empty.
var ErrInvalidFrameOption = errors.New("siteserver: frame option must be DENY, SAMEORIGIN, or empty")

// Middleware wraps an http.Handler. Middlewares are installed on the echo
// router with echo.WrapMiddleware.
type Middleware func(http.Handler) http.Handler

type requestIDKey struct{}

// RequestIDHeader is the default header carrying the request ID.
const RequestIDHeader = "X-Request-ID"

// RequestIDFromContext returns the request ID stored by
// RequestIDMiddleware, or an empty string.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}

	return ""
}

// RequestIDConfig configures RequestIDMiddleware.
type RequestIDConfig struct {
	// HeaderName defaults to RequestIDHeader.
	HeaderName string

	// GenerateFunc returns a new ID. Defaults to GenerateUUIDv7.
	GenerateFunc func(r *http.Request) string

	// TrustIncoming reuses the ID of the incoming request header.
	TrustIncoming bool
}

// RequestIDMiddleware generates or propagates a request ID and sets it on
// the request header, the request context and the response.
func RequestIDMiddleware(cfg RequestIDConfig) Middleware {
	headerName := cfg.HeaderName
	if headerName == "" {
		headerName = RequestIDHeader
	}

	generate := cfg.GenerateFunc
	if generate == nil {
		generate = GenerateUUIDv7
	}

	trustIncoming := cfg.TrustIncoming

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if trustIncoming {
				id = r.Header.Get(headerName)
			}

			if id == "" {
				id = generate(r)
			}

			if id != "" {
				r.Header.Set(headerName, id)
				w.Header().Set(headerName, id)
				r = r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id))
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GenerateUUIDv7 returns a time-ordered UUID, falling back to a random one.
func GenerateUUIDv7(_ *http.Request) string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// RecoveryConfig configures RecoveryMiddleware.
type RecoveryConfig struct {
	// Logger receives the recovered panics. Defaults to slog.Default().
	Logger *slog.Logger
}

// RecoveryMiddleware turns a panic in a downstream handler into a 500
// response and logs it with the request ID and stack. http.ErrAbortHandler
// is re-panicked.
func RecoveryMiddleware(cfg RecoveryConfig) Middleware {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}

					logger.Error("panic in handler",
						"error", err,
						"method", r.Method,
						"path", r.URL.Path,
						"request_id", RequestIDFromContext(r.Context()),
						"stack", string(debug.Stack()),
					)

					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// ServerConfig configures ServerMiddleware.
type ServerConfig struct {
	// Version is written to X-Server. Defaults to Version.
	Version string

	// Hostname is written to X-Server-Hostname. When empty the first
	// non-empty HostnameEnv variable is used, then os.Hostname.
	Hostname string

	HostnameEnv []string
}

// ServerMiddleware sets the X-Server and X-Server-Hostname headers. The
// hostname is resolved once; failing to resolve it is an error.
func ServerMiddleware(cfg ServerConfig) (Middleware, error) {
	version := cfg.Version
	if version == "" {
		version = Version
	}

	hostname := cfg.Hostname
	if hostname == "" {
		for _, env := range cfg.HostnameEnv {
			if v, ok := os.LookupEnv(env); ok && v != "" {
				hostname = v
				break
			}
		}
	}

	if hostname == "" {
		h, err := os.Hostname()
		if err != nil {
			return nil, err
		}

		hostname = h
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Server", version)
			w.Header().Set("X-Server-Hostname", hostname)
			next.ServeHTTP(w, r)
		})
	}, nil
}

// AccessLogConfig configures AccessLogMiddleware.
type AccessLogConfig struct {
	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Level of the request records. Defaults to debug.
	Level *slog.Level
}

// AccessLogMiddleware logs one record per request after it is served.
func AccessLogMiddleware(cfg AccessLogConfig) Middleware {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	level := slog.LevelDebug
	if cfg.Level != nil {
		level = *cfg.Level
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)

			logger.Log(r.Context(), level, "request",
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"request_id", RequestIDFromContext(r.Context()),
			)
		})
	}
}

// SecurityHeadersConfig configures SecurityHeadersMiddleware.
type SecurityHeadersConfig struct {
	// DisableContentTypeNosniff drops X-Content-Type-Options: nosniff.
	DisableContentTypeNosniff bool

	// FrameOption is "DENY" (default) or "SAMEORIGIN".
	FrameOption string

	// ReferrerPolicy defaults to "strict-origin-when-cross-origin".
	ReferrerPolicy string

	// ContentSecurityPolicy is set when not empty.
	ContentSecurityPolicy string
}

// SecurityHeadersMiddleware sets common security response headers before
// calling the next handler.
func SecurityHeadersMiddleware(cfg SecurityHeadersConfig) (Middleware, error) {
	if cfg.FrameOption != "" && cfg.FrameOption != "DENY" && cfg.FrameOption != "SAMEORIGIN" {
		return nil, ErrInvalidFrameOption
	}

	frameOption := cfg.FrameOption
	if frameOption == "" {
		frameOption = "DENY"
	}

	referrerPolicy := cfg.ReferrerPolicy
	if referrerPolicy == "" {
		referrerPolicy = "strict-origin-when-cross-origin"
	}

	nosniff := !cfg.DisableContentTypeNosniff
	csp := cfg.ContentSecurityPolicy

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()

			if nosniff {
				h.Set("X-Content-Type-Options", "nosniff")
			}
			h.Set("X-Frame-Options", frameOption)
			h.Set("Referrer-Policy", referrerPolicy)
			if csp != "" {
				h.Set("Content-Security-Policy", csp)
			}

			next.ServeHTTP(w, r)
		})
	}, nil
}
