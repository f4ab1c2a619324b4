package siteserver

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var uuidV7Regex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-7[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequestIDMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		cfg            RequestIDConfig
		headerName     string
		incomingHeader string
		wantHeader     string
	}{
		{
			name:       "generates UUID v7",
			headerName: RequestIDHeader,
		},
		{
			name:           "ignores incoming header by default",
			headerName:     RequestIDHeader,
			incomingHeader: "existing-id",
		},
		{
			name:           "trusts incoming header",
			cfg:            RequestIDConfig{TrustIncoming: true},
			headerName:     RequestIDHeader,
			incomingHeader: "existing-id",
			wantHeader:     "existing-id",
		},
		{
			name:       "custom header and generator",
			cfg:        RequestIDConfig{HeaderName: "X-Trace-ID", GenerateFunc: func(*http.Request) string { return "fixed" }},
			headerName: "X-Trace-ID",
			wantHeader: "fixed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var fromContext string
			handler := RequestIDMiddleware(tt.cfg)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				fromContext = RequestIDFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.incomingHeader != "" {
				req.Header.Set(tt.headerName, tt.incomingHeader)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			got := rec.Header().Get(tt.headerName)
			if tt.wantHeader != "" {
				assert.Equal(t, tt.wantHeader, got)
			} else {
				assert.Regexp(t, uuidV7Regex, got)
			}
			assert.Equal(t, got, fromContext)
		})
	}

	t.Run("empty without middleware", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		assert.Empty(t, RequestIDFromContext(req.Context()))
	})
}

func TestRecoveryMiddleware(t *testing.T) {
	t.Run("passes through without panic", func(t *testing.T) {
		handler := RecoveryMiddleware(RecoveryConfig{Logger: slog.New(slog.DiscardHandler)})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusAccepted)
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusAccepted, rec.Code)
	})

	t.Run("recovers panic and logs it", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))

		handler := RequestIDMiddleware(RequestIDConfig{})(RecoveryMiddleware(RecoveryConfig{Logger: logger})(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
			panic("boom")
		})))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/crash", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, buf.String(), "panic in handler")
		assert.Contains(t, buf.String(), "boom")
		assert.Contains(t, buf.String(), "path=/crash")
		assert.Contains(t, buf.String(), "request_id="+rec.Header().Get(RequestIDHeader))
	})

	t.Run("re-panics on ErrAbortHandler", func(t *testing.T) {
		handler := RecoveryMiddleware(RecoveryConfig{Logger: slog.New(slog.DiscardHandler)})(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
			panic(http.ErrAbortHandler)
		}))

		require.PanicsWithValue(t, http.ErrAbortHandler, func() {
			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		})
	})
}

func TestServerMiddleware(t *testing.T) {
	t.Run("sets version and hostname", func(t *testing.T) {
		mw, err := ServerMiddleware(ServerConfig{Hostname: "node-1"})
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		mw(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, "Web Server v0.1.0", rec.Header().Get("X-Server"))
		assert.Equal(t, "node-1", rec.Header().Get("X-Server-Hostname"))
	})

	t.Run("hostname from environment", func(t *testing.T) {
		t.Setenv("SITESERVER_TEST_POD", "")
		t.Setenv("SITESERVER_TEST_HOST", "pod-7")

		mw, err := ServerMiddleware(ServerConfig{
			Version:     "Web Server test",
			HostnameEnv: []string{"SITESERVER_TEST_POD", "SITESERVER_TEST_HOST"},
		})
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		mw(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, "Web Server test", rec.Header().Get("X-Server"))
		assert.Equal(t, "pod-7", rec.Header().Get("X-Server-Hostname"))
	})

	t.Run("falls back to os hostname", func(t *testing.T) {
		want, err := os.Hostname()
		require.NoError(t, err)

		mw, err := ServerMiddleware(ServerConfig{})
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		mw(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, Version, rec.Header().Get("X-Server"))
		assert.Equal(t, want, rec.Header().Get("X-Server-Hostname"))
	})
}

func TestAccessLogMiddleware(t *testing.T) {
	t.Run("debug by default", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

		handler := AccessLogMiddleware(AccessLogConfig{Logger: logger})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/submit", nil))

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Contains(t, buf.String(), "level=DEBUG")
		assert.Contains(t, buf.String(), "method=POST")
		assert.Contains(t, buf.String(), "path=/submit")
	})

	t.Run("configured level", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		level := slog.LevelInfo

		AccessLogMiddleware(AccessLogConfig{Logger: logger, Level: &level})(okHandler()).
			ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Contains(t, buf.String(), "level=INFO")
	})
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	tests := []struct {
		name    string
		cfg     SecurityHeadersConfig
		want    map[string]string
		wantErr error
	}{
		{
			name: "defaults",
			want: map[string]string{
				"X-Content-Type-Options":  "nosniff",
				"X-Frame-Options":         "DENY",
				"Referrer-Policy":         "strict-origin-when-cross-origin",
				"Content-Security-Policy": "",
			},
		},
		{
			name: "same origin frames with policy",
			cfg: SecurityHeadersConfig{
				FrameOption:           "SAMEORIGIN",
				ContentSecurityPolicy: "default-src 'self'",
			},
			want: map[string]string{
				"X-Frame-Options":         "SAMEORIGIN",
				"Content-Security-Policy": "default-src 'self'",
			},
		},
		{
			name: "nosniff disabled",
			cfg:  SecurityHeadersConfig{DisableContentTypeNosniff: true, ReferrerPolicy: "no-referrer"},
			want: map[string]string{
				"X-Content-Type-Options": "",
				"Referrer-Policy":        "no-referrer",
			},
		},
		{
			name:    "invalid frame option",
			cfg:     SecurityHeadersConfig{FrameOption: "ALLOW"},
			wantErr: ErrInvalidFrameOption,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mw, err := SecurityHeadersMiddleware(tt.cfg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, mw)
				return
			}
			require.NoError(t, err)

			rec := httptest.NewRecorder()
			mw(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			for header, value := range tt.want {
				assert.Equal(t, value, rec.Header().Get(header), header)
			}
		})
	}
}
