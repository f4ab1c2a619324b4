package console

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newEchoServer greets every client with "hello" and echoes its frames.
func newEchoServer(t *testing.T) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		if err := conn.WriteMessage(websocket.TextMessage, []byte("hello")); err != nil {
			return
		}

		for {
			mt, p, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(mt, p); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWebSocketDialer(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		srv := newEchoServer(t)

		conn, err := (&WebSocketDialer{}).Dial(context.Background(), wsURL(srv))
		require.NoError(t, err)
		defer conn.Close()

		text, err := conn.ReadText()
		require.NoError(t, err)
		assert.Equal(t, "hello", text)

		require.NoError(t, conn.WriteText("ping"))
		text, err = conn.ReadText()
		require.NoError(t, err)
		assert.Equal(t, "ping", text)
	})

	t.Run("malformed address", func(t *testing.T) {
		_, err := (&WebSocketDialer{}).Dial(context.Background(), "http://example.com")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "malformed ws or wss URL")
	})

	t.Run("handshake rejected", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()

		_, err := (&WebSocketDialer{}).Dial(context.Background(), wsURL(srv))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "404")
	})

	t.Run("handshake timeout", func(t *testing.T) {
		block := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			<-block
		}))
		defer srv.Close()
		defer close(block)

		d := &WebSocketDialer{HandshakeTimeout: 50 * time.Millisecond}
		_, err := d.Dial(context.Background(), wsURL(srv))
		require.Error(t, err)
	})

	t.Run("clean remote close", func(t *testing.T) {
		upgrader := websocket.Upgrader{}
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			conn, err := upgrader.Upgrade(w, r, nil)
			if err != nil {
				return
			}
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
			conn.Close()
		}))
		defer srv.Close()

		conn, err := (&WebSocketDialer{}).Dial(context.Background(), wsURL(srv))
		require.NoError(t, err)
		defer conn.Close()

		_, err = conn.ReadText()
		assert.ErrorIs(t, err, ErrConnectionClosed)
	})

	t.Run("close is idempotent", func(t *testing.T) {
		srv := newEchoServer(t)

		conn, err := (&WebSocketDialer{}).Dial(context.Background(), wsURL(srv))
		require.NoError(t, err)

		first := conn.Close()
		assert.Equal(t, first, conn.Close())
	})
}

func TestConsoleOverWebSocket(t *testing.T) {
	srv := newEchoServer(t)
	c, view := newTestConsole(t, Options{Dialer: &WebSocketDialer{}, AutoScroll: true})

	c.Toggle(wsURL(srv))
	assert.Equal(t, LabelDisconnect, view.last().ToggleLabel)
	assert.False(t, view.last().AddressEnabled)

	require.Eventually(t, func() bool { return c.Log().Len() == 2 }, waitFor, tick)

	c.Send("ping")
	require.Eventually(t, func() bool { return c.Log().Len() == 4 }, waitFor, tick)

	c.Toggle("")
	waitState(t, c, StateDisconnected)

	assert.Equal(t, []string{
		"CONNECTION OPENED",
		"RECEIVED: hello",
		"SENT: ping",
		"RECEIVED: ping",
		"CONNECTION CLOSED",
	}, c.Log().Lines())
	assert.Equal(t, Controls(false), view.last())
	assert.Equal(t, 2, view.scrollCount())
}

func TestConsoleInvalidAddress(t *testing.T) {
	c, view := newTestConsole(t, Options{Dialer: &WebSocketDialer{}})

	c.Toggle("localhost:8080")
	waitState(t, c, StateDisconnected)
	require.Eventually(t, func() bool { return len(view.lines()) == 2 }, waitFor, tick)

	lines := view.lines()
	assert.True(t, strings.HasPrefix(lines[0], "ERROR: "), lines[0])
	assert.Equal(t, "CONNECTION CLOSED", lines[1])
}
