package console

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// closeWriteWait bounds the close frame written by Conn.Close.
const closeWriteWait = time.Second

// WebSocketDialer opens WebSocket connections with gorilla/websocket.
// The zero value is ready to use.
type WebSocketDialer struct {
	// Dialer is the underlying dialer. Nil uses websocket.DefaultDialer.
	Dialer *websocket.Dialer

	// Header is sent with the opening handshake.
	Header http.Header

	// HandshakeTimeout bounds the whole dial. Zero means no limit beyond
	// the one of Dialer.
	HandshakeTimeout time.Duration
}

// Dial opens a connection to address, a ws:// or wss:// URL.
func (d *WebSocketDialer) Dial(ctx context.Context, address string) (Conn, error) {
	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	if d.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.HandshakeTimeout)
		defer cancel()
	}

	conn, resp, err := dialer.DialContext(ctx, address, d.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("%w (status %s)", err, resp.Status)
		}
		return nil, err
	}

	return &wsConn{conn: conn}, nil
}

// wsConn serializes writers, since gorilla/websocket allows only one
// concurrent writer per connection.
type wsConn struct {
	conn *websocket.Conn

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// ReadText returns the payload of the next data frame. Binary payloads
// are returned as text unchanged. A clean close by the peer is reported
// as ErrConnectionClosed.
func (c *wsConn) ReadText() (string, error) {
	_, p, err := c.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
			return "", fmt.Errorf("%w: %v", ErrConnectionClosed, err)
		}
		return "", err
	}

	return string(p), nil
}

func (c *wsConn) WriteText(text string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	return c.conn.WriteMessage(websocket.TextMessage, []byte(text))
}

// Close sends a normal closure frame and closes the network connection.
func (c *wsConn) Close() error {
	c.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteWait))
		c.closeErr = c.conn.Close()
	})

	return c.closeErr
}
