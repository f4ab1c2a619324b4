package console

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/vitalvas/wsconsole/metrics"
)

// ErrConnectionClosed is returned by Conn.ReadText when the peer closed
// the connection cleanly. It produces a close entry without an error entry.
var ErrConnectionClosed = errors.New("console: connection closed")

// Conn is an open connection as seen by the console.
type Conn interface {
	// ReadText blocks for the next frame and returns its payload.
	ReadText() (string, error)

	// WriteText sends text as a single text frame.
	WriteText(text string) error

	// Close closes the connection. It must unblock a pending ReadText and
	// be safe to call more than once.
	Close() error
}

// Dialer opens connections. Dial blocks until the connection is open or
// has failed; cancelling ctx aborts it.
type Dialer interface {
	Dial(ctx context.Context, address string) (Conn, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, address string) (Conn, error)

// Dial calls f(ctx, address).
func (f DialerFunc) Dial(ctx context.Context, address string) (Conn, error) {
	return f(ctx, address)
}

// State is the connection state of the console.
type State uint8

// Console states.
const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	default:
		return "UNKNOWN"
	}
}

// ErrorPolicy decides what an error event does to the connection.
type ErrorPolicy uint8

const (
	// ErrorLogOnly appends an error entry and leaves the connection and
	// the controls alone. Only a following close event resets them.
	ErrorLogOnly ErrorPolicy = iota

	// ErrorDisconnects appends an error entry and closes the connection,
	// which then produces the usual close entry and control reset.
	ErrorDisconnects
)

// Options configures a Console.
type Options struct {
	// View renders controls and log entries. Nil discards rendering.
	View View

	// Dialer opens connections. Nil uses a WebSocketDialer.
	Dialer Dialer

	// ErrorPolicy selects the reaction to error events.
	ErrorPolicy ErrorPolicy

	// AutoScroll scrolls the view to its end after every received frame.
	AutoScroll bool

	// Logger receives diagnostic records. Nil uses slog.Default.
	Logger *slog.Logger

	// Metrics is optional.
	Metrics *metrics.Console

	// Now stamps log entries. Nil uses time.Now.
	Now func() time.Time
}

// Console is the connection console controller. Its methods are safe for
// concurrent use; events are applied one at a time in arrival order.
type Console struct {
	view       View
	dialer     Dialer
	policy     ErrorPolicy
	autoScroll bool
	logger     *slog.Logger
	metrics    *metrics.Console
	log        *Log

	mu    sync.Mutex
	state State
	sess  *session

	wg sync.WaitGroup
}

// session is the connection handle. It exists from the toggle that
// creates it until its close event.
type session struct {
	address string
	cancel  context.CancelFunc
	conn    Conn
	closing bool
}

// New returns a disconnected console and renders its initial controls.
func New(opts Options) *Console {
	c := &Console{
		view:       opts.View,
		dialer:     opts.Dialer,
		policy:     opts.ErrorPolicy,
		autoScroll: opts.AutoScroll,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
		log:        NewLog(opts.Now),
	}

	if c.view == nil {
		c.view = nopView{}
	}

	if c.dialer == nil {
		c.dialer = &WebSocketDialer{}
	}

	if c.logger == nil {
		c.logger = slog.Default()
	}

	c.mu.Lock()
	c.view.SetControls(Controls(false))
	c.mu.Unlock()

	return c
}

// State returns the current state.
func (c *Console) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Connected reports whether a connection handle exists, which is what the
// controls reflect.
func (c *Console) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.sess != nil
}

// Controls returns the control state currently rendered.
func (c *Console) Controls() ControlState {
	return Controls(c.Connected())
}

// Log returns the console log.
func (c *Console) Log() *Log {
	return c.log
}

// Entries returns a copy of the log entries in append order.
func (c *Console) Entries() []Entry {
	return c.log.Entries()
}

// Toggle connects to address when there is no connection and requests
// closure of the current one otherwise. It never blocks on the network.
func (c *Console) Toggle(address string) {
	c.mu.Lock()

	if s := c.sess; s != nil {
		conn := c.requestCloseLocked(s)
		c.mu.Unlock()

		if conn != nil {
			conn.Close()
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &session{address: address, cancel: cancel}
	c.sess = s
	c.state = StateConnecting
	c.view.SetControls(Controls(true))
	c.logger.Debug("connecting", "address", address)

	c.wg.Add(1)
	c.mu.Unlock()

	go c.run(ctx, s)
}

// Send writes text as one frame on the open connection. Without an open
// connection it does nothing. The sent entry is appended before the write.
func (c *Console) Send(text string) {
	c.mu.Lock()

	s := c.sess
	if s == nil || s.closing || c.state != StateConnected {
		c.mu.Unlock()
		return
	}

	c.appendLocked(EventSent, text)
	c.metrics.Sent()
	conn := s.conn
	c.mu.Unlock()

	err := conn.WriteText(text)
	if err == nil {
		return
	}

	c.mu.Lock()
	var toClose Conn
	if c.sess == s {
		toClose = c.errorLocked(s, err)
	}
	c.mu.Unlock()

	if toClose != nil {
		toClose.Close()
	}
}

// Close closes any connection and waits for its close event. The console
// stays usable afterwards.
func (c *Console) Close() error {
	c.mu.Lock()

	var conn Conn
	if s := c.sess; s != nil {
		conn = c.requestCloseLocked(s)
	}
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}

	c.wg.Wait()
	return nil
}

// run dials and then reads until the connection ends.
func (c *Console) run(ctx context.Context, s *session) {
	defer c.wg.Done()

	conn, err := c.dialer.Dial(ctx, s.address)

	c.mu.Lock()

	if err != nil {
		if s.closing {
			c.metrics.Connection("cancelled")
		} else {
			c.metrics.Connection("failed")
			c.logger.Warn("connection failed", "address", s.address, "error", err)
			c.errorLocked(s, err)
		}

		c.closedLocked(s)
		c.mu.Unlock()
		return
	}

	if s.closing {
		c.metrics.Connection("cancelled")
		c.mu.Unlock()

		conn.Close()

		c.mu.Lock()
		c.closedLocked(s)
		c.mu.Unlock()
		return
	}

	s.conn = conn
	c.state = StateConnected
	c.metrics.Connection("opened")
	c.logger.Info("connection opened", "address", s.address)
	c.appendLocked(EventOpened, "")
	c.mu.Unlock()

	c.read(s, conn)
}

func (c *Console) read(s *session, conn Conn) {
	for {
		text, err := conn.ReadText()
		if err != nil {
			c.mu.Lock()
			if !s.closing && !errors.Is(err, ErrConnectionClosed) {
				c.errorLocked(s, err)
			}
			c.closedLocked(s)
			c.mu.Unlock()

			conn.Close()
			return
		}

		c.mu.Lock()
		if c.sess == s {
			c.appendLocked(EventReceived, text)
			c.metrics.Received()
			if c.autoScroll {
				c.view.ScrollToEnd()
			}
		}
		c.mu.Unlock()
	}
}

// requestCloseLocked marks s as closing. It returns the connection the
// caller must close outside the lock, or nil when the dial is still
// pending and has been cancelled instead.
func (c *Console) requestCloseLocked(s *session) Conn {
	if s.closing {
		return nil
	}

	s.closing = true
	c.logger.Debug("closing connection", "address", s.address, "state", c.state)

	if s.conn == nil {
		s.cancel()
		return nil
	}

	return s.conn
}

// errorLocked logs err and applies the error policy. It returns a
// connection to close outside the lock, if any.
func (c *Console) errorLocked(s *session, err error) Conn {
	c.appendLocked(EventError, err.Error())
	c.metrics.Error()

	if c.policy == ErrorDisconnects {
		return c.requestCloseLocked(s)
	}

	return nil
}

// closedLocked applies the close event of s. Events of a session that is
// no longer current are ignored.
func (c *Console) closedLocked(s *session) {
	if c.sess != s {
		return
	}

	s.cancel()
	c.sess = nil
	c.state = StateDisconnected
	c.appendLocked(EventClosed, "")
	c.view.SetControls(Controls(false))
	c.logger.Info("connection closed", "address", s.address)
}

func (c *Console) appendLocked(kind EventKind, text string) {
	c.view.AppendEntry(c.log.Append(kind, text))
}
