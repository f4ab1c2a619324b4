// Package console implements a manual WebSocket test console: one optional
// connection to an operator-supplied address, a send action for text
// frames and an append-only log of connection and message events.
//
// The console does not draw anything itself. It drives a View, which
// renders the enablement of the controls and the log, and it opens
// connections through a Dialer, so it can be exercised without a
// terminal or a network:
//
//	c := console.New(console.Options{
//	    View:   view,
//	    Dialer: &console.WebSocketDialer{},
//	})
//	defer c.Close()
//
//	c.Toggle("ws://localhost:8080") // connect
//	c.Send("ping")
//	c.Toggle("")                    // disconnect
//
// # States
//
// The console moves DISCONNECTED -> CONNECTING -> CONNECTED and back to
// DISCONNECTED on a toggle, a close event or, with ErrorDisconnects, an
// error. The connection handle exists from CONNECTING on, and the
// controls follow the handle: while it exists the message field and send
// button are enabled, the address field is disabled and the toggle reads
// "disconnect". Frames are only written in CONNECTED; Send in any other
// state does nothing.
//
// # Log
//
// Every event appends one entry, rendered as:
//
//	CONNECTION OPENED
//	RECEIVED: <payload>
//	ERROR: <detail>
//	CONNECTION CLOSED
//	SENT: <payload>
//
// Failures never propagate to the caller; they only produce log entries.
package console
