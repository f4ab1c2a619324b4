// Package metrics defines the Prometheus collectors exported by the
// console, the fragment loader and the site server.
//
// Every constructor registers its collectors on the given registerer.
// A nil *Console, *Loader or *Server is valid and records nothing, so
// components can be built without metrics in tests.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "wsconsole"

// Console holds metrics for the connection console.
type Console struct {
	Connections    *prometheus.CounterVec
	FramesSent     prometheus.Counter
	FramesReceived prometheus.Counter
	Errors         prometheus.Counter
}

// NewConsole creates and registers console metrics on the given registry.
func NewConsole(reg prometheus.Registerer) *Console {
	m := &Console{
		Connections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "console",
			Name:      "connections_total",
			Help:      "Connection attempts by result (opened, failed, cancelled).",
		}, []string{"result"}),
		FramesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "console",
			Name:      "frames_sent_total",
			Help:      "Total number of text frames sent.",
		}),
		FramesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "console",
			Name:      "frames_received_total",
			Help:      "Total number of frames received.",
		}),
		Errors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "console",
			Name:      "errors_total",
			Help:      "Total number of connection errors logged.",
		}),
	}

	reg.MustRegister(m.Connections, m.FramesSent, m.FramesReceived, m.Errors)
	return m
}

// Connection records the result of a connection attempt.
func (m *Console) Connection(result string) {
	if m == nil {
		return
	}
	m.Connections.WithLabelValues(result).Inc()
}

// Sent records one outgoing frame.
func (m *Console) Sent() {
	if m == nil {
		return
	}
	m.FramesSent.Inc()
}

// Received records one incoming frame.
func (m *Console) Received() {
	if m == nil {
		return
	}
	m.FramesReceived.Inc()
}

// Error records one logged connection error.
func (m *Console) Error() {
	if m == nil {
		return
	}
	m.Errors.Inc()
}

// Loader holds metrics for the fragment loader.
type Loader struct {
	Navigations *prometheus.CounterVec
}

// NewLoader creates and registers loader metrics on the given registry.
func NewLoader(reg prometheus.Registerer) *Loader {
	m := &Loader{
		Navigations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fragment",
			Name:      "navigations_total",
			Help:      "Navigations by outcome (ok, fetch_error, script_error, superseded, init_error).",
		}, []string{"outcome"}),
	}

	reg.MustRegister(m.Navigations)
	return m
}

// Navigation records the outcome of one navigation.
func (m *Loader) Navigation(outcome string) {
	if m == nil {
		return
	}
	m.Navigations.WithLabelValues(outcome).Inc()
}

// Server holds metrics for the site server's WebSocket endpoint.
type Server struct {
	ActiveClients     prometheus.Gauge
	MessagesEchoed    prometheus.Counter
	MessagesBroadcast prometheus.Counter
	MessagesDropped   *prometheus.CounterVec
}

// NewServer creates and registers server metrics on the given registry.
func NewServer(reg prometheus.Registerer) *Server {
	m := &Server{
		ActiveClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "active_clients",
			Help:      "Number of connected console clients.",
		}),
		MessagesEchoed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "messages_echoed_total",
			Help:      "Total number of frames echoed back to their sender.",
		}),
		MessagesBroadcast: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "messages_broadcast_total",
			Help:      "Total number of console log lines delivered to clients.",
		}),
		MessagesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "messages_dropped_total",
			Help:      "Frames dropped by reason (rate_limited, slow_client).",
		}, []string{"reason"}),
	}

	reg.MustRegister(m.ActiveClients, m.MessagesEchoed, m.MessagesBroadcast, m.MessagesDropped)
	return m
}

// ClientConnected increments the active client gauge.
func (m *Server) ClientConnected() {
	if m == nil {
		return
	}
	m.ActiveClients.Inc()
}

// ClientDisconnected decrements the active client gauge.
func (m *Server) ClientDisconnected() {
	if m == nil {
		return
	}
	m.ActiveClients.Dec()
}

// Echoed records one echoed frame.
func (m *Server) Echoed() {
	if m == nil {
		return
	}
	m.MessagesEchoed.Inc()
}

// Broadcast records n delivered console log lines.
func (m *Server) Broadcast(n int) {
	if m == nil {
		return
	}
	m.MessagesBroadcast.Add(float64(n))
}

// Dropped records one dropped frame.
func (m *Server) Dropped(reason string) {
	if m == nil {
		return
	}
	m.MessagesDropped.WithLabelValues(reason).Inc()
}
