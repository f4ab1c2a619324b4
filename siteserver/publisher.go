package siteserver

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultInterval is the pause between two published console lines.
const DefaultInterval = 500 * time.Millisecond

// ErrSinkStopped is returned by Publisher.Run when the sink stops running.
var ErrSinkStopped = errors.New("siteserver: sink stopped running")

// Sink receives console log lines while it runs.
type Sink interface {
	SendConsoleLog(line string) int
	IsRunning() bool
}

// Publisher sends a numbered "Log: N" line to the sink on every tick.
type Publisher struct {
	Sink     Sink
	Interval time.Duration

	// Clock drives the ticker. Nil uses the real clock.
	Clock clockwork.Clock

	Logger *slog.Logger
}

// Run publishes while the sink runs and returns the number of lines sent.
// The first line is sent right away. The error is nil when ctx ends the
// loop and ErrSinkStopped when the sink stops first.
func (p *Publisher) Run(ctx context.Context) (int, error) {
	clock := p.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	interval := p.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ticker := clock.NewTicker(interval)
	defer ticker.Stop()

	count := 0
	for {
		if !p.Sink.IsRunning() {
			logger.Warn("console log sink stopped", "count", count)
			return count, ErrSinkStopped
		}

		count++
		n := p.Sink.SendConsoleLog("Log: " + strconv.Itoa(count))
		logger.Debug("console log published", "count", count, "clients", n)

		select {
		case <-ctx.Done():
			return count, nil
		case <-ticker.Chan():
		}
	}
}
