package fragment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/vitalvas/wsconsole/metrics"
)

// DefaultPage is the fragment shown on start.
const DefaultPage = "pages/dashboard.html"

var (
	// ErrSuperseded is returned by a navigation overtaken by a newer one.
	// Its content was discarded.
	ErrSuperseded = errors.New("fragment: navigation superseded by a newer request")

	// ErrNoFetcher is returned by NewLoader without a Fetcher.
	ErrNoFetcher = errors.New("fragment: fetcher must not be nil")

	// ErrNoContainer is returned by NewLoader without a Container.
	ErrNoContainer = errors.New("fragment: container must not be nil")
)

// Container displays the current fragment. Replace discards the previous
// content entirely.
type Container interface {
	Replace(Content)
}

// ContainerFunc adapts a function to the Container interface.
type ContainerFunc func(Content)

// Replace calls f(c).
func (f ContainerFunc) Replace(c Content) {
	f(c)
}

// LoaderConfig configures a Loader.
type LoaderConfig struct {
	// Fetcher retrieves fragment markup. Required.
	Fetcher Fetcher

	// Container displays the fragments. Required.
	Container Container

	// Resolver maps script paths to initializers. Nil rejects every
	// navigation that names a script.
	Resolver Resolver

	// DefaultPage is loaded by Start. Defaults to DefaultPage.
	DefaultPage string

	// Logger is the diagnostic channel for failures. Nil uses slog.Default.
	Logger *slog.Logger

	// Metrics is optional.
	Metrics *metrics.Loader
}

// Loader swaps fragments into a container. It is safe for concurrent use.
type Loader struct {
	fetcher     Fetcher
	container   Container
	resolver    Resolver
	defaultPage string
	logger      *slog.Logger
	metrics     *metrics.Loader

	latest atomic.Uint64

	mu      sync.Mutex
	current Content
}

// NewLoader validates cfg and returns a Loader.
func NewLoader(cfg LoaderConfig) (*Loader, error) {
	if cfg.Fetcher == nil {
		return nil, ErrNoFetcher
	}

	if cfg.Container == nil {
		return nil, ErrNoContainer
	}

	l := &Loader{
		fetcher:     cfg.Fetcher,
		container:   cfg.Container,
		resolver:    cfg.Resolver,
		defaultPage: cfg.DefaultPage,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
	}

	if l.defaultPage == "" {
		l.defaultPage = DefaultPage
	}

	if l.logger == nil {
		l.logger = slog.Default()
	}

	return l, nil
}

// Start navigates to the default page without a script.
func (l *Loader) Start(ctx context.Context) error {
	return l.Navigate(ctx, l.defaultPage, "")
}

// Current returns the content currently displayed.
func (l *Loader) Current() Content {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.current
}

// Navigate fetches htmlPath, resolves the initializer of scriptPath when
// it is not empty, swaps the content in and then runs the initializer.
//
// If the fetch or the resolution fails, the displayed content is left
// untouched. If a newer navigation was issued in the meantime, the result
// is discarded and ErrSuperseded is returned. An initializer error is
// returned after the swap, which is not undone.
func (l *Loader) Navigate(ctx context.Context, htmlPath, scriptPath string) error {
	token := l.latest.Add(1)
	log := l.logger.With("path", htmlPath, "script", scriptPath, "token", token)

	markup, err := l.fetcher.Fetch(ctx, htmlPath)
	if err != nil {
		log.Error("error loading html file", "error", err)
		l.metrics.Navigation("fetch_error")
		return err
	}

	content, err := Parse(htmlPath, markup)
	if err != nil {
		log.Error("error parsing html file", "error", err)
		l.metrics.Navigation("fetch_error")
		return err
	}

	var init Initializer
	if scriptPath != "" {
		init, err = l.resolve(ctx, scriptPath)
		if err != nil {
			log.Error("error loading script", "error", err)
			l.metrics.Navigation("script_error")
			return err
		}
	}

	if !l.swap(token, content) {
		log.Debug("navigation superseded")
		l.metrics.Navigation("superseded")
		return ErrSuperseded
	}

	if init != nil {
		if l.latest.Load() != token {
			log.Debug("navigation superseded before initializer")
			l.metrics.Navigation("superseded")
			return ErrSuperseded
		}

		if err := init(ctx, content); err != nil {
			log.Error("fragment initializer failed", "error", err)
			l.metrics.Navigation("init_error")
			return fmt.Errorf("fragment: initialize %s: %w", scriptPath, err)
		}
	}

	log.Debug("fragment loaded", "bytes", len(content.Markup))
	l.metrics.Navigation("ok")

	return nil
}

func (l *Loader) resolve(ctx context.Context, scriptPath string) (Initializer, error) {
	if l.resolver == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScript, scriptPath)
	}

	return l.resolver.Resolve(ctx, scriptPath)
}

// swap replaces the content if token is still the latest one issued.
func (l *Loader) swap(token uint64, content Content) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.latest.Load() != token {
		return false
	}

	l.current = content
	l.container.Replace(content)

	return true
}
