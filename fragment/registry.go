package fragment

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownScript is returned when no initializer is registered for a
// script path.
var ErrUnknownScript = errors.New("fragment: no initializer registered for script")

// Initializer runs fragment-specific setup after the fragment has been
// swapped in. It receives the new content.
type Initializer func(ctx context.Context, content Content) error

// Resolver maps a script path to its initializer.
type Resolver interface {
	Resolve(ctx context.Context, scriptPath string) (Initializer, error)
}

// Registry is a Resolver backed by initializers registered ahead of time.
// It is safe for concurrent use.
type Registry struct {
	mu           sync.RWMutex
	initializers map[string]Initializer
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		initializers: make(map[string]Initializer),
	}
}

// Register binds init to scriptPath, replacing any previous binding.
// Paths are compared after CleanPath. A nil init removes the binding.
func (r *Registry) Register(scriptPath string, init Initializer) {
	key := CleanPath(scriptPath)

	r.mu.Lock()
	defer r.mu.Unlock()

	if init == nil {
		delete(r.initializers, key)
		return
	}

	r.initializers[key] = init
}

// Resolve returns the initializer for scriptPath.
func (r *Registry) Resolve(_ context.Context, scriptPath string) (Initializer, error) {
	r.mu.RLock()
	init, ok := r.initializers[CleanPath(scriptPath)]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScript, scriptPath)
	}

	return init, nil
}

// Scripts returns the registered script paths in sorted order.
func (r *Registry) Scripts() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.initializers))
	for k := range r.initializers {
		out = append(out, k)
	}
	sort.Strings(out)

	return out
}
