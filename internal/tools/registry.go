// Package tools maps provider tool names to their executors. The registry
// is the seam the transport layer calls through; real provider adapters
// register themselves here, tests register fakes.
package tools

import (
	"context"
	"fmt"
	"sync"

	id "procura/pkg/domain"
	dErrors "procura/pkg/domain-errors"
)

// Func runs one tool invocation.
type Func func(ctx context.Context, args map[string]any) (any, error)

type Registry struct {
	mu    sync.RWMutex
	tools map[string]Func
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Func)}
}

func key(provider id.Provider, tool string) string {
	return fmt.Sprintf("%s_%s", provider, tool)
}

// Register binds an executor to a provider tool, replacing any previous one.
func (r *Registry) Register(provider id.Provider, tool string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[key(provider, tool)] = fn
}

// Execute dispatches to the registered executor.
func (r *Registry) Execute(ctx context.Context, provider id.Provider, tool string, args map[string]any) (any, error) {
	r.mu.RLock()
	fn, ok := r.tools[key(provider, tool)]
	r.mu.RUnlock()

	if !ok {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "no executor registered for tool %q", key(provider, tool))
	}
	return fn(ctx, args)
}
