package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Handler runs one procedure. C is the per-request context the router was
// built for; input is the decoded "json" member of the request payload and is
// nil when the caller sent none.
type Handler[C any] func(ctx context.Context, c C, input json.RawMessage) (any, error)

type Middleware[C any] func(next Handler[C]) Handler[C]

type Router[C any] struct {
	mu         sync.RWMutex
	procedures map[string]Handler[C]
}

func NewRouter[C any]() *Router[C] {
	return &Router[C]{procedures: make(map[string]Handler[C])}
}

// Query registers a read-only procedure. Middlewares run outermost first.
func (r *Router[C]) Query(path string, h Handler[C], mw ...Middleware[C]) {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.procedures[path]; exists {
		panic(fmt.Sprintf("rpc: procedure %q registered twice", path))
	}
	r.procedures[path] = h
}

// Call invokes a procedure in-process, bypassing the HTTP transport.
func (r *Router[C]) Call(ctx context.Context, c C, path string, input json.RawMessage) (any, error) {
	r.mu.RLock()
	h, ok := r.procedures[path]
	r.mu.RUnlock()
	if !ok {
		return nil, NewError(CodeNotFound, fmt.Sprintf(`No "query"-procedure on path "%s"`, path))
	}
	return h(ctx, c, input)
}
