// Package xcall implements the cross-module invocation registry: named
// functions that take a request ValueTree and return a response ValueTree.
//
// The registration/locking/namespacing shape is grounded on
// internal/plugins/api_registry.go's APIRegistry (name -> handler under a
// mutex, register/unregister/lookup), adapted from HTTP-route dispatch to
// by-name RPC dispatch against store.Value trees.
package xcall

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/modcore/modcore/internal/logger"
	"github.com/modcore/modcore/internal/store"
)

// Handler answers an xcall request tree with a response tree.
type Handler func(request *store.Value) *store.Value

// Registry is the name -> Handler table. The zero value is not usable; use
// New.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// New creates an empty xcall registry.
func New() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register installs handler under name. It fails if name is already taken.
func (r *Registry) Register(name string, handler Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[name]; exists {
		return fmt.Errorf("xcall: %q already registered", name)
	}
	r.handlers[name] = handler
	return nil
}

// Unregister removes name. It fails if name was not registered.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[name]; !exists {
		return fmt.Errorf("xcall: %q not registered", name)
	}
	delete(r.handlers, name)
	return nil
}

// Invoke looks up the handler named by request's "xcall/function" path and
// calls it with the full request tree. If the name is unknown, the response
// is an Array with "xcall/error" set and the handler is never called. The
// registry owns neither tree — they are moved through it to and from the
// handler.
func (r *Registry) Invoke(request *store.Value) *store.Value {
	id := uuid.New()

	fnValue := store.GetPath(request, "xcall/function")
	name, ok := fnValue.AsStr()
	if !ok {
		logger.XCalls().Warn().Str("invocation", id.String()).Msg("request missing xcall/function")
		resp := store.Array()
		_ = store.SetPath(resp, "xcall/error", store.Str("missing xcall/function"))
		return resp
	}

	r.mu.RLock()
	handler, exists := r.handlers[name]
	r.mu.RUnlock()

	if !exists {
		logger.XCalls().Warn().Str("invocation", id.String()).Str("function", name).Msg("unknown xcall")
		resp := store.Array()
		_ = store.SetPath(resp, "xcall/error", store.Str(fmt.Sprintf("unknown xcall %q", name)))
		return resp
	}

	logger.XCalls().Debug().Str("invocation", id.String()).Str("function", name).Msg("dispatching")
	return handler(request)
}

// Names returns every currently registered xcall function name, for
// introspection.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		out = append(out, name)
	}
	return out
}

// Request builds a minimal xcall request tree naming function.
func Request(function string) *store.Value {
	req := store.Array()
	_ = store.SetPath(req, "xcall/function", store.Str(function))
	return req
}
