// Package hook implements the named synchronous pub-sub registry: hooks are
// created by name, listeners attach to a hook in a fixed order, and
// triggering a hook dispatches its payload to every currently attached
// listener synchronously and in that order.
//
// Dispatch takes a snapshot of listener identities at the moment it begins.
// Listeners attached by a reentrant call during dispatch are not invoked
// until the next trigger; listeners detached during dispatch are skipped if
// they have not fired yet. This is the registry's central invariant (I5)
// and the reason entries are never iterated directly off the live slice.
package hook

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/modcore/modcore/internal/logger"
)

// Listener is a hook callback. ctx is the opaque context value supplied at
// attach time; payload is whatever positional values the triggerer passed,
// typed by convention between triggerer and listener.
type Listener func(ctx interface{}, payload ...interface{})

type entry struct {
	seq     uint64 // monotonic attach order, used to build dispatch snapshots
	fn      Listener
	context interface{}
}

func (e entry) identity() (uintptr, interface{}) {
	return reflect.ValueOf(e.fn).Pointer(), e.context
}

// Registry is the hook table. The zero value is not usable; use New.
type Registry struct {
	mu      sync.Mutex
	hooks   map[string][]entry
	nextSeq uint64
}

// New creates an empty hook registry.
func New() *Registry {
	return &Registry{hooks: make(map[string][]entry)}
}

// Add creates an empty listener list for name. It fails if name already
// exists.
func (r *Registry) Add(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.hooks[name]; exists {
		return fmt.Errorf("hook: %q already exists", name)
	}
	r.hooks[name] = nil
	return nil
}

// Remove drops a hook and all of its listeners. It fails if name is absent.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.hooks[name]; !exists {
		return fmt.Errorf("hook: %q does not exist", name)
	}
	delete(r.hooks, name)
	return nil
}

// Attach appends a listener to a hook's list. It fails if the hook is
// absent. Attaching the same (fn, context) pair twice is permitted; both
// entries are kept and a later Detach removes only one.
func (r *Registry) Attach(name string, fn Listener, context interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	list, exists := r.hooks[name]
	if !exists {
		return fmt.Errorf("hook: attach to unknown hook %q", name)
	}
	r.nextSeq++
	r.hooks[name] = append(list, entry{seq: r.nextSeq, fn: fn, context: context})
	return nil
}

// Detach removes the first entry matching both fn identity and context by
// equality. It fails if no such entry is found.
func (r *Registry) Detach(name string, fn Listener, context interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	list, exists := r.hooks[name]
	if !exists {
		return fmt.Errorf("hook: detach from unknown hook %q", name)
	}

	want := entry{fn: fn, context: context}
	wantPtr, wantCtx := want.identity()

	for i, e := range list {
		ePtr, eCtx := e.identity()
		if ePtr == wantPtr && eCtx == wantCtx {
			r.hooks[name] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("hook: listener not attached to %q", name)
}

// Trigger dispatches payload to every listener attached to name at the
// moment Trigger begins, in attach order, and returns how many were
// notified. It fails with a sentinel error if name is unknown.
//
// The snapshot is a copy of the attach-sequence numbers present when
// dispatch begins. Before invoking each one, the live list is consulted
// again so that listeners detached mid-dispatch (by themselves or another
// listener) are skipped, and listeners attached mid-dispatch — which carry
// no sequence number in the snapshot — are never invoked in this pass.
func (r *Registry) Trigger(name string, payload ...interface{}) (int, error) {
	r.mu.Lock()
	list, exists := r.hooks[name]
	if !exists {
		r.mu.Unlock()
		return 0, fmt.Errorf("hook: no such hook %q", name)
	}
	snapshot := make([]uint64, len(list))
	for i, e := range list {
		snapshot[i] = e.seq
	}
	r.mu.Unlock()

	count := 0
	for _, seq := range snapshot {
		r.mu.Lock()
		cur, stillExists := r.hooks[name]
		if !stillExists {
			r.mu.Unlock()
			break
		}
		var found *entry
		for i := range cur {
			if cur[i].seq == seq {
				found = &cur[i]
				break
			}
		}
		r.mu.Unlock()

		if found == nil {
			continue // detached before it fired
		}
		found.fn(found.context, payload...)
		count++
	}

	logger.Hooks().Debug().Str("hook", name).Int("listeners", count).Msg("dispatched")
	return count, nil
}

// Len reports the number of listeners currently attached to name, or -1 if
// name does not exist.
func (r *Registry) Len(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	list, exists := r.hooks[name]
	if !exists {
		return -1
	}
	return len(list)
}

// Names returns every currently registered hook name, for introspection.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.hooks))
	for name := range r.hooks {
		out = append(out, name)
	}
	return out
}
