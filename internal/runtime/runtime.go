// Package runtime implements the runtime entry (§4.7): it owns the
// lifetimes of the timer scheduler, hook registry, xcall registry and
// module graph, requests a seed module, and drives the main loop until no
// work remains or a graceful exit has been requested.
//
// The overall shape — a struct owning every subsystem, a constructor that
// brings them up in a fixed order and a shutdown step that tears them down
// in reverse —
// follows internal/plugins/runtime.go's Runtime.Start/Stop. Unlike that
// Runtime, which has no notion of a dependency graph between plugins, the
// fixed bring-up order and the reverse-order teardown here fall directly
// out of module.Graph's own dependency resolution (§5: "module initializers
// fire in topological order of the dependency DAG... finalizers fire in
// reverse topological order").
package runtime

import (
	"time"

	"github.com/modcore/modcore/internal/hook"
	"github.com/modcore/modcore/internal/logger"
	"github.com/modcore/modcore/internal/module"
	"github.com/modcore/modcore/internal/timer"
	"github.com/modcore/modcore/internal/xcall"
)

// MinSleepTime is the lower bound on how long the loop will sleep between
// iterations, preventing busy-looping when a timer's deadline has already
// passed (§4.7).
const MinSleepTime = time.Millisecond

// Runtime owns the four core subsystems and the single event-loop thread
// that drives them.
type Runtime struct {
	Timers *timer.Scheduler
	Hooks  *hook.Registry
	XCalls *xcall.Registry
	Modules *module.Graph

	seedModule string
}

// Options configures a new Runtime.
type Options struct {
	SearchPath string
	SeedModule string
	Binder     module.Binder
}

// New initializes Timer, Hook, XCall and Module in that order, matching
// §4.7's bring-up sequence.
func New(opts Options) *Runtime {
	timers := timer.New()
	hooks := hook.New()
	xcalls := xcall.New()
	modules := module.New(opts.SearchPath, opts.Binder, timers)

	return &Runtime{
		Timers:     timers,
		Hooks:      hooks,
		XCalls:     xcalls,
		Modules:    modules,
		seedModule: opts.SeedModule,
	}
}

// Run requests the seed module and then spins: sleep until the nearest
// scheduled callback, fire all ready callbacks, repeat, until no timers
// remain pending or a graceful exit has been observed. If the seed module
// fails to load, Run returns that error at once and the shutdown step does
// not run; otherwise, on return, the module graph and timer scheduler have
// both been finalized.
func (r *Runtime) Run() error {
	log := logger.Runtime()

	if err := r.Modules.Request(r.seedModule); err != nil {
		log.Error().Err(err).Str("module", r.seedModule).Msg("seed module failed to load")
		return err
	}
	log.Info().Str("module", r.seedModule).Msg("seed module loaded")

	for r.Timers.HasPending() && !r.Timers.Exiting() {
		deadline, ok := r.Timers.NextDeadline()
		if !ok {
			break
		}
		sleep := time.Until(deadline)
		if sleep < MinSleepTime {
			sleep = MinSleepTime
		}
		time.Sleep(sleep)
		r.Timers.Tick()
	}

	log.Info().Msg("event loop drained, shutting down")
	return r.shutdown()
}

func (r *Runtime) shutdown() error {
	if err := r.Modules.Shutdown(); err != nil {
		return err
	}
	r.Timers.Close()
	return nil
}
