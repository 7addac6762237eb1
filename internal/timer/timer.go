// Package timer implements the absolute-deadline, single-shot timer
// scheduler: an ordered set of (deadline, tiebreak) -> callback entries
// drained in deadline order by the runtime's event loop.
//
// The data structure is grounded on original_source/src/timer.c's
// GTree-of-(GTimeVal, callback), keyed on absolute time with collisions at
// an identical deadline resolved by bumping a disambiguator until a free
// slot is found. Go has no balanced-tree container in the standard
// library; this package keeps entries in a slice sorted by (deadline,
// tiebreak) instead, which is sufficient at the scale a single-process
// module runtime schedules timers (tens to low thousands of live entries)
// and keeps NextDeadline/Tick's "take the sorted prefix" logic a direct translation
// of findFirstTime/assembleReadyCallbacks.
package timer

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/modcore/modcore/internal/logger"
)

// Callback is invoked with the entry's own deadline when it fires.
type Callback func(deadline time.Time)

// Handle identifies a scheduled entry for Cancel.
type Handle uuid.UUID

type entry struct {
	deadline time.Time
	tiebreak int64 // strictly increasing in schedule order, per §5 ordering note
	handle   Handle
	callback Callback
	owner    string // module name that scheduled this entry, "" if unowned
}

// Scheduler is the timer tree plus the graceful-exit latch. The zero value
// is not usable; use New.
type Scheduler struct {
	mu       sync.Mutex
	entries  []entry // kept sorted by (deadline, tiebreak)
	nextTie  int64
	exiting  bool
	cron     *cron.Cron
	cronJobs map[string]cron.EntryID
}

// New creates an empty scheduler.
func New() *Scheduler {
	s := &Scheduler{
		cron:     cron.New(),
		cronJobs: make(map[string]cron.EntryID),
	}
	s.cron.Start()
	return s
}

// ScheduleAt inserts cb to fire at deadline, owned by the given module name
// (empty if unowned). It silently no-ops (returning the zero Handle) once
// RequestGracefulExit has been observed.
func (s *Scheduler) ScheduleAt(deadline time.Time, owner string, cb Callback) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.exiting {
		return Handle{}
	}

	s.nextTie++
	e := entry{
		deadline: deadline,
		tiebreak: s.nextTie,
		handle:   Handle(uuid.New()),
		callback: cb,
		owner:    owner,
	}
	s.insertLocked(e)
	return e.handle
}

// ScheduleAfter is a convenience for ScheduleAt(now+delta, ...).
func (s *Scheduler) ScheduleAfter(delta time.Duration, owner string, cb Callback) Handle {
	return s.ScheduleAt(time.Now().Add(delta), owner, cb)
}

func (s *Scheduler) insertLocked(e entry) {
	i := sort.Search(len(s.entries), func(i int) bool {
		return less(e, s.entries[i])
	})
	s.entries = append(s.entries, entry{})
	copy(s.entries[i+1:], s.entries[i:])
	s.entries[i] = e
}

func less(a, b entry) bool {
	if a.deadline.Equal(b.deadline) {
		return a.tiebreak < b.tiebreak
	}
	return a.deadline.Before(b.deadline)
}

// Cancel removes the entry for handle if still present.
func (s *Scheduler) Cancel(handle Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.entries {
		if e.handle == handle {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return true
		}
	}
	return false
}

// NextDeadline peeks the minimum key, reporting false if the scheduler is
// empty.
func (s *Scheduler) NextDeadline() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) == 0 {
		return time.Time{}, false
	}
	return s.entries[0].deadline, true
}

// HasPending reports whether any entry remains.
func (s *Scheduler) HasPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries) > 0
}

// Pending reports the number of entries currently scheduled, for
// introspection.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Tick drains all entries whose deadline is <= now, invoking each exactly
// once in deadline order. Because the entries are kept sorted, the ready
// set is always a prefix of the slice — the same "stop at the first
// not-yet-ready entry" shortcut original_source/src/timer.c's
// assembleReadyCallbacks takes over the GTree.
//
// A callback may itself schedule further callbacks; since ready entries are
// snapshotted (by count) before any callback runs, newly scheduled entries
// land after the snapshotted prefix and are never invoked in this pass,
// even if their deadline is also <= now.
func (s *Scheduler) Tick() int {
	now := time.Now()

	s.mu.Lock()
	ready := 0
	for ready < len(s.entries) && !s.entries[ready].deadline.After(now) {
		ready++
	}
	due := make([]entry, ready)
	copy(due, s.entries[:ready])
	s.entries = s.entries[ready:]
	s.mu.Unlock()

	for _, e := range due {
		e.callback(e.deadline)
	}

	if len(due) > 0 {
		logger.Timers().Debug().Int("fired", len(due)).Msg("tick drained entries")
	}
	return len(due)
}

// RequestGracefulExit sets the latch that makes ScheduleAt/ScheduleAfter
// silently no-op and signals the runtime loop to exit once the current
// drain completes.
func (s *Scheduler) RequestGracefulExit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exiting = true
}

// Exiting reports whether RequestGracefulExit has been called.
func (s *Scheduler) Exiting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exiting
}

// RemoveOwned purges every entry owned by the given module name, used by
// the module graph during teardown (§4.5's remove_timers_of_module) to
// prevent a finalized module's callbacks from firing after unload. It
// returns the number of entries removed.
func (s *Scheduler) RemoveOwned(owner string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.entries[:0]
	removed := 0
	for _, e := range s.entries {
		if e.owner == owner {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept
	return removed
}

// ScheduleCron is a convenience layered on top of the primitive scheduler:
// it runs a cron expression (robfig/cron/v3 syntax) and, on each firing,
// enqueues a single ScheduleAt entry for "now" rather than invoking cb
// directly on cron's own goroutine. This keeps every cron-driven callback
// flowing through Tick() on the single event-loop thread like any other
// timer entry, instead of introducing a second execution context.
//
// Scheduling another job under a name already in use replaces the prior
// one, mirroring PluginScheduler.Schedule's remove-then-add behavior.
func (s *Scheduler) ScheduleCron(name, expr, owner string, cb Callback) error {
	s.mu.Lock()
	if id, exists := s.cronJobs[name]; exists {
		s.cron.Remove(id)
		delete(s.cronJobs, name)
	}
	s.mu.Unlock()

	id, err := s.cron.AddFunc(expr, func() {
		s.ScheduleAt(time.Now(), owner, cb)
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.cronJobs[name] = id
	s.mu.Unlock()
	return nil
}

// RemoveCron cancels a previously scheduled cron job by name. It is a
// no-op if name is not scheduled.
func (s *Scheduler) RemoveCron(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, exists := s.cronJobs[name]; exists {
		s.cron.Remove(id)
		delete(s.cronJobs, name)
	}
}

// Close stops the underlying cron driver. Call once during runtime
// shutdown, after the event loop has exited.
func (s *Scheduler) Close() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
