// graph.go is the public contract of §4.4: request/revoke/force_unload,
// runtime dependency edges, transitive reachability, and the read-only
// metadata accessors, all guarding the need/unneed algorithms in
// resolve.go.
package module

import (
	"fmt"
	"os"
	"sync"

	"github.com/modcore/modcore/internal/logger"
	"github.com/modcore/modcore/internal/timer"
)

// rootName is the synthetic module whose outgoing edges represent
// user-requested modules (§3: "A synthetic 'core' module is the single
// root"). It cannot be requested, revoked, or appear in any dependency
// declaration.
const rootName = "core"

// Graph owns the module table and the synthetic root. It is not safe for
// concurrent use from more than one goroutine at a time — per §5 every
// graph operation is expected to run on the single event-loop thread; the
// mutex below guards against accidental concurrent access rather than
// implementing a concurrency model the core requires.
type Graph struct {
	mu         sync.Mutex
	modules    map[string]*Module
	core       *Module
	searchPath string
	binder     Binder
	timers     *timer.Scheduler
	eventSink  func(event, name string)
}

// New creates a graph containing only the synthetic core module, with
// library resolution rooted at searchPath, bound via binder (PluginBinder
// for real shared libraries; a fake Binder in tests). timers is used to
// purge a module's owned timers during teardown (§4.5's
// remove_timers_of_module).
func New(searchPath string, binder Binder, timers *timer.Scheduler) *Graph {
	core := &Module{
		Name:         rootName,
		State:        Loaded,
		dependencies: make(map[string]*Module),
		rdeps:        make(map[string]*Module),
	}
	g := &Graph{
		modules:    map[string]*Module{rootName: core},
		core:       core,
		searchPath: searchPath,
		binder:     binder,
		timers:     timers,
	}
	return g
}

// SetEventSink installs fn to be called with ("loaded", name) and
// ("unloaded", name) as modules transition, for an observer outside the
// graph (e.g. a debug/introspection surface) to relay. A nil sink, the
// default, makes notify a no-op.
func (g *Graph) SetEventSink(fn func(event, name string)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.eventSink = fn
}

func (g *Graph) notify(event, name string) {
	if g.eventSink != nil {
		g.eventSink(event, name)
	}
}

// SetSearchPath configures where library filenames are resolved from.
func (g *Graph) SetSearchPath(path string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.searchPath = path
}

// ResetSearchPath restores the default search path.
func (g *Graph) ResetSearchPath() {
	g.SetSearchPath("modules/")
}

// Request adds a root-set dependency on name. It fails if name is already
// requested, if name is "core", or if resolution fails.
func (g *Graph) Request(name string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if name == rootName {
		return fmt.Errorf("module: cannot request %q", rootName)
	}
	if _, requested := g.core.dependencies[name]; requested {
		return fmt.Errorf("module: %q already requested", name)
	}
	return g.need(name, nil, g.core)
}

// Revoke removes a root-set dependency. It fails if name was not
// requested. The root-set edge is removed before unneed is called,
// mirroring original_source/src/module.c's revokeModule ordering (see
// SPEC_FULL.md §3).
func (g *Graph) Revoke(name string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.revokeLocked(name)
}

func (g *Graph) revokeLocked(name string) error {
	if name == rootName {
		return fmt.Errorf("module: cannot revoke %q", rootName)
	}
	mod, requested := g.core.dependencies[name]
	if !requested {
		return fmt.Errorf("module: %q not requested", name)
	}
	delete(g.core.dependencies, name)
	g.unneed(mod, g.core)
	return nil
}

// ForceUnload recursively force-unloads every reverse-dependent of name,
// then revokes it from the root set if it is still present. It is the
// only sanctioned way to evict a module other modules still reference.
func (g *Graph) ForceUnload(name string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.forceUnloadLocked(name)
}

func (g *Graph) forceUnloadLocked(name string) error {
	mod, exists := g.modules[name]
	if !exists {
		return nil
	}

	for _, rdep := range snapshot(mod.rdeps) {
		if rdep.Name == rootName {
			continue
		}
		if err := g.forceUnloadLocked(rdep.Name); err != nil {
			return err
		}
	}

	if _, stillExists := g.modules[name]; !stillExists {
		return nil
	}
	if _, requested := g.core.dependencies[name]; requested {
		return g.revokeLocked(name)
	}
	return nil
}

// AddRuntimeDependency adds a Loaded-to-Loaded edge not declared
// statically. It fails if either side is missing or not Loaded, the edge
// already exists, or it would create a cycle.
func (g *Graph) AddRuntimeDependency(source, target string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	s, ok := g.modules[source]
	if !ok || s.State != Loaded {
		return fmt.Errorf("module: %q is not a loaded module", source)
	}
	t, ok := g.modules[target]
	if !ok || t.State != Loaded {
		return fmt.Errorf("module: %q is not a loaded module", target)
	}
	if _, exists := s.dependencies[target]; exists {
		return fmt.Errorf("module: dependency %s -> %s already exists", source, target)
	}
	if g.reaches(t, s) {
		return fmt.Errorf("module: adding %s -> %s would create a cycle", source, target)
	}

	s.dependencies[target] = t
	t.rdeps[source] = s
	t.rc++
	return nil
}

// CheckDependency reports whether source transitively depends on target.
func (g *Graph) CheckDependency(source, target string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	s, ok := g.modules[source]
	if !ok {
		return false
	}
	t, ok := g.modules[target]
	if !ok {
		return false
	}
	return g.reaches(s, t)
}

func (g *Graph) reaches(from, to *Module) bool {
	for _, dep := range from.dependencies {
		if dep == to || g.reaches(dep, to) {
			return true
		}
	}
	return false
}

// LookupFunction fetches an exported symbol from a module's library
// binding.
func (g *Graph) LookupFunction(moduleName, symbol string) (interface{}, error) {
	g.mu.Lock()
	mod, ok := g.modules[moduleName]
	g.mu.Unlock()

	if !ok || mod.Handle == nil {
		return nil, fmt.Errorf("module: %q is not bound", moduleName)
	}
	return g.binder.Lookup(mod.Handle, symbol)
}

// Shutdown walks root dependencies and revokes them, then asserts the
// graph is empty (only the synthetic core module remains).
func (g *Graph) Shutdown() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, name := range keys(g.core.dependencies) {
		g.revokeLocked(name)
	}

	if len(g.core.dependencies) != 0 || len(g.core.rdeps) != 0 {
		logger.Module(rootName).Fatal().Msg("invariant violation: core has dangling edges at shutdown")
		os.Exit(1)
	}
	if len(g.modules) != 1 {
		logger.Module(rootName).Fatal().Int("remaining", len(g.modules)).Msg("invariant violation: modules remain at shutdown")
		os.Exit(1)
	}
	return nil
}

// --- read-only metadata accessors ---

func (g *Graph) lookup(name string) (*Module, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	m, ok := g.modules[name]
	return m, ok
}

func (g *Graph) Author(name string) (string, bool) {
	m, ok := g.lookup(name)
	if !ok {
		return "", false
	}
	return m.Author, true
}

func (g *Graph) Description(name string) (string, bool) {
	m, ok := g.lookup(name)
	if !ok {
		return "", false
	}
	return m.Description, true
}

func (g *Graph) ModuleVersion(name string) (Version, bool) {
	m, ok := g.lookup(name)
	if !ok {
		return Version{}, false
	}
	return m.Version, true
}

func (g *Graph) BCVersion(name string) (Version, bool) {
	m, ok := g.lookup(name)
	if !ok {
		return Version{}, false
	}
	return m.BCVersion, true
}

func (g *Graph) RC(name string) (int, bool) {
	m, ok := g.lookup(name)
	if !ok {
		return 0, false
	}
	return m.rc, true
}

func (g *Graph) Dependencies(name string) []string {
	m, ok := g.lookup(name)
	if !ok {
		return nil
	}
	return m.Dependencies()
}

func (g *Graph) RDeps(name string) []string {
	m, ok := g.lookup(name)
	if !ok {
		return nil
	}
	return m.RDeps()
}

// ActiveModules returns the names of every module in the graph except the
// synthetic core root.
func (g *Graph) ActiveModules() []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]string, 0, len(g.modules))
	for name := range g.modules {
		if name != rootName {
			out = append(out, name)
		}
	}
	return out
}

func (g *Graph) IsLoaded(name string) bool {
	m, ok := g.lookup(name)
	return ok && m.State == Loaded
}

func (g *Graph) IsRequested(name string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, requested := g.core.dependencies[name]
	return requested
}

func snapshot(m map[string]*Module) []*Module {
	out := make([]*Module, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}
