// resolve.go implements the two recursive primitives at the heart of the
// module graph: need (resolution) and unneed (teardown), translated from
// original_source/src/module.c's needModule/unneedModule. Both are called
// only while g.mu is already held by the exported entry point.
package module

import (
	"fmt"
	"os"

	"github.com/modcore/modcore/internal/logger"
	"github.com/modcore/modcore/internal/version"
)

// need resolves a dependency on name, required at version requirement (nil
// if no requirement), on behalf of parent. It implements the three cases
// of spec.md §4.4: module absent, module already Loaded, and module
// present but not yet Loaded (a circular dependency).
func (g *Graph) need(name string, requirement *version.Version, parent *Module) error {
	if mod, exists := g.modules[name]; exists {
		if mod.State != Loaded {
			// self is an ancestor of the current call on the resolution
			// stack: a circular dependency.
			return fmt.Errorf("module: circular dependency on %q", name)
		}
		if requirement != nil && !version.Satisfies(*requirement, mod.BCVersion, mod.Version) {
			return fmt.Errorf("module: %q version %s (bc %s) does not satisfy requirement %s",
				name, mod.Version, mod.BCVersion, *requirement)
		}
		mod.rc++
		g.addEdge(parent, mod)
		return nil
	}

	return g.needAbsent(name, requirement, parent)
}

func (g *Graph) needAbsent(name string, requirement *version.Version, parent *Module) error {
	mod := &Module{
		Name:         name,
		State:        Loading,
		rc:           1, // accounts for the parent edge added at the end of this function
		dependencies: make(map[string]*Module),
		rdeps:        make(map[string]*Module),
	}
	g.modules[name] = mod
	mod.DLName = g.searchPath + LibraryPrefix() + name + LibrarySuffix()

	lib, err := g.binder.Open(mod.DLName)
	if err != nil {
		delete(g.modules, name)
		return err
	}

	meta, err := g.binder.ReadMetadata(lib)
	if err != nil {
		delete(g.modules, name)
		return err
	}
	if meta.Name != name {
		delete(g.modules, name)
		return fmt.Errorf("module: library %s declares name %q, expected %q", mod.DLName, meta.Name, name)
	}
	if requirement != nil && !version.Satisfies(*requirement, meta.BCVersion, meta.Version) {
		delete(g.modules, name)
		return fmt.Errorf("module: available %q version %s (bc %s) does not satisfy requirement %s",
			name, meta.Version, meta.BCVersion, *requirement)
	}

	mod.Author = meta.Author
	mod.Description = meta.Description
	mod.Version = meta.Version
	mod.BCVersion = meta.BCVersion

	for _, dep := range meta.Depends {
		required := dep.Required
		if err := g.need(dep.Name, &required, mod); err != nil {
			g.unneed(mod, parent)
			return err
		}
	}

	initializer, err := g.binder.LookupInitializer(lib)
	if err != nil {
		g.unneed(mod, parent)
		return err
	}
	if !initializer() {
		g.unneed(mod, parent)
		return fmt.Errorf("module: initializer for %q returned false", name)
	}

	finalizer, err := g.binder.LookupFinalizer(lib)
	if err != nil {
		g.unneed(mod, parent)
		return err
	}

	mod.Handle = lib
	mod.finalizer = finalizer
	mod.State = Loaded
	logLoaded(mod)
	g.notify("loaded", mod.Name)

	g.addEdge(parent, mod)
	return nil
}

func (g *Graph) addEdge(parent, mod *Module) {
	parent.dependencies[mod.Name] = mod
	mod.rdeps[parent.Name] = parent
}

// unneed tears down self's edge to parent, decrementing self's reference
// count. If the count has not reached zero, self is still needed by
// someone else and nothing further happens. Otherwise self is finalized
// (if it ever reached Loaded), its owned timers are purged, its library is
// unbound, it is removed from the graph, and unneed recurses over its own
// dependencies — so a module's teardown always cascades exactly once
// through everything it held onto.
func (g *Graph) unneed(self, parent *Module) {
	delete(self.rdeps, parent.Name)
	self.rc--
	if self.rc > 0 {
		return
	}

	log := logger.Module(self.Name)
	if self.State == Loaded {
		self.State = Finalizing
		if self.finalizer != nil {
			self.finalizer()
		}
		if g.timers != nil {
			removed := g.timers.RemoveOwned(self.Name)
			if removed > 0 {
				log.Debug().Int("removed", removed).Msg("purged owned timers on unload")
			}
		}
		logUnloaded(self)
		g.notify("unloaded", self.Name)
	}

	self.Handle = nil // unbind: Go's plugin package has no unload primitive

	if _, exists := g.modules[self.Name]; !exists {
		log.Fatal().Msg("invariant violation: module absent from table during removal")
		os.Exit(1)
	}
	delete(g.modules, self.Name)
	self.State = Unloaded

	for _, dep := range snapshot(self.dependencies) {
		g.unneed(dep, self)
	}
}
