// Package module implements the module graph: a reference-counted DAG of
// dynamically bound modules with forward (dependencies) and reverse
// (rdeps) edges, a four-state lifecycle, versioned dependency resolution
// and dynamic-library binding.
//
// The recursive resolution (need) and teardown (unneed) algorithms are
// grounded on original_source/src/module.c's needModule/unneedModule; the
// surrounding struct shape (a mutex-guarded name -> *Module map, metadata
// fields mirroring a loaded extension's manifest) follows
// internal/plugins/runtime.go's LoadedPlugin/Runtime. Dynamic-library
// binding uses the standard library's plugin package, the same mechanism
// internal/plugins/discovery.go uses for the teacher's own plugin loading.
package module

import (
	"github.com/modcore/modcore/internal/version"
)

// Version is this package's alias for the shared four-part version type.
type Version = version.Version

// State is a module's position in its lifecycle.
type State int

const (
	Loading State = iota
	Loaded
	Finalizing
	Unloaded
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Finalizing:
		return "finalizing"
	case Unloaded:
		return "unloaded"
	default:
		return "unknown"
	}
}

// Module is one node of the graph.
type Module struct {
	Name        string
	DLName      string
	Handle      LibraryHandle // nil while not bound (synthetic core, or torn down)
	Author      string
	Description string
	Version     Version
	BCVersion   Version
	State       State
	SkipReload  bool // platform quirk flag (mirrors Windows' single-bind limitation in the original); the graph itself never sets or reads it

	rc           int
	dependencies map[string]*Module
	rdeps        map[string]*Module
	finalizer    FinalizerFunc
}

// RC returns the module's activation reference count.
func (m *Module) RC() int { return m.rc }

// Dependencies returns the names of modules m directly depends on.
func (m *Module) Dependencies() []string {
	return keys(m.dependencies)
}

// RDeps returns the names of modules that directly depend on m.
func (m *Module) RDeps() []string {
	return keys(m.rdeps)
}

func keys(m map[string]*Module) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
