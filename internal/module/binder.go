package module

// LibraryHandle is an opaque, bound shared library. Its concrete type is
// chosen by the Binder implementation (a *plugin.Plugin for PluginBinder,
// an in-memory fixture in tests).
type LibraryHandle interface{}

// Dependency is one entry of a module's declared dependency list.
type Dependency struct {
	Name     string
	Required Version
}

// Declarative ABI function types, one per required/optional symbol a
// module's library exports (spec.md §6).
type (
	NameFunc        func() string
	AuthorFunc      func() string
	DescriptionFunc func() string
	VersionFunc     func() Version
	DependsFunc     func() []Dependency
	InitializerFunc func() bool
	FinalizerFunc   func()
)

// Metadata is the declarative information read out of a module's library
// during resolution, before its initializer runs.
type Metadata struct {
	Name        string
	Author      string
	Description string
	Version     Version
	BCVersion   Version
	Depends     []Dependency
}

// Binder performs the two-phase bind described in spec.md §4.4: Open plus
// ReadMetadata corresponds to the "lazy" pass (just enough to read the six
// declarative symbols), and LookupInitializer/LookupFinalizer correspond to
// the "immediate" pass performed once a module's dependencies are already
// satisfied. Swapping the implementation is what makes the module graph's
// resolution algorithm testable without real shared-library files on disk.
type Binder interface {
	Open(path string) (LibraryHandle, error)
	ReadMetadata(handle LibraryHandle) (Metadata, error)
	LookupInitializer(handle LibraryHandle) (InitializerFunc, error)
	LookupFinalizer(handle LibraryHandle) (FinalizerFunc, error)
	Lookup(handle LibraryHandle, symbol string) (interface{}, error)
}
