package module

import (
	"fmt"

	"github.com/modcore/modcore/internal/timer"
)

// fakeLibrary is a fixture standing in for a real shared library: just
// enough of the declarative ABI plus init/finalize tracking to drive the
// module graph's resolution and teardown algorithms end to end.
type fakeLibrary struct {
	meta         Metadata
	initOK       bool
	onInit       func()
	onFinalize   func()
	hasFinalizer bool
}

// fakeBinder implements Binder over an in-memory path->fakeLibrary table,
// so graph tests can exercise need/unneed without real .so files on disk.
type fakeBinder struct {
	libs map[string]*fakeLibrary
}

func newFakeBinder() *fakeBinder {
	return &fakeBinder{libs: make(map[string]*fakeLibrary)}
}

func (b *fakeBinder) register(name string, lib *fakeLibrary) {
	lib.meta.Name = name
	path := "modules/" + LibraryPrefix() + name + LibrarySuffix()
	b.libs[path] = lib
}

func (b *fakeBinder) Open(path string) (LibraryHandle, error) {
	lib, ok := b.libs[path]
	if !ok {
		return nil, fmt.Errorf("fake: no library at %s", path)
	}
	return lib, nil
}

func (b *fakeBinder) ReadMetadata(handle LibraryHandle) (Metadata, error) {
	return handle.(*fakeLibrary).meta, nil
}

func (b *fakeBinder) LookupInitializer(handle LibraryHandle) (InitializerFunc, error) {
	lib := handle.(*fakeLibrary)
	return func() bool {
		if lib.onInit != nil {
			lib.onInit()
		}
		return lib.initOK
	}, nil
}

func (b *fakeBinder) LookupFinalizer(handle LibraryHandle) (FinalizerFunc, error) {
	lib := handle.(*fakeLibrary)
	if !lib.hasFinalizer {
		return nil, nil
	}
	return func() {
		if lib.onFinalize != nil {
			lib.onFinalize()
		}
	}, nil
}

func (b *fakeBinder) Lookup(handle LibraryHandle, symbol string) (interface{}, error) {
	return nil, fmt.Errorf("fake: symbol %s not found", symbol)
}

func newTestGraph(binder *fakeBinder) *Graph {
	return New("modules/", binder, timer.New())
}
