package module

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modcore/modcore/internal/version"
)

// TestLinearChain reproduces spec scenario 1: top -> mid -> bottom.
func TestLinearChain(t *testing.T) {
	b := newFakeBinder()
	var initOrder, finalOrder []string

	b.register("bottom", &fakeLibrary{initOK: true, hasFinalizer: true,
		onInit: func() { initOrder = append(initOrder, "bottom") },
		onFinalize: func() { finalOrder = append(finalOrder, "bottom") }})
	b.register("mid", &fakeLibrary{initOK: true, hasFinalizer: true,
		meta:       Metadata{Depends: []Dependency{{Name: "bottom"}}},
		onInit:     func() { initOrder = append(initOrder, "mid") },
		onFinalize: func() { finalOrder = append(finalOrder, "mid") }})
	b.register("top", &fakeLibrary{initOK: true, hasFinalizer: true,
		meta:       Metadata{Depends: []Dependency{{Name: "mid"}}},
		onInit:     func() { initOrder = append(initOrder, "top") },
		onFinalize: func() { finalOrder = append(finalOrder, "top") }})

	g := newTestGraph(b)
	require.NoError(t, g.Request("top"))

	assert.ElementsMatch(t, []string{"top", "mid", "bottom"}, g.ActiveModules())
	rc, _ := g.RC("bottom")
	assert.Equal(t, 1, rc)
	rc, _ = g.RC("mid")
	assert.Equal(t, 1, rc)
	rc, _ = g.RC("top")
	assert.Equal(t, 1, rc)
	assert.Equal(t, []string{"bottom", "mid", "top"}, initOrder)

	require.NoError(t, g.Revoke("top"))
	assert.Equal(t, []string{"top", "mid", "bottom"}, finalOrder)
	assert.Empty(t, g.ActiveModules())
}

// TestSharedDependency reproduces spec scenario 2.
func TestSharedDependency(t *testing.T) {
	b := newFakeBinder()
	finalized := 0

	b.register("util", &fakeLibrary{initOK: true, hasFinalizer: true,
		onFinalize: func() { finalized++ }})
	b.register("a", &fakeLibrary{initOK: true, meta: Metadata{Depends: []Dependency{{Name: "util"}}}})
	b.register("b", &fakeLibrary{initOK: true, meta: Metadata{Depends: []Dependency{{Name: "util"}}}})

	g := newTestGraph(b)
	require.NoError(t, g.Request("a"))
	require.NoError(t, g.Request("b"))

	rc, _ := g.RC("util")
	assert.Equal(t, 2, rc)

	require.NoError(t, g.Revoke("a"))
	rc, _ = g.RC("util")
	assert.Equal(t, 1, rc)
	assert.Equal(t, 0, finalized)

	require.NoError(t, g.Revoke("b"))
	assert.Equal(t, 1, finalized)
	assert.Empty(t, g.ActiveModules())
}

// TestCycleDetection reproduces spec scenario 3: x depends on y, y depends
// on x.
func TestCycleDetection(t *testing.T) {
	b := newFakeBinder()
	b.register("x", &fakeLibrary{initOK: true, meta: Metadata{Depends: []Dependency{{Name: "y"}}}})
	b.register("y", &fakeLibrary{initOK: true, meta: Metadata{Depends: []Dependency{{Name: "x"}}}})

	g := newTestGraph(b)
	err := g.Request("x")
	assert.Error(t, err)
	assert.Empty(t, g.ActiveModules())
	assert.False(t, g.IsRequested("x"))
}

// TestVersionSatisfaction reproduces spec scenario 6.
func TestVersionSatisfaction(t *testing.T) {
	b := newFakeBinder()
	b.register("lib", &fakeLibrary{initOK: true, meta: Metadata{
		Version:   version.New(1, 4, 0, 0),
		BCVersion: version.New(1, 0, 0, 0),
	}})

	okReq := version.New(1, 2, 0, 0)
	b.register("dep-ok", &fakeLibrary{initOK: true, meta: Metadata{
		Depends: []Dependency{{Name: "lib", Required: okReq}},
	}})
	tooOld := version.New(0, 9, 0, 0)
	b.register("dep-old", &fakeLibrary{initOK: true, meta: Metadata{
		Depends: []Dependency{{Name: "lib", Required: tooOld}},
	}})
	tooNew := version.New(1, 5, 0, 0)
	b.register("dep-new", &fakeLibrary{initOK: true, meta: Metadata{
		Depends: []Dependency{{Name: "lib", Required: tooNew}},
	}})

	g := newTestGraph(b)
	assert.NoError(t, g.Request("dep-ok"))

	g2 := newTestGraph(b)
	assert.Error(t, g2.Request("dep-old"))

	g3 := newTestGraph(b)
	assert.Error(t, g3.Request("dep-new"))
}

func TestRequestCoreFails(t *testing.T) {
	g := newTestGraph(newFakeBinder())
	assert.Error(t, g.Request("core"))
}

func TestRequestTwiceFails(t *testing.T) {
	b := newFakeBinder()
	b.register("solo", &fakeLibrary{initOK: true})
	g := newTestGraph(b)

	require.NoError(t, g.Request("solo"))
	assert.Error(t, g.Request("solo"))
}

func TestInitializerFailureUnwinds(t *testing.T) {
	b := newFakeBinder()
	depFinalized := false
	b.register("dep", &fakeLibrary{initOK: true, hasFinalizer: true,
		onFinalize: func() { depFinalized = true }})
	b.register("bad", &fakeLibrary{initOK: false, meta: Metadata{Depends: []Dependency{{Name: "dep"}}}})

	g := newTestGraph(b)
	err := g.Request("bad")
	assert.Error(t, err)
	assert.Empty(t, g.ActiveModules())
	assert.True(t, depFinalized, "dep's finalizer must run as part of the unwind")
}

// TestLoadUnloadRoundTrip reproduces law L1.
func TestLoadUnloadRoundTrip(t *testing.T) {
	b := newFakeBinder()
	b.register("m", &fakeLibrary{initOK: true})
	g := newTestGraph(b)

	require.NoError(t, g.Request("m"))
	require.NoError(t, g.Revoke("m"))
	assert.Empty(t, g.ActiveModules())
	assert.False(t, g.IsRequested("m"))
}

func TestRevokeUnrequestedFails(t *testing.T) {
	g := newTestGraph(newFakeBinder())
	assert.Error(t, g.Revoke("never-requested"))
}

func TestForceUnloadEvictsDependents(t *testing.T) {
	b := newFakeBinder()
	b.register("base", &fakeLibrary{initOK: true})
	b.register("top", &fakeLibrary{initOK: true, meta: Metadata{Depends: []Dependency{{Name: "base"}}}})

	g := newTestGraph(b)
	require.NoError(t, g.Request("top"))

	require.NoError(t, g.ForceUnload("base"))
	assert.Empty(t, g.ActiveModules())
}

func TestAddRuntimeDependencyDetectsCycle(t *testing.T) {
	b := newFakeBinder()
	b.register("a", &fakeLibrary{initOK: true})
	b.register("b", &fakeLibrary{initOK: true})

	g := newTestGraph(b)
	require.NoError(t, g.Request("a"))
	require.NoError(t, g.Request("b"))

	require.NoError(t, g.AddRuntimeDependency("a", "b"))
	assert.True(t, g.CheckDependency("a", "b"))
	err := g.AddRuntimeDependency("b", "a")
	assert.Error(t, err, "b -> a would close a cycle since a -> b already exists")
}

func TestShutdownOnEmptyGraph(t *testing.T) {
	g := newTestGraph(newFakeBinder())
	require.NoError(t, g.Shutdown())
}

func TestEventSinkFiresOnLoadAndUnload(t *testing.T) {
	b := newFakeBinder()
	b.register("base", &fakeLibrary{initOK: true})

	g := newTestGraph(b)

	var events [][2]string
	g.SetEventSink(func(event, name string) {
		events = append(events, [2]string{event, name})
	})

	require.NoError(t, g.Request("base"))
	require.NoError(t, g.Revoke("base"))

	assert.Equal(t, [][2]string{{"loaded", "base"}, {"unloaded", "base"}}, events)
}
