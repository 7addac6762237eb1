package xcall

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modcore/modcore/internal/store"
)

func TestRegisterInvokeUnregister(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("echo", func(req *store.Value) *store.Value {
		resp := store.Array()
		_ = store.SetPath(resp, "echoed", store.GetPath(req, "value"))
		return resp
	}))

	req := Request("echo")
	require.NoError(t, store.SetPath(req, "value", store.Str("hi")))

	resp := r.Invoke(req)
	got, ok := store.GetPath(resp, "echoed").AsStr()
	require.True(t, ok)
	assert.Equal(t, "hi", got)

	require.NoError(t, r.Unregister("echo"))
	err := r.Unregister("echo")
	assert.Error(t, err)
}

func TestInvokeUnknownFunctionSetsError(t *testing.T) {
	r := New()
	resp := r.Invoke(Request("does-not-exist"))

	errStr, ok := store.GetPath(resp, "xcall/error").AsStr()
	require.True(t, ok)
	assert.Contains(t, errStr, "does-not-exist")
}

func TestDuplicateRegisterFails(t *testing.T) {
	r := New()
	noop := func(req *store.Value) *store.Value { return store.Array() }
	require.NoError(t, r.Register("f", noop))
	assert.Error(t, r.Register("f", noop))
}
