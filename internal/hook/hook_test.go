package hook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAttachTriggerOrder(t *testing.T) {
	r := New()
	require.NoError(t, r.Add("h"))

	var order []string
	l1 := func(ctx interface{}, payload ...interface{}) { order = append(order, "L1") }
	l2 := func(ctx interface{}, payload ...interface{}) { order = append(order, "L2") }

	require.NoError(t, r.Attach("h", l1, nil))
	require.NoError(t, r.Attach("h", l2, nil))

	n, err := r.Trigger("h")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"L1", "L2"}, order)
}

func TestTriggerUnknownHook(t *testing.T) {
	r := New()
	_, err := r.Trigger("missing")
	assert.Error(t, err)
}

func TestAttachUnknownHookFails(t *testing.T) {
	r := New()
	err := r.Attach("missing", func(ctx interface{}, payload ...interface{}) {}, nil)
	assert.Error(t, err)
}

func TestDetachIdempotence(t *testing.T) {
	r := New()
	require.NoError(t, r.Add("h"))
	err := r.Detach("h", func(ctx interface{}, payload ...interface{}) {}, nil)
	assert.Error(t, err, "detaching a listener never attached is a no-op failure")
}

// TestReentrantAttachDetach reproduces spec scenario 4 (hook reentrancy):
// L1 attaches L2 and detaches itself when fired; L3 is attached after L1.
// The first Trigger must fire L1 then L3, but not L2 (added during
// dispatch). A second Trigger must then fire L3 and L2, in attach order.
func TestReentrantAttachDetach(t *testing.T) {
	r := New()
	require.NoError(t, r.Add("h"))

	var fired []string
	var l1, l2, l3 Listener

	l2 = func(ctx interface{}, payload ...interface{}) { fired = append(fired, "L2") }
	l3 = func(ctx interface{}, payload ...interface{}) { fired = append(fired, "L3") }
	l1 = func(ctx interface{}, payload ...interface{}) {
		fired = append(fired, "L1")
		require.NoError(t, r.Attach("h", l2, nil))
		require.NoError(t, r.Detach("h", l1, nil))
	}

	require.NoError(t, r.Attach("h", l1, nil))
	require.NoError(t, r.Attach("h", l3, nil))

	n, err := r.Trigger("h")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"L1", "L3"}, fired)

	fired = nil
	n, err = r.Trigger("h")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"L3", "L2"}, fired)
}

func TestDuplicateAttachDetachesOnlyOne(t *testing.T) {
	r := New()
	require.NoError(t, r.Add("h"))

	l := func(ctx interface{}, payload ...interface{}) {}
	require.NoError(t, r.Attach("h", l, "ctx"))
	require.NoError(t, r.Attach("h", l, "ctx"))
	assert.Equal(t, 2, r.Len("h"))

	require.NoError(t, r.Detach("h", l, "ctx"))
	assert.Equal(t, 1, r.Len("h"))
}
