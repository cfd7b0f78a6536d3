package consumer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFuncAdapterInvokesWrappedFunction(t *testing.T) {
	var gotKey string
	var gotValue int

	ref := Func[string, int](func(key string, value int) {
		gotKey, gotValue = key, value
	})

	ref.Consume("orders", 7)
	require.Equal(t, "orders", gotKey)
	require.Equal(t, 7, gotValue)
}

func TestRegistryRegisterRejectsDuplicateKey(t *testing.T) {
	reg := NewRegistry[string, int]()
	first := Func[string, int](func(string, int) {})
	second := Func[string, int](func(string, int) {})

	require.True(t, reg.Register("orders", first))
	require.False(t, reg.Register("orders", second), "second subscriber for the same key must be rejected")
	require.True(t, reg.Contains("orders"))
	require.Equal(t, 1, reg.Len())
}

func TestRegistryUnregister(t *testing.T) {
	reg := NewRegistry[string, int]()
	require.False(t, reg.Unregister("missing"))

	reg.Register("orders", Func[string, int](func(string, int) {}))
	require.True(t, reg.Unregister("orders"))
	require.False(t, reg.Contains("orders"))
	require.False(t, reg.Unregister("orders"), "second unregister of the same key must report false")
}

func TestRegistrySnapshotAndKeysAreIndependentCopies(t *testing.T) {
	reg := NewRegistry[string, int]()
	reg.Register("a", Func[string, int](func(string, int) {}))
	reg.Register("b", Func[string, int](func(string, int) {}))

	snap := reg.Snapshot()
	require.Len(t, snap, 2)

	reg.Unregister("a")
	require.Len(t, snap, 2, "snapshot must not reflect later mutations")

	keys := reg.Keys()
	require.ElementsMatch(t, []string{"b"}, keys)
}
