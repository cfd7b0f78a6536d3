package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEnqueueDequeueFIFO(t *testing.T) {
	q := New[string](3, OSThread)

	_, ok := q.Dequeue()
	require.False(t, ok)

	require.True(t, q.Enqueue("one"))
	require.True(t, q.Enqueue("two"))
	require.True(t, q.Enqueue("three"))
	require.False(t, q.Enqueue("four"), "queue should reject enqueue past capacity")

	for _, want := range []string{"one", "two", "three"} {
		got, ok := q.Dequeue()
		require.True(t, ok)
		require.Equal(t, want, got)
	}

	_, ok = q.Dequeue()
	require.False(t, ok)
}

func TestConsumeOneWithoutWaitingReturnsFalseOnEmpty(t *testing.T) {
	q := New[int](4, Cooperative)
	ok := q.ConsumeOne(func(int) { t.Fatal("callback should not run on empty queue") })
	require.False(t, ok)
}

func TestConsumeAllDrainsEverythingAtOnce(t *testing.T) {
	q := New[int](8, OSThread)
	for i := 0; i < 5; i++ {
		require.True(t, q.Enqueue(i))
	}

	var consumed []int
	n := q.ConsumeAll(func(v int) { consumed = append(consumed, v) })

	require.Equal(t, 5, n)
	require.Equal(t, []int{0, 1, 2, 3, 4}, consumed)
	require.Equal(t, 0, q.Len())
}

func TestConsumeAllBlocksUntilEnqueueWhenWaitingEnabled(t *testing.T) {
	q := New[int](4, OSThread)
	q.EnableWaiting()

	var consumed []int
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		q.ConsumeAll(func(v int) { consumed = append(consumed, v) })
	}()

	time.Sleep(10 * time.Millisecond)
	require.True(t, q.Enqueue(42))
	wg.Wait()

	require.Equal(t, []int{42}, consumed)
}

func TestDisableWaitingUnblocksConsumer(t *testing.T) {
	q := New[int](4, OSThread)
	q.EnableWaiting()

	done := make(chan bool, 1)
	go func() {
		done <- q.ConsumeOne(func(int) {})
	}()

	time.Sleep(10 * time.Millisecond)
	q.DisableWaiting()

	select {
	case ok := <-done:
		require.False(t, ok, "ConsumeOne should return false once waiting is disabled on an empty queue")
	case <-time.After(time.Second):
		t.Fatal("ConsumeOne did not unblock after DisableWaiting")
	}
}

func TestModeIsPreservedAndDoesNotAffectBehavior(t *testing.T) {
	osq := New[int](2, OSThread)
	coop := New[int](2, Cooperative)

	require.Equal(t, OSThread, osq.Mode())
	require.Equal(t, Cooperative, coop.Mode())

	require.True(t, osq.Enqueue(1))
	require.True(t, coop.Enqueue(1))
}
