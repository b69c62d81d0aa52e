package event

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessDuePartitionsByKind(t *testing.T) {
	q := New()
	q.Push(Event{ExecutionTick: 5, Kind: KindActivate, TargetID: 1})
	q.Push(Event{ExecutionTick: 5, Kind: KindPotentialPulse, TargetID: 2, PulseAmount: 1.5})
	q.Push(Event{ExecutionTick: 5, Kind: KindExecuteGene, TargetID: 3, GeneID: 2})

	pulses, others := q.ProcessDue(5)
	require.Len(t, pulses, 1)
	require.Len(t, others, 2)
	assert.Equal(t, float32(1.5), pulses[0].PulseAmount)
}

func TestLateEventsAreProcessedNotDropped(t *testing.T) {
	q := New()
	q.Push(Event{ExecutionTick: 2, Kind: KindActivate})

	pulses, others := q.ProcessDue(10)
	assert.Empty(t, pulses)
	require.Len(t, others, 1)
}

func TestFutureEventsAreNotPopped(t *testing.T) {
	q := New()
	q.Push(Event{ExecutionTick: 10, Kind: KindActivate})

	_, others := q.ProcessDue(5)
	assert.Empty(t, others)
	assert.Equal(t, 1, q.Len())
}

func TestSequenceOrderWithinTick(t *testing.T) {
	q := New()
	for i := 0; i < 5; i++ {
		q.Push(Event{ExecutionTick: 1, Kind: KindActivate, TargetID: uint64(i)})
	}
	_, others := q.ProcessDue(1)
	require.Len(t, others, 5)
	for i := 1; i < len(others); i++ {
		assert.Less(t, others[i-1].SequenceID, others[i].SequenceID)
	}
}

func TestConcurrentPushAssignsUniqueSequenceIDs(t *testing.T) {
	q := New()
	var wg sync.WaitGroup
	n := 200
	ids := make(chan uint64, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- q.Push(Event{ExecutionTick: 1, Kind: KindActivate})
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[uint64]bool{}
	for id := range ids {
		require.False(t, seen[id], "duplicate sequence id %d", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)
}

func TestPendingAtDoesNotMutate(t *testing.T) {
	q := New()
	q.Push(Event{ExecutionTick: 3, Kind: KindActivate})
	snap := q.PendingAt(3)
	require.Len(t, snap, 1)
	assert.Equal(t, 1, q.Len())
}
