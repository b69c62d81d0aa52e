// Package event implements the tick-indexed event queue (spec §4.C): a
// priority queue of Activate, PotentialPulse, and ExecuteGene events
// ordered by (execution_tick, sequence_id).
//
// This is a direct generalization of the teacher's
// neuron/signal_scheduler.go SignalQueue/SignalScheduler: the same
// container/heap + mutex + atomic-sequence-counter shape, but keyed on
// a discrete tick instead of a wall-clock time.Time delivery instant.
package event

import (
	"container/heap"
	"sync"
	"sync/atomic"
)

// Kind discriminates the three event payload shapes named in spec §3.
type Kind int

const (
	KindActivate Kind = iota
	KindPotentialPulse
	KindExecuteGene
)

func (k Kind) String() string {
	switch k {
	case KindActivate:
		return "Activate"
	case KindPotentialPulse:
		return "PotentialPulse"
	case KindExecuteGene:
		return "ExecuteGene"
	default:
		return "Unknown"
	}
}

// GeneContext mirrors the execution context tag carried by ExecuteGene
// events (spec §4.H).
type GeneContext int

const (
	ContextSystem GeneContext = iota
	ContextProtected
	ContextGeneral
)

// Event is a single scheduled occurrence. SequenceID is assigned by the
// Queue at push time and is never set by callers.
type Event struct {
	SequenceID    uint64
	ExecutionTick uint64
	Kind          Kind
	TargetID      uint64

	// PulseAmount is populated for KindPotentialPulse.
	PulseAmount float32

	// GeneID and GeneCtx are populated for KindExecuteGene.
	GeneID  uint32
	GeneCtx GeneContext
}

// heapSlice implements heap.Interface ordered by (ExecutionTick,
// SequenceID) ascending, exactly as the teacher's SignalQueue orders by
// (DeliveryTime, Priority).
type heapSlice []*Event

func (h heapSlice) Len() int { return len(h) }

func (h heapSlice) Less(i, j int) bool {
	if h[i].ExecutionTick != h[j].ExecutionTick {
		return h[i].ExecutionTick < h[j].ExecutionTick
	}
	return h[i].SequenceID < h[j].SequenceID
}

func (h heapSlice) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *heapSlice) Push(x interface{}) {
	*h = append(*h, x.(*Event))
}

func (h *heapSlice) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// Queue is a thread-safe, tick-indexed min-heap of events. Push is safe
// to call concurrently (the sequence counter is atomic); all other
// operations are expected to run under the World's lock, matching spec
// §5's shared-resource policy.
type Queue struct {
	mu       sync.Mutex
	heap     heapSlice
	sequence uint64

	totalPushed    int64
	totalProcessed int64
}

// New constructs an empty queue.
func New() *Queue {
	q := &Queue{heap: make(heapSlice, 0, 64)}
	heap.Init(&q.heap)
	return q
}

// Push assigns the next monotonic sequence id and enqueues the event.
// Multiple goroutines may call Push concurrently.
func (q *Queue) Push(e Event) uint64 {
	seq := atomic.AddUint64(&q.sequence, 1)
	e.SequenceID = seq

	q.mu.Lock()
	heap.Push(&q.heap, &e)
	q.mu.Unlock()

	atomic.AddInt64(&q.totalPushed, 1)
	return seq
}

// ProcessDue pops every event whose ExecutionTick <= currentTick,
// partitioning by kind into pulses and others. Late events (scheduled
// for a tick already passed) are processed as if due now, never
// dropped. Within each output slice, events retain ascending
// SequenceID order (the heap already produces ascending
// (tick, sequence) order, and pulses/others is a stable partition of
// that order).
func (q *Queue) ProcessDue(currentTick uint64) (pulses []Event, others []Event) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.heap.Len() > 0 {
		next := q.heap[0]
		if next.ExecutionTick > currentTick {
			break
		}
		popped := heap.Pop(&q.heap).(*Event)
		switch popped.Kind {
		case KindPotentialPulse:
			pulses = append(pulses, *popped)
		default:
			others = append(others, *popped)
		}
		atomic.AddInt64(&q.totalProcessed, 1)
	}
	return pulses, others
}

// PendingAt returns a snapshot of events scheduled for exactly the given
// tick, for the read-only query surface (spec §6 "Event visibility").
// It does not mutate the queue.
func (q *Queue) PendingAt(tick uint64) []Event {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []Event
	for _, e := range q.heap {
		if e.ExecutionTick == tick {
			out = append(out, *e)
		}
	}
	return out
}

// Len reports the number of events currently queued.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.heap.Len()
}

// Stats returns lifetime push/process counters for metrics and
// debugging, mirroring the teacher's GetQueueStats.
func (q *Queue) Stats() (pushed, processed int64) {
	return atomic.LoadInt64(&q.totalPushed), atomic.LoadInt64(&q.totalProcessed)
}
