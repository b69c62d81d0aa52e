package world

import (
	"github.com/hidra-sim/hidra/internal/event"
	"github.com/hidra-sim/hidra/internal/spatial"
	"github.com/hidra-sim/hidra/internal/synapse"
)

// NeuronSnapshot is a read-only, detached copy of a Neuron's state
// (spec §6 "Event visibility": "snapshot of neuron/synapse state ...
// informational only; they do not mutate state"). The LVars array and
// OwnedSynapses slice are copied so callers can never observe or
// trigger a mutation of live World state through the snapshot.
type NeuronSnapshot struct {
	ID            uint64
	Position      spatial.Position
	IsActive      bool
	LVars         [lvarCount]float32
	OwnedSynapses []uint64
	HasBrain      bool
}

// SnapshotNeuron returns a detached copy of a neuron's state, or false
// if no such neuron exists.
func (w *World) SnapshotNeuron(id uint64) (NeuronSnapshot, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	n, ok := w.neurons[id]
	if !ok {
		return NeuronSnapshot{}, false
	}
	return NeuronSnapshot{
		ID:            n.ID,
		Position:      n.Position,
		IsActive:      n.IsActive,
		LVars:         n.LVars,
		OwnedSynapses: append([]uint64(nil), n.OwnedSynapses...),
		HasBrain:      n.Brain != nil,
	}, true
}

// SynapseSnapshot is a read-only, detached copy of a Synapse's state.
type SynapseSnapshot struct {
	ID         uint64
	SourceID   uint64
	SourceKind synapse.EndpointKind
	TargetID   uint64
	TargetKind synapse.EndpointKind
	SignalType synapse.SignalType
	Weight     float32
	Parameter  float32
}

// SnapshotSynapse returns a detached copy of a synapse's state, or
// false if no such synapse exists.
func (w *World) SnapshotSynapse(id uint64) (SynapseSnapshot, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.synapses[id]
	if !ok {
		return SynapseSnapshot{}, false
	}
	return SynapseSnapshot{
		ID:         id,
		SourceID:   s.SourceID,
		SourceKind: s.SourceKind,
		TargetID:   s.TargetID,
		TargetKind: s.TargetKind,
		SignalType: s.SignalType,
		Weight:     s.Weight,
		Parameter:  s.Parameter,
	}, true
}

// PendingEventsAt lists every event scheduled for exactly the given
// tick, without mutating the queue (spec §6 "Event visibility").
func (w *World) PendingEventsAt(tick uint64) []event.Event {
	return w.eventQueue.PendingAt(tick)
}
