// Package synapse implements synapse signal semantics (spec §4.E): the
// four signal types (Immediate, Delayed, Persistent, Transient) and the
// polymorphic condition gate.
//
// Struct shape (weight, a generic delay/parameter field, volatile
// transmission state) follows the teacher's synapse/synapse.go and
// synapse/config.go; the condition hierarchy follows the design note's
// guidance to replace runtime interface dispatch with a tagged enum
// carrying per-variant fields, rather than the teacher's plasticity
// callback style.
package synapse

// SignalType names the four transmission contracts of spec §4.E.
type SignalType int

const (
	Immediate SignalType = iota
	Delayed
	Persistent
	Transient
)

func (s SignalType) String() string {
	switch s {
	case Immediate:
		return "Immediate"
	case Delayed:
		return "Delayed"
	case Persistent:
		return "Persistent"
	case Transient:
		return "Transient"
	default:
		return "Unknown"
	}
}

// TargetKind names what kind of entity a synapse's source or target is,
// used by the AddSynapse bridge API's 3-variant target-type form (spec
// §4.H, Open Question resolution).
type TargetKind int

const (
	TargetNeuron TargetKind = iota
	TargetOutput
	TargetInput
)

// EndpointKind distinguishes a synapse's source being a Neuron vs an
// InputNode (spec §3).
type EndpointKind int

const (
	EndpointNeuron EndpointKind = iota
	EndpointInput
	EndpointOutput
)

// Synapse is a directed weighted edge (spec §3).
type Synapse struct {
	ID SynapseID

	SourceID   uint64
	SourceKind EndpointKind
	TargetID   uint64
	TargetKind EndpointKind

	SignalType SignalType
	Weight     float32
	// Parameter holds the signal-type-specific tunable: delay ticks for
	// Delayed/Transient, unused for Immediate/Persistent.
	Parameter float32

	// Condition gates transmission; a zero-value Composite with no subs
	// (the AddSynapse default) evaluates unconditionally true.
	Condition Condition

	// Volatile transmission state (spec §3).
	PersistentValue    *float32
	PreviousSourceValue float32
	SustainedCounter    int32
	FatigueLevel        float32
	FatigueRate         float32
}

// SynapseID is a monotonic identifier, distinct by type from neuron/
// input/output ids even though all are uint64 under the hood, to avoid
// accidental cross-kind comparisons in caller code.
type SynapseID uint64

// ResetPersistent clears the persistent_value (spec §4.E "cleared only
// on explicit reset or entity destruction").
func (s *Synapse) ResetPersistent() {
	s.PersistentValue = nil
}

// ApplyFatigueDecay exponentially decays fatigue_level once per tick. A
// zero FatigueRate disables fatigue entirely (spec §4.E).
func (s *Synapse) ApplyFatigueDecay(decayFactor float32) {
	if s.FatigueRate == 0 {
		return
	}
	s.FatigueLevel *= decayFactor
}

// RecordTransmission grows fatigue_level by fatigue_rate on each
// transmission (spec §4.E).
func (s *Synapse) RecordTransmission() {
	if s.FatigueRate == 0 {
		return
	}
	s.FatigueLevel += s.FatigueRate
}

// EffectiveWeight returns weight scaled by (1 - fatigue_level), the
// common factor shared by Immediate/Persistent transmission (spec
// §4.E).
func (s *Synapse) EffectiveWeight() float32 {
	return s.Weight * (1 - s.FatigueLevel)
}
