package world

import (
	"github.com/hidra-sim/hidra/internal/brain"
	"github.com/hidra-sim/hidra/internal/spatial"
)

// Reserved LVar indices carrying semantic meaning (spec §3 "Neuron").
// They live at and above config.USERLVarWritableLimit so user gene code
// can read them (LoadLVar has no upper bound) but never overwrite them
// via StoreLVar's writable-range check.
const (
	LVarSomaPotential = 200 + iota
	LVarDendriticPotential
	LVarHealth
	LVarAge
	LVarRefractoryTimeLeft
	LVarRefractoryPeriod
	LVarThresholdAdaptationFactor
	LVarThresholdRecoveryRate
	LVarFiringRate
	LVarAdaptiveThreshold
)

// lvarCount is the fixed size of a neuron's local_variables array (spec
// §3: "length 256").
const lvarCount = 256

// Neuron is one simulated cell (spec §3 "Neuron"). Fields mutated only
// by the World during a tick phase, or by the interpreter bridge
// holding the world lock.
type Neuron struct {
	ID       uint64
	Position spatial.Position
	IsActive bool

	LVars [lvarCount]float32

	// OwnedSynapses holds the ids of synapses whose source is this
	// neuron, in creation order (spec §3 "owning list of synapse ids").
	OwnedSynapses []uint64

	Brain brain.Brain

	// LastFiredValue is the neuron's ActivationPotential captured at the
	// instant it crossed threshold (tick loop phase 5), before
	// SomaPotential is reset to 0. The same value travels on the
	// resulting Activate event as its PulseAmount, which is what
	// processActivate reads for synapse transmission and brain
	// evaluation, since by then the live potential has already decayed.
	LastFiredValue float32
}

// NewNeuron constructs a neuron with initial health/potential taken from
// config, and reserved LVars zeroed except those two and the refractory
// period.
func NewNeuron(id uint64, pos spatial.Position, initialHealth, initialPotential, refractoryPeriod float32) *Neuron {
	n := &Neuron{ID: id, Position: pos, IsActive: true}
	n.LVars[LVarHealth] = initialHealth
	n.LVars[LVarSomaPotential] = initialPotential
	n.LVars[LVarRefractoryPeriod] = refractoryPeriod
	return n
}

// ActivationPotential is DendriticPotential + SomaPotential (glossary).
func (n *Neuron) ActivationPotential() float32 {
	return n.LVars[LVarDendriticPotential] + n.LVars[LVarSomaPotential]
}

func (n *Neuron) addOwnedSynapse(id uint64) {
	n.OwnedSynapses = append(n.OwnedSynapses, id)
}

func (n *Neuron) removeOwnedSynapse(id uint64) {
	for i, sid := range n.OwnedSynapses {
		if sid == id {
			n.OwnedSynapses = append(n.OwnedSynapses[:i], n.OwnedSynapses[i+1:]...)
			return
		}
	}
}
