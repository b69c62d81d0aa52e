// Package bridge implements the HGL interpreter and its host-callable
// API surface (spec §4.H): the set of primitives compiled genes invoke
// to mutate simulation state. The bridge never touches world internals
// directly — it is handed an Environment built by internal/world, so
// the two packages have no import cycle between them (world imports
// bridge to run genes; bridge only depends on the narrower types it
// defines itself plus internal/genome, internal/event, internal/synapse,
// internal/spatial).
//
// The Environment shape and its "acquire shared state, return a safe
// default on failure" methods are modeled on the teacher's
// extracellular/matrix.go matrixNeuronCallbacks: a fixed struct of
// host-callable methods injected into a biological component.
package bridge

import (
	"github.com/hidra-sim/hidra/internal/event"
	"github.com/hidra-sim/hidra/internal/spatial"
	"github.com/hidra-sim/hidra/internal/synapse"
)

// Environment is everything the bridge needs from the World to
// implement every API in spec §4.H's table. All methods already hold
// (or themselves acquire) the world lock; none perform I/O or block.
type Environment interface {
	// Neuron state.
	NeuronExists(id uint64) bool
	NeuronCount() int
	NeuronIDByOrdinal(ordinal int) (uint64, bool)
	LoadLVar(id uint64, index int) (float32, bool)
	StoreLVar(id uint64, index int, value float32) bool
	Position(id uint64) (spatial.Position, bool)
	CreateNeuron(pos spatial.Position) uint64
	Mitosis(parentID uint64, offset spatial.Position) (uint64, bool)
	MarkApoptosis(id uint64)

	// Globals.
	GVar(index int) float32
	SetGVar(index int, value float32)

	// Gene invocation (CallGene inherits context & target from the
	// caller; fuel is threaded by the Interpreter, not the Environment).
	GeneCount() int

	// Spatial queries.
	NeighborCount(center spatial.Position, r float64) int
	NearestNeighbor(center spatial.Position, excludeID uint64) (id uint64, pos spatial.Position, ok bool)

	// Output/input node lookup, used by AddSynapse's modulus fallback
	// when the target kind is Output or Input rather than Neuron.
	OutputNodeExists(id uint64) bool
	OutputNodeCount() int
	OutputNodeIDByOrdinal(ordinal int) (uint64, bool)
	InputNodeExists(id uint64) bool
	InputNodeCount() int
	InputNodeIDByOrdinal(ordinal int) (uint64, bool)

	// Synapses.
	AddSynapse(sourceID uint64, targetKind synapse.TargetKind, targetID uint64, sig synapse.SignalType, weight, param float32) (uint64, bool)
	OwnedSynapseByOrdinal(ownerID uint64, ordinal int) (synapseID uint64, ok bool)
	OwnedSynapseCount(ownerID uint64) int
	ModifySynapse(synapseID uint64, weight, param float32, sig synapse.SignalType) bool
	SetSynapseSimpleProperty(synapseID uint64, prop int, value float32) bool
	SetSynapseCondition(synapseID uint64, kind int, p1, p2, p3 float32) bool
	ClearSynapseCondition(synapseID uint64) bool

	// Brain structural edits; all operate on the contextual target's
	// Brain field (world resolves the target before dispatch).
	SetBrainType(id uint64, kind int) bool
	ConfigureLogicGate(id uint64, gate, flipFlop int, threshold float32) bool
	ClearBrain(id uint64) bool
	AddBrainNode(id uint64, nodeID uint32, nodeType int, bias float32, activation int) bool
	AddBrainConnection(id uint64, from, to uint32, weight float32) bool
	RemoveBrainNode(id uint64, nodeID uint32) bool
	RemoveBrainConnection(id uint64, from, to uint32) bool
	ConfigureOutputNode(id uint64, nodeID uint32, actionArg uint32) bool
	SetBrainInputSource(id uint64, nodeID uint32, sourceKind int, sourceIndex int) bool
	SetNodeActivationFunction(id uint64, nodeID uint32, activation int) bool
	SetBrainConnectionWeight(id uint64, from, to uint32, weight float32) bool
	SetBrainNodeProperty(id uint64, nodeID uint32, prop int, value float32) bool
	CreateBrainSimpleFeedForward(id uint64, numInputs, numHidden int) bool
	CreateBrainCompetitive(id uint64, numInputs, numOutputs int) bool

	// Neuron stability parameters, stored as reserved LVars by world but
	// exposed here as named operations since they carry validation the
	// bridge must not bypass.
	SetRefractoryPeriod(id uint64, period float32) bool
	SetThresholdAdaptation(id uint64, factor, recoveryRate float32) bool
	FiringRate(id uint64) float32

	// Logging, for the "no-op + warn" error policy (spec §7).
	Warn(msg string, args ...any)
}

// contextualTarget resolves which neuron id an operation applies to
// (spec §4.H "Contextual target resolution"): the system target in
// System context, else self.
func contextualTarget(ctx event.GeneContext, selfID, systemTarget uint64) uint64 {
	if ctx == event.ContextSystem {
		return systemTarget
	}
	return selfID
}
