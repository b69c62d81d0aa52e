package world

import (
	"github.com/hidra-sim/hidra/internal/brain"
	"github.com/hidra-sim/hidra/internal/event"
	"github.com/hidra-sim/hidra/internal/spatial"
	"github.com/hidra-sim/hidra/internal/synapse"
)

// This file implements bridge.Environment on *World. Every method here
// assumes the caller already holds w.mu — either World.step() (which
// locks once for the whole tick) or New() (single-threaded
// construction, before any other goroutine can observe w). None of
// these methods lock internally, unlike World's externally-facing API
// in world.go, so that gene execution nested arbitrarily deep (via
// CallGene) never re-enters a non-reentrant mutex.

func (w *World) NeuronExists(id uint64) bool {
	_, ok := w.neurons[id]
	return ok
}

func (w *World) NeuronCount() int { return len(w.neurons) }

func (w *World) NeuronIDByOrdinal(ordinal int) (uint64, bool) {
	ids := w.sortedNeuronIDs()
	if ordinal < 0 || ordinal >= len(ids) {
		return 0, false
	}
	return ids[ordinal], true
}

func (w *World) LoadLVar(id uint64, index int) (float32, bool) {
	n, ok := w.neurons[id]
	if !ok || index < 0 || index >= lvarCount {
		return 0, false
	}
	return n.LVars[index], true
}

func (w *World) StoreLVar(id uint64, index int, value float32) bool {
	n, ok := w.neurons[id]
	if !ok || index < 0 || index >= lvarCount {
		return false
	}
	n.LVars[index] = value
	return true
}

func (w *World) Position(id uint64) (spatial.Position, bool) {
	n, ok := w.neurons[id]
	if !ok {
		return spatial.Position{}, false
	}
	return n.Position, true
}

func (w *World) CreateNeuron(pos spatial.Position) uint64 {
	return w.addNeuronLocked(pos).ID
}

// Mitosis deep-copies the parent's LVars and brain into a new neuron at
// parent.Position + offset (a shallow assignment would let mutating the
// child's brain corrupt the parent's). The child gets its own Gestation
// hook (scheduled by addNeuronLocked, like any new neuron); the parent
// additionally gets the Mitosis hook (gene 2) scheduled for the next
// tick in Protected context, notifying it that it just divided (spec §3
// "Genes 1, 2, 3 are Gestation, Mitosis, and Apoptosis hooks ...
// auto-scheduled on lifecycle events").
func (w *World) Mitosis(parentID uint64, offset spatial.Position) (uint64, bool) {
	parent, ok := w.neurons[parentID]
	if !ok {
		return 0, false
	}
	childPos := spatial.Position{X: parent.Position.X + offset.X, Y: parent.Position.Y + offset.Y, Z: parent.Position.Z + offset.Z}
	child := w.addNeuronLocked(childPos)
	child.LVars = parent.LVars
	if err := cloneBrain(parent.Brain, &child.Brain); err != nil {
		w.logger.Warn("world: mitosis brain clone failed, child has no brain", "parent", parentID, "child", child.ID, "error", err)
	}

	if _, hasMitosisHook := w.compiledGenome[GeneMitosis]; hasMitosisHook {
		w.eventQueue.Push(event.Event{
			ExecutionTick: w.currentTick + 1,
			Kind:          event.KindExecuteGene,
			TargetID:      parentID,
			GeneID:        GeneMitosis,
			GeneCtx:       event.ContextProtected,
		})
	}
	return child.ID, true
}

// cloneBrain deep-copies src into *dst (spec §4.H Mitosis: "the child's
// brain is a deep copy"). A shallow interface assignment would leave
// both neurons sharing the same underlying node/connection maps, so a
// mutation to the child's brain would corrupt the parent's. brain.Brain
// implementations keep their graph state in unexported fields, which
// rules out a reflection-based copier for this one case; each concrete
// type instead exposes its own Clone method, in the same spirit as
// NeuralNetwork's other self-contained mutation methods.
func cloneBrain(src brain.Brain, dst *brain.Brain) error {
	switch b := src.(type) {
	case nil:
		*dst = nil
	case *brain.NeuralNetwork:
		*dst = b.Clone()
	case *brain.LogicGate:
		*dst = b.Clone()
	default:
		*dst = nil
	}
	return nil
}

func (w *World) MarkApoptosis(id uint64) {
	if !w.NeuronExists(id) {
		return
	}
	w.deactivationList = append(w.deactivationList, id)
}

func (w *World) GVar(index int) float32 {
	if index < 0 || index >= 256 {
		return 0
	}
	return w.globalHormones[index]
}

func (w *World) SetGVar(index int, value float32) {
	if index < 0 || index >= 256 {
		return
	}
	w.globalHormones[index] = value
}

func (w *World) GeneCount() int { return w.geneCount }

func (w *World) NeighborCount(center spatial.Position, r float64) int {
	return len(w.spatial.FindNeighbors(center, r))
}

func (w *World) NearestNeighbor(center spatial.Position, excludeID uint64) (uint64, spatial.Position, bool) {
	entries := w.spatial.FindNeighborsExcludingID(center, w.cfg.CompetitionRadius, excludeID)
	if len(entries) == 0 {
		return 0, spatial.Position{}, false
	}
	best := entries[0]
	bestDist := spatial.Distance(center, best.Pos)
	for _, e := range entries[1:] {
		if d := spatial.Distance(center, e.Pos); d < bestDist {
			best, bestDist = e, d
		}
	}
	return best.ID, best.Pos, true
}

func (w *World) OutputNodeExists(id uint64) bool { _, ok := w.outputNodes[id]; return ok }
func (w *World) OutputNodeCount() int            { return len(w.outputNodes) }
func (w *World) OutputNodeIDByOrdinal(ordinal int) (uint64, bool) {
	ids := w.sortedOutputIDs()
	if ordinal < 0 || ordinal >= len(ids) {
		return 0, false
	}
	return ids[ordinal], true
}

func (w *World) InputNodeExists(id uint64) bool { _, ok := w.inputNodes[id]; return ok }
func (w *World) InputNodeCount() int            { return len(w.inputNodes) }
func (w *World) InputNodeIDByOrdinal(ordinal int) (uint64, bool) {
	ids := w.sortedInputIDs()
	if ordinal < 0 || ordinal >= len(ids) {
		return 0, false
	}
	return ids[ordinal], true
}

func (w *World) AddSynapse(sourceID uint64, targetKind synapse.TargetKind, targetID uint64, sig synapse.SignalType, weight, param float32) (uint64, bool) {
	src, ok := w.neurons[sourceID]
	if !ok {
		return 0, false
	}
	id, ok := w.addSynapseLocked(synapse.EndpointNeuron, sourceID, targetKind, targetID, sig, weight, param)
	if !ok {
		return 0, false
	}
	src.addOwnedSynapse(id)
	return id, true
}

// addSynapseLocked builds a synapse from any source endpoint kind,
// resolving the 3-variant target form (spec §4.H Open Question: Neuron,
// Output, Input, the last always invalid since an InputNode is a source
// only). Callers must already hold w.mu and are responsible for any
// source-specific bookkeeping (e.g. addOwnedSynapse for a neuron
// source).
func (w *World) addSynapseLocked(sourceKind synapse.EndpointKind, sourceID uint64, targetKind synapse.TargetKind, targetID uint64, sig synapse.SignalType, weight, param float32) (uint64, bool) {
	var tKind synapse.EndpointKind
	switch targetKind {
	case synapse.TargetNeuron:
		if _, ok := w.neurons[targetID]; !ok {
			return 0, false
		}
		tKind = synapse.EndpointNeuron
	case synapse.TargetOutput:
		if _, ok := w.outputNodes[targetID]; !ok {
			return 0, false
		}
		tKind = synapse.EndpointOutput
	case synapse.TargetInput:
		// An InputNode cannot be a synapse's target (inputs are sources
		// only, spec §3): reject rather than silently miswiring.
		return 0, false
	default:
		return 0, false
	}

	id := w.nextSynapse
	w.nextSynapse++
	s := &synapse.Synapse{
		ID:         synapse.SynapseID(id),
		SourceID:   sourceID,
		SourceKind: sourceKind,
		TargetID:   targetID,
		TargetKind: tKind,
		SignalType: sig,
		Weight:     weight,
		Parameter:  param,
		// An empty AND-composite evaluates true unconditionally (spec
		// §4.E), so a freshly wired synapse transmits until a later
		// SetSynapseCondition call narrows it.
		Condition: *synapse.NewCompositeCondition(true),
	}
	w.synapses[id] = s
	return id, true
}

func (w *World) OwnedSynapseByOrdinal(ownerID uint64, ordinal int) (uint64, bool) {
	owner, ok := w.neurons[ownerID]
	if !ok || ordinal < 0 || ordinal >= len(owner.OwnedSynapses) {
		return 0, false
	}
	return owner.OwnedSynapses[ordinal], true
}

func (w *World) OwnedSynapseCount(ownerID uint64) int {
	owner, ok := w.neurons[ownerID]
	if !ok {
		return 0
	}
	return len(owner.OwnedSynapses)
}

func (w *World) ModifySynapse(synapseID uint64, weight, param float32, sig synapse.SignalType) bool {
	s, ok := w.synapses[synapseID]
	if !ok {
		return false
	}
	s.Weight, s.Parameter, s.SignalType = weight, param, sig
	return true
}

// Synapse simple-property selectors (spec §4.H SetSynapseSimpleProperty).
const (
	synapsePropWeight = iota
	synapsePropParameter
	synapsePropSignalType
)

func (w *World) SetSynapseSimpleProperty(synapseID uint64, prop int, value float32) bool {
	s, ok := w.synapses[synapseID]
	if !ok {
		return false
	}
	switch prop {
	case synapsePropWeight:
		s.Weight = value
	case synapsePropParameter:
		s.Parameter = value
	case synapsePropSignalType:
		s.SignalType = synapse.SignalType(int(value) % 4)
	}
	return true
}

// Condition-kind selectors for SetSynapseCondition (spec §4.E variant
// list, in declaration order).
const (
	conditionKindLVar = iota
	conditionKindGVar
	conditionKindRelational
	conditionKindTemporal
	conditionKindComposite
)

func (w *World) SetSynapseCondition(synapseID uint64, kind int, p1, p2, p3 float32) bool {
	s, ok := w.synapses[synapseID]
	if !ok {
		return false
	}
	op := synapse.Operator(int(p2) % 6)
	switch kind {
	case conditionKindLVar:
		target := synapse.TargetSource
		if int(p1)%2 == 1 {
			target = synapse.TargetTarget
		}
		s.Condition = *synapse.NewLVarCondition(target, 0, op, p3)
	case conditionKindGVar:
		s.Condition = *synapse.NewGVarCondition(int(p1), op, p3)
	case conditionKindRelational:
		s.Condition = *synapse.NewRelationalCondition(op)
	case conditionKindTemporal:
		s.Condition = *synapse.NewTemporalCondition(synapse.TemporalOperator(int(p1)%4), p2, int32(p3))
	case conditionKindComposite:
		s.Condition = *synapse.NewCompositeCondition(p1 != 0)
	default:
		return false
	}
	return true
}

func (w *World) ClearSynapseCondition(synapseID uint64) bool {
	s, ok := w.synapses[synapseID]
	if !ok {
		return false
	}
	s.Condition = *synapse.NewCompositeCondition(true)
	return true
}

func (w *World) SetBrainType(id uint64, kind int) bool {
	n, ok := w.neurons[id]
	if !ok {
		return false
	}
	if kind == 0 {
		n.Brain = brain.NewNeuralNetwork()
	} else {
		n.Brain = brain.NewLogicGate(brain.GateBuffer, brain.FlipFlopNone, 0.5, nil, brain.ActionSetOutputValue, 0)
	}
	return true
}

func (w *World) ConfigureLogicGate(id uint64, gate, flipFlop int, threshold float32) bool {
	n, ok := w.neurons[id]
	if !ok {
		return false
	}
	lg, ok := n.Brain.(*brain.LogicGate)
	if !ok {
		return false
	}
	lg.Gate = brain.GateType(gate)
	lg.FlipFlop = brain.FlipFlopType(flipFlop)
	lg.Threshold = threshold
	return true
}

func (w *World) ClearBrain(id uint64) bool {
	n, ok := w.neurons[id]
	if !ok {
		return false
	}
	n.Brain = nil
	return true
}

func (w *World) AddBrainNode(id uint64, nodeID uint32, nodeType int, bias float32, activation int) bool {
	nn, ok := w.neuralNetwork(id)
	if !ok {
		return false
	}
	nn.AddNode(brain.Node{ID: nodeID, Type: brain.NodeType(nodeType), Bias: bias, Activation: brain.Activation(activation)})
	return true
}

func (w *World) AddBrainConnection(id uint64, from, to uint32, weight float32) bool {
	nn, ok := w.neuralNetwork(id)
	if !ok {
		return false
	}
	return nn.AddConnection(brain.Connection{FromID: from, ToID: to, Weight: weight})
}

func (w *World) RemoveBrainNode(id uint64, nodeID uint32) bool {
	nn, ok := w.neuralNetwork(id)
	if !ok {
		return false
	}
	nn.RemoveNode(nodeID)
	return true
}

func (w *World) RemoveBrainConnection(id uint64, from, to uint32) bool {
	nn, ok := w.neuralNetwork(id)
	if !ok {
		return false
	}
	nn.RemoveConnection(from, to)
	return true
}

func (w *World) ConfigureOutputNode(id uint64, nodeID uint32, actionArg uint32) bool {
	nn, ok := w.neuralNetwork(id)
	if !ok {
		return false
	}
	node, ok := nn.Node(nodeID)
	if !ok {
		return false
	}
	node.Type = brain.NodeOutput
	node.ActionType = brain.ActionSetOutputValue
	node.ActionArg = actionArg
	nn.RemoveNode(nodeID)
	nn.AddNode(node)
	return true
}

func (w *World) SetBrainInputSource(id uint64, nodeID uint32, sourceKind int, sourceIndex int) bool {
	nn, ok := w.neuralNetwork(id)
	if !ok {
		return false
	}
	node, ok := nn.Node(nodeID)
	if !ok {
		return false
	}
	node.Type = brain.NodeInput
	node.InputSource = brain.SourceKind(sourceKind)
	node.SourceIndex = sourceIndex
	nn.RemoveNode(nodeID)
	nn.AddNode(node)
	return true
}

func (w *World) SetNodeActivationFunction(id uint64, nodeID uint32, activation int) bool {
	nn, ok := w.neuralNetwork(id)
	if !ok {
		return false
	}
	return nn.SetNodeActivation(nodeID, brain.Activation(activation))
}

func (w *World) SetBrainConnectionWeight(id uint64, from, to uint32, weight float32) bool {
	nn, ok := w.neuralNetwork(id)
	if !ok {
		return false
	}
	return nn.SetConnectionWeight(from, to, weight)
}

// Brain node property selectors for SetBrainNodeProperty.
const (
	brainNodePropBias = iota
	brainNodePropThreshold
)

func (w *World) SetBrainNodeProperty(id uint64, nodeID uint32, prop int, value float32) bool {
	nn, ok := w.neuralNetwork(id)
	if !ok {
		return false
	}
	node, ok := nn.Node(nodeID)
	if !ok {
		return false
	}
	if prop == brainNodePropBias {
		node.Bias = value
		nn.RemoveNode(nodeID)
		nn.AddNode(node)
	}
	return true
}

func (w *World) CreateBrainSimpleFeedForward(id uint64, numInputs, numHidden int) bool {
	n, ok := w.neurons[id]
	if !ok {
		return false
	}
	nn := brain.NewNeuralNetwork()
	var nextID uint32
	inputs := make([]uint32, numInputs)
	for i := 0; i < numInputs; i++ {
		nn.AddNode(brain.Node{ID: nextID, Type: brain.NodeInput, InputSource: brain.SourceActivationPotential})
		inputs[i] = nextID
		nextID++
	}
	hidden := make([]uint32, numHidden)
	for i := 0; i < numHidden; i++ {
		nn.AddNode(brain.Node{ID: nextID, Type: brain.NodeHidden, Activation: brain.ActivationTanh})
		hidden[i] = nextID
		nextID++
	}
	outID := nextID
	nn.AddNode(brain.Node{ID: outID, Type: brain.NodeOutput, Activation: brain.ActivationSigmoid, ActionType: brain.ActionSetOutputValue})
	for _, in := range inputs {
		for _, h := range hidden {
			nn.AddConnection(brain.Connection{FromID: in, ToID: h, Weight: 1})
		}
	}
	for _, h := range hidden {
		nn.AddConnection(brain.Connection{FromID: h, ToID: outID, Weight: 1})
	}
	n.Brain = nn
	return true
}

func (w *World) CreateBrainCompetitive(id uint64, numInputs, numOutputs int) bool {
	n, ok := w.neurons[id]
	if !ok {
		return false
	}
	nn := brain.NewNeuralNetwork()
	var nextID uint32
	inputs := make([]uint32, numInputs)
	for i := 0; i < numInputs; i++ {
		nn.AddNode(brain.Node{ID: nextID, Type: brain.NodeInput, InputSource: brain.SourceActivationPotential})
		inputs[i] = nextID
		nextID++
	}
	for o := 0; o < numOutputs; o++ {
		outID := nextID
		nextID++
		nn.AddNode(brain.Node{ID: outID, Type: brain.NodeOutput, Activation: brain.ActivationLinear, ActionType: brain.ActionSetOutputValue})
		for _, in := range inputs {
			nn.AddConnection(brain.Connection{FromID: in, ToID: outID, Weight: 1})
		}
	}
	n.Brain = nn
	return true
}

func (w *World) SetRefractoryPeriod(id uint64, period float32) bool {
	n, ok := w.neurons[id]
	if !ok || period < 0 {
		return false
	}
	n.LVars[LVarRefractoryPeriod] = period
	return true
}

func (w *World) SetThresholdAdaptation(id uint64, factor, recoveryRate float32) bool {
	n, ok := w.neurons[id]
	if !ok {
		return false
	}
	n.LVars[LVarThresholdAdaptationFactor] = factor
	n.LVars[LVarThresholdRecoveryRate] = recoveryRate
	return true
}

func (w *World) FiringRate(id uint64) float32 {
	n, ok := w.neurons[id]
	if !ok {
		return 0
	}
	return n.LVars[LVarFiringRate]
}

func (w *World) Warn(msg string, args ...any) {
	w.logger.Warn(msg, args...)
}

func (w *World) neuralNetwork(id uint64) (*brain.NeuralNetwork, bool) {
	n, ok := w.neurons[id]
	if !ok {
		return nil, false
	}
	nn, ok := n.Brain.(*brain.NeuralNetwork)
	return nn, ok
}

func sortUint64s(ids []uint64) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
}
