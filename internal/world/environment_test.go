package world

import (
	"testing"

	"github.com/hidra-sim/hidra/internal/brain"
	"github.com/hidra-sim/hidra/internal/spatial"
)

func TestMitosisDeepCopiesBrainAndLVars(t *testing.T) {
	w := newTestWorld(t)
	var parent, child uint64
	var ok bool
	withLock(w, func() {
		parent = w.addNeuronLocked(spatial.Position{}).ID
		nn := brain.NewNeuralNetwork()
		nn.AddNode(brain.Node{ID: 0, Type: brain.NodeInput})
		w.neurons[parent].Brain = nn
		w.neurons[parent].LVars[LVarHealth] = 42

		child, ok = w.Mitosis(parent, spatial.Position{X: 1})
	})
	if !ok {
		t.Fatalf("Mitosis failed")
	}
	if w.neurons[child].LVars[LVarHealth] != 42 {
		t.Fatalf("child should inherit parent LVars")
	}
	childNN, ok := w.neurons[child].Brain.(*brain.NeuralNetwork)
	if !ok {
		t.Fatalf("child should have its own NeuralNetwork brain")
	}
	// Mutating the child's brain must never affect the parent's (deep
	// copy, not shared reference).
	childNN.AddNode(brain.Node{ID: 1, Type: brain.NodeHidden})
	parentNN := w.neurons[parent].Brain.(*brain.NeuralNetwork)
	if parentNN.NodeCount() != 1 {
		t.Fatalf("mutating child brain leaked into parent: parent has %d nodes, want 1", parentNN.NodeCount())
	}
}

func TestMitosisUnknownParentFails(t *testing.T) {
	w := newTestWorld(t)
	var ok bool
	withLock(w, func() {
		_, ok = w.Mitosis(999, spatial.Position{})
	})
	if ok {
		t.Fatalf("Mitosis on a nonexistent parent should fail")
	}
}

func TestNearestNeighborExcludesSelf(t *testing.T) {
	w := newTestWorld(t)
	var center uint64
	withLock(w, func() {
		center = w.addNeuronLocked(spatial.Position{}).ID
		w.addNeuronLocked(spatial.Position{X: 5})
	})
	w.rebuildSpatialHash()

	var nearestID uint64
	var found bool
	withLock(w, func() {
		nearestID, _, found = w.NearestNeighbor(spatial.Position{}, center)
	})
	if !found {
		t.Fatalf("expected a neighbor to be found")
	}
	if nearestID == center {
		t.Fatalf("NearestNeighbor must exclude the querying neuron itself")
	}
}

func TestMarkApoptosisRemovesNeuronOnNextStep(t *testing.T) {
	w := newTestWorld(t)
	var a uint64
	withLock(w, func() {
		a = w.addNeuronLocked(spatial.Position{}).ID
		w.MarkApoptosis(a)
	})
	w.Step()
	if w.NeuronExists(a) {
		t.Fatalf("neuron marked for apoptosis should be removed after the next tick's lifecycle phase")
	}
}
