// Command hidra is a small demo entry point: it wires a hand-built XOR
// brain into a World, drives it through the four truth-table cases, and
// reports pass/fail per case (spec §8 scenario 1). It does not assemble
// a genome from HGL bytecode text — it calls the same host API a gene
// would, directly, via World.Configure — since a CLI demo has no need
// for a hand-rolled assembler (explicitly out of scope, spec §1
// Non-goals).
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/hidra-sim/hidra/internal/bridge"
	"github.com/hidra-sim/hidra/internal/brain"
	"github.com/hidra-sim/hidra/internal/config"
	"github.com/hidra-sim/hidra/internal/spatial"
	"github.com/hidra-sim/hidra/internal/world"
)

// xorLVarA and xorLVarB are the scratch LVar slots the demo uses to feed
// the two XOR channels into the neuron's brain (spec §3: indices below
// config.USERLVarWritableLimit are free scratch space; nothing in the
// core reserves a meaning for them).
const (
	xorLVarA = 0
	xorLVarB = 1
)

func main() {
	verbose := flag.Bool("v", false, "log each tick's phase transitions at debug level")
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	fmt.Println("hidra: XOR-via-NeuralNetwork demo")

	w, outputID, neuronID, err := buildXORWorld(logger)
	if err != nil {
		log.Fatalf("hidra: build world: %v", err)
	}

	testCases := []struct {
		a, b float32
		want int
	}{
		{0, 0, 0},
		{0, 1, 1},
		{1, 0, 1},
		{1, 1, 0},
	}

	allPassed := true
	for _, tc := range testCases {
		got := runXORCase(w, neuronID, outputID, tc.a, tc.b)
		pass := (got >= 0.5) == (tc.want == 1)
		status := "PASS"
		if !pass {
			status = "FAIL"
			allPassed = false
		}
		fmt.Printf("  XOR(%.0f, %.0f) = %.4f (want %d)  [%s]\n", tc.a, tc.b, got, tc.want, status)
	}

	if !allPassed {
		os.Exit(1)
	}
	fmt.Println("all cases passed")
}

// buildXORWorld constructs a World with no compiled genes, one neuron
// carrying a 2-in/2-hidden/1-out feed-forward brain solving XOR, and one
// output node the brain's output writes to. The weights are the
// standard hard-sigmoid XOR construction: a hidden OR unit, a hidden
// NAND unit, and an output AND of the two.
func buildXORWorld(logger *slog.Logger) (w *world.World, outputID, neuronID uint64, err error) {
	cfg := config.Default()
	cfg.SystemGeneCount = 0

	w, err = world.New(cfg, "", logger)
	if err != nil {
		return nil, 0, 0, err
	}

	outputID = w.AddOutputNode()

	w.Configure(func(env bridge.Environment) {
		neuronID = env.CreateNeuron(spatial.Position{})
		env.SetRefractoryPeriod(neuronID, 0)
		env.SetBrainType(neuronID, 0) // NeuralNetwork

		env.AddBrainNode(neuronID, 0, int(brain.NodeInput), 0, int(brain.ActivationLinear))
		env.AddBrainNode(neuronID, 1, int(brain.NodeInput), 0, int(brain.ActivationLinear))
		env.SetBrainInputSource(neuronID, 0, int(brain.SourceLocalVariable), xorLVarA)
		env.SetBrainInputSource(neuronID, 1, int(brain.SourceLocalVariable), xorLVarB)

		env.AddBrainNode(neuronID, 2, int(brain.NodeHidden), -10, int(brain.ActivationSigmoid)) // OR-like
		env.AddBrainNode(neuronID, 3, int(brain.NodeHidden), 30, int(brain.ActivationSigmoid))   // NAND-like
		env.AddBrainNode(neuronID, 4, int(brain.NodeHidden), -30, int(brain.ActivationSigmoid))  // AND-like, made the output next
		// ConfigureOutputNode re-adds the node, dropping its edges, so it
		// runs before the connections are wired.
		env.ConfigureOutputNode(neuronID, 4, uint32(outputID))

		env.AddBrainConnection(neuronID, 0, 2, 20)
		env.AddBrainConnection(neuronID, 1, 2, 20)
		env.AddBrainConnection(neuronID, 0, 3, -20)
		env.AddBrainConnection(neuronID, 1, 3, -20)
		env.AddBrainConnection(neuronID, 2, 4, 20)
		env.AddBrainConnection(neuronID, 3, 4, 20)
	})

	return w, outputID, neuronID, nil
}

// runXORCase drives one truth-table row through two ticks: the first
// loads the channel values and forces the neuron over its firing
// threshold, the second lets the resulting Activate event evaluate the
// brain and write the output node. It returns the output node's value
// afterward.
func runXORCase(w *world.World, neuronID, outputID uint64, a, b float32) float32 {
	w.Configure(func(env bridge.Environment) {
		env.StoreLVar(neuronID, xorLVarA, a)
		env.StoreLVar(neuronID, xorLVarB, b)
		env.StoreLVar(neuronID, world.LVarSomaPotential, 2) // above DefaultFiringThreshold
	})
	w.Step()
	w.Step()

	value, _ := w.OutputValue(outputID)
	return value
}
