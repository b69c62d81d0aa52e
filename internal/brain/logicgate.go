package brain

import "encoding/json"

// GateType names the combinational gate function (spec §4.D LogicGate).
type GateType int

const (
	GateBuffer GateType = iota
	GateNOT
	GateAND
	GateOR
	GateNAND
	GateNOR
	GateXOR
	GateXNOR
)

// FlipFlopType optionally turns a LogicGate into an edge-triggered
// sequential element.
type FlipFlopType int

const (
	FlipFlopNone FlipFlopType = iota
	FlipFlopD
	FlipFlopT
	FlipFlopJK
)

// LogicGate is the combinational/sequential alternative to NeuralNetwork
// (spec §4.D).
type LogicGate struct {
	Gate     GateType
	FlipFlop FlipFlopType
	Threshold float32

	inputMap  []InputSpec
	outputMap []OutputSpec

	state         float32
	previousClock float32
}

// NewLogicGate constructs a LogicGate with the given input map and a
// single output slot (spec §4.D: "Set output_map[0].value").
func NewLogicGate(gate GateType, flipFlop FlipFlopType, threshold float32, inputs []InputSpec, action ActionKind, actionArg uint32) *LogicGate {
	return &LogicGate{
		Gate:      gate,
		FlipFlop:  flipFlop,
		Threshold: threshold,
		inputMap:  inputs,
		outputMap: []OutputSpec{{Action: action, Target: actionArg}},
	}
}

func (g *LogicGate) InputMap() []InputSpec   { return g.inputMap }
func (g *LogicGate) OutputMap() []OutputSpec { return g.outputMap }

// Reset clears flip-flop memory and clock edge tracking.
func (g *LogicGate) Reset() {
	g.state = 0
	g.previousClock = 0
}

func (g *LogicGate) binarize(v float32) bool {
	return v >= g.Threshold
}

// Clone returns a deep copy, independent input/output map storage (spec
// §4.H Mitosis).
func (g *LogicGate) Clone() *LogicGate {
	c := &LogicGate{
		Gate:          g.Gate,
		FlipFlop:      g.FlipFlop,
		Threshold:     g.Threshold,
		inputMap:      append([]InputSpec(nil), g.inputMap...),
		outputMap:     append([]OutputSpec(nil), g.outputMap...),
		state:         g.state,
		previousClock: g.previousClock,
	}
	return c
}

// Evaluate implements Brain. See spec §4.D for the exact truth-table and
// edge-detection semantics.
func (g *LogicGate) Evaluate(inputs []float32) error {
	if len(inputs) != len(g.inputMap) {
		return &ErrInputCountMismatch{Got: len(inputs), Want: len(g.inputMap)}
	}

	bits := make([]bool, len(inputs))
	for i, v := range inputs {
		bits[i] = g.binarize(v)
	}

	var result bool
	if g.FlipFlop != FlipFlopNone {
		result = g.evaluateFlipFlop(bits)
	} else {
		result = g.evaluateCombinational(bits)
		g.state = boolToF32(result)
	}

	if len(g.outputMap) > 0 {
		g.outputMap[0].Value = boolToF32(g.state != 0)
	}
	return nil
}

func boolToF32(b bool) float32 {
	if b {
		return 1
	}
	return 0
}

func (g *LogicGate) evaluateFlipFlop(bits []bool) bool {
	if len(bits) == 0 {
		return g.state != 0
	}
	clock := boolToF32(bits[0])
	rising := g.previousClock < g.Threshold && clock >= g.Threshold
	g.previousClock = clock

	if !rising {
		return g.state != 0
	}

	switch g.FlipFlop {
	case FlipFlopD:
		d := len(bits) > 1 && bits[1]
		g.state = boolToF32(d)
	case FlipFlopT:
		t := len(bits) > 1 && bits[1]
		if t {
			g.state = boolToF32(g.state == 0)
		}
	case FlipFlopJK:
		j := len(bits) > 1 && bits[1]
		k := len(bits) > 2 && bits[2]
		switch {
		case j && k:
			g.state = boolToF32(g.state == 0)
		case j:
			g.state = 1
		case k:
			g.state = 0
		}
	}
	return g.state != 0
}

func (g *LogicGate) evaluateCombinational(bits []bool) bool {
	if len(bits) == 1 {
		switch g.Gate {
		case GateNOT, GateNAND, GateNOR:
			return !bits[0]
		default:
			return bits[0]
		}
	}

	switch g.Gate {
	case GateBuffer:
		return anyTrue(bits)
	case GateNOT:
		return !anyTrue(bits)
	case GateAND:
		return allTrue(bits)
	case GateOR:
		return anyTrue(bits)
	case GateNAND:
		return !allTrue(bits)
	case GateNOR:
		return !anyTrue(bits)
	case GateXOR:
		return countTrue(bits)%2 == 1
	case GateXNOR:
		return countTrue(bits)%2 == 0
	default:
		return false
	}
}

func allTrue(bits []bool) bool {
	for _, b := range bits {
		if !b {
			return false
		}
	}
	return true
}

func anyTrue(bits []bool) bool {
	for _, b := range bits {
		if b {
			return true
		}
	}
	return false
}

func countTrue(bits []bool) int {
	n := 0
	for _, b := range bits {
		if b {
			n++
		}
	}
	return n
}

// logicGateWire is LogicGate's save/load shape (spec §4.J).
type logicGateWire struct {
	Gate          GateType     `json:"gate"`
	FlipFlop      FlipFlopType `json:"flip_flop"`
	Threshold     float32      `json:"threshold"`
	InputMap      []InputSpec  `json:"input_map"`
	OutputMap     []OutputSpec `json:"output_map"`
	State         float32      `json:"state"`
	PreviousClock float32      `json:"previous_clock"`
}

// MarshalJSON implements json.Marshaler.
func (g *LogicGate) MarshalJSON() ([]byte, error) {
	return json.Marshal(logicGateWire{
		Gate:          g.Gate,
		FlipFlop:      g.FlipFlop,
		Threshold:     g.Threshold,
		InputMap:      g.inputMap,
		OutputMap:     g.outputMap,
		State:         g.state,
		PreviousClock: g.previousClock,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (g *LogicGate) UnmarshalJSON(data []byte) error {
	var w logicGateWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	g.Gate, g.FlipFlop, g.Threshold = w.Gate, w.FlipFlop, w.Threshold
	g.inputMap, g.outputMap = w.InputMap, w.OutputMap
	g.state, g.previousClock = w.State, w.PreviousClock
	return nil
}
