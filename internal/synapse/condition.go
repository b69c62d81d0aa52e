package synapse

import (
	"encoding/json"
	"fmt"
	"math"
)

// floatEpsilon is the absolute epsilon used for ==/!= comparisons (spec
// §4.E).
const floatEpsilon = 1e-6

// Operator names the comparison operators used by LVarCondition,
// GVarCondition, and RelationalCondition.
type Operator int

const (
	OpLT Operator = iota
	OpLTE
	OpEQ
	OpNEQ
	OpGTE
	OpGT
)

func compare(a, b float32, op Operator) bool {
	switch op {
	case OpLT:
		return a < b
	case OpLTE:
		return a <= b
	case OpEQ:
		return math.Abs(float64(a-b)) <= floatEpsilon
	case OpNEQ:
		return math.Abs(float64(a-b)) > floatEpsilon
	case OpGTE:
		return a >= b
	case OpGT:
		return a > b
	default:
		return false
	}
}

// TemporalOperator names the edge/sustain detectors of TemporalCondition.
type TemporalOperator int

const (
	TemporalRisingEdge TemporalOperator = iota
	TemporalFallingEdge
	TemporalChanged
	TemporalSustained
)

// Target selects which neuron an LVarCondition reads from.
type Target int

const (
	TargetSource Target = iota
	TargetTarget
)

// Context carries everything a Condition needs to evaluate, gathered by
// the caller (the world) so this package never imports world-level
// types and stays free of cycles, matching the teacher's "zero
// dependencies" design principle for its synapse/types.go.
type Context struct {
	SourceValue float32

	// SourceLVar/TargetLVar read a local variable by index from the
	// source/target neuron; ok is false if the neuron is missing or the
	// index is out of range.
	SourceLVar func(index int) (value float32, ok bool)
	TargetLVar func(index int) (value float32, ok bool)

	// GVar reads a global hormone by index; ok is false if out of range.
	GVar func(index int) (value float32, ok bool)

	// TargetPotential returns dendritic+soma potential of the target
	// neuron; ok is false if there is no target neuron.
	TargetPotential func() (value float32, ok bool)
}

// Condition is a tagged variant; its unexported kind tag selects which
// one of the per-variant field groups is meaningful, following the design note's guidance
// to use a tagged enum over interface dispatch so condition storage
// stays stable across save/load.
type Condition struct {
	kind conditionKind

	lvar struct {
		target    Target
		lvarIndex int
		op        Operator
		value     float32
	}
	gvar struct {
		gvarIndex int
		op        Operator
		value     float32
	}
	relational struct {
		op Operator
	}
	temporal struct {
		op       TemporalOperator
		threshold float32
		duration  int32
	}
	composite struct {
		isAnd bool
		subs  []*Condition
	}
}

type conditionKind int

const (
	kindLVar conditionKind = iota
	kindGVar
	kindRelational
	kindTemporal
	kindComposite
)

// NewLVarCondition builds an LVarCondition.
func NewLVarCondition(target Target, lvarIndex int, op Operator, value float32) *Condition {
	c := &Condition{kind: kindLVar}
	c.lvar.target = target
	c.lvar.lvarIndex = lvarIndex
	c.lvar.op = op
	c.lvar.value = value
	return c
}

// NewGVarCondition builds a GVarCondition.
func NewGVarCondition(gvarIndex int, op Operator, value float32) *Condition {
	c := &Condition{kind: kindGVar}
	c.gvar.gvarIndex = gvarIndex
	c.gvar.op = op
	c.gvar.value = value
	return c
}

// NewRelationalCondition builds a RelationalCondition.
func NewRelationalCondition(op Operator) *Condition {
	c := &Condition{kind: kindRelational}
	c.relational.op = op
	return c
}

// NewTemporalCondition builds a TemporalCondition.
func NewTemporalCondition(op TemporalOperator, threshold float32, duration int32) *Condition {
	c := &Condition{kind: kindTemporal}
	c.temporal.op = op
	c.temporal.threshold = threshold
	c.temporal.duration = duration
	return c
}

// NewCompositeCondition builds a CompositeCondition. An empty sub-list
// evaluates true regardless of isAnd (spec §4.E).
func NewCompositeCondition(isAnd bool, subs ...*Condition) *Condition {
	c := &Condition{kind: kindComposite}
	c.composite.isAnd = isAnd
	c.composite.subs = subs
	return c
}

// Evaluate returns the condition's truth value given ctx. sustained is
// the synapse's own mutable SustainedCounter field, passed by pointer so
// TemporalSustained can update it in place.
func (c *Condition) Evaluate(ctx Context, prevSourceValue float32, sustained *int32) bool {
	if c == nil {
		return true
	}
	switch c.kind {
	case kindLVar:
		var v float32
		var ok bool
		if c.lvar.target == TargetSource {
			v, ok = ctx.SourceLVar(c.lvar.lvarIndex)
		} else {
			v, ok = ctx.TargetLVar(c.lvar.lvarIndex)
		}
		if !ok {
			return false
		}
		return compare(v, c.lvar.value, c.lvar.op)

	case kindGVar:
		v, ok := ctx.GVar(c.gvar.gvarIndex)
		if !ok {
			return false
		}
		return compare(v, c.gvar.value, c.gvar.op)

	case kindRelational:
		potential, ok := ctx.TargetPotential()
		if !ok {
			return false
		}
		return compare(ctx.SourceValue, potential, c.relational.op)

	case kindTemporal:
		return c.evaluateTemporal(ctx.SourceValue, prevSourceValue, sustained)

	case kindComposite:
		if len(c.composite.subs) == 0 {
			return true
		}
		if c.composite.isAnd {
			for _, sub := range c.composite.subs {
				if !sub.Evaluate(ctx, prevSourceValue, sustained) {
					return false
				}
			}
			return true
		}
		for _, sub := range c.composite.subs {
			if sub.Evaluate(ctx, prevSourceValue, sustained) {
				return true
			}
		}
		return false

	default:
		return false
	}
}

func (c *Condition) evaluateTemporal(current, prev float32, sustained *int32) bool {
	th := c.temporal.threshold
	switch c.temporal.op {
	case TemporalRisingEdge:
		return prev < th && current >= th
	case TemporalFallingEdge:
		return prev >= th && current < th
	case TemporalChanged:
		return math.Abs(float64(current-prev)) > float64(th)
	case TemporalSustained:
		if current >= th {
			*sustained++
		} else {
			*sustained = 0
			return false
		}
		return *sustained >= c.temporal.duration
	default:
		return false
	}
}

// conditionWire is Condition's tagged-variant wire shape (spec §4.J
// "synapses (including conditions with tag)"): one kind tag plus the
// union of every variant's fields, following the same "discriminant +
// all variant fields" approach as the AST/event tagged unions rather
// than introducing a second case-by-case encoding.
type conditionWire struct {
	Kind conditionKind `json:"kind"`

	Target    Target   `json:"target,omitempty"`
	LVarIndex int      `json:"lvar_index,omitempty"`
	Op        Operator `json:"op,omitempty"`
	Value     float32  `json:"value,omitempty"`

	GVarIndex int `json:"gvar_index,omitempty"`

	TemporalOp TemporalOperator `json:"temporal_op,omitempty"`
	Threshold  float32          `json:"threshold,omitempty"`
	Duration   int32            `json:"duration,omitempty"`

	IsAnd bool             `json:"is_and,omitempty"`
	Subs  []*Condition     `json:"subs,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (c Condition) MarshalJSON() ([]byte, error) {
	w := conditionWire{Kind: c.kind}
	switch c.kind {
	case kindLVar:
		w.Target, w.LVarIndex, w.Op, w.Value = c.lvar.target, c.lvar.lvarIndex, c.lvar.op, c.lvar.value
	case kindGVar:
		w.GVarIndex, w.Op, w.Value = c.gvar.gvarIndex, c.gvar.op, c.gvar.value
	case kindRelational:
		w.Op = c.relational.op
	case kindTemporal:
		w.TemporalOp, w.Threshold, w.Duration = c.temporal.op, c.temporal.threshold, c.temporal.duration
	case kindComposite:
		w.IsAnd, w.Subs = c.composite.isAnd, c.composite.subs
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Condition) UnmarshalJSON(data []byte) error {
	var w conditionWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("synapse: decode condition: %w", err)
	}
	c.kind = w.Kind
	switch w.Kind {
	case kindLVar:
		c.lvar.target, c.lvar.lvarIndex, c.lvar.op, c.lvar.value = w.Target, w.LVarIndex, w.Op, w.Value
	case kindGVar:
		c.gvar.gvarIndex, c.gvar.op, c.gvar.value = w.GVarIndex, w.Op, w.Value
	case kindRelational:
		c.relational.op = w.Op
	case kindTemporal:
		c.temporal.op, c.temporal.threshold, c.temporal.duration = w.TemporalOp, w.Threshold, w.Duration
	case kindComposite:
		c.composite.isAnd, c.composite.subs = w.IsAnd, w.Subs
	}
	return nil
}
