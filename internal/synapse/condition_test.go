package synapse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ctxWith(sourceVal float32, lvar, gvar float32, haveLVar, haveGVar, haveTarget bool, targetPotential float32) Context {
	return Context{
		SourceValue: sourceVal,
		SourceLVar:  func(int) (float32, bool) { return lvar, haveLVar },
		TargetLVar:  func(int) (float32, bool) { return lvar, haveLVar },
		GVar:        func(int) (float32, bool) { return gvar, haveGVar },
		TargetPotential: func() (float32, bool) {
			return targetPotential, haveTarget
		},
	}
}

func TestNilConditionIsAlwaysTrue(t *testing.T) {
	var c *Condition
	var sustained int32
	assert.True(t, c.Evaluate(Context{}, 0, &sustained))
}

func TestLVarConditionOutOfRangeIsFalse(t *testing.T) {
	c := NewLVarCondition(TargetSource, 5, OpGT, 1)
	ctx := ctxWith(0, 0, 0, false, false, false, 0)
	var sustained int32
	assert.False(t, c.Evaluate(ctx, 0, &sustained))
}

func TestLVarConditionCompares(t *testing.T) {
	c := NewLVarCondition(TargetSource, 1, OpGT, 5)
	ctx := ctxWith(0, 10, 0, true, false, false, 0)
	var sustained int32
	assert.True(t, c.Evaluate(ctx, 0, &sustained))
}

func TestGVarOutOfRangeIsFalse(t *testing.T) {
	c := NewGVarCondition(300, OpEQ, 1)
	ctx := ctxWith(0, 0, 0, false, false, false, 0)
	var sustained int32
	assert.False(t, c.Evaluate(ctx, 0, &sustained))
}

func TestRelationalMissingTargetIsFalse(t *testing.T) {
	c := NewRelationalCondition(OpGT)
	ctx := ctxWith(5, 0, 0, false, false, false, 0)
	var sustained int32
	assert.False(t, c.Evaluate(ctx, 0, &sustained))
}

func TestRelationalCompares(t *testing.T) {
	c := NewRelationalCondition(OpGT)
	ctx := ctxWith(5, 0, 0, false, false, true, 3)
	var sustained int32
	assert.True(t, c.Evaluate(ctx, 0, &sustained))
}

func TestTemporalRisingEdge(t *testing.T) {
	c := NewTemporalCondition(TemporalRisingEdge, 0.5, 0)
	var sustained int32
	assert.True(t, c.Evaluate(Context{SourceValue: 0.8}, 0.2, &sustained))
	assert.False(t, c.Evaluate(Context{SourceValue: 0.8}, 0.9, &sustained))
}

func TestTemporalFallingEdge(t *testing.T) {
	c := NewTemporalCondition(TemporalFallingEdge, 0.5, 0)
	var sustained int32
	assert.True(t, c.Evaluate(Context{SourceValue: 0.2}, 0.8, &sustained))
}

func TestTemporalChanged(t *testing.T) {
	c := NewTemporalCondition(TemporalChanged, 0.1, 0)
	var sustained int32
	assert.True(t, c.Evaluate(Context{SourceValue: 1.0}, 0.5, &sustained))
	assert.False(t, c.Evaluate(Context{SourceValue: 1.0}, 0.95, &sustained))
}

func TestTemporalSustained(t *testing.T) {
	c := NewTemporalCondition(TemporalSustained, 0.5, 3)
	var sustained int32
	assert.False(t, c.Evaluate(Context{SourceValue: 0.8}, 0, &sustained))
	assert.False(t, c.Evaluate(Context{SourceValue: 0.8}, 0, &sustained))
	assert.True(t, c.Evaluate(Context{SourceValue: 0.8}, 0, &sustained))

	// Dropping below threshold resets the counter.
	assert.False(t, c.Evaluate(Context{SourceValue: 0.1}, 0, &sustained))
	assert.Equal(t, int32(0), sustained)
}

func TestCompositeEmptyIsTrue(t *testing.T) {
	c := NewCompositeCondition(true)
	var sustained int32
	assert.True(t, c.Evaluate(Context{}, 0, &sustained))
}

func TestCompositeAndOr(t *testing.T) {
	always := NewCompositeCondition(true)
	never := NewLVarCondition(TargetSource, 0, OpGT, 1000)
	ctx := ctxWith(0, 0, 0, true, false, false, 0)
	var sustained int32

	and := NewCompositeCondition(true, always, never)
	assert.False(t, and.Evaluate(ctx, 0, &sustained))

	or := NewCompositeCondition(false, always, never)
	assert.True(t, or.Evaluate(ctx, 0, &sustained))
}

func TestAlwaysFalseConditionNeverFires(t *testing.T) {
	c := NewLVarCondition(TargetSource, 0, OpGT, 1e9)
	ctx := ctxWith(0, 0, 0, true, false, false, 0)
	var sustained int32
	for i := 0; i < 100; i++ {
		assert.False(t, c.Evaluate(ctx, 0, &sustained))
	}
}
