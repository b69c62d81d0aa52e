package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hidra-sim/hidra/internal/event"
	"github.com/hidra-sim/hidra/internal/genome"
	"github.com/hidra-sim/hidra/internal/spatial"
	"github.com/hidra-sim/hidra/internal/synapse"
)

// fakeEnv is a minimal, in-memory Environment for interpreter tests. It
// does not implement every spatial/brain nuance — only enough surface
// for the tests below to exercise the dispatch table's argument
// handling and context checks.
type fakeEnv struct {
	lvars     map[uint64][256]float32
	positions map[uint64]spatial.Position
	gvars     [256]float32
	neurons   []uint64 // ascending order
	apoptosis map[uint64]bool
	nextID    uint64
	warnings  []string
}

func newFakeEnv(ids ...uint64) *fakeEnv {
	e := &fakeEnv{
		lvars:     make(map[uint64][256]float32),
		positions: make(map[uint64]spatial.Position),
		apoptosis: make(map[uint64]bool),
	}
	for _, id := range ids {
		e.neurons = append(e.neurons, id)
		e.lvars[id] = [256]float32{}
		if id >= e.nextID {
			e.nextID = id + 1
		}
	}
	return e
}

func (e *fakeEnv) NeuronExists(id uint64) bool { _, ok := e.lvars[id]; return ok }
func (e *fakeEnv) NeuronCount() int            { return len(e.neurons) }
func (e *fakeEnv) NeuronIDByOrdinal(ordinal int) (uint64, bool) {
	if ordinal < 0 || ordinal >= len(e.neurons) {
		return 0, false
	}
	return e.neurons[ordinal], true
}
func (e *fakeEnv) LoadLVar(id uint64, index int) (float32, bool) {
	lv, ok := e.lvars[id]
	if !ok || index < 0 || index >= 256 {
		return 0, false
	}
	return lv[index], true
}
func (e *fakeEnv) StoreLVar(id uint64, index int, value float32) bool {
	lv, ok := e.lvars[id]
	if !ok || index < 0 || index >= 256 {
		return false
	}
	lv[index] = value
	e.lvars[id] = lv
	return true
}
func (e *fakeEnv) Position(id uint64) (spatial.Position, bool) {
	p, ok := e.positions[id]
	return p, ok
}
func (e *fakeEnv) CreateNeuron(pos spatial.Position) uint64 {
	id := e.nextID
	e.nextID++
	e.neurons = append(e.neurons, id)
	e.lvars[id] = [256]float32{}
	e.positions[id] = pos
	return id
}
func (e *fakeEnv) Mitosis(parentID uint64, offset spatial.Position) (uint64, bool) {
	if !e.NeuronExists(parentID) {
		return 0, false
	}
	return e.CreateNeuron(offset), true
}
func (e *fakeEnv) MarkApoptosis(id uint64) { e.apoptosis[id] = true }
func (e *fakeEnv) GVar(index int) float32  { return e.gvars[index] }
func (e *fakeEnv) SetGVar(index int, value float32) { e.gvars[index] = value }
func (e *fakeEnv) GeneCount() int          { return 8 }
func (e *fakeEnv) NeighborCount(spatial.Position, float64) int { return 0 }
func (e *fakeEnv) NearestNeighbor(spatial.Position, uint64) (uint64, spatial.Position, bool) {
	return 0, spatial.Position{}, false
}
func (e *fakeEnv) OutputNodeExists(uint64) bool             { return false }
func (e *fakeEnv) OutputNodeCount() int                     { return 0 }
func (e *fakeEnv) OutputNodeIDByOrdinal(int) (uint64, bool) { return 0, false }
func (e *fakeEnv) InputNodeExists(uint64) bool              { return false }
func (e *fakeEnv) InputNodeCount() int                      { return 0 }
func (e *fakeEnv) InputNodeIDByOrdinal(int) (uint64, bool)  { return 0, false }
func (e *fakeEnv) AddSynapse(uint64, synapse.TargetKind, uint64, synapse.SignalType, float32, float32) (uint64, bool) {
	return 1, true
}
func (e *fakeEnv) OwnedSynapseByOrdinal(uint64, int) (uint64, bool) { return 0, false }
func (e *fakeEnv) OwnedSynapseCount(uint64) int                     { return 0 }
func (e *fakeEnv) ModifySynapse(uint64, float32, float32, synapse.SignalType) bool { return true }
func (e *fakeEnv) SetSynapseSimpleProperty(uint64, int, float32) bool              { return true }
func (e *fakeEnv) SetSynapseCondition(uint64, int, float32, float32, float32) bool { return true }
func (e *fakeEnv) ClearSynapseCondition(uint64) bool                              { return true }
func (e *fakeEnv) SetBrainType(uint64, int) bool                                  { return true }
func (e *fakeEnv) ConfigureLogicGate(uint64, int, int, float32) bool              { return true }
func (e *fakeEnv) ClearBrain(uint64) bool                                         { return true }
func (e *fakeEnv) AddBrainNode(uint64, uint32, int, float32, int) bool            { return true }
func (e *fakeEnv) AddBrainConnection(uint64, uint32, uint32, float32) bool        { return true }
func (e *fakeEnv) RemoveBrainNode(uint64, uint32) bool                           { return true }
func (e *fakeEnv) RemoveBrainConnection(uint64, uint32, uint32) bool             { return true }
func (e *fakeEnv) ConfigureOutputNode(uint64, uint32, uint32) bool               { return true }
func (e *fakeEnv) SetBrainInputSource(uint64, uint32, int, int) bool             { return true }
func (e *fakeEnv) SetNodeActivationFunction(uint64, uint32, int) bool            { return true }
func (e *fakeEnv) SetBrainConnectionWeight(uint64, uint32, uint32, float32) bool { return true }
func (e *fakeEnv) SetBrainNodeProperty(uint64, uint32, int, float32) bool        { return true }
func (e *fakeEnv) CreateBrainSimpleFeedForward(uint64, int, int) bool            { return true }
func (e *fakeEnv) CreateBrainCompetitive(uint64, int, int) bool                  { return true }
func (e *fakeEnv) SetRefractoryPeriod(uint64, float32) bool                      { return true }
func (e *fakeEnv) SetThresholdAdaptation(uint64, float32, float32) bool          { return true }
func (e *fakeEnv) FiringRate(uint64) float32                                     { return 0 }
func (e *fakeEnv) Warn(msg string, args ...any)                                  { e.warnings = append(e.warnings, msg) }

func geneStoreLVar(idx, value int) genome.AST {
	call := &genome.Expr{
		Kind:     genome.ExprCall,
		CallName: "StoreLVar",
		Args: []*genome.Expr{
			{Kind: genome.ExprLiteral, Literal: float64(idx)},
			{Kind: genome.ExprLiteral, Literal: float64(value)},
		},
	}
	return genome.AST{Statements: []genome.Stmt{{Kind: genome.StmtExpr, Expr: call}}}
}

func TestInterpreterStoreLoadLVar(t *testing.T) {
	env := newFakeEnv(1)
	g := Genome{0: geneStoreLVar(5, 42)}
	in := NewInterpreter(g)

	err := in.Run(env, 0, event.ContextGeneral, 1, 1, 1000)
	require.NoError(t, err)

	v, ok := env.LoadLVar(1, 5)
	require.True(t, ok)
	assert.Equal(t, float32(42), v)
}

func TestCreateNeuronOutsideSystemContextIsNoOp(t *testing.T) {
	env := newFakeEnv(1)
	call := &genome.Expr{Kind: genome.ExprCall, CallName: "CreateNeuron", Args: []*genome.Expr{
		{Kind: genome.ExprLiteral, Literal: 1}, {Kind: genome.ExprLiteral, Literal: 2}, {Kind: genome.ExprLiteral, Literal: 3},
	}}
	g := Genome{0: {Statements: []genome.Stmt{{Kind: genome.StmtExpr, Expr: call}}}}
	in := NewInterpreter(g)

	err := in.Run(env, 0, event.ContextGeneral, 1, 1, 1000)
	require.NoError(t, err)
	assert.Equal(t, 1, env.NeuronCount())
	assert.NotEmpty(t, env.warnings)
}

func TestCreateNeuronInSystemContextCreates(t *testing.T) {
	env := newFakeEnv(1)
	call := &genome.Expr{Kind: genome.ExprCall, CallName: "CreateNeuron", Args: []*genome.Expr{
		{Kind: genome.ExprLiteral, Literal: 1}, {Kind: genome.ExprLiteral, Literal: 2}, {Kind: genome.ExprLiteral, Literal: 3},
	}}
	g := Genome{0: {Statements: []genome.Stmt{{Kind: genome.StmtExpr, Expr: call}}}}
	in := NewInterpreter(g)

	err := in.Run(env, 0, event.ContextSystem, 0, 0, 1000)
	require.NoError(t, err)
	assert.Equal(t, 2, env.NeuronCount())
}

func TestCallGeneFuelExhaustionOnSelfRecursion(t *testing.T) {
	// CallGene(0) with no argument evaluation beyond a literal self-ref.
	selfCall := &genome.Expr{Kind: genome.ExprCall, CallName: "CallGene", Args: []*genome.Expr{
		{Kind: genome.ExprLiteral, Literal: 0},
	}}
	g := Genome{0: {Statements: []genome.Stmt{{Kind: genome.StmtExpr, Expr: selfCall}}}}
	in := NewInterpreter(g)
	env := newFakeEnv(1)

	err := in.Run(env, 0, event.ContextGeneral, 1, 1, 50)
	assert.ErrorIs(t, err, ErrFuelExhausted)
	// No LVar was ever written by this gene.
	v, _ := env.LoadLVar(1, 0)
	assert.Equal(t, float32(0), v)
}

func TestGotoSkipsOverStatements(t *testing.T) {
	store := &genome.Expr{Kind: genome.ExprCall, CallName: "StoreLVar", Args: []*genome.Expr{
		{Kind: genome.ExprLiteral, Literal: 0}, {Kind: genome.ExprLiteral, Literal: 99},
	}}
	ast := genome.AST{Statements: []genome.Stmt{
		{Kind: genome.StmtGoto, Label: 0},
		{Kind: genome.StmtExpr, Expr: store}, // skipped
		{Kind: genome.StmtLabel, Label: 0},
	}}
	g := Genome{0: ast}
	in := NewInterpreter(g)
	env := newFakeEnv(1)

	err := in.Run(env, 0, event.ContextGeneral, 1, 1, 1000)
	require.NoError(t, err)
	v, _ := env.LoadLVar(1, 0)
	assert.Equal(t, float32(0), v)
}

func TestIfGotoTakesBranchWhenConditionNonZero(t *testing.T) {
	store := &genome.Expr{Kind: genome.ExprCall, CallName: "StoreLVar", Args: []*genome.Expr{
		{Kind: genome.ExprLiteral, Literal: 0}, {Kind: genome.ExprLiteral, Literal: 7},
	}}
	ast := genome.AST{Statements: []genome.Stmt{
		{Kind: genome.StmtIfGoto, Label: 0, Expr: &genome.Expr{Kind: genome.ExprLiteral, Literal: 1}},
		{Kind: genome.StmtExpr, Expr: store},
		{Kind: genome.StmtLabel, Label: 0},
	}}
	g := Genome{0: ast}
	in := NewInterpreter(g)
	env := newFakeEnv(1)

	err := in.Run(env, 0, event.ContextGeneral, 1, 1, 1000)
	require.NoError(t, err)
	v, _ := env.LoadLVar(1, 0)
	assert.Equal(t, float32(0), v, "condition true should have jumped past the store")
}

func TestWrapIndexLiteralInRange(t *testing.T) {
	assert.Equal(t, 3, wrapIndex(3, 10))
}

func TestWrapIndexOutOfRangeWraps(t *testing.T) {
	assert.Equal(t, 2, wrapIndex(12, 10))
	assert.Equal(t, 8, wrapIndex(-2, 10))
}

func TestAddSynapseModulusFallbackOnUnknownNeuronID(t *testing.T) {
	env := newFakeEnv(1, 2, 3)
	call := &genome.Expr{Kind: genome.ExprCall, CallName: "AddSynapse", Args: []*genome.Expr{
		{Kind: genome.ExprLiteral, Literal: 0},   // TargetNeuron
		{Kind: genome.ExprLiteral, Literal: 999}, // unknown id, wraps over 3 neurons
		{Kind: genome.ExprLiteral, Literal: 0},   // Immediate
		{Kind: genome.ExprLiteral, Literal: 1},
		{Kind: genome.ExprLiteral, Literal: 0},
	}}
	g := Genome{0: {Statements: []genome.Stmt{{Kind: genome.StmtExpr, Expr: call}}}}
	in := NewInterpreter(g)

	err := in.Run(env, 0, event.ContextGeneral, 1, 1, 1000)
	require.NoError(t, err)
}
