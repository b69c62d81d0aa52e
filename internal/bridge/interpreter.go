package bridge

import (
	"fmt"

	"github.com/hidra-sim/hidra/internal/event"
	"github.com/hidra-sim/hidra/internal/genome"
)

// ErrFuelExhausted is returned when a gene's execution consumes more
// fuel than DefaultGeneFuel allows (spec §5 "per-gene execution is
// bounded by fuel"). The caller (World) treats this exactly like any
// other validation failure: the gene aborts with no partial effect
// beyond whatever mutations already committed before the limit hit —
// spec §8 scenario 5 requires zero LVar mutation for a pure
// self-recursive CallGene gene, which holds here because StoreLVar
// itself costs fuel and the recursive CallGene call is what exhausts it
// before any StoreLVar executes.
var ErrFuelExhausted = fmt.Errorf("bridge: gene fuel exhausted")

// Genome is the compiled program the Interpreter executes against: a
// gene id -> AST map, shared read-only by every execution (spec §4.I
// "compiled_genome (id -> AST)").
type Genome map[uint32]genome.AST

// Interpreter runs compiled gene ASTs against an Environment.
type Interpreter struct {
	Genome Genome
}

// NewInterpreter constructs an Interpreter over a compiled genome.
func NewInterpreter(g Genome) *Interpreter {
	return &Interpreter{Genome: g}
}

// execState is the per-top-level-call state threaded through nested
// CallGene invocations: fuel is shared (spec §5), but each gene's
// temporaries and label index are private to that gene's own AST.
type execState struct {
	env          Environment
	ctx          event.GeneContext
	selfID       uint64
	systemTarget uint64
	fuel         int64
	depth        int
}

const maxCallDepth = 64

// Run executes geneID's AST in the given context, starting with
// fuelBudget units of fuel. selfID is the neuron that owns the gene
// execution (0/none for Genesis, which runs before any neuron exists);
// systemTarget is the current system target, mutable only in System
// context via SetSystemTarget.
func (in *Interpreter) Run(env Environment, geneID uint32, ctx event.GeneContext, selfID, systemTarget uint64, fuelBudget uint32) error {
	st := &execState{env: env, ctx: ctx, selfID: selfID, systemTarget: systemTarget, fuel: int64(fuelBudget)}
	return in.runGene(st, geneID)
}

func (in *Interpreter) runGene(st *execState, geneID uint32) error {
	ast, ok := in.Genome[geneID]
	if !ok {
		return nil // a reference to a non-existent gene is a silent no-op (spec §7).
	}
	st.depth++
	defer func() { st.depth-- }()
	if st.depth > maxCallDepth {
		return ErrFuelExhausted
	}

	labels := make(map[int]int, len(ast.Statements))
	for i, stmt := range ast.Statements {
		if stmt.Kind == genome.StmtLabel {
			labels[stmt.Label] = i
		}
	}
	temps := make(map[int]float64, 4)

	pc := 0
	for pc < len(ast.Statements) {
		if st.fuel <= 0 {
			return ErrFuelExhausted
		}
		st.fuel--

		stmt := ast.Statements[pc]
		switch stmt.Kind {
		case genome.StmtLabel:
			// no-op marker, already indexed above.
		case genome.StmtExpr:
			if _, err := in.eval(st, temps, stmt.Expr); err != nil {
				return err
			}
		case genome.StmtTempDecl:
			v, err := in.eval(st, temps, stmt.Expr)
			if err != nil {
				return err
			}
			temps[stmt.TempID] = v
		case genome.StmtGoto:
			target, ok := labels[stmt.Label]
			if !ok {
				break
			}
			pc = target
			continue
		case genome.StmtIfGoto:
			cond, err := in.eval(st, temps, stmt.Expr)
			if err != nil {
				return err
			}
			if cond != 0 {
				target, ok := labels[stmt.Label]
				if ok {
					pc = target
					continue
				}
			}
		}
		pc++
	}
	return nil
}

func (in *Interpreter) eval(st *execState, temps map[int]float64, e *genome.Expr) (float64, error) {
	if e == nil {
		return 0, nil
	}
	if st.fuel <= 0 {
		return 0, ErrFuelExhausted
	}
	st.fuel--

	switch e.Kind {
	case genome.ExprLiteral:
		return e.Literal, nil
	case genome.ExprTempRef:
		return temps[e.TempID], nil
	case genome.ExprNot:
		v, err := in.eval(st, temps, e.Operand)
		if err != nil {
			return 0, err
		}
		if v == 0 {
			return 1, nil
		}
		return 0, nil
	case genome.ExprBinary:
		left, err := in.eval(st, temps, e.Left)
		if err != nil {
			return 0, err
		}
		right, err := in.eval(st, temps, e.Right)
		if err != nil {
			return 0, err
		}
		return evalBinary(e.Op, left, right), nil
	case genome.ExprCall:
		args := make([]float64, len(e.Args))
		for i, a := range e.Args {
			v, err := in.eval(st, temps, a)
			if err != nil {
				return 0, err
			}
			args[i] = v
		}
		return in.dispatch(st, e.CallName, args)
	default:
		return 0, nil
	}
}

func evalBinary(op genome.BinOp, a, b float64) float64 {
	switch op {
	case genome.BinAdd:
		return a + b
	case genome.BinSub:
		return a - b
	case genome.BinMul:
		return a * b
	case genome.BinDiv:
		if b == 0 {
			return 0
		}
		return a / b
	case genome.BinMod:
		if b == 0 {
			return 0
		}
		ai, bi := int64(a), int64(b)
		return float64(((ai % bi) + bi) % bi)
	case genome.BinEq:
		return boolToF64(a == b)
	case genome.BinNeq:
		return boolToF64(a != b)
	case genome.BinGt:
		return boolToF64(a > b)
	case genome.BinLt:
		return boolToF64(a < b)
	case genome.BinGte:
		return boolToF64(a >= b)
	case genome.BinLte:
		return boolToF64(a <= b)
	default:
		return 0
	}
}

func boolToF64(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// dispatch invokes a named host API (spec §4.H). CallGene recurses into
// runGene directly (sharing st.fuel and st.depth) rather than going
// through the generic api table, since it is the one API that needs the
// Interpreter itself rather than just the Environment.
func (in *Interpreter) dispatch(st *execState, name string, args []float64) (float64, error) {
	if name == "CallGene" {
		idx := wrapIndex(args[0], in.env(st).GeneCount())
		if err := in.runGene(st, uint32(idx)); err != nil {
			return 0, err
		}
		return 0, nil
	}
	fn, ok := lookupAPI(name)
	if !ok {
		st.env.Warn("bridge: unknown API call, ignoring", "name", name)
		return 0, nil
	}
	return fn(st, args), nil
}

// env is a convenience accessor so dispatch reads uniformly; kept as a
// method for symmetry with the rest of the dispatch table even though it
// is a trivial field access.
func (in *Interpreter) env(st *execState) Environment { return st.env }
