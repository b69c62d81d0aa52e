package genome

// BinOp names a binary arithmetic/comparison operator.
type BinOp int

const (
	BinAdd BinOp = iota
	BinSub
	BinMul
	BinDiv
	BinMod
	BinEq
	BinNeq
	BinGt
	BinLt
	BinGte
	BinLte
)

func binOpFor(name string) (BinOp, bool) {
	switch name {
	case OpAdd:
		return BinAdd, true
	case OpSub:
		return BinSub, true
	case OpMul:
		return BinMul, true
	case OpDiv:
		return BinDiv, true
	case OpMod:
		return BinMod, true
	case OpEq:
		return BinEq, true
	case OpNeq:
		return BinNeq, true
	case OpGt:
		return BinGt, true
	case OpLt:
		return BinLt, true
	case OpGte:
		return BinGte, true
	case OpLte:
		return BinLte, true
	default:
		return 0, false
	}
}

// ExprKind discriminates Expr's tagged variants.
type ExprKind int

const (
	ExprLiteral ExprKind = iota
	ExprBinary
	ExprCall
	ExprTempRef
	ExprNot
)

// Expr is a tagged-union AST expression node.
type Expr struct {
	Kind ExprKind

	// ExprLiteral
	Literal float64

	// ExprBinary
	Op          BinOp
	Left, Right *Expr

	// ExprCall
	CallName string
	Args     []*Expr

	// ExprTempRef
	TempID int

	// ExprNot
	Operand *Expr
}

// StmtKind discriminates Stmt's tagged variants.
type StmtKind int

const (
	StmtExpr StmtKind = iota // a bare expression evaluated for effect
	StmtTempDecl             // declare+assign a temporary from a value-returning call
	StmtLabel
	StmtGoto
	StmtIfGoto
)

// Stmt is a tagged-union AST statement node.
type Stmt struct {
	Kind StmtKind

	Expr   *Expr // StmtExpr, StmtTempDecl (RHS), StmtIfGoto (condition)
	TempID int   // StmtTempDecl
	Label  int   // StmtLabel, StmtGoto, StmtIfGoto
}

// AST is one gene's compiled program: a flat statement list. Control
// flow is expressed via LABEL/GOTO/IF_GOTO rather than structured
// if/else, per spec §4.G.
type AST struct {
	Statements []Stmt
	// EmptySystemGene marks an AST produced from an empty system gene
	// (spec §4.G: "An empty gene that is a system gene ... produces an
	// empty statement-list AST tagged as such").
	EmptySystemGene bool
}

const endLabel = -1 // the synthetic label for the virtual-end jump target

type astBuilder struct {
	decoded Decoded
	stack   []*Expr
	stmts   []Stmt
	nextTemp int

	labelAt map[int]int // instruction index -> label id (non-end targets)
	nextLabelID int
	usesEndLabel bool
}

// BuildAST lifts a decoded instruction stream into an AST (spec §4.G).
// isSystemGene marks whether this gene is below system_gene_count, which
// controls the empty-gene convention.
func BuildAST(d Decoded, isSystemGene bool) AST {
	if len(d.Instructions) == 0 {
		if isSystemGene {
			return AST{EmptySystemGene: true}
		}
		return AST{}
	}

	b := &astBuilder{decoded: d, labelAt: make(map[int]int)}
	for targetIdx := range d.JumpSources {
		if targetIdx == VirtualEnd {
			continue
		}
		b.labelAt[targetIdx] = b.allocLabel()
	}
	for _, target := range d.JumpTargets {
		if target == VirtualEnd {
			b.usesEndLabel = true
		}
	}

	for i, inst := range d.Instructions {
		if labelID, ok := b.labelAt[i]; ok {
			b.stmts = append(b.stmts, Stmt{Kind: StmtLabel, Label: labelID})
		}
		b.emit(i, inst)
	}

	b.flushTrailing()

	if b.usesEndLabel {
		b.stmts = append(b.stmts, Stmt{Kind: StmtLabel, Label: endLabel})
	}

	return AST{Statements: b.stmts}
}

func (b *astBuilder) allocLabel() int {
	id := b.nextLabelID
	b.nextLabelID++
	return id
}

func (b *astBuilder) pop() *Expr {
	if len(b.stack) == 0 {
		return &Expr{Kind: ExprLiteral, Literal: 0}
	}
	n := len(b.stack) - 1
	e := b.stack[n]
	b.stack = b.stack[:n]
	return e
}

func (b *astBuilder) push(e *Expr) {
	b.stack = append(b.stack, e)
}

func (b *astBuilder) labelFor(targetInstIdx int) int {
	if targetInstIdx == VirtualEnd {
		return endLabel
	}
	return b.labelAt[targetInstIdx]
}

// flushTrailing emits any residual stack entries as trailing statements
// at block end, per spec §4.G.
func (b *astBuilder) flushTrailing() {
	for _, e := range b.stack {
		b.stmts = append(b.stmts, Stmt{Kind: StmtExpr, Expr: e})
	}
	b.stack = nil
}

func (b *astBuilder) emit(index int, inst Instruction) {
	spec, ok := Spec(inst.Opcode)
	if !ok {
		return
	}

	switch {
	case spec.Name == OpPushByte:
		b.push(&Expr{Kind: ExprLiteral, Literal: inst.Operand})
	case spec.Name == "PUSH_FLOAT":
		b.push(&Expr{Kind: ExprLiteral, Literal: inst.Operand})
	case spec.Name == OpDup:
		if len(b.stack) == 0 {
			b.push(&Expr{Kind: ExprLiteral, Literal: 0})
			return
		}
		b.push(cloneExpr(b.stack[len(b.stack)-1]))
	case spec.Name == OpPop:
		e := b.pop()
		b.stmts = append(b.stmts, Stmt{Kind: StmtExpr, Expr: e})
	case spec.Class == ClassControl:
		if op, ok := binOpFor(spec.Name); ok {
			b.emitBinary(op)
			return
		}
		b.emitJump(spec.Name, index)
	case spec.Class == ClassAPI:
		b.emitCall(spec)
	}
}

func (b *astBuilder) emitBinary(op BinOp) {
	right := b.pop()
	left := b.pop()
	b.push(&Expr{Kind: ExprBinary, Op: op, Left: left, Right: right})
}

func (b *astBuilder) emitJump(name string, index int) {
	target, hasTarget := b.decoded.JumpTargets[index]
	if !hasTarget {
		// Dropped jump (invalid target): treat as a no-op, per spec §4.F.
		return
	}
	label := b.labelFor(target)

	switch name {
	case OpJmp:
		b.stmts = append(b.stmts, Stmt{Kind: StmtGoto, Label: label})
	case OpJz:
		cond := b.pop()
		notCond := &Expr{Kind: ExprNot, Operand: cond}
		b.stmts = append(b.stmts, Stmt{Kind: StmtIfGoto, Label: label, Expr: notCond})
	case OpJnz, OpJne:
		cond := b.pop()
		b.stmts = append(b.stmts, Stmt{Kind: StmtIfGoto, Label: label, Expr: cond})
	}
}

func (b *astBuilder) emitCall(spec OpSpec) {
	args := make([]*Expr, spec.Arity)
	for i := spec.Arity - 1; i >= 0; i-- {
		args[i] = b.pop()
	}
	call := &Expr{Kind: ExprCall, CallName: spec.Name, Args: args}

	if !spec.ReturnsValue {
		b.emitSequencePoint(call)
		return
	}

	tmp := b.nextTemp
	b.nextTemp++
	b.stmts = append(b.stmts, Stmt{Kind: StmtTempDecl, TempID: tmp, Expr: call})
	b.push(&Expr{Kind: ExprTempRef, TempID: tmp})
}

// emitSequencePoint implements spec §4.G's rule that a void API call
// flushes any preceding stack contents as statements before the call
// itself is emitted as the final statement of the sequence point.
func (b *astBuilder) emitSequencePoint(call *Expr) {
	b.flushTrailing()
	b.stmts = append(b.stmts, Stmt{Kind: StmtExpr, Expr: call})
}

func cloneExpr(e *Expr) *Expr {
	if e == nil {
		return &Expr{Kind: ExprLiteral, Literal: 0}
	}
	clone := *e
	return &clone
}
