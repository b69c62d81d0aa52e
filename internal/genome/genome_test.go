package genome

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func opcode(t *testing.T, name string) byte {
	t.Helper()
	op, ok := OpcodeFor(name)
	require.True(t, ok, "opcode %s must exist", name)
	return op
}

func TestScanGenesSplitsOnSeparator(t *testing.T) {
	genes := ScanGenes("GN01GN0203GN")
	require.Len(t, genes, 2)
	assert.Equal(t, []byte{0x01}, genes[0])
	assert.Equal(t, []byte{0x02, 0x03}, genes[1])
}

func TestScanGenesNormalizesCaseAndWhitespace(t *testing.T) {
	genes := ScanGenes(" gn 0 1 \n gn ab ")
	require.Len(t, genes, 2)
	assert.Equal(t, []byte{0x01}, genes[0])
	assert.Equal(t, []byte{0xAB}, genes[1])
}

func TestScanGenesOddLengthLeftPadded(t *testing.T) {
	genes := ScanGenes("GN1")
	require.Len(t, genes, 1)
	assert.Equal(t, []byte{0x01}, genes[0])
}

func TestScanGenesFiltersNonHex(t *testing.T) {
	genes := ScanGenes("GN0Z1")
	require.Len(t, genes, 1)
	assert.Equal(t, []byte{0x01}, genes[0])
}

func TestScanGenesPreservesInteriorEmptyGeneSlot(t *testing.T) {
	// Gene 1 (Gestation) is deliberately left empty between two
	// non-empty genes; it must still occupy position 1 so Mitosis and
	// Apoptosis keep their reserved gene ids (spec §4.G, §6).
	genes := ScanGenes("GN01GNGN02GN03")
	require.Len(t, genes, 4)
	assert.Equal(t, []byte{0x01}, genes[0])
	assert.Nil(t, genes[1])
	assert.Equal(t, []byte{0x02}, genes[2])
	assert.Equal(t, []byte{0x03}, genes[3])
}

func TestScanGenesEmptySourceProducesNoGenes(t *testing.T) {
	assert.Empty(t, ScanGenes(""))
	assert.Empty(t, ScanGenes("GN"))
}

func TestDecodeTruncatedTrailingBytes(t *testing.T) {
	push := opcode(t, OpPushByte)
	code := []byte{push} // missing the 1-byte operand
	d := Decode(code, nil)
	assert.Empty(t, d.Instructions)
}

func TestDecodeInvalidOpcodeStops(t *testing.T) {
	nop := opcode(t, OpNOP)
	code := []byte{nop, 0xFF}
	d := Decode(code, nil)
	require.Len(t, d.Instructions, 1)
	assert.Equal(t, nop, d.Instructions[0].Opcode)
}

func TestJumpDisplacementRelativeToNextInstruction(t *testing.T) {
	jmp := opcode(t, OpJmp)
	nop := opcode(t, OpNOP)
	// JMP +0 should target the instruction immediately following it.
	code := []byte{jmp, 0, 0, nop}
	d := Decode(code, nil)
	require.Len(t, d.Instructions, 2)
	target, ok := d.JumpTargets[0]
	require.True(t, ok)
	assert.Equal(t, 1, target)
}

func TestJumpToVirtualEnd(t *testing.T) {
	jmp := opcode(t, OpJmp)
	code := []byte{jmp, 0, 0}
	d := Decode(code, nil)
	require.Len(t, d.Instructions, 1)
	target, ok := d.JumpTargets[0]
	require.True(t, ok)
	assert.Equal(t, VirtualEnd, target)
}

func TestJumpToInvalidOffsetDropped(t *testing.T) {
	jmp := opcode(t, OpJmp)
	push := opcode(t, OpPushByte)
	nop := opcode(t, OpNOP)
	// Displacement +1 lands at offset 4, which is mid-way through the
	// PUSH_BYTE instruction at offset 3 (not end-of-stream, not the
	// start of any decoded instruction) - an invalid target.
	code := []byte{jmp, 1, 0, push, 5, nop}
	d := Decode(code, nil)
	_, ok := d.JumpTargets[0]
	assert.False(t, ok)
}

func TestRoundTripEncodeDecode(t *testing.T) {
	push := opcode(t, OpPushByte)
	add := opcode(t, OpAdd)
	nop := opcode(t, OpNOP)
	code := []byte{push, 5, push, 7, add, nop}

	d1 := Decode(code, nil)
	re := Encode(d1.Instructions)
	d2 := Decode(re, nil)

	require.Equal(t, len(d1.Instructions), len(d2.Instructions))
	for i := range d1.Instructions {
		assert.Equal(t, d1.Instructions[i].Opcode, d2.Instructions[i].Opcode)
		assert.Equal(t, d1.Instructions[i].Operand, d2.Instructions[i].Operand)
	}
}

func TestBuildASTArithmeticExpression(t *testing.T) {
	push := opcode(t, OpPushByte)
	add := opcode(t, OpAdd)
	pop := opcode(t, OpPop)
	code := []byte{push, 5, push, 7, add, pop}

	d := Decode(code, nil)
	ast := BuildAST(d, false)
	require.Len(t, ast.Statements, 1)
	stmt := ast.Statements[0]
	require.Equal(t, StmtExpr, stmt.Kind)
	require.Equal(t, ExprBinary, stmt.Expr.Kind)
	assert.Equal(t, BinAdd, stmt.Expr.Op)
	assert.Equal(t, float64(5), stmt.Expr.Left.Literal)
	assert.Equal(t, float64(7), stmt.Expr.Right.Literal)
}

func TestBuildASTVoidAPICallIsSequencePoint(t *testing.T) {
	push := opcode(t, OpPushByte)
	apoptosis := opcode(t, "Apoptosis")
	code := []byte{push, 1, apoptosis}

	d := Decode(code, nil)
	ast := BuildAST(d, false)
	// The dangling literal 1 is flushed as a statement, followed by the
	// call statement.
	require.Len(t, ast.Statements, 2)
	assert.Equal(t, ExprLiteral, ast.Statements[0].Expr.Kind)
	assert.Equal(t, ExprCall, ast.Statements[1].Expr.Kind)
	assert.Equal(t, "Apoptosis", ast.Statements[1].Expr.CallName)
}

func TestBuildASTValueReturningCallBindsTemp(t *testing.T) {
	getSelfID := opcode(t, "GetSelfId")
	pop := opcode(t, OpPop)
	code := []byte{getSelfID, pop}

	d := Decode(code, nil)
	ast := BuildAST(d, false)
	require.Len(t, ast.Statements, 2)
	assert.Equal(t, StmtTempDecl, ast.Statements[0].Kind)
	assert.Equal(t, ExprCall, ast.Statements[0].Expr.Kind)
	require.Equal(t, StmtExpr, ast.Statements[1].Kind)
	assert.Equal(t, ExprTempRef, ast.Statements[1].Expr.Kind)
}

func TestBuildASTJZWrapsConditionInNot(t *testing.T) {
	push := opcode(t, OpPushByte)
	jz := opcode(t, OpJz)
	nop := opcode(t, OpNOP)
	code := []byte{push, 1, jz, 0, 0, nop}

	d := Decode(code, nil)
	ast := BuildAST(d, false)
	var ifGoto *Stmt
	for i := range ast.Statements {
		if ast.Statements[i].Kind == StmtIfGoto {
			ifGoto = &ast.Statements[i]
		}
	}
	require.NotNil(t, ifGoto)
	assert.Equal(t, ExprNot, ifGoto.Expr.Kind)
}

func TestBuildASTEmptySystemGeneTagged(t *testing.T) {
	ast := BuildAST(Decoded{}, true)
	assert.True(t, ast.EmptySystemGene)
	assert.Empty(t, ast.Statements)
}

func TestBuildASTEmptyUserGeneDropped(t *testing.T) {
	ast := BuildAST(Decoded{}, false)
	assert.False(t, ast.EmptySystemGene)
	assert.Empty(t, ast.Statements)
}

func TestBuildASTDupClonesOrZero(t *testing.T) {
	dup := opcode(t, OpDup)
	pop := opcode(t, OpPop)
	code := []byte{dup, pop}
	d := Decode(code, nil)
	ast := BuildAST(d, false)
	require.Len(t, ast.Statements, 1)
	assert.Equal(t, float64(0), ast.Statements[0].Expr.Literal)
}
