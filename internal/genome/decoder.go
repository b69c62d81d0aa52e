package genome

import (
	"encoding/binary"
	"log/slog"
	"math"
)

// Instruction is one decoded bytecode instruction (spec §4.F).
type Instruction struct {
	ByteOffset int
	Opcode     byte
	// Operand holds the raw operand: the byte literal for PUSH_BYTE, the
	// float32 bit pattern decoded for PUSH_FLOAT (as a float32), or the
	// signed jump displacement for jump opcodes. API opcodes carry no
	// inline operand (Operand is 0).
	Operand float64
	Size    int
}

// VirtualEnd is the sentinel jump-target index representing "one past
// the last decoded instruction" (spec §4.F: "a jump target equal to the
// end-of-stream is legal").
const VirtualEnd = -1

// Decoded is the decoder's full output: the instruction list plus the
// forward (jump instruction index -> target instruction index, or
// VirtualEnd) and inverse (target index -> source indices) maps.
type Decoded struct {
	Instructions []Instruction
	JumpTargets  map[int]int
	JumpSources  map[int][]int
}

func isJumpOpcode(name string) bool {
	switch name {
	case OpJz, OpJmp, OpJnz, OpJne:
		return true
	default:
		return false
	}
}

// Decode performs a linear scan over a gene's raw byte sequence,
// producing the instruction list and jump target maps (spec §4.F).
// Truncated trailing bytes stop decoding at the last complete
// instruction (logged at Warn via logger, which may be nil to disable
// logging).
func Decode(code []byte, logger *slog.Logger) Decoded {
	d := Decoded{
		JumpTargets: make(map[int]int),
		JumpSources: make(map[int][]int),
	}

	pc := 0
	for pc < len(code) {
		opcode := code[pc]
		spec, ok := Spec(opcode)
		if !ok {
			if logger != nil {
				logger.Warn("genome: invalid opcode, stopping decode", slog.Int("offset", pc), slog.Int("opcode", int(opcode)))
			}
			break
		}
		size := InstructionSize(opcode)
		if pc+size > len(code) {
			if logger != nil {
				logger.Warn("genome: truncated trailing instruction, stopping decode", slog.Int("offset", pc))
			}
			break
		}

		inst := Instruction{ByteOffset: pc, Opcode: opcode, Size: size}
		switch {
		case spec.Class == ClassControl && spec.Operand == SizeByteLiteral:
			inst.Operand = float64(code[pc+1])
		case spec.Class == ClassControl && spec.Operand == SizeFloat:
			bits := binary.LittleEndian.Uint32(code[pc+1 : pc+5])
			inst.Operand = float64(math.Float32frombits(bits))
		case spec.Class == ClassControl && spec.Operand == SizeJumpDisp:
			disp := int16(binary.LittleEndian.Uint16(code[pc+1 : pc+3]))
			inst.Operand = float64(disp)
		}

		d.Instructions = append(d.Instructions, inst)
		pc += size
	}

	d.resolveJumps(logger)
	return d
}

// resolveJumps computes, for each jump instruction, the instruction
// index its displacement targets. Displacement is relative to the
// address immediately after the jump instruction (spec §4.F). Targets
// landing exactly at end-of-stream resolve to VirtualEnd; targets
// landing on an invalid byte offset (not the start of a decoded
// instruction, and not end-of-stream) are dropped (logged, treated as
// a no-op jump).
func (d *Decoded) resolveJumps(logger *slog.Logger) {
	offsetToIndex := make(map[int]int, len(d.Instructions))
	for i, inst := range d.Instructions {
		offsetToIndex[inst.ByteOffset] = i
	}
	endOffset := 0
	if len(d.Instructions) > 0 {
		last := d.Instructions[len(d.Instructions)-1]
		endOffset = last.ByteOffset + last.Size
	}

	for i, inst := range d.Instructions {
		spec, _ := Spec(inst.Opcode)
		if !isJumpOpcode(spec.Name) {
			continue
		}
		targetOffset := inst.ByteOffset + inst.Size + int(int16(inst.Operand))

		if targetOffset == endOffset {
			d.JumpTargets[i] = VirtualEnd
			continue
		}
		targetIdx, ok := offsetToIndex[targetOffset]
		if !ok {
			if logger != nil {
				logger.Warn("genome: jump targets invalid offset, dropping jump", slog.Int("instruction_index", i), slog.Int("target_offset", targetOffset))
			}
			continue
		}
		d.JumpTargets[i] = targetIdx
		d.JumpSources[targetIdx] = append(d.JumpSources[targetIdx], i)
	}
}
