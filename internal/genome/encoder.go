package genome

import (
	"encoding/binary"
	"math"
)

// Encode serializes an instruction list back into a raw bytecode
// stream, re-packing instructions contiguously from offset 0. It is the
// inverse of Decode for any stream Decode itself produced (spec §8's
// round-trip property: parse(encode(program)) ≡ program), though it
// does not attempt to reproduce an original stream's exact
// byte-for-byte layout if that stream contained trailing garbage Decode
// would have discarded.
func Encode(instructions []Instruction) []byte {
	var out []byte
	for _, inst := range instructions {
		out = append(out, inst.Opcode)
		spec, ok := Spec(inst.Opcode)
		if !ok {
			continue
		}
		switch {
		case spec.Class == ClassControl && spec.Operand == SizeByteLiteral:
			out = append(out, byte(inst.Operand))
		case spec.Class == ClassControl && spec.Operand == SizeFloat:
			var buf [4]byte
			binary.LittleEndian.PutUint32(buf[:], math.Float32bits(float32(inst.Operand)))
			out = append(out, buf[:]...)
		case spec.Class == ClassControl && spec.Operand == SizeJumpDisp:
			var buf [2]byte
			binary.LittleEndian.PutUint16(buf[:], uint16(int16(inst.Operand)))
			out = append(out, buf[:]...)
		}
	}
	return out
}
