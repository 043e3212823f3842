// encoder_ctrl.go - control-flow encoding: relative CALL/JMP/Jcc with a
// uniform patch-site discipline: field offset is start+1 for
// a one-byte opcode (0xE8 CALL, 0xE9 JMP) and start+2 for a two-byte 0F 8x
// Jcc; patch = target - (field_offset + 4).
package main

// CtrlFixup names where a displacement field landed in .text, so the
// caller can patch it once the jump target is known.
type CtrlFixup struct {
	FieldOffset int // offset of the 4-byte displacement field
}

// EmitCallRel32 writes E8 and a placeholder displacement, returning the
// fixup describing where to patch it.
func EmitCallRel32(w Writer, textOffsetBeforeWrite int) CtrlFixup {
	w.Write(0xE8)
	fieldOffset := textOffsetBeforeWrite + 1
	writeImm32(w, 0)
	return CtrlFixup{FieldOffset: fieldOffset}
}

// EmitJmpRel32 mirrors EmitCallRel32 for E9.
func EmitJmpRel32(w Writer, textOffsetBeforeWrite int) CtrlFixup {
	w.Write(0xE9)
	fieldOffset := textOffsetBeforeWrite + 1
	writeImm32(w, 0)
	return CtrlFixup{FieldOffset: fieldOffset}
}

// JccCond is the condition-code nibble for a 0F 8x Jcc.
type JccCond uint8

const (
	JccEQ JccCond = 0x4
	JccNE JccCond = 0x5
	JccLT JccCond = 0xC
	JccGE JccCond = 0xD
	JccLE JccCond = 0xE
	JccGT JccCond = 0xF
)

// EmitJccRel32 writes 0F 8x and a placeholder displacement.
func EmitJccRel32(w Writer, textOffsetBeforeWrite int, cond JccCond) CtrlFixup {
	w.Write(0x0F)
	w.Write(0x80 | byte(cond))
	fieldOffset := textOffsetBeforeWrite + 2
	writeImm32(w, 0)
	return CtrlFixup{FieldOffset: fieldOffset}
}

// PatchRel32 computes the relative displacement from the instruction's end
// (field_offset+4) to target and overwrites the 4 placeholder bytes
// in-place inside buf.
func PatchRel32(buf []byte, fixup CtrlFixup, targetOffset int) {
	disp := int32(targetOffset - (fixup.FieldOffset + 4))
	buf[fixup.FieldOffset+0] = byte(disp)
	buf[fixup.FieldOffset+1] = byte(disp >> 8)
	buf[fixup.FieldOffset+2] = byte(disp >> 16)
	buf[fixup.FieldOffset+3] = byte(disp >> 24)
}

// EmitLeaRipRel: REX.W + 8D /r, reg <- RIP-relative effective address. The
// displacement is patched the same way as a call/jmp once the target
// .rodata/.data offset translates to a final RIP-relative distance.
func EmitLeaRipRel(w Writer, textOffsetBeforeWrite int, dst string) CtrlFixup {
	dstEnc, dstExt := regEncoding(dst)
	emitREX(w, true, dstExt, false, false) // w64 forces REX present: always 1 byte
	w.Write(0x8D)
	w.Write(modrm(0b00, dstEnc, 0b101)) // rm=101, mod=00 => RIP-relative
	fieldOffset := textOffsetBeforeWrite + 3
	writeImm32(w, 0)
	return CtrlFixup{FieldOffset: fieldOffset}
}
