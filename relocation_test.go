package main

import "testing"

// TestEmitCallRel32FieldOffset verifies the field-offset discipline
// encoder_ctrl.go promises: a one-byte opcode (0xE8) puts the 4-byte
// displacement at start+1, not start+0.
func TestEmitCallRel32FieldOffset(t *testing.T) {
	eb := NewExecutableBuilder(NewTarget(OSLinux), 1024)
	w := eb.TextWriter()
	w.WriteN(0x90, 5) // padding so the call isn't at offset 0
	fixup := EmitCallRel32(w, w.Len())

	buf := eb.text.Bytes()
	if buf[5] != 0xE8 {
		t.Fatalf("expected CALL opcode 0xE8 at offset 5, got 0x%02x", buf[5])
	}
	if fixup.FieldOffset != 6 {
		t.Errorf("expected field offset 6 (opcode+1), got %d", fixup.FieldOffset)
	}
}

// TestEmitJmpRel32FieldOffset mirrors the CALL test for JMP (0xE9).
func TestEmitJmpRel32FieldOffset(t *testing.T) {
	eb := NewExecutableBuilder(NewTarget(OSLinux), 1024)
	w := eb.TextWriter()
	w.WriteN(0x90, 3)
	fixup := EmitJmpRel32(w, w.Len())

	buf := eb.text.Bytes()
	if buf[3] != 0xE9 {
		t.Fatalf("expected JMP opcode 0xE9 at offset 3, got 0x%02x", buf[3])
	}
	if fixup.FieldOffset != 4 {
		t.Errorf("expected field offset 4 (opcode+1), got %d", fixup.FieldOffset)
	}
}

// TestEmitJccRel32FieldOffset verifies the two-byte 0F 8x opcode pushes
// the field offset to start+2 instead of start+1.
func TestEmitJccRel32FieldOffset(t *testing.T) {
	eb := NewExecutableBuilder(NewTarget(OSLinux), 1024)
	w := eb.TextWriter()
	fixup := EmitJccRel32(w, w.Len(), JccLT)

	buf := eb.text.Bytes()
	if buf[0] != 0x0F || buf[1] != 0x80|byte(JccLT) {
		t.Fatalf("expected Jcc(LT) opcode at offset 0, got % x", buf[0:2])
	}
	if fixup.FieldOffset != 2 {
		t.Errorf("expected field offset 2 (two-byte opcode), got %d", fixup.FieldOffset)
	}
}

// TestPatchRel32NegativeDisplacement verifies a backward jump (target
// before the field) produces a negative, correctly sign-extended
// displacement rather than wrapping into a huge positive jump.
func TestPatchRel32NegativeDisplacement(t *testing.T) {
	eb := NewExecutableBuilder(NewTarget(OSLinux), 1024)
	w := eb.TextWriter()

	loopTop := w.Len()
	w.WriteN(0x90, 20)
	fixup := EmitJmpRel32(w, w.Len())

	eb.PatchTextRel32(fixup, loopTop)

	buf := eb.text.Bytes()
	disp := int32(buf[fixup.FieldOffset]) | int32(buf[fixup.FieldOffset+1])<<8 |
		int32(buf[fixup.FieldOffset+2])<<16 | int32(buf[fixup.FieldOffset+3])<<24
	if disp >= 0 {
		t.Fatalf("expected a negative displacement for a backward jump, got %d", disp)
	}
	gotTarget := fixup.FieldOffset + 4 + int(disp)
	if gotTarget != loopTop {
		t.Errorf("backward jump resolves to %d, expected %d", gotTarget, loopTop)
	}
}

// TestEmitLeaRipRelFieldOffsetPlainRegister verifies the field offset for a
// RIP-relative LEA into a non-extended register: REX(1)+opcode(1)+ModRM(1)
// = 3 bytes before the displacement.
func TestEmitLeaRipRelFieldOffsetPlainRegister(t *testing.T) {
	eb := NewExecutableBuilder(NewTarget(OSLinux), 1024)
	w := eb.TextWriter()
	fixup := EmitLeaRipRel(w, w.Len(), "rax")

	buf := eb.text.Bytes()
	if buf[0] != 0x48 { // REX.W (no R/X/B needed for rax)
		t.Fatalf("expected REX.W (0x48), got 0x%02x", buf[0])
	}
	if buf[1] != 0x8D {
		t.Fatalf("expected LEA opcode 0x8D, got 0x%02x", buf[1])
	}
	if fixup.FieldOffset != 3 {
		t.Errorf("expected field offset 3, got %d", fixup.FieldOffset)
	}
}

// TestEmitLeaRipRelSetsRexRForExtendedDest verifies REX.R (not REX.B) is
// the bit an extended destination register sets here, since the
// destination sits in ModR/M's reg field for this encoding, not rm.
func TestEmitLeaRipRelSetsRexRForExtendedDest(t *testing.T) {
	eb := NewExecutableBuilder(NewTarget(OSLinux), 1024)
	w := eb.TextWriter()
	EmitLeaRipRel(w, w.Len(), "r12")

	buf := eb.text.Bytes()
	const wantREX = 0x48 | rexR // REX.W | REX.R
	if buf[0] != wantREX {
		t.Errorf("expected REX 0x%02x for extended dest, got 0x%02x", wantREX, buf[0])
	}
}
