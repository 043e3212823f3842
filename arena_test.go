package main

import "testing"

// decodeRel32 reads the little-endian displacement written at fieldOffset
// and resolves it to an absolute offset, mirroring PatchRel32's math.
func decodeRel32(buf []byte, fieldOffset int) int {
	disp := int32(buf[fieldOffset]) | int32(buf[fieldOffset+1])<<8 |
		int32(buf[fieldOffset+2])<<16 | int32(buf[fieldOffset+3])<<24
	return fieldOffset + 4 + int(disp)
}

// TestArenaEnterSkipsSnapshotOnNestedEntry verifies the regression this file
// guards against: a nested EmitArenaEnter (depth already > 0) must jump
// around the cursor-snapshot block rather than clobbering the outermost
// block's reset point. Every instruction EmitArenaEnter emits here has a
// fixed REX-forced length (no base register encoding 100 or 101, so no
// SIB or disp8 byte varies things),
// so the byte offsets are fully deterministic.
func TestArenaEnterSkipsSnapshotOnNestedEntry(t *testing.T) {
	eb := NewExecutableBuilder(NewTarget(OSLinux), 1024)
	w := eb.TextWriter()
	EmitArenaEnter(w)

	buf := eb.text.Bytes()

	// mov r15,imm64(10) ; load r15->rax(3) ; mov r13,imm64(10) ; cmp rax,r13(3)
	// = 26 bytes before the Jcc opcode.
	jccOpcodeOffset := 26
	if buf[jccOpcodeOffset] != 0x0F || buf[jccOpcodeOffset+1] != 0x80|byte(JccNE) {
		t.Fatalf("expected Jcc(NE) opcode at offset %d, got % x", jccOpcodeOffset, buf[jccOpcodeOffset:jccOpcodeOffset+2])
	}
	fieldOffset := jccOpcodeOffset + 2

	// Snapshot block: mov r15,imm64(10) ; load r15->r14(3) ; mov
	// r15,imm64(10) ; store r15<-r14(3) = 26 bytes, landing right after the
	// 6-byte Jcc at offset 32, i.e. target 58.
	const wantTarget = 58
	gotTarget := decodeRel32(buf, fieldOffset)
	if gotTarget != wantTarget {
		t.Errorf("skip-snapshot jump resolves to %d, expected %d (nested enter would re-run the snapshot and clobber the outer reset point)", gotTarget, wantTarget)
	}

	if len(buf) != 84 {
		t.Fatalf("expected EmitArenaEnter to emit 84 bytes total, got %d", len(buf))
	}
}

// TestArenaExitSkipsRestoreWhileNested verifies the matching half: a nested
// EmitArenaExit (depth still > 0 after the decrement) must jump around the
// cursor-restore block, leaving the live allocations of the still-open
// outer block untouched.
func TestArenaExitSkipsRestoreWhileNested(t *testing.T) {
	eb := NewExecutableBuilder(NewTarget(OSLinux), 1024)
	w := eb.TextWriter()
	EmitArenaExit(w)

	buf := eb.text.Bytes()

	// mov r15,imm64(10) ; load r15->rax(3) ; mov r13,imm64(10) ; sub
	// rax,r13(3) ; store r15<-rax(3) ; mov r13,imm64(10) ; cmp rax,r13(3)
	// = 42 bytes before the Jcc opcode.
	jccOpcodeOffset := 42
	if buf[jccOpcodeOffset] != 0x0F || buf[jccOpcodeOffset+1] != 0x80|byte(JccNE) {
		t.Fatalf("expected Jcc(NE) opcode at offset %d, got % x", jccOpcodeOffset, buf[jccOpcodeOffset:jccOpcodeOffset+2])
	}
	fieldOffset := jccOpcodeOffset + 2

	// Restore block: mov r15,imm64(10) ; load r15->r14(3) ; mov
	// r15,imm64(10) ; store r15<-r14(3) = 26 bytes, landing right after the
	// 6-byte Jcc at offset 48, i.e. target 74.
	const wantTarget = 74
	gotTarget := decodeRel32(buf, fieldOffset)
	if gotTarget != wantTarget {
		t.Errorf("skip-restore jump resolves to %d, expected %d (nested exit would roll back the cursor while the outer block is still open)", gotTarget, wantTarget)
	}

	if len(buf) != 74 {
		t.Fatalf("expected EmitArenaExit to emit 74 bytes total, got %d", len(buf))
	}
}

// TestArenaCursorCellLayout checks the fixed-offset memory cells arena.go
// derives from ArenaBase don't overlap and sit below it, per memlayout.go.
func TestArenaCursorCellLayout(t *testing.T) {
	if ArenaCursorCell != ArenaBase-8 {
		t.Errorf("ArenaCursorCell = %d, expected ArenaBase-8 = %d", ArenaCursorCell, ArenaBase-8)
	}
	if ArenaDepthCell != ArenaBase-16 {
		t.Errorf("ArenaDepthCell = %d, expected ArenaBase-16 = %d", ArenaDepthCell, ArenaBase-16)
	}
	if ArenaResetPointCell != ArenaBase-24 {
		t.Errorf("ArenaResetPointCell = %d, expected ArenaBase-24 = %d", ArenaResetPointCell, ArenaBase-24)
	}
}

// TestEmitArenaAllocBumpsCursorByRequestedSize verifies the allocation
// routine loads the cursor cell and advances it by exactly the requested
// byte count.
func TestEmitArenaAllocBumpsCursorByRequestedSize(t *testing.T) {
	eb := NewExecutableBuilder(NewTarget(OSLinux), 1024)
	w := eb.TextWriter()
	EmitArenaAlloc(w, "rax", 48)

	buf := eb.text.Bytes()
	if !findMovImm64(buf, ArenaCursorCell) {
		t.Error("expected an immediate load of the arena cursor cell address")
	}
	if !findMovImm64(buf, 48) {
		t.Error("expected an immediate load of the requested allocation size")
	}
}
