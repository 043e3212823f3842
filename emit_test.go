package main

import "testing"

// TestBufferWrapperWritesThroughToBuffer checks every Writer method lands
// the expected bytes in the backing buffer.
func TestBufferWrapperWritesThroughToBuffer(t *testing.T) {
	eb := NewExecutableBuilder(NewTarget(OSLinux), 1024)
	w := eb.TextWriter()

	w.Write(0xAA)
	w.WriteN(0xBB, 3)
	w.Write8u(0x0102030405060708)
	w.WriteBytes([]byte{0x01, 0x02})

	got := eb.text.Bytes()
	want := []byte{0xAA, 0xBB, 0xBB, 0xBB, 0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01, 0x01, 0x02}
	if len(got) != len(want) {
		t.Fatalf("expected %d bytes, got %d: % x", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("byte %d: expected 0x%02x, got 0x%02x", i, want[i], got[i])
		}
	}
}

// TestCodeBufferOverflowIsSticky verifies the sticky-overflow invariant:
// once the capacity is exceeded, every subsequent write becomes a no-op
// even if, on its own, it would fit.
func TestCodeBufferOverflowIsSticky(t *testing.T) {
	eb := NewExecutableBuilder(NewTarget(OSLinux), 4)
	w := eb.TextWriter()

	w.WriteN(0x90, 4) // exactly fills capacity, does not trip
	if eb.Overflowed() {
		t.Fatal("overflow tripped before capacity was exceeded")
	}

	w.Write(0x90) // one more byte: trips the flag
	if !eb.Overflowed() {
		t.Fatal("expected overflow after exceeding capacity")
	}

	lenBefore := eb.text.Len()
	w.Write(0x90) // single byte, would otherwise fit fine on its own
	if eb.text.Len() != lenBefore {
		t.Fatalf("write after overflow should be a no-op: length grew from %d to %d", lenBefore, eb.text.Len())
	}
}

// TestRodataWriterHasNoOverflowTracking verifies only .text carries a
// capacity: .rodata/.data buffers grow freely.
func TestRodataWriterHasNoOverflowTracking(t *testing.T) {
	eb := NewExecutableBuilder(NewTarget(OSLinux), 1)
	w := eb.RodataWriter()
	w.WriteN(0x00, 64)
	if eb.Overflowed() {
		t.Fatal(".rodata writes should never trip the .text overflow flag")
	}
	if eb.rodata.Len() != 64 {
		t.Fatalf("expected 64 bytes in .rodata, got %d", eb.rodata.Len())
	}
}

// TestPatchRel32RoundTrip checks the CALL/JMP/Jcc patch arithmetic: the
// patched displacement, added back to the field's end address, must equal
// the target.
func TestPatchRel32RoundTrip(t *testing.T) {
	eb := NewExecutableBuilder(NewTarget(OSLinux), 1024)
	w := eb.TextWriter()

	w.WriteN(0x90, 10) // padding so the fixup isn't at offset 0
	fixup := EmitJmpRel32(w, w.Len())
	w.WriteN(0x90, 5)

	target := w.Len()
	eb.PatchTextRel32(fixup, target)

	buf := eb.text.Bytes()
	var disp int32
	disp = int32(buf[fixup.FieldOffset]) | int32(buf[fixup.FieldOffset+1])<<8 |
		int32(buf[fixup.FieldOffset+2])<<16 | int32(buf[fixup.FieldOffset+3])<<24
	gotTarget := fixup.FieldOffset + 4 + int(disp)
	if gotTarget != target {
		t.Errorf("patched displacement resolves to %d, expected target %d", gotTarget, target)
	}
}

// TestWriterLenTracksPriorWrites verifies Len() used by self-patching
// callers (arena.go) reports the true running offset.
func TestWriterLenTracksPriorWrites(t *testing.T) {
	eb := NewExecutableBuilder(NewTarget(OSLinux), 1024)
	w := eb.TextWriter()
	if w.Len() != 0 {
		t.Fatalf("expected Len()==0 on a fresh writer, got %d", w.Len())
	}
	w.WriteN(0x00, 7)
	if w.Len() != 7 {
		t.Fatalf("expected Len()==7 after 7 writes, got %d", w.Len())
	}
}
