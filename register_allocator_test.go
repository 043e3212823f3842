package main

import "testing"

// TestAllocGPFirstFitOrder verifies registers come out in GPCalleeSaved's
// declared order, not address or name order.
func TestAllocGPFirstFitOrder(t *testing.T) {
	ra := NewRegisterAllocator()
	for i, want := range GPCalleeSaved {
		got := ra.AllocGP()
		if got.Spilled {
			t.Fatalf("slot %d: unexpectedly spilled", i)
		}
		if got.Register != want {
			t.Errorf("slot %d: expected %q, got %q", i, want, got.Register)
		}
	}
}

// TestAllocGPSpillsOnExhaustion verifies that once every GP callee-saved
// register is in use, further allocations spill to successive negative
// RBP-relative slots instead of reusing a live register.
func TestAllocGPSpillsOnExhaustion(t *testing.T) {
	ra := NewRegisterAllocator()
	for range GPCalleeSaved {
		ra.AllocGP()
	}

	first := ra.AllocGP()
	if !first.Spilled {
		t.Fatalf("expected a spill once all GP registers are in use, got register %q", first.Register)
	}
	if first.FrameSlot != -8 {
		t.Errorf("expected first spill slot -8, got %d", first.FrameSlot)
	}

	second := ra.AllocGP()
	if !second.Spilled || second.FrameSlot != -16 {
		t.Errorf("expected second spill slot -16, got spilled=%v slot=%d", second.Spilled, second.FrameSlot)
	}
}

// TestFreeGPReopensFirstFitSlot verifies freeing a register makes it
// eligible for first-fit reuse again, at its original position.
func TestFreeGPReopensFirstFitSlot(t *testing.T) {
	ra := NewRegisterAllocator()
	first := ra.AllocGP() // GPCalleeSaved[0]
	_ = ra.AllocGP()      // GPCalleeSaved[1]

	ra.FreeGP(first.Register)

	reused := ra.AllocGP()
	if reused.Register != first.Register {
		t.Errorf("expected freed register %q to be reused first-fit, got %q", first.Register, reused.Register)
	}
}

// TestFreeGPOfUntrackedRegisterIsNoOp verifies freeing something that was
// never allocated (e.g. a spilled symbol's phantom "register") doesn't
// panic or corrupt the bitmask.
func TestFreeGPOfUntrackedRegisterIsNoOp(t *testing.T) {
	ra := NewRegisterAllocator()
	ra.FreeGP("not-a-real-register")

	for _, want := range GPCalleeSaved {
		got := ra.AllocGP()
		if got.Register != want {
			t.Fatalf("bitmask corrupted by no-op free: expected %q, got %q", want, got.Register)
		}
	}
}

// TestTemporalAllocatorIsIndependentOfGP verifies the two bitmasks don't
// share state: exhausting GP registers must not affect temporal allocation.
func TestTemporalAllocatorIsIndependentOfGP(t *testing.T) {
	ra := NewRegisterAllocator()
	for range GPCalleeSaved {
		ra.AllocGP()
	}

	got := ra.AllocTemporal()
	if got.Spilled || got.Register != TemporalCalleeSaved[0] {
		t.Errorf("expected temporal allocation to succeed independently of GP exhaustion, got spilled=%v reg=%q", got.Spilled, got.Register)
	}
}

// TestResetClearsBothBitmasksAndSpillCounter verifies Reset gives a fresh
// function body a clean allocation scope: both bitmasks reopen at their
// first-fit slot, and the spill counter restarts from -8.
func TestResetClearsBothBitmasksAndSpillCounter(t *testing.T) {
	ra := NewRegisterAllocator()
	for range GPCalleeSaved {
		ra.AllocGP()
	}
	for range TemporalCalleeSaved {
		ra.AllocTemporal()
	}
	spilled := ra.AllocGP() // forces a spill before Reset
	if !spilled.Spilled {
		t.Fatal("setup: expected this allocation to spill")
	}

	ra.Reset()

	got := ra.AllocGP()
	if got.Spilled || got.Register != GPCalleeSaved[0] {
		t.Errorf("expected Reset to free all GP registers, got spilled=%v reg=%q", got.Spilled, got.Register)
	}
	gotTemporal := ra.AllocTemporal()
	if gotTemporal.Spilled || gotTemporal.Register != TemporalCalleeSaved[0] {
		t.Errorf("expected Reset to free all temporal registers, got spilled=%v reg=%q", gotTemporal.Spilled, gotTemporal.Register)
	}

	for range GPCalleeSaved[1:] {
		ra.AllocGP()
	}
	next := ra.AllocGP()
	if !next.Spilled || next.FrameSlot != -8 {
		t.Errorf("expected spill counter to restart at -8 after Reset, got spilled=%v slot=%d", next.Spilled, next.FrameSlot)
	}
}

// TestStorageStringFormatsSpilledAsFrameOffset checks the Storage.String
// helper used in diagnostic/verbose traces.
func TestStorageStringFormatsSpilledAsFrameOffset(t *testing.T) {
	s := Storage{Spilled: true, FrameSlot: -16}
	if s.String() != "[rbp-16]" {
		t.Errorf("expected \"[rbp-16]\", got %q", s.String())
	}

	reg := Storage{Register: "rbx"}
	if reg.String() != "rbx" {
		t.Errorf("expected \"rbx\", got %q", reg.String())
	}
}
