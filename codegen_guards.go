// codegen_guards.go - runtime guards compiled into generated code: a
// GuardConfig struct toggles each check, and the two the runtime itself
// must detect -- arena and heap exhaustion -- are on by default. Both
// guards exit(1) directly rather than trapping, since this core has no
// signal/unwind machinery to recover into.
package main

// GuardConfig controls which runtime guards are compiled in.
type GuardConfig struct {
	NullPointerChecks    bool
	StackAlignmentChecks bool
	BoundsChecks         bool
	ArenaExhaustedChecks bool
	HeapExhaustedChecks  bool
}

var DefaultGuardConfig = GuardConfig{
	NullPointerChecks:    false, // too aggressive for straight-line generated code
	StackAlignmentChecks: false,
	BoundsChecks:         false, // arrays are out of scope for this core
	ArenaExhaustedChecks: true,
	HeapExhaustedChecks:  true,
}

// EmitArenaBoundsCheck compares cursorReg (the arena cursor just after a
// bump) against ArenaEnd and exits with status 1 if it has run past the
// reserved 6 MiB range, matching KindArenaExhausted. The jcc's
// displacement is patched immediately: the exit sequence's length is
// fixed, so the skip target is known before any further code is emitted.
func (cg *Codegen) EmitArenaBoundsCheck(cursorReg string) {
	cg.emitBoundsCheck(cursorReg, ArenaEnd)
}

// EmitHeapBoundsCheck mirrors EmitArenaBoundsCheck for HeapEnd, matching
// KindHeapExhaustedPostGC -- this core checks the bump against HeapEnd
// directly rather than running gc.go's mark-sweep pass first; "post GC" in
// the error kind's name documents the contract a complete runtime would
// satisfy before raising it, which this compiler core does not implement.
func (cg *Codegen) EmitHeapBoundsCheck(cursorReg string) {
	cg.emitBoundsCheck(cursorReg, HeapEnd)
}

func (cg *Codegen) emitBoundsCheck(cursorReg string, limit int64) {
	if cg.eb.code.overflow {
		return
	}
	EmitMovRegImm64(cg.eb.TextWriter(), "r12", limit)
	EmitCmpRegReg(cg.eb.TextWriter(), cursorReg, "r12")

	jccOffset := cg.eb.text.Len()
	fixup := EmitJccRel32(cg.eb.TextWriter(), jccOffset, JccLE) // skip the exit sequence if cursor <= limit
	cg.emitExitSyscall(1)
	cg.eb.PatchTextRel32(fixup, cg.eb.text.Len())
}

// emitExitSyscall emits the minimal exit(code) sequence for the active
// target.
func (cg *Codegen) emitExitSyscall(code int64) {
	w := cg.eb.TextWriter()
	switch cg.target.OS() {
	case OSMacOS:
		EmitMovRegImm64(w, "rdi", code)
		EmitMovRegImm64(w, "rax", macosSyscallExit)
		EmitSyscall(w)
	case OSWindows:
		// container_pe.go only ever wires the two console-output imports
		// (spec section 4.7), so there is no ExitProcess slot to call
		// through here; ret unwinds straight back to the loader, this
		// core's only Windows process-exit path either way (see
		// driver.go's emitExitTrampoline).
		EmitRet(w)
	default:
		EmitMovRegImm64(w, "rdi", code)
		EmitMovRegImm64(w, "rax", linuxSyscallExit)
		EmitSyscall(w)
	}
}
