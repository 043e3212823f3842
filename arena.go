// arena.go - bump-pointer arena for action-block-scoped allocation:
// freed en bloc when a do-block exits back to depth 0, never
// individually. Targets the fixed ArenaBase..ArenaEnd range memlayout.go
// reserves, with an explicit enter/exit depth counter and reset_point
// cell rather than a heap-allocated arena struct.
package main

// ArenaCursorCell holds the bump pointer, seeded to ArenaBase.
const ArenaCursorCell = ArenaBase - 8

// ArenaDepthCell counts nested do-block entries; ArenaResetPointCell
// remembers the cursor value at the moment depth last transitioned 0->1,
// so exiting back to depth 0 can roll the cursor back in one store
// instead of tracking a reset point per nesting level.
const (
	ArenaDepthCell      = ArenaBase - 16
	ArenaResetPointCell = ArenaBase - 24
)

// arenaCellsPage is one page below ArenaBase, mapped alongside the arena
// itself so the cursor/depth/reset-point cells (which sit at ArenaBase-8,
// -16, -24 -- below the arena's own range) have backing memory.
const arenaCellsPage = 0x1000

// EmitArenaInit maps the arena's backing pages plus the cell page below
// them (mmap MAP_FIXED|MAP_ANON on Linux/macOS; the Windows target never
// reaches this -- the minimal PE wires no VirtualAlloc import, so
// driver.go's trampoline skips runtime init entirely there) and seeds the
// cursor/depth cells.
func EmitArenaInit(w Writer, target Target) {
	if target.OS() != OSWindows {
		emitMmapFixedAnon(w, target.OS(), ArenaBase-arenaCellsPage, ArenaSize+arenaCellsPage)
	}
	EmitMovRegImm64(w, "rax", ArenaBase)
	EmitMovRegImm64(w, "rbx", ArenaCursorCell)
	emitStoreAbsolute64(w, "rbx", "rax")

	EmitMovRegImm64(w, "rax", 0)
	EmitMovRegImm64(w, "rbx", ArenaDepthCell)
	emitStoreAbsolute64(w, "rbx", "rax")
}

// emitMmapFixedAnon emits mmap(base, size, PROT_READ|PROT_WRITE,
// MAP_PRIVATE|MAP_ANONYMOUS|MAP_FIXED, -1, 0). Linux and macOS share this
// shape; only the syscall number (platform_io.go's linux/macOS constants)
// and the MAP_FIXED bit value differ in principle, but both platforms use
// 0x10 for MAP_FIXED so one routine covers both.
func emitMmapFixedAnon(w Writer, os OS, base int64, size int) {
	const (
		protReadWrite       = 3
		mapPrivateAnonFixed = 0x22 | 0x10 // MAP_PRIVATE|MAP_ANONYMOUS|MAP_FIXED
		sysMmapLinux        = 9
		sysMmapMacOS        = 0x2000000 + 197
	)
	syscallNo := int64(sysMmapLinux)
	if os == OSMacOS {
		syscallNo = int64(sysMmapMacOS)
	}
	EmitMovRegImm64(w, "rdi", base)
	EmitMovRegImm64(w, "rsi", int64(size))
	EmitMovRegImm64(w, "rdx", protReadWrite)
	EmitMovRegImm64(w, "r10", mapPrivateAnonFixed)
	EmitMovRegImm64(w, "r8", -1)
	EmitMovRegImm64(w, "r9", 0)
	EmitMovRegImm64(w, "rax", syscallNo)
	EmitSyscall(w)
}

// EmitArenaEnter increments the depth counter and, only on the true 0->1
// transition, snapshots the current cursor into ArenaResetPointCell. A
// nested enter (depth already > 0) must leave the outermost block's
// reset point untouched, or a matching nested exit/enter pair would
// clobber the point the outermost exit needs to roll back to -- hence the
// actual conditional skip below rather than an unconditional refresh.
func EmitArenaEnter(w Writer) {
	EmitMovRegImm64(w, "r15", ArenaDepthCell)
	emitLoadAbsolute64(w, "r15", "rax")

	EmitMovRegImm64(w, "r13", 0)
	EmitCmpRegReg(w, "rax", "r13")
	skipSnapshot := EmitJccRel32(w, w.Len(), JccNE) // depth != 0: skip the snapshot

	EmitMovRegImm64(w, "r15", ArenaCursorCell)
	emitLoadAbsolute64(w, "r15", "r14")
	EmitMovRegImm64(w, "r15", ArenaResetPointCell)
	emitStoreAbsolute64(w, "r15", "r14")

	w.PatchRel32(skipSnapshot, w.Len())

	EmitMovRegImm64(w, "r13", 1)
	EmitAddRegReg(w, "rax", "r13")
	EmitMovRegImm64(w, "r15", ArenaDepthCell)
	emitStoreAbsolute64(w, "r15", "rax")
}

// EmitArenaExit decrements the depth counter and, only once it reaches
// exactly 0, rolls the cursor back to ArenaResetPointCell -- this is the
// "freed en bloc" step that makes re-entering a block side-effect free.
// A nested exit (depth
// still > 0 after the decrement) must leave the cursor alone: the
// allocations made by the *outer* block since its own enter are still
// live.
func EmitArenaExit(w Writer) {
	EmitMovRegImm64(w, "r15", ArenaDepthCell)
	emitLoadAbsolute64(w, "r15", "rax")
	EmitMovRegImm64(w, "r13", 1)
	EmitSubRegReg(w, "rax", "r13")
	emitStoreAbsolute64(w, "r15", "rax")

	EmitMovRegImm64(w, "r13", 0)
	EmitCmpRegReg(w, "rax", "r13")
	skipRestore := EmitJccRel32(w, w.Len(), JccNE) // depth != 0: skip the restore

	EmitMovRegImm64(w, "r15", ArenaResetPointCell)
	emitLoadAbsolute64(w, "r15", "r14")
	EmitMovRegImm64(w, "r15", ArenaCursorCell)
	emitStoreAbsolute64(w, "r15", "r14")

	w.PatchRel32(skipRestore, w.Len())
}

// EmitArenaAlloc bumps the cursor by sizeBytes and leaves the old cursor
// (the allocation's address) in dstReg. Overflow past ArenaEnd is checked
// by codegen_guards.go's EmitArenaBoundsCheck, emitted by the caller
// immediately after this.
func EmitArenaAlloc(w Writer, dstReg string, sizeBytes int) {
	EmitMovRegImm64(w, "r15", ArenaCursorCell)
	emitLoadAbsolute64(w, "r15", dstReg)
	EmitMovRegImm64(w, "r13", int64(sizeBytes))
	EmitAddRegReg(w, "r13", dstReg)
	emitStoreAbsolute64(w, "r15", "r13")
}
