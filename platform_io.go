// platform_io.go - the only place codegen varies by target OS: emitting a
// string to stdout/console. Linux and macOS both go through the raw write
// syscall (different syscall numbers); Windows goes through the two
// imports container_pe.go wires into the IAT.
package main

import "golang.org/x/sys/unix"

// linuxSyscallWrite/linuxSyscallExit come from golang.org/x/sys/unix
// rather than being hand-copied: the one concern in this codebase that
// needs a raw syscall number is the generated program's own direct
// syscalls, not ours.
const (
	linuxSyscallWrite = unix.SYS_WRITE
	linuxSyscallExit  = unix.SYS_EXIT
)

// macOS syscalls carry the BSD class bit (0x2000000) that x/sys/unix's
// linux-flavored constants don't; recorded directly since x/sys has no
// darwin/amd64 build tag reachable from a linux-hosted compiler build.
const (
	macosSyscallWrite = 0x2000000 + 4
	macosSyscallExit  = 0x2000000 + 1
)

// IATCallFixup pairs a pending call-through-IAT displacement with the
// fixed slot RVA it must end up pointing at (container_pe.go's
// IATSlotGetStdHandle/IATSlotWriteConsoleA). Distinct from a plain
// CtrlFixup because its target lives in the .idata section, not .rodata.
type IATCallFixup struct {
	Fixup   CtrlFixup
	SlotRVA uint32
}

// EmitPrintBytes emits the instruction sequence to write a .rodata string
// of known length to stdout for the given target, then returns the two
// kinds of pending displacement the caller must patch once the final
// section layout is known: rodata-pointing and (Windows only) IAT-slot-
// pointing.
func EmitPrintBytes(w Writer, target Target, rodataOffset, length int) (rodataFixups []CtrlFixup, iatFixups []IATCallFixup) {
	switch target.OS() {
	case OSWindows:
		return emitPrintBytesWindows(w, rodataOffset, length)
	default:
		return emitPrintBytesPosix(w, target.OS(), rodataOffset, length), nil
	}
}

func emitPrintBytesPosix(w Writer, os OS, rodataOffset, length int) []CtrlFixup {
	syscallNo := int64(linuxSyscallWrite)
	if os == OSMacOS {
		syscallNo = int64(macosSyscallWrite)
	}
	// rax = syscall number, rdi = fd(1), rdx = length, rsi <- &rodata[off].
	// r11 is a variable home (GPCalleeSaved) and the syscall instruction
	// destroys it (rflags land there), so it rides across on the stack.
	EmitMovRegImm64(w, "rax", syscallNo)
	EmitMovRegImm64(w, "rdi", 1)
	EmitMovRegImm64(w, "rdx", int64(length))
	fx := EmitLeaRipRel(w, w.Len(), "rsi")
	EmitPush(w, "r11")
	EmitSyscall(w)
	EmitPop(w, "r11")
	return []CtrlFixup{fx}
}

// emitPrintBytesWindows calls GetStdHandle(STD_OUTPUT_HANDLE) then
// WriteConsoleA(handle, buf, len, &written, NULL), through the two fixed
// IAT slots container_pe.go reserves at 0x2060/0x2068. Every fixup asks
// the writer for its own current offset immediately before emitting the
// instruction it belongs to, rather than hand-adding up preceding
// instruction lengths -- accumulated arithmetic drifts out of sync the
// moment an intervening instruction's encoding changes.
func emitPrintBytesWindows(w Writer, rodataOffset, length int) (rodataFixups []CtrlFixup, iatFixups []IATCallFixup) {
	EmitSubRegImm32(w, "rsp", winShadowAndAlign)
	EmitMovRegImm64(w, "rcx", uint64ToInt64(0xFFFFFFF5)) // STD_OUTPUT_HANDLE = -11
	fxGetStdHandle := emitCallIndirectIAT(w, w.Len(), IATSlotGetStdHandle)
	EmitMovRegReg(w, "rcx", "rax") // handle
	fxLea := EmitLeaRipRel(w, w.Len(), "rdx")
	EmitMovRegImm64(w, "r8", int64(length))
	EmitMovRegImm64(w, "r9", 0) // &written: NULL is accepted by WriteConsoleA per its contract here
	fxWriteConsole := emitCallIndirectIAT(w, w.Len(), IATSlotWriteConsoleA)
	EmitAddRegImm32(w, "rsp", winShadowAndAlign)
	return []CtrlFixup{fxLea}, []IATCallFixup{
		{Fixup: fxGetStdHandle, SlotRVA: IATSlotGetStdHandle},
		{Fixup: fxWriteConsole, SlotRVA: IATSlotWriteConsoleA},
	}
}

// winShadowAndAlign is the Microsoft-x64 caller obligation around every
// call: 32 bytes of shadow space for the callee's register spills plus 8
// more so rsp lands 16-byte aligned at the CALL (the entry point receives
// rsp 8 past alignment, return address included).
const winShadowAndAlign = 0x28

// EmitPrintBuffer is EmitPrintBytes's sibling for a runtime-computed
// buffer: bufReg/lenReg hold a pointer and byte count that only exist once
// the program is running (the decimal-conversion scratch buffer), so there
// is no .rodata offset to fix up -- only the Windows IAT calls still need
// patching. Both register arguments are clobbered by Windows' argument
// shuffle into rcx/rdx/r8/r9; callers that still need bufReg/lenReg
// afterward must have already spilled a copy.
func EmitPrintBuffer(w Writer, target Target, bufReg, lenReg string) (iatFixups []IATCallFixup) {
	switch target.OS() {
	case OSWindows:
		return emitPrintBufferWindows(w, bufReg, lenReg)
	default:
		emitPrintBufferPosix(w, target.OS(), bufReg, lenReg)
		return nil
	}
}

func emitPrintBufferPosix(w Writer, os OS, bufReg, lenReg string) {
	syscallNo := int64(linuxSyscallWrite)
	if os == OSMacOS {
		syscallNo = int64(macosSyscallWrite)
	}
	EmitMovRegReg(w, "rsi", bufReg)
	EmitMovRegReg(w, "rdx", lenReg)
	EmitMovRegImm64(w, "rax", syscallNo)
	EmitMovRegImm64(w, "rdi", 1)
	EmitPush(w, "r11") // syscall clobbers r11; it may hold a live variable
	EmitSyscall(w)
	EmitPop(w, "r11")
}

// emitPrintBufferWindows calls GetStdHandle before touching rdx/r8 for
// WriteConsoleA's arguments: GetStdHandle's own call clobbers every
// caller-saved register (the Microsoft x64 convention's rax/rcx/rdx/r8/r9/
// r10/r11), so bufReg/lenReg must be callee-saved registers that survive
// across it -- the caller is responsible for holding them there.
func emitPrintBufferWindows(w Writer, bufReg, lenReg string) (iatFixups []IATCallFixup) {
	EmitSubRegImm32(w, "rsp", winShadowAndAlign)
	EmitMovRegImm64(w, "rcx", uint64ToInt64(0xFFFFFFF5)) // STD_OUTPUT_HANDLE = -11
	fxGetStdHandle := emitCallIndirectIAT(w, w.Len(), IATSlotGetStdHandle)
	EmitMovRegReg(w, "rcx", "rax")
	EmitMovRegReg(w, "rdx", bufReg)
	EmitMovRegReg(w, "r8", lenReg)
	EmitMovRegImm64(w, "r9", 0)
	fxWriteConsole := emitCallIndirectIAT(w, w.Len(), IATSlotWriteConsoleA)
	EmitAddRegImm32(w, "rsp", winShadowAndAlign)
	return []IATCallFixup{
		{Fixup: fxGetStdHandle, SlotRVA: IATSlotGetStdHandle},
		{Fixup: fxWriteConsole, SlotRVA: IATSlotWriteConsoleA},
	}
}

func uint64ToInt64(v uint32) int64 { return int64(int32(v)) }

// emitCallIndirectIAT: FF 15 disp32, call [rip+disp] where disp targets a
// fixed IAT slot RVA. Returns the fixup for the displacement field.
func emitCallIndirectIAT(w Writer, textOffsetBeforeWrite int, slotRVA uint32) CtrlFixup {
	w.Write(0xFF)
	w.Write(0x15)
	fieldOffset := textOffsetBeforeWrite + 2
	writeImm32(w, 0)
	_ = slotRVA // patched later once the image base + slot RVA - next-instr RIP is known
	return CtrlFixup{FieldOffset: fieldOffset}
}
