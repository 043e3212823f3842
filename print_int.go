// print_int.go - the integer-to-decimal-ASCII emitter genPrintStmt needs
// for anything that isn't a bare string literal: a variable load or an
// arithmetic expression has to actually reach stdout as digits, not just
// a trailing newline. Built the same way arena.go's
// enter/exit builds its own local loop: a self-patching backward jump
// rather than a pre-sized buffer of instructions.
package main

// decimalScratchBytes is the stack buffer genPrintInt reserves to build an
// integer's ASCII form back-to-front: a 64-bit magnitude never needs more
// than 20 digits, plus one byte for a leading '-' and one for the trailing
// newline, rounded up to a 16-byte-aligned size.
const decimalScratchBytes = 32

// genPrintInt converts the 64-bit integer currently in rax to decimal
// ASCII and writes it, plus a trailing newline, to stdout/console. None of
// the registers it uses (rax, rcx, rdx, rsi, rdi) are in GPCalleeSaved or
// TemporalCalleeSaved, so no live user variable can be sitting in any of
// them here -- consistent with genFuncCall and genIntBinaryOp, which
// already clobber this same register set freely.
func (cg *Codegen) genPrintInt(valueReg string) {
	w := cg.out()
	if valueReg != "rax" {
		EmitMovRegReg(w, "rax", valueReg)
	}

	EmitSubRegImm32(w, "rsp", decimalScratchBytes)
	cg.stack.Sub(decimalScratchBytes)
	// rsi walks backward from one past the buffer's last byte, so the
	// first store (the trailing newline) lands at rsp+decimalScratchBytes-1.
	EmitMovRegReg(w, "rsi", "rsp")
	EmitAddRegImm32(w, "rsi", decimalScratchBytes)
	EmitSubRegImm32(w, "rsi", 1)
	EmitMovRegImm64(w, "rdi", '\n')
	EmitMovByteMemReg(w, "rsi", "rdi")

	// rdi doubles as the negative-value flag once the newline byte is
	// written: 0 for non-negative, 1 once EmitNegReg runs.
	EmitXorRegReg(w, "rdi", "rdi")
	EmitTestRegReg(w, "rax", "rax")
	skipNeg := EmitJccRel32(w, w.Len(), JccGE)
	EmitNegReg(w, "rax")
	EmitMovRegImm64(w, "rdi", 1)
	w.PatchRel32(skipNeg, w.Len())

	EmitMovRegImm64(w, "rcx", 10)

	// div-by-10 loop: each pass peels the low decimal digit of the
	// (now-unsigned) magnitude in rax into rdx, stores it, and repeats
	// while the quotient is still nonzero. The first pass always runs, so
	// a zero value still emits a single "0" digit.
	loopStart := w.Len()
	EmitXorRegReg(w, "rdx", "rdx")
	EmitDivRegUnsigned(w, "rcx")
	EmitAddRegImm32(w, "rdx", '0')
	EmitSubRegImm32(w, "rsi", 1)
	EmitMovByteMemReg(w, "rsi", "rdx")
	EmitTestRegReg(w, "rax", "rax")
	loopFixup := EmitJccRel32(w, w.Len(), JccNE)
	w.PatchRel32(loopFixup, loopStart)

	EmitTestRegReg(w, "rdi", "rdi")
	skipSign := EmitJccRel32(w, w.Len(), JccEQ)
	EmitSubRegImm32(w, "rsi", 1)
	EmitMovRegImm64(w, "rdx", '-')
	EmitMovByteMemReg(w, "rsi", "rdx")
	w.PatchRel32(skipSign, w.Len())

	// length = (buffer base + decimalScratchBytes) - rsi.
	EmitMovRegReg(w, "rdi", "rsp")
	EmitAddRegImm32(w, "rdi", decimalScratchBytes)
	EmitSubRegReg(w, "rdi", "rsi")

	for _, fx := range EmitPrintBuffer(w, cg.target, "rsi", "rdi") {
		cg.deferIATFixup(fx.Fixup, fx.SlotRVA)
	}

	EmitAddRegImm32(w, "rsp", decimalScratchBytes)
	cg.stack.Add(decimalScratchBytes)
}
