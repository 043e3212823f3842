// rcheap.go - reference-counted heap: a 16-bit refcount header per
// object, bump-allocated out of HeapBase..HeapEnd, with a single
// bump-pointer cell at HeapBumpPointerCell. The refcount saturates at
// 0xFFFF instead of wrapping.
package main

// RCHeaderSize is the object header every heap allocation carries before
// its payload: a 16-bit refcount plus a 16-bit zone/type tag, 4-byte
// aligned.
const RCHeaderSize = 4

const MaxRefcount = 0xFFFF

// EmitHeapInit writes the one-time runtime routine that seeds the bump
// pointer cell at HeapBumpPointerCell with HeapBase. Called once from the
// entry trampoline before any user code runs.
func EmitHeapInit(w Writer) {
	EmitMovRegImm64(w, "rax", HeapBase)
	EmitMovRegImm64(w, "rbx", HeapBumpPointerCell)
	emitStoreAbsolute64(w, "rbx", "rax")
}

// EmitHeapAlloc writes the bump-allocation routine: load the bump cell,
// add sizeBytes+RCHeaderSize, store it back, write the refcount header
// (=1), and leave the payload pointer in dstReg. Reports
// KindHeapExhaustedPostGC via the caller's guard check once the bump
// pointer would cross HeapEnd; that check is emitted by
// codegen_guards.go's EmitHeapBoundsCheck, not duplicated here.
func EmitHeapAlloc(w Writer, dstReg string, sizeBytes int) {
	EmitMovRegImm64(w, "r15", HeapBumpPointerCell)
	emitLoadAbsolute64(w, "r15", dstReg) // dstReg = current bump pointer
	EmitMovRegImm64(w, "r13", int64(sizeBytes+RCHeaderSize))
	EmitAddRegReg(w, "r13", dstReg)
	emitStoreAbsolute64(w, "r15", "r13") // bump cell += size

	// refcount header: [dstReg] = 1 (16-bit), [dstReg+2] = zone tag 0
	EmitMovRegImm64(w, "r13", 1)
	emitStoreAbsolute16(w, dstReg, "r13")

	EmitMovRegImm64(w, "r13", RCHeaderSize)
	EmitAddRegReg(w, dstReg, "r13") // dstReg now points past the header
}

// EmitRetain/EmitRelease implement refcount increment/decrement with
// saturation at MaxRefcount: rc_inc is a no-op at 0xFFFF, and release
// never frees individually -- RC objects are reclaimed only by the
// mark-sweep pass in gc.go.
func EmitRetain(w Writer, objReg string) {
	emitLoadAbsolute16(w, objReg, "r12")
	EmitMovRegImm64(w, "r13", MaxRefcount)
	EmitCmpRegReg(w, "r12", "r13")
	skipIncrement := EmitJccRel32(w, w.Len(), JccEQ) // already saturated: rc_inc is a no-op
	EmitMovRegImm64(w, "r13", 1)
	EmitAddRegReg(w, "r12", "r13")
	emitStoreAbsolute16(w, objReg, "r12")
	w.PatchRel32(skipIncrement, w.Len())
}

// EmitRelease decrements the refcount unless it's already zero, never
// going negative; reaching zero leaves the object for gc.go's mark-sweep
// pass to reclaim rather than freeing it here (the object state machine
// only transitions ALLOCATED -> MARKED_FREED during a sweep).
func EmitRelease(w Writer, objReg string) {
	emitLoadAbsolute16(w, objReg, "r12")
	EmitMovRegImm64(w, "r13", 0)
	EmitCmpRegReg(w, "r12", "r13")
	skipDecrement := EmitJccRel32(w, w.Len(), JccEQ) // already zero: nothing to decrement
	EmitMovRegImm64(w, "r13", 1)
	EmitSubRegReg(w, "r12", "r13")
	emitStoreAbsolute16(w, objReg, "r12")
	w.PatchRel32(skipDecrement, w.Len())
}

// absModRM picks the ModR/M byte for a [addrReg] memory operand: mod=00
// normally, mod=01 with a zero disp8 when the base encodes as 101
// (rbp/r13), since mod=00 rm=101 means RIP-relative instead.
func absModRM(regEnc, addrEnc uint8) byte {
	if addrEnc&7 == 0b101 {
		return modrm(0b01, regEnc, addrEnc&7)
	}
	return modrm(0b00, regEnc, addrEnc&7)
}

func emitLoadAbsolute64(w Writer, addrReg, dstReg string) {
	dstEnc, dstExt := regEncoding(dstReg)
	addrEnc, addrExt := regEncoding(addrReg)
	emitREX(w, true, dstExt, false, addrExt)
	w.Write(0x8B)
	w.Write(absModRM(dstEnc, addrEnc))
	if addrEnc&7 == 0b100 {
		w.Write(sib(0, 0b100, addrEnc&7))
	}
	if addrEnc&7 == 0b101 {
		w.Write(0)
	}
}

func emitStoreAbsolute64(w Writer, addrReg, srcReg string) {
	srcEnc, srcExt := regEncoding(srcReg)
	addrEnc, addrExt := regEncoding(addrReg)
	emitREX(w, true, srcExt, false, addrExt)
	w.Write(0x89)
	w.Write(absModRM(srcEnc, addrEnc))
	if addrEnc&7 == 0b100 {
		w.Write(sib(0, 0b100, addrEnc&7))
	}
	if addrEnc&7 == 0b101 {
		w.Write(0)
	}
}

// emitLoadAbsolute16: REX.W 0F B7 /r (movzx dst64, word [addr]). The
// zero-extension matters: the 64-bit compare against MaxRefcount that
// follows every 16-bit load would otherwise see stale upper bits.
func emitLoadAbsolute16(w Writer, addrReg, dstReg string) {
	dstEnc, dstExt := regEncoding(dstReg)
	addrEnc, addrExt := regEncoding(addrReg)
	emitREX(w, true, dstExt, false, addrExt)
	w.Write(0x0F)
	w.Write(0xB7)
	w.Write(absModRM(dstEnc, addrEnc))
	if addrEnc&7 == 0b100 {
		w.Write(sib(0, 0b100, addrEnc&7))
	}
	if addrEnc&7 == 0b101 {
		w.Write(0)
	}
}

// emitStoreAbsolute16: 66 + 89 /r with no REX.W -- the 0x66 operand-size
// prefix only takes effect when REX.W is absent, so this variant can't
// share emitStoreAbsolute64's REX assembly.
func emitStoreAbsolute16(w Writer, addrReg, srcReg string) {
	srcEnc, srcExt := regEncoding(srcReg)
	addrEnc, addrExt := regEncoding(addrReg)
	w.Write(0x66)
	emitREX(w, false, srcExt, false, addrExt)
	w.Write(0x89)
	w.Write(absModRM(srcEnc, addrEnc))
	if addrEnc&7 == 0b100 {
		w.Write(sib(0, 0b100, addrEnc&7))
	}
	if addrEnc&7 == 0b101 {
		w.Write(0)
	}
}
