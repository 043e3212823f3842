// codegen.go - the tree-walking code generator: walks the Program AST
// once, in source order, emitting x86-64 directly into an
// ExecutableBuilder. One struct holds every piece of mutable compiler
// state and is threaded explicitly; there are no package-level mutables
// beyond VerboseMode.
package main

import "math"

// Codegen is the explicit compiler context every codegen method threads
// through; it is the sole writer of eb/symtab/functable/ra for the
// duration of the codegen phase.
type Codegen struct {
	eb        *ExecutableBuilder
	target    Target
	pool      *Pool
	strs      *StringPool
	lits      *LiteralPool
	symtab    *SymbolTable
	functable *FunctionTable
	ra        *RegisterAllocator
	diag      *ErrorCollector

	// stack mirrors, on the Go side, every push/pop and rsp adjustment the
	// emitted code performs, so an unbalanced call-site or scratch-buffer
	// sequence panics at compile time instead of corrupting the generated
	// program's stack at run time.
	stack *StackValidator

	// rodataFixups collects every RIP-relative displacement that points
	// into .rodata; its final value depends on the distance between
	// .text and .rodata in the finished image, which isn't known until
	// the container writer lays out sections, so the driver patches
	// these after Generate returns rather than codegen patching them
	// immediately (unlike call-site fixups, which are .text-to-.text and
	// safe to patch the moment the callee's offset is known).
	rodataFixups []RodataFixup

	// iatFixups collects Windows call-through-IAT displacements, patched
	// by the driver against container_pe.go's fixed slot RVAs once .text
	// is in its final position.
	iatFixups []IATFixup
}

// RodataFixup pairs a pending displacement field with the .rodata offset
// it must end up pointing at.
type RodataFixup struct {
	Fixup        CtrlFixup
	RodataOffset int
}

// IATFixup pairs a pending displacement field with the fixed IAT slot RVA
// it must end up pointing at.
type IATFixup struct {
	Fixup   CtrlFixup
	SlotRVA uint32
}

func NewCodegen(eb *ExecutableBuilder, target Target, pool *Pool, strs *StringPool, lits *LiteralPool, diag *ErrorCollector) *Codegen {
	return &Codegen{
		eb:        eb,
		target:    target,
		pool:      pool,
		strs:      strs,
		lits:      lits,
		symtab:    NewSymbolTable(),
		functable: NewFunctionTable(),
		ra:        NewRegisterAllocator(),
		diag:      diag,
		stack:     NewStackValidator(),
	}
}

// RodataFixups returns every deferred .rodata-pointing fixup collected
// during Generate, for the driver to patch once final layout is known.
func (cg *Codegen) RodataFixups() []RodataFixup { return cg.rodataFixups }

// IATFixups returns every deferred IAT-slot-pointing fixup (Windows only)
// collected during Generate.
func (cg *Codegen) IATFixups() []IATFixup { return cg.iatFixups }

func (cg *Codegen) deferRodataFixup(fx CtrlFixup, rodataOffset int) {
	cg.rodataFixups = append(cg.rodataFixups, RodataFixup{Fixup: fx, RodataOffset: rodataOffset})
}

func (cg *Codegen) deferIATFixup(fx CtrlFixup, slotRVA uint32) {
	cg.iatFixups = append(cg.iatFixups, IATFixup{Fixup: fx, SlotRVA: slotRVA})
}

// valueKind tags what's currently sitting in a register after evaluating
// an expression: an integer (GP register) or a float64 (xmm register).
type valueKind uint8

const (
	valInt valueKind = iota
	valFloat
)

// value names where an expression's result landed.
type value struct {
	kind valueKind
	reg  string
}

// out is a small convenience wrapper so codegen methods read like
// `cg.out().Write(...)` without repeating eb.TextWriter() everywhere.
func (cg *Codegen) out() Writer { return cg.eb.TextWriter() }

// Generate walks the whole program in source order, emitting every
// statement as it's reached. Forward function calls go through
// functable.go's fixup list rather than a separate declaration pre-pass:
// a one-pass compiler patches what it can as soon as the callee is
// defined and reports KindFixupUnresolvedAtFinal for whatever is still
// outstanding when the walk finishes.
func (cg *Codegen) Generate(program NodeIndex) error {
	prog := cg.pool.Get(program)
	if prog.Kind != NodeProgram {
		return KindError(KindASTCorrupt, "root node is not a program", SourceLocation{})
	}
	stmts := NodeIndex(prog.Aux)

	for cur := stmts; cur != NullNode; {
		n := cg.pool.Get(cur)
		cg.genStmt(n.Left)
		cur = n.Right
		if cg.eb.Overflowed() {
			return KindError(KindCodegenBufferOverflow, "code buffer capacity exceeded", SourceLocation{})
		}
	}

	if pending := cg.functable.PendingCount(); pending > 0 {
		return KindError(KindFixupUnresolvedAtFinal,
			"unresolved forward references: "+joinNames(cg.functable.PendingNames()), SourceLocation{})
	}
	return nil
}

func joinNames(names []string) string {
	s := ""
	for i, n := range names {
		if i > 0 {
			s += ", "
		}
		s += n
	}
	return s
}

func (cg *Codegen) genStmt(idx NodeIndex) {
	n := cg.pool.Get(idx)
	if n.Kind == NodePoison {
		cg.diag.AddError(KindError(KindASTCorrupt, "poison node reached codegen", SourceLocation{Line: n.Line}))
		return
	}
	switch n.Kind {
	case NodeVarDef:
		cg.genVarDef(idx, n)
	case NodePrintStmt:
		cg.genPrintStmt(n)
	case NodeFuncDef:
		cg.genFuncDef(n)
	case NodeFuncCall:
		cg.genExpr(idx) // result discarded as a statement
	case NodeDoBlock:
		cg.genDoBlock(n)
	case NodeTemporalWrite:
		cg.genTemporalWrite(n)
	case NodeGapCompute:
		cg.genGapCompute(n)
	case NodeInlineAsm:
		cg.genInlineAsm(n)
	default:
		cg.genExpr(idx)
	}
}

// genInlineAsm copies the literal bytes of an `asm/ "..." \` statement
// straight into .text. The string is hex pairs, whitespace-separated or
// packed; a stray non-hex character poisons the whole statement rather
// than emitting half an instruction.
func (cg *Codegen) genInlineAsm(n Node) {
	text := cg.strs.Get(int(n.Left), int(n.Right))
	raw := make([]byte, 0, len(text)/2)
	hi := -1
	for i := 0; i < len(text); i++ {
		c := text[i]
		var v int
		switch {
		case c == ' ' || c == '\t':
			continue
		case c >= '0' && c <= '9':
			v = int(c - '0')
		case c >= 'a' && c <= 'f':
			v = int(c-'a') + 10
		case c >= 'A' && c <= 'F':
			v = int(c-'A') + 10
		default:
			cg.diag.AddError(KindError(KindCodegenUnsupported,
				"inline asm accepts hex byte pairs only", SourceLocation{Line: n.Line}))
			return
		}
		if hi < 0 {
			hi = v
		} else {
			raw = append(raw, byte(hi<<4|v))
			hi = -1
		}
	}
	if hi >= 0 {
		cg.diag.AddError(KindError(KindCodegenUnsupported,
			"inline asm has a dangling half byte", SourceLocation{Line: n.Line}))
		return
	}
	cg.out().WriteBytes(raw)
}

// genGapCompute handles `gap.compute ident \`: records a GAP entry keyed
// by the target variable's name hash (functable.go's NameHash, reused here
// rather than inventing a second hashing scheme) so a later GGGX/solid-
// number layer has a stable handle to look the variable back up by.
func (cg *Codegen) genGapCompute(n Node) {
	nameNode := cg.pool.Get(n.Left)
	name := cg.strs.Get(int(nameNode.Left), int(nameNode.Right))
	if _, err := ResolveVariable(cg.symtab, name, SourceLocation{}); err != nil {
		cg.diag.AddError(err.(CompilerError))
		return
	}
	EmitMovRegImm64(cg.out(), "rax", int64(NameHash(name)))
	EmitGapRecord(cg.out(), "rax")
}

func (cg *Codegen) genVarDef(idx NodeIndex, n Node) {
	nameNode := cg.pool.Get(n.Right)
	name := cg.strs.Get(int(nameNode.Left), int(nameNode.Right))
	vt := VarType(n.Aux)

	v := cg.genExpr(n.Left)
	sym, err := DeclareVariable(cg.symtab, cg.ra, name, vt, idx)
	if err != nil {
		cg.diag.AddError(err.(CompilerError))
		return
	}
	cg.storeValue(sym.Storage, v)
}

// genPrintStmt handles every output verb (print/txt/out/fmt/dyn): they
// share one shape at this core's level of support, a single expression
// written to stdout/console. A string literal is written verbatim; any
// other expression is evaluated and its result run through genPrintInt's
// decimal-conversion routine. A float result is truncated toward zero
// first (EmitCvttsd2si) -- this core's grammar only exercises float-typed
// prints indirectly through arithmetic, so truncation rather than a
// fractional formatter is the documented simplification here.
func (cg *Codegen) genPrintStmt(n Node) {
	exprNode := cg.pool.Get(n.Left)
	if exprNode.Kind == NodeStringLit {
		text := cg.strs.Get(int(exprNode.Left), int(exprNode.Right)) + "\n"
		off := cg.eb.DefineRodata([]byte(text))
		cg.emitPrint(off, len(text))
		return
	}
	v := cg.genExpr(n.Left)
	reg := v.reg
	if v.kind == valFloat {
		EmitCvttsd2si(cg.out(), "rax", v.reg)
		reg = "rax"
	}
	cg.genPrintInt(reg)
}

func (cg *Codegen) emitPrint(rodataOffset, length int) {
	rodataFx, iatFx := EmitPrintBytes(cg.out(), cg.target, rodataOffset, length)
	for _, fx := range rodataFx {
		cg.deferRodataFixup(fx, rodataOffset)
	}
	for _, fx := range iatFx {
		cg.deferIATFixup(fx.Fixup, fx.SlotRVA)
	}
}

// genFuncDef emits the function body at the current .text offset, records
// it in the function table, and drains any fixups waiting on it. Bodies
// land inline in the statement stream, so a jump is emitted first to carry
// straight-line control flow over them; the entry offset the function
// table records is the prologue right after that jump.
//
// Prologue/epilogue follow the standard frame shape: push rbp / mov rbp,
// rsp / sub rsp, frame -- with the frame size patched in after the walk,
// since spill slots are only counted once the body has been generated.
// rbx is the one callee-saved register the allocator hands out, so the
// prologue parks it in the frame's first reserved slot and the epilogue
// restores it; r8-r11 are caller-saved and the call-site push discipline
// covers them.
func (cg *Codegen) genFuncDef(n Node) {
	w := cg.out()
	nameOff := UnpackFuncName(n.Aux)
	bodyIdx := UnpackFuncBody(n.Aux)
	name := cg.strs.Get(int(nameOff), stringLenAt(cg.strs, int(nameOff)))

	if _, err := cg.functable.Declare(name, bodyIdx); err != nil {
		cg.diag.AddError(err.(CompilerError))
	}

	skipBody := EmitJmpRel32(w, cg.eb.text.Len())
	entry := cg.eb.text.Len()

	callerRA := *cg.ra
	cg.symtab.PushScope()
	cg.ra.Reset()

	EmitPush(w, "rbp")
	EmitMovRegReg(w, "rbp", "rsp")
	frameField := cg.eb.text.Len() + 3 // REX + 81 + modrm precede the imm32
	EmitSubRegImm32(w, "rsp", 0)       // frame size, patched below
	rbxSave := cg.ra.spill()           // [rbp-8]
	EmitMovStackFromReg(w, int32(rbxSave.FrameSlot), "rbx")

	cg.bindParams(n.Left)

	body := cg.pool.Get(bodyIdx)
	for cur := body.Left; cur != NullNode; {
		s := cg.pool.Get(cur)
		cg.genStmt(s.Left)
		cur = s.Right
	}

	EmitMovRegFromStack(w, "rbx", int32(rbxSave.FrameSlot))
	EmitMovRegReg(w, "rsp", "rbp")
	EmitPop(w, "rbp")
	EmitRet(w)

	frame := int32((cg.ra.spillSlots*8 + 15) &^ 15)
	cg.eb.PatchTextImm32(frameField, frame)

	cg.symtab.PopScope()
	*cg.ra = callerRA
	cg.eb.PatchTextRel32(skipBody, cg.eb.text.Len())

	for _, fx := range cg.functable.MarkDefined(name, entry) {
		cg.eb.PatchTextRel32(CtrlFixup{FieldOffset: fx.CallSiteOffset}, entry)
	}
}

// bindParams declares each parameter in the function's fresh scope and
// stores the matching argument register into its assigned storage, in the
// order the active calling convention delivers them.
func (cg *Codegen) bindParams(paramHead NodeIndex) {
	argRegs := cg.target.CallingConvention().IntArgRegs
	i := 0
	for cur := paramHead; cur != NullNode && i < len(argRegs); {
		p := cg.pool.Get(cur)
		ident := cg.pool.Get(p.Left)
		name := cg.strs.Get(int(ident.Left), int(ident.Right))
		sym, err := DeclareVariable(cg.symtab, cg.ra, name, VarUntyped, p.Left)
		if err != nil {
			cg.diag.AddError(err.(CompilerError))
			return
		}
		sym.Kind = SymParam
		cg.storeValue(sym.Storage, value{kind: valInt, reg: argRegs[i]})
		cur = p.Right
		i++
	}
}

// stringLenAt recovers a string's length given only its offset, by
// scanning to the pool's null terminator -- the function name's string
// index is truncated to 16 bits inside NodeFuncDef.Aux, so the length
// can't be packed alongside it.
func stringLenAt(sp *StringPool, offset int) int {
	end := offset
	for end < len(sp.data) && sp.data[end] != 0 {
		end++
	}
	return end - offset
}

// genDoBlock emits an action block's bump-pointer enter/exit pair and
// advances the GC generation counter once the block closes, since a
// do-block boundary is this core's only natural "a round of temporal
// writes just went out of scope" checkpoint for the mark-sweep pass to
// measure object age against.
func (cg *Codegen) genDoBlock(n Node) {
	EmitArenaEnter(cg.out())
	cg.symtab.PushScope()
	for cur := n.Left; cur != NullNode; {
		s := cg.pool.Get(cur)
		cg.genStmt(s.Left)
		cur = s.Right
	}
	cg.symtab.PopScope()
	EmitArenaExit(cg.out())
	EmitGCAdvanceGeneration(cg.out())
}

// genTemporalWrite handles `expr >> ident \`: the value is written into
// the FUTURE zone, where a later `< ident` read finds it.
// The target identifier's own binding is a plain variable, not a zone
// entry; the zone entry is what a later `< ident` read walks back through.
//
// The value is boxed on the RC heap rather than stored in the zone entry
// directly: EmitZoneWrite's value_ptr field is a pointer by contract (the
// mark-sweep pass in gc.go walks it as one), so a raw integer stored there
// would desync the zone table from the heap the moment GC runs. r12-r15
// are free for this: DeclareVariable only ever calls ra.AllocGP, so
// TemporalCalleeSaved registers never hold a live user variable here.
func (cg *Codegen) genTemporalWrite(n Node) {
	v := cg.genExpr(n.Left)
	reg := v.reg
	if v.kind == valFloat {
		EmitCvttsd2si(cg.out(), "r13", v.reg)
		reg = "r13"
	}
	EmitMovRegReg(cg.out(), "rcx", reg) // survives the heap-alloc sequence below

	EmitHeapAlloc(cg.out(), "r14", 8) // r14 = boxed payload pointer
	cg.EmitHeapBoundsCheck("r14")
	emitStoreAbsolute64(cg.out(), "r14", "rcx")

	EmitMovRegReg(cg.out(), "r15", "r14")
	EmitSubRegImm32(cg.out(), "r15", RCHeaderSize) // r15 = the object's header address

	EmitRetain(cg.out(), "r15")         // the zone table keeps its own reference alongside the fresh allocation's
	EmitMovRegImm64(cg.out(), "rax", 0) // timeline_id: single-timeline core
	EmitZoneWrite(cg.out(), ZoneFuture, "r14", "rax")
	EmitGCLinkTimeline(cg.out(), "r15", "r15", ZonePresent, ZoneFuture)
}

// genTemporalRead handles `< ident`: reads the boxed pointer back out of
// the FUTURE zone, releases the zone table's reference (the read consumes
// it; this core never reads the same zone entry twice), and dereferences
// the payload.
func (cg *Codegen) genTemporalRead(n Node) value {
	EmitZoneRead(cg.out(), ZoneFuture, "r14") // r14 = boxed payload pointer
	EmitMovRegReg(cg.out(), "r15", "r14")
	EmitSubRegImm32(cg.out(), "r15", RCHeaderSize)
	EmitRelease(cg.out(), "r15")
	emitLoadAbsolute64(cg.out(), "r14", "rax")
	return value{kind: valInt, reg: "rax"}
}

// genExpr evaluates an expression node, returning which register (and
// kind: int or float) holds the result.
func (cg *Codegen) genExpr(idx NodeIndex) value {
	n := cg.pool.Get(idx)
	switch n.Kind {
	case NodeNumberLit:
		return cg.genNumberLit(n)
	case NodeStringLit:
		// A string literal outside print position has no runtime
		// representation this core materializes (no string variables);
		// it evaluates to a harmless zero so surrounding arithmetic
		// codegen still has somewhere to write.
		EmitMovRegImm64(cg.out(), "rax", 0)
		return value{kind: valInt, reg: "rax"}
	case NodeIdentRef:
		return cg.genIdentRef(n)
	case NodeBinaryOp:
		return cg.genBinaryOp(n)
	case NodeUnaryOp:
		return cg.genUnaryOp(n)
	case NodeFuncCall:
		return cg.genFuncCall(n)
	case NodeTemporalRead:
		return cg.genTemporalRead(n)
	default:
		cg.diag.AddError(KindError(KindASTCorrupt, "unexpected node in expression position", SourceLocation{}))
		return value{kind: valInt, reg: "rax"}
	}
}

func (cg *Codegen) genNumberLit(n Node) value {
	if n.Aux == litTagFloat {
		f := cg.lits.Float(int(n.Left))
		off := cg.floatBitsToRodata(f)
		fx := EmitMovsdLoadRip(cg.out(), cg.eb.text.Len(), "xmm0")
		cg.deferRodataFixup(fx, off)
		return value{kind: valFloat, reg: "xmm0"}
	}
	v := cg.lits.Int(int(n.Left))
	EmitMovRegImm64(cg.out(), "rax", v)
	return value{kind: valInt, reg: "rax"}
}

// floatBitsToRodata interns an 8-byte little-endian double constant into
// .rodata and returns its offset, so EmitMovsdLoadRip's RIP-relative fixup
// has somewhere concrete to point once the driver finalizes layout.
func (cg *Codegen) floatBitsToRodata(f float64) int {
	bits := make([]byte, 8)
	u := math.Float64bits(f)
	for i := 0; i < 8; i++ {
		bits[i] = byte(u >> (8 * i))
	}
	return cg.eb.DefineRodata(bits)
}

func (cg *Codegen) genIdentRef(n Node) value {
	name := cg.strs.Get(int(n.Left), int(n.Right))
	sym, err := ResolveVariable(cg.symtab, name, SourceLocation{})
	if err != nil {
		cg.diag.AddError(err.(CompilerError))
		return value{kind: valInt, reg: "rax"}
	}
	cg.loadValue(sym.Storage, "rax")
	if sym.Type == VarFloat {
		// float homes hold raw double bits in a GP register/slot; movq
		// them back into the xmm accumulator before use.
		EmitMovqXmmFromReg(cg.out(), "xmm0", "rax")
		return value{kind: valFloat, reg: "xmm0"}
	}
	return value{kind: valInt, reg: "rax"}
}

// genUnaryOp handles unary minus, the only unary operator this grammar
// has. A float operand flips its IEEE-754 sign bit: the
// 0x8000000000000000 mask is staged through rsi into xmm1 and xorpd'd in,
// which avoids the 16-byte alignment a memory-operand xorpd would demand
// of a .rodata constant.
func (cg *Codegen) genUnaryOp(n Node) value {
	w := cg.out()
	v := cg.genExpr(n.Left)
	if v.kind == valFloat {
		if v.reg != "xmm0" {
			EmitMovsd(w, "xmm0", v.reg)
		}
		EmitMovRegImm64(w, "rsi", -1<<63)
		EmitMovqXmmFromReg(w, "xmm1", "rsi")
		EmitXorpd(w, "xmm0", "xmm1")
		return value{kind: valFloat, reg: "xmm0"}
	}
	EmitNegReg(w, v.reg)
	return v
}

// genBinaryOp evaluates left, parks it on the stack across the right
// operand's evaluation (push for an integer, an 8-byte movsd spill for a
// float -- push/pop only move general-purpose registers), then dispatches
// on the combined operand kinds. A mixed int/float pair promotes the
// integer side to double.
func (cg *Codegen) genBinaryOp(n Node) value {
	left := cg.genExpr(n.Left)
	if left.kind == valFloat {
		EmitSubRegImm32(cg.out(), "rsp", 8)
		cg.stack.Sub(8)
		EmitMovsdStoreRSP(cg.out(), left.reg)
	} else {
		EmitPush(cg.out(), left.reg)
		cg.stack.Push(left.reg)
	}
	right := cg.genExpr(n.Right)
	op := TokenKind(n.Aux)

	if left.kind == valFloat || right.kind == valFloat {
		if right.kind == valInt {
			EmitCvtsi2sd(cg.out(), "xmm1", right.reg)
		} else if right.reg != "xmm1" {
			EmitMovsd(cg.out(), "xmm1", right.reg)
		}
		if left.kind == valFloat {
			EmitMovsdLoadRSP(cg.out(), "xmm0")
			EmitAddRegImm32(cg.out(), "rsp", 8)
			cg.stack.Add(8)
		} else {
			EmitPop(cg.out(), "rsi")
			cg.stack.Pop("rsi")
			EmitCvtsi2sd(cg.out(), "xmm0", "rsi")
		}
		return cg.genFloatBinaryOp(op)
	}
	return cg.genIntBinaryOp(op, right)
}

// genIntBinaryOp pops the left operand into rsi (never a variable home)
// and combines it with the right operand, which genExpr always leaves in
// rax. Comparisons materialize 0/1 through a flags-preserving mov-imm64
// pair around a Jcc; the logical forms assume their operands are already
// 0/1, which holds for comparison results (the only producers this
// grammar chains into them).
func (cg *Codegen) genIntBinaryOp(op TokenKind, right value) value {
	w := cg.out()
	EmitPop(w, "rsi") // left operand
	cg.stack.Pop("rsi")
	switch op {
	case TokPlus:
		EmitAddRegReg(w, "rsi", right.reg)
		EmitMovRegReg(w, "rax", "rsi")
	case TokMinus:
		EmitSubRegReg(w, "rsi", right.reg)
		EmitMovRegReg(w, "rax", "rsi")
	case TokStar:
		EmitImulRegReg(w, "rsi", right.reg)
		EmitMovRegReg(w, "rax", "rsi")
	case TokSlash, TokPercent:
		EmitMovRegReg(w, "rcx", right.reg)
		EmitMovRegReg(w, "rax", "rsi")
		EmitCqo(w)
		EmitIdiv(w, "rcx")
		if op == TokPercent {
			EmitMovRegReg(w, "rax", "rdx") // remainder
		}
	case TokShl, TokShlDot, TokShr, TokShrDot:
		// the shift count is a runtime value here (right.reg), not a
		// parse-time constant, so it has to land in CL first.
		EmitMovRegReg(w, "rcx", right.reg)
		EmitMovRegReg(w, "rax", "rsi")
		if op == TokShl || op == TokShlDot {
			EmitShlCL(w, "rax")
		} else {
			EmitSarCL(w, "rax")
		}
	case TokAndAnd, TokAndAndDot:
		EmitAndRegReg(w, "rsi", right.reg)
		EmitMovRegReg(w, "rax", "rsi")
	case TokOrOr, TokOrOrDot:
		EmitOrRegReg(w, "rsi", right.reg)
		EmitMovRegReg(w, "rax", "rsi")
	default:
		cg.genIntComparison(op, right)
	}
	return value{kind: valInt, reg: "rax"}
}

// genIntComparison: cmp, then rax <- 1, conditionally overwritten with 0.
// EmitMovRegImm64 never touches rflags, so the two loads can straddle the
// compare without a setcc encoding.
func (cg *Codegen) genIntComparison(op TokenKind, right value) {
	w := cg.out()
	var cond JccCond
	switch op {
	case TokEqEq, TokStarAssign:
		cond = JccEQ
	case TokNotEq, TokStarNE:
		cond = JccNE
	case TokStarArrow:
		cond = JccGT
	case TokStarUnder:
		cond = JccLT
	default:
		cg.diag.AddError(KindError(KindCodegenUnsupported,
			"operator has no integer codegen form", SourceLocation{}))
		return
	}
	EmitCmpRegReg(w, "rsi", right.reg)
	EmitMovRegImm64(w, "rax", 1)
	taken := EmitJccRel32(w, w.Len(), cond)
	EmitMovRegImm64(w, "rax", 0)
	w.PatchRel32(taken, w.Len())
}

// genFloatBinaryOp combines xmm0 (left) with xmm1 (right); both were
// staged there by genBinaryOp. Only the four arithmetic forms exist for
// doubles; comparisons on floats are a surface-language feature this core
// reports rather than miscompiles.
func (cg *Codegen) genFloatBinaryOp(op TokenKind) value {
	switch op {
	case TokPlus:
		EmitAddsd(cg.out(), "xmm0", "xmm1")
	case TokMinus:
		EmitSubsd(cg.out(), "xmm0", "xmm1")
	case TokStar:
		EmitMulsd(cg.out(), "xmm0", "xmm1")
	case TokSlash:
		EmitDivsd(cg.out(), "xmm0", "xmm1")
	default:
		cg.diag.AddError(KindError(KindCodegenUnsupported,
			"operator has no float codegen form", SourceLocation{}))
	}
	return value{kind: valFloat, reg: "xmm0"}
}

// taylorEmitter is the shape every intrinsics.go series emitter shares.
type taylorEmitter func(w Writer, load DoubleConstLoader, xScratch, accScratch, termScratch string)

// mathIntrinsics maps the math builtins this core emits inline.
// sin/cos/exp are the only transcendentals intrinsics.go implements as
// Taylor series, and sqrt rides the hardware sqrtsd instruction; the
// wider reserved name list (tan, log, log10,
// log2, sinh, cosh, tanh, asin, acos, atan, cbrt, abs, floor, ceil,
// round, erf, erfc, and the two-argument/gamma forms) has no emitter
// here -- DESIGN.md records this as the documented subset rather than a
// silently dropped feature, since each of those needs its own series or a
// different evaluation strategy (floor/ceil/round need no series at all)
// rather than reusing this shape.
var mathIntrinsics = map[string]taylorEmitter{
	"sin":  EmitSinTaylor,
	"cos":  EmitCosTaylor,
	"exp":  EmitExpTaylor,
	"sqrt": EmitSqrtInline,
}

// genFuncCall dispatches math intrinsics before consulting the function
// table: a user function named "sin" can never be defined and called
// through the ordinary call path, since the intrinsic always wins.
func (cg *Codegen) genFuncCall(n Node) value {
	calleeNode := cg.pool.Get(n.Left)
	name := cg.strs.Get(int(calleeNode.Left), int(calleeNode.Right))

	if emitter, ok := mathIntrinsics[name]; ok {
		return cg.genMathIntrinsic(emitter, n)
	}
	w := cg.out()

	// Call-site discipline: the nine caller-saved GPRs ride across the
	// call on the stack, plus 8 bytes of padding so the CALL lands on a
	// 16-byte boundary. Pushing first also shields any variable homed in
	// r8-r11 from the argument shuffle and the callee itself.
	for _, reg := range CallerSavedGPRs {
		EmitPush(w, reg)
		cg.stack.Push(reg)
	}
	EmitSubRegImm32(w, "rsp", 8)
	cg.stack.Sub(8)

	// Arguments: each evaluates into rax and parks on the stack, then the
	// whole set pops into the convention's registers in reverse -- an
	// argument's own evaluation is free to clobber every argument register
	// this way.
	argRegs := cg.target.CallingConvention().IntArgRegs
	argCount := 0
	for cur := n.Right; cur != NullNode && argCount < len(argRegs); {
		arg := cg.pool.Get(cur)
		v := cg.genExpr(arg.Left)
		reg := v.reg
		if v.kind == valFloat {
			EmitCvttsd2si(w, "rax", v.reg) // integer calling convention only
			reg = "rax"
		}
		EmitPush(w, reg)
		cg.stack.Push(reg)
		cur = arg.Right
		argCount++
	}
	for i := argCount - 1; i >= 0; i-- {
		EmitPop(w, argRegs[i])
		cg.stack.Pop(argRegs[i])
	}

	callSiteOffset := cg.eb.text.Len()
	fixup := EmitCallRel32(w, callSiteOffset)
	if target, resolved := cg.functable.RecordFixup(name, fixup.FieldOffset); resolved {
		cg.eb.PatchTextRel32(fixup, target)
	}

	// Stash the return value across the register restore: the pops below
	// bring back the pre-call rax along with everything else.
	EmitMovRegReg(w, "r12", "rax")
	EmitAddRegImm32(w, "rsp", 8)
	cg.stack.Add(8)
	for i := len(CallerSavedGPRs) - 1; i >= 0; i-- {
		EmitPop(w, CallerSavedGPRs[i])
		cg.stack.Pop(CallerSavedGPRs[i])
	}
	EmitMovRegReg(w, "rax", "r12")
	return value{kind: valInt, reg: "rax"}
}

// genMathIntrinsic evaluates a math.* call's single argument into xmm0 and
// runs the matching Taylor series, reusing genNumberLit's .rodata-constant-
// interning pattern (floatBitsToRodata + EmitMovsdLoadRip + deferRodataFixup)
// as the emitter's DoubleConstLoader. xmm1/xmm2 are the series' accumulator
// and term scratch; neither collides with the "xmm7" constant-load scratch
// intrinsics.go's emitters already reserve for themselves.
func (cg *Codegen) genMathIntrinsic(emitter taylorEmitter, n Node) value {
	var argIdx NodeIndex = NullNode
	if n.Right != NullNode {
		arg := cg.pool.Get(n.Right)
		argIdx = arg.Left
	}

	if argIdx == NullNode {
		cg.diag.AddError(KindError(KindASTCorrupt, "math intrinsic called with no argument", SourceLocation{}))
		return value{kind: valFloat, reg: "xmm1"}
	}

	v := cg.genExpr(argIdx)
	switch {
	case v.kind == valFloat && v.reg != "xmm0":
		EmitMovsd(cg.out(), "xmm0", v.reg)
	case v.kind == valInt:
		EmitCvtsi2sd(cg.out(), "xmm0", v.reg)
	}

	load := func(xmmReg string, f float64) {
		off := cg.floatBitsToRodata(f)
		fx := EmitMovsdLoadRip(cg.out(), cg.eb.text.Len(), xmmReg)
		cg.deferRodataFixup(fx, off)
	}
	emitter(cg.out(), load, "xmm0", "xmm1", "xmm2")
	return value{kind: valFloat, reg: "xmm1"}
}

// storeValue/loadValue move a value into/out of a Storage (register or
// RBP-relative spill slot).
// A float value's raw bits transfer through rsi, since homes are
// general-purpose either way.
func (cg *Codegen) storeValue(s Storage, v value) {
	reg := v.reg
	if v.kind == valFloat {
		EmitMovqRegFromXmm(cg.out(), "rsi", v.reg)
		reg = "rsi"
	}
	if s.Spilled {
		EmitMovStackFromReg(cg.out(), int32(s.FrameSlot), reg)
		return
	}
	EmitMovRegReg(cg.out(), s.Register, reg)
}

func (cg *Codegen) loadValue(s Storage, dst string) {
	if s.Spilled {
		EmitMovRegFromStack(cg.out(), dst, int32(s.FrameSlot))
		return
	}
	EmitMovRegReg(cg.out(), dst, s.Register)
}
