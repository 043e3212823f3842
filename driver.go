// driver.go - the pipeline orchestrator: reads the source
// file, runs it through lex+parse+codegen, emits the entry/exit trampoline
// around the generated code, patches every deferred fixup once the final
// section layout is known, and assembles the finished ELF64 or PE32+
// image. Everything else in this tree is a piece the driver wires
// together; nothing upstream of here knows about file I/O or the
// container formats.
package main

import (
	"bytes"
	"fmt"
	"os"
)

// maxSourceBytes caps the input file; a one-pass compiler
// with fixed-capacity pools has no business accepting arbitrarily large
// programs.
const maxSourceBytes = 32 * 1024

// defaultTextCapacity is the CodeBuffer overflow threshold, not a real
// preallocation (bytes.Buffer grows on demand); scalable_output.go takes
// over once generated code actually approaches this size.
const defaultTextCapacity = 1 << 20 // 1 MiB

// Compile runs every stage of the pipeline over source for target and
// returns the finished executable image. Every error returned is a
// CompilerError, ready for the CLI's "Error: <what>" rendering.
func Compile(source []byte, target Target, opts CompileOptions) ([]byte, error) {
	state := NewCompilerState(target, opts)

	if target.OS() == OSMacOS {
		return nil, KindError(KindPlatformUnsupported,
			"macOS Mach-O output is not yet implemented", SourceLocation{File: opts.InputPath})
	}

	if len(source) == 0 {
		return nil, KindError(KindEmptyInput, "input is empty", SourceLocation{File: opts.InputPath})
	}
	if len(source) > maxSourceBytes {
		return nil, KindError(KindIORead, fmt.Sprintf("input exceeds %d bytes", maxSourceBytes), SourceLocation{File: opts.InputPath})
	}

	state.Pipeline.AdvanceTo(StageParse)
	strs := NewStringPool()
	pool := NewPool(DefaultNodePoolCapacity)
	lits := NewLiteralPool()

	parser := NewParser(source, strs, pool, lits)
	root := parser.ParseProgram()
	if len(parser.Errors) > 0 {
		return nil, parser.Errors[0]
	}
	if root == NullNode {
		return nil, KindError(KindASTCorrupt, "parser produced no root", SourceLocation{File: opts.InputPath})
	}

	state.Pipeline.AdvanceTo(StageCodegen)
	diag := NewErrorCollector(opts.MaxErrors)
	diag.SetSourceCode(string(source))

	output := NewScalableOutput(defaultTextCapacity)
	eb := NewExecutableBuilder(target, defaultTextCapacity)
	cg := NewCodegen(eb, target, pool, strs, lits, diag)

	if err := cg.Generate(root); err != nil {
		if err.(CompilerError).Category == CategoryCodegen {
			output.RecordOverflow(eb.text.Len())
		}
		return nil, err
	}
	if diag.HasErrors() {
		return nil, diag.errors[0]
	}
	output.RecordFinalSize(eb.text.Len())

	state.Pipeline.AdvanceTo(StageFixup)
	trampoline := emitRuntimeInit(target)
	eb.PrependBytes(trampoline)
	emitExitTrampoline(eb, target)

	trampolineLen := len(trampoline)
	rodataSize := eb.rodata.Len()
	for _, fx := range cg.RodataFixups() {
		adjusted := fx.Fixup
		adjusted.FieldOffset += trampolineLen
		eb.PatchTextRel32(adjusted, rodataFixupTarget(target, fx.RodataOffset, rodataSize))
	}
	for _, fx := range cg.IATFixups() {
		if target.OS() != OSWindows {
			continue
		}
		adjusted := fx.Fixup
		adjusted.FieldOffset += trampolineLen
		eb.PatchTextRel32(adjusted, iatFixupTarget(fx.SlotRVA))
	}
	state.Pipeline.AdvanceTo(StageContainer)
	var artifact []byte
	var err error
	switch target.OS() {
	case OSWindows:
		artifact, err = buildPE(eb)
	default:
		artifact, err = buildELF(eb, target)
	}
	if err != nil {
		return nil, err
	}

	output.Commit()
	output.Release()
	if VerboseMode {
		d := output.Diagnostics()
		fmt.Fprintf(os.Stderr, "driver: final=%d peak=%d segments=%d\n", d.FinalSize, d.PeakSize, d.Segments)
	}

	state.Pipeline.AdvanceTo(StageComplete)
	return artifact, nil
}

// topLevelFrameBytes is the frame the entry trampoline reserves for
// top-level variables: enough for every spill slot the fixed-capacity
// variable table could hand out, 16-byte aligned.
const topLevelFrameBytes = 0x1000

// emitRuntimeInit builds the entry trampoline: zero rbp, align rsp, carve
// the top-level frame, map the temporal-memory regions, and seed every
// subsystem's bump cursor/counter cells. This is prepended to .text
// exactly once.
//
// The Windows trampoline only establishes the frame: the minimal PE
// imports nothing but the two console-output routines, so there is no
// VirtualAlloc to map the runtime regions through -- programs using the
// temporal/heap operations target linux or macos.
func emitRuntimeInit(target Target) []byte {
	var buf bytes.Buffer
	w := &BufferWrapper{buf: &buf}

	if target.OS() == OSWindows {
		EmitMovRegReg(w, "rbp", "rsp")
		EmitSubRegImm32(w, "rsp", topLevelFrameBytes)
		return buf.Bytes()
	}

	EmitXorRegReg(w, "rbp", "rbp")
	EmitMovRegImm64(w, "rax", -16)
	EmitAndRegReg(w, "rsp", "rax") // 16-byte alignment before the frame is carved
	EmitMovRegReg(w, "rbp", "rsp")
	EmitSubRegImm32(w, "rsp", topLevelFrameBytes)

	// EmitArenaInit maps the arena and its cell page; the remaining
	// runtime regions (zones, RC heap, GC metadata) are contiguous from
	// ZonesBase through GCMetaEnd, so one more mmap covers them.
	emitMmapFixedAnon(w, target.OS(), ZonesBase, GCMetaEnd-ZonesBase)
	EmitArenaInit(w, target)
	EmitZoneInit(w)
	EmitHeapInit(w)
	EmitGapInit(w)
	EmitGCInit(w)
	return buf.Bytes()
}

// emitExitTrampoline appends the process-exit sequence: a raw exit
// syscall on Linux/macOS, a plain ret on Windows (the loader's CRT-less
// entry just returns to whatever called it).
func emitExitTrampoline(eb *ExecutableBuilder, target Target) {
	w := eb.TextWriter()
	if target.OS() == OSWindows {
		EmitRet(w)
		return
	}
	syscallNo := int64(linuxSyscallExit)
	if target.OS() == OSMacOS {
		syscallNo = int64(macosSyscallExit)
	}
	EmitMovRegImm64(w, "rdi", 0)
	EmitMovRegImm64(w, "rax", syscallNo)
	EmitSyscall(w)
}

// Fixed PE section layout: driver.go owns these RVAs so container_pe.go's
// IATSlotGetStdHandle/IATSlotWriteConsoleA (anchored at idataRVA+0x60)
// stay correct regardless of how large any one program's code or rodata
// gets, at the cost of a hard cap on each section (0x800 bytes of code,
// 0x800 bytes of rodata+data) that a toy compiler's output never
// approaches in practice.
const (
	peTextRVA  = 0x1000
	peRdataRVA = 0x1800
	peIdataRVA = 0x2000
)

// rodataFixupTarget converts a .rodata-relative offset into the
// "text-buffer coordinate space" PatchTextRel32 expects: a value x such
// that the final text-base-relative position of the fixup's target equals
// the fixup's own text-base-relative position plus (x - fieldOffset - 4).
//
// ELF lays .rodata immediately before .text in one contiguous PT_LOAD
// segment, so the two address spaces are a constant offset apart
// (rodataOffset - rodataSize). PE keeps .rdata and .text in separate,
// non-adjacent sections at fixed RVAs, so the same formula uses those
// RVAs instead.
func rodataFixupTarget(target Target, rodataOffset, rodataSize int) int {
	if target.OS() == OSWindows {
		return peRdataRVA + rodataOffset - peTextRVA
	}
	return rodataOffset - rodataSize
}

// iatFixupTarget converts a fixed IAT slot RVA into the same
// text-buffer coordinate space, relative to the fixed .text RVA.
func iatFixupTarget(slotRVA uint32) int {
	return int(slotRVA) - peTextRVA
}

// buildELF assembles the final file as header + .rodata + .text, matching
// the layout WriteELFHeader's entry-point computation assumes.
func buildELF(eb *ExecutableBuilder, target Target) ([]byte, error) {
	if err := eb.WriteELFHeader(); err != nil {
		return nil, err
	}

	if VerboseMode {
		addrSpace := elfAddressSpace(eb.rodata.Len())
		entry := addrSpace.TextOffsetToVirtAddr(0)
		fmt.Fprintf(os.Stderr, "buildELF: entry at %s (file offset %s)\n",
			entry, addrSpace.VirtAddrToFileOffset(entry))
	}

	out := NewSafeBuffer("elf-image")
	out.Write(eb.header.Bytes())
	out.Write(eb.rodata.Bytes())
	out.Write(eb.text.Bytes())
	out.Commit()
	return out.Bytes(), nil
}

// buildPE assembles the final file as headers + .text + .rdata + .idata,
// each section padded out to its file-alignment boundary, at the fixed
// RVAs peTextRVA/peRdataRVA/peIdataRVA.
func buildPE(eb *ExecutableBuilder) ([]byte, error) {
	codeSize := uint32(eb.text.Len())

	var rdata bytes.Buffer
	rdata.Write(eb.rodata.Bytes())
	rdata.Write(eb.data.Bytes())
	rdataSize := uint32(rdata.Len())

	idata := BuildFixedImportTable(peIdataRVA)
	idataSize := uint32(len(idata))

	if err := eb.WritePEHeader(peTextRVA, codeSize, rdataSize, idataSize, peIdataRVA); err != nil {
		return nil, err
	}

	headersSize := alignTo(dosHeaderSize+dosStubSize+peSignatureSize+coffHeaderSize+
		optionalHeaderSize+3*peSectionHeaderSize, peFileAlign)
	textFileOff := headersSize
	rdataFileOff := textFileOff + alignTo(codeSize, peFileAlign)
	idataFileOff := rdataFileOff + alignTo(rdataSize, peFileAlign)

	eb.WritePESectionHeader(".text", codeSize, peTextRVA, alignTo(codeSize, peFileAlign), textFileOff,
		scnCntCode|scnMemExecute|scnMemRead)
	eb.WritePESectionHeader(".rdata", rdataSize, peRdataRVA, alignTo(rdataSize, peFileAlign), rdataFileOff,
		scnCntInitData|scnMemRead)
	eb.WritePESectionHeader(".idata", idataSize, peIdataRVA, alignTo(idataSize, peFileAlign), idataFileOff,
		scnCntInitData|scnMemRead|scnMemWrite)

	out := NewSafeBuffer("pe-image")
	out.Write(eb.header.Bytes())
	out.Write(make([]byte, int(textFileOff)-out.Len()))
	out.Write(eb.text.Bytes())
	out.Write(make([]byte, int(rdataFileOff)-out.Len()))
	out.Write(rdata.Bytes())
	out.Write(make([]byte, int(idataFileOff)-out.Len()))
	out.Write(idata)
	out.Commit()
	return out.Bytes(), nil
}
