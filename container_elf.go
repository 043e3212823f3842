// container_elf.go - ELF64 executable writer: a single PT_LOAD segment,
// fixed virtual base, no dynamic linker, no section headers. The
// memory-layout constants come from memlayout.go.
package main

import (
	"fmt"
	"os"
)

const (
	elfHeaderSize     = 64 // ELF64 header size
	progHeaderSize    = 56 // Program header entry size (ELF64)
	sectionHeaderSize = 64 // Section header entry size (ELF64), unused: no section table

	elfBaseAddr      = 0x400000                       // Virtual base address of the single PT_LOAD segment
	pageSize         = 0x1000                         // 4KB page alignment
	headerSize       = elfHeaderSize + progHeaderSize // Header bytes preceding .rodata/.text in the file
	progHeaderOffset = elfHeaderSize
)

// WriteELFHeader writes the 64-byte ELF header plus the single program
// header describing the PT_LOAD segment covering header+rodata+text. The
// three temporal-memory regions (arena, zones, RC heap, GC metadata) are
// NOT part of this segment: they're mapped at runtime via the entry
// trampoline's mmap(MAP_FIXED) calls, since their addresses sit below
// elfBaseAddr (see memlayout.go and driver.go's trampoline).
func (eb *ExecutableBuilder) WriteELFHeader() error {
	w := eb.ELFWriter()
	rodataSize := eb.rodata.Len()
	codeSize := eb.text.Len()

	if VerboseMode {
		fmt.Fprintf(os.Stderr, "WriteELFHeader: rodata=%d bytes, text=%d bytes, data=%d bytes\n",
			rodataSize, codeSize, eb.data.Len())
	}

	w.Write(0x7f)
	w.Write(0x45) // E
	w.Write(0x4c) // L
	w.Write(0x46) // F
	w.Write(2)    // 64-bit
	w.Write(1)    // little endian
	w.Write(1)    // ELF version
	w.Write(3)    // Linux ABI (also used for the macOS target: no dynamic linker either way)
	w.Write(0)    // ABI version
	w.WriteN(0, 7)
	w.Write2(2) // e_type: ET_EXEC

	w.Write2(byte(eb.target.ELFMachineType()))
	w.Write4(1) // e_version

	entry := uint64(elfAddressSpace(rodataSize).TextOffsetToVirtAddr(0))

	w.Write8u(entry)
	w.Write8(progHeaderOffset)
	w.Write8u(0) // e_shoff: no section header table
	w.Write4(0)  // e_flags
	w.Write2(elfHeaderSize)
	w.Write2(progHeaderSize)
	w.Write2(1) // e_phnum: one PT_LOAD
	w.Write2(0) // e_shentsize: unused
	w.Write2(0) // e_shnum: unused
	w.Write2(0) // e_shstrndx: unused

	// Program header: PT_LOAD, R+X, covering the whole file at elfBaseAddr.
	// No write bit: nothing stores into the load segment at runtime --
	// variable slots live on the OS-mapped stack and the temporal-memory
	// regions are mapped separately by the entry trampoline.
	w.Write4(1) // p_type: PT_LOAD
	w.Write4(5) // p_flags: PF_X|PF_R
	w.Write8u(0)
	w.Write8u(elfBaseAddr)
	w.Write8u(elfBaseAddr)
	fileSize := uint64(headerSize + rodataSize + codeSize)
	w.Write8u(fileSize)
	w.Write8u(fileSize)
	w.Write8u(pageSize)

	return nil
}

// ELFWriter returns a Writer over a fresh header buffer the driver
// prepends ahead of .rodata+.text when assembling the final file.
func (eb *ExecutableBuilder) ELFWriter() Writer {
	return &BufferWrapper{buf: &eb.header}
}
