// address_types.go - strongly typed addresses so the container writers
// can't mix file offsets, virtual addresses, and .text-buffer offsets:
// the three coordinate spaces the ELF layout math converts between.
package main

import "fmt"

// VirtualAddr is an address in the loaded image (e.g. 0x401000).
type VirtualAddr uint64

// FileOffset is an offset into the output file (e.g. 0x78).
type FileOffset uint64

// TextOffset is an offset within the .text buffer (e.g. 0x9b).
type TextOffset uint64

func (v VirtualAddr) String() string {
	return fmt.Sprintf("0x%x", uint64(v))
}

func (f FileOffset) String() string {
	return fmt.Sprintf("file:0x%x", uint64(f))
}

func (t TextOffset) String() string {
	return fmt.Sprintf("text:0x%x", uint64(t))
}

// AddressSpace is the mapping between the three coordinate spaces for one
// laid-out image: a flat base plus where .text starts in the file and in
// memory.
type AddressSpace struct {
	baseAddr     VirtualAddr
	textFileOff  FileOffset
	textVirtAddr VirtualAddr
}

func NewAddressSpace(base VirtualAddr, textFile FileOffset, textVirt VirtualAddr) *AddressSpace {
	return &AddressSpace{
		baseAddr:     base,
		textFileOff:  textFile,
		textVirtAddr: textVirt,
	}
}

// elfAddressSpace describes the single-PT_LOAD layout buildELF assembles:
// the whole file mapped flat at elfBaseAddr, with .text following the
// headers and .rodata. WriteELFHeader derives the entry point from this
// same mapping, so the header and the file layout can't drift apart.
func elfAddressSpace(rodataSize int) *AddressSpace {
	textFile := FileOffset(headerSize + rodataSize)
	return NewAddressSpace(elfBaseAddr, textFile, elfBaseAddr+VirtualAddr(textFile))
}

// TextOffsetToVirtAddr converts a .text buffer offset to its loaded
// virtual address.
func (as *AddressSpace) TextOffsetToVirtAddr(offset TextOffset) VirtualAddr {
	return as.textVirtAddr + VirtualAddr(offset)
}

// VirtAddrToFileOffset converts a virtual address back to its position in
// the output file. Only valid for addresses inside the flat-mapped image.
func (as *AddressSpace) VirtAddrToFileOffset(addr VirtualAddr) FileOffset {
	if addr < as.baseAddr {
		panic(fmt.Sprintf("virtual address %s is before base %s", addr, as.baseAddr))
	}
	return FileOffset(addr - as.baseAddr)
}
