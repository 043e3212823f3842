package main

import (
	"encoding/binary"
	"testing"
)

// TestWritePEHeaderDOSAndPESignatures checks the "MZ" stub header and the
// "PE\0\0" signature land at their fixed file offsets.
func TestWritePEHeaderDOSAndPESignatures(t *testing.T) {
	eb := NewExecutableBuilder(NewTarget(OSWindows), 1024)
	if err := eb.WritePEHeader(0x1000, 0x200, 0x200, 0x200, 0x2000); err != nil {
		t.Fatalf("WritePEHeader: %v", err)
	}

	buf := eb.header.Bytes()
	if buf[0] != 'M' || buf[1] != 'Z' {
		t.Errorf("expected MZ at offset 0, got %q", buf[0:2])
	}

	peOffset := int(binary.LittleEndian.Uint32(buf[60:64]))
	wantPEOffset := dosHeaderSize + dosStubSize
	if peOffset != wantPEOffset {
		t.Fatalf("e_lfanew = %d, want %d", peOffset, wantPEOffset)
	}
	sig := buf[peOffset : peOffset+4]
	if sig[0] != 'P' || sig[1] != 'E' || sig[2] != 0 || sig[3] != 0 {
		t.Errorf("expected PE\\0\\0 at offset %d, got %q", peOffset, sig)
	}
}

// TestWritePEHeaderCOFFMachineAndSectionCount checks the COFF header
// declares AMD64 and exactly 3 sections (.text, .rdata, .idata).
func TestWritePEHeaderCOFFMachineAndSectionCount(t *testing.T) {
	eb := NewExecutableBuilder(NewTarget(OSWindows), 1024)
	eb.WritePEHeader(0x1000, 0x200, 0x200, 0x200, 0x2000)

	buf := eb.header.Bytes()
	peOffset := int(binary.LittleEndian.Uint32(buf[60:64]))
	coff := buf[peOffset+4:]

	machine := binary.LittleEndian.Uint16(coff[0:2])
	if machine != 0x8664 {
		t.Errorf("machine = 0x%x, want 0x8664 (AMD64)", machine)
	}
	numSections := binary.LittleEndian.Uint16(coff[2:4])
	if numSections != 3 {
		t.Errorf("NumberOfSections = %d, want 3", numSections)
	}
}

// TestWritePEHeaderOptionalHeaderIsPE32Plus checks the magic number and
// entry-point RVA in the PE32+ optional header.
func TestWritePEHeaderOptionalHeaderIsPE32Plus(t *testing.T) {
	eb := NewExecutableBuilder(NewTarget(OSWindows), 1024)
	const entryRVA = 0x1234
	eb.WritePEHeader(entryRVA, 0x200, 0x200, 0x200, 0x2000)

	buf := eb.header.Bytes()
	peOffset := int(binary.LittleEndian.Uint32(buf[60:64]))
	opt := buf[peOffset+4+coffHeaderSize:]

	magic := binary.LittleEndian.Uint16(opt[0:2])
	if magic != 0x020B {
		t.Errorf("optional header magic = 0x%x, want 0x020B (PE32+)", magic)
	}

	entry := binary.LittleEndian.Uint32(opt[16:20])
	if entry != entryRVA {
		t.Errorf("AddressOfEntryPoint = 0x%x, want 0x%x", entry, uint32(entryRVA))
	}

	imageBase := binary.LittleEndian.Uint64(opt[24:32])
	if imageBase != peImageBase {
		t.Errorf("ImageBase = 0x%x, want 0x%x", imageBase, uint64(peImageBase))
	}
}

// TestWritePESectionHeaderFieldsAndNamePadding verifies the 40-byte
// IMAGE_SECTION_HEADER layout and that short names are zero-padded to 8
// bytes rather than null-terminated mid-field.
func TestWritePESectionHeaderFieldsAndNamePadding(t *testing.T) {
	eb := NewExecutableBuilder(NewTarget(OSWindows), 1024)
	eb.WritePESectionHeader(".text", 0x100, 0x1000, 0x200, 0x400, scnCntCode|scnMemExecute|scnMemRead)

	buf := eb.header.Bytes()
	if len(buf) != peSectionHeaderSize {
		t.Fatalf("expected exactly %d bytes for one section header, got %d", peSectionHeaderSize, len(buf))
	}

	name := buf[0:8]
	wantName := []byte{'.', 't', 'e', 'x', 't', 0, 0, 0}
	for i, want := range wantName {
		if name[i] != want {
			t.Errorf("name[%d] = 0x%02x, want 0x%02x", i, name[i], want)
		}
	}

	virtualSize := binary.LittleEndian.Uint32(buf[8:12])
	virtualAddr := binary.LittleEndian.Uint32(buf[12:16])
	if virtualSize != 0x100 || virtualAddr != 0x1000 {
		t.Errorf("VirtualSize/VirtualAddress = 0x%x/0x%x, want 0x100/0x1000", virtualSize, virtualAddr)
	}

	characteristics := binary.LittleEndian.Uint32(buf[36:40])
	want := uint32(scnCntCode | scnMemExecute | scnMemRead)
	if characteristics != want {
		t.Errorf("Characteristics = 0x%x, want 0x%x", characteristics, want)
	}
}

// TestBuildFixedImportTableDescriptorPrecedesIAT is a regression test for a
// bug where the descriptor's fields were appended into a buffer that had
// already been pre-padded to the IAT's offset, silently shifting the whole
// import table 0x60 bytes later than the RVAs the rest of the code assumes.
// OriginalFirstThunk/FirstThunk (the first two descriptor fields) must both
// equal idataRVA+0x60 (IATSlotGetStdHandle), and that RVA must land exactly
// 0x60 bytes into the returned buffer.
func TestBuildFixedImportTableDescriptorPrecedesIAT(t *testing.T) {
	const idataRVA = 0x2000
	buf := BuildFixedImportTable(idataRVA)

	iatRVA := binary.LittleEndian.Uint32(buf[0:4]) // OriginalFirstThunk
	if iatRVA != IATSlotGetStdHandle {
		t.Fatalf("OriginalFirstThunk = 0x%x, want 0x%x (IATSlotGetStdHandle)", iatRVA, uint32(IATSlotGetStdHandle))
	}
	firstThunk := binary.LittleEndian.Uint32(buf[16:20])
	if firstThunk != IATSlotGetStdHandle {
		t.Fatalf("FirstThunk = 0x%x, want 0x%x", firstThunk, uint32(IATSlotGetStdHandle))
	}

	iatFileOffset := int(iatRVA - idataRVA)
	if iatFileOffset != 0x60 {
		t.Fatalf("IAT starts at buffer offset %d, want 0x60", iatFileOffset)
	}

	// The first IAT slot holds a hint/name RVA, not a zero padding word:
	// with the bug, this slot would still be all zero because the real
	// descriptor had been pushed 0x60 bytes further into the buffer.
	firstSlot := binary.LittleEndian.Uint64(buf[iatFileOffset : iatFileOffset+8])
	if firstSlot == 0 {
		t.Fatal("first IAT slot is zero: import descriptor fields were not written at the expected offset")
	}
}

// TestBuildFixedImportTableDLLNameAndHintNames verifies the two hint/name
// entries the runtime's print path needs resolve to the right RVAs and
// decode to the expected function names.
func TestBuildFixedImportTableDLLNameAndHintNames(t *testing.T) {
	const idataRVA = 0x2000
	buf := BuildFixedImportTable(idataRVA)

	iatFileOffset := 0x60
	hint1RVA := binary.LittleEndian.Uint64(buf[iatFileOffset : iatFileOffset+8])
	hint2RVA := binary.LittleEndian.Uint64(buf[iatFileOffset+8 : iatFileOffset+16])
	terminator := binary.LittleEndian.Uint64(buf[iatFileOffset+16 : iatFileOffset+24])
	if terminator != 0 {
		t.Errorf("expected IAT null terminator, got 0x%x", terminator)
	}

	name1Offset := int(hint1RVA) - idataRVA
	name2Offset := int(hint2RVA) - idataRVA
	got1 := nullTerminatedString(buf[name1Offset+2:])
	got2 := nullTerminatedString(buf[name2Offset+2:])
	if got1 != "GetStdHandle" {
		t.Errorf("first import name = %q, want \"GetStdHandle\"", got1)
	}
	if got2 != "WriteConsoleA" {
		t.Errorf("second import name = %q, want \"WriteConsoleA\"", got2)
	}
}

func nullTerminatedString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
