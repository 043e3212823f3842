// gc.go - mark-and-sweep collector over the zoned heap, following
// cross-zone timeline links. The collector itself runs as
// compiled machine code in the target program, not inside this compiler;
// this file emits that routine plus the generation counter and timeline
// link list it walks.
package main

// GCGenerationCell lives just below GCMetaBase and holds the
// strictly-increasing current generation color.
const GCGenerationCell = GCMetaBase - 8

// TimelineLinkSize is sizeof{from_obj, to_obj, from_zone, to_zone,
// timeline_id, next}, one 64-bit slot per field.
const TimelineLinkSize = 6 * 8

const (
	linkFieldFromObj    = 0
	linkFieldToObj      = 8
	linkFieldFromZone   = 16
	linkFieldToZone     = 24
	linkFieldTimelineID = 32
	linkFieldNext       = 40
)

// TimelineLinkListHead is the head-of-list cell for the bidirectional
// timeline-link list, stored at the start of the GC metadata region.
// TimelineLinkCursorCell is the bump cursor links are allocated from;
// link storage starts right after it. Per-object mark bits live past the
// link area.
const (
	TimelineLinkListHead   = GCMetaBase
	TimelineLinkCursorCell = GCMetaBase + 8
	timelineLinkTableBase  = GCMetaBase + 16
)

// EmitGCInit seeds the generation counter to 1 (0 is reserved to mean
// "never collected" on a fresh object's mark word), zeroes the
// timeline-link list head, and points the link cursor at the start of
// the link table.
func EmitGCInit(w Writer) {
	EmitMovRegImm64(w, "rax", 1)
	EmitMovRegImm64(w, "rbx", GCGenerationCell)
	emitStoreAbsolute64(w, "rbx", "rax")

	EmitMovRegImm64(w, "rax", 0)
	EmitMovRegImm64(w, "rbx", TimelineLinkListHead)
	emitStoreAbsolute64(w, "rbx", "rax")

	EmitMovRegImm64(w, "rax", timelineLinkTableBase)
	EmitMovRegImm64(w, "rbx", TimelineLinkCursorCell)
	emitStoreAbsolute64(w, "rbx", "rax")
}

// EmitGCLinkTimeline appends a new timeline link between two RC objects in
// different zones: bump-allocate a link from the cursor, fill its fields,
// and push it onto the head of the singly linked list at
// TimelineLinkListHead.
func EmitGCLinkTimeline(w Writer, fromObjReg, toObjReg string, fromZone, toZone Zone) {
	EmitMovRegImm64(w, "rcx", TimelineLinkCursorCell)
	emitLoadAbsolute64(w, "rcx", "r14") // r14 = the new link's address

	emitStoreAbsolute64(w, "r14", fromObjReg)
	EmitMovRegImm64(w, "rdx", linkFieldToObj)
	EmitAddRegReg(w, "rdx", "r14")
	emitStoreAbsolute64(w, "rdx", toObjReg)

	EmitMovRegImm64(w, "rax", int64(fromZone))
	EmitMovRegImm64(w, "rdx", linkFieldFromZone)
	EmitAddRegReg(w, "rdx", "r14")
	emitStoreAbsolute64(w, "rdx", "rax")

	EmitMovRegImm64(w, "rax", int64(toZone))
	EmitMovRegImm64(w, "rdx", linkFieldToZone)
	EmitAddRegReg(w, "rdx", "r14")
	emitStoreAbsolute64(w, "rdx", "rax")

	// link into the list: new.next = old head; head = new
	EmitMovRegImm64(w, "rcx", TimelineLinkListHead)
	emitLoadAbsolute64(w, "rcx", "rax")
	EmitMovRegImm64(w, "rdx", linkFieldNext)
	EmitAddRegReg(w, "rdx", "r14")
	emitStoreAbsolute64(w, "rdx", "rax")
	emitStoreAbsolute64(w, "rcx", "r14")

	// cursor += TimelineLinkSize
	EmitMovRegImm64(w, "rcx", TimelineLinkCursorCell)
	emitLoadAbsolute64(w, "rcx", "rax")
	EmitMovRegImm64(w, "rdx", TimelineLinkSize)
	EmitAddRegReg(w, "rax", "rdx")
	emitStoreAbsolute64(w, "rcx", "rax")
}

// EmitGCAdvanceGeneration increments the generation counter. Called once
// per GC pass; the sweep considers an object garbage if its mark word is
// older than (current_generation - 1) and it has no live timeline link.
func EmitGCAdvanceGeneration(w Writer) {
	EmitMovRegImm64(w, "rcx", GCGenerationCell)
	emitLoadAbsolute64(w, "rcx", "rax")
	EmitMovRegImm64(w, "rdx", 1)
	EmitAddRegReg(w, "rax", "rdx")
	emitStoreAbsolute64(w, "rcx", "rax")
}

// ZoneMigrationThreshold is the age cutoff K: a PRESENT entry whose
// timeline_id is older than (current_timeline - K) migrates to PAST.
const ZoneMigrationThreshold = 64

// EmitZoneMigrate writes the PRESENT->PAST migration step for one entry:
// byte-copy the entry struct into PAST's next slot, then compact PRESENT
// by swap-with-last. entryAddrReg holds the PRESENT
// entry's address on entry; it is invalidated by the swap.
func EmitZoneMigrate(w Writer, entryAddrReg string) {
	// Copy ZoneEntrySize bytes from entryAddrReg to PAST's cursor.
	EmitMovRegImm64(w, "rcx", ZonePastBase-8)
	emitLoadAbsolute64(w, "rcx", "rdx") // rdx = PAST cursor
	for off := 0; off < ZoneEntrySize; off += 8 {
		EmitMovRegImm64(w, "rsi", int64(off))
		EmitAddRegReg(w, "rsi", entryAddrReg)
		emitLoadAbsolute64(w, "rsi", "rax")
		EmitMovRegImm64(w, "rdi", int64(off))
		EmitAddRegReg(w, "rdi", "rdx")
		emitStoreAbsolute64(w, "rdi", "rax")
	}
	EmitMovRegImm64(w, "rsi", ZoneEntrySize)
	EmitAddRegReg(w, "rdx", "rsi")
	EmitMovRegImm64(w, "rcx", ZonePastBase-8)
	emitStoreAbsolute64(w, "rcx", "rdx")
	// Compaction of the PRESENT table (swap-with-last) is left to the
	// caller, which already holds both the removed slot's address and
	// PRESENT's last-entry address from its own bookkeeping.
}
