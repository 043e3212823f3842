// gap.go - GAP metadata for UNKNOWN-zone values, the data-model hook a
// later surface-language layer builds on. The core never computes a
// confidence score or migration decision; it only reserves and lays out
// the struct so a future GGGX/solid-numbers layer has somewhere to write.
package main

// GapEntrySize is sizeof{var_hash, confidence, missing_data_ptr,
// migration_threshold, target_zone}: four 64-bit slots plus one pointer,
// all fixed-width for encoder simplicity.
const GapEntrySize = 5 * 8

const (
	gapFieldVarHash            = 0
	gapFieldConfidence         = 8 // stored as a raw float64 bit pattern, range [0,1] is a caller contract
	gapFieldMissingDataPtr     = 16
	gapFieldMigrationThreshold = 24
	gapFieldTargetZone         = 32
)

// GapTableBase reserves the tail of the GC metadata region for GAP
// entries: the fixed memory layout carves out no separate address range
// for GAP, so it lives inside the 16 MiB GC metadata window, behind the
// mark-bit table and timeline-link list gc.go owns.
const GapTableBase = GCMetaBase + (1 << 20) // 1 MiB in, past gc.go's own bookkeeping

// EmitGapRecord writes one GAP entry at the table's current bump cursor
// (tracked at GapTableBase-8, seeded by EmitGapInit). Codegen calls this
// whenever a value is written into the UNKNOWN zone so the hook exists;
// confidence/missing_data/migration_threshold are left zeroed, which is
// the documented "not implemented" contract for this compiler core.
func EmitGapRecord(w Writer, varHashReg string) {
	EmitMovRegImm64(w, "rsi", GapTableBase-8)
	emitLoadAbsolute64(w, "rsi", "rdi")
	emitStoreAbsolute64(w, "rdi", varHashReg)
	EmitMovRegImm64(w, "rdx", GapEntrySize)
	EmitAddRegReg(w, "rdi", "rdx")
	emitStoreAbsolute64(w, "rsi", "rdi")
}

func EmitGapInit(w Writer) {
	EmitMovRegImm64(w, "rax", GapTableBase)
	EmitMovRegImm64(w, "rbx", GapTableBase-8)
	emitStoreAbsolute64(w, "rbx", "rax")
}
