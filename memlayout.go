// memlayout.go - fixed virtual-address layout for the generated program's
// temporal memory runtime. Every address here is a constant baked into the
// emitted machine code, not something resolved at link time (there is no
// linker).
package main

// Persisted state layout, per the design's memory table. Every range is
// fixed and none of it grows at runtime.
const (
	ArenaBase = 0x100000
	ArenaEnd  = 0x700000
	ArenaSize = ArenaEnd - ArenaBase // 6 MiB

	ZonesBase       = 0x700000
	ZonesEnd        = 0xA00000
	ZoneSize        = 0x100000 // 1 MiB per zone
	ZonePastBase    = ZonesBase + 0*ZoneSize
	ZonePresentBase = ZonesBase + 1*ZoneSize
	ZoneFutureBase  = ZonesBase + 2*ZoneSize

	HeapBase = 0xA00000
	HeapEnd  = 0x2000000
	HeapSize = HeapEnd - HeapBase // 22 MiB

	GCMetaBase = 0x2000000
	GCMetaEnd  = 0x3000000
	GCMetaSize = GCMetaEnd - GCMetaBase // 16 MiB

	// HeapBumpPointerCell is the 8 bytes immediately below HeapBase holding
	// the current heap bump-allocation offset.
	HeapBumpPointerCell = HeapBase - 8
)

// totalRuntimeMappingSize is the span of a single anonymous mapping big
// enough to cover arena + zones + heap + GC metadata in one mmap call.
func totalRuntimeMappingSize() int64 {
	return GCMetaEnd - ArenaBase
}
