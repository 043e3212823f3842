// scalable_output.go - segmented output tracking for generated code that
// grows past the in-process text-buffer's comfortable size.
// ExecutableBuilder's .text is a plain bytes.Buffer and happily grows on
// its own; what this adds is output diagnostics (peak size, segment
// count, overflow point) plus, once code crosses
// the segment threshold, pre-faulting an anonymous mapping of that size
// through golang.org/x/sys/unix so the eventual bytes.Buffer growth
// doesn't stall on a string of small incremental allocations. Adapted
// from safe_buffer.go's commit discipline: a ScalableOutput is written to
// freely until Commit, then read-only.
package main

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// segmentSize is the unit ScalableOutput pre-faults once generated code
// crosses its threshold; 64 MiB comfortably covers any program this
// compiler's fixed-capacity pools (DefaultNodePoolCapacity entries) could
// ever produce.
const segmentSize = 64 << 20

// ScalableOutput tracks how large a single compilation's output got and,
// past the configured threshold, pre-faults additional segments via mmap
// rather than letting repeated bytes.Buffer growth copy the whole backing
// array on every doubling.
type ScalableOutput struct {
	threshold    int
	segments     [][]byte // mmap'd segments, kept alive until the driver is done
	peakSize     int
	finalSize    int
	overflowed   bool
	overflowSize int
	committed    bool
}

// NewScalableOutput creates a tracker that pre-faults a segment once
// generated code exceeds threshold bytes.
func NewScalableOutput(threshold int) *ScalableOutput {
	if threshold <= 0 {
		threshold = segmentSize
	}
	return &ScalableOutput{threshold: threshold}
}

// growIfNeeded pre-faults one more segment via mmap once size crosses the
// next un-reserved threshold multiple. Call this as generated code grows;
// it's a no-op below the configured threshold.
func (so *ScalableOutput) growIfNeeded(size int) error {
	so.MustNotBeCommitted()
	if size > so.peakSize {
		so.peakSize = size
	}
	needed := size - so.threshold*len(so.segments)
	for needed > 0 {
		seg, err := unix.Mmap(-1, 0, segmentSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
		if err != nil {
			return KindError(KindArenaExhausted, fmt.Sprintf("mmap segment %d failed: %s", len(so.segments), err), SourceLocation{})
		}
		so.segments = append(so.segments, seg)
		if VerboseMode {
			fmt.Fprintf(os.Stderr, "ScalableOutput: faulted segment %d (%d bytes)\n", len(so.segments)-1, segmentSize)
		}
		needed -= segmentSize
	}
	return nil
}

// RecordOverflow marks the point at which CodeBuffer's sticky overflow
// flag tripped, for the CLI's verbose diagnostics.
func (so *ScalableOutput) RecordOverflow(atSize int) {
	so.overflowed = true
	so.overflowSize = atSize
}

// RecordFinalSize is called once codegen finishes successfully.
func (so *ScalableOutput) RecordFinalSize(size int) {
	if size > so.peakSize {
		so.peakSize = size
	}
	so.finalSize = size
	if size > so.threshold {
		_ = so.growIfNeeded(size)
	}
}

// Commit marks the tracker read-only; no further segment growth is valid
// after this, matching safe_buffer.go's SafeBuffer discipline.
func (so *ScalableOutput) Commit() { so.committed = true }

// MustNotBeCommitted panics if called after Commit, catching a driver bug
// that tries to keep growing output after the artifact is finalized.
func (so *ScalableOutput) MustNotBeCommitted() {
	if so.committed {
		panic("ScalableOutput: write attempted after commit")
	}
}

// Diagnostics is the output summary: total size, peak size seen,
// segments allocated, and whether the hard cap was hit.
type Diagnostics struct {
	FinalSize    int
	PeakSize     int
	Segments     int
	Overflowed   bool
	OverflowSize int
}

func (so *ScalableOutput) Diagnostics() Diagnostics {
	return Diagnostics{
		FinalSize:    so.finalSize,
		PeakSize:     so.peakSize,
		Segments:     len(so.segments),
		Overflowed:   so.overflowed,
		OverflowSize: so.overflowSize,
	}
}

// Release unmaps every segment faulted during this compilation. The
// driver calls this once the artifact bytes have been copied out, since
// nothing downstream holds pointers into these segments (they exist only
// to pre-fault pages, not to back the actual bytes.Buffer storage).
func (so *ScalableOutput) Release() {
	for _, seg := range so.segments {
		_ = unix.Munmap(seg)
	}
	so.segments = nil
}
