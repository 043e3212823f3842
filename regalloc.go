// regalloc.go - first-fit register allocator: a bitmask scanner, not a
// linear-scan pass with live intervals. A symbol asks for a register,
// gets the first free bit, and is spilled to a stack slot on exhaustion.
package main

import "fmt"

// RegisterAllocator hands out callee-saved registers first-fit and spills
// to RBP-relative stack slots when both bitmasks are exhausted.
type RegisterAllocator struct {
	gp       []string // GPCalleeSaved, in allocation order
	temporal []string // TemporalCalleeSaved, in allocation order

	gpInUse       uint8 // bit i set => gp[i] is allocated
	temporalInUse uint8

	spillSlots int // count of RBP-relative slots handed out so far
}

func NewRegisterAllocator() *RegisterAllocator {
	return &RegisterAllocator{
		gp:       GPCalleeSaved,
		temporal: TemporalCalleeSaved,
	}
}

// Storage describes where a symbol ended up: a register name, or a
// negative RBP-relative stack offset if spilled.
type Storage struct {
	Register  string // empty if Spilled
	Spilled   bool
	FrameSlot int // negative offset from RBP, valid only if Spilled
}

// AllocGP obtains a general-purpose register first-fit, spilling to the
// next stack slot on exhaustion.
func (ra *RegisterAllocator) AllocGP() Storage {
	for i, reg := range ra.gp {
		bit := uint8(1) << uint(i)
		if ra.gpInUse&bit == 0 {
			ra.gpInUse |= bit
			return Storage{Register: reg}
		}
	}
	return ra.spill()
}

// AllocTemporal obtains a temporal-bookkeeping register (R12-R15)
// first-fit; used while codegen is inside a temporal write/read expression.
func (ra *RegisterAllocator) AllocTemporal() Storage {
	for i, reg := range ra.temporal {
		bit := uint8(1) << uint(i)
		if ra.temporalInUse&bit == 0 {
			ra.temporalInUse |= bit
			return Storage{Register: reg}
		}
	}
	return ra.spill()
}

func (ra *RegisterAllocator) spill() Storage {
	ra.spillSlots++
	return Storage{Spilled: true, FrameSlot: -8 * ra.spillSlots}
}

// FreeGP returns reg to the free pool. No-op if reg isn't a tracked
// GP register (e.g. it was spilled).
func (ra *RegisterAllocator) FreeGP(reg string) {
	for i, r := range ra.gp {
		if r == reg {
			ra.gpInUse &^= uint8(1) << uint(i)
			return
		}
	}
}

// FreeTemporal mirrors FreeGP for the temporal register set.
func (ra *RegisterAllocator) FreeTemporal(reg string) {
	for i, r := range ra.temporal {
		if r == reg {
			ra.temporalInUse &^= uint8(1) << uint(i)
			return
		}
	}
}

// Reset clears both bitmasks and the spill counter, used between function
// bodies (each function gets its own allocation scope).
func (ra *RegisterAllocator) Reset() {
	ra.gpInUse = 0
	ra.temporalInUse = 0
	ra.spillSlots = 0
}

func (s Storage) String() string {
	if s.Spilled {
		return fmt.Sprintf("[rbp%d]", s.FrameSlot)
	}
	return s.Register
}
