// functable.go - function table and forward-reference fixup list, the
// standard one-pass compiler pattern: calls to not-yet-defined functions
// queue their displacement fields, and each definition drains its queue.
package main

import "hash/fnv"

// FuncInfo records a defined function's entry offset in .text once known.
type FuncInfo struct {
	Name       string
	NameHash   uint64
	DefNode    NodeIndex
	TextOffset int // valid once Defined
	Defined    bool
}

// Fixup is one pending call site: the relative-displacement field inside a
// CALL instruction that couldn't be patched because the callee wasn't yet
// defined when the call was emitted.
type Fixup struct {
	CallSiteOffset int // offset of the 4-byte displacement field in .text
	CalleeHash     uint64
	CalleeName     string // kept for diagnostics only
}

// FunctionTable tracks every function by name hash and the fixups still
// waiting on a definition.
type FunctionTable struct {
	funcs  map[uint64]*FuncInfo
	fixups []Fixup
}

func NewFunctionTable() *FunctionTable {
	return &FunctionTable{funcs: make(map[uint64]*FuncInfo)}
}

func NameHash(name string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	return h.Sum64()
}

// Declare registers name as a function, failing if already declared.
func (ft *FunctionTable) Declare(name string, defNode NodeIndex) (*FuncInfo, error) {
	hash := NameHash(name)
	if _, exists := ft.funcs[hash]; exists {
		return nil, KindError(KindASTCorrupt, "duplicate function definition '"+name+"'", SourceLocation{})
	}
	info := &FuncInfo{Name: name, NameHash: hash, DefNode: defNode}
	ft.funcs[hash] = info
	return info, nil
}

// MarkDefined records textOffset as name's entry point and drains every
// fixup whose CalleeHash matches, returning the drained fixups so the
// caller can patch each CALL displacement immediately.
func (ft *FunctionTable) MarkDefined(name string, textOffset int) []Fixup {
	hash := NameHash(name)
	info, ok := ft.funcs[hash]
	if !ok {
		info = &FuncInfo{Name: name, NameHash: hash}
		ft.funcs[hash] = info
	}
	info.Defined = true
	info.TextOffset = textOffset

	var drained, remaining []Fixup
	for _, fx := range ft.fixups {
		if fx.CalleeHash == hash {
			drained = append(drained, fx)
		} else {
			remaining = append(remaining, fx)
		}
	}
	ft.fixups = remaining
	return drained
}

// RecordFixup registers a pending call site. If the callee is already
// defined, it returns (offset, true) immediately instead of queuing.
func (ft *FunctionTable) RecordFixup(calleeName string, callSiteOffset int) (targetOffset int, resolved bool) {
	hash := NameHash(calleeName)
	if info, ok := ft.funcs[hash]; ok && info.Defined {
		return info.TextOffset, true
	}
	ft.fixups = append(ft.fixups, Fixup{
		CallSiteOffset: callSiteOffset,
		CalleeHash:     hash,
		CalleeName:     calleeName,
	})
	return 0, false
}

// PendingCount reports how many fixups remain unresolved; used at codegen
// finalize time to raise KindFixupUnresolvedAtFinal -- the fixup list must
// be empty once codegen completes.
func (ft *FunctionTable) PendingCount() int { return len(ft.fixups) }

func (ft *FunctionTable) PendingNames() []string {
	names := make([]string, 0, len(ft.fixups))
	for _, fx := range ft.fixups {
		names = append(names, fx.CalleeName)
	}
	return names
}
