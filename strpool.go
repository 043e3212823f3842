// strpool.go - string pool with interning for identifiers and literals.
// Every stored string is null-terminated in place, preserving the AST
// invariant that identifier offsets are always null-terminated within
// the pool.
package main

// DefaultStringPoolCapacity bounds the pool the way the node pool is
// bounded: the parser never allocates, so the pool's backing array is
// sized once up front.
const DefaultStringPoolCapacity = 1 << 20 // 1 MiB of interned text

// StringPool stores interned byte strings and hands back (offset, length)
// handles. Identical strings are deduplicated via an offset index.
type StringPool struct {
	data  []byte
	index map[string]int // string value -> offset, for interning
}

func NewStringPool() *StringPool {
	return &StringPool{
		data:  make([]byte, 0, 4096),
		index: make(map[string]int),
	}
}

// Intern stores s if not already present and returns its (offset, length).
// The stored bytes are always followed by a single 0x00 terminator.
func (p *StringPool) Intern(s string) (offset, length int) {
	if off, ok := p.index[s]; ok {
		return off, len(s)
	}
	off := len(p.data)
	p.data = append(p.data, s...)
	p.data = append(p.data, 0)
	p.index[s] = off
	return off, len(s)
}

// Get returns the string stored at (offset, length).
func (p *StringPool) Get(offset, length int) string {
	if offset < 0 || offset+length > len(p.data) {
		return ""
	}
	return string(p.data[offset : offset+length])
}

// Len reports how many bytes of pool storage are in use.
func (p *StringPool) Len() int { return len(p.data) }
