// litpool.go - numeric literal pool. A Node's Aux field is only 32 bits,
// too narrow for a float64 bit pattern, so NodeNumberLit stores a tag in
// Aux and an index into this pool (reusing Left) for the 64-bit payload.
package main

import (
	"math"
	"strconv"
	"strings"
)

const (
	litTagInt uint32 = iota
	litTagFloat
)

// LiteralPool holds the raw 64-bit payloads (as bit patterns) for every
// number literal the parser encounters, append-only like the string pool.
type LiteralPool struct {
	values []uint64
}

func NewLiteralPool() *LiteralPool {
	return &LiteralPool{values: make([]uint64, 0, 256)}
}

func (lp *LiteralPool) addInt(v int64) int {
	lp.values = append(lp.values, uint64(v))
	return len(lp.values) - 1
}

func (lp *LiteralPool) addFloat(v float64) int {
	lp.values = append(lp.values, math.Float64bits(v))
	return len(lp.values) - 1
}

func (lp *LiteralPool) Int(idx int) int64 {
	return int64(lp.values[idx])
}

func (lp *LiteralPool) Float(idx int) float64 {
	return math.Float64frombits(lp.values[idx])
}

// encodeNumberLiteral parses text (as produced by the lexer's lexNumber)
// and records it in pool, returning the (tag, index) pair packed the way
// NodeNumberLit expects: Aux = tag, Left = index.
func encodeNumberLiteral(pool *LiteralPool, text string) (tag uint32, index NodeIndex) {
	if strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X") {
		v, err := strconv.ParseInt(text[2:], 16, 64)
		if err != nil {
			v = 0
		}
		return litTagInt, NodeIndex(pool.addInt(v))
	}
	if strings.ContainsAny(text, ".eE") {
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			v = 0
		}
		return litTagFloat, NodeIndex(pool.addFloat(v))
	}
	v, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		v = 0
	}
	return litTagInt, NodeIndex(pool.addInt(v))
}
