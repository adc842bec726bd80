// Package lhblock implements the canonical-Huffman block codec used by
// -lh4-, -lh5-, -lh6-, -lh7-, -lhx-, and -lk7- (spec.md §4.7). It is
// grounded on the same header-parsing-by-struct-fields idiom used
// throughout internal/sit, generalized to the block-oriented wire format
// the spec describes: a temporary table bootstraps a code table and a
// position table, both materialized as flat peek-indexed lookup arrays.
package lhblock

import (
	"math/bits"

	"github.com/fragglet/lhasa/internal/lzbits"
)

// table is a canonical Huffman decode table: a flat array of 1<<maxBits
// entries, each mapping a max_bits-wide MSB peek directly to the symbol
// it decodes to and the number of bits that symbol's code actually
// occupies (spec.md §4.7 "Lookup tables").
type table struct {
	maxBits uint
	sym     []uint16
	length  []uint8
}

// buildTable constructs a canonical Huffman table from a code-length-per-
// symbol array (0 meaning "symbol unused"). Symbols are assigned codes in
// order of increasing length, then increasing symbol index -- the same
// canonical construction used by internal/lh1's offset table.
func buildTable(lens []uint8) *table {
	codes, maxLen := assignCodes(lens)
	maxBits := uint(maxLen)
	size := 1 << maxBits
	t := &table{maxBits: maxBits, sym: make([]uint16, size), length: make([]uint8, size)}

	for sym, l := range lens {
		if l == 0 {
			continue
		}
		start := int(codes[sym]) << (maxBits - uint(l))
		span := 1 << (maxBits - uint(l))
		for i := start; i < start+span; i++ {
			t.sym[i] = uint16(sym)
			t.length[i] = l
		}
	}
	return t
}

// assignCodes assigns canonical Huffman codes to every symbol with a
// non-zero length, in order of increasing length then increasing symbol
// index, and reports the maximum length seen (at least 1).
func assignCodes(lens []uint8) ([]uint32, uint8) {
	maxLen := uint8(0)
	for _, l := range lens {
		if l > maxLen {
			maxLen = l
		}
	}
	if maxLen == 0 {
		maxLen = 1
	}
	codes := make([]uint32, len(lens))
	code := uint32(0)
	for length := uint8(1); length <= maxLen; length++ {
		for sym, l := range lens {
			if l != length {
				continue
			}
			codes[sym] = code
			code++
		}
		code <<= 1
	}
	return codes, maxLen
}

// decode reads the next symbol from r using t, consuming exactly the
// symbol's canonical code length in bits.
func (t *table) decode(r *lzbits.Reader) (uint16, bool) {
	peek, ok := r.Peek(t.maxBits)
	if !ok {
		return 0, false
	}
	idx := peek
	if idx >= uint32(len(t.sym)) {
		idx = uint32(len(t.sym)) - 1
	}
	sym := t.sym[idx]
	length := t.length[idx]
	if length == 0 {
		return 0, false
	}
	if _, ok := r.Read(uint(length)); !ok {
		return 0, false
	}
	return sym, true
}

// bitWidth returns the number of bits needed to represent values 0..n-1.
func bitWidth(n int) uint {
	if n <= 1 {
		return 1
	}
	return uint(bits.Len(uint(n - 1)))
}

// readPTLen implements the shared "pt_len" framing used for both the
// temporary table and (on -lh5- and newer) the position table (spec.md
// §4.7 "Temporary table"): a count, then per-symbol 3-bit lengths with a
// run-of-1-bits escape for lengths > 6, and -- only when iSpecial >= 0 --
// a 2-bit skip field read immediately after the iSpecial'th length.
func readPTLen(r *lzbits.Reader, nn int, countBits uint, iSpecial int) ([]uint8, uint16, bool) {
	n, ok := r.Read(countBits)
	if !ok {
		return nil, 0, false
	}
	lens := make([]uint8, nn)
	if n == 0 {
		sym, ok := r.Read(countBits)
		if !ok {
			return nil, 0, false
		}
		return lens, uint16(sym), true
	}
	i := 0
	for i < int(n) {
		c, ok := r.Read(3)
		if !ok {
			return nil, 0, false
		}
		if c == 7 {
			for {
				bit, ok := r.ReadBit()
				if !ok {
					return nil, 0, false
				}
				if bit == 0 {
					break
				}
				c++
			}
		}
		lens[i] = uint8(c)
		i++
		if i == iSpecial {
			skip, ok := r.Read(2)
			if !ok {
				return nil, 0, false
			}
			for range skip {
				if i >= nn {
					break
				}
				lens[i] = 0
				i++
			}
		}
	}
	return lens, 0, true
}

// huffTable wraps either a real canonical table or a degenerate
// single-symbol table (spec.md's "count of 0" cases), which consumes no
// bits per decode.
type huffTable struct {
	tbl      *table
	constant bool
	sym      uint16
}

func (h *huffTable) decode(r *lzbits.Reader) (uint16, bool) {
	if h.constant {
		return h.sym, true
	}
	return h.tbl.decode(r)
}

// readHuffTable reads a pt_len-framed table of nn symbols using countBits
// for the initial count field.
func readHuffTable(r *lzbits.Reader, nn int, countBits uint, iSpecial int) (*huffTable, bool) {
	lens, sym, ok := readPTLen(r, nn, countBits, iSpecial)
	if !ok {
		return nil, false
	}
	allZero := true
	for _, l := range lens {
		if l != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return &huffTable{constant: true, sym: sym}, true
	}
	return &huffTable{tbl: buildTable(lens)}, true
}
