// Package lh1 implements the -lh1- adaptive-Huffman LZSS codec: the
// Vitter/Faller-Gallager-Knuth-family self-balancing tree described in
// spec.md §4.6, with the classical "pair-base array" bookkeeping (son/
// parent arrays keyed by node position) found, as a commented-out C
// reference, in internal/sit/lzah.go (SITLZAH_*). spec.md §9 additionally
// suggests an explicit group_id/group_leader representation; this port
// keeps the array-pair-base representation instead, since it is the one
// literally present in the teacher corpus and produces an identical
// decoded byte stream (the same frequency-sorted tree, the same
// promote-on-increment rule) -- DESIGN.md records the equivalence.
package lh1

import (
	"github.com/fragglet/lhasa/internal/lzbits"
	"github.com/fragglet/lhasa/internal/lzring"
)

const (
	threshold = 3
	maxMatch  = 60
	// numCodes is the alphabet size: 256 literal byte codes plus one
	// code per copy length in [threshold, maxMatch].
	numCodes = 256 + (maxMatch - threshold + 1) // 314
	treeSize = numCodes*2 - 1                   // 627
	rootPos  = treeSize - 1
	maxFreq  = 0x8000
	ringSize = 4096
)

// offset prefix code: 6-bit symbols, canonical lengths drawn from the
// distribution table {1,3,8,12,24,16} for code lengths 3..8 (spec.md
// §4.6). Symbols are assigned sequentially in length order.
var offsetLens = buildOffsetLens()

func buildOffsetLens() [64]uint8 {
	counts := []int{1, 3, 8, 12, 24, 16}
	var lens [64]uint8
	sym := 0
	for i, n := range counts {
		length := uint8(3 + i)
		for range n {
			lens[sym] = length
			sym++
		}
	}
	return lens
}

// canonicalCodes returns, for each symbol, its canonical Huffman code
// value (MSB-first) given a length table, in order of increasing length
// then increasing symbol index.
func canonicalCodes(lens []uint8) []uint16 {
	maxLen := uint8(0)
	for _, l := range lens {
		if l > maxLen {
			maxLen = l
		}
	}
	codes := make([]uint16, len(lens))
	code := uint16(0)
	for length := uint8(1); length <= maxLen; length++ {
		for sym, l := range lens {
			if l == length {
				codes[sym] = code
				code++
			}
		}
		code <<= 1
	}
	return codes
}

var offsetCodes = canonicalCodes(offsetLens[:])

// tree is the adaptive Huffman state: son[pos] gives either the
// child-pair-base of an internal node, or (leaf-code + treeSize) as a
// leaf sentinel; parent[pos] gives the parent's pair-base (0 at the
// root). freq[pos] holds the frequency currently associated with the
// node occupying array position pos.
type tree struct {
	son    [treeSize]int
	parent [treeSize + 1]int
	freq   [treeSize + 1]int
}

func newTree() *tree {
	t := &tree{}
	for i := range numCodes {
		t.freq[i] = 1
		t.son[i] = i + treeSize
		t.parent[i+treeSize] = i
	}
	i, j := 0, numCodes
	for j < treeSize {
		t.freq[j] = t.freq[i] + t.freq[i+1]
		t.son[j] = i
		t.parent[i] = j
		t.parent[i+1] = j
		i += 2
		j++
	}
	t.freq[treeSize] = 0xffff
	t.parent[treeSize-1] = 0
	return t
}

// reconstruct halves every leaf frequency (a decayed moving average) and
// rebuilds the internal nodes bottom-up, preserving the
// non-increasing-frequency array order (spec.md §4.6 step 1).
func (t *tree) reconstruct() {
	var freq [treeSize]int
	var son [treeSize]int
	j := 0
	for i := range treeSize {
		if t.son[i] >= treeSize {
			freq[j] = (t.freq[i] + 1) >> 1
			son[j] = t.son[i]
			j++
		}
	}
	// j == numCodes now; rebuild internal nodes.
	j = numCodes
	for i := 0; i < treeSize-1; i += 2 {
		k := i + 1
		l := freq[i] + freq[k]
		freq[j] = l
		k = j - 1
		for l < freq[k] {
			k--
		}
		k++
		copy(freq[k+1:j+1], freq[k:j])
		freq[k] = l
		copy(son[k+1:j+1], son[k:j])
		son[k] = i
		j++
	}
	for i := range treeSize {
		k := son[i]
		if k >= treeSize {
			t.parent[k] = i
		} else {
			t.parent[k] = i
			t.parent[k+1] = i
		}
	}
	t.freq = [treeSize + 1]int{}
	copy(t.freq[:treeSize], freq[:])
	t.freq[treeSize] = 0xffff
	t.son = son
}

// update runs the frequency-increment/promote walk for the leaf holding
// code, climbing to the root (spec.md §4.6 step 2-3).
func (t *tree) update(code int) {
	if t.freq[rootPos] >= maxFreq {
		t.reconstruct()
	}
	i := t.parent[code+treeSize]
	for {
		j := t.freq[i] + 1
		t.freq[i] = j
		i1 := i + 1
		if t.freq[i1] < j {
			for t.freq[i1] < j {
				i1++
			}
			i1--
			t.freq[i], t.freq[i1] = t.freq[i1], t.freq[i]

			k := t.son[i]
			t.parent[k] = i1
			if k < treeSize {
				t.parent[k+1] = i1
			}
			t.son[i], t.son[i1] = t.son[i1], t.son[i]

			k = t.son[i]
			t.parent[k] = i
			if k < treeSize {
				t.parent[k+1] = i
			}
			i = i1
		}
		i = t.parent[i]
		if i == 0 {
			break
		}
	}
}

// decodeSymbol walks the tree from the root, returning the decoded code
// (0..numCodes-1) or false on bit starvation.
func (t *tree) decodeSymbol(r *lzbits.Reader) (int, bool) {
	ch := t.son[rootPos]
	for ch < treeSize {
		bit, ok := r.ReadBit()
		if !ok {
			return 0, false
		}
		ch = t.son[ch+int(bit)]
	}
	return ch - treeSize, true
}

// Decoder implements the harness Decoder contract for -lh1-.
type Decoder struct {
	src  lzbits.ByteSource
	bits *lzbits.Reader
	t    *tree
	ring *lzring.Buffer
	done bool
}

// New constructs an -lh1- decoder reading compressed bytes from src.
func New(src lzbits.ByteSource) *Decoder {
	return &Decoder{
		src:  src,
		bits: lzbits.New(src),
		t:    newTree(),
		ring: lzring.New(ringSize),
	}
}

// decodeOffset reads the 6-bit canonical prefix code then 6 raw bits,
// returning a back-reference distance 0..4095.
func (d *Decoder) decodeOffset() (int, bool) {
	peek, ok := d.bits.Peek(8)
	if !ok {
		return 0, false
	}
	sym := -1
	for s, code := range offsetCodes {
		length := offsetLens[s]
		if uint32(peek)>>(8-length) == uint32(code) {
			sym = s
			if _, ok := d.bits.Read(uint(length)); !ok {
				return 0, false
			}
			break
		}
	}
	if sym < 0 {
		return 0, false
	}
	raw, ok := d.bits.Read(6)
	if !ok {
		return 0, false
	}
	return (sym << 6) | int(raw), true
}

// ReadBlock decodes as many literals/copies as fit in buf, returning the
// number of bytes produced, or 0 on end-of-stream/codec error.
func (d *Decoder) ReadBlock(buf []byte) int {
	if d.done {
		return 0
	}
	n := 0
	for n < len(buf)-maxMatch {
		code, ok := d.t.decodeSymbol(d.bits)
		if !ok {
			d.done = true
			return n
		}
		d.t.update(code)
		if code < 256 {
			d.ring.Emit(buf, &n, byte(code))
			continue
		}
		length := code - 256 + threshold
		offset, ok := d.decodeOffset()
		if !ok {
			d.done = true
			return n
		}
		d.ring.Copy(buf, &n, offset, length)
	}
	return n
}
