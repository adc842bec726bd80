// Package pma implements the PMArc -pm2- decoder (spec.md §4.8): a
// from-scratch rebuilt-periodically Huffman code tree over a declared
// (not fixed) symbol count of up to 29 - 8 literal-history codes, 15
// direct copy-count codes, and up to 6 escape codes - companion offset
// trees whose alphabet grows as the stream progresses, and a 256-entry
// move-to-front history list.
//
// Grounded on internal/sit/lzah.go's style of hand-rolled bit-level state
// machines; pma's own tree format (explicit left/right node pairs rather
// than a flat peek table) is implemented here as a small binary trie
// built directly from canonical code lengths, since it must be walked
// bit-by-bit (not peeked) the way spec.md §4.8 "Tree format" describes.
package pma

import (
	"github.com/fragglet/lhasa/internal/lzbits"
	"github.com/fragglet/lhasa/internal/lzring"
)

const ringSize = 8192

type treeState int

const (
	stateUnbuilt treeState = iota
	stateBuild1
	stateBuild2
	stateBuild3
	stateContinuing
)

// trieNode is one entry of a compact binary tree: internal nodes point
// at their left child (right child lives at left+1); leaves carry a
// symbol directly.
type trieNode struct {
	left   int
	symbol uint16
	isLeaf bool
}

type trie struct {
	nodes []trieNode
	root  int
}

// buildTrie constructs a binary trie from a per-symbol code-length array
// using the same canonical (length, then symbol index) code assignment
// used throughout this module, then inserts every codeword bit path.
func buildTrie(lens []uint8) *trie {
	maxLen := uint8(0)
	for _, l := range lens {
		if l > maxLen {
			maxLen = l
		}
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

	t := &trie{nodes: []trieNode{{}}}
	t.root = 0
	t.nodes[0] = trieNode{isLeaf: false, left: -1}

	for sym, l := range lens {
		if l == 0 {
			continue
		}
		t.insert(codes[sym], l, uint16(sym))
	}
	return t
}

func (t *trie) insert(code uint32, length uint8, sym uint16) {
	pos := t.root
	for depth := uint8(0); depth < length; depth++ {
		bit := (code >> (length - depth - 1)) & 1
		if t.nodes[pos].isLeaf {
			// Shouldn't happen for a valid prefix code; bail safely.
			return
		}
		if t.nodes[pos].left < 0 {
			left := len(t.nodes)
			t.nodes = append(t.nodes, trieNode{left: -1}, trieNode{left: -1})
			t.nodes[pos].left = left
		}
		pos = t.nodes[pos].left + int(bit)
	}
	t.nodes[pos] = trieNode{isLeaf: true, symbol: sym}
}

func (t *trie) decode(r *lzbits.Reader) (uint16, bool) {
	pos := t.root
	if len(t.nodes) == 1 {
		return t.nodes[0].symbol, true
	}
	for !t.nodes[pos].isLeaf {
		bit, ok := r.ReadBit()
		if !ok {
			return 0, false
		}
		pos = t.nodes[pos].left + int(bit)
		if pos >= len(t.nodes) {
			return 0, false
		}
	}
	return t.nodes[pos].symbol, true
}

// readCodeTree implements spec.md §4.8 "Code-tree construction": a 5-bit
// symbol count, a 3-bit minimum code length, then (when the minimum
// length is nonzero) a 3-bit field width and that many width-wide
// per-entry lengths (0 = unused, else length = min + width - 1). A
// minimum length of zero means the tree has a single code, the count
// minus one, and no further bits are read for it.
//
// Also returns whether the companion offset tree needs to be read at
// all this rebuild: num_codes>=10 and not (num_codes==29 with a zero
// minimum length) - this dual special case is exact, not an
// approximation, and must be preserved bit-for-bit or the offset-tree
// read below desyncs the stream.
func readCodeTree(r *lzbits.Reader) (*trie, bool, bool) {
	count, ok := r.Read(5)
	if !ok {
		return nil, false, false
	}
	minLen, ok := r.Read(3)
	if !ok {
		return nil, false, false
	}
	needOffsetTree := count >= 10 && !(count == 29 && minLen == 0)
	if minLen == 0 {
		t := &trie{nodes: []trieNode{{isLeaf: true, symbol: uint16(count - 1)}}}
		return t, needOffsetTree, true
	}
	widthBits, ok := r.Read(3)
	if !ok {
		return nil, false, false
	}
	lens := make([]uint8, count)
	for i := range lens {
		width, ok := r.Read(uint(widthBits))
		if !ok {
			return nil, false, false
		}
		if width != 0 {
			lens[i] = uint8(minLen) + uint8(width) - 1
		}
	}
	return buildTrie(lens), needOffsetTree, true
}

// readOffsetTree implements the offset tree's own wire format, which is
// structurally different from the code tree's: numOffsets raw 3-bit
// lengths, one per offset value, with no count or minimum-length header
// at all. Every field is read regardless of how many are nonzero, to
// stay in sync with the stream. A single nonzero length means a
// one-leaf tree addressed by that offset value directly. If need is
// false, the caller's existing offset tree is left untouched and no
// bits are consumed at all - the real decoder reuses whatever offset
// tree it built last time in that case.
func readOffsetTree(r *lzbits.Reader, numOffsets int, need bool) (*trie, bool, bool) {
	if !need {
		return nil, false, true
	}
	lens := make([]uint8, numOffsets)
	nonZero, last := 0, 0
	for i := range lens {
		width, ok := r.Read(3)
		if !ok {
			return nil, false, false
		}
		lens[i] = uint8(width)
		if width != 0 {
			nonZero++
			last = i
		}
	}
	if nonZero == 1 {
		return &trie{nodes: []trieNode{{isLeaf: true, symbol: uint16(last)}}}, true, true
	}
	return buildTrie(lens), true, true
}

// history is the 256-entry move-to-front list used as the alphabet for
// literal codes.
type history struct {
	order []byte // order[0] is most recently used
}

func newHistory() *history {
	var order []byte
	appendRange := func(lo, hi int) {
		for b := lo; b <= hi; b++ {
			order = append(order, byte(b))
		}
	}
	appendRange(0x20, 0x7f) // printables and DEL
	appendRange(0x00, 0x1f) // controls
	appendRange(0xa0, 0xdf)
	appendRange(0x80, 0x9f)
	appendRange(0xe0, 0xff)
	return &history{order: order}
}

// at returns the byte currently at MRU offset idx (0 = most recent).
func (h *history) at(idx int) byte {
	return h.order[idx]
}

// touch moves value b to the front of the list.
func (h *history) touch(b byte) {
	for i, v := range h.order {
		if v == b {
			if i == 0 {
				return
			}
			copy(h.order[1:i+1], h.order[0:i])
			h.order[0] = b
			return
		}
	}
}

// indexOf returns b's current MRU offset.
func (h *history) indexOf(b byte) int {
	for i, v := range h.order {
		if v == b {
			return i
		}
	}
	return -1
}

var literalBase = [8]int{0, 8, 16, 32, 64, 96, 128, 192}
var literalExtraBits = [8]uint{3, 3, 4, 5, 5, 5, 6, 6}

var copyCountBase = []struct {
	threshold int
	extra     uint
	base      int
}{
	{17, 3, 17},
	{25, 3, 25},
	{33, 5, 33},
	{65, 6, 65},
	{129, 7, 129},
	{256, 0, 256},
}

// Decoder implements the harness Decoder contract for -pm2-.
type Decoder struct {
	src            lzbits.ByteSource
	bits           *lzbits.Reader
	ring           *lzring.Buffer
	hist           *history
	code           *trie
	off            *trie
	needOffsetTree bool
	state          treeState
	since          int // bytes emitted since the last state-relevant threshold
	total          int
	done           bool
	start          bool
}

// New constructs a -pm2- decoder.
func New(src lzbits.ByteSource) *Decoder {
	return &Decoder{
		src:  src,
		bits: lzbits.New(src),
		ring: lzring.New(ringSize),
		hist: newHistory(),
	}
}

// maybeRebuild runs the tree-rebuild state machine transitions described
// in spec.md §4.8 "Tree-rebuild schedule". The offset-tree alphabet
// widens at each stage (5, 6, 7, then 8 offsets); whether an offset
// tree is actually read at all - and whether a code-tree reread happens
// first - depends on the need/reread flags exactly as below, not on the
// stage alone.
func (d *Decoder) maybeRebuild() bool {
	if !d.start {
		d.start = true
		if _, ok := d.bits.ReadBit(); !ok { // discard one bit at stream start
			return false
		}
		code, need, ok := readCodeTree(d.bits)
		if !ok {
			return false
		}
		d.code, d.needOffsetTree = code, need
		off, changed, ok := readOffsetTree(d.bits, 5, need)
		if !ok {
			return false
		}
		if changed {
			d.off = off
		}
		d.state = stateBuild1
		return true
	}
	switch {
	case d.state == stateBuild1 && d.total >= 1024:
		off, changed, ok := readOffsetTree(d.bits, 6, d.needOffsetTree)
		if !ok {
			return false
		}
		if changed {
			d.off = off
		}
		d.state = stateBuild2
	case d.state == stateBuild2 && d.total >= 2048:
		off, changed, ok := readOffsetTree(d.bits, 7, d.needOffsetTree)
		if !ok {
			return false
		}
		if changed {
			d.off = off
		}
		d.state = stateBuild3
	case d.state == stateBuild3 && d.total >= 4096:
		reread, ok := d.bits.ReadBit()
		if !ok {
			return false
		}
		if reread != 0 {
			code, need, ok := readCodeTree(d.bits)
			if !ok {
				return false
			}
			d.code, d.needOffsetTree = code, need
		}
		off, changed, ok := readOffsetTree(d.bits, 8, d.needOffsetTree)
		if !ok {
			return false
		}
		if changed {
			d.off = off
		}
		d.state = stateContinuing
		d.since = d.total
	case d.state == stateContinuing && d.total-d.since >= 4096:
		reread, ok := d.bits.ReadBit()
		if !ok {
			return false
		}
		if reread != 0 {
			code, need, ok := readCodeTree(d.bits)
			if !ok {
				return false
			}
			d.code, d.needOffsetTree = code, need
			off, changed, ok := readOffsetTree(d.bits, 8, need)
			if !ok {
				return false
			}
			if changed {
				d.off = off
			}
		}
		d.since = d.total
	}
	return true
}

// decodeLiteralByte decodes one of the 8 literal history-offset codes.
func (d *Decoder) decodeLiteralByte(code uint16) (byte, bool) {
	base := literalBase[code]
	extra, ok := d.bits.Read(literalExtraBits[code])
	if !ok {
		return 0, false
	}
	idx := base + int(extra)
	if idx >= len(d.hist.order) {
		idx = len(d.hist.order) - 1
	}
	b := d.hist.at(idx)
	d.hist.touch(b)
	return b, true
}

// decodeCopyCount decodes the match length for a copy code: raw tree
// codes 8..22 map directly to counts 2..16; codes 23 and up index
// straight into the variable-length escape table by code-23 - no
// selector bits are read to pick the row, only that row's own width of
// extra bits, if any (spec.md §4.8 "Copy codes").
func (d *Decoder) decodeCopyCount(code uint16) (int, bool) {
	if code >= 8 && code <= 22 {
		return int(code) - 8 + 2, true
	}
	idx := int(code) - 23
	if idx < 0 || idx >= len(copyCountBase) {
		return 0, false
	}
	e := copyCountBase[idx]
	if e.extra == 0 {
		return e.base, true
	}
	extra, ok := d.bits.Read(e.extra)
	if !ok {
		return 0, false
	}
	return e.base + int(extra), true
}

// decodeCopyOffset implements spec.md §4.8's offset encoding: relative
// copy index 0 reads a raw 6-bit offset directly; indices 1 up to the
// escape point read a symbol k from the offset tree (k==0 also falling
// back to raw 6 bits; otherwise k+5 raw bits OR'd with 1<<(k+5)); beyond
// the escape point the offset is always 0.
func (d *Decoder) decodeCopyOffset(code uint16) (int, bool) {
	rel := int(code) - 8
	if rel <= 0 {
		v, ok := d.bits.Read(6)
		if !ok {
			return 0, false
		}
		return int(v), true
	}
	if rel >= 20 {
		return 0, true
	}
	k, ok := d.off.decode(d.bits)
	if !ok {
		return 0, false
	}
	if k == 0 {
		v, ok := d.bits.Read(6)
		if !ok {
			return 0, false
		}
		return int(v), true
	}
	extraBits := uint(k) + 5
	extra, ok := d.bits.Read(extraBits)
	if !ok {
		return 0, false
	}
	return (1 << extraBits) | int(extra), true
}

// ReadBlock decodes literal/copy commands into buf (spec.md §4.8).
func (d *Decoder) ReadBlock(buf []byte) int {
	if d.done {
		return 0
	}
	n := 0
	for n < len(buf)-256 {
		if !d.maybeRebuild() {
			d.done = true
			return n
		}
		sym, ok := d.code.decode(d.bits)
		if !ok {
			d.done = true
			return n
		}
		if sym < 8 {
			b, ok := d.decodeLiteralByte(sym)
			if !ok {
				d.done = true
				return n
			}
			d.ring.Emit(buf, &n, b)
			d.total++
		} else {
			length, ok := d.decodeCopyCount(sym)
			if !ok {
				d.done = true
				return n
			}
			offset, ok := d.decodeCopyOffset(sym)
			if !ok {
				d.done = true
				return n
			}
			d.ring.Copy(buf, &n, offset, length)
			d.total += length
		}
	}
	return n
}
