package lhblock

import (
	"github.com/fragglet/lhasa/internal/lzbits"
	"github.com/fragglet/lhasa/internal/lzring"
)

const (
	threshold  = 3
	maxMatch   = 256
	numCodes   = 256 + (maxMatch - threshold + 1) // 510
	tempSize   = 19
	tempIBits  = 5
	iSpecial   = 3
	codeCountBits = 9
)

// Tag selects the ring-buffer size (and derived position-table geometry)
// for one of the canonical-Huffman block tags.
type Tag int

const (
	LH4 Tag = iota
	LH5
	LH6
	LH7
)

func ringSizeFor(tag Tag) int {
	switch tag {
	case LH4:
		return 4 << 10
	case LH5:
		return 8 << 10
	case LH6:
		return 32 << 10
	case LH7:
		return 64 << 10
	default:
		return 8 << 10
	}
}

// positionTableSize returns the number of symbols in the position table
// for a ring of the given size: one symbol per bit-position of the
// largest representable offset, plus the zero-offset symbol.
func positionTableSize(ringSize int) int {
	return bitWidthOf(ringSize-1) + 1
}

func bitWidthOf(n int) int {
	w := 0
	for n > 0 {
		n >>= 1
		w++
	}
	if w == 0 {
		w = 1
	}
	return w
}

// Decoder implements the harness Decoder contract for the canonical-
// Huffman block codecs (-lh4/5/6/7-).
type Decoder struct {
	tag   Tag
	bits  *lzbits.Reader
	ring  *lzring.Buffer
	done  bool
	lh4   bool // -lh4- inherits the position table from the temp table

	remaining int // commands left in the current block
	code      *huffTable
	pos       *huffTable
	ptSize    int
	ptBits    uint
}

// New constructs a canonical-Huffman block decoder for the given tag.
func New(tag Tag, src lzbits.ByteSource) *Decoder {
	ringSize := ringSizeFor(tag)
	return &Decoder{
		tag:    tag,
		bits:   lzbits.New(src),
		ring:   lzring.New(ringSize),
		lh4:    tag == LH4,
		ptSize: positionTableSize(ringSize),
		ptBits: bitWidth(positionTableSize(ringSize)),
	}
}

// readCodeTable reads the 9-bit count then the symbol-length sequence for
// the code table, using temp to decode the length alphabet (spec.md §4.7
// "Code table").
func (d *Decoder) readCodeTable(temp *huffTable) (*huffTable, bool) {
	n, ok := d.bits.Read(codeCountBits)
	if !ok {
		return nil, false
	}
	if n == 0 {
		sym, ok := d.bits.Read(codeCountBits)
		if !ok {
			return nil, false
		}
		return &huffTable{constant: true, sym: uint16(sym)}, true
	}
	lens := make([]uint8, numCodes)
	i := 0
	for i < int(n) {
		c, ok := temp.decode(d.bits)
		if !ok {
			return nil, false
		}
		switch c {
		case 0:
			lens[i] = 0
			i++
		case 1:
			run, ok := d.bits.Read(4)
			if !ok {
				return nil, false
			}
			run += 3
			for range run {
				if i >= numCodes {
					break
				}
				lens[i] = 0
				i++
			}
		case 2:
			run, ok := d.bits.Read(9)
			if !ok {
				return nil, false
			}
			run += 20
			for range run {
				if i >= numCodes {
					break
				}
				lens[i] = 0
				i++
			}
		default:
			lens[i] = uint8(c - 2)
			i++
		}
	}
	return &huffTable{tbl: buildTable(lens)}, true
}

// readBlockHeader parses a new block's tables: the temporary table, the
// code table, and the position table (directly for -lh5- and newer, or
// inherited from the temporary table for -lh4-).
func (d *Decoder) readBlockHeader() bool {
	count, ok := d.bits.Read(16)
	if !ok {
		return false
	}
	d.remaining = int(count)

	temp, ok := readHuffTable(d.bits, tempSize, tempIBits, iSpecial)
	if !ok {
		return false
	}
	code, ok := d.readCodeTable(temp)
	if !ok {
		return false
	}
	d.code = code

	if d.lh4 {
		d.pos = temp
	} else {
		pos, ok := readHuffTable(d.bits, d.ptSize, d.ptBits, -1)
		if !ok {
			return false
		}
		d.pos = pos
	}
	return true
}

// decodeOffset reads a position-table symbol k; k==0 means offset 0,
// otherwise k-1 extra raw bits are OR'd with 1<<(k-1) (spec.md §4.7
// "Command loop").
func (d *Decoder) decodeOffset() (int, bool) {
	k, ok := d.pos.decode(d.bits)
	if !ok {
		return 0, false
	}
	if k == 0 {
		return 0, true
	}
	extra, ok := d.bits.Read(uint(k - 1))
	if !ok {
		return 0, false
	}
	return (1 << (k - 1)) | int(extra), true
}

// ReadBlock decodes commands from the current (or next) block into buf,
// returning the number of bytes produced, or 0 at end of stream.
func (d *Decoder) ReadBlock(buf []byte) int {
	if d.done {
		return 0
	}
	n := 0
	for n < len(buf)-maxMatch {
		if d.remaining == 0 {
			if !d.readBlockHeader() {
				d.done = true
				return n
			}
		}
		sym, ok := d.code.decode(d.bits)
		if !ok {
			d.done = true
			return n
		}
		d.remaining--
		if sym < 256 {
			d.ring.Emit(buf, &n, byte(sym))
			continue
		}
		length := int(sym) - 256 + threshold
		offset, ok := d.decodeOffset()
		if !ok {
			d.done = true
			return n
		}
		d.ring.Copy(buf, &n, offset, length)
	}
	return n
}
