// Package lzcodec implements the small legacy codecs this module still
// has to support end to end: the null codec behind -lh0- (stored,
// uncompressed data), the classic byte/bit-oriented LZSS codecs behind
// -lzs- and -lz5-, and the adaptive LZW codec behind -lz4- (spec.md's
// "null / LZS / LZ5 / LZ4 legacy codecs" budget line). LZSS is grounded
// on this module's own ByteSource/RingBuffer primitives; LZW is grounded
// on internal/sit/lzc.go's pull-based decoder shape.
package lzcodec

import (
	"github.com/fragglet/lhasa/internal/lzbits"
	"github.com/fragglet/lhasa/internal/lzring"
)

// Null is the passthrough codec for -lh0-: the member's compressed body
// already is the plain data.
type Null struct {
	src  lzbits.ByteSource
	done bool
}

// NewNull constructs a stored/null decoder reading from src.
func NewNull(src lzbits.ByteSource) *Null {
	return &Null{src: src}
}

// ReadBlock copies bytes straight from the source.
func (n *Null) ReadBlock(buf []byte) int {
	if n.done {
		return 0
	}
	c := n.src(buf)
	if c == 0 {
		n.done = true
	}
	return c
}

// Params fixes the LZSS geometry for one of the legacy tags.
type Params struct {
	RingSize   int
	OffsetBits uint
	LengthBits uint
	Threshold  int
}

// LZS is -lzs-'s parameter set: an 11-bit offset into a 2 KiB window,
// length 2..17 (4-bit field, threshold 2).
var LZS = Params{RingSize: 2048, OffsetBits: 11, LengthBits: 4, Threshold: 2}

// LZ5 is -lz5-'s parameter set: a 12-bit offset into a 4 KiB window,
// length 3..18 (4-bit field, threshold 3).
var LZ5 = Params{RingSize: 4096, OffsetBits: 12, LengthBits: 4, Threshold: 3}

// LZSS implements the shared flag-bit/literal/copy-token decode loop for
// -lzs- and -lz5-.
type LZSS struct {
	p    Params
	bits *lzbits.Reader
	ring *lzring.Buffer
	done bool
}

// NewLZSS constructs a decoder for the given legacy parameter set.
func NewLZSS(p Params, src lzbits.ByteSource) *LZSS {
	return &LZSS{
		p:    p,
		bits: lzbits.New(src),
		ring: lzring.New(p.RingSize),
	}
}

// ReadBlock decodes flag-prefixed literal/copy tokens into buf.
func (d *LZSS) ReadBlock(buf []byte) int {
	if d.done {
		return 0
	}
	n := 0
	maxCopy := 1 << d.p.LengthBits
	for n < len(buf)-maxCopy {
		flag, ok := d.bits.ReadBit()
		if !ok {
			d.done = true
			return n
		}
		if flag == 1 {
			b, ok := d.bits.Read(8)
			if !ok {
				d.done = true
				return n
			}
			d.ring.Emit(buf, &n, byte(b))
			continue
		}
		offset, ok := d.bits.Read(d.p.OffsetBits)
		if !ok {
			d.done = true
			return n
		}
		rawLen, ok := d.bits.Read(d.p.LengthBits)
		if !ok {
			d.done = true
			return n
		}
		length := int(rawLen) + d.p.Threshold
		d.ring.Copy(buf, &n, int(offset), length)
	}
	return n
}
