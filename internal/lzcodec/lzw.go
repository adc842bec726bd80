package lzcodec

import "github.com/fragglet/lhasa/internal/lzbits"

// LZW implements the classic adaptive Unix `compress` algorithm used by
// -lz4- (spec.md §4.3, §10 supplement): variable code width 9..16 bits,
// clear code 256, prefix/suffix tables walked with a decode stack.
//
// Grounded on internal/sit/lzc.go's lzccopy, which does the same thing
// as an io.Pipe-fed goroutine; rewritten here against this module's
// pull-based ReadBlock contract, so the code-bit unpacking happens
// byte-by-byte against a ByteSource instead of bufio.Reader, and the
// decode loop resumes across ReadBlock calls instead of running to
// completion in one goroutine.
const (
	lzwMaxBits    = 14
	lzwMaxMaxCode = 1 << lzwMaxBits
	lzwInitBits   = 9
	lzwClearCode  = 256
	lzwFirstFree  = 257
)

// LZW decodes a -lz4- bitstream incrementally.
type LZW struct {
	src  lzbits.ByteSource
	done bool

	nbits   int
	maxcode uint16
	freeEnt uint16

	prefix []uint16
	suffix []byte

	buffer   [16]byte
	boffset  int
	bsize    int
	needFill bool

	oldcode int
	finchar byte
	started bool

	stack []byte // pending bytes to emit, most-recent-first
}

// NewLZW returns an -lz4- decoder pulling compressed bytes from src.
func NewLZW(src lzbits.ByteSource) *LZW {
	d := &LZW{
		src:      src,
		nbits:    lzwInitBits,
		freeEnt:  lzwFirstFree,
		prefix:   make([]uint16, lzwMaxMaxCode),
		suffix:   make([]byte, lzwMaxMaxCode),
		needFill: true,
		oldcode:  -1,
	}
	d.maxcode = 1<<d.nbits - 1
	for i := range 256 {
		d.suffix[i] = byte(i)
	}
	return d
}

func (d *LZW) getcode() (uint16, bool) {
	if d.freeEnt > d.maxcode && d.nbits < lzwMaxBits {
		d.nbits++
		d.maxcode = 1<<d.nbits - 1
		d.needFill = true
	} else if d.freeEnt > d.maxcode {
		d.maxcode = lzwMaxMaxCode
	}

	if d.needFill {
		n := 0
		for n < d.nbits {
			got := d.src(d.buffer[n:d.nbits])
			if got == 0 {
				break
			}
			n += got
		}
		if n == 0 {
			return 0, false
		}
		d.boffset = 0
		d.bsize = n*8 - (d.nbits - 1)
		d.needFill = false
	}
	if d.boffset >= d.bsize {
		return 0, false
	}

	byteOffset := d.boffset / 8
	bitOffset := uint(d.boffset % 8)
	code := ((uint32(d.buffer[byteOffset]) |
		uint32(d.buffer[byteOffset+1])<<8 |
		uint32(d.buffer[byteOffset+2])<<16) >> bitOffset) & (1<<uint(d.nbits) - 1)
	d.boffset += d.nbits
	if d.boffset >= d.bsize {
		d.needFill = true
	}
	return uint16(code), true
}

func (d *LZW) decodeNext() bool {
	if !d.started {
		code, ok := d.getcode()
		if !ok {
			return false
		}
		d.started = true
		d.oldcode = int(code)
		d.finchar = byte(code)
		d.stack = append(d.stack, d.finchar)
		return true
	}

	code, ok := d.getcode()
	if !ok {
		return false
	}
	if code == lzwClearCode {
		clear(d.prefix[:256])
		d.freeEnt = 256
		d.nbits = lzwInitBits
		d.maxcode = 1<<d.nbits - 1
		d.needFill = true
		code, ok = d.getcode()
		if !ok {
			return false
		}
	}
	incode := int(code)
	walk := int(code)
	if walk >= int(d.freeEnt) {
		d.stack = append(d.stack, d.finchar)
		walk = d.oldcode
	}
	var out []byte
	for walk >= 256 {
		out = append(out, d.suffix[walk])
		walk = int(d.prefix[walk])
	}
	d.finchar = d.suffix[walk]
	out = append(out, d.finchar)
	for i := len(out) - 1; i >= 0; i-- {
		d.stack = append(d.stack, out[i])
	}

	next := d.freeEnt
	if int(next) < lzwMaxMaxCode {
		d.prefix[next] = uint16(d.oldcode)
		d.suffix[next] = d.finchar
		d.freeEnt = next + 1
	}
	d.oldcode = incode
	return true
}

// ReadBlock implements the codec contract: fill buf with as many decoded
// bytes as are ready, 0 at end of stream.
func (d *LZW) ReadBlock(buf []byte) int {
	if d.done {
		return 0
	}
	n := 0
	for n < len(buf) {
		if len(d.stack) == 0 {
			if !d.decodeNext() {
				d.done = true
				break
			}
		}
		for n < len(buf) && len(d.stack) > 0 {
			buf[n] = d.stack[0]
			d.stack = d.stack[1:]
			n++
		}
	}
	return n
}
