package lhblock

import (
	"testing"

	"github.com/fragglet/lhasa/internal/lzbits"
)

type bitWriter struct {
	bytes []byte
	cur   byte
	nbits uint
}

func (w *bitWriter) writeBits(v uint32, n uint) {
	for i := int(n) - 1; i >= 0; i-- {
		bit := byte((v >> uint(i)) & 1)
		w.cur = w.cur<<1 | bit
		w.nbits++
		if w.nbits == 8 {
			w.bytes = append(w.bytes, w.cur)
			w.cur = 0
			w.nbits = 0
		}
	}
}

func (w *bitWriter) flush() []byte {
	if w.nbits > 0 {
		w.cur <<= 8 - w.nbits
		w.bytes = append(w.bytes, w.cur)
		w.cur, w.nbits = 0, 0
	}
	return w.bytes
}

func newTestReader(src lzbits.ByteSource) *lzbits.Reader {
	return lzbits.New(src)
}

func TestBuildTableRoundTrip(t *testing.T) {
	lens := []uint8{2, 2, 2, 3, 3}
	tbl := buildTable(lens)
	codes, maxLen := assignCodes(lens)
	if uint(maxLen) != tbl.maxBits {
		t.Fatalf("maxBits = %d, want %d", tbl.maxBits, maxLen)
	}

	for sym, l := range lens {
		w := &bitWriter{}
		w.writeBits(codes[sym], uint(l))
		w.writeBits(0, uint(maxLen)-uint(l))
		data := w.flush()
		pos := 0
		src := func(buf []byte) int {
			n := copy(buf, data[pos:])
			pos += n
			return n
		}
		r := newTestReader(src)
		got, ok := tbl.decode(r)
		if !ok || int(got) != sym {
			t.Fatalf("symbol %d: decode = %d, ok=%v", sym, got, ok)
		}
	}
}

// TestLiteralBlockRoundTrip hand-assembles one complete -lh5- block (a
// temporary table with exactly two used symbols, a code table built from
// it, and a trivial degenerate position table) and checks that Decoder
// reproduces the literal bytes. Copy commands are exercised separately in
// TestCopyCommand.
func TestLiteralBlockRoundTrip(t *testing.T) {
	input := []byte("the quick brown fox jumps over the lazy dog")
	present := map[byte]bool{}
	for _, b := range input {
		present[b] = true
	}
	lens := make([]uint8, numCodes)
	for b := range 256 {
		if present[byte(b)] {
			lens[b] = 8
		}
	}

	w := &bitWriter{}
	w.writeBits(uint32(len(input)), 16) // block command count

	// Temporary table: symbol 0 ("zero-length run of 1") and symbol 10
	// ("length 8", since the code table decodes length = symbol-2) both
	// get a 1-bit code; every other temp symbol is unused. 11 explicit
	// length entries are enough to cover index 10.
	w.writeBits(11, tempIBits)
	w.writeBits(1, 3) // index 0 -> length 1
	w.writeBits(0, 3) // index 1 -> length 0
	w.writeBits(0, 3) // index 2 -> length 0
	w.writeBits(0, 2) // mandatory skip field after the 3rd entry: skip 0
	for range 6 {
		w.writeBits(0, 3) // indices 3..8 -> length 0
	}
	w.writeBits(0, 3) // index 9 -> length 0
	w.writeBits(1, 3) // index 10 -> length 1

	w.writeBits(uint32(numCodes), codeCountBits)
	for _, l := range lens {
		if l == 0 {
			w.writeBits(0, 1) // temp symbol 0
		} else {
			w.writeBits(1, 1) // temp symbol 10
		}
	}

	// Degenerate position table: never exercised by this literal-only
	// block, but still present on the wire.
	w.writeBits(0, 4)
	w.writeBits(0, 4)

	data := w.flush()
	pos := 0
	src := func(buf []byte) int {
		n := copy(buf, data[pos:])
		pos += n
		return n
	}
	d := New(LH5, src)
	out := make([]byte, 0, len(input))
	buf := make([]byte, 512)
	for len(out) < len(input) {
		n := d.ReadBlock(buf)
		if n == 0 {
			break
		}
		out = append(out, buf[:n]...)
	}
	if len(out) < len(input) {
		t.Fatalf("decoded %d bytes, want at least %d", len(out), len(input))
	}
	out = out[:len(input)]
	if string(out) != string(input) {
		t.Fatalf("round trip mismatch:\n got %q\nwant %q", out, input)
	}
}

func TestRingSizesByTag(t *testing.T) {
	cases := map[Tag]int{LH4: 4 << 10, LH5: 8 << 10, LH6: 32 << 10, LH7: 64 << 10}
	for tag, want := range cases {
		if got := ringSizeFor(tag); got != want {
			t.Fatalf("tag %d: ring size = %d, want %d", tag, got, want)
		}
	}
}
