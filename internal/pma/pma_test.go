package pma

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
			w.cur, w.nbits = 0, 0
		}
	}
}

func (w *bitWriter) flush() []byte {
	if w.nbits > 0 {
		w.cur <<= 8 - w.nbits
		w.bytes = append(w.bytes, w.cur)
	}
	return w.bytes
}

func TestBuildTrieRoundTrip(t *testing.T) {
	lens := []uint8{1, 2, 2}
	tr := buildTrie(lens)

	// Re-derive the same canonical codes the encoder side would use.
	codes := []uint32{0, 2, 3} // lengths {1,2,2} -> sym0="0", sym1="10", sym2="11"
	widths := []uint{1, 2, 2}

	for sym := range lens {
		w := &bitWriter{}
		w.writeBits(codes[sym], widths[sym])
		data := w.flush()
		pos := 0
		src := func(buf []byte) int {
			n := copy(buf, data[pos:])
			pos += n
			return n
		}
		r := lzbits.New(src)
		got, ok := tr.decode(r)
		if !ok || int(got) != sym {
			t.Fatalf("symbol %d: decode = %d, ok=%v", sym, got, ok)
		}
	}
}

func TestHistoryTouchMovesToFront(t *testing.T) {
	h := newHistory()
	b := h.at(10)
	h.touch(b)
	if h.at(0) != b {
		t.Fatalf("touch did not move %v to front, front is %v", b, h.at(0))
	}
	if idx := h.indexOf(b); idx != 0 {
		t.Fatalf("indexOf after touch = %d, want 0", idx)
	}
}

func TestDecodeCopyCountDirectRange(t *testing.T) {
	d := &Decoder{}
	for code := uint16(8); code <= 22; code++ {
		n, ok := d.decodeCopyCount(code)
		if !ok {
			t.Fatalf("code %d: decode failed", code)
		}
		want := int(code) - 8 + 2
		if n != want {
			t.Fatalf("code %d: count = %d, want %d", code, n, want)
		}
	}
}

func TestDecodeCopyCountEscapeRange(t *testing.T) {
	// codes 23..28 index directly into copyCountBase (code-23), with no
	// selector bits consumed from the stream first.
	cases := []struct {
		code uint16
		bits []byte
		want int
	}{
		{23, []byte{0x00}, 17},       // base 17, 3 extra bits all zero
		{23, []byte{0xe0}, 17 + 7},   // base 17, extra=0b111
		{28, nil, 256},               // base 256, no extra bits at all
	}
	for _, c := range cases {
		pos := 0
		src := func(buf []byte) int {
			n := copy(buf, c.bits[pos:])
			pos += n
			return n
		}
		d := &Decoder{bits: lzbits.New(src)}
		n, ok := d.decodeCopyCount(c.code)
		if !ok {
			t.Fatalf("code %d: decode failed", c.code)
		}
		if n != c.want {
			t.Fatalf("code %d: count = %d, want %d", c.code, n, c.want)
		}
	}
}

func TestDecodeCopyCountEscapeOutOfRange(t *testing.T) {
	d := &Decoder{}
	if _, ok := d.decodeCopyCount(29); ok {
		t.Fatal("code 29 should be out of range for a 6-row escape table")
	}
}

func TestNewHistoryOrder(t *testing.T) {
	h := newHistory()
	if len(h.order) != 256 {
		t.Fatalf("history length = %d, want 256", len(h.order))
	}
	// Five groups, in this exact sequence: printables+DEL, controls,
	// then the three high-byte bands.
	want := []byte{}
	for b := 0x20; b <= 0x7f; b++ {
		want = append(want, byte(b))
	}
	for b := 0x00; b <= 0x1f; b++ {
		want = append(want, byte(b))
	}
	for b := 0xa0; b <= 0xdf; b++ {
		want = append(want, byte(b))
	}
	for b := 0x80; b <= 0x9f; b++ {
		want = append(want, byte(b))
	}
	for b := 0xe0; b <= 0xff; b++ {
		want = append(want, byte(b))
	}
	for i, b := range want {
		if h.order[i] != b {
			t.Fatalf("order[%d] = %#x, want %#x", i, h.order[i], b)
		}
	}
}
