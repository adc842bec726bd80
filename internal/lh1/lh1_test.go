package lh1

import "testing"

// bitWriter is a test-only MSB-first bit writer mirroring lzbits.Reader's
// framing, used to build encoded fixtures without a production encoder.
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
		w.cur = 0
		w.nbits = 0
	}
	return w.bytes
}

// encodeLiteral emits the current code for a literal byte, then runs the
// same adaptive update the decoder will run, so encoder and decoder trees
// stay in lock-step. This models the "-lh1- encoder is literal-only" open
// question resolution: the test fixture never emits a copy code.
type literalEncoder struct {
	t *tree
	w bitWriter
}

func newLiteralEncoder() *literalEncoder {
	return &literalEncoder{t: newTree()}
}

func (e *literalEncoder) emit(code int) {
	if e.t.freq[rootPos] >= maxFreq {
		e.t.reconstruct()
	}
	pos := e.t.parent[code+treeSize]
	var bits []uint32
	for pos != rootPos {
		parent := e.t.parent[pos]
		base := e.t.son[parent]
		if pos == base {
			bits = append(bits, 0)
		} else {
			bits = append(bits, 1)
		}
		pos = parent
	}
	for i := len(bits) - 1; i >= 0; i-- {
		e.w.writeBits(bits[i], 1)
	}
	e.t.update(code)
}

func TestOffsetCodesPrefixFree(t *testing.T) {
	type entry struct {
		code uint16
		len  uint8
	}
	var entries []entry
	for s, l := range offsetLens {
		entries = append(entries, entry{offsetCodes[s], l})
	}
	for i := range entries {
		for j := range entries {
			if i == j {
				continue
			}
			a, b := entries[i], entries[j]
			short, long := a, b
			if short.len > long.len {
				short, long = long, short
			}
			if short.len == long.len {
				continue
			}
			if uint32(long.code)>>(long.len-short.len) == uint32(short.code) {
				t.Fatalf("code %d (len %d) is a prefix of code %d (len %d)", short.code, short.len, long.code, long.len)
			}
		}
	}
}

func TestLiteralRoundTrip(t *testing.T) {
	input := []byte("abracadabra, abracadabra, the quick brown fox abracadabra")
	enc := newLiteralEncoder()
	for _, b := range input {
		enc.emit(int(b))
	}
	data := enc.w.flush()

	pos := 0
	src := func(buf []byte) int {
		n := copy(buf, data[pos:])
		pos += n
		return n
	}
	dec := New(src)
	out := make([]byte, 0, len(input))
	buf := make([]byte, 256)
	for len(out) < len(input) {
		n := dec.ReadBlock(buf)
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

func TestTreeReconstructPreservesCodeCount(t *testing.T) {
	tr := newTree()
	for code := range numCodes {
		tr.update(code % numCodes)
	}
	leaves := 0
	for i := range treeSize {
		if tr.son[i] >= treeSize {
			leaves++
		}
	}
	if leaves != numCodes {
		t.Fatalf("leaf count = %d, want %d", leaves, numCodes)
	}
}
