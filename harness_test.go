package lha

import "testing"

// sliceDecoder is a minimal Decoder over a fixed byte slice, used to
// drive DecoderHarness without depending on a real codec.
type sliceDecoder struct {
	data []byte
	pos  int
}

func (d *sliceDecoder) ReadBlock(buf []byte) int {
	if d.pos >= len(d.data) {
		return 0
	}
	n := copy(buf, d.data[d.pos:])
	d.pos += n
	return n
}

func TestDecoderHarnessReportsBlockZeroBeforeProgress(t *testing.T) {
	payload := make([]byte, 10)
	for i := range payload {
		payload[i] = byte(i)
	}
	codec := Codec{
		New:       func(src ByteSource) Decoder { return &sliceDecoder{data: payload} },
		BlockSize: 4,
	}
	h := NewDecoderHarness(codec, nil, int64(len(payload)))

	var seen []int
	h.SetProgress(func(blockIndex, totalBlocks int) {
		seen = append(seen, blockIndex)
	})

	buf := make([]byte, 3)
	for {
		n := h.Read(buf)
		if n == 0 {
			break
		}
	}

	if len(seen) == 0 || seen[0] != 0 {
		t.Fatalf("progress sequence = %v, want it to start at block 0", seen)
	}
	for i := 1; i < len(seen); i++ {
		if seen[i] != seen[i-1]+1 {
			t.Fatalf("progress sequence %v skips or repeats a block", seen)
		}
	}
}
