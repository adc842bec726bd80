package lha

import "github.com/fragglet/lhasa/internal/crc16"

// DecoderHarness composes a Codec's Decoder with CRC accumulation, the
// declared-length truncation rule, and progress reporting (spec.md
// §4.4). It is the only place this package touches a codec's output,
// which keeps every codec itself free of length bookkeeping.
type DecoderHarness struct {
	decoder   Decoder
	declared  int64
	blockSize int

	internal    []byte
	internalLen int
	internalAt  int

	crc     uint16
	emitted int64
	failed  bool

	progress    func(blockIndex, totalBlocks int)
	lastBlock   int
	totalBlocks int
}

// NewDecoderHarness allocates a harness over codec decoding src, with
// output capped at declaredLength bytes (spec.md §4.4 "new(...)").
func NewDecoderHarness(codec Codec, src ByteSource, declaredLength int64) *DecoderHarness {
	blockSize := codec.BlockSize
	if blockSize <= 0 {
		blockSize = defaultBlockSize
	}
	total := 0
	if declaredLength > 0 {
		total = int((declaredLength + int64(blockSize) - 1) / int64(blockSize))
	}
	return &DecoderHarness{
		decoder:     codec.New(src),
		declared:    declaredLength,
		blockSize:   blockSize,
		internal:    make([]byte, blockSize),
		totalBlocks: total,
		lastBlock:   -1, // so block 0 is reported on the very first Read
	}
}

// SetProgress registers a callback invoked at least once per block of
// codec.BlockSize bytes crossed, never skipping and never repeating a
// block (spec.md §4.4 step 6).
func (h *DecoderHarness) SetProgress(fn func(blockIndex, totalBlocks int)) {
	h.progress = fn
}

// Read implements the §4.4 read loop: clamp to the declared length,
// drain the internal buffer, refill from the codec when short, update
// CRC/emitted/progress over exactly the bytes copied out.
func (h *DecoderHarness) Read(out []byte) int {
	if room := h.declared - h.emitted; int64(len(out)) > room {
		if room < 0 {
			room = 0
		}
		out = out[:room]
	}

	n := 0
	for n < len(out) {
		if h.internalAt < h.internalLen {
			c := copy(out[n:], h.internal[h.internalAt:h.internalLen])
			h.internalAt += c
			n += c
			continue
		}
		if h.failed {
			break
		}
		got := h.decoder.ReadBlock(h.internal)
		if got == 0 {
			h.failed = true
			break
		}
		h.internalLen = got
		h.internalAt = 0
	}

	h.crc = crc16.Update(h.crc, out[:n])
	h.emitted += int64(n)
	h.reportProgress()
	return n
}

func (h *DecoderHarness) reportProgress() {
	if h.progress == nil || h.blockSize <= 0 {
		return
	}
	current := int((h.emitted + int64(h.blockSize) - 1) / int64(h.blockSize))
	for h.lastBlock < current {
		h.lastBlock++
		h.progress(h.lastBlock, h.totalBlocks)
	}
}

// CRC16 returns the running CRC-16 over every byte emitted so far.
func (h *DecoderHarness) CRC16() uint16 { return h.crc }

// Emitted returns the number of bytes emitted so far.
func (h *DecoderHarness) Emitted() int64 { return h.emitted }

// Failed reports whether the underlying codec has signalled end of
// stream short of the declared length (failure latch, spec.md §4.4).
func (h *DecoderHarness) Failed() bool { return h.failed }

// Verify drains the member to completion and reports whether the final
// CRC-16 and emitted length match the header's declared values (spec.md
// §4.4 "CRC verification").
func (h *DecoderHarness) Verify(header *MemberHeader) bool {
	buf := make([]byte, h.blockSize)
	for {
		n := h.Read(buf)
		if n == 0 {
			break
		}
	}
	return h.crc == header.CRC16 && uint32(h.emitted) == header.UncompressedLength
}
