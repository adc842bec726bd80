package lha

import (
	"github.com/fragglet/lhasa/internal/lh1"
	"github.com/fragglet/lhasa/internal/lhblock"
	"github.com/fragglet/lhasa/internal/lzcodec"
	"github.com/fragglet/lhasa/internal/pma"
)

// Decoder is satisfied by every codec's decode state: pull decoded bytes
// into buf, return the count written, 0 at end of stream (spec.md §4.3
// "read_block").
type Decoder interface {
	ReadBlock(buf []byte) int
}

// Codec describes one compression method: how to construct a fresh
// Decoder over a member's compressed body, and the block_size the
// DecoderHarness should use when pumping bytes out of it (spec.md §4.3:
// "four slots: init, read_block, required size of private state,
// max_read/block_size" -- collapsed here into a constructor closure plus
// a size hint, since Go needs no separate init/free step or manual
// private-state sizing).
type Codec struct {
	New       func(src ByteSource) Decoder
	BlockSize int
}

const defaultBlockSize = 8192

// registry maps compression-method tags to their Codec, mirroring
// internal/zip.New2's per-method switch and internal/sit's
// readerFor(algo, ...) dispatch -- both precedents for a
// stringly/numerically-keyed table of interchangeable decoders.
//
// -lhd- (directory) carries no codec: IsDirectory short-circuits before
// any lookup happens. A tag absent from this map is an unknown codec;
// spec.md §4.3/§7 treats that case as an opaque passthrough rather than
// a hard failure, so ArchiveReader falls back to lzcodec.NewNull.
var registry = map[string]Codec{
	"-lh0-": {New: newNull, BlockSize: defaultBlockSize},
	"-lz4-": {New: newLZW, BlockSize: defaultBlockSize},
	"-lzs-": {New: newLZS, BlockSize: defaultBlockSize},
	"-lz5-": {New: newLZ5, BlockSize: defaultBlockSize},
	"-lh1-": {New: newLH1, BlockSize: defaultBlockSize},
	"-lh4-": {New: newLH4, BlockSize: defaultBlockSize},
	"-lh5-": {New: newLH5, BlockSize: defaultBlockSize},
	"-lh6-": {New: newLH6, BlockSize: defaultBlockSize},
	"-lh7-": {New: newLH7, BlockSize: defaultBlockSize},
	"-lhx-": {New: newLH7, BlockSize: defaultBlockSize}, // -lhx- is an -lh7- variant, see SPEC_FULL.md §7
	"-lk7-": {New: newLH7, BlockSize: defaultBlockSize},
	"-pm0-": {New: newNull, BlockSize: defaultBlockSize},
	"-pm1-": {New: newNull, BlockSize: defaultBlockSize},
	"-pm2-": {New: newPMA, BlockSize: defaultBlockSize},
}

func newNull(src ByteSource) Decoder { return lzcodec.NewNull(src) }
func newLZW(src ByteSource) Decoder  { return lzcodec.NewLZW(src) }
func newLZS(src ByteSource) Decoder  { return lzcodec.NewLZSS(lzcodec.LZS, src) }
func newLZ5(src ByteSource) Decoder  { return lzcodec.NewLZSS(lzcodec.LZ5, src) }
func newLH1(src ByteSource) Decoder  { return lh1.New(src) }
func newLH4(src ByteSource) Decoder  { return lhblock.New(lhblock.LH4, src) }
func newLH5(src ByteSource) Decoder  { return lhblock.New(lhblock.LH5, src) }
func newLH6(src ByteSource) Decoder  { return lhblock.New(lhblock.LH6, src) }
func newLH7(src ByteSource) Decoder  { return lhblock.New(lhblock.LH7, src) }
func newPMA(src ByteSource) Decoder  { return pma.New(src) }

// codecFor looks up the Codec for a member's compress method. ok is
// false for -lhd- (caller should skip decoding entirely) or an unknown
// tag (caller should fall back to a null passthrough, per §4.3/§7).
func codecFor(method string) (Codec, bool) {
	c, ok := registry[method]
	return c, ok
}
