package lha

import (
	"time"

	"github.com/fragglet/lhasa/internal/lzcodec"
	"github.com/fragglet/lhasa/internal/macbinary"
)

// ArchiveReader walks a sequence of LZH/LHA members, analogous to
// internal/zip.New's fs.FS-producing entry point but sequential rather
// than central-directory-indexed, since LHA has no index: every member
// must be read in order (spec.md §3 "ArchiveReader").
type ArchiveReader struct {
	src       ByteSource
	closer    func() error
	current   *MemberHeader
	remaining int64 // unread bytes of the current member's compressed body
	done      bool
}

// New wraps src as an ArchiveReader. If closer is non-nil, Close calls
// it once (spec.md §9 "close on drop" ownership note).
func New(src ByteSource, closer func() error) *ArchiveReader {
	return &ArchiveReader{src: src, closer: closer}
}

// Close releases the underlying byte source, if this reader owns it.
func (r *ArchiveReader) Close() error {
	if r.closer == nil {
		return nil
	}
	c := r.closer
	r.closer = nil
	return c()
}

// Next advances to the following member, discarding any unread bytes of
// the current one first, and returns its header. ok is false at a clean
// end of archive or an unrecoverable structural fault.
func (r *ArchiveReader) Next() (*MemberHeader, bool) {
	if r.done {
		return nil, false
	}
	r.drainBody()

	h, ok := parseHeader(r.src)
	if !ok {
		r.done = true
		return nil, false
	}
	r.current = h
	r.remaining = int64(h.CompressedLength)
	return h, true
}

// drainBody discards any unread compressed bytes belonging to the
// current member, so Next can resynchronize on the following header
// regardless of whether the caller fully decoded the previous one.
func (r *ArchiveReader) drainBody() {
	if r.current == nil || r.remaining <= 0 {
		return
	}
	buf := make([]byte, 8192)
	for r.remaining > 0 {
		want := int64(len(buf))
		if r.remaining < want {
			want = r.remaining
		}
		n := r.src(buf[:want])
		if n == 0 {
			break
		}
		r.remaining -= int64(n)
	}
}

// bodySource returns a ByteSource reading exactly the current member's
// compressed body, windowed to compressed_length, so a codec can never
// read into the following header.
func (r *ArchiveReader) bodySource() ByteSource {
	return func(buf []byte) int {
		if r.remaining <= 0 {
			return 0
		}
		want := int64(len(buf))
		if r.remaining < want {
			want = r.remaining
		}
		n := r.src(buf[:want])
		r.remaining -= int64(n)
		return n
	}
}

// Decoder returns a DecoderHarness over the current member's compressed
// body, or false for directories and members with no current header.
// Unknown compress methods fall back to an opaque null passthrough, per
// spec.md §4.3/§7. When the member's os_type marks a MacBinary II
// envelope, the harness output is wrapped with internal/macbinary's
// stripper (spec.md §4.9).
func (r *ArchiveReader) Decoder() (*DecoderHarness, bool) {
	h := r.current
	if h == nil || h.IsDirectory() {
		return nil, false
	}
	codec, ok := codecFor(h.CompressMethod)
	if !ok {
		codec = Codec{New: func(src ByteSource) Decoder { return lzcodec.NewNull(src) }, BlockSize: defaultBlockSize}
	}
	harness := NewDecoderHarness(codec, r.bodySource(), int64(h.UncompressedLength))
	if h.OSType == 'm' {
		ts := time.Unix(h.Timestamp, 0)
		stripper := macbinary.New(harnessAsInner{harness}, h.Filename, int64(h.UncompressedLength), ts)
		return &StrippedHarness{DecoderHarness: harness, stripper: stripper}, true
	}
	return harness, true
}

// harnessAsInner adapts DecoderHarness.Read to macbinary.Inner's
// ReadBlock shape.
type harnessAsInner struct{ h *DecoderHarness }

func (a harnessAsInner) ReadBlock(buf []byte) int { return a.h.Read(buf) }

// StrippedHarness is a DecoderHarness whose output has had a leading
// MacBinary II envelope removed (spec.md §4.9). CRC16/Emitted/Verify
// still report against the pre-strip byte stream embedded in
// DecoderHarness, which is what header.crc16/uncompressed_length were
// computed over; Read itself yields the stripped bytes a caller
// actually wants.
type StrippedHarness struct {
	*DecoderHarness
	stripper *macbinary.Stripper
}

// Read returns decoded bytes with any MacBinary II envelope removed.
func (s *StrippedHarness) Read(out []byte) int {
	return s.stripper.ReadBlock(out)
}
