// Package macbinary implements the MacBinary II envelope stripper
// (spec.md §4.9): when a member's os_type is 'm', the first 128 bytes
// of decompressed output may be a MacBinary header that should be
// validated and discarded rather than exposed to the caller.
//
// Grounded on internal/appledouble/appledouble.go's classic-Mac metadata
// field layout and big-endian struct reads, adapted here to a streaming
// wrap-the-inner-decoder shape consistent with this module's other
// codecs.
package macbinary

import "time"

const headerSize = 128

// macEpoch is the MacBinary/HFS epoch, 1904-01-01 00:00:00 UTC.
var macEpoch = time.Date(1904, 1, 1, 0, 0, 0, 0, time.UTC)

// Inner is the interface every codec Decoder satisfies; the envelope
// stripper wraps one.
type Inner interface {
	ReadBlock(buf []byte) int
}

// Stripper buffers the first 128 decoded bytes, validates them as a
// MacBinary II header, and either discards them (on match) or prepends
// them back onto the stream (on mismatch).
type Stripper struct {
	inner     Inner
	filename  string
	declared  int64 // member.uncompressed_length, for the fork-length check
	timestamp time.Time

	checked  bool
	prefix   []byte // bytes to emit before resuming from inner, if any
	prefixAt int

	limit int64 // bytes still allowed past the header; -1 = unbounded
}

// New wraps inner with a MacBinary-aware envelope stripper. timestamp is
// the member's own decoded header timestamp, used to sanity-check the
// envelope's embedded modification date.
func New(inner Inner, filename string, declaredLength int64, timestamp time.Time) *Stripper {
	return &Stripper{inner: inner, filename: filename, declared: declaredLength, timestamp: timestamp, limit: -1}
}

// ReadBlock returns decoded bytes with any valid leading MacBinary header
// removed, capped at the envelope's declared fork length (spec.md §4.9)
// so the 128-byte padding round-up past the real fork content is never
// handed to the caller.
func (s *Stripper) ReadBlock(buf []byte) int {
	if !s.checked {
		s.checked = true
		header := make([]byte, headerSize)
		got := 0
		for got < headerSize {
			n := s.inner.ReadBlock(header[got:])
			if n == 0 {
				break
			}
			got += n
		}
		header = header[:got]
		if got == headerSize {
			if forkLen, ok := validate(header, s.filename, s.declared, s.timestamp); ok {
				s.limit = forkLen
			} else {
				s.prefix = header
			}
		} else {
			s.prefix = header
		}
	}
	n := 0
	if s.prefixAt < len(s.prefix) {
		n = copy(buf, s.prefix[s.prefixAt:])
		s.prefixAt += n
		if n == len(buf) {
			return n
		}
	}
	rest := buf[n:]
	if s.limit >= 0 {
		if int64(len(rest)) > s.limit {
			rest = rest[:s.limit]
		}
		got := s.inner.ReadBlock(rest)
		s.limit -= int64(got)
		return n + got
	}
	return n + s.inner.ReadBlock(rest)
}

// validate implements spec.md §4.9's MacBinary II header checks. On
// success it returns the length of the fork the caller should see past
// the header: the data fork length, or the resource fork length when
// there is no data fork.
func validate(h []byte, filename string, declaredLength int64, memberTime time.Time) (int64, bool) {
	if len(h) != headerSize {
		return 0, false
	}
	if h[0] != 0 || h[74] != 0 || h[82] != 0 {
		return 0, false
	}
	for _, b := range h[99:101] {
		if b != 0 {
			return 0, false
		}
	}
	for _, b := range h[101:128] {
		if b != 0 {
			return 0, false
		}
	}
	nameLen := int(h[1])
	if nameLen > 63 {
		return 0, false
	}
	if nameLen+2 > len(h) {
		return 0, false
	}
	if string(h[2:2+nameLen]) != filename {
		return 0, false
	}
	for _, b := range h[2+nameLen : 65] {
		if b != 0 {
			return 0, false
		}
	}

	dataForkLen := beUint32(h, 83)
	resForkLen := beUint32(h, 87)
	total := int64(dataForkLen) + int64(resForkLen) + headerSize
	total = roundUp128(total)
	if total != declaredLength {
		return 0, false
	}

	if !memberTime.IsZero() {
		modSecs := beUint32(h, 95)
		modTime := macEpoch.Add(time.Duration(modSecs) * time.Second)
		diff := modTime.Sub(memberTime)
		if diff < 0 {
			diff = -diff
		}
		if diff > 14*time.Hour {
			return 0, false
		}
	}

	forkLen := int64(dataForkLen)
	if forkLen == 0 {
		forkLen = int64(resForkLen)
	}
	return forkLen, true
}

func beUint32(h []byte, offset int) uint32 {
	return uint32(h[offset])<<24 | uint32(h[offset+1])<<16 | uint32(h[offset+2])<<8 | uint32(h[offset+3])
}

func roundUp128(n int64) int64 {
	return (n + 127) &^ 127
}
