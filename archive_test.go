package lha

import (
	"testing"

	"github.com/fragglet/lhasa/internal/lhatest"
)

// buildLevel0Member assembles a minimal level-0 -lh0- (stored) member
// record: mini-header, body, and the raw compressed bytes, exactly the
// wire shape parseLevel0 expects.
func buildLevel0Member(name string, data []byte) []byte {
	body := make([]byte, 0, 20+len(name)+2)
	body = append(body, []byte("-lh0-")...)
	body = append(body, le32Bytes(uint32(len(data)))...)
	body = append(body, le32Bytes(uint32(len(data)))...)
	body = append(body, 0, 0, 0, 0) // FTIME, zero maps to zero
	body = append(body, 0x20)       // attr
	body = append(body, 0)          // header level
	body = append(body, byte(len(name)))
	body = append(body, []byte(name)...)
	body = append(body, le16Bytes(0)...) // CRC placeholder, filled below

	var sum byte
	for _, b := range body {
		sum += b
	}

	record := make([]byte, 0, 2+len(body)+len(data))
	record = append(record, byte(len(body)), sum)
	record = append(record, body...)
	record = append(record, data...)
	return record
}

func le32Bytes(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

func le16Bytes(v uint16) []byte {
	return []byte{byte(v), byte(v >> 8)}
}

func sourceFrom(chunks ...[]byte) ByteSource {
	var all []byte
	for _, c := range chunks {
		all = append(all, c...)
	}
	pos := 0
	return func(buf []byte) int {
		if pos >= len(all) {
			return 0
		}
		n := copy(buf, all[pos:])
		pos += n
		return n
	}
}

func TestArchiveReaderRoundTripStoredMember(t *testing.T) {
	payload := []byte("the quick brown fox jumps over the lazy dog")
	record := buildLevel0Member("fox.txt", payload)
	// A trailing zero-length byte ends the archive.
	src := sourceFrom(record, []byte{0})

	r := New(src, nil)
	h, ok := r.Next()
	if !ok {
		t.Fatal("expected a member, got end of archive")
	}
	if h.Filename != "fox.txt" {
		t.Fatalf("filename = %q, want fox.txt", h.Filename)
	}
	if h.CompressMethod != "-lh0-" {
		t.Fatalf("method = %q, want -lh0-", h.CompressMethod)
	}

	dec, ok := r.Decoder()
	if !ok {
		t.Fatal("expected a decoder for a regular member")
	}
	var out []byte
	buf := make([]byte, 7)
	for {
		n := dec.Read(buf)
		if n == 0 {
			break
		}
		out = append(out, buf[:n]...)
	}
	if lhatest.ContentHash(out) != lhatest.ContentHash(payload) {
		t.Fatalf("decoded content hash mismatch: got %q, want %q", out, payload)
	}
	if dec.Emitted() != int64(len(payload)) {
		t.Fatalf("emitted = %d, want %d", dec.Emitted(), len(payload))
	}

	if _, ok := r.Next(); ok {
		t.Fatal("expected end of archive after the single member")
	}
}
