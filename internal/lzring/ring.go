// Package lzring implements the sliding-window ring buffer shared by every
// LZSS-family codec in this module (-lh1-, -lh4..7-/-lhx-, -lzs-, -lz5-,
// -pm2-). Factoring it out as a single sized-by-composition type, rather
// than inlining it per codec, is the explicit design note in spec.md §9.
package lzring

// Buffer is a fixed-size byte ring, seeded with the historical fill byte
// (ASCII space) and written one byte at a time so that self-referential
// copies (source and destination windows overlapping) are well-defined.
type Buffer struct {
	data   []byte
	cursor int
}

// New returns a Buffer of the given size, pre-filled with 0x20.
func New(size int) *Buffer {
	b := &Buffer{data: make([]byte, size)}
	for i := range b.data {
		b.data[i] = 0x20
	}
	return b
}

// Len reports the ring's fixed size.
func (b *Buffer) Len() int { return len(b.data) }

// Cursor reports the current write position modulo the ring size.
func (b *Buffer) Cursor() int { return b.cursor }

// Emit appends one byte to out and to the ring, advancing the cursor.
func (b *Buffer) Emit(out []byte, n *int, c byte) {
	out[*n] = c
	*n++
	b.data[b.cursor] = c
	b.cursor++
	if b.cursor == len(b.data) {
		b.cursor = 0
	}
}

// Copy replays a back-reference of the given offset (distance behind the
// cursor, 1-based) and length, one byte at a time via Emit so overlapping
// copies reproduce run-length-encoded repeats correctly.
func (b *Buffer) Copy(out []byte, n *int, offset, length int) {
	size := len(b.data)
	pos := b.cursor - offset - 1
	pos %= size
	if pos < 0 {
		pos += size
	}
	for range length {
		c := b.data[pos]
		pos++
		if pos == size {
			pos = 0
		}
		b.Emit(out, n, c)
	}
}
