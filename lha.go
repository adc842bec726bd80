// Package lha implements the core of a streaming LHA/LZH archive reader:
// a container walker that parses the four historical header revisions,
// a codec registry dispatching compression tags to decoders, and a
// CRC-verifying decompression harness tying the two together.
//
// The package follows internal/zip's shape (header struct, method
// dispatch table, checksum-verifying reader) generalized from a single
// flat ZIP central directory to LHA's member-sequential, extended-
// header-chained container.
package lha

import "github.com/fragglet/lhasa/internal/lzbits"

// ByteSource is the external byte-producing callback every layer of this
// package pulls from: it returns the number of bytes written into buf,
// 0 meaning end-of-stream. It never reports an error distinct from
// end-of-stream; a truncated stream is merely short.
type ByteSource = lzbits.ByteSource

func readFull(src ByteSource, buf []byte) bool {
	got := 0
	for got < len(buf) {
		n := src(buf[got:])
		if n == 0 {
			return false
		}
		got += n
	}
	return true
}
