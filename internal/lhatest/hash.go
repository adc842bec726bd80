// Package lhatest provides the corpus-fixture content hash shared by
// this module's round-trip property tests (spec.md §8: "round-trip
// CRC/length checks per tag, idempotence"). Grounded on
// internal/fileid's use of xxhash for fast content identity, reused
// here for comparing decoded fixture output against its known-good
// plaintext without re-hashing with crypto/*.
package lhatest

import "github.com/cespare/xxhash/v2"

// ContentHash returns a fast, non-cryptographic fingerprint of data,
// used to compare full member output against its expected plaintext
// across a decode pass.
func ContentHash(data []byte) uint64 {
	return xxhash.Sum64(data)
}
