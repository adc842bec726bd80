package lha

import (
	"log/slog"
	"strings"
	"time"
)

// MemberHeader describes one archive member (spec.md §3 "MemberHeader").
type MemberHeader struct {
	CompressMethod     string
	CompressedLength   uint32
	UncompressedLength uint32
	Timestamp          int64 // seconds since the Unix epoch
	CRC16              uint16
	HeaderLevel        int
	OSType             byte
	Filename           string
	Path               string

	UnixPerms *uint16
	UnixUID   *uint16
	UnixGID   *uint16
	UnixUser  *string
	UnixGroup *string

	WinCreationTime     *int64
	WinModificationTime *int64
	WinAccessTime       *int64

	SymlinkTarget *string
	CommonCRC     *uint16

	// RawData is the full serialized header (base header plus every
	// extended-header chunk read), retained because extended-header
	// decoding patches it in place (spec.md §3 "raw_data").
	RawData []byte

	commonCRCOffset int // offset of the 2 CRC bytes within RawData, -1 if none
}

// IsDirectory reports whether this member is a directory placeholder
// (compress method -lhd-, which uses no decoder).
func (h *MemberHeader) IsDirectory() bool {
	return h.CompressMethod == "-lhd-"
}

// parseHeader reads one member header of any level, or reports false at
// a clean end-of-archive (zero length byte) or any structural failure
// (spec.md §4.2, §7: "a null member is the only end-of-archive signal").
//
// Levels 0-2 share a historical quirk this parser relies on: the
// "header level" byte always lands at absolute offset 20 from the start
// of the record, letting the parser peek a fixed prefix before deciding
// how to interpret the bytes already read. Level 3's exact base-header
// field layout is under-specified even in the original source (spec.md
// §9 notes the same gap for -lh4-'s temporary table); this parser
// recognizes level-3 records and fails them cleanly rather than
// guessing at undocumented offsets -- see DESIGN.md.
func parseHeader(src ByteSource) (*MemberHeader, bool) {
	var first [1]byte
	if !readFull(src, first[:]) {
		return nil, false
	}
	if first[0] == 0 {
		return nil, false
	}

	const peekLen = 21 // covers byte 0..20, i.e. through the level byte
	prefix := make([]byte, peekLen)
	prefix[0] = first[0]
	if !readFull(src, prefix[1:]) {
		return nil, false
	}

	switch prefix[20] {
	case 0:
		return parseLevel0(src, prefix)
	case 1:
		return parseLevel1(src, prefix)
	case 2:
		return parseLevel2(src, prefix)
	default:
		slog.Warn("lha: unsupported or malformed header level", "level", prefix[20])
		return nil, false
	}
}

// parseLevel0 decodes the fixed level-0 layout (spec.md §4.2 "Level
// dispatch"): prefix[0] is the body length, prefix[1] the level-0
// checksum, prefix[2:] the start of the body.
func parseLevel0(src ByteSource, prefix []byte) (*MemberHeader, bool) {
	length := int(prefix[0])
	checksum := prefix[1]
	body := make([]byte, length)
	copy(body, prefix[2:])
	if !readFull(src, body[len(prefix)-2:]) {
		return nil, false
	}
	if !verifyLevel01Checksum(checksum, body) {
		slog.Warn("lha: level-0 header checksum mismatch")
		return nil, false
	}
	if len(body) < 20 {
		return nil, false
	}

	h := &MemberHeader{HeaderLevel: 0, commonCRCOffset: -1}
	h.CompressMethod = string(body[0:5])
	h.CompressedLength = le32(body, 5)
	h.UncompressedLength = le32(body, 9)
	h.Timestamp = decodeFTIME(le32(body, 13))
	nameLen := int(body[19])
	if len(body) < 20+nameLen+2 {
		return nil, false
	}
	h.Filename = string(body[20 : 20+nameLen])
	h.CRC16 = le16(body, 20+nameLen)
	h.RawData = append([]byte{prefix[0], checksum}, body...)
	fixupFilenameLevel0(h)
	return h, true
}

// parseLevel1 decodes the level-1 layout: level-0's fields plus os_type
// and an extended-header chain whose total byte length is subtracted
// from compressed_length (spec.md §4.2).
func parseLevel1(src ByteSource, prefix []byte) (*MemberHeader, bool) {
	length := int(prefix[0])
	checksum := prefix[1]
	body := make([]byte, length)
	copy(body, prefix[2:])
	if !readFull(src, body[len(prefix)-2:]) {
		return nil, false
	}
	if !verifyLevel01Checksum(checksum, body) {
		slog.Warn("lha: level-1 header checksum mismatch")
		return nil, false
	}
	if len(body) < 21 {
		return nil, false
	}

	h := &MemberHeader{HeaderLevel: 1, commonCRCOffset: -1}
	h.CompressMethod = string(body[0:5])
	h.CompressedLength = le32(body, 5)
	h.UncompressedLength = le32(body, 9)
	h.Timestamp = decodeFTIME(le32(body, 13))
	nameLen := int(body[19])
	if len(body) < 20+nameLen+2 {
		return nil, false
	}
	h.Filename = string(body[20 : 20+nameLen])
	h.CRC16 = le16(body, 20+nameLen)
	osTypeOffset := 20 + nameLen + 2
	if len(body) <= osTypeOffset {
		return nil, false
	}
	h.OSType = body[osTypeOffset]
	h.RawData = append([]byte{prefix[0], checksum}, body...)

	if !readExtendedHeaders(src, h, 2) {
		return nil, false
	}
	fixupFilenameLevel0(h)
	return h, true
}

// parseLevel2 decodes the 26-byte level-2 base header (spec.md §4.2):
// a 2-byte total size, method, lengths, a Unix timestamp in place of
// FTIME, attr, level, CRC, os_type, and an inline extended-header chain.
func parseLevel2(src ByteSource, prefix []byte) (*MemberHeader, bool) {
	size := int(prefix[0]) | int(prefix[1])<<8
	if size < 26 {
		return nil, false
	}
	body := make([]byte, size)
	copy(body, prefix)
	if !readFull(src, body[len(prefix):]) {
		return nil, false
	}

	h := &MemberHeader{HeaderLevel: 2, commonCRCOffset: -1}
	h.CompressMethod = string(body[2:7])
	h.CompressedLength = le32(body, 7)
	h.UncompressedLength = le32(body, 11)
	h.Timestamp = int64(le32(body, 15))
	h.CRC16 = le16(body, 21)
	h.OSType = body[23]
	h.RawData = append([]byte{}, body...)

	if !readExtendedHeaders(src, h, 2) {
		return nil, false
	}
	fixupFilenameLevel0(h)
	return h, true
}

func verifyLevel01Checksum(want byte, body []byte) bool {
	var sum byte
	for _, b := range body {
		sum += b
	}
	return sum == want
}

// readExtendedHeaders consumes the extended-header chain (spec.md §4.2
// "Extended-header chain"), patching h in place and, for headerLevel<=1,
// subtracting each chunk's on-wire size from CompressedLength.
func readExtendedHeaders(src ByteSource, h *MemberHeader, lengthFieldSize int) bool {
	for {
		lenBuf := make([]byte, lengthFieldSize)
		if !readFull(src, lenBuf) {
			return false
		}
		var size int
		if lengthFieldSize == 2 {
			size = int(le16(lenBuf, 0))
		} else {
			size = int(le32(lenBuf, 0))
		}
		h.RawData = append(h.RawData, lenBuf...)
		if size == 0 {
			break
		}
		chunk := make([]byte, size)
		if !readFull(src, chunk) {
			return false
		}
		chunkOffset := len(h.RawData)
		h.RawData = append(h.RawData, chunk...)
		if h.HeaderLevel <= 1 {
			adjust := uint32(lengthFieldSize + size)
			if h.CompressedLength >= adjust {
				h.CompressedLength -= adjust
			}
		}
		applyExtendedHeader(h, chunk, chunkOffset)
	}
	return true
}

func applyExtendedHeader(h *MemberHeader, chunk []byte, chunkOffset int) {
	if len(chunk) == 0 {
		return
	}
	typ := chunk[0]
	payload := chunk[1:]
	switch typ {
	case 0x00: // common: header CRC, zeroed in raw_data afterward
		if len(payload) < 2 {
			return
		}
		crc := le16(payload, 0)
		h.CommonCRC = &crc
		h.commonCRCOffset = chunkOffset + 1
		if h.commonCRCOffset+2 <= len(h.RawData) {
			h.RawData[h.commonCRCOffset] = 0
			h.RawData[h.commonCRCOffset+1] = 0
		}
	case 0x01: // filename
		h.Filename = string(payload)
	case 0x02: // path
		p := strings.ReplaceAll(string(payload), "\xff", "/")
		if p != "" && !strings.HasSuffix(p, "/") {
			p += "/"
		}
		h.Path = p
	case 0x39, 0x3f, 0xcc:
		// multi-disc, comment, OS-9: ignored.
	case 0x41: // Windows FILETIMEs
		if len(payload) < 24 {
			return
		}
		c, m, a := int64(le64(payload, 0)), int64(le64(payload, 8)), int64(le64(payload, 16))
		h.WinCreationTime = &c
		h.WinModificationTime = &m
		h.WinAccessTime = &a
	case 0x50: // Unix perms
		if len(payload) < 2 {
			return
		}
		v := le16(payload, 0)
		h.UnixPerms = &v
	case 0x51: // Unix UID/GID
		if len(payload) < 4 {
			return
		}
		uid, gid := le16(payload, 0), le16(payload, 2)
		h.UnixUID = &uid
		h.UnixGID = &gid
	case 0x52: // Unix group
		g := string(payload)
		h.UnixGroup = &g
	case 0x53: // Unix user
		u := string(payload)
		h.UnixUser = &u
	case 0x54: // Unix timestamp, replaces FTIME
		if len(payload) < 4 {
			return
		}
		h.Timestamp = int64(le32(payload, 0))
	default:
		// Unknown types are skipped, not an error.
	}
}

// fixupFilenameLevel0 implements spec.md §4.2 "Filename fixup (level 0)":
// lowercasing under MSDOS/unknown os_type when no lowercase letters are
// present, backslash translation, and splitting off a path prefix.
func fixupFilenameLevel0(h *MemberHeader) {
	name := h.Filename
	if h.OSType == 0 || h.OSType == 'M' {
		if !strings.ContainsAny(name, "abcdefghijklmnopqrstuvwxyz") {
			name = strings.ToLower(name)
		}
	}
	name = strings.ReplaceAll(name, "\\", "/")
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		h.Path = name[:idx+1]
		h.Filename = name[idx+1:]
	} else {
		h.Filename = name
	}
}

// decodeFTIME expands an MS-DOS packed date/time word into a Unix
// timestamp in the local time zone (spec.md §4.2 "FTIME decode"; the
// local-time-zone choice is an intentional Open Question resolution --
// see DESIGN.md).
func decodeFTIME(v uint32) int64 {
	if v == 0 {
		return 0
	}
	sec := int((v & 0x1f) * 2)
	min := int((v >> 5) & 0x3f)
	hour := int((v >> 11) & 0x1f)
	day := int((v >> 16) & 0x1f)
	month := int((v>>21)&0xf) + 1
	year := int((v >> 25) & 0x7f) + 1980

	t := time.Date(year, time.Month(month), day, hour, min, sec, 0, time.Local)
	return t.Unix()
}

func le16(b []byte, off int) uint16 {
	return uint16(b[off]) | uint16(b[off+1])<<8
}

func le32(b []byte, off int) uint32 {
	return uint32(b[off]) | uint32(b[off+1])<<8 | uint32(b[off+2])<<16 | uint32(b[off+3])<<24
}

func le64(b []byte, off int) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[off+i]) << (8 * i)
	}
	return v
}
