// Package flash implements the shared flash-region app framing and the
// start/stop/erase management passes over it (C6).
package flash

import (
	"hash/crc32"

	"github.com/contexthub/seoshub/internal/constants"
)

// Entry is one framed record in the shared app region: a marker+length
// header, a payload padded to a 4-byte boundary, and a trailing CRC32
// footer covering header and payload.
type Entry struct {
	Offset      int    // offset of the marker byte within the region
	Marker      byte
	Length      int    // unpadded payload length
	Payload     []byte // unpadded payload
	Span        int    // total bytes consumed including header and footer
	MarkerValid bool
	CRCValid    bool
}

// Valid reports whether the entry's framing is well-formed: marker
// nibbles agree (or either equals BLFlashAppID) and the footer CRC
// matches.
func (e Entry) Valid() bool {
	return e.MarkerValid && e.CRCValid
}

func markerValid(marker byte) bool {
	hi := marker >> 4
	lo := marker & 0x0F
	return hi == lo || hi == constants.BLFlashAppID || lo == constants.BLFlashAppID
}

func paddedLen(n int) int {
	if rem := n % 4; rem != 0 {
		return n + (4 - rem)
	}
	return n
}

// Entries walks region front to back, framing one Entry per record until
// the next record would overrun the region; that record is not returned.
// Malformed records (marker nibble disagreement, CRC mismatch) are still
// returned — with their validity flags cleared — so callers can account
// for consumed space; iteration never attempts to resynchronize mid
// region, matching the forward-only iterator the spec describes.
func Entries(region []byte) []Entry {
	var out []Entry
	pos := 0

	for pos+4 <= len(region) {
		marker := region[pos]
		length := int(region[pos+1])<<16 | int(region[pos+2])<<8 | int(region[pos+3])

		payloadStart := pos + 4
		padded := paddedLen(length)
		footerStart := payloadStart + padded

		if footerStart+4 > len(region) {
			break
		}

		payload := region[payloadStart : payloadStart+length]
		footer := region[footerStart : footerStart+4]
		wantCRC := uint32(footer[0])<<24 | uint32(footer[1])<<16 | uint32(footer[2])<<8 | uint32(footer[3])

		gotCRC := crc32.ChecksumIEEE(region[pos:footerStart])

		e := Entry{
			Offset:      pos,
			Marker:      marker,
			Length:      length,
			Payload:     payload,
			Span:        footerStart + 4 - pos,
			MarkerValid: markerValid(marker),
			CRCValid:    gotCRC == wantCRC,
		}
		out = append(out, e)
		pos += e.Span
	}

	return out
}

// Encode frames marker+payload into a ready-to-write entry, computing
// the padded length and trailing CRC32 footer. It is the inverse of the
// framing that Entries parses.
func Encode(marker byte, payload []byte) []byte {
	padded := paddedLen(len(payload))
	buf := make([]byte, 4+padded+4)

	buf[0] = marker
	buf[1] = byte(len(payload) >> 16)
	buf[2] = byte(len(payload) >> 8)
	buf[3] = byte(len(payload))
	copy(buf[4:], payload)

	crc := crc32.ChecksumIEEE(buf[:4+padded])
	footer := buf[4+padded:]
	footer[0] = byte(crc >> 24)
	footer[1] = byte(crc >> 16)
	footer[2] = byte(crc >> 8)
	footer[3] = byte(crc)

	return buf
}
