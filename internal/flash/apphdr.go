package flash

import (
	"encoding/binary"

	"github.com/contexthub/seoshub/internal/constants"
	"github.com/contexthub/seoshub/internal/kernel"
)

// AppHdr is the fixed-layout header every valid entry payload must begin
// with. Field encoding is little-endian, matching host byte order; only
// the entry framing's length field (entry.go) is big-endian.
//
// Grounded on internal/uapi/marshal.go's manual field-by-field
// encoding/binary (de)serialization rather than a struct-tag codec
// library, matching the teacher's choice not to pull one in.
type AppHdr struct {
	FormatVersion uint8
	Marker        uint8
	AppID         uint64
	AppVer        uint32
	RelEnd        uint32
}

const appHdrFixedLen = len(constants.AppHdrMagic) + 1 + 1 + 8 + 4 + 4

// DecodeAppHdr parses an AppHdr from the front of payload, returning
// false if the payload is too short, the magic doesn't match, the
// format version isn't current, or the marker isn't VALID.
func DecodeAppHdr(payload []byte) (AppHdr, bool) {
	if len(payload) < appHdrFixedLen {
		return AppHdr{}, false
	}

	magic := string(payload[0:len(constants.AppHdrMagic)])
	if magic != constants.AppHdrMagic {
		return AppHdr{}, false
	}
	off := len(constants.AppHdrMagic)

	formatVersion := payload[off]
	off++
	marker := payload[off]
	off++

	if formatVersion != constants.AppHdrVerCur {
		return AppHdr{}, false
	}
	if marker != constants.AppHdrMarkerValid {
		return AppHdr{}, false
	}

	appID := binary.LittleEndian.Uint64(payload[off : off+8])
	off += 8
	appVer := binary.LittleEndian.Uint32(payload[off : off+4])
	off += 4
	relEnd := binary.LittleEndian.Uint32(payload[off : off+4])

	return AppHdr{
		FormatVersion: formatVersion,
		Marker:        marker,
		AppID:         appID,
		AppVer:        appVer,
		RelEnd:        relEnd,
	}, true
}

// EncodeAppHdr serializes hdr back into wire form, using the same field
// layout DecodeAppHdr reads. EraseEntry does not use it: erase rewrites
// only the marker byte at AppHdrMarkerOffset.
func EncodeAppHdr(hdr AppHdr) []byte {
	buf := make([]byte, appHdrFixedLen)
	copy(buf, constants.AppHdrMagic)
	off := len(constants.AppHdrMagic)

	buf[off] = hdr.FormatVersion
	off++
	buf[off] = hdr.Marker
	off++

	binary.LittleEndian.PutUint64(buf[off:off+8], hdr.AppID)
	off += 8
	binary.LittleEndian.PutUint32(buf[off:off+4], hdr.AppVer)
	off += 4
	binary.LittleEndian.PutUint32(buf[off:off+4], hdr.RelEnd)

	return buf
}

// AppHdrMarkerOffset returns the absolute region offset of an entry's
// AppHdr.Marker byte, for in-place erase mutation.
func AppHdrMarkerOffset(e Entry) int {
	return e.Offset + 4 + len(constants.AppHdrMagic) + 1
}

// Vendor returns the high 32 bits of an app id.
func Vendor(appID uint64) uint32 { return uint32(appID >> 32) }

// SeqID returns the low 32 bits of an app id.
func SeqID(appID uint64) uint32 { return uint32(appID) }

// toRegistryHeader adapts a decoded AppHdr plus its entry length into the
// kernel package's AppHeader, which the task registry stores.
func toRegistryHeader(hdr AppHdr, payloadLen int) kernel.AppHeader {
	return kernel.AppHeader{
		AppID:         hdr.AppID,
		Version:       hdr.AppVer,
		FormatVersion: hdr.FormatVersion,
		Marker:        hdr.Marker,
		RelEnd:        uint32(payloadLen),
	}
}
