package probe

import (
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/encoding/unicode"
)

// decodeWideString decodes UTF-16LE bytes, tolerating an odd trailing byte
func decodeWideString(data []byte) string {
	decoded, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder().Bytes(data)
	if err != nil {
		return ""
	}
	return string(decoded)
}

// windowsGUID formats a 16-byte GUID stored in Windows mixed-endian layout
// (first three fields little-endian) as an uppercase braced string.
func windowsGUID(raw []byte) string {
	if len(raw) < 16 {
		return ""
	}
	var rfc [16]byte
	rfc[0], rfc[1], rfc[2], rfc[3] = raw[3], raw[2], raw[1], raw[0]
	rfc[4], rfc[5] = raw[5], raw[4]
	rfc[6], rfc[7] = raw[7], raw[6]
	copy(rfc[8:], raw[8:16])
	id, err := uuid.FromBytes(rfc[:])
	if err != nil {
		return ""
	}
	return "{" + strings.ToUpper(id.String()) + "}"
}
