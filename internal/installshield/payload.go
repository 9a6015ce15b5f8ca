package installshield

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
	"math/bits"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

const (
	flagEncoded = 0x2
	flagChunked = 0x4

	// chunked payloads restart the key every 1024 bytes
	chunkSize = 1024
)

var xorMagic = [4]byte{0x13, 0x35, 0x86, 0x07}

// Entry is one file-table entry, pointing at its inline payload bytes
type Entry struct {
	Name   string
	Flags  uint32
	Size   uint32
	Offset int64
}

// ReadText reads the entry payload, reverses the filename-keyed obfuscation
// when the entry is flagged, inflates the zlib stream an obfuscated payload
// may carry, and decodes the result as text.
func (e Entry) ReadText(reader io.ReadSeeker) (string, error) {
	if _, err := reader.Seek(e.Offset, io.SeekStart); err != nil {
		return "", fmt.Errorf("seek payload %q: %w", e.Name, err)
	}
	data := make([]byte, e.Size)
	if _, err := io.ReadFull(reader, data); err != nil {
		return "", fmt.Errorf("read payload %q: %w", e.Name, err)
	}

	if e.Flags&(flagEncoded|flagChunked) != 0 {
		key := deriveKey(e.Name)
		if len(key) == 0 {
			return "", nil
		}
		if e.Flags&flagChunked != 0 {
			for start := 0; start < len(data); start += chunkSize {
				end := start + chunkSize
				if end > len(data) {
					end = len(data)
				}
				decodeSlice(data[start:end], key)
			}
		} else {
			decodeSlice(data, key)
		}

		// only decoded payloads carry a zlib stream; a raw entry stays
		// verbatim even when it happens to start with a zlib header pair
		if inflated, err := inflate(data); err == nil {
			data = inflated
		}
	}

	return decodeText(data), nil
}

// deriveKey XORs the payload filename against the fixed rotating magic
func deriveKey(name string) []byte {
	raw := []byte(name)
	key := make([]byte, len(raw))
	for i, b := range raw {
		key[i] = b ^ xorMagic[i%len(xorMagic)]
	}
	return key
}

// decodeSlice applies the rotate-and-invert transform in place. The decode
// direction is rotate-then-invert; the encode direction is not the same
// function applied twice.
func decodeSlice(data []byte, key []byte) {
	for i, b := range data {
		data[i] = ^(key[i%len(key)] ^ bits.RotateLeft8(b, 4))
	}
}

// encodeSlice is the inverse of decodeSlice, kept for fixture construction
func encodeSlice(data []byte, key []byte) {
	for i, b := range data {
		data[i] = bits.RotateLeft8(^b^key[i%len(key)], -4)
	}
}

func inflate(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// decodeText honors a byte-order mark, then falls back to UTF-8, then to
// UTF-16LE for the BOM-less wide-character payloads older generations write.
func decodeText(data []byte) string {
	switch {
	case len(data) >= 2 && data[0] == 0xFF && data[1] == 0xFE:
		return decodeUTF16(data[2:], unicode.LittleEndian)
	case len(data) >= 2 && data[0] == 0xFE && data[1] == 0xFF:
		return decodeUTF16(data[2:], unicode.BigEndian)
	}
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	if utf8.Valid(data) {
		return string(data)
	}
	return decodeUTF16LE(data)
}

func decodeUTF16LE(data []byte) string {
	return decodeUTF16(data, unicode.LittleEndian)
}

func decodeUTF16(data []byte, endianness unicode.Endianness) string {
	decoded, err := unicode.UTF16(endianness, unicode.IgnoreBOM).NewDecoder().Bytes(data)
	if err != nil {
		return ""
	}
	return string(decoded)
}
