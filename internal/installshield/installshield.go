// Package installshield parses the InstallShield self-extractor family: the
// historical "InstallShield" overlay layout, the "ISSetupStream" layout, and
// the InstallScript variant, all carrying a file table of named payloads
// appended after the PE image.
package installshield

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/quantmind-br/pkgprobe/internal/winpe"
)

// ErrNotInstallShield reports that the overlay is not an InstallShield
// container. Callers treat it as "try the next format".
var ErrNotInstallShield = errors.New("not an InstallShield installer")

const (
	magicPlain  = "InstallShield"
	magicStream = "ISSetupStream"

	// ISSetupStream header type 4 appends a file attribute block to every
	// table entry
	headerTypeAttributes = 4
)

// Setup is one parsed InstallShield container
type Setup struct {
	Ini *SetupIni
	Iss *SetupIss
	XML *SetupXML
}

// Detect parses the InstallShield overlay of pe. It returns
// ErrNotInstallShield when the overlay carries no recognizable header or when
// a structurally valid header yields none of the known payloads.
func Detect(reader io.ReadSeeker, pe *winpe.File, log *zerolog.Logger) (*Setup, error) {
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	if pe.OverlayOffset < 0 {
		return nil, ErrNotInstallShield
	}
	if _, err := reader.Seek(pe.OverlayOffset, io.SeekStart); err != nil {
		return nil, ErrNotInstallShield
	}

	var (
		entries []Entry
		err     error
	)
	if strings.HasPrefix(pe.VersionValue("ISInternalDescription"), "InstallScript") {
		entries, err = parseInstallScriptEntries(reader)
	} else {
		var header header
		header, err = readHeader(reader)
		if err == nil {
			log.Debug().
				Str("magic", header.magic).
				Uint16("files", header.numFiles).
				Uint32("headerType", header.headerType).
				Msg("installshield header")
			switch header.magic {
			case magicPlain:
				entries, err = parsePlainEntries(reader, header.numFiles)
			case magicStream:
				entries, err = parseStreamEntries(reader, header.numFiles, header.headerType)
			}
		}
	}
	if err != nil {
		return nil, err
	}

	setup := &Setup{}
	if raw, ok := readPayload(reader, entries, "setup.ini"); ok {
		setup.Ini = parseSetupIni(raw)
	}
	if raw, ok := readPayload(reader, entries, "setup.iss"); ok {
		setup.Iss = parseSetupIss(raw)
	}
	if raw, ok := readPayload(reader, entries, "setup.xml"); ok {
		setup.XML = parseSetupXML(raw)
	}
	if setup.Ini == nil && setup.Iss == nil && setup.XML == nil {
		// a coincidental overlay can match the magic; without any known
		// payload the identification is not positive
		return nil, ErrNotInstallShield
	}
	return setup, nil
}

// readPayload resolves name in the file table, last match winning, and
// decodes its text content. A decode failure counts as absence.
func readPayload(reader io.ReadSeeker, entries []Entry, name string) (string, bool) {
	for i := len(entries) - 1; i >= 0; i-- {
		if !strings.EqualFold(entries[i].Name, name) {
			continue
		}
		text, err := entries[i].ReadText(reader)
		if err != nil || text == "" {
			return "", false
		}
		return text, true
	}
	return "", false
}

type header struct {
	magic      string
	numFiles   uint16
	headerType uint32
}

// readHeader decodes the 14-byte magic header, skipping an optional NB10
// PDB 2.0 stub that some linkers leave in front of it.
func readHeader(reader io.ReadSeeker) (header, error) {
	var sig [4]byte
	if _, err := io.ReadFull(reader, sig[:]); err != nil {
		return header{}, ErrNotInstallShield
	}
	if string(sig[:]) == "NB10" {
		if _, err := reader.Seek(12, io.SeekCurrent); err != nil {
			return header{}, ErrNotInstallShield
		}
		// null-terminated PDB path
		var b [1]byte
		for {
			if _, err := io.ReadFull(reader, b[:]); err != nil {
				return header{}, ErrNotInstallShield
			}
			if b[0] == 0 {
				break
			}
		}
	} else if _, err := reader.Seek(-4, io.SeekCurrent); err != nil {
		return header{}, err
	}

	var raw struct {
		Magic      [14]byte
		NumFiles   uint16
		HeaderType uint32
		Reserved   [26]byte
	}
	if err := binary.Read(reader, binary.LittleEndian, &raw); err != nil {
		return header{}, ErrNotInstallShield
	}
	magic := cstring(raw.Magic[:])
	if magic != magicPlain && magic != magicStream {
		return header{}, ErrNotInstallShield
	}
	return header{magic: magic, numFiles: raw.NumFiles, headerType: raw.HeaderType}, nil
}

// parsePlainEntries reads the fixed-size "InstallShield" table: a 260-byte
// name buffer followed by flags, size, and reserved fields, with the payload
// bytes inline after each entry.
func parsePlainEntries(reader io.ReadSeeker, count uint16) ([]Entry, error) {
	entries := make([]Entry, 0, count)
	for i := uint16(0); i < count; i++ {
		var raw struct {
			Name     [260]byte
			Flags    uint32
			Reserved [4]byte
			Size     uint32
			Skipped  [40]byte
		}
		if err := binary.Read(reader, binary.LittleEndian, &raw); err != nil {
			return nil, fmt.Errorf("plain entry %d: %w", i, err)
		}
		offset, err := reader.Seek(0, io.SeekCurrent)
		if err != nil {
			return nil, err
		}
		if _, err := reader.Seek(int64(raw.Size), io.SeekCurrent); err != nil {
			return nil, fmt.Errorf("plain entry %d payload: %w", i, err)
		}
		entries = append(entries, Entry{
			Name:   cstring(raw.Name[:]),
			Flags:  raw.Flags,
			Size:   raw.Size,
			Offset: offset,
		})
	}
	return entries, nil
}

// parseStreamEntries reads the "ISSetupStream" table: a length-prefixed
// UTF-16LE name after the fixed fields, payload bytes inline.
func parseStreamEntries(reader io.ReadSeeker, count uint16, headerType uint32) ([]Entry, error) {
	entries := make([]Entry, 0, count)
	for i := uint16(0); i < count; i++ {
		var raw struct {
			NameLen   uint32
			Flags     uint32
			Reserved1 [2]byte
			Size      uint32
			Reserved2 [10]byte
		}
		if err := binary.Read(reader, binary.LittleEndian, &raw); err != nil {
			return nil, fmt.Errorf("stream entry %d: %w", i, err)
		}
		if headerType == headerTypeAttributes {
			if _, err := reader.Seek(24, io.SeekCurrent); err != nil {
				return nil, err
			}
		}

		var name string
		if raw.NameLen > 0 {
			buf := make([]byte, raw.NameLen)
			if _, err := io.ReadFull(reader, buf); err != nil {
				return nil, fmt.Errorf("stream entry %d name: %w", i, err)
			}
			name = strings.Trim(decodeUTF16LE(buf), "\x00")
		}
		offset, err := reader.Seek(0, io.SeekCurrent)
		if err != nil {
			return nil, err
		}
		if _, err := reader.Seek(int64(raw.Size), io.SeekCurrent); err != nil {
			return nil, fmt.Errorf("stream entry %d payload: %w", i, err)
		}
		entries = append(entries, Entry{
			Name:   name,
			Flags:  raw.Flags,
			Size:   raw.Size,
			Offset: offset,
		})
	}
	return entries, nil
}

// parseInstallScriptEntries reads the InstallScript variant: a u32 count,
// then per entry four null-terminated UTF-16LE strings of which the first is
// the name and the fourth the decimal payload size.
func parseInstallScriptEntries(reader io.ReadSeeker) ([]Entry, error) {
	var count uint32
	if err := binary.Read(reader, binary.LittleEndian, &count); err != nil {
		return nil, ErrNotInstallShield
	}
	entries := make([]Entry, 0, count)
	for i := uint32(0); i < count; i++ {
		name, err := readUTF16String(reader)
		if err != nil {
			return nil, fmt.Errorf("installscript entry %d: %w", i, err)
		}
		for j := 0; j < 2; j++ {
			if _, err := readUTF16String(reader); err != nil {
				return nil, fmt.Errorf("installscript entry %d: %w", i, err)
			}
		}
		sizeStr, err := readUTF16String(reader)
		if err != nil {
			return nil, fmt.Errorf("installscript entry %d: %w", i, err)
		}
		size, err := strconv.ParseUint(sizeStr, 10, 32)
		if err != nil {
			size = 0
		}
		offset, err := reader.Seek(0, io.SeekCurrent)
		if err != nil {
			return nil, err
		}
		if _, err := reader.Seek(int64(size), io.SeekCurrent); err != nil {
			return nil, fmt.Errorf("installscript entry %d payload: %w", i, err)
		}
		entries = append(entries, Entry{
			Name:   name,
			Size:   uint32(size),
			Offset: offset,
		})
	}
	return entries, nil
}

// readUTF16String reads UTF-16LE code units up to a null terminator
func readUTF16String(reader io.Reader) (string, error) {
	var buf []byte
	var unit [2]byte
	for {
		if _, err := io.ReadFull(reader, unit[:]); err != nil {
			return "", err
		}
		if unit[0] == 0 && unit[1] == 0 {
			break
		}
		buf = append(buf, unit[0], unit[1])
	}
	return decodeUTF16LE(buf), nil
}

func cstring(raw []byte) string {
	for i, b := range raw {
		if b == 0 {
			return string(raw[:i])
		}
	}
	return string(raw)
}
