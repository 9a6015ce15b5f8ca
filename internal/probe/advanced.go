package probe

import (
	"bytes"
	"encoding/binary"
	"strings"

	"github.com/quantmind-br/pkgprobe/internal/manifest"
	"github.com/quantmind-br/pkgprobe/internal/msidb"
	"github.com/quantmind-br/pkgprobe/internal/xarchive"
)

// advancedProbe detects Advanced Installer self-extractors: an
// "ADVINSTSFX\0" magic padded up against the certificate table (or EOF),
// with a footer 60 bytes before it pointing at a UTF-16LE file table.
type advancedProbe struct{}

const advMagic = "ADVINSTSFX\x00"

func (advancedProbe) Name() string { return "advancedinstaller" }

func (advancedProbe) Detect(target *Target) ([]manifest.InstallerRecord, error) {
	end := int64(len(target.Data))
	if target.PE.CertTableOffset > 0 && target.PE.CertTableOffset < end {
		end = target.PE.CertTableOffset
	}
	// magic sits in the last 18 bytes, null-padded to an 8-byte boundary
	start := end - 18
	if start < 0 {
		start = 0
	}
	window := target.Data[start:end]
	pos := bytes.LastIndex(window, []byte(advMagic))
	if pos < 0 {
		return nil, ErrNotThisFormat
	}

	footer := start + int64(pos) - 60
	if footer < 0 || footer+20 > int64(len(target.Data)) {
		return nil, ErrNotThisFormat
	}
	numFiles := int32(binary.LittleEndian.Uint32(target.Data[footer+4:]))
	filesOffset := int32(binary.LittleEndian.Uint32(target.Data[footer+16:]))
	if numFiles <= 0 || filesOffset <= 0 {
		return nil, ErrNotThisFormat
	}

	files, err := parseAdvancedFileTable(target.Data, int64(filesOffset), int(numFiles))
	if err != nil {
		return nil, err
	}

	msis := advancedMsiPayloads(target, files)
	if len(msis) == 0 {
		target.Log.Warn().Msg("advanced installer footer with no msi payloads")
		return nil, ErrNotThisFormat
	}

	arch := target.PE.Architecture()
	records := make([]manifest.InstallerRecord, 0, len(msis))
	for _, msiData := range msis {
		records = append(records, advancedRecord(target, msiData, arch))
	}
	return records, nil
}

type advancedFile struct {
	name         string
	size         uint32
	offset       uint32
	encodingFlag uint32
}

func parseAdvancedFileTable(data []byte, offset int64, count int) ([]advancedFile, error) {
	files := make([]advancedFile, 0, count)
	pos := offset
	for i := 0; i < count; i++ {
		if pos+24 > int64(len(data)) {
			return nil, ErrNotThisFormat
		}
		pos += 8 // reserved
		encodingFlag := binary.LittleEndian.Uint32(data[pos:])
		size := binary.LittleEndian.Uint32(data[pos+4:])
		fileOffset := binary.LittleEndian.Uint32(data[pos+8:])
		nameChars := int64(binary.LittleEndian.Uint32(data[pos+12:]))
		pos += 16
		if nameChars < 0 || pos+nameChars*2 > int64(len(data)) {
			return nil, ErrNotThisFormat
		}
		name := strings.Trim(decodeWideString(data[pos:pos+nameChars*2]), "\x00")
		pos += nameChars * 2
		files = append(files, advancedFile{
			name:         name,
			size:         size,
			offset:       fileOffset,
			encodingFlag: encodingFlag,
		})
	}
	return files, nil
}

// read extracts one payload, undoing the XOR mask applied to the first
// 0x200 bytes of flagged entries.
func (f advancedFile) read(data []byte) []byte {
	start := int64(f.offset)
	end := start + int64(f.size)
	if start < 0 || end > int64(len(data)) {
		return nil
	}
	payload := append([]byte(nil), data[start:end]...)
	if f.encodingFlag == 2 {
		limit := len(payload)
		if limit > 0x200 {
			limit = 0x200
		}
		for i := 0; i < limit; i++ {
			payload[i] ^= 0xFF
		}
	}
	return payload
}

// advancedMsiPayloads prefers the embedded .7z archive of MSI databases,
// falling back to loose .msi entries.
func advancedMsiPayloads(target *Target, files []advancedFile) [][]byte {
	for i := len(files) - 1; i >= 0; i-- {
		if !strings.HasSuffix(strings.ToLower(files[i].name), ".7z") {
			continue
		}
		archiveData := files[i].read(target.Data)
		if archiveData == nil {
			continue
		}
		reader, err := xarchive.OpenSevenZip(archiveData)
		if err != nil {
			continue
		}
		var msis [][]byte
		for _, name := range reader.Names() {
			entry, err := reader.Open(name)
			if err != nil {
				continue
			}
			if strings.HasSuffix(strings.ToLower(name), ".msi") {
				msis = append(msis, entry)
			}
		}
		if len(msis) > 0 {
			return msis
		}
	}

	var msis [][]byte
	for _, f := range files {
		if strings.HasSuffix(strings.ToLower(f.name), ".msi") {
			if payload := f.read(target.Data); payload != nil {
				msis = append(msis, payload)
			}
		}
	}
	return msis
}

func advancedRecord(target *Target, msiData []byte, arch manifest.Architecture) manifest.InstallerRecord {
	record := manifest.InstallerRecord{
		Architecture: arch,
		Kind:         manifest.KindExe,
		NestedKind:   manifest.KindMsi,
	}
	if target.OpenMsi != nil {
		if reader, err := target.OpenMsi(msiData); err == nil {
			if msiRecord, err := msidb.Record(reader, arch); err == nil {
				record = msiRecord
				record.Kind = manifest.KindExe
				record.NestedKind = manifest.KindMsi
				applyHiddenArpEntry(&record, reader)
			}
		}
	}

	// https://www.advancedinstaller.com/user-guide/exe-setup-file.html
	record.Switches = manifest.Switches{
		Silent:             "/exenoui /quiet",
		SilentWithProgress: "/exenoui /passive",
		InstallLocation:    `APPDIR="<INSTALLPATH>"`,
		Log:                `/log "<LOGPATH>"`,
		Custom:             "/norestart",
	}
	record.ExpectedReturnCodes = manifest.AdvancedInstallerReturnCodes()
	return record
}

// applyHiddenArpEntry rewrites the uninstall identity when the wrapped MSI
// registers itself as a system component: the visible ARP entry is then a
// separate record keyed by display name and version.
func applyHiddenArpEntry(record *manifest.InstallerRecord, reader msidb.TableReader) {
	props, err := msidb.Properties(reader)
	if err != nil || props["ARPSYSTEMCOMPONENT"] != "1" || len(record.AppsAndFeatures) == 0 {
		return
	}
	template := record.AppsAndFeatures[0]
	record.ProductCode = strings.TrimSpace(template.DisplayName + " " + template.DisplayVersion)
	record.UpgradeCode = ""
	record.AppsAndFeatures = []manifest.AppsEntry{{
		DisplayName:    template.DisplayName,
		DisplayVersion: template.DisplayVersion,
		Publisher:      template.Publisher,
		ProductCode:    record.ProductCode,
	}}
}
