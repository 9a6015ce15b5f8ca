package probe

import (
	"encoding/binary"
	"encoding/xml"
	"unicode/utf8"

	"github.com/quantmind-br/pkgprobe/internal/manifest"
)

// qtProbe detects Qt Installer Framework binaries by the big-endian "qres"
// resource container at the overlay, carrying Updates.xml.
type qtProbe struct{}

const qresMagic = "qres"

func (qtProbe) Name() string { return "qt" }

// qtUpdates mirrors the Updates.xml the IFW embeds; config.xml would carry
// the publisher but sits deeper in the resource tree.
type qtUpdates struct {
	ApplicationName    string            `xml:"ApplicationName"`
	ApplicationVersion string            `xml:"ApplicationVersion"`
	PackageUpdates     []qtPackageUpdate `xml:"PackageUpdate"`
}

type qtPackageUpdate struct {
	DisplayName string `xml:"DisplayName"`
	Version     string `xml:"Version"`
}

func (qtProbe) Detect(target *Target) ([]manifest.InstallerRecord, error) {
	overlay := target.PE.OverlayOffset
	if overlay < 0 || overlay+16 > int64(len(target.Data)) {
		return nil, ErrNotThisFormat
	}
	if string(target.Data[overlay:overlay+4]) != qresMagic {
		return nil, ErrNotThisFormat
	}

	// u32 version and tree offset precede the data offset, all big-endian
	dataOffset := int64(binary.BigEndian.Uint32(target.Data[overlay+12:]))
	pos := overlay + dataOffset
	if pos+4 > int64(len(target.Data)) {
		return nil, ErrNotThisFormat
	}
	size := int64(binary.BigEndian.Uint32(target.Data[pos:]))
	if pos+4+size > int64(len(target.Data)) {
		return nil, ErrNotThisFormat
	}
	payload := target.Data[pos+4 : pos+4+size]
	if !utf8.Valid(payload) {
		return nil, ErrNotThisFormat
	}

	var updates qtUpdates
	if err := xml.Unmarshal(payload, &updates); err != nil {
		return nil, ErrNotThisFormat
	}

	displayName := updates.ApplicationName
	version := updates.ApplicationVersion
	if len(updates.PackageUpdates) > 0 {
		if displayName == "" {
			displayName = updates.PackageUpdates[0].DisplayName
		}
		if version == "" {
			version = updates.PackageUpdates[0].Version
		}
	}

	record := manifest.InstallerRecord{
		Architecture: target.PE.Architecture(),
		Kind:         manifest.KindExe,
		Switches: manifest.Switches{
			Silent:             "install --accept-licenses --accept-messages --confirm-command --default-answer",
			SilentWithProgress: "install --accept-licenses --accept-messages --confirm-command --default-answer",
			InstallLocation:    `--root "<INSTALLPATH>"`,
		},
		ExpectedReturnCodes: manifest.QtReturnCodes(),
	}
	entry := manifest.AppsEntry{
		DisplayName:    displayName,
		DisplayVersion: manifest.NormalizeVersion(version),
	}
	if !entry.IsZero() {
		record.AppsAndFeatures = []manifest.AppsEntry{entry}
	}
	return []manifest.InstallerRecord{record}, nil
}
