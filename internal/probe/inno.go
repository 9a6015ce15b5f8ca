package probe

import (
	"bytes"
	"encoding/binary"

	"github.com/quantmind-br/pkgprobe/internal/manifest"
)

// innoProbe detects Inno Setup loaders via the setup-loader offset table,
// whose position is stored at file offset 0x30, with a plaintext signature
// scan as fallback for repacked loaders.
type innoProbe struct{}

const (
	innoOffsetTablePointer = 0x30
	innoOffsetTableMagic   = "rDlPtS"
	innoSetupDataMarker    = "Inno Setup Setup Data ("
)

func (innoProbe) Name() string { return "inno" }

func (innoProbe) Detect(target *Target) ([]manifest.InstallerRecord, error) {
	if !innoLoaderPresent(target.Data) {
		return nil, ErrNotThisFormat
	}

	record := manifest.InstallerRecord{
		Architecture: target.PE.Architecture(),
		Kind:         manifest.KindInno,
		Scope:        manifest.ScopeMachine,
		Switches: manifest.Switches{
			Silent:             "/VERYSILENT /NORESTART",
			SilentWithProgress: "/SILENT /NORESTART",
			InstallLocation:    `/DIR="<INSTALLPATH>"`,
			Log:                `/LOG="<LOGPATH>"`,
		},
		ExpectedReturnCodes: manifest.InnoReturnCodes(),
	}

	entry := manifest.AppsEntry{
		DisplayName: target.PE.VersionValue("ProductName"),
		Publisher:   target.PE.VersionValue("CompanyName"),
		DisplayVersion: manifest.NormalizeVersion(
			target.PE.VersionValue("ProductVersion")),
	}
	if !entry.IsZero() {
		record.AppsAndFeatures = []manifest.AppsEntry{entry}
	}
	return []manifest.InstallerRecord{record}, nil
}

func innoLoaderPresent(data []byte) bool {
	if len(data) > innoOffsetTablePointer+4 {
		tableOffset := int64(binary.LittleEndian.Uint32(data[innoOffsetTablePointer:]))
		if tableOffset > 0 && tableOffset+int64(len(innoOffsetTableMagic)) <= int64(len(data)) &&
			bytes.HasPrefix(data[tableOffset:], []byte(innoOffsetTableMagic)) {
			return true
		}
	}
	return bytes.Contains(data, []byte(innoSetupDataMarker))
}
