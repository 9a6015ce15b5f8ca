package probe

import (
	"encoding/binary"

	"github.com/quantmind-br/pkgprobe/internal/manifest"
)

// burnProbe detects WiX Burn bundles by their ".wixburn" stub section,
// which carries the bundle id the engine registers under ARP.
type burnProbe struct{}

const wixburnMagic = 0x00f14300

func (burnProbe) Name() string { return "burn" }

func (burnProbe) Detect(target *Target) ([]manifest.InstallerRecord, error) {
	section, ok := target.PE.Section(".wixburn")
	if !ok {
		return nil, ErrNotThisFormat
	}

	record := manifest.InstallerRecord{
		Architecture: target.PE.Architecture(),
		Kind:         manifest.KindBurn,
		Switches: manifest.Switches{
			Silent:             "/quiet /norestart",
			SilentWithProgress: "/passive /norestart",
			Log:                `/log "<LOGPATH>"`,
		},
		ExpectedReturnCodes: manifest.BurnReturnCodes(),
	}

	// section layout: u32 magic, u32 version, 16-byte bundle GUID
	start := int64(section.Offset)
	if start > 0 && start+24 <= int64(len(target.Data)) {
		data := target.Data[start : start+24]
		if binary.LittleEndian.Uint32(data) == wixburnMagic {
			record.ProductCode = windowsGUID(data[8:24])
		}
	}
	return []manifest.InstallerRecord{record}, nil
}
