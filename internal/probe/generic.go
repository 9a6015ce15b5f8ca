package probe

import (
	"strings"

	"github.com/quantmind-br/pkgprobe/internal/manifest"
)

// genericProbe is the fallback terminating the chain: it never declines,
// classifying unrecognized executables as installer or portable from
// version-resource keywords.
type genericProbe struct{}

var basicInstallerKeywords = []string{"installer", "setup", "7zs.sfx", "7zsd.sfx"}

func (genericProbe) Name() string { return "generic" }

func (genericProbe) Detect(target *Target) ([]manifest.InstallerRecord, error) {
	record := manifest.InstallerRecord{
		Architecture: target.PE.Architecture(),
		Kind:         manifest.KindPortable,
	}

	for _, key := range []string{"FileDescription", "OriginalFilename"} {
		value := strings.ToLower(target.PE.VersionValue(key))
		for _, keyword := range basicInstallerKeywords {
			if strings.Contains(value, keyword) {
				record.Kind = manifest.KindExe
			}
		}
	}

	// Setup.exe itself is used by too many technologies to guess its args
	switch strings.ToLower(target.PE.VersionValue("InternalName")) {
	case "sfxcab.exe":
		record.Switches = silentOnly("/quiet")
	case "7zs.sfx", "7z.sfx", "7zsd.sfx":
		record.Switches = silentOnly("/s")
	case "setup launcher":
		record.Switches = silentOnly("/s")
	case "wextract":
		record.Switches = silentOnly("/Q")
	}

	if target.PE.HasSection("UPX0") {
		target.Log.Debug().Msg("upx packed executable")
	}

	return []manifest.InstallerRecord{record}, nil
}

func silentOnly(flag string) manifest.Switches {
	return manifest.Switches{Silent: flag, SilentWithProgress: flag}
}
