package analysis

import (
	"errors"
	"strings"

	"github.com/quantmind-br/pkgprobe/internal/manifest"
)

var errNoArchivePayloads = errors.New("archive contains no recognizable installer payloads")

// architectureHints maps file-name substrings to the architecture they
// advertise, checked most specific first.
var architectureHints = []struct {
	marker string
	arch   manifest.Architecture
}{
	{"arm64", manifest.ArchArm64},
	{"aarch64", manifest.ArchArm64},
	{"x86_64", manifest.ArchX64},
	{"amd64", manifest.ArchX64},
	{"x64", manifest.ArchX64},
}

// applyArchitectureHints promotes 32-bit records when the file name
// advertises a wider target. Many 64-bit installers ship a 32-bit stub, so
// the PE machine type alone underreports.
func applyArchitectureHints(records []manifest.InstallerRecord, fileName string) []manifest.InstallerRecord {
	lower := strings.ToLower(fileName)
	for i := range records {
		if records[i].Architecture != manifest.ArchX86 {
			continue
		}
		for _, hint := range architectureHints {
			if strings.Contains(lower, hint.marker) {
				records[i].Architecture = hint.arch
				break
			}
		}
	}
	return records
}
