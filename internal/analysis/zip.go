package analysis

import (
	"path"
	"strings"

	"github.com/quantmind-br/pkgprobe/internal/manifest"
	"github.com/quantmind-br/pkgprobe/internal/xarchive"
)

// nestedExtensions are the installer payloads recognized inside an archive
var nestedExtensions = []string{extMsi, extMsix, extAppx, extExe}

// analyzeZip classifies the installer payloads of a zip archive: one record
// per recognized entry, wrapped as an archive install with the payload kind
// nested. Unreadable or unrecognized entries are skipped.
func analyzeZip(data []byte, opts Options, depth int) ([]manifest.InstallerRecord, error) {
	archive, err := xarchive.OpenZip(data)
	if err != nil {
		return nil, err
	}

	var records []manifest.InstallerRecord
	for _, name := range archive.Names() {
		if !isNestedInstaller(name) {
			continue
		}
		entry, err := archive.Open(name)
		if err != nil {
			continue
		}
		report, err := analyze(entry, path.Base(name), opts, depth+1)
		if err != nil {
			continue
		}
		for _, record := range report.Records {
			record.NestedKind = record.Kind
			record.Kind = manifest.KindZip
			records = append(records, record)
		}
	}
	if len(records) == 0 {
		return nil, errNoArchivePayloads
	}
	return records, nil
}

func isNestedInstaller(name string) bool {
	extension := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	for _, known := range nestedExtensions {
		if extension == known {
			return true
		}
	}
	return false
}
