package probe

import (
	"bytes"
	"strings"

	"github.com/quantmind-br/pkgprobe/internal/manifest"
	"github.com/quantmind-br/pkgprobe/internal/xarchive"
)

// sevenZipSfxProbe detects 7-Zip self-extracting installers by the install
// config script at the overlay, then classifies the program the config runs.
type sevenZipSfxProbe struct{}

const (
	sfxConfigStart = ";!@Install@!UTF-8!"
	sfxConfigEnd   = ";!@InstallEnd@!"
)

func (sevenZipSfxProbe) Name() string { return "7zsfx" }

func (sevenZipSfxProbe) Detect(target *Target) ([]manifest.InstallerRecord, error) {
	overlay := target.PE.OverlayOffset
	if overlay < 0 || overlay+int64(len(sfxConfigStart)) > int64(len(target.Data)) {
		return nil, ErrNotThisFormat
	}
	data := target.Data[overlay:]
	if !bytes.HasPrefix(data, []byte(sfxConfigStart)) {
		return nil, ErrNotThisFormat
	}
	data = data[len(sfxConfigStart):]

	endPos := bytes.Index(data, []byte(sfxConfigEnd))
	if endPos < 0 {
		return nil, ErrNotThisFormat
	}
	runProgram := parseRunProgram(string(data[:endPos]))
	if runProgram == "" {
		return nil, errNoRunProgram
	}
	target.Log.Debug().Str("runProgram", runProgram).Msg("7z sfx config")

	archiveStart := endPos + len(sfxConfigEnd)
	for archiveStart < len(data) && (data[archiveStart] == '\r' || data[archiveStart] == '\n') {
		archiveStart++
	}
	archive, err := xarchive.OpenSevenZip(data[archiveStart:])
	if err != nil {
		return nil, ErrNotThisFormat
	}

	records := classifyNested(target, archive, runProgram)
	if records == nil {
		// no nested classification available; the config alone still
		// identifies an installer wrapper
		records = []manifest.InstallerRecord{{
			Architecture: target.PE.Architecture(),
			Kind:         manifest.KindExe,
			Switches: manifest.Switches{
				Silent:             "/S",
				SilentWithProgress: "/S",
			},
		}}
	}
	return records, nil
}

var errNoRunProgram = &RecognizedError{Format: "7z sfx", Reason: "no RunProgram in config"}

// RecognizedError reports a positively identified format whose extraction
// failed, distinguishing it from a format that was never recognized.
type RecognizedError struct {
	Format string
	Reason string
}

func (e *RecognizedError) Error() string {
	return e.Format + ": " + e.Reason
}

// parseRunProgram extracts and normalizes the RunProgram path from the
// config block: strip quoting, collapse doubled backslashes, drop arguments
// and the temp-dir prefix.
func parseRunProgram(config string) string {
	for _, line := range strings.Split(config, "\n") {
		value, ok := strings.CutPrefix(strings.TrimSpace(line), "RunProgram=")
		if !ok {
			continue
		}
		value = strings.Trim(value, "\"")
		value = strings.TrimPrefix(value, "\\\"")
		if idx := strings.Index(value, "\\\""); idx >= 0 {
			value = value[:idx]
		}
		if fields := strings.Fields(value); len(fields) > 0 {
			value = fields[0]
		}
		for strings.Contains(value, `\\`) {
			value = strings.ReplaceAll(value, `\\`, `\`)
		}
		for _, prefix := range []string{`.\`, `%%T\`, `%T\`} {
			if trimmed, ok := strings.CutPrefix(value, prefix); ok {
				value = trimmed
				break
			}
		}
		return value
	}
	return ""
}

// classifyNested runs the extracted program through the nested classifier.
// InstallAware wraps an MSI behind a portable-looking exe bootstrapper, so a
// portable result retries the sibling .msi.
func classifyNested(target *Target, archive xarchive.Reader, runProgram string) []manifest.InstallerRecord {
	if target.Nested == nil {
		return nil
	}
	program, err := archive.Open(runProgram)
	if err != nil {
		return nil
	}
	records, err := target.Nested(program, runProgram)
	if err != nil || len(records) == 0 {
		return nil
	}

	lower := strings.ToLower(runProgram)
	if records[0].Kind == manifest.KindPortable && strings.HasSuffix(lower, ".exe") {
		msiProgram := runProgram[:len(runProgram)-4] + ".msi"
		if msiData, err := archive.Open(msiProgram); err == nil {
			if msiRecords, err := target.Nested(msiData, msiProgram); err == nil && len(msiRecords) > 0 {
				return msiRecords
			}
		}
	}
	return records
}
