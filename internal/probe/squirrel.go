package probe

import (
	"encoding/xml"
	"strings"

	"github.com/quantmind-br/pkgprobe/internal/manifest"
	"github.com/quantmind-br/pkgprobe/internal/winpe"
	"github.com/quantmind-br/pkgprobe/internal/xarchive"
)

// squirrelProbe detects Squirrel installers, which pack a .nupkg inside a
// zip stored as the first PE resource, and Velopack installers, the fork
// that moved the zip to the overlay.
type squirrelProbe struct{}

func (squirrelProbe) Name() string { return "squirrel" }

// nuspec mirrors the nupkg manifest
// https://learn.microsoft.com/en-us/nuget/reference/nuspec
type nuspec struct {
	Metadata nuspecMetadata `xml:"metadata"`
}

type nuspecMetadata struct {
	ID      string `xml:"id"`
	Version string `xml:"version"`
	Authors string `xml:"authors"`
	Title   string `xml:"title"`
	MainExe string `xml:"mainExe"`
}

func (squirrelProbe) Detect(target *Target) ([]manifest.InstallerRecord, error) {
	nupkg, velopack, err := findNupkg(target)
	if err != nil {
		return nil, err
	}

	var spec *nuspec
	var entrypoint []byte
	for _, name := range nupkg.Names() {
		if spec == nil && strings.HasSuffix(strings.ToLower(name), ".nuspec") {
			data, err := nupkg.Open(name)
			if err != nil {
				continue
			}
			var parsed nuspec
			if xml.Unmarshal(data, &parsed) == nil && parsed.Metadata.ID != "" {
				spec = &parsed
			}
		}
	}
	if spec == nil {
		return nil, ErrNotThisFormat
	}
	entrypoint = findEntrypoint(nupkg, spec.Metadata)

	arch := target.PE.Architecture()
	if entrypoint != nil {
		// the stub is always 32-bit; the packed application decides the
		// real architecture
		if inner, err := winpe.Parse(entrypoint); err == nil {
			arch = inner.Architecture()
		}
	}

	switches := manifest.Switches{
		Silent:             "--silent",
		SilentWithProgress: "--silent",
	}
	if velopack {
		switches.InstallLocation = `--installto "<INSTALLPATH>"`
		switches.Log = `--log "<LOGPATH>"`
	}

	displayName := spec.Metadata.Title
	if displayName == "" {
		displayName = spec.Metadata.ID
	}
	record := manifest.InstallerRecord{
		Architecture:    arch,
		Kind:            manifest.KindExe,
		Scope:           manifest.ScopeUser,
		ProductCode:     spec.Metadata.ID,
		Switches:        switches,
		InstallLocation: `%LocalAppData%\` + spec.Metadata.ID,
		AppsAndFeatures: []manifest.AppsEntry{{
			DisplayName:    displayName,
			DisplayVersion: manifest.NormalizeVersion(spec.Metadata.Version),
			Publisher:      spec.Metadata.Authors,
			ProductCode:    spec.Metadata.ID,
		}},
	}
	return []manifest.InstallerRecord{record}, nil
}

// findNupkg opens the inner nupkg archive, trying the Squirrel first-resource
// zip before the Velopack overlay zip.
func findNupkg(target *Target) (xarchive.Reader, bool, error) {
	if len(target.PE.Resources) > 0 {
		res := target.PE.Resources[0]
		end := res.Offset + int64(res.Length)
		if res.Offset > 0 && end <= int64(len(target.Data)) {
			if outer, err := xarchive.OpenZip(target.Data[res.Offset:end]); err == nil {
				for _, name := range outer.Names() {
					if !strings.HasSuffix(strings.ToLower(name), ".nupkg") {
						continue
					}
					data, err := outer.Open(name)
					if err != nil {
						continue
					}
					nupkg, err := xarchive.OpenZip(data)
					if err != nil {
						return nil, false, ErrNotThisFormat
					}
					return nupkg, false, nil
				}
			}
		}
	}

	if target.PE.OverlayOffset >= 0 && target.PE.OverlayOffset < int64(len(target.Data)) {
		if nupkg, err := xarchive.OpenZip(target.Data[target.PE.OverlayOffset:]); err == nil {
			return nupkg, true, nil
		}
	}
	return nil, false, ErrNotThisFormat
}

// findEntrypoint returns the packed application exe matching the nuspec
// identity, used to resolve the real architecture.
func findEntrypoint(nupkg xarchive.Reader, meta nuspecMetadata) []byte {
	for _, name := range nupkg.Names() {
		base := name
		if idx := strings.LastIndexAny(base, "/\\"); idx >= 0 {
			base = base[idx+1:]
		}
		stem, ok := strings.CutSuffix(base, ".exe")
		if !ok {
			continue
		}
		if (meta.MainExe != "" && strings.EqualFold(stem, meta.MainExe)) ||
			strings.EqualFold(stem, meta.ID) ||
			(meta.Title != "" && strings.EqualFold(stem, meta.Title)) {
			if data, err := nupkg.Open(name); err == nil {
				return data
			}
		}
	}
	return nil
}
