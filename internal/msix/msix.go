// Package msix reads MSIX/AppX packages and bundles: zip containers whose
// manifest carries the package identity the uninstall registry uses.
package msix

import (
	"crypto/sha256"
	"encoding/xml"
	"errors"
	"strings"

	"golang.org/x/text/encoding/unicode"

	"github.com/quantmind-br/pkgprobe/internal/manifest"
	"github.com/quantmind-br/pkgprobe/internal/xarchive"
)

const (
	manifestPath       = "AppxManifest.xml"
	bundleManifestPath = "AppxMetadata/AppxBundleManifest.xml"
)

// ErrNoManifest reports a zip container without a package manifest
var ErrNoManifest = errors.New("no appx manifest in package")

// appxManifest mirrors the subset of the manifest schema the pipeline needs
// https://learn.microsoft.com/en-us/uwp/schemas/appxpackage/uapmanifestschema/element-identity
type appxManifest struct {
	Identity struct {
		Name                  string `xml:"Name,attr"`
		Version               string `xml:"Version,attr"`
		Publisher             string `xml:"Publisher,attr"`
		ProcessorArchitecture string `xml:"ProcessorArchitecture,attr"`
	} `xml:"Identity"`
	Properties struct {
		DisplayName          string `xml:"DisplayName"`
		PublisherDisplayName string `xml:"PublisherDisplayName"`
	} `xml:"Properties"`
}

type bundleManifest struct {
	Identity struct {
		Name      string `xml:"Name,attr"`
		Version   string `xml:"Version,attr"`
		Publisher string `xml:"Publisher,attr"`
	} `xml:"Identity"`
	Packages struct {
		Packages []bundlePackage `xml:"Package"`
	} `xml:"Packages"`
}

type bundlePackage struct {
	Type         string `xml:"Type,attr"`
	Architecture string `xml:"Architecture,attr"`
	FileName     string `xml:"FileName,attr"`
}

// Package reads one .msix/.appx container and builds its installer record
func Package(data []byte, kind manifest.InstallerKind) ([]manifest.InstallerRecord, error) {
	archive, err := xarchive.OpenZip(data)
	if err != nil {
		return nil, err
	}
	return packageRecords(archive, kind)
}

// Bundle reads a .msixbundle/.appxbundle container: one record per packed
// application package, sharing the bundle identity.
func Bundle(data []byte, kind manifest.InstallerKind) ([]manifest.InstallerRecord, error) {
	archive, err := xarchive.OpenZip(data)
	if err != nil {
		return nil, err
	}
	raw, err := openEntry(archive, bundleManifestPath)
	if err != nil {
		return nil, err
	}
	var bundle bundleManifest
	if err := xml.Unmarshal(raw, &bundle); err != nil {
		return nil, err
	}

	var records []manifest.InstallerRecord
	for _, pkg := range bundle.Packages.Packages {
		if !strings.EqualFold(pkg.Type, "application") {
			continue
		}
		records = append(records, manifest.InstallerRecord{
			Architecture: archFromName(pkg.Architecture),
			Kind:         kind,
			ProductCode:  FamilyName(bundle.Identity.Name, bundle.Identity.Publisher),
			AppsAndFeatures: []manifest.AppsEntry{{
				DisplayName:    bundle.Identity.Name,
				DisplayVersion: manifest.NormalizeVersion(bundle.Identity.Version),
			}},
		})
	}
	if len(records) == 0 {
		return nil, ErrNoManifest
	}
	return records, nil
}

func packageRecords(archive xarchive.Reader, kind manifest.InstallerKind) ([]manifest.InstallerRecord, error) {
	raw, err := openEntry(archive, manifestPath)
	if err != nil {
		return nil, err
	}
	var m appxManifest
	if err := xml.Unmarshal(raw, &m); err != nil {
		return nil, err
	}

	displayName := m.Properties.DisplayName
	if displayName == "" {
		displayName = m.Identity.Name
	}
	record := manifest.InstallerRecord{
		Architecture: archFromName(m.Identity.ProcessorArchitecture),
		Kind:         kind,
		Scope:        manifest.ScopeUser,
		ProductCode:  FamilyName(m.Identity.Name, m.Identity.Publisher),
		AppsAndFeatures: []manifest.AppsEntry{{
			DisplayName:    displayName,
			DisplayVersion: manifest.NormalizeVersion(m.Identity.Version),
			Publisher:      m.Properties.PublisherDisplayName,
		}},
	}
	return []manifest.InstallerRecord{record}, nil
}

func openEntry(archive xarchive.Reader, path string) ([]byte, error) {
	for _, name := range archive.Names() {
		if strings.EqualFold(name, path) {
			return archive.Open(name)
		}
	}
	return nil, ErrNoManifest
}

func archFromName(name string) manifest.Architecture {
	switch strings.ToLower(name) {
	case "x86":
		return manifest.ArchX86
	case "x64":
		return manifest.ArchX64
	case "arm":
		return manifest.ArchArm
	case "arm64":
		return manifest.ArchArm64
	default:
		return manifest.ArchNeutral
	}
}

// crockfordAlphabet is the base32 variant package family names use
const crockfordAlphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// FamilyName derives the package family name: the identity name joined with
// a 13-character Crockford base32 digest of the first 8 bytes of the SHA-256
// of the UTF-16LE publisher string.
func FamilyName(name, publisher string) string {
	if name == "" || publisher == "" {
		return ""
	}
	encoded, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).
		NewEncoder().Bytes([]byte(publisher))
	if err != nil {
		return ""
	}
	digest := sha256.Sum256(encoded)

	// 8 digest bytes plus one zero bit make 65 bits, exactly 13 five-bit
	// groups
	var bits uint
	var acc uint64
	var out strings.Builder
	input := append(append([]byte(nil), digest[:8]...), 0)
	for _, b := range input {
		acc = acc<<8 | uint64(b)
		bits += 8
		for bits >= 5 && out.Len() < 13 {
			bits -= 5
			out.WriteByte(crockfordAlphabet[(acc>>bits)&0x1F])
		}
	}
	return name + "_" + strings.ToLower(out.String())
}
