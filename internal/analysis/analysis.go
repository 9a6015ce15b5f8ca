// Package analysis is the top-level classification facade: extension
// routing into the container families, the executable probe chain, icon
// extraction, and version-resource metadata.
package analysis

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/quantmind-br/pkgprobe/internal/icons"
	"github.com/quantmind-br/pkgprobe/internal/manifest"
	"github.com/quantmind-br/pkgprobe/internal/msidb"
	"github.com/quantmind-br/pkgprobe/internal/msix"
	"github.com/quantmind-br/pkgprobe/internal/probe"
	"github.com/quantmind-br/pkgprobe/internal/winpe"
)

// Extensions routed into the container families
const (
	extMsi         = "msi"
	extMsix        = "msix"
	extAppx        = "appx"
	extMsixBundle  = "msixbundle"
	extAppxBundle  = "appxbundle"
	extZip         = "zip"
	extExe         = "exe"
	maxNestedDepth = 2
)

// UnsupportedExtensionError reports a file extension outside the supported
// container families.
type UnsupportedExtensionError struct {
	Extension string
}

func (e *UnsupportedExtensionError) Error() string {
	return fmt.Sprintf("unsupported file extension %q", e.Extension)
}

// Options carries the external collaborators of one analysis
type Options struct {
	// OpenMsi opens a Windows Installer database for table-row iteration
	OpenMsi func(data []byte) (msidb.TableReader, error)
	// Script supplies an installer-script trace for the NSIS VM
	Script probe.ScriptSource
	// MsiArchitecture stands in for the package summary stream, which the
	// table-reader collaborator does not expose
	MsiArchitecture manifest.Architecture
	Log             zerolog.Logger
}

// Report is the result of one analysis pass
type Report struct {
	Records     []manifest.InstallerRecord
	Icons       *icons.Set
	PackageName string
	Publisher   string
	Copyright   string
}

// Analyze classifies one in-memory installer and extracts its metadata.
// The file name supplies the extension route and architecture hints.
func Analyze(data []byte, fileName string, opts Options) (*Report, error) {
	return analyze(data, fileName, opts, 0)
}

func analyze(data []byte, fileName string, opts Options, depth int) (*Report, error) {
	extension := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
	report := &Report{Icons: icons.NewSet()}

	switch extension {
	case extMsi:
		records, err := analyzeMsi(data, opts)
		if err != nil {
			return nil, err
		}
		report.Records = records
	case extMsix, extAppx:
		kind := manifest.KindMsix
		if extension == extAppx {
			kind = manifest.KindAppx
		}
		records, err := msix.Package(data, kind)
		if err != nil {
			return nil, err
		}
		report.Records = records
	case extMsixBundle, extAppxBundle:
		records, err := msix.Bundle(data, manifest.KindMsixBundle)
		if err != nil {
			return nil, err
		}
		report.Records = records
	case extZip:
		records, err := analyzeZip(data, opts, depth)
		if err != nil {
			return nil, err
		}
		report.Records = records
	case extExe:
		if err := analyzeExe(data, fileName, opts, depth, report); err != nil {
			return nil, err
		}
	default:
		return nil, &UnsupportedExtensionError{Extension: extension}
	}
	return report, nil
}

func analyzeMsi(data []byte, opts Options) ([]manifest.InstallerRecord, error) {
	if opts.OpenMsi == nil {
		return nil, fmt.Errorf("msi database recognized but no table reader is configured")
	}
	reader, err := opts.OpenMsi(data)
	if err != nil {
		return nil, fmt.Errorf("open msi database: %w", err)
	}
	record, err := msidb.Record(reader, opts.MsiArchitecture)
	if err != nil {
		return nil, err
	}
	return []manifest.InstallerRecord{record}, nil
}

func analyzeExe(data []byte, fileName string, opts Options, depth int, report *Report) error {
	pe, err := winpe.Parse(data)
	if err != nil {
		return fmt.Errorf("parse executable: %w", err)
	}

	report.PackageName = pe.VersionValue("ProductName")
	report.Publisher = pe.VersionValue("CompanyName")
	report.Copyright = pe.VersionValue("LegalCopyright")
	report.Icons.Merge(icons.Reconstruct(pe, data))

	target := probe.NewTarget(data, pe, fileName, opts.Log)
	target.OpenMsi = opts.OpenMsi
	target.Script = opts.Script
	if depth < maxNestedDepth {
		target.Nested = func(nested []byte, nestedName string) ([]manifest.InstallerRecord, error) {
			nestedReport, err := analyze(nested, nestedName, opts, depth+1)
			if err != nil {
				return nil, err
			}
			report.Icons.Merge(nestedReport.Icons)
			return nestedReport.Records, nil
		}
	}

	records, err := probe.Run(target)
	if err != nil {
		return err
	}
	report.Records = applyArchitectureHints(records, fileName)
	return nil
}
