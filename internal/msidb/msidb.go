// Package msidb is the Windows Installer database collaborator boundary.
// The compound-file/table decoding itself lives outside this module; probes
// consume row iteration only.
package msidb

import (
	"strings"

	"github.com/quantmind-br/pkgprobe/internal/manifest"
)

// Row is one record of an installer table
type Row []string

// TableReader iterates the rows of named MSI tables
type TableReader interface {
	// Rows returns every row of the named table, nil when the table is
	// absent
	Rows(table string) ([]Row, error)
}

// Properties flattens the two-column Property table into a map.
// Malformed rows are skipped, never an error.
func Properties(reader TableReader) (map[string]string, error) {
	rows, err := reader.Rows("Property")
	if err != nil {
		return nil, err
	}
	props := make(map[string]string, len(rows))
	for _, row := range rows {
		if len(row) >= 2 && row[0] != "" {
			props[row[0]] = row[1]
		}
	}
	return props, nil
}

// Record builds the installer record of one MSI database from its Property
// table. Architecture comes from the caller since the package summary
// stream is part of the excluded low-level reader.
func Record(reader TableReader, arch manifest.Architecture) (manifest.InstallerRecord, error) {
	props, err := Properties(reader)
	if err != nil {
		return manifest.InstallerRecord{}, err
	}

	record := manifest.InstallerRecord{
		Architecture:        arch,
		Kind:                manifest.KindMsi,
		ProductCode:         props["ProductCode"],
		UpgradeCode:         props["UpgradeCode"],
		Scope:               scopeFromAllUsers(props["ALLUSERS"]),
		ExpectedReturnCodes: manifest.MsiReturnCodes(),
	}
	if lcid := manifest.LocaleFromLCID(uint16(parseUint(props["ProductLanguage"]))); lcid != "" {
		record.Locale = lcid
	}

	entry := manifest.AppsEntry{
		DisplayName:    props["ProductName"],
		DisplayVersion: manifest.NormalizeVersion(props["ProductVersion"]),
		Publisher:      props["Manufacturer"],
		ProductCode:    props["ProductCode"],
		UpgradeCode:    props["UpgradeCode"],
	}
	if !entry.IsZero() {
		record.AppsAndFeatures = []manifest.AppsEntry{entry}
	}
	return record, nil
}

// scopeFromAllUsers follows the ALLUSERS property semantics: "1" is a
// per-machine install, "2" decides at run time, empty is per-user.
func scopeFromAllUsers(allUsers string) manifest.Scope {
	switch strings.TrimSpace(allUsers) {
	case "1":
		return manifest.ScopeMachine
	case "":
		return manifest.ScopeUser
	default:
		return ""
	}
}

func parseUint(s string) uint64 {
	var n uint64
	for _, c := range strings.TrimSpace(s) {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + uint64(c-'0')
	}
	return n
}
