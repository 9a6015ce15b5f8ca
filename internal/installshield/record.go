package installshield

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/quantmind-br/pkgprobe/internal/manifest"
)

// Driver is the engine that runs the actual install
type Driver int

const (
	// DriverMsi wraps a Windows Installer database; switches pass through
	// to msiexec via /V
	DriverMsi Driver = iota
	// DriverInstallScript runs a compiled InstallScript program
	DriverInstallScript
	// DriverSuite is the Suite/Advanced UI launcher described by Setup.xml
	DriverSuite
)

// Driver classifies the container three ways from the ScriptDriven flag and
// the presence of a Suite manifest.
func (s *Setup) Driver() Driver {
	if s.XML != nil {
		return DriverSuite
	}
	if s.Ini != nil {
		switch s.Ini.ScriptDriven {
		case "", "0":
			return DriverMsi
		default:
			return DriverInstallScript
		}
	}
	return DriverInstallScript
}

// Records builds the installer records of the container, one per logical
// payload. Metadata precedence is setup.ini, then setup.iss, then the
// Setup.xml ARP block and property bag.
func (s *Setup) Records(arch manifest.Architecture) []manifest.InstallerRecord {
	driver := s.Driver()
	record := manifest.InstallerRecord{
		Architecture:        arch,
		Kind:                manifest.KindExe,
		Scope:               manifest.ScopeMachine,
		Locale:              s.locale(),
		ProductCode:         s.productCode(),
		Switches:            driverSwitches(driver),
		ExpectedReturnCodes: manifest.InstallShieldReturnCodes(driver != DriverInstallScript),
		InstallLocation:     s.property("INSTALLDIR"),
	}
	if record.ProductCode == "" {
		record.ProductCode = s.property("ProductCode")
	}

	entry := manifest.AppsEntry{
		DisplayName:    s.displayName(),
		DisplayVersion: manifest.NormalizeVersion(s.version()),
		Publisher:      s.publisher(),
		ProductCode:    record.ProductCode,
		UpgradeCode:    s.upgradeCode(),
	}
	record.UpgradeCode = entry.UpgradeCode
	if !entry.IsZero() {
		record.AppsAndFeatures = []manifest.AppsEntry{entry}
	}
	return []manifest.InstallerRecord{record}
}

// productCode prefers the launcher-mangled "InstallShield_<code>" form the
// uninstall registry actually records, falling back to the braced GUID.
func (s *Setup) productCode() string {
	if s.Ini == nil {
		return ""
	}
	if s.Ini.ProductCode != "" {
		return "InstallShield_" + s.Ini.ProductCode
	}
	if s.Ini.ProductGUID != "" {
		return fmt.Sprintf("{%s}", strings.Trim(s.Ini.ProductGUID, "{}"))
	}
	return ""
}

func (s *Setup) displayName() string {
	if s.Ini != nil && s.Ini.Product != "" {
		return s.Ini.Product
	}
	if s.Iss != nil && s.Iss.Name != "" {
		return s.Iss.Name
	}
	if s.XML != nil {
		return s.XML.ARP.DisplayName
	}
	return ""
}

func (s *Setup) version() string {
	if s.Ini != nil && s.Ini.ProductVersion != "" {
		return s.Ini.ProductVersion
	}
	if s.Iss != nil && s.Iss.Version != "" {
		return s.Iss.Version
	}
	if s.XML != nil {
		return s.XML.ARP.Version
	}
	return ""
}

func (s *Setup) publisher() string {
	if s.Ini != nil && s.Ini.CompanyName != "" {
		return s.Ini.CompanyName
	}
	if s.Iss != nil && s.Iss.Company != "" {
		return s.Iss.Company
	}
	if s.XML != nil {
		return s.XML.ARP.Publisher
	}
	return ""
}

func (s *Setup) upgradeCode() string {
	if s.Ini != nil && s.Ini.UpgradeCode != "" {
		return s.Ini.UpgradeCode
	}
	if s.XML != nil {
		return s.property("UpgradeCode")
	}
	return ""
}

func (s *Setup) property(name string) string {
	if s.XML == nil {
		return ""
	}
	return s.XML.Property(name)
}

// locale maps the launcher's default language id, written as hex like
// "0x0409", to a BCP-47 tag.
func (s *Setup) locale() string {
	if s.Ini == nil || s.Ini.DefaultLang == "" {
		return ""
	}
	raw := strings.TrimPrefix(strings.ToLower(s.Ini.DefaultLang), "0x")
	lcid, err := strconv.ParseUint(raw, 16, 16)
	if err != nil {
		return ""
	}
	return manifest.LocaleFromLCID(uint16(lcid))
}

func driverSwitches(driver Driver) manifest.Switches {
	switch driver {
	case DriverMsi:
		return manifest.Switches{
			Silent:             "/S /V/quiet /V/norestart",
			SilentWithProgress: "/S /V/passive /V/norestart",
			InstallLocation:    `/V"INSTALLDIR=""<INSTALLPATH>"""`,
			Log:                `/V"/log ""<LOGPATH>"""`,
			Repair:             "/S /V/fau",
		}
	case DriverSuite:
		return manifest.Switches{
			Silent:             "/silent",
			SilentWithProgress: "/passive",
			Log:                `/debuglog"<LOGPATH>"`,
		}
	default:
		return manifest.Switches{
			Silent:             "/S",
			SilentWithProgress: "/S",
			Log:                `/f2"<LOGPATH>"`,
		}
	}
}
