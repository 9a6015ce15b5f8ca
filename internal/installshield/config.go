package installshield

import (
	"encoding/xml"
	"strings"

	"gopkg.in/ini.v1"
)

// SetupIni is the launcher configuration written by every MSI-based and
// InstallScript-based generation.
// https://docs.revenera.com/installshield28helplib/helplibrary/SetupIni.htm
type SetupIni struct {
	Product        string
	ProductCode    string
	ProductGUID    string
	ProductVersion string
	CompanyName    string
	UpgradeCode    string
	PackageName    string
	CmdLine        string
	ScriptDriven   string
	DefaultLang    string
}

func parseSetupIni(content string) *SetupIni {
	file, err := ini.LoadSources(ini.LoadOptions{Insensitive: true}, []byte(content))
	if err != nil {
		return nil
	}
	startup := file.Section("startup")
	cfg := &SetupIni{
		Product:        startup.Key("product").String(),
		ProductCode:    startup.Key("productcode").String(),
		ProductGUID:    startup.Key("productguid").String(),
		ProductVersion: startup.Key("productversion").String(),
		CompanyName:    startup.Key("companyname").String(),
		UpgradeCode:    startup.Key("upgradecode").String(),
		PackageName:    startup.Key("packagename").String(),
		CmdLine:        startup.Key("cmdline").String(),
		ScriptDriven:   startup.Key("scriptdriven").String(),
		DefaultLang:    file.Section("languages").Key("default").String(),
	}
	if *cfg == (SetupIni{}) {
		return nil
	}
	return cfg
}

// SetupIss is the recorded response file of InstallScript installers
type SetupIss struct {
	Name    string
	Version string
	Company string
}

func parseSetupIss(content string) *SetupIss {
	file, err := ini.LoadSources(ini.LoadOptions{Insensitive: true}, []byte(content))
	if err != nil {
		return nil
	}
	app := file.Section("application")
	cfg := &SetupIss{
		Name:    app.Key("name").String(),
		Version: app.Key("version").String(),
		Company: app.Key("company").String(),
	}
	if *cfg == (SetupIss{}) {
		return nil
	}
	return cfg
}

// SetupXML is the Suite installer manifest carrying ARP metadata and the
// property bag.
type SetupXML struct {
	SuiteID    string        `xml:"SuiteId,attr"`
	ARP        ArpInfo       `xml:"ARPInfo"`
	Properties []SetProperty `xml:"SetProperty"`
}

type ArpInfo struct {
	Version     string `xml:"Version"`
	Publisher   string `xml:"Publisher"`
	DisplayName string `xml:"DisplayName"`
}

type SetProperty struct {
	Name  string `xml:"Name,attr"`
	Value string `xml:"Value,attr"`
}

func parseSetupXML(content string) *SetupXML {
	var cfg SetupXML
	if err := xml.Unmarshal([]byte(content), &cfg); err != nil {
		return nil
	}
	return &cfg
}

// Property looks up a property-bag value by name
func (x *SetupXML) Property(name string) string {
	for _, p := range x.Properties {
		if strings.EqualFold(p.Name, name) {
			return p.Value
		}
	}
	return ""
}
