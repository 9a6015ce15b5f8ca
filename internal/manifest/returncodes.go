package manifest

import "sort"

// commonCodes are exit codes shared by every InstallShield generation
var commonCodes = []ExpectedReturnCode{
	{Code: -1, Response: ResponseCancelledByUser},
	{Code: 1, Response: ResponseInvalidParameter},
	{Code: 1150, Response: ResponseSystemNotSupported},
	{Code: 1201, Response: ResponseDiskFull},
	{Code: 1203, Response: ResponseInvalidParameter},
	{Code: 3010, Response: ResponseRebootRequiredToFinish},
}

// msiCodes are the Windows Installer engine exit codes, present whenever an
// exe wraps an MSI
var msiCodes = []ExpectedReturnCode{
	{Code: 1601, Response: ResponseContactSupport},
	{Code: 1602, Response: ResponseCancelledByUser},
	{Code: 1618, Response: ResponseInstallInProgress},
	{Code: 1623, Response: ResponseSystemNotSupported},
	{Code: 1625, Response: ResponseBlockedByPolicy},
	{Code: 1628, Response: ResponseInvalidParameter},
	{Code: 1633, Response: ResponseSystemNotSupported},
	{Code: 1638, Response: ResponseAlreadyInstalled},
	{Code: 1639, Response: ResponseInvalidParameter},
	{Code: 1640, Response: ResponseBlockedByPolicy},
	{Code: 1641, Response: ResponseRebootInitiated},
	{Code: 1643, Response: ResponseBlockedByPolicy},
	{Code: 1644, Response: ResponseBlockedByPolicy},
	{Code: 1649, Response: ResponseBlockedByPolicy},
	{Code: 1650, Response: ResponseInvalidParameter},
	{Code: 1654, Response: ResponseSystemNotSupported},
}

// InstallShieldReturnCodes returns the expected exit codes for an
// InstallShield installer. MSI-driven installers surface the Windows
// Installer engine codes on top of the common set.
func InstallShieldReturnCodes(msiBased bool) []ExpectedReturnCode {
	codes := append([]ExpectedReturnCode(nil), commonCodes...)
	if msiBased {
		codes = append(codes, msiCodes...)
	}
	return sortedCodes(codes)
}

// MsiReturnCodes returns the Windows Installer engine exit codes
func MsiReturnCodes() []ExpectedReturnCode {
	return sortedCodes(append([]ExpectedReturnCode(nil), msiCodes...))
}

// AdvancedInstallerReturnCodes returns the documented exit codes of the
// Advanced Installer exe bootstrapper.
// https://www.advancedinstaller.com/user-guide/exe-setup-file.html#return-code
func AdvancedInstallerReturnCodes() []ExpectedReturnCode {
	codes := append([]ExpectedReturnCode(nil), msiCodes...)
	codes = append(codes,
		ExpectedReturnCode{Code: -1, Response: ResponseCancelledByUser},
		ExpectedReturnCode{Code: 1, Response: ResponseInvalidParameter},
		ExpectedReturnCode{Code: 87, Response: ResponseInvalidParameter},
		ExpectedReturnCode{Code: 3010, Response: ResponseRebootRequiredToFinish},
	)
	return sortedCodes(codes)
}

// QtReturnCodes returns the Qt Installer Framework status codes.
// https://doc.qt.io/qtinstallerframework/qinstaller-packagemanagercore.html#Status-enum
func QtReturnCodes() []ExpectedReturnCode {
	return []ExpectedReturnCode{
		{Code: 1, Response: ResponseContactSupport},
		{Code: 2, Response: ResponseInstallInProgress},
		{Code: 3, Response: ResponseCancelledByUser},
	}
}

// InnoReturnCodes returns the documented Inno Setup setup exit codes.
// https://jrsoftware.org/ishelp/index.php?topic=setupexitcodes
func InnoReturnCodes() []ExpectedReturnCode {
	return []ExpectedReturnCode{
		{Code: 1, Response: ResponseInvalidParameter},
		{Code: 2, Response: ResponseCancelledByUser},
		{Code: 3, Response: ResponseContactSupport},
		{Code: 4, Response: ResponseContactSupport},
		{Code: 5, Response: ResponseCancelledByUser},
		{Code: 6, Response: ResponseCancelledByUser},
		{Code: 7, Response: ResponseBlockedByPolicy},
		{Code: 8, Response: ResponseRebootRequiredToFinish},
	}
}

// BurnReturnCodes returns the exit codes of a WiX Burn bundle engine,
// which forwards the wrapped Windows Installer codes.
func BurnReturnCodes() []ExpectedReturnCode {
	return MsiReturnCodes()
}

// sortedCodes keeps exit-code sets in a stable, content-defined order so
// byte-identical inputs always serialize identically.
func sortedCodes(codes []ExpectedReturnCode) []ExpectedReturnCode {
	sort.Slice(codes, func(i, j int) bool { return codes[i].Code < codes[j].Code })
	return codes
}
