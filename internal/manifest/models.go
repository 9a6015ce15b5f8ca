package manifest

// Architecture is the CPU architecture an installer payload targets
type Architecture string

const (
	ArchX86     Architecture = "x86"
	ArchX64     Architecture = "x64"
	ArchArm     Architecture = "arm"
	ArchArm64   Architecture = "arm64"
	ArchNeutral Architecture = "neutral"
)

// InstallerKind identifies the installer technology of a payload
type InstallerKind string

const (
	KindExe        InstallerKind = "exe"
	KindMsi        InstallerKind = "msi"
	KindMsix       InstallerKind = "msix"
	KindAppx       InstallerKind = "appx"
	KindZip        InstallerKind = "zip"
	KindInno       InstallerKind = "inno"
	KindNullsoft   InstallerKind = "nullsoft"
	KindWix        InstallerKind = "wix"
	KindBurn       InstallerKind = "burn"
	KindMsixBundle InstallerKind = "msixbundle"
	KindPortable   InstallerKind = "portable"
)

// Scope is the installation scope an installer defaults to
type Scope string

const (
	ScopeMachine Scope = "machine"
	ScopeUser    Scope = "user"
)

// Switches holds the command-line templates used for unattended runs.
// Placeholders <INSTALLPATH> and <LOGPATH> are substituted by the
// packaging pipeline, never here.
type Switches struct {
	Silent             string `json:"silent,omitempty"`
	SilentWithProgress string `json:"silent_with_progress,omitempty"`
	Interactive        string `json:"interactive,omitempty"`
	InstallLocation    string `json:"install_location,omitempty"`
	Log                string `json:"log,omitempty"`
	Repair             string `json:"repair,omitempty"`
	Custom             string `json:"custom,omitempty"`
}

// IsZero reports whether no switch template is set
func (s Switches) IsZero() bool {
	return s == Switches{}
}

// ReturnResponse describes what an installer exit code means to the pipeline
type ReturnResponse string

const (
	ResponseCancelledByUser        ReturnResponse = "cancelledByUser"
	ResponseInvalidParameter       ReturnResponse = "invalidParameter"
	ResponseSystemNotSupported     ReturnResponse = "systemNotSupported"
	ResponseDiskFull               ReturnResponse = "diskFull"
	ResponseContactSupport         ReturnResponse = "contactSupport"
	ResponseInstallInProgress      ReturnResponse = "installInProgress"
	ResponseBlockedByPolicy        ReturnResponse = "blockedByPolicy"
	ResponseAlreadyInstalled       ReturnResponse = "alreadyInstalled"
	ResponseRebootInitiated        ReturnResponse = "rebootInitiated"
	ResponseRebootRequiredToFinish ReturnResponse = "rebootRequiredToFinish"
	ResponseMissingDependency      ReturnResponse = "missingDependency"
)

// ExpectedReturnCode maps one installer exit code to its outcome
type ExpectedReturnCode struct {
	Code     int64          `json:"code"`
	Response ReturnResponse `json:"response"`
}

// AppsEntry is the uninstall-registry (ARP) identity an installer writes
type AppsEntry struct {
	DisplayName    string `json:"display_name,omitempty"`
	DisplayVersion string `json:"display_version,omitempty"`
	Publisher      string `json:"publisher,omitempty"`
	ProductCode    string `json:"product_code,omitempty"`
	UpgradeCode    string `json:"upgrade_code,omitempty"`
}

// IsZero reports whether the entry carries no identity at all
func (e AppsEntry) IsZero() bool {
	return e == AppsEntry{}
}

// InstallerRecord is the extracted metadata for one logical installed
// payload. A multi-payload container yields one record per payload.
type InstallerRecord struct {
	Architecture        Architecture         `json:"architecture"`
	Kind                InstallerKind        `json:"kind"`
	NestedKind          InstallerKind        `json:"nested_kind,omitempty"`
	Locale              string               `json:"locale,omitempty"`
	Scope               Scope                `json:"scope,omitempty"`
	ProductCode         string               `json:"product_code,omitempty"`
	UpgradeCode         string               `json:"upgrade_code,omitempty"`
	Switches            Switches             `json:"switches,omitempty"`
	ExpectedReturnCodes []ExpectedReturnCode `json:"expected_return_codes,omitempty"`
	AppsAndFeatures     []AppsEntry          `json:"apps_and_features,omitempty"`
	InstallLocation     string               `json:"install_location,omitempty"`
	UnsupportedOSArchs  []Architecture       `json:"unsupported_os_architectures,omitempty"`
}
