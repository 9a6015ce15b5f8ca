package probe

import (
	"errors"

	"github.com/quantmind-br/pkgprobe/internal/installshield"
	"github.com/quantmind-br/pkgprobe/internal/manifest"
)

// installShieldProbe adapts the multi-generation InstallShield parser to
// the chain contract.
type installShieldProbe struct{}

func (installShieldProbe) Name() string { return "installshield" }

func (installShieldProbe) Detect(target *Target) ([]manifest.InstallerRecord, error) {
	setup, err := installshield.Detect(target.Reader, target.PE, &target.Log)
	if errors.Is(err, installshield.ErrNotInstallShield) {
		return nil, ErrNotThisFormat
	}
	if err != nil {
		return nil, err
	}
	return setup.Records(target.PE.Architecture()), nil
}
