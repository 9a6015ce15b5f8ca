package probe

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/quantmind-br/pkgprobe/internal/manifest"
	"github.com/quantmind-br/pkgprobe/internal/nsisvm"
	"github.com/quantmind-br/pkgprobe/internal/winpe"
)

// nsisProbe detects Nullsoft installers by the first-header magic in the
// overlay: a u32 flag word followed by 0xDEADBEEF and "NullsoftInst".
type nsisProbe struct{}

var nsisMagic = []byte("\xEF\xBE\xAD\xDENullsoftInst")

// the stub writes the first header at a 512-byte block boundary
const nsisBlockSize = 512

func (nsisProbe) Name() string { return "nsis" }

func (nsisProbe) Detect(target *Target) ([]manifest.InstallerRecord, error) {
	if !nsisHeaderPresent(target) {
		return nil, ErrNotThisFormat
	}

	record := manifest.InstallerRecord{
		Architecture: target.PE.Architecture(),
		Kind:         manifest.KindNullsoft,
		Switches: manifest.Switches{
			Silent:             "/S",
			SilentWithProgress: "/S",
			InstallLocation:    "/D=<INSTALLPATH>",
		},
	}

	if target.Script != nil {
		state := nsisvm.NewState(&target.Log)
		state.Reset()
		replayScript(state, target.Script.Ops())
		if record.Architecture == manifest.ArchX86 && scriptDetectsAmd64(state) {
			// the script branches on the host machine reported by the
			// WOW64 query, so the payload it unpacks is 64-bit
			record.Architecture = manifest.ArchX64
		}
		if folder := scriptInstallFolder(state); folder != "" {
			record.InstallLocation = folder
			if strings.HasPrefix(folder, `%LocalAppData%`) || strings.HasPrefix(folder, `%AppData%`) {
				record.Scope = manifest.ScopeUser
			} else {
				record.Scope = manifest.ScopeMachine
			}
		}
		for _, note := range state.Notes() {
			target.Log.Debug().Str("note", note).Msg("nsis script evaluation")
		}
	}

	entry := manifest.AppsEntry{
		DisplayName: target.PE.VersionValue("ProductName"),
		Publisher:   target.PE.VersionValue("CompanyName"),
		DisplayVersion: manifest.NormalizeVersion(
			target.PE.VersionValue("ProductVersion")),
	}
	if !entry.IsZero() {
		record.AppsAndFeatures = []manifest.AppsEntry{entry}
	}
	return []manifest.InstallerRecord{record}, nil
}

// nsisHeaderPresent probes each 512-byte-aligned position from the overlay
// start for a first header: a u32 flag word followed by the magic. Magic
// bytes at unaligned positions belong to payload data, not a header.
func nsisHeaderPresent(target *Target) bool {
	start := target.PE.OverlayOffset
	if start < 0 {
		start = 0
	}
	probeLen := int64(4 + len(nsisMagic))
	for pos := start; pos+probeLen <= int64(len(target.Data)); pos += nsisBlockSize {
		if bytes.Equal(target.Data[pos+4:pos+probeLen], nsisMagic) {
			return true
		}
	}
	return false
}

func replayScript(state *nsisvm.State, ops []ScriptOp) {
	for _, op := range ops {
		if op.Module == "" {
			state.Push(op.Push)
			continue
		}
		nsisvm.Evaluate(state, op.Module, op.Function)
	}
}

// scriptDetectsAmd64 reports whether the replay left the AMD64 machine
// value, as answered by the mocked WOW64 query, in a register.
func scriptDetectsAmd64(state *nsisvm.State) bool {
	amd64 := strconv.Itoa(winpe.MachineAMD64)
	for i := 0; i < nsisvm.RegisterCount; i++ {
		if state.Var(i) == amd64 {
			return true
		}
	}
	return false
}

// scriptInstallFolder returns the first known-folder path the replay
// resolved into a register. Folder queries answer with symbolic %Folder%
// roots, so a register holding one is the script's install target.
func scriptInstallFolder(state *nsisvm.State) string {
	for i := 0; i < nsisvm.RegisterCount; i++ {
		value := state.Var(i)
		if strings.HasPrefix(value, "%") && strings.Contains(value[1:], "%") {
			return value
		}
	}
	return ""
}
