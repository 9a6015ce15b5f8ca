// Package probe implements the installer technology detection chain. Each
// probe recognizes one technology and either produces installer records,
// declines with ErrNotThisFormat, or fails hard once the format is committed.
package probe

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/quantmind-br/pkgprobe/internal/manifest"
	"github.com/quantmind-br/pkgprobe/internal/msidb"
	"github.com/quantmind-br/pkgprobe/internal/winpe"
)

// ErrNotThisFormat tells the chain to rewind and try the next probe
var ErrNotThisFormat = errors.New("not this installer format")

// ScriptOp is one replayed instruction of an installer-script trace: either
// a stack push or a plugin invocation.
type ScriptOp struct {
	Push     string
	Module   string
	Function string
}

// ScriptSource supplies the plugin-call trace of an extracted installer
// script for static evaluation.
type ScriptSource interface {
	Ops() []ScriptOp
}

// Target is the shared probe input: the raw bytes, a cursor over them, and
// the parsed PE model. Collaborator hooks are optional; probes degrade to
// best-effort metadata without them.
type Target struct {
	Data     []byte
	Reader   *bytes.Reader
	PE       *winpe.File
	FileName string
	Log      zerolog.Logger

	// OpenMsi opens an embedded Windows Installer database
	OpenMsi func(data []byte) (msidb.TableReader, error)
	// Nested classifies an extracted nested installer
	Nested func(data []byte, fileName string) ([]manifest.InstallerRecord, error)
	// Script supplies an installer-script trace for VM evaluation
	Script ScriptSource
}

// NewTarget builds a probe target over in-memory installer bytes
func NewTarget(data []byte, pe *winpe.File, fileName string, log zerolog.Logger) *Target {
	return &Target{
		Data:     data,
		Reader:   bytes.NewReader(data),
		PE:       pe,
		FileName: fileName,
		Log:      log,
	}
}

// Probe recognizes one installer technology
type Probe interface {
	Name() string
	Detect(target *Target) ([]manifest.InstallerRecord, error)
}

// Chain returns the probes in detection priority order: rarest and most
// specific signatures first, since several technologies share an overlay
// precondition, and the generic fallback last.
func Chain() []Probe {
	return []Probe{
		advancedProbe{},
		burnProbe{},
		innoProbe{},
		nsisProbe{},
		installShieldProbe{},
		qtProbe{},
		squirrelProbe{},
		sevenZipSfxProbe{},
		genericProbe{},
	}
}

// Run evaluates the chain over target. The cursor is re-seeked before every
// probe so a declining probe cannot leak its position to the next one.
func Run(target *Target) ([]manifest.InstallerRecord, error) {
	for _, p := range Chain() {
		if _, err := target.Reader.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		records, err := p.Detect(target)
		if errors.Is(err, ErrNotThisFormat) {
			target.Log.Debug().Str("probe", p.Name()).Msg("declined")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%s probe: %w", p.Name(), err)
		}
		target.Log.Debug().Str("probe", p.Name()).Int("records", len(records)).Msg("recognized")
		return records, nil
	}
	return nil, errors.New("no probe produced a result")
}
