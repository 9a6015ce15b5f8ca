package cmd

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantmind-br/pkgprobe/internal/analysis"
	"github.com/quantmind-br/pkgprobe/internal/cache"
	"github.com/quantmind-br/pkgprobe/internal/logging"
	"github.com/quantmind-br/pkgprobe/internal/manifest"
	"github.com/quantmind-br/pkgprobe/internal/probe"
)

func msixFixture(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create("AppxManifest.xml")
	require.NoError(t, err)
	_, err = f.Write([]byte(`<Package>
  <Identity Name="Acme.App" Version="1.0.0.0" Publisher="CN=Acme" ProcessorArchitecture="x64"/>
</Package>`))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func testOptions() analysis.Options {
	return analysis.Options{Log: *logging.NewTestLogger(io.Discard)}
}

func TestAnalyzeFile(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	data := msixFixture(t)
	require.NoError(t, afero.WriteFile(fs, "/pkgs/Acme.msix", data, 0644))

	report, err := analyzeFile(context.Background(), fs, nil, "/pkgs/Acme.msix", testOptions())
	require.NoError(t, err)

	assert.Equal(t, "/pkgs/Acme.msix", report.Path)
	assert.Equal(t, cache.Digest(data), report.Sha256)
	assert.False(t, report.Cached)
	assert.Equal(t, "Acme.msix", report.FileName)
	require.Len(t, report.Records, 1)
	assert.Equal(t, manifest.KindMsix, report.Records[0].Kind)
}

func TestAnalyzeFileUsesCache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/Acme.msix", msixFixture(t), 0644))

	store, err := cache.Open(ctx, filepath.Join(t.TempDir(), "reports.db"))
	require.NoError(t, err)
	defer store.Close()

	first, err := analyzeFile(ctx, fs, store, "/Acme.msix", testOptions())
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := analyzeFile(ctx, fs, store, "/Acme.msix", testOptions())
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Records, second.Records)
}

func TestAnalyzeFileMissing(t *testing.T) {
	t.Parallel()

	_, err := analyzeFile(context.Background(), afero.NewMemMapFs(), nil, "/nope.exe", testOptions())
	assert.Error(t, err)
}

func TestParseScriptTrace(t *testing.T) {
	t.Parallel()

	trace, err := parseScriptTrace([]byte(`
; captured from the installer script
Push *i
Push kernel32::IsWow64Process2(i -1, *i .r0, *i .r1)
Call System::Call

# blank lines and comments are skipped
Call System::Int64Op
`))
	require.NoError(t, err)

	assert.Equal(t, []probe.ScriptOp{
		{Push: "*i"},
		{Push: "kernel32::IsWow64Process2(i -1, *i .r0, *i .r1)"},
		{Module: "System", Function: "Call"},
		{Module: "System", Function: "Int64Op"},
	}, trace.Ops())
}

func TestParseScriptTraceRejectsUnknownInstruction(t *testing.T) {
	t.Parallel()

	_, err := parseScriptTrace([]byte("Pop $0\n"))
	assert.Error(t, err)

	_, err = parseScriptTrace([]byte("Call SystemCall\n"))
	assert.Error(t, err)
}

func TestOrDashAndTruncate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "-", orDash(""))
	assert.Equal(t, "x64", orDash("x64"))
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "0123456...", truncate("0123456789abcdef", 10))
}
