package probe

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantmind-br/pkgprobe/internal/manifest"
	"github.com/quantmind-br/pkgprobe/internal/winpe"
)

const acmeNuspec = `<?xml version="1.0"?>
<package>
  <metadata>
    <id>AcmeApp</id>
    <version>1.4.0</version>
    <title>Acme App</title>
    <authors>Acme Corp</authors>
  </metadata>
</package>`

func zipBytes(t *testing.T, entries map[string][]byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, data := range entries {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestSquirrelDetectViaFirstResource(t *testing.T) {
	t.Parallel()

	nupkg := zipBytes(t, map[string][]byte{
		"AcmeApp.nuspec": []byte(acmeNuspec),
	})
	resourceZip := zipBytes(t, map[string][]byte{
		"AcmeApp-1.4.0-full.nupkg": nupkg,
	})
	data := append(make([]byte, 200), resourceZip...)

	pe := &winpe.File{
		Machine: winpe.MachineI386,
		Resources: []winpe.Resource{
			{Type: 10, ID: 1, Offset: 200, Length: uint32(len(resourceZip))},
		},
	}
	records, err := squirrelProbe{}.Detect(newTestTarget(data, pe))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, manifest.ScopeUser, records[0].Scope)
	assert.Equal(t, "AcmeApp", records[0].ProductCode)
	assert.Equal(t, `%LocalAppData%\AcmeApp`, records[0].InstallLocation)
	assert.Equal(t, "--silent", records[0].Switches.Silent)
	assert.Empty(t, records[0].Switches.Log, "squirrel has no log switch")
	require.Len(t, records[0].AppsAndFeatures, 1)
	assert.Equal(t, "Acme App", records[0].AppsAndFeatures[0].DisplayName)
	assert.Equal(t, "1.4.0", records[0].AppsAndFeatures[0].DisplayVersion)
}

func TestVelopackDetectViaOverlay(t *testing.T) {
	t.Parallel()

	nupkg := zipBytes(t, map[string][]byte{
		"AcmeApp.nuspec": []byte(acmeNuspec),
	})
	data := append(make([]byte, 300), nupkg...)

	pe := &winpe.File{Machine: winpe.MachineAMD64, OverlayOffset: 300}
	records, err := squirrelProbe{}.Detect(newTestTarget(data, pe))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, `--installto "<INSTALLPATH>"`, records[0].Switches.InstallLocation)
	assert.Equal(t, `--log "<LOGPATH>"`, records[0].Switches.Log)
}

func TestSquirrelDeclinesPlainResourceZip(t *testing.T) {
	t.Parallel()

	// custom installers store unrelated zips in the first resource too
	resourceZip := zipBytes(t, map[string][]byte{
		"readme.txt": []byte("no packages here"),
	})
	data := append(make([]byte, 100), resourceZip...)

	pe := &winpe.File{
		Machine:       winpe.MachineI386,
		OverlayOffset: -1,
		Resources: []winpe.Resource{
			{Type: 10, ID: 1, Offset: 100, Length: uint32(len(resourceZip))},
		},
	}
	_, err := squirrelProbe{}.Detect(newTestTarget(data, pe))
	assert.ErrorIs(t, err, ErrNotThisFormat)
}

func TestSquirrelDeclinesWithoutResources(t *testing.T) {
	t.Parallel()

	pe := &winpe.File{Machine: winpe.MachineI386, OverlayOffset: -1}
	_, err := squirrelProbe{}.Detect(newTestTarget([]byte("no resources"), pe))
	assert.ErrorIs(t, err, ErrNotThisFormat)
}
