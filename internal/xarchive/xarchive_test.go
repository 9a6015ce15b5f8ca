package xarchive

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildZip(t *testing.T, entries map[string][]byte) []byte {
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

func TestOpenZipRoundTrip(t *testing.T) {
	t.Parallel()

	data := buildZip(t, map[string][]byte{
		"payload/app.msi": []byte("msi-bytes"),
		"readme.txt":      []byte("hello"),
	})

	r, err := OpenZip(data)
	require.NoError(t, err)
	assert.Len(t, r.Names(), 2)

	content, err := r.Open("payload/app.msi")
	require.NoError(t, err)
	assert.Equal(t, []byte("msi-bytes"), content)

	_, err = r.Open("missing")
	assert.Error(t, err)
}

func TestOpenZipRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := OpenZip([]byte("definitely not a zip"))
	assert.Error(t, err)
}

func TestOpenSevenZipRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := OpenSevenZip([]byte("definitely not a 7z"))
	assert.Error(t, err)
}
