package fsops

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDirAndExists(t *testing.T) {
	fs := afero.NewMemMapFs()

	require.NoError(t, EnsureDir(fs, "/data/icons", 0755))
	assert.True(t, Exists(fs, "/data/icons"))
	assert.True(t, IsDir(fs, "/data/icons"))
	assert.False(t, Exists(fs, "/data/missing"))
	assert.False(t, IsDir(fs, "/data/missing"))
}

func TestReadWriteRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()

	require.NoError(t, WriteFile(fs, "/out/nested/icon-1.ico", []byte{0x00, 0x01}, 0644))

	data, err := ReadFile(fs, "/out/nested/icon-1.ico")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x01}, data)
}

func TestReadFileMissing(t *testing.T) {
	fs := afero.NewMemMapFs()

	_, err := ReadFile(fs, "/nope.exe")
	assert.Error(t, err)
}

func TestCheckWritable(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, EnsureDir(fs, "/data", 0755))

	assert.NoError(t, CheckWritable(fs, "/data"))
	assert.False(t, Exists(fs, "/data/.write_test"))

	readonly := afero.NewReadOnlyFs(fs)
	assert.Error(t, CheckWritable(readonly, "/data"))
}
