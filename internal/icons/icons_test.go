package icons

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantmind-br/pkgprobe/internal/winpe"
)

// buildFixture lays out a fake image file containing icon images and one
// group-icon directory referencing them, and returns the matching PE model.
func buildFixture(t *testing.T, images map[uint32][]byte, memberIDs []uint16) (*winpe.File, []byte) {
	t.Helper()

	var data []byte
	pe := &winpe.File{}

	// header padding so offsets are non-zero
	data = append(data, make([]byte, 64)...)

	dims := map[uint32]byte{}
	var ids []uint32
	for id := range images {
		ids = append(ids, id)
	}
	for i := len(ids); i > 1; i-- { // deterministic order
		for j := 0; j < i-1; j++ {
			if ids[j] > ids[j+1] {
				ids[j], ids[j+1] = ids[j+1], ids[j]
			}
		}
	}
	for _, id := range ids {
		img := images[id]
		dims[id] = byte(16 * id)
		offset := int64(len(data))
		data = append(data, img...)
		pe.Resources = append(pe.Resources, winpe.Resource{
			Type:   winpe.ResourceTypeIcon,
			ID:     id,
			Offset: offset,
			Length: uint32(len(img)),
		})
	}

	group := make([]byte, 0, groupHeaderSize+len(memberIDs)*groupEntrySize)
	group = binary.LittleEndian.AppendUint16(group, 0) // reserved
	group = binary.LittleEndian.AppendUint16(group, 1) // type: icon
	group = binary.LittleEndian.AppendUint16(group, uint16(len(memberIDs)))
	for _, id := range memberIDs {
		entry := make([]byte, groupEntrySize)
		entry[0] = dims[uint32(id)] // width
		entry[1] = dims[uint32(id)] // height
		entry[2] = 0                // color count
		entry[3] = 0xAA             // reserved, must be re-zeroed
		binary.LittleEndian.PutUint16(entry[4:6], 1)  // planes
		binary.LittleEndian.PutUint16(entry[6:8], 32) // bit count
		binary.LittleEndian.PutUint32(entry[8:12], uint32(len(images[uint32(id)])))
		binary.LittleEndian.PutUint16(entry[12:14], id)
		group = append(group, entry...)
	}
	offset := int64(len(data))
	data = append(data, group...)
	pe.Resources = append(pe.Resources, winpe.Resource{
		Type:   winpe.ResourceTypeGroupIcon,
		ID:     100,
		Offset: offset,
		Length: uint32(len(group)),
	})

	return pe, data
}

// parseICO reads back a reconstructed icon file
func parseICO(t *testing.T, ico []byte) [][]byte {
	t.Helper()

	require.GreaterOrEqual(t, len(ico), groupHeaderSize)
	require.Equal(t, uint16(0), binary.LittleEndian.Uint16(ico[0:2]))
	require.Equal(t, uint16(1), binary.LittleEndian.Uint16(ico[2:4]))
	count := int(binary.LittleEndian.Uint16(ico[4:6]))

	var out [][]byte
	for i := 0; i < count; i++ {
		entry := ico[groupHeaderSize+i*icoEntrySize : groupHeaderSize+(i+1)*icoEntrySize]
		assert.Equal(t, byte(0), entry[3], "reserved byte must be zeroed")
		length := binary.LittleEndian.Uint32(entry[8:12])
		offset := binary.LittleEndian.Uint32(entry[12:16])
		require.LessOrEqual(t, int(offset+length), len(ico))
		out = append(out, ico[offset:offset+length])
	}
	return out
}

func TestReconstructRoundTrip(t *testing.T) {
	t.Parallel()

	images := map[uint32][]byte{
		1: bytes.Repeat([]byte{0x11}, 32),
		2: bytes.Repeat([]byte{0x22}, 64),
		3: bytes.Repeat([]byte{0x33}, 16),
	}
	pe, data := buildFixture(t, images, []uint16{1, 2, 3})

	set := Reconstruct(pe, data)
	require.Equal(t, 1, set.Len())

	asset := set.Assets()[0]
	assert.Equal(t, "ico", asset.FileType)

	payloads := parseICO(t, asset.Data)
	require.Len(t, payloads, 3)
	assert.Equal(t, images[1], payloads[0])
	assert.Equal(t, images[2], payloads[1])
	assert.Equal(t, images[3], payloads[2])
}

func TestReconstructSkipsUnresolvedMembers(t *testing.T) {
	t.Parallel()

	images := map[uint32][]byte{1: bytes.Repeat([]byte{0xCC}, 24)}
	pe, data := buildFixture(t, images, []uint16{1, 9})

	set := Reconstruct(pe, data)
	require.Equal(t, 1, set.Len())
	payloads := parseICO(t, set.Assets()[0].Data)
	require.Len(t, payloads, 1)
	assert.Equal(t, images[1], payloads[0])
}

func TestReconstructGroupWithNoMembers(t *testing.T) {
	t.Parallel()

	pe, data := buildFixture(t, map[uint32][]byte{}, []uint16{5, 6})
	set := Reconstruct(pe, data)
	assert.Equal(t, 0, set.Len())
}

func TestSetDeduplicatesAndOrdersByContent(t *testing.T) {
	t.Parallel()

	set := NewSet()
	set.Add(Asset{Data: []byte{0xFF, 0x00}, FileType: "ico"})
	set.Add(Asset{Data: []byte{0x01, 0x02}, FileType: "ico"})
	set.Add(Asset{Data: []byte{0xFF, 0x00}, FileType: "ico"})
	set.Add(Asset{Data: nil, FileType: "ico"})

	assert.Equal(t, 2, set.Len())
	assets := set.Assets()
	assert.Equal(t, []byte{0x01, 0x02}, assets[0].Data)
	assert.Equal(t, []byte{0xFF, 0x00}, assets[1].Data)
}
