// Package icons rebuilds self-contained .ico files from PE resource
// fragments. Group-icon directory entries store member ids and lengths, not
// the absolute file offsets the ICO format needs, so every group is re-laid
// out with freshly computed offsets.
package icons

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"sort"

	"github.com/quantmind-br/pkgprobe/internal/winpe"
)

const (
	groupHeaderSize = 6
	groupEntrySize  = 14
	icoEntrySize    = 16
)

// Asset is one reconstructed icon file
type Asset struct {
	Data     []byte
	FileType string
}

// Set is a content-deduplicated collection of icon assets, ordered by
// content so identical inputs always enumerate identically.
type Set struct {
	seen   map[[sha256.Size]byte]struct{}
	assets []Asset
}

// NewSet returns an empty icon set
func NewSet() *Set {
	return &Set{seen: map[[sha256.Size]byte]struct{}{}}
}

// Add inserts an asset unless an identical one is already present
func (s *Set) Add(asset Asset) {
	if len(asset.Data) == 0 {
		return
	}
	sum := sha256.Sum256(asset.Data)
	if _, ok := s.seen[sum]; ok {
		return
	}
	s.seen[sum] = struct{}{}
	s.assets = append(s.assets, asset)
}

// Merge adds every asset of other into s
func (s *Set) Merge(other *Set) {
	if other == nil {
		return
	}
	for _, asset := range other.assets {
		s.Add(asset)
	}
}

// Len returns the number of distinct assets
func (s *Set) Len() int {
	return len(s.assets)
}

// Assets returns the assets in content order
func (s *Set) Assets() []Asset {
	out := append([]Asset(nil), s.assets...)
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Data, out[j].Data) < 0
	})
	return out
}

// Reconstruct walks every RT_GROUP_ICON resource of the image and emits one
// .ico asset per group whose members resolve. Groups with no resolvable
// member are skipped, never an error.
func Reconstruct(pe *winpe.File, data []byte) *Set {
	set := NewSet()
	if pe == nil {
		return set
	}

	images := map[uint32][]byte{}
	for _, res := range pe.ResourcesOfType(winpe.ResourceTypeIcon) {
		if payload := slice(data, res.Offset, res.Length); payload != nil {
			images[res.ID] = payload
		}
	}

	for _, res := range pe.ResourcesOfType(winpe.ResourceTypeGroupIcon) {
		group := slice(data, res.Offset, res.Length)
		if ico := rebuildGroup(group, images); ico != nil {
			set.Add(Asset{Data: ico, FileType: "ico"})
		}
	}
	return set
}

// rebuildGroup turns one RT_GROUP_ICON directory plus the icon-image index
// into a standalone ICO byte stream.
func rebuildGroup(group []byte, images map[uint32][]byte) []byte {
	if len(group) < groupHeaderSize {
		return nil
	}
	count := int(binary.LittleEndian.Uint16(group[4:6]))

	type member struct {
		entry []byte
		data  []byte
	}
	var members []member
	for i := 0; i < count; i++ {
		start := groupHeaderSize + i*groupEntrySize
		if start+groupEntrySize > len(group) {
			break
		}
		entry := group[start : start+groupEntrySize]
		id := uint32(binary.LittleEndian.Uint16(entry[12:14]))
		if data, ok := images[id]; ok {
			members = append(members, member{entry: entry, data: data})
		}
	}
	if len(members) == 0 {
		return nil
	}

	total := groupHeaderSize + len(members)*icoEntrySize
	for _, m := range members {
		total += len(m.data)
	}

	ico := make([]byte, 0, total)
	ico = append(ico, group[0:4]...) // reserved + type
	ico = binary.LittleEndian.AppendUint16(ico, uint16(len(members)))

	dataOffset := uint32(groupHeaderSize + len(members)*icoEntrySize)
	for _, m := range members {
		// width, height, color count; reserved re-zeroed
		ico = append(ico, m.entry[0], m.entry[1], m.entry[2], 0)
		ico = append(ico, m.entry[4:8]...) // planes + bit count
		ico = binary.LittleEndian.AppendUint32(ico, uint32(len(m.data)))
		ico = binary.LittleEndian.AppendUint32(ico, dataOffset)
		dataOffset += uint32(len(m.data))
	}
	for _, m := range members {
		ico = append(ico, m.data...)
	}
	return ico
}

func slice(data []byte, offset int64, length uint32) []byte {
	if offset <= 0 || offset+int64(length) > int64(len(data)) {
		return nil
	}
	return data[offset : offset+int64(length)]
}
