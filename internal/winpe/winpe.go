// Package winpe wraps the low-level PE reader behind the small model the
// probes consume: machine type, section table, flattened resource entries,
// overlay offset and version-resource strings.
package winpe

import (
	"fmt"
	"sort"
	"strings"

	peparser "github.com/saferwall/pe"

	"github.com/quantmind-br/pkgprobe/internal/manifest"
)

// Resource type ids from the PE resource directory
const (
	ResourceTypeIcon      = 3
	ResourceTypeGroupIcon = 14
	ResourceTypeVersion   = 16
)

// Machine values from the COFF file header
const (
	MachineI386  = 0x014C
	MachineAMD64 = 0x8664
	MachineArm   = 0x01C0
	MachineArmNT = 0x01C4
	MachineArm64 = 0xAA64
)

// Section is one section header, file-offset based
type Section struct {
	Name           string
	VirtualAddress uint32
	Offset         uint32
	Size           uint32
}

// Resource is one leaf entry of the resource directory, flattened to
// (type, id, language) with its absolute file offset
type Resource struct {
	Type   uint32
	ID     uint32
	Name   string
	Lang   uint32
	Offset int64
	Length uint32
}

// File is the parsed PE model
type File struct {
	Machine         uint16
	Is64            bool
	Sections        []Section
	Resources       []Resource
	VersionInfo     map[string]string
	OverlayOffset   int64 // -1 when the image has no overlay
	CertTableOffset int64 // file offset of the certificate table, 0 when absent
	Size            int64
}

// Parse reads an in-memory PE image into the probe-facing model.
// Version-resource parse failures degrade to an empty map; the rest of the
// model is still usable.
func Parse(data []byte) (*File, error) {
	raw, err := peparser.NewBytes(data, &peparser.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pe: %w", err)
	}
	defer raw.Close()
	if err := raw.Parse(); err != nil {
		return nil, fmt.Errorf("parse pe: %w", err)
	}

	f := &File{
		Machine:       uint16(raw.NtHeader.FileHeader.Machine),
		Is64:          raw.Is64,
		VersionInfo:   map[string]string{},
		OverlayOffset: -1,
		Size:          int64(len(data)),
	}

	for _, sec := range raw.Sections {
		f.Sections = append(f.Sections, Section{
			Name:           strings.TrimRight(string(sec.Header.Name[:]), "\x00"),
			VirtualAddress: sec.Header.VirtualAddress,
			Offset:         sec.Header.PointerToRawData,
			Size:           sec.Header.SizeOfRawData,
		})
	}

	if end := sectionEnd(f.Sections); end > 0 && end < f.Size {
		f.OverlayOffset = end
	}
	f.CertTableOffset = certTableOffset(raw)

	f.Resources = flattenResources(raw)
	if vi, err := raw.ParseVersionResources(); err == nil {
		f.VersionInfo = vi
	}

	return f, nil
}

// Architecture maps the COFF machine type to the manifest architecture,
// defaulting to neutral for machine types the pipeline does not target.
func (f *File) Architecture() manifest.Architecture {
	switch f.Machine {
	case MachineI386:
		return manifest.ArchX86
	case MachineAMD64:
		return manifest.ArchX64
	case MachineArm, MachineArmNT:
		return manifest.ArchArm
	case MachineArm64:
		return manifest.ArchArm64
	default:
		return manifest.ArchNeutral
	}
}

// VersionValue looks up a version-resource string by key, empty when absent
func (f *File) VersionValue(key string) string {
	return f.VersionInfo[key]
}

// Section returns the section with the exact name
func (f *File) Section(name string) (Section, bool) {
	for _, sec := range f.Sections {
		if sec.Name == name {
			return sec, true
		}
	}
	return Section{}, false
}

// HasSection reports whether a section with the exact name exists
func (f *File) HasSection(name string) bool {
	_, ok := f.Section(name)
	return ok
}

// ResourcesOfType returns the leaf resources of one resource type,
// in directory order
func (f *File) ResourcesOfType(typ uint32) []Resource {
	var out []Resource
	for _, res := range f.Resources {
		if res.Type == typ {
			out = append(out, res)
		}
	}
	return out
}

func sectionEnd(sections []Section) int64 {
	var end int64
	for _, sec := range sections {
		if sec.Size == 0 {
			continue
		}
		if e := int64(sec.Offset) + int64(sec.Size); e > end {
			end = e
		}
	}
	return end
}

// certTableOffset returns the raw offset of the Authenticode certificate
// table. Unlike every other data directory, its VirtualAddress field already
// holds a file offset.
func certTableOffset(raw *peparser.File) int64 {
	switch hdr := raw.NtHeader.OptionalHeader.(type) {
	case peparser.ImageOptionalHeader64:
		return int64(hdr.DataDirectory[peparser.ImageDirectoryEntryCertificate].VirtualAddress)
	case peparser.ImageOptionalHeader32:
		return int64(hdr.DataDirectory[peparser.ImageDirectoryEntryCertificate].VirtualAddress)
	default:
		return 0
	}
}

func flattenResources(raw *peparser.File) []Resource {
	var out []Resource
	for _, typeEntry := range raw.Resources.Entries {
		for _, nameEntry := range typeEntry.Directory.Entries {
			for _, langEntry := range nameEntry.Directory.Entries {
				data := langEntry.Data.Struct
				if data.Size == 0 {
					continue
				}
				offset := raw.GetOffsetFromRva(data.OffsetToData)
				out = append(out, Resource{
					Type:   typeEntry.ID,
					ID:     nameEntry.ID,
					Name:   nameEntry.Name,
					Lang:   langEntry.ID,
					Offset: int64(offset),
					Length: data.Size,
				})
			}
		}
	}
	// directory order is already deterministic; keep a stable sort as the
	// contract for content-ordered consumers
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].ID < out[j].ID
	})
	return out
}
