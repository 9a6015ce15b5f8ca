// Package xarchive is the archive collaborator boundary: probes only ever
// need name-indexed lookup and whole-entry decompression over an in-memory
// container.
package xarchive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"

	"github.com/bodgit/sevenzip"
)

// Reader enumerates and decompresses the entries of one archive
type Reader interface {
	// Names returns every entry name in archive order
	Names() []string
	// Open decompresses one entry by exact name
	Open(name string) ([]byte, error)
}

// zipReader adapts archive/zip to the Reader contract
type zipReader struct {
	archive *zip.Reader
}

// OpenZip opens an in-memory zip container
func OpenZip(data []byte) (Reader, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	return &zipReader{archive: archive}, nil
}

func (z *zipReader) Names() []string {
	names := make([]string, 0, len(z.archive.File))
	for _, f := range z.archive.File {
		names = append(names, f.Name)
	}
	return names
}

func (z *zipReader) Open(name string) ([]byte, error) {
	f, err := z.archive.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open zip entry %q: %w", name, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read zip entry %q: %w", name, err)
	}
	return data, nil
}

// sevenZipReader adapts bodgit/sevenzip to the Reader contract
type sevenZipReader struct {
	archive *sevenzip.Reader
}

// OpenSevenZip opens an in-memory 7z container
func OpenSevenZip(data []byte) (Reader, error) {
	archive, err := sevenzip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open 7z: %w", err)
	}
	return &sevenZipReader{archive: archive}, nil
}

func (s *sevenZipReader) Names() []string {
	names := make([]string, 0, len(s.archive.File))
	for _, f := range s.archive.File {
		names = append(names, f.Name)
	}
	return names
}

func (s *sevenZipReader) Open(name string) ([]byte, error) {
	for _, f := range s.archive.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open 7z entry %q: %w", name, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("read 7z entry %q: %w", name, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("7z entry %q not found", name)
}
