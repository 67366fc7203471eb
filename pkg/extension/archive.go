package extension

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"sort"
)

// FileEntry pairs an archive-relative path with the raw file content.
type FileEntry struct {
	Path    string
	Content []byte
}

// Archive is an opened extension package held in memory.
type Archive struct {
	files map[string]*zip.File
	order []string
}

// OpenArchive opens a zip archive from memory.
func OpenArchive(data []byte) (*Archive, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	a := &Archive{files: make(map[string]*zip.File)}
	for _, f := range reader.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if _, seen := a.files[f.Name]; !seen {
			a.order = append(a.order, f.Name)
		}
		a.files[f.Name] = f
	}
	return a, nil
}

// File reads one entry by its exact archive path. The second return is
// false when the entry does not exist.
func (a *Archive) File(path string) ([]byte, bool, error) {
	f, ok := a.files[path]
	if !ok {
		return nil, false, nil
	}
	content, err := readEntry(f)
	if err != nil {
		return nil, true, err
	}
	return content, true, nil
}

// Entries reads every non-directory entry into memory, sorted by path.
func (a *Archive) Entries() ([]FileEntry, error) {
	paths := make([]string, len(a.order))
	copy(paths, a.order)
	sort.Strings(paths)

	entries := make([]FileEntry, 0, len(paths))
	for _, p := range paths {
		content, err := readEntry(a.files[p])
		if err != nil {
			return nil, fmt.Errorf("failed to read archive entry %q: %w", p, err)
		}
		entries = append(entries, FileEntry{Path: p, Content: content})
	}
	return entries, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
