package archive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
)

// Archive is an open, read-only archive handle.
// Callers must call Close when done.
type Archive struct {
	path   string
	reader *zip.ReadCloser
}

// Open opens the archive at path for reading.
// Any failure to open or recognize the file is reported as ErrArchiveNotFound.
func Open(path string) (*Archive, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrArchiveNotFound, path, err)
	}
	return &Archive{path: path, reader: rc}, nil
}

// Path returns the path the archive was opened from.
func (a *Archive) Path() string {
	return a.path
}

// Close releases the archive handle.
func (a *Archive) Close() error {
	return a.reader.Close()
}

// Entries returns the names of all entries in central directory order.
func (a *Archive) Entries() []string {
	names := make([]string, 0, len(a.reader.File))
	for _, f := range a.reader.File {
		names = append(names, f.Name)
	}
	return names
}

// lookup returns the entry with exactly the given name.
// When the name occurs more than once the last occurrence wins.
func (a *Archive) lookup(name string) (*zip.File, error) {
	var found *zip.File
	for _, f := range a.reader.File {
		if f.Name == name {
			found = f
		}
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %q in %s", ErrEntryNotFound, name, a.path)
	}
	return found, nil
}

// ReadEntry returns the decompressed content of the named entry.
func (a *Archive) ReadEntry(name string) ([]byte, error) {
	f, err := a.lookup(name)
	if err != nil {
		return nil, err
	}

	r, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open entry %q in %s: %w", name, a.path, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read entry %q in %s: %w", name, a.path, err)
	}
	return data, nil
}

// ExtractEntry writes the named entry below destinationDir, keeping the
// entry's directory structure, and returns the path of the written file.
// Missing directories are created.
func (a *Archive) ExtractEntry(name, destinationDir string) (string, error) {
	f, err := a.lookup(name)
	if err != nil {
		return "", err
	}

	target, err := safeJoin(destinationDir, f.Name)
	if err != nil {
		return "", err
	}

	if f.FileInfo().IsDir() {
		if err := os.MkdirAll(target, 0750); err != nil {
			return "", fmt.Errorf("failed to create directory %s: %w", target, err)
		}
		return target, nil
	}

	if err := os.MkdirAll(filepath.Dir(target), 0750); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", filepath.Dir(target), err)
	}

	r, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open entry %q in %s: %w", name, a.path, err)
	}
	defer r.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // target is checked by safeJoin
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", target, err)
	}

	if _, err := io.Copy(out, r); err != nil { //nolint:gosec // archives are user-supplied local inputs
		_ = out.Close()
		return "", fmt.Errorf("failed to extract entry %q to %s: %w", name, target, err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", target, err)
	}

	return target, nil
}

// safeJoin joins an entry name onto dir and rejects names that would
// resolve outside of dir.
func safeJoin(dir, entryName string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(entryName))
	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrUnsafeEntryPath, entryName)
	}
	return filepath.Join(dir, cleaned), nil
}

// ReadEntry opens the archive at archivePath, reads the named entry and
// closes the archive again.
func ReadEntry(archivePath, entryName string) ([]byte, error) {
	a, err := Open(archivePath)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	return a.ReadEntry(entryName)
}

// ExtractEntry opens the archive at archivePath, writes the named entry
// below destinationDir and closes the archive again.
// It returns the path of the extracted file.
func ExtractEntry(archivePath, entryName, destinationDir string) (string, error) {
	a, err := Open(archivePath)
	if err != nil {
		return "", err
	}
	defer a.Close()

	return a.ExtractEntry(entryName, destinationDir)
}
