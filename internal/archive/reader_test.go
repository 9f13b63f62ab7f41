package archive

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/klauspost/compress/zip"
)

// entry is a name/content pair written into a test archive.
type entry struct {
	name    string
	content string
}

// writeTestArchive creates a ZIP archive with the given entries in dir.
func writeTestArchive(t *testing.T, dir, name string, entries ...entry) string {
	t.Helper()

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create archive: %v", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, e := range entries {
		w, err := zw.Create(e.name)
		if err != nil {
			t.Fatalf("failed to create entry %q: %v", e.name, err)
		}
		if _, err := w.Write([]byte(e.content)); err != nil {
			t.Fatalf("failed to write entry %q: %v", e.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to close zip writer: %v", err)
	}
	return path
}

// TestReadEntry tests reading entries through the package-level helper.
func TestReadEntry(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeTestArchive(t, dir, "scan.fpr",
		entry{name: "audit.fvdl", content: "<FVDL/>"},
		entry{name: "audit.xml", content: "<Audit/>"},
	)

	t.Run("returns entry content", func(t *testing.T) {
		t.Parallel()

		data, err := ReadEntry(path, "audit.fvdl")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(data) != "<FVDL/>" {
			t.Errorf("expected <FVDL/>, got %q", data)
		}
	})

	t.Run("missing entry returns ErrEntryNotFound", func(t *testing.T) {
		t.Parallel()

		_, err := ReadEntry(path, "missing.fvdl")
		if !errors.Is(err, ErrEntryNotFound) {
			t.Fatalf("expected ErrEntryNotFound, got %v", err)
		}
	})

	t.Run("entry names match exactly", func(t *testing.T) {
		t.Parallel()

		_, err := ReadEntry(path, "AUDIT.FVDL")
		if !errors.Is(err, ErrEntryNotFound) {
			t.Fatalf("expected ErrEntryNotFound, got %v", err)
		}
	})

	t.Run("missing archive returns ErrArchiveNotFound", func(t *testing.T) {
		t.Parallel()

		_, err := ReadEntry(filepath.Join(dir, "nope.fpr"), "audit.fvdl")
		if !errors.Is(err, ErrArchiveNotFound) {
			t.Fatalf("expected ErrArchiveNotFound, got %v", err)
		}
	})
}

// TestOpen_NotAZip tests that a non-ZIP file is reported as not found.
func TestOpen_NotAZip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "plain.fpr")
	if err := os.WriteFile(path, []byte("not a zip"), 0600); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	_, err := Open(path)
	if !errors.Is(err, ErrArchiveNotFound) {
		t.Fatalf("expected ErrArchiveNotFound, got %v", err)
	}
}

// TestArchive_Entries tests listing and duplicate-name resolution.
func TestArchive_Entries(t *testing.T) {
	t.Parallel()

	path := writeTestArchive(t, t.TempDir(), "dup.fpr",
		entry{name: "audit.fvdl", content: "first"},
		entry{name: "audit.xml", content: "audit"},
		entry{name: "audit.fvdl", content: "second"},
	)

	a, err := Open(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer a.Close()

	want := []string{"audit.fvdl", "audit.xml", "audit.fvdl"}
	if got := a.Entries(); !reflect.DeepEqual(got, want) {
		t.Errorf("Entries() = %v, want %v", got, want)
	}

	data, err := a.ReadEntry("audit.fvdl")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "second" {
		t.Errorf("expected last duplicate to win, got %q", data)
	}
	if a.Path() != path {
		t.Errorf("Path() = %q, want %q", a.Path(), path)
	}
}

// TestExtractEntry tests materializing entries on disk.
func TestExtractEntry(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeTestArchive(t, dir, "scan.fpr",
		entry{name: "audit.fvdl", content: "<FVDL/>"},
		entry{name: "src-archive/index.xml", content: "<Index/>"},
	)

	t.Run("writes entry to destination", func(t *testing.T) {
		t.Parallel()

		dest := filepath.Join(dir, "out1")
		written, err := ExtractEntry(path, "audit.fvdl", dest)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if written != filepath.Join(dest, "audit.fvdl") {
			t.Errorf("unexpected path %q", written)
		}
		data, err := os.ReadFile(written)
		if err != nil {
			t.Fatalf("failed to read extracted file: %v", err)
		}
		if string(data) != "<FVDL/>" {
			t.Errorf("expected <FVDL/>, got %q", data)
		}
	})

	t.Run("creates nested directories", func(t *testing.T) {
		t.Parallel()

		dest := filepath.Join(dir, "out2")
		written, err := ExtractEntry(path, "src-archive/index.xml", dest)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if written != filepath.Join(dest, "src-archive", "index.xml") {
			t.Errorf("unexpected path %q", written)
		}
	})

	t.Run("missing entry writes nothing", func(t *testing.T) {
		t.Parallel()

		dest := filepath.Join(dir, "out4")
		_, err := ExtractEntry(path, "audit.xml", dest)
		if !errors.Is(err, ErrEntryNotFound) {
			t.Fatalf("expected ErrEntryNotFound, got %v", err)
		}
		if _, err := os.Stat(dest); !os.IsNotExist(err) {
			t.Error("expected destination not to be created")
		}
	})
}

// TestSafeJoin tests destination path validation.
func TestSafeJoin(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		entry   string
		wantErr bool
	}{
		{name: "plain name", entry: "audit.fvdl", wantErr: false},
		{name: "nested name", entry: "a/b/c.xml", wantErr: false},
		{name: "inner dotdot resolving inside", entry: "a/../b.xml", wantErr: false},
		{name: "parent traversal", entry: "../b.xml", wantErr: true},
		{name: "deep traversal", entry: "a/../../b.xml", wantErr: true},
		{name: "bare dotdot", entry: "..", wantErr: true},
		{name: "absolute path", entry: "/etc/passwd", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := safeJoin("dest", tt.entry)
			if tt.wantErr && !errors.Is(err, ErrUnsafeEntryPath) {
				t.Errorf("expected ErrUnsafeEntryPath for %q, got %v", tt.entry, err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error for %q: %v", tt.entry, err)
			}
		})
	}
}
