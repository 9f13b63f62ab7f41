package archive

import "errors"

// Archive errors.
// They are wrapped with the archive path and entry name so that the
// diagnostic identifies the failing input, and can be matched with errors.Is.
var (
	// ErrArchiveNotFound is returned when the path does not resolve to a
	// readable ZIP archive (missing file, permission problem, not a ZIP).
	ErrArchiveNotFound = errors.New("archive not found or not readable")

	// ErrEntryNotFound is returned when the named entry is absent from the
	// archive's central directory.
	ErrEntryNotFound = errors.New("entry not found in archive")

	// ErrUnsafeEntryPath is returned when extracting an entry whose name
	// would place it outside the destination directory.
	ErrUnsafeEntryPath = errors.New("entry path escapes destination directory")
)
