// Package database provides SQLite-based storage for fprdiff.
//
// The HistoryDB keeps one row per saved comparison: the archive paths, the
// digests of both findings documents, the delta counts and the complete
// comparison as JSON so that a past result can be rendered again without
// the archives.
//
// SQLite is used through modernc.org/sqlite, a CGO-free driver, so the
// database is a single file and the binary cross-compiles without a C
// toolchain.
package database
