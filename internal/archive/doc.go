// Package archive reads entries out of Fortify project result (.fpr) archives.
//
// An FPR file is a ZIP container. fprdiff needs two of its entries: the FVDL
// findings document (audit.fvdl) and the audit document (audit.xml). Entries
// can be read into memory or materialized on disk for later inspection.
//
// Archive handles are always released before the package-level helpers
// return, including when the requested entry does not exist.
package archive
