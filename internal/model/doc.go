// Package model defines the core data structures used throughout fprdiff.
//
// This package contains the following main types:
//   - Finding: One normalized result read from a Fortify FVDL document
//   - DeltaReport: The presence-only difference between two finding collections
//   - Comparison: Per-run state carried through the comparison pipeline
//   - Severity: Summary buckets for the numeric Fortify severity score
//
// Models live in their own package so that the extractor, the delta engine,
// the report writers and the history database can share them without import
// cycles. They are serializable to JSON for reports and database storage.
package model
