// Package pipeline runs one archive comparison as an ordered list of steps.
//
// A comparison loads the previous and current archives, parses both
// findings documents, computes the delta and writes the result file.
// Saving to the history database and uploading the result are optional
// steps appended to the same pipeline. Every step receives the shared
// model.Comparison and fills in its part of it; the first failing step
// stops the run and is recorded on the comparison.
//
// BatchProcessor compares several independent archive pairs concurrently
// with a bounded number of goroutines.
package pipeline
