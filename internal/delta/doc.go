// Package delta computes which findings appeared and disappeared between
// two scans.
//
// The comparison is presence-only and keyed by instance ID: the previous and
// current collections are tagged with their origin, concatenated, and every
// row whose instance ID occurs more than once in the combined table is
// dropped. Whatever survives is either a finding that went away or a new
// finding. A duplicated instance ID within one collection is dropped the same
// way as one shared by both collections.
package delta
