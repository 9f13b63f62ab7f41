package model

import (
	"path/filepath"
	"strings"
	"time"
)

// ArchivePair names the two archives of one comparison.
type ArchivePair struct {
	// Previous is the path of the older release scan archive.
	Previous string `json:"previous"`

	// Current is the path of the newer release scan archive.
	Current string `json:"current"`
}

// OutputPath returns the default result file path for the pair:
// both archive paths joined by an underscore, followed by suffix.
func (p ArchivePair) OutputPath(suffix string) string {
	return p.Previous + "_" + p.Current + suffix
}

// SameArchive reports whether both sides name the same archive path.
// Such a pair is still compared; its delta is empty unless the archive
// repeats instance IDs.
func (p ArchivePair) SameArchive() bool {
	return filepath.Clean(p.Previous) == filepath.Clean(p.Current)
}

// ScanSide holds everything loaded from one archive of the pair.
type ScanSide struct {
	// Path is the archive path as given by the user.
	Path string `json:"path"`

	// FindingsBytes is the size of the decompressed findings document.
	FindingsBytes int `json:"findings_bytes"`

	// AuditBytes is the size of the decompressed audit document.
	AuditBytes int `json:"audit_bytes"`

	// Digest is the hex BLAKE2b-256 digest of the findings document.
	Digest string `json:"digest,omitempty"`

	// ExtractDir is where the entries were materialized, if extraction ran.
	ExtractDir string `json:"extract_dir,omitempty"`

	// Findings is the parsed findings collection in document order.
	Findings []Finding `json:"-"`

	// raw is the findings document kept between the load and parse steps.
	raw []byte
}

// SetRaw stores the findings document bytes for the parse step.
func (s *ScanSide) SetRaw(raw []byte) {
	s.raw = raw
	s.FindingsBytes = len(raw)
}

// Raw returns the findings document bytes stored by SetRaw.
func (s *ScanSide) Raw() []byte {
	return s.raw
}

// ReleaseRaw drops the findings document once it has been parsed.
func (s *ScanSide) ReleaseRaw() {
	s.raw = nil
}

// Comparison is the state of one previous/current comparison run.
// Pipeline steps fill it in order; once a step fails the remaining steps
// are skipped and Error records the failure.
type Comparison struct {
	// Pair is the archive pair being compared.
	Pair ArchivePair `json:"pair"`

	// StartedAt is when the comparison began.
	StartedAt time.Time `json:"started_at"`

	// Previous is the data loaded from the previous archive.
	Previous ScanSide `json:"previous"`

	// Current is the data loaded from the current archive.
	Current ScanSide `json:"current"`

	// Delta is the computed delta report, nil until the diff step ran.
	Delta *DeltaReport `json:"delta,omitempty"`

	// OutputPath is the CSV file written by the write step.
	OutputPath string `json:"output_path,omitempty"`

	// UploadLocation is the object URL if the CSV was uploaded.
	UploadLocation string `json:"upload_location,omitempty"`

	// HistoryID is the history database row ID if the comparison was saved.
	HistoryID int64 `json:"history_id,omitempty"`

	// PerformedSteps lists the names of the steps that completed.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// Error is the failure that stopped the pipeline, if any.
	Error error `json:"-"`

	// ErrorMessage is Error rendered as text for serialization.
	ErrorMessage string `json:"error,omitempty"`
}

// NewComparison creates a Comparison for the given pair.
func NewComparison(pair ArchivePair) *Comparison {
	return &Comparison{
		Pair:      pair,
		StartedAt: time.Now(),
		Previous:  ScanSide{Path: pair.Previous},
		Current:   ScanSide{Path: pair.Current},
	}
}

// Side returns the scan side for the given origin.
// OriginWentAway selects the previous archive, OriginNewFindings the current one.
func (c *Comparison) Side(origin Origin) *ScanSide {
	if origin == OriginWentAway {
		return &c.Previous
	}
	return &c.Current
}

// Failed reports whether a step failed.
func (c *Comparison) Failed() bool {
	return c.Error != nil
}

// ExtractDirName returns the directory entries of an archive are extracted to:
// prefix followed by the archive path with its ".fpr" extension removed.
func ExtractDirName(prefix, archivePath string) string {
	return prefix + strings.TrimSuffix(archivePath, ".fpr")
}
