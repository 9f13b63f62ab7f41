package model

// Finding is one security-scan result instance read from a findings document.
// Every field holds the raw string found in the document; a Finding is only
// built once all seven values have been located, and it is not mutated afterwards.
type Finding struct {
	// ClassID identifies the rule that produced the finding.
	ClassID string `json:"class_id"`

	// Kingdom is the high-level vulnerability taxonomy grouping.
	Kingdom string `json:"kingdom"`

	// Type is the finding category label.
	Type string `json:"type"`

	// InstanceID identifies this occurrence within one scan.
	// It is unique within a collection and is the only key used to
	// correlate findings across scans.
	InstanceID string `json:"instance_id"`

	// Severity is the numeric-as-string instance severity (e.g. "3.0").
	Severity string `json:"severity"`

	// Confidence is the numeric-as-string confidence rating.
	Confidence string `json:"confidence"`

	// SourceLocation is the file path where the finding was detected.
	SourceLocation string `json:"source_location"`
}

// SeverityLevel buckets the finding's raw severity score.
func (f Finding) SeverityLevel() Severity {
	return SeverityFromScore(f.Severity)
}

// Fields returns the seven attributes in their defined column order.
func (f Finding) Fields() []string {
	return []string{
		f.ClassID,
		f.Kingdom,
		f.Type,
		f.InstanceID,
		f.Severity,
		f.Confidence,
		f.SourceLocation,
	}
}

// FindingColumns names the values returned by Finding.Fields, in the same order.
var FindingColumns = []string{
	"class_id",
	"kingdom",
	"type",
	"instance_id",
	"severity",
	"confidence",
	"source_location",
}
