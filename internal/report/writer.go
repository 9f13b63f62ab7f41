package report

import (
	"io"

	"github.com/nao1215/fprdiff/internal/model"
)

// Writer defines the interface for report output.
// Implementations write comparison results in various formats.
type Writer interface {
	// Write outputs the comparison to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(c *model.Comparison) (int, error)
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// Summary condenses a comparison into counts.
// It is shared by the text, JSON and Markdown writers.
type Summary struct {
	// Previous is the previous archive path.
	Previous string `json:"previous"`

	// Current is the current archive path.
	Current string `json:"current"`

	// PreviousCount is the number of findings parsed from the previous archive.
	PreviousCount int `json:"previous_count"`

	// CurrentCount is the number of findings parsed from the current archive.
	CurrentCount int `json:"current_count"`

	// WentAway is the number of findings only present in the previous archive.
	WentAway int `json:"went_away"`

	// NewFindings is the number of findings only present in the current archive.
	NewFindings int `json:"new_findings"`

	// Dropped is the number of rows removed because their instance ID was not unique.
	Dropped int `json:"dropped"`

	// WentAwayBySeverity counts went_away rows per severity label.
	WentAwayBySeverity map[string]int `json:"went_away_by_severity"`

	// NewBySeverity counts new_findings rows per severity label.
	NewBySeverity map[string]int `json:"new_by_severity"`

	// OutputPath is the CSV file holding the delta.
	OutputPath string `json:"output_path,omitempty"`

	// Error is the failure message of a failed comparison.
	Error string `json:"error,omitempty"`
}

// NewSummary builds a Summary from a comparison.
// A comparison that failed before the diff step yields zero counts.
func NewSummary(c *model.Comparison) *Summary {
	s := &Summary{
		Previous:           c.Pair.Previous,
		Current:            c.Pair.Current,
		WentAwayBySeverity: make(map[string]int, len(model.Severities)),
		NewBySeverity:      make(map[string]int, len(model.Severities)),
		OutputPath:         c.OutputPath,
		Error:              errorText(c),
	}

	for _, sev := range model.Severities {
		s.WentAwayBySeverity[sev.String()] = 0
		s.NewBySeverity[sev.String()] = 0
	}

	if c.Delta == nil {
		return s
	}

	s.PreviousCount = c.Delta.PreviousCount
	s.CurrentCount = c.Delta.CurrentCount
	s.WentAway = len(c.Delta.WentAway())
	s.NewFindings = len(c.Delta.NewFindings())
	s.Dropped = c.Delta.DroppedCount

	for sev, n := range c.Delta.CountBySeverity(model.OriginWentAway) {
		s.WentAwayBySeverity[sev.String()] = n
	}
	for sev, n := range c.Delta.CountBySeverity(model.OriginNewFindings) {
		s.NewBySeverity[sev.String()] = n
	}

	return s
}

// errorText returns the comparison failure as text.
// Comparisons loaded from history only carry ErrorMessage.
func errorText(c *model.Comparison) string {
	if c.Error != nil {
		return c.Error.Error()
	}
	return c.ErrorMessage
}
