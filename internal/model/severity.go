package model

import (
	"strconv"
	"strings"
)

// Severity represents the summary level of a finding.
// Fortify reports severity as a numeric score; reports group findings
// into these levels for the per-origin summaries.
type Severity int

const (
	// SeverityInfo is used for scores below 1.0 and for values that are not numbers.
	SeverityInfo Severity = iota

	// SeverityLow covers scores from 1.0 up to 2.0.
	SeverityLow

	// SeverityMedium covers scores from 2.0 up to 3.0.
	SeverityMedium

	// SeverityHigh covers scores from 3.0 up to 4.0.
	SeverityHigh

	// SeverityCritical covers scores of 4.0 and above.
	SeverityCritical
)

// Severities lists every level from most to least severe.
// Report writers iterate over it to print summaries in a stable order.
var Severities = []Severity{
	SeverityCritical,
	SeverityHigh,
	SeverityMedium,
	SeverityLow,
	SeverityInfo,
}

// String returns a human-readable representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// SeverityFromScore converts a numeric-as-string severity score into a level.
// Surrounding whitespace is ignored. Values that do not parse as a number
// map to SeverityInfo rather than failing, since the score is only used
// for summaries and never for the diff itself.
func SeverityFromScore(score string) Severity {
	v, err := strconv.ParseFloat(strings.TrimSpace(score), 64)
	if err != nil {
		return SeverityInfo
	}

	switch {
	case v >= 4.0:
		return SeverityCritical
	case v >= 3.0:
		return SeverityHigh
	case v >= 2.0:
		return SeverityMedium
	case v >= 1.0:
		return SeverityLow
	default:
		return SeverityInfo
	}
}
