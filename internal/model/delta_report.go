package model

// Origin tags a row of the delta report with the scan it came from.
type Origin string

const (
	// OriginWentAway marks findings present only in the previous scan.
	OriginWentAway Origin = "went_away"

	// OriginNewFindings marks findings present only in the current scan.
	OriginNewFindings Origin = "new_findings"
)

// String returns the origin label as written to reports.
func (o Origin) String() string {
	return string(o)
}

// DeltaRow is one surviving row of the combined previous+current table.
type DeltaRow struct {
	// Origin is the scan the finding was read from.
	Origin Origin `json:"origin"`

	// Index is the row's position inside its origin group of the combined table.
	Index int `json:"index"`

	// Finding is the finding itself.
	Finding Finding `json:"finding"`
}

// DeltaReport is the presence-only difference between two finding collections.
// Rows keep the combined order: previous-tagged rows first, then current-tagged
// rows, each group in input order.
type DeltaReport struct {
	// Rows holds every row whose instance ID occurs exactly once in the combined table.
	Rows []DeltaRow `json:"rows"`

	// PreviousCount is the number of findings in the previous collection.
	PreviousCount int `json:"previous_count"`

	// CurrentCount is the number of findings in the current collection.
	CurrentCount int `json:"current_count"`

	// DroppedCount is the number of combined rows removed because their
	// instance ID occurred more than once.
	DroppedCount int `json:"dropped_count"`
}

// WentAway returns the findings present only in the previous scan.
func (r *DeltaReport) WentAway() []Finding {
	return r.byOrigin(OriginWentAway)
}

// NewFindings returns the findings present only in the current scan.
func (r *DeltaReport) NewFindings() []Finding {
	return r.byOrigin(OriginNewFindings)
}

// HasChanges reports whether any finding appeared or disappeared.
func (r *DeltaReport) HasChanges() bool {
	return len(r.Rows) > 0
}

// InstanceIDs returns the instance IDs of all rows in report order.
func (r *DeltaReport) InstanceIDs() []string {
	ids := make([]string, len(r.Rows))
	for i, row := range r.Rows {
		ids[i] = row.Finding.InstanceID
	}
	return ids
}

// CountBySeverity counts the rows of the given origin per severity level.
func (r *DeltaReport) CountBySeverity(origin Origin) map[Severity]int {
	counts := make(map[Severity]int, len(Severities))
	for _, s := range Severities {
		counts[s] = 0
	}
	for _, row := range r.Rows {
		if row.Origin == origin {
			counts[row.Finding.SeverityLevel()]++
		}
	}
	return counts
}

func (r *DeltaReport) byOrigin(origin Origin) []Finding {
	var findings []Finding
	for _, row := range r.Rows {
		if row.Origin == origin {
			findings = append(findings, row.Finding)
		}
	}
	return findings
}
