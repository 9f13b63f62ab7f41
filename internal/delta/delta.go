package delta

import "github.com/nao1215/fprdiff/internal/model"

// Diff returns the rows of previous and current whose instance ID occurs
// exactly once across both collections. Previous rows come first and are
// tagged went_away; current rows follow and are tagged new_findings. Each
// group keeps its input order. Diff does not modify its arguments.
func Diff(previous, current []model.Finding) *model.DeltaReport {
	combined := tag(previous, model.OriginWentAway)
	combined = append(combined, tag(current, model.OriginNewFindings)...)

	counts := make(map[string]int, len(combined))
	for _, row := range combined {
		counts[row.Finding.InstanceID]++
	}

	report := &model.DeltaReport{
		Rows:          make([]model.DeltaRow, 0),
		PreviousCount: len(previous),
		CurrentCount:  len(current),
	}
	for _, row := range combined {
		if counts[row.Finding.InstanceID] == 1 {
			report.Rows = append(report.Rows, row)
		}
	}
	report.DroppedCount = len(combined) - len(report.Rows)

	return report
}

// tag wraps findings in rows carrying origin and their position in the group.
func tag(findings []model.Finding, origin model.Origin) []model.DeltaRow {
	rows := make([]model.DeltaRow, len(findings))
	for i, f := range findings {
		rows[i] = model.DeltaRow{Origin: origin, Index: i, Finding: f}
	}
	return rows
}
