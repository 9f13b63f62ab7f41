package report

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/fprdiff/internal/model"
)

// SimpleWriter outputs human-readable text reports for terminal display.
// Plain ASCII rules separate the sections so the output can be piped to
// files or other tools unchanged.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether origin sections without findings are shown.
	showEmpty bool

	// verbose lists every surviving finding below the counts.
	verbose bool

	// title converts origin labels such as "went_away" into "Went Away".
	title cases.Caser
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables a per-finding listing.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		showEmpty:  false,
		verbose:    false,
		title:      cases.Title(language.English),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the comparison in human-readable format.
func (w *SimpleWriter) Write(c *model.Comparison) (int, error) {
	var sb strings.Builder
	summary := NewSummary(c)

	w.writeHeader(&sb, c, summary)
	w.writeSummary(&sb, summary)
	if c.Delta != nil {
		w.writeOrigin(&sb, c.Delta, model.OriginWentAway)
		w.writeOrigin(&sb, c.Delta, model.OriginNewFindings)
	}
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// Label renders an origin tag as a title-cased label.
func (w *SimpleWriter) Label(origin model.Origin) string {
	return w.title.String(strings.ReplaceAll(origin.String(), "_", " "))
}

// writeHeader writes the report header with the compared archives.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, c *model.Comparison, summary *Summary) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                         FPRDIFF REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Previous:       %s (%d findings)\n", summary.Previous, summary.PreviousCount)
	fmt.Fprintf(sb, "Current:        %s (%d findings)\n", summary.Current, summary.CurrentCount)
	fmt.Fprintf(sb, "Compared At:    %s\n", c.StartedAt.Format("2006-01-02 15:04:05 MST"))
	if summary.OutputPath != "" {
		fmt.Fprintf(sb, "Output:         %s\n", summary.OutputPath)
	}
	if c.UploadLocation != "" {
		fmt.Fprintf(sb, "Uploaded To:    %s\n", c.UploadLocation)
	}

	if summary.Error != "" {
		fmt.Fprintf(sb, "Status:         ERROR - %s\n", summary.Error)
	} else {
		sb.WriteString("Status:         Complete\n")
	}

	sb.WriteString("\n")
}

// writeSummary writes the per-origin counts.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, summary *Summary) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("DELTA SUMMARY\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "  %-13s %d\n", w.Label(model.OriginWentAway)+":", summary.WentAway)
	fmt.Fprintf(sb, "  %-13s %d\n", w.Label(model.OriginNewFindings)+":", summary.NewFindings)
	sb.WriteString("\n")

	if summary.Dropped > 0 {
		fmt.Fprintf(sb, "  Note: %d row(s) were dropped because their instance ID is not unique.\n\n", summary.Dropped)
	}
}

// writeOrigin writes the severity breakdown and, in verbose mode, the
// findings of one origin.
func (w *SimpleWriter) writeOrigin(sb *strings.Builder, delta *model.DeltaReport, origin model.Origin) {
	var rows []model.DeltaRow
	for _, row := range delta.Rows {
		if row.Origin == origin {
			rows = append(rows, row)
		}
	}
	if len(rows) == 0 && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(strings.ToUpper(w.Label(origin)))
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(rows) == 0 {
		sb.WriteString("  No findings\n\n")
		return
	}

	counts := delta.CountBySeverity(origin)
	for _, sev := range model.Severities {
		if counts[sev] == 0 && !w.showEmpty {
			continue
		}
		fmt.Fprintf(sb, "  [%-3s] %-9s %d\n", severityIndicator(sev), sev.String()+":", counts[sev])
	}
	sb.WriteString("\n")

	if !w.verbose {
		return
	}
	for _, row := range rows {
		f := row.Finding
		fmt.Fprintf(sb, "  * %s %s (%s)\n", f.InstanceID, f.Type, f.Kingdom)
		fmt.Fprintf(sb, "    Severity: %s  Confidence: %s\n", f.Severity, f.Confidence)
		fmt.Fprintf(sb, "    Location: %s\n", f.SourceLocation)
	}
	sb.WriteString("\n")
}

// severityIndicator returns a visual indicator for the severity level.
func severityIndicator(severity model.Severity) string {
	switch severity {
	case model.SeverityCritical:
		return "!!!"
	case model.SeverityHigh:
		return "!!"
	case model.SeverityMedium:
		return "!"
	case model.SeverityLow:
		return "-"
	case model.SeverityInfo:
		return "i"
	default:
		return "?"
	}
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by fprdiff\n")
	sb.WriteString("https://github.com/nao1215/fprdiff\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
