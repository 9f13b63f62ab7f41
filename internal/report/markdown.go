package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/fprdiff/internal/model"
)

// MarkdownWriter outputs comparisons in Markdown format for sharing in
// pull requests and wikis.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the comparison in Markdown format.
func (w *MarkdownWriter) Write(c *model.Comparison) (int, error) {
	md := markdown.NewMarkdown(w.output)
	summary := NewSummary(c)

	w.writeHeader(md, c, summary)
	w.writeSummary(md, summary)
	if c.Delta != nil {
		w.writeFindings(md, "### Went Away", c.Delta.WentAway())
		w.writeFindings(md, "### New Findings", c.Delta.NewFindings())
	}
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with the compared archives.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, c *model.Comparison, summary *Summary) {
	md.H1("fprdiff Report")
	md.PlainText("")

	rows := [][]string{
		{"Previous", "`" + summary.Previous + "`"},
		{"Current", "`" + summary.Current + "`"},
		{"Compared At", c.StartedAt.Format("2006-01-02 15:04:05 MST")},
	}
	if summary.OutputPath != "" {
		rows = append(rows, []string{"Output", "`" + summary.OutputPath + "`"})
	}
	if c.UploadLocation != "" {
		rows = append(rows, []string{"Uploaded To", c.UploadLocation})
	}
	rows = append(rows, []string{"Status", statusText(summary)})

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

// statusText returns the status text based on the summary.
func statusText(summary *Summary) string {
	if summary.Error != "" {
		return "❌ Error - " + summary.Error
	}
	return "✅ Complete"
}

// writeSummary writes the per-severity table, chart and alert.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, summary *Summary) {
	md.H2("Delta Summary")
	md.PlainText("")

	rows := make([][]string, 0, len(model.Severities)+1)
	for _, sev := range model.Severities {
		label := sev.String()
		rows = append(rows, []string{
			severityEmoji(sev) + " " + label,
			strconv.Itoa(summary.WentAwayBySeverity[label]),
			strconv.Itoa(summary.NewBySeverity[label]),
		})
	}
	rows = append(rows, []string{
		"**Total**",
		"**" + strconv.Itoa(summary.WentAway) + "**",
		"**" + strconv.Itoa(summary.NewFindings) + "**",
	})

	md.Table(markdown.TableSet{
		Header: []string{"Severity", "Went Away", "New Findings"},
		Rows:   rows,
	})
	md.PlainText("")

	if summary.NewFindings > 0 {
		w.writePieChart(md, summary)
	}

	w.writeAlert(md, summary)

	if summary.Dropped > 0 {
		md.Note(strconv.Itoa(summary.Dropped) +
			" row(s) were dropped because their instance ID occurs more than once.")
		md.PlainText("")
	}
}

// writePieChart writes a mermaid pie chart of new findings by severity.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, summary *Summary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("New Finding Severity Distribution"),
		piechart.WithShowData(true),
	)

	for _, sev := range model.Severities {
		if n := summary.NewBySeverity[sev.String()]; n > 0 {
			chart.LabelAndIntValue(sev.String(), uint64(n))
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an alert based on what the current scan introduced.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, summary *Summary) {
	critical := summary.NewBySeverity[model.SeverityCritical.String()]
	high := summary.NewBySeverity[model.SeverityHigh.String()]

	switch {
	case summary.Error != "":
		md.Cautionf("Comparison failed: %s", summary.Error)
	case critical > 0:
		md.Cautionf("%d new critical finding(s) were introduced by the current scan.", critical)
	case high > 0:
		md.Warningf("%d new high severity finding(s) were introduced by the current scan.", high)
	case summary.NewFindings > 0:
		md.Importantf("%d new finding(s) were introduced by the current scan.", summary.NewFindings)
	case summary.WentAway > 0:
		md.Note("No new findings. Some findings of the previous scan went away.")
	default:
		md.Tip("No findings appeared or disappeared between the two scans.")
	}
	md.PlainText("")
}

// writeFindings writes a table of findings for one origin.
func (w *MarkdownWriter) writeFindings(md *markdown.Markdown, header string, findings []model.Finding) {
	if len(findings) == 0 {
		return
	}

	md.PlainText(header)
	md.PlainText("")

	rows := make([][]string, len(findings))
	for i, f := range findings {
		rows[i] = []string{
			"`" + f.InstanceID + "`",
			severityEmoji(f.SeverityLevel()) + " " + f.Severity,
			f.Type,
			f.Kingdom,
			truncateString(f.SourceLocation, 60),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Instance ID", "Severity", "Type", "Kingdom", "Source Location"},
		Rows:   rows,
	})
	md.PlainText("")
}

// severityEmoji returns the marker used in tables for a severity level.
func severityEmoji(sev model.Severity) string {
	switch sev {
	case model.SeverityCritical:
		return "🔴"
	case model.SeverityHigh:
		return "🟠"
	case model.SeverityMedium:
		return "🟡"
	case model.SeverityLow:
		return "🔵"
	default:
		return "⚪"
	}
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [fprdiff](https://github.com/nao1215/fprdiff)*")
}

// truncateString truncates a string to maxLen bytes with a leading ellipsis,
// keeping the file name end of long paths visible.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[len(s)-maxLen:]
	}
	return "..." + s[len(s)-maxLen+3:]
}
