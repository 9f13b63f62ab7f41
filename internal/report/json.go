package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/fprdiff/internal/model"
)

// JSONWriter outputs comparisons in JSON format.
// This format is designed for tool integration and programmatic processing.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	// When false, output is compact (no extra whitespace).
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the comparison in JSON format.
func (w *JSONWriter) Write(c *model.Comparison) (int, error) {
	c.ErrorMessage = errorText(c)
	return w.writeJSON(c)
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}

// JSONReport wraps a comparison with its summary and the tool version.
type JSONReport struct {
	// Version is the fprdiff version that generated this report.
	Version string `json:"version"`

	// Summary holds the delta counts for quick access.
	Summary *Summary `json:"summary"`

	// Comparison is the full comparison including the delta rows.
	Comparison *model.Comparison `json:"comparison"`
}

// NewJSONReport creates a JSONReport wrapper with version information.
func NewJSONReport(c *model.Comparison, version string) *JSONReport {
	c.ErrorMessage = errorText(c)
	return &JSONReport{
		Version:    version,
		Summary:    NewSummary(c),
		Comparison: c,
	}
}

// FullJSONWriter outputs comparisons wrapped with summary and version.
type FullJSONWriter struct {
	*JSONWriter

	// version is the fprdiff version string.
	version string
}

// NewFullJSONWriter creates a writer for complete reports with metadata.
func NewFullJSONWriter(output io.Writer, version string, opts ...JSONWriterOption) *FullJSONWriter {
	return &FullJSONWriter{
		JSONWriter: NewJSONWriter(output, opts...),
		version:    version,
	}
}

// Write outputs the comparison wrapped with metadata.
func (w *FullJSONWriter) Write(c *model.Comparison) (int, error) {
	return w.writeJSON(NewJSONReport(c, w.version))
}
