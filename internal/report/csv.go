package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/nao1215/fprdiff/internal/model"
)

// ErrNoDelta is returned when a comparison has no delta report to write.
var ErrNoDelta = errors.New("comparison has no delta report")

// CSVColumns is the header row of the delta CSV.
// The origin and index columns identify the row inside the combined table.
var CSVColumns = append([]string{"origin", "index"}, model.FindingColumns...)

// CSVOptions configures the CSV writer behavior.
type CSVOptions struct {
	// IncludeHeader writes CSVColumns as the first row.
	IncludeHeader bool

	// SanitizeFormulas prefixes cells starting with = + - @ TAB or CR with a
	// single quote so spreadsheets do not evaluate them.
	SanitizeFormulas bool
}

// DefaultCSVOptions returns the options used for the result file.
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{
		IncludeHeader:    true,
		SanitizeFormulas: false,
	}
}

// CSVWriter writes the delta table of a comparison as CSV.
type CSVWriter struct {
	baseWriter
	opts CSVOptions
}

// NewCSVWriter creates a CSVWriter that outputs to the given writer.
func NewCSVWriter(output io.Writer, opts CSVOptions) *CSVWriter {
	return &CSVWriter{
		baseWriter: newBaseWriter(output),
		opts:       opts,
	}
}

// Write outputs the delta rows of the comparison.
func (w *CSVWriter) Write(c *model.Comparison) (int, error) {
	if c.Delta == nil {
		return 0, ErrNoDelta
	}
	return w.WriteDelta(c.Delta)
}

// WriteDelta outputs one CSV row per delta row, in report order.
func (w *CSVWriter) WriteDelta(report *model.DeltaReport) (int, error) {
	cw := &countingWriter{w: w.output}
	out := csv.NewWriter(cw)

	if w.opts.IncludeHeader {
		if err := out.Write(CSVColumns); err != nil {
			return cw.n, err
		}
	}

	for _, row := range report.Rows {
		record := make([]string, 0, len(CSVColumns))
		record = append(record, row.Origin.String(), strconv.Itoa(row.Index))
		record = append(record, row.Finding.Fields()...)
		if w.opts.SanitizeFormulas {
			for i := range record {
				record[i] = sanitizeForCSV(record[i])
			}
		}
		if err := out.Write(record); err != nil {
			return cw.n, err
		}
	}

	out.Flush()
	return cw.n, out.Error()
}

// WriteCSVFile writes the delta report to path.
// The rows go to a temporary file in the same directory which is renamed
// over path once complete, so path never holds a partial table.
func WriteCSVFile(path string, report *model.DeltaReport, opts CSVOptions) (err error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	tmp, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = NewCSVWriter(tmp, opts).WriteDelta(report); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	if err = os.Chmod(tmpName, 0o644); err != nil { //nolint:gosec // result file is meant to be shared
		return fmt.Errorf("failed to set permissions on %s: %w", tmpName, err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move result into %s: %w", path, err)
	}
	return nil
}

// sanitizeForCSV prevents CSV injection by prefixing dangerous characters.
func sanitizeForCSV(s string) string {
	if len(s) == 0 {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}

// countingWriter counts bytes passed to the wrapped writer.
type countingWriter struct {
	w io.Writer
	n int
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += n
	return n, err
}
