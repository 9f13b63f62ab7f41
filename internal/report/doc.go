// Package report renders comparison results.
//
// This package contains writers for different output formats:
//   - CSVWriter: the delta table, one row per surviving finding
//   - SimpleWriter: human-readable text summary for terminal display
//   - JSONWriter and FullJSONWriter: structured output for tool integration
//   - MarkdownWriter: summary with tables and a severity chart for sharing
//
// Report data structures live in the model package. Writers implement the
// Writer interface so the CLI can pick one by flag.
package report
