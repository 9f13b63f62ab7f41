package fvdl

import (
	"fmt"
	"strings"

	"github.com/nao1215/fprdiff/internal/model"
)

// field identifies one Finding value located inside a Vulnerability.
type field int

const (
	fieldClassID field = iota
	fieldKingdom
	fieldType
	fieldInstanceID
	fieldSeverity
	fieldConfidence
	fieldSourceLocation
	fieldCount
)

// fieldNames are the names used in MissingField diagnostics.
var fieldNames = [fieldCount]string{
	fieldClassID:        "ClassID",
	fieldKingdom:        "Kingdom",
	fieldType:           "Type",
	fieldInstanceID:     "InstanceID",
	fieldSeverity:       "InstanceSeverity",
	fieldConfidence:     "Confidence",
	fieldSourceLocation: "SourceLocation/@path",
}

// findingBuilder collects Finding values and refuses to build until
// every one of them has been set.
type findingBuilder struct {
	values [fieldCount]string
	set    [fieldCount]bool
}

// Set records the value of f. Later calls for the same field are ignored
// so the first match in document order wins.
func (b *findingBuilder) Set(f field, value string) {
	if b.set[f] {
		return
	}
	b.values[f] = value
	b.set[f] = true
}

// Build returns the Finding, or ErrMissingField listing every absent value.
// ordinal is the 1-based position of the Vulnerability in the document.
func (b *findingBuilder) Build(ordinal int) (model.Finding, error) {
	var missing []string
	for f := range fieldCount {
		if !b.set[f] {
			missing = append(missing, fieldNames[f])
		}
	}

	if len(missing) > 0 {
		where := fmt.Sprintf("Vulnerability #%d", ordinal)
		if b.set[fieldInstanceID] {
			where += fmt.Sprintf(" (InstanceID %q)", b.values[fieldInstanceID])
		}
		return model.Finding{}, fmt.Errorf("%w: %s lacks %s", ErrMissingField, where, strings.Join(missing, ", "))
	}

	return model.Finding{
		ClassID:        b.values[fieldClassID],
		Kingdom:        b.values[fieldKingdom],
		Type:           b.values[fieldType],
		InstanceID:     b.values[fieldInstanceID],
		Severity:       b.values[fieldSeverity],
		Confidence:     b.values[fieldConfidence],
		SourceLocation: b.values[fieldSourceLocation],
	}, nil
}
