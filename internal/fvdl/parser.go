package fvdl

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"github.com/nao1215/fprdiff/internal/model"
	"golang.org/x/net/html/charset"
)

// DefaultNamespace is the namespace Fortify declares on FVDL documents.
const DefaultNamespace = "xmlns://www.fortifysoftware.com/schema/fvdl"

// vulnerabilityElement is the local name of the element each Finding is built from.
const vulnerabilityElement = "Vulnerability"

// textFields maps element local names to the Finding value taken from their text.
var textFields = map[string]field{
	"ClassID":          fieldClassID,
	"Kingdom":          fieldKingdom,
	"Type":             fieldType,
	"InstanceID":       fieldInstanceID,
	"InstanceSeverity": fieldSeverity,
	"Confidence":       fieldConfidence,
}

// sourceLocationElement carries the finding's file path in its path attribute.
const (
	sourceLocationElement = "SourceLocation"
	sourceLocationAttr    = "path"
)

// Parser extracts findings from FVDL documents.
// A Parser holds no per-document state and may be reused.
type Parser struct {
	namespace string
}

// Option configures a Parser.
type Option func(*Parser)

// WithNamespace sets the XML namespace elements must belong to.
// The default is DefaultNamespace.
func WithNamespace(namespace string) Option {
	return func(p *Parser) {
		p.namespace = namespace
	}
}

// NewParser creates a Parser with the given options.
func NewParser(opts ...Option) *Parser {
	p := &Parser{namespace: DefaultNamespace}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse parses raw with a default Parser configured by opts.
func Parse(raw []byte, opts ...Option) ([]model.Finding, error) {
	return NewParser(opts...).Parse(raw)
}

// node is a minimal element tree built for one Vulnerability subtree.
type node struct {
	name     xml.Name
	attrs    []xml.Attr
	text     string
	children []*node
}

// Parse returns one Finding per Vulnerability element, in document order.
func (p *Parser) Parse(raw []byte) ([]model.Finding, error) {
	dec := xml.NewDecoder(bytes.NewReader(raw))
	dec.CharsetReader = charset.NewReaderLabel

	var (
		findings []model.Finding
		depth    int
		rootSeen bool
		// stack holds the open elements of the Vulnerability subtree being built.
		stack []*node
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if depth == 0 {
				if rootSeen {
					return nil, fmt.Errorf("%w: multiple root elements", ErrMalformedDocument)
				}
				rootSeen = true
			}
			depth++

			// Only descendants of the root are candidates.
			if len(stack) == 0 && (depth == 1 || !p.is(t.Name, vulnerabilityElement)) {
				continue
			}
			n := &node{name: t.Name, attrs: t.Copy().Attr}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, n)
			}
			stack = append(stack, n)

		case xml.EndElement:
			depth--
			if len(stack) == 0 {
				continue
			}
			root := stack[0]
			stack = stack[:len(stack)-1]
			if len(stack) > 0 {
				continue
			}
			// A complete top-level Vulnerability subtree; nested ones are
			// emitted after it in pre-order.
			var err error
			findings, err = p.collect(root, findings)
			if err != nil {
				return nil, err
			}

		case xml.CharData:
			if depth == 0 {
				if len(bytes.TrimSpace(t)) > 0 {
					return nil, fmt.Errorf("%w: text outside the root element", ErrMalformedDocument)
				}
				continue
			}
			if len(stack) > 0 {
				n := stack[len(stack)-1]
				// Only the text preceding the first child element counts.
				if len(n.children) == 0 {
					n.text += string(t)
				}
			}
		}
	}

	if !rootSeen {
		return nil, fmt.Errorf("%w: no root element", ErrMalformedDocument)
	}

	return findings, nil
}

// collect appends a Finding for root and for every Vulnerability nested in it.
func (p *Parser) collect(root *node, findings []model.Finding) ([]model.Finding, error) {
	var walkErr error
	walk(root, func(n *node) bool {
		if !p.is(n.name, vulnerabilityElement) {
			return true
		}
		f, err := p.build(n, len(findings)+1)
		if err != nil {
			walkErr = err
			return false
		}
		findings = append(findings, f)
		return true
	})
	return findings, walkErr
}

// build extracts the Finding values from the descendants of a Vulnerability.
func (p *Parser) build(vuln *node, ordinal int) (model.Finding, error) {
	var (
		b          findingBuilder
		sourceSeen bool
	)

	for _, child := range vuln.children {
		walk(child, func(n *node) bool {
			if n.name.Space != p.namespace {
				return true
			}
			if f, ok := textFields[n.name.Local]; ok {
				b.Set(f, n.text)
				return true
			}
			// Only the first SourceLocation is consulted; if it has no path
			// attribute the value stays missing.
			if n.name.Local == sourceLocationElement && !sourceSeen {
				sourceSeen = true
				if path, ok := attr(n, sourceLocationAttr); ok {
					b.Set(fieldSourceLocation, path)
				}
			}
			return true
		})
	}

	return b.Build(ordinal)
}

// is reports whether name is the given local name in the parser's namespace.
func (p *Parser) is(name xml.Name, local string) bool {
	return name.Space == p.namespace && name.Local == local
}

// attr returns the value of the unqualified attribute with the given name.
func attr(n *node, name string) (string, bool) {
	for _, a := range n.attrs {
		if a.Name.Space == "" && a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// walk visits n and its descendants in pre-order until visit returns false.
func walk(n *node, visit func(*node) bool) bool {
	if !visit(n) {
		return false
	}
	for _, c := range n.children {
		if !walk(c, visit) {
			return false
		}
	}
	return true
}
