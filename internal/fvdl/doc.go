// Package fvdl extracts findings from Fortify Vulnerability Description
// Language (FVDL) documents.
//
// Every Vulnerability element in the FVDL namespace, at any depth, yields one
// model.Finding. Its seven values are taken from the first matching
// descendant of the Vulnerability element:
//
//	ClassID            -> Finding.ClassID
//	Kingdom            -> Finding.Kingdom
//	Type               -> Finding.Type
//	InstanceID         -> Finding.InstanceID
//	InstanceSeverity   -> Finding.Severity
//	Confidence         -> Finding.Confidence
//	SourceLocation@path -> Finding.SourceLocation
//
// A Vulnerability lacking any of these fails the whole parse with
// ErrMissingField; the document is never partially returned.
package fvdl
