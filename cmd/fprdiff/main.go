// Package main provides the entry point for the fprdiff CLI.
//
// fprdiff compares two Fortify scan archives (.fpr) and writes the findings
// that went away and the new findings to a CSV file.
//
// Usage:
//
//	fprdiff [previous.fpr] [current.fpr]
//	fprdiff batch --list <file>
//	fprdiff history
//
// See --help for all available options.
package main

// main is the entry point for fprdiff.
func main() {
	Execute()
}
