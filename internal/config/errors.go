package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() so callers can use
// errors.Is() while still printing a human-readable message.
var (
	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidConcurrency is returned when the batch concurrency is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrEmptyEntryName is returned when the findings or audit entry name is empty.
	ErrEmptyEntryName = errors.New("archive entry names must not be empty")

	// ErrStorageNotConfigured is returned when --upload is requested but the
	// configuration file has no storage endpoint or bucket.
	ErrStorageNotConfigured = errors.New("upload requested but storage endpoint and bucket are not configured")
)
