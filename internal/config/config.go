package config

import (
	"path/filepath"

	"github.com/adrg/xdg"

	"github.com/nao1215/fprdiff/internal/model"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "fprdiff"

	// DefaultPreviousArchive is compared when no previous archive is given.
	DefaultPreviousArchive = "MyPreviousScan.fpr"

	// DefaultCurrentArchive is compared when no current archive is given.
	DefaultCurrentArchive = "MyCurrentScan.fpr"

	// DefaultFindingsEntry is the archive entry holding the FVDL findings document.
	DefaultFindingsEntry = "audit.fvdl"

	// DefaultAuditEntry is the archive entry holding the audit document.
	// Only its length is reported.
	DefaultAuditEntry = "audit.xml"

	// DefaultNamespace is the FVDL XML namespace.
	DefaultNamespace = "xmlns://www.fortifysoftware.com/schema/fvdl"

	// DefaultPreviousExtractPrefix names the extraction directory of the previous archive.
	DefaultPreviousExtractPrefix = "FPR_1_"

	// DefaultCurrentExtractPrefix names the extraction directory of the current archive.
	DefaultCurrentExtractPrefix = "FPR_2_"

	// DefaultOutputSuffix is appended to "<previous>_<current>" to name the result file.
	DefaultOutputSuffix = ".csv"

	// DefaultConcurrency is the number of archive pairs compared at once in batch mode.
	DefaultConcurrency = 4
)

// Config holds all configuration options for fprdiff.
// It is populated from defaults, the configuration file and CLI flags,
// in that order, and passed down explicitly.
type Config struct {
	// PreviousPath is the older release scan archive.
	PreviousPath string

	// CurrentPath is the newer release scan archive.
	CurrentPath string

	// FindingsEntry is the archive entry parsed for findings.
	FindingsEntry string

	// AuditEntry is the archive entry whose length is reported.
	AuditEntry string

	// Namespace is the XML namespace of Vulnerability elements.
	Namespace string

	// Extract writes both entries of each archive to disk before parsing.
	Extract bool

	// PreviousExtractPrefix and CurrentExtractPrefix name the extraction
	// directories: prefix followed by the archive path without ".fpr".
	PreviousExtractPrefix string
	CurrentExtractPrefix  string

	// OutputFile overrides the result file path of a single comparison.
	OutputFile string

	// OutputSuffix is appended to "<previous>_<current>" to name the result file.
	OutputSuffix string

	// SanitizeFormulas prefixes CSV cells that spreadsheets would evaluate.
	SanitizeFormulas bool

	// JSONReport prints the summary as JSON.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport prints the summary as Markdown.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// Verbose enables debug logging and lists every finding in the text summary.
	Verbose bool

	// Concurrency is the number of pairs compared at once by the batch command.
	Concurrency int

	// ConfigFilePath is the configuration file given with --config.
	ConfigFilePath string

	// File is the loaded configuration file, or an empty File.
	File *File

	// SaveToDB records the comparison in the history database.
	SaveToDB bool

	// DBDir is the directory holding the history database.
	// Defaults to the XDG data directory (~/.local/share/fprdiff on Linux).
	DBDir string

	// Upload pushes the result file to the configured object storage.
	Upload bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		PreviousPath:          DefaultPreviousArchive,
		CurrentPath:           DefaultCurrentArchive,
		FindingsEntry:         DefaultFindingsEntry,
		AuditEntry:            DefaultAuditEntry,
		Namespace:             DefaultNamespace,
		Extract:               true,
		PreviousExtractPrefix: DefaultPreviousExtractPrefix,
		CurrentExtractPrefix:  DefaultCurrentExtractPrefix,
		OutputSuffix:          DefaultOutputSuffix,
		Concurrency:           DefaultConcurrency,
		File:                  &File{},
		DBDir:                 XDGDataDir(),
	}
}

// ApplyFile copies the values set in the configuration file into c.
// Values left empty in the file keep their current setting.
func (c *Config) ApplyFile(f *File) {
	if f == nil {
		return
	}
	c.File = f

	if f.Entries.Findings != "" {
		c.FindingsEntry = f.Entries.Findings
	}
	if f.Entries.Audit != "" {
		c.AuditEntry = f.Entries.Audit
	}
	if f.Namespace != nil {
		c.Namespace = *f.Namespace
	}
	if f.Extract != nil {
		c.Extract = *f.Extract
	}
	if f.Output.Suffix != "" {
		c.OutputSuffix = f.Output.Suffix
	}
	if f.Output.SanitizeFormulas {
		c.SanitizeFormulas = true
	}
	if f.Concurrency != 0 {
		c.Concurrency = f.Concurrency
	}
	if f.History.Enabled {
		c.SaveToDB = true
	}
	if f.History.Dir != "" {
		c.DBDir = f.History.Dir
	}
}

// Pair returns the archive pair of a single comparison.
func (c *Config) Pair() model.ArchivePair {
	return model.ArchivePair{Previous: c.PreviousPath, Current: c.CurrentPath}
}

// OutputPath returns the result file for pair.
// OutputFile wins when set; batch runs clear it so every pair gets its own file.
func (c *Config) OutputPath(pair model.ArchivePair) string {
	if c.OutputFile != "" {
		return c.OutputFile
	}
	return pair.OutputPath(c.OutputSuffix)
}

// XDGDataDir returns the XDG data directory for fprdiff.
// On Linux: ~/.local/share/fprdiff
// On macOS: ~/Library/Application Support/fprdiff
// On Windows: %LOCALAPPDATA%\fprdiff
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for fprdiff.
// On Linux: ~/.config/fprdiff
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found as one of the package sentinel errors.
func (c *Config) Validate() error {
	return c.validateCommon()
}

// ValidateBatch checks the settings used by the batch command.
// Archive paths come from the pair list and are not checked here.
func (c *Config) ValidateBatch() error {
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	return c.validateCommon()
}

func (c *Config) validateCommon() error {
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.FindingsEntry == "" || c.AuditEntry == "" {
		return ErrEmptyEntryName
	}
	if c.Upload && (c.File == nil || !c.File.Storage.Configured()) {
		return ErrStorageNotConfigured
	}
	return nil
}
