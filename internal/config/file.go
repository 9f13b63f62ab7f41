package config

import "os"

// Environment variables overriding the storage credentials of the file.
const (
	EnvStorageAccessKey = "FPRDIFF_STORAGE_ACCESS_KEY"
	EnvStorageSecretKey = "FPRDIFF_STORAGE_SECRET_KEY" //nolint:gosec // variable name, not a credential
)

// EntriesConfig names the archive entries to read.
type EntriesConfig struct {
	// Findings is the FVDL findings document entry.
	Findings string `yaml:"findings,omitempty"`

	// Audit is the audit document entry.
	Audit string `yaml:"audit,omitempty"`
}

// OutputConfig controls the result file.
type OutputConfig struct {
	// Suffix is appended to "<previous>_<current>".
	Suffix string `yaml:"suffix,omitempty"`

	// SanitizeFormulas prefixes cells starting with = + - @ with a quote.
	SanitizeFormulas bool `yaml:"sanitize_formulas,omitempty"`
}

// HistoryConfig controls the comparison history database.
type HistoryConfig struct {
	// Enabled saves every comparison without passing --save.
	Enabled bool `yaml:"enabled,omitempty"`

	// Dir overrides the database directory.
	Dir string `yaml:"dir,omitempty"`
}

// StorageConfig describes the S3-compatible bucket results are uploaded to.
type StorageConfig struct {
	Endpoint  string `yaml:"endpoint,omitempty"`
	Region    string `yaml:"region,omitempty"`
	Bucket    string `yaml:"bucket,omitempty"`
	AccessKey string `yaml:"access_key,omitempty"`
	SecretKey string `yaml:"secret_key,omitempty"`
	UseSSL    bool   `yaml:"use_ssl,omitempty"`
	Prefix    string `yaml:"prefix,omitempty"`
}

// Configured reports whether an endpoint and a bucket are set.
func (s StorageConfig) Configured() bool {
	return s.Endpoint != "" && s.Bucket != ""
}

// File represents the structure of the .fprdiff configuration file.
type File struct {
	Entries EntriesConfig `yaml:"entries,omitempty"`

	// Namespace overrides the FVDL namespace. An empty string matches
	// only elements without a namespace.
	Namespace *string `yaml:"namespace,omitempty"`

	// Extract toggles writing the entries to FPR_1_/FPR_2_ directories.
	Extract *bool `yaml:"extract,omitempty"`

	Output OutputConfig `yaml:"output,omitempty"`

	// Concurrency is the default batch concurrency.
	Concurrency int `yaml:"concurrency,omitempty"`

	History HistoryConfig `yaml:"history,omitempty"`

	Storage StorageConfig `yaml:"storage,omitempty"`
}

// ApplyEnv overrides the storage credentials with the environment.
func (f *File) ApplyEnv() {
	if v := os.Getenv(EnvStorageAccessKey); v != "" {
		f.Storage.AccessKey = v
	}
	if v := os.Getenv(EnvStorageSecretKey); v != "" {
		f.Storage.SecretKey = v
	}
}
