package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/nao1215/fprdiff/internal/archive"
	"github.com/nao1215/fprdiff/internal/config"
	"github.com/nao1215/fprdiff/internal/database"
	"github.com/nao1215/fprdiff/internal/model"
	"github.com/nao1215/fprdiff/internal/report"
)

// findingsDocument returns an FVDL document holding one finding per ID.
func findingsDocument(ids ...string) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<FVDL xmlns="xmlns://www.fortifysoftware.com/schema/fvdl"><Vulnerabilities>`)
	for _, id := range ids {
		fmt.Fprintf(&sb, `
<Vulnerability>
  <ClassInfo><ClassID>CLS-%[1]s</ClassID><Kingdom>Security Features</Kingdom><Type>Password Management</Type></ClassInfo>
  <InstanceInfo><InstanceID>%[1]s</InstanceID><InstanceSeverity>5.0</InstanceSeverity><Confidence>4.0</Confidence></InstanceInfo>
  <AnalysisInfo><SourceLocation path="src/%[1]s.go" line="1"/></AnalysisInfo>
</Vulnerability>`, id)
	}
	sb.WriteString(`</Vulnerabilities></FVDL>`)
	return sb.String()
}

// writeScanArchive creates a scan archive at path holding findings for ids.
func writeScanArchive(t *testing.T, path string, ids ...string) string {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create archive: %v", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	entries := []struct{ name, content string }{
		{config.DefaultAuditEntry, `<Audit/>`},
		{config.DefaultFindingsEntry, findingsDocument(ids...)},
	}
	for _, e := range entries {
		w, err := zw.Create(e.name)
		if err != nil {
			t.Fatalf("failed to create entry: %v", err)
		}
		if _, err := w.Write([]byte(e.content)); err != nil {
			t.Fatalf("failed to write entry: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to close zip writer: %v", err)
	}
	return path
}

// writeConfig writes a configuration file into dir and returns its path.
func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()

	path := filepath.Join(dir, "fprdiff.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

// runRoot executes the root command with args and returns stdout and stderr.
func runRoot(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// TestRunCompare tests a full comparison in the working directory.
// It changes the working directory and therefore does not run in parallel.
func TestRunCompare(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	writeScanArchive(t, "r1.fpr", "1001", "1002")
	writeScanArchive(t, "r2.fpr", "1002", "1003")
	dbDir := filepath.Join(dir, "db")
	cfgPath := writeConfig(t, dir, "history:\n  dir: "+dbDir+"\n")

	stdout, _, err := runRoot(t, "-c", cfgPath, "--save", "r1.fpr", "r2.fpr")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{
		"Old 'audit.xml'  length: 8\n",
		"Old 'audit.fvdl' length: ",
		"New 'audit.xml'  length: 8\n",
		"Done!\n",
		"Results can be found in the file: r1.fpr_r2.fpr.csv\n",
		"FPRDIFF REPORT",
	} {
		if !strings.Contains(stdout, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, stdout)
		}
	}
	if strings.Contains(stdout, usageLine) {
		t.Error("usage line should only be printed without arguments")
	}

	data, err := os.ReadFile("r1.fpr_r2.fpr.csv")
	if err != nil {
		t.Fatalf("expected result file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and two rows, got:\n%s", data)
	}
	if !strings.HasPrefix(lines[1], "went_away,0,CLS-1001,") || !strings.HasPrefix(lines[2], "new_findings,1,CLS-1003,") {
		t.Errorf("unexpected rows:\n%s", data)
	}

	for _, path := range []string{"FPR_1_r1/audit.xml", "FPR_1_r1/audit.fvdl", "FPR_2_r2/audit.xml", "FPR_2_r2/audit.fvdl"} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("expected extracted entry %s: %v", path, err)
		}
	}

	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open history: %v", err)
	}
	defer db.Close()

	saved, err := db.ListComparisons(context.Background(), 0)
	if err != nil {
		t.Fatalf("failed to list history: %v", err)
	}
	if len(saved) != 1 || saved[0].WentAway != 1 || saved[0].NewFindings != 1 {
		t.Errorf("unexpected history %+v", saved)
	}
}

// TestRunCompare_SameArchive tests comparing an archive with itself.
// It changes the working directory and therefore does not run in parallel.
func TestRunCompare_SameArchive(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	writeScanArchive(t, "a.fpr", "1001", "1002")
	cfgPath := writeConfig(t, dir, "")

	stdout, _, err := runRoot(t, "-c", cfgPath, "a.fpr", "a.fpr")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout, "Results can be found in the file: a.fpr_a.fpr.csv\n") {
		t.Errorf("unexpected output:\n%s", stdout)
	}

	data, err := os.ReadFile("a.fpr_a.fpr.csv")
	if err != nil {
		t.Fatalf("expected result file: %v", err)
	}
	if want := strings.Join(report.CSVColumns, ",") + "\n"; string(data) != want {
		t.Errorf("expected only the header row, got:\n%s", data)
	}
}

// TestRunCompare_JSON tests that JSON output is not mixed with progress lines.
func TestRunCompare_JSON(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	previous := writeScanArchive(t, filepath.Join(dir, "r1.fpr"), "1001")
	current := writeScanArchive(t, filepath.Join(dir, "r2.fpr"), "1001", "1002", "1003")
	output := filepath.Join(dir, "delta.csv")
	cfgPath := writeConfig(t, dir, "")

	stdout, stderr, err := runRoot(t, "-c", cfgPath, "-j", "--no-extract", "-o", output, previous, current)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got report.JSONReport
	if err := json.Unmarshal([]byte(stdout), &got); err != nil {
		t.Fatalf("stdout is not JSON: %v\n%s", err, stdout)
	}
	if got.Summary == nil || got.Summary.NewFindings != 2 || got.Summary.WentAway != 0 {
		t.Errorf("unexpected summary %+v", got.Summary)
	}
	if got.Summary.OutputPath != output {
		t.Errorf("expected output path %q, got %q", output, got.Summary.OutputPath)
	}
	if !strings.Contains(stderr, "Results can be found in the file: "+output) {
		t.Errorf("expected progress on stderr, got %q", stderr)
	}
	if _, err := os.Stat(model.ExtractDirName(config.DefaultPreviousExtractPrefix, previous)); !os.IsNotExist(err) {
		t.Error("nothing should be extracted with --no-extract")
	}
}

// TestRunCompare_Markdown tests the Markdown summary.
func TestRunCompare_Markdown(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	previous := writeScanArchive(t, filepath.Join(dir, "r1.fpr"), "1001")
	current := writeScanArchive(t, filepath.Join(dir, "r2.fpr"), "1001")
	cfgPath := writeConfig(t, dir, "")

	stdout, _, err := runRoot(t, "-c", cfgPath, "-m", "--no-extract", "-o", filepath.Join(dir, "delta.csv"), previous, current)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(stdout, "# fprdiff Report") {
		t.Errorf("expected Markdown report, got:\n%s", stdout)
	}
}

// TestRunCompare_Errors tests failures of a single comparison.
func TestRunCompare_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	existing := writeScanArchive(t, filepath.Join(dir, "r1.fpr"), "1001")
	cfgPath := writeConfig(t, dir, "")
	output := filepath.Join(dir, "delta.csv")

	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{
			name:    "missing current archive",
			args:    []string{"-c", cfgPath, "--no-extract", "-o", output, existing, filepath.Join(dir, "r2.fpr")},
			wantErr: archive.ErrArchiveNotFound,
		},
		{
			name:    "missing findings entry",
			args:    []string{"-c", cfgPath, "--no-extract", "-o", output, "--findings-entry", "other.fvdl", existing, filepath.Join(dir, "r3.fpr")},
			wantErr: archive.ErrEntryNotFound,
		},
		{
			name:    "json and markdown",
			args:    []string{"-c", cfgPath, "-j", "-m", existing, "r2.fpr"},
			wantErr: config.ErrConflictingReportFormats,
		},
		{
			name:    "upload without storage",
			args:    []string{"-c", cfgPath, "--upload", existing, "r2.fpr"},
			wantErr: config.ErrStorageNotConfigured,
		},
		{
			name:    "explicit config file missing",
			args:    []string{"-c", filepath.Join(dir, "missing.yaml"), existing, "r2.fpr"},
			wantErr: config.ErrConfigNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, _, err := runRoot(t, tt.args...)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			if _, err := os.Stat(output); !os.IsNotExist(err) {
				t.Error("no result file should be written by a failed comparison")
			}
		})
	}
}

// TestRunCompare_NoArguments tests the default archive names.
func TestRunCompare_NoArguments(t *testing.T) {
	t.Parallel()

	cfgPath := writeConfig(t, t.TempDir(), "")

	stdout, _, err := runRoot(t, "-c", cfgPath, "--no-extract")
	if !strings.HasPrefix(stdout, usageLine+"\n") {
		t.Errorf("expected usage line first, got %q", stdout)
	}
	if !errors.Is(err, archive.ErrArchiveNotFound) || !strings.Contains(err.Error(), config.DefaultPreviousArchive) {
		t.Errorf("expected the default previous archive to be missing, got %v", err)
	}
}

// TestBuildConfig tests flag and argument handling.
func TestBuildConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, `entries:
  findings: custom.fvdl
  audit: custom.xml
extract: false
output:
  suffix: .delta.csv
history:
  enabled: true
`)

	t.Run("config file values", func(t *testing.T) {
		t.Parallel()

		cmd := NewRootCmd()
		if err := cmd.ParseFlags([]string{"-c", cfgPath}); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}
		cfg, err := buildConfig(cmd, []string{"a.fpr"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.PreviousPath != "a.fpr" || cfg.CurrentPath != config.DefaultCurrentArchive {
			t.Errorf("unexpected pair %+v", cfg.Pair())
		}
		if cfg.FindingsEntry != "custom.fvdl" || cfg.AuditEntry != "custom.xml" {
			t.Errorf("unexpected entries %q/%q", cfg.FindingsEntry, cfg.AuditEntry)
		}
		if cfg.Extract {
			t.Error("extraction should be disabled by the config file")
		}
		if !cfg.SaveToDB {
			t.Error("history should be enabled by the config file")
		}
		if got := cfg.OutputPath(cfg.Pair()); got != "a.fpr_MyCurrentScan.fpr.delta.csv" {
			t.Errorf("unexpected output path %q", got)
		}
		if cfg.ConfigFilePath != cfgPath {
			t.Errorf("expected config path %q, got %q", cfgPath, cfg.ConfigFilePath)
		}
	})

	t.Run("flags override config file", func(t *testing.T) {
		t.Parallel()

		cmd := NewRootCmd()
		err := cmd.ParseFlags([]string{
			"-c", cfgPath,
			"--findings-entry", "flag.fvdl",
			"-o", "out.csv",
			"-v",
		})
		if err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}
		cfg, err := buildConfig(cmd, []string{"a.fpr", "b.fpr"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.FindingsEntry != "flag.fvdl" {
			t.Errorf("expected flag entry, got %q", cfg.FindingsEntry)
		}
		if cfg.AuditEntry != "custom.xml" {
			t.Errorf("unset flag should keep the config file value, got %q", cfg.AuditEntry)
		}
		if cfg.OutputPath(cfg.Pair()) != "out.csv" {
			t.Errorf("expected explicit output path, got %q", cfg.OutputPath(cfg.Pair()))
		}
		if !cfg.Verbose {
			t.Error("expected verbose")
		}
	})
}
