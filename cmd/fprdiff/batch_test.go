package main

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/nao1215/fprdiff/internal/config"
	"github.com/nao1215/fprdiff/internal/model"
	"github.com/nao1215/fprdiff/internal/pipeline"
)

// TestParsePairList tests parsing of archive pair lists.
func TestParsePairList(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    []model.ArchivePair
		wantErr bool
	}{
		{
			name:  "whitespace separated",
			input: "a1.fpr a2.fpr\nb1.fpr\tb2.fpr\n",
			want: []model.ArchivePair{
				{Previous: "a1.fpr", Current: "a2.fpr"},
				{Previous: "b1.fpr", Current: "b2.fpr"},
			},
		},
		{
			name:  "comma separated",
			input: "a1.fpr,a2.fpr\nb1.fpr, b2.fpr",
			want: []model.ArchivePair{
				{Previous: "a1.fpr", Current: "a2.fpr"},
				{Previous: "b1.fpr", Current: "b2.fpr"},
			},
		},
		{
			name:  "comments and blank lines",
			input: "# previous current\n\n   \napp/r1.fpr app/r2.fpr\n  # indented comment\n",
			want:  []model.ArchivePair{{Previous: "app/r1.fpr", Current: "app/r2.fpr"}},
		},
		{
			name:  "empty input",
			input: "",
			want:  nil,
		},
		{
			name:    "single archive",
			input:   "a1.fpr a2.fpr\nlonely.fpr\n",
			wantErr: true,
		},
		{
			name:    "three archives",
			input:   "a1.fpr a2.fpr a3.fpr",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := parsePairList(strings.NewReader(tt.input))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

// TestParsePairList_LineNumber tests that errors name the offending line.
func TestParsePairList_LineNumber(t *testing.T) {
	t.Parallel()

	_, err := parsePairList(strings.NewReader("# header\na.fpr b.fpr\nbroken\n"))
	if err == nil || !strings.Contains(err.Error(), "line 3") {
		t.Errorf("expected error on line 3, got %v", err)
	}
}

// TestNewBatchCmd tests the batch command creation.
func TestNewBatchCmd(t *testing.T) {
	t.Parallel()

	cmd := NewBatchCmd()
	if cmd.Use != "batch" {
		t.Errorf("expected use 'batch', got %q", cmd.Use)
	}

	concurrency := cmd.Flags().Lookup("concurrency")
	if concurrency == nil {
		t.Fatal("expected concurrency flag")
	}
	if concurrency.DefValue != "4" {
		t.Errorf("expected default concurrency 4, got %q", concurrency.DefValue)
	}

	for _, name := range []string{"list", "config", "save", "upload", "no-extract", "findings-entry", "audit-entry"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected %s flag", name)
		}
	}
}

// TestRunBatch tests comparing a pair list in the working directory.
// It changes the working directory and therefore does not run in parallel.
func TestRunBatch(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	writeScanArchive(t, "a1.fpr", "1001", "1002")
	writeScanArchive(t, "a2.fpr", "1002")
	writeScanArchive(t, "b1.fpr", "2001")
	writeScanArchive(t, "b2.fpr", "2001", "2002")
	cfgPath := writeConfig(t, dir, "")

	list := "# previous current\na1.fpr a2.fpr\nb1.fpr,b2.fpr\nmissing1.fpr missing2.fpr\n"
	if err := os.WriteFile("pairs.txt", []byte(list), 0600); err != nil {
		t.Fatalf("failed to write pair list: %v", err)
	}

	stdout, _, err := runRoot(t, "batch", "-c", cfgPath, "--list", "pairs.txt", "--concurrency", "2", "--no-extract")
	if !errors.Is(err, errComparisonsFailed) {
		t.Fatalf("expected errComparisonsFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "1 of 3") {
		t.Errorf("expected failure count in %q", err.Error())
	}

	for _, want := range []string{
		"Comparing 3 archive pairs (concurrency: 2)",
		"a1.fpr -> a2.fpr: 1 went away, 0 new, results in a1.fpr_a2.fpr.csv",
		"b1.fpr -> b2.fpr: 0 went away, 1 new, results in b1.fpr_b2.fpr.csv",
		"missing1.fpr -> missing2.fpr: ERROR - ",
	} {
		if !strings.Contains(stdout, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, stdout)
		}
	}

	for _, name := range []string{"a1.fpr_a2.fpr.csv", "b1.fpr_b2.fpr.csv"} {
		if _, err := os.Stat(name); err != nil {
			t.Errorf("expected result file %s: %v", name, err)
		}
	}
	if _, err := os.Stat("missing1.fpr_missing2.fpr.csv"); !os.IsNotExist(err) {
		t.Error("failed pair should not write a result file")
	}
	if _, err := os.Stat("FPR_1_a1"); !os.IsNotExist(err) {
		t.Error("nothing should be extracted with --no-extract")
	}
}

// TestRunBatch_Errors tests batch failures that stop before any comparison.
func TestRunBatch_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "")
	emptyList := writeConfig(t, t.TempDir(), "# nothing to compare\n")

	t.Run("invalid concurrency", func(t *testing.T) {
		t.Parallel()

		_, _, err := runRoot(t, "batch", "-c", cfgPath, "--list", emptyList, "--concurrency", "0")
		if !errors.Is(err, config.ErrInvalidConcurrency) {
			t.Errorf("expected ErrInvalidConcurrency, got %v", err)
		}
	})

	t.Run("missing list file", func(t *testing.T) {
		t.Parallel()

		_, _, err := runRoot(t, "batch", "-c", cfgPath, "--list", filepath.Join(dir, "missing.txt"))
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("expected os.ErrNotExist, got %v", err)
		}
	})

	t.Run("list without pairs", func(t *testing.T) {
		t.Parallel()

		_, _, err := runRoot(t, "batch", "-c", cfgPath, "--list", emptyList)
		if !errors.Is(err, pipeline.ErrNoPairs) {
			t.Errorf("expected ErrNoPairs, got %v", err)
		}
	})

	t.Run("list flag is required", func(t *testing.T) {
		t.Parallel()

		_, _, err := runRoot(t, "batch", "-c", cfgPath)
		if err == nil {
			t.Error("expected error without --list")
		}
	})
}
