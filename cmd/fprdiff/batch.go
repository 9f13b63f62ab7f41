package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
	"unicode"

	"github.com/nao1215/fprdiff/internal/config"
	"github.com/nao1215/fprdiff/internal/model"
	"github.com/nao1215/fprdiff/internal/pipeline"
	"github.com/spf13/cobra"
)

// errComparisonsFailed is returned when at least one pair of a batch failed.
var errComparisonsFailed = errors.New("comparisons failed")

// NewBatchCmd creates the batch command.
func NewBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Compare several archive pairs concurrently",
		Long: `Batch compares every archive pair listed in a file.

Each non-empty line that does not start with '#' holds the previous and the
current archive, separated by whitespace or a comma. Every pair is written to
its own "<previous>_<current>.csv" file. A failing pair is reported and the
remaining pairs continue; the command exits with status 1 if any pair failed.

Examples:
  # Compare all pairs in pairs.txt, four at a time
  fprdiff batch --list pairs.txt

  # Compare eight pairs at a time and record them in the history database
  fprdiff batch --list pairs.txt --concurrency 8 --save

pairs.txt example:
  # previous            current
  app/release-1.fpr     app/release-2.fpr
  lib-1.fpr,lib-2.fpr`,
		Args: cobra.NoArgs,
		RunE: runBatchCmd,
	}

	addCommonFlags(cmd)
	cmd.Flags().StringP("list", "l", "",
		"File listing one archive pair per line")
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Number of pairs compared at once")
	_ = cmd.MarkFlagRequired("list") //nolint:errcheck // The flag is registered above

	return cmd
}

// runBatchCmd executes the batch command.
func runBatchCmd(cmd *cobra.Command, _ []string) error {
	cfg, listPath, err := buildBatchConfig(cmd)
	if err != nil {
		return err
	}

	if err := cfg.ValidateBatch(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	pairs, err := readPairList(listPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := signalContext(logger)
	defer cancel()

	return runBatch(ctx, cfg, pairs, logger, cmd.OutOrStdout())
}

// buildBatchConfig creates the Config of a batch run and returns the pair list path.
func buildBatchConfig(cmd *cobra.Command) (*config.Config, string, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, "", err
	}

	if err := applyCommonFlags(cmd, cfg); err != nil {
		return nil, "", err
	}

	if cmd.Flags().Changed("concurrency") {
		cfg.Concurrency, err = cmd.Flags().GetInt("concurrency")
		if err != nil {
			return nil, "", err
		}
	}

	// Every pair gets its own result file.
	cfg.OutputFile = ""

	listPath, err := cmd.Flags().GetString("list")
	if err != nil {
		return nil, "", err
	}
	return cfg, listPath, nil
}

// readPairList reads the archive pairs listed in path.
func readPairList(path string) ([]model.ArchivePair, error) {
	f, err := os.Open(path) //nolint:gosec // path is a user-specified pair list
	if err != nil {
		return nil, fmt.Errorf("failed to open pair list: %w", err)
	}
	defer f.Close()

	pairs, err := parsePairList(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return pairs, nil
}

// parsePairList parses "previous current" lines.
// Blank lines and lines starting with '#' are skipped.
func parsePairList(r io.Reader) ([]model.ArchivePair, error) {
	var pairs []model.ArchivePair

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.FieldsFunc(line, func(r rune) bool {
			return r == ',' || unicode.IsSpace(r)
		})
		if len(fields) != 2 {
			return nil, fmt.Errorf("line %d: expected a previous and a current archive, got %q", lineNo, line)
		}
		pairs = append(pairs, model.ArchivePair{Previous: fields[0], Current: fields[1]})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read pair list: %w", err)
	}

	return pairs, nil
}

// runBatch compares all pairs and prints one line per finished pair.
func runBatch(ctx context.Context, cfg *config.Config, pairs []model.ArchivePair, logger *slog.Logger, out io.Writer) error {
	res, err := openResources(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer res.Close()

	fmt.Fprintf(out, "Comparing %d archive pairs (concurrency: %d)...\n\n", len(pairs), cfg.Concurrency)
	startTime := time.Now()

	bp := pipeline.NewBatchProcessor(
		func() *pipeline.Pipeline {
			return pipeline.DefaultPipeline(
				[]pipeline.Option{pipeline.WithLogger(logger)},
				res.pipelineOptions(cfg, nil)...,
			)
		},
		pipeline.WithConcurrency(cfg.Concurrency),
		pipeline.WithBatchLogger(logger),
	)

	failed := 0
	err = bp.ProcessBatchWithCallback(ctx, pairs, func(c *model.Comparison, index int) {
		prefix := fmt.Sprintf("[%d/%d] %s -> %s:", index+1, len(pairs), c.Pair.Previous, c.Pair.Current)
		if c.Failed() {
			failed++
			fmt.Fprintf(out, "%s ERROR - %s\n", prefix, c.ErrorMessage)
			return
		}
		fmt.Fprintf(out, "%s %d went away, %d new, results in %s\n",
			prefix, len(c.Delta.WentAway()), len(c.Delta.NewFindings()), c.OutputPath)
	})

	fmt.Fprintf(out, "\nBatch completed in %s\n", time.Since(startTime).Round(time.Millisecond))

	if err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d %w", failed, len(pairs), errComparisonsFailed)
	}
	return nil
}
