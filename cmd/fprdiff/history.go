package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/fprdiff/internal/database"
	"github.com/nao1215/fprdiff/internal/report"
	"github.com/spf13/cobra"
)

// defaultHistoryLimit is the number of comparisons listed by default.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show comparisons recorded in the history database",
		Long: `History lists the comparisons recorded with --save, newest first.

Examples:
  # List the latest comparisons
  fprdiff history

  # List all comparisons
  fprdiff history --limit 0

  # Show one comparison in detail
  fprdiff history --id 3`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .fprdiff in current or home directory)")
	cmd.Flags().IntP("limit", "n", defaultHistoryLimit,
		"Maximum number of comparisons to list (0 lists all)")
	cmd.Flags().Int64P("id", "i", 0,
		"Show the comparison with this ID")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	id, err := cmd.Flags().GetInt64("id")
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false
	db, err := database.Open(cfg.DBDir, opts)
	if errors.Is(err, database.ErrDatabaseNotFound) {
		fmt.Fprintln(out, "No comparison history found.")
		fmt.Fprintln(out, "\nUse 'fprdiff --save <previous> <current>' to record a comparison.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	if id != 0 {
		return showComparison(ctx, db, id, out)
	}
	return listComparisons(ctx, db, limit, out)
}

// listComparisons prints one line per saved comparison.
func listComparisons(ctx context.Context, db *database.HistoryDB, limit int, out io.Writer) error {
	comparisons, err := db.ListComparisons(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list comparisons: %w", err)
	}

	if len(comparisons) == 0 {
		fmt.Fprintln(out, "No comparison history found.")
		return nil
	}

	fmt.Fprintf(out, "Comparison history (%d entries):\n\n", len(comparisons))
	fmt.Fprintf(out, "  %-6s  %-20s  %-9s  %-5s  %s\n", "ID", "Date", "Went Away", "New", "Archives")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 70))

	for _, meta := range comparisons {
		fmt.Fprintf(out, "  %-6d  %-20s  %-9d  %-5d  %s -> %s\n",
			meta.ID,
			meta.StartedAt.Format("2006-01-02 15:04:05"),
			meta.WentAway,
			meta.NewFindings,
			meta.Previous,
			meta.Current,
		)
	}

	fmt.Fprintln(out, "\nUse 'fprdiff history --id <id>' to show a comparison in detail.")
	return nil
}

// showComparison prints one saved comparison with its findings.
func showComparison(ctx context.Context, db *database.HistoryDB, id int64, out io.Writer) error {
	c, err := db.GetComparisonByID(ctx, id)
	if err != nil {
		return err
	}
	if c == nil {
		return fmt.Errorf("comparison %d not found", id)
	}

	_, err = report.NewSimpleWriter(out, report.WithVerbose(true), report.WithShowEmpty(true)).Write(c)
	return err
}
