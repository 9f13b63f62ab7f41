package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// usageLine is printed when fprdiff runs without arguments.
const usageLine = "Usage: fprdiff [Previous FPR File Name] [Current FPR File Name]"

// NewRootCmd creates the root command for fprdiff.
// The root command itself runs a single comparison.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fprdiff [previous.fpr] [current.fpr]",
		Short: "Compare findings of two Fortify scan archives",
		Long: `fprdiff compares two Fortify scan archives (.fpr) and reports which findings
went away and which are new between the previous and the current release scan.

Findings are matched by their instance ID only. The result is written to
"<previous>_<current>.csv" with one row per finding that occurs in exactly one
of the two scans. Without arguments, MyPreviousScan.fpr and MyCurrentScan.fpr
are compared.

Examples:
  # Compare two release scans
  fprdiff release-1.fpr release-2.fpr

  # Write the result to a specific file and print a Markdown summary
  fprdiff -o delta.csv -m release-1.fpr release-2.fpr

  # Record the comparison in the history database
  fprdiff --save release-1.fpr release-2.fpr`,
		Version:       getVersion(),
		Args:          cobra.MaximumNArgs(2),
		RunE:          runCompareCmd,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	addCommonFlags(cmd)
	addCompareFlags(cmd)

	cmd.AddCommand(NewBatchCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
