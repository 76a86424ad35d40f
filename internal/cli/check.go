package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/restql/internal/queryir"
)

// CheckResult holds descriptor validation results.
type CheckResult struct {
	Valid       bool     `json:"valid"`
	SingleTable bool     `json:"single_table"`
	Warnings    []string `json:"warnings,omitempty"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <query>",
		Short: "Check a query string for surprising features",
		Long: `Parse a PostgREST-style query string and report features that compile
but may not behave as expected, such as nested selections (no JOIN is
generated) and duplicate output keys.

Exits 1 when warnings are found so scripts can gate on a clean query.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runCheck(opts *RootOptions, query string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	d, err := queryir.Parse(query)
	if err != nil {
		return formatter.Fail(ExitCommandError, "invalid query", err)
	}

	v := queryir.Validate(d)
	result := CheckResult{
		Valid:       len(v.Warnings) == 0,
		SingleTable: v.SingleTable,
		Warnings:    v.Warnings,
	}

	if formatter.Format != "text" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else if result.Valid {
		fmt.Fprintln(formatter.Writer, "✓ query is single-table and clean")
	} else {
		fmt.Fprintln(formatter.Writer, "✗ query has warnings")
		fmt.Fprintln(formatter.Writer)
		for _, w := range result.Warnings {
			fmt.Fprintf(formatter.Writer, "  %s\n", w)
		}
	}

	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("check found %d warning(s)", len(result.Warnings)))
	}
	return nil
}
