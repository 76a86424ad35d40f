package cli

import (
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/restql/internal/ir"
	"github.com/roach88/restql/internal/queryir"
)

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <table> <id>",
		Short: "Fetch one record by id",
		Long: `Fetch one record by primary key.

The id is parsed like any other value: a UUID or timestamp binds as that
type, anything else as text.

Example:
  restql get accounts 89592c86-f85d-4527-bdb9-4c3f5dd63f2d
  restql --format json get accounts 42`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(rootOpts, args[0], args[1], cmd)
		},
	}
}

func runGet(opts *RootOptions, table, id string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	sess, err := openSession(opts, cmd)
	if err != nil {
		return formatter.Fail(GetExitCode(err), "get failed", err)
	}
	defer sess.Close()

	row, err := sess.store.Get(sess.ctx, table, id)
	if err != nil {
		return formatter.Fail(exitCodeFor(err), "get failed", err)
	}
	if row == nil {
		return formatter.Fail(ExitFailure, "get failed",
			ir.NewError(ir.ErrCodeEmptyResult, "no %s record with id %s", table, id))
	}
	return formatter.Success(row)
}

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Limit  uint64
	Offset uint64
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list <table> [query]",
		Short: "List records matching a query descriptor",
		Long: `List records using a PostgREST-style query string.

Supported parameters are select, order, limit and offset.

Example:
  restql list accounts
  restql list accounts 'select=id,name:username&order=id.desc&limit=10'`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			query := ""
			if len(args) == 2 {
				query = args[1]
			}
			return runList(opts, args[0], query, cmd)
		},
	}

	cmd.Flags().Uint64Var(&opts.Limit, "limit", 0, "maximum rows (overrides the query's limit)")
	cmd.Flags().Uint64Var(&opts.Offset, "offset", 0, "rows to skip (overrides the query's offset)")

	return cmd
}

func runList(opts *ListOptions, table, query string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	d, err := queryir.Parse(query)
	if err != nil {
		return formatter.Fail(ExitCommandError, "invalid query", err)
	}
	if cmd.Flags().Changed("limit") {
		d = d.WithLimit(opts.Limit)
	}
	if cmd.Flags().Changed("offset") {
		d = d.WithOffset(opts.Offset)
	}

	for _, w := range queryir.Validate(d).Warnings {
		formatter.VerboseLog("warning: %s", w)
	}

	sess, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return formatter.Fail(GetExitCode(err), "list failed", err)
	}
	defer sess.Close()

	rows, err := sess.store.List(sess.ctx, table, d)
	if err != nil {
		return formatter.Fail(exitCodeFor(err), "list failed", err)
	}
	return formatter.Success(rows)
}

// NewInsertCommand creates the insert command.
func NewInsertCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "insert <table> <json|@file|->",
		Short: "Insert one record and print it",
		Long: `Insert one record from a JSON object and print the stored row.

The body is a JSON literal, @path to read a file, or - to read stdin.
Arrays are rejected: batch insert is not supported.

Example:
  restql insert accounts '{"username":"ada","score":9.5}'
  restql insert accounts @account.json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInsert(rootOpts, args[0], args[1], cmd)
		},
	}
}

func runInsert(opts *RootOptions, table, body string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	raw, err := readArg(body, cmd.InOrStdin())
	if err != nil {
		return formatter.Fail(ExitCommandError, "invalid body", err)
	}

	var data ir.JSONMap
	if err := data.UnmarshalJSON(raw); err != nil {
		return formatter.Fail(ExitCommandError, "invalid body", err)
	}

	sess, err := openSession(opts, cmd)
	if err != nil {
		return formatter.Fail(GetExitCode(err), "insert failed", err)
	}
	defer sess.Close()

	row, err := sess.store.Insert(sess.ctx, table, data)
	if err != nil {
		return formatter.Fail(exitCodeFor(err), "insert failed", err)
	}
	return formatter.Success(row)
}

// readArg resolves a literal, @file or - (stdin) argument.
func readArg(arg string, stdin io.Reader) ([]byte, error) {
	switch {
	case arg == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, ir.WrapError(ir.ErrCodeParse, err, "read stdin")
		}
		return bytes.TrimSpace(data), nil
	case strings.HasPrefix(arg, "@"):
		data, err := os.ReadFile(arg[1:])
		if err != nil {
			return nil, ir.WrapError(ir.ErrCodeParse, err, "read %s", arg[1:])
		}
		return data, nil
	default:
		return []byte(arg), nil
	}
}

// exitCodeFor maps an operation failure to an exit code. Input the caller
// can fix is a command error; everything else is an operation failure.
func exitCodeFor(err error) int {
	switch ir.CodeOf(err) {
	case ir.ErrCodeParse, ir.ErrCodeTypeCoercion, ir.ErrCodeSQLCompile, ir.ErrCodeUnsupported:
		return ExitCommandError
	default:
		return ExitFailure
	}
}
