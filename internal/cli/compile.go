package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/restql/internal/ir"
	"github.com/roach88/restql/internal/queryir"
	"github.com/roach88/restql/internal/querysql"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	ID     string // compile a get by id instead of a list
	Data   string // compile an insert of this JSON object instead of a list
	Output string // output file path
}

// CompilationResult is the SQL a request would run, without running it.
type CompilationResult struct {
	Op     string     `json:"op"` // "list" | "get" | "insert"
	SQL    string     `json:"sql"`
	Params []ir.Value `json:"params"`
}

// String renders the SQL followed by one line per bound parameter.
func (r CompilationResult) String() string {
	var b strings.Builder
	b.WriteString(r.SQL)
	for i, p := range r.Params {
		fmt.Fprintf(&b, "\n  $%d = %s (%T)", i+1, ir.Text(p), p)
	}
	return b.String()
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <table> [query]",
		Short: "Print the SQL a request compiles to",
		Long: `Compile a list, get or insert request to SQL without touching a database.

With no flags the query string is compiled as a list. --id compiles a
fetch by primary key and --data compiles a single-row insert.

Example:
  restql compile accounts 'select=id,name:username&order=id.desc&limit=5'
  restql compile accounts --id 42
  restql --format json compile accounts --data '{"username":"ada"}'`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			query := ""
			if len(args) == 2 {
				query = args[1]
			}
			return runCompile(opts, args[0], query, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ID, "id", "", "compile a get by this id")
	cmd.Flags().StringVar(&opts.Data, "data", "", "compile an insert of this JSON object (literal, @file or -)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, table, query string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	result, err := compileRequest(opts, table, query, cmd)
	if err != nil {
		return formatter.Fail(exitCodeFor(err), "compilation failed", err)
	}

	if opts.Output == "" {
		return formatter.Success(result)
	}

	f, err := os.Create(opts.Output)
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to write output",
			ir.WrapError(ir.ErrCodeParse, err, "create %s", opts.Output))
	}
	defer f.Close()

	fileFormatter := &OutputFormatter{Format: opts.Format, Writer: f}
	if err := fileFormatter.Success(result); err != nil {
		return WrapExitError(ExitCommandError, "failed to write output", err)
	}
	formatter.VerboseLog("Wrote %s", opts.Output)
	return nil
}

func compileRequest(opts *CompileOptions, table, query string, cmd *cobra.Command) (CompilationResult, error) {
	compiler := querysql.NewSQLCompiler()

	switch {
	case opts.ID != "" && opts.Data != "":
		return CompilationResult{}, ir.NewError(ir.ErrCodeParse, "--id and --data are mutually exclusive")

	case opts.ID != "":
		q, err := compiler.CompileGet(table, ir.ParseString(opts.ID))
		if err != nil {
			return CompilationResult{}, err
		}
		return CompilationResult{Op: "get", SQL: q.SQL, Params: q.Params}, nil

	case opts.Data != "":
		raw, err := readArg(opts.Data, cmd.InOrStdin())
		if err != nil {
			return CompilationResult{}, err
		}
		var data ir.JSONMap
		if err := data.UnmarshalJSON(raw); err != nil {
			return CompilationResult{}, err
		}
		q, err := compiler.CompileInsert(table, data)
		if err != nil {
			return CompilationResult{}, err
		}
		return CompilationResult{Op: "insert", SQL: q.SQL, Params: q.Params}, nil
	}

	d, err := queryir.Parse(query)
	if err != nil {
		return CompilationResult{}, err
	}
	q, err := compiler.CompileSelect(table, d)
	if err != nil {
		return CompilationResult{}, err
	}
	return CompilationResult{Op: "list", SQL: q.SQL, Params: q.Params}, nil
}
