package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/restql/internal/engine"
	"github.com/roach88/restql/internal/ir"
)

// TxOptions holds flags for the tx command.
type TxOptions struct {
	*RootOptions
	Input string

	// TxIDGenerator allows overriding the transaction ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	TxIDGenerator engine.TxIDGenerator
}

// NewTxCommand creates the tx command.
func NewTxCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TxOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "tx <script|@file|->",
		Short: "Run a Lua script inside one database transaction",
		Long: `Run a sandboxed Lua script inside one database transaction.

The script sees the decoded --input as the global "input" and a
"transaction" object with three methods:

  transaction:get(table, id)      fetch a row (nil when absent)
  transaction:create(table, row)  insert a row and return it
  transaction:rollback([value])   roll back and succeed with value

Returning normally commits and prints the returned value. Raising an error
rolls back and exits with status 1.

Example:
  restql tx @transfer.lua --input '{"from":1,"to":2}'
  restql tx 'return transaction:get("accounts", input)' --input '"42"'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTx(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Input, "input", "null", "script input as JSON (literal, @file or -)")

	return cmd
}

func runTx(opts *TxOptions, scriptArg string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if scriptArg == "-" && opts.Input == "-" {
		return formatter.Fail(ExitCommandError, "invalid arguments",
			ir.NewError(ir.ErrCodeParse, "script and --input cannot both read stdin"))
	}

	src, err := readArg(scriptArg, cmd.InOrStdin())
	if err != nil {
		return formatter.Fail(ExitCommandError, "invalid script", err)
	}
	input, err := decodeInput(opts.Input, cmd)
	if err != nil {
		return formatter.Fail(ExitCommandError, "invalid input", err)
	}

	sess, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return formatter.Fail(GetExitCode(err), "transaction failed", err)
	}
	defer sess.Close()

	engineOpts := engine.OptionsFromConfig(sess.cfg.Transaction)
	if opts.TxIDGenerator != nil {
		engineOpts = append(engineOpts, engine.WithTxIDGenerator(opts.TxIDGenerator))
	}
	eng := engine.New(sess.store.DB(), engineOpts...)

	res, err := eng.RunTransaction(sess.ctx, string(src), input)
	if err != nil {
		return formatter.Fail(ExitFailure, "transaction failed", err)
	}
	if res.CleanupErr != nil {
		formatter.VerboseLog("warning: %v", res.CleanupErr)
	}

	if formatter.Format != "text" {
		return formatter.Success(res)
	}
	formatter.VerboseLog("transaction %s: %s after %d command(s)", res.TxID, res.Outcome, res.Commands)
	return formatter.Success(txText{res})
}

// decodeInput parses the --input JSON. Numbers keep their integer or float
// form the way the script boundary expects.
func decodeInput(arg string, cmd *cobra.Command) (any, error) {
	raw, err := readArg(arg, cmd.InOrStdin())
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, ir.WrapError(ir.ErrCodeParse, err, "invalid --input JSON")
	}
	if dec.More() {
		return nil, ir.NewError(ir.ErrCodeParse, "invalid --input JSON: trailing data after value")
	}
	return v, nil
}

// txText renders a Result for text output.
type txText struct {
	res engine.Result
}

func (t txText) String() string {
	value, err := json.MarshalIndent(t.res.Value, "", "  ")
	if err != nil {
		value = []byte(fmt.Sprint(t.res.Value))
	}
	return fmt.Sprintf("%s\n%s", t.res.Outcome, value)
}
