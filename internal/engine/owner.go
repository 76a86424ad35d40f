package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/restql/internal/ir"
	"github.com/roach88/restql/internal/store"
)

// ownerResult is what the owner decided.
type ownerResult struct {
	outcome  Outcome
	value    any
	err      error
	commands int

	// setupErr is set when no transaction could be opened. outcome is
	// then OutcomeRollbackError and err equals setupErr.
	setupErr error

	cleanupErr error
}

// own checks out a connection, opens a transaction and services commands
// until a terminal command arrives or ctx is done. The transaction is
// committed or rolled back before own returns.
func (e *Engine) own(ctx context.Context, txID string, commands <-chan envelope) ownerResult {
	conn, err := e.db.Conn(ctx)
	if err != nil {
		return drain(ctx, commands, ir.WrapError(ir.ErrCodeDatabase, err, "acquire connection"))
	}
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return drain(ctx, commands, ir.WrapError(ir.ErrCodeDatabase, err, "begin transaction"))
	}

	res := e.serve(ctx, txID, tx, commands)
	res.cleanupErr = finish(tx, res.outcome)
	return res
}

// serve is the owner's receive loop. Commands are handled strictly in
// arrival order; the executor never has two commands in flight.
func (e *Engine) serve(ctx context.Context, txID string, tx *sql.Tx, commands <-chan envelope) ownerResult {
	quota := NewQuotaEnforcer(e.maxCommands)
	clock := NewClock()

	for {
		var env envelope
		select {
		case <-ctx.Done():
			return ownerResult{
				outcome:  OutcomeRollbackError,
				err:      ir.WrapError(ir.ErrCodeScriptRuntime, ctx.Err(), "transaction interrupted"),
				commands: quota.Current(),
			}
		case env = <-commands:
		}

		seq := clock.Next()
		slog.Debug("command received", "tx_id", txID, "seq", seq, "kind", env.cmd.kind())

		switch cmd := env.cmd.(type) {
		case GetCommand:
			if err := quota.Check(txID); err != nil {
				env.reply <- reply{Err: err}
				continue
			}
			row, err := e.step(ctx, tx, seq, func() (ir.OptionalJSONMap, error) {
				return store.GetRecord(ctx, tx, cmd.Table, cmd.ID)
			})
			env.reply <- reply{Row: row, Err: err}

		case CreateCommand:
			if err := quota.Check(txID); err != nil {
				env.reply <- reply{Err: err}
				continue
			}
			row, err := e.step(ctx, tx, seq, func() (ir.OptionalJSONMap, error) {
				return store.InsertRecord(ctx, tx, cmd.Table, cmd.Data)
			})
			env.reply <- reply{Row: row, Err: err}

		case RollbackCommand:
			env.reply <- reply{}
			return ownerResult{outcome: OutcomeRollback, value: cmd.Value, commands: quota.Current()}

		case DoneCommand:
			env.reply <- reply{}
			return ownerResult{outcome: OutcomeCommit, value: cmd.Value, commands: quota.Current()}

		case ErrorCommand:
			env.reply <- reply{}
			return ownerResult{outcome: OutcomeRollbackError, err: cmd.Err, commands: quota.Current()}

		default:
			env.reply <- reply{Err: fmt.Errorf("unknown command %T", env.cmd)}
		}
	}
}

// step runs one get/create. With savepoints enabled the operation is
// wrapped so its failure rolls back only itself.
func (e *Engine) step(ctx context.Context, tx *sql.Tx, seq int64, op func() (ir.OptionalJSONMap, error)) (ir.OptionalJSONMap, error) {
	if !e.savepoints {
		return op()
	}

	name := fmt.Sprintf("restql_cmd_%d", seq)
	if _, err := tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return nil, ir.WrapError(ir.ErrCodeDatabase, err, "create savepoint")
	}

	row, err := op()
	if err != nil {
		if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); rbErr != nil {
			slog.Warn("rollback to savepoint failed", "savepoint", name, "error", rbErr)
		}
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		return nil, ir.WrapError(ir.ErrCodeDatabase, err, "release savepoint")
	}
	return row, nil
}

// drain keeps the protocol alive when no transaction could be opened:
// every get/create is answered with cause and the first terminal command
// is acknowledged and ends the loop. The executor therefore always
// finishes.
func drain(ctx context.Context, commands <-chan envelope, cause error) ownerResult {
	res := ownerResult{outcome: OutcomeRollbackError, err: cause, setupErr: cause}
	for {
		select {
		case <-ctx.Done():
			return res
		case env := <-commands:
			switch env.cmd.(type) {
			case RollbackCommand, DoneCommand, ErrorCommand:
				env.reply <- reply{}
				return res
			default:
				env.reply <- reply{Err: cause}
				res.commands++
			}
		}
	}
}

// finish commits or rolls back according to outcome. The returned error
// is informational; the outcome has already been decided.
func finish(tx *sql.Tx, outcome Outcome) error {
	if outcome == OutcomeCommit {
		if err := tx.Commit(); err != nil {
			return ir.WrapError(ir.ErrCodeDatabase, err, "commit")
		}
		return nil
	}

	// A cancelled context has already rolled the transaction back.
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return ir.WrapError(ir.ErrCodeDatabase, err, "rollback")
	}
	return nil
}
