package engine

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/restql/internal/config"
	"github.com/roach88/restql/internal/script"
)

// DefaultCommandBuffer is the default capacity of the command channel.
const DefaultCommandBuffer = 100

// Outcome is how a scripted transaction ended.
type Outcome int

const (
	// OutcomeCommit means the script returned normally and the
	// transaction was committed.
	OutcomeCommit Outcome = iota

	// OutcomeRollback means the script called transaction:rollback. The
	// transaction was rolled back and the call succeeded.
	OutcomeRollback

	// OutcomeRollbackError means the script failed. The transaction was
	// rolled back and the call returned an error.
	OutcomeRollbackError
)

// String returns the outcome name used in logs and CLI output.
func (o Outcome) String() string {
	switch o {
	case OutcomeCommit:
		return "commit"
	case OutcomeRollback:
		return "rollback"
	case OutcomeRollbackError:
		return "rollback_error"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Result describes a finished scripted transaction.
type Result struct {
	TxID    string  `json:"tx_id" msgpack:"tx_id"`
	Outcome Outcome `json:"outcome" msgpack:"outcome"`

	// Value is the script's return value on commit, or the value passed
	// to transaction:rollback. It is JSON-compatible: nil, bool, int64,
	// float64, string, []any or map[string]any.
	Value any `json:"value" msgpack:"value"`

	// Commands is the number of get/create commands the script issued.
	Commands int `json:"commands" msgpack:"commands"`

	// CleanupErr is a commit or rollback failure that happened after the
	// outcome was decided. It never changes Outcome.
	CleanupErr error `json:"-" msgpack:"-"`
}

// Engine runs scripts against database transactions.
//
// Each RunTransaction call checks out one connection, opens one
// transaction and runs two goroutines:
//   - the owner, which holds the transaction and services commands
//   - the executor, which runs the script in a sandbox and sends commands
//
// The goroutines share nothing but the command channel. An Engine is safe
// for concurrent use; calls do not share transactions.
type Engine struct {
	db            *sql.DB
	idGen         TxIDGenerator
	savepoints    bool
	maxCommands   int
	commandBuffer int
	timeout       time.Duration

	// runScript is script.Run outside of tests.
	runScript func(ctx context.Context, host script.Host, src string, input any) (any, error)
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithSavepoints wraps every get/create in a savepoint, so a failed
// command the script catches leaves the transaction usable. Postgres
// aborts the whole transaction on any error otherwise.
func WithSavepoints() EngineOption {
	return func(e *Engine) {
		e.savepoints = true
	}
}

// WithMaxCommands sets the get/create quota per transaction.
//
// Default: 1000 commands (DefaultMaxCommands)
func WithMaxCommands(n int) EngineOption {
	return func(e *Engine) {
		e.maxCommands = n
	}
}

// WithCommandBuffer sets the command channel capacity.
func WithCommandBuffer(n int) EngineOption {
	return func(e *Engine) {
		e.commandBuffer = n
	}
}

// WithTimeout bounds every transaction. Zero means no limit beyond the
// caller's context.
func WithTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.timeout = d
	}
}

// WithTxIDGenerator replaces the UUIDv7 transaction ID generator.
func WithTxIDGenerator(g TxIDGenerator) EngineOption {
	return func(e *Engine) {
		e.idGen = g
	}
}

// OptionsFromConfig translates the transaction section of a config file.
func OptionsFromConfig(cfg config.Transaction) []EngineOption {
	opts := []EngineOption{
		WithCommandBuffer(cfg.CommandBuffer),
		WithMaxCommands(cfg.MaxCommands),
		WithTimeout(time.Duration(cfg.Timeout)),
	}
	if cfg.Savepoints {
		opts = append(opts, WithSavepoints())
	}
	return opts
}

// New creates an Engine that checks connections out of db.
func New(db *sql.DB, opts ...EngineOption) *Engine {
	e := &Engine{
		db:            db,
		idGen:         UUIDv7Generator{},
		maxCommands:   DefaultMaxCommands,
		commandBuffer: DefaultCommandBuffer,
		runScript:     script.Run,
	}

	for _, opt := range opts {
		opt(e)
	}
	if e.commandBuffer < 1 {
		e.commandBuffer = 1
	}
	return e
}

// RunTransaction runs src with input bound to the script global "input"
// inside one database transaction.
//
// The transaction is committed when the script returns normally and rolled
// back otherwise. An explicit transaction:rollback(v) is a success: the
// error is nil and Result.Value is v. Script and database failures return
// a *TransactionError alongside a Result whose Outcome is
// OutcomeRollbackError.
//
// The connection and transaction are always released before
// RunTransaction returns.
func (e *Engine) RunTransaction(ctx context.Context, src string, input any) (Result, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	txID := e.idGen.Generate()
	commands := make(chan envelope, e.commandBuffer)

	slog.Info("transaction starting", "tx_id", txID)

	var decided ownerResult
	var g errgroup.Group
	g.Go(func() error {
		decided = e.own(ctx, txID, commands)
		return decided.setupErr
	})
	g.Go(func() error {
		e.execute(ctx, newClient(commands), src, input)
		return nil
	})
	setupErr := g.Wait()

	result := Result{
		TxID:       txID,
		Outcome:    decided.outcome,
		Value:      decided.value,
		Commands:   decided.commands,
		CleanupErr: decided.cleanupErr,
	}

	if result.CleanupErr != nil {
		slog.Error("transaction cleanup failed",
			"tx_id", txID,
			"outcome", result.Outcome.String(),
			"error", result.CleanupErr)
	}

	slog.Info("transaction finished",
		"tx_id", txID,
		"outcome", result.Outcome.String(),
		"commands", result.Commands)

	if setupErr != nil {
		return result, &TransactionError{TxID: txID, Commands: result.Commands, Err: setupErr}
	}
	if result.Outcome == OutcomeRollbackError {
		return result, &TransactionError{TxID: txID, Commands: result.Commands, Err: decided.err}
	}
	return result, nil
}
