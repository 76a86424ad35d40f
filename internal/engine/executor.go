package engine

import (
	"context"
	"log/slog"
	"runtime/debug"

	"github.com/roach88/restql/internal/ir"
	"github.com/roach88/restql/internal/script"
)

// execute runs the script and sends exactly one terminal command, unless
// the script already ended the transaction with transaction:rollback.
// A panic anywhere in the interpreter becomes an ErrorCommand so the
// owner's loop always terminates.
func (e *Engine) execute(ctx context.Context, c *client, src string, input any) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("script executor panicked", "panic", r, "stack", string(debug.Stack()))
			c.terminate(ctx, ErrorCommand{
				Err: ir.NewError(ir.ErrCodeScriptRuntime, "script executor panicked: %v", r),
			})
		}
	}()

	value, err := e.runScript(ctx, c, src, input)
	if err != nil {
		c.terminate(ctx, ErrorCommand{Err: err})
		return
	}
	c.terminate(ctx, DoneCommand{Value: value})
}

// client is the executor's end of the command channel. It implements
// script.Host; every method is a blocking round trip.
type client struct {
	commands chan<- envelope

	// finished is set once a terminal command has been acknowledged.
	// Only the executor goroutine touches it.
	finished bool
}

func newClient(commands chan<- envelope) *client {
	return &client{commands: commands}
}

var _ script.Host = (*client)(nil)

// Get implements script.Host.
func (c *client) Get(ctx context.Context, table, id string) (ir.OptionalJSONMap, error) {
	return c.request(ctx, GetCommand{Table: table, ID: id})
}

// Create implements script.Host.
func (c *client) Create(ctx context.Context, table string, data ir.JSONMap) (ir.OptionalJSONMap, error) {
	return c.request(ctx, CreateCommand{Table: table, Data: data})
}

// Rollback implements script.Host. After it returns nil the transaction is
// over: the script may keep running, but further host calls fail and its
// return value is discarded.
func (c *client) Rollback(ctx context.Context, value any) error {
	if c.finished {
		return errFinished()
	}
	if _, err := c.roundTrip(ctx, RollbackCommand{Value: value}); err != nil {
		return err
	}
	c.finished = true
	return nil
}

func (c *client) request(ctx context.Context, cmd Command) (ir.OptionalJSONMap, error) {
	if c.finished {
		return nil, errFinished()
	}
	r, err := c.roundTrip(ctx, cmd)
	if err != nil {
		return nil, err
	}
	return r.Row, r.Err
}

// terminate sends a terminal command unless one was already sent.
func (c *client) terminate(ctx context.Context, cmd Command) {
	if c.finished {
		return
	}
	c.finished = true
	if _, err := c.roundTrip(ctx, cmd); err != nil {
		slog.Debug("terminal command not delivered", "kind", cmd.kind(), "error", err)
	}
}

// roundTrip sends cmd and waits for its reply. Only cancellation of ctx
// interrupts it; the owner always answers otherwise.
func (c *client) roundTrip(ctx context.Context, cmd Command) (reply, error) {
	env := newEnvelope(cmd)

	select {
	case c.commands <- env:
	case <-ctx.Done():
		return reply{}, ir.WrapError(ir.ErrCodeScriptRuntime, ctx.Err(), "send %s command", cmd.kind())
	}

	select {
	case r := <-env.reply:
		return r, nil
	case <-ctx.Done():
		return reply{}, ir.WrapError(ir.ErrCodeScriptRuntime, ctx.Err(), "await %s reply", cmd.kind())
	}
}

func errFinished() error {
	return ir.NewError(ir.ErrCodeScriptRuntime, "transaction already rolled back")
}
