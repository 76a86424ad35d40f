package engine

import "github.com/roach88/restql/internal/ir"

// Command is a request from the script executor to the transaction owner.
// The set of commands is closed.
type Command interface {
	isCommand()
	kind() string
}

// GetCommand fetches one row by id text inside the transaction.
type GetCommand struct {
	Table string
	ID    string
}

// CreateCommand inserts one row inside the transaction.
type CreateCommand struct {
	Table string
	Data  ir.JSONMap
}

// RollbackCommand ends the transaction with a rollback that the caller
// sees as success, returning Value.
type RollbackCommand struct {
	Value any
}

// DoneCommand ends the transaction with a commit, returning Value.
type DoneCommand struct {
	Value any
}

// ErrorCommand ends the transaction with a rollback and reports Err.
type ErrorCommand struct {
	Err error
}

func (GetCommand) isCommand()      {}
func (CreateCommand) isCommand()   {}
func (RollbackCommand) isCommand() {}
func (DoneCommand) isCommand()     {}
func (ErrorCommand) isCommand()    {}

func (GetCommand) kind() string      { return "get" }
func (CreateCommand) kind() string   { return "create" }
func (RollbackCommand) kind() string { return "rollback" }
func (DoneCommand) kind() string     { return "done" }
func (ErrorCommand) kind() string    { return "error" }

// reply answers one command. Row is nil for terminal commands and for a
// get that matched nothing.
type reply struct {
	Row ir.OptionalJSONMap
	Err error
}

// envelope pairs a command with its single-use reply channel. The channel
// has capacity 1 so the owner never blocks answering.
type envelope struct {
	cmd   Command
	reply chan reply
}

func newEnvelope(cmd Command) envelope {
	return envelope{cmd: cmd, reply: make(chan reply, 1)}
}
