// Package engine runs scripts inside database transactions.
//
// A call to Engine.RunTransaction pairs two goroutines over a command
// channel:
//
//	executor                              owner
//	--------                              -----
//	sandbox runs script                   checks out a connection, BEGIN
//	transaction:get(...)   -- GetCommand -->  SELECT ... ; reply row
//	transaction:create(...) -- CreateCommand --> INSERT ... RETURNING * ; reply row
//	return v               -- DoneCommand -->  COMMIT
//	transaction:rollback(v) -- RollbackCommand --> ROLLBACK, success
//	error / violation      -- ErrorCommand -->  ROLLBACK, *TransactionError
//
// The owner is the only goroutine that touches the transaction. Commands
// are answered strictly in the order they were sent, and each command is
// stamped with a per-transaction sequence number from Clock that appears in
// debug logs and names its savepoint when savepoints are enabled.
//
// Every round trip honors the caller's context. When the context ends the
// owner stops serving, rolls back and returns; the sandbox observes the
// same context and stops the script.
//
// Get and create commands count against a per-transaction quota
// (QuotaEnforcer). A script that exceeds it sees a catchable
// QUOTA_EXCEEDED error on every further command.
package engine
