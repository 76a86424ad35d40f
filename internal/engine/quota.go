package engine

import "github.com/roach88/restql/internal/ir"

// DefaultMaxCommands is the default maximum number of get/create commands
// per transaction.
const DefaultMaxCommands = 1000

// QuotaEnforcer counts the get/create commands of one transaction and
// enforces a maximum.
//
// A script that loops over transaction:get forever would otherwise hold
// its connection until the caller's deadline. Terminal commands are not
// counted.
type QuotaEnforcer struct {
	maxCommands int
	current     int
}

// NewQuotaEnforcer creates a quota enforcer with the given limit.
func NewQuotaEnforcer(maxCommands int) *QuotaEnforcer {
	return &QuotaEnforcer{maxCommands: maxCommands}
}

// Check counts one command and returns a QUOTA_EXCEEDED error once the
// count passes the limit. The error is raised into the script, which may
// catch it; every later command fails the same way.
func (q *QuotaEnforcer) Check(txID string) error {
	q.current++
	if q.current > q.maxCommands {
		return ir.NewError(ir.ErrCodeQuotaExceeded,
			"transaction %s exceeded max commands (%d > %d)", txID, q.current, q.maxCommands)
	}
	return nil
}

// Current returns the number of commands counted so far.
func (q *QuotaEnforcer) Current() int {
	return q.current
}

// MaxCommands returns the limit.
func (q *QuotaEnforcer) MaxCommands() int {
	return q.maxCommands
}
