package engine

import (
	"errors"
	"fmt"
)

// TransactionError is returned by RunTransaction when a script fails and
// its transaction is rolled back.
//
// It wraps the cause, so ir.IsCode and errors.Is see through it.
type TransactionError struct {
	// TxID identifies the failed transaction in logs.
	TxID string

	// Commands is the number of get/create commands the script issued.
	Commands int

	// Err is the script or database failure that decided the rollback.
	Err error
}

// Error implements the error interface.
func (e *TransactionError) Error() string {
	return fmt.Sprintf("transaction %s rolled back: %v", e.TxID, e.Err)
}

// Unwrap returns the cause.
func (e *TransactionError) Unwrap() error {
	return e.Err
}

// IsTransactionError reports whether err is, or wraps, a TransactionError.
func IsTransactionError(err error) bool {
	var te *TransactionError
	return errors.As(err, &te)
}
