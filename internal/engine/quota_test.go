package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/restql/internal/ir"
)

// TestQuotaEnforcer_WithinLimit tests normal operation within quota.
func TestQuotaEnforcer_WithinLimit(t *testing.T) {
	q := NewQuotaEnforcer(10)

	for i := 0; i < 10; i++ {
		err := q.Check("tx-1")
		assert.NoError(t, err, "command %d should be allowed", i+1)
	}

	assert.Equal(t, 10, q.Current())
	assert.Equal(t, 10, q.MaxCommands())
}

// TestQuotaEnforcer_ExceedsLimit tests quota exceeded error.
func TestQuotaEnforcer_ExceedsLimit(t *testing.T) {
	q := NewQuotaEnforcer(5)

	for i := 0; i < 5; i++ {
		require.NoError(t, q.Check("tx-1"))
	}

	// 6th should fail
	err := q.Check("tx-1")
	require.Error(t, err)
	assert.True(t, ir.IsCode(err, ir.ErrCodeQuotaExceeded))
	assert.Equal(t, "QUOTA_EXCEEDED: transaction tx-1 exceeded max commands (6 > 5)", err.Error())

	// Every later command fails too
	err = q.Check("tx-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "(7 > 5)")
	assert.Equal(t, 7, q.Current())
}

func TestQuotaEnforcer_ZeroLimit(t *testing.T) {
	q := NewQuotaEnforcer(0)
	assert.Error(t, q.Check("tx-1"))
}

func TestTransactionError(t *testing.T) {
	cause := ir.NewError(ir.ErrCodeScriptRuntime, "boom")
	err := &TransactionError{TxID: "tx-abc", Commands: 3, Err: cause}

	assert.Equal(t, "transaction tx-abc rolled back: SCRIPT_RUNTIME: boom", err.Error())
	assert.True(t, errors.Is(err, cause))
	assert.True(t, ir.IsCode(err, ir.ErrCodeScriptRuntime))

	wrapped := fmt.Errorf("run: %w", err)
	assert.True(t, IsTransactionError(wrapped))
	assert.False(t, IsTransactionError(cause))
	assert.False(t, IsTransactionError(nil))
}
