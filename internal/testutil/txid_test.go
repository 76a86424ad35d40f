package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedTxIDGenerator_ReturnsSameID(t *testing.T) {
	gen := NewFixedTxIDGenerator("tx-123")

	assert.Equal(t, "tx-123", gen.Generate())
	assert.Equal(t, "tx-123", gen.Generate())
	assert.Equal(t, "tx-123", gen.Generate())
}

func TestFixedTxIDGenerator_EmptyIDDefault(t *testing.T) {
	gen := NewFixedTxIDGenerator("")
	assert.Equal(t, "test-tx-default", gen.Generate())
}

func TestFixedTxIDGenerator_ThreadSafe(t *testing.T) {
	gen := NewFixedTxIDGenerator("thread-safe-id")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.Equal(t, "thread-safe-id", gen.Generate())
			}
		}()
	}
	wg.Wait()
}
