package testutil

// FixedTxIDGenerator generates the same transaction ID every time.
//
// Unlike engine.FixedGenerator which returns IDs in sequence and panics
// when exhausted, this generator never runs out. Use it when a test runs
// an unknown number of transactions but wants stable log output.
//
// Thread-safety: FixedTxIDGenerator is stateless and safe for concurrent use.
type FixedTxIDGenerator struct {
	id string
}

// NewFixedTxIDGenerator creates a new fixed transaction ID generator.
//
// If id is empty, Generate() returns "test-tx-default".
func NewFixedTxIDGenerator(id string) *FixedTxIDGenerator {
	if id == "" {
		id = "test-tx-default"
	}
	return &FixedTxIDGenerator{id: id}
}

// Generate returns the fixed transaction ID.
//
// Implements engine.TxIDGenerator.
func (g *FixedTxIDGenerator) Generate() string {
	return g.id
}
