package output

import (
	"context"

	"github.com/hyle-oof/oofprover/internal/models"
)

type OutputHandler interface {
	// WriteBlock records that a block has been ingested.
	WriteBlock(ctx context.Context, rec models.BlockRecord) error

	// WriteTxEvent records a SequencedTx or FailedTx event.
	WriteTxEvent(ctx context.Context, rec models.TxEventRecord) error

	// WriteProofResult records the outcome of a finished proof task.
	WriteProofResult(ctx context.Context, rec models.ProofRecord) error

	// GetLatestBlock returns the latest ingested block, or nil when none was recorded.
	GetLatestBlock(ctx context.Context) (*models.BlockRecord, error)

	// Close closes the output handler.
	Close() error
}
