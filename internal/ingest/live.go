package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hyle-oof/oofprover/internal/models"
)

// Follow processes block notifications in delivery order until the channel is
// closed or the context is cancelled.
func (i *Ingestor) Follow(ctx context.Context, blocks <-chan *models.Block) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case block, ok := <-blocks:
			if !ok {
				slog.Info("Block stream closed")
				return nil
			}
			if err := i.HandleProcessedBlock(block); err != nil {
				return fmt.Errorf("failed to handle block: %w", err)
			}
		}
	}
}
