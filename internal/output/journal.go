package output

import (
	"context"
	"log/slog"
	"time"

	"github.com/hyle-oof/oofprover/internal/bus"
	"github.com/hyle-oof/oofprover/internal/models"
)

const (
	defaultProofBuffer = 256
	drainTimeout       = 5 * time.Second
)

// Journal copies bus events and proof outcomes into an OutputHandler. It is
// a bus subscriber and a dispatcher observer; all writes happen on the Run
// goroutine.
type Journal struct {
	handler OutputHandler
	proofs  chan models.ProofRecord
	now     func() time.Time
}

func NewJournal(handler OutputHandler) *Journal {
	return &Journal{
		handler: handler,
		proofs:  make(chan models.ProofRecord, defaultProofBuffer),
		now:     time.Now,
	}
}

// ObserveProof queues a proof outcome for writing. Outcomes arriving while the
// queue is full are dropped.
func (j *Journal) ObserveProof(rec models.ProofRecord) {
	select {
	case j.proofs <- rec:
	default:
		slog.Warn("Dropping proof record, journal is behind", "task", rec.TaskID, "tx", rec.TxHash)
	}
}

// Run writes records until ctx is cancelled or the subscription is closed,
// then flushes the proof outcomes already queued.
func (j *Journal) Run(ctx context.Context, sub *bus.Subscription) error {
	defer j.drain(ctx)
	for ctx.Err() == nil {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-sub.C:
			if !ok {
				return nil
			}
			j.writeEvent(ctx, ev)
		case rec := <-j.proofs:
			j.writeProof(ctx, rec)
		}
	}
	return nil
}

func (j *Journal) drain(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), drainTimeout)
	defer cancel()
	for {
		select {
		case rec := <-j.proofs:
			j.writeProof(ctx, rec)
		default:
			return
		}
	}
}

func (j *Journal) writeEvent(ctx context.Context, ev bus.Event) {
	var err error
	switch ev.Kind {
	case bus.BlockProcessed:
		err = j.handler.WriteBlock(ctx, models.BlockRecord{
			Height:      ev.Height,
			Hash:        ev.BlockHash,
			TxCount:     ev.TxCount,
			ProcessedAt: j.now(),
		})
	case bus.SequencedTx, bus.FailedTx:
		err = j.handler.WriteTxEvent(ctx, models.TxEventRecord{
			TxHash:    ev.TxHash,
			Kind:      ev.Kind.String(),
			Reason:    ev.Reason,
			CreatedAt: j.now(),
		})
	default:
		slog.Debug("Ignoring event", "kind", ev.Kind)
		return
	}
	if err != nil {
		slog.Error("Failed to journal event", "kind", ev.Kind, "tx", ev.TxHash, "height", ev.Height, "error", err)
	}
}

func (j *Journal) writeProof(ctx context.Context, rec models.ProofRecord) {
	if err := j.handler.WriteProofResult(ctx, rec); err != nil {
		slog.Error("Failed to journal proof result", "task", rec.TaskID, "tx", rec.TxHash, "error", err)
	}
}
