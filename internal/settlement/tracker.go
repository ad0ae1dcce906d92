// Package settlement keeps the pool of observed transactions that have not
// yet received their final disposition on chain.
package settlement

import (
	"log/slog"

	"github.com/hyle-oof/oofprover/internal/metrics"
	"github.com/hyle-oof/oofprover/internal/models"
)

// Settlement statuses reported by a block.
const (
	StatusSuccessful = "successful"
	StatusTimedOut   = "timed_out"
	StatusFailed     = "failed"
)

type unsettledTx struct {
	hash models.TxHash
	tx   *models.BlobTransaction
}

// Tracker owns the unsettled transaction pool. Entries are only removed by a
// settlement event. It is not safe for concurrent use.
type Tracker struct {
	pool    []unsettledTx
	metrics *metrics.Metrics
}

// NewTracker returns an empty tracker reporting to m, which may be nil.
func NewTracker(m *metrics.Metrics) *Tracker {
	return &Tracker{metrics: m}
}

// Track adds an observed blob transaction to the pool.
func (t *Tracker) Track(hash models.TxHash, tx *models.BlobTransaction) {
	t.pool = append(t.pool, unsettledTx{hash: hash, tx: tx})
	t.metrics.SetPoolSize(len(t.pool))
}

// SettleTx removes the first pooled entry with the given hash. It reports
// whether an entry was removed; unknown hashes are a no-op.
func (t *Tracker) SettleTx(hash models.TxHash, status string) bool {
	for pos, entry := range t.pool {
		if entry.hash != hash {
			continue
		}
		t.pool = append(t.pool[:pos], t.pool[pos+1:]...)
		t.metrics.RecordSettlement(status, true)
		t.metrics.SetPoolSize(len(t.pool))
		slog.Debug("Settled transaction", "tx", hash, "status", status, "unsettled", len(t.pool))
		return true
	}
	t.metrics.RecordSettlement(status, false)
	return false
}

// Contains reports whether hash is still unsettled.
func (t *Tracker) Contains(hash models.TxHash) bool {
	for _, entry := range t.pool {
		if entry.hash == hash {
			return true
		}
	}
	return false
}

// Get returns the first unsettled transaction with the given hash.
func (t *Tracker) Get(hash models.TxHash) (*models.BlobTransaction, bool) {
	for _, entry := range t.pool {
		if entry.hash == hash {
			return entry.tx, true
		}
	}
	return nil, false
}

// Len returns the number of unsettled entries.
func (t *Tracker) Len() int {
	return len(t.pool)
}

// Hashes returns the unsettled hashes in observation order.
func (t *Tracker) Hashes() []models.TxHash {
	out := make([]models.TxHash, len(t.pool))
	for i, entry := range t.pool {
		out[i] = entry.hash
	}
	return out
}
