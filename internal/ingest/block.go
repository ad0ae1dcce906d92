package ingest

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/hyle-oof/oofprover/internal/bus"
	"github.com/hyle-oof/oofprover/internal/contract"
	"github.com/hyle-oof/oofprover/internal/metrics"
	"github.com/hyle-oof/oofprover/internal/models"
	"github.com/hyle-oof/oofprover/internal/prover"
	"github.com/hyle-oof/oofprover/internal/settlement"
)

// ErrMissingLane is the precondition violated when a block carries a blob
// transaction without a lane assignment.
var ErrMissingLane = errors.New("missing lane id for transaction")

// Publisher receives transaction outcome events. Publish must not block.
type Publisher interface {
	Publish(ev bus.Event)
}

// Dispatcher starts background proof work. Dispatch must not block.
type Dispatcher interface {
	Dispatch(job prover.Job) string
}

// Ingestor applies finalized blocks to the contract mirrors, dispatches proofs
// for the blobs it executed and reconciles settlements. It must be driven from
// a single goroutine.
type Ingestor struct {
	registry    *contract.Registry
	store       *contract.Store
	tracker     *settlement.Tracker
	publisher   Publisher
	dispatcher  Dispatcher
	metrics     *metrics.Metrics
	chainID     uint64
	startHeight models.BlockHeight
}

// Option customises the ingestor.
type Option func(*Ingestor)

// WithPublisher sets the event sink.
func WithPublisher(p Publisher) Option {
	return func(i *Ingestor) { i.publisher = p }
}

// WithDispatcher sets the proof dispatcher.
func WithDispatcher(d Dispatcher) Option {
	return func(i *Ingestor) { i.dispatcher = d }
}

// WithTracker sets the settlement tracker.
func WithTracker(t *settlement.Tracker) Option {
	return func(i *Ingestor) { i.tracker = t }
}

// WithMetrics records ingestion metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(i *Ingestor) { i.metrics = m }
}

// WithStartHeight sets the first height this service proves. Blobs in earlier
// blocks are executed locally but not proved, unless their contract opts in.
func WithStartHeight(h models.BlockHeight) Option {
	return func(i *Ingestor) { i.startHeight = h }
}

// WithChainID sets the chain id bound into every transaction context.
func WithChainID(id uint64) Option {
	return func(i *Ingestor) { i.chainID = id }
}

type discardPublisher struct{}

func (discardPublisher) Publish(bus.Event) {}

type discardDispatcher struct{}

func (discardDispatcher) Dispatch(prover.Job) string { return "" }

// New creates an ingestor over the registered contracts and their mirrors.
func New(registry *contract.Registry, store *contract.Store, opts ...Option) *Ingestor {
	i := &Ingestor{
		registry:   registry,
		store:      store,
		publisher:  discardPublisher{},
		dispatcher: discardDispatcher{},
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.tracker == nil {
		i.tracker = settlement.NewTracker(i.metrics)
	}
	return i
}

// Tracker returns the settlement tracker owning the unsettled pool.
func (i *Ingestor) Tracker() *settlement.Tracker {
	return i.tracker
}

// HandleProcessedBlock processes the blob transactions of a block in order,
// then its successful, timed out and failed settlement lists.
//
// A blob transaction without a lane id is a broken invariant of the block
// stream and panics.
func (i *Ingestor) HandleProcessedBlock(block *models.Block) error {
	if block == nil {
		return fmt.Errorf("block is nil")
	}

	for _, tx := range block.Txs {
		if tx.Blob == nil {
			continue
		}
		hash := tx.Blob.Hash()
		lane, ok := block.LaneIDs[hash]
		if !ok {
			panic(fmt.Sprintf("%v: tx %s in block %d", ErrMissingLane, hash, block.Height))
		}
		txCtx := models.TxContext{
			BlockHeight: block.Height,
			BlockHash:   block.Hash,
			Timestamp:   block.Timestamp,
			LaneID:      lane,
			ChainID:     i.chainID,
		}
		i.handleBlobTransaction(tx.Blob, hash, txCtx)
	}

	for _, hash := range block.SuccessfulTxs {
		i.tracker.SettleTx(hash, settlement.StatusSuccessful)
	}
	for _, hash := range block.TimedOutTxs {
		i.tracker.SettleTx(hash, settlement.StatusTimedOut)
	}
	for _, hash := range block.FailedTxs {
		i.tracker.SettleTx(hash, settlement.StatusFailed)
	}

	i.metrics.RecordBlock(uint64(block.Height))
	i.publisher.Publish(bus.Processed(block))
	slog.Debug("Processed block", "height", block.Height, "txs", len(block.Txs), "unsettled", i.tracker.Len())
	return nil
}

// handleBlobTransaction routes every blob addressed to a tracked contract to
// that contract's mirror. The transaction is pooled whether or not it matched.
func (i *Ingestor) handleBlobTransaction(tx *models.BlobTransaction, hash models.TxHash, txCtx models.TxContext) {
	i.tracker.Track(hash, tx)
	for index, blob := range tx.Blobs {
		reg, ok := i.registry.Lookup(blob.ContractName)
		if !ok {
			continue
		}
		i.handleBlob(reg, tx, hash, index, txCtx)
	}
}

func (i *Ingestor) handleBlob(reg contract.Registration, tx *models.BlobTransaction, hash models.TxHash, index int, txCtx models.TxContext) {
	name := string(reg.Name)

	commitmentMetadata, err := i.store.Snapshot(reg.Name)
	if err != nil {
		slog.Error("Failed to serialize state", "tx", hash, "contract", name, "error", err)
		i.metrics.RecordBlob(name, "serialize_error")
		return
	}

	calldata := &models.Calldata{
		Identity:     tx.Identity,
		TxHash:       hash,
		PrivateInput: append([]byte(nil), reg.PrivateInput...),
		Blobs:        cloneBlobs(tx.Blobs),
		Index:        index,
		TxCtx:        &txCtx,
		TxBlobCount:  len(tx.Blobs),
	}

	_, execErr := i.store.Apply(reg.Name, calldata)

	if txCtx.BlockHeight < i.startHeight && !reg.ProveHistorical {
		slog.Debug("Skipping historical blob", "tx", hash, "contract", name, "height", txCtx.BlockHeight)
		i.metrics.RecordBlob(name, "historical")
		return
	}

	if execErr != nil {
		slog.Error("Error while executing contract", "tx", hash, "contract", name, "error", execErr)
		i.metrics.RecordBlob(name, "failed")
		i.publisher.Publish(bus.Failed(hash, execErr.Error()))
		return
	}

	i.metrics.RecordBlob(name, "sequenced")
	i.publisher.Publish(bus.Sequenced(hash))
	i.dispatcher.Dispatch(prover.Job{
		Contract:           reg.Name,
		CommitmentMetadata: commitmentMetadata,
		Calldata:           calldata,
	})
}

func cloneBlobs(blobs []models.Blob) []models.Blob {
	out := make([]models.Blob, len(blobs))
	for i, blob := range blobs {
		out[i] = models.Blob{ContractName: blob.ContractName, Data: append([]byte(nil), blob.Data...)}
	}
	return out
}
