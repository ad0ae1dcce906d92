// Package bus fans out transaction outcome events to subscribers without
// ever blocking the publisher.
package bus

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/hyle-oof/oofprover/internal/metrics"
	"github.com/hyle-oof/oofprover/internal/models"
)

// DefaultBuffer is the per-subscriber channel capacity.
const DefaultBuffer = 256

// EventKind identifies the type of an event.
type EventKind int

const (
	// SequencedTx means the transaction was executed locally and its proof dispatched.
	SequencedTx EventKind = iota
	// FailedTx means local execution of one of the transaction's blobs was rejected.
	FailedTx
	// BlockProcessed is published once a block has been fully ingested.
	BlockProcessed
)

func (k EventKind) String() string {
	switch k {
	case SequencedTx:
		return "SequencedTx"
	case FailedTx:
		return "FailedTx"
	case BlockProcessed:
		return "BlockProcessed"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// Event is a message published on the bus.
type Event struct {
	Kind   EventKind
	TxHash models.TxHash
	Reason string

	Height    models.BlockHeight
	BlockHash string
	TxCount   int
}

// Sequenced builds a SequencedTx event.
func Sequenced(hash models.TxHash) Event {
	return Event{Kind: SequencedTx, TxHash: hash}
}

// Failed builds a FailedTx event carrying the contract's rejection reason verbatim.
func Failed(hash models.TxHash, reason string) Event {
	return Event{Kind: FailedTx, TxHash: hash, Reason: reason}
}

// Processed builds a BlockProcessed event.
func Processed(block *models.Block) Event {
	return Event{Kind: BlockProcessed, Height: block.Height, BlockHash: block.Hash, TxCount: len(block.Txs)}
}

// Bus is a best-effort publish/subscribe hub.
type Bus struct {
	mu      sync.RWMutex
	subs    map[uint64]*Subscription
	nextID  uint64
	buffer  int
	closed  bool
	metrics *metrics.Metrics
}

// Option customises a Bus.
type Option func(*Bus)

// WithBuffer sets the per-subscriber buffer size.
func WithBuffer(n int) Option {
	return func(b *Bus) { b.buffer = n }
}

// WithMetrics records dropped events on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Bus) { b.metrics = m }
}

// New creates an empty bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		subs:   make(map[uint64]*Subscription),
		buffer: DefaultBuffer,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.buffer <= 0 {
		b.buffer = DefaultBuffer
	}
	return b
}

// Subscription receives events published after it was created.
type Subscription struct {
	id  uint64
	bus *Bus
	ch  chan Event
	C   <-chan Event
}

// Subscribe registers a new subscriber.
func (b *Bus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Event, b.buffer)
	sub := &Subscription{id: b.nextID, bus: b, ch: ch, C: ch}
	b.nextID++
	if b.closed {
		close(ch)
		return sub
	}
	b.subs[sub.id] = sub
	return sub
}

// Unsubscribe removes the subscription and closes its channel.
func (s *Subscription) Unsubscribe() {
	b := s.bus
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[s.id]; !ok {
		return
	}
	delete(b.subs, s.id)
	close(s.ch)
}

// Publish delivers ev to every subscriber with room in its buffer. Events for
// full subscribers are dropped.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		select {
		case sub.ch <- ev:
		default:
			b.metrics.RecordBusDrop()
			slog.Warn("Dropping event for slow subscriber", "kind", ev.Kind, "tx", ev.TxHash, "subscriber", sub.id)
		}
	}
}

// Close closes every subscription. Later publishes are discarded.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		close(sub.ch)
		delete(b.subs, id)
	}
}
