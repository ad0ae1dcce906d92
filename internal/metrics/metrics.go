// Package metrics exposes the Prometheus collectors of the prover service.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "oofprover"

// Metrics groups the collectors recorded by ingestion and proving.
// All methods are safe to call on a nil receiver.
type Metrics struct {
	blocks        prometheus.Counter
	height        prometheus.Gauge
	blobs         *prometheus.CounterVec
	settlements   *prometheus.CounterVec
	poolSize      prometheus.Gauge
	proofs        *prometheus.CounterVec
	proofDuration *prometheus.HistogramVec
	inflight      prometheus.Gauge
	busDrops      prometheus.Counter
}

var (
	defaultOnce sync.Once
	defaultReg  *Metrics
)

// Default returns the lazily-initialised metrics registered on the default registerer.
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultReg = New(prometheus.DefaultRegisterer)
	})
	return defaultReg
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		blocks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "blocks_total",
			Help:      "Total blocks processed by the ingestor.",
		}),
		height: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "block_height",
			Help:      "Height of the last processed block.",
		}),
		blobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "blobs_total",
			Help:      "Blobs handled for tracked contracts segmented by contract and outcome.",
		}, []string{"contract", "outcome"}),
		settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "events_total",
			Help:      "Settlement events segmented by status and whether the transaction was pooled.",
		}, []string{"status", "pooled"}),
		poolSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "unsettled_txs",
			Help:      "Number of transactions waiting for a settlement event.",
		}),
		proofs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "prover",
			Name:      "proofs_total",
			Help:      "Proof tasks segmented by contract and outcome.",
		}, []string{"contract", "outcome"}),
		proofDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "prover",
			Name:      "proof_duration_seconds",
			Help:      "Time spent generating and submitting a proof.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
		}, []string{"contract"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "prover",
			Name:      "inflight_tasks",
			Help:      "Proof tasks dispatched and not yet finished.",
		}),
		busDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "dropped_events_total",
			Help:      "Events dropped because a subscriber buffer was full.",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.blocks,
			m.height,
			m.blobs,
			m.settlements,
			m.poolSize,
			m.proofs,
			m.proofDuration,
			m.inflight,
			m.busDrops,
		)
	}
	return m
}

// RecordBlock marks a block as processed.
func (m *Metrics) RecordBlock(height uint64) {
	if m == nil {
		return
	}
	m.blocks.Inc()
	m.height.Set(float64(height))
}

// RecordBlob counts a blob outcome such as "sequenced", "failed", "historical" or "serialize_error".
func (m *Metrics) RecordBlob(contract, outcome string) {
	if m == nil {
		return
	}
	m.blobs.WithLabelValues(contract, outcome).Inc()
}

// RecordSettlement counts a settlement event.
func (m *Metrics) RecordSettlement(status string, pooled bool) {
	if m == nil {
		return
	}
	label := "false"
	if pooled {
		label = "true"
	}
	m.settlements.WithLabelValues(status, label).Inc()
}

// SetPoolSize reports the unsettled pool size.
func (m *Metrics) SetPoolSize(n int) {
	if m == nil {
		return
	}
	m.poolSize.Set(float64(n))
}

// ProofStarted increments the in-flight gauge.
func (m *Metrics) ProofStarted() {
	if m == nil {
		return
	}
	m.inflight.Inc()
}

// ProofFinished records the outcome of a proof task: "submitted", "prove_error", "submit_error" or "cancelled".
func (m *Metrics) ProofFinished(contract, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.inflight.Dec()
	m.proofs.WithLabelValues(contract, outcome).Inc()
	m.proofDuration.WithLabelValues(contract).Observe(took.Seconds())
}

// RecordBusDrop counts an event dropped by the bus.
func (m *Metrics) RecordBusDrop() {
	if m == nil {
		return
	}
	m.busDrops.Inc()
}
