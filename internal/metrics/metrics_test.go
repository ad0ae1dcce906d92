package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorders(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordBlock(42)
	m.RecordBlock(43)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.blocks))
	assert.Equal(t, 43.0, testutil.ToFloat64(m.height))

	m.RecordBlob("hyllar", "sequenced")
	m.RecordBlob("hyllar", "failed")
	m.RecordBlob("hyllar", "failed")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.blobs.WithLabelValues("hyllar", "failed")))

	m.RecordSettlement("successful", true)
	m.RecordSettlement("failed", false)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.settlements.WithLabelValues("successful", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.settlements.WithLabelValues("failed", "false")))

	m.SetPoolSize(7)
	assert.Equal(t, 7.0, testutil.ToFloat64(m.poolSize))

	m.ProofStarted()
	m.ProofStarted()
	m.ProofFinished("hyllar", "submitted", time.Second)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.inflight))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.proofs.WithLabelValues("hyllar", "submitted")))

	m.RecordBusDrop()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.busDrops))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordBlock(1)
		m.RecordBlob("a", "b")
		m.RecordSettlement("successful", true)
		m.SetPoolSize(1)
		m.ProofStarted()
		m.ProofFinished("a", "submitted", time.Second)
		m.RecordBusDrop()
	})
}
