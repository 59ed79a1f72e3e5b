package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewWithRegisterer(reg)

	r.RecordScan("market", "completed")
	r.RecordSymbol("timeout")
	r.RecordSymbol("timeout")
	r.RecordObserverError("kafka")
	r.RecordLastScan("sector", 7)
	r.RecordLatency("scan", 0.25)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.scansTotal.WithLabelValues("market", "completed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.symbolsTotal.WithLabelValues("timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.observerErrors.WithLabelValues("kafka")))
	assert.Equal(t, 7.0, testutil.ToFloat64(r.lastResults.WithLabelValues("sector")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.latency))
}
