package kafka

import (
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffWithJitter_StaysInRange(t *testing.T) {
	min, max := 100*time.Millisecond, time.Second
	for attempt := 1; attempt <= 8; attempt++ {
		want := min * time.Duration(1<<uint(attempt-1))
		if want > max {
			want = max
		}
		for i := 0; i < 50; i++ {
			got := backoffWithJitter(min, max, attempt)
			assert.LessOrEqual(t, got, want)
			assert.Greater(t, got, want/2-time.Nanosecond)
		}
	}
}

func TestEncodeValue(t *testing.T) {
	b, err := encodeValue([]byte("raw"))
	require.NoError(t, err)
	assert.Equal(t, "raw", string(b))

	b, err = encodeValue("text")
	require.NoError(t, err)
	assert.Equal(t, "text", string(b))

	b, err = encodeValue(map[string]int{"n": 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":1}`, string(b))
}

func TestParseCompression(t *testing.T) {
	assert.Equal(t, kafka.Snappy, parseCompression("snappy"))
	assert.Equal(t, kafka.Zstd, parseCompression("zstd"))
	assert.Equal(t, kafka.Compression(0), parseCompression("none"))
	assert.Equal(t, kafka.Gzip, parseCompression("unknown"))
}

func TestNewProducer_RequiresBrokers(t *testing.T) {
	_, err := NewProducer()
	assert.Error(t, err)
}

func TestNewConsumer_RequiresHandlers(t *testing.T) {
	_, err := NewConsumer()
	assert.Error(t, err)

	c, err := NewConsumer(WithConsumerBrokers([]string{"localhost:9092"}))
	require.NoError(t, err)
	assert.Error(t, c.Start())
}

func TestProducerOptions_ZeroValuesKeepDefaults(t *testing.T) {
	cfg := defaultProducerConfig()
	for _, opt := range []ProducerOption{
		WithDelivery(1, "", 0),
		WithBatching(0, 0, 0, true),
	} {
		opt(cfg)
	}
	assert.Equal(t, 1, cfg.RequiredAcks)
	assert.Equal(t, "snappy", cfg.Compression)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, 50*time.Millisecond, cfg.Linger)
	assert.True(t, cfg.Async)
}
