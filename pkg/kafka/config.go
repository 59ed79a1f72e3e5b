package kafka

import "time"

// ProducerOption configures Producer.
type ProducerOption func(*ProducerConfig)

// ProducerConfig holds writer settings. Messages are always balanced by key,
// so events for one symbol or scan land on one partition.
type ProducerConfig struct {
	Brokers []string

	// Delivery.
	RequiredAcks int
	Compression  string
	MaxAttempts  int

	// Batching.
	BatchSize  int
	BatchBytes int
	Linger     time.Duration
	Async      bool

	WriteTimeout time.Duration
	ReadTimeout  time.Duration
}

func defaultProducerConfig() *ProducerConfig {
	return &ProducerConfig{
		RequiredAcks: -1,
		Compression:  "snappy",
		MaxAttempts:  3,
		BatchSize:    100,
		BatchBytes:   1 << 20,
		Linger:       50 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
	}
}

// WithBrokers sets the bootstrap brokers.
func WithBrokers(brokers []string) ProducerOption {
	return func(c *ProducerConfig) { c.Brokers = brokers }
}

// WithDelivery sets acks (-1 = all in-sync replicas), codec and write attempts.
// Zero values keep the defaults.
func WithDelivery(acks int, compression string, maxAttempts int) ProducerOption {
	return func(c *ProducerConfig) {
		c.RequiredAcks = acks
		if compression != "" {
			c.Compression = compression
		}
		if maxAttempts > 0 {
			c.MaxAttempts = maxAttempts
		}
	}
}

// WithBatching sets batch limits and how long a partial batch may wait.
// Async writes return before the broker acknowledges them.
func WithBatching(size, bytes int, linger time.Duration, async bool) ProducerOption {
	return func(c *ProducerConfig) {
		if size > 0 {
			c.BatchSize = size
		}
		if bytes > 0 {
			c.BatchBytes = bytes
		}
		if linger > 0 {
			c.Linger = linger
		}
		c.Async = async
	}
}

// WithTimeouts sets writer write and read timeouts.
func WithTimeouts(write, read time.Duration) ProducerOption {
	return func(c *ProducerConfig) {
		c.WriteTimeout = write
		c.ReadTimeout = read
	}
}
