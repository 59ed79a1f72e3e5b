package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&Config{Level: "debug", Format: "json", Writer: &buf})
	require.NoError(t, err)

	l.With(String("scan_id", "abc")).Warn("symbol omitted",
		String("symbol", "AAPL"),
		Int("attempt", 2),
		Float64("score", 71.5),
		Duration("elapsed_ms", 1500*time.Millisecond),
		Strings("sectors", []string{"Energy", "Utilities"}),
		Bool("aborted", false),
		Error(errors.New("boom")),
	)

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	assert.Equal(t, "warn", m["level"])
	assert.Equal(t, "symbol omitted", m["message"])
	assert.Equal(t, "abc", m["scan_id"])
	assert.Equal(t, "AAPL", m["symbol"])
	assert.Equal(t, 2.0, m["attempt"])
	assert.Equal(t, 71.5, m["score"])
	assert.Equal(t, 1500.0, m["elapsed_ms"])
	assert.Equal(t, "Energy, Utilities", m["sectors"])
	assert.Equal(t, false, m["aborted"])
	assert.Equal(t, "boom", m["error"])
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud"})
	assert.Error(t, err)
}

func TestNopDiscards(t *testing.T) {
	l := NewNop()
	l.Info("nothing", String("k", "v"))
	l.With(Int("n", 1)).Error("still nothing")
}
