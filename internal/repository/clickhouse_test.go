package repository

import (
	"testing"
	"time"

	"FinScan/internal/domain/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertQuery(t *testing.T) {
	q := insertQuery("finscan.daily_candles", []string{"bucket", "symbol"}, 3)
	assert.Equal(t, "INSERT INTO finscan.daily_candles (bucket, symbol) VALUES (?, ?),(?, ?),(?, ?)", q)
}

func TestResultRow_MatchesColumns(t *testing.T) {
	sig := models.SignalBuy
	rsi := 61.2
	r := models.ScanResult{
		ScanID:         uuid.MustParse("6f1c5a3e-8a0b-4d8e-9a1e-2f3b4c5d6e7f"),
		Symbol:         "AAPL",
		RSI:            &rsi,
		MACDSignal:     &sig,
		OverallScore:   71.5,
		Recommendation: models.Recommendation{Action: models.ActionBuy, Risk: models.RiskLow, Confidence: 0.8},
		Timestamp:      time.Date(2024, 6, 3, 15, 0, 0, 0, time.UTC),
	}
	row := resultRow(r)
	require.Len(t, row, len(resultColumns))
	assert.Equal(t, "6f1c5a3e-8a0b-4d8e-9a1e-2f3b4c5d6e7f", row[0])
	assert.Equal(t, "AAPL", row[2])
	require.IsType(t, (*string)(nil), row[15])
	assert.Equal(t, "BUY", *row[15].(*string))
	assert.Equal(t, "BUY", row[19])
	assert.Equal(t, 0.8, row[21])
}

func TestCandleRow_NormalizesDayAndSymbol(t *testing.T) {
	c := models.Candle{Bucket: time.Date(2024, 6, 3, 20, 30, 0, 0, time.UTC), Symbol: "msft", Close: 415}
	row := candleRow(c)
	require.Len(t, row, len(candleColumns))
	assert.Equal(t, time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), row[0])
	assert.Equal(t, "MSFT", row[1])
}

func TestReverseCandles(t *testing.T) {
	cs := []models.Candle{{Close: 3}, {Close: 2}, {Close: 1}}
	reverseCandles(cs)
	assert.Equal(t, []float64{1, 2, 3}, []float64{cs[0].Close, cs[1].Close, cs[2].Close})
}

func TestSchemas(t *testing.T) {
	assert.Contains(t, HistorySchema("finscan")[1], "finscan.daily_candles")
	assert.Contains(t, ResultSchema("analytics")[1], "analytics.scan_results")
}
