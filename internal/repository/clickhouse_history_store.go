package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"FinScan/internal/domain/models"
	domrepo "FinScan/internal/domain/repository"
	pkgch "FinScan/pkg/clickhouse"
	applogger "FinScan/pkg/logger"
)

var candleColumns = []string{"bucket", "symbol", "open", "high", "low", "close", "volume"}

// HistorySchema returns the DDL for the daily candle table.
func HistorySchema(database string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.daily_candles (
			bucket Date,
			symbol LowCardinality(String),
			open Float64,
			high Float64,
			low Float64,
			close Float64,
			volume Float64
		) ENGINE = ReplacingMergeTree ORDER BY (symbol, bucket)`, database),
	}
}

// CHHistoryStore serves and stores daily candles in ClickHouse.
type CHHistoryStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHHistoryStore(ch *pkgch.Client, database string) *CHHistoryStore {
	return &CHHistoryStore{db: ch.DB(), table: database + ".daily_candles", l: applogger.NewNop()}
}

// SetLogger injects a structured logger.
func (s *CHHistoryStore) SetLogger(l *applogger.Logger) {
	if l != nil {
		s.l = l
	}
}

// History returns the latest lookbackDays candles, oldest first.
func (s *CHHistoryStore) History(ctx context.Context, symbol string, lookbackDays int) ([]models.Candle, error) {
	start := time.Now()
	symbol = strings.ToUpper(symbol)
	const qtpl = `
        SELECT bucket, symbol, open, high, low, close, volume
        FROM %s FINAL
        WHERE symbol = ?
        ORDER BY bucket DESC
        LIMIT ?
    `
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(qtpl, s.table), symbol, lookbackDays)
	if err != nil {
		s.l.Error("clickhouse history query error",
			applogger.String("table", s.table),
			applogger.String("symbol", symbol),
			applogger.Int("limit", lookbackDays),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("history %s: %w", symbol, err)
	}
	defer rows.Close()

	out := make([]models.Candle, 0, lookbackDays)
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Bucket, &c.Symbol, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	reverseCandles(out)

	s.l.Debug("clickhouse history ok",
		applogger.String("symbol", symbol),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

// SaveCandles upserts candles; the table collapses duplicates per (symbol, bucket).
func (s *CHHistoryStore) SaveCandles(ctx context.Context, candles []models.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	rows := make([][]interface{}, 0, len(candles))
	for _, c := range candles {
		if c.Symbol == "" || c.Bucket.IsZero() {
			continue
		}
		rows = append(rows, candleRow(c))
	}
	if err := insertRows(ctx, s.db, s.table, candleColumns, rows); err != nil {
		s.l.Error("clickhouse save candles error", applogger.Int("rows", len(rows)), applogger.Error(err))
		return err
	}
	return nil
}

func candleRow(c models.Candle) []interface{} {
	return []interface{}{
		c.Bucket.UTC().Truncate(24 * time.Hour),
		strings.ToUpper(c.Symbol),
		c.Open, c.High, c.Low, c.Close, c.Volume,
	}
}

func reverseCandles(cs []models.Candle) {
	for i, j := 0, len(cs)-1; i < j; i, j = i+1, j-1 {
		cs[i], cs[j] = cs[j], cs[i]
	}
}

var _ domrepo.CandleStore = (*CHHistoryStore)(nil)
