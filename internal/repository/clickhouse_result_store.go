package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"FinScan/internal/domain/models"
	domrepo "FinScan/internal/domain/repository"
	pkgch "FinScan/pkg/clickhouse"
	applogger "FinScan/pkg/logger"
)

var resultColumns = []string{
	"scan_id", "ts", "symbol", "name", "sector", "market_cap",
	"price", "change_percent", "volume",
	"pe_ratio", "pb_ratio", "roe", "debt_to_equity", "dividend_yield",
	"rsi", "macd_signal",
	"technical_score", "fundamental_score", "overall_score",
	"action", "risk", "confidence",
}

// ResultSchema returns the DDL for the scan results table.
func ResultSchema(database string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.scan_results (
			scan_id UUID,
			ts DateTime64(3, 'UTC'),
			symbol LowCardinality(String),
			name String,
			sector Nullable(String),
			market_cap Nullable(Float64),
			price Float64,
			change_percent Float64,
			volume Float64,
			pe_ratio Nullable(Float64),
			pb_ratio Nullable(Float64),
			roe Nullable(Float64),
			debt_to_equity Nullable(Float64),
			dividend_yield Nullable(Float64),
			rsi Nullable(Float64),
			macd_signal Nullable(String),
			technical_score Float64,
			fundamental_score Float64,
			overall_score Float64,
			action LowCardinality(String),
			risk LowCardinality(String),
			confidence Float64
		) ENGINE = MergeTree PARTITION BY toYYYYMM(ts) ORDER BY (ts, scan_id, symbol)`, database),
	}
}

// CHResultStore appends scan results to ClickHouse.
type CHResultStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHResultStore(ch *pkgch.Client, database string) *CHResultStore {
	return &CHResultStore{db: ch.DB(), table: database + ".scan_results", l: applogger.NewNop()}
}

// SetLogger injects a structured logger.
func (s *CHResultStore) SetLogger(l *applogger.Logger) {
	if l != nil {
		s.l = l
	}
}

func (s *CHResultStore) SaveResults(ctx context.Context, results []models.ScanResult) error {
	if len(results) == 0 {
		return nil
	}
	start := time.Now()
	rows := make([][]interface{}, len(results))
	for i, r := range results {
		rows[i] = resultRow(r)
	}
	if err := insertRows(ctx, s.db, s.table, resultColumns, rows); err != nil {
		s.l.Error("clickhouse save results error",
			applogger.String("scan_id", results[0].ScanID.String()),
			applogger.Int("rows", len(rows)),
			applogger.Error(err),
		)
		return err
	}
	s.l.Info("clickhouse save results ok",
		applogger.String("scan_id", results[0].ScanID.String()),
		applogger.Int("rows", len(rows)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

func resultRow(r models.ScanResult) []interface{} {
	var macd *string
	if r.MACDSignal != nil {
		s := string(*r.MACDSignal)
		macd = &s
	}
	return []interface{}{
		r.ScanID.String(), r.Timestamp.UTC(), r.Symbol, r.Name, r.Sector, r.MarketCap,
		r.Price, r.ChangePercent, r.Volume,
		r.PERatio, r.PBRatio, r.ROE, r.DebtToEquity, r.DividendYield,
		r.RSI, macd,
		r.TechnicalScore, r.FundamentalScore, r.OverallScore,
		string(r.Recommendation.Action), string(r.Recommendation.Risk), r.Recommendation.Confidence,
	}
}

var _ domrepo.ResultStore = (*CHResultStore)(nil)
