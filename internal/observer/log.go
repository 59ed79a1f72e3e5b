package observer

import (
	"context"

	"FinScan/internal/domain/models"
	"FinScan/internal/domain/service"
	applogger "FinScan/pkg/logger"
)

// Log writes results and completed rankings to the structured log.
type Log struct {
	l   *applogger.Logger
	top int
}

func NewLog(l *applogger.Logger, top int) *Log {
	if l == nil {
		l = applogger.NewNop()
	}
	if top <= 0 {
		top = 5
	}
	return &Log{l: l, top: top}
}

var _ service.ResultObserver = (*Log)(nil)

func (o *Log) OnResult(_ context.Context, r models.ScanResult) error {
	o.l.Debug("scan result",
		applogger.String("scan_id", r.ScanID.String()),
		applogger.String("symbol", r.Symbol),
		applogger.Float64("overall", r.OverallScore),
		applogger.String("action", string(r.Recommendation.Action)),
	)
	return nil
}

func (o *Log) OnCompleted(ctx context.Context, results []models.ScanResult) error {
	fields := []applogger.Field{
		applogger.Int("results", len(results)),
		applogger.Any("top", models.Rank(results, o.top)),
	}
	if info, ok := service.ScanFromContext(ctx); ok {
		fields = append(fields,
			applogger.String("scan_id", info.ID.String()),
			applogger.String("strategy", info.Strategy),
			applogger.Int("omitted", info.Omitted),
			applogger.Bool("aborted", info.Aborted),
		)
	}
	o.l.Info("scan ranking", fields...)
	return nil
}
