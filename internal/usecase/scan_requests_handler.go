package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"FinScan/internal/domain/models"
	pkgkafka "FinScan/pkg/kafka"
	applogger "FinScan/pkg/logger"
)

// ScanRequestHandler runs a scan for every request read from Kafka.
// Results leave through the scanner's observers.
type ScanRequestHandler struct {
	topic  string
	runner ScanRunner
	l      *applogger.Logger
}

func NewScanRequestHandler(topic string, runner ScanRunner, l *applogger.Logger) *ScanRequestHandler {
	if l == nil {
		l = applogger.NewNop()
	}
	return &ScanRequestHandler{topic: topic, runner: runner, l: l}
}

func (h *ScanRequestHandler) Topic() string { return h.topic }

// Handle expects a JSON scan request. Invalid payloads are returned as
// errors so the consumer can dead-letter them.
func (h *ScanRequestHandler) Handle(ctx context.Context, b []byte) error {
	var req models.ScanRequest
	if err := json.Unmarshal(b, &req); err != nil {
		return fmt.Errorf("%w: decode: %w", models.ErrInvalidConfig, err)
	}
	if err := req.Normalize(); err != nil {
		return err
	}

	rep, err := h.runner.Execute(ctx, req.ToConfig())
	if err != nil {
		return err
	}
	h.l.Info("requested scan done",
		applogger.String("scan_id", rep.ID.String()),
		applogger.String("strategy", rep.Strategy),
		applogger.Int("results", len(rep.Results)),
		applogger.Bool("aborted", rep.Aborted),
	)
	return nil
}

var _ pkgkafka.MessageHandler = (*ScanRequestHandler)(nil)
