package observer

import (
	"context"
	"errors"
	"time"

	"FinScan/internal/domain/models"
	domrepo "FinScan/internal/domain/repository"
	"FinScan/internal/domain/service"
)

// Topics names the destinations used by Kafka.
type Topics struct {
	Results   string
	Completed string
	Alerts    string
}

// Kafka publishes every result keyed by symbol, an alert for strong
// recommendations and a summary keyed by scan id on completion.
type Kafka struct {
	pub    domrepo.Publisher
	topics Topics
	top    int
	now    func() time.Time
}

func NewKafka(pub domrepo.Publisher, topics Topics) *Kafka {
	return &Kafka{pub: pub, topics: topics, top: 10, now: time.Now}
}

var _ service.ResultObserver = (*Kafka)(nil)

func (k *Kafka) OnResult(ctx context.Context, r models.ScanResult) error {
	var errs []error
	if k.topics.Results != "" {
		errs = append(errs, k.pub.Publish(ctx, k.topics.Results, []byte(r.Symbol), r))
	}
	if k.topics.Alerts != "" && r.Recommendation.Action.IsStrong() {
		errs = append(errs, k.pub.Publish(ctx, k.topics.Alerts, []byte(r.Symbol), models.Alert{
			ScanID:       r.ScanID,
			Symbol:       r.Symbol,
			Action:       r.Recommendation.Action,
			Risk:         r.Recommendation.Risk,
			Confidence:   r.Recommendation.Confidence,
			OverallScore: r.OverallScore,
			Price:        r.Price,
			Timestamp:    r.Timestamp,
		}))
	}
	return errors.Join(errs...)
}

func (k *Kafka) OnCompleted(ctx context.Context, results []models.ScanResult) error {
	if k.topics.Completed == "" {
		return nil
	}
	summary := models.ScanSummary{
		Results:     len(results),
		Top:         models.Rank(results, k.top),
		CompletedAt: k.now().UTC(),
	}
	if info, ok := service.ScanFromContext(ctx); ok {
		summary.ScanID = info.ID
		summary.Strategy = info.Strategy
		summary.Candidates = info.Candidates
		summary.Omitted = info.Omitted
		summary.Aborted = info.Aborted
		summary.StartedAt = info.StartedAt
	} else if len(results) > 0 {
		summary.ScanID = results[0].ScanID
	}
	return k.pub.Publish(ctx, k.topics.Completed, []byte(summary.ScanID.String()), summary)
}
