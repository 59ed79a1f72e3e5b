package observer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"FinScan/internal/domain/models"
	"FinScan/internal/domain/service"
	"FinScan/pkg/cache"
	applogger "FinScan/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var scanID = uuid.MustParse("6f1c1a52-2a55-4cde-9b6c-9f8b1d2f3a10")

func result(symbol string, score float64, action models.Action) models.ScanResult {
	return models.ScanResult{
		ScanID:         scanID,
		Symbol:         symbol,
		Price:          10,
		OverallScore:   score,
		Recommendation: models.Recommendation{Action: action, Risk: models.RiskModerate, Confidence: 80},
		Timestamp:      time.Date(2024, 6, 3, 15, 0, 0, 0, time.UTC),
	}
}

func scanCtx() context.Context {
	return service.ContextWithScan(context.Background(), service.ScanInfo{
		ID:         scanID,
		Strategy:   models.StrategySector,
		Candidates: 4,
		Omitted:    1,
	})
}

type published struct {
	topic string
	key   string
	value interface{}
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (p *fakePublisher) Publish(_ context.Context, topic string, key []byte, value interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, published{topic: topic, key: string(key), value: value})
	return p.err
}

func (p *fakePublisher) Close() error { return nil }

func TestKafka_PublishesResultsAlertsAndSummary(t *testing.T) {
	pub := &fakePublisher{}
	k := NewKafka(pub, Topics{Results: "res", Completed: "done", Alerts: "alerts"})

	require.NoError(t, k.OnResult(context.Background(), result("AAA", 55, models.ActionHold)))
	require.NoError(t, k.OnResult(context.Background(), result("BBB", 90, models.ActionStrongBuy)))
	require.Len(t, pub.msgs, 3)
	assert.Equal(t, "res", pub.msgs[0].topic)
	assert.Equal(t, "AAA", pub.msgs[0].key)
	assert.Equal(t, "alerts", pub.msgs[2].topic)
	alert, ok := pub.msgs[2].value.(models.Alert)
	require.True(t, ok)
	assert.Equal(t, models.ActionStrongBuy, alert.Action)

	final := []models.ScanResult{result("BBB", 90, models.ActionStrongBuy), result("AAA", 55, models.ActionHold)}
	require.NoError(t, k.OnCompleted(scanCtx(), final))
	last := pub.msgs[len(pub.msgs)-1]
	assert.Equal(t, "done", last.topic)
	assert.Equal(t, scanID.String(), last.key)
	summary := last.value.(models.ScanSummary)
	assert.Equal(t, models.StrategySector, summary.Strategy)
	assert.Equal(t, 2, summary.Results)
	assert.Equal(t, 1, summary.Omitted)
	require.Len(t, summary.Top, 2)
	assert.Equal(t, "BBB", summary.Top[0].Symbol)
}

func TestKafka_ReturnsPublishError(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	k := NewKafka(pub, Topics{Results: "res"})
	assert.ErrorContains(t, k.OnResult(context.Background(), result("AAA", 50, models.ActionHold)), "broker down")
	assert.NoError(t, k.OnCompleted(context.Background(), nil))
}

type fakeStore struct {
	batches [][]models.ScanResult
}

func (s *fakeStore) SaveResults(_ context.Context, r []models.ScanResult) error {
	s.batches = append(s.batches, r)
	return nil
}

func TestStore_SavesFinalRankingOnce(t *testing.T) {
	fs := &fakeStore{}
	s := NewStore(fs)
	require.NoError(t, s.OnResult(context.Background(), result("AAA", 1, models.ActionHold)))
	assert.Empty(t, fs.batches)

	require.NoError(t, s.OnCompleted(context.Background(), nil))
	assert.Empty(t, fs.batches)

	require.NoError(t, s.OnCompleted(context.Background(), []models.ScanResult{result("AAA", 1, models.ActionHold)}))
	require.Len(t, fs.batches, 1)
}

func TestLatest_StoresAndReads(t *testing.T) {
	mc := cache.NewMemoryCache()
	defer mc.Close()
	o := NewLatest(mc, time.Hour)
	ctx := context.Background()

	_, err := o.Get(ctx, "")
	assert.ErrorIs(t, err, ErrNoSnapshot)

	require.NoError(t, o.OnCompleted(scanCtx(), []models.ScanResult{result("AAA", 70, models.ActionBuy)}))

	snap, err := o.Get(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, scanID.String(), snap.ScanID)
	require.Len(t, snap.Results, 1)
	assert.Equal(t, "AAA", snap.Results[0].Symbol)

	snap, err = o.Get(ctx, " Sector ")
	require.NoError(t, err)
	assert.Equal(t, models.StrategySector, snap.Strategy)

	_, err = o.Get(ctx, models.StrategyMarket)
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestLog_NeverFails(t *testing.T) {
	var buf strings.Builder
	l, err := applogger.New(&applogger.Config{Level: "debug", Format: "json", Writer: &buf})
	require.NoError(t, err)
	o := NewLog(l, 1)

	require.NoError(t, o.OnResult(context.Background(), result("AAA", 70, models.ActionBuy)))
	require.NoError(t, o.OnCompleted(scanCtx(), []models.ScanResult{result("AAA", 70, models.ActionBuy), result("BBB", 60, models.ActionHold)}))
	assert.Contains(t, buf.String(), `"strategy":"sector"`)
	assert.Contains(t, buf.String(), `"symbol":"AAA"`)
	assert.NotContains(t, buf.String(), `"symbol":"BBB"`)
}

func dialHub(t *testing.T, h *Hub) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		h.Serve(conn)
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, b, err := conn.ReadMessage()
	require.NoError(t, err)
	var env map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &env))
	return env
}

func TestHub_BroadcastsToClients(t *testing.T) {
	h := NewHub(8, nil)
	conn := dialHub(t, h)
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, h.OnResult(context.Background(), result("AAA", 70, models.ActionBuy)))
	env := readEnvelope(t, conn)
	assert.Equal(t, EnvelopeResult, env["type"])
	assert.Equal(t, "AAA", env["data"].(map[string]interface{})["symbol"])

	require.NoError(t, h.OnCompleted(scanCtx(), []models.ScanResult{result("AAA", 70, models.ActionBuy)}))
	env = readEnvelope(t, conn)
	assert.Equal(t, EnvelopeCompleted, env["type"])
	assert.Equal(t, scanID.String(), env["scan_id"])
}

func TestHub_SendsLatestRankingOnConnect(t *testing.T) {
	h := NewHub(8, nil)
	require.NoError(t, h.OnCompleted(scanCtx(), []models.ScanResult{result("AAA", 70, models.ActionBuy)}))

	conn := dialHub(t, h)
	env := readEnvelope(t, conn)
	assert.Equal(t, EnvelopeCompleted, env["type"])
	assert.Equal(t, true, env["initial"])
}

func TestHub_CloseDisconnectsClients(t *testing.T) {
	h := NewHub(1, nil)
	conn := dialHub(t, h)
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, h.Close())
	assert.Equal(t, 0, h.ClientCount())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}
