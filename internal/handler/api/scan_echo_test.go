package api

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
	"FinScan/internal/observer"
	"FinScan/internal/service/ratelimit"
	"FinScan/internal/usecase"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	mu  sync.Mutex
	cfg models.ScanConfig
	err error
}

func (s *stubRunner) Execute(_ context.Context, cfg models.ScanConfig) (*models.ScanReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	if s.err != nil {
		return nil, s.err
	}
	return &models.ScanReport{
		ID:       uuid.MustParse("5a4d2b8e-44a1-4c1f-9a0e-0d7b1c2e3f40"),
		Strategy: cfg.Strategy,
		State:    models.StateCompleted,
		Results:  []models.ScanResult{{Symbol: "AAA", OverallScore: 70}},
	}, nil
}

type stubLatest struct {
	snap models.LatestScan
	err  error
}

func (s stubLatest) Get(context.Context, string) (models.LatestScan, error) { return s.snap, s.err }

type stubSchedules struct{}

func (stubSchedules) Status() []usecase.ProfileStatus {
	return []usecase.ProfileStatus{{Name: "hourly", Cron: "0 * * * *"}}
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func serve(t *testing.T, h *ScanEchoHandler, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	e := echo.New()
	h.RegisterRoutes(e)
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func TestRunScan_AppliesDefaultsAndReturnsReport(t *testing.T) {
	r := &stubRunner{}
	h := NewScanEchoHandler(nil, r)

	rec, env := serve(t, h, http.MethodPost, "/api/scans", `{"strategy":" Sector ","sectors":["Energy"],"exclude_symbols":["xom "," XOM"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var rep models.ScanReport
	require.NoError(t, json.Unmarshal(env.Data, &rep))
	require.Len(t, rep.Results, 1)
	assert.Equal(t, models.StrategySector, r.cfg.Strategy)
	assert.Equal(t, 50, r.cfg.MaxSymbols)
	assert.Equal(t, []string{"XOM"}, r.cfg.ExcludeSymbols)
	assert.Equal(t, 30*time.Second, r.cfg.TimeoutPerSymbol)
}

func TestRunScan_ValidationError(t *testing.T) {
	h := NewScanEchoHandler(nil, &stubRunner{})
	rec, env := serve(t, h, http.MethodPost, "/api/scans", `{"parallel_requests":500}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, string(env.Data), `"field":"parallel_requests"`)
	assert.Contains(t, string(env.Data), "ERR_LTE")
}

func TestRunScan_RunnerErrors(t *testing.T) {
	h := NewScanEchoHandler(nil, &stubRunner{err: models.ErrInvalidConfig})
	rec, _ := serve(t, h, http.MethodPost, "/api/scans", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	h = NewScanEchoHandler(nil, &stubRunner{err: errors.New("boom")})
	rec, _ = serve(t, h, http.MethodPost, "/api/scans", `{}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRunScan_RateLimited(t *testing.T) {
	h := NewScanEchoHandler(nil, &stubRunner{}, WithRateLimit(ratelimit.New(1, 0.5)))
	e := echo.New()
	h.RegisterRoutes(e)

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/scans", strings.NewReader(`{}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusTooManyRequests {
			assert.NotEmpty(t, rec.Header().Get(echo.HeaderRetryAfter))
		}
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestLatest_FiltersAndLimits(t *testing.T) {
	snap := models.LatestScan{
		ScanID:   "abc",
		Strategy: models.StrategyMarket,
		Results:  []models.ScanResult{{Symbol: "AAA"}, {Symbol: "BBB"}, {Symbol: "CCC"}},
	}
	h := NewScanEchoHandler(nil, &stubRunner{}, WithLatest(stubLatest{snap: snap}))

	_, env := serve(t, h, http.MethodGet, "/api/scans/latest?limit=2", "")
	var got models.LatestScan
	require.NoError(t, json.Unmarshal(env.Data, &got))
	require.Len(t, got.Results, 2)
	assert.Equal(t, "BBB", got.Results[1].Symbol)

	_, env = serve(t, h, http.MethodGet, "/api/scans/latest?symbols=ccc,aaa", "")
	require.NoError(t, json.Unmarshal(env.Data, &got))
	require.Len(t, got.Results, 2)
	assert.Equal(t, "AAA", got.Results[0].Symbol)
	assert.Equal(t, "CCC", got.Results[1].Symbol)
}

func TestLatest_NotFound(t *testing.T) {
	h := NewScanEchoHandler(nil, &stubRunner{}, WithLatest(stubLatest{err: observer.ErrNoSnapshot}))
	rec, _ := serve(t, h, http.MethodGet, "/api/scans/latest", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSchedulesAndObservers(t *testing.T) {
	reg := usecase.NewObserverRegistry()
	reg.Register("log", observer.NewLog(nil, 3))
	h := NewScanEchoHandler(nil, &stubRunner{}, WithSchedules(stubSchedules{}), WithObservers(reg))

	_, env := serve(t, h, http.MethodGet, "/api/schedules", "")
	assert.Contains(t, string(env.Data), `"name":"hourly"`)

	_, env = serve(t, h, http.MethodGet, "/api/observers", "")
	assert.JSONEq(t, `["log"]`, string(env.Data))
}

func TestStream_UpgradesToHub(t *testing.T) {
	hub := observer.NewHub(4, nil)
	defer hub.Close()
	h := NewScanEchoHandler(nil, &stubRunner{}, WithHub(hub, "/ws/scans"))
	e := echo.New()
	h.RegisterRoutes(e)
	srv := httptest.NewServer(e)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/scans", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, hub.OnResult(context.Background(), models.ScanResult{Symbol: "AAA"}))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, b, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(b), `"type":"result"`)
}
