package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"FinScan/internal/domain/models"
	"FinScan/internal/observer"
	"FinScan/internal/service/ratelimit"
	"FinScan/internal/usecase"
	xhttp "FinScan/pkg/http"
	applogger "FinScan/pkg/logger"
	"FinScan/pkg/util"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// LatestReader reads the most recent completed ranking.
type LatestReader interface {
	Get(ctx context.Context, strategy string) (models.LatestScan, error)
}

// ScheduleLister reports scheduled profiles.
type ScheduleLister interface {
	Status() []usecase.ProfileStatus
}

// ObserverLister reports registered observers.
type ObserverLister interface {
	Names() []string
}

// ScanEchoHandler serves the scan API and the websocket feed.
type ScanEchoHandler struct {
	logger    *applogger.Logger
	runner    usecase.ScanRunner
	latest    LatestReader
	hub       *observer.Hub
	wsPath    string
	limiter   *ratelimit.Limiter
	schedules ScheduleLister
	observers ObserverLister
	upgrader  websocket.Upgrader
}

// ScanHandlerOption configures ScanEchoHandler.
type ScanHandlerOption func(*ScanEchoHandler)

func WithLatest(r LatestReader) ScanHandlerOption {
	return func(h *ScanEchoHandler) { h.latest = r }
}

// WithHub serves the websocket feed on path.
func WithHub(hub *observer.Hub, path string) ScanHandlerOption {
	return func(h *ScanEchoHandler) {
		h.hub = hub
		h.wsPath = path
	}
}

// WithRateLimit limits POST /api/scans per client IP.
func WithRateLimit(l *ratelimit.Limiter) ScanHandlerOption {
	return func(h *ScanEchoHandler) { h.limiter = l }
}

func WithSchedules(s ScheduleLister) ScanHandlerOption {
	return func(h *ScanEchoHandler) { h.schedules = s }
}

func WithObservers(o ObserverLister) ScanHandlerOption {
	return func(h *ScanEchoHandler) { h.observers = o }
}

func NewScanEchoHandler(logger *applogger.Logger, runner usecase.ScanRunner, opts ...ScanHandlerOption) *ScanEchoHandler {
	if logger == nil {
		logger = applogger.NewNop()
	}
	h := &ScanEchoHandler{
		logger: logger,
		runner: runner,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *ScanEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/scans", h.RunScan)
	if h.latest != nil {
		g.GET("/scans/latest", h.Latest)
	}
	if h.schedules != nil {
		g.GET("/schedules", h.Schedules)
	}
	if h.observers != nil {
		g.GET("/observers", h.Observers)
	}
	if h.hub != nil && h.wsPath != "" {
		e.GET(h.wsPath, h.Stream)
	}
}

// RunScan executes a scan synchronously and returns its report. A client
// disconnect aborts the scan.
func (h *ScanEchoHandler) RunScan(c echo.Context) error {
	if h.limiter != nil && !h.limiter.Allow(c.RealIP()) {
		if wait := h.limiter.RetryAfter(c.RealIP()); wait > 0 {
			c.Response().Header().Set(echo.HeaderRetryAfter, strconv.Itoa(int(wait.Seconds())+1))
		}
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("too many scan requests"))
	}

	req := &models.ScanRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	req.Strategy = strings.ToLower(strings.TrimSpace(req.Strategy))
	req.ExcludeSymbols = util.NormalizeSymbols(req.ExcludeSymbols)

	rep, err := h.runner.Execute(c.Request().Context(), req.ToConfig())
	if err != nil {
		if errors.Is(err, models.ErrInvalidConfig) {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()).WithError(err))
		}
		h.logger.Error("scan usecase error", applogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("scan failed").WithError(err))
	}
	return xhttp.SuccessResponse(c, rep)
}

// Latest returns the last completed ranking. Query: strategy, limit, symbols.
func (h *ScanEchoHandler) Latest(c echo.Context) error {
	snap, err := h.latest.Get(c.Request().Context(), c.QueryParam("strategy"))
	if err != nil {
		if errors.Is(err, observer.ErrNoSnapshot) {
			return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no completed scan yet"))
		}
		h.logger.Error("latest scan read error", applogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.UnavailableError("latest scan unavailable").WithError(err))
	}

	if want := util.NormalizeSymbols(util.SplitCSV(c.QueryParam("symbols"))); len(want) > 0 {
		keep := make(map[string]struct{}, len(want))
		for _, s := range want {
			keep[s] = struct{}{}
		}
		filtered := snap.Results[:0:0]
		for _, r := range snap.Results {
			if _, ok := keep[r.Symbol]; ok {
				filtered = append(filtered, r)
			}
		}
		snap.Results = filtered
	}
	if limit := util.ParseIntDefault(c.QueryParam("limit"), 0); limit > 0 && limit < len(snap.Results) {
		snap.Results = snap.Results[:limit]
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, snap)
}

func (h *ScanEchoHandler) Schedules(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.schedules.Status())
}

func (h *ScanEchoHandler) Observers(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.observers.Names())
}

// Stream upgrades to a websocket and hands the connection to the hub.
func (h *ScanEchoHandler) Stream(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Debug("ws upgrade failed", applogger.Error(err))
		return nil
	}
	h.hub.Serve(conn)
	return nil
}
