package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"FinScan/internal/domain/models"
	domrepo "FinScan/internal/domain/repository"
	xhttp "FinScan/pkg/http"
)

// HTTP fetches market data from a JSON service exposing
// /quote/{symbol}, /history/{symbol}?lookback=N and /fundamentals/{symbol}.
type HTTP struct {
	baseURL string
	client  *xhttp.Client
	apiKey  string
}

// HTTPOption configures HTTP.
type HTTPOption func(*HTTP)

// WithAPIKey sends key in the X-API-Key header.
func WithAPIKey(key string) HTTPOption {
	return func(h *HTTP) {
		h.apiKey = key
	}
}

// WithClient replaces the transport client.
func WithClient(c *xhttp.Client) HTTPOption {
	return func(h *HTTP) {
		h.client = c
	}
}

// NewHTTP builds a provider rooted at baseURL.
func NewHTTP(baseURL string, timeout time.Duration, opts ...HTTPOption) *HTTP {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	h := &HTTP{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

var _ domrepo.MarketDataProvider = (*HTTP)(nil)

func (h *HTTP) Quote(ctx context.Context, symbol string) (models.Quote, error) {
	var q models.Quote
	if err := h.get(ctx, "/quote/"+url.PathEscape(symbol), nil, &q); err != nil {
		return models.Quote{}, wrapStatus(symbol, "quote", err)
	}
	if q.Symbol == "" {
		q.Symbol = strings.ToUpper(symbol)
	}
	return q, nil
}

func (h *HTTP) History(ctx context.Context, symbol string, lookbackDays int) ([]models.Candle, error) {
	var candles []models.Candle
	params := map[string][]string{"lookback": {strconv.Itoa(lookbackDays)}}
	if err := h.get(ctx, "/history/"+url.PathEscape(symbol), params, &candles); err != nil {
		return nil, wrapStatus(symbol, "history", err)
	}
	for i := range candles {
		if candles[i].Symbol == "" {
			candles[i].Symbol = strings.ToUpper(symbol)
		}
	}
	if lookbackDays > 0 && len(candles) > lookbackDays {
		candles = candles[len(candles)-lookbackDays:]
	}
	return candles, nil
}

func (h *HTTP) Fundamentals(ctx context.Context, symbol string) (models.Fundamentals, error) {
	var f models.Fundamentals
	if err := h.get(ctx, "/fundamentals/"+url.PathEscape(symbol), nil, &f); err != nil {
		return models.Fundamentals{}, wrapStatus(symbol, "fundamentals", err)
	}
	return f, nil
}

func (h *HTTP) get(ctx context.Context, path string, params map[string][]string, dest interface{}) error {
	if h.baseURL == "" {
		return errors.New("provider base url not configured")
	}
	headers := map[string]string{"Accept": "application/json"}
	if h.apiKey != "" {
		headers["X-API-Key"] = h.apiKey
	}
	return h.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         h.baseURL + path,
		Headers:     headers,
		QueryParams: params,
	}, dest)
}

func wrapStatus(symbol, what string, err error) error {
	var se *xhttp.StatusError
	if errors.As(err, &se) && se.Code == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", strings.ToUpper(symbol), what, ErrUnknownSymbol)
	}
	return fmt.Errorf("%s %s: %w", strings.ToUpper(symbol), what, err)
}
