package main

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"quotefeed/internal/feed"
	"quotefeed/internal/provider"
)

type fakeProvider struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeProvider) Name() string { return "fake" }
func (f *fakeProvider) Fetch(_ context.Context, symbol string) (provider.Quote, error) {
	f.mu.Lock()
	f.calls = append(f.calls, symbol)
	f.mu.Unlock()
	return provider.Quote{Symbol: symbol, Price: 10, Change: 1, ChangePercent: 10, LastUpdated: "2024-05-17"}, nil
}

type panicFetcher struct{}

func (panicFetcher) FetchOne(context.Context, string) provider.Quote {
	panic("boom")
}

func (panicFetcher) FetchMany(context.Context, []string) []provider.Quote {
	panic("boom")
}

func newTestHandler(t *testing.T, defaults []string) (http.Handler, *fakeProvider) {
	t.Helper()
	logger, _ := logtest.NewNullLogger()
	p := &fakeProvider{}
	f := feed.New(p, feed.WithLogger(logger), feed.WithWait(func(context.Context, time.Duration) error { return nil }))
	return newHandler(f, defaults, logger), p
}

func decodeQuotes(t *testing.T, rr *httptest.ResponseRecorder) []provider.Quote {
	t.Helper()
	var resp quotesResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp), rr.Body.String())
	return resp.Quotes
}

func TestQuotes_GetWithSymbols(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/quotes?symbols=aapl,MSFT,,googl", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "application/json; charset=utf-8", rr.Header().Get("Content-Type"))
	quotes := decodeQuotes(t, rr)
	require.Len(t, quotes, 3)
	require.Equal(t, "AAPL", quotes[0].Symbol)
	require.Equal(t, "MSFT", quotes[1].Symbol)
	require.Equal(t, "GOOGL", quotes[2].Symbol)
}

func TestQuotes_GetDefaultsToWatchList(t *testing.T) {
	h, p := newTestHandler(t, []string{"AAPL", "MSFT", "GOOGL", "AMZN", "META", "TSLA", "NVDA"})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/quotes", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, decodeQuotes(t, rr), 7)
	require.Len(t, p.calls, 7)
}

func TestQuotes_PostBody(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/quotes", strings.NewReader(`{"symbols":["nflx","intc"]}`)))

	require.Equal(t, http.StatusOK, rr.Code)
	quotes := decodeQuotes(t, rr)
	require.Equal(t, []string{"NFLX", "INTC"}, []string{quotes[0].Symbol, quotes[1].Symbol})
}

func TestQuotes_PostRejectsBadInput(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	for name, body := range map[string]string{
		"invalid json":  `{`,
		"unknown field": `{"tickers":["AAPL"]}`,
		"too many":      `{"symbols":[` + strings.TrimSuffix(strings.Repeat(`"A",`, maxSymbols+1), ",") + `]}`,
	} {
		t.Run(name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/quotes", strings.NewReader(body)))
			require.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}
}

func TestQuotes_MethodNotAllowed(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/api/quotes", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestQuote_Single(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/quote?symbol=ibm", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var q provider.Quote
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &q))
	require.Equal(t, "IBM", q.Symbol)
	require.Contains(t, rr.Body.String(), `"changePercent":10`)
	require.Contains(t, rr.Body.String(), `"lastUpdated":"2024-05-17"`)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/quote", nil))
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestQuotes_Gzip(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/quotes?symbols=AAPL", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, "gzip", rr.Header().Get("Content-Encoding"))
	zr, err := gzip.NewReader(rr.Body)
	require.NoError(t, err)
	var resp quotesResponse
	require.NoError(t, json.NewDecoder(zr).Decode(&resp))
	require.Len(t, resp.Quotes, 1)
}

func TestHealthzAndOptions(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "ok", rr.Body.String())

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodOptions, "/api/quotes", nil))
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecoverPanic(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	h := newHandler(panicFetcher{}, []string{"AAPL"}, logger)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/quote?symbol=AAPL", nil))

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.Contains(t, hook.LastEntry().Message, "handler panic")
}

func TestQuotes_PostEmptyReturnsEmptyList(t *testing.T) {
	for name, body := range map[string]string{
		"no symbols":    `{"symbols":[]}`,
		"blank symbols": `{"symbols":[" ", ""]}`,
		"missing field": `{}`,
	} {
		t.Run(name, func(t *testing.T) {
			h, p := newTestHandler(t, []string{"AAPL"})
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/quotes", strings.NewReader(body)))

			require.Equal(t, http.StatusOK, rr.Code)
			require.JSONEq(t, `{"quotes":[]}`, rr.Body.String())
			require.Empty(t, p.calls)
		})
	}
}

type nanFetcher struct{}

func (nanFetcher) FetchOne(_ context.Context, symbol string) provider.Quote {
	return provider.Quote{Symbol: symbol, Price: math.NaN()}
}

func (nanFetcher) FetchMany(context.Context, []string) []provider.Quote {
	return []provider.Quote{{Symbol: "AAPL", Price: math.Inf(1)}}
}

func TestWriteJSON_EncodingFailureIsServerError(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	h := newHandler(nanFetcher{}, []string{"AAPL"}, logger)

	for _, target := range []string{"/api/quote?symbol=AAPL", "/api/quotes"} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))

		require.Equal(t, http.StatusInternalServerError, rr.Code, target)
		require.Contains(t, rr.Body.String(), "internal server error")
		require.Equal(t, "encoding response", hook.LastEntry().Message)
	}
}
