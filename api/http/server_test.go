package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bitbucket.org/novatechnologies/stocks/api/http/handler"
	"bitbucket.org/novatechnologies/stocks/domain"
	"bitbucket.org/novatechnologies/stocks/stock"
)

func newTestRouter(t *testing.T, price int64) http.Handler {
	t.Helper()
	registry, err := domain.NewRegistry(domain.DefaultTickers("stock-", 10), 1000)
	require.NoError(t, err)

	gen := stock.PriceGeneratorFunc(func(context.Context, string, int64) (int64, error) {
		return price, nil
	})
	service := stock.NewService(context.Background(), registry, gen, stock.Options{
		Now: func() time.Time { return time.Unix(1000, 0) },
	})
	t.Cleanup(service.Close)

	return NewRouter(handler.NewStockHandler(service, 3))
}

func get(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestRouter(t *testing.T) {
	router := newTestRouter(t, 1010)

	rec := get(t, router, "/stocks/stock-5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ticker":"stock-5","price":1010}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	assert.Equal(t, http.StatusNotFound, get(t, router, "/stocks/unknown-stock").Code)
	get(t, router, "/stocks/stock-2")
	get(t, router, "/stocks/stock-5")

	rec = get(t, router, "/popular-stocks")
	require.Equal(t, http.StatusOK, rec.Code)
	var popular []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &popular))
	assert.Equal(t, []string{"stock-5", "stock-2", "stock-1"}, popular)

	rec = get(t, router, "/sum-stocks")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"sum":10100}`, rec.Body.String())

	rec = get(t, router, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	var health handler.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, 10, health.Tickers)

	assert.Equal(t, http.StatusOK, get(t, router, "/metrics").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, func() int {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sum-stocks", nil))
		return rec.Code
	}())
}

func TestRouter_keepsRequestID(t *testing.T) {
	router := newTestRouter(t, 1010)

	req := httptest.NewRequest(http.MethodGet, "/stocks/stock-1", nil)
	req.Header.Set(requestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "req-42", rec.Header().Get(requestIDHeader))
}
