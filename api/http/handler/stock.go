package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-http-utils/headers"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"bitbucket.org/novatechnologies/stocks/domain"
	"bitbucket.org/novatechnologies/stocks/infra/logger"
)

// StockService is the part of stock.Service the handlers need.
type StockService interface {
	GetPrice(ctx context.Context, ticker string) (domain.Quote, error)
	SumAtCurrentBucket(ctx context.Context) (int64, error)
	TopPopular(n int) []string
	States() map[string]domain.InstrumentState
	Tickers() []string
	Pending() int
}

type StockHandler struct {
	StockService StockService
	PopularLimit int
}

const defaultPopularLimit = 3

func NewStockHandler(stockService StockService, popularLimit int) *StockHandler {
	if popularLimit <= 0 {
		popularLimit = defaultPopularLimit
	}
	return &StockHandler{StockService: stockService, PopularLimit: popularLimit}
}

type SumResponse struct {
	Sum int64 `json:"sum"`
}

type HealthResponse struct {
	Tickers int       `json:"tickers"`
	Pending int       `json:"pending"`
	Time    time.Time `json:"time"`
}

// GetStock handles GET /stocks/{ticker}.
func (h StockHandler) GetStock(res http.ResponseWriter, req *http.Request) {
	ticker := mux.Vars(req)["ticker"]
	logger.FromContext(req.Context()).WithField("ticker", ticker).Info("received request for stock")

	quote, err := h.StockService.GetPrice(req.Context(), ticker)
	if err != nil {
		writeError(res, req, err)
		return
	}
	writeJSON(res, req, http.StatusOK, quote)
}

// PopularStocks handles GET /popular-stocks.
func (h StockHandler) PopularStocks(res http.ResponseWriter, req *http.Request) {
	writeJSON(res, req, http.StatusOK, h.StockService.TopPopular(h.PopularLimit))
}

// SumStocks handles GET /sum-stocks.
func (h StockHandler) SumStocks(res http.ResponseWriter, req *http.Request) {
	sum, err := h.StockService.SumAtCurrentBucket(req.Context())
	if err != nil {
		writeError(res, req, err)
		return
	}
	writeJSON(res, req, http.StatusOK, SumResponse{Sum: sum})
}

func (h StockHandler) StocksState(res http.ResponseWriter, req *http.Request) {
	writeJSON(res, req, http.StatusOK, h.StockService.States())
}

func (h StockHandler) Health(res http.ResponseWriter, req *http.Request) {
	writeJSON(res, req, http.StatusOK, HealthResponse{
		Tickers: len(h.StockService.Tickers()),
		Pending: h.StockService.Pending(),
		Time:    time.Now().UTC(),
	})
}

func writeJSON(res http.ResponseWriter, req *http.Request, status int, body interface{}) {
	res.Header().Set(headers.ContentType, "application/json")
	res.WriteHeader(status)
	if err := json.NewEncoder(res).Encode(body); err != nil {
		logger.FromContext(req.Context()).WithError(err).Error("can't write response")
	}
}

func writeError(res http.ResponseWriter, req *http.Request, err error) {
	log := logger.FromContext(req.Context()).WithError(err)

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
		log.Warn("request for non-existent ticker")
	case errors.Is(err, domain.ErrCancelled):
		status = http.StatusServiceUnavailable
		log.Warn("request cancelled")
	default:
		log.Error("request failed")
	}
	http.Error(res, http.StatusText(status), status)
}
