package http

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-http-utils/headers"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"bitbucket.org/novatechnologies/stocks/api/http/handler"
	"bitbucket.org/novatechnologies/stocks/infra/logger"
)

const requestIDHeader = "X-Request-Id"

type Server struct {
	srv http.Server
}

func NewRouter(stockHandler *handler.StockHandler) *mux.Router {
	router := mux.NewRouter()
	router.Use(requestLogging)

	router.HandleFunc("/stocks/{ticker}", stockHandler.GetStock).Methods(http.MethodGet)
	router.HandleFunc("/popular-stocks", stockHandler.PopularStocks).Methods(http.MethodGet)
	router.HandleFunc("/sum-stocks", stockHandler.SumStocks).Methods(http.MethodGet)
	router.HandleFunc("/stocks-state", stockHandler.StocksState).Methods(http.MethodGet)
	router.HandleFunc("/healthz", stockHandler.Health).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return router
}

func NewServer(stockService handler.StockService, port, popularLimit int) *Server {
	stockHandler := handler.NewStockHandler(stockService, popularLimit)

	return &Server{
		srv: http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           NewRouter(stockHandler),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start serves in the background until Stop is called. Request contexts are
// derived from ctx.
func (s *Server) Start(ctx context.Context) <-chan error {
	s.srv.BaseContext = func(listener net.Listener) context.Context {
		return ctx
	}
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		log.WithField("addr", s.srv.Addr).Info("[*] Http server is started")
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("http server stopped")
			errCh <- err
		}
	}()
	return errCh
}

func (s *Server) Stop(ctx context.Context) error {
	log.Info("[*] Http server is stopping")
	return s.srv.Shutdown(ctx)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// requestLogging puts a request scoped logger into the context and logs the
// outcome of every request.
func requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)

		entry := logger.FromContext(r.Context()).WithFields(log.Fields{
			"request_id": requestID,
			"method":     r.Method,
			"path":       r.URL.Path,
			"user_agent": r.Header.Get(headers.UserAgent),
		})
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r.WithContext(logger.ToContext(r.Context(), entry)))

		entry.WithField("status", rec.status).
			WithField("duration", time.Since(started).Round(time.Millisecond)).
			Info("request served")
	})
}
