package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentavail/pkg/config"
	"rentavail/pkg/contracts"
	"rentavail/pkg/logger"
)

type routes func(*httprouter.Router)

func (r routes) RegisterRoutes(router *httprouter.Router) { r(router) }

func testConfig() *config.Config {
	return &config.Config{
		Port:               "0",
		RateLimitRequests:  100,
		RateLimitWindow:    time.Minute,
		RequestTimeout:     time.Second,
		MaxRequestSize:     1024,
		ShutdownTimeout:    time.Second,
		CORSAllowedOrigins: []string{"https://example.com"},
		Log:                logger.Discard(),
	}
}

func newTestApp(t *testing.T) *Application {
	t.Helper()
	a := NewApplication(testConfig())
	a.SetApp(
		routes(func(r *httprouter.Router) {
			r.GET("/health", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
				w.WriteHeader(http.StatusOK)
			})
		}),
		routes(func(r *httprouter.Router) {
			r.GET("/api/v1/ping", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
				w.WriteHeader(http.StatusAccepted)
			})
			r.POST("/api/v1/ping", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
				w.WriteHeader(http.StatusAccepted)
			})
		}),
	)
	return a
}

func TestHandlerRouting(t *testing.T) {
	a := newTestApp(t)
	h := a.Handler()
	defer a.rateLimiter.Stop()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/ping", nil))
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code, "api routes validate content type")
}

func TestHandlerCORS(t *testing.T) {
	a := newTestApp(t)
	defer a.rateLimiter.Stop()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
	req.Header.Set("Origin", "https://example.com")
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "https://example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestServeStopsOnCancel(t *testing.T) {
	a := newTestApp(t)

	var ran atomic.Bool
	a.AddWorker("ticker", contracts.WorkerFunc(func(ctx context.Context) error {
		ran.Store(true)
		<-ctx.Done()
		return ctx.Err()
	}))

	var order []string
	a.OnShutdown("first", func() error { order = append(order, "first"); return nil })
	a.OnShutdown("second", func() error { order = append(order, "second"); return errors.New("ignored") })

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.serve(ctx, ln) }()

	require.Eventually(t, ran.Load, time.Second, 5*time.Millisecond)

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
	assert.Equal(t, []string{"second", "first"}, order)
}

func TestServeReturnsWorkerFailure(t *testing.T) {
	a := newTestApp(t)
	boom := errors.New("broker unreachable")
	a.AddWorker("consumer", contracts.WorkerFunc(func(context.Context) error { return boom }))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	err = a.serve(context.Background(), ln)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}
