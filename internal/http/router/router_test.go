package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	apphttp "lead_engine_backend/internal/http"
	"lead_engine_backend/internal/metrics"
	"lead_engine_backend/platform/config"
	"lead_engine_backend/platform/httpkit"
	"lead_engine_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

type stubHealth struct {
	err error
}

func (s stubHealth) Ping(context.Context) error { return s.err }

type pingModule struct{}

func (pingModule) Name() string { return "ping" }

func (pingModule) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Ingest.POST("/webhook", func(c *gin.Context) { c.Status(http.StatusCreated) })
	ctx.V1.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
}

func newTestApp(health apphttp.HealthChecker) *apphttp.App {
	gin.SetMode(gin.TestMode)
	loc, _ := time.LoadLocation("Asia/Kuala_Lumpur")
	return &apphttp.App{
		Config: &config.Config{
			CORSOrigins:     []string{"http://localhost:4200"},
			IngestRateLimit: 1,
			IngestBurst:     2,
			Location:        loc,
		},
		Logger:  logger.New("test"),
		Health:  health,
		Metrics: metrics.New(),
		Modules: []apphttp.Module{pingModule{}},
	}
}

func serve(engine *gin.Engine, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name   string
		health stubHealth
		want   int
		wantOK string
	}{
		{name: "store reachable", health: stubHealth{}, want: http.StatusOK, wantOK: `"ok":true`},
		{name: "store down", health: stubHealth{err: errors.New("connection refused")}, want: http.StatusServiceUnavailable, wantOK: `"ok":false`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := New(newTestApp(tt.health))

			rec := serve(engine, http.MethodGet, "/api/health")
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}
			body := rec.Body.String()
			if !strings.Contains(body, tt.wantOK) {
				t.Fatalf("expected %s in %s", tt.wantOK, body)
			}
			if !strings.Contains(body, "+08:00") {
				t.Fatalf("expected time in the configured zone, got %s", body)
			}
		})
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	engine := New(newTestApp(stubHealth{}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
	req.Header.Set(httpkit.HeaderRequestID, "req-123")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if got := rec.Header().Get(httpkit.HeaderRequestID); got != "req-123" {
		t.Fatalf("expected request id to be echoed, got %q", got)
	}

	rec = serve(engine, http.MethodGet, "/api/v1/ping")
	if rec.Header().Get(httpkit.HeaderRequestID) == "" {
		t.Fatal("expected a generated request id")
	}
}

func TestIngestRoutesAreRateLimited(t *testing.T) {
	engine := New(newTestApp(stubHealth{}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, serve(engine, http.MethodPost, "/api/v1/ingest/webhook").Code)
	}
	if codes[0] != http.StatusCreated || codes[1] != http.StatusCreated || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("expected burst of 2 then 429, got %v", codes)
	}

	for i := 0; i < 5; i++ {
		if rec := serve(engine, http.MethodGet, "/api/v1/ping"); rec.Code != http.StatusOK {
			t.Fatalf("expected non-ingest routes to be unlimited, got %d", rec.Code)
		}
	}
}

func TestMetricsEndpointReportsRequests(t *testing.T) {
	engine := New(newTestApp(stubHealth{}))
	serve(engine, http.MethodGet, "/api/v1/ping")

	rec := serve(engine, http.MethodGet, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `route="/api/v1/ping"`) {
		t.Fatalf("expected ping route in metrics output")
	}
}
