package router

import (
	"context"
	"net/http"
	"time"

	apphttp "lead_engine_backend/internal/http"
	"lead_engine_backend/internal/leads/transport"
	"lead_engine_backend/platform/config"
	"lead_engine_backend/platform/httpkit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const healthTimeout = 2 * time.Second

// New builds the gin engine and mounts every module.
func New(app *apphttp.App) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(httpkit.RequestID())
	engine.Use(httpkit.RequestLogger(app.Logger))
	engine.Use(httpkit.SecurityHeaders())
	if app.Config.GetCORSAllowAll() || len(app.Config.GetCORSOrigins()) > 0 {
		engine.Use(cors.New(corsConfig(app.Config)))
	}
	if app.Metrics != nil {
		engine.Use(httpkit.Metrics(app.Metrics))
		engine.GET("/metrics", gin.WrapH(app.Metrics.Handler()))
	}

	engine.GET("/api/health", healthHandler(app))

	v1 := engine.Group("/api/v1")

	ingestLimiter := httpkit.NewIPRateLimiter(rate.Limit(app.Config.GetIngestRateLimit()), app.Config.GetIngestBurst(), app.Logger)
	if app.Metrics != nil {
		ingestLimiter.OnLimit = app.Metrics.RateLimitHit
	}
	ingest := v1.Group("/ingest")
	ingest.Use(ingestLimiter.RateLimit())

	routerCtx := &apphttp.RouterContext{
		Engine: engine,
		V1:     v1,
		Ingest: ingest,
	}
	for _, module := range app.Modules {
		module.RegisterRoutes(routerCtx)
		app.Logger.Info("module registered", "module", module.Name())
	}

	return engine
}

func healthHandler(app *apphttp.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		now := time.Now().In(app.Config.GetLocation()).Format(time.RFC3339)

		if app.Health != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
			defer cancel()
			if err := app.Health.Ping(ctx); err != nil {
				app.Logger.Error("health check failed", "error", err)
				httpkit.JSON(c, http.StatusServiceUnavailable, transport.HealthResponse{OK: false, Time: now})
				return
			}
		}

		httpkit.OK(c, transport.HealthResponse{OK: true, Time: now})
	}
}

func corsConfig(cfg config.HTTPConfig) cors.Config {
	conf := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", httpkit.HeaderRequestID},
		ExposeHeaders: []string{httpkit.HeaderRequestID},
		MaxAge:        12 * time.Hour,
	}
	if cfg.GetCORSAllowAll() {
		conf.AllowAllOrigins = true
	} else {
		conf.AllowOrigins = cfg.GetCORSOrigins()
	}
	return conf
}
