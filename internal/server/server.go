package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/firmline/firmline/internal/config"
	firmdomain "github.com/firmline/firmline/internal/firm/domain"
	intakedomain "github.com/firmline/firmline/internal/intake/domain"
	knowledgedomain "github.com/firmline/firmline/internal/knowledge/domain"
	"github.com/firmline/firmline/internal/observability"
	"github.com/firmline/firmline/internal/observability/logger"
	"github.com/firmline/firmline/internal/observability/metrics"
	"github.com/firmline/firmline/internal/observability/tracing"
	"github.com/firmline/firmline/internal/ratelimit"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Config      config.Config
	ObsConfig   observability.Config
	Log         *zap.Logger
	HTTPMetrics *metrics.HTTPMetrics
	Limiter     ratelimit.Limiter
	Firms       firmdomain.Service
	Intake      intakedomain.Service
	Knowledge   knowledgedomain.Service
}

type Server struct {
	cfg       config.Config
	log       *zap.Logger
	limiter   ratelimit.Limiter
	firms     firmdomain.Service
	intake    intakedomain.Service
	knowledge knowledgedomain.Service
}

func New(p Params) *Server {
	return &Server{
		cfg:       p.Config,
		log:       p.Log.Named("server"),
		limiter:   p.Limiter,
		firms:     p.Firms,
		intake:    p.Intake,
		knowledge: p.Knowledge,
	}
}

func NewEngine(p Params, s *Server) *gin.Engine {
	if !p.ObsConfig.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.GinMiddleware(logger.MiddlewareConfig{
		Debug:           p.ObsConfig.Debug(),
		ErrorClassifier: ClassifyErrorForLog,
	}))
	r.Use(tracing.GinMiddleware())
	r.Use(metrics.GinMiddleware(p.HTTPMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.registerIntakeRoutes(r)
	s.registerKnowledgeRoutes(r)
	s.registerLeadRoutes(r)

	return r
}

// resolveFirmID picks the firm for a request: an explicit value wins,
// otherwise the configured default firm applies.
func (s *Server) resolveFirmID(explicit string) (snowflake.ID, error) {
	if explicit != "" {
		id, err := snowflake.ParseString(explicit)
		if err != nil {
			return 0, firmdomain.ErrInvalidFirm
		}
		return id, nil
	}
	if s.cfg.DefaultFirmID != 0 {
		return snowflake.ID(s.cfg.DefaultFirmID), nil
	}
	return 0, firmdomain.ErrInvalidFirm
}

func RunHTTP(lc fx.Lifecycle, engine *gin.Engine, log *zap.Logger) {
	addr := ":" + envPort()
	srv := &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

func envPort() string {
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	return "8080"
}

var Module = fx.Module("server",
	fx.Provide(New, NewEngine),
	fx.Invoke(RunHTTP),
)
