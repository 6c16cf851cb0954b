package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/revport/internal/clock"
	"github.com/smallbiznis/revport/internal/config"
	"github.com/smallbiznis/revport/internal/fxrate"
	"github.com/smallbiznis/revport/internal/metrics"
	mrrdomain "github.com/smallbiznis/revport/internal/mrr/domain"
	"github.com/smallbiznis/revport/internal/mrr/recognized"
	"github.com/smallbiznis/revport/internal/mrr/snapshot"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, mtr *metrics.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log))
	r.Use(metrics.GinMiddleware(mtr))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(log *zap.Logger, mtr *metrics.Metrics) *gin.Engine {
	return NewEngine(log, mtr)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

// snapshotService and recognizedService mirror the two report aggregators so
// handlers can be exercised against fakes.
type snapshotService interface {
	Compute(ctx context.Context, baseCurrency string, at time.Time) (mrrdomain.SnapshotResult, error)
}

type recognizedService interface {
	Compute(ctx context.Context, baseCurrency string, start, end time.Time) (mrrdomain.RecognizedResult, error)
}

type currencyCatalog interface {
	Currencies(ctx context.Context) ([]string, error)
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	reporting  *config.ReportingHolder
	snapshot   snapshotService
	recognized recognizedService
	catalog    currencyCatalog
	clock      clock.Clock
	log        *zap.Logger
	mtr        *metrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	Reporting  *config.ReportingHolder
	Snapshot   *snapshot.Service
	Recognized *recognized.Service
	FX         *fxrate.Service
	Clock      clock.Clock
	Log        *zap.Logger
	Metrics    *metrics.Metrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		reporting:  p.Reporting,
		snapshot:   p.Snapshot,
		recognized: p.Recognized,
		catalog:    p.FX,
		clock:      p.Clock,
		log:        p.Log.Named("server"),
		mtr:        p.Metrics,
	}

	s.registerAPIRoutes()

	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	api.GET("/mrr", s.GetMRRReport)
	api.GET("/currencies", s.ListCurrencies)
}
