package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"

	admindomain "github.com/propsight/propsight/internal/admin/domain"
	"github.com/propsight/propsight/internal/config"
	pddomain "github.com/propsight/propsight/internal/propertydata/domain"
	quotadomain "github.com/propsight/propsight/internal/quota/domain"
)

var Module = fx.Module("server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(RegisterRoutes),
	fx.Invoke(RunHTTP),
)

func NewEngine(cfg config.Config) *gin.Engine {
	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(ErrorHandlingMiddleware())
	return engine
}

type Params struct {
	fx.In

	Log          *zap.Logger
	Config       config.Config
	Engine       *gin.Engine
	AnalyticsSvc pddomain.Service
	QuotaSvc     quotadomain.Service
	AdminSvc     admindomain.Service
	Registry     *prometheus.Registry
}

type Server struct {
	log          *zap.Logger
	cfg          config.Config
	engine       *gin.Engine
	analyticsSvc pddomain.Service
	quotaSvc     quotadomain.Service
	adminSvc     admindomain.Service
	registry     *prometheus.Registry
}

func NewServer(p Params) *Server {
	return &Server{
		log:          p.Log.Named("server"),
		cfg:          p.Config,
		engine:       p.Engine,
		analyticsSvc: p.AnalyticsSvc,
		quotaSvc:     p.QuotaSvc,
		adminSvc:     p.AdminSvc,
		registry:     p.Registry,
	}
}

func RegisterRoutes(s *Server) {
	s.engine.GET("/healthz", s.Health)
	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	v1 := s.engine.Group("/v1")

	analytics := v1.Group("/analytics")
	analytics.GET("/valuation", s.GetValuation)
	analytics.GET("/rents", s.GetRents)
	analytics.GET("/sold-prices", s.GetSoldPrices)
	analytics.GET("/growth", s.GetGrowth)
	analytics.GET("/demographics", s.GetDemographics)
	analytics.GET("/property", s.GetPropertyAnalytics)
	analytics.POST("/batch", s.BatchPropertyAnalytics)

	v1.DELETE("/cache/:postcode", s.DeletePropertyCache)

	quota := v1.Group("/quota")
	quota.GET("", s.GetUserQuota)
	quota.GET("/check", s.CheckCredits)
	quota.GET("/plans", s.ListPlans)

	admin := v1.Group("/admin")
	admin.GET("/dashboard", s.AdminDashboard)
	admin.POST("/users/:id/plan", s.AdminUpdateUserPlan)
	admin.POST("/users/:id/credits", s.AdminGrantCredits)
	admin.POST("/plans/bulk", s.AdminBulkUpdatePlans)
	admin.POST("/quotas/reset", s.AdminTriggerReset)
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": s.cfg.AppName,
		"version": s.cfg.AppVersion,
	})
}

// userID resolves the calling user from the gateway-supplied header.
// Authentication itself happens upstream.
func (s *Server) userID(c *gin.Context) (string, bool) {
	userID := c.GetHeader("X-User-ID")
	if userID == "" {
		AbortWithError(c, ErrUnauthorized)
		return "", false
	}
	return userID, true
}

func (s *Server) adminID(c *gin.Context) (string, bool) {
	adminID := c.GetHeader("X-Admin-ID")
	if adminID == "" {
		AbortWithError(c, ErrUnauthorized)
		return "", false
	}
	return adminID, true
}

func RunHTTP(lc fx.Lifecycle, s *Server) {
	srv := &http.Server{
		Addr:              ":" + s.cfg.HTTPPort,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				s.log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					s.log.Error("http server exited", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
