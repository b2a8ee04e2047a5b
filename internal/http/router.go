package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/experiments-backend/internal/http/handlers"
	httpMW "github.com/yungbote/experiments-backend/internal/http/middleware"
	"github.com/yungbote/experiments-backend/internal/http/response"
	"github.com/yungbote/experiments-backend/internal/observability"
	"github.com/yungbote/experiments-backend/internal/platform/apierr"
	"github.com/yungbote/experiments-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	ServiceName string
	CORSOrigins []string

	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler     *httpH.HealthHandler
	ExperimentHandler *httpH.ExperimentHandler
	EventHandler      *httpH.EventHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	r.NoRoute(func(c *gin.Context) {
		response.RespondErr(c, apierr.NotFound("route not found"))
	})

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/", cfg.HealthHandler.Root)
		r.GET("/health", cfg.HealthHandler.Health)
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	protected := r.Group("/")
	if cfg.AuthMiddleware != nil {
		protected.Use(cfg.AuthMiddleware.RequireAuth())
	}

	// Experiments
	if cfg.ExperimentHandler != nil {
		protected.POST("/experiments", cfg.ExperimentHandler.Create)
		protected.GET("/experiments", cfg.ExperimentHandler.List)
		protected.GET("/experiments/:id", cfg.ExperimentHandler.Get)
		protected.DELETE("/experiments/:id", cfg.ExperimentHandler.Delete)
		protected.GET("/experiments/:id/assignment/:user_id", cfg.ExperimentHandler.Assignment)
		protected.GET("/experiments/:id/results", cfg.ExperimentHandler.Results)
	}

	// Events
	if cfg.EventHandler != nil {
		protected.POST("/events", cfg.EventHandler.Record)
	}

	return r
}
