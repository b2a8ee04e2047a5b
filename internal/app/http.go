package app

import (
	"github.com/yungbote/experiments-backend/internal/http"
	httpH "github.com/yungbote/experiments-backend/internal/http/handlers"
	httpMW "github.com/yungbote/experiments-backend/internal/http/middleware"
	"github.com/yungbote/experiments-backend/internal/observability"
	"github.com/yungbote/experiments-backend/internal/platform/logger"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health     *httpH.HealthHandler
	Experiment *httpH.ExperimentHandler
	Event      *httpH.EventHandler
}

func wireHandlers(log *logger.Logger, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:     httpH.NewHealthHandler(ServiceBanner, ServiceVersion),
		Experiment: httpH.NewExperimentHandler(services.Experiment, services.Assignment, services.Results),
		Event:      httpH.NewEventHandler(services.Event),
	}
}

func wireMiddleware(log *logger.Logger, clients Clients, metrics *observability.Metrics) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, clients.Credentials, metrics),
	}
}

func wireServer(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers, middleware Middleware) *http.Server {
	return http.NewServer(http.RouterConfig{
		Log:               log,
		Metrics:           metrics,
		ServiceName:       ServiceName,
		CORSOrigins:       cfg.CORSOrigins,
		AuthMiddleware:    middleware.Auth,
		HealthHandler:     handlers.Health,
		ExperimentHandler: handlers.Experiment,
		EventHandler:      handlers.Event,
	})
}
