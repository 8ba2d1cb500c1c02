package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/hzi-braunschweig/pia-system-sub012/internal/http/handlers"
	httpMW "github.com/hzi-braunschweig/pia-system-sub012/internal/http/middleware"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	ServiceName string

	HealthHandler *httpH.HealthHandler
	SweepHandler  *httpH.SweepHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(cfg.ServiceName))
	r.Use(httpMW.AttachTraceContext())
	if cfg.Log != nil {
		r.Use(httpMW.RequestLogger(cfg.Log.With("component", "OpsHTTP")))
	}

	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}

	internal := r.Group("/internal")
	{
		if cfg.SweepHandler != nil {
			internal.POST("/sweeps", cfg.SweepHandler.Trigger)
			internal.GET("/sweeps/latest", cfg.SweepHandler.Latest)
		}
	}
	return r
}
