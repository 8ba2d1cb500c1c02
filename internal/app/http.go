package app

import (
	piahttp "github.com/hzi-braunschweig/pia-system-sub012/internal/http"
	httpH "github.com/hzi-braunschweig/pia-system-sub012/internal/http/handlers"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/platform/logger"
)

func wireHTTP(log *logger.Logger, cfg Config, ready httpH.ReadyFunc, svc Services) *piahttp.Server {
	log.Info("Wiring ops HTTP...", "addr", cfg.OpsHTTPAddr)
	return piahttp.NewServer(cfg.OpsHTTPAddr, piahttp.RouterConfig{
		Log:           log,
		ServiceName:   cfg.ServiceName,
		HealthHandler: httpH.NewHealthHandler(ready),
		SweepHandler:  httpH.NewSweepHandler(svc.Sweeper),
	})
}
