package http

import (
	"context"
	"net/http"

	"github.com/jmehdipour/fax-gateway/internal/config"
	"github.com/jmehdipour/fax-gateway/internal/http/middleware"
	"github.com/jmehdipour/fax-gateway/internal/kafka"
	"github.com/jmehdipour/fax-gateway/internal/logger"
	"github.com/jmehdipour/fax-gateway/internal/metrics"
	"github.com/jmehdipour/fax-gateway/internal/queue"
	"github.com/jmehdipour/fax-gateway/internal/repository"
	"github.com/jmehdipour/fax-gateway/internal/storage"
	"github.com/jmehdipour/fax-gateway/internal/store"
	echo "github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Server struct{ e *echo.Echo }

// Deps carries the shared clients constructed at startup.
type Deps struct {
	Pipeline      *storage.Pipeline
	FaxStore      store.FaxStore
	Resolver      Resolver
	Queue         queue.Enqueuer
	Transmissions repository.TransmissionsRepository
	Events        kafka.Publisher
}

func NewServer(cfg config.Config, d Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(echoMid.Recover(), echoMid.Logger())

	metrics.MustRegister(prometheus.DefaultRegisterer)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// health
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	// carrier liveness probe
	e.POST("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	// webhooks
	e.POST("/faxes", faxWebhookHandler(FaxWebhookDeps{
		Fetcher:       d.Pipeline,
		FaxStore:      d.FaxStore,
		Resolver:      d.Resolver,
		Queue:         d.Queue,
		Transmissions: d.Transmissions,
		Events:        d.Events,
	}), middleware.SignatureMiddleware(cfg.Carrier.PublicKey))

	e.POST("/email/inbound", emailWebhookHandler(EmailWebhookDeps{
		Stager:        d.Pipeline,
		Resolver:      d.Resolver,
		Queue:         d.Queue,
		Transmissions: d.Transmissions,
		Events:        d.Events,
		ConnectionID:  cfg.Carrier.ConnectionID,
	}))

	// history
	e.GET("/transmissions", listTransmissionsHandler(d.Transmissions))

	return &Server{e: e}
}

func (s *Server) Start(addr string) error {
	logger.Log.Info("http: listening", zap.String("addr", addr))
	return s.e.Start(addr)
}
func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }
