package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/activefrequency/tranquilo-shopify/internal/config"
	"github.com/activefrequency/tranquilo-shopify/internal/dal/mds"
	"github.com/activefrequency/tranquilo-shopify/internal/mailer"
	"github.com/activefrequency/tranquilo-shopify/internal/otel"
	"github.com/activefrequency/tranquilo-shopify/internal/sentry"
	"github.com/activefrequency/tranquilo-shopify/internal/service/services/relaysvc"
	httptransport "github.com/activefrequency/tranquilo-shopify/internal/transport/http"
	"github.com/activefrequency/tranquilo-shopify/internal/worker/alerts"
	"github.com/activefrequency/tranquilo-shopify/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// App represents the application.
type App struct {
	relaySvc     *relaysvc.RelayService
	transport    *httptransport.HTTPTransport
	alertsWorker *alerts.Worker
	otel         *otel.OtelController
}

// MustNewApp creates a new application.
func MustNewApp() *App {
	cfg := config.MustNewConfig()

	sentry.MustInit(cfg.SentryDSN)
	otelController := otel.MustInitOtel()

	alertsWorker := alerts.NewWorker(mailer.NewMailer(
		cfg.SendgridUsername,
		cfg.SendgridPassword,
		cfg.AlertFrom,
		cfg.AlertRecipients,
	))

	relaySvc := relaysvc.MustNewRelayService(
		relaysvc.WithConfig(cfg),
		relaysvc.WithMDSClient(mds.NewClient(cfg.MDSEndpoint)),
		relaysvc.WithAlerts(alertsWorker),
		relaysvc.WithMetrics(metrics.New(prometheus.DefaultRegisterer)),
	)

	transport := httptransport.NewHTTPTransport(relaySvc)
	transport.RegisterRoutes()

	return &App{
		relaySvc:     relaySvc,
		transport:    transport,
		alertsWorker: alertsWorker,
		otel:         otelController,
	}
}

// Run starts the application.
// Tracks interrupt signal to gracefully shut down the application.
func (a *App) Run() {
	// Create a channel to receive OS signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	workerCtx, cancelWorker := context.WithCancel(context.Background())
	go a.alertsWorker.Start(workerCtx)

	go func() {
		slog.Info("Starting HTTP server")
		if err := a.transport.Run(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	<-stop
	slog.Info("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.transport.Shutdown(ctx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped gracefully")
	}

	cancelWorker()

	if err := a.otel.Shutdown(); err != nil {
		slog.Error("Trace provider shutdown error", "error", err)
	}

	sentry.Flush()

	slog.Info("Application shutdown complete")
}
