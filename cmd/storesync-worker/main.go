// StoreSync Worker — онбординг магазинов WooCommerce.
//
// Worker:
//   - Получает события woo.store.connected из RabbitMQ
//   - Синхронизирует категории и регистрирует webhook'и через бэкенд
//   - Повторяет transient-ошибки переопубликацией с x-retry-count
//   - Переподключается к брокеру при разрывах
//
// Служебный HTTP (WORKER_PORT): /healthz, /readyz, /metrics.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/dnscache"
	"golang.org/x/sync/errgroup"

	"github.com/shaiso/storesync/internal/api"
	"github.com/shaiso/storesync/internal/backend"
	"github.com/shaiso/storesync/internal/callback"
	"github.com/shaiso/storesync/internal/config"
	"github.com/shaiso/storesync/internal/dispatcher"
	"github.com/shaiso/storesync/internal/mq"
	"github.com/shaiso/storesync/internal/telemetry"
	"github.com/shaiso/storesync/internal/worker"
	"github.com/shaiso/storesync/internal/workflow"
)

const (
	serviceName        = "storesync-worker"
	dnsRefreshInterval = 5 * time.Minute
	shutdownTimeout    = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Инициализируем structured logging
	logger := telemetry.SetupLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting storesync-worker",
		"queue", cfg.Queue,
		"backend_url", cfg.BackendURL,
		"max_retries", cfg.MaxRetries,
	)

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.OTLPEndpoint != "" {
		shutdown, err := telemetry.SetupTracing(ctx, serviceName, cfg.OTLPEndpoint, cfg.TraceSampleRate)
		if err != nil {
			logger.Warn("tracing disabled", "error", err)
		} else {
			defer func() {
				sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer scancel()
				shutdown(sctx)
			}()
			logger.Info("tracing enabled", "endpoint", cfg.OTLPEndpoint)
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := telemetry.NewMetrics(reg)

	// DNS cache для бэкенда
	dns := &dnscache.Resolver{}

	client := backend.New(backend.Config{
		BaseURL:      cfg.BackendURL,
		ServiceToken: cfg.ServiceToken,
		Timeout:      cfg.HTTPTimeout(),
		RPS:          cfg.BackendRPS,
		Resolver:     dns,
		Metrics:      metrics,
		Logger:       logger,
	})

	executor := workflow.New(workflow.Config{
		Backend:  client,
		Resolver: newCallbackResolver(cfg, metrics, logger),
		Topics:   cfg.WebhookTopics,
		Logger:   logger,
	})

	disp := dispatcher.New(dispatcher.Config{
		Executor:       executor,
		MaxRetries:     cfg.MaxRetries,
		TransientDelay: cfg.TransientDelay,
		Metrics:        metrics,
		Logger:         logger,
	})

	hostname, _ := os.Hostname()

	w := worker.New(worker.Config{
		Connect: func(ctx context.Context) (worker.Session, error) {
			return mq.Open(mq.SessionConfig{
				URL:            cfg.RabbitMQURL,
				ConnectionName: serviceName + "@" + hostname,
				Queue:          cfg.Queue,
				Prefetch:       cfg.PrefetchCount,
				PollInterval:   cfg.PollInterval,
				Handler:        disp,
				Metrics:        metrics,
				Logger:         logger,
			})
		},
		MaxRetries:    cfg.MaxConnectRetries,
		ReconnectWait: cfg.ReconnectWait(),
		Metrics:       metrics,
		Logger:        logger,
	})

	handler := api.NewHandler(api.Config{
		Readiness: w,
		Gatherer:  reg,
		Logger:    logger,
	})

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.WorkerPort),
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return w.Run(gctx)
	})

	g.Go(func() error {
		logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer scancel()
		return srv.Shutdown(sctx)
	})

	g.Go(func() error {
		ticker := time.NewTicker(dnsRefreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				dns.Refresh(true)
			}
		}
	})

	if err := g.Wait(); err != nil {
		if errors.Is(err, worker.ErrReconnectsExhausted) {
			logger.Error("giving up on broker connection", "error", err)
		} else {
			logger.Error("storesync-worker failed", "error", err)
		}
		os.Exit(1)
	}

	logger.Info("storesync-worker stopped")
}

// newCallbackResolver выбирает источник URL доставки webhook'ов:
// CALLBACK_URL, затем API туннеля, иначе ничего.
func newCallbackResolver(cfg *config.Config, metrics *telemetry.Metrics, logger *slog.Logger) callback.Resolver {
	switch {
	case cfg.CallbackURL != "":
		logger.Info("using static callback url", "url", cfg.CallbackURL)
		return callback.Static(cfg.CallbackURL)
	case cfg.TunnelDiscovery:
		return callback.NewTunnelResolver(callback.TunnelConfig{
			APIURL:   cfg.TunnelAPIURL,
			CacheTTL: cfg.CallbackCacheTTL,
			Metrics:  metrics,
			Logger:   logger,
		})
	default:
		return callback.None{}
	}
}
