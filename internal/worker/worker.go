package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/shaiso/storesync/internal/telemetry"
)

// Default configuration values.
const (
	defaultReconnectWait = 3 * time.Second
)

// Session — одно подключение к брокеру.
type Session interface {
	// Run потребляет сообщения до отмены ctx (nil) или разрыва (error).
	// onConsuming вызывается, когда consumer зарегистрирован.
	Run(ctx context.Context, onConsuming func()) error
	Close() error
}

// ConnectFunc открывает новую сессию.
type ConnectFunc func(ctx context.Context) (Session, error)

// Worker держит сессию с брокером и переподключается при сбоях.
type Worker struct {
	connect       ConnectFunc
	maxRetries    int
	reconnectWait time.Duration

	connected atomic.Bool

	metrics *telemetry.Metrics
	logger  *slog.Logger
}

// Config — конфигурация Worker.
type Config struct {
	// Connect открывает сессию (обычно mq.Open).
	Connect ConnectFunc

	// MaxRetries — неудачных попыток подряд до выхода; 0 — без ограничения.
	MaxRetries int

	// ReconnectWait — пауза между попытками (default: 3s).
	ReconnectWait time.Duration

	Metrics *telemetry.Metrics
	Logger  *slog.Logger
}

// New создаёт новый Worker.
func New(cfg Config) *Worker {
	reconnectWait := cfg.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = defaultReconnectWait
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = telemetry.NewLocalMetrics()
	}

	return &Worker{
		connect:       cfg.Connect,
		maxRetries:    max(cfg.MaxRetries, 0),
		reconnectWait: reconnectWait,
		metrics:       metrics,
		logger:        logger,
	}
}

// Run выполняет цикл подключения до отмены ctx.
//
// Возвращает nil при отмене и ErrReconnectsExhausted, если
// MaxRetries попыток подряд закончились ошибкой.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("starting worker",
		"max_connect_retries", w.maxRetries,
		"reconnect_wait", w.reconnectWait,
	)

	failures := 0

	for {
		if ctx.Err() != nil {
			break
		}

		consumed, err := w.runSession(ctx)
		if ctx.Err() != nil {
			break
		}

		if consumed {
			failures = 0
		}
		failures++
		w.metrics.Reconnects.Inc()

		w.logger.Error("broker session failed",
			"error", err,
			"attempt", failures,
			"max_attempts", w.maxRetries,
		)

		if w.maxRetries > 0 && failures >= w.maxRetries {
			return fmt.Errorf("%w after %d attempts: %w", ErrReconnectsExhausted, failures, err)
		}

		w.logger.Info("reconnecting", "delay", w.reconnectWait)

		timer := time.NewTimer(w.reconnectWait)
		select {
		case <-ctx.Done():
			timer.Stop()
		case <-timer.C:
		}
	}

	w.logger.Info("worker stopped")
	return nil
}

// Connected сообщает, потребляет ли воркер сообщения прямо сейчас.
func (w *Worker) Connected() bool {
	return w.connected.Load()
}

// runSession открывает сессию и работает в ней до отмены или ошибки.
// consumed — дошла ли сессия до потребления.
func (w *Worker) runSession(ctx context.Context) (consumed bool, err error) {
	session, err := w.connect(ctx)
	if err != nil {
		return false, err
	}

	defer func() {
		w.setConnected(false)
		if cerr := session.Close(); cerr != nil {
			w.logger.Debug("close session", "error", cerr)
		}
	}()

	err = session.Run(ctx, func() {
		consumed = true
		w.setConnected(true)
	})
	if err == nil && ctx.Err() == nil {
		err = ErrSessionEnded
	}

	return consumed, err
}

func (w *Worker) setConnected(v bool) {
	w.connected.Store(v)
	if v {
		w.metrics.BrokerConnected.Set(1)
	} else {
		w.metrics.BrokerConnected.Set(0)
	}
}
