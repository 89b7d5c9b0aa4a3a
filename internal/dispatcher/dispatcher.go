// Package dispatcher превращает тело сообщения в решение:
// декодирование → workflow → policy.
//
// Dispatch всегда возвращает ровно одно решение и никогда не паникует.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/storesync/internal/domain"
	"github.com/shaiso/storesync/internal/policy"
	"github.com/shaiso/storesync/internal/telemetry"
)

// DefaultTransientDelay — пауза перед решением по transient ошибке.
const DefaultTransientDelay = time.Second

// Executor выполняет workflow для магазина.
type Executor interface {
	Execute(ctx context.Context, storeID int64, retryCount int) domain.Outcome
}

// Dispatcher обрабатывает одно сообщение.
type Dispatcher struct {
	executor       Executor
	maxRetries     int
	transientDelay time.Duration
	metrics        *telemetry.Metrics
	logger         *slog.Logger
}

// Config — конфигурация Dispatcher.
type Config struct {
	Executor Executor

	// MaxRetries — граница переопубликаций (default: policy.DefaultMaxRetries).
	MaxRetries int

	// TransientDelay — пауза перед решением по transient ошибке; 0 — без паузы.
	TransientDelay time.Duration

	Metrics *telemetry.Metrics
	Logger  *slog.Logger
}

// New создаёт Dispatcher.
func New(cfg Config) *Dispatcher {
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = policy.DefaultMaxRetries
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = telemetry.NewLocalMetrics()
	}

	return &Dispatcher{
		executor:       cfg.Executor,
		maxRetries:     maxRetries,
		transientDelay: max(cfg.TransientDelay, 0),
		metrics:        metrics,
		logger:         logger,
	}
}

// Dispatch обрабатывает тело сообщения с текущим счётчиком повторов.
//
// Логгер берётся из ctx (telemetry.WithLogger), если он там есть.
func (d *Dispatcher) Dispatch(ctx context.Context, body []byte, retryCount int) domain.Decision {
	logger := telemetry.LoggerFrom(ctx, d.logger)

	ev, err := domain.DecodeEvent(body)
	if err != nil {
		reason := decodeReason(err)
		d.metrics.DecodeFailures.WithLabelValues(reason).Inc()
		logger.Warn("discarding undecodable message", "reason", reason, "error", err, "body_size", len(body))
		return d.record(domain.Decision{
			Disposition: domain.DispositionDiscard,
			Reason:      err.Error(),
		})
	}

	logger = telemetry.WithStoreID(logger, ev.StoreID)
	logger.Info("processing store connected event",
		"organization_id", ev.OrganizationID,
		"site_url", ev.SiteURL,
	)

	outcome := d.execute(ctx, logger, ev.StoreID, retryCount)
	decision := policy.Decide(outcome, retryCount, d.maxRetries)

	switch {
	case decision.Disposition == domain.DispositionRedeliver:
		logger.Warn("transient failure, scheduling redelivery",
			"outcome", outcome.String(),
			"detail", outcome.Detail,
			"next_retry_count", decision.RetryCount,
			"max_retries", d.maxRetries,
		)
		d.wait(ctx)

	case decision.Exhausted:
		d.metrics.RetriesExhausted.Inc()
		logger.Error("max retries exceeded, dropping message",
			"outcome", outcome.String(),
			"detail", outcome.Detail,
			"retry_count", retryCount,
			"max_retries", d.maxRetries,
		)
		d.wait(ctx)

	case decision.Disposition == domain.DispositionDiscard:
		logger.Error("fatal backend failure, discarding message",
			"outcome", outcome.String(),
			"detail", outcome.Detail,
		)

	default:
		logger.Info("store onboarding completed")
	}

	return d.record(decision)
}

// execute вызывает workflow; паника считается transient-ошибкой.
func (d *Dispatcher) execute(ctx context.Context, logger *slog.Logger, storeID int64, retryCount int) (outcome domain.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			d.metrics.WorkflowPanicsRecovered.Inc()
			logger.Error("workflow panic recovered", "panic", r)
			outcome = domain.Failed(domain.StepUnknown, domain.ClassTransient, fmt.Sprintf("panic: %v", r))
		}
	}()

	return d.executor.Execute(ctx, storeID, retryCount)
}

func (d *Dispatcher) wait(ctx context.Context) {
	if d.transientDelay <= 0 {
		return
	}
	t := time.NewTimer(d.transientDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (d *Dispatcher) record(decision domain.Decision) domain.Decision {
	d.metrics.MessagesTotal.WithLabelValues(string(decision.Disposition)).Inc()
	return decision
}

func decodeReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrMalformedInput):
		return "malformed"
	case errors.Is(err, domain.ErrMissingIdentifier):
		return "missing_store_id"
	default:
		return "unknown"
	}
}
