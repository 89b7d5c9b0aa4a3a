// Package workflow выполняет онбординг магазина: синхронизация
// категорий, затем регистрация webhook'ов.
//
// Executor не принимает решений о повторах — он только сводит
// результаты шагов в один domain.Outcome.
package workflow

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/shaiso/storesync/internal/backend"
	"github.com/shaiso/storesync/internal/callback"
	"github.com/shaiso/storesync/internal/domain"
	"github.com/shaiso/storesync/internal/telemetry"
)

// DefaultTopics — темы webhook'ов по умолчанию.
var DefaultTopics = []string{"order.created", "order.updated"}

// Backend — операции бэкенда, нужные workflow.
type Backend interface {
	SyncCategories(ctx context.Context, storeID int64) backend.Result
	RegisterWebhooks(ctx context.Context, storeID int64, reg backend.WebhookRegistration) backend.Result
}

// Executor выполняет два шага онбординга.
type Executor struct {
	backend  Backend
	resolver callback.Resolver
	topics   []string
	tracer   trace.Tracer
	logger   *slog.Logger
}

// Config — конфигурация Executor.
type Config struct {
	Backend Backend

	// Resolver — поиск URL доставки; nil — не искать.
	Resolver callback.Resolver

	// Topics — темы webhook'ов (default: DefaultTopics).
	Topics []string

	Logger *slog.Logger
}

// New создаёт Executor.
func New(cfg Config) *Executor {
	resolver := cfg.Resolver
	if resolver == nil {
		resolver = callback.None{}
	}

	topics := cfg.Topics
	if len(topics) == 0 {
		topics = DefaultTopics
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Executor{
		backend:  cfg.Backend,
		resolver: resolver,
		topics:   topics,
		tracer:   telemetry.Tracer("storesync/workflow"),
		logger:   logger,
	}
}

// Execute выполняет онбординг магазина storeID.
//
// RegisterWebhooks вызывается только после успешного SyncCategories.
// Результат — Completed или первый упавший шаг.
func (e *Executor) Execute(ctx context.Context, storeID int64, retryCount int) domain.Outcome {
	logger := telemetry.WithStoreID(e.logger, storeID)

	res := e.step(ctx, domain.StepSyncCategories, storeID, retryCount, func(ctx context.Context) backend.Result {
		return e.backend.SyncCategories(ctx, storeID)
	})
	if res.Class != domain.ClassSuccess {
		logger.Warn("category sync failed", "class", res.Class, "status", res.Status, "detail", res.Detail())
		return domain.Failed(domain.StepSyncCategories, res.Class, res.Detail())
	}
	logger.Info("categories synced", "status", res.Status)

	reg := backend.WebhookRegistration{Topics: e.topics}
	if u, ok := e.resolver.Resolve(ctx); ok {
		reg.DeliveryURL = u
	} else {
		logger.Info("no public callback url, backend default will be used")
	}

	res = e.step(ctx, domain.StepRegisterWebhooks, storeID, retryCount, func(ctx context.Context) backend.Result {
		return e.backend.RegisterWebhooks(ctx, storeID, reg)
	})
	if res.Class != domain.ClassSuccess {
		logger.Warn("webhook registration failed", "class", res.Class, "status", res.Status, "detail", res.Detail())
		return domain.Failed(domain.StepRegisterWebhooks, res.Class, res.Detail())
	}
	logger.Info("webhooks registered", "status", res.Status, "delivery_url", reg.DeliveryURL, "topics", e.topics)

	return domain.Completed()
}

// step оборачивает вызов бэкенда в span.
func (e *Executor) step(ctx context.Context, step domain.Step, storeID int64, retryCount int, call func(context.Context) backend.Result) backend.Result {
	ctx, span := e.tracer.Start(ctx, "workflow."+string(step),
		trace.WithAttributes(
			attribute.Int64("store.id", storeID),
			attribute.Int("retry.count", retryCount),
		),
	)
	defer span.End()

	res := call(ctx)

	span.SetAttributes(
		attribute.String("outcome.class", string(res.Class)),
		attribute.Int("http.status_code", res.Status),
	)
	if res.Class != domain.ClassSuccess {
		span.SetStatus(codes.Error, res.Detail())
	}

	return res
}
