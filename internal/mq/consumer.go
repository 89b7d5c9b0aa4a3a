package mq

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/storesync/internal/domain"
	"github.com/shaiso/storesync/internal/telemetry"
)

const defaultPollInterval = time.Second

// Handler решает судьбу тела сообщения.
type Handler interface {
	Dispatch(ctx context.Context, body []byte, retryCount int) domain.Decision
}

// ConsumeChannel — часть amqp.Channel, нужная consumer'у.
type ConsumeChannel interface {
	ConfirmPublisher
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Cancel(consumer string, noWait bool) error
}

// Transport сообщает о состоянии соединения.
type Transport interface {
	IsClosed() bool
	NotifyClose() <-chan *amqp.Error
}

// Consumer потребляет сообщения из очереди и применяет решения Handler'а.
type Consumer struct {
	ch           ConsumeChannel
	conn         Transport
	publisher    *Publisher
	handler      Handler
	queue        string
	tag          string
	prefetch     int
	pollInterval time.Duration
	metrics      *telemetry.Metrics
	logger       *slog.Logger
}

// ConsumerConfig — конфигурация consumer.
type ConsumerConfig struct {
	// Queue — имя очереди.
	Queue string

	// Handler — обработчик сообщений.
	Handler Handler

	// Prefetch — сколько неподтверждённых сообщений держит consumer (default: 1).
	Prefetch int

	// PollInterval — как часто проверять соединение и отмену (default: 1s).
	PollInterval time.Duration

	Metrics *telemetry.Metrics
	Logger  *slog.Logger
}

// NewConsumer создаёт Consumer поверх канала ch.
func NewConsumer(ch ConsumeChannel, conn Transport, cfg ConsumerConfig) *Consumer {
	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 1
	}

	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = telemetry.NewLocalMetrics()
	}

	return &Consumer{
		ch:           ch,
		conn:         conn,
		publisher:    NewPublisher(ch, logger),
		handler:      cfg.Handler,
		queue:        cfg.Queue,
		tag:          "storesync-" + uuid.NewString(),
		prefetch:     prefetch,
		pollInterval: pollInterval,
		metrics:      metrics,
		logger:       logger.With("queue", cfg.Queue),
	}
}

// Run настраивает prefetch, начинает потребление и обрабатывает сообщения
// до отмены ctx (возвращает nil) или потери соединения (возвращает ошибку).
//
// onConsuming вызывается, когда consumer зарегистрирован у брокера.
func (c *Consumer) Run(ctx context.Context, onConsuming func()) error {
	if err := c.ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := c.ch.Consume(
		c.queue, // queue
		c.tag,   // consumer tag
		false,   // auto-ack (мы ack вручную)
		false,   // exclusive
		false,   // no-local
		false,   // no-wait
		nil,     // args
	)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	c.logger.Info("consumer started", "consumer_tag", c.tag, "prefetch", c.prefetch)
	if onConsuming != nil {
		onConsuming()
	}

	closed := c.conn.NotifyClose()

	// Тикер ловит закрытие канала, о котором NotifyClose соединения не сообщает
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.stop()
			return nil

		case amqpErr, ok := <-closed:
			if ok && amqpErr != nil {
				return fmt.Errorf("%w: %v", ErrConnectionClosed, amqpErr)
			}
			return ErrConnectionClosed

		case <-ticker.C:
			if c.conn.IsClosed() {
				return ErrConnectionClosed
			}

		case d, ok := <-deliveries:
			if !ok {
				return ErrDeliveriesClosed
			}

			if err := c.handle(ctx, d); err != nil {
				return err
			}

			if ctx.Err() != nil {
				c.stop()
				return nil
			}
		}
	}
}

// handle обрабатывает одно сообщение до применённого решения.
// Отмена ctx не прерывает обработку.
func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) error {
	start := time.Now()
	retryCount := RetryCount(d.Headers)

	logger := telemetry.WithDelivery(c.logger, d.DeliveryTag, d.MessageId, retryCount)
	logger.Debug("received message", "redelivered", d.Redelivered, "body_size", len(d.Body))

	procCtx := telemetry.WithLogger(context.WithoutCancel(ctx), logger)
	decision := c.handler.Dispatch(procCtx, d.Body, retryCount)

	err := c.apply(procCtx, d, decision)
	c.metrics.MessageDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		logger.Error("failed to apply disposition", "disposition", decision.Disposition, "error", err)
		return err
	}

	logger.Debug("disposition applied", "disposition", decision.Disposition, "reason", decision.Reason)
	return nil
}

// apply применяет решение к доставке.
//
// redeliver: копия публикуется с новым счётчиком, оригинал подтверждается
// только после confirm. Если публикация не удалась, оригинал остаётся
// неподтверждённым и вернётся от брокера после разрыва сессии.
func (c *Consumer) apply(ctx context.Context, d amqp.Delivery, decision domain.Decision) error {
	switch decision.Disposition {
	case domain.DispositionAck:
		if err := d.Ack(false); err != nil {
			return fmt.Errorf("%w: ack: %w", ErrAck, err)
		}

	case domain.DispositionDiscard:
		if err := d.Reject(false); err != nil {
			return fmt.Errorf("%w: reject: %w", ErrAck, err)
		}

	case domain.DispositionRedeliver:
		if err := c.publisher.Republish(ctx, d, c.queue, decision.RetryCount, decision.Reason); err != nil {
			return fmt.Errorf("%w: %w", ErrRepublish, err)
		}
		c.metrics.Redeliveries.Inc()
		if err := d.Ack(false); err != nil {
			return fmt.Errorf("%w: ack after republish: %w", ErrAck, err)
		}

	default:
		return fmt.Errorf("%w: unknown disposition %q", ErrAck, decision.Disposition)
	}

	return nil
}

// stop отменяет подписку; ошибки только логируются.
func (c *Consumer) stop() {
	if err := c.ch.Cancel(c.tag, false); err != nil {
		c.logger.Warn("failed to cancel consumer", "consumer_tag", c.tag, "error", err)
		return
	}
	c.logger.Info("consumer cancelled", "consumer_tag", c.tag)
}
