package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// ConfirmPublisher — часть amqp.Channel для публикации с подтверждением.
type ConfirmPublisher interface {
	PublishWithDeferredConfirmWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) (*amqp.DeferredConfirmation, error)
}

// Publisher публикует сообщения в RabbitMQ и дожидается подтверждения брокера.
type Publisher struct {
	ch     ConfirmPublisher
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(ch ConfirmPublisher, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		ch:     ch,
		logger: logger,
	}
}

// Publish публикует сообщение и ждёт publisher confirm.
//
// Если канал не в режиме confirm, подтверждение не ожидается.
func (p *Publisher) Publish(ctx context.Context, exchange, routingKey string, msg amqp.Publishing) error {
	dc, err := p.ch.PublishWithDeferredConfirmWithContext(
		ctx,
		exchange,   // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		msg,
	)
	if err != nil {
		return fmt.Errorf("publish to %q/%s: %w", exchange, routingKey, err)
	}

	if dc != nil {
		acked, err := dc.WaitContext(ctx)
		if err != nil {
			return fmt.Errorf("wait confirm for %q/%s: %w", exchange, routingKey, err)
		}
		if !acked {
			return fmt.Errorf("%q/%s: %w", exchange, routingKey, ErrNotConfirmed)
		}
	}

	p.logger.Debug("published message",
		"exchange", exchange,
		"routing_key", routingKey,
		"message_id", msg.MessageId,
	)

	return nil
}

// Republish публикует копию доставки обратно в очередь queue через
// default exchange с новым счётчиком повторов.
//
// Тело, content type, message id и прочие заголовки сохраняются.
func (p *Publisher) Republish(ctx context.Context, d amqp.Delivery, queue string, retryCount int, lastFailure string) error {
	contentType := d.ContentType
	if contentType == "" {
		contentType = "application/json"
	}

	msg := amqp.Publishing{
		Headers:         WithRetryCount(d.Headers, retryCount, lastFailure),
		ContentType:     contentType,
		ContentEncoding: d.ContentEncoding,
		DeliveryMode:    amqp.Persistent,
		CorrelationId:   d.CorrelationId,
		MessageId:       d.MessageId,
		Timestamp:       time.Now(),
		Type:            d.Type,
		AppId:           d.AppId,
		Body:            d.Body,
	}

	return p.Publish(ctx, "", queue, msg)
}

// PublishEvent публикует JSON событие в ExchangeEvents.
// Возвращает message id.
func (p *Publisher) PublishEvent(ctx context.Context, routingKey RoutingKey, event any, headers amqp.Table) (string, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}

	id := uuid.NewString()
	msg := amqp.Publishing{
		Headers:      headers,
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // сообщение переживёт рестарт RabbitMQ
		MessageId:    id,
		Timestamp:    time.Now(),
		Body:         body,
	}

	if err := p.Publish(ctx, string(ExchangeEvents), string(routingKey), msg); err != nil {
		return "", err
	}

	return id, nil
}
