package mq

import "errors"

// Ошибки брокера.
var (
	// ErrConnectionClosed — соединение с брокером закрыто.
	ErrConnectionClosed = errors.New("broker connection closed")

	// ErrDeliveriesClosed — брокер закрыл канал доставки.
	ErrDeliveriesClosed = errors.New("deliveries channel closed")

	// ErrNotConfirmed — брокер не подтвердил публикацию (nack).
	ErrNotConfirmed = errors.New("publish not confirmed by broker")

	// ErrRepublish — не удалось переопубликовать сообщение.
	ErrRepublish = errors.New("republish failed")

	// ErrAck — не удалось применить решение к доставке.
	ErrAck = errors.New("acknowledge failed")
)
