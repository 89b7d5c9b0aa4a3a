package mq

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const defaultHeartbeat = 10 * time.Second

// Connection — AMQP соединение с одним каналом в режиме publisher confirms.
//
// Connection не переподключается сам: после разрыва его нужно закрыть
// и открыть новый через Dial.
type Connection struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *slog.Logger
}

// Dial подключается к брокеру и открывает канал.
// name — имя клиента, видимое в management UI.
func Dial(url, name string, logger *slog.Logger) (*Connection, error) {
	if logger == nil {
		logger = slog.Default()
	}

	props := amqp.NewConnectionProperties()
	props.SetClientConnectionName(name)

	conn, err := amqp.DialConfig(url, amqp.Config{
		Heartbeat:  defaultHeartbeat,
		Properties: props,
	})
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("enable publisher confirms: %w", err)
	}

	logger.Info("connected to RabbitMQ", "connection_name", name)

	return &Connection{
		conn:    conn,
		channel: ch,
		logger:  logger,
	}, nil
}

// Channel возвращает AMQP канал.
func (c *Connection) Channel() *amqp.Channel {
	return c.channel
}

// IsClosed проверяет, закрыто ли соединение или канал.
func (c *Connection) IsClosed() bool {
	return c.conn.IsClosed() || c.channel.IsClosed()
}

// NotifyClose возвращает канал, в который придёт ошибка при разрыве соединения.
func (c *Connection) NotifyClose() <-chan *amqp.Error {
	return c.conn.NotifyClose(make(chan *amqp.Error, 1))
}

// Close закрывает канал и соединение.
func (c *Connection) Close() error {
	var errs []error

	if !c.channel.IsClosed() {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close channel: %w", err))
		}
	}

	if !c.conn.IsClosed() {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close connection: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}

	c.logger.Info("connection closed")
	return nil
}
