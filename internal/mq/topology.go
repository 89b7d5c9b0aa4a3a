package mq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

const (
	// ExchangeEvents — доменные события Inventify.
	ExchangeEvents Exchange = "inventify.events"

	// RoutingKeyStoreConnected — событие подключения магазина.
	RoutingKeyStoreConnected RoutingKey = "woo.store.connected"

	// DefaultQueue — очередь воркера по умолчанию.
	DefaultQueue = "worker.woo.category_sync"
)

// Declarer — часть amqp.Channel, нужная для объявления топологии.
type Declarer interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
}

// SetupTopology объявляет exchange, очередь и binding.
// Идемпотентна, вызывается при каждом подключении.
func SetupTopology(ch Declarer, queue string) error {
	err := ch.ExchangeDeclare(
		string(ExchangeEvents), // name
		amqp.ExchangeTopic,     // type
		true,                   // durable
		false,                  // auto-deleted
		false,                  // internal
		false,                  // no-wait
		nil,                    // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange %s: %w", ExchangeEvents, err)
	}

	_, err = ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", queue, err)
	}

	err = ch.QueueBind(
		queue,                            // queue name
		string(RoutingKeyStoreConnected), // routing key
		string(ExchangeEvents),           // exchange
		false,                            // no-wait
		nil,                              // arguments
	)
	if err != nil {
		return fmt.Errorf("bind queue %s to %s: %w", queue, ExchangeEvents, err)
	}

	return nil
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo(queue string) string {
	return fmt.Sprintf(`
  StoreSync RabbitMQ Topology:

    %s (topic, durable)
    └── %s (durable) [routing: %s]
            Consumer: storesync-worker
            Redelivery: default exchange, routing key = queue, header %s
`, ExchangeEvents, queue, RoutingKeyStoreConnected, HeaderRetryCount)
}
