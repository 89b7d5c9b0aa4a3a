// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — одно соединение и канал в режиме publisher confirms
//   - topology.go   — объявление exchange, очереди и binding
//   - headers.go    — счётчик повторов в заголовках сообщения
//   - publisher.go  — публикация событий и переопубликация с подтверждением
//   - consumer.go   — цикл приёма и применение решений (ack/reject/redeliver)
//   - session.go    — соединение + топология + consumer для одного подключения
//
// Переподключение выполняет вызывающая сторона (пакет worker): Session
// живёт ровно одно подключение и возвращает ошибку при его потере.
//
// Топология:
//
//	inventify.events (topic)
//	└── worker.woo.category_sync [routing: woo.store.connected]
package mq
