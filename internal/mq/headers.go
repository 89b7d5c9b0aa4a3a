package mq

import (
	"maps"
	"strconv"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// HeaderRetryCount — сколько раз сообщение уже переопубликовано.
	HeaderRetryCount = "x-retry-count"

	// HeaderLastFailure — "<step>:<class>" последней неудачи.
	HeaderLastFailure = "x-last-failure"
)

// RetryCount читает счётчик повторов из заголовков.
// Отсутствующее, некорректное или отрицательное значение — 0.
func RetryCount(headers amqp.Table) int {
	var n int64

	switch v := headers[HeaderRetryCount].(type) {
	case int:
		n = int64(v)
	case int8:
		n = int64(v)
	case int16:
		n = int64(v)
	case int32:
		n = int64(v)
	case int64:
		n = v
	case uint8:
		n = int64(v)
	case uint16:
		n = int64(v)
	case uint32:
		n = int64(v)
	case string:
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0
		}
		n = parsed
	default:
		return 0
	}

	return int(max(n, 0))
}

// WithRetryCount возвращает копию заголовков с новым счётчиком.
// Исходная таблица не изменяется.
func WithRetryCount(headers amqp.Table, retryCount int, lastFailure string) amqp.Table {
	out := make(amqp.Table, len(headers)+2)
	maps.Copy(out, headers)

	out[HeaderRetryCount] = int64(retryCount)
	if lastFailure != "" {
		out[HeaderLastFailure] = lastFailure
	}

	return out
}
