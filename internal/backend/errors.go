package backend

import "errors"

// Ошибки клиента бэкенда.
var (
	// ErrRequest — запрос не удалось отправить или получить ответ.
	ErrRequest = errors.New("backend request failed")

	// ErrThrottled — не дождались слота rate limiter'а.
	ErrThrottled = errors.New("backend request throttled")
)
