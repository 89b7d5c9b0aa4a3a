package worker

import "errors"

// Ошибки воркера.
var (
	// ErrReconnectsExhausted — исчерпаны попытки переподключения.
	ErrReconnectsExhausted = errors.New("broker reconnect attempts exhausted")

	// ErrSessionEnded — сессия завершилась без ошибки и без отмены.
	ErrSessionEnded = errors.New("broker session ended unexpectedly")
)
