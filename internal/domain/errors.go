package domain

import "errors"

// Ошибки декодирования события.
var (
	// ErrMalformedInput — тело сообщения не является JSON-объектом.
	ErrMalformedInput = errors.New("malformed input")

	// ErrMissingIdentifier — в событии нет корректного store_id.
	ErrMissingIdentifier = errors.New("missing store identifier")
)
