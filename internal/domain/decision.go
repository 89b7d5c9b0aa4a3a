package domain

// Disposition — что сделать с сообщением после обработки.
type Disposition string

const (
	// DispositionAck — подтвердить и удалить из очереди.
	DispositionAck Disposition = "ack"

	// DispositionDiscard — отклонить без возврата в очередь (poison/fatal).
	DispositionDiscard Disposition = "discard"

	// DispositionRedeliver — переопубликовать с увеличенным счётчиком и подтвердить оригинал.
	DispositionRedeliver Disposition = "redeliver"
)

// Decision — итоговое решение по сообщению.
type Decision struct {
	Disposition Disposition

	// RetryCount — счётчик для переопубликованного сообщения (только для redeliver).
	RetryCount int

	// Exhausted — retry исчерпаны, сообщение подтверждается и выбрасывается.
	Exhausted bool

	// Reason — краткое описание причины для логов и заголовков.
	Reason string
}
