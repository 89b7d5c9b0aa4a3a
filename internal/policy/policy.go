// Package policy решает судьбу сообщения по результату workflow.
//
// Decide — чистая функция без побочных эффектов. Задержка перед
// повтором и применение решения к брокеру выполняются вызывающей стороной.
package policy

import (
	"fmt"

	"github.com/shaiso/storesync/internal/domain"
)

// DefaultMaxRetries — сколько раз сообщение переопубликуется при transient-ошибках.
const DefaultMaxRetries = 5

// Decide возвращает решение по сообщению.
//
//   - Completed → ack
//   - auth_denied / not_found → discard (независимо от retryCount)
//   - transient, retryCount < maxRetries → redeliver с retryCount+1
//   - transient, retryCount >= maxRetries → ack с Exhausted=true
func Decide(outcome domain.Outcome, retryCount, maxRetries int) domain.Decision {
	retryCount = max(retryCount, 0)
	maxRetries = max(maxRetries, 0)

	if outcome.IsCompleted() {
		return domain.Decision{
			Disposition: domain.DispositionAck,
			Reason:      outcome.String(),
		}
	}

	if outcome.Class.IsFatal() {
		return domain.Decision{
			Disposition: domain.DispositionDiscard,
			Reason:      outcome.String(),
		}
	}

	// Всё остальное, включая неизвестные классы, считается transient
	if retryCount < maxRetries {
		return domain.Decision{
			Disposition: domain.DispositionRedeliver,
			RetryCount:  retryCount + 1,
			Reason:      outcome.String(),
		}
	}

	return domain.Decision{
		Disposition: domain.DispositionAck,
		Exhausted:   true,
		Reason:      fmt.Sprintf("%s: max retries exceeded (%d)", outcome, maxRetries),
	}
}
