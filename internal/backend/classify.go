package backend

import (
	"net/http"

	"github.com/shaiso/storesync/internal/domain"
)

// Classify сводит результат вызова бэкенда к классу.
//
// Таблица:
//   - err != nil (сеть, таймаут, отмена, лимитер) → transient
//   - 2xx → success
//   - 401, 403 → auth_denied
//   - 404 → not_found
//   - всё остальное → transient
//
// Любая ошибка транспорта — transient, даже если status уже известен.
func Classify(status int, err error) domain.Class {
	if err != nil {
		return domain.ClassTransient
	}

	switch {
	case status >= 200 && status < 300:
		return domain.ClassSuccess
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return domain.ClassAuthDenied
	case status == http.StatusNotFound:
		return domain.ClassNotFound
	default:
		return domain.ClassTransient
	}
}
