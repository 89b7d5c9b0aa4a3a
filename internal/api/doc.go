// Package api содержит служебный HTTP сервер воркера.
//
// Структура:
//   - handler.go    — Handler с зависимостями (проверка готовности, реестр метрик, logger)
//   - routes.go     — chi router и регистрация маршрутов
//   - middleware.go — middleware (logging, recovery)
//   - response.go   — JSON-ответы
//
// Маршруты:
//   - GET /healthz — процесс жив
//   - GET /readyz  — воркер подключён к брокеру (200) или нет (503)
//   - GET /metrics — Prometheus exposition
package api
