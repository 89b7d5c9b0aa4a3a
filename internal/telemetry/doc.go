// Package telemetry обеспечивает наблюдаемость воркера.
//
// Включает:
//   - logging.go — structured logging через slog
//   - metrics.go — Prometheus метрики
//   - tracing.go — OpenTelemetry трейсинг шагов workflow
//
// Метрики экспортируются на /metrics endpoint side-порта воркера.
package telemetry
