package api

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
)

// ReadinessChecker сообщает, готов ли воркер обрабатывать сообщения.
type ReadinessChecker interface {
	Connected() bool
}

// Handler — служебные обработчики с зависимостями.
type Handler struct {
	readiness ReadinessChecker
	gatherer  prometheus.Gatherer
	logger    *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Readiness ReadinessChecker

	// Gatherer — реестр метрик (default: prometheus.DefaultGatherer).
	Gatherer prometheus.Gatherer

	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		readiness: cfg.Readiness,
		gatherer:  gatherer,
		logger:    logger,
	}
}

// ReadyResponse — тело ответа /readyz.
type ReadyResponse struct {
	Status          string `json:"status"`
	BrokerConnected bool   `json:"broker_connected"`
}

// Healthz — процесс жив.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// Readyz — 200, если воркер потребляет сообщения; иначе 503.
func (h *Handler) Readyz(w http.ResponseWriter, _ *http.Request) {
	if h.readiness == nil || !h.readiness.Connected() {
		JSON(w, http.StatusServiceUnavailable, ReadyResponse{Status: "not_ready"})
		return
	}
	JSON(w, http.StatusOK, ReadyResponse{Status: "ready", BrokerConnected: true})
}
