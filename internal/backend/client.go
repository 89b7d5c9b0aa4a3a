// Package backend — клиент внутреннего API Inventify.
//
// Клиент знает две операции онбординга магазина и возвращает
// классифицированный Result. Классификация сосредоточена в Classify.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/dnscache"
	"golang.org/x/time/rate"

	"github.com/shaiso/storesync/internal/domain"
	"github.com/shaiso/storesync/internal/telemetry"
)

const (
	defaultTimeout = 30 * time.Second

	// maxBodyLog — сколько байт ответа читаем для логов.
	maxBodyLog = 4096

	// maxDrain — сколько байт дочитываем после maxBodyLog ради keep-alive.
	maxDrain = 64 << 10
)

// WebhookRegistration — тело запроса register_webhooks.
type WebhookRegistration struct {
	DeliveryURL string   `json:"delivery_url,omitempty"`
	Topics      []string `json:"topics,omitempty"`
}

// Result — результат одного вызова бэкенда.
type Result struct {
	// Status — HTTP-код; 0, если ответ не получен.
	Status int

	// Class — классификация результата.
	Class domain.Class

	// Body — начало тела ответа (для логов).
	Body string

	// Err — ошибка транспорта.
	Err error
}

// Detail — короткое описание результата для логов и Outcome.
func (r Result) Detail() string {
	if r.Err != nil {
		return r.Err.Error()
	}
	if r.Body == "" {
		return fmt.Sprintf("HTTP %d", r.Status)
	}
	return fmt.Sprintf("HTTP %d: %s", r.Status, r.Body)
}

// Client вызывает внутренние эндпоинты бэкенда.
type Client struct {
	baseURL string
	token   string
	timeout time.Duration
	http    *http.Client
	limiter *rate.Limiter
	metrics *telemetry.Metrics
	logger  *slog.Logger
}

// Config — конфигурация Client.
type Config struct {
	// BaseURL — адрес бэкенда, например http://localhost:8080.
	BaseURL string

	// ServiceToken — сервисный токен для внутренних эндпоинтов.
	ServiceToken string

	// Timeout — таймаут одного запроса (default: 30s).
	Timeout time.Duration

	// RPS — ограничение запросов в секунду; 0 — без ограничения.
	RPS float64

	// Resolver — кэширующий DNS resolver (опционально).
	Resolver *dnscache.Resolver

	// HTTPClient — готовый клиент (опционально, для тестов).
	HTTPClient *http.Client

	Metrics *telemetry.Metrics
	Logger  *slog.Logger
}

// New создаёт Client.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = telemetry.NewLocalMetrics()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: NewTransport(cfg.Resolver),
			Timeout:   timeout,
		}
	}

	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.ServiceToken,
		timeout: timeout,
		http:    httpClient,
		limiter: rate.NewLimiter(limit, 1),
		metrics: metrics,
		logger:  logger,
	}
}

// NewTransport возвращает http.Transport с пулом соединений
// и кэшированием DNS, если resolver задан.
func NewTransport(resolver *dnscache.Resolver) *http.Transport {
	t := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	if resolver != nil {
		t.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			host, port, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, err
			}
			ips, err := resolver.LookupHost(ctx, host)
			if err != nil {
				return nil, err
			}
			var d net.Dialer
			return d.DialContext(ctx, network, net.JoinHostPort(ips[0], port))
		}
	}
	return t
}

// SyncCategories вызывает POST /internal/woo/stores/{id}/sync_categories.
func (c *Client) SyncCategories(ctx context.Context, storeID int64) Result {
	path := fmt.Sprintf("/internal/woo/stores/%d/sync_categories", storeID)
	return c.post(ctx, domain.StepSyncCategories, path, nil)
}

// RegisterWebhooks вызывает POST /internal/woo/stores/{id}/register_webhooks.
// Пустой DeliveryURL не передаётся — бэкенд подставит свой.
func (c *Client) RegisterWebhooks(ctx context.Context, storeID int64, reg WebhookRegistration) Result {
	path := fmt.Sprintf("/internal/woo/stores/%d/register_webhooks", storeID)
	return c.post(ctx, domain.StepRegisterWebhooks, path, reg)
}

// post выполняет запрос и классифицирует результат.
func (c *Client) post(ctx context.Context, op domain.Step, path string, body any) Result {
	start := time.Now()
	res := c.do(ctx, path, body)
	res.Class = Classify(res.Status, res.Err)

	c.metrics.BackendRequests.WithLabelValues(string(op), string(res.Class)).Inc()
	c.metrics.BackendDuration.WithLabelValues(string(op)).Observe(time.Since(start).Seconds())

	c.logger.Debug("backend call",
		"operation", op,
		"path", path,
		"status", res.Status,
		"class", res.Class,
		"duration", time.Since(start),
	)

	return res
}

func (c *Client) do(ctx context.Context, path string, body any) Result {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return Result{Err: fmt.Errorf("%w: %v", ErrThrottled, err)}
	}

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return Result{Err: fmt.Errorf("%w: marshal body: %v", ErrRequest, err)}
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bodyReader)
	if err != nil {
		return Result{Err: fmt.Errorf("%w: create request: %v", ErrRequest, err)}
	}

	// Бэкенд принимает любой из двух заголовков
	req.Header.Set("Service-Token", c.token)
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{Err: fmt.Errorf("%w: %v", ErrRequest, err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyLog))
	if err != nil {
		c.logger.Debug("failed to read response body", "path", path, "status", resp.StatusCode, "error", err)
	}
	// Дочитываем остаток, чтобы соединение вернулось в пул; большие тела бросаем
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrain))

	return Result{
		Status: resp.StatusCode,
		Body:   strings.TrimSpace(string(data)),
	}
}
