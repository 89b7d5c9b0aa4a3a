// Package callback находит публичный URL для доставки webhook'ов.
//
// Поиск best-effort: отсутствие URL — нормальная ситуация,
// бэкенд тогда подставит собственный адрес.
package callback

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/maypok86/otter/v2"
	"github.com/tidwall/gjson"

	"github.com/shaiso/storesync/internal/telemetry"
)

const (
	// DefaultTunnelAPIURL — локальный API туннеля (ngrok).
	DefaultTunnelAPIURL = "http://127.0.0.1:4040/api/tunnels"

	defaultLookupTimeout = 2 * time.Second
	defaultCacheTTL      = 30 * time.Second

	cacheKey = "public_url"

	// maxTunnelResponse — ограничение на размер ответа API туннеля.
	maxTunnelResponse = 1 << 20
)

// Resolver возвращает URL для доставки webhook'ов, если он известен.
type Resolver interface {
	Resolve(ctx context.Context) (string, bool)
}

// Static — фиксированный URL из конфигурации.
type Static string

// Resolve возвращает заданный URL; пустая строка — URL нет.
func (s Static) Resolve(context.Context) (string, bool) {
	return string(s), s != ""
}

// None — поиск отключён.
type None struct{}

// Resolve всегда возвращает false.
func (None) Resolve(context.Context) (string, bool) {
	return "", false
}

// TunnelResolver спрашивает локальный API туннеля и берёт первый https URL.
//
// Найденный URL кэшируется на CacheTTL; отсутствие URL не кэшируется,
// чтобы поднятый позже туннель подхватился на следующем событии.
type TunnelResolver struct {
	apiURL  string
	timeout time.Duration
	client  *http.Client
	cache   *otter.Cache[string, string]
	metrics *telemetry.Metrics
	logger  *slog.Logger
}

// TunnelConfig — конфигурация TunnelResolver.
type TunnelConfig struct {
	// APIURL — адрес API туннеля (default: DefaultTunnelAPIURL).
	APIURL string

	// Timeout — таймаут запроса к API (default: 2s).
	Timeout time.Duration

	// CacheTTL — время жизни найденного URL (default: 30s).
	CacheTTL time.Duration

	Metrics *telemetry.Metrics
	Logger  *slog.Logger
}

// NewTunnelResolver создаёт TunnelResolver.
func NewTunnelResolver(cfg TunnelConfig) *TunnelResolver {
	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = DefaultTunnelAPIURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultLookupTimeout
	}

	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = telemetry.NewLocalMetrics()
	}

	return &TunnelResolver{
		apiURL:  apiURL,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
		cache: otter.Must(&otter.Options[string, string]{
			MaximumSize:      1,
			ExpiryCalculator: otter.ExpiryWriting[string, string](ttl),
		}),
		metrics: metrics,
		logger:  logger,
	}
}

// Resolve возвращает публичный https URL туннеля.
func (r *TunnelResolver) Resolve(ctx context.Context) (string, bool) {
	if u, ok := r.cache.GetIfPresent(cacheKey); ok {
		r.metrics.CallbackLookups.WithLabelValues("cached").Inc()
		return u, true
	}

	u, err := r.lookup(ctx)
	if err != nil {
		r.logger.Debug("tunnel lookup failed", "url", r.apiURL, "error", err)
	}
	if u == "" {
		r.metrics.CallbackLookups.WithLabelValues("unavailable").Inc()
		return "", false
	}

	r.cache.Set(cacheKey, u)
	r.metrics.CallbackLookups.WithLabelValues("resolved").Inc()
	r.logger.Info("resolved public callback url", "url", u)
	return u, true
}

// Invalidate сбрасывает кэш.
func (r *TunnelResolver) Invalidate() {
	r.cache.Invalidate(cacheKey)
}

func (r *TunnelResolver) lookup(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.apiURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTunnelResponse))
	if err != nil {
		return "", err
	}

	return firstSecureURL(body), nil
}

// firstSecureURL выбирает первый tunnels[].public_url со схемой https.
func firstSecureURL(body []byte) string {
	var found string
	gjson.GetBytes(body, "tunnels").ForEach(func(_, tunnel gjson.Result) bool {
		u := tunnel.Get("public_url").String()
		if strings.HasPrefix(u, "https://") {
			found = u
			return false
		}
		return true
	})
	return found
}
