package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ReadyResponse — ответ /readyz воркера.
type ReadyResponse struct {
	Status          string `json:"status"`
	BrokerConnected bool   `json:"broker_connected"`
}

// Status — сводка состояния воркера.
type Status struct {
	URL             string `json:"url"`
	Alive           bool   `json:"alive"`
	Ready           bool   `json:"ready"`
	BrokerConnected bool   `json:"broker_connected"`
}

// Client — HTTP-клиент служебного сервера воркера.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт Client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Health проверяет /healthz.
func (c *Client) Health() error {
	resp, err := c.httpClient.Get(c.baseURL + "/healthz")
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthz: HTTP %d", resp.StatusCode)
	}
	return nil
}

// Ready запрашивает /readyz. 503 — не ошибка, а ответ "не готов".
func (c *Client) Ready() (*ReadyResponse, error) {
	resp, err := c.httpClient.Get(c.baseURL + "/readyz")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusServiceUnavailable {
		return nil, fmt.Errorf("readyz: HTTP %d", resp.StatusCode)
	}

	var ready ReadyResponse
	if err := json.Unmarshal(body, &ready); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &ready, nil
}

// Status собирает сводку: жив ли процесс и подключён ли к брокеру.
func (c *Client) Status() Status {
	s := Status{URL: c.baseURL}
	if err := c.Health(); err != nil {
		return s
	}
	s.Alive = true

	ready, err := c.Ready()
	if err != nil {
		return s
	}
	s.Ready = ready.Status == "ready"
	s.BrokerConnected = ready.BrokerConnected
	return s
}
