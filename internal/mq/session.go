package mq

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/storesync/internal/telemetry"
)

// SessionConfig — параметры одного подключения к брокеру.
type SessionConfig struct {
	URL            string
	ConnectionName string
	Queue          string
	Prefetch       int
	PollInterval   time.Duration
	Handler        Handler
	Metrics        *telemetry.Metrics
	Logger         *slog.Logger
}

// Session — соединение, топология и consumer одного подключения.
type Session struct {
	conn     *Connection
	consumer *Consumer
}

// Open подключается к брокеру и объявляет топологию.
func Open(cfg SessionConfig) (*Session, error) {
	conn, err := Dial(cfg.URL, cfg.ConnectionName, cfg.Logger)
	if err != nil {
		return nil, err
	}

	if err := SetupTopology(conn.Channel(), cfg.Queue); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setup topology: %w", err)
	}

	consumer := NewConsumer(conn.Channel(), conn, ConsumerConfig{
		Queue:        cfg.Queue,
		Handler:      cfg.Handler,
		Prefetch:     cfg.Prefetch,
		PollInterval: cfg.PollInterval,
		Metrics:      cfg.Metrics,
		Logger:       cfg.Logger,
	})

	return &Session{conn: conn, consumer: consumer}, nil
}

// Run потребляет сообщения до отмены ctx или разрыва соединения.
func (s *Session) Run(ctx context.Context, onConsuming func()) error {
	return s.consumer.Run(ctx, onConsuming)
}

// Close закрывает соединение.
func (s *Session) Close() error {
	return s.conn.Close()
}
