package mq

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/storesync/internal/domain"
	"github.com/shaiso/storesync/internal/telemetry"
)

// fakeAcknowledger записывает, что сделали с доставкой.
type fakeAcknowledger struct {
	mu      sync.Mutex
	acks    []uint64
	rejects []uint64
	nacks   []uint64
}

func (f *fakeAcknowledger) Ack(tag uint64, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acks = append(f.acks, tag)
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, _ bool, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nacks = append(f.nacks, tag)
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejects = append(f.rejects, tag)
	return nil
}

func (f *fakeAcknowledger) snapshot() (acks, rejects, nacks int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.acks), len(f.rejects), len(f.nacks)
}

type published struct {
	exchange, key string
	msg           amqp.Publishing
}

// fakeChannel — канал брокера в памяти.
type fakeChannel struct {
	deliveries chan amqp.Delivery
	publishErr error

	mu        sync.Mutex
	published []published
	qos       int
	cancelled []string
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{deliveries: make(chan amqp.Delivery, 10)}
}

func (f *fakeChannel) PublishWithDeferredConfirmWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) (*amqp.DeferredConfirmation, error) {
	if f.publishErr != nil {
		return nil, f.publishErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, published{exchange, key, msg})
	return nil, nil
}

func (f *fakeChannel) Qos(prefetchCount, _ int, _ bool) error {
	f.qos = prefetchCount
	return nil
}

func (f *fakeChannel) Consume(_, _ string, _, _, _, _ bool, _ amqp.Table) (<-chan amqp.Delivery, error) {
	return f.deliveries, nil
}

func (f *fakeChannel) Cancel(consumer string, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, consumer)
	return nil
}

func (f *fakeChannel) publishedMessages() []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]published(nil), f.published...)
}

type fakeConn struct {
	closed atomic.Bool
	notify chan *amqp.Error
}

func (f *fakeConn) IsClosed() bool { return f.closed.Load() }

func (f *fakeConn) NotifyClose() <-chan *amqp.Error { return f.notify }

// decisionHandler возвращает заранее заданное решение и запоминает вызовы.
type decisionHandler struct {
	decision domain.Decision
	onCall   func()

	mu      sync.Mutex
	retries []int
}

func (h *decisionHandler) Dispatch(_ context.Context, _ []byte, retryCount int) domain.Decision {
	h.mu.Lock()
	h.retries = append(h.retries, retryCount)
	h.mu.Unlock()
	if h.onCall != nil {
		h.onCall()
	}
	return h.decision
}

func newTestConsumer(ch *fakeChannel, conn *fakeConn, h Handler) (*Consumer, *telemetry.Metrics) {
	metrics := telemetry.NewLocalMetrics()
	return NewConsumer(ch, conn, ConsumerConfig{
		Queue:        DefaultQueue,
		Handler:      h,
		PollInterval: 10 * time.Millisecond,
		Metrics:      metrics,
		Logger:       telemetry.NewLogger(&bytes.Buffer{}, "debug", "json"),
	}), metrics
}

func delivery(ack amqp.Acknowledger, tag uint64, headers amqp.Table) amqp.Delivery {
	return amqp.Delivery{
		Acknowledger: ack,
		DeliveryTag:  tag,
		Headers:      headers,
		ContentType:  "application/json",
		MessageId:    "msg-1",
		Body:         []byte(`{"store_id": 55}`),
	}
}

// runUntil запускает consumer и ждёт условия, затем отменяет ctx.
func runUntil(t *testing.T, c *Consumer, cond func() bool) error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, nil) }()

	deadline := time.After(2 * time.Second)
	for !cond() {
		select {
		case <-deadline:
			cancel()
			t.Fatal("condition not met in time")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	return <-done
}

func TestConsumer_Ack(t *testing.T) {
	ch := newFakeChannel()
	ack := &fakeAcknowledger{}
	c, _ := newTestConsumer(ch, &fakeConn{}, &decisionHandler{decision: domain.Decision{Disposition: domain.DispositionAck}})

	ch.deliveries <- delivery(ack, 1, nil)

	err := runUntil(t, c, func() bool { a, _, _ := ack.snapshot(); return a == 1 })
	if err != nil {
		t.Fatalf("expected nil on cancel, got %v", err)
	}
	if ch.qos != 1 {
		t.Errorf("expected prefetch 1, got %d", ch.qos)
	}
	if len(ch.cancelled) != 1 {
		t.Errorf("expected consumer cancel on shutdown, got %v", ch.cancelled)
	}
}

func TestConsumer_Discard(t *testing.T) {
	ch := newFakeChannel()
	ack := &fakeAcknowledger{}
	c, _ := newTestConsumer(ch, &fakeConn{}, &decisionHandler{decision: domain.Decision{Disposition: domain.DispositionDiscard}})

	ch.deliveries <- delivery(ack, 7, nil)

	runUntil(t, c, func() bool { _, r, _ := ack.snapshot(); return r == 1 })

	if a, _, n := ack.snapshot(); a != 0 || n != 0 {
		t.Errorf("discard should only reject, got acks=%d nacks=%d", a, n)
	}
	if len(ch.publishedMessages()) != 0 {
		t.Error("discard must not republish")
	}
}

func TestConsumer_Redeliver(t *testing.T) {
	ch := newFakeChannel()
	ack := &fakeAcknowledger{}
	h := &decisionHandler{decision: domain.Decision{
		Disposition: domain.DispositionRedeliver,
		RetryCount:  3,
		Reason:      "sync_categories:transient",
	}}
	c, metrics := newTestConsumer(ch, &fakeConn{}, h)

	ch.deliveries <- delivery(ack, 2, amqp.Table{HeaderRetryCount: int32(2), "x-trace": "t1"})

	runUntil(t, c, func() bool { a, _, _ := ack.snapshot(); return a == 1 })

	if h.retries[0] != 2 {
		t.Errorf("handler should see retry count 2, got %d", h.retries[0])
	}

	pub := ch.publishedMessages()
	if len(pub) != 1 {
		t.Fatalf("expected 1 republish, got %d", len(pub))
	}
	p := pub[0]
	if p.exchange != "" || p.key != DefaultQueue {
		t.Errorf("expected default exchange and queue key, got %q/%q", p.exchange, p.key)
	}
	if RetryCount(p.msg.Headers) != 3 {
		t.Errorf("expected retry header 3, got %v", p.msg.Headers[HeaderRetryCount])
	}
	if p.msg.Headers[HeaderLastFailure] != "sync_categories:transient" {
		t.Errorf("unexpected last failure %v", p.msg.Headers[HeaderLastFailure])
	}
	if p.msg.Headers["x-trace"] != "t1" {
		t.Error("other headers should be carried over")
	}
	if string(p.msg.Body) != `{"store_id": 55}` || p.msg.MessageId != "msg-1" {
		t.Errorf("body and message id should be preserved, got %s %s", p.msg.Body, p.msg.MessageId)
	}
	if p.msg.DeliveryMode != amqp.Persistent {
		t.Error("republished message should be persistent")
	}
	if _, _, n := ack.snapshot(); n != 0 {
		t.Error("worker must never nack with requeue")
	}
	if testutil.ToFloat64(metrics.Redeliveries) != 1 {
		t.Error("expected redelivery counted")
	}
}

func TestConsumer_RepublishFailureLeavesUnacked(t *testing.T) {
	ch := newFakeChannel()
	ch.publishErr = errors.New("channel closed")
	ack := &fakeAcknowledger{}
	c, _ := newTestConsumer(ch, &fakeConn{}, &decisionHandler{decision: domain.Decision{
		Disposition: domain.DispositionRedeliver,
		RetryCount:  1,
	}})

	ch.deliveries <- delivery(ack, 3, nil)

	err := c.Run(context.Background(), nil)
	if !errors.Is(err, ErrRepublish) {
		t.Fatalf("expected ErrRepublish, got %v", err)
	}
	if a, r, n := ack.snapshot(); a+r+n != 0 {
		t.Errorf("original must stay unacknowledged, got acks=%d rejects=%d nacks=%d", a, r, n)
	}
}

func TestConsumer_ConnectionClosed(t *testing.T) {
	ch := newFakeChannel()
	conn := &fakeConn{}
	conn.closed.Store(true)
	c, _ := newTestConsumer(ch, conn, &decisionHandler{})

	var consuming bool
	err := c.Run(context.Background(), func() { consuming = true })

	if !errors.Is(err, ErrConnectionClosed) {
		t.Fatalf("expected ErrConnectionClosed, got %v", err)
	}
	if !consuming {
		t.Error("onConsuming should be called after consume started")
	}
}

func TestConsumer_CloseNotification(t *testing.T) {
	ch := newFakeChannel()
	conn := &fakeConn{notify: make(chan *amqp.Error, 1)}
	c := NewConsumer(ch, conn, ConsumerConfig{
		Queue:        DefaultQueue,
		Handler:      &decisionHandler{},
		PollInterval: time.Hour,
		Logger:       telemetry.NewLogger(&bytes.Buffer{}, "debug", "json"),
	})

	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background(), nil) }()

	conn.notify <- &amqp.Error{Code: amqp.ConnectionForced, Reason: "CONNECTION_FORCED"}

	select {
	case err := <-done:
		if !errors.Is(err, ErrConnectionClosed) {
			t.Fatalf("expected ErrConnectionClosed, got %v", err)
		}
		if !strings.Contains(err.Error(), "CONNECTION_FORCED") {
			t.Errorf("expected broker reason in error, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop on close notification")
	}
}

func TestConsumer_CloseNotificationChannelClosed(t *testing.T) {
	ch := newFakeChannel()
	conn := &fakeConn{notify: make(chan *amqp.Error)}
	close(conn.notify)
	c := NewConsumer(ch, conn, ConsumerConfig{
		Queue:        DefaultQueue,
		Handler:      &decisionHandler{},
		PollInterval: time.Hour,
		Logger:       telemetry.NewLogger(&bytes.Buffer{}, "debug", "json"),
	})

	if err := c.Run(context.Background(), nil); !errors.Is(err, ErrConnectionClosed) {
		t.Fatalf("expected ErrConnectionClosed, got %v", err)
	}
}

func TestConsumer_DeliveriesClosed(t *testing.T) {
	ch := newFakeChannel()
	close(ch.deliveries)
	c, _ := newTestConsumer(ch, &fakeConn{}, &decisionHandler{})

	if err := c.Run(context.Background(), nil); !errors.Is(err, ErrDeliveriesClosed) {
		t.Fatalf("expected ErrDeliveriesClosed, got %v", err)
	}
}

// Отмена во время обработки: решение применяется, затем consumer выходит.
func TestConsumer_ShutdownDuringProcessing(t *testing.T) {
	ch := newFakeChannel()
	ack := &fakeAcknowledger{}

	ctx, cancel := context.WithCancel(context.Background())
	h := &decisionHandler{
		decision: domain.Decision{Disposition: domain.DispositionAck},
		onCall:   cancel,
	}
	c, _ := newTestConsumer(ch, &fakeConn{}, h)

	ch.deliveries <- delivery(ack, 1, nil)
	ch.deliveries <- delivery(ack, 2, nil)

	if err := c.Run(ctx, nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if a, _, _ := ack.snapshot(); a != 1 {
		t.Errorf("in-flight message should be acked exactly once, got %d", a)
	}
	if len(h.retries) != 1 {
		t.Errorf("no new message should be taken after cancel, got %d", len(h.retries))
	}
}
