package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []kafka.Message
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		m := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	r.committed = append(r.committed, msgs...)
	r.mu.Unlock()
	return nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

func encoded(t *testing.T, eventType string) kafka.Message {
	t.Helper()
	e, err := NewEvent(eventType, "agg-1", "order", "test", map[string]string{"k": "v"})
	require.NoError(t, err)
	b, err := e.Marshal()
	require.NoError(t, err)
	return kafka.Message{Topic: eventType, Value: b, Offset: 7}
}

func runConsumer(t *testing.T, c *Consumer) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	require.NoError(t, c.Start(ctx))
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "ecommerce.product.created", Topic("product", "created"))
	assert.Equal(t, "ecommerce.dlq.ecommerce.order.status_changed", DLQTopic("ecommerce.order.status_changed"))
}

func TestEvent_RoundTrip(t *testing.T) {
	e, err := NewEvent("product.created", "p-1", "product", "storefront", map[string]int{"price": 10})
	require.NoError(t, err)
	e.WithCorrelationID("corr")

	b, err := e.Marshal()
	require.NoError(t, err)
	got, err := UnmarshalEvent(b)
	require.NoError(t, err)

	var data map[string]int
	require.NoError(t, got.UnmarshalData(&data))
	assert.Equal(t, 10, data["price"])
	assert.Equal(t, "corr", got.CorrelationID)
	assert.NotEmpty(t, got.EventID)
}

func TestUnmarshalEvent_RejectsMissingType(t *testing.T) {
	_, err := UnmarshalEvent([]byte(`{"event_id":"1"}`))
	assert.Error(t, err)
	_, err = UnmarshalEvent([]byte(`not json`))
	assert.Error(t, err)
}

func TestProducer_PublishSetsKeyHeadersAndTrace(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	w := &fakeWriter{}
	p := NewProducerWithWriter(w, nil, quietLogger())
	e, _ := NewEvent("product.updated", "p-9", "product", "storefront", nil)
	require.NoError(t, p.Publish(ctx, "ecommerce.product.updated", e.WithCorrelationID("c-1")))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "p-9", string(msg.Key))
	carrier := NewHeaderCarrier(&msg.Headers)
	assert.Equal(t, "product.updated", carrier.Get("event_type"))
	assert.Equal(t, "c-1", carrier.Get("correlation_id"))
	assert.NotEmpty(t, carrier.Get("traceparent"))
}

func TestProducer_PublishError(t *testing.T) {
	p := NewProducerWithWriter(&fakeWriter{err: errors.New("broker down")}, nil, quietLogger())
	e, _ := NewEvent("x", "a", "b", "c", nil)
	err := p.Publish(context.Background(), "t", e)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func TestPingBrokers_NoBrokers(t *testing.T) {
	assert.Error(t, PingBrokers(context.Background(), nil))
}

func TestHeaderCarrier(t *testing.T) {
	headers := []kafka.Header{{Key: "a", Value: []byte("1")}}
	c := NewHeaderCarrier(&headers)
	c.Set("a", "2")
	c.Set("b", "3")
	assert.Equal(t, "2", c.Get("a"))
	assert.Equal(t, "3", c.Get("b"))
	assert.Equal(t, "", c.Get("missing"))
	assert.ElementsMatch(t, []string{"a", "b"}, c.Keys())
}

func TestConsumer_HandlesAndCommits(t *testing.T) {
	r := &fakeReader{queue: []kafka.Message{encoded(t, "order.status_changed")}}
	var got []string
	c := NewConsumerWithReader(r, "g", func(_ context.Context, e *Event) error {
		got = append(got, e.EventType)
		return nil
	}, quietLogger())

	runConsumer(t, c)

	assert.Equal(t, []string{"order.status_changed"}, got)
	assert.Len(t, r.committed, 1)
	assert.True(t, r.closed)
}

func TestConsumer_RetriesThenDeadLetters(t *testing.T) {
	r := &fakeReader{queue: []kafka.Message{encoded(t, "user.password_reset_requested")}}
	dlqWriter := &fakeWriter{}
	attempts := 0
	c := NewConsumerWithReader(r, "g", func(context.Context, *Event) error {
		attempts++
		return errors.New("smtp down")
	}, quietLogger()).WithDLQ(NewDLQProducer(dlqWriter, quietLogger()))
	c.retryBackoff = time.Millisecond

	runConsumer(t, c)

	assert.Equal(t, maxHandlerRetries, attempts)
	require.Len(t, dlqWriter.msgs, 1)
	dead := dlqWriter.msgs[0]
	assert.Equal(t, DLQTopic("user.password_reset_requested"), dead.Topic)
	assert.Equal(t, "smtp down", NewHeaderCarrier(&dead.Headers).Get("dlq.error"))
	assert.Equal(t, "7", NewHeaderCarrier(&dead.Headers).Get("dlq.original_offset"))
	assert.Len(t, r.committed, 1)
}

func TestConsumer_PoisonMessageCommitted(t *testing.T) {
	r := &fakeReader{queue: []kafka.Message{{Topic: "t", Value: []byte("garbage")}}}
	called := false
	c := NewConsumerWithReader(r, "g", func(context.Context, *Event) error {
		called = true
		return nil
	}, quietLogger())

	runConsumer(t, c)

	assert.False(t, called)
	assert.Len(t, r.committed, 1)
}

func TestIdempotentHandler_Memory(t *testing.T) {
	store := NewMemoryIdempotencyStore(time.Hour)
	calls := 0
	h := IdempotentHandler(store, func(context.Context, *Event) error {
		calls++
		return nil
	}, quietLogger())

	e := &Event{EventID: "e-1", EventType: "x"}
	require.NoError(t, h(context.Background(), e))
	require.NoError(t, h(context.Background(), e))
	require.NoError(t, h(context.Background(), &Event{EventType: "no-id"}))
	assert.Equal(t, 2, calls)
}

func TestIdempotentHandler_FailureNotRecorded(t *testing.T) {
	store := NewMemoryIdempotencyStore(time.Hour)
	h := IdempotentHandler(store, func(context.Context, *Event) error {
		return errors.New("fail")
	}, quietLogger())

	assert.Error(t, h(context.Background(), &Event{EventID: "e-2"}))
	seen, _ := store.Contains(context.Background(), "e-2")
	assert.False(t, seen)
}

func TestMemoryIdempotencyStore_Expiry(t *testing.T) {
	store := NewMemoryIdempotencyStore(time.Millisecond)
	require.NoError(t, store.Add(context.Background(), "e"))
	time.Sleep(5 * time.Millisecond)
	seen, err := store.Contains(context.Background(), "e")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestRedisIdempotencyStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisIdempotencyStore(client, time.Minute)
	ctx := context.Background()

	seen, err := store.Contains(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, store.Add(ctx, "evt-1"))
	seen, err = store.Contains(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, seen)

	mr.FastForward(2 * time.Minute)
	seen, err = store.Contains(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, seen)
}
