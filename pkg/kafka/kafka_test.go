package kafka

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentavail/pkg/logger"
)

type fakeWriter struct {
	mu      sync.Mutex
	err     error
	written []kafka.Message
	closed  bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.written = append(w.written, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

type fakeReader struct {
	msgs      []kafka.Message
	committed []kafka.Message
	cancel    context.CancelFunc
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		r.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error { return nil }

func quiet() *logger.Logger {
	return logger.New(logger.Config{Level: logger.ERROR, Output: io.Discard})
}

func headerValue(m kafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestMessageBuilder(t *testing.T) {
	msg, err := NewMessage().
		WithKey("villa-1").
		WithValue(map[string]string{"reason": "schedule_set"}).
		WithEventType("availability.regenerated").
		WithSource("availability").
		Build()
	require.NoError(t, err)

	assert.Equal(t, "villa-1", msg.Key)
	assert.JSONEq(t, `{"reason":"schedule_set"}`, string(msg.Value))
	assert.NotEmpty(t, msg.GetEventID())
	assert.NotEmpty(t, msg.Headers[HeaderTimestamp])
	assert.Equal(t, "availability.regenerated", msg.GetEventType())

	var decoded map[string]string
	require.NoError(t, msg.DecodeValue(&decoded))
	assert.Equal(t, "schedule_set", decoded["reason"])
}

func TestMessageBuilder_EncodeError(t *testing.T) {
	_, err := NewMessage().WithKey("k").WithValue(make(chan int)).Build()
	assert.ErrorIs(t, err, ErrInvalidMessage)
}

func TestDecodeValue_IsPermanent(t *testing.T) {
	msg := Message{Value: []byte("{not json")}
	var v map[string]any
	err := msg.DecodeValue(&v)
	require.Error(t, err)
	assert.Equal(t, ErrorTypePermanent, ClassifyError(err))
}

func TestRetryCount(t *testing.T) {
	var msg Message
	assert.Equal(t, 0, msg.GetRetryCount())

	for range 12 {
		msg.IncrementRetryCount()
	}
	assert.Equal(t, 12, msg.GetRetryCount())
	assert.Equal(t, "12", msg.Headers[HeaderRetryCount])

	msg.Headers[HeaderRetryCount] = "garbage"
	assert.Equal(t, 0, msg.GetRetryCount())
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"nil", nil, ErrorTypeUnknown},
		{"typed transient", NewTransientError("store busy", nil), ErrorTypeTransient},
		{"wrapped business", errors.Join(errors.New("ctx"), NewBusinessError("rejected", nil)), ErrorTypeBusiness},
		{"network", errors.New("dial tcp: Connection Refused"), ErrorTypeTransient},
		{"io timeout", errors.New("read: i/o timeout"), ErrorTypeTransient},
		{"unknown", errors.New("something odd"), ErrorTypePermanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(tt.err))
		})
	}
}

func TestShouldRetry(t *testing.T) {
	transient := NewTransientError("busy", nil)
	assert.True(t, ShouldRetry(transient, 0, 3))
	assert.False(t, ShouldRetry(transient, 3, 3))
	assert.False(t, ShouldRetry(NewPermanentError("bad", nil), 0, 3))
	assert.False(t, ShouldRetry(nil, 0, 3))
}

func TestProducerPublish(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, nil, "availability.events", "", quiet())
	metrics := &Metrics{}
	p.Use(metrics.ProducerMiddleware())
	p.Use(LoggingProducerMiddleware(quiet()))

	msg, err := NewMessage().WithKey("villa-1").WithRawValue([]byte(`{}`)).WithEventType("x").Build()
	require.NoError(t, err)
	require.NoError(t, p.Publish(context.Background(), msg))

	require.Len(t, w.written, 1)
	assert.Equal(t, "villa-1", string(w.written[0].Key))
	assert.Equal(t, "x", headerValue(w.written[0], HeaderEventType))
	assert.EqualValues(t, 1, metrics.Snapshot().Published)
}

func TestProducerPublish_Validation(t *testing.T) {
	p := newProducer(&fakeWriter{}, nil, "t", "", quiet())

	assert.ErrorIs(t, p.Publish(context.Background(), Message{Value: []byte("x")}), ErrEmptyKey)
	assert.ErrorIs(t, p.Publish(context.Background(), Message{Key: "k"}), ErrEmptyValue)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.ErrorIs(t, p.Publish(context.Background(), Message{Key: "k", Value: []byte("x")}), ErrProducerClosed)
}

func TestProducerPublish_FailureGoesToDLQ(t *testing.T) {
	writeErr := errors.New("leader not available")
	w := &fakeWriter{err: writeErr}
	dlq := &fakeWriter{}
	p := newProducer(w, dlq, "availability.events", "availability.events.dlq", quiet())
	metrics := &Metrics{}
	p.Use(metrics.ProducerMiddleware())

	msg := Message{Key: "villa-1", Value: []byte(`{}`), Headers: map[string]string{"a": "b"}}
	err := p.Publish(context.Background(), msg)
	assert.ErrorIs(t, err, writeErr)

	require.Len(t, dlq.written, 1)
	assert.Equal(t, "availability.events", headerValue(dlq.written[0], HeaderOriginalTopic))
	assert.Equal(t, writeErr.Error(), headerValue(dlq.written[0], HeaderDLQError))
	assert.NotContains(t, msg.Headers, HeaderDLQError, "caller's headers must not be mutated")
	assert.EqualValues(t, 1, metrics.Snapshot().PublishFailed)
}

func TestProducerPublishBatch(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, nil, "t", "", quiet())

	err := p.PublishBatch(context.Background(), []Message{
		{Key: "a", Value: []byte("1")},
		{Key: "", Value: []byte("2")},
		{Key: "c"},
	})
	require.NoError(t, err)
	assert.Len(t, w.written, 1)

	assert.ErrorIs(t, p.PublishBatch(context.Background(), []Message{{}}), ErrInvalidMessage)
}

func TestConsumer_ProcessesAndCommits(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &fakeReader{
		cancel: cancel,
		msgs: []kafka.Message{
			{Key: []byte("villa-1"), Value: []byte(`{"n":1}`), Offset: 1},
			{Key: []byte("villa-2"), Value: []byte(`{"n":2}`), Offset: 2},
		},
	}

	var keys []string
	c := newConsumer(reader, nil, "cmds", "grp", 3, func(_ context.Context, msg Message) error {
		keys = append(keys, msg.Key)
		return nil
	}, quiet())
	metrics := &Metrics{}
	c.Use(metrics.ConsumerMiddleware())
	c.Use(LoggingConsumerMiddleware(quiet()))

	err := c.Start(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"villa-1", "villa-2"}, keys)
	assert.Len(t, reader.committed, 2)
	assert.EqualValues(t, 2, metrics.Snapshot().Consumed)
	require.NoError(t, c.Close())
}

func TestConsumer_RetriesTransientThenDLQ(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &fakeReader{
		cancel: cancel,
		msgs:   []kafka.Message{{Key: []byte("villa-1"), Value: []byte(`{}`)}},
	}
	dlq := &fakeWriter{}

	attempts := 0
	c := newConsumer(reader, dlq, "cmds", "grp", 2, func(context.Context, Message) error {
		attempts++
		return NewTransientError("store busy", nil)
	}, quiet())

	_ = c.Start(ctx)

	assert.Equal(t, 3, attempts, "one try plus two retries")
	require.Len(t, dlq.written, 1)
	assert.Equal(t, "grp", headerValue(dlq.written[0], HeaderDLQConsumerGroup))
	assert.Equal(t, "2", headerValue(dlq.written[0], HeaderRetryCount))
	assert.Len(t, reader.committed, 1)
}

func TestConsumer_PermanentSkipsRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &fakeReader{
		cancel: cancel,
		msgs:   []kafka.Message{{Key: []byte("villa-1"), Value: []byte(`{}`)}},
	}

	attempts := 0
	c := newConsumer(reader, nil, "cmds", "grp", 5, func(context.Context, Message) error {
		attempts++
		return NewBusinessError("invalid schedule", nil)
	}, quiet())

	_ = c.Start(ctx)
	assert.Equal(t, 1, attempts)
}

func TestConsumer_StartAfterClose(t *testing.T) {
	c := newConsumer(&fakeReader{}, nil, "cmds", "grp", 0, func(context.Context, Message) error { return nil }, quiet())
	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Start(context.Background()), ErrConsumerClosed)
}

func TestMetricsReset(t *testing.T) {
	m := &Metrics{}
	mw := m.ConsumerMiddleware()
	_ = mw(context.Background(), Message{}, func(context.Context, Message) error { return errors.New("x") })

	assert.EqualValues(t, 1, m.Snapshot().ConsumeFailed)
	m.Reset()
	assert.Equal(t, MetricsSnapshot{AvgPublishDuration: "0s", AvgConsumeDuration: "0s"}, m.Snapshot())
}
