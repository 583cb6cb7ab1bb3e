package kafka

import (
	"context"
	"sync/atomic"
	"time"
)

// Metrics counts producer and consumer outcomes. The zero value is ready to
// use and safe for concurrent use.
type Metrics struct {
	published       atomic.Int64
	publishFailed   atomic.Int64
	publishDuration atomic.Int64

	consumed        atomic.Int64
	consumeFailed   atomic.Int64
	consumeDuration atomic.Int64
}

type MetricsSnapshot struct {
	Published          int64  `json:"published"`
	PublishFailed      int64  `json:"publish_failed"`
	AvgPublishDuration string `json:"avg_publish_duration"`
	Consumed           int64  `json:"consumed"`
	ConsumeFailed      int64  `json:"consume_failed"`
	AvgConsumeDuration string `json:"avg_consume_duration"`
}

func (m *Metrics) ProducerMiddleware() ProducerMiddleware {
	return func(ctx context.Context, msg Message, next MessageHandler) error {
		start := time.Now()
		err := next(ctx, msg)
		m.publishDuration.Add(int64(time.Since(start)))
		if err != nil {
			m.publishFailed.Add(1)
		} else {
			m.published.Add(1)
		}
		return err
	}
}

func (m *Metrics) ConsumerMiddleware() ConsumerMiddleware {
	return func(ctx context.Context, msg Message, next MessageHandler) error {
		start := time.Now()
		err := next(ctx, msg)
		m.consumeDuration.Add(int64(time.Since(start)))
		if err != nil {
			m.consumeFailed.Add(1)
		} else {
			m.consumed.Add(1)
		}
		return err
	}
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	published, publishFailed := m.published.Load(), m.publishFailed.Load()
	consumed, consumeFailed := m.consumed.Load(), m.consumeFailed.Load()
	return MetricsSnapshot{
		Published:          published,
		PublishFailed:      publishFailed,
		AvgPublishDuration: average(m.publishDuration.Load(), published+publishFailed).String(),
		Consumed:           consumed,
		ConsumeFailed:      consumeFailed,
		AvgConsumeDuration: average(m.consumeDuration.Load(), consumed+consumeFailed).String(),
	}
}

func (m *Metrics) Reset() {
	m.published.Store(0)
	m.publishFailed.Store(0)
	m.publishDuration.Store(0)
	m.consumed.Store(0)
	m.consumeFailed.Store(0)
	m.consumeDuration.Store(0)
}

func average(total, count int64) time.Duration {
	if count == 0 {
		return 0
	}
	return time.Duration(total / count)
}
