package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmehdipour/fax-gateway/internal/logger"
	"github.com/jmehdipour/fax-gateway/internal/model"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Publisher emits lifecycle events for downstream audit. Publishing is
// best-effort; failures never affect bridging.
type Publisher interface {
	Publish(ctx context.Context, ev model.LifecycleEvent)
}

// Producer is a thin wrapper around segmentio/kafka-go Writer.
type Producer struct {
	w *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}

	return &Producer{w: w}
}

func (p *Producer) Publish(ctx context.Context, ev model.LifecycleEvent) {
	if ev.At == 0 {
		ev.At = time.Now().Unix()
	}

	value, err := json.Marshal(ev)
	if err != nil {
		logger.Log.Warn("lifecycle event marshal failed", zap.Error(err))
		return
	}

	msg := kafka.Message{
		Key:   []byte(ev.FaxID),
		Value: value,
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		logger.Log.Warn("lifecycle event publish failed",
			zap.String("event", ev.Event), zap.Error(err))
	}
}

func (p *Producer) Close() error { return p.w.Close() }

// NopPublisher is used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, model.LifecycleEvent) {}

// NewPublisher returns a Producer when brokers are configured, a
// NopPublisher otherwise.
func NewPublisher(brokers []string, topic string) Publisher {
	if len(brokers) == 0 || topic == "" {
		return NopPublisher{}
	}
	return NewProducer(brokers, topic)
}
