package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Topic carries all owner notifications; consumers fan out to push and
// in-app feeds. Records are keyed by owner so one owner's feed stays ordered.
const Topic = "registry.notifications"

// KafkaPublisher produces notifications to Kafka.
type KafkaPublisher struct {
	client *kgo.Client
	logger *slog.Logger
}

// NewKafka connects a Kafka-backed publisher.
func NewKafka(brokers []string, logger *slog.Logger) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher requires at least one broker")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(Topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("connect kafka: %w", err)
	}
	return &KafkaPublisher{client: client, logger: logger}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	record := &kgo.Record{
		Key:   []byte(n.OwnerID.String()),
		Value: payload,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		p.logger.Warn("notification publish failed",
			"kind", n.Kind,
			"owner_id", n.OwnerID,
			"error", err,
		)
		return fmt.Errorf("produce notification: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	p.client.Close()
	return nil
}
