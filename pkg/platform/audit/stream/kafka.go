// Package stream forwards audit events to Kafka.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"bondly/pkg/platform/audit"
)

// Kafka publishes audit events to a single topic, keyed by the subject slug
// so per-project and per-property ordering is preserved.
type Kafka struct {
	client *kgo.Client
	topic  string
}

var _ audit.Stream = (*Kafka)(nil)

// NewKafka connects to the brokers and ensures the topic exists. Topic
// creation errors other than "already exists" are fatal so a misconfigured
// cluster is caught at startup, not at first publish.
func NewKafka(ctx context.Context, brokers []string, topic string) (*Kafka, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("connect kafka: %w", err)
	}

	admin := kadm.NewClient(client)
	resp, err := admin.CreateTopics(ctx, 1, 1, nil, topic)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("create audit topic: %w", err)
	}
	for _, result := range resp {
		if result.Err != nil && !errors.Is(result.Err, kerr.TopicAlreadyExists) {
			client.Close()
			return nil, fmt.Errorf("create audit topic %s: %w", result.Topic, result.Err)
		}
	}

	return &Kafka{client: client, topic: topic}, nil
}

// Publish sends one event. The call blocks until the broker acknowledges.
func (k *Kafka) Publish(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	record := &kgo.Record{
		Topic: k.topic,
		Key:   []byte(eventKey(event)),
		Value: payload,
	}
	if err := k.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

func (k *Kafka) Close() {
	k.client.Close()
}

func eventKey(event audit.Event) string {
	if event.ProjectSlug != "" {
		return event.ProjectSlug
	}
	if event.PropertySlug != "" {
		return event.PropertySlug
	}
	return string(event.Action)
}
