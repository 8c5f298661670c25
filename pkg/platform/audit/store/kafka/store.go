// Package kafka publishes audit events to a Kafka topic so downstream
// compliance consumers can build their own views of registry activity.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	audit "trustledger/pkg/platform/audit"
)

// Producer is the subset of the platform Kafka producer the sink needs.
type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// Store sends every appended event to a Kafka topic keyed by actor, keeping
// per-actor ordering for consumers.
type Store struct {
	producer Producer
	topic    string
}

func New(producer Producer, topic string) *Store {
	return &Store{producer: producer, topic: topic}
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	if err := s.producer.Publish(ctx, s.topic, []byte(event.Actor), payload); err != nil {
		return fmt.Errorf("publish audit event: %w", err)
	}
	return nil
}
