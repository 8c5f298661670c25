//go:build integration

package kafka_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"trustledger/internal/platform/config"
	platformkafka "trustledger/internal/platform/kafka"
	"trustledger/internal/platform/kafka/producer"
	audit "trustledger/pkg/platform/audit"
	auditkafka "trustledger/pkg/platform/audit/store/kafka"
	"trustledger/pkg/testutil/containers"
)

func TestKafkaStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	brokers := containers.StartRedpanda(t)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	prod, err := producer.New(config.Kafka{
		Brokers:         brokers,
		Acks:            "all",
		Retries:         3,
		DeliveryTimeout: 10 * time.Second,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(prod.Close)

	const topic = "trustledger.audit.test"
	require.NoError(t, platformkafka.EnsureTopics(ctx, prod.Client(), topic))

	store := auditkafka.New(prod, topic)
	event := audit.Event{
		EventID:   "evt-1",
		Timestamp: time.Now().UTC().Truncate(time.Millisecond),
		Actor:     "admin",
		Registry:  audit.RegistryCredential,
		Action:    audit.ActionCredentialIssued,
		Subject:   "alice",
		RecordKey: "degree-2026",
		Height:    60,
	}
	require.NoError(t, store.Append(ctx, event))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(brokers),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	t.Cleanup(consumer.Close)

	fetchCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	fetches := consumer.PollFetches(fetchCtx)
	require.NoError(t, fetches.Err())

	records := fetches.Records()
	require.Len(t, records, 1)
	require.Equal(t, []byte("admin"), records[0].Key, "events are keyed by actor for per-actor ordering")

	var got audit.Event
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	require.Equal(t, event.EventID, got.EventID)
	require.Equal(t, event.Action, got.Action)
	require.Equal(t, event.Height, got.Height)
}
