package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/medstock-api/internal/application/ports"
	"github.com/jhoicas/medstock-api/internal/infrastructure/events"
)

func TestPublish_MensajeConClaveYCabeceras(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	var captured *sarama.ProducerMessage
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		captured = msg
		return nil
	})
	pub := events.NewPublisherWithProducer(producer, "medstock.events", nil)

	err := pub.Publish(context.Background(), ports.DomainEvent{
		ID: "evt-1", Type: ports.EventOperationApproved, EntityType: "pending_operation", EntityID: 42,
		ActorID: 1, OccurredAt: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.NoError(t, pub.Close())

	require.NotNil(t, captured)
	assert.Equal(t, "medstock.events", captured.Topic)
	key, _ := captured.Key.Encode()
	assert.Equal(t, "pending_operation:42", string(key))

	raw, _ := captured.Value.Encode()
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "operation.approved", decoded["event_type"])
	assert.EqualValues(t, 42, decoded["entity_id"])

	var eventType string
	for _, h := range captured.Headers {
		if string(h.Key) == "event_type" {
			eventType = string(h.Value)
		}
	}
	assert.Equal(t, "operation.approved", eventType)
}

func TestPublish_ErrorDelBroker(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(errors.New("broker caído"))
	pub := events.NewPublisherWithProducer(producer, "medstock.events", nil)

	err := pub.Publish(context.Background(), ports.DomainEvent{ID: "evt-2", Type: ports.EventStockChanged})
	assert.ErrorContains(t, err, "broker caído")
	require.NoError(t, pub.Close())
}
