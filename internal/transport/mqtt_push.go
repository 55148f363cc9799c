package transport

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"rosterwatch/internal/models"
	"rosterwatch/internal/mqtt"
)

// MQTTPush delivers notifications to the mobile push gateway over MQTT.
// Each subscriber address maps to a topic under the configured prefix.
type MQTTPush struct {
	client      *mqtt.Client
	topicPrefix string
	qos         byte
	logger      *zap.Logger
}

// NewMQTTPush creates the push transport.
func NewMQTTPush(client *mqtt.Client, topicPrefix string, qos byte, logger *zap.Logger) *MQTTPush {
	return &MQTTPush{
		client:      client,
		topicPrefix: topicPrefix,
		qos:         qos,
		logger:      logger,
	}
}

// Send publishes one notification message.
func (t *MQTTPush) Send(ctx context.Context, sub *models.Subscription, rec *models.CustodyRecord, eventType models.EventType) error {
	payload, err := buildMessage(sub, rec, eventType)
	if err != nil {
		return fmt.Errorf("failed to build push payload: %w", err)
	}

	topic := t.topicPrefix + sub.Address
	if err := t.client.Publish(topic, t.qos, false, payload); err != nil {
		return fmt.Errorf("failed to publish push notification: %w", err)
	}

	t.logger.Debug("Push notification sent",
		zap.String("subscription_id", sub.SubscriptionID),
		zap.String("topic", topic),
		zap.String("event_type", string(eventType)),
	)
	return nil
}
