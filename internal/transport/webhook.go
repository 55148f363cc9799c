package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"rosterwatch/internal/models"
)

// Webhook POSTs notifications to the URL stored as the subscription
// address.
type Webhook struct {
	client *resty.Client
	logger *zap.Logger
}

// NewWebhook creates the webhook transport.
func NewWebhook(timeout time.Duration, logger *zap.Logger) *Webhook {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetHeader("Content-Type", "application/json")

	return &Webhook{client: client, logger: logger}
}

// Send delivers one notification.
func (t *Webhook) Send(ctx context.Context, sub *models.Subscription, rec *models.CustodyRecord, eventType models.EventType) error {
	payload, err := buildMessage(sub, rec, eventType)
	if err != nil {
		return fmt.Errorf("failed to build webhook payload: %w", err)
	}

	resp, err := t.client.R().SetContext(ctx).SetBody(payload).Post(sub.Address)
	if err != nil {
		return fmt.Errorf("failed to deliver webhook: %w", err)
	}
	if resp.StatusCode() >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode())
	}

	t.logger.Debug("Webhook notification sent",
		zap.String("subscription_id", sub.SubscriptionID),
		zap.String("event_type", string(eventType)),
	)
	return nil
}
