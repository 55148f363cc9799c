// Package transport implements the notification sinks. The dispatcher
// picks a transport by the subscription's channel; each transport delivers
// one message per (subscription, record, event) and reports failure without
// affecting other deliveries.
package transport

import (
	"context"
	"encoding/json"

	"rosterwatch/internal/models"
)

// Transport delivers one custody notification to one subscriber.
type Transport interface {
	Send(ctx context.Context, sub *models.Subscription, rec *models.CustodyRecord, eventType models.EventType) error
}

// message is the wire payload shared by the push and webhook channels.
type message struct {
	EventType      string `json:"event_type"`
	SubscriptionID string `json:"subscription_id"`
	SubscribedName string `json:"subscribed_name"`
	Name           string `json:"name"`
	FacilityID     string `json:"facility_id"`
	ArrestDate     string `json:"arrest_date,omitempty"`
	ReleaseDate    string `json:"release_date,omitempty"`
	Charges        string `json:"charges,omitempty"`
}

func buildMessage(sub *models.Subscription, rec *models.CustodyRecord, eventType models.EventType) ([]byte, error) {
	return json.Marshal(message{
		EventType:      string(eventType),
		SubscriptionID: sub.SubscriptionID,
		SubscribedName: sub.SubscribedName,
		Name:           rec.Name,
		FacilityID:     rec.FacilityID,
		ArrestDate:     rec.ArrestDate,
		ReleaseDate:    rec.ReleaseDate,
		Charges:        rec.Charges,
	})
}
