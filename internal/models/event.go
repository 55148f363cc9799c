package models

import "time"

// EventType classifies a custody status change.
type EventType string

const (
	EventArrested EventType = "arrested"
	EventReleased EventType = "released"
)

// CustodyEvent is one status change produced by a reconciliation pass,
// after its persistence operation committed.
type CustodyEvent struct {
	EventType  EventType      `json:"event_type"`
	Record     *CustodyRecord `json:"record"`
	RunID      string         `json:"run_id"`
	OccurredAt time.Time      `json:"occurred_at"`
}
