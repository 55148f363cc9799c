package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rosterwatch/internal/models"
)

func TestPublishEvent_AppendsToStream(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	publisher := NewStreamPublisher(client, "custody:events:stream")

	event := &models.CustodyEvent{
		EventType:  models.EventArrested,
		Record:     record("rec-1", "SMITH, JOHN"),
		RunID:      "run-1",
		OccurredAt: time.Date(2025, 9, 10, 8, 0, 0, 0, time.UTC),
	}
	err := publisher.PublishEvent(context.Background(), event)
	require.NoError(t, err)

	ctx := context.Background()
	entries, err := client.XRange(ctx, "custody:events:stream", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	data, ok := entries[0].Values["data"].(string)
	require.True(t, ok)

	var decoded models.CustodyEvent
	require.NoError(t, json.Unmarshal([]byte(data), &decoded))
	assert.Equal(t, models.EventArrested, decoded.EventType)
	assert.Equal(t, "rec-1", decoded.Record.RecordID)
	assert.Equal(t, "run-1", decoded.RunID)
}
