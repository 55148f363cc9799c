package notify

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"rosterwatch/internal/models"
	"rosterwatch/internal/transport"
)

// fakeLedger is an in-memory notified_events table.
type fakeLedger struct {
	claimed map[string]bool
	err     error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{claimed: make(map[string]bool)}
}

func (l *fakeLedger) TryMarkNotified(ctx context.Context, subscriptionID, recordID string, eventType models.EventType) (bool, error) {
	if l.err != nil {
		return false, l.err
	}
	key := subscriptionID + "|" + recordID + "|" + string(eventType)
	if l.claimed[key] {
		return false, nil
	}
	l.claimed[key] = true
	return true, nil
}

// fakeTransport records deliveries and can fail for chosen subscriptions.
type fakeTransport struct {
	sent    []string
	failFor map[string]bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{failFor: make(map[string]bool)}
}

func (t *fakeTransport) Send(ctx context.Context, sub *models.Subscription, rec *models.CustodyRecord, eventType models.EventType) error {
	if t.failFor[sub.SubscriptionID] {
		return fmt.Errorf("transport down")
	}
	t.sent = append(t.sent, sub.SubscriptionID)
	return nil
}

func arrestEvent(rec *models.CustodyRecord) *models.CustodyEvent {
	return &models.CustodyEvent{
		EventType:  models.EventArrested,
		Record:     rec,
		RunID:      "run-1",
		OccurredAt: time.Now(),
	}
}

func TestDispatch_OneNotificationPerSubscription(t *testing.T) {
	ledger := newFakeLedger()
	ft := newFakeTransport()
	d := NewDispatcher(zap.NewNop(), ledger, nil, nil)
	d.RegisterTransport(models.ChannelLog, ft)

	rec := record("rec-1", "SMITH, JOHN")
	subs := []*models.Subscription{sub("sub-1", "SMITH, JOHN"), sub("sub-2", "SMITH, JOHN")}

	stats := d.Dispatch(context.Background(), arrestEvent(rec), subs)

	assert.Equal(t, 2, stats.Sent)
	assert.Equal(t, []string{"sub-1", "sub-2"}, ft.sent)
}

func TestDispatch_RerunDoesNotRenotify(t *testing.T) {
	ledger := newFakeLedger()
	ft := newFakeTransport()
	d := NewDispatcher(zap.NewNop(), ledger, nil, nil)
	d.RegisterTransport(models.ChannelLog, ft)

	rec := record("rec-1", "SMITH, JOHN")
	subs := []*models.Subscription{sub("sub-1", "SMITH, JOHN")}

	first := d.Dispatch(context.Background(), arrestEvent(rec), subs)
	second := d.Dispatch(context.Background(), arrestEvent(rec), subs)

	assert.Equal(t, 1, first.Sent)
	assert.Equal(t, 0, second.Sent)
	assert.Equal(t, 1, second.Skipped)
	require.Len(t, ft.sent, 1)
}

func TestDispatch_DistinctEventTypesNotifySeparately(t *testing.T) {
	ledger := newFakeLedger()
	ft := newFakeTransport()
	d := NewDispatcher(zap.NewNop(), ledger, nil, nil)
	d.RegisterTransport(models.ChannelLog, ft)

	rec := record("rec-1", "SMITH, JOHN")
	subs := []*models.Subscription{sub("sub-1", "SMITH, JOHN")}

	arrest := d.Dispatch(context.Background(), arrestEvent(rec), subs)

	released := &models.CustodyEvent{EventType: models.EventReleased, Record: rec, RunID: "run-2", OccurredAt: time.Now()}
	release := d.Dispatch(context.Background(), released, subs)

	assert.Equal(t, 1, arrest.Sent)
	assert.Equal(t, 1, release.Sent)
	assert.Len(t, ft.sent, 2)
}

func TestDispatch_TransportFailureDoesNotBlockOthers(t *testing.T) {
	ledger := newFakeLedger()
	ft := newFakeTransport()
	ft.failFor["sub-1"] = true
	d := NewDispatcher(zap.NewNop(), ledger, nil, nil)
	d.RegisterTransport(models.ChannelLog, ft)

	rec := record("rec-1", "SMITH, JOHN")
	subs := []*models.Subscription{sub("sub-1", "SMITH, JOHN"), sub("sub-2", "SMITH, JOHN")}

	stats := d.Dispatch(context.Background(), arrestEvent(rec), subs)

	assert.Equal(t, 1, stats.Sent)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, []string{"sub-2"}, ft.sent)
}

func TestDispatch_UnknownChannelFallsBackToLog(t *testing.T) {
	ledger := newFakeLedger()
	d := NewDispatcher(zap.NewNop(), ledger, nil, nil)
	// No transports registered at all; the built-in log fallback applies.

	rec := record("rec-1", "SMITH, JOHN")
	odd := sub("sub-1", "SMITH, JOHN")
	odd.Channel = "carrier-pigeon"

	stats := d.Dispatch(context.Background(), arrestEvent(rec), []*models.Subscription{odd})

	assert.Equal(t, 1, stats.Sent)
}

var _ transport.Transport = (*fakeTransport)(nil)
