package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storeshare/internal/domain/messaging"
	"storeshare/internal/infra/storage/memory"
)

type failingStore struct{}

func (failingStore) Add(context.Context, *messaging.Notification) error {
	return errors.New("store down")
}

func (failingStore) ListByReceiver(context.Context, string) ([]messaging.Notification, error) {
	return nil, errors.New("store down")
}

func (failingStore) MarkReadForConversation(context.Context, string, string) error {
	return errors.New("store down")
}

func TestNotifyCreatesRecord(t *testing.T) {
	store := memory.NewNotificationRepository()
	d := NewDispatcher(store, nil)

	d.Notify(context.Background(), "host-1", messaging.KindBookingUpdate, "booking_b-1", messaging.Metadata{
		BookingID:     "b-1",
		BookingStatus: "confirmed",
	})

	notifications, err := d.ListForUser(context.Background(), "host-1")
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, "booking_b-1", notifications[0].ConversationID)
	assert.Equal(t, "confirmed", notifications[0].Payload.BookingStatus)
	assert.False(t, notifications[0].IsRead)
}

func TestNotifySwallowsStoreFailure(t *testing.T) {
	d := NewDispatcher(failingStore{}, nil)

	// Must not panic or surface the error.
	d.Notify(context.Background(), "host-1", messaging.KindText, "booking_b-1", messaging.Metadata{})
	d.MarkReadForConversation(context.Background(), "booking_b-1", "host-1")
}

func TestNotifySkipsEmptyReceiver(t *testing.T) {
	store := memory.NewNotificationRepository()
	d := NewDispatcher(store, nil)

	d.Notify(context.Background(), "", messaging.KindText, "booking_b-1", messaging.Metadata{})

	notifications, err := store.ListByReceiver(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, notifications)
}

func TestNilDispatcherIsSafe(t *testing.T) {
	var d *Dispatcher
	d.Notify(context.Background(), "host-1", messaging.KindText, "c-1", messaging.Metadata{})
	d.MarkReadForConversation(context.Background(), "c-1", "host-1")
}
