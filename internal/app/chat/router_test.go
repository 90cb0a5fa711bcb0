package chat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storeshare/internal/app/notify"
	domainbooking "storeshare/internal/domain/booking"
	domainlisting "storeshare/internal/domain/listing"
	"storeshare/internal/domain/messaging"
	"storeshare/internal/domain/shared/daterange"
	"storeshare/internal/domain/shared/money"
	"storeshare/internal/infra/storage/memory"
)

var now = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	router        *Router
	bookings      *memory.BookingRepository
	listings      *memory.ListingRepository
	messages      *memory.MessageRepository
	notifications *memory.NotificationRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	listings := memory.NewListingRepository()
	bookings := memory.NewBookingRepository()
	messages := memory.NewMessageRepository()
	notifications := memory.NewNotificationRepository()
	dispatcher := notify.NewDispatcher(notifications, nil)
	router := NewRouter(messages, bookings, listings, dispatcher, nil).
		WithClock(func() time.Time { return now })
	return &fixture{router: router, bookings: bookings, listings: listings, messages: messages, notifications: notifications}
}

func (f *fixture) seedBooking(t *testing.T, id string, status domainbooking.Status) *domainbooking.Booking {
	t.Helper()
	bookable, err := daterange.New(now, now.AddDate(0, 1, 0))
	require.NoError(t, err)
	l, err := domainlisting.New(domainlisting.CreateParams{
		ID:        domainlisting.ListingID("listing-" + id),
		OwnerID:   "host-1",
		Title:     "Shed " + id,
		Price:     money.Must(1000, "USD"),
		Bookable:  bookable,
		CreatedAt: now,
	})
	require.NoError(t, err)
	require.NoError(t, f.listings.Save(context.Background(), l))

	dr, err := daterange.New(now.AddDate(0, 0, 3), now.AddDate(0, 0, 9))
	require.NoError(t, err)
	b, err := domainbooking.New(domainbooking.CreateParams{
		ID:          domainbooking.BookingID(id),
		ListingID:   l.ID,
		ClientID:    "client-1",
		HostID:      "host-1",
		Range:       dr,
		StorageFee:  money.Must(1000, "USD"),
		PlatformFee: money.Must(100, "USD"),
		Total:       money.Must(1100, "USD"),
		CreatedAt:   now,
	})
	require.NoError(t, err)
	b.Status = status
	require.NoError(t, f.bookings.Save(context.Background(), b))
	return b
}

func TestSendAppendsMessageAndNotifies(t *testing.T) {
	f := newFixture(t)
	conversationID := messaging.ConversationID("b-1")

	msg, err := f.router.Send(context.Background(), SendParams{
		ConversationID: conversationID,
		SenderID:       "client-1",
		ReceiverID:     "host-1",
		Content:        "  Is the space heated?  ",
		Kind:           messaging.KindText,
	})
	require.NoError(t, err)
	assert.Equal(t, "Is the space heated?", msg.Content)

	notifications, err := f.notifications.ListByReceiver(context.Background(), "host-1")
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, conversationID, notifications[0].ConversationID)
}

func TestSendRejectsInvalidMessage(t *testing.T) {
	f := newFixture(t)

	_, err := f.router.Send(context.Background(), SendParams{
		ConversationID: messaging.ConversationID("b-1"),
		SenderID:       "client-1",
		ReceiverID:     "host-1",
		Content:        "   ",
		Kind:           messaging.KindText,
	})
	assert.ErrorIs(t, err, messaging.ErrEmptyContent)

	notifications, listErr := f.notifications.ListByReceiver(context.Background(), "host-1")
	require.NoError(t, listErr)
	assert.Empty(t, notifications, "rejected messages must not notify")
}

func TestSendBookingUpdateUsesTemplate(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.router.SendBookingUpdate(context.Background(), BookingUpdateParams{
		BookingID:    "b-1",
		ReceiverID:   "client-1",
		Status:       "confirmed",
		ListingTitle: "Shed b-1",
	}))

	msgs, err := f.router.Messages(context.Background(), messaging.ConversationID("b-1"))
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, messaging.SystemSender, msgs[0].SenderID)
	assert.Equal(t, messaging.KindBookingUpdate, msgs[0].Kind)
	assert.Contains(t, msgs[0].Content, "confirmed by the host")
	assert.Equal(t, "b-1", msgs[0].Metadata.BookingID)
}

func TestChatEnabled(t *testing.T) {
	assert.True(t, ChatEnabled(domainbooking.StatusConfirmed))
	assert.True(t, ChatEnabled(domainbooking.StatusActive))
	assert.True(t, ChatEnabled(domainbooking.Status("paid")))
	assert.False(t, ChatEnabled(domainbooking.StatusPending))
	assert.False(t, ChatEnabled(domainbooking.StatusCompleted))
	assert.False(t, ChatEnabled(domainbooking.StatusCancelled))
}

func TestUserConversationsExcludesEmptyAndDisabled(t *testing.T) {
	f := newFixture(t)
	confirmed := f.seedBooking(t, "b-1", domainbooking.StatusConfirmed)
	f.seedBooking(t, "b-2", domainbooking.StatusConfirmed) // never messaged
	f.seedBooking(t, "b-3", domainbooking.StatusPending)   // chat disabled

	_, err := f.router.Send(context.Background(), SendParams{
		ConversationID: messaging.ConversationID(string(confirmed.ID)),
		SenderID:       "client-1",
		ReceiverID:     "host-1",
		Content:        "hello",
		Kind:           messaging.KindText,
	})
	require.NoError(t, err)

	summaries, err := f.router.UserConversations(context.Background(), "client-1", domainbooking.RoleClient)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	s := summaries[0]
	assert.Equal(t, messaging.ConversationID("b-1"), s.ConversationID)
	assert.Equal(t, "host-1", s.CounterpartID)
	assert.Equal(t, "Shed b-1", s.ListingTitle)
	assert.Equal(t, "hello", s.LastMessage.Content)
}

func TestUserConversationsSortsByLastMessage(t *testing.T) {
	f := newFixture(t)
	f.seedBooking(t, "b-1", domainbooking.StatusConfirmed)
	f.seedBooking(t, "b-2", domainbooking.StatusActive)

	for _, id := range []string{"b-1", "b-2"} {
		_, err := f.router.Send(context.Background(), SendParams{
			ConversationID: messaging.ConversationID(id),
			SenderID:       "client-1",
			ReceiverID:     "host-1",
			Content:        "message in " + id,
			Kind:           messaging.KindText,
		})
		require.NoError(t, err)
	}

	summaries, err := f.router.UserConversations(context.Background(), "host-1", domainbooking.RoleHost)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.True(t, !summaries[0].LastMessage.CreatedAt.Before(summaries[1].LastMessage.CreatedAt))
}

func TestUserConversationsCountsUnreadPerReceiver(t *testing.T) {
	f := newFixture(t)
	f.seedBooking(t, "b-1", domainbooking.StatusConfirmed)
	conversationID := messaging.ConversationID("b-1")

	for i := 0; i < 3; i++ {
		_, err := f.router.Send(context.Background(), SendParams{
			ConversationID: conversationID,
			SenderID:       "client-1",
			ReceiverID:     "host-1",
			Content:        "ping",
			Kind:           messaging.KindText,
		})
		require.NoError(t, err)
	}

	hostView, err := f.router.UserConversations(context.Background(), "host-1", domainbooking.RoleHost)
	require.NoError(t, err)
	require.Len(t, hostView, 1)
	assert.Equal(t, int64(3), hostView[0].UnreadCount)

	clientView, err := f.router.UserConversations(context.Background(), "client-1", domainbooking.RoleClient)
	require.NoError(t, err)
	require.Len(t, clientView, 1)
	assert.Equal(t, int64(0), clientView[0].UnreadCount)
}

func TestUserConversationsRejectsMissingUserAndRole(t *testing.T) {
	f := newFixture(t)

	_, err := f.router.UserConversations(context.Background(), "", domainbooking.RoleClient)
	assert.ErrorIs(t, err, ErrUserRequired)

	_, err = f.router.UserConversations(context.Background(), "host-1", domainbooking.Role("admin"))
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestMarkReadIsIdempotent(t *testing.T) {
	f := newFixture(t)
	conversationID := messaging.ConversationID("b-1")
	_, err := f.router.Send(context.Background(), SendParams{
		ConversationID: conversationID,
		SenderID:       "client-1",
		ReceiverID:     "host-1",
		Content:        "hello",
		Kind:           messaging.KindText,
	})
	require.NoError(t, err)

	require.NoError(t, f.router.MarkRead(context.Background(), conversationID, "host-1"))
	require.NoError(t, f.router.MarkRead(context.Background(), conversationID, "host-1"))

	unread, err := f.messages.UnreadCount(context.Background(), conversationID, "host-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), unread)

	notifications, err := f.notifications.ListByReceiver(context.Background(), "host-1")
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.True(t, notifications[0].IsRead)
}

func TestSubscribeDeliversSnapshotAndMarksRead(t *testing.T) {
	f := newFixture(t)
	conversationID := messaging.ConversationID("b-1")
	_, err := f.router.Send(context.Background(), SendParams{
		ConversationID: conversationID,
		SenderID:       "client-1",
		ReceiverID:     "host-1",
		Content:        "first",
		Kind:           messaging.KindText,
	})
	require.NoError(t, err)

	var deliveries [][]messaging.Message
	cancel, err := f.router.Subscribe(context.Background(), conversationID, "host-1", func(msgs []messaging.Message) {
		deliveries = append(deliveries, msgs)
	})
	require.NoError(t, err)
	defer cancel()

	require.Len(t, deliveries, 1)
	require.Len(t, deliveries[0], 1)

	unread, err := f.messages.UnreadCount(context.Background(), conversationID, "host-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), unread, "first delivery marks the subscriber's messages read")

	_, err = f.router.Send(context.Background(), SendParams{
		ConversationID: conversationID,
		SenderID:       "client-1",
		ReceiverID:     "host-1",
		Content:        "second",
		Kind:           messaging.KindText,
	})
	require.NoError(t, err)
	require.Len(t, deliveries, 2)
	assert.Len(t, deliveries[1], 2)
}

func TestSubscribeCancelStopsDeliveries(t *testing.T) {
	f := newFixture(t)
	conversationID := messaging.ConversationID("b-1")

	count := 0
	cancel, err := f.router.Subscribe(context.Background(), conversationID, "host-1", func([]messaging.Message) {
		count++
	})
	require.NoError(t, err)
	require.Equal(t, 1, count)

	cancel()
	_, err = f.router.Send(context.Background(), SendParams{
		ConversationID: conversationID,
		SenderID:       "client-1",
		ReceiverID:     "host-1",
		Content:        "after cancel",
		Kind:           messaging.KindText,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
