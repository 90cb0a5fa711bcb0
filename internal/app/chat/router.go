// Package chat routes messages through booking-scoped conversations and
// derives the conversation views consumed by UI collaborators.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"storeshare/internal/app/notify"
	domainbooking "storeshare/internal/domain/booking"
	domainlisting "storeshare/internal/domain/listing"
	"storeshare/internal/domain/messaging"
)

// ConversationCap bounds the message window streamed to subscribers.
const ConversationCap = 100

var (
	ErrUserRequired = errors.New("chat: user id required")
	ErrUnknownRole  = errors.New("chat: unknown role")
)

type Router struct {
	messages   messaging.MessageRepository
	bookings   domainbooking.Repository
	listings   domainlisting.Repository
	dispatcher *notify.Dispatcher
	logger     *slog.Logger
	clock      func() time.Time
	newID      func() string
}

func NewRouter(
	messages messaging.MessageRepository,
	bookings domainbooking.Repository,
	listings domainlisting.Repository,
	dispatcher *notify.Dispatcher,
	logger *slog.Logger,
) *Router {
	return &Router{
		messages:   messages,
		bookings:   bookings,
		listings:   listings,
		dispatcher: dispatcher,
		logger:     logger,
		clock:      func() time.Time { return time.Now().UTC() },
		newID:      uuid.NewString,
	}
}

// WithClock overrides the time source; used by tests.
func (r *Router) WithClock(clock func() time.Time) *Router {
	r.clock = clock
	return r
}

type SendParams struct {
	ConversationID string
	SenderID       string
	ReceiverID     string
	Content        string
	Kind           messaging.Kind
	Metadata       messaging.Metadata
}

// Send appends a message to the conversation and notifies the receiver.
// The notification is best-effort and never rolls back the message.
func (r *Router) Send(ctx context.Context, p SendParams) (*messaging.Message, error) {
	msg := &messaging.Message{
		ID:             r.newID(),
		ConversationID: p.ConversationID,
		SenderID:       p.SenderID,
		ReceiverID:     p.ReceiverID,
		Content:        strings.TrimSpace(p.Content),
		Kind:           p.Kind,
		Metadata:       p.Metadata,
		CreatedAt:      r.clock(),
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	if err := r.messages.Append(ctx, msg); err != nil {
		return nil, err
	}
	r.dispatcher.Notify(ctx, p.ReceiverID, p.Kind, p.ConversationID, p.Metadata)
	return msg, nil
}

type BookingUpdateParams struct {
	BookingID     string
	ReceiverID    string
	Status        string
	ListingTitle  string
	CustomMessage string
}

// SendBookingUpdate emits a canned system message into the booking's
// conversation.
func (r *Router) SendBookingUpdate(ctx context.Context, p BookingUpdateParams) error {
	_, err := r.Send(ctx, SendParams{
		ConversationID: messaging.ConversationID(p.BookingID),
		SenderID:       messaging.SystemSender,
		ReceiverID:     p.ReceiverID,
		Content:        messaging.BookingUpdateText(p.Status, p.ListingTitle, p.CustomMessage),
		Kind:           messaging.KindBookingUpdate,
		Metadata: messaging.Metadata{
			BookingID:     p.BookingID,
			BookingStatus: p.Status,
			ListingTitle:  p.ListingTitle,
		},
	})
	return err
}

// Messages returns the conversation window, newest first.
func (r *Router) Messages(ctx context.Context, conversationID string) ([]messaging.Message, error) {
	return r.messages.ListByConversation(ctx, conversationID, ConversationCap)
}

// Subscribe streams ordered message snapshots to onUpdate. The first delivery
// marks the subscriber's unread messages as read. The returned function
// cancels the subscription.
func (r *Router) Subscribe(ctx context.Context, conversationID, userID string, onUpdate func([]messaging.Message)) (func(), error) {
	if userID == "" {
		return nil, ErrUserRequired
	}
	var once sync.Once
	return r.messages.Subscribe(ctx, conversationID, func(msgs []messaging.Message) {
		once.Do(func() {
			r.markRead(ctx, conversationID, userID)
		})
		onUpdate(msgs)
	})
}

// MarkRead flags every unread message addressed to userID in the conversation
// as read, along with the corresponding notifications. Idempotent.
func (r *Router) MarkRead(ctx context.Context, conversationID, userID string) error {
	if userID == "" {
		return ErrUserRequired
	}
	if _, err := r.messages.MarkRead(ctx, conversationID, userID); err != nil {
		return err
	}
	r.dispatcher.MarkReadForConversation(ctx, conversationID, userID)
	return nil
}

func (r *Router) markRead(ctx context.Context, conversationID, userID string) {
	if err := r.MarkRead(ctx, conversationID, userID); err != nil && r.logger != nil {
		r.logger.Warn("subscription read-mark failed", "conversation_id", conversationID, "user_id", userID, "error", err)
	}
}

// Summary describes one conversation in a user's inbox.
type Summary struct {
	ConversationID string
	BookingID      string
	BookingStatus  domainbooking.Status
	CounterpartID  string
	ListingTitle   string
	LastMessage    messaging.Message
	UnreadCount    int64
}

// ChatEnabled reports whether a booking status opens its conversation. The
// "paid" status comes from the payment collaborator and is accepted here even
// though the state machine itself never produces it.
func ChatEnabled(status domainbooking.Status) bool {
	switch status {
	case domainbooking.StatusConfirmed, domainbooking.StatusActive, domainbooking.Status("paid"):
		return true
	}
	return false
}

// UserConversations returns the user's started conversations: bookings in a
// chat-enabled status that already have at least one message exchanged,
// sorted by last-message time descending.
func (r *Router) UserConversations(ctx context.Context, userID string, role domainbooking.Role) ([]Summary, error) {
	if userID == "" {
		return nil, ErrUserRequired
	}
	var (
		bookings []*domainbooking.Booking
		err      error
	)
	switch role {
	case domainbooking.RoleClient:
		bookings, err = r.bookings.ListByClient(ctx, userID)
	case domainbooking.RoleHost:
		bookings, err = r.bookings.ListByHost(ctx, userID)
	default:
		return nil, ErrUnknownRole
	}
	if err != nil {
		return nil, err
	}

	titles := make(map[domainlisting.ListingID]string)
	summaries := make([]Summary, 0, len(bookings))
	for _, b := range bookings {
		if !ChatEnabled(b.Status) {
			continue
		}
		conversationID := messaging.ConversationID(string(b.ID))
		started, err := r.messages.HasMessages(ctx, conversationID)
		if err != nil {
			return nil, err
		}
		if !started {
			continue
		}
		last, err := r.messages.LastMessage(ctx, conversationID)
		if err != nil {
			return nil, err
		}
		unread, err := r.messages.UnreadCount(ctx, conversationID, userID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, Summary{
			ConversationID: conversationID,
			BookingID:      string(b.ID),
			BookingStatus:  b.Status,
			CounterpartID:  b.Counterpart(userID),
			ListingTitle:   r.listingTitle(ctx, b.ListingID, titles),
			LastMessage:    *last,
			UnreadCount:    unread,
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].LastMessage.CreatedAt.After(summaries[j].LastMessage.CreatedAt)
	})
	return summaries, nil
}

func (r *Router) listingTitle(ctx context.Context, id domainlisting.ListingID, cache map[domainlisting.ListingID]string) string {
	if title, ok := cache[id]; ok {
		return title
	}
	l, err := r.listings.ByID(ctx, id)
	if err != nil {
		if r.logger != nil {
			r.logger.Warn("listing title lookup failed", "listing_id", id, "error", err)
		}
		cache[id] = ""
		return ""
	}
	cache[id] = l.Title
	return l.Title
}
