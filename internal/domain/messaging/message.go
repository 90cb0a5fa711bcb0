package messaging

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrInvalidKind     = errors.New("messaging: unknown message kind")
	ErrEmptyContent    = errors.New("messaging: content required")
	ErrSenderRequired  = errors.New("messaging: sender id required")
	ErrReceiverMissing = errors.New("messaging: receiver id required")
	ErrNoMessages      = errors.New("messaging: conversation has no messages")
)

// SystemSender identifies automated messages emitted by the booking engine.
const SystemSender = "system"

const conversationPrefix = "booking_"

// Kind is the closed set of message kinds. Every consumer switches
// exhaustively over these values; unknown kinds are rejected on write.
type Kind string

const (
	KindText          Kind = "text"
	KindBookingUpdate Kind = "booking_update"
)

func (k Kind) Valid() bool {
	switch k {
	case KindText, KindBookingUpdate:
		return true
	}
	return false
}

// ConversationID derives the deterministic conversation key for a booking.
// Conversations are never stored on their own; the id only partitions messages.
func ConversationID(bookingID string) string {
	return conversationPrefix + bookingID
}

// BookingIDFromConversation reverses ConversationID.
func BookingIDFromConversation(conversationID string) (string, bool) {
	if !strings.HasPrefix(conversationID, conversationPrefix) {
		return "", false
	}
	return strings.TrimPrefix(conversationID, conversationPrefix), true
}

// Metadata carries the booking context attached to BookingUpdate messages.
type Metadata struct {
	BookingID     string
	BookingStatus string
	ListingTitle  string
}

// Message is an append-only chat entry. Only IsRead is ever mutated.
type Message struct {
	ID             string
	ConversationID string
	SenderID       string
	ReceiverID     string
	Content        string
	Kind           Kind
	Metadata       Metadata
	IsRead         bool
	CreatedAt      time.Time
}

func (m *Message) Validate() error {
	if m.SenderID == "" {
		return ErrSenderRequired
	}
	if m.ReceiverID == "" {
		return ErrReceiverMissing
	}
	if strings.TrimSpace(m.Content) == "" {
		return ErrEmptyContent
	}
	if !m.Kind.Valid() {
		return ErrInvalidKind
	}
	return nil
}

// Notification is an advisory side-channel record derived from a message.
// Failure to create one must never invalidate the message it describes.
type Notification struct {
	ID             string
	ReceiverID     string
	Kind           Kind
	ConversationID string
	Payload        Metadata
	IsRead         bool
	CreatedAt      time.Time
}

// MessageRepository is the persistence port for the conversation partition.
type MessageRepository interface {
	Append(ctx context.Context, m *Message) error
	// ListByConversation returns messages ordered by CreatedAt descending,
	// capped at limit.
	ListByConversation(ctx context.Context, conversationID string, limit int) ([]Message, error)
	LastMessage(ctx context.Context, conversationID string) (*Message, error)
	HasMessages(ctx context.Context, conversationID string) (bool, error)
	UnreadCount(ctx context.Context, conversationID, userID string) (int64, error)
	// MarkRead flags every unread message addressed to userID; idempotent.
	MarkRead(ctx context.Context, conversationID, userID string) (int64, error)
	// Subscribe streams the ordered message list to fn whenever it changes,
	// starting with the current snapshot. The returned function cancels the
	// subscription.
	Subscribe(ctx context.Context, conversationID string, fn func([]Message)) (func(), error)
}

// NotificationRepository stores advisory notifications.
type NotificationRepository interface {
	Add(ctx context.Context, n *Notification) error
	ListByReceiver(ctx context.Context, receiverID string) ([]Notification, error)
	MarkReadForConversation(ctx context.Context, conversationID, receiverID string) error
}
