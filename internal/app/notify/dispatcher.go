// Package notify fans events out as advisory notifications. Dispatch is
// fire-and-forget: failures are logged and never reach the caller, keeping
// notifications outside the booking consistency boundary.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"storeshare/internal/domain/messaging"
)

type Dispatcher struct {
	store  messaging.NotificationRepository
	logger *slog.Logger
	clock  func() time.Time
	newID  func() string
}

func NewDispatcher(store messaging.NotificationRepository, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		store:  store,
		logger: logger,
		clock:  func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
}

// Notify creates a notification record. Any failure is swallowed.
func (d *Dispatcher) Notify(ctx context.Context, receiverID string, kind messaging.Kind, conversationID string, payload messaging.Metadata) {
	if d == nil || d.store == nil || receiverID == "" {
		return
	}
	n := &messaging.Notification{
		ID:             d.newID(),
		ReceiverID:     receiverID,
		Kind:           kind,
		ConversationID: conversationID,
		Payload:        payload,
		CreatedAt:      d.clock(),
	}
	if err := d.store.Add(ctx, n); err != nil && d.logger != nil {
		d.logger.Warn("notification dispatch failed", "receiver_id", receiverID, "kind", kind, "error", err)
	}
}

// MarkReadForConversation flags notifications tied to a conversation as read.
// Best-effort, like Notify.
func (d *Dispatcher) MarkReadForConversation(ctx context.Context, conversationID, receiverID string) {
	if d == nil || d.store == nil {
		return
	}
	if err := d.store.MarkReadForConversation(ctx, conversationID, receiverID); err != nil && d.logger != nil {
		d.logger.Warn("notification read-mark failed", "conversation_id", conversationID, "receiver_id", receiverID, "error", err)
	}
}

// ListForUser returns the receiver's notifications, newest first.
func (d *Dispatcher) ListForUser(ctx context.Context, receiverID string) ([]messaging.Notification, error) {
	return d.store.ListByReceiver(ctx, receiverID)
}
