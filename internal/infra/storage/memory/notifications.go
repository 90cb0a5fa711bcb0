package memory

import (
	"context"
	"sort"
	"sync"

	"storeshare/internal/domain/messaging"
)

// NotificationRepository is the in-memory advisory notification store.
type NotificationRepository struct {
	mu    sync.Mutex
	items []messaging.Notification
}

func NewNotificationRepository() *NotificationRepository {
	return &NotificationRepository{}
}

func (r *NotificationRepository) Add(ctx context.Context, n *messaging.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, *n)
	return nil
}

func (r *NotificationRepository) ListByReceiver(ctx context.Context, receiverID string) ([]messaging.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]messaging.Notification, 0)
	for _, n := range r.items {
		if n.ReceiverID == receiverID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *NotificationRepository) MarkReadForConversation(ctx context.Context, conversationID, receiverID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.items {
		if r.items[i].ConversationID == conversationID && r.items[i].ReceiverID == receiverID {
			r.items[i].IsRead = true
		}
	}
	return nil
}
