package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"storeshare/internal/domain/messaging"
)

// MessageRepository keeps conversation partitions in memory and fans appended
// messages out to subscribers, mirroring the change-stream behavior of the
// Mongo implementation.
type MessageRepository struct {
	mu            sync.Mutex
	conversations map[string][]messaging.Message
	subscribers   map[string]map[int]func([]messaging.Message)
	nextSub       int
}

func NewMessageRepository() *MessageRepository {
	return &MessageRepository{
		conversations: make(map[string][]messaging.Message),
		subscribers:   make(map[string]map[int]func([]messaging.Message)),
	}
}

func (r *MessageRepository) Append(ctx context.Context, m *messaging.Message) error {
	r.mu.Lock()
	msgs := r.conversations[m.ConversationID]
	// CreatedAt must increase monotonically within a conversation even when
	// two appends land on the same clock tick.
	if n := len(msgs); n > 0 && !m.CreatedAt.After(msgs[n-1].CreatedAt) {
		m.CreatedAt = msgs[n-1].CreatedAt.Add(time.Millisecond)
	}
	r.conversations[m.ConversationID] = append(msgs, *m)
	fns := r.snapshotSubscribers(m.ConversationID)
	snapshot := r.listLocked(m.ConversationID, defaultCap)
	r.mu.Unlock()

	for _, fn := range fns {
		fn(snapshot)
	}
	return nil
}

const defaultCap = 100

func (r *MessageRepository) ListByConversation(ctx context.Context, conversationID string, limit int) ([]messaging.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listLocked(conversationID, limit), nil
}

func (r *MessageRepository) LastMessage(ctx context.Context, conversationID string) (*messaging.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msgs := r.conversations[conversationID]
	if len(msgs) == 0 {
		return nil, messaging.ErrNoMessages
	}
	last := msgs[len(msgs)-1]
	return &last, nil
}

func (r *MessageRepository) HasMessages(ctx context.Context, conversationID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conversations[conversationID]) > 0, nil
}

func (r *MessageRepository) UnreadCount(ctx context.Context, conversationID, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, m := range r.conversations[conversationID] {
		if m.ReceiverID == userID && !m.IsRead {
			count++
		}
	}
	return count, nil
}

func (r *MessageRepository) MarkRead(ctx context.Context, conversationID, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msgs := r.conversations[conversationID]
	var updated int64
	for i := range msgs {
		if msgs[i].ReceiverID == userID && !msgs[i].IsRead {
			msgs[i].IsRead = true
			updated++
		}
	}
	return updated, nil
}

func (r *MessageRepository) Subscribe(ctx context.Context, conversationID string, fn func([]messaging.Message)) (func(), error) {
	r.mu.Lock()
	if r.subscribers[conversationID] == nil {
		r.subscribers[conversationID] = make(map[int]func([]messaging.Message))
	}
	id := r.nextSub
	r.nextSub++
	r.subscribers[conversationID][id] = fn
	snapshot := r.listLocked(conversationID, defaultCap)
	r.mu.Unlock()

	fn(snapshot)
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.subscribers[conversationID], id)
	}, nil
}

func (r *MessageRepository) listLocked(conversationID string, limit int) []messaging.Message {
	msgs := r.conversations[conversationID]
	out := make([]messaging.Message, len(msgs))
	copy(out, msgs)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (r *MessageRepository) snapshotSubscribers(conversationID string) []func([]messaging.Message) {
	fns := make([]func([]messaging.Message), 0, len(r.subscribers[conversationID]))
	for _, fn := range r.subscribers[conversationID] {
		fns = append(fns, fn)
	}
	return fns
}
