package mongo

import (
	"context"
	"errors"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storeshare/internal/domain/messaging"
)

// MessageRepository stores the append-only conversation partitions and backs
// live subscriptions with change streams.
type MessageRepository struct {
	col    *mongo.Collection
	logger *slog.Logger
}

func NewMessageRepository(db *mongo.Database, logger *slog.Logger) *MessageRepository {
	col := db.Collection("messages")
	idx := mongo.IndexModel{Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "created_at", Value: -1}}}
	_, _ = col.Indexes().CreateOne(context.Background(), idx)
	return &MessageRepository{col: col, logger: logger}
}

func (r *MessageRepository) Append(ctx context.Context, m *messaging.Message) error {
	_, err := r.col.InsertOne(ctx, newMessageDocument(m))
	return err
}

func (r *MessageRepository) ListByConversation(ctx context.Context, conversationID string, limit int) ([]messaging.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts = opts.SetLimit(int64(limit))
	}
	cursor, err := r.col.Find(ctx, bson.M{"conversation_id": conversationID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	out := make([]messaging.Message, 0)
	for cursor.Next(ctx) {
		var doc messageDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toMessage())
	}
	return out, cursor.Err()
}

func (r *MessageRepository) LastMessage(ctx context.Context, conversationID string) (*messaging.Message, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	var doc messageDocument
	if err := r.col.FindOne(ctx, bson.M{"conversation_id": conversationID}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, messaging.ErrNoMessages
		}
		return nil, err
	}
	msg := doc.toMessage()
	return &msg, nil
}

func (r *MessageRepository) HasMessages(ctx context.Context, conversationID string) (bool, error) {
	count, err := r.col.CountDocuments(ctx, bson.M{"conversation_id": conversationID}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *MessageRepository) UnreadCount(ctx context.Context, conversationID, userID string) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{"conversation_id": conversationID, "receiver_id": userID, "is_read": false})
}

func (r *MessageRepository) MarkRead(ctx context.Context, conversationID, userID string) (int64, error) {
	res, err := r.col.UpdateMany(ctx,
		bson.M{"conversation_id": conversationID, "receiver_id": userID, "is_read": false},
		bson.M{"$set": bson.M{"is_read": true}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// Subscribe delivers the current message window immediately and again after
// every insert into the conversation, via a change stream.
func (r *MessageRepository) Subscribe(ctx context.Context, conversationID string, fn func([]messaging.Message)) (func(), error) {
	streamCtx, cancel := context.WithCancel(ctx)
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{
			"operationType":               "insert",
			"fullDocument.conversation_id": conversationID,
		}}},
	}
	stream, err := r.col.Watch(streamCtx, pipeline)
	if err != nil {
		cancel()
		return nil, err
	}

	deliver := func() {
		msgs, err := r.ListByConversation(streamCtx, conversationID, 100)
		if err != nil {
			if r.logger != nil {
				r.logger.Warn("subscription snapshot failed", "conversation_id", conversationID, "error", err)
			}
			return
		}
		fn(msgs)
	}

	go func() {
		defer stream.Close(streamCtx)
		deliver()
		for stream.Next(streamCtx) {
			deliver()
		}
	}()
	return cancel, nil
}

type messageDocument struct {
	ID             string `bson:"_id"`
	ConversationID string `bson:"conversation_id"`
	SenderID       string `bson:"sender_id"`
	ReceiverID     string `bson:"receiver_id"`
	Content        string `bson:"content"`
	Kind           string `bson:"kind"`
	BookingID      string `bson:"booking_id,omitempty"`
	BookingStatus  string `bson:"booking_status,omitempty"`
	ListingTitle   string `bson:"listing_title,omitempty"`
	IsRead         bool   `bson:"is_read"`
	CreatedAt      int64  `bson:"created_at"`
}

func newMessageDocument(m *messaging.Message) messageDocument {
	return messageDocument{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		ReceiverID:     m.ReceiverID,
		Content:        m.Content,
		Kind:           string(m.Kind),
		BookingID:      m.Metadata.BookingID,
		BookingStatus:  m.Metadata.BookingStatus,
		ListingTitle:   m.Metadata.ListingTitle,
		IsRead:         m.IsRead,
		CreatedAt:      m.CreatedAt.UnixMilli(),
	}
}

func (d messageDocument) toMessage() messaging.Message {
	return messaging.Message{
		ID:             d.ID,
		ConversationID: d.ConversationID,
		SenderID:       d.SenderID,
		ReceiverID:     d.ReceiverID,
		Content:        d.Content,
		Kind:           messaging.Kind(d.Kind),
		Metadata: messaging.Metadata{
			BookingID:     d.BookingID,
			BookingStatus: d.BookingStatus,
			ListingTitle:  d.ListingTitle,
		},
		IsRead:    d.IsRead,
		CreatedAt: timestampToTime(d.CreatedAt),
	}
}
