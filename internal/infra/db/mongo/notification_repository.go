package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storeshare/internal/domain/messaging"
)

type NotificationRepository struct {
	col *mongo.Collection
}

func NewNotificationRepository(db *mongo.Database) *NotificationRepository {
	col := db.Collection("notifications")
	idx := mongo.IndexModel{Keys: bson.D{{Key: "receiver_id", Value: 1}, {Key: "created_at", Value: -1}}}
	_, _ = col.Indexes().CreateOne(context.Background(), idx)
	return &NotificationRepository{col: col}
}

func (r *NotificationRepository) Add(ctx context.Context, n *messaging.Notification) error {
	_, err := r.col.InsertOne(ctx, newNotificationDocument(n))
	return err
}

func (r *NotificationRepository) ListByReceiver(ctx context.Context, receiverID string) ([]messaging.Notification, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.col.Find(ctx, bson.M{"receiver_id": receiverID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	out := make([]messaging.Notification, 0)
	for cursor.Next(ctx) {
		var doc notificationDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toNotification())
	}
	return out, cursor.Err()
}

func (r *NotificationRepository) MarkReadForConversation(ctx context.Context, conversationID, receiverID string) error {
	_, err := r.col.UpdateMany(ctx,
		bson.M{"conversation_id": conversationID, "receiver_id": receiverID, "is_read": false},
		bson.M{"$set": bson.M{"is_read": true}},
	)
	return err
}

type notificationDocument struct {
	ID             string `bson:"_id"`
	ReceiverID     string `bson:"receiver_id"`
	Kind           string `bson:"kind"`
	ConversationID string `bson:"conversation_id"`
	BookingID      string `bson:"booking_id,omitempty"`
	BookingStatus  string `bson:"booking_status,omitempty"`
	ListingTitle   string `bson:"listing_title,omitempty"`
	IsRead         bool   `bson:"is_read"`
	CreatedAt      int64  `bson:"created_at"`
}

func newNotificationDocument(n *messaging.Notification) notificationDocument {
	return notificationDocument{
		ID:             n.ID,
		ReceiverID:     n.ReceiverID,
		Kind:           string(n.Kind),
		ConversationID: n.ConversationID,
		BookingID:      n.Payload.BookingID,
		BookingStatus:  n.Payload.BookingStatus,
		ListingTitle:   n.Payload.ListingTitle,
		IsRead:         n.IsRead,
		CreatedAt:      n.CreatedAt.UnixMilli(),
	}
}

func (d notificationDocument) toNotification() messaging.Notification {
	return messaging.Notification{
		ID:             d.ID,
		ReceiverID:     d.ReceiverID,
		Kind:           messaging.Kind(d.Kind),
		ConversationID: d.ConversationID,
		Payload: messaging.Metadata{
			BookingID:     d.BookingID,
			BookingStatus: d.BookingStatus,
			ListingTitle:  d.ListingTitle,
		},
		IsRead:    d.IsRead,
		CreatedAt: timestampToTime(d.CreatedAt),
	}
}
