package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "storeshare/internal/domain/booking"
	domainlisting "storeshare/internal/domain/listing"
	"storeshare/internal/domain/shared/daterange"
	"storeshare/internal/domain/shared/money"
)

type BookingRepository struct {
	col *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	return &BookingRepository{col: db.Collection("bookings")}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainbooking.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	doc := newBookingDocument(b)
	filter := bson.M{"_id": doc.ID, "version": b.Version}
	doc.Version = b.Version + 1
	update := bson.M{"$set": doc}
	opts := options.Update().SetUpsert(true)
	res, err := r.col.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domainbooking.ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return domainbooking.ErrConcurrentUpdate
	}
	b.Version = doc.Version
	return nil
}

func (r *BookingRepository) ListByClient(ctx context.Context, clientID string) ([]*domainbooking.Booking, error) {
	return r.find(ctx, bson.M{"client_id": clientID})
}

func (r *BookingRepository) ListByHost(ctx context.Context, hostID string) ([]*domainbooking.Booking, error) {
	return r.find(ctx, bson.M{"host_id": hostID})
}

func (r *BookingRepository) ListByStatus(ctx context.Context, status domainbooking.Status) ([]*domainbooking.Booking, error) {
	return r.find(ctx, bson.M{"status": string(status)})
}

func (r *BookingRepository) find(ctx context.Context, filter bson.M) ([]*domainbooking.Booking, error) {
	cursor, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var out []*domainbooking.Booking
	for cursor.Next(ctx) {
		var doc bookingDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cursor.Err()
}

type bookingDocument struct {
	ID                 string `bson:"_id"`
	ListingID          string `bson:"listing_id"`
	ClientID           string `bson:"client_id"`
	HostID             string `bson:"host_id"`
	StartDate          int64  `bson:"start_date"`
	EndDate            int64  `bson:"end_date"`
	Status             string `bson:"status"`
	StorageFee         int64  `bson:"storage_fee"`
	PlatformFee        int64  `bson:"platform_fee"`
	Total              int64  `bson:"total_amount"`
	Currency           string `bson:"currency"`
	CancellationReason string `bson:"cancellation_reason,omitempty"`
	CreatedAt          int64  `bson:"created_at"`
	UpdatedAt          int64  `bson:"updated_at"`
	Version            int64  `bson:"version"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	return bookingDocument{
		ID:                 string(b.ID),
		ListingID:          string(b.ListingID),
		ClientID:           b.ClientID,
		HostID:             b.HostID,
		StartDate:          b.Range.Start.UnixMilli(),
		EndDate:            b.Range.End.UnixMilli(),
		Status:             string(b.Status),
		StorageFee:         b.StorageFee.Amount,
		PlatformFee:        b.PlatformFee.Amount,
		Total:              b.Total.Amount,
		Currency:           b.Total.Currency,
		CancellationReason: b.CancellationReason,
		CreatedAt:          b.CreatedAt.UnixMilli(),
		UpdatedAt:          b.UpdatedAt.UnixMilli(),
		Version:            b.Version,
	}
}

func (d bookingDocument) toAggregate() *domainbooking.Booking {
	return &domainbooking.Booking{
		ID:                 domainbooking.BookingID(d.ID),
		ListingID:          domainlisting.ListingID(d.ListingID),
		ClientID:           d.ClientID,
		HostID:             d.HostID,
		Range:              daterange.DateRange{Start: timestampToTime(d.StartDate), End: timestampToTime(d.EndDate)},
		Status:             domainbooking.Status(d.Status),
		StorageFee:         money.Money{Amount: d.StorageFee, Currency: d.Currency},
		PlatformFee:        money.Money{Amount: d.PlatformFee, Currency: d.Currency},
		Total:              money.Money{Amount: d.Total, Currency: d.Currency},
		CancellationReason: d.CancellationReason,
		CreatedAt:          timestampToTime(d.CreatedAt),
		UpdatedAt:          timestampToTime(d.UpdatedAt),
		Version:            d.Version,
	}
}
