package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainlisting "storeshare/internal/domain/listing"
	"storeshare/internal/domain/shared/daterange"
	"storeshare/internal/domain/shared/money"
)

// ListingRepository persists listings with an optimistic version check. The
// conditional update is the atomic read-verify-write primitive the
// availability ledger builds its allocation guarantee on.
type ListingRepository struct {
	col *mongo.Collection
}

func NewListingRepository(db *mongo.Database) *ListingRepository {
	return &ListingRepository{col: db.Collection("listings")}
}

func (r *ListingRepository) ByID(ctx context.Context, id domainlisting.ListingID) (*domainlisting.Listing, error) {
	var doc listingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainlisting.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *ListingRepository) Save(ctx context.Context, l *domainlisting.Listing) error {
	doc := newListingDocument(l)
	filter := bson.M{"_id": doc.ID, "version": l.Version}
	doc.Version = l.Version + 1
	update := bson.M{"$set": doc}
	opts := options.Update().SetUpsert(true)
	res, err := r.col.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domainlisting.ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return domainlisting.ErrConcurrentUpdate
	}
	l.Version = doc.Version
	return nil
}

type listingDocument struct {
	ID             string   `bson:"_id"`
	OwnerID        string   `bson:"owner_id"`
	Title          string   `bson:"title"`
	PriceAmount    int64    `bson:"price_amount"`
	PriceCurrency  string   `bson:"price_currency"`
	AvailableDates []string `bson:"available_dates"`
	IsAvailable    bool     `bson:"is_available"`
	Status         string   `bson:"status"`
	CreatedAt      int64    `bson:"created_at"`
	UpdatedAt      int64    `bson:"updated_at"`
	Version        int64    `bson:"version"`
}

func newListingDocument(l *domainlisting.Listing) listingDocument {
	dates := make([]string, 0, len(l.AvailableDates))
	for k := range l.AvailableDates {
		dates = append(dates, string(k))
	}
	return listingDocument{
		ID:             string(l.ID),
		OwnerID:        l.OwnerID,
		Title:          l.Title,
		PriceAmount:    l.Price.Amount,
		PriceCurrency:  l.Price.Currency,
		AvailableDates: dates,
		IsAvailable:    l.IsAvailable,
		Status:         string(l.Status),
		CreatedAt:      l.CreatedAt.UnixMilli(),
		UpdatedAt:      l.UpdatedAt.UnixMilli(),
		Version:        l.Version,
	}
}

func (d listingDocument) toAggregate() *domainlisting.Listing {
	set := make(map[daterange.Key]struct{}, len(d.AvailableDates))
	for _, k := range d.AvailableDates {
		set[daterange.Key(k)] = struct{}{}
	}
	return &domainlisting.Listing{
		ID:             domainlisting.ListingID(d.ID),
		OwnerID:        d.OwnerID,
		Title:          d.Title,
		Price:          money.Money{Amount: d.PriceAmount, Currency: d.PriceCurrency},
		AvailableDates: set,
		IsAvailable:    d.IsAvailable,
		Status:         domainlisting.Status(d.Status),
		CreatedAt:      timestampToTime(d.CreatedAt),
		UpdatedAt:      timestampToTime(d.UpdatedAt),
		Version:        d.Version,
	}
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
