package memory

import (
	"context"
	"sync"

	domainlisting "storeshare/internal/domain/listing"
	"storeshare/internal/domain/shared/daterange"
)

// ListingRepository is an in-memory listing store with the same
// compare-and-swap contract as the Mongo implementation, which makes it a
// faithful double for ledger race tests.
type ListingRepository struct {
	mu    sync.Mutex
	items map[domainlisting.ListingID]*domainlisting.Listing
}

func NewListingRepository() *ListingRepository {
	return &ListingRepository{items: make(map[domainlisting.ListingID]*domainlisting.Listing)}
}

// ByID returns a deep copy so concurrent callers each mutate their own view.
func (r *ListingRepository) ByID(ctx context.Context, id domainlisting.ListingID) (*domainlisting.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.items[id]
	if !ok {
		return nil, domainlisting.ErrNotFound
	}
	return cloneListing(l), nil
}

// Save applies a compare-and-swap on Version.
func (r *ListingRepository) Save(ctx context.Context, l *domainlisting.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.items[l.ID]
	if ok && stored.Version != l.Version {
		return domainlisting.ErrConcurrentUpdate
	}
	l.Version++
	r.items[l.ID] = cloneListing(l)
	return nil
}

func cloneListing(l *domainlisting.Listing) *domainlisting.Listing {
	clone := &domainlisting.Listing{
		ID:          l.ID,
		OwnerID:     l.OwnerID,
		Title:       l.Title,
		Price:       l.Price,
		IsAvailable: l.IsAvailable,
		Status:      l.Status,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
		Version:     l.Version,
	}
	clone.AvailableDates = make(map[daterange.Key]struct{}, len(l.AvailableDates))
	for k := range l.AvailableDates {
		clone.AvailableDates[k] = struct{}{}
	}
	return clone
}
