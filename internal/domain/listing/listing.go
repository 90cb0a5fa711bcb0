package listing

import (
	"context"
	"errors"
	"time"

	"storeshare/internal/domain/shared/daterange"
	"storeshare/internal/domain/shared/events"
	"storeshare/internal/domain/shared/money"
)

var (
	ErrNotFound         = errors.New("listing: not found")
	ErrConcurrentUpdate = errors.New("listing: concurrent update detected")
	ErrDatesUnavailable = errors.New("listing: requested dates are not available")
	ErrOwnerRequired    = errors.New("listing: owner id required")
)

type ListingID string

type Status string

const (
	StatusActive      Status = "active"
	StatusFullyBooked Status = "fully_booked"
)

// Listing is a storage space offered by a host. AvailableDates is the
// per-listing availability ledger: a day key is a member iff no non-terminal
// booking covers it.
type Listing struct {
	ID             ListingID
	OwnerID        string
	Title          string
	Price          money.Money
	AvailableDates map[daterange.Key]struct{}
	IsAvailable    bool
	Status         Status
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Version        int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id ListingID) (*Listing, error)
	// Save persists the listing with a compare-and-swap on Version and
	// returns ErrConcurrentUpdate when another writer won the race.
	Save(ctx context.Context, l *Listing) error
}

type CreateParams struct {
	ID        ListingID
	OwnerID   string
	Title     string
	Price     money.Money
	Bookable  daterange.DateRange
	CreatedAt time.Time
}

func New(params CreateParams) (*Listing, error) {
	if params.OwnerID == "" {
		return nil, ErrOwnerRequired
	}
	if err := params.Bookable.Validate(); err != nil {
		return nil, err
	}
	now := params.CreatedAt.UTC()
	return &Listing{
		ID:             params.ID,
		OwnerID:        params.OwnerID,
		Title:          params.Title,
		Price:          params.Price,
		AvailableDates: params.Bookable.KeySet(),
		IsAvailable:    true,
		Status:         StatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// AllocateRange removes every day key of r from the available set. If any key
// is missing nothing is mutated and ErrDatesUnavailable is returned.
func (l *Listing) AllocateRange(r daterange.DateRange, now time.Time) error {
	keys := r.Keys()
	for _, k := range keys {
		if _, ok := l.AvailableDates[k]; !ok {
			l.Record(overbookingPreventedEvent(l.ID, r, now))
			return ErrDatesUnavailable
		}
	}
	for _, k := range keys {
		delete(l.AvailableDates, k)
	}
	if len(l.AvailableDates) == 0 {
		l.IsAvailable = false
		l.Status = StatusFullyBooked
	}
	l.UpdatedAt = now.UTC()
	l.Record(datesAllocatedEvent(l.ID, r, now))
	return nil
}

// ReleaseRange unions the day keys of r back into the available set.
// Re-adding an already-present key is a no-op.
func (l *Listing) ReleaseRange(r daterange.DateRange, now time.Time) {
	if l.AvailableDates == nil {
		l.AvailableDates = make(map[daterange.Key]struct{}, r.Days())
	}
	for _, k := range r.Keys() {
		l.AvailableDates[k] = struct{}{}
	}
	l.IsAvailable = true
	l.Status = StatusActive
	l.UpdatedAt = now.UTC()
	l.Record(datesReleasedEvent(l.ID, r, now))
}

// HasDates reports whether every day key of r is currently available.
func (l *Listing) HasDates(r daterange.DateRange) bool {
	for _, k := range r.Keys() {
		if _, ok := l.AvailableDates[k]; !ok {
			return false
		}
	}
	return true
}
