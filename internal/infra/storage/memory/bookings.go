package memory

import (
	"context"
	"sync"

	domainbooking "storeshare/internal/domain/booking"
	"storeshare/internal/domain/shared/events"
)

// BookingRepository stores bookings in memory with versioned saves.
type BookingRepository struct {
	mu    sync.Mutex
	items map[domainbooking.BookingID]*domainbooking.Booking
}

func NewBookingRepository() *BookingRepository {
	return &BookingRepository{items: make(map[domainbooking.BookingID]*domainbooking.Booking)}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.items[id]
	if !ok {
		return nil, domainbooking.ErrNotFound
	}
	return cloneBooking(b), nil
}

func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.items[b.ID]
	if ok && stored.Version != b.Version {
		return domainbooking.ErrConcurrentUpdate
	}
	b.Version++
	r.items[b.ID] = cloneBooking(b)
	return nil
}

func (r *BookingRepository) ListByClient(ctx context.Context, clientID string) ([]*domainbooking.Booking, error) {
	return r.filter(func(b *domainbooking.Booking) bool { return b.ClientID == clientID }), nil
}

func (r *BookingRepository) ListByHost(ctx context.Context, hostID string) ([]*domainbooking.Booking, error) {
	return r.filter(func(b *domainbooking.Booking) bool { return b.HostID == hostID }), nil
}

func (r *BookingRepository) ListByStatus(ctx context.Context, status domainbooking.Status) ([]*domainbooking.Booking, error) {
	return r.filter(func(b *domainbooking.Booking) bool { return b.Status == status }), nil
}

func (r *BookingRepository) filter(keep func(*domainbooking.Booking) bool) []*domainbooking.Booking {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domainbooking.Booking, 0)
	for _, b := range r.items {
		if keep(b) {
			out = append(out, cloneBooking(b))
		}
	}
	return out
}

func cloneBooking(b *domainbooking.Booking) *domainbooking.Booking {
	clone := *b
	clone.EventRecorder = events.EventRecorder{}
	return &clone
}
