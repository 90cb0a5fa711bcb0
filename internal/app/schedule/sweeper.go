// Package schedule drives the date-reached transitions. The sweeper only
// compares wall-clock time against booking ranges and calls the same state
// machine entry points any other caller would use.
package schedule

import (
	"context"
	"log/slog"
	"time"

	domainbooking "storeshare/internal/domain/booking"
)

const DefaultInterval = time.Minute

// Machine is the slice of the booking service the sweeper drives.
type Machine interface {
	Activate(ctx context.Context, id domainbooking.BookingID) error
	Complete(ctx context.Context, id domainbooking.BookingID) error
}

type Sweeper struct {
	bookings domainbooking.Repository
	machine  Machine
	logger   *slog.Logger
	interval time.Duration
	clock    func() time.Time
}

func NewSweeper(bookings domainbooking.Repository, machine Machine, logger *slog.Logger, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Sweeper{
		bookings: bookings,
		machine:  machine,
		logger:   logger,
		interval: interval,
		clock:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce activates confirmed bookings whose start date has been reached
// and completes active bookings whose end date has passed.
func (s *Sweeper) SweepOnce(ctx context.Context) {
	now := s.clock()

	confirmed, err := s.bookings.ListByStatus(ctx, domainbooking.StatusConfirmed)
	if err != nil {
		s.warn("list confirmed failed", err)
	} else {
		for _, b := range confirmed {
			if b.Range.Start.After(now) {
				continue
			}
			if err := s.machine.Activate(ctx, b.ID); err != nil {
				s.warn("activation sweep failed", err, "booking_id", b.ID)
			}
		}
	}

	active, err := s.bookings.ListByStatus(ctx, domainbooking.StatusActive)
	if err != nil {
		s.warn("list active failed", err)
		return
	}
	for _, b := range active {
		// End is inclusive; completion happens once the end day is over.
		if !now.After(b.Range.End.AddDate(0, 0, 1)) {
			continue
		}
		if err := s.machine.Complete(ctx, b.ID); err != nil {
			s.warn("completion sweep failed", err, "booking_id", b.ID)
		}
	}
}

func (s *Sweeper) warn(msg string, err error, attrs ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, append([]any{"error", err}, attrs...)...)
	}
}
