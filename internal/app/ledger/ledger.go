// Package ledger implements the availability-allocation engine. Every
// mutation of a listing's available-date set goes through Allocate/Release,
// each executed as a compare-and-swap with bounded retries.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"storeshare/internal/app/outbox"
	"storeshare/internal/domain/listing"
	"storeshare/internal/domain/shared/daterange"
)

const (
	DefaultMaxAttempts = 5
	DefaultBackoffBase = 20 * time.Millisecond
)

type Config struct {
	MaxAttempts int
	BackoffBase time.Duration
}

type Service struct {
	listings    listing.Repository
	box         outbox.Outbox
	encoder     outbox.EventEncoder
	logger      *slog.Logger
	clock       func() time.Time
	maxAttempts int
	backoffBase time.Duration
}

func New(listings listing.Repository, box outbox.Outbox, logger *slog.Logger, cfg Config) *Service {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = DefaultBackoffBase
	}
	return &Service{
		listings:    listings,
		box:         box,
		encoder:     outbox.JSONEventEncoder{},
		logger:      logger,
		clock:       func() time.Time { return time.Now().UTC() },
		maxAttempts: cfg.MaxAttempts,
		backoffBase: cfg.BackoffBase,
	}
}

// WithClock overrides the time source; used by tests.
func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

// Allocate removes every day key of r from the listing's available set inside
// a single read-verify-write cycle. Missing keys abort immediately with
// listing.ErrDatesUnavailable; write conflicts are retried with exponential
// backoff and surface the same error once attempts are exhausted, so under
// concurrent overlapping allocations at most one caller succeeds.
func (s *Service) Allocate(ctx context.Context, id listing.ListingID, r daterange.DateRange) error {
	if err := r.Validate(); err != nil {
		return err
	}
	return s.mutate(ctx, id, "allocate", func(l *listing.Listing, now time.Time) error {
		return l.AllocateRange(r, now)
	})
}

// Release unions the day keys of r back into the listing's available set and
// marks the listing bookable again. Releasing already-present keys is a no-op,
// so the operation is idempotent.
func (s *Service) Release(ctx context.Context, id listing.ListingID, r daterange.DateRange) error {
	if err := r.Validate(); err != nil {
		return err
	}
	return s.mutate(ctx, id, "release", func(l *listing.Listing, now time.Time) error {
		l.ReleaseRange(r, now)
		return nil
	})
}

func (s *Service) mutate(ctx context.Context, id listing.ListingID, op string, apply func(*listing.Listing, time.Time) error) error {
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		if attempt > 0 {
			if err := s.backoff(ctx, attempt); err != nil {
				return err
			}
		}
		l, err := s.listings.ByID(ctx, id)
		if err != nil {
			return err
		}
		if err := apply(l, s.clock()); err != nil {
			s.publish(ctx, l)
			return err
		}
		if err := s.listings.Save(ctx, l); err != nil {
			if errors.Is(err, listing.ErrConcurrentUpdate) {
				if s.logger != nil {
					s.logger.Debug("ledger write conflict, retrying", "op", op, "listing_id", id, "attempt", attempt+1)
				}
				continue
			}
			return err
		}
		s.publish(ctx, l)
		return nil
	}
	if s.logger != nil {
		s.logger.Warn("ledger retries exhausted", "op", op, "listing_id", id, "attempts", s.maxAttempts)
	}
	return fmt.Errorf("ledger: %s retries exhausted: %w", op, listing.ErrDatesUnavailable)
}

func (s *Service) backoff(ctx context.Context, attempt int) error {
	delay := s.backoffBase << (attempt - 1)
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *Service) publish(ctx context.Context, l *listing.Listing) {
	pending := l.PendingEvents()
	l.ClearEvents()
	if err := outbox.RecordDomainEvents(ctx, s.box, s.encoder, pending); err != nil && s.logger != nil {
		s.logger.Warn("ledger outbox record failed", "listing_id", l.ID, "error", err)
	}
}
