// Package booking drives reservations through their lifecycle: allocation,
// pricing, state transitions, and the booking-scoped messaging side effects.
package booking

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"storeshare/internal/app/chat"
	"storeshare/internal/app/ledger"
	"storeshare/internal/app/outbox"
	domainbooking "storeshare/internal/domain/booking"
	domainlisting "storeshare/internal/domain/listing"
	"storeshare/internal/domain/pricing"
	"storeshare/internal/domain/shared/daterange"
)

var ErrUserRequired = errors.New("booking: user id required")

// Updates is the slice of the conversation router the state machine needs.
type Updates interface {
	SendBookingUpdate(ctx context.Context, p chat.BookingUpdateParams) error
}

type Service struct {
	bookings domainbooking.Repository
	listings domainlisting.Repository
	ledger   *ledger.Service
	pricing  *pricing.Calculator
	updates  Updates
	box      outbox.Outbox
	encoder  outbox.EventEncoder
	logger   *slog.Logger
	clock    func() time.Time
	newID    func() string
	cutoff   time.Duration
}

type Config struct {
	CancellationCutoff time.Duration
}

func NewService(
	bookings domainbooking.Repository,
	listings domainlisting.Repository,
	ledgerSvc *ledger.Service,
	calc *pricing.Calculator,
	updates Updates,
	box outbox.Outbox,
	logger *slog.Logger,
	cfg Config,
) *Service {
	if cfg.CancellationCutoff <= 0 {
		cfg.CancellationCutoff = domainbooking.DefaultCancellationCutoff
	}
	return &Service{
		bookings: bookings,
		listings: listings,
		ledger:   ledgerSvc,
		pricing:  calc,
		updates:  updates,
		box:      box,
		encoder:  outbox.JSONEventEncoder{},
		logger:   logger,
		clock:    func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
		cutoff:   cfg.CancellationCutoff,
	}
}

// WithClock overrides the time source; used by tests.
func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

type CreateInput struct {
	ListingID domainlisting.ListingID
	ClientID  string
	StartDate time.Time
	EndDate   time.Time
}

type CreateResult struct {
	Booking   *domainbooking.Booking
	Breakdown pricing.Breakdown
}

// Create turns a reservation request into a pending booking. The ledger
// allocation strictly happens before the booking record is written; if the
// write fails afterwards the allocation is compensated with a release, so no
// orphan booking or orphan allocation can survive.
func (s *Service) Create(ctx context.Context, in CreateInput) (*CreateResult, error) {
	if in.ClientID == "" {
		return nil, ErrUserRequired
	}
	dr, err := daterange.New(in.StartDate, in.EndDate)
	if err != nil {
		return nil, err
	}
	now := s.clock()
	if err := domainbooking.ValidateStart(dr, now); err != nil {
		return nil, err
	}

	l, err := s.listings.ByID(ctx, in.ListingID)
	if err != nil {
		return nil, err
	}
	breakdown, err := s.pricing.Compute(l.Price, dr.Days())
	if err != nil {
		return nil, err
	}

	if err := s.ledger.Allocate(ctx, l.ID, dr); err != nil {
		return nil, err
	}

	b, err := domainbooking.New(domainbooking.CreateParams{
		ID:          domainbooking.BookingID(s.newID()),
		ListingID:   l.ID,
		ClientID:    in.ClientID,
		HostID:      l.OwnerID,
		Range:       dr,
		StorageFee:  breakdown.StorageFee,
		PlatformFee: breakdown.PlatformFee,
		Total:       breakdown.Total,
		CreatedAt:   now,
	})
	if err != nil {
		s.compensate(ctx, l.ID, dr)
		return nil, err
	}
	if err := s.bookings.Save(ctx, b); err != nil {
		s.compensate(ctx, l.ID, dr)
		return nil, err
	}

	s.drainEvents(ctx, b)
	s.notifyUpdate(ctx, chat.BookingUpdateParams{
		BookingID:    string(b.ID),
		ReceiverID:   b.HostID,
		Status:       string(domainbooking.StatusPending),
		ListingTitle: l.Title,
	})
	return &CreateResult{Booking: b, Breakdown: breakdown}, nil
}

// Confirm moves a pending booking to confirmed and tells the client.
func (s *Service) Confirm(ctx context.Context, id domainbooking.BookingID) error {
	b, err := s.bookings.ByID(ctx, id)
	if err != nil {
		return err
	}
	if err := b.Confirm(s.clock()); err != nil {
		return err
	}
	if err := s.bookings.Save(ctx, b); err != nil {
		return err
	}
	s.drainEvents(ctx, b)
	s.notifyUpdate(ctx, chat.BookingUpdateParams{
		BookingID:    string(b.ID),
		ReceiverID:   b.ClientID,
		Status:       string(domainbooking.StatusConfirmed),
		ListingTitle: s.titleFor(ctx, b.ListingID),
	})
	return nil
}

// Cancel applies the cutoff rule, releases the allocated dates, and tells the
// cancelling party's counterpart. A refused cancellation leaves the booking
// untouched.
func (s *Service) Cancel(ctx context.Context, id domainbooking.BookingID, cancelledBy, reason string) error {
	b, err := s.bookings.ByID(ctx, id)
	if err != nil {
		return err
	}
	if err := b.Cancel(reason, s.cutoff, s.clock()); err != nil {
		return err
	}
	if err := s.bookings.Save(ctx, b); err != nil {
		return err
	}
	if err := s.ledger.Release(ctx, b.ListingID, b.Range); err != nil {
		// The booking is already cancelled; the release retries internally,
		// so reaching this point means the listing needs operator attention.
		if s.logger != nil {
			s.logger.Error("release after cancellation failed", "booking_id", b.ID, "listing_id", b.ListingID, "error", err)
		}
		return err
	}
	s.drainEvents(ctx, b)
	s.notifyUpdate(ctx, chat.BookingUpdateParams{
		BookingID:    string(b.ID),
		ReceiverID:   b.Counterpart(cancelledBy),
		Status:       string(domainbooking.StatusCancelled),
		ListingTitle: s.titleFor(ctx, b.ListingID),
	})
	return nil
}

// Activate is invoked by the scheduler when a confirmed booking's start date
// is reached.
func (s *Service) Activate(ctx context.Context, id domainbooking.BookingID) error {
	return s.transition(ctx, id, domainbooking.StatusActive, (*domainbooking.Booking).Activate)
}

// Complete is invoked by the scheduler when an active booking's end date has
// passed.
func (s *Service) Complete(ctx context.Context, id domainbooking.BookingID) error {
	return s.transition(ctx, id, domainbooking.StatusCompleted, (*domainbooking.Booking).Complete)
}

func (s *Service) transition(ctx context.Context, id domainbooking.BookingID, to domainbooking.Status, apply func(*domainbooking.Booking, time.Time) error) error {
	b, err := s.bookings.ByID(ctx, id)
	if err != nil {
		return err
	}
	if err := apply(b, s.clock()); err != nil {
		return err
	}
	if err := s.bookings.Save(ctx, b); err != nil {
		return err
	}
	s.drainEvents(ctx, b)
	s.notifyUpdate(ctx, chat.BookingUpdateParams{
		BookingID:    string(b.ID),
		ReceiverID:   b.ClientID,
		Status:       string(to),
		ListingTitle: s.titleFor(ctx, b.ListingID),
	})
	return nil
}

// CanCancel mirrors the cancellation gate for UI collaborators.
func (s *Service) CanCancel(b *domainbooking.Booking) bool {
	return domainbooking.CanCancel(b, s.cutoff, s.clock())
}

// CancellationMessage returns advisory policy text for the booking.
func (s *Service) CancellationMessage(b *domainbooking.Booking) string {
	return domainbooking.CancellationMessage(b, s.cutoff, s.clock())
}

// ListForUser groups the user's bookings by status.
func (s *Service) ListForUser(ctx context.Context, userID string, role domainbooking.Role) (map[domainbooking.Status][]*domainbooking.Booking, error) {
	if userID == "" {
		return nil, ErrUserRequired
	}
	var (
		bookings []*domainbooking.Booking
		err      error
	)
	switch role {
	case domainbooking.RoleHost:
		bookings, err = s.bookings.ListByHost(ctx, userID)
	default:
		bookings, err = s.bookings.ListByClient(ctx, userID)
	}
	if err != nil {
		return nil, err
	}
	grouped := make(map[domainbooking.Status][]*domainbooking.Booking)
	for _, b := range bookings {
		grouped[b.Status] = append(grouped[b.Status], b)
	}
	return grouped, nil
}

func (s *Service) compensate(ctx context.Context, id domainlisting.ListingID, dr daterange.DateRange) {
	if err := s.ledger.Release(ctx, id, dr); err != nil && s.logger != nil {
		s.logger.Error("allocation compensation failed", "listing_id", id, "error", err)
	}
}

func (s *Service) drainEvents(ctx context.Context, b *domainbooking.Booking) {
	pending := b.PendingEvents()
	b.ClearEvents()
	if err := outbox.RecordDomainEvents(ctx, s.box, s.encoder, pending); err != nil && s.logger != nil {
		s.logger.Warn("booking outbox record failed", "booking_id", b.ID, "error", err)
	}
}

func (s *Service) notifyUpdate(ctx context.Context, p chat.BookingUpdateParams) {
	if s.updates == nil {
		return
	}
	if err := s.updates.SendBookingUpdate(ctx, p); err != nil && s.logger != nil {
		s.logger.Warn("booking update message failed", "booking_id", p.BookingID, "status", p.Status, "error", err)
	}
}

func (s *Service) titleFor(ctx context.Context, id domainlisting.ListingID) string {
	l, err := s.listings.ByID(ctx, id)
	if err != nil {
		return ""
	}
	return l.Title
}
