package booking

import (
	"context"
	"errors"
	"time"

	"storeshare/internal/domain/listing"
	"storeshare/internal/domain/shared/daterange"
	"storeshare/internal/domain/shared/events"
	"storeshare/internal/domain/shared/money"
)

var (
	ErrNotFound           = errors.New("booking: not found")
	ErrConcurrentUpdate   = errors.New("booking: concurrent update detected")
	ErrInvalidState       = errors.New("booking: invalid state transition")
	ErrClientRequired     = errors.New("booking: client id required")
	ErrHostRequired       = errors.New("booking: host id required")
	ErrStartInPast        = errors.New("booking: start date is in the past")
	ErrTotalMismatch      = errors.New("booking: total must equal storage fee plus platform fee")
	ErrCancellationWindow = errors.New("booking: cancellation window has closed")
)

type BookingID string

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Role distinguishes the two booking parties when listing or summarizing.
type Role string

const (
	RoleClient Role = "client"
	RoleHost   Role = "host"
)

// Booking is a reservation of a listing's dates. Range is immutable once
// created; Status only moves along the defined transitions.
type Booking struct {
	ID                 BookingID
	ListingID          listing.ListingID
	ClientID           string
	HostID             string
	Range              daterange.DateRange
	Status             Status
	StorageFee         money.Money
	PlatformFee        money.Money
	Total              money.Money
	CancellationReason string
	CreatedAt          time.Time
	UpdatedAt          time.Time
	Version            int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	// Save persists the booking with a compare-and-swap on Version.
	Save(ctx context.Context, b *Booking) error
	ListByClient(ctx context.Context, clientID string) ([]*Booking, error)
	ListByHost(ctx context.Context, hostID string) ([]*Booking, error)
	ListByStatus(ctx context.Context, status Status) ([]*Booking, error)
}

type CreateParams struct {
	ID          BookingID
	ListingID   listing.ListingID
	ClientID    string
	HostID      string
	Range       daterange.DateRange
	StorageFee  money.Money
	PlatformFee money.Money
	Total       money.Money
	CreatedAt   time.Time
}

func New(params CreateParams) (*Booking, error) {
	if params.ClientID == "" {
		return nil, ErrClientRequired
	}
	if params.HostID == "" {
		return nil, ErrHostRequired
	}
	if err := params.Range.Validate(); err != nil {
		return nil, err
	}
	sum, err := params.StorageFee.Add(params.PlatformFee)
	if err != nil {
		return nil, err
	}
	if sum != params.Total {
		return nil, ErrTotalMismatch
	}
	now := params.CreatedAt.UTC()
	b := &Booking{
		ID:          params.ID,
		ListingID:   params.ListingID,
		ClientID:    params.ClientID,
		HostID:      params.HostID,
		Range:       params.Range,
		Status:      StatusPending,
		StorageFee:  params.StorageFee,
		PlatformFee: params.PlatformFee,
		Total:       params.Total,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	b.Record(BookingRequested{BookingID: b.ID, ListingID: b.ListingID, ClientID: b.ClientID, HostID: b.HostID, Range: b.Range, Total: b.Total, At: now})
	return b, nil
}

// ValidateStart rejects ranges whose first day is before today.
func ValidateStart(r daterange.DateRange, now time.Time) error {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if r.Start.Before(today) {
		return ErrStartInPast
	}
	return nil
}

func (b *Booking) Confirm(now time.Time) error {
	if b.Status != StatusPending {
		return ErrInvalidState
	}
	b.Status = StatusConfirmed
	b.UpdatedAt = now.UTC()
	b.Record(BookingConfirmed{BookingID: b.ID, ListingID: b.ListingID, At: b.UpdatedAt})
	return nil
}

func (b *Booking) Activate(now time.Time) error {
	if b.Status != StatusConfirmed {
		return ErrInvalidState
	}
	b.Status = StatusActive
	b.UpdatedAt = now.UTC()
	b.Record(BookingActivated{BookingID: b.ID, At: b.UpdatedAt})
	return nil
}

func (b *Booking) Complete(now time.Time) error {
	if b.Status != StatusActive {
		return ErrInvalidState
	}
	b.Status = StatusCompleted
	b.UpdatedAt = now.UTC()
	b.Record(BookingCompleted{BookingID: b.ID, At: b.UpdatedAt})
	return nil
}

// Cancel moves a non-terminal booking to cancelled, enforcing the cutoff rule:
// inside the cutoff window before the start date cancellation is refused and
// the booking is left unchanged.
func (b *Booking) Cancel(reason string, cutoff time.Duration, now time.Time) error {
	if b.IsTerminal() {
		return ErrInvalidState
	}
	if b.Range.Start.Sub(now.UTC()) < cutoff {
		return ErrCancellationWindow
	}
	b.Status = StatusCancelled
	b.CancellationReason = reason
	b.UpdatedAt = now.UTC()
	b.Record(BookingCancelled{BookingID: b.ID, ListingID: b.ListingID, Range: b.Range, Reason: reason, At: b.UpdatedAt})
	return nil
}

func (b *Booking) IsTerminal() bool {
	return b.Status == StatusCompleted || b.Status == StatusCancelled
}

// Counterpart returns the other participant from userID's point of view.
func (b *Booking) Counterpart(userID string) string {
	if userID == b.ClientID {
		return b.HostID
	}
	return b.ClientID
}
