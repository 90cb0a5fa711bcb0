package listing

import (
	"time"

	"storeshare/internal/domain/shared/daterange"
)

type DatesAllocated struct {
	ListingID string
	Range     daterange.DateRange
	At        time.Time
}

func (e DatesAllocated) EventName() string     { return "ledger.allocated" }
func (e DatesAllocated) AggregateID() string   { return e.ListingID }
func (e DatesAllocated) OccurredAt() time.Time { return e.At }

type DatesReleased struct {
	ListingID string
	Range     daterange.DateRange
	At        time.Time
}

func (e DatesReleased) EventName() string     { return "ledger.released" }
func (e DatesReleased) AggregateID() string   { return e.ListingID }
func (e DatesReleased) OccurredAt() time.Time { return e.At }

type OverbookingPrevented struct {
	ListingID string
	Range     daterange.DateRange
	At        time.Time
}

func (e OverbookingPrevented) EventName() string     { return "ledger.conflict_detected" }
func (e OverbookingPrevented) AggregateID() string   { return e.ListingID }
func (e OverbookingPrevented) OccurredAt() time.Time { return e.At }

func datesAllocatedEvent(id ListingID, r daterange.DateRange, at time.Time) DatesAllocated {
	return DatesAllocated{ListingID: string(id), Range: r, At: at.UTC()}
}

func datesReleasedEvent(id ListingID, r daterange.DateRange, at time.Time) DatesReleased {
	return DatesReleased{ListingID: string(id), Range: r, At: at.UTC()}
}

func overbookingPreventedEvent(id ListingID, r daterange.DateRange, at time.Time) OverbookingPrevented {
	return OverbookingPrevented{ListingID: string(id), Range: r, At: at.UTC()}
}
