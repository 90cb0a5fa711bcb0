package daterange

import (
	"errors"
	"time"
)

var ErrInvalidRange = errors.New("daterange: end date must not be before start date")

// KeyLayout is the canonical day-granularity format used for allocation keys.
const KeyLayout = "2006-01-02"

// Key identifies a single bookable calendar day.
type Key string

// DateRange represents an inclusive interval of calendar days [Start, End].
// Both bounds are normalized to UTC midnight.
type DateRange struct {
	Start time.Time
	End   time.Time
}

func New(start, end time.Time) (DateRange, error) {
	dr := DateRange{Start: truncateDay(start), End: truncateDay(end)}
	if err := dr.Validate(); err != nil {
		return DateRange{}, err
	}
	return dr, nil
}

func (dr DateRange) Validate() error {
	if dr.Start.IsZero() || dr.End.IsZero() {
		return ErrInvalidRange
	}
	if dr.End.Before(dr.Start) {
		return ErrInvalidRange
	}
	return nil
}

// Days returns the inclusive number of calendar days covered by the range.
func (dr DateRange) Days() int {
	return int(dr.End.Sub(dr.Start).Hours()/24) + 1
}

// Keys expands the range into its ordered day keys.
func (dr DateRange) Keys() []Key {
	keys := make([]Key, 0, dr.Days())
	for d := dr.Start; !d.After(dr.End); d = d.AddDate(0, 0, 1) {
		keys = append(keys, Key(d.Format(KeyLayout)))
	}
	return keys
}

// KeySet expands the range into a membership set of day keys.
func (dr DateRange) KeySet() map[Key]struct{} {
	set := make(map[Key]struct{}, dr.Days())
	for _, k := range dr.Keys() {
		set[k] = struct{}{}
	}
	return set
}

func (dr DateRange) Overlaps(other DateRange) bool {
	return !dr.Start.After(other.End) && !other.Start.After(dr.End)
}

func (dr DateRange) ContainsDay(t time.Time) bool {
	day := truncateDay(t)
	return !day.Before(dr.Start) && !day.After(dr.End)
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
