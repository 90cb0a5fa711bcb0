package pricing

import (
	"errors"

	"storeshare/internal/domain/shared/money"
)

var (
	ErrInvalidPrice = errors.New("pricing: storage price must be positive")
	ErrInvalidDays  = errors.New("pricing: days must be positive")
)

// DefaultFeePercent is used when no configuration collaborator is wired.
const DefaultFeePercent = 10.0

// Breakdown is the authoritative fee decomposition for a reservation.
// The invariant Total = StorageFee + PlatformFee holds for every valid input.
type Breakdown struct {
	StorageFee  money.Money
	PlatformFee money.Money
	Total       money.Money
	PricePerDay money.Money
	Days        int
}

// FeeSource supplies the platform fee percentage, read at computation time.
type FeeSource interface {
	FeePercent() float64
}

// Calculator computes reservation fee breakdowns. It is pure: no side
// effects, and no failure modes beyond input validation.
type Calculator struct {
	fees FeeSource
}

func NewCalculator(fees FeeSource) *Calculator {
	return &Calculator{fees: fees}
}

// Compute treats the configured listing price as the full reservation price.
// It is deliberately not divided by days; PricePerDay is display-only and
// never feeds the total.
func (c *Calculator) Compute(storagePrice money.Money, days int) (Breakdown, error) {
	if !storagePrice.IsPositive() {
		return Breakdown{}, ErrInvalidPrice
	}
	if days <= 0 {
		return Breakdown{}, ErrInvalidDays
	}
	storageFee := storagePrice
	platformFee := storageFee.Percent(c.feePercent())
	total, err := storageFee.Add(platformFee)
	if err != nil {
		return Breakdown{}, err
	}
	perDay := storageFee
	if days > 1 {
		perDay = storageFee.Divide(int64(days))
	}
	return Breakdown{
		StorageFee:  storageFee,
		PlatformFee: platformFee,
		Total:       total,
		PricePerDay: perDay,
		Days:        days,
	}, nil
}

func (c *Calculator) feePercent() float64 {
	if c.fees == nil {
		return DefaultFeePercent
	}
	return c.fees.FeePercent()
}
