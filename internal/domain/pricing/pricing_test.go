package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storeshare/internal/domain/shared/money"
)

type fixedFee float64

func (f fixedFee) FeePercent() float64 { return float64(f) }

func TestComputeChargesFlatStorageFee(t *testing.T) {
	calc := NewCalculator(fixedFee(10))

	// 90 days at a $1.50 listing price still charges $1.50, not $1.50/day.
	b, err := calc.Compute(money.Must(150, "USD"), 90)
	require.NoError(t, err)

	assert.Equal(t, int64(150), b.StorageFee.Amount)
	assert.Equal(t, int64(15), b.PlatformFee.Amount)
	assert.Equal(t, int64(165), b.Total.Amount)
	assert.Equal(t, 90, b.Days)
}

func TestComputeTotalIsSumOfFees(t *testing.T) {
	calc := NewCalculator(fixedFee(12.5))

	for _, amount := range []int64{1, 99, 1000, 123457} {
		b, err := calc.Compute(money.Must(amount, "USD"), 7)
		require.NoError(t, err)
		sum, err := b.StorageFee.Add(b.PlatformFee)
		require.NoError(t, err)
		assert.Equal(t, b.Total, sum, "amount %d", amount)
	}
}

func TestComputePricePerDayIsDisplayOnly(t *testing.T) {
	calc := NewCalculator(fixedFee(10))

	b, err := calc.Compute(money.Must(3000, "USD"), 30)
	require.NoError(t, err)
	assert.Equal(t, int64(100), b.PricePerDay.Amount)
	// Single-day reservations keep the full price as the per-day figure.
	b, err = calc.Compute(money.Must(3000, "USD"), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), b.PricePerDay.Amount)
}

func TestComputeDefaultsFeePercent(t *testing.T) {
	calc := NewCalculator(nil)

	b, err := calc.Compute(money.Must(1000, "USD"), 3)
	require.NoError(t, err)
	assert.Equal(t, int64(100), b.PlatformFee.Amount)
}

func TestComputeRejectsInvalidInput(t *testing.T) {
	calc := NewCalculator(fixedFee(10))

	_, err := calc.Compute(money.Money{Currency: "USD"}, 3)
	assert.ErrorIs(t, err, ErrInvalidPrice)

	_, err = calc.Compute(money.Must(-5, "USD"), 3)
	assert.ErrorIs(t, err, ErrInvalidPrice)

	_, err = calc.Compute(money.Must(100, "USD"), 0)
	assert.ErrorIs(t, err, ErrInvalidDays)
}
