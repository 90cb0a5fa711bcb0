package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidatesCurrency(t *testing.T) {
	m, err := New(1500, "usd")
	require.NoError(t, err)
	assert.Equal(t, Money{Amount: 1500, Currency: "USD"}, m)

	_, err = New(1500, "dollars")
	assert.ErrorIs(t, err, ErrInvalidCurrency)
}

func TestAddRequiresMatchingCurrency(t *testing.T) {
	sum, err := Must(1000, "USD").Add(Must(250, "USD"))
	require.NoError(t, err)
	assert.Equal(t, int64(1250), sum.Amount)

	_, err = Must(1000, "USD").Add(Must(250, "EUR"))
	assert.ErrorIs(t, err, ErrCurrencyMismatch)
}

func TestPercentRoundsHalfAwayFromZero(t *testing.T) {
	assert.Equal(t, int64(15), Must(150, "USD").Percent(10).Amount)
	assert.Equal(t, int64(13), Must(125, "USD").Percent(10).Amount)
	assert.Equal(t, int64(0), Must(100, "USD").Percent(0).Amount)
}

func TestDivide(t *testing.T) {
	assert.Equal(t, int64(50), Must(150, "USD").Divide(3).Amount)
	assert.Equal(t, int64(1), Must(150, "USD").Divide(90).Amount)
	assert.Equal(t, int64(0), Must(150, "USD").Divide(0).Amount)
}

func TestPredicates(t *testing.T) {
	assert.True(t, Must(1, "USD").IsPositive())
	assert.False(t, Money{Currency: "USD"}.IsPositive())
	assert.True(t, Money{Currency: "USD"}.IsZero())
}
