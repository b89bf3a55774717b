package ledger

import (
	"math/rand"
	"testing"

	"gridflow/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuyThenSell(t *testing.T) {
	l := New(10000)

	tr, err := l.Buy("AAPL", 10, 100)
	require.NoError(t, err)
	assert.Equal(t, model.ActionBuy, tr.Action)
	assert.Equal(t, -1000.0, tr.CashDelta)
	assert.Equal(t, 9000.0, l.Cash())
	pos, ok := l.Position("AAPL")
	require.True(t, ok)
	assert.Equal(t, model.Position{Quantity: 10, AverageCost: 100}, pos)

	tr, err = l.Sell("AAPL", 110)
	require.NoError(t, err)
	assert.Equal(t, 10100.0, l.Cash())
	assert.Equal(t, 100.0, tr.RealizedProfit)
	assert.Equal(t, 1100.0, tr.CashDelta)
	assert.Equal(t, 10.0, tr.Quantity)
	_, ok = l.Position("AAPL")
	assert.False(t, ok)
}

func TestWeightedAverageCost(t *testing.T) {
	l := New(10000)
	_, err := l.Buy("X", 10, 100)
	require.NoError(t, err)
	_, err = l.Buy("X", 30, 120)
	require.NoError(t, err)
	pos, _ := l.Position("X")
	assert.Equal(t, 40.0, pos.Quantity)
	assert.InDelta(t, 115.0, pos.AverageCost, 1e-9)

	tr, err := l.Sell("X", 115)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, tr.RealizedProfit, 1e-9)
	assert.InDelta(t, 10000.0, l.Cash(), 1e-9)
}

func TestSellWithoutPositionRejected(t *testing.T) {
	l := New(500)
	_, err := l.Sell("AAPL", 100)
	assert.ErrorIs(t, err, ErrNoPosition)
	assert.Equal(t, 500.0, l.Cash())
	assert.Empty(t, l.Positions())
}

func TestBuyInsufficientCashNoMutation(t *testing.T) {
	l := New(999)
	_, err := l.Buy("AAPL", 10, 100)
	assert.ErrorIs(t, err, ErrInsufficientCash)
	assert.Equal(t, 999.0, l.Cash())
	assert.Empty(t, l.Symbols())

	_, err = l.Buy("AAPL", 0, 100)
	assert.ErrorIs(t, err, ErrInvalidOrder)
}

func TestCashNeverNegative(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	l := New(5000)
	symbols := []string{"A", "B", "C"}
	for i := 0; i < 2000; i++ {
		s := symbols[rng.Intn(len(symbols))]
		price := 1 + rng.Float64()*200
		if rng.Intn(2) == 0 {
			_, _ = l.Buy(s, float64(1+rng.Intn(50)), price)
		} else {
			_, _ = l.Sell(s, price)
		}
		require.GreaterOrEqual(t, l.Cash(), 0.0)
	}
}

func TestValuationAndSeed(t *testing.T) {
	l := New(1000)
	require.NoError(t, l.Seed("AAPL", 5, 100))
	assert.Error(t, l.Seed("MSFT", 0, 100))

	assert.Equal(t, 500.0, l.PositionsValue(nil))
	assert.Equal(t, 600.0, l.PositionsValue(map[string]float64{"AAPL": 120}))
	assert.Equal(t, 1600.0, l.TotalValue(map[string]float64{"AAPL": 120}))

	c := l.Clone()
	l.Reset(1000)
	assert.Empty(t, l.Positions())
	_, ok := c.Position("AAPL")
	assert.True(t, ok)
}
