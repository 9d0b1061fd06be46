package common

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func validOrder() Order {
	return Order{
		ID:         "o1",
		BuyToken:   "token0",
		SellToken:  "token1",
		MaxSell:    big.NewRat(10, 1),
		LimitPrice: big.NewRat(3, 2),
	}
}

func TestOrderValidate(t *testing.T) {
	assert.NoError(t, validOrder().Validate())

	missing := validOrder()
	missing.SellToken = ""
	assert.ErrorIs(t, missing.Validate(), ErrMissingToken)

	self := validOrder()
	self.SellToken = self.BuyToken
	assert.ErrorIs(t, self.Validate(), ErrSelfToken)

	zeroSell := validOrder()
	zeroSell.MaxSell = new(big.Rat)
	assert.ErrorIs(t, zeroSell.Validate(), ErrNonPositiveSell)

	negRate := validOrder()
	negRate.LimitPrice = big.NewRat(-1, 2)
	assert.ErrorIs(t, negRate.Validate(), ErrNonPositiveRate)

	nilSell := validOrder()
	nilSell.MaxSell = nil
	assert.ErrorIs(t, nilSell.Validate(), ErrNonPositiveSell)
}

func TestSolutionExecutionFor(t *testing.T) {
	solution := &Solution{
		Rate:      big.NewRat(1, 1),
		Objective: new(big.Rat),
		Executions: []Execution{
			{OrderID: "a", Buy: big.NewRat(1, 1), Sell: big.NewRat(1, 1)},
		},
	}

	exec, ok := solution.ExecutionFor("a")
	assert.True(t, ok)
	assert.Equal(t, "a", exec.OrderID)

	_, ok = solution.ExecutionFor("missing")
	assert.False(t, ok)
}
