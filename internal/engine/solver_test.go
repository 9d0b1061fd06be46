package engine

import (
	"math/big"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mimir/internal/common"
)

// --- Setup & Helpers --------------------------------------------------------

const (
	base  = "token0"
	quote = "token1"
)

func rat(t *testing.T, s string) *big.Rat {
	t.Helper()
	r, ok := new(big.Rat).SetString(s)
	require.True(t, ok, "bad rational literal %q", s)
	return r
}

// buyOrder buys the base token, selling up to maxSell quote.
func buyOrder(t *testing.T, id, limit, maxSell string) *common.Order {
	t.Helper()
	return &common.Order{
		ID:         id,
		BuyToken:   base,
		SellToken:  quote,
		MaxSell:    rat(t, maxSell),
		LimitPrice: rat(t, limit),
	}
}

// sellOrder sells the base token, selling up to maxSell base.
func sellOrder(t *testing.T, id, limit, maxSell string) *common.Order {
	t.Helper()
	return &common.Order{
		ID:         id,
		BuyToken:   quote,
		SellToken:  base,
		MaxSell:    rat(t, maxSell),
		LimitPrice: rat(t, limit),
	}
}

func assertExecution(t *testing.T, solution *common.Solution, orderID, buy, sell string) {
	t.Helper()
	exec, ok := solution.ExecutionFor(orderID)
	require.True(t, ok, "order %s did not execute", orderID)
	assert.Zero(t, rat(t, buy).Cmp(exec.Buy), "order %s buy: want %s got %s", orderID, buy, exec.Buy.RatString())
	assert.Zero(t, rat(t, sell).Cmp(exec.Sell), "order %s sell: want %s got %s", orderID, sell, exec.Sell.RatString())
}

// --- Tests ------------------------------------------------------------------

func TestSolve_SymmetricTrivial(t *testing.T) {
	orders := []*common.Order{
		buyOrder(t, "b1", "2", "10"),
		sellOrder(t, "s1", "2", "10"),
	}

	solution, err := Solve(orders, base, quote)
	require.NoError(t, err)

	// Symmetric books clear at rate 1 with both orders fully filled.
	assert.Zero(t, rat(t, "1").Cmp(solution.Rate))
	assert.Zero(t, rat(t, "10").Cmp(solution.Objective))
	assertExecution(t, solution, "b1", "10", "10")
	assertExecution(t, solution, "s1", "10", "10")
}

func TestSolve_DegenerateDomain(t *testing.T) {
	// r_min == r_max == 1: the domain collapses to a single rate. The
	// engine treats the point as a candidate and clears the trivial
	// execution at it, with zero utility for both limit orders.
	orders := []*common.Order{
		buyOrder(t, "b1", "1", "5"),
		sellOrder(t, "s1", "1", "5"),
	}

	solution, err := Solve(orders, base, quote)
	require.NoError(t, err)

	assert.Zero(t, rat(t, "1").Cmp(solution.Rate))
	assert.Zero(t, solution.Objective.Sign())
	assertExecution(t, solution, "b1", "5", "5")
	assertExecution(t, solution, "s1", "5", "5")
}

func TestSolve_NoOverlap(t *testing.T) {
	// The buy side tolerates at most 1 quote/base, the sell side demands
	// at least 2: no feasible rate.
	orders := []*common.Order{
		buyOrder(t, "b1", "1", "5"),
		sellOrder(t, "s1", "1/2", "5"),
	}

	solution, err := Solve(orders, base, quote)
	assert.ErrorIs(t, err, ErrNoMatch)
	assert.Nil(t, solution)
}

func TestSolve_OneSidedBook(t *testing.T) {
	orders := []*common.Order{
		buyOrder(t, "b1", "2", "10"),
	}

	_, err := Solve(orders, base, quote)
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestSolve_SellSideSurplus(t *testing.T) {
	// A deep sell side against a small buy order. The optimum sits on the
	// sell-side limit boundary r = 1/3, where the whole sell capacity is
	// absorbed and the buy order captures its full utility:
	// f = (2*10-10) * (3-1/3)/(3*1/3) = 80/3.
	orders := []*common.Order{
		buyOrder(t, "b1", "3", "10"),
		sellOrder(t, "s1", "3", "30"),
	}

	solution, err := Solve(orders, base, quote)
	require.NoError(t, err)

	assert.Zero(t, rat(t, "1/3").Cmp(solution.Rate))
	assert.Zero(t, rat(t, "80/3").Cmp(solution.Objective))
	assert.Positive(t, solution.Objective.Sign())
	assertExecution(t, solution, "b1", "30", "10")
	assertExecution(t, solution, "s1", "10", "30")
}

func TestSolve_TwoByTwo(t *testing.T) {
	// Two buys against two sells with interleaved limit prices. The
	// balance root of the partition with all four orders filled wins at
	// r = 1, beating the interior stationary rates of every neighbouring
	// partition.
	orders := []*common.Order{
		buyOrder(t, "b1", "2", "1"),
		buyOrder(t, "b2", "5/2", "1"),
		sellOrder(t, "s1", "3", "1"),
		sellOrder(t, "s2", "2", "1"),
	}

	solution, err := Solve(orders, base, quote)
	require.NoError(t, err)

	assert.Zero(t, rat(t, "1").Cmp(solution.Rate))
	assert.Zero(t, rat(t, "34/15").Cmp(solution.Objective))
	assert.Len(t, solution.Executions, 4)
	assertExecution(t, solution, "b1", "1", "1")
	assertExecution(t, solution, "b2", "1", "1")
	assertExecution(t, solution, "s1", "1", "1")
	assertExecution(t, solution, "s2", "1", "1")
}

func TestSolve_DominantLimits(t *testing.T) {
	// Wide limits on both sides: any rate in [1/100, 100] matches, the
	// objective is maximised at the balanced rate 1.
	orders := []*common.Order{
		buyOrder(t, "b1", "100", "1"),
		sellOrder(t, "s1", "100", "1"),
	}

	solution, err := Solve(orders, base, quote)
	require.NoError(t, err)

	assert.Zero(t, rat(t, "1").Cmp(solution.Rate))
	assert.Zero(t, rat(t, "99/50").Cmp(solution.Objective))
}

func TestSolve_ScaleInvariance(t *testing.T) {
	// Scaling every max sell amount by 1000 scales the executed amounts
	// and the objective by 1000 and leaves the rate unchanged.
	orders := []*common.Order{
		buyOrder(t, "b1", "2", "10000"),
		sellOrder(t, "s1", "2", "10000"),
	}

	solution, err := Solve(orders, base, quote)
	require.NoError(t, err)

	assert.Zero(t, rat(t, "1").Cmp(solution.Rate))
	assert.Zero(t, rat(t, "10000").Cmp(solution.Objective))
	assertExecution(t, solution, "b1", "10000", "10000")
	assertExecution(t, solution, "s1", "10000", "10000")
}

func TestSolve_SwapSymmetry(t *testing.T) {
	orders := []*common.Order{
		buyOrder(t, "b1", "3", "10"),
		sellOrder(t, "s1", "3", "30"),
	}

	// 1. Solve the pair in both directions.
	solution, err := Solve(orders, base, quote)
	require.NoError(t, err)
	swapped, err := Solve(orders, quote, base)
	require.NoError(t, err)

	// 2. The rates are inverses and the executed amounts identical.
	assert.Zero(t, rinv(solution.Rate).Cmp(swapped.Rate))
	require.Len(t, swapped.Executions, len(solution.Executions))
	for _, exec := range solution.Executions {
		mirror, ok := swapped.ExecutionFor(exec.OrderID)
		require.True(t, ok)
		assert.Zero(t, exec.Sell.Cmp(mirror.Sell))
		assert.Zero(t, exec.Buy.Cmp(mirror.Buy))
	}
}

func TestSolve_BeatsEverySingleOrderExecution(t *testing.T) {
	orders := []*common.Order{
		buyOrder(t, "b1", "2", "1"),
		buyOrder(t, "b2", "5/2", "1"),
		sellOrder(t, "s1", "3", "1"),
		sellOrder(t, "s2", "2", "1"),
	}

	solution, err := Solve(orders, base, quote)
	require.NoError(t, err)

	// The reported objective dominates the trivial execution pinned at
	// every order's limit price.
	c := Classify(orders, base, quote)
	for _, order := range c.Buys {
		trivial, err := evaluate(c, order.LimitPrice)
		if err != nil {
			continue
		}
		assert.GreaterOrEqual(t, solution.Objective.Cmp(trivial.obj), 0)
	}
	for _, order := range c.Sells {
		trivial, err := evaluate(c, rinv(order.LimitPrice))
		if err != nil {
			continue
		}
		assert.GreaterOrEqual(t, solution.Objective.Cmp(trivial.obj), 0)
	}
}

func TestSolve_ParallelMatchesSerial(t *testing.T) {
	orders := []*common.Order{
		buyOrder(t, "b1", "2", "1"),
		buyOrder(t, "b2", "5/2", "1"),
		buyOrder(t, "b3", "7/4", "3"),
		sellOrder(t, "s1", "3", "1"),
		sellOrder(t, "s2", "2", "1"),
		sellOrder(t, "s3", "5", "2"),
	}

	serial, err := Solve(orders, base, quote)
	require.NoError(t, err)

	parallel := &Solver{Workers: 4}
	got, err := parallel.Solve(orders, base, quote)
	require.NoError(t, err)

	// The argmax reduction is commutative and ties break on the rate, so
	// the pool must land on the identical solution.
	assert.Zero(t, serial.Rate.Cmp(got.Rate))
	assert.Zero(t, serial.Objective.Cmp(got.Objective))
	assert.Equal(t, len(serial.Executions), len(got.Executions))
}

func TestSolve_InvalidOrder(t *testing.T) {
	orders := []*common.Order{
		buyOrder(t, "b1", "2", "10"),
		{ID: "bad", BuyToken: base, SellToken: base, MaxSell: rat(t, "1"), LimitPrice: rat(t, "1")},
	}

	_, err := Solve(orders, base, quote)
	assert.ErrorIs(t, err, common.ErrSelfToken)
}

// TestSolve_RandomInvariants solves a spread of small random batches and
// checks every returned solution against the clearing invariants: amounts
// within bounds, limits respected, exact token balance, price-priority
// fills, and at least one executable side fully filled.
func TestSolve_RandomInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	randRat := func() *big.Rat {
		return big.NewRat(int64(rng.Intn(40)+1), int64(rng.Intn(10)+1))
	}

	for trial := 0; trial < 200; trial++ {
		var orders []*common.Order
		c := 0
		for i := 0; i < rng.Intn(4)+1; i++ {
			c++
			orders = append(orders, &common.Order{
				ID: "b" + string(rune('0'+c)), BuyToken: base, SellToken: quote,
				MaxSell: randRat(), LimitPrice: randRat(),
			})
		}
		for j := 0; j < rng.Intn(4)+1; j++ {
			c++
			orders = append(orders, &common.Order{
				ID: "s" + string(rune('0'+c)), BuyToken: quote, SellToken: base,
				MaxSell: randRat(), LimitPrice: randRat(),
			})
		}

		solution, err := Solve(orders, base, quote)
		if err != nil {
			assert.ErrorIs(t, err, ErrNoMatch)
			continue
		}
		assertClearingInvariants(t, orders, solution)
	}
}

func assertClearingInvariants(t *testing.T, orders []*common.Order, solution *common.Solution) {
	t.Helper()
	rate := solution.Rate

	c := Classify(orders, base, quote)
	execs := reconstruct(c, rate)
	require.NoError(t, execs.verify(c))

	// Bounds and limit prices per order.
	buyTotal, sellTotal := new(big.Rat), new(big.Rat)
	for i, order := range c.Buys {
		sold := execs.buySell[i]
		assert.GreaterOrEqual(t, sold.Sign(), 0)
		assert.LessOrEqual(t, sold.Cmp(order.MaxSell), 0)
		if sold.Sign() > 0 {
			assert.LessOrEqual(t, rate.Cmp(order.LimitPrice), 0)
		}
		// Price priority: a positive fill requires every more permissive
		// buy order to be fully filled.
		if sold.Sign() > 0 && i > 0 {
			assert.Zero(t, execs.buySell[i-1].Cmp(c.Buys[i-1].MaxSell))
		}
		buyTotal.Add(buyTotal, sold)
	}
	for j, order := range c.Sells {
		sold := execs.sellSell[j]
		assert.GreaterOrEqual(t, sold.Sign(), 0)
		assert.LessOrEqual(t, sold.Cmp(order.MaxSell), 0)
		if sold.Sign() > 0 {
			assert.GreaterOrEqual(t, rmul(order.LimitPrice, rate).Cmp(ratOne), 0)
		}
		if sold.Sign() > 0 && j > 0 {
			assert.Zero(t, execs.sellSell[j-1].Cmp(c.Sells[j-1].MaxSell))
		}
		sellTotal.Add(sellTotal, sold)
	}

	// Exact quote balance across the pair.
	assert.Zero(t, buyTotal.Cmp(rmul(rate, sellTotal)))
}
