package engine

import (
	"errors"
	"math/big"
)

var (
	errRateOutOfRange    = errors.New("rate outside the feasible domain")
	errNoExecution       = errors.New("no order executes at this rate")
	errSellBoundViolated = errors.New("executed amount exceeds max sell")
	errLimitViolated     = errors.New("executed order violates its limit price")
	errImbalance         = errors.New("token balance broken across the pair")
	errNoFilledSide      = errors.New("neither executable side is fully filled")
)

// executionSet holds the reconstructed sell amounts at one candidate rate,
// aligned with the classification's sorted order slices. buySell is in
// quote units, sellSell in base units.
type executionSet struct {
	rate     *big.Rat
	buySell  []*big.Rat
	sellSell []*big.Rat
}

// reconstruct computes the executed sell amounts at the given rate with the
// greedy two-pointer walk: both executable prefixes are traversed in limit
// price descending order, transferring quote volume between the current
// head orders until one side runs out of orders or capacity.
func reconstruct(c *Classification, rate *big.Rat) *executionSet {
	execs := &executionSet{
		rate:     rate,
		buySell:  zeroRats(len(c.Buys)),
		sellSell: zeroRats(len(c.Sells)),
	}

	bEnd := c.executableBuys(rate)
	sEnd := c.executableSells(rate)
	if bEnd == 0 || sEnd == 0 {
		return execs
	}

	// Remaining quote capacity of the current head order on each side. A
	// buy order sells up to MaxSell quote; a sell order sells MaxSell base,
	// worth MaxSell*rate in quote.
	bi, si := 0, 0
	bRemaining := new(big.Rat).Set(c.Buys[0].MaxSell)
	sRemaining := rmul(c.Sells[0].MaxSell, rate)
	sBought := new(big.Rat) // quote bought by the current sell head

	for bi < bEnd && si < sEnd {
		step := rmin(bRemaining, sRemaining)

		execs.buySell[bi] = radd(execs.buySell[bi], step)
		sBought.Add(sBought, step)
		bRemaining = rsub(bRemaining, step)
		sRemaining = rsub(sRemaining, step)

		if bRemaining.Sign() == 0 {
			bi++
			if bi < bEnd {
				bRemaining.Set(c.Buys[bi].MaxSell)
			}
		}
		if sRemaining.Sign() == 0 {
			execs.sellSell[si], _ = rquo(sBought, rate)
			sBought = new(big.Rat)
			si++
			if si < sEnd {
				sRemaining = rmul(c.Sells[si].MaxSell, rate)
			}
		}
	}
	// The walk can stop with the sell head only partially consumed.
	if si < sEnd && sBought.Sign() > 0 {
		execs.sellSell[si], _ = rquo(sBought, rate)
	}
	return execs
}

// verify runs the post-checks of a reconstructed candidate. All comparisons
// are exact; any failure rejects the candidate, never the whole batch.
func (execs *executionSet) verify(c *Classification) error {
	if !c.Overlaps() || execs.rate.Cmp(c.RateMin) < 0 || execs.rate.Cmp(c.RateMax) > 0 {
		return errRateOutOfRange
	}

	buyTotal := new(big.Rat)
	for i, sold := range execs.buySell {
		order := c.Buys[i]
		if sold.Sign() < 0 || sold.Cmp(order.MaxSell) > 0 {
			return errSellBoundViolated
		}
		if sold.Sign() > 0 && execs.rate.Cmp(order.LimitPrice) > 0 {
			return errLimitViolated
		}
		buyTotal.Add(buyTotal, sold)
	}

	sellTotal := new(big.Rat)
	for j, sold := range execs.sellSell {
		order := c.Sells[j]
		if sold.Sign() < 0 || sold.Cmp(order.MaxSell) > 0 {
			return errSellBoundViolated
		}
		if sold.Sign() > 0 && rmul(order.LimitPrice, execs.rate).Cmp(ratOne) < 0 {
			return errLimitViolated
		}
		sellTotal.Add(sellTotal, sold)
	}

	if buyTotal.Sign() == 0 && sellTotal.Sign() == 0 {
		return errNoExecution
	}
	if buyTotal.Cmp(rmul(execs.rate, sellTotal)) != 0 {
		return errImbalance
	}

	// At least one executable side must be fully filled.
	bEnd := c.executableBuys(execs.rate)
	sEnd := c.executableSells(execs.rate)
	buyCap := new(big.Rat)
	for i := 0; i < bEnd; i++ {
		buyCap.Add(buyCap, c.Buys[i].MaxSell)
	}
	sellCap := new(big.Rat)
	for j := 0; j < sEnd; j++ {
		sellCap.Add(sellCap, c.Sells[j].MaxSell)
	}
	if buyTotal.Cmp(buyCap) != 0 && sellTotal.Cmp(sellCap) != 0 {
		return errNoFilledSide
	}
	return nil
}

func zeroRats(n int) []*big.Rat {
	rats := make([]*big.Rat, n)
	for i := range rats {
		rats[i] = new(big.Rat)
	}
	return rats
}
