package engine

import "math/big"

// The objective is the total disregarded utility: for every order the term
// 2u - umax, where u is the utility captured at the clearing rate and umax
// the utility the order would capture if fully filled. Orders left unfilled
// while their limit price tolerates the rate are penalised by their whole
// forgone utility; orders priced out contribute nothing.

// buyUnitUtility is the utility per quote unit sold by a buy order:
// (pi - r) / (pi * r), in base units.
func buyUnitUtility(order *big.Rat, rate *big.Rat) *big.Rat {
	num := rsub(order, rate)
	unit, ok := rquo(num, rmul(order, rate))
	if !ok {
		return new(big.Rat)
	}
	return unit
}

// sellUnitUtility is the utility per base unit sold by a sell order:
// (pi*r - 1) / (pi * r), normalised to base units.
func sellUnitUtility(order *big.Rat, rate *big.Rat) *big.Rat {
	num := rsub(rmul(order, rate), ratOne)
	unit, ok := rquo(num, rmul(order, rate))
	if !ok {
		return new(big.Rat)
	}
	return unit
}

// objectiveValue evaluates the disregarded utility of a reconstructed
// execution, in exact rational arithmetic.
func objectiveValue(c *Classification, execs *executionSet) *big.Rat {
	total := new(big.Rat)

	for i, order := range c.Buys {
		unit := buyUnitUtility(order.LimitPrice, execs.rate)
		term := rmul(ratTwo, rmul(execs.buySell[i], unit))
		if forgone := rmul(order.MaxSell, unit); forgone.Sign() > 0 {
			term.Sub(term, forgone)
		}
		total.Add(total, term)
	}

	for j, order := range c.Sells {
		unit := sellUnitUtility(order.LimitPrice, execs.rate)
		term := rmul(ratTwo, rmul(execs.sellSell[j], unit))
		if forgone := rmul(order.MaxSell, unit); forgone.Sign() > 0 {
			term.Sub(term, forgone)
		}
		total.Add(total, term)
	}

	return total
}
