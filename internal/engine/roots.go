package engine

import "math/big"

// partitionConstants are the coefficients of the reduced objective on one
// (interval, partition) candidate. bPi/bCap are the limit price and max sell
// of the partial buy order, bFilled the total max sell of the fully filled
// buy prefix; sPi/sCap/sFilled mirror that on the sell side. c is the
// aggregate constant of the first-order system; it absorbs the unfilled
// remainders, which is what makes the degenerate partitions (no partial
// order on a side) fall out of the same formulas.
type partitionConstants struct {
	bPi, bCap, bFilled *big.Rat
	sPi, sCap, sFilled *big.Rat
	c                  *big.Rat
}

func (cand candidate) constants() partitionConstants {
	bOrder := cand.buys[cand.bPartial]
	sOrder := cand.sells[cand.sPartial]

	bFilled := new(big.Rat)
	c := new(big.Rat)
	for i, order := range cand.buys {
		switch {
		case i < cand.bPartial:
			bFilled.Add(bFilled, order.MaxSell)
			c.Add(c, order.MaxSell)
		case i > cand.bPartial:
			c.Sub(c, order.MaxSell)
		}
	}

	sFilled := new(big.Rat)
	for j, order := range cand.sells {
		atLimit := new(big.Rat).Quo(order.MaxSell, order.LimitPrice)
		switch {
		case j < cand.sPartial:
			sFilled.Add(sFilled, order.MaxSell)
			c.Sub(c, atLimit)
		case j > cand.sPartial:
			c.Add(c, atLimit)
		}
	}

	return partitionConstants{
		bPi: bOrder.LimitPrice, bCap: bOrder.MaxSell, bFilled: bFilled,
		sPi: sOrder.LimitPrice, sCap: sOrder.MaxSell, sFilled: sFilled,
		c: c,
	}
}

// root3 is the stationary point with the whole buy prefix filled and the
// sell partial interior:
//
//	r = 4*(bCap+bFilled) / (sPi*(c + 2*(bCap+bFilled) + bCap) + sCap + 2*sFilled)
func (pc partitionConstants) root3() *big.Rat {
	bTotal := radd(pc.bCap, pc.bFilled)
	den := radd(pc.c, rmul(ratTwo, bTotal))
	den.Add(den, pc.bCap)
	den.Mul(den, pc.sPi)
	den.Add(den, pc.sCap)
	den.Add(den, rmul(ratTwo, pc.sFilled))
	r, ok := rquo(rmul(ratFour, bTotal), den)
	if !ok {
		return nil
	}
	return r
}

// root4 is the stationary point with the whole sell prefix filled and the
// buy partial interior:
//
//	r = sqrt( bPi*(sPi*(bCap + 2*bFilled - c) + sCap) / (2*sPi*(sCap+sFilled)) )
//
// Discarded when the radicand is negative or the denominator vanishes.
func (pc partitionConstants) root4() *big.Rat {
	num := rsub(pc.bCap, pc.c)
	num.Add(num, rmul(ratTwo, pc.bFilled))
	num.Mul(num, pc.sPi)
	num.Add(num, pc.sCap)
	num.Mul(num, pc.bPi)
	den := rmul(ratTwo, rmul(pc.sPi, radd(pc.sCap, pc.sFilled)))
	t, ok := rquo(num, den)
	if !ok {
		return nil
	}
	r, ok := ratSqrt(t)
	if !ok {
		return nil
	}
	return r
}

// root5 balances both prefixes fully filled:
//
//	r = (bCap + bFilled) / (sCap + sFilled)
func (pc partitionConstants) root5() *big.Rat {
	r, ok := rquo(radd(pc.bCap, pc.bFilled), radd(pc.sCap, pc.sFilled))
	if !ok {
		return nil
	}
	return r
}

// localOptima returns the stationary rates of this candidate that lie
// strictly inside its interval. The interval endpoints themselves, which
// carry the boundary roots where a limit price is active, are covered by
// the driver's endpoint sweep.
func (cand candidate) localOptima() []*big.Rat {
	pc := cand.constants()
	var rates []*big.Rat
	for _, root := range []*big.Rat{pc.root3(), pc.root4(), pc.root5()} {
		if root == nil {
			continue
		}
		if root.Cmp(cand.lo) > 0 && root.Cmp(cand.hi) < 0 {
			rates = append(rates, root)
		}
	}
	return rates
}
