package engine

import (
	"math/big"
	"sort"

	"mimir/internal/common"
)

// sweepEntry is one endpoint of the rate-interval cover: a buy order
// contributes its limit price, a sell order the inverse of its limit price.
type sweepEntry struct {
	key   *big.Rat
	side  common.Side
	order *common.Order
}

// candidate is one (rate interval, fill partition) pair. Both order slices
// are in execution order (limit price descending). The order at the partial
// index is the at-most-partially filled one; everything before it is fully
// filled, everything after it unfilled.
//
// Candidates borrow the enumerator's scratch slices and must be consumed
// before the next one is produced.
type candidate struct {
	lo, hi   *big.Rat
	buys     []*common.Order
	sells    []*common.Order
	bPartial int
	sPartial int
}

// sweepEntries builds the interval endpoints, ordered from the highest rate
// to the lowest. Ties are broken by side then order id, so the sweep is
// deterministic; equal keys produce degenerate intervals which yield no
// interior roots.
func sweepEntries(c *Classification) []sweepEntry {
	entries := make([]sweepEntry, 0, len(c.Buys)+len(c.Sells))
	for _, order := range c.Buys {
		entries = append(entries, sweepEntry{key: order.LimitPrice, side: common.Buy, order: order})
	}
	for _, order := range c.Sells {
		entries = append(entries, sweepEntry{key: rinv(order.LimitPrice), side: common.Sell, order: order})
	}
	sort.Slice(entries, func(i, j int) bool {
		if cmp := entries[i].key.Cmp(entries[j].key); cmp != 0 {
			return cmp > 0
		}
		if entries[i].side != entries[j].side {
			return entries[i].side == common.Buy
		}
		return entries[i].order.ID < entries[j].order.ID
	})
	return entries
}

// prefixSums returns the running totals of max sell amounts: sums[k] is the
// amount sold if exactly the first k orders fill. Rolling sums make every
// partition's filled totals an O(1) lookup.
func prefixSums(orders []*common.Order) []*big.Rat {
	sums := make([]*big.Rat, len(orders)+1)
	sums[0] = new(big.Rat)
	for k, order := range orders {
		sums[k+1] = radd(sums[k], order.MaxSell)
	}
	return sums
}

// forEachCandidate sweeps the rate domain from high to low and streams every
// feasible (interval, partition) candidate to yield. The executable sets
// grow and shrink incrementally across the sweep, so the working set stays
// linear in the number of orders. Returning false from yield stops the
// enumeration.
//
// Partitions are generated per the execution-order lemma: on each side only
// a price-descending prefix may fill, with at most the last order of the
// prefix partial. One side's partial pointer is pinned to the boundary of
// its executable set while the other side's pointer walks every prefix whose
// filled range can balance the pinned side inside the interval.
func forEachCandidate(c *Classification, yield func(cand candidate) bool) {
	if len(c.Buys) == 0 || len(c.Sells) == 0 {
		return
	}
	entries := sweepEntries(c)

	// Buy orders become executable as the sweep passes their limit price;
	// bExec stays in execution order because the sweep is descending.
	bExec := make([]*common.Order, 0, len(c.Buys))
	bPrefix := make([]*big.Rat, 1, len(c.Buys)+1)
	bPrefix[0] = new(big.Rat)

	// Sell orders are all executable at the top of the domain and drop off
	// the low-price end as the sweep passes their inverse limit price.
	sExec := c.Sells
	sPrefix := prefixSums(c.Sells)
	sEnd := len(c.Sells)

	for i := 0; i < len(entries)-1; i++ {
		entry := entries[i]
		if entry.side == common.Buy {
			bExec = append(bExec, entry.order)
			bPrefix = append(bPrefix, radd(bPrefix[len(bPrefix)-1], entry.order.MaxSell))
		} else {
			sEnd--
		}

		if len(bExec) == 0 {
			continue
		}
		// No sell order accepts any lower rate: the sweep is done.
		if sEnd == 0 {
			return
		}

		lo, hi := entries[i+1].key, entry.key
		if lo.Cmp(hi) == 0 {
			continue
		}

		// Sell-side partial pinned to the boundary of its executable set;
		// the buy partial pointer walks the balancing prefixes.
		sLow, sHigh := sPrefix[sEnd-1], sPrefix[sEnd]
		bLow, bHigh := rmul(sLow, lo), rmul(sHigh, hi)
		for p := len(bExec) - 1; p >= 0; p-- {
			if bPrefix[p+1].Cmp(bLow) < 0 {
				break
			}
			if bPrefix[p].Cmp(bHigh) > 0 {
				continue
			}
			if !yield(candidate{
				lo: lo, hi: hi,
				buys: bExec, sells: sExec[:sEnd],
				bPartial: p, sPartial: sEnd - 1,
			}) {
				return
			}
		}

		// Mirror image: buy-side partial pinned, sell pointer walks.
		bLow, bHigh = bPrefix[len(bExec)-1], bPrefix[len(bExec)]
		sLow, _ = rquo(bLow, hi)
		sHigh, _ = rquo(bHigh, lo)
		for p := sEnd - 1; p >= 0; p-- {
			if sPrefix[p+1].Cmp(sLow) < 0 {
				break
			}
			if sPrefix[p].Cmp(sHigh) > 0 {
				continue
			}
			if !yield(candidate{
				lo: lo, hi: hi,
				buys: bExec, sells: sExec[:sEnd],
				bPartial: len(bExec) - 1, sPartial: p,
			}) {
				return
			}
		}
	}
}
