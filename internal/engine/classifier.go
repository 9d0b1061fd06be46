package engine

import (
	"errors"
	"math/big"
	"sort"

	"mimir/internal/book"
	"mimir/internal/common"
)

var ErrNoMatch = errors.New("no feasible match")

// Classification is the side partition of a batch on a token pair: orders
// buying the base token and orders selling it, both in limit price
// descending order, plus the bounds of the clearing rate domain.
//
// The clearing rate r is in quote units per base unit. An order i in Buys is
// executable at r iff r <= pi_i; an order j in Sells iff r >= 1/pi_j.
type Classification struct {
	Base  string
	Quote string

	Buys  []*common.Order
	Sells []*common.Order

	RateMin *big.Rat // min over Sells of 1/pi
	RateMax *big.Rat // max over Buys of pi
}

// Classify partitions orders by side for the given token pair. Orders must
// already be validated; orders on other pairs are ignored, so a whole batch
// instance can be passed through.
func Classify(orders []*common.Order, base, quote string) *Classification {
	books := book.NewPairBook()
	for _, order := range orders {
		switch {
		case order.BuyToken == base && order.SellToken == quote:
			books.Buys.Insert(order)
		case order.BuyToken == quote && order.SellToken == base:
			books.Sells.Insert(order)
		}
	}

	c := &Classification{
		Base:  base,
		Quote: quote,
		Buys:  books.Buys.Orders(),
		Sells: books.Sells.Orders(),
	}

	// The most permissive order on each side bounds the rate domain.
	if len(c.Buys) > 0 {
		c.RateMax = c.Buys[0].LimitPrice
	}
	if len(c.Sells) > 0 {
		c.RateMin = rinv(c.Sells[0].LimitPrice)
	}
	return c
}

// Overlaps reports whether the rate domain is non-empty, i.e. whether any
// buy order tolerates a rate some sell order tolerates too.
func (c *Classification) Overlaps() bool {
	return c.RateMin != nil && c.RateMax != nil && c.RateMin.Cmp(c.RateMax) <= 0
}

// executableBuys returns how many of the price-sorted Buys accept rate.
func (c *Classification) executableBuys(rate *big.Rat) int {
	return sort.Search(len(c.Buys), func(i int) bool {
		return rate.Cmp(c.Buys[i].LimitPrice) > 0
	})
}

// executableSells returns how many of the price-sorted Sells accept rate.
func (c *Classification) executableSells(rate *big.Rat) int {
	inv := rinv(rate)
	return sort.Search(len(c.Sells), func(j int) bool {
		return inv.Cmp(c.Sells[j].LimitPrice) > 0
	})
}
