// Package book holds the per-side order books of a batch. Unlike a
// continuous-trading book there is no time priority: a batch auction clears
// every executed order at one uniform rate, so orders are kept sorted by
// limit price only, which is also the greedy execution order of the solver.
package book

import (
	"math/big"

	"github.com/tidwall/btree"

	"mimir/internal/common"
)

// SideBook is a set of orders on one side of a token pair, sorted by limit
// price descending. Higher limit prices are more permissive and fill first.
type SideBook struct {
	orders *btree.BTreeG[*common.Order]
}

func NewSideBook() *SideBook {
	// Sorted greatest limit price first. Ties are broken on order id so
	// that insertion order never leaks into the solution.
	tree := btree.NewBTreeG(func(a, b *common.Order) bool {
		if cmp := a.LimitPrice.Cmp(b.LimitPrice); cmp != 0 {
			return cmp > 0
		}
		return a.ID < b.ID
	})
	return &SideBook{orders: tree}
}

func (book *SideBook) Insert(order *common.Order) {
	book.orders.Set(order)
}

func (book *SideBook) Len() int {
	return book.orders.Len()
}

// Orders returns the book contents in limit price descending order.
func (book *SideBook) Orders() []*common.Order {
	return book.orders.Items()
}

// TotalSell is the sum of max sell amounts across the book.
func (book *SideBook) TotalSell() *big.Rat {
	total := new(big.Rat)
	book.orders.Scan(func(order *common.Order) bool {
		total.Add(total, order.MaxSell)
		return true
	})
	return total
}

// PairBook is the pair of side books of a two-token batch: orders buying the
// base token and orders selling it.
type PairBook struct {
	Buys  *SideBook
	Sells *SideBook
}

func NewPairBook() *PairBook {
	return &PairBook{
		Buys:  NewSideBook(),
		Sells: NewSideBook(),
	}
}
