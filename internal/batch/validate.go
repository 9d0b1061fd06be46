package batch

import (
	"errors"
	"fmt"
	"math/big"

	"mimir/internal/common"
)

var (
	ErrOverSell        = errors.New("execution exceeds order max sell amount")
	ErrLimitViolated   = errors.New("execution violates order limit price")
	ErrOffClearingRate = errors.New("execution does not match the clearing rate")
	ErrTokenImbalance  = errors.New("token amounts sold and bought differ")
)

// ValidateSolution checks a solution against the batch it was computed
// from: every execution stays within its order's max sell amount and limit
// price, trades at the uniform clearing rate, and the two tokens balance
// exactly across the batch.
func ValidateSolution(orders []*common.Order, base string, solution *common.Solution) error {
	byID := make(map[string]*common.Order, len(orders))
	for _, order := range orders {
		byID[order.ID] = order
	}

	sold := make(map[string]*big.Rat)
	bought := make(map[string]*big.Rat)
	add := func(totals map[string]*big.Rat, token string, amount *big.Rat) {
		if totals[token] == nil {
			totals[token] = new(big.Rat)
		}
		totals[token].Add(totals[token], amount)
	}

	for _, exec := range solution.Executions {
		order, ok := byID[exec.OrderID]
		if !ok {
			return fmt.Errorf("%w: %s", ErrNoSuchOrder, exec.OrderID)
		}
		if exec.Sell.Cmp(order.MaxSell) > 0 {
			return fmt.Errorf("order %s: %w", order.ID, ErrOverSell)
		}
		// sell/buy ratio within the order's limit.
		if new(big.Rat).Mul(exec.Buy, order.LimitPrice).Cmp(exec.Sell) < 0 {
			return fmt.Errorf("order %s: %w", order.ID, ErrLimitViolated)
		}
		// The execution must trade exactly at the clearing rate: an order
		// buying base pays rate quote per unit, an order selling base
		// receives it.
		implied := new(big.Rat)
		if order.BuyToken == base {
			implied.Mul(exec.Buy, solution.Rate)
		} else {
			implied.Quo(exec.Buy, solution.Rate)
		}
		if implied.Cmp(exec.Sell) != 0 {
			return fmt.Errorf("order %s: %w", order.ID, ErrOffClearingRate)
		}
		add(sold, order.SellToken, exec.Sell)
		add(bought, order.BuyToken, exec.Buy)
	}

	for token, total := range sold {
		other := bought[token]
		if other == nil || total.Cmp(other) != 0 {
			return fmt.Errorf("token %s: %w", token, ErrTokenImbalance)
		}
	}
	return nil
}
