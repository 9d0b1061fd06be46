package common

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	ErrMissingToken    = errors.New("order is missing a buy or sell token")
	ErrSelfToken       = errors.New("order buys and sells the same token")
	ErrNonPositiveSell = errors.New("order max sell amount must be positive")
	ErrNonPositiveRate = errors.New("order limit price must be positive")
)

type Side int

const (
	Buy Side = iota
	Sell
)

// Order is a limit order on a token pair. LimitPrice is the maximum exchange
// rate the order tolerates, in SellToken units per BuyToken unit. Orders are
// immutable once ingested; executed amounts live in Execution values.
type Order struct {
	ID         string   // Order tracked uuid
	AccountID  string   // Who owns this order
	BuyToken   string   // Token bought
	SellToken  string   // Token sold
	MaxSell    *big.Rat // Upper bound on the amount of SellToken sold
	LimitPrice *big.Rat // Maximum SellToken/BuyToken ratio accepted
}

// Validate rejects orders that can never be part of a well formed batch.
func (order Order) Validate() error {
	if order.BuyToken == "" || order.SellToken == "" {
		return fmt.Errorf("order %s: %w", order.ID, ErrMissingToken)
	}
	if order.BuyToken == order.SellToken {
		return fmt.Errorf("order %s: %w", order.ID, ErrSelfToken)
	}
	if order.MaxSell == nil || order.MaxSell.Sign() <= 0 {
		return fmt.Errorf("order %s: %w", order.ID, ErrNonPositiveSell)
	}
	if order.LimitPrice == nil || order.LimitPrice.Sign() <= 0 {
		return fmt.Errorf("order %s: %w", order.ID, ErrNonPositiveRate)
	}
	return nil
}

func (order Order) String() string {
	return fmt.Sprintf(
		"(%s, %s, %s, %s)",
		order.BuyToken,
		order.SellToken,
		order.MaxSell.RatString(),
		order.LimitPrice.RatString(),
	)
}
