// Package batch loads batch-auction instances from their JSON wire format
// and checks emitted solutions against the batch they came from.
package batch

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"mimir/internal/common"
)

var (
	ErrMalformed   = errors.New("malformed instance")
	ErrBadAmount   = errors.New("amount is not a positive rational")
	ErrNoSuchOrder = errors.New("solution references an unknown order")
)

// OrderSpec is one order as it appears on the wire. Amounts are decimal or
// rational strings; the limit price is sellAmount/buyAmount, the maximum
// ratio of sold to received token the order tolerates.
type OrderSpec struct {
	ID         string `json:"id,omitempty"`
	AccountID  string `json:"accountID,omitempty"`
	BuyToken   string `json:"buyToken"`
	SellToken  string `json:"sellToken"`
	BuyAmount  string `json:"buyAmount"`
	SellAmount string `json:"sellAmount"`
}

// Instance is a batch instance: the orders and, optionally, the account
// balances backing them.
type Instance struct {
	Orders   []OrderSpec                  `json:"orders"`
	Accounts map[string]map[string]string `json:"accounts,omitempty"`
}

// Load decodes an instance and converts it into validated orders. Orders
// without an id are assigned one. When account balances are present, max
// sell amounts are capped so no account sells more than it holds.
func Load(r io.Reader) ([]*common.Order, error) {
	var instance Instance
	if err := json.NewDecoder(r).Decode(&instance); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformed, err)
	}
	return instance.BuildOrders()
}

// BuildOrders converts the wire orders into validated engine orders.
func (instance *Instance) BuildOrders() ([]*common.Order, error) {
	balances, err := instance.balances()
	if err != nil {
		return nil, err
	}

	orders := make([]*common.Order, 0, len(instance.Orders))
	for i, spec := range instance.Orders {
		order, err := spec.order()
		if err != nil {
			return nil, fmt.Errorf("order %d: %w", i, err)
		}
		capOrderByBalance(order, balances)
		if order.MaxSell.Sign() == 0 {
			log.Debug().Str("id", order.ID).Msg("order has no sell balance, dropped")
			continue
		}
		orders = append(orders, order)
	}
	return orders, nil
}

func (spec OrderSpec) order() (*common.Order, error) {
	maxSell, err := parseAmount(spec.SellAmount)
	if err != nil {
		return nil, err
	}
	buyAmount, err := parseAmount(spec.BuyAmount)
	if err != nil {
		return nil, err
	}

	id := spec.ID
	if id == "" {
		id = uuid.NewString()
	}
	order := &common.Order{
		ID:         id,
		AccountID:  spec.AccountID,
		BuyToken:   spec.BuyToken,
		SellToken:  spec.SellToken,
		MaxSell:    maxSell,
		LimitPrice: new(big.Rat).Quo(maxSell, buyAmount),
	}
	if err := order.Validate(); err != nil {
		return nil, err
	}
	return order, nil
}

func parseAmount(s string) (*big.Rat, error) {
	amount, ok := new(big.Rat).SetString(s)
	if !ok || amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %q", ErrBadAmount, s)
	}
	return amount, nil
}

func (instance *Instance) balances() (map[string]map[string]*big.Rat, error) {
	if instance.Accounts == nil {
		return nil, nil
	}
	balances := make(map[string]map[string]*big.Rat, len(instance.Accounts))
	for account, tokens := range instance.Accounts {
		balances[account] = make(map[string]*big.Rat, len(tokens))
		for token, amount := range tokens {
			balance, ok := new(big.Rat).SetString(amount)
			if !ok || balance.Sign() < 0 {
				return nil, fmt.Errorf("account %s token %s: %w", account, token, ErrBadAmount)
			}
			balances[account][token] = balance
		}
	}
	return balances, nil
}

// capOrderByBalance caps the order's max sell amount at what its account
// still holds and consumes the balance, so that orders sharing an account
// can never jointly oversell it.
func capOrderByBalance(order *common.Order, balances map[string]map[string]*big.Rat) {
	if balances == nil {
		return
	}
	held, ok := balances[order.AccountID][order.SellToken]
	if !ok {
		order.MaxSell = new(big.Rat)
		return
	}
	if order.MaxSell.Cmp(held) > 0 {
		order.MaxSell = new(big.Rat).Set(held)
	}
	held.Sub(held, order.MaxSell)
}
