package common

import (
	"fmt"
	"math/big"
)

// Execution is the executed amounts of one order at the clearing rate.
// Sell is the amount of the order's SellToken sold, Buy the amount of its
// BuyToken received.
type Execution struct {
	OrderID string
	Buy     *big.Rat
	Sell    *big.Rat
}

func (e Execution) String() string {
	return fmt.Sprintf("%s [%s, %s]", e.OrderID, e.Buy.RatString(), e.Sell.RatString())
}

// Solution is a settled batch on a token pair: the uniform clearing rate,
// the per-order executions, and the attained objective value. Rate is in
// units of the second token per unit of the first.
type Solution struct {
	Rate       *big.Rat
	Objective  *big.Rat
	Executions []Execution
}

// ExecutionFor returns the execution of the given order, if it traded.
func (s *Solution) ExecutionFor(orderID string) (Execution, bool) {
	for _, e := range s.Executions {
		if e.OrderID == orderID {
			return e, true
		}
	}
	return Execution{}, false
}

func (s *Solution) String() string {
	out := fmt.Sprintf("rate: %s, objective: %s", s.Rate.RatString(), s.Objective.RatString())
	for _, e := range s.Executions {
		out += "\n\t" + e.String()
	}
	return out
}
