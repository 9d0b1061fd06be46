// Package engine implements the batch-auction matching core for a token
// pair: it finds the uniform clearing rate and per-order executed amounts
// maximising the disregarded utility, subject to limit prices, max sell
// amounts and cross-order token balance.
//
// The search is analytic, not iterative: the rate domain is covered by
// intervals on which the objective is smooth, each interval's fill
// partitions are enumerated, and the stationary rates of every partition
// are solved in closed form. All arithmetic is exact rational except the
// square root of one root family (see ratSqrt).
package engine

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"mimir/internal/common"
	"mimir/internal/utils"
)

// Solver solves one two-token batch. The zero value evaluates candidates
// serially; set Workers to spread the evaluation over a worker pool. The
// solution is identical either way: the argmax reduction is commutative and
// ties always break towards the smallest rate.
type Solver struct {
	Workers int
}

func New() *Solver {
	return &Solver{}
}

// Solve finds the optimal uniform clearing of orders on the (base, quote)
// pair. The returned rate is in quote units per base unit. Returns
// ErrNoMatch when the limit prices leave no feasible rate or no candidate
// survives reconstruction; order-level problems are reported as errors.
func Solve(orders []*common.Order, base, quote string) (*common.Solution, error) {
	return New().Solve(orders, base, quote)
}

func (s *Solver) Solve(orders []*common.Order, base, quote string) (*common.Solution, error) {
	for _, order := range orders {
		if err := order.Validate(); err != nil {
			return nil, fmt.Errorf("invalid order: %w", err)
		}
	}

	c := Classify(orders, base, quote)
	if !c.Overlaps() {
		log.Debug().
			Str("base", base).
			Str("quote", quote).
			Msg("limit prices do not overlap")
		return nil, ErrNoMatch
	}
	log.Debug().
		Int("buys", len(c.Buys)).
		Int("sells", len(c.Sells)).
		Str("rate_min", c.RateMin.RatString()).
		Str("rate_max", c.RateMax.RatString()).
		Msg("solving token pair")

	var (
		rate *big.Rat
		err  error
	)
	if s.Workers > 1 {
		rate, err = bestRateParallel(c, s.Workers)
	} else {
		rate, err = bestRateSerial(c)
	}
	if err != nil {
		return nil, err
	}
	if rate == nil {
		return nil, ErrNoMatch
	}
	return buildSolution(c, rate), nil
}

// scored is one accepted candidate: a rate and its objective value.
type scored struct {
	rate *big.Rat
	obj  *big.Rat
}

// better implements the argmax ordering: higher objective wins, equal
// objectives break towards the smaller rate.
func (a scored) better(b scored) bool {
	if cmp := a.obj.Cmp(b.obj); cmp != 0 {
		return cmp > 0
	}
	return a.rate.Cmp(b.rate) < 0
}

// forEachRate streams every candidate clearing rate exactly once: the
// interval endpoints (which carry the boundary roots where a limit price is
// active, including the domain bounds) and the interior stationary rates of
// every (interval, partition) candidate.
func forEachRate(c *Classification, yield func(*big.Rat) bool) {
	seen := make(map[string]struct{})
	emit := func(rate *big.Rat) bool {
		if rate.Cmp(c.RateMin) < 0 || rate.Cmp(c.RateMax) > 0 {
			return true
		}
		key := rate.RatString()
		if _, dup := seen[key]; dup {
			return true
		}
		seen[key] = struct{}{}
		return yield(rate)
	}

	for _, order := range c.Buys {
		if !emit(order.LimitPrice) {
			return
		}
	}
	for _, order := range c.Sells {
		if !emit(rinv(order.LimitPrice)) {
			return
		}
	}
	forEachCandidate(c, func(cand candidate) bool {
		for _, rate := range cand.localOptima() {
			if !emit(rate) {
				return false
			}
		}
		return true
	})
}

// evaluate reconstructs and scores one candidate rate. Numeric and
// invariant failures reject the candidate only.
func evaluate(c *Classification, rate *big.Rat) (scored, error) {
	execs := reconstruct(c, rate)
	if err := execs.verify(c); err != nil {
		return scored{}, err
	}
	return scored{rate: rate, obj: objectiveValue(c, execs)}, nil
}

func bestRateSerial(c *Classification) (*big.Rat, error) {
	var best *scored
	forEachRate(c, func(rate *big.Rat) bool {
		cand, err := evaluate(c, rate)
		if err != nil {
			log.Debug().Str("rate", rate.RatString()).Err(err).Msg("candidate rejected")
			return true
		}
		if best == nil || cand.better(*best) {
			best = &cand
		}
		return true
	})
	if best == nil {
		return nil, nil
	}
	return best.rate, nil
}

// bestRateParallel fans candidate rates out to a worker pool. Workers share
// only the read-only classification; rejected candidates are dropped in the
// worker, accepted ones reduced to the argmax on the way out.
func bestRateParallel(c *Classification, workers int) (*big.Rat, error) {
	var t tomb.Tomb
	pool := utils.NewWorkerPool(uint(workers))
	results := make(chan scored, utils.TASK_CHAN_SIZE)

	pool.Setup(&t, func(t *tomb.Tomb, task any) error {
		rate, ok := task.(*big.Rat)
		if !ok {
			return errors.New("improper task type")
		}
		cand, err := evaluate(c, rate)
		if err != nil {
			return nil
		}
		select {
		case <-t.Dying():
		case results <- cand:
		}
		return nil
	})

	done := make(chan struct{})
	var best *scored
	go func() {
		defer close(done)
		for cand := range results {
			if best == nil || cand.better(*best) {
				cand := cand
				best = &cand
			}
		}
	}()

	forEachRate(c, func(rate *big.Rat) bool {
		return pool.AddTask(&t, rate)
	})
	pool.Close()
	err := t.Wait()
	close(results)
	<-done
	if err != nil {
		return nil, err
	}

	if best == nil {
		return nil, nil
	}
	return best.rate, nil
}

// buildSolution re-runs the reconstruction at the winning rate and shapes
// the result. Only orders that traded appear in the execution list.
func buildSolution(c *Classification, rate *big.Rat) *common.Solution {
	execs := reconstruct(c, rate)
	solution := &common.Solution{
		Rate:      rate,
		Objective: objectiveValue(c, execs),
	}
	for i, order := range c.Buys {
		if execs.buySell[i].Sign() == 0 {
			continue
		}
		bought, _ := rquo(execs.buySell[i], rate)
		solution.Executions = append(solution.Executions, common.Execution{
			OrderID: order.ID,
			Buy:     bought,
			Sell:    execs.buySell[i],
		})
	}
	for j, order := range c.Sells {
		if execs.sellSell[j].Sign() == 0 {
			continue
		}
		solution.Executions = append(solution.Executions, common.Execution{
			OrderID: order.ID,
			Buy:     rmul(execs.sellSell[j], rate),
			Sell:    execs.sellSell[j],
		})
	}
	return solution
}
