package main

import (
	"encoding/json"
	"errors"
	"flag"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"mimir/internal/batch"
	"mimir/internal/common"
	"mimir/internal/engine"
)

type executionOut struct {
	ID             string `json:"id"`
	ExecBuyAmount  string `json:"execBuyAmount"`
	ExecSellAmount string `json:"execSellAmount"`
}

type solutionOut struct {
	Match     bool           `json:"match"`
	Rate      string         `json:"rate,omitempty"`
	Objective string         `json:"objective,omitempty"`
	Orders    []executionOut `json:"orders,omitempty"`
}

func main() {
	instancePath := flag.String("instance", "-", "instance json file, - for stdin")
	pair := flag.String("pair", "", "token pair to solve, as base:quote")
	workers := flag.Int("workers", 1, "parallel candidate evaluators")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	base, quote, ok := strings.Cut(*pair, ":")
	if !ok || base == "" || quote == "" {
		log.Fatal().Str("pair", *pair).Msg("pair must be of the form base:quote")
	}

	orders, err := batch.Load(openInstance(*instancePath))
	if err != nil {
		log.Fatal().Err(err).Msg("unable to load instance")
	}

	solver := engine.New()
	solver.Workers = *workers
	solution, err := solver.Solve(orders, base, quote)
	switch {
	case errors.Is(err, engine.ErrNoMatch):
		// A batch with no feasible match is a result, not a failure.
		emit(solutionOut{Match: false})
		return
	case err != nil:
		log.Fatal().Err(err).Msg("unable to solve instance")
	}

	if err := batch.ValidateSolution(orders, base, solution); err != nil {
		log.Fatal().Err(err).Msg("solution failed validation")
	}
	emit(render(solution))
}

func openInstance(path string) io.Reader {
	if path == "-" {
		return os.Stdin
	}
	fd, err := os.Open(path)
	if err != nil {
		log.Fatal().Err(err).Msg("unable to open instance")
	}
	return fd
}

func render(solution *common.Solution) solutionOut {
	out := solutionOut{
		Match:     true,
		Rate:      solution.Rate.RatString(),
		Objective: solution.Objective.RatString(),
	}
	for _, exec := range solution.Executions {
		out.Orders = append(out.Orders, executionOut{
			ID:             exec.OrderID,
			ExecBuyAmount:  exec.Buy.RatString(),
			ExecSellAmount: exec.Sell.RatString(),
		})
	}
	return out
}

func emit(out solutionOut) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(out); err != nil {
		log.Fatal().Err(err).Msg("unable to emit solution")
	}
}
