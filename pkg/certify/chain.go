package certify

import (
	"context"
	"log/slog"
	"slices"

	"github.com/limaJavier/roundrobin/pkg/model"
)

// Chain asks its certifiers in order. It stops at a proof of infeasibility or at a penalty-free schedule; otherwise
// later stages get a chance to improve on the schedules found so far, and all candidates are merged.
type Chain struct {
	certifiers []Certifier
	logger     *slog.Logger
	incumbent  incumbent
}

func NewChain(logger *slog.Logger, certifiers ...Certifier) *Chain {
	return &Chain{certifiers: certifiers, logger: orDefault(logger)}
}

func (chain *Chain) Certify(ctx context.Context, pattern model.Pattern) (Outcome, error) {
	outcome := Outcome{Status: Unknown}
	for i, certifier := range chain.certifiers {
		if ctx.Err() != nil {
			break
		}

		current, err := certifier.Certify(ctx, pattern)
		if err != nil {
			return Outcome{}, err
		}
		chain.logger.Debug("chain stage finished", "stage", i, "status", current.Status, "candidates", len(current.Candidates))

		outcome.Mismatches += current.Mismatches
		outcome.Candidates = append(outcome.Candidates, current.Candidates...)
		switch {
		case current.Status == Certified:
			outcome.Status = Certified
		case current.Status == Infeasible && outcome.Status != Certified:
			outcome.Status = Infeasible
		case current.Status == Failed && outcome.Status == Unknown:
			outcome.Status = Failed
		}

		if current.Status == Infeasible {
			break
		}
		if best, ok := current.Best(); ok && best.Penalty() == 0 {
			break
		}
	}

	slices.SortStableFunc(outcome.Candidates, func(a, b Candidate) int { return a.Penalty() - b.Penalty() })
	outcome.Improved = chain.incumbent.offer(outcome)
	return outcome, nil
}
