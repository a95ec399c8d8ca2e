package certify

import (
	"context"
	"log/slog"
	"slices"

	"github.com/limaJavier/roundrobin/pkg/model"
	"github.com/limaJavier/roundrobin/pkg/validator"
)

type Status int

const (
	// Certified means at least one hard-clean schedule realises the pattern
	Certified Status = iota
	// Infeasible means the pattern was proven to have no completion
	Infeasible
	// Unknown means no completion was found within the budget, without a proof that none exists
	Unknown
	// Failed means the certifier itself broke down (engine error, crashed or stuck process, unreadable output)
	Failed
)

func (status Status) String() string {
	switch status {
	case Certified:
		return "certified"
	case Infeasible:
		return "infeasible"
	case Unknown:
		return "unknown"
	case Failed:
		return "failed"
	}
	return "invalid"
}

// Candidate is a complete schedule together with its audit
type Candidate struct {
	Schedule model.Schedule
	Report   validator.Report
}

func (candidate Candidate) Penalty() int {
	return candidate.Report.SoftPenalty
}

type Outcome struct {
	Status Status
	// Candidates are hard-clean schedules sorted by ascending penalty
	Candidates []Candidate
	// Mismatches counts schedules the certifier produced that failed hard validation and were withheld
	Mismatches int
	// Improved is set when the best candidate beats every candidate this certifier returned before
	Improved bool
}

// Best returns the lowest-penalty candidate
func (outcome Outcome) Best() (Candidate, bool) {
	if len(outcome.Candidates) == 0 {
		return Candidate{}, false
	}
	return outcome.Candidates[0], true
}

// Certifier completes a home/away pattern into schedules. Implementations are called from a single goroutine.
type Certifier interface {
	Certify(ctx context.Context, pattern model.Pattern) (Outcome, error)
}

// incumbent is the best penalty a certifier has returned so far
type incumbent struct {
	penalty int
	found   bool
}

// offer records the outcome's best candidate and reports whether it strictly improves on the previous ones
func (incumbent *incumbent) offer(outcome Outcome) bool {
	best, ok := outcome.Best()
	if !ok {
		return false
	}
	if incumbent.found && best.Penalty() >= incumbent.penalty {
		return false
	}
	incumbent.penalty, incumbent.found = best.Penalty(), true
	return true
}

// audit validates every schedule. Schedules breaking a hard record or the round-robin structure are withheld and
// counted as mismatches, since the certifier claimed they were feasible.
func audit(instance model.Instance, schedules []model.Schedule, certifier string, logger *slog.Logger) ([]Candidate, int) {
	candidates := make([]Candidate, 0, len(schedules))
	mismatches := 0
	for i, schedule := range schedules {
		report := validator.Validate(instance, schedule)
		if !report.Feasible() {
			mismatches++
			logger.Error("certifier returned a schedule violating hard constraints",
				"certifier", certifier,
				"schedule", i,
				"hardViolations", report.HardViolations,
				"structure", report.Structure,
			)
			continue
		}
		candidates = append(candidates, Candidate{Schedule: schedule, Report: report})
	}
	slices.SortStableFunc(candidates, func(a, b Candidate) int { return a.Penalty() - b.Penalty() })
	return candidates, mismatches
}

func orDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
