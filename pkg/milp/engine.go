package milp

import "context"

type Status int

const (
	Optimal Status = iota
	Infeasible
	TimeLimit
	Failure
)

func (status Status) String() string {
	switch status {
	case Optimal:
		return "optimal"
	case Infeasible:
		return "infeasible"
	case TimeLimit:
		return "time-limit"
	case Failure:
		return "failure"
	}
	return "unknown"
}

// Verdict is what an incumbent handler decides about a solution found during search
type Verdict int

const (
	// Accept keeps the solution as the engine's incumbent and tightens the objective bound past it
	Accept Verdict = iota
	// Reject discards the solution; the handler must have added at least one cut it violates
	Reject
)

// CutSink receives rows added to a model while its search is running. Cuts are never retracted.
type CutSink interface {
	AddCut(name string, expr *Expr, sense Sense, rhs int)
}

// IncumbentHandler is called synchronously, on the search loop, for every integer-feasible solution the engine finds
type IncumbentHandler func(ctx context.Context, solution Solution, cuts CutSink) (Verdict, error)

type Result struct {
	Status Status
	// Best is the last accepted solution, nil when none was accepted
	Best       *Solution
	Incumbents int
	Cuts       int
}

// Engine solves integer models. A nil handler accepts every incumbent, which amounts to plain minimisation.
// Time limits are expressed through the context deadline.
type Engine interface {
	Optimize(ctx context.Context, model *Model, handler IncumbentHandler) (Result, error)
}
