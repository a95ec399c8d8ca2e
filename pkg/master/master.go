package master

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/limaJavier/roundrobin/pkg/catalogue"
	"github.com/limaJavier/roundrobin/pkg/certify"
	"github.com/limaJavier/roundrobin/pkg/milp"
	"github.com/limaJavier/roundrobin/pkg/model"
)

// ErrPatternRevisited is returned when the engine hands back a pattern that a cut already excludes
var ErrPatternRevisited = errors.New("pattern revisited")

// ErrUnbalancedIncumbent is returned when the engine hands back an incumbent that breaks the master's own rows
var ErrUnbalancedIncumbent = errors.New("incumbent breaks the master model")

type Status int

const (
	Optimal Status = iota
	Infeasible
	TimeLimit
	ExternalFailure
)

func (status Status) String() string {
	switch status {
	case Optimal:
		return "optimal"
	case Infeasible:
		return "infeasible"
	case TimeLimit:
		return "time-limit"
	case ExternalFailure:
		return "external-failure"
	}
	return "unknown"
}

type Options struct {
	// Hamming is the distance every later pattern must keep from an examined one; values below 1 mean 1
	Hamming int
	// OpponentCuts adds rows forcing every ordered pair to be on opposite sides in some slot (in every half when
	// phased), which removes patterns no schedule can realise
	OpponentCuts bool
	// TimeLimit bounds the whole search; zero leaves only the caller's context in charge
	TimeLimit time.Duration
	// LPDump, when set, is the file the built master model is written to in LP format
	LPDump string
	Logger *slog.Logger
}

// SolutionSink persists every strictly improving schedule as it is found
type SolutionSink interface {
	Persist(solution model.Solution) error
}

type SinkFunc func(solution model.Solution) error

func (sink SinkFunc) Persist(solution model.Solution) error {
	return sink(solution)
}

type Result struct {
	Status Status
	// Best is the lowest-penalty accepted schedule, nil when none was accepted
	Best *certify.Candidate
	// Patterns counts the patterns examined
	Patterns int
	// Certified counts the patterns for which the certifier returned at least one schedule
	Certified int
	// Accepted counts the schedules that passed validation
	Accepted   int
	Mismatches int
	Cuts       int
	Elapsed    time.Duration
}

// Master searches home/away patterns over x[team,slot] and hands every incumbent to a certifier
type Master struct {
	instance  model.Instance
	engine    milp.Engine
	certifier certify.Certifier
	options   Options
	logger    *slog.Logger
	model     *milp.Model
	space     *catalogue.PatternSpace
	ledger    *Ledger
}

// New builds the master model: balanced patterns, pattern-level records and, optionally, opponent cuts.
// A record the encoder does not support is returned as a catalogue.ConfigurationError.
func New(instance model.Instance, engine milp.Engine, certifier certify.Certifier, options Options) (*Master, error) {
	if options.Hamming < 1 {
		options.Hamming = 1
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	teams, slots := instance.NumTeams(), instance.NumSlots()
	m := milp.NewModel("master")
	space := catalogue.NewPatternSpace(m, teams, slots)

	for slot := range slots {
		expr := milp.NewExpr()
		for team := range teams {
			expr.Add(space.X(team, slot), 1)
		}
		m.AddRow(fmt.Sprintf("hosts[%d]", slot), expr, milp.Equal, teams/2)
	}
	for team := range teams {
		expr := milp.NewExpr()
		for slot := range slots {
			expr.Add(space.X(team, slot), 1)
		}
		m.AddRow(fmt.Sprintf("homes[%d]", team), expr, milp.Equal, slots/2)
	}

	pattern, _ := catalogue.Split(instance)
	for _, constraint := range pattern {
		if err := catalogue.Encode(space, constraint); err != nil {
			return nil, err
		}
	}

	if options.OpponentCuts {
		addOpponentCuts(instance, space)
	}

	if options.LPDump != "" {
		if err := os.WriteFile(options.LPDump, []byte(m.ToLP()), 0o644); err != nil {
			return nil, fmt.Errorf("cannot write LP dump: %w", err)
		}
	}

	logger.Info("master built", "instance", instance.Name, "vars", m.NumVars(), "rows", m.NumRows(), "patternRecords", len(pattern))
	return &Master{
		instance:  instance,
		engine:    engine,
		certifier: certifier,
		options:   options,
		logger:    logger,
		model:     m,
		space:     space,
		ledger:    NewLedger(),
	}, nil
}

// addOpponentCuts requires, for every ordered pair (i, j), a slot with i home and j away. In phased instances every
// unordered pair also needs opposite sides in each half. d <= x_i and d <= 1 - x_j make d an under-estimate.
func addOpponentCuts(instance model.Instance, space *catalogue.PatternSpace) {
	m := space.Model()
	teams, slots := instance.NumTeams(), instance.NumSlots()

	apart := make([][][]milp.Var, teams)
	for i := range teams {
		apart[i] = make([][]milp.Var, teams)
		for j := range teams {
			if i == j {
				continue
			}
			apart[i][j] = make([]milp.Var, slots)
			for slot := range slots {
				d := m.NewBinary(fmt.Sprintf("d[%d,%d,%d]", i, j, slot))
				m.AddRow(fmt.Sprintf("dhome[%d,%d,%d]", i, j, slot), milp.NewExpr().Add(d, 1).Add(space.X(i, slot), -1), milp.LessEq, 0)
				m.AddRow(fmt.Sprintf("daway[%d,%d,%d]", i, j, slot), milp.NewExpr().Add(d, 1).Add(space.X(j, slot), 1), milp.LessEq, 1)
				apart[i][j][slot] = d
			}
			m.AddRow(fmt.Sprintf("opponent[%d,%d]", i, j), milp.Sum(apart[i][j]...), milp.GreaterEq, 1)
		}
	}

	if !instance.Phased() {
		return
	}
	for i := range teams {
		for j := i + 1; j < teams; j++ {
			for half := range 2 {
				expr := milp.NewExpr()
				for slot := range slots {
					if instance.Half(slot) == half {
						expr.Add(apart[i][j][slot], 1).Add(apart[j][i][slot], 1)
					}
				}
				m.AddRow(fmt.Sprintf("phase[%d,%d,%d]", i, j, half), expr, milp.GreaterEq, 1)
			}
		}
	}
}

func (master *Master) Model() *milp.Model {
	return master.model
}

func (master *Master) Ledger() *Ledger {
	return master.ledger
}

// Solve runs the branch-and-check search. Every incumbent pattern is certified, its schedules are audited, strict
// improvements go to sink and the pattern is cut off whatever the outcome. sink may be nil.
func (master *Master) Solve(ctx context.Context, sink SolutionSink) (Result, error) {
	if master.options.TimeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, master.options.TimeLimit)
		defer cancel()
	}

	started := time.Now()
	result := Result{}
	handler := func(ctx context.Context, solution milp.Solution, cuts milp.CutSink) (milp.Verdict, error) {
		return master.onIncumbent(ctx, solution, cuts, sink, &result)
	}

	engineResult, err := master.engine.Optimize(ctx, master.model, handler)
	result.Elapsed = time.Since(started)
	result.Cuts = master.ledger.Len()
	if err != nil {
		result.Status = ExternalFailure
		master.logger.Error("master search failed", "error", err, "patterns", result.Patterns)
		return result, fmt.Errorf("master search failed: %w", err)
	}

	switch engineResult.Status {
	case milp.TimeLimit:
		result.Status = TimeLimit
	case milp.Failure:
		result.Status = ExternalFailure
	default:
		// every incumbent is rejected, so the engine only ever ends by running out of patterns
		result.Status = Infeasible
		if result.Best != nil {
			result.Status = Optimal
		}
	}

	attributes := []any{"status", result.Status, "patterns", result.Patterns, "accepted", result.Accepted, "elapsed", result.Elapsed}
	if result.Best != nil {
		attributes = append(attributes, "penalty", result.Best.Penalty())
	}
	master.logger.Info("master finished", attributes...)
	return result, nil
}

func (master *Master) onIncumbent(ctx context.Context, solution milp.Solution, cuts milp.CutSink, sink SolutionSink, result *Result) (milp.Verdict, error) {
	pattern := master.space.Pattern(solution)
	if err := pattern.Balanced(); err != nil {
		return milp.Reject, fmt.Errorf("%w: %w", ErrUnbalancedIncumbent, err)
	}
	if !master.model.Feasible(solution.Values) {
		return milp.Reject, fmt.Errorf("%w:\n%v", ErrUnbalancedIncumbent, pattern)
	}
	if master.ledger.Seen(pattern) {
		return milp.Reject, fmt.Errorf("%w:\n%v", ErrPatternRevisited, pattern)
	}
	result.Patterns++

	outcome, err := master.certifier.Certify(ctx, pattern)
	if err != nil {
		return milp.Reject, fmt.Errorf("certifier failed: %w", err)
	}
	result.Mismatches += outcome.Mismatches
	if outcome.Mismatches > 0 {
		master.logger.Error("certifier schedules withheld", "mismatches", outcome.Mismatches, "pattern", pattern.String())
	}
	if len(outcome.Candidates) > 0 {
		result.Certified++
	}

	improved := false
	for _, candidate := range outcome.Candidates {
		result.Accepted++
		if result.Best != nil && candidate.Penalty() >= result.Best.Penalty() {
			continue
		}
		best := candidate
		result.Best = &best
		improved = true
	}

	if improved {
		master.logger.Info("improving schedule", "penalty", result.Best.Penalty(), "bound", solution.Objective, "patterns", result.Patterns)
		if sink != nil {
			persisted := model.Solution{
				Name:      fmt.Sprintf("%v-%d", master.instance.Name, result.Patterns),
				Schedule:  result.Best.Schedule,
				Objective: result.Best.Penalty(),
			}
			if err := sink.Persist(persisted); err != nil {
				master.logger.Error("cannot persist schedule", "error", err)
			}
		}
		// patterns whose own penalty already reaches the best schedule cannot lead to a better one
		cuts.AddCut("bound", master.model.Objective().Clone(), milp.LessEq, result.Best.Penalty()-1)
	}

	cut, err := master.ledger.Record(master.space, pattern, master.options.Hamming)
	if err != nil {
		return milp.Reject, err
	}
	cuts.AddCut(cut.Name, cut.Expr, milp.LessEq, cut.RHS)
	master.logger.Debug("pattern examined", "status", outcome.Status, "bound", solution.Objective, "candidates", len(outcome.Candidates), "cuts", master.ledger.Len())
	return milp.Reject, nil
}
