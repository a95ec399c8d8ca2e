package milp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/bits"
	"slices"

	"github.com/crillab/gophersat/solver"
	"github.com/samber/lo"
)

// ErrUnsoundAssignment is returned when the solver answers with an assignment that breaks a bound or a row
var ErrUnsoundAssignment = errors.New("solver assignment violates the model")

type gophersatEngine struct {
	logger *slog.Logger
}

// NewGophersatEngine returns an engine that compiles models into clauses and solves them with gophersat's CDCL
// solver. Minimisation is a linear search on the objective value; every search restarts from the current set of
// rows, cuts and objective bound.
func NewGophersatEngine(logger *slog.Logger) Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &gophersatEngine{logger: logger}
}

type cutBuffer struct {
	rows []Row
}

func (buffer *cutBuffer) AddCut(name string, expr *Expr, sense Sense, rhs int) {
	buffer.rows = append(buffer.rows, Row{Name: name, Expr: expr.Clone(), Sense: sense, RHS: rhs})
}

func (buffer *cutBuffer) drain() []Row {
	rows := buffer.rows
	buffer.rows = nil
	return rows
}

func (engine *gophersatEngine) Optimize(ctx context.Context, model *Model, handler IncumbentHandler) (Result, error) {
	result := Result{Status: Infeasible}

	encoding := newEncoding(model)
	if encoding.infeasible {
		engine.logger.Debug("model infeasible at encoding", "model", model.Name)
		return result, nil
	}

	buffer := &cutBuffer{}
	// rows added during the search, checked together with the model on every assignment
	extra := make([]Row, 0)
	cuts := make([][]int, 0)
	var bound [][]int
	var boundRow []Row
	for {
		if ctx.Err() != nil {
			result.Status = TimeLimit
			return result, nil
		}

		clauses := slices.Concat(encoding.base, cuts, bound)
		values, found, err := encoding.solve(ctx, clauses)
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			result.Status = TimeLimit
			return result, nil
		} else if err != nil {
			result.Status = Failure
			return result, err
		}
		if !found {
			if result.Best != nil {
				result.Status = Optimal
			}
			return result, nil
		}

		if !model.Feasible(values) || lo.SomeBy(slices.Concat(extra, boundRow), func(row Row) bool { return !row.Holds(values) }) {
			result.Status = Failure
			engine.logger.Error("unsound assignment", "model", model.Name, "incumbents", result.Incumbents)
			return result, ErrUnsoundAssignment
		}

		solution := Solution{Values: values, Objective: evaluate(model.objective, values)}
		result.Incumbents++
		engine.logger.Debug("incumbent found", "model", model.Name, "objective", solution.Objective, "incumbents", result.Incumbents)

		verdict := Accept
		if handler != nil {
			if verdict, err = handler(ctx, solution, buffer); err != nil {
				result.Status = Failure
				return result, fmt.Errorf("incumbent handler failed: %w", err)
			}
		}

		added := buffer.drain()
		result.Cuts += len(added)
		exhausted := false
		for _, row := range added {
			clauses, ok := encoding.row(row.Expr, row.Sense, row.RHS)
			if !ok {
				exhausted = true
			}
			cuts = append(cuts, clauses...)
			extra = append(extra, row)
		}

		switch verdict {
		case Accept:
			result.Best = &solution
			var ok bool
			bound, ok = encoding.row(model.objective, LessEq, solution.Objective-1)
			boundRow = []Row{{Name: "objective", Expr: model.objective, Sense: LessEq, RHS: solution.Objective - 1}}
			if !ok {
				exhausted = true
			}
		case Reject:
			if !lo.SomeBy(added, func(row Row) bool { return !row.Holds(values) }) {
				result.Status = Failure
				return result, errors.New("incumbent rejected without a cut excluding it")
			}
		}

		if exhausted {
			result.Status = Infeasible
			if result.Best != nil {
				result.Status = Optimal
			}
			return result, nil
		}
	}
}

// encoding maps every bounded integer variable onto a binary expansion: v = lower + sum 2^k * bit_k.
// Literals are gophersat's 1-based integers; auxiliary literals of row translations follow the expansion bits.
type encoding struct {
	model      *Model
	bits       [][]int
	literals   int
	base       [][]int
	infeasible bool
}

func newEncoding(model *Model) *encoding {
	encoding := &encoding{
		model: model,
		bits:  make([][]int, model.NumVars()),
		base:  make([][]int, 0, model.NumRows()),
	}

	for i, v := range model.vars {
		span := v.upper - v.lower
		if span < 0 {
			encoding.infeasible = true
			return encoding
		}

		width := bits.Len(uint(span))
		encoding.bits[i] = make([]int, width)
		for k := range width {
			encoding.bits[i][k] = encoding.fresh()
		}
	}

	for i, v := range model.vars {
		// The expansion can exceed the upper bound when span+1 is not a power of two
		if width := len(encoding.bits[i]); width > 0 && (1<<width)-1 > v.upper-v.lower {
			clauses, _ := encoding.row(NewExpr().Add(Var(i), 1), LessEq, v.upper)
			encoding.base = append(encoding.base, clauses...)
		}
	}

	for _, row := range model.rows {
		clauses, ok := encoding.row(row.Expr, row.Sense, row.RHS)
		if !ok {
			encoding.infeasible = true
			return encoding
		}
		encoding.base = append(encoding.base, clauses...)
	}
	return encoding
}

func (encoding *encoding) fresh() int {
	encoding.literals++
	return encoding.literals
}

// row translates expr (sense) rhs into clauses. It returns false when the row cannot hold.
func (encoding *encoding) row(expr *Expr, sense Sense, rhs int) ([][]int, bool) {
	order := make([]int, 0)
	weights := make(map[int]int)
	constant := expr.Constant
	for _, term := range expr.Merged() {
		constant += term.Coef * encoding.model.vars[term.Var].lower
		for k, literal := range encoding.bits[term.Var] {
			if _, ok := weights[literal]; !ok {
				order = append(order, literal)
			}
			weights[literal] += term.Coef << k
		}
	}

	clauses := make([][]int, 0)
	if sense == GreaterEq || sense == Equal {
		translated, ok := encoding.atLeast(order, weights, 1, rhs-constant)
		if !ok {
			return nil, false
		}
		clauses = append(clauses, translated...)
	}
	if sense == LessEq || sense == Equal {
		translated, ok := encoding.atLeast(order, weights, -1, constant-rhs)
		if !ok {
			return nil, false
		}
		clauses = append(clauses, translated...)
	}
	return clauses, true
}

// atLeast translates sum(sign*w*l) >= bound into clauses, flipping literals whose weight is negative so that every
// weight is positive
func (encoding *encoding) atLeast(order []int, weights map[int]int, sign int, bound int) ([][]int, bool) {
	terms := make([]weighted, 0, len(order))
	total := 0
	for _, literal := range order {
		weight := sign * weights[literal]
		switch {
		case weight > 0:
			terms = append(terms, weighted{literal: literal, weight: weight})
			total += weight
		case weight < 0:
			terms = append(terms, weighted{literal: -literal, weight: -weight})
			bound -= weight
			total -= weight
		}
	}

	if bound <= 0 {
		return nil, true
	}
	if total < bound {
		return nil, false
	}
	return newDiagram(encoding, terms).translate(bound), true
}

// certificateBuffer is the number of learned clauses the solver may queue before it waits for the engine
const certificateBuffer = 1024

// solve runs one gophersat search. Gophersat has no interruption point, but a certified solver hands every learned
// clause to its certificate channel: closing that channel on cancellation makes the next hand-off panic, which ends
// the search. solve returns only once the search goroutine is gone.
func (encoding *encoding) solve(ctx context.Context, clauses [][]int) ([]int, bool, error) {
	assignment := []bool{}
	if len(clauses) > 0 {
		status, model, err := search(ctx, solver.New(solver.ParseSlice(clauses)))
		if err != nil {
			return nil, false, err
		}
		switch status {
		case solver.Unsat:
			return nil, false, nil
		case solver.Sat:
			assignment = model
		default:
			return nil, false, errors.New("gophersat ended with an undetermined status")
		}
	}

	values := make([]int, encoding.model.NumVars())
	for i, v := range encoding.model.vars {
		values[i] = v.lower
		for k, literal := range encoding.bits[i] {
			if literal-1 < len(assignment) && assignment[literal-1] {
				values[i] += 1 << k
			}
		}
	}
	return values, true, nil
}

type outcome struct {
	status    solver.Status
	model     []bool
	recovered any
}

func search(ctx context.Context, sat *solver.Solver) (solver.Status, []bool, error) {
	certificates := make(chan string, certificateBuffer)
	sat.Certified = true
	sat.CertChan = certificates

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if recovered := recover(); recovered != nil {
				done <- outcome{status: solver.Indet, recovered: recovered}
			}
		}()
		status := sat.Solve()
		result := outcome{status: status}
		if status == solver.Sat {
			result.model = sat.Model()
		}
		done <- result
	}()

	for {
		select {
		case <-certificates:
		case result := <-done:
			if result.recovered != nil {
				return solver.Indet, nil, fmt.Errorf("gophersat failed: %v", result.recovered)
			}
			return result.status, result.model, nil
		case <-ctx.Done():
			close(certificates)
			<-done
			return solver.Indet, nil, ctx.Err()
		}
	}
}
