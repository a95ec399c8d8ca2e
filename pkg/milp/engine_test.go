package milp

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/crillab/gophersat/solver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptimizeMinimisesIntegerObjective(t *testing.T) {
	//** Arrange
	// minimise 3a + 2b subject to a + b >= 4, a <= 3, b in [0, 5]
	model := NewModel("small")
	a := model.NewInteger("a", 0, 3)
	b := model.NewInteger("b", 0, 5)
	model.AddRow("cover", Sum(a, b), GreaterEq, 4)
	model.AddObjective(a, 3)
	model.AddObjective(b, 2)
	engine := NewGophersatEngine(nil)

	//** Act
	result, err := engine.Optimize(context.Background(), model, nil)

	//** Assert
	assert.Nil(t, err)
	assert.Equal(t, Optimal, result.Status)
	assert.NotNil(t, result.Best)
	assert.Equal(t, 8, result.Best.Objective)
	assert.Equal(t, 0, result.Best.Value(a))
	assert.Equal(t, 4, result.Best.Value(b))
	assert.True(t, model.Feasible(result.Best.Values))
}

func TestEveryIncumbentIsFeasible(t *testing.T) {
	//** Arrange
	model := NewModel("small")
	a := model.NewInteger("a", 0, 3)
	b := model.NewInteger("b", 0, 5)
	model.AddRow("cover", Sum(a, b), GreaterEq, 4)
	model.AddObjective(a, 3)
	model.AddObjective(b, 2)

	objectives := make([]int, 0)
	handler := func(_ context.Context, solution Solution, _ CutSink) (Verdict, error) {
		assert.True(t, model.Feasible(solution.Values), "incumbent %v breaks the model", solution.Values)
		objectives = append(objectives, solution.Objective)
		return Accept, nil
	}

	//** Act
	result, err := NewGophersatEngine(nil).Optimize(context.Background(), model, handler)

	//** Assert
	require.Nil(t, err)
	assert.Equal(t, Optimal, result.Status)
	assert.Equal(t, 8, result.Best.Objective)
	assert.Equal(t, 8, objectives[len(objectives)-1])
	for i := 1; i < len(objectives); i++ {
		assert.Less(t, objectives[i], objectives[i-1])
	}
}

// fixed returns unit clauses pinning the expansion bits of every variable to values
func fixed(encoding *encoding, values []int) [][]int {
	units := make([][]int, 0)
	for i, v := range encoding.model.vars {
		offset := values[i] - v.lower
		for k, literal := range encoding.bits[i] {
			if offset&(1<<k) != 0 {
				units = append(units, []int{literal})
			} else {
				units = append(units, []int{-literal})
			}
		}
	}
	return units
}

func TestRowsTranslateExactly(t *testing.T) {
	for _, sense := range []Sense{LessEq, GreaterEq, Equal} {
		for _, rhs := range []int{-7, -1, 0, 2, 5, 11} {
			t.Run(fmt.Sprintf("%v %d", sense, rhs), func(t *testing.T) {
				//** Arrange
				// 2a - 3b + 5c (sense) rhs, a in [0, 3], b in [-2, 2], c binary
				model := NewModel("row")
				a := model.NewInteger("a", 0, 3)
				b := model.NewInteger("b", -2, 2)
				c := model.NewBinary("c")
				expr := NewExpr().Add(a, 2).Add(b, -3).Add(c, 5)
				model.AddRow("row", expr, sense, rhs)
				encoding := newEncoding(model)

				for va := 0; va <= 3; va++ {
					for vb := -2; vb <= 2; vb++ {
						for vc := 0; vc <= 1; vc++ {
							values := []int{va, vb, vc}
							holds := model.Feasible(values)

							//** Act
							satisfiable := false
							if !encoding.infeasible {
								status, _, err := search(context.Background(), solver.New(solver.ParseSlice(append(fixed(encoding, values), encoding.base...))))
								require.Nil(t, err)
								satisfiable = status == solver.Sat
							}

							//** Assert
							assert.Equal(t, holds, satisfiable, "a=%d b=%d c=%d", va, vb, vc)
						}
					}
				}
			})
		}
	}
}

func TestCancelledSearchReleasesItsGoroutine(t *testing.T) {
	//** Arrange
	// twelve pigeons in eleven holes: unsatisfiable and far beyond the deadline for a CDCL search
	model := NewModel("pigeons")
	pigeons, holes := 12, 11
	nests := make([][]Var, pigeons)
	for p := range pigeons {
		nests[p] = make([]Var, holes)
		for h := range holes {
			nests[p][h] = model.NewBinary(fmt.Sprintf("x[%d,%d]", p, h))
		}
		model.AddRow(fmt.Sprintf("nested[%d]", p), Sum(nests[p]...), GreaterEq, 1)
	}
	for h := range holes {
		expr := NewExpr()
		for p := range pigeons {
			expr.Add(nests[p][h], 1)
		}
		model.AddRow(fmt.Sprintf("hole[%d]", h), expr, LessEq, 1)
	}
	before := runtime.NumGoroutine()
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	//** Act
	started := time.Now()
	result, err := NewGophersatEngine(nil).Optimize(ctx, model, nil)

	//** Assert
	assert.Nil(t, err)
	assert.Equal(t, TimeLimit, result.Status)
	assert.Less(t, time.Since(started), 5*time.Second)
	settled := time.Now().Add(time.Second)
	for runtime.NumGoroutine() > before && time.Now().Before(settled) {
		time.Sleep(10 * time.Millisecond)
	}
	assert.LessOrEqual(t, runtime.NumGoroutine(), before)
}

func TestOptimizeDetectsInfeasibility(t *testing.T) {
	model := NewModel("infeasible")
	a := model.NewBinary("a")
	b := model.NewBinary("b")
	model.AddRow("both", Sum(a, b), Equal, 2)
	model.AddRow("at-most-one", Sum(a, b), LessEq, 1)

	result, err := NewGophersatEngine(nil).Optimize(context.Background(), model, nil)

	assert.Nil(t, err)
	assert.Equal(t, Infeasible, result.Status)
	assert.Nil(t, result.Best)
}

func TestOptimizeHonoursNegativeCoefficientsAndLowerBounds(t *testing.T) {
	//** Arrange
	// x in [-2, 2], y in [1, 4], x - y = -3, minimise -x
	model := NewModel("shifted")
	x := model.NewInteger("x", -2, 2)
	y := model.NewInteger("y", 1, 4)
	model.AddRow("link", NewExpr().Add(x, 1).Add(y, -1), Equal, -3)
	model.AddObjective(x, -1)

	//** Act
	result, err := NewGophersatEngine(nil).Optimize(context.Background(), model, nil)

	//** Assert
	assert.Nil(t, err)
	assert.Equal(t, Optimal, result.Status)
	assert.Equal(t, 1, result.Best.Value(x))
	assert.Equal(t, 4, result.Best.Value(y))
	assert.Equal(t, -1, result.Best.Objective)
}

func TestHandlerCutsEnumerateEverySolution(t *testing.T) {
	//** Arrange
	// exactly two of four binaries: six solutions, each one rejected and cut off
	model := NewModel("enumerate")
	vars := []Var{model.NewBinary("a"), model.NewBinary("b"), model.NewBinary("c"), model.NewBinary("d")}
	model.AddRow("two", Sum(vars...), Equal, 2)

	seen := make(map[[4]int]bool)
	handler := func(_ context.Context, solution Solution, cuts CutSink) (Verdict, error) {
		key := [4]int{}
		cut := NewExpr()
		ones := 0
		for i, v := range vars {
			key[i] = solution.Value(v)
			if key[i] == 1 {
				cut.Add(v, 1)
				ones++
			} else {
				cut.Add(v, -1)
			}
		}
		assert.False(t, seen[key], "solution %v was produced twice", key)
		seen[key] = true
		cuts.AddCut("no-good", cut, LessEq, ones-1)
		return Reject, nil
	}

	//** Act
	result, err := NewGophersatEngine(nil).Optimize(context.Background(), model, handler)

	//** Assert
	assert.Nil(t, err)
	assert.Equal(t, Infeasible, result.Status)
	assert.Equal(t, 6, len(seen))
	assert.Equal(t, 6, result.Incumbents)
	assert.Equal(t, 6, result.Cuts)
}

func TestRejectWithoutCutIsAnError(t *testing.T) {
	model := NewModel("bad-handler")
	model.NewBinary("a")

	result, err := NewGophersatEngine(nil).Optimize(context.Background(), model, func(context.Context, Solution, CutSink) (Verdict, error) {
		return Reject, nil
	})

	assert.NotNil(t, err)
	assert.Equal(t, Failure, result.Status)
}

func TestExpiredContextReportsTimeLimit(t *testing.T) {
	model := NewModel("expired")
	model.NewBinary("a")
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	result, err := NewGophersatEngine(nil).Optimize(ctx, model, nil)

	assert.Nil(t, err)
	assert.Equal(t, TimeLimit, result.Status)
}

func TestToLP(t *testing.T) {
	model := NewModel("lp")
	a := model.NewBinary("home[0,1]")
	s := model.NewInteger("slack", 0, 3)
	model.AddRow("cap", NewExpr().Add(a, 1).Add(s, -1), LessEq, 0)
	model.AddObjective(s, 5)

	lp := model.ToLP()

	assert.True(t, strings.Contains(lp, "Minimize\n obj: 5 slack#1"))
	assert.True(t, strings.Contains(lp, " cap: home_0,1_#0 - slack#1 <= 0"))
	assert.True(t, strings.Contains(lp, " 0 <= slack#1 <= 3"))
	assert.True(t, strings.HasSuffix(lp, "End\n"))
}
