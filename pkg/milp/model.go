package milp

import (
	"fmt"

	"github.com/samber/lo"
)

type Sense int

const (
	LessEq Sense = iota
	GreaterEq
	Equal
)

func (sense Sense) String() string {
	switch sense {
	case LessEq:
		return "<="
	case GreaterEq:
		return ">="
	case Equal:
		return "="
	}
	return "?"
}

// Row is the linear constraint Expr (sense) RHS
type Row struct {
	Name  string
	Expr  *Expr
	Sense Sense
	RHS   int
}

// Holds reports whether the row is satisfied by the given values
func (row Row) Holds(values []int) bool {
	lhs := evaluate(row.Expr, values)
	switch row.Sense {
	case LessEq:
		return lhs <= row.RHS
	case GreaterEq:
		return lhs >= row.RHS
	default:
		return lhs == row.RHS
	}
}

type variable struct {
	name  string
	lower int
	upper int
}

// Model is a pure integer linear program with bounded variables and a minimisation objective
type Model struct {
	Name      string
	vars      []variable
	rows      []Row
	objective *Expr
}

func NewModel(name string) *Model {
	return &Model{
		Name:      name,
		vars:      make([]variable, 0),
		rows:      make([]Row, 0),
		objective: NewExpr(),
	}
}

func (model *Model) NewBinary(name string) Var {
	return model.NewInteger(name, 0, 1)
}

func (model *Model) NewInteger(name string, lower, upper int) Var {
	if upper < lower {
		panic(fmt.Sprintf("variable \"%v\" has empty domain [%d, %d]", name, lower, upper))
	}
	model.vars = append(model.vars, variable{name: name, lower: lower, upper: upper})
	return Var(len(model.vars) - 1)
}

func (model *Model) NumVars() int {
	return len(model.vars)
}

func (model *Model) VarName(v Var) string {
	return model.vars[v].name
}

func (model *Model) Bounds(v Var) (lower, upper int) {
	return model.vars[v].lower, model.vars[v].upper
}

// SetBounds narrows or widens the domain of v; an empty domain makes the model infeasible
func (model *Model) SetBounds(v Var, lower, upper int) {
	model.vars[v].lower, model.vars[v].upper = lower, upper
}

func (model *Model) SetUpperBound(v Var, upper int) {
	model.vars[v].upper = upper
}

// ExprBounds returns the smallest and largest values the expression can take under the variable bounds
func (model *Model) ExprBounds(expr *Expr) (lower, upper int) {
	lower, upper = expr.Constant, expr.Constant
	for _, term := range expr.Merged() {
		low, high := model.Bounds(term.Var)
		if term.Coef > 0 {
			lower += term.Coef * low
			upper += term.Coef * high
		} else {
			lower += term.Coef * high
			upper += term.Coef * low
		}
	}
	return lower, upper
}

func (model *Model) AddRow(name string, expr *Expr, sense Sense, rhs int) {
	model.rows = append(model.rows, Row{Name: name, Expr: expr.Clone(), Sense: sense, RHS: rhs})
}

func (model *Model) Rows() []Row {
	return model.rows
}

func (model *Model) NumRows() int {
	return len(model.rows)
}

// AddObjective adds coef*v to the minimisation objective
func (model *Model) AddObjective(v Var, coef int) {
	model.objective.Add(v, coef)
}

func (model *Model) Objective() *Expr {
	return model.objective
}

// Clone copies the model so bounds and rows can be changed without touching the original
func (model *Model) Clone() *Model {
	return &Model{
		Name:      model.Name,
		vars:      append([]variable{}, model.vars...),
		rows:      append([]Row{}, model.rows...),
		objective: model.objective.Clone(),
	}
}

// Solution assigns a value to every variable of a model
type Solution struct {
	Values    []int
	Objective int
}

func (solution Solution) Value(v Var) int {
	return solution.Values[v]
}

func (solution Solution) Eval(expr *Expr) int {
	return evaluate(expr, solution.Values)
}

// Feasible reports whether the values respect every bound and row of the model
func (model *Model) Feasible(values []int) bool {
	if len(values) != len(model.vars) {
		return false
	}
	for i, v := range model.vars {
		if values[i] < v.lower || values[i] > v.upper {
			return false
		}
	}
	return lo.EveryBy(model.rows, func(row Row) bool { return row.Holds(values) })
}

func evaluate(expr *Expr, values []int) int {
	return expr.Constant + lo.SumBy(expr.Terms, func(term Term) int { return term.Coef * values[term.Var] })
}
