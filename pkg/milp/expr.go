package milp

import (
	"fmt"
	"strings"
)

// Var identifies a variable inside the model that created it
type Var int

type Term struct {
	Var  Var
	Coef int
}

// Expr is a linear expression: sum of coef*var plus a constant
type Expr struct {
	Terms    []Term
	Constant int
}

func NewExpr() *Expr {
	return &Expr{Terms: make([]Term, 0)}
}

// Sum builds the expression v1 + v2 + ... + vn
func Sum(vars ...Var) *Expr {
	expr := NewExpr()
	for _, v := range vars {
		expr.Add(v, 1)
	}
	return expr
}

func (expr *Expr) Add(v Var, coef int) *Expr {
	if coef != 0 {
		expr.Terms = append(expr.Terms, Term{Var: v, Coef: coef})
	}
	return expr
}

// AddExpr adds scale*other to the expression
func (expr *Expr) AddExpr(other *Expr, scale int) *Expr {
	for _, term := range other.Terms {
		expr.Add(term.Var, scale*term.Coef)
	}
	expr.Constant += scale * other.Constant
	return expr
}

func (expr *Expr) AddConstant(constant int) *Expr {
	expr.Constant += constant
	return expr
}

func (expr *Expr) Clone() *Expr {
	return &Expr{Terms: append([]Term{}, expr.Terms...), Constant: expr.Constant}
}

// Merged returns the terms with one entry per variable, zero coefficients dropped, in first-appearance order
func (expr *Expr) Merged() []Term {
	order := make([]Var, 0, len(expr.Terms))
	coefs := make(map[Var]int, len(expr.Terms))
	for _, term := range expr.Terms {
		if _, ok := coefs[term.Var]; !ok {
			order = append(order, term.Var)
		}
		coefs[term.Var] += term.Coef
	}

	merged := make([]Term, 0, len(order))
	for _, v := range order {
		if coefs[v] != 0 {
			merged = append(merged, Term{Var: v, Coef: coefs[v]})
		}
	}
	return merged
}

func (expr *Expr) String() string {
	var builder strings.Builder
	for i, term := range expr.Merged() {
		switch {
		case i == 0 && term.Coef < 0:
			builder.WriteString("- ")
		case i > 0 && term.Coef < 0:
			builder.WriteString(" - ")
		case i > 0:
			builder.WriteString(" + ")
		}
		coef := term.Coef
		if coef < 0 {
			coef = -coef
		}
		if coef != 1 {
			fmt.Fprintf(&builder, "%d ", coef)
		}
		fmt.Fprintf(&builder, "v%d", term.Var)
	}
	if expr.Constant != 0 || builder.Len() == 0 {
		if builder.Len() > 0 {
			builder.WriteString(" + ")
		}
		fmt.Fprintf(&builder, "%d", expr.Constant)
	}
	return builder.String()
}
