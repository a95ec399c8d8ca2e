package milp

import (
	"fmt"
	"strings"
)

// ToLP renders the model in CPLEX LP format, for inspection with external tools
func (model *Model) ToLP() string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "\\ Model %v\n", model.Name)
	builder.WriteString("Minimize\n obj: ")
	writeTerms(&builder, model, model.objective.Merged())
	if model.objective.Constant != 0 {
		fmt.Fprintf(&builder, " + %d", model.objective.Constant)
	}
	builder.WriteString("\nSubject To\n")
	for i, row := range model.rows {
		name := row.Name
		if name == "" {
			name = fmt.Sprintf("R%d", i)
		}
		fmt.Fprintf(&builder, " %v: ", name)
		writeTerms(&builder, model, row.Expr.Merged())
		fmt.Fprintf(&builder, " %v %d\n", row.Sense, row.RHS-row.Expr.Constant)
	}

	builder.WriteString("Bounds\n")
	for i, v := range model.vars {
		if v.lower != 0 || v.upper != 1 {
			fmt.Fprintf(&builder, " %d <= %v <= %d\n", v.lower, lpName(model, Var(i)), v.upper)
		}
	}

	builder.WriteString("Binaries\n")
	for i, v := range model.vars {
		if v.lower == 0 && v.upper == 1 {
			fmt.Fprintf(&builder, " %v\n", lpName(model, Var(i)))
		}
	}
	builder.WriteString("Generals\n")
	for i, v := range model.vars {
		if v.lower != 0 || v.upper != 1 {
			fmt.Fprintf(&builder, " %v\n", lpName(model, Var(i)))
		}
	}
	builder.WriteString("End\n")
	return builder.String()
}

func writeTerms(builder *strings.Builder, model *Model, terms []Term) {
	if len(terms) == 0 {
		builder.WriteString("0")
		return
	}
	for i, term := range terms {
		coef := term.Coef
		switch {
		case coef < 0:
			builder.WriteString(" - ")
			coef = -coef
		case i > 0:
			builder.WriteString(" + ")
		}
		if coef != 1 {
			fmt.Fprintf(builder, "%d ", coef)
		}
		builder.WriteString(lpName(model, term.Var))
	}
}

// lpName keeps variable names unique and free of characters the LP format rejects
func lpName(model *Model, v Var) string {
	name := strings.Map(func(r rune) rune {
		if strings.ContainsRune(" :+-*<>=[]", r) {
			return '_'
		}
		return r
	}, model.vars[v].name)
	return fmt.Sprintf("%v#%d", name, v)
}
