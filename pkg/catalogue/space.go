package catalogue

import (
	"fmt"

	"github.com/limaJavier/roundrobin/pkg/milp"
	"github.com/limaJavier/roundrobin/pkg/model"
)

// Space exposes the decision variables of one model build to the encoders
type Space interface {
	Model() *milp.Model
	Teams() int
	Slots() int
	// Home is an expression equal to 1 iff team plays home in slot
	Home(team, slot int) *milp.Expr
	// Away is an expression equal to 1 iff team plays away in slot
	Away(team, slot int) *milp.Expr
	// Game returns the pairing variable of home hosting away in slot; ok is false in spaces without pairings
	Game(home, away, slot int) (v milp.Var, ok bool)
	// Break returns the indicator of a home (mode H) or away (mode A) break of team between slot-1 and slot
	Break(team, slot int, mode model.Mode) milp.Var
}

type breakKey struct {
	team int
	slot int
	mode model.Mode
}

// breaks materialises break indicators on first use; one arena per model build
type breaks struct {
	vars map[breakKey]milp.Var
}

func newBreaks() breaks {
	return breaks{vars: make(map[breakKey]milp.Var)}
}

// get returns the memoised indicator, defining it by side(slot-1) + side(slot) - b <= 1
func (arena breaks) get(space Space, team, slot int, mode model.Mode) milp.Var {
	key := breakKey{team: team, slot: slot, mode: mode}
	if v, ok := arena.vars[key]; ok {
		return v
	}

	side := space.Home
	if mode == model.Away {
		side = space.Away
	}
	v := space.Model().NewBinary(fmt.Sprintf("b%v[%d,%d]", mode, team, slot))
	expr := side(team, slot-1).AddExpr(side(team, slot), 1).Add(v, -1)
	space.Model().AddRow(fmt.Sprintf("break%v[%d,%d]", mode, team, slot), expr, milp.LessEq, 1)
	arena.vars[key] = v
	return v
}

// PatternSpace holds x[team,slot] = 1 iff team plays home in slot
type PatternSpace struct {
	model  *milp.Model
	x      [][]milp.Var
	breaks breaks
}

func NewPatternSpace(m *milp.Model, teams, slots int) *PatternSpace {
	space := &PatternSpace{model: m, x: make([][]milp.Var, teams), breaks: newBreaks()}
	for team := range teams {
		space.x[team] = make([]milp.Var, slots)
		for slot := range slots {
			space.x[team][slot] = m.NewBinary(fmt.Sprintf("x[%d,%d]", team, slot))
		}
	}
	return space
}

func (space *PatternSpace) Model() *milp.Model { return space.model }
func (space *PatternSpace) Teams() int         { return len(space.x) }

func (space *PatternSpace) Slots() int {
	if len(space.x) == 0 {
		return 0
	}
	return len(space.x[0])
}

func (space *PatternSpace) X(team, slot int) milp.Var {
	return space.x[team][slot]
}

func (space *PatternSpace) Home(team, slot int) *milp.Expr {
	return milp.NewExpr().Add(space.x[team][slot], 1)
}

func (space *PatternSpace) Away(team, slot int) *milp.Expr {
	return milp.NewExpr().Add(space.x[team][slot], -1).AddConstant(1)
}

func (space *PatternSpace) Game(_, _, _ int) (milp.Var, bool) {
	return 0, false
}

func (space *PatternSpace) Break(team, slot int, mode model.Mode) milp.Var {
	return space.breaks.get(space, team, slot, mode)
}

// Pattern reads the home/away matrix out of a solution
func (space *PatternSpace) Pattern(solution milp.Solution) model.Pattern {
	pattern := model.NewPattern(space.Teams(), space.Slots())
	for team := range space.x {
		for slot, v := range space.x[team] {
			pattern[team][slot] = solution.Value(v) == 1
		}
	}
	return pattern
}

// PairingSpace holds y[home,away,slot] = 1 iff home hosts away in slot
type PairingSpace struct {
	model  *milp.Model
	y      [][][]milp.Var
	slots  int
	breaks breaks
}

func NewPairingSpace(m *milp.Model, teams, slots int) *PairingSpace {
	space := &PairingSpace{model: m, y: make([][][]milp.Var, teams), slots: slots, breaks: newBreaks()}
	for home := range teams {
		space.y[home] = make([][]milp.Var, teams)
		for away := range teams {
			if home == away {
				continue
			}
			space.y[home][away] = make([]milp.Var, slots)
			for slot := range slots {
				space.y[home][away][slot] = m.NewBinary(fmt.Sprintf("y[%d,%d,%d]", home, away, slot))
			}
		}
	}
	return space
}

func (space *PairingSpace) Model() *milp.Model { return space.model }
func (space *PairingSpace) Teams() int         { return len(space.y) }
func (space *PairingSpace) Slots() int         { return space.slots }

func (space *PairingSpace) Home(team, slot int) *milp.Expr {
	expr := milp.NewExpr()
	for away := range space.Teams() {
		if away != team {
			expr.Add(space.y[team][away][slot], 1)
		}
	}
	return expr
}

func (space *PairingSpace) Away(team, slot int) *milp.Expr {
	expr := milp.NewExpr()
	for home := range space.Teams() {
		if home != team {
			expr.Add(space.y[home][team][slot], 1)
		}
	}
	return expr
}

func (space *PairingSpace) Game(home, away, slot int) (milp.Var, bool) {
	if home == away {
		return 0, false
	}
	return space.y[home][away][slot], true
}

func (space *PairingSpace) Break(team, slot int, mode model.Mode) milp.Var {
	return space.breaks.get(space, team, slot, mode)
}

// Schedule reads the games out of a solution
func (space *PairingSpace) Schedule(solution milp.Solution) model.Schedule {
	schedule := make(model.Schedule, space.slots)
	for slot := range space.slots {
		schedule[slot] = make([]model.Game, 0, space.Teams()/2)
		for home := range space.Teams() {
			for away := range space.Teams() {
				if home != away && solution.Value(space.y[home][away][slot]) == 1 {
					schedule[slot] = append(schedule[slot], model.Game{Home: home, Away: away})
				}
			}
		}
	}
	return schedule
}
