package catalogue

import (
	"fmt"

	"github.com/limaJavier/roundrobin/pkg/milp"
	"github.com/limaJavier/roundrobin/pkg/model"
	"github.com/samber/lo"
)

// ConfigurationError reports a record whose parameters the encoder does not support. It is never skipped.
type ConfigurationError struct {
	Kind   model.Kind
	Index  int
	Reason string
}

func (err ConfigurationError) Error() string {
	return fmt.Sprintf("constraint %v #%d cannot be encoded: %v", err.Kind, err.Index, err.Reason)
}

// Encode adds the rows of a record to the model behind space. Soft records get slack variables whose objective
// coefficient is the record's penalty.
func Encode(space Space, constraint model.Constraint) error {
	encoder := encoder{space: space, header: constraint.Meta(), kind: constraint.Kind()}

	switch c := constraint.(type) {
	case model.CA1:
		return encoder.ca1(c)
	case model.CA2:
		return encoder.ca2(c)
	case model.CA3:
		return encoder.ca3(c)
	case model.CA4:
		return encoder.ca4(c)
	case model.GA1:
		return encoder.ga1(c)
	case model.BR1:
		return encoder.br1(c)
	case model.BR2:
		return encoder.br2(c)
	case model.FA2:
		return encoder.fa2(c)
	case model.SE1:
		return encoder.se1(c)
	}
	return fmt.Errorf("unknown constraint type %T", constraint)
}

type encoder struct {
	space  Space
	header model.Header
	kind   model.Kind
}

func (encoder encoder) configurationError(format string, args ...any) error {
	return ConfigurationError{Kind: encoder.kind, Index: encoder.header.Index, Reason: fmt.Sprintf(format, args...)}
}

func (encoder encoder) name(format string, args ...any) string {
	return fmt.Sprintf("%v#%d", encoder.kind, encoder.header.Index) + fmt.Sprintf(format, args...)
}

// atMost adds expr <= max, relaxed by a penalised slack when the record is soft
func (encoder encoder) atMost(name string, expr *milp.Expr, max int) {
	m := encoder.space.Model()
	if encoder.header.Hard() {
		m.AddRow(name, expr, milp.LessEq, max)
		return
	}

	_, upper := m.ExprBounds(expr)
	if upper <= max {
		return
	}
	slack := m.NewInteger("slack:"+name, 0, upper-max)
	m.AddRow(name, expr.Clone().Add(slack, -1), milp.LessEq, max)
	m.AddObjective(slack, encoder.header.Penalty)
}

// atLeast adds expr >= min, relaxed by a penalised slack when the record is soft
func (encoder encoder) atLeast(name string, expr *milp.Expr, min int) {
	m := encoder.space.Model()
	if encoder.header.Hard() {
		m.AddRow(name, expr, milp.GreaterEq, min)
		return
	}

	lower, _ := m.ExprBounds(expr)
	if lower >= min {
		return
	}
	slack := m.NewInteger("slack:"+name, 0, min-lower)
	m.AddRow(name, expr.Clone().Add(slack, 1), milp.GreaterEq, min)
	m.AddObjective(slack, encoder.header.Penalty)
}

func (encoder encoder) noMinimum(min int) error {
	if min > 0 {
		return encoder.configurationError("min %d is not supported, only caps can be encoded", min)
	}
	return nil
}

func pairings(space Space) bool {
	if space.Teams() < 2 || space.Slots() < 1 {
		return false
	}
	_, ok := space.Game(0, 1, 0)
	return ok
}

// appearances counts the games team plays in slot against opponents: as host (H), as guest (A) or both (HA).
// Without pairing variables it is only expressible when the opponents cover every other team.
func (encoder encoder) appearances(team int, opponents []int, slot int, mode model.Mode) (*milp.Expr, error) {
	space := encoder.space
	expr := milp.NewExpr()
	if !pairings(space) {
		if !covers(team, opponents, space.Teams()) {
			return nil, fmt.Errorf("constraint %v #%d needs pairing variables", encoder.kind, encoder.header.Index)
		}
		if mode == model.Home || mode == model.HomeAway {
			expr.AddExpr(space.Home(team, slot), 1)
		}
		if mode == model.Away || mode == model.HomeAway {
			expr.AddExpr(space.Away(team, slot), 1)
		}
		return expr, nil
	}

	for _, opponent := range lo.Uniq(opponents) {
		if opponent == team {
			continue
		}
		if mode == model.Home || mode == model.HomeAway {
			v, _ := space.Game(team, opponent, slot)
			expr.Add(v, 1)
		}
		if mode == model.Away || mode == model.HomeAway {
			v, _ := space.Game(opponent, team, slot)
			expr.Add(v, 1)
		}
	}
	return expr, nil
}

// covers reports whether opponents together with team include every team
func covers(team int, opponents []int, teams int) bool {
	present := lo.SliceToMap(opponents, func(opponent int) (int, bool) { return opponent, true })
	present[team] = true
	return lo.EveryBy(lo.Range(teams), func(t int) bool { return present[t] })
}

func (encoder encoder) ca1(c model.CA1) error {
	if err := encoder.noMinimum(c.Min); err != nil {
		return err
	}
	for _, team := range lo.Uniq(c.Teams) {
		expr := milp.NewExpr()
		for _, slot := range lo.Uniq(c.Slots) {
			if c.Mode == model.Home || c.Mode == model.HomeAway {
				expr.AddExpr(encoder.space.Home(team, slot), 1)
			}
			if c.Mode == model.Away || c.Mode == model.HomeAway {
				expr.AddExpr(encoder.space.Away(team, slot), 1)
			}
		}
		encoder.atMost(encoder.name("[%d]", team), expr, c.Max)
	}
	return nil
}

func (encoder encoder) ca2(c model.CA2) error {
	if err := encoder.noMinimum(c.Min); err != nil {
		return err
	}
	for _, team := range lo.Uniq(c.Teams1) {
		expr := milp.NewExpr()
		for _, slot := range lo.Uniq(c.Slots) {
			games, err := encoder.appearances(team, c.Teams2, slot, c.Mode)
			if err != nil {
				return err
			}
			expr.AddExpr(games, 1)
		}
		encoder.atMost(encoder.name("[%d]", team), expr, c.Max)
	}
	return nil
}

func (encoder encoder) ca3(c model.CA3) error {
	if err := encoder.noMinimum(c.Min); err != nil {
		return err
	}
	for _, team := range lo.Uniq(c.Teams1) {
		for start := 0; start+c.Intp <= encoder.space.Slots(); start++ {
			expr := milp.NewExpr()
			for slot := start; slot < start+c.Intp; slot++ {
				games, err := encoder.appearances(team, c.Teams2, slot, c.Mode)
				if err != nil {
					return err
				}
				expr.AddExpr(games, 1)
			}
			encoder.atMost(encoder.name("[%d,%d]", team, start), expr, c.Max)
		}
	}
	return nil
}

func (encoder encoder) ca4(c model.CA4) error {
	if err := encoder.noMinimum(c.Min); err != nil {
		return err
	}

	slotGames := func(slot int) (*milp.Expr, error) {
		expr := milp.NewExpr()
		for _, team := range lo.Uniq(c.Teams1) {
			games, err := encoder.appearances(team, c.Teams2, slot, c.Mode)
			if err != nil {
				return nil, err
			}
			expr.AddExpr(games, 1)
		}
		return expr, nil
	}

	if c.Scope == model.Every {
		for _, slot := range lo.Uniq(c.Slots) {
			expr, err := slotGames(slot)
			if err != nil {
				return err
			}
			encoder.atMost(encoder.name("[%d]", slot), expr, c.Max)
		}
		return nil
	}

	expr := milp.NewExpr()
	for _, slot := range lo.Uniq(c.Slots) {
		games, err := slotGames(slot)
		if err != nil {
			return err
		}
		expr.AddExpr(games, 1)
	}
	encoder.atMost(encoder.name(""), expr, c.Max)
	return nil
}

func (encoder encoder) ga1(c model.GA1) error {
	if !pairings(encoder.space) {
		return fmt.Errorf("constraint %v #%d needs pairing variables", encoder.kind, encoder.header.Index)
	}

	expr := milp.NewExpr()
	for _, meeting := range lo.Uniq(c.Meetings) {
		for _, slot := range lo.Uniq(c.Slots) {
			if v, ok := encoder.space.Game(meeting.Home, meeting.Away, slot); ok {
				expr.Add(v, 1)
			}
		}
	}
	encoder.atMost(encoder.name("max"), expr, c.Max)
	encoder.atLeast(encoder.name("min"), expr, c.Min)
	return nil
}

func (encoder encoder) teamBreaks(team int, slots []int, mode model.Mode) *milp.Expr {
	expr := milp.NewExpr()
	for _, slot := range lo.Uniq(slots) {
		if slot == 0 {
			continue
		}
		if mode == model.Home || mode == model.HomeAway {
			expr.Add(encoder.space.Break(team, slot, model.Home), 1)
		}
		if mode == model.Away || mode == model.HomeAway {
			expr.Add(encoder.space.Break(team, slot, model.Away), 1)
		}
	}
	return expr
}

func (encoder encoder) br1(c model.BR1) error {
	for _, team := range lo.Uniq(c.Teams) {
		encoder.atMost(encoder.name("[%d]", team), encoder.teamBreaks(team, c.Slots, c.Mode), c.Intp)
	}
	return nil
}

func (encoder encoder) br2(c model.BR2) error {
	expr := milp.NewExpr()
	for _, team := range lo.Uniq(c.Teams) {
		expr.AddExpr(encoder.teamBreaks(team, c.Slots, model.HomeAway), 1)
	}
	encoder.atMost(encoder.name(""), expr, c.Intp)
	return nil
}

// fa2 bounds, for every pair of teams, the difference of their cumulative home counts at the end of each listed
// slot. The soft form measures the largest such difference through an auxiliary variable.
func (encoder encoder) fa2(c model.FA2) error {
	m := encoder.space.Model()
	teams := lo.Uniq(c.Teams)
	slots := lo.Uniq(c.Slots)

	for i := range teams {
		for j := i + 1; j < len(teams); j++ {
			team1, team2 := teams[i], teams[j]

			var largest milp.Var
			if !encoder.header.Hard() {
				largest = m.NewInteger(encoder.name("ldiff[%d,%d]", team1, team2), 0, encoder.space.Slots())
				encoder.atMost(encoder.name("[%d,%d]", team1, team2), milp.NewExpr().Add(largest, 1), c.Intp)
			}

			for _, slot := range slots {
				diff := milp.NewExpr()
				for prefix := 0; prefix <= slot; prefix++ {
					diff.AddExpr(encoder.space.Home(team1, prefix), 1).AddExpr(encoder.space.Home(team2, prefix), -1)
				}

				if encoder.header.Hard() {
					m.AddRow(encoder.name("[%d,%d,%d]+", team1, team2, slot), diff, milp.LessEq, c.Intp)
					m.AddRow(encoder.name("[%d,%d,%d]-", team1, team2, slot), diff, milp.GreaterEq, -c.Intp)
					continue
				}
				m.AddRow(encoder.name("[%d,%d,%d]+", team1, team2, slot), diff.Clone().Add(largest, -1), milp.LessEq, 0)
				m.AddRow(encoder.name("[%d,%d,%d]-", team1, team2, slot), diff.Clone().Add(largest, 1), milp.GreaterEq, 0)
			}
		}
	}
	return nil
}

// se1 measures, for every pair, the distance between the slots of its two legs. One of two big-M rows is
// relaxed depending on which leg comes first; the legs are assumed to be played in different slots.
func (encoder encoder) se1(c model.SE1) error {
	if encoder.header.Hard() {
		return encoder.configurationError("only the SOFT form is supported")
	}
	if !pairings(encoder.space) {
		return fmt.Errorf("constraint %v #%d needs pairing variables", encoder.kind, encoder.header.Index)
	}

	m := encoder.space.Model()
	slots := encoder.space.Slots()
	teams := lo.Uniq(c.Teams)
	for i := range teams {
		for j := i + 1; j < len(teams); j++ {
			team1, team2 := teams[i], teams[j]

			// distance = slot(team1 hosts team2) - slot(team2 hosts team1)
			distance := milp.NewExpr()
			for slot := range slots {
				first, _ := encoder.space.Game(team1, team2, slot)
				second, _ := encoder.space.Game(team2, team1, slot)
				distance.Add(first, slot).Add(second, -slot)
			}

			separation := m.NewInteger(encoder.name("sep[%d,%d]", team1, team2), 0, 2*slots)
			firstLater := m.NewBinary(encoder.name("min1[%d,%d]", team1, team2))
			secondLater := m.NewBinary(encoder.name("min2[%d,%d]", team1, team2))

			m.AddRow(encoder.name("[%d,%d]1", team1, team2),
				distance.Clone().Add(separation, -1).Add(firstLater, -2*slots), milp.LessEq, -slots)
			m.AddRow(encoder.name("[%d,%d]2", team1, team2),
				distance.Clone().AddExpr(distance, -2).Add(separation, -1).Add(secondLater, -2*slots), milp.LessEq, -slots)
			m.AddRow(encoder.name("[%d,%d]3", team1, team2), milp.Sum(firstLater, secondLater), milp.Equal, 1)

			encoder.atMost(encoder.name("[%d,%d]", team1, team2), milp.NewExpr().Add(separation, 1), slots-c.Min-1)
		}
	}
	return nil
}
