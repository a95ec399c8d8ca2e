package catalogue

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/limaJavier/roundrobin/pkg/milp"
	"github.com/limaJavier/roundrobin/pkg/model"
	"github.com/stretchr/testify/assert"
)

// The circle schedule for four teams is
//
//	slot0: 0-3 2-1   slot1: 3-1 2-0   slot2: 2-3 1-0
//	slot3: 3-0 1-2   slot4: 1-3 0-2   slot5: 3-2 0-1
//
// with home/away pattern 100011, 001110, 111000, 010101.
func circle() model.Schedule {
	return model.CircleSchedule(4)
}

func soft(penalty int) model.Header {
	return model.Header{Severity: model.Soft, Penalty: penalty}
}

func hard() model.Header {
	return model.Header{Severity: model.Hard}
}

func records(header model.Header) []model.Constraint {
	all := []int{0, 1, 2, 3}
	slots := []int{0, 1, 2, 3, 4, 5}
	return []model.Constraint{
		model.CA1{Header: header, Teams: []int{2}, Slots: []int{0, 1, 2}, Max: 1, Mode: model.Home},
		model.CA1{Header: header, Teams: all, Slots: []int{3, 4, 5}, Max: 1, Mode: model.Away},
		model.CA1{Header: header, Teams: []int{0, 1}, Slots: slots, Max: 5, Mode: model.HomeAway},
		model.CA2{Header: header, Teams1: []int{0}, Teams2: []int{1}, Slots: slots, Max: 1, Mode: model.HomeAway},
		model.CA2{Header: header, Teams1: []int{1, 2}, Teams2: all, Slots: []int{0, 1}, Max: 0, Mode: model.Away},
		model.CA3{Header: header, Teams1: []int{2}, Teams2: []int{0, 1, 3}, Intp: 3, Max: 2, Mode: model.Home},
		model.CA3{Header: header, Teams1: all, Teams2: all, Intp: 2, Max: 1, Mode: model.Away},
		model.CA4{Header: header, Teams1: []int{0}, Teams2: []int{1, 2, 3}, Slots: slots, Max: 1, Mode: model.Home, Scope: model.Global},
		model.CA4{Header: header, Teams1: []int{0, 1}, Teams2: []int{2, 3}, Slots: slots, Max: 0, Mode: model.HomeAway, Scope: model.Every},
		model.CA4{Header: header, Teams1: []int{1, 2}, Teams2: all, Slots: []int{0, 1, 2}, Max: 1, Mode: model.Away, Scope: model.Every},
		model.GA1{Header: header, Meetings: []model.Meeting{{Home: 0, Away: 1}, {Home: 1, Away: 0}}, Slots: []int{3, 4}, Min: 1, Max: 1},
		model.GA1{Header: header, Meetings: []model.Meeting{{Home: 0, Away: 3}, {Home: 2, Away: 1}, {Home: 3, Away: 1}}, Slots: []int{0, 1}, Min: 0, Max: 1},
		model.BR1{Header: header, Teams: []int{2}, Slots: []int{1, 2, 3, 4, 5}, Intp: 1, Mode: model.Home},
		model.BR1{Header: header, Teams: all, Slots: []int{0, 1, 2, 3, 4, 5}, Intp: 0, Mode: model.HomeAway},
		model.BR2{Header: header, Teams: all, Slots: []int{1, 2, 3, 4, 5}, Intp: 6},
		model.FA2{Header: header, Teams: all, Slots: slots, Intp: 1},
		model.FA2{Header: header, Teams: []int{0, 2}, Slots: []int{2, 3}, Intp: 0},
	}
}

func TestEvaluate(t *testing.T) {
	schedule := circle()
	all := []int{0, 1, 2, 3}
	slots := []int{0, 1, 2, 3, 4, 5}

	tests := []struct {
		name       string
		constraint model.Constraint
		expected   int
	}{
		{"CA1 team 2 home in first three slots", model.CA1{Header: soft(1), Teams: []int{2}, Slots: []int{0, 1, 2}, Max: 1, Mode: model.Home}, 2},
		{"CA1 team 0 home in first three slots", model.CA1{Header: soft(1), Teams: []int{0}, Slots: []int{0, 1, 2}, Max: 1, Mode: model.Home}, 0},
		{"CA1 minimum", model.CA1{Header: soft(1), Teams: []int{0}, Slots: []int{1, 2, 3}, Min: 2, Max: 3, Mode: model.Home}, 2},
		{"CA2 both legs", model.CA2{Header: soft(1), Teams1: []int{0}, Teams2: []int{1}, Slots: slots, Max: 1, Mode: model.HomeAway}, 1},
		{"CA3 windows", model.CA3{Header: soft(1), Teams1: []int{2}, Teams2: []int{0, 1, 3}, Intp: 3, Max: 2, Mode: model.Home}, 1},
		{"CA4 global", model.CA4{Header: soft(1), Teams1: []int{0}, Teams2: []int{1, 2, 3}, Slots: slots, Max: 1, Mode: model.Home, Scope: model.Global}, 2},
		{"GA1 minimum", model.GA1{Header: soft(1), Meetings: []model.Meeting{{Home: 0, Away: 1}, {Home: 1, Away: 0}}, Slots: []int{3, 4}, Min: 1, Max: 1}, 1},
		{"GA1 satisfied", model.GA1{Header: soft(1), Meetings: []model.Meeting{{Home: 0, Away: 1}, {Home: 1, Away: 0}}, Slots: []int{0, 1, 2}, Min: 1, Max: 1}, 0},
		{"BR1 alternating team", model.BR1{Header: soft(1), Teams: []int{3}, Slots: []int{1, 2, 3, 4, 5}, Intp: 0, Mode: model.HomeAway}, 0},
		{"BR1 home breaks", model.BR1{Header: soft(1), Teams: []int{2}, Slots: []int{1, 2, 3, 4, 5}, Intp: 1, Mode: model.Home}, 1},
		{"BR2 all breaks", model.BR2{Header: soft(1), Teams: all, Slots: []int{1, 2, 3, 4, 5}, Intp: 0}, 10},
		{"FA2 strict", model.FA2{Header: soft(1), Teams: all, Slots: slots, Intp: 0}, 9},
		{"FA2 loose", model.FA2{Header: soft(1), Teams: all, Slots: slots, Intp: 1}, 3},
		{"SE1 pair", model.SE1{Header: soft(1), Teams: []int{0, 1}, Min: 3}, 1},
		{"SE1 satisfied", model.SE1{Header: soft(1), Teams: []int{0, 1}, Min: 2}, 0},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, Evaluate(test.constraint, schedule, 4))
		})
	}
}

// fixPairings pins every pairing variable to the value it has in the schedule
func fixPairings(space *PairingSpace, schedule model.Schedule) {
	slots := schedule.Slots(space.Teams())
	for home := range space.Teams() {
		for away := range space.Teams() {
			if home == away {
				continue
			}
			for slot := range space.Slots() {
				v, _ := space.Game(home, away, slot)
				value := 0
				if slots[home][away] == slot {
					value = 1
				}
				space.Model().SetBounds(v, value, value)
			}
		}
	}
}

func fixPattern(space *PatternSpace, pattern model.Pattern) {
	for team := range pattern {
		for slot, home := range pattern[team] {
			value := 0
			if home {
				value = 1
			}
			space.Model().SetBounds(space.X(team, slot), value, value)
		}
	}
}

func TestEncodeMatchesEvaluateOnPairings(t *testing.T) {
	schedule := circle()
	engine := milp.NewGophersatEngine(nil)
	constraints := append(records(soft(3)), model.SE1{Header: soft(3), Teams: []int{0, 1, 2, 3}, Min: 3})

	for i, constraint := range constraints {
		t.Run(fmt.Sprintf("%v#%d", constraint.Kind(), i), func(t *testing.T) {
			//** Arrange
			m := milp.NewModel("pairing")
			space := NewPairingSpace(m, 4, 6)
			fixPairings(space, schedule)

			//** Act
			err := Encode(space, constraint)
			result, solveErr := engine.Optimize(context.Background(), m, nil)

			//** Assert
			assert.Nil(t, err)
			assert.Nil(t, solveErr)
			assert.Equal(t, milp.Optimal, result.Status)
			assert.Equal(t, 3*Evaluate(constraint, schedule, 4), result.Best.Objective)
		})
	}
}

func TestEncodeMatchesEvaluateOnPatterns(t *testing.T) {
	schedule := circle()
	engine := milp.NewGophersatEngine(nil)

	for i, constraint := range records(soft(2)) {
		if !PatternLevel(constraint, 4) {
			continue
		}
		t.Run(fmt.Sprintf("%v#%d", constraint.Kind(), i), func(t *testing.T) {
			m := milp.NewModel("pattern")
			space := NewPatternSpace(m, 4, 6)
			fixPattern(space, schedule.Pattern(4))

			err := Encode(space, constraint)
			result, solveErr := engine.Optimize(context.Background(), m, nil)

			assert.Nil(t, err)
			assert.Nil(t, solveErr)
			assert.Equal(t, milp.Optimal, result.Status)
			assert.Equal(t, 2*Evaluate(constraint, schedule, 4), result.Best.Objective)
		})
	}
}

func TestHardEncodingFeasibleIffNoViolation(t *testing.T) {
	schedule := circle()
	engine := milp.NewGophersatEngine(nil)

	for i, constraint := range records(hard()) {
		t.Run(fmt.Sprintf("%v#%d", constraint.Kind(), i), func(t *testing.T) {
			//** Arrange
			m := milp.NewModel("hard")
			space := NewPairingSpace(m, 4, 6)
			fixPairings(space, schedule)
			expected := milp.Optimal
			if Evaluate(constraint, schedule, 4) > 0 {
				expected = milp.Infeasible
			}

			//** Act
			err := Encode(space, constraint)
			result, solveErr := engine.Optimize(context.Background(), m, nil)

			//** Assert
			assert.Nil(t, err)
			assert.Nil(t, solveErr)
			assert.Equal(t, expected, result.Status)
		})
	}
}

func TestBreakVariablesAreMemoised(t *testing.T) {
	m := milp.NewModel("breaks")
	space := NewPatternSpace(m, 4, 6)
	vars := m.NumVars()

	first := space.Break(1, 3, model.Home)
	second := space.Break(1, 3, model.Home)
	other := space.Break(1, 3, model.Away)

	assert.Equal(t, first, second)
	assert.NotEqual(t, first, other)
	assert.Equal(t, vars+2, m.NumVars())
	assert.Equal(t, 2, m.NumRows())
}

func TestConfigurationErrors(t *testing.T) {
	tests := []struct {
		name       string
		constraint model.Constraint
	}{
		{"CA1 minimum", model.CA1{Header: soft(1), Teams: []int{0}, Slots: []int{0}, Min: 1, Max: 2, Mode: model.Home}},
		{"CA3 minimum", model.CA3{Header: hard(), Teams1: []int{0}, Teams2: []int{1}, Intp: 2, Min: 1, Max: 2, Mode: model.Home}},
		{"CA4 minimum", model.CA4{Header: soft(1), Teams1: []int{0}, Teams2: []int{1}, Slots: []int{0}, Min: 1, Max: 2, Mode: model.Home, Scope: model.Global}},
		{"hard SE1", model.SE1{Header: hard(), Teams: []int{0, 1}, Min: 1}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			space := NewPairingSpace(milp.NewModel("configuration"), 4, 6)

			err := Encode(space, test.constraint)

			var configurationError ConfigurationError
			assert.True(t, errors.As(err, &configurationError))
		})
	}
}

func TestPairingRecordsNeedPairingSpace(t *testing.T) {
	space := NewPatternSpace(milp.NewModel("pattern"), 4, 6)

	err := Encode(space, model.CA2{Header: soft(1), Teams1: []int{0}, Teams2: []int{1}, Slots: []int{0}, Max: 0, Mode: model.Home})
	assert.NotNil(t, err)

	err = Encode(space, model.CA2{Header: soft(1), Teams1: []int{0}, Teams2: []int{1, 2, 3}, Slots: []int{0}, Max: 0, Mode: model.Home})
	assert.Nil(t, err)
}

func TestPatternLevel(t *testing.T) {
	assert.True(t, PatternLevel(model.CA1{}, 4))
	assert.True(t, PatternLevel(model.BR2{}, 4))
	assert.True(t, PatternLevel(model.CA4{Teams1: []int{0, 1}, Teams2: []int{0, 1, 2, 3}, Mode: model.Home}, 4))
	assert.True(t, PatternLevel(model.CA4{Teams1: []int{0}, Teams2: []int{1, 2, 3}, Mode: model.Away}, 4))
	assert.False(t, PatternLevel(model.CA4{Teams1: []int{0}, Teams2: []int{1, 2}, Mode: model.Home}, 4))
	assert.False(t, PatternLevel(model.CA4{Teams1: []int{0}, Teams2: []int{0, 1, 2, 3}, Mode: model.HomeAway}, 4))
	assert.False(t, PatternLevel(model.GA1{}, 4))
	assert.False(t, PatternLevel(model.SE1{}, 4))
}
