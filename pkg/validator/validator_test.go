package validator

import (
	"testing"

	"github.com/limaJavier/roundrobin/pkg/model"
	"github.com/stretchr/testify/assert"
)

func instance(mode model.GameMode, constraints ...model.Constraint) model.Instance {
	instance := model.Instance{Name: "validator", GameMode: mode, Constraints: constraints}
	for i := range 4 {
		instance.Teams = append(instance.Teams, model.Team{Id: i})
	}
	for i := range 6 {
		instance.Slots = append(instance.Slots, model.Slot{Id: i})
	}
	for i, constraint := range constraints {
		switch c := constraint.(type) {
		case model.CA1:
			c.Index = i
			instance.Constraints[i] = c
		case model.BR2:
			c.Index = i
			instance.Constraints[i] = c
		}
	}
	return instance
}

// relabel swaps teams 0 and 2, so team 0 plays home in slots 0, 1 and 2
func relabel(schedule model.Schedule) model.Schedule {
	swap := map[int]int{0: 2, 2: 0, 1: 1, 3: 3}
	relabelled := schedule.Clone()
	for slot := range relabelled {
		for i, game := range relabelled[slot] {
			relabelled[slot][i] = model.Game{Home: swap[game.Home], Away: swap[game.Away]}
		}
	}
	return relabelled
}

func TestCircleScheduleIsFeasible(t *testing.T) {
	report := Validate(instance(model.Phased), model.CircleSchedule(4))

	assert.Empty(t, report.Structure)
	assert.True(t, report.Feasible())
	assert.Equal(t, 0, report.SoftPenalty)
}

func TestHardCapacityViolation(t *testing.T) {
	//** Arrange
	ca1 := model.CA1{
		Header: model.Header{Severity: model.Hard},
		Teams:  []int{0},
		Slots:  []int{0, 1, 2},
		Max:    1,
		Mode:   model.Home,
	}
	schedule := relabel(model.CircleSchedule(4))

	//** Act
	report := Validate(instance(model.Unphased, ca1), schedule)

	//** Assert
	assert.Empty(t, report.Structure)
	assert.GreaterOrEqual(t, report.HardViolations, 1)
	assert.False(t, report.Feasible())
	assert.True(t, report.Constraints[0].Violated)
	assert.Equal(t, 2, report.Constraints[0].Magnitude)
	assert.Equal(t, 0, report.Constraints[0].Penalty)
	assert.Equal(t, 1, len(report.Violations()))
}

func TestSoftBreakPenalty(t *testing.T) {
	//** Arrange
	br2 := model.BR2{
		Header: model.Header{Severity: model.Soft, Penalty: 10},
		Teams:  []int{0, 1, 2, 3},
		Slots:  []int{1, 2, 3, 4, 5},
		Intp:   0,
	}
	// In a complete schedule home and away breaks come in pairs, so partial schedules isolate a single break
	oneBreak := model.Schedule{{{Home: 0, Away: 1}}, {{Home: 0, Away: 2}}, {}, {}, {}, {}}
	noBreak := model.Schedule{{{Home: 0, Away: 1}}, {{Home: 1, Away: 0}}, {}, {}, {}, {}}
	fixture := instance(model.Unphased, br2)

	//** Act
	withBreak := Validate(fixture, oneBreak)
	withoutBreak := Validate(fixture, noBreak)

	//** Assert
	assert.Equal(t, 1, withBreak.Constraints[0].Magnitude)
	assert.Equal(t, 10, withBreak.SoftPenalty)
	assert.Equal(t, 0, withoutBreak.Constraints[0].Magnitude)
	assert.Equal(t, 0, withoutBreak.SoftPenalty)
}

func TestStructuralIssues(t *testing.T) {
	schedule := model.CircleSchedule(4)

	t.Run("phased legs in the same half", func(t *testing.T) {
		// swapping slots 2 and 3 moves 2-3 and 3-0 across halves
		swapped := schedule.Clone()
		swapped[2], swapped[3] = swapped[3], swapped[2]

		phased := Validate(instance(model.Phased), swapped)
		unphased := Validate(instance(model.Unphased), swapped)

		assert.NotEmpty(t, phased.Structure)
		assert.False(t, phased.Feasible())
		assert.Empty(t, unphased.Structure)
	})

	t.Run("missing game", func(t *testing.T) {
		broken := schedule.Clone()
		broken[0] = broken[0][:1]

		report := Validate(instance(model.Unphased), broken)

		assert.GreaterOrEqual(t, len(report.Structure), 3)
		assert.Equal(t, len(report.Structure), report.HardViolations)
	})

	t.Run("short schedule", func(t *testing.T) {
		report := Validate(instance(model.Unphased), schedule[:5])
		assert.NotEmpty(t, report.Structure)
	})
}

func TestValidateIsDeterministic(t *testing.T) {
	br2 := model.BR2{Header: model.Header{Severity: model.Soft, Penalty: 3}, Teams: []int{0, 1, 2, 3}, Slots: []int{1, 2, 3, 4, 5}}
	fixture := instance(model.Phased, br2)
	schedule := model.CircleSchedule(4)

	first := Validate(fixture, schedule)
	second := Validate(fixture, schedule)

	assert.Equal(t, first, second)
	assert.Equal(t, 30, first.SoftPenalty)
}
