package model

import (
	"fmt"

	"github.com/samber/lo"
)

type GameMode string

const (
	Phased   GameMode = "P"
	Unphased GameMode = "NP"
)

type Team struct {
	Id   int
	Name string
}

type Slot struct {
	Id   int
	Name string
}

// Instance is a double round-robin problem as read from a RobinX file. It is never mutated after loading.
type Instance struct {
	Name        string
	Contributor string
	Year        string
	GameMode    GameMode
	Objective   string
	Teams       []Team
	Slots       []Slot
	Constraints []Constraint
}

func (instance Instance) NumTeams() int {
	return len(instance.Teams)
}

func (instance Instance) NumSlots() int {
	return len(instance.Slots)
}

func (instance Instance) Phased() bool {
	return instance.GameMode == Phased
}

// Half returns the phase (0 or 1) a slot belongs to
func (instance Instance) Half(slot int) int {
	if slot < instance.NumSlots()/2 {
		return 0
	}
	return 1
}

func (instance Instance) AllTeams() []int {
	return lo.Range(instance.NumTeams())
}

func (instance Instance) AllSlots() []int {
	return lo.Range(instance.NumSlots())
}

// Validate checks the structural assumptions every component relies on: an even number of teams, 2(n-1) slots,
// positional ids and in-range constraint references
func (instance Instance) Validate() error {
	teams, slots := instance.NumTeams(), instance.NumSlots()
	if teams < 2 || teams%2 != 0 {
		return fmt.Errorf("instance \"%v\" must have a positive even number of teams, found %d", instance.Name, teams)
	}
	if slots != 2*(teams-1) {
		return fmt.Errorf("instance \"%v\" must have %d slots for a double round-robin, found %d", instance.Name, 2*(teams-1), slots)
	}
	if instance.GameMode != Phased && instance.GameMode != Unphased {
		return fmt.Errorf("unknown game mode \"%v\"", instance.GameMode)
	}
	for i, team := range instance.Teams {
		if team.Id != i {
			return fmt.Errorf("team \"%v\" has id %d but is listed at position %d", team.Name, team.Id, i)
		}
	}
	for i, slot := range instance.Slots {
		if slot.Id != i {
			return fmt.Errorf("slot \"%v\" has id %d but is listed at position %d", slot.Name, slot.Id, i)
		}
	}

	for _, constraint := range instance.Constraints {
		if err := checkReferences(constraint, teams, slots); err != nil {
			return err
		}
	}
	return nil
}

func checkReferences(constraint Constraint, teams, slots int) error {
	teamRefs, slotRefs := references(constraint)
	if team, ok := lo.Find(teamRefs, func(team int) bool { return team < 0 || team >= teams }); ok {
		return fmt.Errorf("constraint %v #%d references unknown team %d", constraint.Kind(), constraint.Meta().Index, team)
	}
	if slot, ok := lo.Find(slotRefs, func(slot int) bool { return slot < 0 || slot >= slots }); ok {
		return fmt.Errorf("constraint %v #%d references unknown slot %d", constraint.Kind(), constraint.Meta().Index, slot)
	}
	return nil
}

func references(constraint Constraint) (teams []int, slots []int) {
	switch c := constraint.(type) {
	case CA1:
		return c.Teams, c.Slots
	case CA2:
		return append(append([]int{}, c.Teams1...), c.Teams2...), c.Slots
	case CA3:
		return append(append([]int{}, c.Teams1...), c.Teams2...), nil
	case CA4:
		return append(append([]int{}, c.Teams1...), c.Teams2...), c.Slots
	case GA1:
		for _, meeting := range c.Meetings {
			teams = append(teams, meeting.Home, meeting.Away)
		}
		return teams, c.Slots
	case BR1:
		return c.Teams, c.Slots
	case BR2:
		return c.Teams, c.Slots
	case FA2:
		return c.Teams, c.Slots
	case SE1:
		return c.Teams, nil
	}
	return nil, nil
}
