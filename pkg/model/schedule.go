package model

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

type Game struct {
	Home int
	Away int
}

// Schedule lists, for every slot, the games played in it
type Schedule [][]Game

func (schedule Schedule) Games() int {
	return lo.SumBy(schedule, func(games []Game) int { return len(games) })
}

// Slots returns, for every ordered pair (home, away), the slot it is played in (-1 when it is not played)
func (schedule Schedule) Slots(teams int) [][]int {
	slots := make([][]int, teams)
	for i := range slots {
		slots[i] = lo.Times(teams, func(_ int) int { return -1 })
	}
	for slot, games := range schedule {
		for _, game := range games {
			if game.Home >= 0 && game.Home < teams && game.Away >= 0 && game.Away < teams {
				slots[game.Home][game.Away] = slot
			}
		}
	}
	return slots
}

// Pattern derives the home/away pattern of the schedule
func (schedule Schedule) Pattern(teams int) Pattern {
	pattern := NewPattern(teams, len(schedule))
	for slot, games := range schedule {
		for _, game := range games {
			if game.Home >= 0 && game.Home < teams {
				pattern[game.Home][slot] = true
			}
		}
	}
	return pattern
}

func (schedule Schedule) Clone() Schedule {
	return lo.Map(schedule, func(games []Game, _ int) []Game { return append([]Game{}, games...) })
}

// Pattern is a home/away matrix indexed by team and slot (true = home)
type Pattern [][]bool

func NewPattern(teams, slots int) Pattern {
	pattern := make(Pattern, teams)
	for i := range pattern {
		pattern[i] = make([]bool, slots)
	}
	return pattern
}

func (pattern Pattern) Teams() int {
	return len(pattern)
}

func (pattern Pattern) Slots() int {
	if len(pattern) == 0 {
		return 0
	}
	return len(pattern[0])
}

// Ones counts the home entries of the pattern
func (pattern Pattern) Ones() int {
	return lo.SumBy(pattern, func(row []bool) int { return lo.Count(row, true) })
}

func (pattern Pattern) Equal(other Pattern) bool {
	if len(pattern) != len(other) {
		return false
	}
	for team := range pattern {
		if len(pattern[team]) != len(other[team]) {
			return false
		}
		for slot := range pattern[team] {
			if pattern[team][slot] != other[team][slot] {
				return false
			}
		}
	}
	return true
}

func (pattern Pattern) Clone() Pattern {
	return lo.Map(pattern, func(row []bool, _ int) []bool { return append([]bool{}, row...) })
}

// Balanced checks that half the teams are home in every slot and every team is home in half the slots
func (pattern Pattern) Balanced() error {
	teams, slots := pattern.Teams(), pattern.Slots()
	for team, row := range pattern {
		if len(row) != slots {
			return fmt.Errorf("team %d has %d slots, expected %d", team, len(row), slots)
		}
		if home := lo.Count(row, true); 2*home != slots {
			return fmt.Errorf("team %d plays %d home games out of %d slots", team, home, slots)
		}
	}
	for slot := range slots {
		home := lo.CountBy(pattern, func(row []bool) bool { return row[slot] })
		if 2*home != teams {
			return fmt.Errorf("slot %d has %d home teams out of %d", slot, home, teams)
		}
	}
	return nil
}

// String renders the pattern in the exchange format: one line per team, '1' for home and '0' for away
func (pattern Pattern) String() string {
	var builder strings.Builder
	for _, row := range pattern {
		for _, home := range row {
			if home {
				builder.WriteByte('1')
			} else {
				builder.WriteByte('0')
			}
		}
		builder.WriteByte('\n')
	}
	return builder.String()
}

func ParsePattern(text string) (Pattern, error) {
	lines := lo.Filter(strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n"), func(line string, _ int) bool {
		return strings.TrimSpace(line) != ""
	})

	pattern := make(Pattern, 0, len(lines))
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if len(pattern) > 0 && len(line) != pattern.Slots() {
			return nil, fmt.Errorf("pattern line %d has %d slots, expected %d", i, len(line), pattern.Slots())
		}
		row := make([]bool, len(line))
		for slot, char := range line {
			switch char {
			case '1':
				row[slot] = true
			case '0':
			default:
				return nil, fmt.Errorf("invalid character %q in pattern line %d", char, i)
			}
		}
		pattern = append(pattern, row)
	}
	return pattern, nil
}

// CircleSchedule builds a phased double round-robin with the circle method: the first half fixes team n-1 and
// rotates the others, the second half mirrors it with home and away swapped
func CircleSchedule(teams int) Schedule {
	rounds := teams - 1
	schedule := make(Schedule, 2*rounds)
	for round := range rounds {
		games := make([]Game, 0, teams/2)
		for k := range teams / 2 {
			home, away := round, teams-1
			if k > 0 {
				home, away = (round+k)%rounds, (round-k+rounds)%rounds
			}
			if (round+k)%2 == 1 {
				home, away = away, home
			}
			games = append(games, Game{Home: home, Away: away})
		}
		schedule[round] = games
		schedule[round+rounds] = lo.Map(games, func(game Game, _ int) Game { return Game{Home: game.Away, Away: game.Home} })
	}
	return schedule
}
