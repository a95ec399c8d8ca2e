package catalogue

import (
	"github.com/limaJavier/roundrobin/pkg/model"
	"github.com/samber/lo"
)

// grid is a dense view of a schedule: hosts[slot][home][away] and per-team appearance counts
type grid struct {
	teams int
	slots int
	hosts [][][]int
	home  [][]int
	away  [][]int
}

func newGrid(schedule model.Schedule, teams int) grid {
	g := grid{
		teams: teams,
		slots: len(schedule),
		hosts: make([][][]int, len(schedule)),
		home:  make([][]int, teams),
		away:  make([][]int, teams),
	}
	for team := range teams {
		g.home[team] = make([]int, len(schedule))
		g.away[team] = make([]int, len(schedule))
	}
	inRange := func(team int) bool { return team >= 0 && team < teams }

	for slot, games := range schedule {
		g.hosts[slot] = make([][]int, teams)
		for team := range teams {
			g.hosts[slot][team] = make([]int, teams)
		}
		for _, game := range games {
			if !inRange(game.Home) || !inRange(game.Away) || game.Home == game.Away {
				continue
			}
			g.hosts[slot][game.Home][game.Away]++
			g.home[game.Home][slot]++
			g.away[game.Away][slot]++
		}
	}
	return g
}

func (g grid) valid(slot int) bool {
	return slot >= 0 && slot < g.slots
}

func (g grid) side(team, slot int, mode model.Mode) int {
	if !g.valid(slot) {
		return 0
	}
	switch mode {
	case model.Home:
		return g.home[team][slot]
	case model.Away:
		return g.away[team][slot]
	}
	return g.home[team][slot] + g.away[team][slot]
}

func (g grid) appearances(team int, opponents []int, slot int, mode model.Mode) int {
	if !g.valid(slot) {
		return 0
	}
	count := 0
	for _, opponent := range lo.Uniq(opponents) {
		if opponent == team {
			continue
		}
		if mode == model.Home || mode == model.HomeAway {
			count += g.hosts[slot][team][opponent]
		}
		if mode == model.Away || mode == model.HomeAway {
			count += g.hosts[slot][opponent][team]
		}
	}
	return count
}

func (g grid) breaks(team int, slots []int, mode model.Mode) int {
	count := 0
	for _, slot := range lo.Uniq(slots) {
		if slot == 0 || !g.valid(slot) {
			continue
		}
		if (mode == model.Home || mode == model.HomeAway) && g.home[team][slot-1] > 0 && g.home[team][slot] > 0 {
			count++
		}
		if (mode == model.Away || mode == model.HomeAway) && g.away[team][slot-1] > 0 && g.away[team][slot] > 0 {
			count++
		}
	}
	return count
}

// slotOf returns the first slot in which home hosts away, or -1
func (g grid) slotOf(home, away int) int {
	for slot := range g.slots {
		if g.hosts[slot][home][away] > 0 {
			return slot
		}
	}
	return -1
}

// deviation is how far count lies outside [min, max]
func deviation(count, min, max int) int {
	return lo.Max([]int{0, count - max}) + lo.Max([]int{0, min - count})
}

// Evaluate returns the violation magnitude of a record on a schedule, computed directly from the games
func Evaluate(constraint model.Constraint, schedule model.Schedule, teams int) int {
	g := newGrid(schedule, teams)

	switch c := constraint.(type) {
	case model.CA1:
		return lo.SumBy(lo.Uniq(c.Teams), func(team int) int {
			count := lo.SumBy(lo.Uniq(c.Slots), func(slot int) int { return g.side(team, slot, c.Mode) })
			return deviation(count, c.Min, c.Max)
		})

	case model.CA2:
		return lo.SumBy(lo.Uniq(c.Teams1), func(team int) int {
			count := lo.SumBy(lo.Uniq(c.Slots), func(slot int) int { return g.appearances(team, c.Teams2, slot, c.Mode) })
			return deviation(count, c.Min, c.Max)
		})

	case model.CA3:
		total := 0
		for _, team := range lo.Uniq(c.Teams1) {
			for start := 0; start+c.Intp <= g.slots; start++ {
				count := 0
				for slot := start; slot < start+c.Intp; slot++ {
					count += g.appearances(team, c.Teams2, slot, c.Mode)
				}
				total += deviation(count, c.Min, c.Max)
			}
		}
		return total

	case model.CA4:
		slotGames := func(slot int) int {
			return lo.SumBy(lo.Uniq(c.Teams1), func(team int) int { return g.appearances(team, c.Teams2, slot, c.Mode) })
		}
		if c.Scope == model.Every {
			return lo.SumBy(lo.Uniq(c.Slots), func(slot int) int { return deviation(slotGames(slot), c.Min, c.Max) })
		}
		return deviation(lo.SumBy(lo.Uniq(c.Slots), slotGames), c.Min, c.Max)

	case model.GA1:
		count := 0
		for _, meeting := range lo.Uniq(c.Meetings) {
			if meeting.Home == meeting.Away || meeting.Home < 0 || meeting.Home >= teams || meeting.Away < 0 || meeting.Away >= teams {
				continue
			}
			for _, slot := range lo.Uniq(c.Slots) {
				if g.valid(slot) {
					count += g.hosts[slot][meeting.Home][meeting.Away]
				}
			}
		}
		return deviation(count, c.Min, c.Max)

	case model.BR1:
		return lo.SumBy(lo.Uniq(c.Teams), func(team int) int {
			return deviation(g.breaks(team, c.Slots, c.Mode), 0, c.Intp)
		})

	case model.BR2:
		count := lo.SumBy(lo.Uniq(c.Teams), func(team int) int { return g.breaks(team, c.Slots, model.HomeAway) })
		return deviation(count, 0, c.Intp)

	case model.FA2:
		return evaluateFA2(g, c)

	case model.SE1:
		total := 0
		members := lo.Uniq(c.Teams)
		for i := range members {
			for j := i + 1; j < len(members); j++ {
				first, second := g.slotOf(members[i], members[j]), g.slotOf(members[j], members[i])
				if first < 0 || second < 0 {
					continue
				}
				distance := first - second
				if distance < 0 {
					distance = -distance
				}
				total += deviation(distance, c.Min+1, distance)
			}
		}
		return total
	}
	return 0
}

// evaluateFA2 sums, over unordered pairs, by how much the largest cumulative home-count difference at the listed
// slots exceeds intp
func evaluateFA2(g grid, c model.FA2) int {
	members := lo.Uniq(c.Teams)
	cumulative := make(map[int][]int, len(members))
	for _, team := range members {
		running := 0
		cumulative[team] = make([]int, g.slots)
		for slot := range g.slots {
			running += g.home[team][slot]
			cumulative[team][slot] = running
		}
	}

	total := 0
	for i := range members {
		for j := i + 1; j < len(members); j++ {
			largest := 0
			for _, slot := range lo.Uniq(c.Slots) {
				if !g.valid(slot) {
					continue
				}
				diff := cumulative[members[i]][slot] - cumulative[members[j]][slot]
				if diff < 0 {
					diff = -diff
				}
				largest = lo.Max([]int{largest, diff})
			}
			total += deviation(largest, 0, c.Intp)
		}
	}
	return total
}
