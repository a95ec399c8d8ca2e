package certify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/limaJavier/roundrobin/pkg/model"
	"github.com/limaJavier/roundrobin/pkg/validator"
	"github.com/onsi/gomega/matchers/support/goraph/bipartitegraph"
	"github.com/samber/lo"
)

// Greedy completes a pattern slot by slot: in every slot the home teams are matched to the away teams they have
// not hosted yet with a maximum bipartite matching. It ignores pairing-level records, so a completion that breaks
// one is dropped rather than reported as a mismatch. Failing to complete is never a proof of infeasibility.
type Greedy struct {
	instance  model.Instance
	logger    *slog.Logger
	incumbent incumbent
}

func NewGreedy(instance model.Instance, logger *slog.Logger) *Greedy {
	return &Greedy{instance: instance, logger: orDefault(logger)}
}

func (greedy *Greedy) Certify(ctx context.Context, pattern model.Pattern) (Outcome, error) {
	teams, slots := greedy.instance.NumTeams(), greedy.instance.NumSlots()
	if pattern.Teams() != teams || pattern.Slots() != slots {
		return Outcome{}, fmt.Errorf("pattern is %dx%d, instance needs %dx%d", pattern.Teams(), pattern.Slots(), teams, slots)
	}

	played := make(map[model.Game]int)
	schedule := make(model.Schedule, slots)
	for slot := range slots {
		if ctx.Err() != nil {
			return Outcome{Status: Unknown}, nil
		}

		games, err := greedy.match(pattern, slot, played)
		if err != nil {
			return Outcome{}, err
		}
		if games == nil {
			greedy.logger.Debug("greedy completion stuck", "slot", slot)
			return Outcome{Status: Unknown}, nil
		}
		for _, game := range games {
			played[game] = slot
		}
		schedule[slot] = games
	}

	report := validator.Validate(greedy.instance, schedule)
	if !report.Feasible() {
		greedy.logger.Debug("greedy completion violates hard constraints", "hardViolations", report.HardViolations)
		return Outcome{Status: Unknown}, nil
	}
	outcome := Outcome{Status: Certified, Candidates: []Candidate{{Schedule: schedule, Report: report}}}
	outcome.Improved = greedy.incumbent.offer(outcome)
	return outcome, nil
}

// match pairs the home teams of slot with its away teams. It returns nil when some home team cannot be placed.
func (greedy *Greedy) match(pattern model.Pattern, slot int, played map[model.Game]int) ([]model.Game, error) {
	teams := lo.Range(pattern.Teams())
	hosts := lo.Filter(teams, func(team int, _ int) bool { return pattern[team][slot] })
	guests := lo.Filter(teams, func(team int, _ int) bool { return !pattern[team][slot] })
	if len(hosts) != len(guests) {
		return nil, nil
	}

	neighbors := func(hostAny any, guestAny any) (bool, error) {
		host, guest := hostAny.(int), guestAny.(int)
		if _, ok := played[model.Game{Home: host, Away: guest}]; ok {
			return false, nil
		}
		// phased: the reverse leg must lie in the other half
		if reverse, ok := played[model.Game{Home: guest, Away: host}]; ok && greedy.instance.Phased() {
			return greedy.instance.Half(reverse) != greedy.instance.Half(slot), nil
		}
		return true, nil
	}

	hostsAny, guestsAny := lo.Map(hosts, func(team int, _ int) any { return team }), lo.Map(guests, func(team int, _ int) any { return team })
	graph, err := bipartitegraph.NewBipartiteGraph(hostsAny, guestsAny, neighbors)
	if err != nil {
		return nil, err
	}

	matching := graph.LargestMatching()
	if len(matching) < len(hosts) {
		return nil, nil
	}

	games := make([]model.Game, 0, len(hosts))
	for _, edge := range matching {
		host, guest := hosts[edge.Node1], guests[edge.Node2-len(hosts)]
		games = append(games, model.Game{Home: host, Away: guest})
	}
	return games, nil
}
