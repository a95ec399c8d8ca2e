package validator

import (
	"fmt"

	"github.com/limaJavier/roundrobin/pkg/catalogue"
	"github.com/limaJavier/roundrobin/pkg/model"
	"github.com/samber/lo"
)

type Result struct {
	Constraint model.Constraint
	Violated   bool
	Magnitude  int
	// Penalty is magnitude times the record's penalty for soft records, 0 for hard ones
	Penalty int
}

type Report struct {
	Constraints []Result
	// Structure lists the ways the schedule fails to be a double round-robin
	Structure      []string
	HardViolations int
	SoftPenalty    int
}

// Feasible reports whether the schedule is a double round-robin violating no hard record
func (report Report) Feasible() bool {
	return report.HardViolations == 0
}

// Validate recomputes, from the games alone, every violation of a schedule
func Validate(instance model.Instance, schedule model.Schedule) Report {
	report := Report{
		Constraints: make([]Result, 0, len(instance.Constraints)),
		Structure:   checkStructure(instance, schedule),
	}
	report.HardViolations = len(report.Structure)

	for _, constraint := range instance.Constraints {
		magnitude := catalogue.Evaluate(constraint, schedule, instance.NumTeams())
		result := Result{Constraint: constraint, Violated: magnitude > 0, Magnitude: magnitude}
		if constraint.Meta().Hard() {
			report.HardViolations += magnitude
		} else {
			result.Penalty = magnitude * constraint.Meta().Penalty
			report.SoftPenalty += result.Penalty
		}
		report.Constraints = append(report.Constraints, result)
	}
	return report
}

// Violations returns the results of the records the schedule violates
func (report Report) Violations() []Result {
	return lo.Filter(report.Constraints, func(result Result, _ int) bool { return result.Violated })
}

func checkStructure(instance model.Instance, schedule model.Schedule) []string {
	teams, slots := instance.NumTeams(), instance.NumSlots()
	issues := make([]string, 0)
	if len(schedule) != slots {
		issues = append(issues, fmt.Sprintf("schedule has %d slots, expected %d", len(schedule), slots))
	}

	legs := make(map[model.Game][]int)
	for slot, games := range schedule {
		appearances := make([]int, teams)
		for _, game := range games {
			if game.Home < 0 || game.Home >= teams || game.Away < 0 || game.Away >= teams || game.Home == game.Away {
				issues = append(issues, fmt.Sprintf("slot %d has invalid game %d-%d", slot, game.Home, game.Away))
				continue
			}
			appearances[game.Home]++
			appearances[game.Away]++
			legs[game] = append(legs[game], slot)
		}
		for team, count := range appearances {
			if count != 1 {
				issues = append(issues, fmt.Sprintf("team %d plays %d times in slot %d", team, count, slot))
			}
		}
	}

	for home := range teams {
		for away := range teams {
			if home == away {
				continue
			}
			game := model.Game{Home: home, Away: away}
			if played := len(legs[game]); played != 1 {
				issues = append(issues, fmt.Sprintf("%d hosts %d %d times", home, away, played))
				continue
			}
			if !instance.Phased() || home > away {
				continue
			}
			reverse := legs[model.Game{Home: away, Away: home}]
			if len(reverse) == 1 && instance.Half(legs[game][0]) == instance.Half(reverse[0]) {
				issues = append(issues, fmt.Sprintf("both legs of %d-%d are in the same half", home, away))
			}
		}
	}
	return issues
}
