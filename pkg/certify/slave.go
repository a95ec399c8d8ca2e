package certify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/limaJavier/roundrobin/pkg/catalogue"
	"github.com/limaJavier/roundrobin/pkg/milp"
	"github.com/limaJavier/roundrobin/pkg/model"
)

type SlaveOptions struct {
	// TimeLimit bounds every call to Certify; zero means no limit besides the caller's context
	TimeLimit time.Duration
	Logger    *slog.Logger
}

// Slave certifies patterns with a pairing model over y[home,away,slot]. The base model holds the round-robin
// structure and every pairing-level record; each call fixes the pattern through variable upper bounds.
type Slave struct {
	instance  model.Instance
	engine    milp.Engine
	base      *milp.Model
	space     *catalogue.PairingSpace
	options   SlaveOptions
	logger    *slog.Logger
	incumbent incumbent
}

func NewSlave(instance model.Instance, engine milp.Engine, options SlaveOptions) (*Slave, error) {
	teams, slots := instance.NumTeams(), instance.NumSlots()
	base := milp.NewModel("slave")
	space := catalogue.NewPairingSpace(base, teams, slots)

	for slot := range slots {
		for team := range teams {
			expr := space.Home(team, slot).AddExpr(space.Away(team, slot), 1)
			base.AddRow(fmt.Sprintf("once[%d,%d]", team, slot), expr, milp.Equal, 1)
		}
	}

	for home := range teams {
		for away := range teams {
			if home == away {
				continue
			}
			expr := milp.NewExpr()
			for slot := range slots {
				game, _ := space.Game(home, away, slot)
				expr.Add(game, 1)
			}
			base.AddRow(fmt.Sprintf("meet[%d,%d]", home, away), expr, milp.Equal, 1)
		}
	}

	if instance.Phased() {
		for i := range teams {
			for j := i + 1; j < teams; j++ {
				expr := milp.NewExpr()
				for slot := range slots {
					if instance.Half(slot) != 0 {
						continue
					}
					ij, _ := space.Game(i, j, slot)
					ji, _ := space.Game(j, i, slot)
					expr.Add(ij, 1).Add(ji, 1)
				}
				base.AddRow(fmt.Sprintf("phase[%d,%d]", i, j), expr, milp.Equal, 1)
			}
		}
	}

	_, pairing := catalogue.Split(instance)
	for _, constraint := range pairing {
		if err := catalogue.Encode(space, constraint); err != nil {
			return nil, err
		}
	}

	return &Slave{
		instance: instance,
		engine:   engine,
		base:     base,
		space:    space,
		options:  options,
		logger:   orDefault(options.Logger),
	}, nil
}

// Model returns the base pairing model, before any pattern is fixed
func (slave *Slave) Model() *milp.Model {
	return slave.base
}

func (slave *Slave) Certify(ctx context.Context, pattern model.Pattern) (Outcome, error) {
	teams, slots := slave.instance.NumTeams(), slave.instance.NumSlots()
	if pattern.Teams() != teams || pattern.Slots() != slots {
		return Outcome{}, fmt.Errorf("pattern is %dx%d, instance needs %dx%d", pattern.Teams(), pattern.Slots(), teams, slots)
	}

	fixed := slave.base.Clone()
	for home := range teams {
		for away := range teams {
			if home == away {
				continue
			}
			for slot := range slots {
				if !pattern[home][slot] || pattern[away][slot] {
					game, _ := slave.space.Game(home, away, slot)
					fixed.SetUpperBound(game, 0)
				}
			}
		}
	}

	if slave.options.TimeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, slave.options.TimeLimit)
		defer cancel()
	}

	started := time.Now()
	result, err := slave.engine.Optimize(ctx, fixed, nil)
	if err != nil {
		slave.logger.Warn("slave engine failed", "error", err)
		return Outcome{Status: Failed}, nil
	}
	slave.logger.Debug("slave finished", "status", result.Status, "incumbents", result.Incumbents, "elapsed", time.Since(started))

	if result.Best == nil {
		switch result.Status {
		case milp.Infeasible, milp.Optimal:
			return Outcome{Status: Infeasible}, nil
		case milp.TimeLimit:
			return Outcome{Status: Unknown}, nil
		}
		return Outcome{Status: Failed}, nil
	}

	schedule := slave.space.Schedule(*result.Best)
	candidates, mismatches := audit(slave.instance, []model.Schedule{schedule}, "slave", slave.logger)
	outcome := Outcome{Status: Certified, Candidates: candidates, Mismatches: mismatches}
	if len(candidates) == 0 {
		outcome.Status = Failed
	} else if best := candidates[0]; best.Penalty() < result.Best.Objective {
		// the slave objective only covers pairing-level records, so it never exceeds the full penalty
		slave.logger.Error("slave objective exceeds the audited penalty", "objective", result.Best.Objective, "penalty", best.Penalty())
	}
	outcome.Improved = slave.incumbent.offer(outcome)
	return outcome, nil
}
