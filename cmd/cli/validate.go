package main

import (
	"fmt"

	"github.com/limaJavier/roundrobin/pkg/model"
	"github.com/limaJavier/roundrobin/pkg/validator"
	"github.com/scott-cotton/cli"
)

type validateConfig struct {
	*cli.Command
	Quiet bool `cli:"name=quiet aliases=q desc='only print the totals'"`
}

func ValidateCommand() *cli.Command {
	cfg := &validateConfig{}
	opts, _ := cli.StructOpts(cfg)
	return cli.NewCommandAt(&cfg.Command, "validate").
		WithSynopsis("validate <instance.xml> <solution.xml>... - Audit schedules").
		WithOpts(opts...).
		WithRun(cfg.run)
}

func (cfg *validateConfig) run(cc *cli.Context, args []string) error {
	args, err := cfg.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) < 2 {
		return fmt.Errorf("%w: validate requires an instance file and at least one solution file", cli.ErrUsage)
	}

	instance := readInstance(args[0])
	paint := newPalette(cc.Out)
	infeasible := 0
	for _, file := range args[1:] {
		solutions, err := model.SolutionsFromXml(file)
		if err != nil {
			return fmt.Errorf("cannot read %v: %w", file, err)
		}
		for i, solution := range solutions {
			report := validator.Validate(instance, solution.Schedule)
			if !report.Feasible() {
				infeasible++
			}
			fmt.Fprintf(cc.Out, "%v #%d (%v)\n", file, i, solution.Name)
			if cfg.Quiet {
				printTotals(cc.Out, paint, report)
				continue
			}
			printReport(cc.Out, paint, report)
			if solution.Objective != report.SoftPenalty {
				fmt.Fprintln(cc.Out, paint.warn("  declared objective %d differs from the recomputed penalty %d", solution.Objective, report.SoftPenalty))
			}
		}
	}
	if infeasible > 0 {
		return cli.ExitCodeErr(1)
	}
	return nil
}
