package main

import (
	"context"
	"fmt"
	"os"

	"github.com/limaJavier/roundrobin/pkg/certify"
	"github.com/limaJavier/roundrobin/pkg/milp"
	"github.com/limaJavier/roundrobin/pkg/model"
	"github.com/scott-cotton/cli"
)

type patternConfig struct {
	*cli.Command
	Config    string `cli:"name=config aliases=c desc='config file (json or yaml)'"`
	Certifier string `cli:"name=certifier desc='internal, external, greedy or chain'"`
	Verbose   bool   `cli:"name=verbose aliases=v desc='log certifier details'"`
	Out       string `cli:"name=out aliases=o desc='file the best schedule is written to'"`
}

func PatternCommand() *cli.Command {
	cfg := &patternConfig{}
	opts, _ := cli.StructOpts(cfg)
	return cli.NewCommandAt(&cfg.Command, "pattern").
		WithSynopsis("pattern <instance.xml> <pattern.txt> - Certify a single home/away pattern").
		WithOpts(opts...).
		WithRun(cfg.run)
}

func (cfg *patternConfig) run(cc *cli.Context, args []string) error {
	args, err := cfg.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) != 2 {
		return fmt.Errorf("%w: pattern requires an instance file and a pattern file", cli.ErrUsage)
	}

	settings := settings{Config: cfg.Config, Certifier: cfg.Certifier, Verbose: cfg.Verbose}
	conf, err := settings.load()
	if err != nil {
		return err
	}
	logger := settings.logger()

	instance := readInstance(args[0])
	text, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("cannot read pattern file: %w", err)
	}
	pattern, err := model.ParsePattern(string(text))
	if err != nil {
		return err
	}
	if err := pattern.Balanced(); err != nil {
		return fmt.Errorf("pattern is not balanced: %w", err)
	}

	certifier, err := newCertifier(conf, instance, args[0], milp.NewGophersatEngine(logger), logger)
	if err != nil {
		return err
	}
	outcome, err := certifier.Certify(context.Background(), pattern)
	if err != nil {
		return err
	}

	paint := newPalette(cc.Out)
	fmt.Fprintf(cc.Out, "%v: %v, %d schedule(s), %d withheld\n", args[1], paint.status(outcome.Status == certify.Certified, outcome.Status.String()), len(outcome.Candidates), outcome.Mismatches)
	best, ok := outcome.Best()
	if !ok {
		if outcome.Status == certify.Infeasible {
			return cli.ExitCodeErr(exitInfeasible)
		}
		return cli.ExitCodeErr(exitNoSchedule)
	}

	printReport(cc.Out, paint, best.Report)
	if cfg.Out != "" {
		solution := model.Solution{Name: instance.Name, Schedule: best.Schedule, Objective: best.Penalty()}
		if err := model.SolutionToXml(cfg.Out, instance, solution); err != nil {
			return err
		}
	}
	return cli.ExitCodeErr(exitSolved)
}
