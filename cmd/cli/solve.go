package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/limaJavier/roundrobin/pkg/master"
	"github.com/limaJavier/roundrobin/pkg/milp"
	"github.com/limaJavier/roundrobin/pkg/model"
	"github.com/scott-cotton/cli"
)

type solveConfig struct {
	*cli.Command
	Config    string `cli:"name=config aliases=c desc='config file (json or yaml)'"`
	Certifier string `cli:"name=certifier desc='internal, external, greedy or chain'"`
	Verbose   bool   `cli:"name=verbose aliases=v desc='log every examined pattern'"`
	Out       string `cli:"name=out aliases=o desc='file the best schedule is written to as it improves'"`
	TimeLimit string `cli:"name=time-limit aliases=t desc='overall time limit, e.g. 90s'"`
}

func SolveCommand() *cli.Command {
	cfg := &solveConfig{}
	opts, _ := cli.StructOpts(cfg)
	return cli.NewCommandAt(&cfg.Command, "solve").
		WithSynopsis("solve <instance.xml> [--out <solution.xml>] - Search the best schedule").
		WithOpts(opts...).
		WithRun(cfg.run)
}

func (cfg *solveConfig) run(cc *cli.Context, args []string) error {
	args, err := cfg.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("%w: solve requires one argument, the instance file", cli.ErrUsage)
	}

	settings := settings{Config: cfg.Config, Certifier: cfg.Certifier, Verbose: cfg.Verbose}
	conf, err := settings.load()
	if err != nil {
		return err
	}
	if cfg.TimeLimit != "" {
		if conf.MasterTimeLimit, err = time.ParseDuration(cfg.TimeLimit); err != nil {
			return fmt.Errorf("%w: invalid time limit: %v", cli.ErrUsage, err)
		}
	}
	logger := settings.logger()

	instance := readInstance(args[0])
	engine := milp.NewGophersatEngine(logger)
	certifier, err := newCertifier(conf, instance, args[0], engine, logger)
	if err != nil {
		return err
	}
	search, err := master.New(instance, engine, certifier, master.Options{
		Hamming:      conf.Hamming,
		OpponentCuts: conf.OpponentCuts,
		TimeLimit:    conf.MasterTimeLimit,
		LPDump:       conf.LPDump,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	var sink master.SolutionSink
	if cfg.Out != "" {
		sink = master.SinkFunc(func(solution model.Solution) error {
			return model.SolutionToXml(cfg.Out, instance, solution)
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	result, err := search.Solve(ctx, sink)
	if err != nil {
		return err
	}

	paint := newPalette(cc.Out)
	printResult(cc.Out, paint, result)
	if result.Best != nil {
		printReport(cc.Out, paint, result.Best.Report)
		if cfg.Out == "" {
			if err := model.WriteSolution(cc.Out, instance, model.Solution{
				Name:      instance.Name,
				Schedule:  result.Best.Schedule,
				Objective: result.Best.Penalty(),
			}); err != nil {
				return err
			}
		}
		return cli.ExitCodeErr(exitSolved)
	}
	if result.Status == master.Infeasible {
		return cli.ExitCodeErr(exitInfeasible)
	}
	return cli.ExitCodeErr(exitNoSchedule)
}
