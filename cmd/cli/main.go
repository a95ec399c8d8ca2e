package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/limaJavier/roundrobin/pkg/certify"
	"github.com/limaJavier/roundrobin/pkg/config"
	"github.com/limaJavier/roundrobin/pkg/milp"
	"github.com/limaJavier/roundrobin/pkg/model"
	"github.com/scott-cotton/cli"
)

// Exit codes of the solve and pattern commands
const (
	exitSolved     = 10
	exitInfeasible = 20
	exitNoSchedule = 30
)

const usageText = `roundrobin - double round-robin scheduler (branch-and-check)

Usage:
  roundrobin solve <instance.xml> [--out <solution.xml>]    Search the best schedule
  roundrobin validate <instance.xml> <solution.xml>...       Audit schedules
  roundrobin pattern <instance.xml> <pattern.txt>            Certify a single home/away pattern

Settings are read from --config, or from config.json / config.yaml next to the executable.

Exit codes of solve and pattern:
  10  a schedule was found
  20  the instance (or pattern) is infeasible
  30  no schedule was found within the time limits`

func main() {
	cli.MainContext(context.Background(), Root())
}

func Root() *cli.Command {
	return cli.NewCommand("roundrobin").
		WithSynopsis("roundrobin - double round-robin scheduler").
		WithDescription(usageText).
		WithSubs(
			SolveCommand(),
			ValidateCommand(),
			PatternCommand(),
		)
}

// settings are the options shared by the commands that solve
type settings struct {
	Config    string
	Certifier string
	Verbose   bool
}

func (settings settings) load() (config.Config, error) {
	path := settings.Config
	if path == "" {
		located, err := config.LocateNextToExecutable()
		if err != nil {
			return config.Config{}, err
		}
		path = located
	}

	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if settings.Certifier != "" {
		cfg.Certifier = settings.Certifier
	}
	return cfg, cfg.Validate()
}

func (settings settings) logger() *slog.Logger {
	level := slog.LevelInfo
	if settings.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// newCertifier builds the certifier named by the config. The slave model is built once and reused for every pattern.
func newCertifier(cfg config.Config, instance model.Instance, instancePath string, engine milp.Engine, logger *slog.Logger) (certify.Certifier, error) {
	slave := func() (*certify.Slave, error) {
		return certify.NewSlave(instance, engine, certify.SlaveOptions{TimeLimit: cfg.CertifierTimeLimit, Logger: logger})
	}
	external := func() (*certify.External, error) {
		return certify.NewExternal(instance, certify.ExternalOptions{
			Program:             cfg.ExternalSolverPath,
			InstancePath:        instancePath,
			FeasibilityTimeout:  cfg.FeasibilityTimeout,
			SolutionTimeout:     cfg.SolutionTimeout,
			OptimizationTimeout: cfg.OptimizationTimeout,
			Logger:              logger,
		})
	}

	switch cfg.Certifier {
	case config.Internal:
		return slave()
	case config.External:
		return external()
	case config.Greedy:
		return certify.NewGreedy(instance, logger), nil
	case config.Chain:
		stages := []certify.Certifier{certify.NewGreedy(instance, logger)}
		internal, err := slave()
		if err != nil {
			return nil, err
		}
		stages = append(stages, internal)
		if cfg.ExternalSolverPath != "" {
			program, err := external()
			if err != nil {
				return nil, err
			}
			stages = append(stages, program)
		}
		return certify.NewChain(logger, stages...), nil
	}
	return nil, fmt.Errorf("unknown certifier %v", cfg.Certifier)
}

func readInstance(path string) model.Instance {
	instance, err := model.InstanceFromXml(path)
	if err != nil {
		log.Fatalf("cannot parse instance file: %v", err)
	}
	return instance
}
