package certify

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/limaJavier/roundrobin/pkg/model"
)

type ExternalOptions struct {
	// Program is the path of the assignment solver executable
	Program string
	// InstancePath is the instance file handed to the program
	InstancePath string
	// FeasibilityTimeout is the time the program gets to find a first schedule
	FeasibilityTimeout time.Duration
	// SolutionTimeout is the longest the program may go without improving its schedule
	SolutionTimeout time.Duration
	// OptimizationTimeout is the program's total time budget
	OptimizationTimeout time.Duration
	// Grace is added to OptimizationTimeout before the process is killed
	Grace time.Duration
	// WorkDir holds the pattern and solution files; empty means the system temp directory
	WorkDir string
	Logger  *slog.Logger
}

// External certifies patterns by running an external assignment solver on a pattern file and reading back the
// schedules it wrote. Any failure of the program yields zero schedules.
type External struct {
	instance  model.Instance
	options   ExternalOptions
	process   process
	logger    *slog.Logger
	incumbent incumbent
	// Runs counts invocations per outcome
	Runs map[RunStatus]int
}

func NewExternal(instance model.Instance, options ExternalOptions) (*External, error) {
	if options.Program == "" {
		return nil, fmt.Errorf("external certifier needs a program path")
	}
	if options.InstancePath == "" {
		return nil, fmt.Errorf("external certifier needs the instance file")
	}
	if options.Grace <= 0 {
		options.Grace = 5 * time.Second
	}

	limit := time.Duration(0)
	if options.OptimizationTimeout > 0 {
		limit = options.OptimizationTimeout + options.Grace
	}

	return &External{
		instance: instance,
		options:  options,
		process:  process{path: options.Program, limit: limit},
		logger:   orDefault(options.Logger),
		Runs:     make(map[RunStatus]int),
	}, nil
}

func (external *External) Certify(ctx context.Context, pattern model.Pattern) (Outcome, error) {
	patternFile, err := os.CreateTemp(external.options.WorkDir, "pattern-*.txt")
	if err != nil {
		return Outcome{}, fmt.Errorf("cannot create pattern file: %w", err)
	}
	defer os.Remove(patternFile.Name())

	_, err = patternFile.WriteString(pattern.String())
	if closeErr := patternFile.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("cannot write pattern file: %w", err)
	}

	// the program appends to its output, so it always starts from a path that does not exist
	solutionsPath := filepath.Join(filepath.Dir(patternFile.Name()), "solutions-"+filepath.Base(patternFile.Name())+".xml")
	os.Remove(solutionsPath)
	defer os.Remove(solutionsPath)

	run := external.process.run(ctx, external.arguments(patternFile.Name(), solutionsPath)...)
	var schedules []model.Schedule
	if run.Status == Success {
		solutions, err := model.SolutionsFromXml(solutionsPath)
		if err != nil {
			run.Status = MalformedOutput
			run.Err = err
		} else {
			for _, solution := range solutions {
				schedules = append(schedules, solution.Schedule)
			}
		}
	}
	external.Runs[run.Status]++

	if run.Status != Success {
		external.logger.Warn("external certifier produced no schedules",
			"status", run.Status,
			"exitCode", run.ExitCode,
			"elapsed", run.Elapsed,
			"error", run.Err,
			"stderr", tail(run.Stderr, 512),
		)
		return Outcome{Status: Failed}, nil
	}

	candidates, mismatches := audit(external.instance, schedules, "external", external.logger)
	outcome := Outcome{Status: Certified, Candidates: candidates, Mismatches: mismatches}
	if len(candidates) == 0 {
		outcome.Status = Unknown
	}
	outcome.Improved = external.incumbent.offer(outcome)
	external.logger.Debug("external certifier finished", "schedules", len(schedules), "accepted", len(candidates), "elapsed", run.Elapsed)
	return outcome, nil
}

func (external *External) arguments(patternPath, solutionsPath string) []string {
	args := []string{
		external.options.InstancePath,
		"--pattern-home-away", patternPath,
		"--xml-solutions", solutionsPath,
	}
	if timeout := external.options.FeasibilityTimeout; timeout > 0 {
		args = append(args, "--feasibility-timeout", seconds(timeout))
	}
	if timeout := external.options.SolutionTimeout; timeout > 0 {
		args = append(args, "--solution-timeout", seconds(timeout))
	}
	if timeout := external.options.OptimizationTimeout; timeout > 0 {
		args = append(args, "--optimization-timeout", seconds(timeout))
	}
	return append(args, "--quiet")
}

// seconds renders a budget as whole seconds, rounded up and at least 1
func seconds(duration time.Duration) string {
	return strconv.Itoa(max(1, int(math.Ceil(duration.Seconds()))))
}

func tail(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return text[len(text)-limit:]
}
