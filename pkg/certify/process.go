package certify

import (
	"bytes"
	"context"
	"os/exec"
	"time"
)

type RunStatus int

const (
	Success RunStatus = iota
	Timeout
	Crash
	MalformedOutput
)

func (status RunStatus) String() string {
	switch status {
	case Success:
		return "success"
	case Timeout:
		return "timeout"
	case Crash:
		return "crash"
	case MalformedOutput:
		return "malformed-output"
	}
	return "invalid"
}

type Run struct {
	Status   RunStatus
	ExitCode int
	Stdout   string
	Stderr   string
	Elapsed  time.Duration
	Err      error
}

// process runs a program and kills it once limit has elapsed. A zero limit leaves only the context in charge.
type process struct {
	path  string
	limit time.Duration
}

func (process process) run(ctx context.Context, args ...string) Run {
	if process.limit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, process.limit)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, process.path, args...)
	// stop waiting for inherited pipes shortly after the kill
	cmd.WaitDelay = time.Second

	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	started := time.Now()
	err := cmd.Run()
	run := Run{
		Status:   Success,
		ExitCode: -1,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Elapsed:  time.Since(started),
		Err:      err,
	}
	if cmd.ProcessState != nil {
		run.ExitCode = cmd.ProcessState.ExitCode()
	}

	if err != nil && ctx.Err() != nil {
		run.Status = Timeout
	} else if err != nil {
		run.Status = Crash
	}
	return run
}
