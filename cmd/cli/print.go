package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/limaJavier/roundrobin/pkg/master"
	"github.com/limaJavier/roundrobin/pkg/validator"
	"github.com/mattn/go-isatty"
)

type palette struct {
	good func(string, ...any) string
	bad  func(string, ...any) string
	warn func(string, ...any) string
}

// newPalette colours output only when w is a terminal
func newPalette(w io.Writer) palette {
	plain := palette{good: fmt.Sprintf, bad: fmt.Sprintf, warn: fmt.Sprintf}
	f, ok := w.(*os.File)
	if !ok || !isatty.IsTerminal(f.Fd()) {
		return plain
	}
	return palette{good: color.GreenString, bad: color.RedString, warn: color.YellowString}
}

func (paint palette) status(ok bool, text string) string {
	if ok {
		return paint.good("%v", text)
	}
	return paint.bad("%v", text)
}

func printResult(w io.Writer, paint palette, result master.Result) {
	fmt.Fprintf(w, "status: %v\n", paint.status(result.Status == master.Optimal, result.Status.String()))
	fmt.Fprintf(w, "patterns: %d, certified: %d, schedules: %d, cuts: %d, elapsed: %v\n",
		result.Patterns, result.Certified, result.Accepted, result.Cuts, result.Elapsed.Round(time.Millisecond))
	if result.Mismatches > 0 {
		fmt.Fprintln(w, paint.bad("withheld %d schedule(s) that failed hard validation", result.Mismatches))
	}
	if result.Best != nil {
		fmt.Fprintf(w, "penalty: %d\n", result.Best.Penalty())
	}
}

func printTotals(w io.Writer, paint palette, report validator.Report) {
	fmt.Fprintf(w, "  hard violations: %v, soft penalty: %d\n",
		paint.status(report.Feasible(), fmt.Sprint(report.HardViolations)), report.SoftPenalty)
}

func printReport(w io.Writer, paint palette, report validator.Report) {
	printTotals(w, paint, report)
	for _, issue := range report.Structure {
		fmt.Fprintln(w, paint.bad("  %v", issue))
	}
	for _, result := range report.Violations() {
		meta := result.Constraint.Meta()
		line := fmt.Sprintf("  %v #%d %v: magnitude %d, penalty %d", result.Constraint.Kind(), meta.Index, meta.Severity, result.Magnitude, result.Penalty)
		if meta.Hard() {
			fmt.Fprintln(w, paint.bad("%v", line))
		} else {
			fmt.Fprintln(w, paint.warn("%v", line))
		}
	}
}
