package main

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/limaJavier/roundrobin/pkg/model"

	"github.com/samber/lo"
)

const (
	executablePath             = "../../bin/roundrobin"
	instancesDirectory         = "../../test/instances/"
	timeLimit                  = "10m"
	KB                         = 1024
	MB                 float32 = 1024 * 1024
)

type ResultType int

const (
	solved ResultType = iota
	infeasible
	timeout
)

var (
	certifiers  = []string{"internal", "greedy", "chain", "external"}
	resultTypes = map[ResultType]string{
		solved:     "solved",
		infeasible: "infeasible",
		timeout:    "timeout",
	}
)

type InstanceMetadata struct {
	Name        string
	Mode        model.GameMode
	Teams       int
	Slots       int
	Constraints int
	Hard        int
}

type BenchmarkResult struct {
	Certifier     string
	Instance      InstanceMetadata
	Duration      int64
	Memory        float32
	CpuPercentage int64
	Result        ResultType
	Penalty       int
	Patterns      int
}

func main() {
	instances := getInstances()
	results := make([]BenchmarkResult, 0, len(instances)*len(certifiers))

	for _, instance := range instances {
		for _, certifier := range certifiers {
			fmt.Printf("Benchmarking instance \"%v\" with certifier \"%v\"\n", instance.Name, certifier)

			duration, maxMemory, cpuPercentage, result, penalty, patterns := measure(certifier, instance.Name)

			results = append(results, BenchmarkResult{
				Certifier:     certifier,
				Instance:      instance,
				Duration:      duration,
				Memory:        maxMemory,
				CpuPercentage: cpuPercentage,
				Result:        result,
				Penalty:       penalty,
				Patterns:      patterns,
			})
		}
	}

	toCsv(results)
}

func getInstances() []InstanceMetadata {
	files, err := filepath.Glob(instancesDirectory + "*.xml")
	if err != nil {
		log.Fatalf("cannot list instances: %v", err)
	}

	return lo.Map(files, func(filename string, _ int) InstanceMetadata {
		instance, err := model.InstanceFromXml(filename)
		if err != nil {
			log.Fatalf("cannot parse instance file: %v", err)
		}
		return InstanceMetadata{
			Name:        filename,
			Mode:        instance.GameMode,
			Teams:       instance.NumTeams(),
			Slots:       instance.NumSlots(),
			Constraints: len(instance.Constraints),
			Hard:        lo.CountBy(instance.Constraints, func(constraint model.Constraint) bool { return constraint.Meta().Hard() }),
		}
	})
}

func measure(certifier string, instanceFile string) (duration int64, maxMemory float32, cpuPercentage int64, result ResultType, penalty int, patterns int) {
	cmd := exec.Command("/usr/bin/time", "-v", executablePath, "solve", "--certifier", certifier, "--time-limit", timeLimit, instanceFile)

	var stdOut bytes.Buffer
	cmd.Stdout = &stdOut
	var stdErr bytes.Buffer
	cmd.Stderr = &stdErr

	cmd.Run()
	switch cmd.ProcessState.ExitCode() {
	case 10:
		result = solved
	case 20:
		result = infeasible
	case 30:
		result = timeout
	default:
		log.Fatalf("an error occurred during the execution of \"roundrobin\" at instance \"%v\" using certifier \"%v\": %v\n", instanceFile, certifier, stdErr.String())
	}

	stdErrLines := strings.Split(stdErr.String(), "\n")
	getLine := func(lines []string, substr string) (string, bool) {
		return lo.Find(lines, func(line string) bool {
			return strings.Contains(strings.ToLower(line), substr)
		})
	}
	mustGetLine := func(substr string) string {
		line, ok := getLine(stdErrLines, substr)
		if !ok {
			log.Fatalf("Substring \"%v\" could not be found", substr)
		}
		return line
	}

	duration = parseDurationLine(mustGetLine("wall clock"))
	maxMemory = parseMemoryLine(mustGetLine("maximum resident set size"))
	cpuPercentage = parseCpuPercentageLine(mustGetLine("percent of cpu"))

	stdOutLines := strings.Split(stdOut.String(), "\n")
	penalty = -1
	if line, ok := getLine(stdOutLines, "penalty:"); ok {
		penalty = parseCounterLine(line, "penalty")
	}
	if line, ok := getLine(stdOutLines, "patterns:"); ok {
		patterns = parseCounterLine(line, "patterns")
	}

	return duration, maxMemory, cpuPercentage, result, penalty, patterns
}

func toCsv(results []BenchmarkResult) {
	file, err := os.Create("benchmark_results.csv")
	if err != nil {
		log.Panicf("cannot create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"Certifier", "Instance", "Mode", "Teams", "Slots", "Constraints", "Hard", "Duration(ms)", "Memory(MB)", "CPU(%)", "Result", "Penalty", "Patterns"}
	if err := writer.Write(header); err != nil {
		log.Panicf("cannot write CSV header: %v", err)
	}

	for _, result := range results {
		record := []string{
			result.Certifier,
			result.Instance.Name,
			string(result.Instance.Mode),
			fmt.Sprintf("%d", result.Instance.Teams),
			fmt.Sprintf("%d", result.Instance.Slots),
			fmt.Sprintf("%d", result.Instance.Constraints),
			fmt.Sprintf("%d", result.Instance.Hard),
			fmt.Sprintf("%d", result.Duration),
			fmt.Sprintf("%.1f", result.Memory),
			fmt.Sprintf("%d", result.CpuPercentage),
			resultTypes[result.Result],
			fmt.Sprintf("%d", result.Penalty),
			fmt.Sprintf("%d", result.Patterns),
		}
		if err := writer.Write(record); err != nil {
			log.Panicf("cannot write CSV record: %v", err)
		}
	}
}

func parseDurationLine(line string) int64 {
	durationStr := strings.Split(line, "(h:mm:ss or m:ss):")[1][1:]
	return parseDuration(durationStr)
}

func parseDuration(durationStr string) int64 {
	parts := strings.Split(durationStr, ":")
	secondsStr := parts[len(parts)-1]
	secondsParts := strings.Split(secondsStr, ".")

	var duration int64
	if len(parts) == 3 { // h:mm:ss
		hours := lo.Must(strconv.Atoi(parts[0]))
		minutes := lo.Must(strconv.Atoi(parts[1]))
		seconds := lo.Must(strconv.Atoi(secondsParts[0]))
		hundredthOfSeconds := lo.Must(strconv.Atoi(secondsParts[1]))
		duration = int64(hours*3600+minutes*60+seconds)*1000 + int64(hundredthOfSeconds*10)
	} else if len(parts) == 2 { // m:ss
		minutes := lo.Must(strconv.Atoi(parts[0]))
		seconds := lo.Must(strconv.Atoi(secondsParts[0]))
		hundredthOfSeconds := lo.Must(strconv.Atoi(secondsParts[1]))
		duration = int64(minutes*60+seconds)*1000 + int64(hundredthOfSeconds*10)
	} else {
		log.Fatalf("unexpected duration format: %v", durationStr)
	}
	return duration
}

func parseMemoryLine(line string) float32 {
	memoryStr := strings.Split(line, ":")[1][1:]
	return float32(lo.Must(strconv.ParseFloat(memoryStr, 32))) / 1024
}

func parseCpuPercentageLine(line string) int64 {
	percentageStr := strings.Split(line, ":")[1][1:]
	percentageStr = percentageStr[:len(percentageStr)-1]
	return int64(lo.Must(strconv.Atoi(percentageStr)))
}

// parseCounterLine reads the integer following "name:" in a summary line such as "patterns: 12, certified: 3"
func parseCounterLine(line string, name string) int {
	field, ok := lo.Find(strings.Split(line, ","), func(field string) bool {
		return strings.HasPrefix(strings.TrimSpace(field), name+":")
	})
	if !ok {
		log.Fatalf("counter \"%v\" could not be found in %q", name, line)
	}
	return lo.Must(strconv.Atoi(strings.TrimSpace(strings.SplitN(field, ":", 2)[1])))
}
