package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/mitchellh/mapstructure"
	"github.com/samber/lo"
)

const (
	Internal = "internal"
	External = "external"
	Greedy   = "greedy"
	Chain    = "chain"
)

var (
	certifiers = []string{Internal, External, Greedy, Chain}
	// FileNames are looked up, in order, next to the executable
	FileNames = []string{"config.json", "config.yaml", "config.yml"}
)

type Config struct {
	// Certifier selects how patterns are completed: internal, external, greedy or chain
	Certifier          string `mapstructure:"certifier"`
	ExternalSolverPath string `mapstructure:"externalSolverPath"`
	// FeasibilityTimeout, SolutionTimeout and OptimizationTimeout are the external solver's budgets
	FeasibilityTimeout  time.Duration `mapstructure:"feasibilityTimeout"`
	SolutionTimeout     time.Duration `mapstructure:"solutionTimeout"`
	OptimizationTimeout time.Duration `mapstructure:"optimizationTimeout"`
	MasterTimeLimit     time.Duration `mapstructure:"masterTimeLimit"`
	CertifierTimeLimit  time.Duration `mapstructure:"certifierTimeLimit"`
	Hamming             int           `mapstructure:"hamming"`
	OpponentCuts        bool          `mapstructure:"opponentCuts"`
	LPDump              string        `mapstructure:"lpDump"`
}

func Default() Config {
	return Config{
		Certifier:           Internal,
		FeasibilityTimeout:  10 * time.Second,
		SolutionTimeout:     10 * time.Second,
		OptimizationTimeout: 60 * time.Second,
		MasterTimeLimit:     10 * time.Minute,
		CertifierTimeLimit:  60 * time.Second,
		Hamming:             1,
		OpponentCuts:        true,
	}
}

// Load reads a JSON or YAML file (by extension) on top of the defaults
func Load(path string) (Config, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("cannot read config file: %w", err)
	}

	var raw map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(bytes, &raw)
	default:
		err = json.Unmarshal(bytes, &raw)
	}
	if err != nil {
		return Config{}, fmt.Errorf("cannot parse config file %v: %w", path, err)
	}
	return Decode(raw)
}

// Decode applies raw settings over the defaults. Durations are either strings ("90s", "2m") or numbers of seconds.
func Decode(raw map[string]any) (Config, error) {
	config := Default()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.ComposeDecodeHookFunc(mapstructure.StringToTimeDurationHookFunc(), secondsHook),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &config,
	})
	if err != nil {
		return Config{}, err
	}
	if err := decoder.Decode(raw); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return config, config.Validate()
}

func secondsHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(time.Duration(0)) {
		return data, nil
	}
	switch value := data.(type) {
	case float64:
		return time.Duration(value * float64(time.Second)), nil
	case int:
		return time.Duration(value) * time.Second, nil
	case int64:
		return time.Duration(value) * time.Second, nil
	case uint64:
		return time.Duration(value) * time.Second, nil
	}
	return data, nil
}

func (config Config) Validate() error {
	if !slices.Contains(certifiers, config.Certifier) {
		return fmt.Errorf("%v is not a valid certifier, expected one of %v", config.Certifier, strings.Join(certifiers, ", "))
	}
	if config.Certifier == External && config.ExternalSolverPath == "" {
		return fmt.Errorf("certifier %v needs externalSolverPath", config.Certifier)
	}
	if config.Hamming < 1 {
		return fmt.Errorf("hamming must be at least 1: %v", config.Hamming)
	}
	durations := map[string]time.Duration{
		"feasibilityTimeout":  config.FeasibilityTimeout,
		"solutionTimeout":     config.SolutionTimeout,
		"optimizationTimeout": config.OptimizationTimeout,
		"masterTimeLimit":     config.MasterTimeLimit,
		"certifierTimeLimit":  config.CertifierTimeLimit,
	}
	if negative := lo.PickBy(durations, func(_ string, value time.Duration) bool { return value < 0 }); len(negative) > 0 {
		return fmt.Errorf("durations cannot be negative: %v", lo.Keys(negative))
	}
	return nil
}

// Locate returns the first config file found in directory, or an empty path when there is none
func Locate(directory string) (string, error) {
	entries, err := os.ReadDir(directory)
	if err != nil {
		return "", fmt.Errorf("cannot read directory %v: %w", directory, err)
	}
	names := lo.Map(entries, func(entry os.DirEntry, _ int) string { return entry.Name() })

	for _, name := range FileNames {
		if slices.Contains(names, name) {
			return filepath.Join(directory, name), nil
		}
	}
	return "", nil
}

// LocateNextToExecutable looks for a config file in the directory of the running binary
func LocateNextToExecutable() (string, error) {
	executable, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("cannot determine executable path: %w", err)
	}
	return Locate(filepath.Dir(executable))
}
