package config

import (
	"context"
	"os"

	"boardhost/pkg/integration"

	"gopkg.in/yaml.v3"
)

// ThinkBudget maps an AI difficulty level to a wall-clock budget in
// milliseconds. The AI controller does not read this table: it takes an
// iteration-budget map and a single timeout when it is constructed.
type ThinkBudget struct {
	Level     string `yaml:"level"`
	TimeoutMS int    `yaml:"timeout_ms"`
}

// LoadThinkBudgets loads the AI think-time budget table from a YAML file and
// returns them as a slice of ThinkBudget. This function is protected by both
// circuit breaker and retry patterns to prevent cascade failures and handle
// transient file system issues.
//
// Parameters:
//   - filename: Path to the YAML file containing the think-budget table
//
// Returns:
//   - []ThinkBudget: Slice of parsed per-level timeout entries
//   - error: File read, YAML parsing, circuit breaker, or retry errors if any occurred
//
// The function reads the entire file contents and unmarshals them as YAML
// into a slice of ThinkBudget structs, handling error cases with automatic
// retry and circuit breaker protection:
//  1. Circuit breaker is open (too many recent failures)
//  2. File read errors (missing file, permissions, etc) with retry
//  3. YAML parsing errors (invalid format, missing required fields)
func LoadThinkBudgets(filename string) ([]ThinkBudget, error) {
	var budgets []ThinkBudget
	ctx := context.Background()

	err := integration.ExecuteConfigOperation(ctx, func(ctx context.Context) error {
		data, err := os.ReadFile(filename)
		if err != nil {
			return err
		}

		if err := yaml.Unmarshal(data, &budgets); err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return budgets, nil
}
