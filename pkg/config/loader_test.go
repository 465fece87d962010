package config

import (
	"os"
	"path/filepath"
	"testing"

	"boardhost/pkg/integration"
	"boardhost/pkg/resilience"
)

// resetCircuitBreakerForTesting resets the circuit breaker state for testing
func resetCircuitBreakerForTesting() {
	manager := resilience.GetGlobalCircuitBreakerManager()
	// Remove the existing config_loader circuit breaker to reset its state
	manager.Remove("config_loader")

	// Reset the integration executors to ensure clean state
	integration.ResetExecutorsForTesting()
}

// TestLoadThinkBudgets_ValidYAMLFile tests successful loading of a valid YAML file
func TestLoadThinkBudgets_ValidYAMLFile(t *testing.T) {
	resetCircuitBreakerForTesting()

	tempDir := t.TempDir()
	validYAMLFile := filepath.Join(tempDir, "valid_budgets.yaml")

	validYAMLContent := `
- level: "easy"
  timeout_ms: 1000

- level: "hard"
  timeout_ms: 8000
`

	err := os.WriteFile(validYAMLFile, []byte(validYAMLContent), 0o644)
	if err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	budgets, err := LoadThinkBudgets(validYAMLFile)
	if err != nil {
		t.Fatalf("LoadThinkBudgets failed: %v", err)
	}

	if len(budgets) != 2 {
		t.Errorf("Expected 2 budgets, got %d", len(budgets))
	}

	easy := budgets[0]
	if easy.Level != "easy" {
		t.Errorf("Expected level 'easy', got '%s'", easy.Level)
	}
	if easy.TimeoutMS != 1000 {
		t.Errorf("Expected timeout 1000, got %d", easy.TimeoutMS)
	}

	hard := budgets[1]
	if hard.Level != "hard" {
		t.Errorf("Expected level 'hard', got '%s'", hard.Level)
	}
	if hard.TimeoutMS != 8000 {
		t.Errorf("Expected timeout 8000, got %d", hard.TimeoutMS)
	}
}

// TestLoadThinkBudgets_EmptyYAMLFile tests loading an empty YAML file
func TestLoadThinkBudgets_EmptyYAMLFile(t *testing.T) {
	resetCircuitBreakerForTesting()

	tempDir := t.TempDir()
	emptyFile := filepath.Join(tempDir, "empty.yaml")

	err := os.WriteFile(emptyFile, []byte(""), 0o644)
	if err != nil {
		t.Fatalf("Failed to create empty test file: %v", err)
	}

	budgets, err := LoadThinkBudgets(emptyFile)
	if err != nil {
		t.Fatalf("LoadThinkBudgets failed on empty file: %v", err)
	}

	if len(budgets) != 0 {
		t.Errorf("Expected 0 budgets from empty file, got %d", len(budgets))
	}
}

// TestLoadThinkBudgets_EmptyArrayYAML tests loading a YAML file with an empty array
func TestLoadThinkBudgets_EmptyArrayYAML(t *testing.T) {
	resetCircuitBreakerForTesting()

	tempDir := t.TempDir()
	emptyArrayFile := filepath.Join(tempDir, "empty_array.yaml")

	emptyArrayContent := "[]"
	err := os.WriteFile(emptyArrayFile, []byte(emptyArrayContent), 0o644)
	if err != nil {
		t.Fatalf("Failed to create empty array test file: %v", err)
	}

	budgets, err := LoadThinkBudgets(emptyArrayFile)
	if err != nil {
		t.Fatalf("LoadThinkBudgets failed on empty array file: %v", err)
	}

	if len(budgets) != 0 {
		t.Errorf("Expected 0 budgets from empty array file, got %d", len(budgets))
	}
}

// TestLoadThinkBudgets_FileNotFound tests error handling when file doesn't exist
func TestLoadThinkBudgets_FileNotFound(t *testing.T) {
	resetCircuitBreakerForTesting()

	nonExistentFile := "this_file_does_not_exist.yaml"

	budgets, err := LoadThinkBudgets(nonExistentFile)

	if err == nil {
		t.Error("Expected error for non-existent file, got nil")
	}

	if budgets != nil {
		t.Errorf("Expected nil budgets on error, got %v", budgets)
	}
}
