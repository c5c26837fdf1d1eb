package scoring

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadTableFile_YAML(t *testing.T) {
	path := writeFile(t, "weights.yaml", `
weights:
  - sport: Run
    weight: 1.0
  - sport: Ride
    weight: 0.3
  - sport: NordicSki
    weight: 0.5
`)

	table, err := LoadTableFile(path)
	if err != nil {
		t.Fatalf("LoadTableFile failed: %v", err)
	}
	if len(table) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(table))
	}
	if !table["NordicSki"].Equal(decimal.NewFromFloat(0.5)) {
		t.Errorf("Expected NordicSki 0.5 with case preserved, got %v", table)
	}
	if !table["Ride"].Equal(decimal.NewFromFloat(0.3)) {
		t.Errorf("Expected Ride 0.3, got %s", table["Ride"])
	}
}

func TestLoadTableFile_JSON(t *testing.T) {
	path := writeFile(t, "weights.json", `{"weights":[{"sport":"Swim","weight":5}]}`)

	table, err := LoadTableFile(path)
	if err != nil {
		t.Fatalf("LoadTableFile failed: %v", err)
	}
	if !table["Swim"].Equal(decimal.NewFromInt(5)) {
		t.Errorf("Expected Swim 5, got %s", table["Swim"])
	}
}

func TestLoadTableFile_RejectsNegative(t *testing.T) {
	path := writeFile(t, "weights.yaml", `
weights:
  - sport: Run
    weight: -1
`)
	if _, err := LoadTableFile(path); err == nil {
		t.Fatal("Expected error for negative weight")
	}
}

func TestLoadTableFile_RejectsDuplicate(t *testing.T) {
	path := writeFile(t, "weights.yaml", `
weights:
  - sport: Run
    weight: 1
  - sport: Run
    weight: 2
`)
	if _, err := LoadTableFile(path); err == nil {
		t.Fatal("Expected error for duplicate sport")
	}
}

func TestLoadTableFile_Missing(t *testing.T) {
	if _, err := LoadTableFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("Expected error for missing file")
	}
}
