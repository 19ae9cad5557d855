package tuning

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_SparseFileKeepsDefaults(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(p, []byte("sim_days: 30\ndefault_lat: 1.5\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	tune, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tune.SimDays != 30 || tune.DefaultLat != 1.5 {
		t.Fatalf("overrides not applied: %+v", tune)
	}
	if tune.BaseYear != 2024 || tune.FertilizerPresets["medium"] != 40.0 {
		t.Fatalf("defaults lost: %+v", tune)
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	tune, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
	if tune.BaseYear != 2024 {
		t.Fatalf("defaults not returned alongside error: %+v", tune)
	}
}
