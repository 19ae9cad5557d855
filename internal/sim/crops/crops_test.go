package crops

import (
	"os"
	"path/filepath"
	"testing"
)

func writeCatalog(t *testing.T) *Catalog {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"wheat.yaml": `name: wheat
varieties:
  generic: {tsum1: 1050, tsum2: 1000, lai_max: 6.0, rue: 3.0, storage_fraction: 0.45}
  winter:  {tsum1: 1200, tsum2: 1050, lai_max: 6.5, rue: 3.0, storage_fraction: 0.47}
`,
		"maize.yaml": `name: maize
varieties:
  generic: {tsum1: 900, tsum2: 850, tbase: 8.0, lai_max: 5.5, rue: 3.8, storage_fraction: 0.5}
`,
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	c, err := Load(dir)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return c
}

func TestLoad_NamesAndDigest(t *testing.T) {
	c := writeCatalog(t)
	if len(c.Names) != 2 || c.Names[0] != "maize" || c.Names[1] != "wheat" {
		t.Fatalf("names: %v", c.Names)
	}
	if c.Digest == "" {
		t.Fatalf("missing digest")
	}
}

func TestResolve_ExactAndFuzzy(t *testing.T) {
	c := writeCatalog(t)

	crop, variety, _, err := c.Resolve("wheat", "")
	if err != nil {
		t.Fatalf("resolve wheat: %v", err)
	}
	if crop != "wheat" || variety != "generic" {
		t.Fatalf("exact resolve: %s/%s", crop, variety)
	}

	// Misspelled crop resolves to the closest name, never errors.
	crop, _, _, err = c.Resolve("weat", "")
	if err != nil {
		t.Fatalf("fuzzy resolve: %v", err)
	}
	if crop != "wheat" {
		t.Fatalf("fuzzy crop: got %s want wheat", crop)
	}

	// Misspelled variety resolves within the crop.
	_, variety, _, err = c.Resolve("wheat", "wintr")
	if err != nil {
		t.Fatalf("fuzzy variety: %v", err)
	}
	if variety != "winter" {
		t.Fatalf("fuzzy variety: got %s want winter", variety)
	}

	// Wildly wrong input still lands on some candidate.
	crop, variety, _, err = c.Resolve("zzzzzz", "")
	if err != nil {
		t.Fatalf("no-cutoff resolve: %v", err)
	}
	if crop == "" || variety == "" {
		t.Fatalf("no candidate returned: %s/%s", crop, variety)
	}
}

func TestResolve_EmptyCatalogFails(t *testing.T) {
	c := &Catalog{ByName: map[string]Crop{}}
	if _, _, _, err := c.Resolve("wheat", ""); err == nil {
		t.Fatalf("expected lookup error on empty catalog")
	}
}
