package crops

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Variety carries the per-variety parameters the crop engine consumes.
type Variety struct {
	// Temperature sums (deg C day) for emergence, anthesis and
	// maturity, above TBase.
	TSumEmergence float64 `yaml:"tsum_emergence"`
	TSum1         float64 `yaml:"tsum1"`
	TSum2         float64 `yaml:"tsum2"`
	TBase         float64 `yaml:"tbase"`

	LAIMax          float64 `yaml:"lai_max"`
	RUE             float64 `yaml:"rue"` // g dry matter per MJ intercepted
	StorageFraction float64 `yaml:"storage_fraction"`
	NUptakeMax      float64 `yaml:"n_uptake_max"` // kg N/ha/day
}

type Crop struct {
	Name      string             `yaml:"name"`
	Varieties map[string]Variety `yaml:"varieties"`
}

// Catalog is the crop-variety lookup table, loaded from one YAML file
// per crop.
type Catalog struct {
	ByName map[string]Crop
	Names  []string // sorted
	Digest string   // sha256 over the concatenated source files
}

// Load reads every *.yaml file under dir as one crop definition.
func Load(dir string) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(e.Name(), ".yaml") || strings.HasSuffix(e.Name(), ".yml") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	c := &Catalog{ByName: map[string]Crop{}}
	var concat bytes.Buffer
	for _, p := range files {
		raw, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		concat.Write(raw)
		concat.WriteByte('\n')

		var crop Crop
		if err := yaml.Unmarshal(raw, &crop); err != nil {
			return nil, fmt.Errorf("crop %s: %w", filepath.Base(p), err)
		}
		if crop.Name == "" {
			return nil, fmt.Errorf("crop %s: missing name", filepath.Base(p))
		}
		if len(crop.Varieties) == 0 {
			return nil, fmt.Errorf("crop %s: no varieties", crop.Name)
		}
		c.ByName[crop.Name] = crop
	}

	for name := range c.ByName {
		c.Names = append(c.Names, name)
	}
	sort.Strings(c.Names)

	sum := sha256.Sum256(concat.Bytes())
	c.Digest = hex.EncodeToString(sum[:])
	return c, nil
}

// VarietyNames lists a crop's varieties in sorted order.
func (c *Catalog) VarietyNames(crop string) []string {
	def, ok := c.ByName[crop]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(def.Varieties))
	for v := range def.Varieties {
		names = append(names, v)
	}
	sort.Strings(names)
	return names
}
