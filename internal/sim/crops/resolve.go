package crops

import (
	"fmt"

	"github.com/agnivade/levenshtein"
)

// Resolve maps user-supplied crop and variety names onto catalog
// entries. Exact (case-sensitive) match wins; otherwise the closest
// name by edit distance is used with no minimum similarity, so a
// non-empty catalog always yields some candidate. An empty variety
// picks "generic" when present, else the first variety in sorted
// order.
func (c *Catalog) Resolve(cropName, varietyName string) (string, string, Variety, error) {
	if len(c.Names) == 0 {
		return "", "", Variety{}, fmt.Errorf("crop %q not found: catalog is empty", cropName)
	}

	cropKey := cropName
	if _, ok := c.ByName[cropKey]; !ok {
		cropKey = closest(cropName, c.Names)
	}
	crop := c.ByName[cropKey]

	varieties := c.VarietyNames(cropKey)
	if len(varieties) == 0 {
		return "", "", Variety{}, fmt.Errorf("no varieties found for crop %q", cropKey)
	}

	var varKey string
	if varietyName == "" {
		if _, ok := crop.Varieties["generic"]; ok {
			varKey = "generic"
		} else {
			varKey = varieties[0]
		}
	} else {
		varKey = varietyName
		if _, ok := crop.Varieties[varKey]; !ok {
			varKey = closest(varietyName, varieties)
		}
	}
	return cropKey, varKey, crop.Varieties[varKey], nil
}

// closest returns the candidate with the smallest edit distance to
// name. Candidates must be sorted; ties go to the lexically smallest,
// keeping resolution deterministic.
func closest(name string, candidates []string) string {
	best := candidates[0]
	bestDist := levenshtein.ComputeDistance(name, best)
	for _, cand := range candidates[1:] {
		if d := levenshtein.ComputeDistance(name, cand); d < bestDist {
			best, bestDist = cand, d
		}
	}
	return best
}
