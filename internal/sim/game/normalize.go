package game

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Normalize converts a raw engine value into a transport-safe shape:
// nil, bool and strings pass through, numeric scalars become float64,
// dates become ISO-8601 strings, numeric sequences are recursively
// flattened into []float64, and anything else falls back to its
// string representation. Normalizing an already-normalized value
// returns it unchanged.
func Normalize(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case bool:
		return x
	case string:
		return x
	case float64:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case uint:
		return float64(x)
	case uint32:
		return float64(x)
	case uint64:
		return float64(x)
	case time.Time:
		return x.Format("2006-01-02")
	case []float64:
		return append([]float64(nil), x...)
	case []float32, []int, []int64, []any, [][]float64:
		return FloatSeq(v)
	default:
		return fmt.Sprint(v)
	}
}

// FloatSeq recursively flattens any nesting of numeric sequences into
// a plain []float64, skipping elements that are not numeric.
func FloatSeq(v any) []float64 {
	var out []float64
	flatten(v, &out)
	return out
}

func flatten(v any, out *[]float64) {
	switch x := v.(type) {
	case []float64:
		*out = append(*out, x...)
	case []float32:
		for _, f := range x {
			*out = append(*out, float64(f))
		}
	case []int:
		for _, n := range x {
			*out = append(*out, float64(n))
		}
	case []int64:
		for _, n := range x {
			*out = append(*out, float64(n))
		}
	case [][]float64:
		for _, row := range x {
			flatten(row, out)
		}
	case []any:
		for _, item := range x {
			flatten(item, out)
		}
	default:
		if f, ok := scalarFloat(v); ok {
			*out = append(*out, f)
		}
	}
}

// ScalarFloat coerces a value to a single float. Sequences yield
// their last element (the deepest layer or most recent timestep);
// everything else is best-effort, with ok=false when no numeric
// reading exists.
func ScalarFloat(v any) (float64, bool) {
	if v == nil {
		return 0, false
	}
	switch v.(type) {
	case []float64, []float32, []int, []int64, []any, [][]float64:
		seq := FloatSeq(v)
		if len(seq) == 0 {
			return 0, false
		}
		return seq[len(seq)-1], true
	}
	return scalarFloat(v)
}

func scalarFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
