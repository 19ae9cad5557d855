package server

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// parseGameDate turns a client-supplied date into a day in the fixed
// reference year. Accepted forms: MMDD, YYYYMMDD, ISO, and a few
// slash/dash variants; the year component, if any, is discarded.
func parseGameDate(value any, baseYear int) (time.Time, error) {
	text := strings.TrimSpace(stringify(value))
	if text == "" {
		return time.Time{}, fmt.Errorf("missing sowing date")
	}

	var parsed time.Time
	switch {
	case isDigits(text) && len(text) == 8:
		p, err := time.Parse("20060102", text)
		if err != nil {
			return time.Time{}, fmt.Errorf("unsupported date format: %s", text)
		}
		parsed = p
	case isDigits(text) && len(text) <= 4:
		p, err := time.Parse("0102", leftPad(text, 4))
		if err != nil {
			return time.Time{}, fmt.Errorf("unsupported date format: %s", text)
		}
		parsed = p
	default:
		layouts := []string{dateLayout, "2006/01/02", "01/02/2006", "02/01/2006", "02-01-2006"}
		var err error
		for _, layout := range layouts {
			parsed, err = time.Parse(layout, text)
			if err == nil {
				break
			}
		}
		if err != nil {
			return time.Time{}, fmt.Errorf("unsupported date format: %s", text)
		}
	}

	return time.Date(baseYear, parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC), nil
}

// resolveAmount accepts either a number or a named preset. Nil and
// blank mean zero.
func resolveAmount(value any, presets map[string]float64, label string) (float64, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	}
	text := strings.TrimSpace(stringify(value))
	if text == "" {
		return 0, nil
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return f, nil
	}
	if amount, ok := presets[strings.ToLower(text)]; ok {
		return amount, nil
	}
	return 0, fmt.Errorf("unknown %s option: %v", label, value)
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		if x == float64(int64(x)) {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'g', -1, 64)
	case int:
		return strconv.Itoa(x)
	default:
		return fmt.Sprint(x)
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func leftPad(s string, width int) string {
	for len(s) < width {
		s = "0" + s
	}
	return s
}

func isEmptyField(v any) bool {
	return strings.TrimSpace(stringify(v)) == ""
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
