package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseQueryList handles both repeated and comma-separated query params.
// Example:
//
//	?type=1,2        → ["1","2"]
//	?type=1&type=2   → ["1","2"]
func ParseQueryList(q map[string][]string, key string) []string {
	var out []string
	for _, v := range q[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// ParseIDList is ParseQueryList for positive integer ids.
func ParseIDList(q map[string][]string, key string) ([]int64, error) {
	raw := ParseQueryList(q, key)
	if len(raw) == 0 {
		return nil, nil
	}
	ids := make([]int64, 0, len(raw))
	for _, s := range raw {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("%s: %q is not a valid id", key, s)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ParseFloat reads an optional float parameter. ok is false when it is absent.
func ParseFloat(q map[string][]string, key string) (v float64, ok bool, err error) {
	raw := strings.TrimSpace(first(q[key]))
	if raw == "" {
		return 0, false, nil
	}
	v, err = strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %q is not a number", key, raw)
	}
	return v, true, nil
}

func first(vals []string) string {
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}
