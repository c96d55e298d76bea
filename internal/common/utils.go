package common

import "strings"

// ContainsFold returns true if s contains sub, ignoring case. An empty sub
// matches everything.
func ContainsFold(s, sub string) bool {
	if sub == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// Unconstrained reports whether a multi-valued selection should be ignored:
// nothing was selected, or the "any" option (an empty value) was.
func Unconstrained(selected []string) bool {
	if len(selected) == 0 {
		return true
	}
	for _, v := range selected {
		if strings.TrimSpace(v) == "" {
			return true
		}
	}
	return false
}

// SetOf builds a membership set from the selected values.
func SetOf(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
