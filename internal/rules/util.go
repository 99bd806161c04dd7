package rules

import "strings"

// collapseAndFold lowercases and whitespace-collapses s for case-insensitive,
// taxonomy-aware index lookups (spec.md section 4.2: "case-insensitive,
// taxonomy-aware").
func collapseAndFold(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
