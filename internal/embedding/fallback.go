package embedding

import "strings"

// TokenSimilarity computes a dependency-free Jaccard/Dice blend over the
// whitespace-tokenized words of a and b. Used by the NLP layer when no
// Engine is configured (spec.md section 4.5: "If unavailable, fall back to
// a token-Jaccard/Dice similarity on normalized texts with the same context
// enhancement"). Grounded on the teacher's embedding/task_selector.go
// keyword-overlap scoring, generalized from keyword sets to full token sets.
func TokenSimilarity(a, b string) float64 {
	ta := tokenSet(a)
	tb := tokenSet(b)
	if len(ta) == 0 && len(tb) == 0 {
		return 0
	}
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	intersection := 0
	for tok := range ta {
		if tb[tok] {
			intersection++
		}
	}
	union := len(ta) + len(tb) - intersection

	jaccard := float64(intersection) / float64(union)
	dice := 2 * float64(intersection) / float64(len(ta)+len(tb))

	return (jaccard + dice) / 2
}

func tokenSet(s string) map[string]bool {
	fields := strings.Fields(s)
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[f] = true
	}
	return set
}
