package matching

import "strings"

// domainLexicon holds the abbreviation expansions and category term sets
// used to build context-enhanced forms for the NLP layer (spec.md section
// 4.5, step 2). One lexicon per config.Domain; unknown domains get an empty
// lexicon and the context-enhancement step becomes a no-op.
type domainLexicon struct {
	// abbreviations maps a lowercase abbreviation to its canonical expansion.
	abbreviations map[string]string
	// categories groups related terms; two texts sharing a category (but not
	// a literal term) earn the smaller domain boost.
	categories [][]string
	// anchors are appended once to an enhanced text when at least one
	// abbreviation expansion fired for it.
	anchors []string
}

var lexicons = map[string]domainLexicon{
	"manufacturing": {
		abbreviations: map[string]string{
			"pcb":  "printed circuit board electronics manufacturing",
			"cnc":  "computer numerical control machining",
			"fdm":  "fused deposition modeling 3d printing",
			"sla":  "stereolithography 3d printing",
			"cmm":  "coordinate measuring machine inspection",
			"smt":  "surface mount technology assembly",
			"injmold": "injection molding plastic forming",
		},
		categories: [][]string{
			{"milling", "turning", "machining", "cnc", "lathe", "drilling"},
			{"3d printing", "additive manufacturing", "fdm", "sla", "prototyping"},
			{"welding", "joining", "brazing", "soldering"},
			{"assembly", "smt", "pick and place", "electronics"},
			{"inspection", "quality control", "cmm", "metrology"},
		},
		anchors: []string{"manufacturing process", "production capability"},
	},
	"cooking": {
		abbreviations: map[string]string{
			"sv":  "sous vide precision temperature cooking",
			"bbq": "barbecue smoking low temperature cooking",
		},
		categories: [][]string{
			{"baking", "roasting", "oven"},
			{"frying", "saute", "pan searing"},
			{"grilling", "bbq", "smoking"},
			{"sous vide", "sv", "poaching"},
		},
		anchors: []string{"food preparation process", "kitchen capability"},
	},
}

func lexiconFor(domain string) domainLexicon {
	return lexicons[strings.ToLower(domain)]
}

// enhance builds the context-enhanced form of text: expanding any matched
// abbreviation token and, if any expansion fired, appending the domain's
// anchor phrases (spec.md section 4.5, step 2).
func (l domainLexicon) enhance(text string) (enhanced string, expanded bool) {
	tokens := strings.Fields(text)
	var out []string
	out = append(out, tokens...)

	for _, tok := range tokens {
		if exp, ok := l.abbreviations[strings.ToLower(tok)]; ok {
			out = append(out, exp)
			expanded = true
		}
	}
	if expanded {
		out = append(out, l.anchors...)
	}
	return strings.Join(out, " "), expanded
}

// sharedCategory reports whether a and b each contain a term from the same
// category (not necessarily the same term).
func (l domainLexicon) sharedCategory(a, b string) bool {
	for _, cat := range l.categories {
		inA, inB := false, false
		for _, term := range cat {
			if strings.Contains(a, term) {
				inA = true
			}
			if strings.Contains(b, term) {
				inB = true
			}
		}
		if inA && inB {
			return true
		}
	}
	return false
}

// abbreviationBridges reports whether a contains an abbreviation whose
// expansion overlaps with b's tokens, or vice versa (spec.md section 4.5,
// domain boost rule 3). "Overlaps" rather than "is a substring of" because
// an expansion like "printed circuit board electronics manufacturing" is
// longer than the plain phrase ("printed circuit board") a capability would
// actually use, so requiring the full expansion to appear verbatim in the
// other text made this unreachable for the textbook abbreviation case.
func (l domainLexicon) abbreviationBridges(aRaw, bRaw string) bool {
	for abbr, exp := range l.abbreviations {
		aHas := containsToken(aRaw, abbr)
		bHas := containsToken(bRaw, abbr)
		if aHas && phraseOverlaps(bRaw, exp) {
			return true
		}
		if bHas && phraseOverlaps(aRaw, exp) {
			return true
		}
	}
	return false
}

func containsToken(text, token string) bool {
	for _, tok := range strings.Fields(text) {
		if strings.EqualFold(tok, token) {
			return true
		}
	}
	return false
}

// phraseOverlaps reports whether text and exp share at least half of the
// shorter phrase's tokens, in addition to the plain substring check (which
// still covers the case where one phrase literally contains the other).
func phraseOverlaps(text, exp string) bool {
	if strings.Contains(text, exp) || strings.Contains(exp, text) {
		return true
	}

	textTokens, expTokens := strings.Fields(text), strings.Fields(exp)
	if len(textTokens) == 0 || len(expTokens) == 0 {
		return false
	}

	textSet := make(map[string]bool, len(textTokens))
	for _, tok := range textTokens {
		textSet[tok] = true
	}
	shared := 0
	for _, tok := range expTokens {
		if textSet[tok] {
			shared++
		}
	}

	shorter := len(expTokens)
	if len(textTokens) < shorter {
		shorter = len(textTokens)
	}
	return float64(shared)/float64(shorter) >= 0.5
}
