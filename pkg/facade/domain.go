package facade

import (
	"strings"

	"github.com/helpfulengineering/ome-matching-core/internal/config"
)

// domainKeywords backs the tag-based domain detector (spec.md section 4.10:
// "domain detector that returns (domain, confidence)"). Grounded on the
// teacher's keyword-overlap classification idiom in
// internal/embedding/task_selector.go, generalized from task routing to
// domain detection.
var domainKeywords = map[config.Domain][]string{
	config.DomainManufacturing: {"manufacturing", "machining", "fabrication", "cnc", "electronics", "assembly", "pcb", "printing"},
	config.DomainCooking:       {"cooking", "kitchen", "food", "baking", "culinary", "recipe"},
}

// DetectDomain infers a domain from manifest tags, returning the domain
// with the highest keyword-overlap score and a confidence in [0,1]
// (score / tag count). Ties favor config.DomainManufacturing, the core's
// primary domain.
func DetectDomain(tags []string) (config.Domain, float64) {
	if len(tags) == 0 {
		return config.DomainManufacturing, 0
	}

	normalized := make([]string, len(tags))
	for i, t := range tags {
		normalized[i] = strings.ToLower(strings.TrimSpace(t))
	}

	best := config.DomainManufacturing
	bestScore := -1

	for _, domain := range []config.Domain{config.DomainManufacturing, config.DomainCooking} {
		keywords := domainKeywords[domain]
		score := 0
		for _, tag := range normalized {
			for _, kw := range keywords {
				if strings.Contains(tag, kw) {
					score++
					break
				}
			}
		}
		if score > bestScore {
			best = domain
			bestScore = score
		}
	}

	if bestScore <= 0 {
		return config.DomainManufacturing, 0
	}
	confidence := float64(bestScore) / float64(len(normalized))
	if confidence > 1 {
		confidence = 1
	}
	return best, confidence
}
