package workflow

import (
	"fmt"

	"github.com/bitfantasy/vgp/internal/vgp/entity"
)

// ValidConclusion reports whether c is one of the three conclusions.
func ValidConclusion(c string) bool {
	switch c {
	case entity.ConclusionConforme, entity.ConclusionNonConforme, entity.ConclusionConformeSousReserve:
		return true
	}
	return false
}

// DeriveConclusion applies the report rule: any KO fails the run, NA never counts.
func DeriveConclusion(results []entity.ItemResult) string {
	for _, r := range results {
		if r.Result == entity.ResultKO {
			return entity.ConclusionNonConforme
		}
	}
	return entity.ConclusionConforme
}

// CheckCompleteness validates results against the template before any side
// effect: every required item answered, no unknown item, no duplicate, and
// every value in the flow's vocabulary.
func CheckCompleteness(flow Flow, items []entity.TemplateItem, results []entity.ItemResult) error {
	known := make(map[string]entity.TemplateItem, len(items))
	for _, it := range items {
		known[it.ID] = it
	}

	var details []string
	answered := make(map[string]bool, len(results))
	for _, r := range results {
		if _, ok := known[r.ItemID]; !ok {
			details = append(details, fmt.Sprintf("unknown item %s", r.ItemID))
			continue
		}
		if answered[r.ItemID] {
			details = append(details, fmt.Sprintf("duplicate result for item %s", r.ItemID))
			continue
		}
		if !flow.ValidResult(r.Result) {
			details = append(details, fmt.Sprintf("invalid result %q for item %s", r.Result, r.ItemID))
			continue
		}
		answered[r.ItemID] = true
	}

	for _, it := range items {
		if it.Required && !answered[it.ID] {
			details = append(details, fmt.Sprintf("required item unanswered: %s", it.Label))
		}
	}

	if len(details) > 0 {
		return Validation("checklist incomplete").WithDetails(details...)
	}
	return nil
}
