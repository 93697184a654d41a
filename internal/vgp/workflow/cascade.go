package workflow

import (
	"fmt"
	"sort"
	"time"

	"github.com/bitfantasy/vgp/internal/vgp/entity"
)

const (
	DefaultSeverity      = 3
	DefaultActionDueDays = 30
	MinSeverity          = 1
	MaxSeverity          = 5

	actionPlaceholder = "Action corrective à définir"
)

// CascadeOptions tunable defaults of the cascade
type CascadeOptions struct {
	DefaultSeverity int
	ActionDueDays   int
}

func (o CascadeOptions) withDefaults() CascadeOptions {
	if o.DefaultSeverity == 0 {
		o.DefaultSeverity = DefaultSeverity
	}
	if o.ActionDueDays == 0 {
		o.ActionDueDays = DefaultActionDueDays
	}
	return o
}

// CascadeResult records to persist with the submission
type CascadeResult struct {
	NonConformities   []entity.NonConformity
	CorrectiveActions []entity.CorrectiveAction
}

// ValidSeverity reports whether s is within 1..5.
func ValidSeverity(s int) bool {
	return s >= MinSeverity && s <= MaxSeverity
}

// BuildCascade derives the follow-up records of a submission: one
// non-conformity per failing result, plus one corrective action each when the
// flow creates actions. Records come out in template item order. Nothing is
// persisted here.
func BuildCascade(
	flow Flow,
	run *entity.InspectionRun,
	tpl *entity.ChecklistTemplate,
	results []entity.ItemResult,
	severities map[string]int,
	completedAt time.Time,
	opts CascadeOptions,
) (*CascadeResult, error) {
	opts = opts.withDefaults()
	out := &CascadeResult{}
	if !flow.CascadeEnabled(tpl) {
		return out, nil
	}

	items := make([]entity.TemplateItem, len(tpl.Items))
	copy(items, tpl.Items)
	sort.SliceStable(items, func(i, j int) bool { return items[i].SortOrder < items[j].SortOrder })

	byItem := make(map[string]entity.ItemResult, len(results))
	for _, r := range results {
		byItem[r.ItemID] = r
	}

	for _, it := range items {
		r, ok := byItem[it.ID]
		if !ok || !flow.Failing(r.Result) {
			continue
		}

		severity := opts.DefaultSeverity
		if s, ok := severities[it.ID]; ok {
			if !ValidSeverity(s) {
				return nil, Validation("severity %d out of range for item %s", s, it.Label)
			}
			severity = s
		}

		itemID := it.ID
		nc := entity.NonConformity{
			ID:          entity.NewID(),
			RunID:       run.ID,
			AssetID:     run.AssetID,
			ItemID:      &itemID,
			Flow:        flow.Kind(),
			Origin:      entity.OriginAuto,
			Title:       it.Label,
			Description: ncDescription(r),
			Severity:    severity,
			Status:      entity.StatusOpen,
			CreatedBy:   run.PerformedBy,
		}
		out.NonConformities = append(out.NonConformities, nc)

		if flow.CreatesActions() {
			out.CorrectiveActions = append(out.CorrectiveActions, entity.CorrectiveAction{
				ID:              entity.NewID(),
				NonConformityID: nc.ID,
				RunID:           run.ID,
				Owner:           run.PerformedBy,
				Description:     actionPlaceholder,
				DueAt:           completedAt.AddDate(0, 0, opts.ActionDueDays),
				Status:          entity.StatusOpen,
			})
		}
	}

	return out, nil
}

func ncDescription(r entity.ItemResult) string {
	if r.Comment != "" {
		return r.Comment
	}
	if r.NumericValue.Valid {
		return fmt.Sprintf("Valeur relevée: %s", r.NumericValue.Decimal.String())
	}
	return r.TextValue
}
