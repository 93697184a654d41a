package workflow

import (
	"github.com/bitfantasy/vgp/internal/vgp/entity"
)

// Flow parameterizes the shared run/result/cascade model for the two
// inspection variants.
type Flow interface {
	Kind() string
	// ValidResult reports whether r belongs to the flow's vocabulary.
	ValidResult(r string) bool
	// Failing reports whether r raises a non-conformity.
	Failing(r string) bool
	// Conclusion derives or checks the run conclusion. chosen is the value
	// picked by the validating manager; flows that derive ignore it.
	Conclusion(results []entity.ItemResult, chosen string) (string, error)
	// CreatesActions reports whether each non-conformity gets a corrective action.
	CreatesActions() bool
	// CascadeEnabled reports whether failing results generate records.
	CascadeEnabled(tpl *entity.ChecklistTemplate) bool
	// SubmittedStatus is the run status after a successful submission.
	SubmittedStatus() string
	// RequiresValidation reports whether submission needs validation permission.
	RequiresValidation() bool
}

// FlowFor returns the strategy of a flow kind.
func FlowFor(kind string) (Flow, error) {
	switch kind {
	case entity.FlowReport:
		return ReportFlow{}, nil
	case entity.FlowVGP:
		return VGPFlow{}, nil
	}
	return nil, Validation("unknown flow %q", kind)
}

// ReportFlow simple mission report
type ReportFlow struct{}

func (ReportFlow) Kind() string { return entity.FlowReport }

func (ReportFlow) ValidResult(r string) bool {
	return r == entity.ResultOK || r == entity.ResultKO || r == entity.ResultNA
}

func (ReportFlow) Failing(r string) bool { return r == entity.ResultKO }

func (ReportFlow) Conclusion(results []entity.ItemResult, _ string) (string, error) {
	return DeriveConclusion(results), nil
}

func (ReportFlow) CreatesActions() bool { return true }

func (ReportFlow) CascadeEnabled(*entity.ChecklistTemplate) bool { return true }

func (ReportFlow) SubmittedStatus() string { return entity.RunStatusSubmitted }

func (ReportFlow) RequiresValidation() bool { return false }

// VGPFlow regulatory run validated by a manager
type VGPFlow struct{}

func (VGPFlow) Kind() string { return entity.FlowVGP }

func (VGPFlow) ValidResult(r string) bool {
	return r == entity.ResultOui || r == entity.ResultNon || r == entity.ResultNA
}

func (VGPFlow) Failing(r string) bool { return r == entity.ResultNon }

func (VGPFlow) Conclusion(_ []entity.ItemResult, chosen string) (string, error) {
	if chosen == "" {
		return "", Validation("a conclusion must be chosen to validate a VGP run")
	}
	if !ValidConclusion(chosen) {
		return "", Validation("unknown conclusion %q", chosen)
	}
	return chosen, nil
}

func (VGPFlow) CreatesActions() bool { return false }

func (VGPFlow) CascadeEnabled(tpl *entity.ChecklistTemplate) bool {
	return tpl != nil && tpl.AutoObservations
}

func (VGPFlow) SubmittedStatus() string { return entity.RunStatusValidated }

func (VGPFlow) RequiresValidation() bool { return true }
