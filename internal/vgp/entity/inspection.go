package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Run status
const (
	RunStatusDraft     = "BROUILLON"
	RunStatusSubmitted = "SOUMIS" // REPORT flow
	RunStatusValidated = "VALIDE" // VGP flow
)

// Conclusions
const (
	ConclusionConforme            = "CONFORME"
	ConclusionNonConforme         = "NON_CONFORME"
	ConclusionConformeSousReserve = "CONFORME_SOUS_RESERVE"
)

// Item results. REPORT uses OK/KO/NA, VGP uses OUI/NON/NA.
const (
	ResultOK  = "OK"
	ResultKO  = "KO"
	ResultOui = "OUI"
	ResultNon = "NON"
	ResultNA  = "NA"
)

// InspectionRun one execution of a checklist on one asset (mission report or VGP run)
type InspectionRun struct {
	ID            string     `json:"id" gorm:"primaryKey;size:32"`
	Code          string     `json:"code" gorm:"size:32;uniqueIndex;not null"`
	Flow          string     `json:"flow" gorm:"size:10;not null"`
	MissionID     *string    `json:"mission_id" gorm:"size:32;index"`
	AssetID       string     `json:"asset_id" gorm:"size:32;not null;index"`
	ControlTypeID string     `json:"control_type_id" gorm:"size:32;not null"`
	TemplateID    string     `json:"template_id" gorm:"size:32;not null"`
	Status        string     `json:"status" gorm:"size:20;not null"`
	Conclusion    *string    `json:"conclusion" gorm:"size:30"`
	PerformedBy   string     `json:"performed_by" gorm:"size:32"`
	SignedBy      string     `json:"signed_by" gorm:"size:100"`
	SignedAt      *time.Time `json:"signed_at"`
	CompletedAt   *time.Time `json:"completed_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	Results []ItemResult `json:"results,omitempty" gorm:"foreignKey:RunID"`
}

func (InspectionRun) TableName() string {
	return "vgp_inspection_runs"
}

// IsDraft reports whether results may still be recorded.
func (r *InspectionRun) IsDraft() bool {
	return r.Status == RunStatusDraft
}

// ItemResult answer to one template item
type ItemResult struct {
	ID           string              `json:"id" gorm:"primaryKey;size:32"`
	RunID        string              `json:"run_id" gorm:"size:32;not null;uniqueIndex:idx_result_run_item"`
	ItemID       string              `json:"item_id" gorm:"size:32;not null;uniqueIndex:idx_result_run_item"`
	Result       string              `json:"result" gorm:"size:10;not null"`
	NumericValue decimal.NullDecimal `json:"numeric_value" gorm:"type:decimal(14,4)"`
	TextValue    string              `json:"text_value" gorm:"type:text"`
	Comment      string              `json:"comment" gorm:"type:text"`
	Severity     *int                `json:"severity,omitempty"` // nil: cascade default
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

func (ItemResult) TableName() string {
	return "vgp_item_results"
}
