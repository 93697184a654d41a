package entity

import "time"

// Shared lifecycle states
const (
	StatusOpen       = "OUVERTE"
	StatusInProgress = "EN_COURS"
	StatusClosed     = "CLOTUREE"
	StatusValidated  = "VALIDEE" // corrective actions only
)

// Non-conformity origin
const (
	OriginAuto   = "AUTO"
	OriginManual = "MANUAL"
)

// NonConformity failing point raised by a run. In the VGP flow it is a
// self-contained observation without corrective action.
type NonConformity struct {
	ID          string     `json:"id" gorm:"primaryKey;size:32"`
	RunID       string     `json:"run_id" gorm:"size:32;not null;index"`
	AssetID     string     `json:"asset_id" gorm:"size:32;not null;index"`
	ItemID      *string    `json:"item_id" gorm:"size:32"`
	Flow        string     `json:"flow" gorm:"size:10;not null"`
	Origin      string     `json:"origin" gorm:"size:10;not null"`
	Title       string     `json:"title" gorm:"size:300;not null"`
	Description string     `json:"description" gorm:"type:text"`
	Severity    int        `json:"severity" gorm:"not null"`
	Status      string     `json:"status" gorm:"size:20;not null;index"`
	ClosedAt    *time.Time `json:"closed_at"`
	CreatedBy   string     `json:"created_by" gorm:"size:32"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Action *CorrectiveAction `json:"action,omitempty" gorm:"foreignKey:NonConformityID"`
}

func (NonConformity) TableName() string {
	return "vgp_non_conformities"
}

// CorrectiveAction follow-up of an auto-generated report non-conformity
type CorrectiveAction struct {
	ID              string     `json:"id" gorm:"primaryKey;size:32"`
	NonConformityID string     `json:"non_conformity_id" gorm:"size:32;not null;uniqueIndex"`
	RunID           string     `json:"run_id" gorm:"size:32;not null;index"`
	Owner           string     `json:"owner" gorm:"size:32"`
	Description     string     `json:"description" gorm:"type:text"`
	DueAt           time.Time  `json:"due_at"`
	Status          string     `json:"status" gorm:"size:20;not null;index"`
	ValidatedBy     *string    `json:"validated_by" gorm:"size:32"`
	ClosedAt        *time.Time `json:"closed_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (CorrectiveAction) TableName() string {
	return "vgp_corrective_actions"
}
