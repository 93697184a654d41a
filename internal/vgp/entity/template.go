package entity

import "time"

// Flow kinds
const (
	FlowReport = "REPORT" // mission report: OK/KO/NA, derived conclusion, NC + action
	FlowVGP    = "VGP"    // VGP run: OUI/NON/NA, manager-chosen conclusion, observations
)

// Answer kinds of a template item
const (
	AnswerYesNo   = "YES_NO"
	AnswerNumeric = "NUMERIC"
	AnswerText    = "TEXT"
)

// ChecklistTemplate checklist executed for one control type
type ChecklistTemplate struct {
	ID               string    `json:"id" gorm:"primaryKey;size:32"`
	Code             string    `json:"code" gorm:"size:50;uniqueIndex;not null"`
	Label            string    `json:"label" gorm:"size:200;not null"`
	ControlTypeID    string    `json:"control_type_id" gorm:"size:32;not null;index"`
	Flow             string    `json:"flow" gorm:"size:10;not null"`
	AutoObservations bool      `json:"auto_observations"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`

	Items []TemplateItem `json:"items,omitempty" gorm:"foreignKey:TemplateID"`
}

func (ChecklistTemplate) TableName() string {
	return "vgp_checklist_templates"
}

// TemplateItem one question of a checklist
type TemplateItem struct {
	ID         string `json:"id" gorm:"primaryKey;size:32"`
	TemplateID string `json:"template_id" gorm:"size:32;not null;index"`
	Label      string `json:"label" gorm:"size:300;not null"`
	Required   bool   `json:"required"`
	AnswerKind string `json:"answer_kind" gorm:"size:10;not null"`
	SortOrder  int    `json:"sort_order"`
}

func (TemplateItem) TableName() string {
	return "vgp_template_items"
}
