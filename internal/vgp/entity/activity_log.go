package entity

import (
	"time"

	"gorm.io/datatypes"
)

// Activity entity types
const (
	ActivityEntityRun           = "run"
	ActivityEntityNonConformity = "non_conformity"
	ActivityEntityAction        = "corrective_action"
	ActivityEntityMission       = "mission"
	ActivityEntitySchedule      = "schedule"
)

// ActivityLog audit trail of workflow changes
type ActivityLog struct {
	ID         string `json:"id" gorm:"primaryKey;size:32"`
	EntityType string `json:"entity_type" gorm:"size:50;not null;index:idx_activity_entity"`
	EntityID   string `json:"entity_id" gorm:"size:32;not null;index:idx_activity_entity"`
	EntityCode string `json:"entity_code" gorm:"size:50"`

	Action     string `json:"action" gorm:"size:50;not null"` // submit/validate/transition/cascade/reschedule
	FromStatus string `json:"from_status" gorm:"size:30"`
	ToStatus   string `json:"to_status" gorm:"size:30"`

	Content  string            `json:"content" gorm:"type:text"`
	Metadata datatypes.JSONMap `json:"metadata"`

	OperatorID   string    `json:"operator_id" gorm:"size:32"`
	OperatorName string    `json:"operator_name" gorm:"size:100"`
	CreatedAt    time.Time `json:"created_at"`
}

func (ActivityLog) TableName() string {
	return "vgp_activity_logs"
}
