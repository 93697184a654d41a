package entity

import (
	"github.com/google/uuid"
)

// NewID returns a 32-char primary key.
func NewID() string {
	return uuid.New().String()[:32]
}

// AllModels lists every table of the workflow engine, in dependency order.
func AllModels() []interface{} {
	return []interface{}{
		&ControlType{},
		&Asset{},
		&AssetControlSchedule{},
		&ChecklistTemplate{},
		&TemplateItem{},
		&Mission{},
		&InspectionRun{},
		&ItemResult{},
		&NonConformity{},
		&CorrectiveAction{},
		&ActivityLog{},
	}
}
