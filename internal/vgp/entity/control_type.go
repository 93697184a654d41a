package entity

import "time"

// ControlType recurring inspection definition
type ControlType struct {
	ID              string    `json:"id" gorm:"primaryKey;size:32"`
	Code            string    `json:"code" gorm:"size:50;uniqueIndex;not null"`
	Label           string    `json:"label" gorm:"size:200;not null"`
	PeriodicityDays int       `json:"periodicity_days" gorm:"not null"` // 0 = one-off
	Active          bool      `json:"active" gorm:"not null"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (ControlType) TableName() string {
	return "vgp_control_types"
}
