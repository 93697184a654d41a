package entity

import "time"

// Asset inspected equipment
type Asset struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	Code      string    `json:"code" gorm:"size:50;uniqueIndex;not null"`
	Name      string    `json:"name" gorm:"size:200;not null"`
	Site      string    `json:"site" gorm:"size:200"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Asset) TableName() string {
	return "vgp_assets"
}

// AssetControlSchedule next due date of one control type on one asset.
// NextDueAt stays nil until a completion with periodicity > 0 or an explicit seed.
type AssetControlSchedule struct {
	ID            string     `json:"id" gorm:"primaryKey;size:32"`
	AssetID       string     `json:"asset_id" gorm:"size:32;not null;uniqueIndex:idx_schedule_asset_control"`
	ControlTypeID string     `json:"control_type_id" gorm:"size:32;not null;uniqueIndex:idx_schedule_asset_control"`
	StartDate     *time.Time `json:"start_date"`
	LastDoneAt    *time.Time `json:"last_done_at"`
	NextDueAt     *time.Time `json:"next_due_at" gorm:"index"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	// 关联
	Asset       *Asset       `json:"asset,omitempty" gorm:"foreignKey:AssetID"`
	ControlType *ControlType `json:"control_type,omitempty" gorm:"foreignKey:ControlTypeID"`
}

func (AssetControlSchedule) TableName() string {
	return "vgp_asset_control_schedules"
}
