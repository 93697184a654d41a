package entity

import "time"

// Mission status
const (
	MissionStatusToPlan    = "A_PLANIFIER"
	MissionStatusPlanned   = "PLANIFIEE"
	MissionStatusRunning   = "EN_COURS"
	MissionStatusDone      = "TERMINEE"
	MissionStatusCancelled = "ANNULEE"
)

// Mission container of report runs planned for a technician
type Mission struct {
	ID         string     `json:"id" gorm:"primaryKey;size:32"`
	Code       string     `json:"code" gorm:"size:32;uniqueIndex;not null"`
	Title      string     `json:"title" gorm:"size:200;not null"`
	AssignedTo string     `json:"assigned_to" gorm:"size:32"`
	PlannedAt  *time.Time `json:"planned_at"`
	Status     string     `json:"status" gorm:"size:20;not null"`
	CreatedBy  string     `json:"created_by" gorm:"size:32"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (Mission) TableName() string {
	return "vgp_missions"
}
