package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
)

// Repositories VGP仓库集合
type Repositories struct {
	db *gorm.DB

	ControlType      *ControlTypeRepository
	Asset            *AssetRepository
	Schedule         *ScheduleRepository
	Template         *TemplateRepository
	Run              *RunRepository
	NonConformity    *NonConformityRepository
	CorrectiveAction *CorrectiveActionRepository
	Mission          *MissionRepository
	ActivityLog      *ActivityLogRepository
}

// NewRepositories 创建VGP仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		db:               db,
		ControlType:      NewControlTypeRepository(db),
		Asset:            NewAssetRepository(db),
		Schedule:         NewScheduleRepository(db),
		Template:         NewTemplateRepository(db),
		Run:              NewRunRepository(db),
		NonConformity:    NewNonConformityRepository(db),
		CorrectiveAction: NewCorrectiveActionRepository(db),
		Mission:          NewMissionRepository(db),
		ActivityLog:      NewActivityLogRepository(db),
	}
}

// Transaction runs fn against repositories bound to one database transaction.
// Any error returned by fn rolls everything back.
func (r *Repositories) Transaction(ctx context.Context, fn func(tx *Repositories) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}

// Ping checks the database connection.
func (r *Repositories) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
