package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bitfantasy/vgp/internal/vgp/entity"
)

// ScheduleRepository 设备检查计划仓库
type ScheduleRepository struct {
	db *gorm.DB
}

func NewScheduleRepository(db *gorm.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

func (r *ScheduleRepository) FindByAssetControl(ctx context.Context, assetID, controlTypeID string) (*entity.AssetControlSchedule, error) {
	var s entity.AssetControlSchedule
	err := r.db.WithContext(ctx).
		Where("asset_id = ? AND control_type_id = ?", assetID, controlTypeID).
		First(&s).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

func (r *ScheduleRepository) FindByAsset(ctx context.Context, assetID string) ([]entity.AssetControlSchedule, error) {
	var items []entity.AssetControlSchedule
	err := r.db.WithContext(ctx).
		Preload("ControlType").
		Where("asset_id = ?", assetID).
		Order("next_due_at ASC").
		Find(&items).Error
	return items, err
}

// Save inserts or updates one schedule row without touching associations.
func (r *ScheduleRepository) Save(ctx context.Context, s *entity.AssetControlSchedule) error {
	if s.ID == "" {
		s.ID = entity.NewID()
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(s).Error
}

// FindDue returns scheduled rows with next_due_at before horizon, soonest first.
func (r *ScheduleRepository) FindDue(ctx context.Context, horizon time.Time) ([]entity.AssetControlSchedule, error) {
	var items []entity.AssetControlSchedule
	err := r.db.WithContext(ctx).
		Preload("Asset").
		Preload("ControlType").
		Where("next_due_at IS NOT NULL AND next_due_at < ?", horizon).
		Order("next_due_at ASC").
		Find(&items).Error
	return items, err
}
