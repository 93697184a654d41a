package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/bitfantasy/vgp/internal/vgp/entity"
)

// MissionRepository 任务仓库
type MissionRepository struct {
	db *gorm.DB
}

func NewMissionRepository(db *gorm.DB) *MissionRepository {
	return &MissionRepository{db: db}
}

func (r *MissionRepository) Create(ctx context.Context, m *entity.Mission) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *MissionRepository) FindByID(ctx context.Context, id string) (*entity.Mission, error) {
	var m entity.Mission
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

// UpdateStatus moves the mission only if it is still in from.
func (r *MissionRepository) UpdateStatus(ctx context.Context, id, from, to string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&entity.Mission{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{"status": to, "updated_at": time.Now()})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// GenerateCode 生成任务编码 MIS-{year}-{4位}
func (r *MissionRepository) GenerateCode(ctx context.Context, now time.Time) (string, error) {
	return generateCode(ctx, r.db, &entity.Mission{}, "MIS", now)
}
