package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bitfantasy/vgp/internal/vgp/entity"
)

// NonConformityRepository 不符合项仓库
type NonConformityRepository struct {
	db *gorm.DB
}

func NewNonConformityRepository(db *gorm.DB) *NonConformityRepository {
	return &NonConformityRepository{db: db}
}

func (r *NonConformityRepository) Create(ctx context.Context, nc *entity.NonConformity) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(nc).Error
}

// FindByID 根据ID查找, 预加载纠正措施
func (r *NonConformityRepository) FindByID(ctx context.Context, id string) (*entity.NonConformity, error) {
	var nc entity.NonConformity
	err := r.db.WithContext(ctx).
		Preload("Action").
		Where("id = ?", id).
		First(&nc).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &nc, nil
}

// FindAll 查询不符合项列表
func (r *NonConformityRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.NonConformity, int64, error) {
	var items []entity.NonConformity
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.NonConformity{})
	if runID := filters["run_id"]; runID != "" {
		query = query.Where("run_id = ?", runID)
	}
	if assetID := filters["asset_id"]; assetID != "" {
		query = query.Where("asset_id = ?", assetID)
	}
	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if origin := filters["origin"]; origin != "" {
		query = query.Where("origin = ?", origin)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Preload("Action").
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// CountOpenByRun 统计执行中未关闭的不符合项
func (r *NonConformityRepository) CountOpenByRun(ctx context.Context, runID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&entity.NonConformity{}).
		Where("run_id = ? AND status <> ?", runID, entity.StatusClosed).
		Count(&n).Error
	return n, err
}

// SaveTransition persists a status change only if the row is still in from.
func (r *NonConformityRepository) SaveTransition(ctx context.Context, nc *entity.NonConformity, from string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&entity.NonConformity{}).
		Where("id = ? AND status = ?", nc.ID, from).
		Updates(map[string]interface{}{
			"status":     nc.Status,
			"closed_at":  nc.ClosedAt,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
