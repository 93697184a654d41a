package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/bitfantasy/vgp/internal/vgp/entity"
)

// CorrectiveActionRepository 纠正措施仓库
type CorrectiveActionRepository struct {
	db *gorm.DB
}

func NewCorrectiveActionRepository(db *gorm.DB) *CorrectiveActionRepository {
	return &CorrectiveActionRepository{db: db}
}

func (r *CorrectiveActionRepository) Create(ctx context.Context, ca *entity.CorrectiveAction) error {
	return r.db.WithContext(ctx).Create(ca).Error
}

func (r *CorrectiveActionRepository) FindByID(ctx context.Context, id string) (*entity.CorrectiveAction, error) {
	var ca entity.CorrectiveAction
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&ca).Error; err != nil {
		return nil, notFound(err)
	}
	return &ca, nil
}

func (r *CorrectiveActionRepository) ListByRun(ctx context.Context, runID string) ([]entity.CorrectiveAction, error) {
	var items []entity.CorrectiveAction
	err := r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

// SaveTransition persists a status change only if the row is still in from.
func (r *CorrectiveActionRepository) SaveTransition(ctx context.Context, ca *entity.CorrectiveAction, from string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&entity.CorrectiveAction{}).
		Where("id = ? AND status = ?", ca.ID, from).
		Updates(map[string]interface{}{
			"status":       ca.Status,
			"closed_at":    ca.ClosedAt,
			"validated_by": ca.ValidatedBy,
			"updated_at":   time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
