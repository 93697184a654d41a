package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/bitfantasy/vgp/internal/vgp/entity"
)

// TemplateRepository 检查表模板仓库
type TemplateRepository struct {
	db *gorm.DB
}

func NewTemplateRepository(db *gorm.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// Create 创建模板及其检查项
func (r *TemplateRepository) Create(ctx context.Context, tpl *entity.ChecklistTemplate) error {
	return r.db.WithContext(ctx).Create(tpl).Error
}

func (r *TemplateRepository) FindByID(ctx context.Context, id string) (*entity.ChecklistTemplate, error) {
	var tpl entity.ChecklistTemplate
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Where("id = ?", id).
		First(&tpl).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &tpl, nil
}

func (r *TemplateRepository) ListByControlType(ctx context.Context, controlTypeID string) ([]entity.ChecklistTemplate, error) {
	var items []entity.ChecklistTemplate
	err := r.db.WithContext(ctx).
		Where("control_type_id = ?", controlTypeID).
		Order("code ASC").
		Find(&items).Error
	return items, err
}
