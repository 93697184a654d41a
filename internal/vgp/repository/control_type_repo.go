package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/bitfantasy/vgp/internal/vgp/entity"
)

// ControlTypeRepository 控制类型仓库
type ControlTypeRepository struct {
	db *gorm.DB
}

func NewControlTypeRepository(db *gorm.DB) *ControlTypeRepository {
	return &ControlTypeRepository{db: db}
}

func (r *ControlTypeRepository) Create(ctx context.Context, ct *entity.ControlType) error {
	return r.db.WithContext(ctx).Create(ct).Error
}

func (r *ControlTypeRepository) Update(ctx context.Context, ct *entity.ControlType) error {
	return r.db.WithContext(ctx).Save(ct).Error
}

func (r *ControlTypeRepository) FindByID(ctx context.Context, id string) (*entity.ControlType, error) {
	var ct entity.ControlType
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&ct).Error; err != nil {
		return nil, notFound(err)
	}
	return &ct, nil
}

// List 查询控制类型, activeOnly 过滤停用项
func (r *ControlTypeRepository) List(ctx context.Context, activeOnly bool) ([]entity.ControlType, error) {
	var items []entity.ControlType
	query := r.db.WithContext(ctx).Model(&entity.ControlType{})
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	err := query.Order("code ASC").Find(&items).Error
	return items, err
}
