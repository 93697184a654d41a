package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/bitfantasy/vgp/internal/vgp/entity"
)

// AssetRepository 设备仓库
type AssetRepository struct {
	db *gorm.DB
}

func NewAssetRepository(db *gorm.DB) *AssetRepository {
	return &AssetRepository{db: db}
}

func (r *AssetRepository) Create(ctx context.Context, asset *entity.Asset) error {
	return r.db.WithContext(ctx).Create(asset).Error
}

func (r *AssetRepository) FindByID(ctx context.Context, id string) (*entity.Asset, error) {
	var asset entity.Asset
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&asset).Error; err != nil {
		return nil, notFound(err)
	}
	return &asset, nil
}

func (r *AssetRepository) List(ctx context.Context, site string) ([]entity.Asset, error) {
	var items []entity.Asset
	query := r.db.WithContext(ctx).Model(&entity.Asset{})
	if site != "" {
		query = query.Where("site = ?", site)
	}
	err := query.Order("code ASC").Find(&items).Error
	return items, err
}

// Delete 删除设备及其计划
func (r *AssetRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("asset_id = ?", id).Delete(&entity.AssetControlSchedule{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&entity.Asset{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
