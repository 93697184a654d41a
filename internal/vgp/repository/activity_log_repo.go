package repository

import (
	"context"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/bitfantasy/vgp/internal/vgp/entity"
)

// ActivityLogRepository 操作日志仓库
type ActivityLogRepository struct {
	db *gorm.DB
}

func NewActivityLogRepository(db *gorm.DB) *ActivityLogRepository {
	return &ActivityLogRepository{db: db}
}

// Create 创建操作日志
func (r *ActivityLogRepository) Create(ctx context.Context, log *entity.ActivityLog) error {
	if log.ID == "" {
		log.ID = entity.NewID()
	}
	return r.db.WithContext(ctx).Create(log).Error
}

// FindByEntity 查询某实体的操作日志
func (r *ActivityLogRepository) FindByEntity(ctx context.Context, entityType, entityID string, page, pageSize int) ([]entity.ActivityLog, int64, error) {
	var items []entity.ActivityLog
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.ActivityLog{})
	if entityType != "" {
		query = query.Where("entity_type = ?", entityType)
	}
	if entityID != "" {
		query = query.Where("entity_id = ?", entityID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// Entry fields of one activity log line
type Entry struct {
	EntityType string
	EntityID   string
	EntityCode string
	Action     string
	FromStatus string
	ToStatus   string
	Content    string
	Metadata   map[string]interface{}
	OperatorID string
	Operator   string
}

// LogActivity 记录操作日志. Called inside the transaction of the change, so
// the error is returned and aborts the change.
func (r *ActivityLogRepository) LogActivity(ctx context.Context, e Entry) error {
	return r.Create(ctx, &entity.ActivityLog{
		EntityType:   e.EntityType,
		EntityID:     e.EntityID,
		EntityCode:   e.EntityCode,
		Action:       e.Action,
		FromStatus:   e.FromStatus,
		ToStatus:     e.ToStatus,
		Content:      e.Content,
		Metadata:     datatypes.JSONMap(e.Metadata),
		OperatorID:   e.OperatorID,
		OperatorName: e.Operator,
	})
}
