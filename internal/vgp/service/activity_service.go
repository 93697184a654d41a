package service

import (
	"context"

	"github.com/bitfantasy/vgp/internal/vgp/entity"
	"github.com/bitfantasy/vgp/internal/vgp/repository"
)

// ActivityService 操作日志查询
type ActivityService struct {
	repo *repository.ActivityLogRepository
}

func NewActivityService(repos *repository.Repositories) *ActivityService {
	return &ActivityService{repo: repos.ActivityLog}
}

func (s *ActivityService) List(ctx context.Context, entityType, entityID string, page, pageSize int) ([]entity.ActivityLog, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.repo.FindByEntity(ctx, entityType, entityID, page, pageSize)
}
