package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bitfantasy/vgp/internal/vgp/entity"
)

// RunRepository 检查执行仓库
type RunRepository struct {
	db *gorm.DB
}

func NewRunRepository(db *gorm.DB) *RunRepository {
	return &RunRepository{db: db}
}

func (r *RunRepository) Create(ctx context.Context, run *entity.InspectionRun) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(run).Error
}

// FindByID 根据ID查找, 预加载结果
func (r *RunRepository) FindByID(ctx context.Context, id string) (*entity.InspectionRun, error) {
	var run entity.InspectionRun
	err := r.db.WithContext(ctx).
		Preload("Results").
		Where("id = ?", id).
		First(&run).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &run, nil
}

func (r *RunRepository) ListByMission(ctx context.Context, missionID string) ([]entity.InspectionRun, error) {
	var items []entity.InspectionRun
	err := r.db.WithContext(ctx).
		Where("mission_id = ?", missionID).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

// UpsertResult 保存草稿结果, (run_id, item_id) 唯一
func (r *RunRepository) UpsertResult(ctx context.Context, result *entity.ItemResult) error {
	if result.ID == "" {
		result.ID = entity.NewID()
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "run_id"}, {Name: "item_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"result", "numeric_value", "text_value", "comment", "severity", "updated_at"}),
	}).Create(result).Error
}

// UpdateComment amends the comment of an already recorded result.
func (r *RunRepository) UpdateComment(ctx context.Context, runID, itemID, comment string) error {
	res := r.db.WithContext(ctx).
		Model(&entity.ItemResult{}).
		Where("run_id = ? AND item_id = ?", runID, itemID).
		Update("comment", comment)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkSubmitted flips a draft run to its submitted status. It reports false
// when the run was no longer a draft, so two submissions cannot both win.
func (r *RunRepository) MarkSubmitted(ctx context.Context, run *entity.InspectionRun) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&entity.InspectionRun{}).
		Where("id = ? AND status = ?", run.ID, entity.RunStatusDraft).
		Updates(map[string]interface{}{
			"status":       run.Status,
			"conclusion":   run.Conclusion,
			"signed_by":    run.SignedBy,
			"signed_at":    run.SignedAt,
			"completed_at": run.CompletedAt,
			"updated_at":   time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// CountDraftsByMission 统计任务中未提交的执行
func (r *RunRepository) CountDraftsByMission(ctx context.Context, missionID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&entity.InspectionRun{}).
		Where("mission_id = ? AND status = ?", missionID, entity.RunStatusDraft).
		Count(&n).Error
	return n, err
}

// GenerateCode 生成执行编码 RPT-{year}-{4位} / VGP-{year}-{4位}
func (r *RunRepository) GenerateCode(ctx context.Context, flow string, now time.Time) (string, error) {
	prefix := "RPT"
	if flow == entity.FlowVGP {
		prefix = "VGP"
	}
	return generateCode(ctx, r.db, &entity.InspectionRun{}, prefix, now)
}

// generateCode takes the highest sequence of the year. Longer codes sort
// first so -10000 outranks -9999.
func generateCode(ctx context.Context, db *gorm.DB, model interface{}, prefix string, now time.Time) (string, error) {
	year := now.Format("2006")
	like := fmt.Sprintf("%s-%s-", prefix, year)

	var codes []string
	err := db.WithContext(ctx).
		Model(model).
		Where("code LIKE ?", like+"%").
		Order("LENGTH(code) DESC").
		Order("code DESC").
		Limit(1).
		Pluck("code", &codes).Error
	if err != nil {
		return "", err
	}

	var seq int
	if len(codes) > 0 {
		seq, _ = strconv.Atoi(strings.TrimPrefix(codes[0], like))
	}
	seq++
	return fmt.Sprintf("%s%04d", like, seq), nil
}
