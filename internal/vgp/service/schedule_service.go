package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/bitfantasy/vgp/internal/metrics"
	"github.com/bitfantasy/vgp/internal/vgp/entity"
	"github.com/bitfantasy/vgp/internal/vgp/repository"
	"github.com/bitfantasy/vgp/internal/vgp/workflow"
)

// ScheduleService 设备检查计划
type ScheduleService struct {
	repos       *repository.Repositories
	clock       workflow.Clock
	logger      *zap.Logger
	metrics     *metrics.Metrics
	dueSoonDays int
}

func NewScheduleService(repos *repository.Repositories, opts Options) *ScheduleService {
	opts = opts.withDefaults()
	return &ScheduleService{
		repos:       repos,
		clock:       opts.Clock,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		dueSoonDays: opts.Workflow.DueSoonDays,
	}
}

// recompute advances the (asset, control type) schedule after a completion.
// It only runs inside the submission transaction.
func (s *ScheduleService) recompute(ctx context.Context, tx *repository.Repositories, run *entity.InspectionRun, ct *entity.ControlType, completedAt time.Time) (*entity.AssetControlSchedule, error) {
	sched, err := tx.Schedule.FindByAssetControl(ctx, run.AssetID, ct.ID)
	if errors.Is(err, repository.ErrNotFound) {
		sched = &entity.AssetControlSchedule{
			ID:            entity.NewID(),
			AssetID:       run.AssetID,
			ControlTypeID: ct.ID,
		}
	} else if err != nil {
		return nil, fmt.Errorf("load schedule: %w", err)
	}

	var prev *time.Time
	if sched.NextDueAt != nil {
		p := *sched.NextDueAt
		prev = &p
	}

	workflow.RecomputeAfterCompletion(sched, completedAt, ct.PeriodicityDays)
	if err := tx.Schedule.Save(ctx, sched); err != nil {
		return nil, fmt.Errorf("save schedule: %w", err)
	}

	meta := map[string]interface{}{
		"run_id":           run.ID,
		"control_type_id":  ct.ID,
		"periodicity_days": ct.PeriodicityDays,
		"completed_at":     completedAt,
	}
	if prev != nil {
		meta["previous_next_due_at"] = *prev
	}
	if sched.NextDueAt != nil {
		meta["next_due_at"] = *sched.NextDueAt
	}
	if err := tx.ActivityLog.LogActivity(ctx, repository.Entry{
		EntityType: entity.ActivityEntitySchedule,
		EntityID:   sched.ID,
		Action:     "reschedule",
		Content:    fmt.Sprintf("control %s completed by run %s", ct.Code, run.Code),
		Metadata:   meta,
		OperatorID: run.PerformedBy,
	}); err != nil {
		return nil, err
	}
	return sched, nil
}

// SeedScheduleRequest 初始化计划请求
type SeedScheduleRequest struct {
	ControlTypeID string     `json:"control_type_id" binding:"required"`
	StartDate     *time.Time `json:"start_date"`
	NextDueAt     *time.Time `json:"next_due_at"`
}

// SeedSchedule sets the first due date of a pair before any completion.
// Without an explicit next_due_at the control is due on its start date.
func (s *ScheduleService) SeedSchedule(ctx context.Context, caller workflow.Caller, assetID string, req *SeedScheduleRequest) (*entity.AssetControlSchedule, error) {
	if err := workflow.Authorize(caller, workflow.ActionManageCatalog); err != nil {
		return nil, err
	}
	if req.StartDate == nil && req.NextDueAt == nil {
		return nil, workflow.Validation("start_date or next_due_at is required")
	}
	if _, err := s.repos.Asset.FindByID(ctx, assetID); err != nil {
		return nil, lookup(err, "asset", assetID)
	}
	ct, err := s.repos.ControlType.FindByID(ctx, req.ControlTypeID)
	if err != nil {
		return nil, lookup(err, "control type", req.ControlTypeID)
	}
	if !ct.Active {
		return nil, workflow.Validation("control type %s is deactivated", ct.Code)
	}

	var sched *entity.AssetControlSchedule
	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		existing, err := tx.Schedule.FindByAssetControl(ctx, assetID, ct.ID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			existing = &entity.AssetControlSchedule{ID: entity.NewID(), AssetID: assetID, ControlTypeID: ct.ID}
		case err != nil:
			return err
		}

		if req.StartDate != nil {
			start := req.StartDate.UTC()
			existing.StartDate = &start
		}
		next := req.NextDueAt
		if next == nil {
			next = existing.StartDate
		}
		due := next.UTC()
		existing.NextDueAt = &due

		if err := tx.Schedule.Save(ctx, existing); err != nil {
			return err
		}
		sched = existing
		return tx.ActivityLog.LogActivity(ctx, repository.Entry{
			EntityType: entity.ActivityEntitySchedule,
			EntityID:   existing.ID,
			Action:     "seed",
			Content:    fmt.Sprintf("schedule seeded for control %s", ct.Code),
			Metadata:   map[string]interface{}{"next_due_at": due},
			OperatorID: caller.UserID,
			Operator:   caller.Name,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("seed schedule: %w", err)
	}
	return sched, nil
}

func (s *ScheduleService) ListByAsset(ctx context.Context, assetID string) ([]entity.AssetControlSchedule, error) {
	return s.repos.Schedule.FindByAsset(ctx, assetID)
}

// DueItem one row of the due list; flags are derived at read time.
type DueItem struct {
	ScheduleID    string     `json:"schedule_id"`
	AssetID       string     `json:"asset_id"`
	AssetCode     string     `json:"asset_code"`
	AssetName     string     `json:"asset_name"`
	Site          string     `json:"site"`
	ControlTypeID string     `json:"control_type_id"`
	ControlCode   string     `json:"control_code"`
	ControlLabel  string     `json:"control_label"`
	LastDoneAt    *time.Time `json:"last_done_at"`
	NextDueAt     time.Time  `json:"next_due_at"`
	State         string     `json:"state"`
	IsOverdue     bool       `json:"is_overdue"`
	IsDueSoon     bool       `json:"is_due_soon"`
	DaysLeft      int        `json:"days_left"`
}

// GetOverdueAndDueSoon lists controls overdue or due within windowDays.
// windowDays <= 0 uses the configured default. Pure read.
func (s *ScheduleService) GetOverdueAndDueSoon(ctx context.Context, windowDays int) ([]DueItem, error) {
	if windowDays <= 0 {
		windowDays = s.dueSoonDays
	}
	now := s.clock.Now()

	rows, err := s.repos.Schedule.FindDue(ctx, now.AddDate(0, 0, windowDays))
	if err != nil {
		return nil, fmt.Errorf("load due schedules: %w", err)
	}

	items := make([]DueItem, 0, len(rows))
	overdue := 0
	for _, row := range rows {
		if row.ControlType != nil && !row.ControlType.Active {
			continue
		}
		state := workflow.DueState(row.NextDueAt, now, windowDays)
		if state != workflow.DueStateOverdue && state != workflow.DueStateDueSoon {
			continue
		}
		item := DueItem{
			ScheduleID:    row.ID,
			AssetID:       row.AssetID,
			ControlTypeID: row.ControlTypeID,
			LastDoneAt:    row.LastDoneAt,
			NextDueAt:     *row.NextDueAt,
			State:         state,
			IsOverdue:     state == workflow.DueStateOverdue,
			IsDueSoon:     state == workflow.DueStateDueSoon,
			DaysLeft:      int(row.NextDueAt.Sub(now).Hours() / 24),
		}
		if row.Asset != nil {
			item.AssetCode = row.Asset.Code
			item.AssetName = row.Asset.Name
			item.Site = row.Asset.Site
		}
		if row.ControlType != nil {
			item.ControlCode = row.ControlType.Code
			item.ControlLabel = row.ControlType.Label
		}
		if item.IsOverdue {
			overdue++
		}
		items = append(items, item)
	}
	s.metrics.SetOverdue(overdue)
	return items, nil
}

var dueExportHeaders = []string{"Code équipement", "Équipement", "Site", "Contrôle", "Dernier contrôle", "Échéance", "État", "Jours restants"}

// ExportDue writes the due list as an xlsx workbook.
func (s *ScheduleService) ExportDue(ctx context.Context, windowDays int, w io.Writer) error {
	items, err := s.GetOverdueAndDueSoon(ctx, windowDays)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()
	sheet := "Echeances"
	f.SetSheetName("Sheet1", sheet)

	boldStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	overdueStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "#C00000"},
	})

	for i, h := range dueExportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, boldStyle)
	}

	for i, it := range items {
		row := i + 2
		lastDone := ""
		if it.LastDoneAt != nil {
			lastDone = it.LastDoneAt.Format("2006-01-02")
		}
		values := []interface{}{
			it.AssetCode,
			it.AssetName,
			it.Site,
			it.ControlLabel,
			lastDone,
			it.NextDueAt.Format("2006-01-02"),
			it.State,
			it.DaysLeft,
		}
		for j, v := range values {
			col, _ := excelize.ColumnNumberToName(j + 1)
			f.SetCellValue(sheet, fmt.Sprintf("%s%d", col, row), v)
		}
		if it.IsOverdue {
			cell := fmt.Sprintf("G%d", row)
			f.SetCellStyle(sheet, cell, cell, overdueStyle)
		}
	}

	widths := []float64{15, 30, 20, 30, 12, 12, 12, 10}
	for i, wd := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, wd)
	}

	return f.Write(w)
}
