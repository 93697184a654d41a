package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bitfantasy/vgp/internal/vgp/entity"
	"github.com/bitfantasy/vgp/internal/vgp/repository"
	"github.com/bitfantasy/vgp/internal/vgp/workflow"
)

// MissionService 任务
type MissionService struct {
	repos  *repository.Repositories
	clock  workflow.Clock
	logger *zap.Logger
}

func NewMissionService(repos *repository.Repositories, opts Options) *MissionService {
	opts = opts.withDefaults()
	return &MissionService{repos: repos, clock: opts.Clock, logger: opts.Logger}
}

// CreateMissionRequest 创建任务请求
type CreateMissionRequest struct {
	Title      string     `json:"title" binding:"required"`
	AssignedTo string     `json:"assigned_to"`
	PlannedAt  *time.Time `json:"planned_at"`
}

// CreateMission creates a mission in A_PLANIFIER, or PLANIFIEE when both a
// technician and a date are already known.
func (s *MissionService) CreateMission(ctx context.Context, caller workflow.Caller, req *CreateMissionRequest) (*entity.Mission, error) {
	if err := workflow.Authorize(caller, workflow.ActionManageMission); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, workflow.Validation("title is required")
	}

	m := &entity.Mission{
		ID:         entity.NewID(),
		Title:      req.Title,
		AssignedTo: req.AssignedTo,
		PlannedAt:  req.PlannedAt,
		Status:     entity.MissionStatusToPlan,
		CreatedBy:  caller.UserID,
	}
	if m.AssignedTo != "" && m.PlannedAt != nil {
		m.Status = entity.MissionStatusPlanned
	}

	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		code, err := tx.Mission.GenerateCode(ctx, s.clock.Now())
		if err != nil {
			return err
		}
		m.Code = code
		if err := tx.Mission.Create(ctx, m); err != nil {
			return err
		}
		return tx.ActivityLog.LogActivity(ctx, repository.Entry{
			EntityType: entity.ActivityEntityMission,
			EntityID:   m.ID,
			EntityCode: m.Code,
			Action:     "create",
			ToStatus:   m.Status,
			Content:    m.Title,
			OperatorID: caller.UserID,
			Operator:   caller.Name,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("create mission: %w", err)
	}
	return m, nil
}

// MissionDetail mission with its runs
type MissionDetail struct {
	*entity.Mission
	Runs []entity.InspectionRun `json:"runs"`
}

func (s *MissionService) GetMission(ctx context.Context, id string) (*MissionDetail, error) {
	m, err := s.repos.Mission.FindByID(ctx, id)
	if err != nil {
		return nil, lookup(err, "mission", id)
	}
	runs, err := s.repos.Run.ListByMission(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list mission runs: %w", err)
	}
	return &MissionDetail{Mission: m, Runs: runs}, nil
}

// TransitionMission moves the mission container. TERMINEE requires every run
// of the mission to be submitted.
func (s *MissionService) TransitionMission(ctx context.Context, caller workflow.Caller, id, target string) (*entity.Mission, error) {
	if err := workflow.Authorize(caller, workflow.ActionManageMission); err != nil {
		return nil, err
	}
	m, err := s.repos.Mission.FindByID(ctx, id)
	if err != nil {
		return nil, lookup(err, "mission", id)
	}
	if err := workflow.CheckMissionTransition(m.Status, target); err != nil {
		return nil, err
	}

	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if target == entity.MissionStatusDone {
			drafts, err := tx.Run.CountDraftsByMission(ctx, m.ID)
			if err != nil {
				return err
			}
			if drafts > 0 {
				return workflow.Validation("mission %s still has %d unsubmitted run(s)", m.Code, drafts)
			}
		}
		ok, err := tx.Mission.UpdateStatus(ctx, m.ID, m.Status, target)
		if err != nil {
			return err
		}
		if !ok {
			return workflow.Conflict("mission %s changed concurrently", m.Code)
		}
		return tx.ActivityLog.LogActivity(ctx, repository.Entry{
			EntityType: entity.ActivityEntityMission,
			EntityID:   m.ID,
			EntityCode: m.Code,
			Action:     "status_change",
			FromStatus: m.Status,
			ToStatus:   target,
			OperatorID: caller.UserID,
			Operator:   caller.Name,
		})
	})
	if err != nil {
		return nil, wrapInfra(err, "transition mission")
	}

	s.logger.Info("mission transition", zap.String("mission_id", m.ID), zap.String("from", m.Status), zap.String("to", target))
	m.Status = target
	return m, nil
}
