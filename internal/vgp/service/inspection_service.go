package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bitfantasy/vgp/internal/config"
	"github.com/bitfantasy/vgp/internal/metrics"
	"github.com/bitfantasy/vgp/internal/vgp/entity"
	"github.com/bitfantasy/vgp/internal/vgp/repository"
	"github.com/bitfantasy/vgp/internal/vgp/workflow"
)

// InspectionService 检查执行协调: start, draft, submit
type InspectionService struct {
	repos    *repository.Repositories
	schedule *ScheduleService
	clock    workflow.Clock
	locker   RunLocker
	logger   *zap.Logger
	metrics  *metrics.Metrics
	cfg      config.WorkflowConfig
}

func NewInspectionService(repos *repository.Repositories, schedule *ScheduleService, opts Options) *InspectionService {
	opts = opts.withDefaults()
	return &InspectionService{
		repos:    repos,
		schedule: schedule,
		clock:    opts.Clock,
		locker:   opts.Locker,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		cfg:      opts.Workflow,
	}
}

// StartRunRequest 创建执行请求
type StartRunRequest struct {
	TemplateID string  `json:"template_id" binding:"required"`
	AssetID    string  `json:"asset_id" binding:"required"`
	MissionID  *string `json:"mission_id"`
}

// StartRun creates a draft run. A report run started inside a planned
// mission moves the mission to EN_COURS.
func (s *InspectionService) StartRun(ctx context.Context, caller workflow.Caller, req *StartRunRequest) (*entity.InspectionRun, error) {
	if err := workflow.Authorize(caller, workflow.ActionExecuteRun); err != nil {
		return nil, err
	}

	tpl, err := s.repos.Template.FindByID(ctx, req.TemplateID)
	if err != nil {
		return nil, lookup(err, "template", req.TemplateID)
	}
	if _, err := s.repos.Asset.FindByID(ctx, req.AssetID); err != nil {
		return nil, lookup(err, "asset", req.AssetID)
	}
	ct, err := s.repos.ControlType.FindByID(ctx, tpl.ControlTypeID)
	if err != nil {
		return nil, lookup(err, "control type", tpl.ControlTypeID)
	}
	if !ct.Active {
		return nil, workflow.Validation("control type %s is deactivated", ct.Code)
	}
	flow, err := workflow.FlowFor(tpl.Flow)
	if err != nil {
		return nil, err
	}

	var mission *entity.Mission
	if req.MissionID != nil && *req.MissionID != "" {
		if flow.Kind() != entity.FlowReport {
			return nil, workflow.Validation("only report runs belong to a mission")
		}
		mission, err = s.repos.Mission.FindByID(ctx, *req.MissionID)
		if err != nil {
			return nil, lookup(err, "mission", *req.MissionID)
		}
		if mission.Status != entity.MissionStatusPlanned && mission.Status != entity.MissionStatusRunning {
			return nil, workflow.Validation("mission %s is %s", mission.Code, mission.Status)
		}
	}

	now := s.clock.Now()
	run := &entity.InspectionRun{
		ID:            entity.NewID(),
		Flow:          flow.Kind(),
		AssetID:       req.AssetID,
		ControlTypeID: ct.ID,
		TemplateID:    tpl.ID,
		Status:        entity.RunStatusDraft,
		PerformedBy:   caller.UserID,
	}
	if mission != nil {
		run.MissionID = &mission.ID
	}

	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		code, err := tx.Run.GenerateCode(ctx, flow.Kind(), now)
		if err != nil {
			return err
		}
		run.Code = code
		if err := tx.Run.Create(ctx, run); err != nil {
			return err
		}

		if mission != nil && mission.Status == entity.MissionStatusPlanned {
			moved, err := tx.Mission.UpdateStatus(ctx, mission.ID, entity.MissionStatusPlanned, entity.MissionStatusRunning)
			if err != nil {
				return err
			}
			// not moved: a concurrent run already started the mission
			if moved {
				if err := tx.ActivityLog.LogActivity(ctx, repository.Entry{
					EntityType: entity.ActivityEntityMission,
					EntityID:   mission.ID,
					EntityCode: mission.Code,
					Action:     "status_change",
					FromStatus: entity.MissionStatusPlanned,
					ToStatus:   entity.MissionStatusRunning,
					Content:    fmt.Sprintf("run %s started", run.Code),
					OperatorID: caller.UserID,
					Operator:   caller.Name,
				}); err != nil {
					return err
				}
			}
		}

		return tx.ActivityLog.LogActivity(ctx, repository.Entry{
			EntityType: entity.ActivityEntityRun,
			EntityID:   run.ID,
			EntityCode: run.Code,
			Action:     "start",
			ToStatus:   entity.RunStatusDraft,
			OperatorID: caller.UserID,
			Operator:   caller.Name,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("start run: %w", err)
	}

	s.logger.Info("run started",
		zap.String("run_id", run.ID),
		zap.String("code", run.Code),
		zap.String("flow", run.Flow),
		zap.String("asset_id", run.AssetID),
	)
	return run, nil
}

func (s *InspectionService) GetRun(ctx context.Context, id string) (*entity.InspectionRun, error) {
	run, err := s.repos.Run.FindByID(ctx, id)
	if err != nil {
		return nil, lookup(err, "run", id)
	}
	return run, nil
}

// ResultInput one submitted answer
type ResultInput struct {
	ItemID       string           `json:"item_id" binding:"required"`
	Result       string           `json:"result" binding:"required"`
	NumericValue *decimal.Decimal `json:"numeric_value"`
	TextValue    string           `json:"text_value"`
	Comment      string           `json:"comment"`
	Severity     *int             `json:"severity"` // overrides the cascade default
}

func (in ResultInput) toEntity(runID string) entity.ItemResult {
	r := entity.ItemResult{
		ID:        entity.NewID(),
		RunID:     runID,
		ItemID:    in.ItemID,
		Result:    in.Result,
		TextValue: in.TextValue,
		Comment:   in.Comment,
		Severity:  in.Severity,
	}
	if in.NumericValue != nil {
		r.NumericValue = decimal.NewNullDecimal(*in.NumericValue)
	}
	return r
}

// severityErrors lists every override outside 1..5, whatever the answer.
func severityErrors(inputs []ResultInput) []string {
	var details []string
	for _, in := range inputs {
		if in.Severity != nil && !workflow.ValidSeverity(*in.Severity) {
			details = append(details, fmt.Sprintf("severity %d out of range for item %s", *in.Severity, in.ItemID))
		}
	}
	return details
}

func (s *InspectionService) loadDraft(ctx context.Context, runID string) (*entity.InspectionRun, workflow.Flow, error) {
	run, err := s.repos.Run.FindByID(ctx, runID)
	if err != nil {
		return nil, nil, lookup(err, "run", runID)
	}
	if !run.IsDraft() {
		return nil, nil, workflow.Conflict("run %s is already %s", run.Code, run.Status)
	}
	flow, err := workflow.FlowFor(run.Flow)
	if err != nil {
		return nil, nil, err
	}
	return run, flow, nil
}

// RecordResults saves draft answers while the run is BROUILLON. Each answer
// must target a template item and use the flow's vocabulary; completeness is
// only checked on submission.
func (s *InspectionService) RecordResults(ctx context.Context, caller workflow.Caller, runID string, inputs []ResultInput) (*entity.InspectionRun, error) {
	if err := workflow.Authorize(caller, workflow.ActionExecuteRun); err != nil {
		return nil, err
	}
	run, flow, err := s.loadDraft(ctx, runID)
	if err != nil {
		return nil, err
	}
	tpl, err := s.repos.Template.FindByID(ctx, run.TemplateID)
	if err != nil {
		return nil, lookup(err, "template", run.TemplateID)
	}

	known := make(map[string]bool, len(tpl.Items))
	for _, it := range tpl.Items {
		known[it.ID] = true
	}
	var details []string
	for _, in := range inputs {
		if !known[in.ItemID] {
			details = append(details, fmt.Sprintf("unknown item %s", in.ItemID))
		} else if !flow.ValidResult(in.Result) {
			details = append(details, fmt.Sprintf("invalid result %q for item %s", in.Result, in.ItemID))
		}
	}
	details = append(details, severityErrors(inputs)...)
	if len(details) > 0 {
		return nil, workflow.Validation("invalid results").WithDetails(details...)
	}

	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		for _, in := range inputs {
			r := in.toEntity(run.ID)
			if err := tx.Run.UpsertResult(ctx, &r); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("record results: %w", err)
	}
	return s.GetRun(ctx, run.ID)
}

// AmendComment edits the comment of an answered item on a VGP draft.
func (s *InspectionService) AmendComment(ctx context.Context, caller workflow.Caller, runID, itemID, comment string) (*entity.InspectionRun, error) {
	if err := workflow.Authorize(caller, workflow.ActionExecuteRun); err != nil {
		return nil, err
	}
	run, flow, err := s.loadDraft(ctx, runID)
	if err != nil {
		return nil, err
	}
	if flow.Kind() != entity.FlowVGP {
		return nil, workflow.Validation("comments can only be amended on VGP runs")
	}

	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if err := tx.Run.UpdateComment(ctx, run.ID, itemID, comment); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return workflow.Validation("item %s has no recorded result", itemID)
			}
			return err
		}
		return tx.ActivityLog.LogActivity(ctx, repository.Entry{
			EntityType: entity.ActivityEntityRun,
			EntityID:   run.ID,
			EntityCode: run.Code,
			Action:     "amend_comment",
			Content:    comment,
			Metadata:   map[string]interface{}{"item_id": itemID},
			OperatorID: caller.UserID,
			Operator:   caller.Name,
		})
	})
	if err != nil {
		return nil, wrapInfra(err, "amend comment")
	}
	return s.GetRun(ctx, run.ID)
}

// AddObservationRequest 手动观察项
type AddObservationRequest struct {
	ItemID      *string `json:"item_id"`
	Title       string  `json:"title" binding:"required"`
	Description string  `json:"description"`
	Severity    *int    `json:"severity"`
}

// AddObservation records a manual observation on a VGP draft.
func (s *InspectionService) AddObservation(ctx context.Context, caller workflow.Caller, runID string, req *AddObservationRequest) (*entity.NonConformity, error) {
	if err := workflow.Authorize(caller, workflow.ActionExecuteRun); err != nil {
		return nil, err
	}
	run, flow, err := s.loadDraft(ctx, runID)
	if err != nil {
		return nil, err
	}
	if flow.Kind() != entity.FlowVGP {
		return nil, workflow.Validation("observations can only be added to VGP runs")
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, workflow.Validation("title is required")
	}
	severity := s.cfg.DefaultSeverity
	if req.Severity != nil {
		if !workflow.ValidSeverity(*req.Severity) {
			return nil, workflow.Validation("severity %d out of range", *req.Severity)
		}
		severity = *req.Severity
	}
	if req.ItemID != nil && *req.ItemID != "" {
		tpl, err := s.repos.Template.FindByID(ctx, run.TemplateID)
		if err != nil {
			return nil, lookup(err, "template", run.TemplateID)
		}
		found := false
		for _, it := range tpl.Items {
			if it.ID == *req.ItemID {
				found = true
				break
			}
		}
		if !found {
			return nil, workflow.Validation("unknown item %s", *req.ItemID)
		}
	}

	nc := &entity.NonConformity{
		ID:          entity.NewID(),
		RunID:       run.ID,
		AssetID:     run.AssetID,
		ItemID:      req.ItemID,
		Flow:        entity.FlowVGP,
		Origin:      entity.OriginManual,
		Title:       req.Title,
		Description: req.Description,
		Severity:    severity,
		Status:      entity.StatusOpen,
		CreatedBy:   caller.UserID,
	}
	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if err := tx.NonConformity.Create(ctx, nc); err != nil {
			return err
		}
		return tx.ActivityLog.LogActivity(ctx, repository.Entry{
			EntityType: entity.ActivityEntityNonConformity,
			EntityID:   nc.ID,
			Action:     "observe",
			ToStatus:   entity.StatusOpen,
			Content:    nc.Title,
			Metadata:   map[string]interface{}{"run_id": run.ID, "severity": severity},
			OperatorID: caller.UserID,
			Operator:   caller.Name,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("add observation: %w", err)
	}
	s.metrics.NonConformitiesCreated(entity.FlowVGP, entity.OriginManual, 1)
	return nc, nil
}

// SubmitRequest 提交检查
type SubmitRequest struct {
	Results    []ResultInput `json:"results"`
	SignedBy   string        `json:"signed_by"`  // attestation
	Conclusion string        `json:"conclusion"` // VGP flow only
}

// SubmitResult 提交结果
type SubmitResult struct {
	RunID            string     `json:"run_id"`
	Status           string     `json:"status"`
	Conclusion       string     `json:"conclusion"`
	CreatedNCIDs     []string   `json:"created_nc_ids"`
	CreatedActionIDs []string   `json:"created_action_ids"`
	NextDueAt        *time.Time `json:"next_due_at"`
	OpenObservations int64      `json:"open_observations"`
	Warnings         []string   `json:"warnings,omitempty"`
}

// SubmitInspection completes a draft run in one atomic step: completeness,
// conclusion, cascade, schedule recompute and the status flip either all
// commit or none do. Concurrent or repeated submissions fail with CONFLICT.
func (s *InspectionService) SubmitInspection(ctx context.Context, caller workflow.Caller, runID string, req *SubmitRequest) (res *SubmitResult, err error) {
	defer func() {
		if err != nil {
			s.metrics.Failed("submit", string(workflow.CodeOf(err)))
		}
	}()

	if err := workflow.Authorize(caller, workflow.ActionExecuteRun); err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, runID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	run, flow, err := s.loadDraft(ctx, runID)
	if err != nil {
		return nil, err
	}
	if flow.RequiresValidation() {
		if err := workflow.Authorize(caller, workflow.ActionValidateRun); err != nil {
			return nil, err
		}
	}
	if strings.TrimSpace(req.SignedBy) == "" {
		return nil, workflow.Validation("attestation signature is required")
	}
	if details := severityErrors(req.Results); len(details) > 0 {
		return nil, workflow.Validation("invalid severity").WithDetails(details...)
	}

	tpl, err := s.repos.Template.FindByID(ctx, run.TemplateID)
	if err != nil {
		return nil, lookup(err, "template", run.TemplateID)
	}
	ct, err := s.repos.ControlType.FindByID(ctx, run.ControlTypeID)
	if err != nil {
		return nil, lookup(err, "control type", run.ControlTypeID)
	}

	results, fresh, severities := mergeResults(run, req.Results)
	if err := workflow.CheckCompleteness(flow, tpl.Items, results); err != nil {
		return nil, err
	}
	conclusion, err := flow.Conclusion(results, req.Conclusion)
	if err != nil {
		return nil, err
	}

	completedAt := s.clock.Now()
	cascade, err := workflow.BuildCascade(flow, run, tpl, results, severities, completedAt, cascadeOptions(s.cfg))
	if err != nil {
		return nil, err
	}

	from := run.Status
	run.Status = flow.SubmittedStatus()
	run.Conclusion = &conclusion
	run.SignedBy = strings.TrimSpace(req.SignedBy)
	run.SignedAt = &completedAt
	run.CompletedAt = &completedAt

	res = &SubmitResult{
		RunID:            run.ID,
		Status:           run.Status,
		Conclusion:       conclusion,
		CreatedNCIDs:     []string{},
		CreatedActionIDs: []string{},
	}

	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		ok, err := tx.Run.MarkSubmitted(ctx, run)
		if err != nil {
			return err
		}
		if !ok {
			return workflow.Conflict("run %s was submitted concurrently", run.Code)
		}

		for i := range fresh {
			if err := tx.Run.UpsertResult(ctx, &fresh[i]); err != nil {
				return err
			}
		}
		for i := range cascade.NonConformities {
			nc := &cascade.NonConformities[i]
			if err := tx.NonConformity.Create(ctx, nc); err != nil {
				return err
			}
			res.CreatedNCIDs = append(res.CreatedNCIDs, nc.ID)
		}
		for i := range cascade.CorrectiveActions {
			ca := &cascade.CorrectiveActions[i]
			if err := tx.CorrectiveAction.Create(ctx, ca); err != nil {
				return err
			}
			res.CreatedActionIDs = append(res.CreatedActionIDs, ca.ID)
		}

		sched, err := s.schedule.recompute(ctx, tx, run, ct, completedAt)
		if err != nil {
			return err
		}
		res.NextDueAt = sched.NextDueAt

		if flow.Kind() == entity.FlowVGP {
			open, err := tx.NonConformity.CountOpenByRun(ctx, run.ID)
			if err != nil {
				return err
			}
			res.OpenObservations = open
		}

		return tx.ActivityLog.LogActivity(ctx, repository.Entry{
			EntityType: entity.ActivityEntityRun,
			EntityID:   run.ID,
			EntityCode: run.Code,
			Action:     "submit",
			FromStatus: from,
			ToStatus:   run.Status,
			Content:    fmt.Sprintf("conclusion %s", conclusion),
			Metadata: map[string]interface{}{
				"signed_by":          run.SignedBy,
				"created_nc_ids":     res.CreatedNCIDs,
				"created_action_ids": res.CreatedActionIDs,
				"open_observations":  res.OpenObservations,
			},
			OperatorID: caller.UserID,
			Operator:   caller.Name,
		})
	})
	if err != nil {
		if workflow.CodeOf(err) != "" {
			return nil, err
		}
		s.logger.Error("submission rolled back", zap.String("run_id", run.ID), zap.Error(err))
		return nil, fmt.Errorf("submit run %s: %w", run.Code, err)
	}

	if res.OpenObservations > 0 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("%d observation(s) still open at validation", res.OpenObservations))
	}

	s.metrics.Submitted(run.Flow, conclusion)
	s.metrics.NonConformitiesCreated(run.Flow, entity.OriginAuto, len(res.CreatedNCIDs))
	s.metrics.ActionsCreated(len(res.CreatedActionIDs))
	s.logger.Info("run submitted",
		zap.String("run_id", run.ID),
		zap.String("code", run.Code),
		zap.String("conclusion", conclusion),
		zap.Int("nonconformities", len(res.CreatedNCIDs)),
		zap.Int("actions", len(res.CreatedActionIDs)),
		zap.Int64("open_observations", res.OpenObservations),
	)
	return res, nil
}

// mergeResults overlays submitted answers on the recorded draft answers.
// Submitted entries win per item, severity override included, and are the
// only ones written back; duplicates are kept so the completeness check
// reports them.
func mergeResults(run *entity.InspectionRun, inputs []ResultInput) (all, fresh []entity.ItemResult, severities map[string]int) {
	severities = make(map[string]int)
	submitted := make(map[string]bool, len(inputs))

	for _, in := range inputs {
		fresh = append(fresh, in.toEntity(run.ID))
		submitted[in.ItemID] = true
		if in.Severity != nil {
			severities[in.ItemID] = *in.Severity
		}
	}
	all = append(all, fresh...)
	for _, draft := range run.Results {
		if submitted[draft.ItemID] {
			continue
		}
		all = append(all, draft)
		if draft.Severity != nil {
			severities[draft.ItemID] = *draft.Severity
		}
	}
	return all, fresh, severities
}
