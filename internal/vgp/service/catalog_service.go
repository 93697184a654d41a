package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/bitfantasy/vgp/internal/vgp/entity"
	"github.com/bitfantasy/vgp/internal/vgp/repository"
	"github.com/bitfantasy/vgp/internal/vgp/workflow"
)

// CatalogService 控制类型/设备/模板
type CatalogService struct {
	repos  *repository.Repositories
	logger *zap.Logger
}

func NewCatalogService(repos *repository.Repositories, opts Options) *CatalogService {
	return &CatalogService{repos: repos, logger: opts.Logger}
}

// CreateControlTypeRequest 创建控制类型请求
type CreateControlTypeRequest struct {
	Code            string `json:"code" binding:"required"`
	Label           string `json:"label" binding:"required"`
	PeriodicityDays int    `json:"periodicity_days"`
}

func (s *CatalogService) CreateControlType(ctx context.Context, caller workflow.Caller, req *CreateControlTypeRequest) (*entity.ControlType, error) {
	if err := workflow.Authorize(caller, workflow.ActionManageCatalog); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Code) == "" || strings.TrimSpace(req.Label) == "" {
		return nil, workflow.Validation("code and label are required")
	}
	if req.PeriodicityDays < 0 {
		return nil, workflow.Validation("periodicity_days must be >= 0")
	}

	ct := &entity.ControlType{
		ID:              entity.NewID(),
		Code:            strings.TrimSpace(req.Code),
		Label:           req.Label,
		PeriodicityDays: req.PeriodicityDays,
		Active:          true,
	}
	if err := s.repos.ControlType.Create(ctx, ct); err != nil {
		return nil, fmt.Errorf("create control type: %w", err)
	}
	return ct, nil
}

// UpdateControlTypeRequest 更新控制类型请求
type UpdateControlTypeRequest struct {
	Label           *string `json:"label"`
	PeriodicityDays *int    `json:"periodicity_days"`
}

// UpdateControlType edits label and periodicity. Existing schedules keep their
// next_due_at until the next completion.
func (s *CatalogService) UpdateControlType(ctx context.Context, caller workflow.Caller, id string, req *UpdateControlTypeRequest) (*entity.ControlType, error) {
	if err := workflow.Authorize(caller, workflow.ActionManageCatalog); err != nil {
		return nil, err
	}
	ct, err := s.repos.ControlType.FindByID(ctx, id)
	if err != nil {
		return nil, lookup(err, "control type", id)
	}

	if req.Label != nil {
		if strings.TrimSpace(*req.Label) == "" {
			return nil, workflow.Validation("label cannot be empty")
		}
		ct.Label = *req.Label
	}
	if req.PeriodicityDays != nil {
		if *req.PeriodicityDays < 0 {
			return nil, workflow.Validation("periodicity_days must be >= 0")
		}
		ct.PeriodicityDays = *req.PeriodicityDays
	}

	if err := s.repos.ControlType.Update(ctx, ct); err != nil {
		return nil, fmt.Errorf("update control type: %w", err)
	}
	return ct, nil
}

// DeactivateControlType 停用; control types are never deleted.
func (s *CatalogService) DeactivateControlType(ctx context.Context, caller workflow.Caller, id string) (*entity.ControlType, error) {
	if err := workflow.Authorize(caller, workflow.ActionManageCatalog); err != nil {
		return nil, err
	}
	ct, err := s.repos.ControlType.FindByID(ctx, id)
	if err != nil {
		return nil, lookup(err, "control type", id)
	}
	ct.Active = false
	if err := s.repos.ControlType.Update(ctx, ct); err != nil {
		return nil, fmt.Errorf("deactivate control type: %w", err)
	}
	s.logger.Info("control type deactivated", zap.String("control_type_id", id), zap.String("by", caller.UserID))
	return ct, nil
}

func (s *CatalogService) ListControlTypes(ctx context.Context, activeOnly bool) ([]entity.ControlType, error) {
	return s.repos.ControlType.List(ctx, activeOnly)
}

// CreateAssetRequest 创建设备请求
type CreateAssetRequest struct {
	Code string `json:"code" binding:"required"`
	Name string `json:"name" binding:"required"`
	Site string `json:"site"`
}

func (s *CatalogService) CreateAsset(ctx context.Context, caller workflow.Caller, req *CreateAssetRequest) (*entity.Asset, error) {
	if err := workflow.Authorize(caller, workflow.ActionManageCatalog); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Code) == "" || strings.TrimSpace(req.Name) == "" {
		return nil, workflow.Validation("code and name are required")
	}
	asset := &entity.Asset{
		ID:   entity.NewID(),
		Code: strings.TrimSpace(req.Code),
		Name: req.Name,
		Site: req.Site,
	}
	if err := s.repos.Asset.Create(ctx, asset); err != nil {
		return nil, fmt.Errorf("create asset: %w", err)
	}
	return asset, nil
}

func (s *CatalogService) GetAsset(ctx context.Context, id string) (*entity.Asset, error) {
	asset, err := s.repos.Asset.FindByID(ctx, id)
	if err != nil {
		return nil, lookup(err, "asset", id)
	}
	return asset, nil
}

func (s *CatalogService) ListAssets(ctx context.Context, site string) ([]entity.Asset, error) {
	return s.repos.Asset.List(ctx, site)
}

// DeleteAsset removes the asset together with its schedules.
func (s *CatalogService) DeleteAsset(ctx context.Context, caller workflow.Caller, id string) error {
	if err := workflow.Authorize(caller, workflow.ActionManageCatalog); err != nil {
		return err
	}
	if err := s.repos.Asset.Delete(ctx, id); err != nil {
		return lookup(err, "asset", id)
	}
	s.logger.Info("asset deleted", zap.String("asset_id", id), zap.String("by", caller.UserID))
	return nil
}

// TemplateItemInput 模板检查项
type TemplateItemInput struct {
	Label      string `json:"label" binding:"required"`
	Required   bool   `json:"required"`
	AnswerKind string `json:"answer_kind"`
	SortOrder  int    `json:"sort_order"`
}

// CreateTemplateRequest 创建模板请求
type CreateTemplateRequest struct {
	Code             string              `json:"code" binding:"required"`
	Label            string              `json:"label" binding:"required"`
	ControlTypeID    string              `json:"control_type_id" binding:"required"`
	Flow             string              `json:"flow" binding:"required"`
	AutoObservations bool                `json:"auto_observations"`
	Items            []TemplateItemInput `json:"items"`
}

func (s *CatalogService) CreateTemplate(ctx context.Context, caller workflow.Caller, req *CreateTemplateRequest) (*entity.ChecklistTemplate, error) {
	if err := workflow.Authorize(caller, workflow.ActionManageCatalog); err != nil {
		return nil, err
	}
	if _, err := workflow.FlowFor(req.Flow); err != nil {
		return nil, err
	}
	if len(req.Items) == 0 {
		return nil, workflow.Validation("a template needs at least one item")
	}
	if _, err := s.repos.ControlType.FindByID(ctx, req.ControlTypeID); err != nil {
		return nil, lookup(err, "control type", req.ControlTypeID)
	}

	tpl := &entity.ChecklistTemplate{
		ID:               entity.NewID(),
		Code:             strings.TrimSpace(req.Code),
		Label:            req.Label,
		ControlTypeID:    req.ControlTypeID,
		Flow:             req.Flow,
		AutoObservations: req.AutoObservations,
	}
	for i, in := range req.Items {
		kind := in.AnswerKind
		if kind == "" {
			kind = entity.AnswerYesNo
		}
		switch kind {
		case entity.AnswerYesNo, entity.AnswerNumeric, entity.AnswerText:
		default:
			return nil, workflow.Validation("item %d: unknown answer kind %q", i+1, in.AnswerKind)
		}
		if strings.TrimSpace(in.Label) == "" {
			return nil, workflow.Validation("item %d: label is required", i+1)
		}
		order := in.SortOrder
		if order == 0 {
			order = i + 1
		}
		tpl.Items = append(tpl.Items, entity.TemplateItem{
			ID:         entity.NewID(),
			TemplateID: tpl.ID,
			Label:      in.Label,
			Required:   in.Required,
			AnswerKind: kind,
			SortOrder:  order,
		})
	}

	if err := s.repos.Template.Create(ctx, tpl); err != nil {
		return nil, fmt.Errorf("create template: %w", err)
	}
	return tpl, nil
}

func (s *CatalogService) GetTemplate(ctx context.Context, id string) (*entity.ChecklistTemplate, error) {
	tpl, err := s.repos.Template.FindByID(ctx, id)
	if err != nil {
		return nil, lookup(err, "template", id)
	}
	return tpl, nil
}

// ListTemplates 查询控制类型下的模板
func (s *CatalogService) ListTemplates(ctx context.Context, controlTypeID string) ([]entity.ChecklistTemplate, error) {
	if controlTypeID == "" {
		return nil, workflow.Validation("control_type_id is required")
	}
	return s.repos.Template.ListByControlType(ctx, controlTypeID)
}
