package service

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/bitfantasy/vgp/internal/config"
	"github.com/bitfantasy/vgp/internal/metrics"
	"github.com/bitfantasy/vgp/internal/vgp/repository"
	"github.com/bitfantasy/vgp/internal/vgp/workflow"
)

// Options collaborators injected into the services
type Options struct {
	Logger   *zap.Logger
	Clock    workflow.Clock
	Locker   RunLocker
	Metrics  *metrics.Metrics
	Workflow config.WorkflowConfig
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Clock == nil {
		o.Clock = workflow.SystemClock{}
	}
	if o.Locker == nil {
		o.Locker = NewLocalRunLocker()
	}
	if o.Workflow.DefaultSeverity == 0 {
		o.Workflow.DefaultSeverity = workflow.DefaultSeverity
	}
	if o.Workflow.ActionDueDays == 0 {
		o.Workflow.ActionDueDays = workflow.DefaultActionDueDays
	}
	if o.Workflow.DueSoonDays == 0 {
		o.Workflow.DueSoonDays = 30
	}
	return o
}

// Services VGP服务集合
type Services struct {
	Catalog    *CatalogService
	Schedule   *ScheduleService
	Inspection *InspectionService
	Lifecycle  *LifecycleService
	Mission    *MissionService
	Activity   *ActivityService
}

// NewServices 创建VGP服务集合
func NewServices(repos *repository.Repositories, opts Options) *Services {
	opts = opts.withDefaults()
	schedule := NewScheduleService(repos, opts)
	return &Services{
		Catalog:    NewCatalogService(repos, opts),
		Schedule:   schedule,
		Inspection: NewInspectionService(repos, schedule, opts),
		Lifecycle:  NewLifecycleService(repos, opts),
		Mission:    NewMissionService(repos, opts),
		Activity:   NewActivityService(repos),
	}
}

// lookup translates a repository miss into NOT_FOUND.
func lookup(err error, what, id string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return workflow.NotFound("%s %s not found", what, id)
	}
	return fmt.Errorf("load %s %s: %w", what, id, err)
}

// wrapInfra keeps engine errors verbatim and annotates the rest.
func wrapInfra(err error, op string) error {
	if workflow.CodeOf(err) != "" {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}

func cascadeOptions(cfg config.WorkflowConfig) workflow.CascadeOptions {
	return workflow.CascadeOptions{
		DefaultSeverity: cfg.DefaultSeverity,
		ActionDueDays:   cfg.ActionDueDays,
	}
}
