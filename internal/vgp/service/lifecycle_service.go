package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/bitfantasy/vgp/internal/metrics"
	"github.com/bitfantasy/vgp/internal/vgp/entity"
	"github.com/bitfantasy/vgp/internal/vgp/repository"
	"github.com/bitfantasy/vgp/internal/vgp/workflow"
)

// LifecycleService 不符合项/纠正措施状态流转
type LifecycleService struct {
	repos   *repository.Repositories
	clock   workflow.Clock
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewLifecycleService(repos *repository.Repositories, opts Options) *LifecycleService {
	opts = opts.withDefaults()
	return &LifecycleService{
		repos:   repos,
		clock:   opts.Clock,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
}

// TransitionStatus moves a non-conformity or corrective action to target and
// returns the updated record.
func (s *LifecycleService) TransitionStatus(ctx context.Context, caller workflow.Caller, kind workflow.EntityKind, id, target string) (interface{}, error) {
	switch kind {
	case workflow.KindNonConformity:
		return s.TransitionNonConformity(ctx, caller, id, target)
	case workflow.KindCorrectiveAction:
		return s.TransitionCorrectiveAction(ctx, caller, id, target)
	}
	if err := workflow.Authorize(caller, workflow.ActionTransition); err != nil {
		return nil, err
	}
	return nil, workflow.Validation("unknown entity kind %q", kind)
}

func (s *LifecycleService) TransitionNonConformity(ctx context.Context, caller workflow.Caller, id, target string) (nc *entity.NonConformity, err error) {
	defer s.observe(workflow.KindNonConformity, target, &err)

	if err := workflow.Authorize(caller, workflow.ActionTransition); err != nil {
		return nil, err
	}

	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		found, err := tx.NonConformity.FindByID(ctx, id)
		if err != nil {
			return lookup(err, "non-conformity", id)
		}
		from := found.Status
		if err := workflow.TransitionNonConformity(found, target, caller, s.clock.Now()); err != nil {
			return err
		}
		ok, err := tx.NonConformity.SaveTransition(ctx, found, from)
		if err != nil {
			return err
		}
		if !ok {
			return workflow.Conflict("non-conformity %s changed concurrently", id)
		}
		nc = found
		return tx.ActivityLog.LogActivity(ctx, repository.Entry{
			EntityType: entity.ActivityEntityNonConformity,
			EntityID:   found.ID,
			Action:     "status_change",
			FromStatus: from,
			ToStatus:   target,
			OperatorID: caller.UserID,
			Operator:   caller.Name,
			Metadata:   map[string]interface{}{"role": string(caller.Role)},
		})
	})
	if err != nil {
		return nil, wrapInfra(err, "transition non-conformity")
	}
	return nc, nil
}

func (s *LifecycleService) TransitionCorrectiveAction(ctx context.Context, caller workflow.Caller, id, target string) (ca *entity.CorrectiveAction, err error) {
	defer s.observe(workflow.KindCorrectiveAction, target, &err)

	if err := workflow.Authorize(caller, workflow.ActionTransition); err != nil {
		return nil, err
	}

	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		found, err := tx.CorrectiveAction.FindByID(ctx, id)
		if err != nil {
			return lookup(err, "corrective action", id)
		}
		from := found.Status
		if err := workflow.TransitionCorrectiveAction(found, target, caller, s.clock.Now()); err != nil {
			return err
		}
		ok, err := tx.CorrectiveAction.SaveTransition(ctx, found, from)
		if err != nil {
			return err
		}
		if !ok {
			return workflow.Conflict("corrective action %s changed concurrently", id)
		}
		ca = found
		return tx.ActivityLog.LogActivity(ctx, repository.Entry{
			EntityType: entity.ActivityEntityAction,
			EntityID:   found.ID,
			Action:     "status_change",
			FromStatus: from,
			ToStatus:   target,
			OperatorID: caller.UserID,
			Operator:   caller.Name,
			Metadata:   map[string]interface{}{"role": string(caller.Role)},
		})
	})
	if err != nil {
		return nil, wrapInfra(err, "transition corrective action")
	}
	return ca, nil
}

func (s *LifecycleService) observe(kind workflow.EntityKind, target string, errp *error) {
	if *errp != nil {
		s.metrics.Failed("transition", string(workflow.CodeOf(*errp)))
		return
	}
	s.metrics.Transitioned(string(kind), target)
	s.logger.Info("status transition", zap.String("kind", string(kind)), zap.String("to", target))
}

// ListNonConformities 查询不符合项
func (s *LifecycleService) ListNonConformities(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.NonConformity, int64, error) {
	return s.repos.NonConformity.FindAll(ctx, page, pageSize, filters)
}

func (s *LifecycleService) GetNonConformity(ctx context.Context, id string) (*entity.NonConformity, error) {
	nc, err := s.repos.NonConformity.FindByID(ctx, id)
	if err != nil {
		return nil, lookup(err, "non-conformity", id)
	}
	return nc, nil
}

func (s *LifecycleService) GetCorrectiveAction(ctx context.Context, id string) (*entity.CorrectiveAction, error) {
	ca, err := s.repos.CorrectiveAction.FindByID(ctx, id)
	if err != nil {
		return nil, lookup(err, "corrective action", id)
	}
	return ca, nil
}
