package usecase

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"interview-ai-credits/internal/domain"
	"interview-ai-credits/internal/domain/model"
	"interview-ai-credits/internal/domain/ports/repository"
)

// PlanUseCase manages the purchasable plan catalog.
type PlanUseCase interface {
	// List returns all plans, falling back to the built-in defaults when the
	// catalog store is empty or unreachable.
	List(ctx context.Context) []*model.CreditPlan

	// Get returns one plan, consulting the defaults when the store has no
	// row for the id. Returns domain.ErrInvalidPlan for unknown ids.
	Get(ctx context.Context, id string) (*model.CreditPlan, error)

	// Save upserts a catalog override (seeding/admin).
	Save(ctx context.Context, plan *model.CreditPlan) error
}

var _ PlanUseCase = (*planUC)(nil)

type planUC struct {
	plans repository.CreditPlanRepository
	log   *zerolog.Logger
}

// NewPlanUseCase constructs a PlanUseCase.
func NewPlanUseCase(plans repository.CreditPlanRepository, logger *zerolog.Logger) PlanUseCase {
	return &planUC{plans: plans, log: logger}
}

func (uc *planUC) List(ctx context.Context) []*model.CreditPlan {
	plans, err := uc.plans.ListAll(ctx, repository.NoTX)
	if err != nil {
		uc.log.Warn().Err(err).Msg("plan catalog unavailable, serving defaults")
		return model.DefaultCreditPlans()
	}
	if len(plans) == 0 {
		return model.DefaultCreditPlans()
	}
	return plans
}

func (uc *planUC) Get(ctx context.Context, id string) (*model.CreditPlan, error) {
	if id == "" {
		return nil, domain.ErrInvalidPlan
	}
	plan, err := uc.plans.FindByID(ctx, repository.NoTX, id)
	if err == nil {
		return plan, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		uc.log.Warn().Err(err).Str("plan_id", id).Msg("plan lookup failed, consulting defaults")
	}
	if p := model.DefaultCreditPlan(id); p != nil {
		return p, nil
	}
	return nil, domain.ErrInvalidPlan
}

func (uc *planUC) Save(ctx context.Context, plan *model.CreditPlan) error {
	if plan.IsZero() {
		return domain.ErrInvalidArgument
	}
	return uc.plans.Save(ctx, repository.NoTX, plan)
}
