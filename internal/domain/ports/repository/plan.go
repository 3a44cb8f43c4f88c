package repository

import (
	"context"

	"interview-ai-credits/internal/domain/model"
)

// CreditPlanRepository is the port for the purchasable plan catalog.
type CreditPlanRepository interface {
	Save(ctx context.Context, tx Tx, plan *model.CreditPlan) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.CreditPlan, error)
	ListAll(ctx context.Context, tx Tx) ([]*model.CreditPlan, error)
	Delete(ctx context.Context, tx Tx, id string) error
}
