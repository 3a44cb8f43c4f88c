package usecase

import (
	"context"

	"interview-ai-credits/internal/domain/model"
	"interview-ai-credits/internal/domain/ports/repository"
)

// UsageStats is a dashboard snapshot of the credit system.
type UsageStats struct {
	TotalRemainingCredits int64
	PurchasesByStatus     map[model.PurchaseStatus]int
}

// StatsUseCase aggregates read-only usage numbers.
type StatsUseCase interface {
	Overview(ctx context.Context) (*UsageStats, error)
	ActivityCount(ctx context.Context, userID string) (int, error)
}

var _ StatsUseCase = (*statsUC)(nil)

type statsUC struct {
	credits    repository.UserCreditRepository
	activities repository.CreditActivityRepository
	purchases  repository.PurchaseRepository
}

func NewStatsUseCase(
	credits repository.UserCreditRepository,
	activities repository.CreditActivityRepository,
	purchases repository.PurchaseRepository,
) StatsUseCase {
	return &statsUC{credits: credits, activities: activities, purchases: purchases}
}

func (uc *statsUC) Overview(ctx context.Context) (*UsageStats, error) {
	remaining, err := uc.credits.TotalRemainingCredits(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	byStatus, err := uc.purchases.CountByStatus(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	return &UsageStats{
		TotalRemainingCredits: remaining,
		PurchasesByStatus:     byStatus,
	}, nil
}

func (uc *statsUC) ActivityCount(ctx context.Context, userID string) (int, error) {
	return uc.activities.CountByUser(ctx, repository.NoTX, userID)
}
