package model

import (
	"time"

	"interview-ai-credits/internal/domain"
)

type PurchaseStatus string

const (
	PurchaseStatusPending   PurchaseStatus = "pending"
	PurchaseStatusConfirmed PurchaseStatus = "confirmed"
	PurchaseStatusFailed    PurchaseStatus = "failed"
)

// Purchase tracks one payment-provider checkout for a plan. The provider
// confirms (or rejects) it out of band; the ledger is only credited once the
// confirmation callback fires.
type Purchase struct {
	ID          string // UUID
	UserID      string
	PlanID      string
	Provider    string
	AmountCents int64
	Reference   string // provider-side identifier carried by the callback
	Status      PurchaseStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ConfirmedAt *time.Time
}

// NewPurchase constructs a pending purchase for a plan checkout.
func NewPurchase(id, userID string, plan *CreditPlan, provider, reference string) (*Purchase, error) {
	if id == "" || userID == "" || plan.IsZero() || reference == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Purchase{
		ID:          id,
		UserID:      userID,
		PlanID:      plan.ID,
		Provider:    provider,
		AmountCents: plan.PriceCents,
		Reference:   reference,
		Status:      PurchaseStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}
