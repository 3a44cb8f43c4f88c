package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"interview-ai-credits/internal/domain"
	"interview-ai-credits/internal/domain/model"
	"interview-ai-credits/internal/domain/ports/adapter"
	"interview-ai-credits/internal/domain/ports/repository"
)

// PurchaseUseCase tracks payment-provider checkouts and turns provider
// confirmations into ledger grants. Payment verification itself stays with
// the provider; a confirmed callback is trusted.
type PurchaseUseCase interface {
	// Initiate registers a pending checkout and returns it with the URL the
	// buyer completes payment at.
	Initiate(ctx context.Context, userID, planID string) (*model.Purchase, string, error)

	// Confirm finalizes the checkout carried by a provider callback reference
	// and credits the ledger. Re-confirming a confirmed purchase is an
	// idempotent no-op, including when the repeats race each other.
	Confirm(ctx context.Context, reference string) (*model.Purchase, error)

	// Fail marks a checkout the provider rejected or the buyer abandoned.
	Fail(ctx context.Context, reference string) error
}

var _ PurchaseUseCase = (*purchaseUC)(nil)

type purchaseUC struct {
	purchases   repository.PurchaseRepository
	plans       PlanUseCase
	credits     CreditUseCase
	gateway     adapter.PaymentGateway
	callbackURL string
	log         *zerolog.Logger
}

func NewPurchaseUseCase(
	purchases repository.PurchaseRepository,
	plans PlanUseCase,
	credits CreditUseCase,
	gateway adapter.PaymentGateway,
	callbackURL string,
	logger *zerolog.Logger,
) PurchaseUseCase {
	return &purchaseUC{
		purchases:   purchases,
		plans:       plans,
		credits:     credits,
		gateway:     gateway,
		callbackURL: callbackURL,
		log:         logger,
	}
}

func (uc *purchaseUC) Initiate(ctx context.Context, userID, planID string) (*model.Purchase, string, error) {
	if userID == "" {
		return nil, "", domain.ErrInvalidArgument
	}
	plan, err := uc.plans.Get(ctx, planID)
	if err != nil {
		return nil, "", err
	}

	reference, payURL, err := uc.gateway.RequestCheckout(ctx, plan.PriceCents, plan.Name+" purchase", uc.callbackURL)
	if err != nil {
		return nil, "", err
	}

	p, err := model.NewPurchase(uuid.NewString(), userID, plan, uc.gateway.Name(), reference)
	if err != nil {
		return nil, "", err
	}
	if err := uc.purchases.Save(ctx, repository.NoTX, p); err != nil {
		return nil, "", err
	}

	uc.log.Info().Str("user_id", userID).Str("plan_id", planID).
		Str("reference", reference).Msg("checkout initiated")
	return p, payURL, nil
}

func (uc *purchaseUC) Confirm(ctx context.Context, reference string) (*model.Purchase, error) {
	p, err := uc.purchases.FindByReference(ctx, repository.NoTX, reference)
	if err != nil {
		return nil, err
	}
	if p.Status == model.PurchaseStatusConfirmed {
		return p, nil
	}

	// The pending-to-confirmed flip is the serialization point: with two
	// concurrent callbacks for one reference only one write lands, so only
	// one caller grants.
	now := time.Now()
	if err := uc.purchases.ConfirmPending(ctx, repository.NoTX, p.ID, now); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			latest, ferr := uc.purchases.FindByID(ctx, repository.NoTX, p.ID)
			if ferr == nil && latest.Status == model.PurchaseStatusConfirmed {
				return latest, nil
			}
			return nil, domain.ErrOperationFailed
		}
		return nil, err
	}

	if _, err := uc.credits.PurchasePlan(ctx, p.UserID, p.PlanID); err != nil {
		// Hand the row back to pending so a retried callback can grant.
		if rerr := uc.purchases.UpdateStatus(ctx, repository.NoTX, p.ID, model.PurchaseStatusPending, nil); rerr != nil {
			uc.log.Error().Err(rerr).Str("purchase_id", p.ID).Msg("failed to reopen purchase after grant failure")
		}
		return nil, err
	}

	p.Status = model.PurchaseStatusConfirmed
	p.ConfirmedAt = &now
	p.UpdatedAt = now
	return p, nil
}

func (uc *purchaseUC) Fail(ctx context.Context, reference string) error {
	p, err := uc.purchases.FindByReference(ctx, repository.NoTX, reference)
	if err != nil {
		return err
	}
	if p.Status != model.PurchaseStatusPending {
		return nil
	}
	return uc.purchases.UpdateStatus(ctx, repository.NoTX, p.ID, model.PurchaseStatusFailed, nil)
}
