package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"interview-ai-credits/internal/domain"
	"interview-ai-credits/internal/domain/model"
	"interview-ai-credits/internal/domain/ports/repository"
)

// Locker serializes a flow per key; implemented by the Redis locker.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

const (
	purchaseLockTTL  = 10 * time.Second
	maxActivityLimit = 100
)

// CreditUseCase implements the credit ledger business operations: purchases,
// entitlement checks, consumption, and the activity history.
type CreditUseCase interface {
	// GetLedger returns the user's ledger, or domain.ErrNotFound when the
	// user has never purchased a plan (distinct from a zero-balance ledger).
	GetLedger(ctx context.Context, userID string) (*model.UserCredit, error)

	// PurchasePlan upserts the ledger for a confirmed plan purchase and logs
	// a purchase activity. Unknown plan ids return domain.ErrInvalidPlan.
	PurchasePlan(ctx context.Context, userID, planID string) (*model.UserCredit, error)

	// CheckEntitlement reports whether the user may start a session needing
	// requiredCredits. It never fails: storage trouble, a missing ledger, and
	// an aged-out grant all read as not entitled.
	CheckEntitlement(ctx context.Context, userID string, requiredCredits int) model.Entitlement

	// ConsumeCredits debits credits and minutes for an interview and logs an
	// interview activity. False means the ledger was left untouched.
	ConsumeCredits(ctx context.Context, userID, interviewID string, credits int, minutes float64) bool

	// ConsumeFreeSession spends one free session and logs it.
	ConsumeFreeSession(ctx context.Context, userID string) bool

	// RecentActivity returns up to limit newest-first activity entries,
	// degrading to an empty list on storage failure. Non-positive limits
	// fall back to 10; limits above 100 are capped.
	RecentActivity(ctx context.Context, userID string, limit int) []*model.CreditActivity

	// ExpireOverdue logs a system activity for every ledger whose grant aged
	// out with balance left, once per ledger. Returns how many were swept.
	ExpireOverdue(ctx context.Context) (int, error)
}

var _ CreditUseCase = (*creditUC)(nil)

type creditUC struct {
	credits    repository.UserCreditRepository
	activities repository.CreditActivityRepository
	plans      PlanUseCase
	tx         repository.TransactionManager
	locker     Locker
	accumulate bool
	log        *zerolog.Logger
}

// NewCreditUseCase constructs the use case. accumulateOnPurchase switches a
// repeat purchase from reset semantics to additive semantics.
func NewCreditUseCase(
	credits repository.UserCreditRepository,
	activities repository.CreditActivityRepository,
	plans PlanUseCase,
	tx repository.TransactionManager,
	locker Locker,
	accumulateOnPurchase bool,
	logger *zerolog.Logger,
) CreditUseCase {
	return &creditUC{
		credits:    credits,
		activities: activities,
		plans:      plans,
		tx:         tx,
		locker:     locker,
		accumulate: accumulateOnPurchase,
		log:        logger,
	}
}

func (uc *creditUC) GetLedger(ctx context.Context, userID string) (*model.UserCredit, error) {
	if userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	return uc.credits.FindByUser(ctx, repository.NoTX, userID)
}

func (uc *creditUC) PurchasePlan(ctx context.Context, userID, planID string) (*model.UserCredit, error) {
	if userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	plan, err := uc.plans.Get(ctx, planID)
	if err != nil {
		return nil, err
	}

	// One purchase at a time per user; a repeat purchase overwrites the same
	// ledger row, so two concurrent confirmations must not interleave.
	token, err := uc.locker.TryLock(ctx, "credits:purchase:"+userID, purchaseLockTTL)
	if err != nil {
		return nil, err
	}
	defer func() { _ = uc.locker.Unlock(ctx, "credits:purchase:"+userID, token) }()

	now := time.Now()
	var ledger *model.UserCredit
	err = uc.tx.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		existing, err := uc.credits.FindByUser(ctx, tx, userID)
		switch {
		case err == nil:
			ledger = existing
			if uc.accumulate {
				ledger.AccumulateGrant(plan, now)
			} else {
				ledger.ApplyGrant(plan, now)
			}
		case errors.Is(err, domain.ErrNotFound):
			ledger, err = model.NewUserCredit(uuid.NewString(), userID, plan, now)
			if err != nil {
				return err
			}
		default:
			return err
		}
		if err := uc.credits.Save(ctx, tx, ledger); err != nil {
			return err
		}

		// Both halves of the purchase commit together.
		act := model.NewPurchaseActivity(userID, plan, now)
		act.ID = ulid.Make().String()
		_, err = uc.activities.Append(ctx, tx, act)
		return err
	})
	if err != nil {
		uc.log.Error().Err(err).Str("user_id", userID).Str("plan_id", planID).Msg("purchase failed")
		return nil, err
	}

	uc.log.Info().Str("user_id", userID).Str("plan_id", planID).
		Int("credits", ledger.RemainingCredits).Time("expires", ledger.ExpirationDate).
		Msg("plan purchased")
	return ledger, nil
}

func (uc *creditUC) CheckEntitlement(ctx context.Context, userID string, requiredCredits int) model.Entitlement {
	ledger, err := uc.credits.FindByUser(ctx, repository.NoTX, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			uc.log.Warn().Err(err).Str("user_id", userID).Msg("entitlement read failed; denying")
		}
		return model.Entitlement{}
	}
	if ledger.ExpiredAt(time.Now()) {
		return model.Entitlement{}
	}

	hasFree := ledger.FreeSessionsRemaining > 0
	valid := hasFree || ledger.CanConsume(requiredCredits)
	return model.Entitlement{Valid: valid, HasFreeSession: hasFree}
}

func (uc *creditUC) ConsumeCredits(ctx context.Context, userID, interviewID string, credits int, minutes float64) bool {
	if userID == "" || credits <= 0 || minutes < 0 {
		return false
	}

	// The balance guard lives inside this conditional update: with two racing
	// sessions and one credit left, exactly one debit lands.
	ledger, err := uc.credits.ConsumeCredits(ctx, repository.NoTX, userID, credits, minutes)
	if err != nil {
		if !errors.Is(err, domain.ErrInsufficientCredits) {
			uc.log.Error().Err(err).Str("user_id", userID).Msg("credit debit failed")
		}
		return false
	}

	uc.appendAfterDebit(ctx, model.NewInterviewActivity(userID, interviewID, credits, minutes, time.Now()))
	uc.log.Info().Str("user_id", userID).Str("interview_id", interviewID).
		Int("credits", credits).Int("remaining", ledger.RemainingCredits).
		Msg("credits consumed")
	return true
}

func (uc *creditUC) ConsumeFreeSession(ctx context.Context, userID string) bool {
	if userID == "" {
		return false
	}
	ledger, err := uc.credits.ConsumeFreeSession(ctx, repository.NoTX, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrNoFreeSessions) && !errors.Is(err, domain.ErrNotFound) {
			uc.log.Error().Err(err).Str("user_id", userID).Msg("free session debit failed")
		}
		return false
	}

	uc.appendAfterDebit(ctx, model.NewFreeSessionActivity(userID, ledger.FreeSessionsRemaining, time.Now()))
	uc.log.Info().Str("user_id", userID).Int("free_remaining", ledger.FreeSessionsRemaining).
		Msg("free session consumed")
	return true
}

// appendAfterDebit logs an activity for an already-applied debit. Logging
// happens after the ledger mutation: if it fails the ledger stays numerically
// consistent, just under-logged.
func (uc *creditUC) appendAfterDebit(ctx context.Context, act *model.CreditActivity) {
	act.ID = ulid.Make().String()
	if _, err := uc.activities.Append(ctx, repository.NoTX, act); err != nil {
		uc.log.Error().Err(err).Str("user_id", act.UserID).Str("kind", string(act.Kind)).
			Msg("activity append failed after debit; ledger is consistent but under-logged")
	}
}

func (uc *creditUC) RecentActivity(ctx context.Context, userID string, limit int) []*model.CreditActivity {
	switch {
	case limit <= 0:
		limit = 10
	case limit > maxActivityLimit:
		limit = maxActivityLimit
	}
	out, err := uc.activities.ListRecent(ctx, repository.NoTX, userID, limit)
	if err != nil {
		uc.log.Warn().Err(err).Str("user_id", userID).Msg("activity read failed; returning empty history")
		return nil
	}
	return out
}

func (uc *creditUC) ExpireOverdue(ctx context.Context) (int, error) {
	now := time.Now()
	overdue, err := uc.credits.FindExpiredUnnotified(ctx, repository.NoTX, now)
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, ledger := range overdue {
		err := uc.tx.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
			if err := uc.credits.MarkExpiryNotified(ctx, tx, ledger.ID, now); err != nil {
				return err
			}
			act := model.NewExpiryActivity(ledger.UserID, ledger.RemainingCredits, now)
			act.ID = ulid.Make().String()
			_, err := uc.activities.Append(ctx, tx, act)
			return err
		})
		if err != nil {
			uc.log.Error().Err(err).Str("user_id", ledger.UserID).Msg("expiry sweep entry failed")
			continue
		}
		swept++
	}
	return swept, nil
}
