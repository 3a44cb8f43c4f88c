package model

import (
	"time"

	"interview-ai-credits/internal/domain"
)

const (
	// GrantPeriodMonths is how long a purchased grant stays usable.
	GrantPeriodMonths = 2
	// FreeSessionsPerPurchase is the free-session allowance every purchase resets to.
	FreeSessionsPerPurchase = 2
)

// UserCredit is the per-user ledger: at most one record per user. It is
// created on first purchase and mutated in place by later purchases and by
// consumption; history lives in the activity log.
type UserCredit struct {
	ID                    string // UUID
	UserID                string
	PlanType              string // plan id of the most recent purchase
	TotalCredits          int
	RemainingCredits      int
	TotalMinutes          float64
	MinutesUsed           float64
	PurchaseDate          time.Time
	ExpirationDate        time.Time
	FreeSessionsRemaining int
	ExpiryNotifiedAt      *time.Time // set once the expiry sweep has logged the expiry
}

// NewUserCredit creates a fresh ledger for a first purchase.
func NewUserCredit(id, userID string, plan *CreditPlan, now time.Time) (*UserCredit, error) {
	if id == "" || userID == "" || plan.IsZero() {
		return nil, domain.ErrInvalidArgument
	}
	c := &UserCredit{ID: id, UserID: userID}
	c.ApplyGrant(plan, now)
	return c, nil
}

// ApplyGrant overwrites the ledger with a plan's full grant. Purchases reset
// balances rather than adding to them; see AccumulateGrant for the additive
// variant behind a configuration switch.
func (c *UserCredit) ApplyGrant(plan *CreditPlan, now time.Time) {
	c.PlanType = plan.ID
	c.TotalCredits = plan.Credits
	c.RemainingCredits = plan.Credits
	c.TotalMinutes = plan.TotalMinutes()
	c.MinutesUsed = 0
	c.PurchaseDate = now
	c.ExpirationDate = now.AddDate(0, GrantPeriodMonths, 0)
	c.FreeSessionsRemaining = FreeSessionsPerPurchase
	c.ExpiryNotifiedAt = nil
}

// AccumulateGrant adds a plan's grant on top of any unused balance. The
// expiration window still restarts from the new purchase.
func (c *UserCredit) AccumulateGrant(plan *CreditPlan, now time.Time) {
	remaining := c.RemainingCredits
	unusedMinutes := c.TotalMinutes - c.MinutesUsed
	if unusedMinutes < 0 {
		unusedMinutes = 0
	}
	c.ApplyGrant(plan, now)
	c.TotalCredits += remaining
	c.RemainingCredits += remaining
	c.TotalMinutes += unusedMinutes
}

// ExpiredAt reports whether the grant is exhausted by age. The boundary is
// inclusive: a ledger is expired the instant now reaches ExpirationDate,
// regardless of remaining numeric balance.
func (c *UserCredit) ExpiredAt(now time.Time) bool {
	return !now.Before(c.ExpirationDate)
}

// CanConsume reports whether the ledger holds enough credits for a debit.
func (c *UserCredit) CanConsume(credits int) bool {
	return credits > 0 && c.RemainingCredits >= credits
}

// Entitlement is the result of an entitlement check. Valid means the gated
// action may proceed; HasFreeSession means a free session should be spent
// instead of credits.
type Entitlement struct {
	Valid          bool
	HasFreeSession bool
}
