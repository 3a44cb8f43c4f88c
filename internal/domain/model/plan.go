package model

import (
	"time"

	"interview-ai-credits/internal/domain"
)

// CreditPlan represents a purchasable credit package with a fixed price,
// credit allotment, and per-credit interview time.
type CreditPlan struct {
	ID               string
	Name             string
	PriceCents       int64
	Credits          int
	MinutesPerCredit float64
	Features         []string
	Highlighted      bool
	CreatedAt        time.Time
}

func (p *CreditPlan) IsZero() bool { return p == nil || p.ID == "" }

// TotalMinutes is the interview time a full grant of this plan provides.
func (p *CreditPlan) TotalMinutes() float64 {
	return float64(p.Credits) * p.MinutesPerCredit
}

// NewCreditPlan validates and constructs a plan.
func NewCreditPlan(id, name string, priceCents int64, credits int, minutesPerCredit float64, features []string) (*CreditPlan, error) {
	if id == "" || name == "" || priceCents <= 0 || credits <= 0 || minutesPerCredit <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &CreditPlan{
		ID:               id,
		Name:             name,
		PriceCents:       priceCents,
		Credits:          credits,
		MinutesPerCredit: minutesPerCredit,
		Features:         features,
		CreatedAt:        time.Now(),
	}, nil
}

// DefaultCreditPlans is the stable fallback catalog used when the plan store
// is empty or unreachable. A purchase flow always reads a consistent snapshot
// of a plan's terms, so these are returned as fresh copies.
func DefaultCreditPlans() []*CreditPlan {
	return []*CreditPlan{
		{
			ID:               "standard",
			Name:             "Standard Plan",
			PriceCents:       2900,
			Credits:          5,
			MinutesPerCredit: 45,
			Features: []string{
				"5 interview credits",
				"30-45 min per interview",
				"Basic AI feedback",
				"Technical & behavioral questions",
				"Performance analytics",
			},
		},
		{
			ID:               "pro",
			Name:             "Pro Plan",
			PriceCents:       5900,
			Credits:          12,
			MinutesPerCredit: 45,
			Features: []string{
				"12 interview credits",
				"30-45 min per interview",
				"Advanced AI feedback",
				"Customized interview scenarios",
				"Detailed performance metrics",
				"Interview recording feature",
			},
			Highlighted: true,
		},
	}
}

// DefaultCreditPlan returns the fallback plan with the given id, or nil.
func DefaultCreditPlan(id string) *CreditPlan {
	for _, p := range DefaultCreditPlans() {
		if p.ID == id {
			return p
		}
	}
	return nil
}
