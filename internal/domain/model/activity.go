package model

import (
	"fmt"
	"time"
)

type ActivityKind string

const (
	ActivityKindInterview ActivityKind = "interview"
	ActivityKindPurchase  ActivityKind = "purchase"
	ActivityKindSystem    ActivityKind = "system"
)

// CreditActivity is an immutable audit entry describing one ledger-affecting
// event. Entries are created once and never mutated or deleted.
type CreditActivity struct {
	ID            string // ULID, assigned on append
	UserID        string
	Kind          ActivityKind
	Title         string
	Description   string
	CreditsChange int      // positive for grants, negative for debits, zero for free sessions
	MinutesUsed   *float64 // nil when the event consumed no interview time
	InterviewID   *string
	Timestamp     time.Time
}

// NewPurchaseActivity records a plan purchase crediting the ledger.
func NewPurchaseActivity(userID string, plan *CreditPlan, now time.Time) *CreditActivity {
	return &CreditActivity{
		UserID:        userID,
		Kind:          ActivityKindPurchase,
		Title:         fmt.Sprintf("%s Purchase", plan.Name),
		Description:   fmt.Sprintf("%d credits added to account", plan.Credits),
		CreditsChange: plan.Credits,
		Timestamp:     now,
	}
}

// NewInterviewActivity records a credit-consuming interview session.
func NewInterviewActivity(userID, interviewID string, credits int, minutes float64, now time.Time) *CreditActivity {
	return &CreditActivity{
		UserID:        userID,
		Kind:          ActivityKindInterview,
		Title:         "Interview Session",
		Description:   fmt.Sprintf("Interview session - %.0f minutes", minutes),
		CreditsChange: -credits,
		MinutesUsed:   &minutes,
		InterviewID:   &interviewID,
		Timestamp:     now,
	}
}

// NewFreeSessionActivity records a free interview session; it consumes no
// credits, so the signed delta is zero.
func NewFreeSessionActivity(userID string, remaining int, now time.Time) *CreditActivity {
	return &CreditActivity{
		UserID:        userID,
		Kind:          ActivityKindInterview,
		Title:         "Free Interview Session",
		Description:   fmt.Sprintf("Free interview session used (%d remaining)", remaining),
		CreditsChange: 0,
		Timestamp:     now,
	}
}

// NewExpiryActivity records that a grant aged out with balance left over.
func NewExpiryActivity(userID string, forfeitedCredits int, now time.Time) *CreditActivity {
	return &CreditActivity{
		UserID:        userID,
		Kind:          ActivityKindSystem,
		Title:         "Credits Expired",
		Description:   fmt.Sprintf("Grant expired with %d unused credits", forfeitedCredits),
		CreditsChange: 0,
		Timestamp:     now,
	}
}
