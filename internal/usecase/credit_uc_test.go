//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v4"

	"interview-ai-credits/internal/domain"
	"interview-ai-credits/internal/domain/model"
	"interview-ai-credits/internal/domain/ports/repository"
	"interview-ai-credits/internal/usecase"
)

func newCreditUC(credits *MockCreditRepo, acts *MockActivityRepo, accumulate bool) usecase.CreditUseCase {
	planUC := usecase.NewPlanUseCase(NewMockPlanRepo(), newTestLogger())
	return usecase.NewCreditUseCase(credits, acts, planUC, NewMockTxManager(), NewMockLocker(), accumulate, newTestLogger())
}

func seedLedger(t *testing.T, credits *MockCreditRepo, userID string, remaining int, free int) *model.UserCredit {
	t.Helper()
	plan := model.DefaultCreditPlan("standard")
	c, err := model.NewUserCredit("led-"+userID, userID, plan, time.Now())
	if err != nil {
		t.Fatalf("seed ledger: %v", err)
	}
	c.RemainingCredits = remaining
	// Keep the minutes budget in step with the seeded balance.
	c.TotalMinutes = float64(remaining) * plan.MinutesPerCredit
	c.FreeSessionsRemaining = free
	if err := credits.Save(context.Background(), repository.NoTX, c); err != nil {
		t.Fatalf("seed save: %v", err)
	}
	return c
}

func TestCreditUseCase_PurchasePlan(t *testing.T) {
	ctx := context.Background()

	t.Run("first purchase creates a ledger and logs it", func(t *testing.T) {
		// --- Arrange ---
		credits := NewMockCreditRepo()
		acts := NewMockActivityRepo()
		uc := newCreditUC(credits, acts, false)

		// --- Act ---
		ledger, err := uc.PurchasePlan(ctx, "user-1", "standard")

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if ledger.RemainingCredits != 5 || ledger.FreeSessionsRemaining != 2 {
			t.Errorf("ledger = %d credits / %d free, want 5 / 2", ledger.RemainingCredits, ledger.FreeSessionsRemaining)
		}
		entries := acts.ForUser("user-1")
		if len(entries) != 1 {
			t.Fatalf("want 1 activity entry, got %d", len(entries))
		}
		if entries[0].Kind != model.ActivityKindPurchase || entries[0].CreditsChange != 5 {
			t.Errorf("purchase activity mismatch: %+v", entries[0])
		}
		if entries[0].ID == "" {
			t.Error("activity id should be assigned")
		}
	})

	t.Run("repeat purchase resets rather than accumulates", func(t *testing.T) {
		// --- Arrange ---
		credits := NewMockCreditRepo()
		acts := NewMockActivityRepo()
		uc := newCreditUC(credits, acts, false)
		seedLedger(t, credits, "user-1", 3, 0)

		// --- Act ---
		ledger, err := uc.PurchasePlan(ctx, "user-1", "pro")

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if ledger.RemainingCredits != 12 {
			t.Errorf("remaining = %d, want plan's 12 with the leftover 3 dropped", ledger.RemainingCredits)
		}
		if ledger.PlanType != "pro" {
			t.Errorf("plan type = %q, want pro", ledger.PlanType)
		}
		if ledger.FreeSessionsRemaining != 2 {
			t.Errorf("free sessions = %d, want refreshed to 2", ledger.FreeSessionsRemaining)
		}
	})

	t.Run("accumulate mode carries the unused balance", func(t *testing.T) {
		// --- Arrange ---
		credits := NewMockCreditRepo()
		uc := newCreditUC(credits, NewMockActivityRepo(), true)
		seedLedger(t, credits, "user-1", 3, 0)

		// --- Act ---
		ledger, err := uc.PurchasePlan(ctx, "user-1", "pro")

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if ledger.RemainingCredits != 15 {
			t.Errorf("remaining = %d, want 12 new + 3 carried = 15", ledger.RemainingCredits)
		}
	})

	t.Run("unknown plan is rejected before any writes", func(t *testing.T) {
		// --- Arrange ---
		credits := NewMockCreditRepo()
		uc := newCreditUC(credits, NewMockActivityRepo(), false)

		// --- Act ---
		_, err := uc.PurchasePlan(ctx, "user-1", "enterprise")

		// --- Assert ---
		if !errors.Is(err, domain.ErrInvalidPlan) {
			t.Fatalf("got %v, want ErrInvalidPlan", err)
		}
		if _, err := credits.FindByUser(ctx, repository.NoTX, "user-1"); !errors.Is(err, domain.ErrNotFound) {
			t.Error("no ledger should be created for an unknown plan")
		}
	})

	t.Run("failed activity append rolls the grant back", func(t *testing.T) {
		// --- Arrange ---
		credits := NewMockCreditRepo()
		acts := NewMockActivityRepo()
		acts.AppendFunc = func(ctx context.Context, tx repository.Tx, a *model.CreditActivity) (string, error) {
			return "", domain.ErrOperationFailed
		}
		planUC := usecase.NewPlanUseCase(NewMockPlanRepo(), newTestLogger())
		txm := NewMockTxManager()
		var rolledBack bool
		txm.WithTxFunc = func(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
			if err := fn(ctx, repository.NoTX); err != nil {
				rolledBack = true
				return err
			}
			return nil
		}
		uc := usecase.NewCreditUseCase(credits, acts, planUC, txm, NewMockLocker(), false, newTestLogger())

		// --- Act ---
		_, err := uc.PurchasePlan(ctx, "user-1", "standard")

		// --- Assert ---
		if err == nil {
			t.Fatal("expected the purchase to fail when its activity cannot be logged")
		}
		if !rolledBack {
			t.Error("transaction should have been aborted")
		}
	})
}

func TestCreditUseCase_CheckEntitlement(t *testing.T) {
	ctx := context.Background()

	t.Run("no ledger reads as not entitled", func(t *testing.T) {
		uc := newCreditUC(NewMockCreditRepo(), NewMockActivityRepo(), false)
		ent := uc.CheckEntitlement(ctx, "user-1", 1)
		if ent.Valid || ent.HasFreeSession {
			t.Errorf("got %+v, want all false", ent)
		}
	})

	t.Run("storage failure fails closed", func(t *testing.T) {
		credits := NewMockCreditRepo()
		credits.FindByUserFunc = func(ctx context.Context, tx repository.Tx, userID string) (*model.UserCredit, error) {
			return nil, domain.ErrOperationFailed
		}
		uc := newCreditUC(credits, NewMockActivityRepo(), false)
		if ent := uc.CheckEntitlement(ctx, "user-1", 1); ent.Valid {
			t.Error("a read failure must deny, not grant")
		}
	})

	t.Run("expired grant denies despite positive balance", func(t *testing.T) {
		credits := NewMockCreditRepo()
		c := seedLedger(t, credits, "user-1", 5, 2)
		c.ExpirationDate = time.Now().Add(-time.Minute)
		_ = credits.Save(ctx, repository.NoTX, c)

		uc := newCreditUC(credits, NewMockActivityRepo(), false)
		if ent := uc.CheckEntitlement(ctx, "user-1", 1); ent.Valid {
			t.Error("expired credits are not usable")
		}
	})

	t.Run("sufficient balance is entitled", func(t *testing.T) {
		credits := NewMockCreditRepo()
		seedLedger(t, credits, "user-1", 2, 0)
		uc := newCreditUC(credits, NewMockActivityRepo(), false)

		ent := uc.CheckEntitlement(ctx, "user-1", 2)
		if !ent.Valid || ent.HasFreeSession {
			t.Errorf("got %+v, want valid without free session", ent)
		}
	})

	t.Run("free session entitles even at zero balance", func(t *testing.T) {
		credits := NewMockCreditRepo()
		seedLedger(t, credits, "user-1", 0, 1)
		uc := newCreditUC(credits, NewMockActivityRepo(), false)

		ent := uc.CheckEntitlement(ctx, "user-1", 1)
		if !ent.Valid || !ent.HasFreeSession {
			t.Errorf("got %+v, want valid via free session", ent)
		}
	})
}

func TestCreditUseCase_ConsumeCredits(t *testing.T) {
	ctx := context.Background()

	t.Run("debits the ledger and logs the session", func(t *testing.T) {
		// --- Arrange ---
		credits := NewMockCreditRepo()
		acts := NewMockActivityRepo()
		seedLedger(t, credits, "user-1", 5, 2)
		uc := newCreditUC(credits, acts, false)

		// --- Act ---
		ok := uc.ConsumeCredits(ctx, "user-1", "int-7", 1, 37)

		// --- Assert ---
		if !ok {
			t.Fatal("expected the debit to succeed")
		}
		ledger, _ := credits.FindByUser(ctx, repository.NoTX, "user-1")
		if ledger.RemainingCredits != 4 {
			t.Errorf("remaining = %d, want 4", ledger.RemainingCredits)
		}
		if ledger.MinutesUsed != 37 {
			t.Errorf("minutes used = %v, want 37", ledger.MinutesUsed)
		}
		entries := acts.ForUser("user-1")
		if len(entries) != 1 || entries[0].Kind != model.ActivityKindInterview {
			t.Fatalf("want one interview activity, got %+v", entries)
		}
		if entries[0].CreditsChange != -1 {
			t.Errorf("credits change = %d, want -1", entries[0].CreditsChange)
		}
		if entries[0].InterviewID == nil || *entries[0].InterviewID != "int-7" {
			t.Errorf("interview id = %v", entries[0].InterviewID)
		}
	})

	t.Run("insufficient balance leaves the ledger untouched", func(t *testing.T) {
		// --- Arrange ---
		credits := NewMockCreditRepo()
		acts := NewMockActivityRepo()
		seedLedger(t, credits, "user-1", 1, 0)
		uc := newCreditUC(credits, acts, false)

		// --- Act ---
		ok := uc.ConsumeCredits(ctx, "user-1", "int-7", 2, 60)

		// --- Assert ---
		if ok {
			t.Fatal("expected the debit to be refused")
		}
		ledger, _ := credits.FindByUser(ctx, repository.NoTX, "user-1")
		if ledger.RemainingCredits != 1 || ledger.MinutesUsed != 0 {
			t.Errorf("ledger mutated on refusal: %+v", ledger)
		}
		if len(acts.ForUser("user-1")) != 0 {
			t.Error("no activity should be logged for a refused debit")
		}
	})

	t.Run("a debit overrunning the minutes budget is refused", func(t *testing.T) {
		// --- Arrange ---
		credits := NewMockCreditRepo()
		acts := NewMockActivityRepo()
		seedLedger(t, credits, "user-1", 5, 0) // 225 total minutes
		uc := newCreditUC(credits, acts, false)

		// --- Act ---
		ok := uc.ConsumeCredits(ctx, "user-1", "int-9", 1, 10000)

		// --- Assert ---
		if ok {
			t.Fatal("a 10000-minute debit against a 225-minute budget must be refused")
		}
		ledger, _ := credits.FindByUser(ctx, repository.NoTX, "user-1")
		if ledger.RemainingCredits != 5 || ledger.MinutesUsed != 0 {
			t.Errorf("ledger mutated on refusal: %+v", ledger)
		}
		if len(acts.ForUser("user-1")) != 0 {
			t.Error("no activity should be logged for a refused debit")
		}
	})

	t.Run("a debit landing exactly on the minutes budget succeeds", func(t *testing.T) {
		credits := NewMockCreditRepo()
		seedLedger(t, credits, "user-1", 5, 0)
		uc := newCreditUC(credits, NewMockActivityRepo(), false)

		if !uc.ConsumeCredits(ctx, "user-1", "int-10", 1, 225) {
			t.Fatal("consuming the full remaining budget is allowed")
		}
		ledger, _ := credits.FindByUser(ctx, repository.NoTX, "user-1")
		if ledger.MinutesUsed != ledger.TotalMinutes {
			t.Errorf("minutes used = %v, want the full %v", ledger.MinutesUsed, ledger.TotalMinutes)
		}
		if uc.ConsumeCredits(ctx, "user-1", "int-11", 1, 1) {
			t.Error("the budget is exhausted, a further minute must be refused")
		}
	})

	t.Run("rejects non-positive credits and missing user", func(t *testing.T) {
		credits := NewMockCreditRepo()
		seedLedger(t, credits, "user-1", 5, 0)
		uc := newCreditUC(credits, NewMockActivityRepo(), false)

		if uc.ConsumeCredits(ctx, "user-1", "int-1", 0, 10) {
			t.Error("zero credits must be refused")
		}
		if uc.ConsumeCredits(ctx, "", "int-1", 1, 10) {
			t.Error("missing user must be refused")
		}
		if uc.ConsumeCredits(ctx, "user-1", "int-1", 1, -5) {
			t.Error("negative minutes must be refused")
		}
	})

	t.Run("two racing consumers of the last credit: exactly one wins", func(t *testing.T) {
		// --- Arrange ---
		credits := NewMockCreditRepo()
		seedLedger(t, credits, "user-1", 1, 0)
		uc := newCreditUC(credits, NewMockActivityRepo(), false)

		// --- Act ---
		var wg sync.WaitGroup
		results := make([]bool, 2)
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i] = uc.ConsumeCredits(ctx, "user-1", "int-race", 1, 30)
			}(i)
		}
		wg.Wait()

		// --- Assert ---
		if results[0] == results[1] {
			t.Fatalf("want exactly one winner, got %v and %v", results[0], results[1])
		}
		ledger, _ := credits.FindByUser(ctx, repository.NoTX, "user-1")
		if ledger.RemainingCredits != 0 {
			t.Errorf("remaining = %d, want 0 and never negative", ledger.RemainingCredits)
		}
	})
}

func TestCreditUseCase_ConsumeFreeSession(t *testing.T) {
	ctx := context.Background()

	t.Run("spends one free session and logs it", func(t *testing.T) {
		// --- Arrange ---
		credits := NewMockCreditRepo()
		acts := NewMockActivityRepo()
		seedLedger(t, credits, "user-1", 5, 2)
		uc := newCreditUC(credits, acts, false)

		// --- Act ---
		ok := uc.ConsumeFreeSession(ctx, "user-1")

		// --- Assert ---
		if !ok {
			t.Fatal("expected the free session to be spent")
		}
		ledger, _ := credits.FindByUser(ctx, repository.NoTX, "user-1")
		if ledger.FreeSessionsRemaining != 1 {
			t.Errorf("free sessions = %d, want 1", ledger.FreeSessionsRemaining)
		}
		if ledger.RemainingCredits != 5 {
			t.Errorf("credits must be untouched, got %d", ledger.RemainingCredits)
		}
		entries := acts.ForUser("user-1")
		if len(entries) != 1 || entries[0].Description != "Free interview session used (1 remaining)" {
			t.Fatalf("free session activity mismatch: %+v", entries)
		}
	})

	t.Run("refuses when none remain", func(t *testing.T) {
		credits := NewMockCreditRepo()
		seedLedger(t, credits, "user-1", 5, 0)
		uc := newCreditUC(credits, NewMockActivityRepo(), false)

		if uc.ConsumeFreeSession(ctx, "user-1") {
			t.Error("no free sessions left, must refuse")
		}
	})

	t.Run("refuses without a ledger", func(t *testing.T) {
		uc := newCreditUC(NewMockCreditRepo(), NewMockActivityRepo(), false)
		if uc.ConsumeFreeSession(ctx, "user-1") {
			t.Error("missing ledger must refuse")
		}
	})
}

func TestCreditUseCase_RecentActivity(t *testing.T) {
	ctx := context.Background()

	t.Run("returns newest first with a default limit", func(t *testing.T) {
		// --- Arrange ---
		credits := NewMockCreditRepo()
		acts := NewMockActivityRepo()
		seedLedger(t, credits, "user-1", 50, 0)
		uc := newCreditUC(credits, acts, false)
		for i := 0; i < 12; i++ {
			if !uc.ConsumeCredits(ctx, "user-1", "int-seq", 1, 30) {
				t.Fatalf("seed debit %d failed", i)
			}
		}

		// --- Act ---
		got := uc.RecentActivity(ctx, "user-1", 0)

		// --- Assert ---
		if len(got) != 10 {
			t.Fatalf("default limit should cap at 10, got %d", len(got))
		}
		for i := 1; i < len(got); i++ {
			if got[i].Timestamp.After(got[i-1].Timestamp) {
				t.Fatal("entries should be newest first")
			}
		}
	})

	t.Run("caps an oversized limit", func(t *testing.T) {
		// --- Arrange ---
		acts := NewMockActivityRepo()
		var asked int
		acts.ListRecentFunc = func(ctx context.Context, tx repository.Tx, userID string, limit int) ([]*model.CreditActivity, error) {
			asked = limit
			return nil, nil
		}
		uc := newCreditUC(NewMockCreditRepo(), acts, false)

		// --- Act ---
		_ = uc.RecentActivity(ctx, "user-1", 5000)

		// --- Assert ---
		if asked != 100 {
			t.Errorf("storage was asked for %d entries, want the cap of 100", asked)
		}
	})

	t.Run("storage failure degrades to empty history", func(t *testing.T) {
		acts := NewMockActivityRepo()
		acts.ListRecentFunc = func(ctx context.Context, tx repository.Tx, userID string, limit int) ([]*model.CreditActivity, error) {
			return nil, domain.ErrOperationFailed
		}
		uc := newCreditUC(NewMockCreditRepo(), acts, false)

		if got := uc.RecentActivity(ctx, "user-1", 5); len(got) != 0 {
			t.Errorf("want empty history, got %d entries", len(got))
		}
	})
}

func TestCreditUseCase_ExpireOverdue(t *testing.T) {
	ctx := context.Background()

	t.Run("sweeps each expired ledger exactly once", func(t *testing.T) {
		// --- Arrange ---
		credits := NewMockCreditRepo()
		acts := NewMockActivityRepo()
		c := seedLedger(t, credits, "user-1", 3, 0)
		c.ExpirationDate = time.Now().Add(-time.Hour)
		_ = credits.Save(ctx, repository.NoTX, c)
		seedLedger(t, credits, "user-2", 3, 0) // still valid
		uc := newCreditUC(credits, acts, false)

		// --- Act ---
		first, err1 := uc.ExpireOverdue(ctx)
		second, err2 := uc.ExpireOverdue(ctx)

		// --- Assert ---
		if err1 != nil || err2 != nil {
			t.Fatalf("sweep errors: %v / %v", err1, err2)
		}
		if first != 1 {
			t.Errorf("first sweep = %d, want 1", first)
		}
		if second != 0 {
			t.Errorf("second sweep = %d, want 0 (already notified)", second)
		}
		entries := acts.ForUser("user-1")
		if len(entries) != 1 || entries[0].Kind != model.ActivityKindSystem {
			t.Fatalf("want one system activity, got %+v", entries)
		}
		if entries[0].Description != "Grant expired with 3 unused credits" {
			t.Errorf("description = %q", entries[0].Description)
		}
		if len(acts.ForUser("user-2")) != 0 {
			t.Error("unexpired ledgers must not be swept")
		}
	})
}
