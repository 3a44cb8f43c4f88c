//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"interview-ai-credits/internal/domain"
	"interview-ai-credits/internal/domain/model"
	"interview-ai-credits/internal/domain/ports/adapter"
	"interview-ai-credits/internal/domain/ports/repository"
)

// =============================
// Repositories
// =============================

// ---- Mock CreditPlanRepository ----

type MockPlanRepo struct {
	mu   sync.RWMutex
	byID map[string]*model.CreditPlan

	SaveFunc     func(ctx context.Context, tx repository.Tx, p *model.CreditPlan) error
	FindByIDFunc func(ctx context.Context, tx repository.Tx, id string) (*model.CreditPlan, error)
	ListAllFunc  func(ctx context.Context, tx repository.Tx) ([]*model.CreditPlan, error)
}

var _ repository.CreditPlanRepository = (*MockPlanRepo)(nil)

func NewMockPlanRepo() *MockPlanRepo {
	return &MockPlanRepo{byID: map[string]*model.CreditPlan{}}
}

func (m *MockPlanRepo) Save(ctx context.Context, tx repository.Tx, p *model.CreditPlan) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.byID[p.ID] = &cp
	return nil
}

func (m *MockPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.CreditPlan, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, tx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MockPlanRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.CreditPlan, error) {
	if m.ListAllFunc != nil {
		return m.ListAllFunc(ctx, tx)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.CreditPlan, 0, len(m.byID))
	for _, p := range m.byID {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MockPlanRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, id)
	return nil
}

// ---- Mock UserCreditRepository ----

// MockCreditRepo keeps ledgers in memory and performs the conditional debits
// under one mutex, mirroring the storage guarantee that of two racing
// consumers of the last credits exactly one succeeds.
type MockCreditRepo struct {
	mu     sync.Mutex
	byUser map[string]*model.UserCredit

	SaveFunc           func(ctx context.Context, tx repository.Tx, c *model.UserCredit) error
	FindByUserFunc     func(ctx context.Context, tx repository.Tx, userID string) (*model.UserCredit, error)
	ConsumeCreditsFunc func(ctx context.Context, tx repository.Tx, userID string, credits int, minutes float64) (*model.UserCredit, error)
}

var _ repository.UserCreditRepository = (*MockCreditRepo)(nil)

func NewMockCreditRepo() *MockCreditRepo {
	return &MockCreditRepo{byUser: map[string]*model.UserCredit{}}
}

func (m *MockCreditRepo) Save(ctx context.Context, tx repository.Tx, c *model.UserCredit) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, c)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.byUser[c.UserID] = &cp
	return nil
}

func (m *MockCreditRepo) FindByUser(ctx context.Context, tx repository.Tx, userID string) (*model.UserCredit, error) {
	if m.FindByUserFunc != nil {
		return m.FindByUserFunc(ctx, tx, userID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byUser[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *MockCreditRepo) ConsumeCredits(ctx context.Context, tx repository.Tx, userID string, credits int, minutes float64) (*model.UserCredit, error) {
	if m.ConsumeCreditsFunc != nil {
		return m.ConsumeCreditsFunc(ctx, tx, userID, credits, minutes)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byUser[userID]
	if !ok || c.RemainingCredits < credits || c.MinutesUsed+minutes > c.TotalMinutes || c.ExpiredAt(time.Now()) {
		return nil, domain.ErrInsufficientCredits
	}
	c.RemainingCredits -= credits
	c.MinutesUsed += minutes
	cp := *c
	return &cp, nil
}

func (m *MockCreditRepo) ConsumeFreeSession(ctx context.Context, tx repository.Tx, userID string) (*model.UserCredit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byUser[userID]
	if !ok || c.FreeSessionsRemaining <= 0 || c.ExpiredAt(time.Now()) {
		return nil, domain.ErrNoFreeSessions
	}
	c.FreeSessionsRemaining--
	cp := *c
	return &cp, nil
}

func (m *MockCreditRepo) FindExpiredUnnotified(ctx context.Context, tx repository.Tx, asOf time.Time) ([]*model.UserCredit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.UserCredit
	for _, c := range m.byUser {
		if c.ExpiredAt(asOf) && c.ExpiryNotifiedAt == nil && (c.RemainingCredits > 0 || c.FreeSessionsRemaining > 0) {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockCreditRepo) MarkExpiryNotified(ctx context.Context, tx repository.Tx, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.byUser {
		if c.ID == id && c.ExpiryNotifiedAt == nil {
			stamp := at
			c.ExpiryNotifiedAt = &stamp
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *MockCreditRepo) TotalRemainingCredits(ctx context.Context, tx repository.Tx) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	now := time.Now()
	for _, c := range m.byUser {
		if !c.ExpiredAt(now) {
			n += int64(c.RemainingCredits)
		}
	}
	return n, nil
}

// ---- Mock CreditActivityRepository ----

type MockActivityRepo struct {
	mu      sync.Mutex
	entries []*model.CreditActivity
	seq     int

	AppendFunc     func(ctx context.Context, tx repository.Tx, a *model.CreditActivity) (string, error)
	ListRecentFunc func(ctx context.Context, tx repository.Tx, userID string, limit int) ([]*model.CreditActivity, error)
}

var _ repository.CreditActivityRepository = (*MockActivityRepo)(nil)

func NewMockActivityRepo() *MockActivityRepo {
	return &MockActivityRepo{}
}

func (m *MockActivityRepo) Append(ctx context.Context, tx repository.Tx, a *model.CreditActivity) (string, error) {
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, tx, a)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	cp := *a
	if cp.ID == "" {
		cp.ID = fmt.Sprintf("act-%04d", m.seq)
	}
	m.entries = append(m.entries, &cp)
	return cp.ID, nil
}

func (m *MockActivityRepo) ListRecent(ctx context.Context, tx repository.Tx, userID string, limit int) ([]*model.CreditActivity, error) {
	if m.ListRecentFunc != nil {
		return m.ListRecentFunc(ctx, tx, userID, limit)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.CreditActivity
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if m.entries[i].UserID == userID {
			cp := *m.entries[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockActivityRepo) CountByUser(ctx context.Context, tx repository.Tx, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range m.entries {
		if a.UserID == userID {
			n++
		}
	}
	return n, nil
}

// ForUser returns this user's entries oldest-first, for assertions.
func (m *MockActivityRepo) ForUser(userID string) []*model.CreditActivity {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.CreditActivity
	for _, a := range m.entries {
		if a.UserID == userID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out
}

// ---- Mock PurchaseRepository ----

type MockPurchaseRepo struct {
	mu   sync.Mutex
	byID map[string]*model.Purchase

	SaveFunc         func(ctx context.Context, tx repository.Tx, p *model.Purchase) error
	UpdateStatusFunc func(ctx context.Context, tx repository.Tx, id string, status model.PurchaseStatus, confirmedAt *time.Time) error
}

var _ repository.PurchaseRepository = (*MockPurchaseRepo)(nil)

func NewMockPurchaseRepo() *MockPurchaseRepo {
	return &MockPurchaseRepo{byID: map[string]*model.Purchase{}}
}

func (m *MockPurchaseRepo) Save(ctx context.Context, tx repository.Tx, p *model.Purchase) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.byID[p.ID] = &cp
	return nil
}

func (m *MockPurchaseRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Purchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MockPurchaseRepo) FindByReference(ctx context.Context, tx repository.Tx, reference string) (*model.Purchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.byID {
		if p.Reference == reference {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockPurchaseRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, status model.PurchaseStatus, confirmedAt *time.Time) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, tx, id, status, confirmedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Status = status
	p.UpdatedAt = time.Now()
	if confirmedAt != nil {
		p.ConfirmedAt = confirmedAt
	}
	return nil
}

func (m *MockPurchaseRepo) ConfirmPending(ctx context.Context, tx repository.Tx, id string, confirmedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok || p.Status != model.PurchaseStatusPending {
		return domain.ErrNotFound
	}
	p.Status = model.PurchaseStatusConfirmed
	at := confirmedAt
	p.ConfirmedAt = &at
	p.UpdatedAt = time.Now()
	return nil
}

func (m *MockPurchaseRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.PurchaseStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[model.PurchaseStatus]int{}
	for _, p := range m.byID {
		out[p.Status]++
	}
	return out, nil
}

// =============================
// Adapters
// =============================

// ---- Mock PaymentGateway ----

type MockGateway struct {
	mu       sync.Mutex
	Requests []int64

	RequestCheckoutFunc func(ctx context.Context, amountCents int64, description, callbackURL string) (string, string, error)
}

var _ adapter.PaymentGateway = (*MockGateway)(nil)

func (g *MockGateway) Name() string { return "mock" }

func (g *MockGateway) RequestCheckout(ctx context.Context, amountCents int64, description, callbackURL string) (string, string, error) {
	g.mu.Lock()
	g.Requests = append(g.Requests, amountCents)
	g.mu.Unlock()
	if g.RequestCheckoutFunc != nil {
		return g.RequestCheckoutFunc(ctx, amountCents, description, callbackURL)
	}
	ref := uuid.NewString()
	return ref, "https://pay.example/checkout/" + ref, nil
}

// =============================
// Infra helpers for tests
// =============================

// ---- Mock TransactionManager ----

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func NewMockTxManager() *MockTxManager {
	return &MockTxManager{}
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

// WithTx runs the function immediately with NoTX by default; assign WithTxFunc
// for tests that verify transactional behavior.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}

// ---- In-memory Locker ----

type MockLocker struct {
	mu    sync.Mutex
	held  map[string]string
	ErrOn map[string]error
}

func NewMockLocker() *MockLocker {
	return &MockLocker{held: map[string]string{}, ErrOn: map[string]error{}}
}

func (l *MockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err, bad := l.ErrOn[key]; bad {
		return "", err
	}
	if tok, ok := l.held[key]; ok && tok != "" {
		return "", errors.New("locked")
	}
	tok := uuid.NewString()
	l.held[key] = tok
	return tok, nil
}

func (l *MockLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
		return nil
	}
	return errors.New("unlock token mismatch")
}

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}
