package payment

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"interview-ai-credits/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*NoopGateway)(nil)

// NoopGateway fakes a payment provider for local development. Every checkout
// succeeds immediately; the returned URL points at the confirmation callback
// so a browser visit completes the purchase.
type NoopGateway struct {
	callbackURL string
}

func NewNoopGateway(callbackURL string) *NoopGateway {
	return &NoopGateway{callbackURL: callbackURL}
}

func (g *NoopGateway) Name() string { return "noop" }

func (g *NoopGateway) RequestCheckout(ctx context.Context, amountCents int64, description, callbackURL string) (string, string, error) {
	reference := uuid.NewString()
	payURL := fmt.Sprintf("%s?reference=%s&status=OK", g.callbackURL, reference)
	return reference, payURL, nil
}
