package adapter

import "context"

// PaymentGateway abstracts the external payment-link provider. The core never
// verifies payment itself; it trusts the provider's confirmation callback.
type PaymentGateway interface {
	Name() string

	// RequestCheckout registers a checkout for the given amount and returns
	// the provider reference plus a URL the buyer completes payment at.
	RequestCheckout(ctx context.Context, amountCents int64, description, callbackURL string) (reference, payURL string, err error)
}
