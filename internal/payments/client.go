package payments

import (
	"context"
	"errors"
)

// IntentClient creates payment intents with the external processor. Amounts
// are in minor units (cents); the client secret is handed to the payer's
// browser, the intent ID is ours to keep.
type IntentClient interface {
	CreateIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (clientSecret, intentID string, err error)
}

// PlaceholderClient rejects every intent; used when no processor key is
// configured.
type PlaceholderClient struct{}

func (PlaceholderClient) CreateIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (string, string, error) {
	_ = ctx
	_ = amountMinor
	_ = currency
	_ = metadata
	return "", "", errors.New("payment client not configured")
}
