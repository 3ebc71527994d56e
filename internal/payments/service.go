package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/akash-limitlessglobaltechnologies/contract/internal/contracts"
)

var minorUnitFactor = decimal.NewFromInt(100)

// Service runs the payment sub-flow for contracts that require one. It never
// touches contract status; only the payment sub-record.
type Service struct {
	Repo   contracts.Repo
	Client IntentClient
}

// CreateIntent delegates to the payment processor using the amount and
// currency stored on the contract. Contract state is not mutated; the intent
// only becomes meaningful once Complete reports it back.
func (s *Service) CreateIntent(ctx context.Context, contractID string) (string, error) {
	c, err := s.Repo.Get(ctx, contractID)
	if err != nil {
		return "", err
	}
	if !c.RequirePayment {
		return "", fmt.Errorf("%w: contract does not require payment", contracts.ErrInvalidInput)
	}

	amountMinor := c.PaymentAmount.Mul(minorUnitFactor).Round(0).IntPart()
	currency := strings.ToLower(c.PaymentCurrency)

	clientSecret, _, err := s.Client.CreateIntent(ctx, amountMinor, currency, map[string]string{
		"contractId": c.ID,
	})
	if err != nil {
		return "", errors.Join(contracts.ErrUpstream, err)
	}
	return clientSecret, nil
}

// Complete records a successful payment reported by the payer's client.
// Idempotent by intent reference: repeating a completed intent is a no-op,
// and a different reference can never overwrite a completed payment.
func (s *Service) Complete(ctx context.Context, contractID, intentRef string) (contracts.Contract, error) {
	if strings.TrimSpace(intentRef) == "" {
		return contracts.Contract{}, fmt.Errorf("%w: payment intent reference is required", contracts.ErrInvalidInput)
	}

	c, err := s.Repo.Get(ctx, contractID)
	if err != nil {
		return contracts.Contract{}, err
	}
	if !c.RequirePayment {
		return contracts.Contract{}, fmt.Errorf("%w: contract does not require payment", contracts.ErrInvalidInput)
	}

	if c.PaymentStatus == contracts.PaymentCompleted {
		if c.PaymentIntentID == intentRef {
			return c, nil
		}
		return contracts.Contract{}, contracts.ErrConflict
	}

	if err := s.Repo.RecordPayment(ctx, c.ID, contracts.PaymentCompleted, intentRef); err != nil {
		return contracts.Contract{}, err
	}

	c.PaymentStatus = contracts.PaymentCompleted
	c.PaymentIntentID = intentRef
	return c, nil
}
