package payments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/akash-limitlessglobaltechnologies/contract/internal/contracts"
)

type fakeIntentClient struct {
	calls    int
	amount   int64
	currency string
	metadata map[string]string
	err      error
}

func (f *fakeIntentClient) CreateIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (string, string, error) {
	f.calls++
	f.amount = amountMinor
	f.currency = currency
	f.metadata = metadata
	if f.err != nil {
		return "", "", f.err
	}
	return "cs_test_secret", "pi_test_1", nil
}

func seedContract(t *testing.T, repo contracts.Repo, requirePayment bool) contracts.Contract {
	t.Helper()
	c := contracts.Contract{
		ID:             "c-1",
		OwnerID:        "owner-1",
		Title:          "NDA",
		RecipientEmail: "sig@example.com",
		SigningKey:     "abcd1234abcd1234abcd1234abcd1234",
		OriginalKey:    "owner-1/nda.pdf",
		Status:         contracts.StatusPending,
		ExpiresAt:      time.Now().Add(24 * time.Hour),
		CreatedAt:      time.Now(),
		RequirePayment: requirePayment,
	}
	if requirePayment {
		c.PaymentAmount = decimal.RequireFromString("49.99")
		c.PaymentCurrency = "USD"
		c.PaymentStatus = contracts.PaymentPending
	}
	if err := repo.Create(context.Background(), c); err != nil {
		t.Fatalf("seed contract: %v", err)
	}
	return c
}

func TestCreateIntentUsesStoredAmount(t *testing.T) {
	repo := contracts.NewMemoryRepo()
	client := &fakeIntentClient{}
	svc := &Service{Repo: repo, Client: client}
	c := seedContract(t, repo, true)

	secret, err := svc.CreateIntent(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("CreateIntent: %v", err)
	}
	if secret != "cs_test_secret" {
		t.Errorf("client secret = %q", secret)
	}
	if client.amount != 4999 {
		t.Errorf("amount minor = %d, want 4999", client.amount)
	}
	if client.currency != "usd" {
		t.Errorf("currency = %q, want usd", client.currency)
	}
	if client.metadata["contractId"] != c.ID {
		t.Errorf("metadata contractId = %q", client.metadata["contractId"])
	}
}

func TestCreateIntentRejectsUnpaidContract(t *testing.T) {
	repo := contracts.NewMemoryRepo()
	svc := &Service{Repo: repo, Client: &fakeIntentClient{}}
	c := seedContract(t, repo, false)

	if _, err := svc.CreateIntent(context.Background(), c.ID); !errors.Is(err, contracts.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestCreateIntentWrapsClientFailure(t *testing.T) {
	repo := contracts.NewMemoryRepo()
	client := &fakeIntentClient{err: errors.New("stripe down")}
	svc := &Service{Repo: repo, Client: client}
	c := seedContract(t, repo, true)

	if _, err := svc.CreateIntent(context.Background(), c.ID); !errors.Is(err, contracts.ErrUpstream) {
		t.Fatalf("err = %v, want ErrUpstream", err)
	}
}

func TestCompleteRecordsPayment(t *testing.T) {
	repo := contracts.NewMemoryRepo()
	svc := &Service{Repo: repo, Client: &fakeIntentClient{}}
	c := seedContract(t, repo, true)

	got, err := svc.Complete(context.Background(), c.ID, "pi_test_1")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got.PaymentStatus != contracts.PaymentCompleted {
		t.Errorf("payment status = %q", got.PaymentStatus)
	}

	stored, err := repo.Get(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.PaymentStatus != contracts.PaymentCompleted || stored.PaymentIntentID != "pi_test_1" {
		t.Errorf("stored payment = %q/%q", stored.PaymentStatus, stored.PaymentIntentID)
	}
	if stored.Status != contracts.StatusPending {
		t.Errorf("contract status changed to %q", stored.Status)
	}
}

func TestCompleteIsIdempotentPerIntent(t *testing.T) {
	repo := contracts.NewMemoryRepo()
	svc := &Service{Repo: repo, Client: &fakeIntentClient{}}
	c := seedContract(t, repo, true)

	if _, err := svc.Complete(context.Background(), c.ID, "pi_test_1"); err != nil {
		t.Fatalf("first Complete: %v", err)
	}
	if _, err := svc.Complete(context.Background(), c.ID, "pi_test_1"); err != nil {
		t.Fatalf("repeat Complete: %v", err)
	}
	if _, err := svc.Complete(context.Background(), c.ID, "pi_other"); !errors.Is(err, contracts.ErrConflict) {
		t.Fatalf("conflicting Complete err = %v, want ErrConflict", err)
	}
}

func TestCompleteRequiresIntentReference(t *testing.T) {
	repo := contracts.NewMemoryRepo()
	svc := &Service{Repo: repo, Client: &fakeIntentClient{}}
	c := seedContract(t, repo, true)

	if _, err := svc.Complete(context.Background(), c.ID, "   "); !errors.Is(err, contracts.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}
