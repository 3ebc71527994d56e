package contracts

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a contract. Signed and expired are
// terminal; expired is derived from the expiry timestamp at read time and is
// never required to be stored.
type Status string

const (
	StatusPending Status = "pending"
	StatusSigned  Status = "signed"
	StatusExpired Status = "expired"
)

// PaymentStatus tracks the payment sub-flow for contracts that require one.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// Currencies accepted for payment-gated contracts.
var AllowedCurrencies = map[string]struct{}{
	"USD": {},
	"EUR": {},
	"GBP": {},
	"INR": {},
}

// EmailStatus records the outcome of the latest invitation send attempt.
type EmailStatus struct {
	Sent   bool
	SentAt *time.Time
	Error  string
}

// Contract is an agreement sent to a recipient for signature. The signing key
// is the only credential a recipient ever presents; it is unique and
// immutable once minted.
type Contract struct {
	ID             string
	OwnerID        string
	Title          string
	Description    string
	RecipientEmail string
	SigningKey     string

	OriginalKey string
	SignedKey   string

	Status    Status
	ExpiresAt time.Time
	SignedAt  *time.Time
	CreatedAt time.Time

	RequirePayment     bool
	PaymentAmount      decimal.Decimal
	PaymentCurrency    string
	PaymentDescription string
	PaymentStatus      PaymentStatus
	PaymentIntentID    string

	EmailStatus EmailStatus
}

// EffectiveStatus derives the externally visible status at a given instant.
// A stored pending contract past its expiry reads as expired without any
// background sweep.
func (c Contract) EffectiveStatus(now time.Time) Status {
	if c.Status == StatusPending && !c.ExpiresAt.After(now) {
		return StatusExpired
	}
	return c.Status
}

// DocumentKey returns the storage key served for this contract: the signed
// artifact once present, the original otherwise.
func (c Contract) DocumentKey() string {
	if c.SignedKey != "" {
		return c.SignedKey
	}
	return c.OriginalKey
}

// PaymentSettled reports whether document release is unblocked by payment.
func (c Contract) PaymentSettled() bool {
	return !c.RequirePayment || c.PaymentStatus == PaymentCompleted
}
