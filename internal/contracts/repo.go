package contracts

import (
	"context"
	"time"
)

// Repo defines persistence operations for contracts. Status and payment
// invariants that require atomicity live here; everything else is the
// service's job.
type Repo interface {
	Create(ctx context.Context, c Contract) error

	// ListByOwner returns the owner's contracts, newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]Contract, error)

	// GetOwned returns the contract only if owned by ownerID; an ownership
	// mismatch behaves as ErrNotFound.
	GetOwned(ctx context.Context, ownerID, id string) (Contract, error)

	// Get fetches by id without ownership scoping. Internal callers only
	// (payment flow, document fetch by key pair).
	Get(ctx context.Context, id string) (Contract, error)

	// GetBySigningKey returns the contract regardless of status; status
	// filtering is the guard's job.
	GetBySigningKey(ctx context.Context, key string) (Contract, error)

	// MarkSigned performs the atomic pending -> signed transition. It fails
	// with ErrConflict if the contract is no longer pending, so exactly one
	// of any set of racing sign attempts succeeds.
	MarkSigned(ctx context.Context, id, signedKey string, signedAt time.Time) error

	// RecordPayment updates the payment sub-record only.
	RecordPayment(ctx context.Context, id string, status PaymentStatus, intentID string) error

	// UpdateEmailStatus overwrites the notification record.
	UpdateEmailStatus(ctx context.Context, id string, status EmailStatus) error
}
