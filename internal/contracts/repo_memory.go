package contracts

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo for dev and tests.
type MemoryRepo struct {
	mu    sync.RWMutex
	byID  map[string]Contract
	byKey map[string]string // signing key -> id
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:  make(map[string]Contract),
		byKey: make(map[string]string),
	}
}

// Create stores a new contract. Signing keys are unique.
func (r *MemoryRepo) Create(ctx context.Context, c Contract) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byKey[c.SigningKey]; exists {
		return ErrConflict
	}
	r.byID[c.ID] = c
	r.byKey[c.SigningKey] = c.ID
	return nil
}

// ListByOwner returns the owner's contracts, newest first.
func (r *MemoryRepo) ListByOwner(ctx context.Context, ownerID string) ([]Contract, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Contract, 0)
	for _, c := range r.byID {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// GetOwned returns the contract only if owned by ownerID.
func (r *MemoryRepo) GetOwned(ctx context.Context, ownerID, id string) (Contract, error) {
	c, err := r.Get(ctx, id)
	if err != nil {
		return Contract{}, err
	}
	if c.OwnerID != ownerID {
		return Contract{}, ErrNotFound
	}
	return c, nil
}

// Get fetches by id without ownership scoping.
func (r *MemoryRepo) Get(ctx context.Context, id string) (Contract, error) {
	if err := ctx.Err(); err != nil {
		return Contract{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byID[id]
	if !ok {
		return Contract{}, ErrNotFound
	}
	return c, nil
}

// GetBySigningKey returns the contract for a signing key regardless of status.
func (r *MemoryRepo) GetBySigningKey(ctx context.Context, key string) (Contract, error) {
	if err := ctx.Err(); err != nil {
		return Contract{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byKey[key]
	if !ok {
		return Contract{}, ErrNotFound
	}
	return r.byID[id], nil
}

// MarkSigned flips pending -> signed under the lock; losers get ErrConflict.
func (r *MemoryRepo) MarkSigned(ctx context.Context, id, signedKey string, signedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	if c.Status != StatusPending {
		return ErrConflict
	}
	c.Status = StatusSigned
	c.SignedKey = signedKey
	t := signedAt
	c.SignedAt = &t
	r.byID[id] = c
	return nil
}

// RecordPayment updates the payment sub-record only.
func (r *MemoryRepo) RecordPayment(ctx context.Context, id string, status PaymentStatus, intentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	c.PaymentStatus = status
	c.PaymentIntentID = intentID
	r.byID[id] = c
	return nil
}

// UpdateEmailStatus overwrites the notification record.
func (r *MemoryRepo) UpdateEmailStatus(ctx context.Context, id string, status EmailStatus) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	c.EmailStatus = status
	r.byID[id] = c
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
