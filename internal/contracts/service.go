package contracts

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/akash-limitlessglobaltechnologies/contract/internal/shared/storage/object"
	"github.com/akash-limitlessglobaltechnologies/contract/internal/shared/telemetry"
)

// Notifier delivers the recipient-facing invitation. Implementations own the
// signing-link format and the retry policy; the lifecycle engine only decides
// when to fire.
type Notifier interface {
	ContractInvite(ctx context.Context, recipientEmail, title, signingKey string) error
}

// Service is the contract lifecycle engine.
type Service struct {
	Repo  Repo
	Store object.ObjectStore
	// Notifier may be nil; invitation failures are recorded on the contract
	// and never fail creation.
	Notifier Notifier
	Now      func() time.Time
}

// CreateSpec is the validated input for contract creation.
type CreateSpec struct {
	OwnerID        string
	Title          string
	Description    string
	RecipientEmail string
	ExpiresAt      time.Time

	FileName string
	File     io.Reader

	RequirePayment     bool
	PaymentAmount      decimal.Decimal
	PaymentCurrency    string
	PaymentDescription string
}

// Validate rejects a spec that would violate the store invariants.
func (spec CreateSpec) Validate(now time.Time) error {
	if strings.TrimSpace(spec.OwnerID) == "" {
		return fmt.Errorf("%w: owner is required", ErrInvalidInput)
	}
	if strings.TrimSpace(spec.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if spec.File == nil || strings.TrimSpace(spec.FileName) == "" {
		return fmt.Errorf("%w: pdf file is required", ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(spec.RecipientEmail); err != nil {
		return fmt.Errorf("%w: recipient email is invalid", ErrInvalidInput)
	}
	if !spec.ExpiresAt.After(now) {
		return fmt.Errorf("%w: expiry must be in the future", ErrInvalidInput)
	}
	if spec.RequirePayment {
		if !spec.PaymentAmount.IsPositive() {
			return fmt.Errorf("%w: payment amount must be positive", ErrInvalidInput)
		}
		if _, ok := AllowedCurrencies[spec.PaymentCurrency]; !ok {
			return fmt.Errorf("%w: unsupported payment currency", ErrInvalidInput)
		}
	}
	return nil
}

// Create stores the document, mints the signing key, persists the contract as
// pending, and fires one best-effort invitation. An invitation failure is
// recorded on the contract for later resend; it never rolls back creation.
func (s *Service) Create(ctx context.Context, spec CreateSpec) (Contract, error) {
	now := s.now()
	if err := spec.Validate(now); err != nil {
		return Contract{}, err
	}

	originalKey, _, _, err := s.Store.Save(ctx, spec.OwnerID, spec.FileName, spec.File)
	if err != nil {
		return Contract{}, errors.Join(ErrUpstream, fmt.Errorf("store document: %w", err))
	}

	signingKey, err := NewSigningKey()
	if err != nil {
		return Contract{}, err
	}

	c := Contract{
		ID:             uuid.NewString(),
		OwnerID:        spec.OwnerID,
		Title:          strings.TrimSpace(spec.Title),
		Description:    strings.TrimSpace(spec.Description),
		RecipientEmail: spec.RecipientEmail,
		SigningKey:     signingKey,
		OriginalKey:    originalKey,
		Status:         StatusPending,
		ExpiresAt:      spec.ExpiresAt,
		CreatedAt:      now,
		RequirePayment: spec.RequirePayment,
		PaymentStatus:  PaymentPending,
	}
	if spec.RequirePayment {
		c.PaymentAmount = spec.PaymentAmount
		c.PaymentCurrency = spec.PaymentCurrency
		c.PaymentDescription = strings.TrimSpace(spec.PaymentDescription)
	}

	if err := s.Repo.Create(ctx, c); err != nil {
		return Contract{}, err
	}

	c.EmailStatus = s.sendInvite(ctx, c)
	return c, nil
}

// List returns the owner's contracts with derived statuses, newest first.
func (s *Service) List(ctx context.Context, ownerID string) ([]Contract, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, fmt.Errorf("%w: owner is required", ErrInvalidInput)
	}
	list, err := s.Repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	for i := range list {
		list[i].Status = list[i].EffectiveStatus(now)
	}
	return list, nil
}

// GetOwned returns one contract with derived status, scoped to the owner.
func (s *Service) GetOwned(ctx context.Context, ownerID, id string) (Contract, error) {
	c, err := s.Repo.GetOwned(ctx, ownerID, id)
	if err != nil {
		return Contract{}, err
	}
	c.Status = c.EffectiveStatus(s.now())
	return c, nil
}

// GetForSigning authorizes an anonymous signing-key bearer for display.
func (s *Service) GetForSigning(ctx context.Context, signingKey string) (Contract, error) {
	c, err := s.Repo.GetBySigningKey(ctx, signingKey)
	if err != nil {
		return Contract{}, err
	}
	if err := Authorize(c, s.now()); err != nil {
		return Contract{}, err
	}
	return c, nil
}

// Sign records the recipient's signature: the guard is re-run, the artifact
// is persisted first, and the pending -> signed flip is a single conditional
// write. A lost race surfaces as ErrAlreadySigned, never a silent success,
// and a storage failure leaves the contract pending and safe to retry.
func (s *Service) Sign(ctx context.Context, signingKey, signatureData string) (Contract, error) {
	c, err := s.Repo.GetBySigningKey(ctx, signingKey)
	if err != nil {
		return Contract{}, err
	}
	now := s.now()
	if err := Authorize(c, now); err != nil {
		return Contract{}, err
	}

	artifact, err := decodeSignature(signatureData)
	if err != nil {
		return Contract{}, err
	}

	suffix, err := randomHex(8)
	if err != nil {
		return Contract{}, err
	}
	signedKey := path.Join("signatures", c.ID, suffix+".png")

	if _, err := s.Store.SaveWithKey(ctx, signedKey, "image/png", bytes.NewReader(artifact)); err != nil {
		return Contract{}, errors.Join(ErrUpstream, fmt.Errorf("store signature: %w", err))
	}

	if err := s.Repo.MarkSigned(ctx, c.ID, signedKey, now); err != nil {
		if errors.Is(err, ErrConflict) {
			return Contract{}, ErrAlreadySigned
		}
		return Contract{}, err
	}

	c.Status = StatusSigned
	c.SignedKey = signedKey
	c.SignedAt = &now
	return c, nil
}

// OpenDocumentByKey serves document bytes to the bearer of the (id, signing
// key) pair. Release of a signed document is gated on payment completion;
// the gate is re-evaluated from contract state on every call.
func (s *Service) OpenDocumentByKey(ctx context.Context, id, signingKey string) (io.ReadCloser, Contract, error) {
	c, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, Contract{}, err
	}
	if c.SigningKey != signingKey {
		return nil, Contract{}, ErrNotFound
	}
	if c.Status == StatusSigned && !c.PaymentSettled() {
		return nil, Contract{}, ErrPaymentRequired
	}

	rc, err := s.Store.Open(ctx, c.DocumentKey())
	if err != nil {
		return nil, Contract{}, errors.Join(ErrUpstream, fmt.Errorf("open document: %w", err))
	}
	c.Status = c.EffectiveStatus(s.now())
	return rc, c, nil
}

// OpenOwnerDocument serves document bytes to the owner. Owner access is never
// payment-gated.
func (s *Service) OpenOwnerDocument(ctx context.Context, ownerID, id string) (io.ReadCloser, Contract, error) {
	c, err := s.Repo.GetOwned(ctx, ownerID, id)
	if err != nil {
		return nil, Contract{}, err
	}
	rc, err := s.Store.Open(ctx, c.DocumentKey())
	if err != nil {
		return nil, Contract{}, errors.Join(ErrUpstream, fmt.Errorf("open document: %w", err))
	}
	c.Status = c.EffectiveStatus(s.now())
	return rc, c, nil
}

// ResendInvite re-attempts the invitation regardless of prior sends and
// overwrites the notification record. Unlike creation, the caller asked for
// this send, so a failure is surfaced.
func (s *Service) ResendInvite(ctx context.Context, ownerID, id string) (Contract, error) {
	c, err := s.Repo.GetOwned(ctx, ownerID, id)
	if err != nil {
		return Contract{}, err
	}

	c.EmailStatus = s.sendInvite(ctx, c)
	if !c.EmailStatus.Sent {
		return c, errors.Join(ErrUpstream, errors.New(c.EmailStatus.Error))
	}
	return c, nil
}

func (s *Service) sendInvite(ctx context.Context, c Contract) EmailStatus {
	var status EmailStatus
	if s.Notifier == nil {
		status = EmailStatus{Error: "email sender not configured"}
	} else if err := s.Notifier.ContractInvite(ctx, c.RecipientEmail, c.Title, c.SigningKey); err != nil {
		status = EmailStatus{Error: err.Error()}
		telemetry.Warn("contract.invite_failed", map[string]any{
			"contract_id": c.ID,
			"error":       err.Error(),
		})
	} else {
		now := s.now()
		status = EmailStatus{Sent: true, SentAt: &now}
	}

	if err := s.Repo.UpdateEmailStatus(ctx, c.ID, status); err != nil {
		telemetry.Error("contract.email_status_update_failed", map[string]any{
			"contract_id": c.ID,
			"error":       err.Error(),
		})
	}
	return status
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func decodeSignature(raw string) ([]byte, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, ErrInvalidSignature
	}
	// Accept data URLs ("data:image/png;base64,....") and bare base64.
	if idx := strings.Index(trimmed, ";base64,"); idx >= 0 {
		trimmed = trimmed[idx+len(";base64,"):]
	}
	artifact, err := base64.StdEncoding.DecodeString(trimmed)
	if err != nil || len(artifact) == 0 {
		return nil, ErrInvalidSignature
	}
	return artifact, nil
}
