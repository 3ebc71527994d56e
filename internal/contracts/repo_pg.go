package contracts

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const contractColumns = `
id, owner_id, title, description, recipient_email, signing_key,
original_key, signed_key, status, expires_at, signed_at, created_at,
require_payment, payment_amount, payment_currency, payment_description,
payment_status, payment_intent_id, email_sent, email_sent_at, email_error`

// Create inserts a new contract.
func (r *PGRepo) Create(ctx context.Context, c Contract) error {
	const query = `
INSERT INTO contracts (
    id, owner_id, title, description, recipient_email, signing_key,
    original_key, signed_key, status, expires_at, signed_at, created_at,
    require_payment, payment_amount, payment_currency, payment_description,
    payment_status, payment_intent_id, email_sent, email_sent_at, email_error
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`

	var amount decimal.NullDecimal
	var currency sql.NullString
	if c.RequirePayment {
		amount = decimal.NullDecimal{Decimal: c.PaymentAmount, Valid: true}
		currency = sql.NullString{String: c.PaymentCurrency, Valid: true}
	}

	_, err := r.DB.ExecContext(
		ctx,
		query,
		c.ID,
		c.OwnerID,
		c.Title,
		c.Description,
		c.RecipientEmail,
		c.SigningKey,
		c.OriginalKey,
		nullString(c.SignedKey),
		string(c.Status),
		c.ExpiresAt,
		nullTime(c.SignedAt),
		c.CreatedAt,
		c.RequirePayment,
		amount,
		currency,
		c.PaymentDescription,
		string(c.PaymentStatus),
		nullString(c.PaymentIntentID),
		c.EmailStatus.Sent,
		nullTime(c.EmailStatus.SentAt),
		nullString(c.EmailStatus.Error),
	)
	return err
}

// ListByOwner returns the owner's contracts, newest first.
func (r *PGRepo) ListByOwner(ctx context.Context, ownerID string) ([]Contract, error) {
	query := `SELECT ` + contractColumns + `
FROM contracts
WHERE owner_id = $1
ORDER BY created_at DESC`

	rows, err := r.DB.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetOwned returns the contract only if owned by ownerID.
func (r *PGRepo) GetOwned(ctx context.Context, ownerID, id string) (Contract, error) {
	query := `SELECT ` + contractColumns + `
FROM contracts
WHERE id = $1 AND owner_id = $2
LIMIT 1`
	return r.getOne(ctx, query, id, ownerID)
}

// Get fetches by id without ownership scoping.
func (r *PGRepo) Get(ctx context.Context, id string) (Contract, error) {
	query := `SELECT ` + contractColumns + `
FROM contracts
WHERE id = $1
LIMIT 1`
	return r.getOne(ctx, query, id)
}

// GetBySigningKey returns the contract for a signing key regardless of status.
func (r *PGRepo) GetBySigningKey(ctx context.Context, key string) (Contract, error) {
	query := `SELECT ` + contractColumns + `
FROM contracts
WHERE signing_key = $1
LIMIT 1`
	return r.getOne(ctx, query, key)
}

// MarkSigned performs the atomic pending -> signed transition. The condition
// on status makes the write succeed for exactly one of any set of racing
// callers; the service has already established existence, so zero rows means
// the race was lost.
func (r *PGRepo) MarkSigned(ctx context.Context, id, signedKey string, signedAt time.Time) error {
	const query = `
UPDATE contracts
SET status = 'signed', signed_key = $1, signed_at = $2
WHERE id = $3 AND status = 'pending'`

	res, err := r.DB.ExecContext(ctx, query, signedKey, signedAt, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrConflict
	}
	return nil
}

// RecordPayment updates the payment sub-record only.
func (r *PGRepo) RecordPayment(ctx context.Context, id string, status PaymentStatus, intentID string) error {
	const query = `
UPDATE contracts
SET payment_status = $1, payment_intent_id = $2
WHERE id = $3`

	res, err := r.DB.ExecContext(ctx, query, string(status), nullString(intentID), id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateEmailStatus overwrites the notification record.
func (r *PGRepo) UpdateEmailStatus(ctx context.Context, id string, status EmailStatus) error {
	const query = `
UPDATE contracts
SET email_sent = $1, email_sent_at = $2, email_error = $3
WHERE id = $4`

	res, err := r.DB.ExecContext(ctx, query, status.Sent, nullTime(status.SentAt), nullString(status.Error), id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) getOne(ctx context.Context, query string, args ...any) (Contract, error) {
	c, err := scanContract(r.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Contract{}, ErrNotFound
		}
		return Contract{}, err
	}
	return c, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContract(row rowScanner) (Contract, error) {
	var c Contract
	var signedKey sql.NullString
	var status string
	var signedAt sql.NullTime
	var amount decimal.NullDecimal
	var currency sql.NullString
	var paymentStatus string
	var intentID sql.NullString
	var emailSentAt sql.NullTime
	var emailError sql.NullString

	err := row.Scan(
		&c.ID,
		&c.OwnerID,
		&c.Title,
		&c.Description,
		&c.RecipientEmail,
		&c.SigningKey,
		&c.OriginalKey,
		&signedKey,
		&status,
		&c.ExpiresAt,
		&signedAt,
		&c.CreatedAt,
		&c.RequirePayment,
		&amount,
		&currency,
		&c.PaymentDescription,
		&paymentStatus,
		&intentID,
		&c.EmailStatus.Sent,
		&emailSentAt,
		&emailError,
	)
	if err != nil {
		return Contract{}, err
	}

	c.Status = Status(status)
	c.PaymentStatus = PaymentStatus(paymentStatus)
	if signedKey.Valid {
		c.SignedKey = signedKey.String
	}
	if signedAt.Valid {
		t := signedAt.Time
		c.SignedAt = &t
	}
	if amount.Valid {
		c.PaymentAmount = amount.Decimal
	}
	if currency.Valid {
		c.PaymentCurrency = currency.String
	}
	if intentID.Valid {
		c.PaymentIntentID = intentID.String
	}
	if emailSentAt.Valid {
		t := emailSentAt.Time
		c.EmailStatus.SentAt = &t
	}
	if emailError.Valid {
		c.EmailStatus.Error = emailError.String
	}
	return c, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

var _ Repo = (*PGRepo)(nil)
