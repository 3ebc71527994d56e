package contracts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
)

func newMockRepo(t *testing.T) (*PGRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &PGRepo{DB: db}, mock
}

func TestPGRepoCreate(t *testing.T) {
	repo, mock := newMockRepo(t)

	now := time.Now().UTC()
	c := Contract{
		ID:              "c-1",
		OwnerID:         "owner-1",
		Title:           "NDA",
		Description:     "mutual",
		RecipientEmail:  "sig@example.com",
		SigningKey:      "abcd1234abcd1234abcd1234abcd1234",
		OriginalKey:     "owner-1/nda.pdf",
		Status:          StatusPending,
		ExpiresAt:       now.Add(24 * time.Hour),
		CreatedAt:       now,
		RequirePayment:  true,
		PaymentAmount:   decimal.RequireFromString("49.99"),
		PaymentCurrency: "USD",
		PaymentStatus:   PaymentPending,
	}

	mock.ExpectExec("INSERT INTO contracts").
		WithArgs(
			c.ID,
			c.OwnerID,
			c.Title,
			c.Description,
			c.RecipientEmail,
			c.SigningKey,
			c.OriginalKey,
			nil, // signed_key
			string(StatusPending),
			c.ExpiresAt,
			nil, // signed_at
			c.CreatedAt,
			true,
			sqlmock.AnyArg(), // payment_amount
			"USD",
			"",
			string(PaymentPending),
			nil, // payment_intent_id
			false,
			nil, // email_sent_at
			nil, // email_error
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), c); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoMarkSignedConflictOnZeroRows(t *testing.T) {
	repo, mock := newMockRepo(t)
	signedAt := time.Now().UTC()

	mock.ExpectExec("UPDATE contracts").
		WithArgs("signatures/c-1/ab.png", signedAt, "c-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkSigned(context.Background(), "c-1", "signatures/c-1/ab.png", signedAt)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoMarkSignedSuccess(t *testing.T) {
	repo, mock := newMockRepo(t)
	signedAt := time.Now().UTC()

	mock.ExpectExec("UPDATE contracts").
		WithArgs("signatures/c-1/ab.png", signedAt, "c-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.MarkSigned(context.Background(), "c-1", "signatures/c-1/ab.png", signedAt); err != nil {
		t.Fatalf("MarkSigned: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoRecordPayment(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE contracts").
		WithArgs(string(PaymentCompleted), "pi_123", "c-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.RecordPayment(context.Background(), "c-1", PaymentCompleted, "pi_123"); err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetBySigningKeyNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM contracts").
		WithArgs("missing-key").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetBySigningKey(context.Background(), "missing-key")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
