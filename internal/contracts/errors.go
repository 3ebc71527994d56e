package contracts

import "errors"

var (
	// ErrNotFound covers both a missing record and an ownership mismatch, so
	// existence never leaks across tenants.
	ErrNotFound = errors.New("contract not found")

	// ErrInvalidInput rejects a malformed creation or mutation request.
	ErrInvalidInput = errors.New("invalid input")

	// ErrExpired means the signing window has closed.
	ErrExpired = errors.New("contract expired")

	// ErrAlreadySigned means the contract reached its signed state, whether
	// before this request or by a concurrent one.
	ErrAlreadySigned = errors.New("contract already signed")

	// ErrConflict is the store-level outcome of losing the signing race.
	ErrConflict = errors.New("contract was modified concurrently")

	// ErrInvalidSignature rejects an empty or undecodable signature artifact.
	ErrInvalidSignature = errors.New("valid signature required")

	// ErrPaymentRequired blocks document release until payment completes.
	ErrPaymentRequired = errors.New("payment required")

	// ErrUpstream wraps a collaborator (storage, email, payment) failure.
	ErrUpstream = errors.New("upstream collaborator failure")
)
