package contracts

import "time"

// Authorize decides whether the anonymous bearer of a contract's signing key
// may act on it at this instant. It is evaluated once for display and again
// inside the sign path, because time passes between fetch and submission.
// Expiry is always judged against now, never against a stored flag.
func Authorize(c Contract, now time.Time) error {
	switch {
	case c.Status == StatusSigned:
		return ErrAlreadySigned
	case c.Status == StatusExpired:
		return ErrExpired
	case !c.ExpiresAt.After(now):
		return ErrExpired
	default:
		return nil
	}
}
