package contracts

import (
	"errors"
	"testing"
	"time"
)

func TestAuthorize(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	cases := []struct {
		name     string
		contract Contract
		want     error
	}{
		{"pending before expiry", Contract{Status: StatusPending, ExpiresAt: future}, nil},
		{"already signed", Contract{Status: StatusSigned, ExpiresAt: future}, ErrAlreadySigned},
		{"stored expired", Contract{Status: StatusExpired, ExpiresAt: future}, ErrExpired},
		{"pending past expiry", Contract{Status: StatusPending, ExpiresAt: past}, ErrExpired},
		{"expiry exactly now", Contract{Status: StatusPending, ExpiresAt: now}, ErrExpired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Authorize(tc.contract, now)
			if !errors.Is(err, tc.want) {
				t.Errorf("Authorize() = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestEffectiveStatus(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	pending := Contract{Status: StatusPending, ExpiresAt: now.Add(time.Hour)}
	if got := pending.EffectiveStatus(now); got != StatusPending {
		t.Errorf("pending before expiry = %q", got)
	}

	lapsed := Contract{Status: StatusPending, ExpiresAt: now.Add(-time.Hour)}
	if got := lapsed.EffectiveStatus(now); got != StatusExpired {
		t.Errorf("pending past expiry = %q", got)
	}

	// A signed contract never reads as expired, however old its expiry.
	signed := Contract{Status: StatusSigned, ExpiresAt: now.Add(-time.Hour)}
	if got := signed.EffectiveStatus(now); got != StatusSigned {
		t.Errorf("signed past expiry = %q", got)
	}
}
