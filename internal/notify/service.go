package notify

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy bounds how persistently a send is retried before the failure
// is reported to the caller.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultRetryPolicy matches the historical behavior of three attempts one
// second apart.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 3, Delay: time.Second}

// Service composes and sends contract notifications.
type Service struct {
	Sender      Sender
	FrontendURL string
	Retry       RetryPolicy
}

// NewService builds a notification service, filling in the default retry
// policy when none is given.
func NewService(sender Sender, frontendURL string, retry RetryPolicy) *Service {
	if retry.MaxAttempts <= 0 {
		retry = DefaultRetryPolicy
	}
	return &Service{Sender: sender, FrontendURL: frontendURL, Retry: retry}
}

// ContractInvite emails the recipient their personal signing link. The link
// embeds the signing key, which is the recipient's only credential.
func (s *Service) ContractInvite(ctx context.Context, recipientEmail, title, signingKey string) error {
	link := s.signingLink(signingKey)
	subject := fmt.Sprintf("Contract ready for signature: %s", title)

	htmlBody := fmt.Sprintf(`<html><body>
<h2>You have a contract to sign</h2>
<p>You have been sent the contract <strong>%s</strong> for your signature.</p>
<p><a href="%s">Review and sign the contract</a></p>
<p>If the link does not open, copy this address into your browser:<br>%s</p>
</body></html>`, html.EscapeString(title), link, link)

	textBody := fmt.Sprintf(
		"You have been sent the contract %q for your signature.\n\nReview and sign it here: %s\n",
		title, link)

	return s.sendWithRetry(ctx, recipientEmail, subject, htmlBody, textBody)
}

func (s *Service) signingLink(signingKey string) string {
	return fmt.Sprintf("%s/sign/%s", strings.TrimRight(s.FrontendURL, "/"), signingKey)
}

func (s *Service) sendWithRetry(ctx context.Context, to, subject, htmlBody, textBody string) error {
	op := func() error {
		return s.Sender.Send(ctx, to, subject, htmlBody, textBody)
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(s.Retry.Delay), uint64(s.Retry.MaxAttempts-1)),
		ctx,
	)
	return backoff.Retry(op, policy)
}
