package contracts

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"path"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	failOn  string
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string][]byte)}
}

func (s *memStore) Save(ctx context.Context, ownerID, fileName string, r io.Reader) (string, int64, string, error) {
	key := path.Join(ownerID, fileName)
	data, err := io.ReadAll(r)
	if err != nil {
		return "", 0, "", err
	}
	s.mu.Lock()
	s.objects[key] = data
	s.mu.Unlock()
	return key, int64(len(data)), "application/pdf", nil
}

func (s *memStore) SaveWithKey(ctx context.Context, storageKey, contentType string, r io.Reader) (int64, error) {
	if s.failOn != "" && strings.Contains(storageKey, s.failOn) {
		return 0, errors.New("store unavailable")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	s.objects[storageKey] = data
	s.mu.Unlock()
	return int64(len(data)), nil
}

func (s *memStore) Open(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	s.mu.Lock()
	data, ok := s.objects[storageKey]
	s.mu.Unlock()
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (n *recordingNotifier) ContractInvite(ctx context.Context, recipientEmail, title, signingKey string) error {
	n.mu.Lock()
	n.calls = append(n.calls, signingKey)
	n.mu.Unlock()
	return n.err
}

func signaturePNG() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("png-bytes"))
}

func newTestService(notifier Notifier) (*Service, *MemoryRepo, *memStore) {
	repo := NewMemoryRepo()
	store := newMemStore()
	svc := &Service{Repo: repo, Store: store, Notifier: notifier}
	return svc, repo, store
}

func validSpec() CreateSpec {
	return CreateSpec{
		OwnerID:        "owner-1",
		Title:          "Consulting agreement",
		Description:    "Q3 engagement",
		RecipientEmail: "recipient@example.com",
		ExpiresAt:      time.Now().Add(48 * time.Hour),
		FileName:       "agreement.pdf",
		File:           strings.NewReader("%PDF-1.4 fake"),
	}
}

func TestCreateMintsKeyAndSendsInvite(t *testing.T) {
	notifier := &recordingNotifier{}
	svc, repo, store := newTestService(notifier)

	c, err := svc.Create(context.Background(), validSpec())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.Status != StatusPending {
		t.Errorf("status = %q, want pending", c.Status)
	}
	if len(c.SigningKey) != 32 {
		t.Errorf("signing key length = %d, want 32 hex chars", len(c.SigningKey))
	}
	if !c.EmailStatus.Sent || c.EmailStatus.SentAt == nil {
		t.Errorf("email status = %+v, want sent", c.EmailStatus)
	}
	if len(notifier.calls) != 1 || notifier.calls[0] != c.SigningKey {
		t.Errorf("notifier calls = %v", notifier.calls)
	}
	if _, ok := store.objects[c.OriginalKey]; !ok {
		t.Errorf("original document not stored under %q", c.OriginalKey)
	}

	stored, err := repo.Get(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.SigningKey != c.SigningKey {
		t.Error("stored contract differs from returned contract")
	}
}

func TestCreateValidation(t *testing.T) {
	svc, _, _ := newTestService(nil)

	cases := []struct {
		name   string
		mutate func(*CreateSpec)
	}{
		{"missing title", func(s *CreateSpec) { s.Title = "  " }},
		{"bad email", func(s *CreateSpec) { s.RecipientEmail = "not-an-email" }},
		{"past expiry", func(s *CreateSpec) { s.ExpiresAt = time.Now().Add(-time.Hour) }},
		{"missing file", func(s *CreateSpec) { s.File = nil }},
		{"payment without amount", func(s *CreateSpec) {
			s.RequirePayment = true
			s.PaymentCurrency = "USD"
		}},
		{"payment bad currency", func(s *CreateSpec) {
			s.RequirePayment = true
			s.PaymentAmount = decimal.RequireFromString("10")
			s.PaymentCurrency = "JPY"
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			spec := validSpec()
			tc.mutate(&spec)
			if _, err := svc.Create(context.Background(), spec); !errors.Is(err, ErrInvalidInput) {
				t.Errorf("err = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestCreateSurvivesNotifierFailure(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("smtp refused")}
	svc, repo, _ := newTestService(notifier)

	c, err := svc.Create(context.Background(), validSpec())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.EmailStatus.Sent {
		t.Error("email status should not be sent")
	}
	if c.EmailStatus.Error == "" {
		t.Error("email error not recorded")
	}

	stored, _ := repo.Get(context.Background(), c.ID)
	if stored.EmailStatus.Error == "" {
		t.Error("email error not persisted")
	}
}

func TestSignHappyPath(t *testing.T) {
	svc, repo, store := newTestService(nil)
	c, err := svc.Create(context.Background(), validSpec())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	signed, err := svc.Sign(context.Background(), c.SigningKey, signaturePNG())
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if signed.Status != StatusSigned {
		t.Errorf("status = %q, want signed", signed.Status)
	}
	if signed.SignedAt == nil {
		t.Error("signedAt not set")
	}
	if _, ok := store.objects[signed.SignedKey]; !ok {
		t.Errorf("signature artifact not stored under %q", signed.SignedKey)
	}

	stored, _ := repo.Get(context.Background(), c.ID)
	if stored.Status != StatusSigned {
		t.Errorf("stored status = %q", stored.Status)
	}
}

func TestSignRejectsSecondAttempt(t *testing.T) {
	svc, _, _ := newTestService(nil)
	c, _ := svc.Create(context.Background(), validSpec())

	if _, err := svc.Sign(context.Background(), c.SigningKey, signaturePNG()); err != nil {
		t.Fatalf("first Sign: %v", err)
	}
	if _, err := svc.Sign(context.Background(), c.SigningKey, signaturePNG()); !errors.Is(err, ErrAlreadySigned) {
		t.Fatalf("second Sign err = %v, want ErrAlreadySigned", err)
	}
}

func TestSignRejectsExpiredContract(t *testing.T) {
	svc, _, _ := newTestService(nil)
	c, _ := svc.Create(context.Background(), validSpec())

	// Jump the clock past expiry without touching stored state.
	svc.Now = func() time.Time { return c.ExpiresAt.Add(time.Minute) }

	if _, err := svc.Sign(context.Background(), c.SigningKey, signaturePNG()); !errors.Is(err, ErrExpired) {
		t.Fatalf("err = %v, want ErrExpired", err)
	}
	if _, err := svc.GetForSigning(context.Background(), c.SigningKey); !errors.Is(err, ErrExpired) {
		t.Fatalf("GetForSigning err = %v, want ErrExpired", err)
	}
}

func TestSignRejectsMalformedSignature(t *testing.T) {
	svc, _, _ := newTestService(nil)
	c, _ := svc.Create(context.Background(), validSpec())

	for _, raw := range []string{"", "   ", "data:image/png;base64,@@@"} {
		if _, err := svc.Sign(context.Background(), c.SigningKey, raw); !errors.Is(err, ErrInvalidSignature) {
			t.Errorf("Sign(%q) err = %v, want ErrInvalidSignature", raw, err)
		}
	}
}

func TestSignStorageFailureLeavesContractPending(t *testing.T) {
	svc, repo, store := newTestService(nil)
	c, _ := svc.Create(context.Background(), validSpec())
	store.failOn = "signatures/"

	if _, err := svc.Sign(context.Background(), c.SigningKey, signaturePNG()); !errors.Is(err, ErrUpstream) {
		t.Fatalf("err = %v, want ErrUpstream", err)
	}

	stored, _ := repo.Get(context.Background(), c.ID)
	if stored.Status != StatusPending {
		t.Errorf("status = %q, want pending after storage failure", stored.Status)
	}

	store.failOn = ""
	if _, err := svc.Sign(context.Background(), c.SigningKey, signaturePNG()); err != nil {
		t.Fatalf("retry Sign: %v", err)
	}
}

func TestConcurrentSignExactlyOneSucceeds(t *testing.T) {
	svc, _, _ := newTestService(nil)
	c, _ := svc.Create(context.Background(), validSpec())

	const attempts = 16
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Sign(context.Background(), c.SigningKey, signaturePNG())
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes, conflicts int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrAlreadySigned):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if successes != 1 {
		t.Errorf("successes = %d, want exactly 1", successes)
	}
	if conflicts != attempts-1 {
		t.Errorf("conflicts = %d, want %d", conflicts, attempts-1)
	}
}

func TestListDerivesExpiredStatus(t *testing.T) {
	svc, _, _ := newTestService(nil)
	c, _ := svc.Create(context.Background(), validSpec())

	svc.Now = func() time.Time { return c.ExpiresAt.Add(time.Hour) }

	list, err := svc.List(context.Background(), c.OwnerID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("len = %d", len(list))
	}
	if list[0].Status != StatusExpired {
		t.Errorf("status = %q, want expired", list[0].Status)
	}
}

func TestGetOwnedScopesToOwner(t *testing.T) {
	svc, _, _ := newTestService(nil)
	c, _ := svc.Create(context.Background(), validSpec())

	if _, err := svc.GetOwned(context.Background(), "someone-else", c.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-tenant GetOwned err = %v, want ErrNotFound", err)
	}
	if _, err := svc.GetOwned(context.Background(), c.OwnerID, c.ID); err != nil {
		t.Fatalf("owner GetOwned: %v", err)
	}
}

func TestDocumentDownloadGatedOnPayment(t *testing.T) {
	svc, repo, _ := newTestService(nil)

	spec := validSpec()
	spec.RequirePayment = true
	spec.PaymentAmount = decimal.RequireFromString("25.00")
	spec.PaymentCurrency = "EUR"
	c, err := svc.Create(context.Background(), spec)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Pending contracts serve the original document without a payment gate.
	rc, _, err := svc.OpenDocumentByKey(context.Background(), c.ID, c.SigningKey)
	if err != nil {
		t.Fatalf("OpenDocumentByKey pending: %v", err)
	}
	rc.Close()

	if _, err := svc.Sign(context.Background(), c.SigningKey, signaturePNG()); err != nil {
		t.Fatalf("Sign: %v", err)
	}

	if _, _, err := svc.OpenDocumentByKey(context.Background(), c.ID, c.SigningKey); !errors.Is(err, ErrPaymentRequired) {
		t.Fatalf("unpaid download err = %v, want ErrPaymentRequired", err)
	}

	// Owner downloads are never gated.
	rc, _, err = svc.OpenOwnerDocument(context.Background(), c.OwnerID, c.ID)
	if err != nil {
		t.Fatalf("OpenOwnerDocument: %v", err)
	}
	rc.Close()

	if err := repo.RecordPayment(context.Background(), c.ID, PaymentCompleted, "pi_1"); err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}
	rc, got, err := svc.OpenDocumentByKey(context.Background(), c.ID, c.SigningKey)
	if err != nil {
		t.Fatalf("paid download: %v", err)
	}
	defer rc.Close()
	if got.SignedKey == "" {
		t.Error("expected signed artifact to be served after signing")
	}
}

func TestDocumentDownloadRejectsWrongKey(t *testing.T) {
	svc, _, _ := newTestService(nil)
	c, _ := svc.Create(context.Background(), validSpec())

	if _, _, err := svc.OpenDocumentByKey(context.Background(), c.ID, "0000"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestResendInvite(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("smtp refused")}
	svc, repo, _ := newTestService(notifier)
	c, _ := svc.Create(context.Background(), validSpec())

	if _, err := svc.ResendInvite(context.Background(), c.OwnerID, c.ID); !errors.Is(err, ErrUpstream) {
		t.Fatalf("failing resend err = %v, want ErrUpstream", err)
	}

	notifier.err = nil
	got, err := svc.ResendInvite(context.Background(), c.OwnerID, c.ID)
	if err != nil {
		t.Fatalf("ResendInvite: %v", err)
	}
	if !got.EmailStatus.Sent {
		t.Error("email status not marked sent after resend")
	}

	stored, _ := repo.Get(context.Background(), c.ID)
	if !stored.EmailStatus.Sent || stored.EmailStatus.Error != "" {
		t.Errorf("persisted email status = %+v", stored.EmailStatus)
	}
}

func TestSigningKeysAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		key, err := NewSigningKey()
		if err != nil {
			t.Fatalf("NewSigningKey: %v", err)
		}
		if seen[key] {
			t.Fatalf("duplicate signing key %q", key)
		}
		seen[key] = true
		if len(key) != 32 {
			t.Fatalf("unexpected key %q", key)
		}
	}
}
