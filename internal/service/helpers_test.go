package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/stretchr/testify/require"
	"github.com/toolntask/toolntask-api/internal/authprovider"
	"github.com/toolntask/toolntask-api/internal/model"
	"github.com/toolntask/toolntask-api/internal/ratelimit"
	"github.com/toolntask/toolntask-api/internal/repository"
	"go.uber.org/zap"
)

type fakeNotifier struct {
	mu      sync.Mutex
	otps    map[string]string
	links   map[string]string
	notices int
	otpErr  error
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{otps: map[string]string{}, links: map[string]string{}}
}

func (f *fakeNotifier) SendOTP(_ context.Context, phone, code, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.otpErr != nil {
		return f.otpErr
	}
	f.otps[phone] = code
	return nil
}

func (f *fakeNotifier) SendPasswordResetLink(_ context.Context, email, link string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.links[email] = link
	return nil
}

func (f *fakeNotifier) NotifyAdmin(context.Context, string, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices++
	return nil
}

func (f *fakeNotifier) otp(phone string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.otps[phone]
}

func (f *fakeNotifier) token(email string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, token, _ := strings.Cut(f.links[email], "token=")
	return token
}

// flakyProvider fails password updates while fail is set.
type flakyProvider struct {
	*authprovider.Memory
	fail bool
}

func (p *flakyProvider) UpdatePassword(ctx context.Context, uid, password string) error {
	if p.fail {
		return errors.New("identity provider unavailable")
	}
	return p.Memory.UpdatePassword(ctx, uid, password)
}

type harness struct {
	repo     *repository.MemoryRepository
	provider *flakyProvider
	notifier *fakeNotifier
	now      time.Time
	svc      IdentityService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		repo:     repository.NewMemoryRepository(),
		provider: &flakyProvider{Memory: authprovider.NewMemory()},
		notifier: newFakeNotifier(),
		now:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	h.svc = NewIdentityService(h.repo, h.provider, ratelimit.NewMemoryLimiter(), h.notifier, zap.NewNop(),
		WithClock(func() time.Time { return h.now }),
		WithBaseURL("https://toolntask.app/"))
	return h
}

func (h *harness) advance(d time.Duration) { h.now = h.now.Add(d) }

// seedUser stores a user document and optional legacy plaintext fields.
func (h *harness) seedUser(t *testing.T, user model.User, legacy ...string) string {
	t.Helper()
	id, err := h.repo.CreateUser(context.Background(), &user)
	require.NoError(t, err)
	for _, field := range legacy {
		require.NoError(t, h.repo.UpdateUser(context.Background(), id, []firestore.Update{{Path: field, Value: "plaintext"}}))
	}
	return id
}

func (h *harness) seedAuth(t *testing.T, email, password string) string {
	t.Helper()
	u, err := h.provider.CreateUser(context.Background(), email, password, "")
	require.NoError(t, err)
	return u.UID
}

// verifyPhone issues and verifies a code for purpose.
func (h *harness) verifyPhone(t *testing.T, raw, purpose string) {
	t.Helper()
	ctx := context.Background()
	_, errResp := h.svc.IssueOTP(ctx, model.PhoneVerifyRequest{Phone: raw, Type: purpose})
	require.Nil(t, errResp)
	_, errResp = h.svc.VerifyOTP(ctx, model.VerifyOTPRequest{Phone: raw, OTP: h.notifier.otp("+94771234567")}, "127.0.0.1")
	require.Nil(t, errResp)
}
