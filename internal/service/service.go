package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/toolntask/toolntask-api/internal/authprovider"
	"github.com/toolntask/toolntask-api/internal/model"
	"github.com/toolntask/toolntask-api/internal/phone"
	"github.com/toolntask/toolntask-api/internal/ratelimit"
	"github.com/toolntask/toolntask-api/internal/repository"
	"go.uber.org/zap"
)

const (
	OTPTTL            = 10 * time.Minute
	OTPIssueCooldown  = 60 * time.Second
	OTPMaxFailures    = 5
	OTPFailureWindow  = 10 * time.Minute
	VerifiedOTPWindow = 10 * time.Minute
	ResetTokenTTL     = 15 * time.Minute
)

// IdentityService covers phone verification, password resets and auth
// account reconciliation.
type IdentityService interface {
	IssueOTP(ctx context.Context, req model.PhoneVerifyRequest) (model.PhoneVerifyResponse, *model.ErrorResponse)
	VerifyOTP(ctx context.Context, req model.VerifyOTPRequest, ip string) (model.VerifyOTPResponse, *model.ErrorResponse)
	RequestPasswordReset(ctx context.Context, req model.PasswordResetRequest) (model.PasswordResetResponse, *model.ErrorResponse)
	UpdatePassword(ctx context.Context, req model.UpdatePasswordRequest) (model.UpdatePasswordResponse, *model.ErrorResponse)
	ResetPhonePassword(ctx context.Context, req model.ResetPhonePasswordRequest) (model.AccountResponse, *model.ErrorResponse)
	CreatePhoneAccount(ctx context.Context, req model.CreatePhoneAccountRequest) (model.AccountResponse, *model.ErrorResponse)
	LookupPhoneEmail(ctx context.Context, req model.LookupPhoneEmailRequest) (model.LookupPhoneEmailResponse, *model.ErrorResponse)
	EnsureAuth(ctx context.Context, req model.EnsureAuthRequest) (model.EnsureAuthResponse, *model.ErrorResponse)
}

// Notifier delivers codes and links. notify.Dispatcher implements it.
type Notifier interface {
	SendOTP(ctx context.Context, phone, code, purpose string) error
	SendPasswordResetLink(ctx context.Context, email, link string) error
	NotifyAdmin(ctx context.Context, subject, htmlBody string) error
}

type Option func(*options)

type options struct {
	now     func() time.Time
	baseURL string
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithBaseURL sets the site URL used in reset links.
func WithBaseURL(url string) Option {
	return func(o *options) { o.baseURL = strings.TrimRight(url, "/") }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now, baseURL: "http://localhost:3000"}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

type identityService struct {
	users         repository.UserRepository
	verifications repository.VerificationRepository
	resets        repository.ResetRepository
	provider      authprovider.Provider
	limiter       ratelimit.Limiter
	notifier      Notifier
	logger        *zap.Logger
	now           func() time.Time
	baseURL       string
}

// NewIdentityService creates a new identityService instance
func NewIdentityService(repo repository.Repository, provider authprovider.Provider, limiter ratelimit.Limiter,
	notifier Notifier, logger *zap.Logger, opts ...Option) IdentityService {
	o := buildOptions(opts)
	return &identityService{
		users:         repo,
		verifications: repo,
		resets:        repo,
		provider:      provider,
		limiter:       limiter,
		notifier:      notifier,
		logger:        logger.Named("identity"),
		now:           o.now,
		baseURL:       o.baseURL,
	}
}

func invalidPhone() *model.ErrorResponse {
	return model.ValidationError("Invalid phone number format")
}

func (s *identityService) internal(msg string, err error, fields ...zap.Field) *model.ErrorResponse {
	s.logger.Error(msg, append(fields, zap.Error(err))...)
	return model.InternalError("")
}

// findUserByPhone matches every stored format of the canonical number.
func (s *identityService) findUserByPhone(ctx context.Context, canonical string) (*model.User, error) {
	return s.users.FindUserByPhone(ctx, phone.Variants(canonical))
}

// findUserByEmail retries with the lowercased address since older documents
// kept whatever casing the user typed.
func (s *identityService) findUserByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.TrimSpace(email)
	user, err := s.users.FindUserByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		if lower := strings.ToLower(email); lower != email {
			return s.users.FindUserByEmail(ctx, lower)
		}
	}
	return user, err
}

func providerError(err error) *model.ErrorResponse {
	switch {
	case errors.Is(err, authprovider.ErrEmailExists):
		return model.AuthProviderError(409, "An account with this email already exists")
	case errors.Is(err, authprovider.ErrUserNotFound):
		return model.AuthProviderError(404, "Account not found")
	case errors.Is(err, authprovider.ErrWeakPassword):
		return model.AuthProviderError(400, "Password is too weak")
	case errors.Is(err, authprovider.ErrInvalidEmail):
		return model.AuthProviderError(400, "Invalid email address")
	default:
		return model.AuthProviderError(500, "Authentication service error. Please try again.")
	}
}
