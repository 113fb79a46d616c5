package services

import (
	"context"
	"errors"

	"github.com/toolntask/toolntask-api/internal/model"
	"github.com/toolntask/toolntask-api/internal/phone"
	"github.com/toolntask/toolntask-api/internal/repository"
	"github.com/toolntask/toolntask-api/internal/utils"
	"go.uber.org/zap"
)

var (
	errInvalidCode         = errors.New("invalid verification code")
	errCodeExpired         = errors.New("verification code expired")
	errNotVerified         = errors.New("phone not verified")
	errVerificationExpired = errors.New("phone verification expired")
)

// Purposes a verified code may be spent on.
var (
	resetPurposes  = []string{model.PurposePasswordReset, model.PurposePhoneVerification}
	signupPurposes = []string{model.PurposeSignup, model.PurposePhoneVerification}
)

func cooldownKey(canonical string) string { return "otp_cooldown:" + canonical }
func failureKey(canonical string) string  { return "otp_failures:" + canonical }

func (s *identityService) IssueOTP(ctx context.Context, req model.PhoneVerifyRequest) (model.PhoneVerifyResponse, *model.ErrorResponse) {
	canonical, err := phone.Normalize(req.Phone)
	if err != nil {
		return model.PhoneVerifyResponse{}, invalidPhone()
	}
	purpose := req.Type
	if purpose == "" {
		purpose = model.PurposePhoneVerification
	}
	if errResp := s.issueOTP(ctx, canonical, purpose); errResp != nil {
		return model.PhoneVerifyResponse{}, errResp
	}
	return model.PhoneVerifyResponse{Message: "Verification code sent", Success: true}, nil
}

// issueOTP replaces any earlier code for the phone. The plaintext code only
// leaves through the notifier.
func (s *identityService) issueOTP(ctx context.Context, canonical, purpose string) *model.ErrorResponse {
	hits, err := s.limiter.Hit(ctx, cooldownKey(canonical), OTPIssueCooldown)
	if err != nil {
		return s.internal("otp cooldown check failed", err, zap.String("phone", canonical))
	}
	if hits > 1 {
		return model.RateLimitedError("Please wait a minute before requesting another code")
	}

	code, err := utils.GenerateOTP()
	if err != nil {
		return s.internal("generate otp", err)
	}
	hash, ok := utils.HashOTP(code)
	if !ok {
		return s.internal("hash otp", errors.New("bcrypt failed"))
	}

	now := s.now()
	pv := &model.PhoneVerification{
		Phone:     canonical,
		OTPHash:   hash,
		Purpose:   purpose,
		ExpiresAt: now.Add(OTPTTL),
		CreatedAt: now,
	}
	if err := s.verifications.SavePhoneVerification(ctx, pv); err != nil {
		_ = s.limiter.Reset(ctx, cooldownKey(canonical))
		return s.internal("store phone verification", err, zap.String("phone", canonical))
	}

	if err := s.notifier.SendOTP(ctx, canonical, code, purpose); err != nil {
		_ = s.limiter.Reset(ctx, cooldownKey(canonical))
		s.logger.Error("otp delivery failed", zap.String("phone", canonical), zap.Error(err))
		return model.InternalError("Failed to send verification code")
	}

	s.logger.Info("otp issued", zap.String("phone", canonical), zap.String("purpose", purpose))
	return nil
}

func (s *identityService) VerifyOTP(ctx context.Context, req model.VerifyOTPRequest, ip string) (model.VerifyOTPResponse, *model.ErrorResponse) {
	canonical, err := phone.Normalize(req.Phone)
	if err != nil {
		return model.VerifyOTPResponse{}, invalidPhone()
	}

	// Every guess takes a slot before it is compared, so concurrent guesses
	// cannot get past the cap.
	attempts, err := s.limiter.Hit(ctx, failureKey(canonical), OTPFailureWindow)
	if err != nil {
		return model.VerifyOTPResponse{}, s.internal("otp attempt count", err, zap.String("phone", canonical))
	}
	if attempts > OTPMaxFailures {
		return model.VerifyOTPResponse{}, model.RateLimitedError("Too many incorrect codes. Please try again later.")
	}

	now := s.now()
	var purpose string
	err = s.verifications.MutatePhoneVerification(ctx, canonical, func(pv *model.PhoneVerification) error {
		if pv.Verified || !utils.CompareHashAndPassword(pv.OTPHash, req.OTP) {
			return errInvalidCode
		}
		if now.After(pv.ExpiresAt) {
			return errCodeExpired
		}
		pv.Verified = true
		pv.Consumed = false
		pv.VerifiedAt = now
		pv.VerifiedIP = ip
		purpose = pv.Purpose
		return nil
	})

	switch {
	case err == nil:
	case errors.Is(err, errInvalidCode), errors.Is(err, repository.ErrNotFound):
		return model.VerifyOTPResponse{}, model.InvalidCodeError("Invalid verification code")
	case errors.Is(err, errCodeExpired):
		return model.VerifyOTPResponse{}, model.ExpiredError("Verification code has expired. Please request a new one.")
	default:
		return model.VerifyOTPResponse{}, s.internal("verify otp", err, zap.String("phone", canonical))
	}

	if err := s.limiter.Reset(ctx, failureKey(canonical)); err != nil {
		s.logger.Warn("reset otp failures", zap.String("phone", canonical), zap.Error(err))
	}
	return model.VerifyOTPResponse{
		Message: "Phone number verified successfully",
		Phone:   canonical,
		Type:    purpose,
	}, nil
}

// claimVerification spends a fresh verified code on one credential change.
// Callers release it if the change fails.
func (s *identityService) claimVerification(ctx context.Context, canonical string, purposes []string) *model.ErrorResponse {
	now := s.now()
	err := s.verifications.MutatePhoneVerification(ctx, canonical, func(pv *model.PhoneVerification) error {
		if !pv.Verified || pv.Consumed || !contains(purposes, pv.Purpose) {
			return errNotVerified
		}
		if now.Sub(pv.VerifiedAt) > VerifiedOTPWindow {
			return errVerificationExpired
		}
		pv.Consumed = true
		return nil
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errNotVerified), errors.Is(err, repository.ErrNotFound):
		return model.ForbiddenError("Phone number has not been verified")
	case errors.Is(err, errVerificationExpired):
		return model.ExpiredError("Phone verification has expired. Please verify again.")
	default:
		return s.internal("claim phone verification", err, zap.String("phone", canonical))
	}
}

// releaseVerification runs even when the request context is already done.
func (s *identityService) releaseVerification(ctx context.Context, canonical string) {
	err := s.verifications.MutatePhoneVerification(context.WithoutCancel(ctx), canonical, func(pv *model.PhoneVerification) error {
		pv.Consumed = false
		return nil
	})
	if err != nil {
		s.logger.Error("release phone verification", zap.String("phone", canonical), zap.Error(err))
	}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
