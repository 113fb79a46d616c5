package services

import (
	"context"
	"errors"
	"time"

	"github.com/toolntask/toolntask-api/internal/model"
	"github.com/toolntask/toolntask-api/internal/phone"
	"github.com/toolntask/toolntask-api/internal/repository"
	"github.com/toolntask/toolntask-api/internal/utils"
	"go.uber.org/zap"
)

const resetEmailSentMessage = "If an account exists for this email, a password reset link has been sent."

func (s *identityService) resetLink(token string) string {
	return s.baseURL + "/reset-password?token=" + token
}

func seconds(d time.Duration) int {
	return int(d / time.Second)
}

// RequestPasswordReset answers the email path the same way whether or not
// the address belongs to an account.
func (s *identityService) RequestPasswordReset(ctx context.Context, req model.PasswordResetRequest) (model.PasswordResetResponse, *model.ErrorResponse) {
	switch {
	case req.Email != "":
		s.sendResetLink(ctx, req.Email)
		return model.PasswordResetResponse{Message: resetEmailSentMessage, ExpiresIn: seconds(ResetTokenTTL)}, nil
	case req.Phone != "":
		canonical, err := phone.Normalize(req.Phone)
		if err != nil {
			return model.PasswordResetResponse{}, invalidPhone()
		}
		if errResp := s.issueOTP(ctx, canonical, model.PurposePasswordReset); errResp != nil {
			return model.PasswordResetResponse{}, errResp
		}
		return model.PasswordResetResponse{Message: "Verification code sent to your phone", ExpiresIn: seconds(OTPTTL)}, nil
	default:
		return model.PasswordResetResponse{}, model.ValidationError("Email or phone number is required")
	}
}

func (s *identityService) sendResetLink(ctx context.Context, email string) {
	user, err := s.findUserByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		s.logger.Info("password reset requested for unknown email")
		return
	}
	if err != nil {
		s.logger.Error("lookup user for password reset", zap.Error(err))
		return
	}

	// Reset links go to the address the user typed only when it is a real
	// inbox on their account.
	to := user.Email
	if to == "" || phone.IsSyntheticEmail(to) {
		s.logger.Info("password reset requested for account without email inbox", zap.String("userId", user.ID))
		return
	}

	token, err := utils.GenerateResetToken()
	if err != nil {
		s.logger.Error("generate reset token", zap.Error(err))
		return
	}
	now := s.now()
	reset := &model.PasswordReset{
		Email:     to,
		Token:     utils.HashToken(token),
		ExpiresAt: now.Add(ResetTokenTTL),
		CreatedAt: now,
	}
	if _, err := s.resets.CreatePasswordReset(ctx, reset); err != nil {
		s.logger.Error("store password reset", zap.String("userId", user.ID), zap.Error(err))
		return
	}
	if err := s.notifier.SendPasswordResetLink(ctx, to, s.resetLink(token)); err != nil {
		s.logger.Error("send password reset link", zap.String("userId", user.ID), zap.Error(err))
		return
	}
	s.logger.Info("password reset link sent", zap.String("userId", user.ID))
}

func (s *identityService) UpdatePassword(ctx context.Context, req model.UpdatePasswordRequest) (model.UpdatePasswordResponse, *model.ErrorResponse) {
	if err := utils.ValidatePassword(req.NewPassword); err != nil {
		return model.UpdatePasswordResponse{}, model.ValidationError(err.Error())
	}

	var (
		res     *reconciled
		errResp *model.ErrorResponse
	)
	switch {
	case req.Token != "":
		res, errResp = s.resetWithToken(ctx, req.Token, req.NewPassword)
	case req.Phone != "" && req.Verified:
		res, errResp = s.resetWithPhone(ctx, req.Phone, req.NewPassword)
	default:
		return model.UpdatePasswordResponse{}, model.ValidationError("A reset token or a verified phone number is required")
	}
	if errResp != nil {
		return model.UpdatePasswordResponse{}, errResp
	}
	return model.UpdatePasswordResponse{
		Message: "Password updated successfully",
		Email:   res.authEmail,
		Action:  res.action,
	}, nil
}

func (s *identityService) ResetPhonePassword(ctx context.Context, req model.ResetPhonePasswordRequest) (model.AccountResponse, *model.ErrorResponse) {
	if err := utils.ValidatePassword(req.NewPassword); err != nil {
		return model.AccountResponse{}, model.ValidationError(err.Error())
	}
	res, errResp := s.resetWithPhone(ctx, req.Phone, req.NewPassword)
	if errResp != nil {
		return model.AccountResponse{}, errResp
	}
	return model.AccountResponse{Success: true, Email: res.authEmail, UID: res.uid}, nil
}

// resetWithToken consumes the token before touching the provider and hands
// it back if the password change fails.
func (s *identityService) resetWithToken(ctx context.Context, token, password string) (*reconciled, *model.ErrorResponse) {
	reset, user, err := s.resets.ConsumePasswordReset(ctx, utils.HashToken(token), s.now())
	switch {
	case errors.Is(err, repository.ErrTokenInvalid):
		return nil, model.ExpiredError("Invalid or expired reset token")
	case errors.Is(err, repository.ErrNotFound):
		return nil, model.NotFoundError("No account found for this reset link")
	case err != nil:
		return nil, s.internal("consume password reset", err)
	}

	res, errResp := s.reconcile(ctx, user, password)
	if errResp != nil {
		if err := s.resets.ReleasePasswordReset(context.WithoutCancel(ctx), reset.ID); err != nil {
			s.logger.Error("release password reset", zap.String("resetId", reset.ID), zap.Error(err))
		}
		return nil, errResp
	}
	return res, nil
}

func (s *identityService) resetWithPhone(ctx context.Context, rawPhone, password string) (*reconciled, *model.ErrorResponse) {
	canonical, err := phone.Normalize(rawPhone)
	if err != nil {
		return nil, invalidPhone()
	}
	if errResp := s.claimVerification(ctx, canonical, resetPurposes); errResp != nil {
		return nil, errResp
	}

	user, err := s.findUserByPhone(ctx, canonical)
	if err != nil {
		s.releaseVerification(ctx, canonical)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NotFoundError("No account found for this phone number")
		}
		return nil, s.internal("lookup user by phone", err, zap.String("phone", canonical))
	}

	res, errResp := s.reconcile(ctx, user, password)
	if errResp != nil {
		s.releaseVerification(ctx, canonical)
		return nil, errResp
	}
	return res, nil
}
