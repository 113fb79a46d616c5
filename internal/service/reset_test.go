package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toolntask/toolntask-api/internal/model"
)

const (
	syntheticEmail = "94771234567@toolntask.app"
	newPassword    = "N3w!Passw0rd"
)

func TestPhoneResetEndToEnd(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	uid := h.seedAuth(t, syntheticEmail, "Old!Passw0rd")
	userID := h.seedUser(t, model.User{UID: uid, Phone: "0771234567", PasswordResetRequired: true}, "currentPassword", "tempPassword")

	resp, errResp := h.svc.RequestPasswordReset(ctx, model.PasswordResetRequest{Phone: "0771234567"})
	require.Nil(t, errResp)
	assert.Equal(t, int(OTPTTL/time.Second), resp.ExpiresIn)

	h.advance(2 * time.Minute)
	_, errResp = h.svc.VerifyOTP(ctx, model.VerifyOTPRequest{Phone: "0771234567", OTP: h.notifier.otp(testPhone)}, "10.0.0.1")
	require.Nil(t, errResp)

	h.advance(time.Minute)
	updated, errResp := h.svc.UpdatePassword(ctx, model.UpdatePasswordRequest{Phone: "0771234567", Verified: true, NewPassword: newPassword})
	require.Nil(t, errResp)
	assert.Equal(t, syntheticEmail, updated.Email)
	assert.Equal(t, ActionUpdated, updated.Action)

	assert.True(t, h.provider.CheckPassword(syntheticEmail, newPassword))
	assert.Equal(t, 1, h.provider.Count())
	assert.Empty(t, h.repo.UserFields(userID))

	user, err := h.repo.FindUserByEmail(ctx, syntheticEmail)
	require.NoError(t, err)
	assert.True(t, user.FirebaseAuthSynced)
	assert.True(t, user.PasswordResetCompleted)
	assert.False(t, user.PasswordResetRequired)
	assert.Equal(t, h.now, user.PasswordUpdatedAt)

	// the verification authorizes a single change
	_, errResp = h.svc.UpdatePassword(ctx, model.UpdatePasswordRequest{Phone: "0771234567", Verified: true, NewPassword: newPassword})
	require.NotNil(t, errResp)
	assert.Equal(t, http.StatusForbidden, errResp.Code)
}

func TestPhoneResetCreatesMissingAuthAccount(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedUser(t, model.User{UID: "legacy-uid", Phone: "771234567"})
	h.verifyPhone(t, testPhone, model.PurposePasswordReset)

	resp, errResp := h.svc.ResetPhonePassword(ctx, model.ResetPhonePasswordRequest{Phone: testPhone, NewPassword: newPassword})
	require.Nil(t, errResp)
	assert.True(t, resp.Success)
	assert.Equal(t, syntheticEmail, resp.Email)
	assert.NotEqual(t, "legacy-uid", resp.UID)

	assert.True(t, h.provider.CheckPassword(syntheticEmail, newPassword))
	user, err := h.repo.FindUserByEmail(ctx, syntheticEmail)
	require.NoError(t, err)
	assert.Equal(t, resp.UID, user.UID)
}

func TestPhoneResetRequiresVerification(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedUser(t, model.User{UID: "u1", Phone: testPhone})

	_, errResp := h.svc.ResetPhonePassword(ctx, model.ResetPhonePasswordRequest{Phone: testPhone, NewPassword: newPassword})
	require.NotNil(t, errResp)
	assert.Equal(t, http.StatusForbidden, errResp.Code)

	// issued but never verified
	_, errResp = h.svc.IssueOTP(ctx, model.PhoneVerifyRequest{Phone: testPhone, Type: model.PurposePasswordReset})
	require.Nil(t, errResp)
	_, errResp = h.svc.ResetPhonePassword(ctx, model.ResetPhonePasswordRequest{Phone: testPhone, NewPassword: newPassword})
	require.NotNil(t, errResp)
	assert.Equal(t, http.StatusForbidden, errResp.Code)
}

func TestPhoneResetRejectsStaleVerification(t *testing.T) {
	h := newHarness(t)
	h.seedUser(t, model.User{UID: "u1", Phone: testPhone})
	h.verifyPhone(t, testPhone, model.PurposePasswordReset)

	h.advance(VerifiedOTPWindow + time.Second)
	_, errResp := h.svc.ResetPhonePassword(context.Background(), model.ResetPhonePasswordRequest{Phone: testPhone, NewPassword: newPassword})
	require.NotNil(t, errResp)
	assert.Equal(t, model.KindExpired, errResp.Kind)
}

func TestPhoneResetRejectsSignupVerification(t *testing.T) {
	h := newHarness(t)
	h.seedUser(t, model.User{UID: "u1", Phone: testPhone})
	h.verifyPhone(t, testPhone, model.PurposeSignup)

	_, errResp := h.svc.ResetPhonePassword(context.Background(), model.ResetPhonePasswordRequest{Phone: testPhone, NewPassword: newPassword})
	require.NotNil(t, errResp)
	assert.Equal(t, http.StatusForbidden, errResp.Code)
}

func TestPhoneResetReleasesVerificationOnProviderFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	uid := h.seedAuth(t, syntheticEmail, "Old!Passw0rd")
	h.seedUser(t, model.User{UID: uid, Phone: testPhone})
	h.verifyPhone(t, testPhone, model.PurposePasswordReset)

	h.provider.fail = true
	_, errResp := h.svc.ResetPhonePassword(ctx, model.ResetPhonePasswordRequest{Phone: testPhone, NewPassword: newPassword})
	require.NotNil(t, errResp)
	assert.Equal(t, http.StatusInternalServerError, errResp.Code)

	h.provider.fail = false
	_, errResp = h.svc.ResetPhonePassword(ctx, model.ResetPhonePasswordRequest{Phone: testPhone, NewPassword: newPassword})
	require.Nil(t, errResp)
	assert.True(t, h.provider.CheckPassword(syntheticEmail, newPassword))
}

func TestUpdatePasswordRejectsWeakPassword(t *testing.T) {
	h := newHarness(t)
	_, errResp := h.svc.UpdatePassword(context.Background(), model.UpdatePasswordRequest{Phone: testPhone, Verified: true, NewPassword: "password"})
	require.NotNil(t, errResp)
	assert.Equal(t, model.KindValidation, errResp.Kind)
	assert.Contains(t, errResp.Message, "uppercase")
}

func TestUpdatePasswordNeedsTokenOrVerifiedPhone(t *testing.T) {
	h := newHarness(t)
	_, errResp := h.svc.UpdatePassword(context.Background(), model.UpdatePasswordRequest{Phone: testPhone, NewPassword: newPassword})
	require.NotNil(t, errResp)
	assert.Equal(t, http.StatusBadRequest, errResp.Code)
}

func TestEmailResetTokenSingleUse(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedAuth(t, "kasun@example.com", "Old!Passw0rd")
	h.seedUser(t, model.User{UID: "u1", Email: "kasun@example.com"})

	resp, errResp := h.svc.RequestPasswordReset(ctx, model.PasswordResetRequest{Email: "Kasun@Example.com"})
	require.Nil(t, errResp)
	assert.Equal(t, 900, resp.ExpiresIn)

	token := h.notifier.token("kasun@example.com")
	require.Len(t, token, 64)
	assert.Contains(t, h.notifier.links["kasun@example.com"], "https://toolntask.app/reset-password?token=")

	updated, errResp := h.svc.UpdatePassword(ctx, model.UpdatePasswordRequest{Token: token, NewPassword: newPassword})
	require.Nil(t, errResp)
	assert.Equal(t, "kasun@example.com", updated.Email)
	assert.Equal(t, ActionUpdated, updated.Action)
	assert.True(t, h.provider.CheckPassword("kasun@example.com", newPassword))

	_, errResp = h.svc.UpdatePassword(ctx, model.UpdatePasswordRequest{Token: token, NewPassword: newPassword})
	require.NotNil(t, errResp)
	assert.Equal(t, model.KindExpired, errResp.Kind)
	assert.Equal(t, http.StatusBadRequest, errResp.Code)
}

func TestEmailResetTokenExpires(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedUser(t, model.User{UID: "u1", Email: "kasun@example.com"})

	_, errResp := h.svc.RequestPasswordReset(ctx, model.PasswordResetRequest{Email: "kasun@example.com"})
	require.Nil(t, errResp)

	h.advance(ResetTokenTTL)
	_, errResp = h.svc.UpdatePassword(ctx, model.UpdatePasswordRequest{Token: h.notifier.token("kasun@example.com"), NewPassword: newPassword})
	require.NotNil(t, errResp)
	assert.Equal(t, model.KindExpired, errResp.Kind)
}

func TestEmailResetDoesNotRevealAccounts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedUser(t, model.User{UID: "u1", Email: "kasun@example.com"})

	known, errResp := h.svc.RequestPasswordReset(ctx, model.PasswordResetRequest{Email: "kasun@example.com"})
	require.Nil(t, errResp)
	unknown, errResp := h.svc.RequestPasswordReset(ctx, model.PasswordResetRequest{Email: "nobody@example.com"})
	require.Nil(t, errResp)

	assert.Equal(t, known, unknown)
	assert.Empty(t, h.notifier.token("nobody@example.com"))
}

func TestEmailResetReleasesTokenOnProviderFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedAuth(t, "kasun@example.com", "Old!Passw0rd")
	h.seedUser(t, model.User{UID: "u1", Email: "kasun@example.com"})

	_, errResp := h.svc.RequestPasswordReset(ctx, model.PasswordResetRequest{Email: "kasun@example.com"})
	require.Nil(t, errResp)
	token := h.notifier.token("kasun@example.com")

	h.provider.fail = true
	_, errResp = h.svc.UpdatePassword(ctx, model.UpdatePasswordRequest{Token: token, NewPassword: newPassword})
	require.NotNil(t, errResp)
	assert.Equal(t, model.KindAuthProvider, errResp.Kind)

	h.provider.fail = false
	_, errResp = h.svc.UpdatePassword(ctx, model.UpdatePasswordRequest{Token: token, NewPassword: newPassword})
	require.Nil(t, errResp)
}

func TestPasswordResetNeedsEmailOrPhone(t *testing.T) {
	h := newHarness(t)
	_, errResp := h.svc.RequestPasswordReset(context.Background(), model.PasswordResetRequest{})
	require.NotNil(t, errResp)
	assert.Equal(t, http.StatusBadRequest, errResp.Code)
}
