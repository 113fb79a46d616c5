package services

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"
	"github.com/toolntask/toolntask-api/internal/authprovider"
	"github.com/toolntask/toolntask-api/internal/model"
	"github.com/toolntask/toolntask-api/internal/phone"
	"github.com/toolntask/toolntask-api/internal/repository"
	"github.com/toolntask/toolntask-api/internal/utils"
	"go.uber.org/zap"
)

// Fix names reported by EnsureAuth
const (
	FixCreatedAuthUser        = "created_auth_user"
	FixUpdatedPassword        = "updated_password"
	FixSyncedUID              = "synced_uid"
	FixSetAuthEmail           = "set_auth_email"
	FixClearedShadowPasswords = "cleared_shadow_passwords"
)

// Reconcile actions
const (
	ActionUpdated = "updated"
	ActionCreated = "created"
)

type reconciled struct {
	authEmail string
	uid       string
	action    string
	fixes     []string
}

// authEmailFor picks the identifier the user signs in with: the stored
// authEmail, else the synthetic address for their phone, else their email.
func authEmailFor(user *model.User) string {
	if user.AuthEmail != "" {
		return user.AuthEmail
	}
	if user.Phone != "" {
		if email, err := phone.AuthEmail(user.Phone); err == nil {
			return email
		}
	}
	return user.Email
}

// reconcile sets password on the user's provider account, creating the
// account if it is missing, then writes the user document back in sync.
func (s *identityService) reconcile(ctx context.Context, user *model.User, password string) (*reconciled, *model.ErrorResponse) {
	authEmail := authEmailFor(user)
	if authEmail == "" {
		return nil, model.ValidationError("Account has no email or phone number")
	}

	res := &reconciled{authEmail: authEmail}
	account, err := s.provider.GetUserByEmail(ctx, authEmail)
	switch {
	case errors.Is(err, authprovider.ErrUserNotFound):
		account, err = s.provider.CreateUser(ctx, authEmail, password, user.DisplayName)
		if err != nil {
			s.logger.Error("create auth user", zap.String("authEmail", authEmail), zap.Error(err))
			return nil, providerError(err)
		}
		res.action = ActionCreated
		res.fixes = append(res.fixes, FixCreatedAuthUser)
	case err != nil:
		s.logger.Error("lookup auth user", zap.String("authEmail", authEmail), zap.Error(err))
		return nil, providerError(err)
	default:
		if err := s.provider.UpdatePassword(ctx, account.UID, password); err != nil {
			s.logger.Error("update auth password", zap.String("uid", account.UID), zap.Error(err))
			return nil, providerError(err)
		}
		res.action = ActionUpdated
		res.fixes = append(res.fixes, FixUpdatedPassword)
	}
	res.uid = account.UID

	if user.UID != account.UID {
		res.fixes = append(res.fixes, FixSyncedUID)
	}
	if user.AuthEmail != authEmail {
		res.fixes = append(res.fixes, FixSetAuthEmail)
	}
	if user.HasLegacyPassword {
		res.fixes = append(res.fixes, FixClearedShadowPasswords)
	}

	now := s.now()
	updates := []firestore.Update{
		{Path: "uid", Value: account.UID},
		{Path: "authEmail", Value: authEmail},
		{Path: "firebaseAuthSynced", Value: true},
		{Path: "passwordResetCompleted", Value: true},
		{Path: "passwordResetRequired", Value: false},
		{Path: "passwordUpdatedAt", Value: now},
		{Path: "updatedAt", Value: now},
	}
	for _, field := range model.LegacyPasswordFields {
		updates = append(updates, firestore.Update{Path: field, Value: firestore.Delete})
	}
	// The password already changed upstream; a failed document write leaves
	// a stale flag that the next reconcile repairs.
	if err := s.users.UpdateUser(context.WithoutCancel(ctx), user.ID, updates); err != nil {
		s.logger.Error("sync user document after password change",
			zap.String("userId", user.ID), zap.String("uid", account.UID), zap.Error(err))
	}

	s.logger.Info("auth account reconciled",
		zap.String("userId", user.ID), zap.String("uid", account.UID), zap.Strings("fixes", res.fixes))
	return res, nil
}

func (s *identityService) CreatePhoneAccount(ctx context.Context, req model.CreatePhoneAccountRequest) (model.AccountResponse, *model.ErrorResponse) {
	if err := utils.ValidatePassword(req.Password); err != nil {
		return model.AccountResponse{}, model.ValidationError(err.Error())
	}
	canonical, err := phone.Normalize(req.Phone)
	if err != nil {
		return model.AccountResponse{}, invalidPhone()
	}

	_, err = s.findUserByPhone(ctx, canonical)
	switch {
	case err == nil:
		return model.AccountResponse{}, model.ConflictError("An account with this phone number already exists")
	case !errors.Is(err, repository.ErrNotFound):
		return model.AccountResponse{}, s.internal("lookup user by phone", err, zap.String("phone", canonical))
	}

	if errResp := s.claimVerification(ctx, canonical, signupPurposes); errResp != nil {
		return model.AccountResponse{}, errResp
	}

	authEmail, _ := phone.AuthEmail(canonical)
	account, err := s.provider.CreateUser(ctx, authEmail, req.Password, req.DisplayName)
	if err != nil {
		s.releaseVerification(ctx, canonical)
		if errors.Is(err, authprovider.ErrEmailExists) {
			return model.AccountResponse{}, model.ConflictError("An account with this phone number already exists")
		}
		s.logger.Error("create phone account", zap.String("phone", canonical), zap.Error(err))
		return model.AccountResponse{}, providerError(err)
	}

	now := s.now()
	user := &model.User{
		ID:                 account.UID,
		UID:                account.UID,
		AuthEmail:          authEmail,
		Phone:              canonical,
		DisplayName:        req.DisplayName,
		FirebaseAuthSynced: true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if _, err := s.users.CreateUser(context.WithoutCancel(ctx), user); err != nil {
		// The auth account exists; EnsureAuth can rebuild the link.
		return model.AccountResponse{}, s.internal("store phone account", err,
			zap.String("phone", canonical), zap.String("uid", account.UID))
	}

	s.logger.Info("phone account created", zap.String("uid", account.UID))
	return model.AccountResponse{Success: true, Email: authEmail, UID: account.UID}, nil
}

func (s *identityService) LookupPhoneEmail(ctx context.Context, req model.LookupPhoneEmailRequest) (model.LookupPhoneEmailResponse, *model.ErrorResponse) {
	canonical, err := phone.Normalize(req.Phone)
	if err != nil {
		return model.LookupPhoneEmailResponse{}, invalidPhone()
	}
	user, err := s.findUserByPhone(ctx, canonical)
	if errors.Is(err, repository.ErrNotFound) {
		return model.LookupPhoneEmailResponse{}, model.NotFoundError("No account found for this phone number")
	}
	if err != nil {
		return model.LookupPhoneEmailResponse{}, s.internal("lookup user by phone", err, zap.String("phone", canonical))
	}
	return model.LookupPhoneEmailResponse{Success: true, Email: authEmailFor(user)}, nil
}

// EnsureAuth is the admin repair path for accounts whose provider record and
// user document have drifted apart.
func (s *identityService) EnsureAuth(ctx context.Context, req model.EnsureAuthRequest) (model.EnsureAuthResponse, *model.ErrorResponse) {
	if err := utils.ValidatePassword(req.Password); err != nil {
		return model.EnsureAuthResponse{}, model.ValidationError(err.Error())
	}

	var (
		user *model.User
		err  error
	)
	switch {
	case req.Phone != "":
		canonical, perr := phone.Normalize(req.Phone)
		if perr != nil {
			return model.EnsureAuthResponse{}, invalidPhone()
		}
		user, err = s.findUserByPhone(ctx, canonical)
	case req.Email != "":
		user, err = s.findUserByEmail(ctx, req.Email)
	default:
		return model.EnsureAuthResponse{}, model.ValidationError("Email or phone number is required")
	}
	if errors.Is(err, repository.ErrNotFound) {
		return model.EnsureAuthResponse{}, model.NotFoundError("User not found")
	}
	if err != nil {
		return model.EnsureAuthResponse{}, s.internal("lookup user", err)
	}

	res, errResp := s.reconcile(ctx, user, req.Password)
	if errResp != nil {
		return model.EnsureAuthResponse{}, errResp
	}
	return model.EnsureAuthResponse{
		Success:   true,
		AuthEmail: res.authEmail,
		UID:       res.uid,
		Fixes:     res.fixes,
	}, nil
}
