package authprovider

import (
	"context"
	"fmt"

	"firebase.google.com/go/auth"
)

// Firebase implements Provider with the Firebase Admin SDK
type Firebase struct {
	client *auth.Client
}

func NewFirebase(client *auth.Client) *Firebase {
	return &Firebase{client: client}
}

func (f *Firebase) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	rec, err := f.client.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, mapError(err)
	}
	return fromRecord(rec), nil
}

func (f *Firebase) CreateUser(ctx context.Context, email, password, displayName string) (*User, error) {
	params := (&auth.UserToCreate{}).
		Email(email).
		Password(password)
	if displayName != "" {
		params = params.DisplayName(displayName)
	}

	rec, err := f.client.CreateUser(ctx, params)
	if err != nil {
		return nil, mapError(err)
	}
	return fromRecord(rec), nil
}

func (f *Firebase) UpdatePassword(ctx context.Context, uid, password string) error {
	_, err := f.client.UpdateUser(ctx, uid, (&auth.UserToUpdate{}).Password(password))
	if err != nil {
		return mapError(err)
	}
	return nil
}

func (f *Firebase) VerifyIDToken(ctx context.Context, idToken string) (*Token, error) {
	tok, err := f.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	email, _ := tok.Claims["email"].(string)
	return &Token{UID: tok.UID, Email: email, Claims: tok.Claims}, nil
}

func fromRecord(rec *auth.UserRecord) *User {
	return &User{
		UID:         rec.UID,
		Email:       rec.Email,
		DisplayName: rec.DisplayName,
	}
}

func mapError(err error) error {
	switch {
	case auth.IsUserNotFound(err):
		return fmt.Errorf("%w: %v", ErrUserNotFound, err)
	case auth.IsEmailAlreadyExists(err):
		return fmt.Errorf("%w: %v", ErrEmailExists, err)
	case auth.IsInvalidEmail(err):
		return fmt.Errorf("%w: %v", ErrInvalidEmail, err)
	default:
		return err
	}
}
