// Package authprovider wraps the external identity provider behind the few
// admin operations the API needs.
package authprovider

import (
	"context"
	"errors"
)

var (
	ErrUserNotFound = errors.New("auth user not found")
	ErrEmailExists  = errors.New("auth email already exists")
	ErrWeakPassword = errors.New("password rejected by identity provider")
	ErrInvalidToken = errors.New("invalid or expired id token")
	ErrInvalidEmail = errors.New("invalid email for identity provider")
)

// User is the provider-side account
type User struct {
	UID         string
	Email       string
	DisplayName string
}

// Token is a verified ID token
type Token struct {
	UID    string
	Email  string
	Claims map[string]interface{}
}

// IsAdmin reports whether the token carries the admin custom claim.
func (t *Token) IsAdmin() bool {
	v, ok := t.Claims["admin"].(bool)
	return ok && v
}

// Provider is implemented by the Firebase Admin client and by the in-memory
// provider used for local runs and tests.
type Provider interface {
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	CreateUser(ctx context.Context, email, password, displayName string) (*User, error)
	UpdatePassword(ctx context.Context, uid, password string) error
	VerifyIDToken(ctx context.Context, idToken string) (*Token, error)
}
