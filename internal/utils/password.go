package utils

import (
	"errors"
	"strings"
	"unicode"
)

// PasswordSymbols is the set a password must draw at least one symbol from.
const PasswordSymbols = `!@#$%^&*(),.?":{}|<>`

const MinPasswordLength = 8

var (
	ErrPasswordTooShort  = errors.New("Password must be at least 8 characters long")
	ErrPasswordNoUpper   = errors.New("Password must contain at least one uppercase letter")
	ErrPasswordNoLower   = errors.New("Password must contain at least one lowercase letter")
	ErrPasswordNoDigit   = errors.New("Password must contain at least one number")
	ErrPasswordNoSpecial = errors.New(`Password must contain at least one special character (!@#$%^&*(),.?":{}|<>)`)
)

// ValidatePassword enforces the account password policy and reports the
// first rule that fails.
func ValidatePassword(password string) error {
	if len([]rune(password)) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(PasswordSymbols, r):
			hasSpecial = true
		}
	}
	if !hasUpper {
		return ErrPasswordNoUpper
	}
	if !hasLower {
		return ErrPasswordNoLower
	}
	if !hasDigit {
		return ErrPasswordNoDigit
	}
	if !hasSpecial {
		return ErrPasswordNoSpecial
	}
	return nil
}
