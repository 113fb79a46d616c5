package model

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateRequest validates any request struct using go-playground/validator
func ValidateRequest(req interface{}) error {
	err := validate.Struct(req)
	if err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			return fmt.Errorf("validation error: %v", err)
		}
		var errs []string
		for _, err := range err.(validator.ValidationErrors) {
			errs = append(errs, fmt.Sprintf("field %s: %s", err.Field(), err.Tag()))
		}
		return fmt.Errorf("validation failed: %s", errs)
	}
	return nil
}

// PhoneVerifyRequest - issue an OTP to a phone number
type PhoneVerifyRequest struct {
	Phone string `json:"phone" validate:"required,max=32"`
	Type  string `json:"type" validate:"omitempty,oneof=signup password_reset phone_verification"`
}

// VerifyOTPRequest - check a submitted OTP
type VerifyOTPRequest struct {
	Phone string `json:"phone" validate:"required,max=32"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}

// PasswordResetRequest - start a reset by email link or phone OTP
type PasswordResetRequest struct {
	Email string `json:"email,omitempty" validate:"omitempty,email"`
	Phone string `json:"phone,omitempty" validate:"omitempty,max=32"`
}

// UpdatePasswordRequest - finish a reset with an email token or a verified phone
type UpdatePasswordRequest struct {
	Token       string `json:"token,omitempty" validate:"omitempty,hexadecimal,len=64"`
	Phone       string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Verified    bool   `json:"verified,omitempty"`
	NewPassword string `json:"newPassword" validate:"required"`
}

// ResetPhonePasswordRequest - set a new password for a verified phone
type ResetPhonePasswordRequest struct {
	Phone       string `json:"phone" validate:"required,max=32"`
	NewPassword string `json:"newPassword" validate:"required"`
}

// CreatePhoneAccountRequest - sign up with a verified phone
type CreatePhoneAccountRequest struct {
	Phone       string `json:"phone" validate:"required,max=32"`
	Password    string `json:"password" validate:"required"`
	DisplayName string `json:"displayName" validate:"omitempty,max=80"`
}

// LookupPhoneEmailRequest - resolve the sign-in email for a phone
type LookupPhoneEmailRequest struct {
	Phone string `json:"phone" validate:"required,max=32"`
}

// EnsureAuthRequest - admin repair of a user's auth account
type EnsureAuthRequest struct {
	Email    string `json:"email,omitempty" validate:"omitempty,email"`
	Phone    string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Password string `json:"password" validate:"required"`
}

// ContactRequest - contact form submission
type ContactRequest struct {
	Name    string `json:"name" validate:"required,max=100"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Subject string `json:"subject" validate:"required,max=200"`
	Message string `json:"message" validate:"required,max=5000"`
}

// UpdateMessageRequest - partial update of an admin message
type UpdateMessageRequest struct {
	Status     *string `json:"status,omitempty" validate:"omitempty,oneof=new in_progress resolved"`
	Read       *bool   `json:"read,omitempty"`
	AssignedTo *string `json:"assignedTo,omitempty" validate:"omitempty,max=128"`
	Notes      *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// SaveItemRequest - bookmark a task or tool
type SaveItemRequest struct {
	ItemID string `json:"itemId" validate:"required,max=128"`
	Title  string `json:"title,omitempty" validate:"omitempty,max=200"`
}

// InteractionRequest - record an action on a listing
type InteractionRequest struct {
	Action string `json:"action" validate:"required,oneof=contact share apply rent"`
}
