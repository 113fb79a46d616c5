package model

// SuccessResponse - Generic success response
type SuccessResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Payload interface{} `json:"payload,omitempty"`
}

// PhoneVerifyResponse - OTP issued
type PhoneVerifyResponse struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
}

// VerifyOTPResponse - OTP accepted
type VerifyOTPResponse struct {
	Message string `json:"message"`
	Phone   string `json:"phone"`
	Type    string `json:"type"`
}

// PasswordResetResponse - reset started; ExpiresIn is in seconds
type PasswordResetResponse struct {
	Message   string `json:"message"`
	ExpiresIn int    `json:"expiresIn"`
}

// UpdatePasswordResponse - reset finished
type UpdatePasswordResponse struct {
	Message string `json:"message"`
	Email   string `json:"email"`
	Action  string `json:"action"`
}

// AccountResponse - reset-phone-password and create-phone-account
type AccountResponse struct {
	Success bool   `json:"success"`
	Email   string `json:"email"`
	UID     string `json:"uid"`
}

// LookupPhoneEmailResponse - sign-in email for a phone
type LookupPhoneEmailResponse struct {
	Success bool   `json:"success"`
	Email   string `json:"email"`
}

// EnsureAuthResponse - result of an admin repair
type EnsureAuthResponse struct {
	Success   bool     `json:"success"`
	AuthEmail string   `json:"authEmail"`
	UID       string   `json:"uid"`
	Fixes     []string `json:"fixes"`
}

// ContactResponse - stored contact message
type ContactResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
}

// MessagesResponse - admin message listing
type MessagesResponse struct {
	Success  bool           `json:"success"`
	Messages []AdminMessage `json:"messages"`
}

// SavedItemsResponse - a user's saved tasks or tools
type SavedItemsResponse struct {
	Success bool        `json:"success"`
	Items   []SavedItem `json:"items"`
}
