package model

import "time"

// Firestore collection names.
const (
	UsersCollection              = "users"
	PhoneVerificationsCollection = "phoneVerifications"
	PasswordResetsCollection     = "passwordResets"
	AdminMessagesCollection      = "admin_messages"
	SavedTasksCollection         = "saved_tasks"
	SavedToolsCollection         = "saved_tools"
	TaskViewsCollection          = "task_views"
	ToolViewsCollection          = "tool_views"
	TaskInteractionsCollection   = "task_interactions"
	ToolInteractionsCollection   = "tool_interactions"
)

// Legacy user document fields that held plaintext passwords. They are never
// written and are removed whenever a user document is touched.
var LegacyPasswordFields = []string{"currentPassword", "tempPassword", "pendingPasswordReset"}

// OTP purposes
const (
	PurposeSignup            = "signup"
	PurposePasswordReset     = "password_reset"
	PurposePhoneVerification = "phone_verification"
)

// User is a users/{id} document
type User struct {
	ID                     string    `json:"id" firestore:"-"`
	UID                    string    `json:"uid" firestore:"uid"`
	Email                  string    `json:"email,omitempty" firestore:"email"`
	AuthEmail              string    `json:"authEmail,omitempty" firestore:"authEmail"`
	Phone                  string    `json:"phone,omitempty" firestore:"phone"`
	DisplayName            string    `json:"displayName,omitempty" firestore:"displayName"`
	PasswordResetCompleted bool      `json:"passwordResetCompleted" firestore:"passwordResetCompleted"`
	PasswordResetRequired  bool      `json:"passwordResetRequired" firestore:"passwordResetRequired"`
	FirebaseAuthSynced     bool      `json:"firebaseAuthSynced" firestore:"firebaseAuthSynced"`
	CreatedAt              time.Time `json:"createdAt" firestore:"createdAt"`
	UpdatedAt              time.Time `json:"updatedAt" firestore:"updatedAt"`
	PasswordUpdatedAt      time.Time `json:"passwordUpdatedAt,omitempty" firestore:"passwordUpdatedAt,omitempty"`

	// HasLegacyPassword is set by the repository when any legacy plaintext
	// password field is present on the stored document.
	HasLegacyPassword bool `json:"-" firestore:"-"`
}

// PhoneVerification is a phoneVerifications/{phone} document
type PhoneVerification struct {
	Phone      string    `json:"phone" firestore:"phone"`
	OTPHash    string    `json:"-" firestore:"otpHash"`
	Purpose    string    `json:"purpose" firestore:"purpose"`
	Verified   bool      `json:"verified" firestore:"verified"`
	Consumed   bool      `json:"consumed" firestore:"consumed"`
	VerifiedIP string    `json:"verifiedIP,omitempty" firestore:"verifiedIP,omitempty"`
	VerifiedAt time.Time `json:"verifiedAt,omitempty" firestore:"verifiedAt,omitempty"`
	ExpiresAt  time.Time `json:"expiresAt" firestore:"expiresAt"`
	CreatedAt  time.Time `json:"createdAt" firestore:"createdAt"`
}

// PasswordReset is a passwordResets/{autoId} document. Token holds the
// SHA-256 of the emailed token, never the token itself.
type PasswordReset struct {
	ID        string    `json:"id" firestore:"-"`
	Email     string    `json:"email" firestore:"email"`
	Token     string    `json:"-" firestore:"token"`
	Used      bool      `json:"used" firestore:"used"`
	UsedAt    time.Time `json:"usedAt,omitempty" firestore:"usedAt,omitempty"`
	ExpiresAt time.Time `json:"expiresAt" firestore:"expiresAt"`
	CreatedAt time.Time `json:"createdAt" firestore:"createdAt"`
}

// AdminMessage is a contact form submission
type AdminMessage struct {
	ID         string    `json:"id" firestore:"-"`
	Name       string    `json:"name" firestore:"name"`
	Email      string    `json:"email" firestore:"email"`
	Phone      string    `json:"phone,omitempty" firestore:"phone"`
	Subject    string    `json:"subject" firestore:"subject"`
	Message    string    `json:"message" firestore:"message"`
	Status     string    `json:"status" firestore:"status"`
	Read       bool      `json:"read" firestore:"read"`
	AssignedTo string    `json:"assignedTo,omitempty" firestore:"assignedTo"`
	Notes      string    `json:"notes,omitempty" firestore:"notes"`
	CreatedAt  time.Time `json:"createdAt" firestore:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt" firestore:"updatedAt"`
}

// Admin message statuses
const (
	MessageStatusNew        = "new"
	MessageStatusInProgress = "in_progress"
	MessageStatusResolved   = "resolved"
)

// SavedItem is a saved_tasks / saved_tools document keyed by uid_itemId
type SavedItem struct {
	UID     string    `json:"uid" firestore:"uid"`
	ItemID  string    `json:"itemId" firestore:"itemId"`
	Title   string    `json:"title,omitempty" firestore:"title"`
	SavedAt time.Time `json:"savedAt" firestore:"savedAt"`
}

// ItemView records one view of a task or tool listing
type ItemView struct {
	ItemID   string    `json:"itemId" firestore:"itemId"`
	UID      string    `json:"uid,omitempty" firestore:"uid,omitempty"`
	IP       string    `json:"ip,omitempty" firestore:"ip,omitempty"`
	ViewedAt time.Time `json:"viewedAt" firestore:"viewedAt"`
}

// Interaction records a user action on a task or tool listing
type Interaction struct {
	ItemID    string    `json:"itemId" firestore:"itemId"`
	UID       string    `json:"uid" firestore:"uid"`
	Action    string    `json:"action" firestore:"action"`
	CreatedAt time.Time `json:"createdAt" firestore:"createdAt"`
}

// Item kinds used in saved/view/interaction routes
const (
	KindTasks = "tasks"
	KindTools = "tools"
)
