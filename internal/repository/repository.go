package repository

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/toolntask/toolntask-api/internal/model"
)

var (
	ErrNotFound      = errors.New("document not found")
	ErrAlreadyExists = errors.New("document already exists")
	ErrTokenInvalid  = errors.New("reset token is invalid, used or expired")
)

// UserRepository reads and writes users/{id}. Updates use Firestore update
// paths; firestore.Delete removes a field.
type UserRepository interface {
	FindUserByPhone(ctx context.Context, phones []string) (*model.User, error)
	// FindUserByEmail matches either the email or the authEmail field.
	FindUserByEmail(ctx context.Context, email string) (*model.User, error)
	CreateUser(ctx context.Context, user *model.User) (string, error)
	UpdateUser(ctx context.Context, id string, updates []firestore.Update) error
}

type VerificationRepository interface {
	SavePhoneVerification(ctx context.Context, pv *model.PhoneVerification) error
	GetPhoneVerification(ctx context.Context, phone string) (*model.PhoneVerification, error)
	// MutatePhoneVerification loads the record, lets fn change it and writes
	// it back atomically. An error from fn aborts without writing.
	MutatePhoneVerification(ctx context.Context, phone string, fn func(pv *model.PhoneVerification) error) error
}

type ResetRepository interface {
	CreatePasswordReset(ctx context.Context, reset *model.PasswordReset) (string, error)
	// ConsumePasswordReset marks the reset whose token hash matches as used
	// and returns it with its owning user, in one transaction.
	ConsumePasswordReset(ctx context.Context, tokenHash string, now time.Time) (*model.PasswordReset, *model.User, error)
	ReleasePasswordReset(ctx context.Context, id string) error
}

type MessageRepository interface {
	CreateMessage(ctx context.Context, msg *model.AdminMessage) (string, error)
	ListMessages(ctx context.Context, status string, limit int) ([]model.AdminMessage, error)
	UpdateMessage(ctx context.Context, id string, updates []firestore.Update) error
}

type SavedItemRepository interface {
	SaveItem(ctx context.Context, collection string, item *model.SavedItem) error
	RemoveSavedItem(ctx context.Context, collection, uid, itemID string) error
	ListSavedItems(ctx context.Context, collection, uid string) ([]model.SavedItem, error)
}

type ActivityRepository interface {
	RecordView(ctx context.Context, collection string, view *model.ItemView) error
	RecordInteraction(ctx context.Context, collection string, interaction *model.Interaction) error
}

// Purger removes reset tokens and verification records that can no longer
// be used.
type Purger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
}

type Repository interface {
	UserRepository
	VerificationRepository
	ResetRepository
	MessageRepository
	SavedItemRepository
	ActivityRepository
	Purger
	Close() error
}

// VerificationRetention is how long a phone verification record is kept past
// its expiry so a verified code can still authorize its follow-up step.
const VerificationRetention = time.Hour

// UsedResetRetention keeps a consumed reset token around long enough for a
// failed password change to hand it back.
const UsedResetRetention = 15 * time.Minute

// SavedItemID is the document id of a saved item.
func SavedItemID(uid, itemID string) string {
	return uid + "_" + itemID
}
