package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/toolntask/toolntask-api/internal/model"
)

type memoryUser struct {
	user  model.User
	extra map[string]interface{}
}

// MemoryRepository is an in-process Repository for development and tests.
// Update paths follow the Firestore field names of the model types.
type MemoryRepository struct {
	mu            sync.Mutex
	users         map[string]*memoryUser
	verifications map[string]model.PhoneVerification
	resets        map[string]model.PasswordReset
	messages      map[string]model.AdminMessage
	saved         map[string]map[string]model.SavedItem
	views         map[string][]model.ItemView
	interactions  map[string][]model.Interaction
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:         make(map[string]*memoryUser),
		verifications: make(map[string]model.PhoneVerification),
		resets:        make(map[string]model.PasswordReset),
		messages:      make(map[string]model.AdminMessage),
		saved:         make(map[string]map[string]model.SavedItem),
		views:         make(map[string][]model.ItemView),
		interactions:  make(map[string][]model.Interaction),
	}
}

func (r *MemoryRepository) Close() error { return nil }

func (m *memoryUser) snapshot(id string) *model.User {
	u := m.user
	u.ID = id
	for _, field := range model.LegacyPasswordFields {
		if _, ok := m.extra[field]; ok {
			u.HasLegacyPassword = true
			break
		}
	}
	return &u
}

func (r *MemoryRepository) FindUserByPhone(_ context.Context, phones []string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.sortedUserIDs() {
		u := r.users[id]
		for _, p := range phones {
			if u.user.Phone == p {
				return u.snapshot(id), nil
			}
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepository) FindUserByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, u := r.findByEmailLocked(email)
	if u == nil {
		return nil, ErrNotFound
	}
	return u.snapshot(id), nil
}

func (r *MemoryRepository) findByEmailLocked(email string) (string, *memoryUser) {
	ids := r.sortedUserIDs()
	for _, id := range ids {
		if r.users[id].user.Email == email {
			return id, r.users[id]
		}
	}
	for _, id := range ids {
		if r.users[id].user.AuthEmail == email {
			return id, r.users[id]
		}
	}
	return "", nil
}

func (r *MemoryRepository) sortedUserIDs() []string {
	ids := make([]string, 0, len(r.users))
	for id := range r.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *MemoryRepository) CreateUser(_ context.Context, user *model.User) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := user.ID
	if id == "" {
		id = user.UID
	}
	if id == "" {
		id = uuid.NewString()
	}
	if _, ok := r.users[id]; ok {
		return "", ErrAlreadyExists
	}
	stored := *user
	stored.ID = ""
	stored.HasLegacyPassword = false
	r.users[id] = &memoryUser{user: stored, extra: make(map[string]interface{})}
	return id, nil
}

func (r *MemoryRepository) UpdateUser(_ context.Context, id string, updates []firestore.Update) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	next := *u
	next.extra = make(map[string]interface{}, len(u.extra))
	for k, v := range u.extra {
		next.extra[k] = v
	}
	for _, up := range updates {
		if err := applyUserUpdate(&next, up); err != nil {
			return err
		}
	}
	r.users[id] = &next
	return nil
}

func applyUserUpdate(u *memoryUser, up firestore.Update) error {
	if up.Value == firestore.Delete {
		delete(u.extra, up.Path)
		return nil
	}
	value := up.Value
	if value == firestore.ServerTimestamp {
		value = time.Now()
	}
	var err error
	switch up.Path {
	case "uid":
		err = setString(&u.user.UID, up.Path, value)
	case "email":
		err = setString(&u.user.Email, up.Path, value)
	case "authEmail":
		err = setString(&u.user.AuthEmail, up.Path, value)
	case "phone":
		err = setString(&u.user.Phone, up.Path, value)
	case "displayName":
		err = setString(&u.user.DisplayName, up.Path, value)
	case "passwordResetCompleted":
		err = setBool(&u.user.PasswordResetCompleted, up.Path, value)
	case "passwordResetRequired":
		err = setBool(&u.user.PasswordResetRequired, up.Path, value)
	case "firebaseAuthSynced":
		err = setBool(&u.user.FirebaseAuthSynced, up.Path, value)
	case "createdAt":
		err = setTime(&u.user.CreatedAt, up.Path, value)
	case "updatedAt":
		err = setTime(&u.user.UpdatedAt, up.Path, value)
	case "passwordUpdatedAt":
		err = setTime(&u.user.PasswordUpdatedAt, up.Path, value)
	default:
		u.extra[up.Path] = value
	}
	return err
}

func setString(dst *string, path string, v interface{}) error {
	s, ok := v.(string)
	if !ok {
		return fmt.Errorf("field %s: expected string, got %T", path, v)
	}
	*dst = s
	return nil
}

func setBool(dst *bool, path string, v interface{}) error {
	b, ok := v.(bool)
	if !ok {
		return fmt.Errorf("field %s: expected bool, got %T", path, v)
	}
	*dst = b
	return nil
}

func setTime(dst *time.Time, path string, v interface{}) error {
	t, ok := v.(time.Time)
	if !ok {
		return fmt.Errorf("field %s: expected time.Time, got %T", path, v)
	}
	*dst = t
	return nil
}

func (r *MemoryRepository) SavePhoneVerification(_ context.Context, pv *model.PhoneVerification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.verifications[pv.Phone] = *pv
	return nil
}

func (r *MemoryRepository) GetPhoneVerification(_ context.Context, phone string) (*model.PhoneVerification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pv, ok := r.verifications[phone]
	if !ok {
		return nil, ErrNotFound
	}
	return &pv, nil
}

func (r *MemoryRepository) MutatePhoneVerification(_ context.Context, phone string, fn func(pv *model.PhoneVerification) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	pv, ok := r.verifications[phone]
	if !ok {
		return ErrNotFound
	}
	if err := fn(&pv); err != nil {
		return err
	}
	r.verifications[phone] = pv
	return nil
}

func (r *MemoryRepository) CreatePasswordReset(_ context.Context, reset *model.PasswordReset) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := uuid.NewString()
	stored := *reset
	stored.ID = id
	r.resets[id] = stored
	return id, nil
}

func (r *MemoryRepository) ConsumePasswordReset(_ context.Context, tokenHash string, now time.Time) (*model.PasswordReset, *model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, pr := range r.resets {
		if pr.Token != tokenHash {
			continue
		}
		if pr.Used || !now.Before(pr.ExpiresAt) {
			return nil, nil, ErrTokenInvalid
		}
		userID, owner := r.findByEmailLocked(pr.Email)
		if owner == nil {
			return nil, nil, ErrNotFound
		}
		pr.Used = true
		pr.UsedAt = now
		r.resets[id] = pr
		return &pr, owner.snapshot(userID), nil
	}
	return nil, nil, ErrTokenInvalid
}

func (r *MemoryRepository) ReleasePasswordReset(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	pr, ok := r.resets[id]
	if !ok {
		return ErrNotFound
	}
	pr.Used = false
	pr.UsedAt = time.Time{}
	r.resets[id] = pr
	return nil
}

func (r *MemoryRepository) CreateMessage(_ context.Context, msg *model.AdminMessage) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := uuid.NewString()
	stored := *msg
	stored.ID = id
	r.messages[id] = stored
	return id, nil
}

func (r *MemoryRepository) ListMessages(_ context.Context, status string, limit int) ([]model.AdminMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	messages := []model.AdminMessage{}
	for _, msg := range r.messages {
		if status == "" || msg.Status == status {
			messages = append(messages, msg)
		}
	}
	sort.Slice(messages, func(i, j int) bool { return messages[i].CreatedAt.After(messages[j].CreatedAt) })
	if limit > 0 && len(messages) > limit {
		messages = messages[:limit]
	}
	return messages, nil
}

func (r *MemoryRepository) UpdateMessage(_ context.Context, id string, updates []firestore.Update) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg, ok := r.messages[id]
	if !ok {
		return ErrNotFound
	}
	for _, up := range updates {
		var err error
		switch up.Path {
		case "status":
			err = setString(&msg.Status, up.Path, up.Value)
		case "read":
			err = setBool(&msg.Read, up.Path, up.Value)
		case "assignedTo":
			err = setString(&msg.AssignedTo, up.Path, up.Value)
		case "notes":
			err = setString(&msg.Notes, up.Path, up.Value)
		case "updatedAt":
			err = setTime(&msg.UpdatedAt, up.Path, up.Value)
		default:
			err = fmt.Errorf("field %s: not an admin message field", up.Path)
		}
		if err != nil {
			return err
		}
	}
	r.messages[id] = msg
	return nil
}

func (r *MemoryRepository) SaveItem(_ context.Context, collection string, item *model.SavedItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saved[collection] == nil {
		r.saved[collection] = make(map[string]model.SavedItem)
	}
	r.saved[collection][SavedItemID(item.UID, item.ItemID)] = *item
	return nil
}

func (r *MemoryRepository) RemoveSavedItem(_ context.Context, collection, uid, itemID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := SavedItemID(uid, itemID)
	if _, ok := r.saved[collection][key]; !ok {
		return ErrNotFound
	}
	delete(r.saved[collection], key)
	return nil
}

func (r *MemoryRepository) ListSavedItems(_ context.Context, collection, uid string) ([]model.SavedItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := []model.SavedItem{}
	for key, item := range r.saved[collection] {
		if strings.HasPrefix(key, uid+"_") && item.UID == uid {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].SavedAt.After(items[j].SavedAt) })
	return items, nil
}

func (r *MemoryRepository) RecordView(_ context.Context, collection string, view *model.ItemView) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views[collection] = append(r.views[collection], *view)
	return nil
}

func (r *MemoryRepository) RecordInteraction(_ context.Context, collection string, interaction *model.Interaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.interactions[collection] = append(r.interactions[collection], *interaction)
	return nil
}

// Views returns the recorded views of one collection.
func (r *MemoryRepository) Views(collection string) []model.ItemView {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.ItemView(nil), r.views[collection]...)
}

// Interactions returns the recorded interactions of one collection.
func (r *MemoryRepository) Interactions(collection string) []model.Interaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Interaction(nil), r.interactions[collection]...)
}

// UserFields returns fields stored on a user that the model does not declare.
func (r *MemoryRepository) UserFields(id string) map[string]interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil
	}
	fields := make(map[string]interface{}, len(u.extra))
	for k, v := range u.extra {
		fields[k] = v
	}
	return fields
}

func (r *MemoryRepository) PurgeExpired(_ context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	purged := 0
	usedCutoff := now.Add(-UsedResetRetention)
	for id, pr := range r.resets {
		if (pr.Used && pr.UsedAt.Before(usedCutoff)) || pr.ExpiresAt.Before(now) {
			delete(r.resets, id)
			purged++
		}
	}
	cutoff := now.Add(-VerificationRetention)
	for phone, pv := range r.verifications {
		if pv.ExpiresAt.Before(cutoff) {
			delete(r.verifications, phone)
			purged++
		}
	}
	return purged, nil
}

var _ Repository = (*MemoryRepository)(nil)
