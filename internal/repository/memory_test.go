package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toolntask/toolntask-api/internal/model"
)

func TestMemoryUserLookup(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	id, err := repo.CreateUser(ctx, &model.User{UID: "uid-1", Email: "a@example.com", Phone: "0771234567"})
	require.NoError(t, err)
	assert.Equal(t, "uid-1", id)

	_, err = repo.CreateUser(ctx, &model.User{UID: "uid-1"})
	assert.ErrorIs(t, err, ErrAlreadyExists)

	u, err := repo.FindUserByPhone(ctx, []string{"+94771234567", "94771234567", "0771234567"})
	require.NoError(t, err)
	assert.Equal(t, "uid-1", u.ID)

	_, err = repo.FindUserByPhone(ctx, []string{"+94770000000"})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.UpdateUser(ctx, id, []firestore.Update{{Path: "authEmail", Value: "94771234567@toolntask.app"}}))
	u, err = repo.FindUserByEmail(ctx, "94771234567@toolntask.app")
	require.NoError(t, err)
	assert.Equal(t, "uid-1", u.ID)

	u, err = repo.FindUserByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "uid-1", u.ID)
}

func TestMemoryLegacyFieldsAreDeletable(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	id, err := repo.CreateUser(ctx, &model.User{UID: "uid-1", Email: "a@example.com"})
	require.NoError(t, err)

	require.NoError(t, repo.UpdateUser(ctx, id, []firestore.Update{{Path: "currentPassword", Value: "hunter2"}}))
	u, err := repo.FindUserByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.True(t, u.HasLegacyPassword)

	require.NoError(t, repo.UpdateUser(ctx, id, []firestore.Update{{Path: "currentPassword", Value: firestore.Delete}}))
	assert.Empty(t, repo.UserFields(id))
}

func TestMemoryUpdateUserIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	id, err := repo.CreateUser(ctx, &model.User{UID: "uid-1", Email: "a@example.com"})
	require.NoError(t, err)

	err = repo.UpdateUser(ctx, id, []firestore.Update{
		{Path: "email", Value: "b@example.com"},
		{Path: "firebaseAuthSynced", Value: "yes"},
	})
	require.Error(t, err)

	_, err = repo.FindUserByEmail(ctx, "a@example.com")
	assert.NoError(t, err)
	assert.ErrorIs(t, repo.UpdateUser(ctx, "missing", nil), ErrNotFound)
}

func TestMemoryMutatePhoneVerification(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	require.NoError(t, repo.SavePhoneVerification(ctx, &model.PhoneVerification{Phone: "+94771234567", OTPHash: "h"}))

	abort := errors.New("abort")
	err := repo.MutatePhoneVerification(ctx, "+94771234567", func(pv *model.PhoneVerification) error {
		pv.Verified = true
		return abort
	})
	assert.ErrorIs(t, err, abort)
	pv, err := repo.GetPhoneVerification(ctx, "+94771234567")
	require.NoError(t, err)
	assert.False(t, pv.Verified)

	require.NoError(t, repo.MutatePhoneVerification(ctx, "+94771234567", func(pv *model.PhoneVerification) error {
		pv.Verified = true
		return nil
	}))
	pv, err = repo.GetPhoneVerification(ctx, "+94771234567")
	require.NoError(t, err)
	assert.True(t, pv.Verified)

	err = repo.MutatePhoneVerification(ctx, "+94770000000", func(*model.PhoneVerification) error { return nil })
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryConsumePasswordReset(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	_, err := repo.CreateUser(ctx, &model.User{UID: "uid-1", Email: "a@example.com"})
	require.NoError(t, err)
	id, err := repo.CreatePasswordReset(ctx, &model.PasswordReset{Email: "a@example.com", Token: "hash", ExpiresAt: now.Add(time.Hour)})
	require.NoError(t, err)

	reset, user, err := repo.ConsumePasswordReset(ctx, "hash", now)
	require.NoError(t, err)
	assert.Equal(t, id, reset.ID)
	assert.Equal(t, "uid-1", user.ID)

	_, _, err = repo.ConsumePasswordReset(ctx, "hash", now)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	require.NoError(t, repo.ReleasePasswordReset(ctx, id))
	_, _, err = repo.ConsumePasswordReset(ctx, "hash", now)
	assert.NoError(t, err)

	_, _, err = repo.ConsumePasswordReset(ctx, "unknown", now)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestMemoryConsumeRejectsExpiredAndOrphanedTokens(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	_, err := repo.CreatePasswordReset(ctx, &model.PasswordReset{Email: "a@example.com", Token: "expired", ExpiresAt: now})
	require.NoError(t, err)
	_, _, err = repo.ConsumePasswordReset(ctx, "expired", now)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = repo.CreatePasswordReset(ctx, &model.PasswordReset{Email: "ghost@example.com", Token: "orphan", ExpiresAt: now.Add(time.Hour)})
	require.NoError(t, err)
	_, _, err = repo.ConsumePasswordReset(ctx, "orphan", now)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryPurgeExpired(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	_, err := repo.CreatePasswordReset(ctx, &model.PasswordReset{Token: "old", ExpiresAt: now.Add(-time.Minute)})
	require.NoError(t, err)
	_, err = repo.CreatePasswordReset(ctx, &model.PasswordReset{Token: "used", Used: true,
		UsedAt: now.Add(-UsedResetRetention - time.Second), ExpiresAt: now.Add(time.Hour)})
	require.NoError(t, err)
	pendingID, err := repo.CreatePasswordReset(ctx, &model.PasswordReset{Token: "pending", Used: true,
		UsedAt: now.Add(-time.Minute), ExpiresAt: now.Add(time.Hour)})
	require.NoError(t, err)
	_, err = repo.CreatePasswordReset(ctx, &model.PasswordReset{Token: "live", ExpiresAt: now.Add(time.Hour)})
	require.NoError(t, err)
	require.NoError(t, repo.SavePhoneVerification(ctx, &model.PhoneVerification{Phone: "+94771111111", ExpiresAt: now.Add(-2 * time.Hour)}))
	require.NoError(t, repo.SavePhoneVerification(ctx, &model.PhoneVerification{Phone: "+94772222222", ExpiresAt: now.Add(-time.Minute)}))

	n, err := repo.PurgeExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = repo.GetPhoneVerification(ctx, "+94772222222")
	assert.NoError(t, err)
	_, err = repo.GetPhoneVerification(ctx, "+94771111111")
	assert.ErrorIs(t, err, ErrNotFound)

	// a recently used token can still be handed back
	assert.NoError(t, repo.ReleasePasswordReset(ctx, pendingID))
}

func TestMemoryMessages(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	first, err := repo.CreateMessage(ctx, &model.AdminMessage{Subject: "first", Status: model.MessageStatusNew, CreatedAt: base})
	require.NoError(t, err)
	_, err = repo.CreateMessage(ctx, &model.AdminMessage{Subject: "second", Status: model.MessageStatusNew, CreatedAt: base.Add(time.Minute)})
	require.NoError(t, err)

	msgs, err := repo.ListMessages(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "second", msgs[0].Subject)

	require.NoError(t, repo.UpdateMessage(ctx, first, []firestore.Update{
		{Path: "status", Value: model.MessageStatusResolved},
		{Path: "read", Value: true},
	}))
	msgs, err = repo.ListMessages(ctx, model.MessageStatusResolved, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].Read)

	assert.ErrorIs(t, repo.UpdateMessage(ctx, "missing", nil), ErrNotFound)
}

func TestMemorySavedItems(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.SaveItem(ctx, model.SavedTasksCollection, &model.SavedItem{UID: "u1", ItemID: "t1", SavedAt: base}))
	require.NoError(t, repo.SaveItem(ctx, model.SavedTasksCollection, &model.SavedItem{UID: "u1", ItemID: "t2", SavedAt: base.Add(time.Minute)}))
	require.NoError(t, repo.SaveItem(ctx, model.SavedTasksCollection, &model.SavedItem{UID: "u2", ItemID: "t1", SavedAt: base}))
	require.NoError(t, repo.SaveItem(ctx, model.SavedTasksCollection, &model.SavedItem{UID: "u1", ItemID: "t1", SavedAt: base}))

	items, err := repo.ListSavedItems(ctx, model.SavedTasksCollection, "u1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "t2", items[0].ItemID)

	require.NoError(t, repo.RemoveSavedItem(ctx, model.SavedTasksCollection, "u1", "t2"))
	assert.ErrorIs(t, repo.RemoveSavedItem(ctx, model.SavedTasksCollection, "u1", "t2"), ErrNotFound)

	items, err = repo.ListSavedItems(ctx, model.SavedToolsCollection, "u1")
	require.NoError(t, err)
	assert.Empty(t, items)
}
