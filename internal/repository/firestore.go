package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/toolntask/toolntask-api/internal/model"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreRepository implements Repository on Cloud Firestore
type FirestoreRepository struct {
	client *firestore.Client
}

// NewFirestoreRepository wraps an initialized Firestore client
func NewFirestoreRepository(client *firestore.Client) *FirestoreRepository {
	return &FirestoreRepository{client: client}
}

// Close closes the Firestore client
func (r *FirestoreRepository) Close() error {
	return r.client.Close()
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func isAlreadyExists(err error) bool {
	return status.Code(err) == codes.AlreadyExists
}

func userFromSnapshot(doc *firestore.DocumentSnapshot) (*model.User, error) {
	var user model.User
	if err := doc.DataTo(&user); err != nil {
		return nil, fmt.Errorf("decode user %s: %w", doc.Ref.ID, err)
	}
	user.ID = doc.Ref.ID
	data := doc.Data()
	for _, field := range model.LegacyPasswordFields {
		if _, ok := data[field]; ok {
			user.HasLegacyPassword = true
			break
		}
	}
	return &user, nil
}

func firstUser(docs []*firestore.DocumentSnapshot) (*model.User, error) {
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	return userFromSnapshot(docs[0])
}

func (r *FirestoreRepository) users() *firestore.CollectionRef {
	return r.client.Collection(model.UsersCollection)
}

func (r *FirestoreRepository) FindUserByPhone(ctx context.Context, phones []string) (*model.User, error) {
	if len(phones) == 0 {
		return nil, ErrNotFound
	}
	docs, err := r.users().Where("phone", "in", phones).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("query users by phone: %w", err)
	}
	return firstUser(docs)
}

func (r *FirestoreRepository) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, field := range []string{"email", "authEmail"} {
		docs, err := r.users().Where(field, "==", email).Limit(1).Documents(ctx).GetAll()
		if err != nil {
			return nil, fmt.Errorf("query users by %s: %w", field, err)
		}
		if len(docs) > 0 {
			return userFromSnapshot(docs[0])
		}
	}
	return nil, ErrNotFound
}

// CreateUser stores the user under user.ID, or user.UID when ID is empty.
func (r *FirestoreRepository) CreateUser(ctx context.Context, user *model.User) (string, error) {
	id := user.ID
	if id == "" {
		id = user.UID
	}
	ref := r.users().NewDoc()
	if id != "" {
		ref = r.users().Doc(id)
	}
	if _, err := ref.Create(ctx, user); err != nil {
		if isAlreadyExists(err) {
			return "", ErrAlreadyExists
		}
		return "", fmt.Errorf("create user: %w", err)
	}
	return ref.ID, nil
}

func (r *FirestoreRepository) UpdateUser(ctx context.Context, id string, updates []firestore.Update) error {
	if _, err := r.users().Doc(id).Update(ctx, updates); err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("update user %s: %w", id, err)
	}
	return nil
}

func (r *FirestoreRepository) verifications() *firestore.CollectionRef {
	return r.client.Collection(model.PhoneVerificationsCollection)
}

// SavePhoneVerification overwrites any earlier record for the same phone.
func (r *FirestoreRepository) SavePhoneVerification(ctx context.Context, pv *model.PhoneVerification) error {
	if _, err := r.verifications().Doc(pv.Phone).Set(ctx, pv); err != nil {
		return fmt.Errorf("save phone verification: %w", err)
	}
	return nil
}

func (r *FirestoreRepository) GetPhoneVerification(ctx context.Context, phone string) (*model.PhoneVerification, error) {
	doc, err := r.verifications().Doc(phone).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get phone verification: %w", err)
	}
	var pv model.PhoneVerification
	if err := doc.DataTo(&pv); err != nil {
		return nil, fmt.Errorf("decode phone verification: %w", err)
	}
	return &pv, nil
}

func (r *FirestoreRepository) MutatePhoneVerification(ctx context.Context, phone string, fn func(pv *model.PhoneVerification) error) error {
	ref := r.verifications().Doc(phone)
	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			if isNotFound(err) {
				return ErrNotFound
			}
			return err
		}
		var pv model.PhoneVerification
		if err := doc.DataTo(&pv); err != nil {
			return fmt.Errorf("decode phone verification: %w", err)
		}
		if err := fn(&pv); err != nil {
			return err
		}
		return tx.Set(ref, &pv)
	})
}

func (r *FirestoreRepository) resets() *firestore.CollectionRef {
	return r.client.Collection(model.PasswordResetsCollection)
}

func (r *FirestoreRepository) CreatePasswordReset(ctx context.Context, reset *model.PasswordReset) (string, error) {
	ref := r.resets().NewDoc()
	if _, err := ref.Create(ctx, reset); err != nil {
		return "", fmt.Errorf("create password reset: %w", err)
	}
	return ref.ID, nil
}

func (r *FirestoreRepository) ConsumePasswordReset(ctx context.Context, tokenHash string, now time.Time) (*model.PasswordReset, *model.User, error) {
	var (
		reset *model.PasswordReset
		user  *model.User
	)
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		reset, user = nil, nil

		docs, err := tx.Documents(r.resets().Where("token", "==", tokenHash).Limit(1)).GetAll()
		if err != nil {
			return err
		}
		if len(docs) == 0 {
			return ErrTokenInvalid
		}
		var pr model.PasswordReset
		if err := docs[0].DataTo(&pr); err != nil {
			return fmt.Errorf("decode password reset: %w", err)
		}
		pr.ID = docs[0].Ref.ID
		if pr.Used || !now.Before(pr.ExpiresAt) {
			return ErrTokenInvalid
		}

		var owner *model.User
		for _, field := range []string{"email", "authEmail"} {
			userDocs, err := tx.Documents(r.users().Where(field, "==", pr.Email).Limit(1)).GetAll()
			if err != nil {
				return err
			}
			if len(userDocs) > 0 {
				if owner, err = userFromSnapshot(userDocs[0]); err != nil {
					return err
				}
				break
			}
		}
		if owner == nil {
			return ErrNotFound
		}

		if err := tx.Update(docs[0].Ref, []firestore.Update{
			{Path: "used", Value: true},
			{Path: "usedAt", Value: now},
		}); err != nil {
			return err
		}
		pr.Used = true
		pr.UsedAt = now
		reset, user = &pr, owner
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return reset, user, nil
}

// ReleasePasswordReset makes a consumed token usable again.
func (r *FirestoreRepository) ReleasePasswordReset(ctx context.Context, id string) error {
	_, err := r.resets().Doc(id).Update(ctx, []firestore.Update{
		{Path: "used", Value: false},
		{Path: "usedAt", Value: firestore.Delete},
	})
	if err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("release password reset %s: %w", id, err)
	}
	return nil
}

func (r *FirestoreRepository) messages() *firestore.CollectionRef {
	return r.client.Collection(model.AdminMessagesCollection)
}

func (r *FirestoreRepository) CreateMessage(ctx context.Context, msg *model.AdminMessage) (string, error) {
	ref := r.messages().NewDoc()
	if _, err := ref.Create(ctx, msg); err != nil {
		return "", fmt.Errorf("create admin message: %w", err)
	}
	return ref.ID, nil
}

// ListMessages returns the newest messages first, optionally filtered by status.
func (r *FirestoreRepository) ListMessages(ctx context.Context, status string, limit int) ([]model.AdminMessage, error) {
	q := r.messages().Query
	if status != "" {
		q = q.Where("status", "==", status)
	}
	q = q.OrderBy("createdAt", firestore.Desc).Limit(limit)

	iter := q.Documents(ctx)
	defer iter.Stop()

	messages := []model.AdminMessage{}
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list admin messages: %w", err)
		}
		var msg model.AdminMessage
		if err := doc.DataTo(&msg); err != nil {
			return nil, fmt.Errorf("decode admin message %s: %w", doc.Ref.ID, err)
		}
		msg.ID = doc.Ref.ID
		messages = append(messages, msg)
	}
	return messages, nil
}

func (r *FirestoreRepository) UpdateMessage(ctx context.Context, id string, updates []firestore.Update) error {
	if _, err := r.messages().Doc(id).Update(ctx, updates); err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("update admin message %s: %w", id, err)
	}
	return nil
}

func (r *FirestoreRepository) SaveItem(ctx context.Context, collection string, item *model.SavedItem) error {
	if _, err := r.client.Collection(collection).Doc(SavedItemID(item.UID, item.ItemID)).Set(ctx, item); err != nil {
		return fmt.Errorf("save item: %w", err)
	}
	return nil
}

func (r *FirestoreRepository) RemoveSavedItem(ctx context.Context, collection, uid, itemID string) error {
	ref := r.client.Collection(collection).Doc(SavedItemID(uid, itemID))
	if _, err := ref.Delete(ctx, firestore.Exists); err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("remove saved item: %w", err)
	}
	return nil
}

// ListSavedItems sorts in memory so the query needs no composite index.
func (r *FirestoreRepository) ListSavedItems(ctx context.Context, collection, uid string) ([]model.SavedItem, error) {
	docs, err := r.client.Collection(collection).Where("uid", "==", uid).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list saved items: %w", err)
	}
	items := make([]model.SavedItem, 0, len(docs))
	for _, doc := range docs {
		var item model.SavedItem
		if err := doc.DataTo(&item); err != nil {
			return nil, fmt.Errorf("decode saved item %s: %w", doc.Ref.ID, err)
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].SavedAt.After(items[j].SavedAt) })
	return items, nil
}

func (r *FirestoreRepository) RecordView(ctx context.Context, collection string, view *model.ItemView) error {
	if _, _, err := r.client.Collection(collection).Add(ctx, view); err != nil {
		return fmt.Errorf("record view: %w", err)
	}
	return nil
}

func (r *FirestoreRepository) RecordInteraction(ctx context.Context, collection string, interaction *model.Interaction) error {
	if _, _, err := r.client.Collection(collection).Add(ctx, interaction); err != nil {
		return fmt.Errorf("record interaction: %w", err)
	}
	return nil
}

// PurgeExpired deletes expired reset tokens, tokens used more than
// UsedResetRetention ago and verification records older than
// VerificationRetention past their expiry. It returns the number of deletes
// that committed.
func (r *FirestoreRepository) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	queries := []firestore.Query{
		r.resets().Where("expiresAt", "<", now),
		// usedAt is only present while a token is used
		r.resets().Where("usedAt", "<", now.Add(-UsedResetRetention)),
		r.verifications().Where("expiresAt", "<", now.Add(-VerificationRetention)),
	}

	seen := make(map[string]struct{})
	var jobs []*firestore.BulkWriterJob
	bw := r.client.BulkWriter(ctx)
	for _, q := range queries {
		docs, err := q.Documents(ctx).GetAll()
		if err != nil {
			bw.End()
			return committed(jobs), fmt.Errorf("query expired documents: %w", err)
		}
		for _, doc := range docs {
			if _, ok := seen[doc.Ref.Path]; ok {
				continue
			}
			seen[doc.Ref.Path] = struct{}{}
			job, err := bw.Delete(doc.Ref)
			if err != nil {
				bw.End()
				return committed(jobs), fmt.Errorf("queue delete %s: %w", doc.Ref.Path, err)
			}
			jobs = append(jobs, job)
		}
	}
	bw.End()

	var (
		purged int
		errs   []error
	)
	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			errs = append(errs, err)
			continue
		}
		purged++
	}
	if len(errs) > 0 {
		return purged, fmt.Errorf("%d of %d deletes failed: %w", len(errs), len(jobs), errors.Join(errs...))
	}
	return purged, nil
}

// committed counts the successful jobs of an already ended BulkWriter.
func committed(jobs []*firestore.BulkWriterJob) int {
	n := 0
	for _, job := range jobs {
		if _, err := job.Results(); err == nil {
			n++
		}
	}
	return n
}

var _ Repository = (*FirestoreRepository)(nil)
