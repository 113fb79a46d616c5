package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/toolntask/toolntask-api/internal/model"
	"github.com/toolntask/toolntask-api/internal/repository"
	"go.uber.org/zap"
)

const (
	DefaultMessageLimit = 50
	MaxMessageLimit     = 200
)

// MarketplaceService backs the contact form, admin inbox, saved items and
// listing activity.
type MarketplaceService interface {
	SubmitContact(ctx context.Context, req model.ContactRequest) (model.ContactResponse, *model.ErrorResponse)
	ListMessages(ctx context.Context, status string, limit int) (model.MessagesResponse, *model.ErrorResponse)
	UpdateMessage(ctx context.Context, id string, req model.UpdateMessageRequest) (model.SuccessResponse, *model.ErrorResponse)
	SaveItem(ctx context.Context, uid, kind string, req model.SaveItemRequest) (model.SuccessResponse, *model.ErrorResponse)
	RemoveSavedItem(ctx context.Context, uid, kind, itemID string) (model.SuccessResponse, *model.ErrorResponse)
	ListSavedItems(ctx context.Context, uid, kind string) (model.SavedItemsResponse, *model.ErrorResponse)
	RecordView(ctx context.Context, uid, ip, kind, itemID string) (model.SuccessResponse, *model.ErrorResponse)
	RecordInteraction(ctx context.Context, uid, kind, itemID string, req model.InteractionRequest) (model.SuccessResponse, *model.ErrorResponse)
}

type marketplaceService struct {
	messages repository.MessageRepository
	saved    repository.SavedItemRepository
	activity repository.ActivityRepository
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewMarketplaceService(repo repository.Repository, notifier Notifier, logger *zap.Logger, opts ...Option) MarketplaceService {
	o := buildOptions(opts)
	return &marketplaceService{
		messages: repo,
		saved:    repo,
		activity: repo,
		notifier: notifier,
		logger:   logger.Named("marketplace"),
		now:      o.now,
	}
}

type kindCollections struct {
	saved        string
	views        string
	interactions string
}

var collectionsByKind = map[string]kindCollections{
	model.KindTasks: {model.SavedTasksCollection, model.TaskViewsCollection, model.TaskInteractionsCollection},
	model.KindTools: {model.SavedToolsCollection, model.ToolViewsCollection, model.ToolInteractionsCollection},
}

func collectionsFor(kind string) (kindCollections, *model.ErrorResponse) {
	c, ok := collectionsByKind[kind]
	if !ok {
		return kindCollections{}, model.NotFoundError(fmt.Sprintf("Unknown item kind %q", kind))
	}
	return c, nil
}

func (s *marketplaceService) internal(msg string, err error, fields ...zap.Field) *model.ErrorResponse {
	s.logger.Error(msg, append(fields, zap.Error(err))...)
	return model.InternalError("")
}

func (s *marketplaceService) SubmitContact(ctx context.Context, req model.ContactRequest) (model.ContactResponse, *model.ErrorResponse) {
	now := s.now()
	msg := &model.AdminMessage{
		Name:      strings.TrimSpace(req.Name),
		Email:     strings.TrimSpace(req.Email),
		Phone:     strings.TrimSpace(req.Phone),
		Subject:   strings.TrimSpace(req.Subject),
		Message:   strings.TrimSpace(req.Message),
		Status:    model.MessageStatusNew,
		CreatedAt: now,
		UpdatedAt: now,
	}
	id, err := s.messages.CreateMessage(ctx, msg)
	if err != nil {
		return model.ContactResponse{}, s.internal("store contact message", err)
	}

	body := fmt.Sprintf("<p><b>From:</b> %s &lt;%s&gt; %s</p><p><b>Subject:</b> %s</p><p>%s</p>",
		html.EscapeString(msg.Name), html.EscapeString(msg.Email), html.EscapeString(msg.Phone),
		html.EscapeString(msg.Subject), html.EscapeString(msg.Message))
	if err := s.notifier.NotifyAdmin(ctx, "New contact message: "+msg.Subject, body); err != nil {
		s.logger.Warn("contact notification failed", zap.String("messageId", id), zap.Error(err))
	}

	return model.ContactResponse{Success: true, ID: id}, nil
}

func (s *marketplaceService) ListMessages(ctx context.Context, status string, limit int) (model.MessagesResponse, *model.ErrorResponse) {
	switch status {
	case "", model.MessageStatusNew, model.MessageStatusInProgress, model.MessageStatusResolved:
	default:
		return model.MessagesResponse{}, model.ValidationError("Invalid status filter")
	}
	if limit <= 0 {
		limit = DefaultMessageLimit
	}
	if limit > MaxMessageLimit {
		limit = MaxMessageLimit
	}
	messages, err := s.messages.ListMessages(ctx, status, limit)
	if err != nil {
		return model.MessagesResponse{}, s.internal("list admin messages", err)
	}
	return model.MessagesResponse{Success: true, Messages: messages}, nil
}

func (s *marketplaceService) UpdateMessage(ctx context.Context, id string, req model.UpdateMessageRequest) (model.SuccessResponse, *model.ErrorResponse) {
	var updates []firestore.Update
	if req.Status != nil {
		updates = append(updates, firestore.Update{Path: "status", Value: *req.Status})
	}
	if req.Read != nil {
		updates = append(updates, firestore.Update{Path: "read", Value: *req.Read})
	}
	if req.AssignedTo != nil {
		updates = append(updates, firestore.Update{Path: "assignedTo", Value: *req.AssignedTo})
	}
	if req.Notes != nil {
		updates = append(updates, firestore.Update{Path: "notes", Value: *req.Notes})
	}
	if len(updates) == 0 {
		return model.SuccessResponse{}, model.ValidationError("No fields to update")
	}
	updates = append(updates, firestore.Update{Path: "updatedAt", Value: s.now()})

	err := s.messages.UpdateMessage(ctx, id, updates)
	if errors.Is(err, repository.ErrNotFound) {
		return model.SuccessResponse{}, model.NotFoundError("Message not found")
	}
	if err != nil {
		return model.SuccessResponse{}, s.internal("update admin message", err, zap.String("messageId", id))
	}
	return model.SuccessResponse{Success: true, Message: "Message updated"}, nil
}

func (s *marketplaceService) SaveItem(ctx context.Context, uid, kind string, req model.SaveItemRequest) (model.SuccessResponse, *model.ErrorResponse) {
	c, errResp := collectionsFor(kind)
	if errResp != nil {
		return model.SuccessResponse{}, errResp
	}
	item := &model.SavedItem{UID: uid, ItemID: req.ItemID, Title: req.Title, SavedAt: s.now()}
	if err := s.saved.SaveItem(ctx, c.saved, item); err != nil {
		return model.SuccessResponse{}, s.internal("save item", err, zap.String("kind", kind))
	}
	return model.SuccessResponse{Success: true, Message: "Saved"}, nil
}

func (s *marketplaceService) RemoveSavedItem(ctx context.Context, uid, kind, itemID string) (model.SuccessResponse, *model.ErrorResponse) {
	c, errResp := collectionsFor(kind)
	if errResp != nil {
		return model.SuccessResponse{}, errResp
	}
	err := s.saved.RemoveSavedItem(ctx, c.saved, uid, itemID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.SuccessResponse{}, model.NotFoundError("Saved item not found")
	}
	if err != nil {
		return model.SuccessResponse{}, s.internal("remove saved item", err, zap.String("kind", kind))
	}
	return model.SuccessResponse{Success: true, Message: "Removed"}, nil
}

func (s *marketplaceService) ListSavedItems(ctx context.Context, uid, kind string) (model.SavedItemsResponse, *model.ErrorResponse) {
	c, errResp := collectionsFor(kind)
	if errResp != nil {
		return model.SavedItemsResponse{}, errResp
	}
	items, err := s.saved.ListSavedItems(ctx, c.saved, uid)
	if err != nil {
		return model.SavedItemsResponse{}, s.internal("list saved items", err, zap.String("kind", kind))
	}
	return model.SavedItemsResponse{Success: true, Items: items}, nil
}

func (s *marketplaceService) RecordView(ctx context.Context, uid, ip, kind, itemID string) (model.SuccessResponse, *model.ErrorResponse) {
	c, errResp := collectionsFor(kind)
	if errResp != nil {
		return model.SuccessResponse{}, errResp
	}
	view := &model.ItemView{ItemID: itemID, UID: uid, IP: ip, ViewedAt: s.now()}
	if err := s.activity.RecordView(ctx, c.views, view); err != nil {
		return model.SuccessResponse{}, s.internal("record view", err, zap.String("kind", kind))
	}
	return model.SuccessResponse{Success: true}, nil
}

func (s *marketplaceService) RecordInteraction(ctx context.Context, uid, kind, itemID string, req model.InteractionRequest) (model.SuccessResponse, *model.ErrorResponse) {
	c, errResp := collectionsFor(kind)
	if errResp != nil {
		return model.SuccessResponse{}, errResp
	}
	interaction := &model.Interaction{ItemID: itemID, UID: uid, Action: req.Action, CreatedAt: s.now()}
	if err := s.activity.RecordInteraction(ctx, c.interactions, interaction); err != nil {
		return model.SuccessResponse{}, s.internal("record interaction", err, zap.String("kind", kind))
	}
	return model.SuccessResponse{Success: true}, nil
}
