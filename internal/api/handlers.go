package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/toolntask/toolntask-api/internal/middleware"
	"github.com/toolntask/toolntask-api/internal/model"
	services "github.com/toolntask/toolntask-api/internal/service"
)

// Handler holds the service dependencies
type Handler struct {
	Identity    services.IdentityService
	Marketplace services.MarketplaceService
}

// NewHandler creates a new Handler instance
func NewHandler(identity services.IdentityService, marketplace services.MarketplaceService) *Handler {
	return &Handler{Identity: identity, Marketplace: marketplace}
}

// bind decodes and validates the JSON body, writing the 400 itself on failure.
func bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, model.ValidationError("Invalid request body"))
		return false
	}
	if err := model.ValidateRequest(req); err != nil {
		c.JSON(http.StatusBadRequest, model.ValidationError("Invalid request body "+err.Error()))
		return false
	}
	return true
}

func respond(c *gin.Context, resp interface{}, err *model.ErrorResponse) {
	if err != nil {
		c.JSON(err.Code, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// PhoneVerifyHandler issues an OTP
func (h *Handler) PhoneVerifyHandler(c *gin.Context) {
	var req model.PhoneVerifyRequest
	if !bind(c, &req) {
		return
	}
	resp, err := h.Identity.IssueOTP(c.Request.Context(), req)
	respond(c, resp, err)
}

// VerifyOTPHandler checks a submitted OTP
func (h *Handler) VerifyOTPHandler(c *gin.Context) {
	var req model.VerifyOTPRequest
	if !bind(c, &req) {
		return
	}
	resp, err := h.Identity.VerifyOTP(c.Request.Context(), req, c.ClientIP())
	respond(c, resp, err)
}

// PasswordResetHandler starts an email or phone reset
func (h *Handler) PasswordResetHandler(c *gin.Context) {
	var req model.PasswordResetRequest
	if !bind(c, &req) {
		return
	}
	resp, err := h.Identity.RequestPasswordReset(c.Request.Context(), req)
	respond(c, resp, err)
}

// UpdatePasswordHandler finishes a reset
func (h *Handler) UpdatePasswordHandler(c *gin.Context) {
	var req model.UpdatePasswordRequest
	if !bind(c, &req) {
		return
	}
	resp, err := h.Identity.UpdatePassword(c.Request.Context(), req)
	respond(c, resp, err)
}

func (h *Handler) ResetPhonePasswordHandler(c *gin.Context) {
	var req model.ResetPhonePasswordRequest
	if !bind(c, &req) {
		return
	}
	resp, err := h.Identity.ResetPhonePassword(c.Request.Context(), req)
	respond(c, resp, err)
}

func (h *Handler) CreatePhoneAccountHandler(c *gin.Context) {
	var req model.CreatePhoneAccountRequest
	if !bind(c, &req) {
		return
	}
	resp, err := h.Identity.CreatePhoneAccount(c.Request.Context(), req)
	respond(c, resp, err)
}

func (h *Handler) LookupPhoneEmailHandler(c *gin.Context) {
	var req model.LookupPhoneEmailRequest
	if !bind(c, &req) {
		return
	}
	resp, err := h.Identity.LookupPhoneEmail(c.Request.Context(), req)
	respond(c, resp, err)
}

// EnsureAuthHandler repairs a user's auth account (admin only)
func (h *Handler) EnsureAuthHandler(c *gin.Context) {
	var req model.EnsureAuthRequest
	if !bind(c, &req) {
		return
	}
	resp, err := h.Identity.EnsureAuth(c.Request.Context(), req)
	respond(c, resp, err)
}

// ContactHandler stores a contact form submission
func (h *Handler) ContactHandler(c *gin.Context) {
	var req model.ContactRequest
	if !bind(c, &req) {
		return
	}
	resp, err := h.Marketplace.SubmitContact(c.Request.Context(), req)
	respond(c, resp, err)
}

func (h *Handler) ListMessagesHandler(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, model.ValidationError("limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	resp, err := h.Marketplace.ListMessages(c.Request.Context(), c.Query("status"), limit)
	respond(c, resp, err)
}

func (h *Handler) UpdateMessageHandler(c *gin.Context) {
	var req model.UpdateMessageRequest
	if !bind(c, &req) {
		return
	}
	resp, err := h.Marketplace.UpdateMessage(c.Request.Context(), c.Param("id"), req)
	respond(c, resp, err)
}

func (h *Handler) ListSavedItemsHandler(c *gin.Context) {
	resp, err := h.Marketplace.ListSavedItems(c.Request.Context(), c.GetString(middleware.UIDKey), c.Param("kind"))
	respond(c, resp, err)
}

func (h *Handler) SaveItemHandler(c *gin.Context) {
	var req model.SaveItemRequest
	if !bind(c, &req) {
		return
	}
	resp, err := h.Marketplace.SaveItem(c.Request.Context(), c.GetString(middleware.UIDKey), c.Param("kind"), req)
	respond(c, resp, err)
}

func (h *Handler) RemoveSavedItemHandler(c *gin.Context) {
	resp, err := h.Marketplace.RemoveSavedItem(c.Request.Context(), c.GetString(middleware.UIDKey), c.Param("kind"), c.Param("itemId"))
	respond(c, resp, err)
}

// RecordViewHandler counts a listing view; the caller may be anonymous
func (h *Handler) RecordViewHandler(c *gin.Context) {
	resp, err := h.Marketplace.RecordView(c.Request.Context(), c.GetString(middleware.UIDKey), c.ClientIP(), c.Param("kind"), c.Param("itemId"))
	respond(c, resp, err)
}

func (h *Handler) RecordInteractionHandler(c *gin.Context) {
	var req model.InteractionRequest
	if !bind(c, &req) {
		return
	}
	resp, err := h.Marketplace.RecordInteraction(c.Request.Context(), c.GetString(middleware.UIDKey), c.Param("kind"), c.Param("itemId"), req)
	respond(c, resp, err)
}

func HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
