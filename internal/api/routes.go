package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/toolntask/toolntask-api/config"
	"github.com/toolntask/toolntask-api/internal/authprovider"
	"github.com/toolntask/toolntask-api/internal/middleware"
	"go.uber.org/zap"
)

// NewRouter builds the engine with the shared middleware chain and every route.
func NewRouter(cfg *config.Config, handler *Handler, provider authprovider.Provider, limiter *middleware.IPRateLimiter, logger *zap.Logger) (*gin.Engine, error) {
	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}
	engine.Use(
		middleware.RequestLogger(logger),
		middleware.Recovery(logger),
		middleware.Timeout(cfg.Server.RequestTimeout),
	)

	engine.GET("/health", HealthHandler)
	RegisterRoutes(engine, handler, provider, limiter)
	return engine, nil
}

// RegisterRoutes sets up the API routes with their middleware
func RegisterRoutes(r *gin.Engine, handler *Handler, provider authprovider.Provider, limiter *middleware.IPRateLimiter) {
	api := r.Group("/api")
	{
		// Public routes, throttled per client IP
		throttled := api.Group("/")
		throttled.Use(limiter.Handler())
		{
			throttled.POST("/phone-verify", handler.PhoneVerifyHandler)
			throttled.POST("/verify-otp", handler.VerifyOTPHandler)
			throttled.POST("/password-reset", handler.PasswordResetHandler)
			throttled.POST("/lookup-phone-email", handler.LookupPhoneEmailHandler)
			throttled.POST("/contact", handler.ContactHandler)
		}

		// Public routes gated by a verified phone or reset token
		api.POST("/update-password", handler.UpdatePasswordHandler)
		api.POST("/reset-phone-password", handler.ResetPhonePasswordHandler)
		api.POST("/create-phone-account", handler.CreatePhoneAccountHandler)

		api.POST("/views/:kind/:itemId", middleware.OptionalAuth(provider), handler.RecordViewHandler)

		// Protected routes (require valid Firebase ID token)
		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware(provider))
		{
			protected.GET("/saved/:kind", handler.ListSavedItemsHandler)
			protected.POST("/saved/:kind", handler.SaveItemHandler)
			protected.DELETE("/saved/:kind/:itemId", handler.RemoveSavedItemHandler)
			protected.POST("/interactions/:kind/:itemId", handler.RecordInteractionHandler)

			// Admin routes (require the admin custom claim)
			admin := protected.Group("/")
			admin.Use(middleware.AdminOnly())
			{
				admin.POST("/ensure-auth", handler.EnsureAuthHandler)
				admin.GET("/admin/messages", handler.ListMessagesHandler)
				admin.PATCH("/admin/messages/:id", handler.UpdateMessageHandler)
			}
		}
	}
}
