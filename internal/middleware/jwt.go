package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/toolntask/toolntask-api/internal/authprovider"
	"github.com/toolntask/toolntask-api/internal/model"
)

// Context keys set by the auth middlewares
const (
	UIDKey   = "uid"
	TokenKey = "token"
	AdminKey = "admin"
)

func bearerToken(c *gin.Context) (string, *model.ErrorResponse) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", model.UnauthorizedError("Authorization header is missing")
	}

	// Expect header format: "Bearer <ID_TOKEN>"
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return "", model.UnauthorizedError("Invalid Authorization header format. Expected: Bearer <token>")
	}
	return parts[1], nil
}

func setIdentity(c *gin.Context, token *authprovider.Token) {
	c.Set(UIDKey, token.UID)
	c.Set(TokenKey, token)
	c.Set(AdminKey, token.IsAdmin())
}

// AuthMiddleware verifies the Firebase ID token in the Authorization header
func AuthMiddleware(provider authprovider.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		idToken, errResp := bearerToken(c)
		if errResp != nil {
			c.AbortWithStatusJSON(errResp.Code, errResp)
			return
		}

		token, err := provider.VerifyIDToken(c.Request.Context(), idToken)
		if err != nil {
			errResp := model.UnauthorizedError("Invalid or expired token")
			c.AbortWithStatusJSON(errResp.Code, errResp)
			return
		}

		setIdentity(c, token)
		c.Next()
	}
}

// OptionalAuth records the caller when a valid token is present and lets
// anonymous requests through.
func OptionalAuth(provider authprovider.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") != "" {
			if idToken, errResp := bearerToken(c); errResp == nil {
				if token, err := provider.VerifyIDToken(c.Request.Context(), idToken); err == nil {
					setIdentity(c, token)
				}
			}
		}
		c.Next()
	}
}

// AdminOnly must run after AuthMiddleware.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool(AdminKey) {
			errResp := model.ForbiddenError("Admin access required")
			c.AbortWithStatusJSON(http.StatusForbidden, errResp)
			return
		}
		c.Next()
	}
}
