package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"treasury/internal/core/apperror"
	appctx "treasury/internal/core/context"
)

// JWTValidator interface for token validation.
type JWTValidator interface {
	ValidateToken(tokenString string) (*appctx.UserContext, error)
}

// Auth middleware requires a valid bearer token and populates user context.
func Auth(validator JWTValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			abortUnauthorized(c, "missing or malformed authorization header")
			return
		}

		user, err := validator.ValidateToken(token)
		if err != nil {
			abortUnauthorized(c, "invalid token")
			return
		}

		setUser(c, user)
		c.Next()
	}
}

// OptionalAuth validates token if present, but doesn't require it.
// An invalid token is rejected; a missing one leaves the request anonymous.
func OptionalAuth(validator JWTValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.Next()
			return
		}

		token, ok := bearerToken(c)
		if !ok {
			abortUnauthorized(c, "malformed authorization header")
			return
		}
		user, err := validator.ValidateToken(token)
		if err != nil {
			abortUnauthorized(c, "invalid token")
			return
		}

		setUser(c, user)
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func setUser(c *gin.Context, user *appctx.UserContext) {
	ctx := appctx.WithUser(c.Request.Context(), user)
	c.Request = c.Request.WithContext(ctx)
	c.Set("user_id", user.UserID)
}

func abortUnauthorized(c *gin.Context, message string) {
	_ = c.Error(apperror.NewUnauthorized(message))
	c.Abort()
}
