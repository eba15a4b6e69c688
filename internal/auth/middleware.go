package auth

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Project-Kyra/Project-Kyra/internal/errors"
)

const sessionKey = "auth_session"

// Middleware validates the bearer token and attaches the session to the
// request context.
func Middleware(service *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			errors.Abort(c, errors.NewUnauthorizedError("missing bearer token"))
			return
		}

		session, err := service.ValidateToken(token)
		if err != nil {
			errors.Abort(c, errors.NewUnauthorizedError("invalid or expired session"))
			return
		}

		c.Set(sessionKey, session)
		c.Next()
	}
}

// RequireRole restricts a route to one role. It must run after
// Middleware.
func RequireRole(role Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := SessionFrom(c)
		if !ok {
			errors.Abort(c, errors.NewUnauthorizedError("missing session"))
			return
		}
		if session.Role != role {
			errors.Abort(c, errors.NewForbiddenError("insufficient role for this operation"))
			return
		}
		c.Next()
	}
}

// SessionFrom extracts the authenticated session from the request
// context.
func SessionFrom(c *gin.Context) (Session, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return Session{}, false
	}
	session, ok := v.(Session)
	return session, ok
}
