package middleware

import (
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/org-task-api/internal/auth"
	"github.com/yukikurage/org-task-api/internal/constants"
	apierrors "github.com/yukikurage/org-task-api/internal/errors"
)

// RequireAuth resolves the caller from a bearer token, falling back to the
// session cookie. The identity is re-read from the store on every request.
func RequireAuth(guard *auth.Guard) gin.HandlerFunc {
	return func(c *gin.Context) {
		var (
			identity auth.Identity
			err      error
		)

		if token, ok := bearerToken(c); ok {
			identity, err = guard.Authenticate(c.Request.Context(), token)
		} else {
			session := sessions.Default(c)
			userID, found := toUserID(session.Get(constants.ContextKeyUserID))
			if !found {
				apierrors.Unauthorized(c, "")
				c.Abort()
				return
			}
			identity, err = guard.Resolve(c.Request.Context(), userID)
		}

		if err != nil {
			apierrors.Respond(c, LoggerFrom(c), err)
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyIdentity, identity)
		c.Set(constants.ContextKeyUserID, identity.UserID)
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", true
	}
	return strings.TrimSpace(header[len(prefix):]), true
}

// GetIdentity retrieves the caller set by RequireAuth.
func GetIdentity(c *gin.Context) (auth.Identity, bool) {
	v, exists := c.Get(constants.ContextKeyIdentity)
	if !exists {
		return auth.Identity{}, false
	}
	identity, ok := v.(auth.Identity)
	return identity, ok
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (uint64, bool) {
	userID, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		return 0, false
	}
	return toUserID(userID)
}

func toUserID(v interface{}) (uint64, bool) {
	switch id := v.(type) {
	case uint64:
		return id, id != 0
	case uint:
		return uint64(id), id != 0
	case int:
		if id <= 0 {
			return 0, false
		}
		return uint64(id), true
	case int64:
		if id <= 0 {
			return 0, false
		}
		return uint64(id), true
	default:
		return 0, false
	}
}
