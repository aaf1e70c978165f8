package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/org-task-api/internal/auth"
	apierrors "github.com/yukikurage/org-task-api/internal/errors"
	"github.com/yukikurage/org-task-api/internal/models"
)

// RequireRoles rejects callers whose role in their organization is not one
// of roles. It must run after RequireAuth.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := GetIdentity(c)
		if !ok {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		if err := auth.Authorize(identity, roles...); err != nil {
			apierrors.Respond(c, LoggerFrom(c), err)
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequireAdmin allows organization admins only.
func RequireAdmin() gin.HandlerFunc {
	return RequireRoles(models.RoleAdmin)
}

// RequireElevated allows admins and managers.
func RequireElevated() gin.HandlerFunc {
	return RequireRoles(models.ElevatedRoles...)
}
