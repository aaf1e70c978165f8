package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/org-task-api/internal/constants"
	apierrors "github.com/yukikurage/org-task-api/internal/errors"
	"github.com/yukikurage/org-task-api/internal/models"
	"github.com/yukikurage/org-task-api/internal/services"
	"github.com/yukikurage/org-task-api/internal/utils"
)

// RequireTaskAccess loads the task named by :id from the caller's
// organization. Tasks of other organizations are reported as not found.
func RequireTaskAccess(tasks *services.TaskService) gin.HandlerFunc {
	return func(c *gin.Context) {
		taskID, err := utils.ParseIDParam(c, "id")
		if err != nil {
			apierrors.Respond(c, LoggerFrom(c), err)
			c.Abort()
			return
		}

		identity, ok := GetIdentity(c)
		if !ok {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		task, err := tasks.GetTask(c.Request.Context(), identity.OrganizationID, taskID)
		if err != nil {
			apierrors.Respond(c, LoggerFrom(c), err)
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyTask, task)
		c.Next()
	}
}

// GetTask retrieves the task loaded by RequireTaskAccess.
func GetTask(c *gin.Context) (*models.Task, bool) {
	v, exists := c.Get(constants.ContextKeyTask)
	if !exists {
		return nil, false
	}
	task, ok := v.(*models.Task)
	return task, ok
}
