package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/org-task-api/internal/auth"
	"github.com/yukikurage/org-task-api/internal/middleware"
	"github.com/yukikurage/org-task-api/internal/services"
)

// Routes bundles what RegisterRoutes needs. AuthRateLimit may be nil.
type Routes struct {
	Guard         *auth.Guard
	Auth          *AuthHandler
	Organizations *OrganizationHandler
	Tasks         *TaskHandler
	TaskService   *services.TaskService
	AuthRateLimit gin.HandlerFunc
}

// RegisterRoutes mounts the /api tree on r.
func RegisterRoutes(r gin.IRouter, routes Routes) {
	requireAuth := middleware.RequireAuth(routes.Guard)
	limited := func(handler gin.HandlerFunc) []gin.HandlerFunc {
		if routes.AuthRateLimit == nil {
			return []gin.HandlerFunc{handler}
		}
		return []gin.HandlerFunc{routes.AuthRateLimit, handler}
	}

	api := r.Group("/api")
	{
		// Auth routes
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", limited(routes.Auth.Register)...)
			authGroup.POST("/join-organization", limited(routes.Auth.JoinOrganization)...)
			authGroup.POST("/login", limited(routes.Auth.Login)...)
			authGroup.POST("/logout", routes.Auth.Logout)
			authGroup.GET("/me", requireAuth, routes.Auth.GetCurrentUser)
		}

		// Organization routes (scoped to the caller's organization)
		orgs := api.Group("/organizations")
		orgs.Use(requireAuth)
		{
			orgs.GET("", routes.Organizations.GetOrganization)
			orgs.PATCH("", middleware.RequireAdmin(), routes.Organizations.UpdateOrganization)
			orgs.GET("/members", routes.Organizations.ListMembers)
			orgs.PATCH("/members/:user_id/role", middleware.RequireAdmin(), routes.Organizations.ChangeMemberRole)
			orgs.DELETE("/members/:user_id", middleware.RequireAdmin(), routes.Organizations.RemoveMember)
			orgs.POST("/invite-code", middleware.RequireElevated(), routes.Organizations.RotateInviteCode)
			orgs.POST("/invite", middleware.RequireElevated(), routes.Organizations.Invite)
		}

		// Task routes
		tasks := api.Group("/tasks")
		tasks.Use(requireAuth)
		{
			tasks.GET("", routes.Tasks.ListTasks)
			tasks.POST("", middleware.RequireElevated(), routes.Tasks.CreateTask)
			tasks.POST("/generate", middleware.RequireElevated(), routes.Tasks.GenerateTasks)
			tasks.GET("/:id", middleware.RequireTaskAccess(routes.TaskService), routes.Tasks.GetTask)
			tasks.PATCH("/:id", middleware.RequireElevated(), routes.Tasks.UpdateTask)
			tasks.DELETE("/:id", middleware.RequireElevated(), routes.Tasks.DeleteTask)
			tasks.PATCH("/:id/status", routes.Tasks.ChangeStatus)
		}
	}
}
