package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/org-task-api/internal/dto"
	apierrors "github.com/yukikurage/org-task-api/internal/errors"
	"github.com/yukikurage/org-task-api/internal/middleware"
	"github.com/yukikurage/org-task-api/internal/models"
	"github.com/yukikurage/org-task-api/internal/services"
	"github.com/yukikurage/org-task-api/internal/utils"
)

// TaskHandler handles task-related HTTP requests
type TaskHandler struct {
	taskService *services.TaskService
	aiService   *services.AIService
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(taskService *services.TaskService, aiService *services.AIService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		aiService:   aiService,
	}
}

// ListTasks lists the tasks of the caller's organization, newest first.
// Supports status, category, priority and assignedTo filters and optional
// page/limit pagination.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	input := services.ListTasksInput{
		Status:     c.Query("status"),
		Category:   c.Query("category"),
		Priority:   c.Query("priority"),
		AssignedTo: c.Query("assignedTo"),
	}
	pagination, paged := utils.GetPaginationParams(c)
	if paged {
		input.Page = pagination.Page
		input.PageSize = pagination.Limit
	}

	tasks, total, err := h.taskService.ListTasks(c.Request.Context(), identity.OrganizationID, input)
	if err != nil {
		respondError(c, err)
		return
	}

	response := dto.TaskListDTO{Tasks: dto.ToTaskDTOs(tasks)}
	if paged {
		response.Pagination = &utils.PaginationResponse{
			Page:  pagination.Page,
			Limit: pagination.Limit,
			Total: total,
		}
	}

	dto.Respond(c, http.StatusOK, response)
}

// GetTask returns the task loaded by RequireTaskAccess.
func (h *TaskHandler) GetTask(c *gin.Context) {
	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.NotFound(c, "Task not found")
		return
	}

	dto.Respond(c, http.StatusOK, dto.ToTaskDTO(*task))
}

// CreateTask creates a new task in the caller's organization.
func (h *TaskHandler) CreateTask(c *gin.Context) {
	type CreateTaskRequest struct {
		Title       string  `json:"title" binding:"required"`
		Description string  `json:"description"`
		Category    string  `json:"category" binding:"required"`
		Priority    string  `json:"priority" binding:"required"`
		DueDate     string  `json:"dueDate"`
		AssignedTo  *uint64 `json:"assignedTo"`
	}

	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), services.CreateTaskInput{
		OrganizationID: identity.OrganizationID,
		CreatorID:      identity.UserID,
		CallerRole:     identity.Role,
		Title:          req.Title,
		Description:    req.Description,
		Category:       models.TaskCategory(req.Category),
		Priority:       models.TaskPriority(req.Priority),
		DueDate:        req.DueDate,
		AssignedTo:     req.AssignedTo,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	dto.Respond(c, http.StatusCreated, dto.ToTaskDTO(*task))
}

// UpdateTask applies a partial update to a task.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	taskID, err := utils.ParseIDParam(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	patch, err := services.DecodeTaskPatch(body)
	if err != nil {
		respondError(c, err)
		return
	}

	task, err := h.taskService.UpdateTask(c.Request.Context(), identity.OrganizationID, taskID, patch, identity.Role)
	if err != nil {
		respondError(c, err)
		return
	}

	dto.Respond(c, http.StatusOK, dto.ToTaskDTO(*task))
}

// DeleteTask deletes a task.
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	taskID, err := utils.ParseIDParam(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.taskService.DeleteTask(c.Request.Context(), identity.OrganizationID, taskID, identity.Role); err != nil {
		respondError(c, err)
		return
	}

	dto.Respond(c, http.StatusOK, dto.MessageDTO{Message: "Task deleted successfully"})
}

// ChangeStatus moves a task to a new status. Only the assignee may do so
// unless the task is unassigned.
func (h *TaskHandler) ChangeStatus(c *gin.Context) {
	type ChangeStatusRequest struct {
		Status string `json:"status" binding:"required"`
	}

	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	taskID, err := utils.ParseIDParam(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	var req ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.ChangeStatus(c.Request.Context(), identity.OrganizationID, taskID, models.TaskStatus(req.Status), identity.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	dto.Respond(c, http.StatusOK, dto.ToTaskDTO(*task))
}

// GenerateTasks drafts tasks from free text. Drafts are not saved.
func (h *TaskHandler) GenerateTasks(c *gin.Context) {
	type GenerateTasksRequest struct {
		Text string `json:"text"`
	}

	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	var req GenerateTasksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	drafts, err := h.aiService.GenerateTasks(c.Request.Context(), req.Text, identity.Role)
	if err != nil {
		respondError(c, err)
		return
	}

	dto.Respond(c, http.StatusOK, gin.H{"tasks": drafts})
}
