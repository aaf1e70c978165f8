package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/org-task-api/internal/dto"
	"github.com/yukikurage/org-task-api/internal/models"
)

// TaskHandlerTestSuite drives the task endpoints through the router.
type TaskHandlerTestSuite struct {
	suite.Suite
	env     *apiEnv
	admin   dto.SessionDTO
	manager dto.SessionDTO
	member  dto.SessionDTO
}

// SetupTest runs before each test
func (suite *TaskHandlerTestSuite) SetupTest() {
	t := suite.T()
	suite.env = newAPIEnv(t)
	suite.admin = register(t, suite.env, "Acme", "admin@acme.test")
	suite.manager = join(t, suite.env, suite.admin.Organization.InviteCode, "manager@acme.test")
	suite.member = join(t, suite.env, suite.admin.Organization.InviteCode, "member@acme.test")

	w := suite.env.do(t, http.MethodPatch,
		fmt.Sprintf("/api/organizations/members/%d/role", suite.manager.User.ID),
		map[string]string{"role": "manager"}, suite.admin.Token)
	suite.Require().Equal(http.StatusOK, w.Code)
}

func (suite *TaskHandlerTestSuite) createTask(token string, body map[string]interface{}) dto.TaskDTO {
	w := suite.env.do(suite.T(), http.MethodPost, "/api/tasks", body, token)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var task dto.TaskDTO
	decodeData(suite.T(), w, &task)
	return task
}

func taskBody(title string) map[string]interface{} {
	return map[string]interface{}{
		"title":    title,
		"category": "bug",
		"priority": "high",
		"dueDate":  "2025-01-10",
	}
}

func taskPath(id uint64, suffix string) string {
	return fmt.Sprintf("/api/tasks/%d%s", id, suffix)
}

func (suite *TaskHandlerTestSuite) TestCreateTask_Success() {
	body := taskBody("Fix login")
	body["assignedTo"] = suite.member.User.ID

	task := suite.createTask(suite.manager.Token, body)

	suite.Equal("Fix login", task.Title)
	suite.Equal(models.TaskStatusTodo, task.Status)
	suite.Require().NotNil(task.DueDate)
	suite.Equal("2025-01-10", *task.DueDate)
	suite.Equal(suite.manager.User.ID, task.CreatedBy)
	suite.Require().NotNil(task.Assignee)
	suite.Equal(suite.member.User.Email, task.Assignee.Email)
	suite.Require().NotNil(task.Creator)
	suite.Equal(suite.manager.User.ID, task.Creator.ID)
}

func (suite *TaskHandlerTestSuite) TestCreateTask_MemberForbidden() {
	w := suite.env.do(suite.T(), http.MethodPost, "/api/tasks", taskBody("Nope"), suite.member.Token)
	suite.Equal(http.StatusForbidden, w.Code)
}

func (suite *TaskHandlerTestSuite) TestCreateTask_Validation() {
	body := taskBody("Bad category")
	body["category"] = "chore"
	w := suite.env.do(suite.T(), http.MethodPost, "/api/tasks", body, suite.admin.Token)
	suite.Equal(http.StatusBadRequest, w.Code)

	other := register(suite.T(), suite.env, "Other", "admin@other.test")
	body = taskBody("Foreign assignee")
	body["assignedTo"] = other.User.ID
	w = suite.env.do(suite.T(), http.MethodPost, "/api/tasks", body, suite.admin.Token)
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *TaskHandlerTestSuite) TestListTasks_FiltersAndPagination() {
	first := suite.createTask(suite.admin.Token, taskBody("First"))
	second := suite.createTask(suite.admin.Token, taskBody("Second"))
	assigned := taskBody("Assigned")
	assigned["assignedTo"] = suite.member.User.ID
	third := suite.createTask(suite.admin.Token, assigned)

	w := suite.env.do(suite.T(), http.MethodGet, "/api/tasks", nil, suite.member.Token)
	suite.Require().Equal(http.StatusOK, w.Code)
	var all dto.TaskListDTO
	decodeData(suite.T(), w, &all)
	suite.Require().Len(all.Tasks, 3)
	suite.Nil(all.Pagination)
	suite.Equal(third.ID, all.Tasks[0].ID)
	suite.Equal(second.ID, all.Tasks[1].ID)
	suite.Equal(first.ID, all.Tasks[2].ID)

	w = suite.env.do(suite.T(), http.MethodGet, fmt.Sprintf("/api/tasks?assignedTo=%d", suite.member.User.ID), nil, suite.member.Token)
	suite.Require().Equal(http.StatusOK, w.Code)
	var mine dto.TaskListDTO
	decodeData(suite.T(), w, &mine)
	suite.Require().Len(mine.Tasks, 1)
	suite.Equal(third.ID, mine.Tasks[0].ID)

	w = suite.env.do(suite.T(), http.MethodGet, "/api/tasks?page=2&limit=2", nil, suite.member.Token)
	suite.Require().Equal(http.StatusOK, w.Code)
	var page dto.TaskListDTO
	decodeData(suite.T(), w, &page)
	suite.Require().Len(page.Tasks, 1)
	suite.Equal(first.ID, page.Tasks[0].ID)
	suite.Require().NotNil(page.Pagination)
	suite.Equal(int64(3), page.Pagination.Total)

	w = suite.env.do(suite.T(), http.MethodGet, "/api/tasks?status=done", nil, suite.member.Token)
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *TaskHandlerTestSuite) TestGetTask_ScopedToOrganization() {
	task := suite.createTask(suite.admin.Token, taskBody("Scoped"))

	w := suite.env.do(suite.T(), http.MethodGet, taskPath(task.ID, ""), nil, suite.member.Token)
	suite.Equal(http.StatusOK, w.Code)

	other := register(suite.T(), suite.env, "Other", "admin@other.test")
	w = suite.env.do(suite.T(), http.MethodGet, taskPath(task.ID, ""), nil, other.Token)
	suite.Equal(http.StatusNotFound, w.Code)

	w = suite.env.do(suite.T(), http.MethodPatch, taskPath(task.ID, ""), `{"title":"Stolen"}`, other.Token)
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *TaskHandlerTestSuite) TestUpdateTask() {
	task := suite.createTask(suite.admin.Token, taskBody("Draft"))

	w := suite.env.do(suite.T(), http.MethodPatch, taskPath(task.ID, ""), `{"title":"Final","assignedTo":`+fmt.Sprint(suite.member.User.ID)+`}`, suite.manager.Token)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var updated dto.TaskDTO
	decodeData(suite.T(), w, &updated)
	suite.Equal("Final", updated.Title)
	suite.Require().NotNil(updated.AssignedTo)
	suite.Equal(suite.member.User.ID, *updated.AssignedTo)

	w = suite.env.do(suite.T(), http.MethodPatch, taskPath(task.ID, ""), `{"assignedTo":null}`, suite.manager.Token)
	suite.Require().Equal(http.StatusOK, w.Code)
	decodeData(suite.T(), w, &updated)
	suite.Nil(updated.AssignedTo)

	w = suite.env.do(suite.T(), http.MethodPatch, taskPath(task.ID, ""), `{"createdBy":1}`, suite.manager.Token)
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("INVALID_UPDATE", errorCode(suite.T(), w))

	w = suite.env.do(suite.T(), http.MethodPatch, taskPath(task.ID, ""), `{"title":"Mine"}`, suite.member.Token)
	suite.Equal(http.StatusForbidden, w.Code)
}

func (suite *TaskHandlerTestSuite) TestChangeStatus() {
	body := taskBody("Assigned")
	body["assignedTo"] = suite.member.User.ID
	task := suite.createTask(suite.admin.Token, body)

	w := suite.env.do(suite.T(), http.MethodPatch, taskPath(task.ID, "/status"), map[string]string{"status": "completed"}, suite.admin.Token)
	suite.Equal(http.StatusForbidden, w.Code)

	w = suite.env.do(suite.T(), http.MethodPatch, taskPath(task.ID, "/status"), map[string]string{"status": "completed"}, suite.member.Token)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var done dto.TaskDTO
	decodeData(suite.T(), w, &done)
	suite.Equal(models.TaskStatusCompleted, done.Status)
	suite.NotNil(done.CompletedAt)

	w = suite.env.do(suite.T(), http.MethodPatch, taskPath(task.ID, "/status"), map[string]string{"status": "todo"}, suite.member.Token)
	suite.Require().Equal(http.StatusOK, w.Code)
	var reopened dto.TaskDTO
	decodeData(suite.T(), w, &reopened)
	suite.Nil(reopened.CompletedAt)

	w = suite.env.do(suite.T(), http.MethodPatch, taskPath(task.ID, "/status"), map[string]string{"status": "expired"}, suite.member.Token)
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *TaskHandlerTestSuite) TestChangeStatus_UnassignedOpenToAll() {
	task := suite.createTask(suite.admin.Token, taskBody("Open"))

	w := suite.env.do(suite.T(), http.MethodPatch, taskPath(task.ID, "/status"), map[string]string{"status": "in_progress"}, suite.member.Token)
	suite.Equal(http.StatusOK, w.Code)
}

func (suite *TaskHandlerTestSuite) TestChangeStatus_Expired() {
	task := suite.createTask(suite.admin.Token, taskBody("Old"))
	suite.Require().NoError(suite.env.db.Model(&models.Task{}).Where("id = ?", task.ID).Update("status", models.TaskStatusExpired).Error)

	w := suite.env.do(suite.T(), http.MethodPatch, taskPath(task.ID, "/status"), map[string]string{"status": "todo"}, suite.member.Token)
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *TaskHandlerTestSuite) TestDeleteTask() {
	task := suite.createTask(suite.admin.Token, taskBody("Temporary"))

	w := suite.env.do(suite.T(), http.MethodDelete, taskPath(task.ID, ""), nil, suite.member.Token)
	suite.Equal(http.StatusForbidden, w.Code)

	w = suite.env.do(suite.T(), http.MethodDelete, taskPath(task.ID, ""), nil, suite.manager.Token)
	suite.Equal(http.StatusOK, w.Code)

	w = suite.env.do(suite.T(), http.MethodGet, taskPath(task.ID, ""), nil, suite.manager.Token)
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *TaskHandlerTestSuite) TestGenerateTasks_NotConfigured() {
	w := suite.env.do(suite.T(), http.MethodPost, "/api/tasks/generate", map[string]string{"text": "ship it"}, suite.admin.Token)
	suite.Equal(http.StatusServiceUnavailable, w.Code)

	w = suite.env.do(suite.T(), http.MethodPost, "/api/tasks/generate", map[string]string{"text": "ship it"}, suite.member.Token)
	suite.Equal(http.StatusForbidden, w.Code)
}

func TestTaskHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(TaskHandlerTestSuite))
}
