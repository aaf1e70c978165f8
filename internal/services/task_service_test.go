package services

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apierrors "github.com/yukikurage/org-task-api/internal/errors"
	"github.com/yukikurage/org-task-api/internal/models"
	"github.com/yukikurage/org-task-api/internal/repository"
	"github.com/yukikurage/org-task-api/internal/testutil"
	"gorm.io/gorm"
)

type taskFixture struct {
	db      *gorm.DB
	svc     *TaskService
	org     *models.Organization
	admin   *models.User
	manager *models.User
	member  *models.User
	other   *models.User
}

func newTaskFixture(t *testing.T) *taskFixture {
	t.Helper()
	db := testutil.NewDB(t)
	org := testutil.CreateOrganization(t, db, "Acme", "acme", "AAAAAA")
	return &taskFixture{
		db:      db,
		svc:     NewTaskService(repository.NewTaskRepository(db), repository.NewUserRepository(db), nil, zerolog.Nop()),
		org:     org,
		admin:   testutil.CreateUser(t, db, org.ID, "admin@acme.test", models.RoleAdmin),
		manager: testutil.CreateUser(t, db, org.ID, "manager@acme.test", models.RoleManager),
		member:  testutil.CreateUser(t, db, org.ID, "member@acme.test", models.RoleMember),
		other:   testutil.CreateUser(t, db, org.ID, "other@acme.test", models.RoleMember),
	}
}

func (f *taskFixture) create(t *testing.T, assignee *uint64) *models.Task {
	t.Helper()
	task, err := f.svc.CreateTask(context.Background(), CreateTaskInput{
		OrganizationID: f.org.ID,
		CreatorID:      f.manager.ID,
		CallerRole:     f.manager.Role,
		Title:          "Login fails",
		Category:       models.TaskCategoryBug,
		Priority:       models.TaskPriorityHigh,
		DueDate:        "2025-01-10",
		AssignedTo:     assignee,
	})
	require.NoError(t, err)
	return task
}

func TestTaskLifecycle_Scenario(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()

	task := f.create(t, &f.member.ID)
	assert.Equal(t, models.TaskStatusTodo, task.Status)
	assert.Equal(t, models.TaskCategoryBug, task.Category)
	assert.Equal(t, models.TaskPriorityHigh, task.Priority)
	require.NotNil(t, task.DueDate)
	assert.Equal(t, "2025-01-10", task.DueDate.Format(time.DateOnly))
	assert.Nil(t, task.CompletedAt)

	task, err := f.svc.ChangeStatus(ctx, f.org.ID, task.ID, models.TaskStatusInProgress, f.member.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusInProgress, task.Status)
	assert.Nil(t, task.CompletedAt)

	task, err = f.svc.ChangeStatus(ctx, f.org.ID, task.ID, models.TaskStatusCompleted, f.member.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, task.Status)
	assert.NotNil(t, task.CompletedAt)

	task, err = f.svc.ChangeStatus(ctx, f.org.ID, task.ID, models.TaskStatusTodo, f.member.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusTodo, task.Status)
	assert.Nil(t, task.CompletedAt)
}

func TestTaskLifecycle_ChangeStatusAuthorization(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()

	assigned := f.create(t, &f.other.ID)
	mine := f.create(t, &f.member.ID)
	open := f.create(t, nil)

	_, err := f.svc.ChangeStatus(ctx, f.org.ID, assigned.ID, models.TaskStatusInProgress, f.member.ID)
	assert.ErrorIs(t, err, ErrNotTaskAssignee)
	assert.ErrorIs(t, err, apierrors.ErrAuthorization)

	// Elevated roles get no exemption.
	_, err = f.svc.ChangeStatus(ctx, f.org.ID, assigned.ID, models.TaskStatusInProgress, f.admin.ID)
	assert.ErrorIs(t, err, ErrNotTaskAssignee)

	_, err = f.svc.ChangeStatus(ctx, f.org.ID, mine.ID, models.TaskStatusInProgress, f.member.ID)
	assert.NoError(t, err)

	_, err = f.svc.ChangeStatus(ctx, f.org.ID, open.ID, models.TaskStatusInProgress, f.member.ID)
	assert.NoError(t, err)

	_, err = f.svc.ChangeStatus(ctx, f.org.ID+1, open.ID, models.TaskStatusTodo, f.member.ID)
	assert.ErrorIs(t, err, ErrTaskNotFound)

	_, err = f.svc.ChangeStatus(ctx, f.org.ID, open.ID, models.TaskStatusExpired, f.member.ID)
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = f.svc.ChangeStatus(ctx, f.org.ID, open.ID, models.TaskStatus("done"), f.member.ID)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestTaskLifecycle_ExpiredIsTerminal(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()

	task := f.create(t, nil)
	require.NoError(t, f.db.Model(&models.Task{}).Where("id = ?", task.ID).
		Update("status", models.TaskStatusExpired).Error)

	_, err := f.svc.ChangeStatus(ctx, f.org.ID, task.ID, models.TaskStatusTodo, f.member.ID)
	assert.ErrorIs(t, err, ErrTaskExpired)

	status := models.TaskStatusTodo
	_, err = f.svc.UpdateTask(ctx, f.org.ID, task.ID, TaskPatch{Status: &status}, models.RoleAdmin)
	assert.ErrorIs(t, err, ErrTaskExpired)

	title := "Still editable"
	updated, err := f.svc.UpdateTask(ctx, f.org.ID, task.ID, TaskPatch{Title: &title}, models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusExpired, updated.Status)
	assert.Equal(t, "Still editable", updated.Title)
}

func TestTaskLifecycle_CreateTask(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()

	other := testutil.CreateOrganization(t, f.db, "Other", "other", "BBBBBB")
	outsider := testutil.CreateUser(t, f.db, other.ID, "x@other.test", models.RoleMember)

	base := func() CreateTaskInput {
		return CreateTaskInput{
			OrganizationID: f.org.ID,
			CreatorID:      f.admin.ID,
			CallerRole:     models.RoleAdmin,
			Title:          "Ship it",
			Category:       models.TaskCategoryFeature,
			Priority:       models.TaskPriorityLow,
			DueDate:        "2025-03-01T10:00:00Z",
		}
	}

	task, err := f.svc.CreateTask(ctx, base())
	require.NoError(t, err)
	assert.Equal(t, f.admin.ID, task.CreatedByID)
	assert.Equal(t, f.admin.ID, task.Creator.ID)
	assert.Equal(t, "2025-03-01", task.DueDate.Format(time.DateOnly))

	tests := []struct {
		name   string
		mutate func(in *CreateTaskInput)
		want   error
	}{
		{"member cannot create", func(in *CreateTaskInput) { in.CallerRole = models.RoleMember }, ErrForbidden},
		{"blank title", func(in *CreateTaskInput) { in.Title = "  " }, ErrTitleRequired},
		{"bad category", func(in *CreateTaskInput) { in.Category = "chore" }, ErrInvalidCategory},
		{"bad priority", func(in *CreateTaskInput) { in.Priority = "urgent" }, ErrInvalidPriority},
		{"missing due date", func(in *CreateTaskInput) { in.DueDate = "" }, ErrDueDateRequired},
		{"bad due date", func(in *CreateTaskInput) { in.DueDate = "next friday" }, ErrInvalidDueDate},
		{"foreign assignee", func(in *CreateTaskInput) { in.AssignedTo = &outsider.ID }, ErrAssigneeNotInOrganization},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base()
			tt.mutate(&in)
			_, err := f.svc.CreateTask(ctx, in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestTaskLifecycle_UpdateTask(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()
	task := f.create(t, &f.member.ID)

	decode := func(body string) TaskPatch {
		patch, err := DecodeTaskPatch([]byte(body))
		require.NoError(t, err)
		return patch
	}

	_, err := f.svc.UpdateTask(ctx, f.org.ID, task.ID, decode(`{"title":"x"}`), models.RoleMember)
	assert.ErrorIs(t, err, ErrForbidden)

	updated, err := f.svc.UpdateTask(ctx, f.org.ID, task.ID,
		decode(`{"title":"Login fails on Safari","priority":"medium","status":"completed","dueDate":"2025-02-01"}`),
		models.RoleManager)
	require.NoError(t, err)
	assert.Equal(t, "Login fails on Safari", updated.Title)
	assert.Equal(t, models.TaskPriorityMedium, updated.Priority)
	assert.Equal(t, models.TaskStatusCompleted, updated.Status)
	assert.NotNil(t, updated.CompletedAt)
	assert.Equal(t, "2025-02-01", updated.DueDate.Format(time.DateOnly))
	assert.Equal(t, f.org.ID, updated.OrganizationID)

	updated, err = f.svc.UpdateTask(ctx, f.org.ID, task.ID, decode(`{"status":"in_progress","assignedTo":null}`), models.RoleAdmin)
	require.NoError(t, err)
	assert.Nil(t, updated.CompletedAt)
	assert.Nil(t, updated.AssignedToID)

	_, err = f.svc.UpdateTask(ctx, f.org.ID, task.ID, decode(`{"status":"expired"}`), models.RoleAdmin)
	assert.ErrorIs(t, err, ErrInvalidStatus)

	other := testutil.CreateOrganization(t, f.db, "Other", "other", "BBBBBB")
	outsider := testutil.CreateUser(t, f.db, other.ID, "x@other.test", models.RoleMember)
	patch := TaskPatch{AssignedTo: &outsider.ID}
	_, err = f.svc.UpdateTask(ctx, f.org.ID, task.ID, patch, models.RoleAdmin)
	assert.ErrorIs(t, err, ErrAssigneeNotInOrganization)

	_, err = f.svc.UpdateTask(ctx, other.ID, task.ID, decode(`{"title":"hijack"}`), models.RoleAdmin)
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

// removingUserRepository removes the looked-up user right after a successful
// FindInOrganization, as a concurrent RemoveMember committing between the
// assignee lookup and the task write would.
type removingUserRepository struct {
	repository.UserRepository
	orgRepo repository.OrganizationRepository
}

func (r *removingUserRepository) FindInOrganization(ctx context.Context, organizationID, userID uint64) (*models.User, error) {
	user, err := r.UserRepository.FindInOrganization(ctx, organizationID, userID)
	if err != nil {
		return nil, err
	}
	if err := r.orgRepo.RemoveMember(ctx, organizationID, userID); err != nil {
		return nil, err
	}
	return user, nil
}

func TestTaskLifecycle_AssigneeRemovedBeforeWrite(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()
	svc := NewTaskService(
		repository.NewTaskRepository(f.db),
		&removingUserRepository{
			UserRepository: repository.NewUserRepository(f.db),
			orgRepo:        repository.NewOrganizationRepository(f.db),
		},
		nil,
		zerolog.Nop(),
	)
	task := f.create(t, nil)

	_, err := svc.UpdateTask(ctx, f.org.ID, task.ID, TaskPatch{AssignedTo: &f.member.ID}, models.RoleManager)
	assert.ErrorIs(t, err, ErrAssigneeNotInOrganization)

	reloaded, err := f.svc.GetTask(ctx, f.org.ID, task.ID)
	require.NoError(t, err)
	assert.Nil(t, reloaded.AssignedToID)

	_, err = svc.CreateTask(ctx, CreateTaskInput{
		OrganizationID: f.org.ID,
		CreatorID:      f.manager.ID,
		CallerRole:     f.manager.Role,
		Title:          "Orphaned",
		Category:       models.TaskCategoryFeature,
		Priority:       models.TaskPriorityLow,
		DueDate:        "2025-01-10",
		AssignedTo:     &f.other.ID,
	})
	assert.ErrorIs(t, err, ErrAssigneeNotInOrganization)

	var count int64
	require.NoError(t, f.db.Model(&models.Task{}).Where("title = ?", "Orphaned").Count(&count).Error)
	assert.Zero(t, count)

	// The unassigned task stays actionable for everyone.
	changed, err := f.svc.ChangeStatus(ctx, f.org.ID, task.ID, models.TaskStatusInProgress, f.admin.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusInProgress, changed.Status)
}

func TestTaskLifecycle_ListAndDelete(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()

	first := f.create(t, &f.member.ID)
	second := f.create(t, nil)

	tasks, total, err := f.svc.ListTasks(ctx, f.org.ID, ListTasksInput{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, tasks, 2)

	tasks, _, err = f.svc.ListTasks(ctx, f.org.ID, ListTasksInput{
		Status:     "todo",
		Category:   "bug",
		Priority:   "high",
		AssignedTo: "",
	})
	require.NoError(t, err)
	assert.Len(t, tasks, 2)

	tasks, _, err = f.svc.ListTasks(ctx, f.org.ID, ListTasksInput{AssignedTo: formatID(f.member.ID)})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, first.ID, tasks[0].ID)

	for _, in := range []ListTasksInput{
		{Status: "done"},
		{Category: "chore"},
		{Priority: "urgent"},
		{AssignedTo: "me"},
	} {
		_, _, err := f.svc.ListTasks(ctx, f.org.ID, in)
		assert.ErrorIs(t, err, apierrors.ErrValidation)
	}

	_, err = f.svc.GetTask(ctx, f.org.ID+1, second.ID)
	assert.ErrorIs(t, err, ErrTaskNotFound)

	assert.ErrorIs(t, f.svc.DeleteTask(ctx, f.org.ID, second.ID, models.RoleMember), ErrForbidden)
	require.NoError(t, f.svc.DeleteTask(ctx, f.org.ID, second.ID, models.RoleManager))
	assert.ErrorIs(t, f.svc.DeleteTask(ctx, f.org.ID, second.ID, models.RoleManager), ErrTaskNotFound)
}

func formatID(id uint64) string {
	return strconv.FormatUint(id, 10)
}
