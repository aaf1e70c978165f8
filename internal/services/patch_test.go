package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apierrors "github.com/yukikurage/org-task-api/internal/errors"
	"github.com/yukikurage/org-task-api/internal/models"
)

func rejected(t *testing.T, err error) []string {
	t.Helper()
	var detailed *apierrors.DetailedError
	require.True(t, errors.As(err, &detailed))
	details, ok := detailed.Details.(map[string]interface{})
	require.True(t, ok)
	keys, ok := details["rejected"].([]string)
	require.True(t, ok)
	return keys
}

func TestDecodeTaskPatch(t *testing.T) {
	t.Run("all editable fields", func(t *testing.T) {
		patch, err := DecodeTaskPatch([]byte(`{
			"title": "T",
			"description": "D",
			"category": "feature",
			"priority": "low",
			"status": "in_progress",
			"dueDate": "2025-01-10",
			"assignedTo": 5
		}`))
		require.NoError(t, err)
		assert.Equal(t, "T", *patch.Title)
		assert.Equal(t, "D", *patch.Description)
		assert.Equal(t, models.TaskCategoryFeature, *patch.Category)
		assert.Equal(t, models.TaskPriorityLow, *patch.Priority)
		assert.Equal(t, models.TaskStatusInProgress, *patch.Status)
		assert.Equal(t, time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), *patch.DueDate)
		assert.Equal(t, uint64(5), *patch.AssignedTo)
		assert.False(t, patch.ClearAssignee)
	})

	t.Run("null assignee clears", func(t *testing.T) {
		patch, err := DecodeTaskPatch([]byte(`{"assignedTo": null}`))
		require.NoError(t, err)
		assert.True(t, patch.ClearAssignee)
		assert.Nil(t, patch.AssignedTo)
	})

	t.Run("empty object is a no-op", func(t *testing.T) {
		patch, err := DecodeTaskPatch([]byte(`{}`))
		require.NoError(t, err)
		assert.Equal(t, TaskPatch{}, patch)
	})

	t.Run("unknown keys reject the whole patch", func(t *testing.T) {
		_, err := DecodeTaskPatch([]byte(`{"title": "ok", "organizationId": 2, "createdBy": 1}`))
		assert.ErrorIs(t, err, ErrInvalidTaskUpdate)
		assert.ErrorIs(t, err, apierrors.ErrInvalidUpdate)
		assert.Equal(t, []string{"createdBy", "organizationId"}, rejected(t, err))
	})

	t.Run("wrong types", func(t *testing.T) {
		for _, body := range []string{
			`{"title": 3}`,
			`{"assignedTo": "abc"}`,
			`{"assignedTo": 0}`,
			`{"dueDate": "soon"}`,
			`{"dueDate": null}`,
			`[]`,
			`null`,
		} {
			_, err := DecodeTaskPatch([]byte(body))
			assert.ErrorIs(t, err, apierrors.ErrValidation, body)
		}
	})
}

func TestTaskPatch_Apply(t *testing.T) {
	now := time.Date(2025, 1, 5, 12, 0, 0, 0, time.UTC)
	completed := models.TaskStatusCompleted
	todo := models.TaskStatusTodo

	task := &models.Task{Status: models.TaskStatusInProgress}
	require.NoError(t, TaskPatch{Status: &completed}.apply(task, now))
	require.NotNil(t, task.CompletedAt)
	assert.Equal(t, now, *task.CompletedAt)

	// Re-sending the same status keeps the original completion time.
	require.NoError(t, TaskPatch{Status: &completed}.apply(task, now.Add(time.Hour)))
	assert.Equal(t, now, *task.CompletedAt)

	require.NoError(t, TaskPatch{Status: &todo}.apply(task, now))
	assert.Nil(t, task.CompletedAt)

	assignee := uint64(9)
	require.NoError(t, TaskPatch{AssignedTo: &assignee}.apply(task, now))
	assert.Equal(t, &assignee, task.AssignedToID)
	require.NoError(t, TaskPatch{ClearAssignee: true}.apply(task, now))
	assert.Nil(t, task.AssignedToID)
}

func TestDecodeOrganizationPatch(t *testing.T) {
	patch, err := DecodeOrganizationPatch([]byte(`{"name":"Acme","settings":{"theme":"dark","timezone":"UTC"}}`))
	require.NoError(t, err)
	assert.Equal(t, "Acme", *patch.Name)
	assert.Equal(t, models.ThemeDark, *patch.Theme)
	assert.Equal(t, "UTC", *patch.Timezone)

	_, err = DecodeOrganizationPatch([]byte(`{"inviteCode":"AAAAAA"}`))
	assert.ErrorIs(t, err, ErrInvalidOrganizationUpdate)
	assert.Equal(t, []string{"inviteCode"}, rejected(t, err))

	_, err = DecodeOrganizationPatch([]byte(`{"settings":{"theme":"dark","locale":"ja"}}`))
	assert.ErrorIs(t, err, apierrors.ErrInvalidUpdate)
	assert.Equal(t, []string{"settings.locale"}, rejected(t, err))

	_, err = DecodeOrganizationPatch([]byte(`{"settings":"dark"}`))
	assert.ErrorIs(t, err, apierrors.ErrValidation)
}

func TestParseDueDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
		err  error
	}{
		{"2025-01-10", "2025-01-10", nil},
		{"2025-01-10T23:30:00+09:00", "2025-01-10", nil},
		{" 2025-12-31 ", "2025-12-31", nil},
		{"", "", ErrDueDateRequired},
		{"2025-02-30", "", ErrInvalidDueDate},
		{"10/01/2025", "", ErrInvalidDueDate},
	}
	for _, tt := range tests {
		got, err := ParseDueDate(tt.in)
		if tt.err != nil {
			assert.ErrorIs(t, err, tt.err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got.Format(time.DateOnly))
		assert.Equal(t, time.UTC, got.Location())
	}
}
