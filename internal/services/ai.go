package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/yukikurage/org-task-api/internal/constants"
	apierrors "github.com/yukikurage/org-task-api/internal/errors"
	"github.com/yukikurage/org-task-api/internal/models"
)

var (
	ErrAIServiceNotConfigured = fmt.Errorf("%w: AI service is not configured", apierrors.ErrServiceUnavailable)
	ErrAITextRequired         = fmt.Errorf("%w: text is required", apierrors.ErrValidation)
	ErrAITextTooLong          = fmt.Errorf("%w: text must be at most %d characters", apierrors.ErrValidation, constants.MaxAIInputLength)
)

// chatCompleter is the part of the OpenAI client the service uses.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// AIService drafts tasks from free text. Drafts are never persisted.
type AIService struct {
	client chatCompleter
	now    func() time.Time
}

// GeneratedTask is a task draft extracted from text.
type GeneratedTask struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Category    models.TaskCategory `json:"category"`
	Priority    models.TaskPriority `json:"priority"`
	DueDate     *string             `json:"dueDate"`
}

// NewAIService creates an AIService. Without an API key every call fails with
// ErrAIServiceNotConfigured.
func NewAIService(apiKey string) *AIService {
	s := &AIService{now: time.Now}
	if apiKey != "" {
		s.client = openai.NewClient(apiKey)
	}
	return s
}

// GenerateTasks analyzes text and extracts task drafts using OpenAI GPT.
func (s *AIService) GenerateTasks(ctx context.Context, text string, callerRole models.Role) ([]GeneratedTask, error) {
	if err := requireRole(callerRole, models.ElevatedRoles...); err != nil {
		return nil, err
	}
	if s.client == nil {
		return nil, ErrAIServiceNotConfigured
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrAITextRequired
	}
	if len([]rune(text)) > constants.MaxAIInputLength {
		return nil, ErrAITextTooLong
	}

	prompt := fmt.Sprintf(`You extract actionable tasks from text.

Today: %s

Text:
%s

Reply with a JSON array of tasks in this shape:
[
  {
    "title": "short task title",
    "description": "details",
    "category": "bug | feature | improvement",
    "priority": "low | medium | high",
    "dueDate": "YYYY-MM-DD, or null when no deadline is stated"
  }
]

Rules:
- Return [] when there are no tasks
- Convert relative deadlines ("tomorrow", "next week") into dates
- Return JSON only, without any explanation`, s.now().Format(time.DateOnly), text)

	resp, err := s.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: openai.GPT4o,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			Temperature: 0.3,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	return parseGeneratedTasks(resp.Choices[0].Message.Content)
}

// parseGeneratedTasks decodes the model output and coerces every draft into
// a valid shape. Drafts without a title are dropped.
func parseGeneratedTasks(content string) ([]GeneratedTask, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var drafts []GeneratedTask
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &drafts); err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w", err)
	}

	tasks := make([]GeneratedTask, 0, len(drafts))
	for _, draft := range drafts {
		draft.Title = strings.TrimSpace(draft.Title)
		if draft.Title == "" {
			continue
		}
		if !draft.Category.Valid() {
			draft.Category = models.TaskCategoryFeature
		}
		if !draft.Priority.Valid() {
			draft.Priority = models.TaskPriorityMedium
		}
		if draft.DueDate != nil {
			if due, err := ParseDueDate(*draft.DueDate); err == nil {
				formatted := due.Format(time.DateOnly)
				draft.DueDate = &formatted
			} else {
				draft.DueDate = nil
			}
		}

		tasks = append(tasks, draft)
		if len(tasks) == constants.MaxAIGeneratedTasks {
			break
		}
	}

	return tasks, nil
}
