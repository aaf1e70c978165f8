package handlers

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"github.com/yukikurage/org-task-api/internal/auth"
	"github.com/yukikurage/org-task-api/internal/constants"
	"github.com/yukikurage/org-task-api/internal/middleware"
	"github.com/yukikurage/org-task-api/internal/repository"
	"github.com/yukikurage/org-task-api/internal/services"
	"github.com/yukikurage/org-task-api/internal/testutil"
	"gorm.io/gorm"
)

type apiEnv struct {
	db     *gorm.DB
	router *gin.Engine
	tokens *auth.TokenIssuer
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	userRepo := repository.NewUserRepository(db)
	orgRepo := repository.NewOrganizationRepository(db)
	taskRepo := repository.NewTaskRepository(db)

	tokens := auth.NewTokenIssuer("test-secret", time.Hour)
	guard := auth.NewGuard(tokens, userRepo, orgRepo)

	membership := services.NewMembershipService(orgRepo, userRepo, nil, nil, zerolog.Nop())
	authService := services.NewAuthService(userRepo, orgRepo, tokens)
	taskService := services.NewTaskService(taskRepo, userRepo, nil, zerolog.Nop())

	limit, err := middleware.NewRateLimiter(memory.NewStore(), 1000, "1m")
	require.NoError(t, err)

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(sessions.Sessions(constants.SessionCookieName, cookie.NewStore([]byte("session-secret"))))
	RegisterRoutes(r, Routes{
		Guard:         guard,
		Auth:          NewAuthHandler(authService, membership),
		Organizations: NewOrganizationHandler(membership),
		Tasks:         NewTaskHandler(taskService, services.NewAIService("")),
		TaskService:   taskService,
		AuthRateLimit: limit,
	})

	return &apiEnv{db: db, router: r, tokens: tokens}
}

// do sends a JSON request. body may be nil, a string of raw JSON, or a value
// to marshal.
func (e *apiEnv) do(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *apiEnv) tokenFor(t *testing.T, userID uint64) string {
	t.Helper()
	token, err := e.tokens.Issue(userID)
	require.NoError(t, err)
	return token
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

// decodeData unwraps a success envelope into out.
func decodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	env := decodeEnvelope(t, w)
	require.True(t, env.Success, w.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, out))
}

// errorCode returns the error code of a failure envelope.
func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	env := decodeEnvelope(t, w)
	require.False(t, env.Success, w.Body.String())
	require.NotNil(t, env.Error)
	return env.Error.Code
}
