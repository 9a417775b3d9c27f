package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"taskHub/internal/config"
	"taskHub/internal/handlers"
	"taskHub/internal/handlers/dto"
	"taskHub/internal/middleware"
	"taskHub/internal/models/audit"
	"taskHub/internal/models/task"
	"taskHub/internal/models/user"
	"taskHub/internal/notify"
	"taskHub/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockTaskService - мок сервиса задач
type MockTaskService struct {
	mock.Mock
}

func (m *MockTaskService) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTaskService) CreateTask(ctx context.Context, t *task.Task) (*task.Task, error) {
	args := m.Called(ctx, t)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func (m *MockTaskService) UpdateTask(ctx context.Context, id uuid.UUID, patch task.Patch, actingUserID uuid.UUID) (*task.Task, error) {
	args := m.Called(ctx, id, patch, actingUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func (m *MockTaskService) DeleteTask(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func (m *MockTaskService) GetAllTasks(ctx context.Context, filter task.Filter) ([]*task.Task, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*task.Task), args.Error(1)
}

func (m *MockTaskService) GetTaskByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func (m *MockTaskService) GetTaskLogs(ctx context.Context, id uuid.UUID) ([]*audit.Entry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*audit.Entry), args.Error(1)
}

type MockDashboardService struct {
	mock.Mock
}

func (m *MockDashboardService) GetDashboardData(ctx context.Context, userID uuid.UUID) (*task.Dashboard, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Dashboard), args.Error(1)
}

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) ListUsers(ctx context.Context) ([]*user.Profile, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*user.Profile), args.Error(1)
}

func (m *MockUserService) GetUser(ctx context.Context, id uuid.UUID) (*user.Profile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.Profile), args.Error(1)
}

var (
	_ handlers.TaskService      = (*MockTaskService)(nil)
	_ handlers.DashboardService = (*MockDashboardService)(nil)
	_ handlers.UserService      = (*MockUserService)(nil)
)

type testEnv struct {
	tasks      *MockTaskService
	dashboards *MockDashboardService
	users      *MockUserService
	registry   *notify.Registry
	router     http.Handler
	userID     uuid.UUID
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		tasks:      new(MockTaskService),
		dashboards: new(MockDashboardService),
		users:      new(MockUserService),
		registry:   notify.NewRegistry(),
		userID:     uuid.New(),
	}
	env.router = handlers.NewRouter(handlers.RouterDeps{
		Tasks:      env.tasks,
		Dashboards: env.dashboards,
		Users:      env.users,
		Registry:   env.registry,
		Auth:       middleware.NewAuthenticator(config.AuthConfig{Enabled: false}),
	})
	return env
}

func (e *testEnv) do(method, target, body string) *httptest.ResponseRecorder {
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-User-ID", e.userID.String())
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) assertExpectations(t *testing.T) {
	e.tasks.AssertExpectations(t)
	e.dashboards.AssertExpectations(t)
	e.users.AssertExpectations(t)
}

func sampleTask(id uuid.UUID) *task.Task {
	return &task.Task{
		ID:          id,
		Title:       "Test Task",
		Description: "Test Description",
		DueDate:     time.Now().Add(24 * time.Hour).UTC(),
		Priority:    task.PriorityMedium,
		Status:      task.StatusToDo,
		CreatorID:   uuid.New(),
		AssigneeID:  uuid.New(),
		CreatedAt:   time.Now().UTC(),
		Version:     1,
	}
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	code, _ := body["error"].(string)
	return code
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name           string
		setupMock      func(*MockTaskService)
		expectedStatus int
	}{
		{
			name: "success - healthy",
			setupMock: func(m *MockTaskService) {
				m.On("HealthCheck", mock.Anything).Return(nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "error - unhealthy",
			setupMock: func(m *MockTaskService) {
				m.On("HealthCheck", mock.Anything).Return(errors.New("service unavailable"))
			},
			expectedStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newEnv(t)
			tt.setupMock(env.tasks)

			w := env.do(http.MethodGet, "/health", "")

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), "taskhub")
			assert.Contains(t, w.Body.String(), `"clients":0`)
			env.assertExpectations(t)
		})
	}
}

func TestCreateTask(t *testing.T) {
	taskID := uuid.New()
	assignee := uuid.New()
	due := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)

	validBody := fmt.Sprintf(`{
		"title": "Test Task",
		"description": "Test Description",
		"due_date": "%s",
		"priority": "High",
		"assignee_id": "%s"
	}`, due.Format(time.RFC3339), assignee)

	tests := []struct {
		name           string
		requestBody    string
		contentType    string
		setupMock      func(*testEnv)
		expectedStatus int
		expectedCode   string
	}{
		{
			name:        "success - create task",
			requestBody: validBody,
			contentType: "application/json",
			setupMock: func(e *testEnv) {
				e.tasks.On("CreateTask", mock.Anything, mock.MatchedBy(func(t *task.Task) bool {
					return t.Title == "Test Task" &&
						t.CreatorID == e.userID &&
						t.AssigneeID == assignee &&
						t.Priority == task.PriorityHigh &&
						t.Status == "" &&
						t.DueDate.Equal(due)
				})).Return(func() *task.Task {
					created := sampleTask(taskID)
					created.Priority = task.PriorityHigh
					return created
				}(), nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "error - invalid content type",
			requestBody:    validBody,
			contentType:    "text/plain",
			setupMock:      func(e *testEnv) {},
			expectedStatus: http.StatusUnsupportedMediaType,
		},
		{
			name:           "error - invalid JSON",
			requestBody:    `{invalid json}`,
			contentType:    "application/json",
			setupMock:      func(e *testEnv) {},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "BAD_REQUEST",
		},
		{
			name:           "error - unknown field",
			requestBody:    `{"title":"a","description":"b","due_date":"2026-01-01T00:00:00Z","assignee_id":"` + assignee.String() + `","owner":"x"}`,
			contentType:    "application/json",
			setupMock:      func(e *testEnv) {},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "BAD_REQUEST",
		},
		{
			name:           "error - due date not RFC3339",
			requestBody:    `{"title":"a","description":"b","due_date":"01/02/2026","assignee_id":"` + assignee.String() + `"}`,
			contentType:    "application/json",
			setupMock:      func(e *testEnv) {},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "BAD_REQUEST",
		},
		{
			name:           "error - missing title",
			requestBody:    `{"description":"b","due_date":"2026-01-01T00:00:00Z","assignee_id":"` + assignee.String() + `"}`,
			contentType:    "application/json",
			setupMock:      func(e *testEnv) {},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   service.CodeValidation,
		},
		{
			name:           "error - title too long",
			requestBody:    `{"title":"` + strings.Repeat("я", 101) + `","description":"b","due_date":"2026-01-01T00:00:00Z","assignee_id":"` + assignee.String() + `"}`,
			contentType:    "application/json",
			setupMock:      func(e *testEnv) {},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   service.CodeValidation,
		},
		{
			name:           "error - missing due date",
			requestBody:    `{"title":"a","description":"b","assignee_id":"` + assignee.String() + `"}`,
			contentType:    "application/json",
			setupMock:      func(e *testEnv) {},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   service.CodeValidation,
		},
		{
			name:           "error - unknown priority",
			requestBody:    `{"title":"a","description":"b","due_date":"2026-01-01T00:00:00Z","priority":"Asap","assignee_id":"` + assignee.String() + `"}`,
			contentType:    "application/json",
			setupMock:      func(e *testEnv) {},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   service.CodeValidation,
		},
		{
			name:           "error - missing assignee",
			requestBody:    `{"title":"a","description":"b","due_date":"2026-01-01T00:00:00Z"}`,
			contentType:    "application/json",
			setupMock:      func(e *testEnv) {},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   service.CodeValidation,
		},
		{
			name:        "error - assignee not found",
			requestBody: validBody,
			contentType: "application/json",
			setupMock: func(e *testEnv) {
				e.tasks.On("CreateTask", mock.Anything, mock.Anything).
					Return(nil, service.NewNotFound(service.ResourceUser, assignee.String()))
			},
			expectedStatus: http.StatusNotFound,
			expectedCode:   service.CodeNotFound,
		},
		{
			name:        "error - storage",
			requestBody: validBody,
			contentType: "application/json",
			setupMock: func(e *testEnv) {
				e.tasks.On("CreateTask", mock.Anything, mock.Anything).
					Return(nil, service.NewStorageError("create", errors.New("connection refused")))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   service.CodeStorage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newEnv(t)
			tt.setupMock(env)

			req := httptest.NewRequest(http.MethodPost, "/api/tasks", bytes.NewBufferString(tt.requestBody))
			req.Header.Set("Content-Type", tt.contentType)
			req.Header.Set("X-User-ID", env.userID.String())
			w := httptest.NewRecorder()
			env.router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)

			if tt.expectedStatus == http.StatusCreated {
				var response dto.TaskResponse
				require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
				assert.Equal(t, taskID, response.ID)
				assert.Equal(t, "Test Task", response.Title)
				assert.Equal(t, task.PriorityHigh, response.Priority)
			}
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, errorCode(t, w))
			}
			env.assertExpectations(t)
		})
	}
}

func TestCreateTask_Unauthenticated(t *testing.T) {
	env := newEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/tasks", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	env.assertExpectations(t)
}

func TestGetTasks_Filter(t *testing.T) {
	status := task.StatusInProgress
	priority := task.PriorityUrgent

	tests := []struct {
		name     string
		query    string
		expected task.Filter
	}{
		{name: "no filter", query: "", expected: task.Filter{}},
		{name: "status", query: "?status=" + url.QueryEscape(string(status)), expected: task.Filter{Status: &status}},
		{name: "priority", query: "?priority=Urgent", expected: task.Filter{Priority: &priority}},
		{
			name:     "both",
			query:    "?status=" + url.QueryEscape(string(status)) + "&priority=Urgent",
			expected: task.Filter{Status: &status, Priority: &priority},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newEnv(t)
			env.tasks.On("GetAllTasks", mock.Anything, tt.expected).
				Return([]*task.Task{sampleTask(uuid.New())}, nil)

			w := env.do(http.MethodGet, "/api/tasks"+tt.query, "")

			assert.Equal(t, http.StatusOK, w.Code)
			var response []dto.TaskResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
			assert.Len(t, response, 1)
			env.assertExpectations(t)
		})
	}
}

func TestGetTasks_InvalidFilter(t *testing.T) {
	env := newEnv(t)
	env.tasks.On("GetAllTasks", mock.Anything, mock.Anything).
		Return(nil, service.NewValidationError("status", "неизвестный статус"))

	w := env.do(http.MethodGet, "/api/tasks?status=Done", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, service.CodeValidation, errorCode(t, w))
}

func TestGetTaskByID(t *testing.T) {
	taskID := uuid.New()

	tests := []struct {
		name           string
		taskID         string
		setupMock      func(*MockTaskService)
		expectedStatus int
	}{
		{
			name:   "success - get task",
			taskID: taskID.String(),
			setupMock: func(m *MockTaskService) {
				m.On("GetTaskByID", mock.Anything, taskID).Return(sampleTask(taskID), nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "error - invalid UUID",
			taskID:         "invalid-uuid",
			setupMock:      func(m *MockTaskService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "error - nil UUID",
			taskID:         uuid.Nil.String(),
			setupMock:      func(m *MockTaskService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:   "error - task not found",
			taskID: taskID.String(),
			setupMock: func(m *MockTaskService) {
				m.On("GetTaskByID", mock.Anything, taskID).
					Return(nil, service.NewNotFound(service.ResourceTask, taskID.String()))
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:   "error - unexpected error",
			taskID: taskID.String(),
			setupMock: func(m *MockTaskService) {
				m.On("GetTaskByID", mock.Anything, taskID).Return(nil, errors.New("internal error"))
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newEnv(t)
			tt.setupMock(env.tasks)

			w := env.do(http.MethodGet, "/api/tasks/"+tt.taskID, "")

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusOK {
				var response dto.TaskResponse
				require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
				assert.Equal(t, taskID, response.ID)
				assert.False(t, response.IsOverdue)
			}
			env.assertExpectations(t)
		})
	}
}

func TestUpdateTask(t *testing.T) {
	taskID := uuid.New()
	newAssignee := uuid.New()

	tests := []struct {
		name           string
		method         string
		requestBody    string
		setupMock      func(*testEnv)
		expectedStatus int
		expectedCode   string
	}{
		{
			name:        "success - status via PUT",
			method:      http.MethodPut,
			requestBody: `{"status": "In Progress"}`,
			setupMock: func(e *testEnv) {
				e.tasks.On("UpdateTask", mock.Anything, taskID, mock.MatchedBy(func(p task.Patch) bool {
					return p.Status != nil && *p.Status == task.StatusInProgress &&
						p.Title == nil && p.AssigneeID == nil
				}), e.userID).Return(sampleTask(taskID), nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:        "success - reassign via PATCH",
			method:      http.MethodPatch,
			requestBody: `{"assignee_id": "` + newAssignee.String() + `"}`,
			setupMock: func(e *testEnv) {
				e.tasks.On("UpdateTask", mock.Anything, taskID, mock.MatchedBy(func(p task.Patch) bool {
					return p.AssigneeID != nil && *p.AssigneeID == newAssignee && p.Status == nil
				}), e.userID).Return(sampleTask(taskID), nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "error - empty patch",
			method:         http.MethodPut,
			requestBody:    `{}`,
			setupMock:      func(e *testEnv) {},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   service.CodeValidation,
		},
		{
			name:           "error - creator is not updatable",
			method:         http.MethodPut,
			requestBody:    `{"creator_id": "` + uuid.NewString() + `"}`,
			setupMock:      func(e *testEnv) {},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "BAD_REQUEST",
		},
		{
			name:           "error - unknown status",
			method:         http.MethodPatch,
			requestBody:    `{"status": "Done"}`,
			setupMock:      func(e *testEnv) {},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   service.CodeValidation,
		},
		{
			name:           "error - empty title",
			method:         http.MethodPatch,
			requestBody:    `{"title": ""}`,
			setupMock:      func(e *testEnv) {},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   service.CodeValidation,
		},
		{
			name:        "error - not found",
			method:      http.MethodPut,
			requestBody: `{"title": "x"}`,
			setupMock: func(e *testEnv) {
				e.tasks.On("UpdateTask", mock.Anything, taskID, mock.Anything, e.userID).
					Return(nil, service.NewNotFound(service.ResourceTask, taskID.String()))
			},
			expectedStatus: http.StatusNotFound,
			expectedCode:   service.CodeNotFound,
		},
		{
			name:        "error - version conflict",
			method:      http.MethodPut,
			requestBody: `{"title": "x"}`,
			setupMock: func(e *testEnv) {
				e.tasks.On("UpdateTask", mock.Anything, taskID, mock.Anything, e.userID).
					Return(nil, service.NewVersionConflict(taskID.String()))
			},
			expectedStatus: http.StatusConflict,
			expectedCode:   service.CodeVersionConflict,
		},
		{
			name:        "error - audit storage failure",
			method:      http.MethodPut,
			requestBody: `{"status": "Completed"}`,
			setupMock: func(e *testEnv) {
				e.tasks.On("UpdateTask", mock.Anything, taskID, mock.Anything, e.userID).
					Return(nil, service.NewStorageError("audit", errors.New("disk full")))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   service.CodeStorage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newEnv(t)
			tt.setupMock(env)

			w := env.do(tt.method, "/api/tasks/"+taskID.String(), tt.requestBody)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, errorCode(t, w))
			}
			env.assertExpectations(t)
		})
	}
}

func TestDeleteTask(t *testing.T) {
	taskID := uuid.New()

	t.Run("deleted", func(t *testing.T) {
		env := newEnv(t)
		env.tasks.On("DeleteTask", mock.Anything, taskID).Return(sampleTask(taskID), nil)

		w := env.do(http.MethodDelete, "/api/tasks/"+taskID.String(), "")

		assert.Equal(t, http.StatusOK, w.Code)
		var response dto.TaskResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, taskID, response.ID)
		env.assertExpectations(t)
	})

	t.Run("nothing to delete", func(t *testing.T) {
		env := newEnv(t)
		env.tasks.On("DeleteTask", mock.Anything, taskID).Return(nil, nil)

		w := env.do(http.MethodDelete, "/api/tasks/"+taskID.String(), "")

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Body.String())
		env.assertExpectations(t)
	})

	t.Run("storage error", func(t *testing.T) {
		env := newEnv(t)
		env.tasks.On("DeleteTask", mock.Anything, taskID).
			Return(nil, service.NewStorageError("delete", errors.New("boom")))

		w := env.do(http.MethodDelete, "/api/tasks/"+taskID.String(), "")

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "boom")
	})
}

func TestGetDashboard(t *testing.T) {
	env := newEnv(t)
	shared := sampleTask(uuid.New())
	overdue := sampleTask(uuid.New())
	overdue.DueDate = time.Now().Add(-time.Hour)

	env.dashboards.On("GetDashboardData", mock.Anything, env.userID).Return(&task.Dashboard{
		Assigned: []*task.Task{shared, overdue},
		Created:  []*task.Task{shared},
		Overdue:  []*task.Task{overdue},
	}, nil)

	w := env.do(http.MethodGet, "/api/tasks/dashboard", "")

	require.Equal(t, http.StatusOK, w.Code)
	var response dto.DashboardResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Len(t, response.Assigned, 2)
	assert.Len(t, response.Created, 1)
	require.Len(t, response.Overdue, 1)
	assert.True(t, response.Overdue[0].IsOverdue)
	env.assertExpectations(t)
}

func TestGetDashboard_EmptyListsAreArrays(t *testing.T) {
	env := newEnv(t)
	env.dashboards.On("GetDashboardData", mock.Anything, env.userID).Return(&task.Dashboard{}, nil)

	w := env.do(http.MethodGet, "/api/tasks/dashboard", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"assigned":[],"created":[],"overdue":[]}`, w.Body.String())
}

func TestGetTaskLogs(t *testing.T) {
	env := newEnv(t)
	taskID := uuid.New()
	actor := &user.Profile{ID: uuid.New(), Name: "Алиса", Email: "alice@example.com"}

	env.tasks.On("GetTaskLogs", mock.Anything, taskID).Return([]*audit.Entry{
		{
			ID:             uuid.New(),
			TaskID:         taskID,
			UserID:         actor.ID,
			Action:         audit.ActionStatusChange,
			PreviousStatus: task.StatusInProgress,
			NewStatus:      task.StatusCompleted,
			Timestamp:      time.Now(),
			User:           actor,
		},
		{
			ID:             uuid.New(),
			TaskID:         taskID,
			UserID:         actor.ID,
			Action:         audit.ActionStatusChange,
			PreviousStatus: task.StatusToDo,
			NewStatus:      task.StatusInProgress,
			Timestamp:      time.Now().Add(-time.Hour),
			User:           actor,
		},
	}, nil)

	w := env.do(http.MethodGet, "/api/tasks/"+taskID.String()+"/logs", "")

	require.Equal(t, http.StatusOK, w.Code)
	var response []dto.AuditLogResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	require.Len(t, response, 2)
	assert.Equal(t, task.StatusCompleted, response[0].NewStatus)
	assert.Equal(t, "Алиса", response[0].User.Name)
	env.assertExpectations(t)
}

func TestUsers(t *testing.T) {
	env := newEnv(t)
	me := &user.Profile{ID: env.userID, Name: "Алиса", Email: "alice@example.com"}

	env.users.On("ListUsers", mock.Anything).Return([]*user.Profile{me, {ID: uuid.New(), Name: "Боб"}}, nil)
	env.users.On("GetUser", mock.Anything, env.userID).Return(me, nil)

	w := env.do(http.MethodGet, "/api/users", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []dto.UserResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&list))
	assert.Len(t, list, 2)
	assert.NotContains(t, w.Body.String(), "password")

	w = env.do(http.MethodGet, "/api/users/me", "")
	require.Equal(t, http.StatusOK, w.Code)
	var profile dto.UserResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&profile))
	assert.Equal(t, env.userID, profile.ID)

	env.assertExpectations(t)
}

func TestWebSocket_RequiresTokenWhenAuthEnabled(t *testing.T) {
	router := handlers.NewRouter(handlers.RouterDeps{
		Tasks:      new(MockTaskService),
		Dashboards: new(MockDashboardService),
		Users:      new(MockUserService),
		Registry:   notify.NewRegistry(),
		Auth:       middleware.NewAuthenticator(config.AuthConfig{Enabled: true, Secret: "s3cret"}),
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
