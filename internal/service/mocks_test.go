package service_test

import (
	"context"
	"sync"
	"time"

	"taskHub/internal/models/audit"
	"taskHub/internal/models/task"
	"taskHub/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockTaskRepository - мок репозитория
type MockTaskRepository struct {
	mock.Mock
}

func (m *MockTaskRepository) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTaskRepository) Create(ctx context.Context, t *task.Task) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func (m *MockTaskRepository) FindAll(ctx context.Context, filter task.Filter) ([]*task.Task, error) {
	args := m.Called(ctx, filter)
	return tasksArg(args)
}

func (m *MockTaskRepository) FindByAssignee(ctx context.Context, userID uuid.UUID) ([]*task.Task, error) {
	args := m.Called(ctx, userID)
	return tasksArg(args)
}

func (m *MockTaskRepository) FindByCreator(ctx context.Context, userID uuid.UUID) ([]*task.Task, error) {
	args := m.Called(ctx, userID)
	return tasksArg(args)
}

func (m *MockTaskRepository) FindOverdue(ctx context.Context, userID uuid.UUID, now time.Time) ([]*task.Task, error) {
	args := m.Called(ctx, userID, now)
	return tasksArg(args)
}

func (m *MockTaskRepository) FindDueBetween(ctx context.Context, from, to time.Time, limit int) ([]*task.Task, error) {
	args := m.Called(ctx, from, to, limit)
	return tasksArg(args)
}

func (m *MockTaskRepository) Update(ctx context.Context, t *task.Task) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTaskRepository) Delete(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func tasksArg(args mock.Arguments) ([]*task.Task, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*task.Task), args.Error(1)
}

var _ service.TaskRepository = (*MockTaskRepository)(nil)

type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Append(ctx context.Context, entry *audit.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAuditRepository) ListByTask(ctx context.Context, taskID uuid.UUID) ([]*audit.Entry, error) {
	args := m.Called(ctx, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*audit.Entry), args.Error(1)
}

var _ service.AuditRepository = (*MockAuditRepository)(nil)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(userID string, event string, payload any) {
	m.Called(userID, event, payload)
}

func (m *MockNotifier) Broadcast(event string, payload any) {
	m.Called(event, payload)
}

var _ service.Notifier = (*MockNotifier)(nil)

type MockDashboardCache struct {
	mock.Mock
}

func (m *MockDashboardCache) Get(ctx context.Context, userID uuid.UUID) (*task.Dashboard, bool, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*task.Dashboard), args.Bool(1), args.Error(2)
}

func (m *MockDashboardCache) Generation(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDashboardCache) Set(ctx context.Context, userID uuid.UUID, generation int64, dashboard *task.Dashboard) (bool, error) {
	args := m.Called(ctx, userID, generation, dashboard)
	return args.Bool(0), args.Error(1)
}

func (m *MockDashboardCache) Invalidate(ctx context.Context, userIDs ...uuid.UUID) error {
	args := m.Called(ctx, userIDs)
	return args.Error(0)
}

var _ service.DashboardCache = (*MockDashboardCache)(nil)

// generationCache - кэш в памяти с поколениями, как в redis реализации
type generationCache struct {
	mtx         sync.Mutex
	dashboards  map[uuid.UUID]*task.Dashboard
	generations map[uuid.UUID]int64
}

func newGenerationCache() *generationCache {
	return &generationCache{
		dashboards:  make(map[uuid.UUID]*task.Dashboard),
		generations: make(map[uuid.UUID]int64),
	}
}

func (c *generationCache) Get(_ context.Context, userID uuid.UUID) (*task.Dashboard, bool, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	d, ok := c.dashboards[userID]
	return d, ok, nil
}

func (c *generationCache) Generation(_ context.Context, userID uuid.UUID) (int64, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.generations[userID], nil
}

func (c *generationCache) Set(_ context.Context, userID uuid.UUID, generation int64, dashboard *task.Dashboard) (bool, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.generations[userID] != generation {
		return false, nil
	}
	c.dashboards[userID] = dashboard
	return true, nil
}

func (c *generationCache) Invalidate(_ context.Context, userIDs ...uuid.UUID) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	for _, id := range userIDs {
		c.generations[id]++
		delete(c.dashboards, id)
	}
	return nil
}

var _ service.DashboardCache = (*generationCache)(nil)

// gatedTaskRepository останавливает первую выборку просроченных задач до сигнала
type gatedTaskRepository struct {
	service.TaskRepository
	once    sync.Once
	reached chan struct{}
	release chan struct{}
}

func newGatedRepository(repo service.TaskRepository) *gatedTaskRepository {
	return &gatedTaskRepository{
		TaskRepository: repo,
		reached:        make(chan struct{}),
		release:        make(chan struct{}),
	}
}

func (g *gatedTaskRepository) FindOverdue(ctx context.Context, userID uuid.UUID, now time.Time) ([]*task.Task, error) {
	tasks, err := g.TaskRepository.FindOverdue(ctx, userID, now)
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.reached)
		<-g.release
	}
	return tasks, err
}

type notification struct {
	userID  string
	event   string
	payload any
}

// recordingNotifier запоминает события для сценарных тестов
type recordingNotifier struct {
	mtx        sync.Mutex
	notified   []notification
	broadcasts []string
}

func (r *recordingNotifier) Notify(userID string, event string, payload any) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.notified = append(r.notified, notification{userID: userID, event: event, payload: payload})
}

func (r *recordingNotifier) Broadcast(event string, payload any) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.broadcasts = append(r.broadcasts, event)
}

func (r *recordingNotifier) notificationsFor(userID uuid.UUID) []notification {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	res := []notification{}
	for _, n := range r.notified {
		if n.userID == userID.String() {
			res = append(res, n)
		}
	}
	return res
}

func (r *recordingNotifier) broadcastCount() int {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return len(r.broadcasts)
}

func (r *recordingNotifier) reset() {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.notified = nil
	r.broadcasts = nil
}
