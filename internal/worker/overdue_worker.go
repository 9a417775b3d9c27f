package worker

import (
	"context"
	"fmt"
	"time"

	"taskHub/internal/logger"
	"taskHub/internal/models/task"
	"taskHub/internal/service"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OverdueWorker раз в интервал ищет задачи, у которых срок истёк после прошлой проверки,
// и отправляет исполнителю уведомление. Уже просроченные на старте задачи не трогает
type OverdueWorker struct {
	repo       service.TaskRepository
	notifier   service.Notifier
	dashboards service.DashboardInvalidator
	interval   time.Duration
	batchSize  int
	now        func() time.Time

	// окно следующей проверки начинается с from
	from time.Time
	// задачи со сроком ровно from, о которых уже сообщили при обрезанной пачке
	boundary map[uuid.UUID]struct{}
}

type Option func(*OverdueWorker)

// WithInvalidator сбрасывает дашборды исполнителей, у которых появились просроченные задачи
func WithInvalidator(dashboards service.DashboardInvalidator) Option {
	return func(w *OverdueWorker) {
		w.dashboards = dashboards
	}
}

func WithClock(now func() time.Time) Option {
	return func(w *OverdueWorker) {
		w.now = now
	}
}

func NewOverdueWorker(repo service.TaskRepository, notifier service.Notifier, interval *time.Duration, batchSize *int, opts ...Option) *OverdueWorker {
	var intervalToSet time.Duration
	if interval == nil || *interval <= 0 {
		intervalToSet = time.Minute
	} else {
		intervalToSet = *interval
	}

	var batchToSet int
	if batchSize == nil || *batchSize <= 0 {
		batchToSet = 100
	} else {
		batchToSet = *batchSize
	}

	w := &OverdueWorker{
		repo:      repo,
		notifier:  notifier,
		interval:  intervalToSet,
		batchSize: batchToSet,
		now:       time.Now,
		boundary:  make(map[uuid.UUID]struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.from = w.now()
	return w
}

func (w *OverdueWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	logger.Info("Worker: Проверка просроченных задач запущена", zap.Duration("interval", w.interval))

	for {
		select {
		case <-ticker.C:
			if _, err := w.Check(ctx); err != nil {
				logger.Warn("Worker: Ошибка проверки просроченных задач", zap.Error(err))
			}
		case <-ctx.Done():
			logger.Info("Worker: Фоновая проверка останавливается")
			return
		}
	}
}

// Check обрабатывает окно [from, now) и возвращает число отправленных уведомлений.
// При ошибке окно не сдвигается, следующая проверка повторит его
func (w *OverdueWorker) Check(ctx context.Context) (int, error) {
	start := time.Now()
	to := w.now()

	tasks, err := w.repo.FindDueBetween(ctx, w.from, to, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("поиск задач с истёкшим сроком: %w", err)
	}

	notified := 0
	affected := make([]uuid.UUID, 0, len(tasks))
	for _, t := range tasks {
		if _, ok := w.boundary[t.ID]; ok {
			continue
		}
		w.notify(t)
		affected = append(affected, t.AssigneeID)
		notified++
	}

	w.advance(tasks, to, notified)

	if w.dashboards != nil && len(affected) > 0 {
		if err := w.dashboards.Invalidate(ctx, affected...); err != nil {
			logger.Warn("Worker: Не удалось сбросить кэш дашбордов", zap.Error(err))
		}
	}

	logger.Info("Worker: Завершение проверки задач",
		zap.Duration("ms", time.Since(start)),
		zap.Int("checked", len(tasks)),
		zap.Int("notified", notified))

	return notified, nil
}

// полная пачка значит, что в окне могли остаться задачи: продолжаем с последнего срока
func (w *OverdueWorker) advance(tasks []*task.Task, to time.Time, notified int) {
	if len(tasks) < w.batchSize {
		w.from = to
		w.boundary = make(map[uuid.UUID]struct{})
		return
	}

	last := tasks[len(tasks)-1].DueDate
	// вся пачка уже разослана: задач с одним сроком больше, чем batchSize, остаток пропускаем
	if notified == 0 {
		w.from = last.Add(time.Microsecond)
		w.boundary = make(map[uuid.UUID]struct{})
		return
	}

	if !last.Equal(w.from) {
		w.boundary = make(map[uuid.UUID]struct{})
	}
	w.from = last
	for _, t := range tasks {
		if t.DueDate.Equal(last) {
			w.boundary[t.ID] = struct{}{}
		}
	}
}

func (w *OverdueWorker) notify(t *task.Task) {
	id := t.ID
	w.notifier.Notify(t.AssigneeID.String(), service.EventNotification, service.NotificationPayload{
		Message: fmt.Sprintf("Срок задачи истёк: %s", t.Title),
		TaskID:  &id,
	})
}
