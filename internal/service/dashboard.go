package service

import (
	"context"
	"fmt"
	"time"

	"taskHub/internal/logger"
	"taskHub/internal/models/task"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// DashboardService собирает три выборки по предикатам: назначенные, созданные, просроченные.
// Выборки могут пересекаться, дедупликации нет
type DashboardService struct {
	repo  TaskRepository
	cache DashboardCache
	group singleflight.Group
	now   func() time.Time
}

func NewDashboardService(tasks TaskRepository, opts ...Option) *DashboardService {
	o := buildOptions(opts)
	return &DashboardService{
		repo:  tasks,
		cache: o.cache,
		now:   o.now,
	}
}

func (s *DashboardService) GetDashboardData(ctx context.Context, userID uuid.UUID) (*task.Dashboard, error) {
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, userID)
		if err != nil {
			logger.Warn("Service: Ошибка чтения кэша дашборда", zap.Error(err))
		} else if ok {
			return cached, nil
		}
	}

	// одновременные запросы одного пользователя идут в хранилище один раз.
	// Общая сборка не зависит от отмены контекста первого клиента
	shared := context.WithoutCancel(ctx)
	ch := s.group.DoChan(userID.String(), func() (any, error) {
		return s.compose(shared, userID)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			logger.Debug("Service: Дашборд получен из общего запроса", zap.String("user_id", userID.String()))
		}
		return res.Val.(*task.Dashboard), nil
	}
}

// Invalidate вызывается после изменения задач: незавершённые сборки больше не
// раздаются новым запросам, кэш сбрасывается
func (s *DashboardService) Invalidate(ctx context.Context, userIDs ...uuid.UUID) error {
	for _, id := range userIDs {
		if id == uuid.Nil {
			continue
		}
		s.group.Forget(id.String())
	}

	if s.cache == nil {
		return nil
	}
	return s.cache.Invalidate(ctx, userIDs...)
}

func (s *DashboardService) compose(ctx context.Context, userID uuid.UUID) (*task.Dashboard, error) {
	start := time.Now()

	// поколение читается до выборок: если задачи изменятся во время сборки,
	// устаревший дашборд не попадёт в кэш
	var (
		generation int64
		cacheable  = s.cache != nil
	)
	if cacheable {
		gen, err := s.cache.Generation(ctx, userID)
		if err != nil {
			logger.Warn("Service: Не удалось прочитать поколение кэша", zap.Error(err))
			cacheable = false
		}
		generation = gen
	}

	now := s.now()
	dashboard := &task.Dashboard{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		tasks, err := s.repo.FindByAssignee(gctx, userID)
		if err != nil {
			return fmt.Errorf("назначенные задачи: %w", err)
		}
		dashboard.Assigned = tasks
		return nil
	})
	g.Go(func() error {
		tasks, err := s.repo.FindByCreator(gctx, userID)
		if err != nil {
			return fmt.Errorf("созданные задачи: %w", err)
		}
		dashboard.Created = tasks
		return nil
	})
	g.Go(func() error {
		tasks, err := s.repo.FindOverdue(gctx, userID, now)
		if err != nil {
			return fmt.Errorf("просроченные задачи: %w", err)
		}
		dashboard.Overdue = tasks
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Service: Не удалось собрать дашборд", err, zap.String("user_id", userID.String()))
		return nil, NewStorageError("dashboard", err)
	}

	logger.Debug("Service: Дашборд собран",
		zap.String("user_id", userID.String()),
		zap.Int("assigned", len(dashboard.Assigned)),
		zap.Int("created", len(dashboard.Created)),
		zap.Int("overdue", len(dashboard.Overdue)),
		zap.Duration("ms", time.Since(start)))

	if cacheable {
		stored, err := s.cache.Set(ctx, userID, generation, dashboard)
		switch {
		case err != nil:
			logger.Warn("Service: Не удалось записать дашборд в кэш", zap.Error(err))
		case !stored:
			logger.Debug("Service: Дашборд устарел во время сборки, в кэш не пишем",
				zap.String("user_id", userID.String()))
		}
	}
	return dashboard, nil
}
