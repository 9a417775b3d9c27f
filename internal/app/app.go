package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"taskHub/internal/cache"
	"taskHub/internal/config"
	"taskHub/internal/handlers"
	"taskHub/internal/logger"
	"taskHub/internal/middleware"
	"taskHub/internal/models/user"
	"taskHub/internal/notify"
	"taskHub/internal/repository/inmemory"
	"taskHub/internal/repository/postgres"
	"taskHub/internal/service"
	"taskHub/internal/worker"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type App struct {
	config     *config.Config
	server     *http.Server
	router     http.Handler
	repository service.TaskRepository // интерфейс!
	audit      service.AuditRepository
	users      service.UserRepository
	cache      service.DashboardCache
	registry   *notify.Registry
	worker     *worker.OverdueWorker
	stopWorker context.CancelFunc
	shutdowns  []func() // функции для graceful shutdown, вызываются в обратном порядке
}

func New(cfg *config.Config) *App {
	return &App{
		config:    cfg,
		shutdowns: make([]func(), 0),
	}
}

// Init собирает граф объектов. При ошибке уже открытые ресурсы закрываются
func (a *App) Init(ctx context.Context) (*App, error) {
	if err := logger.Init(a.config.Logging.Development); err != nil {
		return nil, fmt.Errorf("инициализация логгера: %w", err)
	}

	a.shutdowns = append(a.shutdowns, func() {
		logger.Info("Завершение работы логгирования...")
		logger.Sync()
	})

	if err := a.initStorage(ctx); err != nil {
		a.runShutdowns()
		return nil, err
	}

	if err := a.initCache(ctx); err != nil {
		a.runShutdowns()
		return nil, err
	}

	a.registry = notify.NewRegistry()

	var opts []service.Option
	if a.cache != nil {
		opts = append(opts, service.WithCache(a.cache))
	}

	dashboards := service.NewDashboardService(a.repository, opts...)
	recorder := service.NewAuditRecorder(a.audit)
	tasks := service.NewTaskService(a.repository, recorder, a.registry, service.WithInvalidator(dashboards))
	users := service.NewUserService(a.users)

	a.router = handlers.NewRouter(handlers.RouterDeps{
		Tasks:      tasks,
		Dashboards: dashboards,
		Users:      users,
		Registry:   a.registry,
		Notify: notify.Options{
			SendBuffer:   a.config.Notify.SendBuffer,
			WriteTimeout: a.config.Notify.WriteTimeout,
			PingInterval: a.config.Notify.PingInterval,
		},
		Auth:      middleware.NewAuthenticator(a.config.Auth),
		RateLimit: a.config.Server.RateLimit,
		CORS:      a.config.Server.CORSOrigins,
	})

	a.server = &http.Server{
		Addr:         a.config.GetServerAddr(),
		Handler:      a.router,
		ReadTimeout:  a.config.Server.ReadTimeout,
		WriteTimeout: a.config.Server.WriteTimeout,
	}

	if a.config.Worker.Enabled {
		a.worker = worker.NewOverdueWorker(a.repository, a.registry,
			&a.config.Worker.Interval, &a.config.Worker.BatchSize, worker.WithInvalidator(dashboards))
	}

	logger.Info("Приложение инициализировано",
		zap.String("repository", a.config.Repository.Type),
		zap.Bool("auth", a.config.Auth.Enabled),
		zap.Bool("cache", a.cache != nil),
		zap.Bool("worker", a.worker != nil))

	return a, nil
}

func (a *App) initStorage(ctx context.Context) error {
	switch a.config.Repository.Type {
	case config.RepositoryInMemory:
		users := inmemory.NewUserStorage()
		for _, seed := range a.config.Repository.Users {
			profile, err := profileFromSeed(seed)
			if err != nil {
				return err
			}
			users.AddUser(profile)
		}
		a.repository = inmemory.NewTaskStorage(users)
		a.audit = inmemory.NewAuditStorage(users)
		a.users = users
		logger.Info("Repository: Используется хранилище в памяти",
			zap.Int("users", len(a.config.Repository.Users)))

	case config.RepositoryPostgres:
		storage, err := postgres.New(ctx, a.config.Database)
		if err != nil {
			return fmt.Errorf("подключение к PostgreSQL: %w", err)
		}
		a.shutdowns = append(a.shutdowns, storage.Close)

		if a.config.Database.MigrateOnStart {
			if err := storage.Migrate(); err != nil {
				return fmt.Errorf("миграции: %w", err)
			}
		}

		users := storage.Users()
		for _, seed := range a.config.Repository.Users {
			profile, err := profileFromSeed(seed)
			if err != nil {
				return err
			}
			if _, err := users.Upsert(ctx, profile); err != nil {
				return fmt.Errorf("загрузка пользователя %s: %w", seed.Email, err)
			}
		}

		a.repository = storage.Tasks()
		a.audit = storage.Audit()
		a.users = users

	default:
		return fmt.Errorf("неизвестный тип репозитория %q", a.config.Repository.Type)
	}
	return nil
}

// кэш необязателен: недоступный Redis не мешает старту, дашборд читается из хранилища
func (a *App) initCache(ctx context.Context) error {
	if !a.config.Cache.Enabled {
		return nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	dashboardCache, err := cache.NewFromConfig(pingCtx, a.config.Cache)
	if err != nil {
		logger.Warn("Cache: Redis недоступен, работаем без кэша дашбордов", zap.Error(err))
		return nil
	}

	a.cache = dashboardCache
	a.shutdowns = append(a.shutdowns, func() {
		if err := dashboardCache.Close(); err != nil {
			logger.Warn("Cache: Ошибка закрытия клиента Redis", zap.Error(err))
		}
	})
	return nil
}

func profileFromSeed(seed config.UserSeed) (user.Profile, error) {
	profile := user.Profile{
		Name:   seed.Name,
		Email:  seed.Email,
		Avatar: seed.Avatar,
	}
	if seed.ID != "" {
		id, err := uuid.Parse(seed.ID)
		if err != nil {
			return user.Profile{}, fmt.Errorf("некорректный id пользователя %q: %w", seed.ID, err)
		}
		profile.ID = id
	}
	return profile, nil
}

func (a *App) Handler() http.Handler {
	return a.router
}

// Run запускает HTTP сервер и воркер, блокируется до сигнала остановки и возвращает код выхода
func (a *App) Run(ctx context.Context) int {
	if a.worker != nil {
		workerCtx, cancel := context.WithCancel(ctx)
		a.stopWorker = cancel
		go a.worker.Start(workerCtx)
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP: Сервер запущен", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	wait := gfshutdown.GracefulShutdown(ctx, a.config.Server.ShutdownTimeout, map[string]gfshutdown.Operation{
		"taskhub": a.Shutdown,
	})

	select {
	case err := <-serverErr:
		logger.Error("HTTP: Сервер остановился с ошибкой", err)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
		defer cancel()
		_ = a.Shutdown(shutdownCtx)
		return 1
	case code := <-wait:
		logger.Info("Приложение остановлено", zap.Int("exit_code", code))
		return code
	}
}

// Shutdown останавливает приём запросов, воркер и закрывает ресурсы
func (a *App) Shutdown(ctx context.Context) error {
	logger.Info("Graceful shutdown...")

	var err error
	if a.server != nil {
		if shutdownErr := a.server.Shutdown(ctx); shutdownErr != nil {
			err = fmt.Errorf("остановка HTTP сервера: %w", shutdownErr)
		}
	}
	if a.registry != nil {
		a.registry.CloseAll()
	}
	if a.stopWorker != nil {
		a.stopWorker()
	}

	a.runShutdowns()
	return err
}

func (a *App) runShutdowns() {
	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		a.shutdowns[i]()
	}
	a.shutdowns = nil
}
