package handlers

import (
	"net/http"

	"taskHub/internal/logger"
	"taskHub/internal/middleware"
	"taskHub/internal/notify"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

type RouterDeps struct {
	Tasks      TaskService
	Dashboards DashboardService
	Users      UserService
	Registry   *notify.Registry
	Notify     notify.Options
	Auth       *middleware.Authenticator
	RateLimit  int
	CORS       []string
}

func NewRouter(d RouterDeps) http.Handler {
	taskHandler := NewTaskHandler(d.Tasks, d.Dashboards)
	userHandler := NewUserHandler(d.Users)
	healthHandler := NewHealthHandler(d.Tasks, d.Registry)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORS,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-User-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", healthHandler.HealthCheck)
	r.Get("/ws", wsHandler(d.Registry, d.Notify, d.Auth))

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimit(d.RateLimit))
		r.Use(d.Auth.Auth)

		r.Route("/users", func(r chi.Router) {
			r.Get("/", userHandler.ListUsers) // GET /api/users
			r.Get("/me", userHandler.Me)      // GET /api/users/me
		})

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", taskHandler.GetTasks)               // GET /api/tasks?status=&priority=
			r.Post("/", taskHandler.CreateTask)            // POST /api/tasks
			r.Get("/dashboard", taskHandler.GetDashboard) // GET /api/tasks/dashboard

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", taskHandler.GetTaskByID)     // GET /api/tasks/{id}
				r.Put("/", taskHandler.UpdateTask)      // PUT /api/tasks/{id}
				r.Patch("/", taskHandler.UpdateTask)    // PATCH /api/tasks/{id}
				r.Delete("/", taskHandler.DeleteTask)   // DELETE /api/tasks/{id}
				r.Get("/logs", taskHandler.GetTaskLogs) // GET /api/tasks/{id}/logs
			})
		})
	})

	return otelhttp.NewHandler(r, serviceName)
}

// wsHandler открывает канал уведомлений. С включённой авторизацией канал сразу
// привязан к пользователю из токена, без неё клиент входит в комнату кадром join
func wsHandler(registry *notify.Registry, opts notify.Options, auth *middleware.Authenticator) http.HandlerFunc {
	opts.Identity = func(r *http.Request) string {
		userID, err := auth.Identify(r)
		if err != nil {
			return ""
		}
		return userID.String()
	}
	upgrade := notify.Handler(registry, opts)

	return func(w http.ResponseWriter, r *http.Request) {
		if auth.Enabled() {
			if _, err := auth.Identify(r); err != nil {
				logger.Warn("HTTP: WebSocket без токена", zap.Error(err), zap.String("client_ip", r.RemoteAddr))
				responseWithError(w, http.StatusUnauthorized, codeUnauthorized, err.Error())
				return
			}
		}
		upgrade(w, r)
	}
}
