package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"taskHub/internal/app"
	"taskHub/internal/config"
	"taskHub/internal/logger"
	"taskHub/internal/middleware"
	"taskHub/internal/repository/postgres"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "taskhub",
		Short:         "TaskHub - задачи команды с уведомлениями в реальном времени",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		// без подкоманды запускаем сервер
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yml", "путь к config.yml")

	root.AddCommand(serveCmd(&configPath))
	root.AddCommand(migrateCmd(&configPath))
	root.AddCommand(tokenCmd(&configPath))
	return root
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Запустить HTTP сервер",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *configPath)
		},
	}
}

func runServe(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("загрузка конфигурации: %w", err)
	}

	a, err := app.New(cfg).Init(ctx)
	if err != nil {
		return fmt.Errorf("инициализация приложения: %w", err)
	}

	if code := a.Run(ctx); code != 0 {
		return fmt.Errorf("сервер завершился с кодом %d", code)
	}
	return nil
}

func migrateCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Миграции схемы PostgreSQL",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Применить все миграции",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadForCLI(*configPath)
			if err != nil {
				return err
			}
			return postgres.Migrate(cfg.Database.URL)
		},
	})

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Откатить миграции (по умолчанию одну)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadForCLI(*configPath)
			if err != nil {
				return err
			}
			return postgres.Rollback(cfg.Database.URL, steps)
		},
	}
	down.Flags().IntVarP(&steps, "steps", "n", 1, "сколько миграций откатить, 0 - все")
	cmd.AddCommand(down)

	return cmd
}

// tokenCmd выпускает токен для локальной проверки API, в проде токены выдаёт сервис учётных записей
func tokenCmd(configPath *string) *cobra.Command {
	var (
		userID string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Выпустить JWT для пользователя (разработка)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadForCLI(*configPath)
			if err != nil {
				return err
			}
			id, err := uuid.Parse(userID)
			if err != nil {
				return fmt.Errorf("некорректный --user: %w", err)
			}

			token, err := middleware.NewAuthenticator(cfg.Auth).SignToken(id, ttl)
			if err != nil {
				return fmt.Errorf("подпись токена: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "id пользователя")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "время жизни токена")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func loadForCLI(configPath string) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("загрузка конфигурации: %w", err)
	}
	if err := logger.Init(cfg.Logging.Development); err != nil {
		return nil, fmt.Errorf("инициализация логгера: %w", err)
	}
	return cfg, nil
}
