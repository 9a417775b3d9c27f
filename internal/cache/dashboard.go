package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"taskHub/internal/config"
	"taskHub/internal/logger"
	"taskHub/internal/models/task"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DashboardCache хранит собранные дашборды в Redis под ключом prefix+userID
type DashboardCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func New(client *redis.Client, prefix string, ttl time.Duration) *DashboardCache {
	return &DashboardCache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// NewFromConfig открывает клиент и проверяет соединение
func NewFromConfig(ctx context.Context, cfg config.CacheConfig) (*DashboardCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis недоступен по адресу %s: %w", cfg.RedisAddr, err)
	}

	logger.Info("Cache: Подключение к Redis установлено",
		zap.String("addr", cfg.RedisAddr),
		zap.Duration("ttl", cfg.TTL))

	return New(client, cfg.Prefix, cfg.TTL), nil
}

func (c *DashboardCache) key(userID uuid.UUID) string {
	return c.prefix + userID.String()
}

// счётчик сбросов дашборда пользователя, живёт без TTL
func (c *DashboardCache) generationKey(userID uuid.UUID) string {
	return c.prefix + "gen:" + userID.String()
}

var errStale = errors.New("поколение дашборда изменилось")

func (c *DashboardCache) Get(ctx context.Context, userID uuid.UUID) (*task.Dashboard, bool, error) {
	data, err := c.client.Get(ctx, c.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("чтение кэша: %w", err)
	}

	var dashboard task.Dashboard
	if err := json.Unmarshal(data, &dashboard); err != nil {
		// битую запись убираем, следующий запрос пересоберёт её
		_ = c.client.Del(ctx, c.key(userID)).Err()
		return nil, false, fmt.Errorf("разбор кэша: %w", err)
	}
	return &dashboard, true, nil
}

// Generation возвращает текущее поколение дашборда, отсутствующий счётчик равен нулю
func (c *DashboardCache) Generation(ctx context.Context, userID uuid.UUID) (int64, error) {
	gen, err := c.client.Get(ctx, c.generationKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("чтение поколения кэша: %w", err)
	}
	return gen, nil
}

// Set пишет дашборд под WATCH счётчика поколений. Если после начала сборки был
// Invalidate, запись отбрасывается и возвращается false
func (c *DashboardCache) Set(ctx context.Context, userID uuid.UUID, generation int64, dashboard *task.Dashboard) (bool, error) {
	data, err := json.Marshal(dashboard)
	if err != nil {
		return false, fmt.Errorf("сериализация дашборда: %w", err)
	}

	genKey := c.generationKey(userID)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != generation {
			return errStale
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, c.key(userID), data, c.ttl)
			return nil
		})
		return err
	}, genKey)

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errStale), errors.Is(err, redis.TxFailedErr):
		return false, nil
	default:
		return false, fmt.Errorf("запись кэша: %w", err)
	}
}

// Invalidate удаляет дашборды перечисленных пользователей и увеличивает их поколение,
// пустые id пропускаются
func (c *DashboardCache) Invalidate(ctx context.Context, userIDs ...uuid.UUID) error {
	ids := make([]uuid.UUID, 0, len(userIDs))
	seen := make(map[uuid.UUID]struct{}, len(userIDs))
	for _, id := range userIDs {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil
	}

	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range ids {
			pipe.Incr(ctx, c.generationKey(id))
			pipe.Del(ctx, c.key(id))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("сброс кэша: %w", err)
	}
	return nil
}

func (c *DashboardCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *DashboardCache) Close() error {
	return c.client.Close()
}
