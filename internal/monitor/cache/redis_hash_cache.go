package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
)

// HashCache хранит последний известный хеш содержимого ресурса, чтобы при
// проверке не вычитывать полный снимок из базы ради одного сравнения.
type HashCache interface {
	GetHash(ctx context.Context, resourceID int64) (string, error)
	SetHash(ctx context.Context, resourceID int64, contentHash string) error
	DeleteHash(ctx context.Context, resourceID int64) error
}

type RedisHashCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisHashCache(redisURL, password string, db int, ttl time.Duration, logger *slog.Logger) (*RedisHashCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     redisURL,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ошибка при подключении к Redis: %w", err)
	}

	logger.Info("Соединение с Redis успешно установлено")

	return &RedisHashCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}, nil
}

func hashKey(resourceID int64) string {
	return fmt.Sprintf("resource_hash:%d", resourceID)
}

// GetHash возвращает пустую строку без ошибки, если хеш не закэширован.
func (c *RedisHashCache) GetHash(ctx context.Context, resourceID int64) (string, error) {
	hash, err := c.client.Get(ctx, hashKey(resourceID)).Result()
	if err != nil {
		if err == redis.Nil {
			c.logger.Debug("Кэш хеша не найден",
				"resourceID", resourceID,
			)

			return "", nil
		}

		c.logger.Error("Ошибка при получении хеша из Redis",
			"error", err,
			"resourceID", resourceID,
		)

		return "", fmt.Errorf("ошибка при получении хеша из Redis: %w", err)
	}

	return hash, nil
}

func (c *RedisHashCache) SetHash(ctx context.Context, resourceID int64, contentHash string) error {
	if err := c.client.Set(ctx, hashKey(resourceID), contentHash, c.ttl).Err(); err != nil {
		c.logger.Error("Ошибка при сохранении хеша в Redis",
			"error", err,
			"resourceID", resourceID,
		)

		return fmt.Errorf("ошибка при сохранении хеша в Redis: %w", err)
	}

	return nil
}

func (c *RedisHashCache) DeleteHash(ctx context.Context, resourceID int64) error {
	if err := c.client.Del(ctx, hashKey(resourceID)).Err(); err != nil {
		return fmt.Errorf("ошибка при удалении хеша из Redis: %w", err)
	}

	return nil
}

func (c *RedisHashCache) Close() error {
	return c.client.Close()
}
