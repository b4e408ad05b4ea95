package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"menu-scanner/internal/infrastructure/config"
	"menu-scanner/internal/pkg/common"

	"github.com/go-redis/redis/v8"
)

// Service Redis 快取後端
type Service struct {
	client *redis.Client
	ttl    time.Duration
}

// NewService 連線 Redis 並建立快取服務
func NewService(ctx context.Context, cfg config.RedisConfig, ttl time.Duration) (*Service, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewServiceWithClient(client, ttl), nil
}

// NewServiceWithClient 以既有的 Redis 客戶端建立快取服務
func NewServiceWithClient(client *redis.Client, ttl time.Duration) *Service {
	return &Service{
		client: client,
		ttl:    ttl,
	}
}

// Get 獲取緩存
func (s *Service) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", common.ErrCacheMiss
		}
		return "", fmt.Errorf("failed to get cache: %w", err)
	}
	return val, nil
}

// Set 設置緩存
func (s *Service) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, key, value, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

// Ping 檢查 Redis 連線
func (s *Service) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close 關閉連線
func (s *Service) Close() error {
	return s.client.Close()
}
