package database

import (
	"github.com/SlpAus/michelin-vote-backend/internal/platform/config"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient 根据配置创建Redis客户端。
// 未配置地址时返回 nil，表示缓存关闭；连通性由健康检查器负责确认。
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	if cfg.Address == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}
