package database

import (
	"log/slog"
	"sync"
)

// RedisStatus 负责线程安全地管理和提供Redis的健康状态。
// nil 的 *RedisStatus 表示缓存未启用。
type RedisStatus struct {
	mu        sync.RWMutex
	isHealthy bool
	logger    *slog.Logger
}

// NewRedisStatus 创建状态管理器，初始为不可用，直到第一次健康检查通过。
func NewRedisStatus(logger *slog.Logger) *RedisStatus {
	return &RedisStatus{logger: logger}
}

// IsHealthy 返回当前Redis的健康状态。
func (s *RedisStatus) IsHealthy() bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isHealthy
}

// Update 用于线程安全地更新健康状态，返回本次是否从不可用恢复为可用。
func (s *RedisStatus) Update(isHealthy bool) (recovered bool) {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	// 只有当状态发生变化时才打印日志
	if s.isHealthy == isHealthy {
		return false
	}
	s.isHealthy = isHealthy
	if isHealthy {
		s.logger.Info("健康检查: Redis服务状态已更新为 [可用]")
		return true
	}
	s.logger.Warn("健康检查警告: Redis服务状态已更新为 [不可用]")
	return false
}

// State 返回用于健康接口展示的状态字符串。
func (s *RedisStatus) State() string {
	switch {
	case s == nil:
		return "disabled"
	case s.IsHealthy():
		return "ok"
	default:
		return "degraded"
	}
}
