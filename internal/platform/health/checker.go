package health

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/SlpAus/michelin-vote-backend/internal/platform/database"
	"github.com/SlpAus/michelin-vote-backend/pkg/lifecycle"
	"github.com/redis/go-redis/v9"
)

const (
	defaultCheckInterval = 5 * time.Second
	pingTimeout          = 2 * time.Second
)

var runIDPattern = regexp.MustCompile(`run_id:([a-f0-9]+)`)

// Prober 返回Redis实例的 run_id，实例重启后 run_id 会改变。
type Prober interface {
	RunID(ctx context.Context) (string, error)
}

// RedisProber 通过 INFO server 读取 run_id
type RedisProber struct {
	Client *redis.Client
}

func (p RedisProber) RunID(ctx context.Context) (string, error) {
	info, err := p.Client.Info(ctx, "server").Result()
	if err != nil {
		return "", err
	}
	matches := runIDPattern.FindStringSubmatch(info)
	if len(matches) < 2 {
		return "", fmt.Errorf("无法在Redis INFO中找到run_id")
	}
	return matches[1], nil
}

// RebuildFunc 在Redis恢复或重启后重建缓存
type RebuildFunc func(ctx context.Context) error

// Checker 定期探测Redis，并维护共享的 RedisStatus。
type Checker struct {
	prober   Prober
	status   *database.RedisStatus
	rebuild  RebuildFunc
	interval time.Duration
	tracker  *tracker
	logger   *slog.Logger
}

// NewChecker 创建检查器。rebuild 可以为 nil。
func NewChecker(prober Prober, status *database.RedisStatus, rebuild RebuildFunc, logger *slog.Logger) *Checker {
	return &Checker{
		prober:   prober,
		status:   status,
		rebuild:  rebuild,
		interval: defaultCheckInterval,
		tracker:  newTracker(logger),
		logger:   logger,
	}
}

// State 返回状态机当前的状态
func (c *Checker) State() State {
	return c.tracker.state
}

func (c *Checker) runID(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return c.prober.RunID(ctx)
}

// PerformCheck 执行一次完整的健康检查和可能的重建操作。
func (c *Checker) PerformCheck(ctx context.Context) {
	// 请求路径已经把Redis标记为不可用，状态机需要跟上
	if !c.status.IsHealthy() {
		c.tracker.markDegraded()
	}

	currentRunID, err := c.runID(ctx)
	connected := err == nil
	if !connected {
		c.logger.Debug("健康检查: 无法连接到Redis", "error", err)
	}

	if c.tracker.assess(connected, currentRunID) {
		success := c.triggerRebuild(ctx)
		idAfterRebuild := ""
		if success {
			// 重建后再次检查run_id以确认期间没有再次重启
			if idAfterRebuild, err = c.runID(ctx); err != nil {
				c.logger.Warn("健康检查错误: 缓存重建后无法连接到Redis，重建无效")
				success = false
			}
		}
		c.tracker.markRebuildComplete(success, idAfterRebuild)
	}

	c.status.Update(c.tracker.state == StateHealthy)
}

func (c *Checker) triggerRebuild(ctx context.Context) bool {
	if c.rebuild == nil {
		return true
	}
	c.logger.Info("健康检查: 正在触发缓存重建...")
	if err := c.rebuild(ctx); err != nil {
		c.logger.Warn("健康检查错误: 缓存重建失败", "error", err)
		return false
	}
	return true
}

// Run 立即检查一次，然后按固定间隔阻塞式地循环检查，直到收到停机信号。
func (c *Checker) Run(handle *lifecycle.Handle) {
	defer handle.Close()
	c.logger.Info("Redis健康检查器已启动。", "interval", c.interval)

	for {
		c.PerformCheck(handle.Ctx())
		if err := handle.Sleep(c.interval); err != nil {
			c.logger.Info("Redis健康检查器已停止。")
			return
		}
	}
}
