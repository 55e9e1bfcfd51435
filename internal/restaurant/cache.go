package restaurant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SlpAus/michelin-vote-backend/internal/platform/database"
	"github.com/redis/go-redis/v9"
)

const (
	// LeaderboardVersionKey 是一个计数器，每次投票成功后递增
	LeaderboardVersionKey = "restaurant:leaderboard:version"
	// leaderboardKeyPrefix 加上版本号就是该版本排行榜快照的键，
	// Value 为 []Restaurant 的JSON序列化字符串
	leaderboardKeyPrefix = "restaurant:leaderboard:v"
)

// RankingCache 是排行榜的Redis读穿缓存。
// 快照按版本号存放，投票后版本号递增，旧快照自然失效。
// nil 的 *RankingCache 表示缓存未启用，所有方法都可以安全调用。
type RankingCache struct {
	client *redis.Client
	status *database.RedisStatus
	ttl    time.Duration
	logger *slog.Logger
}

// NewRankingCache 创建缓存；client 为 nil 时返回 nil。
func NewRankingCache(client *redis.Client, status *database.RedisStatus, ttl time.Duration, logger *slog.Logger) *RankingCache {
	if client == nil {
		return nil
	}
	return &RankingCache{client: client, status: status, ttl: ttl, logger: logger}
}

// available 缓存已启用且Redis当前可用
func (c *RankingCache) available() bool {
	return c != nil && c.status.IsHealthy()
}

// Version 读取当前排行榜版本，Redis不可用时 ok 为 false。
func (c *RankingCache) Version(ctx context.Context) (version int64, ok bool) {
	if !c.available() {
		return 0, false
	}
	version, err := c.client.Get(ctx, LeaderboardVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, true // 从未投过票
	}
	if err != nil {
		c.fail(ctx, "读取排行榜版本", err)
		return 0, false
	}
	return version, true
}

// Get 读取指定版本的快照，未命中或出错时 hit 为 false。
func (c *RankingCache) Get(ctx context.Context, version int64) (ranked []Restaurant, hit bool) {
	if !c.available() {
		return nil, false
	}
	data, err := c.client.Get(ctx, snapshotKey(version)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false // 缓存未命中，是正常情况
	}
	if err != nil {
		c.fail(ctx, "读取排行榜快照", err)
		return nil, false
	}
	if err := json.Unmarshal(data, &ranked); err != nil {
		c.logger.Warn("排行榜快照无法解析，忽略缓存", "version", version, "error", err)
		return nil, false
	}
	return ranked, true
}

// Set 将快照存入指定版本。version 必须是查询数据库之前读到的版本。
func (c *RankingCache) Set(ctx context.Context, version int64, ranked []Restaurant) {
	if !c.available() {
		return
	}
	data, err := json.Marshal(ranked)
	if err != nil {
		c.logger.Warn("排行榜快照序列化失败", "error", err)
		return
	}
	if err := c.client.Set(ctx, snapshotKey(version), data, c.ttl).Err(); err != nil {
		c.fail(ctx, "写入排行榜快照", err)
	}
}

// Invalidate 递增版本号，使此前的所有快照不再被读取。
func (c *RankingCache) Invalidate(ctx context.Context) {
	if !c.available() {
		return
	}
	if err := c.client.Incr(ctx, LeaderboardVersionKey).Err(); err != nil {
		c.fail(ctx, "递增排行榜版本", err)
	}
}

// Rebuild 无视当前健康状态递增版本号，由健康检查在Redis恢复或重启后调用。
func (c *RankingCache) Rebuild(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.client.Incr(ctx, LeaderboardVersionKey).Err()
}

// fail 记录错误并将Redis标记为不可用，之后的请求直接走数据库，直到健康检查恢复
func (c *RankingCache) fail(ctx context.Context, op string, err error) {
	if ctx.Err() != nil {
		return // 请求已取消，不代表Redis故障
	}
	c.logger.Warn("Redis操作失败，排行榜降级为直接查询数据库", "op", op, "error", err)
	c.status.Update(false)
}

func snapshotKey(version int64) string {
	return fmt.Sprintf("%s%d", leaderboardKeyPrefix, version)
}
