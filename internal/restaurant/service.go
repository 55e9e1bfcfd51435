package restaurant

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

const (
	msgIDRequired   = "Restaurant ID is required."
	msgIDNotInteger = "Restaurant ID must be an integer."
)

// VoteRequest 是投票请求体。ID 保留原始JSON，由服务层统一校验。
type VoteRequest struct {
	ID json.RawMessage `json:"id"`
}

// Service 实现随机配对、投票和排行榜三个操作。
type Service struct {
	store  Store
	cache  *RankingCache
	logger *slog.Logger

	// leaderboardGroup 合并同一版本上并发的缓存未命中
	leaderboardGroup singleflight.Group
	// votes 是本进程内成功投票的次数，没有缓存时用作合并查询的版本
	votes atomic.Int64
}

// NewService 创建服务。cache 可以为 nil。
func NewService(store Store, cache *RankingCache, logger *slog.Logger) *Service {
	return &Service{store: store, cache: cache, logger: logger}
}

// GetPair 返回至多两家随机餐厅
func (s *Service) GetPair(ctx context.Context) ([]Restaurant, error) {
	return s.store.RandomPair(ctx)
}

// Vote 为请求中的餐厅加一分。
func (s *Service) Vote(ctx context.Context, req VoteRequest) error {
	id, err := parseRestaurantID(req.ID)
	if err != nil {
		return err
	}
	if err := s.store.IncrementScore(ctx, id); err != nil {
		return err
	}
	s.votes.Add(1)

	// 投票已经提交，即使客户端断开也要让旧的排行榜快照失效
	s.cache.Invalidate(context.WithoutCancel(ctx))
	s.logger.Debug("投票成功", "restaurantId", id)
	return nil
}

// Leaderboard 返回按得分降序、ID升序排列的全部餐厅。
func (s *Service) Leaderboard(ctx context.Context) ([]Restaurant, error) {
	version, cached := s.cache.Version(ctx)
	if cached {
		if ranked, hit := s.cache.Get(ctx, version); hit {
			return ranked, nil
		}
	}

	// 投票之后发起的查询不能合并到投票之前开始的查询上
	key := "db" + strconv.FormatInt(s.votes.Load(), 10)
	if cached {
		key = "v" + strconv.FormatInt(version, 10)
	}
	// 查询结果由同一批等待者共享，不能因为其中一个请求被取消而失败
	queryCtx := context.WithoutCancel(ctx)
	result, err, _ := s.leaderboardGroup.Do(key, func() (interface{}, error) {
		ranked, err := s.store.AllRanked(queryCtx)
		if err != nil {
			return nil, err
		}
		if cached {
			s.cache.Set(queryCtx, version, ranked)
		}
		return ranked, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]Restaurant), nil
}

// parseRestaurantID 校验投票请求中的ID。
// 缺失或"假值" (null、0、""、false、空对象、空数组) 视为未提供；
// 整数和内容为十进制整数的字符串被接受；其余一律视为格式错误。
func parseRestaurantID(raw json.RawMessage) (int64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, &ValidationError{Message: msgIDRequired}
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var value interface{}
	if err := decoder.Decode(&value); err != nil {
		return 0, &ValidationError{Message: msgIDNotInteger}
	}

	switch v := value.(type) {
	case nil:
		return 0, &ValidationError{Message: msgIDRequired}
	case bool:
		if !v {
			return 0, &ValidationError{Message: msgIDRequired}
		}
	case json.Number:
		if id, err := v.Int64(); err == nil {
			if id == 0 {
				return 0, &ValidationError{Message: msgIDRequired}
			}
			return id, nil
		}
		// 1.0 这类整数值的小数与整数等价
		f, err := v.Float64()
		if err == nil && f == 0 {
			return 0, &ValidationError{Message: msgIDRequired}
		}
		if err == nil && f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return int64(f), nil
		}
	case string:
		if v == "" {
			return 0, &ValidationError{Message: msgIDRequired}
		}
		if id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return id, nil
		}
	case map[string]interface{}:
		if len(v) == 0 {
			return 0, &ValidationError{Message: msgIDRequired}
		}
	case []interface{}:
		if len(v) == 0 {
			return 0, &ValidationError{Message: msgIDRequired}
		}
	}
	return 0, &ValidationError{Message: msgIDNotInteger}
}
