package restaurant

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/SlpAus/michelin-vote-backend/internal/platform/database"
	"github.com/SlpAus/michelin-vote-backend/internal/testutil"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// unreachableClient 指向一个不存在的Redis实例
func unreachableClient(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRankingCache_NilIsDisabled(t *testing.T) {
	var cache *RankingCache
	ctx := context.Background()

	if NewRankingCache(nil, nil, time.Minute, testutil.DiscardLogger()) != nil {
		t.Fatal("a cache without a client should be nil")
	}
	if _, ok := cache.Version(ctx); ok {
		t.Error("nil cache must report no version")
	}
	if _, hit := cache.Get(ctx, 0); hit {
		t.Error("nil cache must never hit")
	}
	cache.Set(ctx, 0, []Restaurant{{Name: "A"}})
	cache.Invalidate(ctx)
	if err := cache.Rebuild(ctx); err != nil {
		t.Errorf("nil cache rebuild should be a no-op, got %v", err)
	}
}

func TestRankingCache_SkipsRedisWhileUnhealthy(t *testing.T) {
	status := database.NewRedisStatus(testutil.DiscardLogger())
	cache := NewRankingCache(unreachableClient(t), status, time.Minute, testutil.DiscardLogger())

	// 状态初始为不可用，不应访问Redis
	if _, ok := cache.Version(context.Background()); ok {
		t.Error("an unhealthy cache must not report a version")
	}
}

func TestRankingCache_FailureMarksRedisUnhealthy(t *testing.T) {
	status := database.NewRedisStatus(testutil.DiscardLogger())
	status.Update(true)
	cache := NewRankingCache(unreachableClient(t), status, time.Minute, testutil.DiscardLogger())

	if _, ok := cache.Version(context.Background()); ok {
		t.Fatal("an unreachable Redis must not report a version")
	}
	if status.IsHealthy() {
		t.Error("a failed Redis call should mark the status unhealthy")
	}
	if err := cache.Rebuild(context.Background()); err == nil {
		t.Error("Rebuild must report the Redis failure to the health checker")
	}
}

func TestRankingCache_CanceledRequestDoesNotMarkUnhealthy(t *testing.T) {
	status := database.NewRedisStatus(testutil.DiscardLogger())
	status.Update(true)
	cache := NewRankingCache(unreachableClient(t), status, time.Minute, testutil.DiscardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cache.Invalidate(ctx)

	if !status.IsHealthy() {
		t.Error("a canceled request says nothing about Redis health")
	}
}

func TestSnapshotKey(t *testing.T) {
	if got := snapshotKey(42); got != "restaurant:leaderboard:v42" {
		t.Errorf("unexpected key %q", got)
	}
}

func newMiniredisCache(t *testing.T) (*RankingCache, *miniredis.Miniredis, *database.RedisStatus) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	status := database.NewRedisStatus(testutil.DiscardLogger())
	status.Update(true)
	return NewRankingCache(client, status, time.Minute, testutil.DiscardLogger()), mr, status
}

func TestRankingCache_VersionedSnapshots(t *testing.T) {
	cache, mr, _ := newMiniredisCache(t)
	ctx := context.Background()

	version, ok := cache.Version(ctx)
	if !ok || version != 0 {
		t.Fatalf("expected version 0 before any vote, got %d (%v)", version, ok)
	}
	if _, hit := cache.Get(ctx, version); hit {
		t.Fatal("empty cache must miss")
	}

	cache.Set(ctx, version, []Restaurant{{ID: 1, Name: "A", Score: 3}})
	ranked, hit := cache.Get(ctx, version)
	if !hit || len(ranked) != 1 || ranked[0].Score != 3 {
		t.Fatalf("expected the stored snapshot back, got %+v (%v)", ranked, hit)
	}
	if ttl := mr.TTL(snapshotKey(version)); ttl != time.Minute {
		t.Errorf("snapshot should expire after the configured TTL, got %v", ttl)
	}

	cache.Invalidate(ctx)
	next, ok := cache.Version(ctx)
	if !ok || next != version+1 {
		t.Fatalf("invalidate should bump the version, got %d", next)
	}
	if _, hit := cache.Get(ctx, next); hit {
		t.Error("a snapshot from before the bump must not be served for the new version")
	}
}

func TestRankingCache_RebuildIgnoresStatus(t *testing.T) {
	cache, mr, status := newMiniredisCache(t)
	ctx := context.Background()
	status.Update(false)

	for want := 1; want <= 2; want++ {
		if err := cache.Rebuild(ctx); err != nil {
			t.Fatal(err)
		}
		got, err := mr.Get(LeaderboardVersionKey)
		if err != nil {
			t.Fatal(err)
		}
		if got != strconv.Itoa(want) {
			t.Errorf("expected version %d after rebuild, got %s", want, got)
		}
	}
}

func TestRankingCache_CorruptSnapshotIsAMiss(t *testing.T) {
	cache, mr, status := newMiniredisCache(t)
	mr.Set(snapshotKey(0), "not json")

	if _, hit := cache.Get(context.Background(), 0); hit {
		t.Error("an unreadable snapshot must be treated as a miss")
	}
	if !status.IsHealthy() {
		t.Error("a corrupt snapshot is not a Redis failure")
	}
}

func TestService_CachedLeaderboardSeesEveryVote(t *testing.T) {
	cache, mr, _ := newMiniredisCache(t)
	svc := NewService(seededStore(t, "A", "B", "C"), cache, testutil.DiscardLogger())
	ctx := context.Background()

	for round := int64(1); round <= 3; round++ {
		// 先读一次，写入当前版本的快照
		if _, err := svc.Leaderboard(ctx); err != nil {
			t.Fatal(err)
		}
		if !mr.Exists(snapshotKey(round - 1)) {
			t.Fatalf("round %d: expected a snapshot for version %d", round, round-1)
		}

		if err := svc.Vote(ctx, voteFor("3")); err != nil {
			t.Fatal(err)
		}
		ranked, err := svc.Leaderboard(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if ranked[0].ID != 3 || ranked[0].Score != round {
			t.Errorf("round %d: expected restaurant 3 with %d votes, got %+v", round, round, ranked[0])
		}
	}
}
