package health

import "log/slog"

// State 定义了Redis缓存层的健康状态
type State int

const (
	StateHealthy State = iota
	StateDegraded
	StateRebuilding
)

func (s State) String() string {
	switch s {
	case StateHealthy:
		return "healthy"
	case StateRebuilding:
		return "rebuilding"
	default:
		return "degraded"
	}
}

// tracker 是健康检查的状态机，只由检查器的Goroutine访问。
// 进入 StateHealthy 之前必须成功重建一次缓存：
// 降级期间的投票没有递增排行榜版本，Redis重启后也可能载入旧快照。
type tracker struct {
	state          State
	lastKnownRunID string
	logger         *slog.Logger
}

func newTracker(logger *slog.Logger) *tracker {
	// 第一次检查通过前视为降级
	return &tracker{state: StateDegraded, logger: logger}
}

// markDegraded 在请求路径报告Redis故障时调用
func (t *tracker) markDegraded() {
	if t.state == StateHealthy {
		t.state = StateDegraded
		t.logger.Warn("健康检查: 请求路径报告Redis故障，系统状态 -> [降级]")
	}
}

// assess 根据一次检查结果推进状态，返回是否需要重建缓存
func (t *tracker) assess(connected bool, runID string) (needsRebuild bool) {
	switch t.state {
	case StateHealthy:
		if !connected {
			t.state = StateDegraded
			t.logger.Warn("健康检查: Redis连接丢失，系统状态 -> [降级]")
		} else if t.lastKnownRunID != runID {
			t.state = StateRebuilding
			needsRebuild = true
			t.logger.Warn("健康检查: 检测到Redis重启，系统状态 -> [重建中]", "from", t.lastKnownRunID, "to", runID)
		}
	case StateDegraded:
		if connected {
			t.state = StateRebuilding
			needsRebuild = true
			t.logger.Info("健康检查: Redis连接已恢复，系统状态 -> [重建中]", "runId", runID)
		}
	case StateRebuilding:
		if !connected {
			t.state = StateDegraded
			t.logger.Warn("健康检查: 在缓存重建期间Redis连接再次丢失，系统状态 -> [降级]")
		} else {
			// 上次重建失败，再试一次
			needsRebuild = true
		}
	}

	if connected {
		t.lastKnownRunID = runID
	}
	return needsRebuild
}

// markRebuildComplete 在重建尝试之后调用
func (t *tracker) markRebuildComplete(success bool, runIDAfterRebuild string) {
	if t.state != StateRebuilding {
		return
	}

	if success && t.lastKnownRunID != runIDAfterRebuild {
		t.logger.Warn("健康检查错误: 缓存重建期间检测到Redis再次重启，重建无效，保持[重建中]状态",
			"from", t.lastKnownRunID, "to", runIDAfterRebuild)
		t.lastKnownRunID = runIDAfterRebuild
		return
	}

	if success {
		t.state = StateHealthy
		t.logger.Info("健康检查: 缓存重建成功，系统状态 -> [健康]")
	} else {
		t.logger.Warn("健康检查错误: 缓存重建失败，系统状态保持 [重建中] 以待重试")
	}
}
