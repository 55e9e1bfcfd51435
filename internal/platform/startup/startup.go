package startup

import (
	"context"
	"log/slog"

	"github.com/SlpAus/michelin-vote-backend/internal/restaurant"
)

// InitializeApplication 是应用启动时执行的总入口：建表并在首次运行时导入数据集。
// 返回的 *restaurant.SeedError 表示数据集有问题，调用方应当以非零状态退出。
func InitializeApplication(ctx context.Context, store restaurant.Store, source restaurant.RowSource, logger *slog.Logger) error {
	logger.Info("开始应用初始化...", "source", source.Name())

	if err := store.Initialize(ctx, source); err != nil {
		return err
	}

	logger.Info("应用初始化完成！")
	return nil
}
