// seed 在不启动HTTP服务的情况下导入数据集，或者只校验数据集的格式。
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/SlpAus/michelin-vote-backend/internal/platform/config"
	"github.com/SlpAus/michelin-vote-backend/internal/platform/database"
	"github.com/SlpAus/michelin-vote-backend/internal/platform/logging"
	"github.com/SlpAus/michelin-vote-backend/internal/platform/startup"
	"github.com/SlpAus/michelin-vote-backend/internal/restaurant"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径")
	csvPath := flag.String("csv", "", "数据集路径，默认使用配置中的 seed.path")
	dryRun := flag.Bool("dry-run", false, "只校验数据集，不写入数据库")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("加载配置失败", "error", err)
		os.Exit(1)
	}
	if *csvPath != "" {
		cfg.Seed.Path = *csvPath
	}
	logger := logging.New(os.Stdout, cfg.Logging)

	source := restaurant.CSVSource{Path: cfg.Seed.Path}
	if *dryRun {
		if err := validate(source); err != nil {
			logger.Error("数据集校验失败", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := seed(cfg, source, logger); err != nil {
		var seedErr *restaurant.SeedError
		if errors.As(err, &seedErr) {
			logger.Error("数据集有误，导入已回滚", "error", err)
		} else {
			logger.Error("导入失败", "error", err)
		}
		os.Exit(1)
	}
}

// validate 完整读取一遍数据集并打印统计
func validate(source restaurant.CSVSource) error {
	var rows, withYear, withLocation int
	err := source.Each(func(r restaurant.Restaurant) error {
		rows++
		if r.Year != nil {
			withYear++
		}
		if r.Latitude != nil && r.Longitude != nil {
			withLocation++
		}
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Printf("数据集 %s 校验通过: 共 %d 行，%d 行有年份，%d 行有坐标\n", source.Path, rows, withYear, withLocation)
	return nil
}

func seed(cfg *config.Config, source restaurant.CSVSource, logger *slog.Logger) error {
	db, err := database.OpenDB(cfg.Database, logger)
	if err != nil {
		return err
	}
	defer database.CloseDB(db)

	ctx := context.Background()
	store := restaurant.NewGormStore(db, cfg.Seed.BatchSize, logger)
	if err := startup.InitializeApplication(ctx, store, source, logger); err != nil {
		return err
	}

	ranked, err := store.AllRanked(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("数据库中共有 %d 家餐厅\n", len(ranked))
	for i, r := range ranked {
		if i == 5 {
			break
		}
		fmt.Printf("%d. %s (%d 票)\n", i+1, r.Name, r.Score)
	}
	return nil
}
