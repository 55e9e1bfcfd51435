package restaurant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SlpAus/michelin-vote-backend/internal/platform/database"
	"github.com/SlpAus/michelin-vote-backend/internal/platform/metadata"
	"gorm.io/gorm"
)

// Store 是餐厅数据的持久化接口，所有方法都可以被并发调用。
type Store interface {
	// Initialize 建表，并且仅在数据库从未导入过时从 src 导入数据
	Initialize(ctx context.Context, src RowSource) error
	// RandomPair 随机返回至多两家不同的餐厅
	RandomPair(ctx context.Context) ([]Restaurant, error)
	// IncrementScore 将指定餐厅的得分原子地加一
	IncrementScore(ctx context.Context, id int64) error
	// AllRanked 按得分降序、ID升序返回全部餐厅
	AllRanked(ctx context.Context) ([]Restaurant, error)
}

const (
	// 瞬时锁冲突时的重试参数
	maxRetry   = 3
	retryDelay = 50 * time.Millisecond

	// legacySource 标记在元数据出现之前就已导入的数据库
	legacySource = "legacy"

	// seedLockKey 是PostgreSQL上导入事务持有的 advisory lock
	seedLockKey int64 = 0x6d696368656c696e
)

// GormStore 是基于GORM的 Store 实现，SQLite 与 PostgreSQL 共用同一套语句。
type GormStore struct {
	db        *gorm.DB
	batchSize int
	logger    *slog.Logger
}

// NewGormStore 创建仓库。batchSize 是导入时每批插入的行数。
func NewGormStore(db *gorm.DB, batchSize int, logger *slog.Logger) *GormStore {
	if batchSize <= 0 {
		batchSize = 200
	}
	return &GormStore{db: db, batchSize: batchSize, logger: logger}
}

func (s *GormStore) Initialize(ctx context.Context, src RowSource) error {
	db := s.db.WithContext(ctx)

	if err := metadata.PrimeDB(db); err != nil {
		return &StoreError{Op: "初始化元数据表", Err: err}
	}
	if err := db.AutoMigrate(&Restaurant{}); err != nil {
		return &StoreError{Op: "迁移restaurants表", Err: err}
	}

	record, err := metadata.GetSeedRecord(db)
	if err != nil {
		return &StoreError{Op: "读取导入记录", Err: err}
	}
	if record != nil {
		s.logger.Info("数据库已导入过，跳过导入",
			"source", record.Source, "rows", record.RowCount, "completedAt", record.CompletedAt)
		return nil
	}

	var inserted int64
	err = withRetry(func() error {
		inserted = 0
		return db.Transaction(func(tx *gorm.DB) error {
			// 持有写锁后再确认一次，保证多个进程同时启动时只有一个会导入。
			// SQLite 的事务以 IMMEDIATE 方式开始，PostgreSQL 需要显式加锁。
			if stmt := seedLockStatement(tx.Dialector.Name()); stmt != "" {
				if err := tx.Exec(stmt, seedLockKey).Error; err != nil {
					return fmt.Errorf("获取导入锁失败: %w", err)
				}
			}
			record, err := metadata.GetSeedRecord(tx)
			if err != nil {
				return fmt.Errorf("读取导入记录失败: %w", err)
			}
			if record != nil {
				return nil
			}

			var existing int64
			if err := tx.Model(&Restaurant{}).Count(&existing).Error; err != nil {
				return fmt.Errorf("统计现有数据失败: %w", err)
			}
			if existing > 0 {
				// 旧版本创建的数据库：已有数据但没有导入记录，只补记录，不重复导入
				s.logger.Warn("发现没有导入记录的已有数据，将其视为已导入", "rows", existing)
				return metadata.SetSeedRecord(tx, metadata.SeedRecord{
					CompletedAt: time.Now(), Source: legacySource, RowCount: existing,
				})
			}

			inserted, err = s.seed(tx, src)
			if err != nil {
				return err
			}
			return metadata.SetSeedRecord(tx, metadata.SeedRecord{
				CompletedAt: time.Now(), Source: src.Name(), RowCount: inserted,
			})
		})
	})

	if err != nil {
		var seedErr *SeedError
		if errors.As(err, &seedErr) {
			return seedErr
		}
		return &StoreError{Op: "导入数据集", Err: err}
	}

	if inserted > 0 {
		s.logger.Info("数据集导入完成", "source", src.Name(), "rows", inserted)
	}
	return nil
}

// seedLockStatement 返回导入事务开头需要执行的加锁语句，空字符串表示无需加锁
func seedLockStatement(dialect string) string {
	if dialect == "postgres" {
		// 事务结束时自动释放
		return "SELECT pg_advisory_xact_lock(?)"
	}
	return ""
}

// seed 在事务中分批插入 src 的所有行，返回插入的行数
func (s *GormStore) seed(tx *gorm.DB, src RowSource) (int64, error) {
	var total int64
	batch := make([]Restaurant, 0, s.batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := tx.Create(&batch).Error; err != nil {
			return fmt.Errorf("批量插入餐厅失败: %w", err)
		}
		total += int64(len(batch))
		batch = batch[:0]
		return nil
	}

	index := 0
	err := src.Each(func(row Restaurant) error {
		index++
		if row.Name == "" {
			return &SeedError{Source: src.Name(), Line: index, Err: errors.New("name 不能为空")}
		}
		// ID 由数据库分配，得分从零开始
		row.ID = 0
		row.Score = 0
		batch = append(batch, row)
		if len(batch) >= s.batchSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if err := flush(); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *GormStore) RandomPair(ctx context.Context) ([]Restaurant, error) {
	pair := make([]Restaurant, 0, 2)
	err := s.db.WithContext(ctx).Order("RANDOM()").Limit(2).Find(&pair).Error
	if err != nil {
		return nil, &StoreError{Op: "随机抽取餐厅", Err: err}
	}
	return pair, nil
}

func (s *GormStore) IncrementScore(ctx context.Context, id int64) error {
	var rowsAffected int64
	err := withRetry(func() error {
		// 单条 UPDATE 在数据库内完成读-改-写，并发投票不会丢失
		result := s.db.WithContext(ctx).Model(&Restaurant{}).
			Where("id = ?", id).
			UpdateColumn("score", gorm.Expr("score + ?", 1))
		rowsAffected = result.RowsAffected
		return result.Error
	})
	if err != nil {
		return &StoreError{Op: "更新得分", Err: err}
	}
	if rowsAffected == 0 {
		return &NotFoundError{ID: id}
	}
	return nil
}

func (s *GormStore) AllRanked(ctx context.Context) ([]Restaurant, error) {
	ranked := make([]Restaurant, 0)
	err := s.db.WithContext(ctx).Order("score DESC").Order("id ASC").Find(&ranked).Error
	if err != nil {
		return nil, &StoreError{Op: "查询排行榜", Err: err}
	}
	return ranked, nil
}

// withRetry 在遇到SQLite瞬时锁冲突时做短间隔重试，其他错误直接返回
func withRetry(op func() error) error {
	var err error
	for i := 0; i < maxRetry; i++ {
		err = op()
		if err == nil || !database.IsRetryableError(err) {
			return err
		}
		time.Sleep(retryDelay)
	}
	return err
}
