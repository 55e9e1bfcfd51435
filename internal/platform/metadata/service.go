package metadata

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// --- Generic Accessors ---

// GetValue retrieves a value for a given key from the metadata table.
func GetValue(db *gorm.DB, key string) (string, error) {
	var meta Metadata
	err := db.Where("key = ?", key).First(&meta).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// If the key doesn't exist, return an empty string, which is a valid default.
			return "", nil
		}
		return "", err
	}
	return meta.Value, nil
}

// SetValue creates or updates a value for a given key. Pass a transaction
// handle to make the write part of a larger unit of work.
func SetValue(db *gorm.DB, key, value string) error {
	meta := Metadata{
		Key:   key,
		Value: value,
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&meta).Error
}

// --- Seeding Helpers ---

// SeedRecord 描述一次已完成的数据导入
type SeedRecord struct {
	CompletedAt time.Time
	Source      string
	RowCount    int64
}

// GetSeedRecord 读取导入记录，尚未导入时返回 (nil, nil)。
func GetSeedRecord(db *gorm.DB) (*SeedRecord, error) {
	completedAt, err := GetValue(db, SeedCompletedAtKey)
	if err != nil {
		return nil, err
	}
	if completedAt == "" {
		return nil, nil
	}

	record := &SeedRecord{}
	if record.CompletedAt, err = time.Parse(time.RFC3339, completedAt); err != nil {
		return nil, fmt.Errorf("无法解析元数据 '%s' 的值: %w", SeedCompletedAtKey, err)
	}
	if record.Source, err = GetValue(db, SeedSourceKey); err != nil {
		return nil, err
	}
	countStr, err := GetValue(db, SeedRowCountKey)
	if err != nil {
		return nil, err
	}
	if countStr != "" {
		if record.RowCount, err = strconv.ParseInt(countStr, 10, 64); err != nil {
			return nil, fmt.Errorf("无法解析元数据 '%s' 的值: %w", SeedRowCountKey, err)
		}
	}
	return record, nil
}

// SetSeedRecord 写入导入记录，应与插入数据处于同一事务中。
func SetSeedRecord(db *gorm.DB, record SeedRecord) error {
	if err := SetValue(db, SeedSourceKey, record.Source); err != nil {
		return err
	}
	if err := SetValue(db, SeedRowCountKey, strconv.FormatInt(record.RowCount, 10)); err != nil {
		return err
	}
	// 完成时间最后写入，它是"已导入"的判定依据
	return SetValue(db, SeedCompletedAtKey, record.CompletedAt.UTC().Format(time.RFC3339))
}
