package database

import (
	"errors"

	"github.com/mattn/go-sqlite3"
)

// IsRetryableError 判断一个错误是否是SQLite的瞬时锁冲突 (BUSY / LOCKED)，
// 这类错误在短暂等待后重试通常就能成功。
func IsRetryableError(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return false
}
