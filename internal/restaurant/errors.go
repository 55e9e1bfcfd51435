package restaurant

import "fmt"

// SeedError 表示首次导入时数据集缺失或格式错误，启动因此失败。
type SeedError struct {
	Source string
	// Line 是出错的行号 (从1开始)，0 表示与具体行无关
	Line int
	Err  error
}

func (e *SeedError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("导入数据集 %s 失败 (第 %d 行): %v", e.Source, e.Line, e.Err)
	}
	return fmt.Sprintf("导入数据集 %s 失败: %v", e.Source, e.Err)
}

func (e *SeedError) Unwrap() error { return e.Err }

// ValidationError 表示请求参数不合法，Message 会原样返回给客户端。
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NotFoundError 表示引用的餐厅ID不存在。
type NotFoundError struct {
	ID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Restaurant %d not found.", e.ID)
}

// StoreError 包装底层存储的失败。
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
