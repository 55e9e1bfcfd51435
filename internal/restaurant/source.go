package restaurant

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// RowSource 是导入时逐行产出餐厅记录的数据源，
// 仓库的插入逻辑因此不依赖具体的文件格式。
type RowSource interface {
	// Name 标识数据来源，写入日志和元数据
	Name() string
	// Each 依次产出每一行；fn 返回错误时立即停止并原样返回该错误
	Each(fn func(Restaurant) error) error
}

// Rows 是内存中的数据源
type Rows []Restaurant

func (r Rows) Name() string { return "memory" }

func (r Rows) Each(fn func(Restaurant) error) error {
	for _, row := range r {
		if err := fn(row); err != nil {
			return err
		}
	}
	return nil
}

// CSVSource 从带表头的CSV文件读取餐厅数据。
// 列按表头名称匹配，除 name 外的列都可以缺失，多余的列被忽略。
type CSVSource struct {
	Path string
}

func (s CSVSource) Name() string { return s.Path }

// nullMarkers 中的单元格视为缺失值，与 pandas 读取时的默认行为保持一致
var nullMarkers = map[string]bool{
	"": true, "NA": true, "N/A": true, "NaN": true, "nan": true,
	"null": true, "NULL": true, "None": true,
}

func (s CSVSource) Each(fn func(Restaurant) error) error {
	file, err := os.Open(s.Path)
	if err != nil {
		return &SeedError{Source: s.Path, Err: err}
	}
	defer file.Close()

	reader := csv.NewReader(file)
	// 行可以比表头短（末尾缺失的单元格视为空），长度检查在下面手动完成
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return &SeedError{Source: s.Path, Line: 1, Err: errors.New("文件为空，缺少表头")}
	}
	if err != nil {
		return &SeedError{Source: s.Path, Err: err}
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		columns[strings.TrimSpace(name)] = i
	}
	if _, ok := columns["name"]; !ok {
		return &SeedError{Source: s.Path, Line: 1, Err: errors.New("表头缺少 name 列")}
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return &SeedError{Source: s.Path, Err: err}
		}
		line, _ := reader.FieldPos(0)

		if len(record) > len(header) {
			return &SeedError{Source: s.Path, Line: line, Err: fmt.Errorf("该行有 %d 列，但表头只有 %d 列", len(record), len(header))}
		}

		row, err := parseRecord(columns, record)
		if err != nil {
			return &SeedError{Source: s.Path, Line: line, Err: err}
		}
		if err := fn(row); err != nil {
			return err
		}
	}
}

// parseRecord 将一行CSV转换为 Restaurant，score 与 id 保持零值
func parseRecord(columns map[string]int, record []string) (Restaurant, error) {
	cell := func(name string) *string {
		idx, ok := columns[name]
		if !ok || idx >= len(record) {
			return nil
		}
		value := strings.TrimSpace(record[idx])
		if nullMarkers[value] {
			return nil
		}
		return &value
	}

	var row Restaurant
	name := cell("name")
	if name == nil {
		return row, errors.New("name 不能为空")
	}
	row.Name = *name

	if raw := cell("year"); raw != nil {
		year, err := parseYear(*raw)
		if err != nil {
			return row, err
		}
		row.Year = &year
	}
	var err error
	if row.Latitude, err = parseCoordinate("latitude", cell("latitude")); err != nil {
		return row, err
	}
	if row.Longitude, err = parseCoordinate("longitude", cell("longitude")); err != nil {
		return row, err
	}

	row.City = cell("city")
	row.Region = cell("region")
	row.ZipCode = cell("zipCode")
	row.Cuisine = cell("cuisine")
	row.Price = cell("price")
	row.URL = cell("url")
	return row, nil
}

// parseYear 接受整数，也接受 "2019.0" 这类整数值的小数
func parseYear(raw string) (int64, error) {
	if year, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return year, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt32 {
		return 0, fmt.Errorf("year 不是合法的整数: %q", raw)
	}
	return int64(f), nil
}

func parseCoordinate(column string, raw *string) (*float64, error) {
	if raw == nil {
		return nil, nil
	}
	f, err := strconv.ParseFloat(*raw, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return nil, fmt.Errorf("%s 不是合法的数字: %q", column, *raw)
	}
	return &f, nil
}
