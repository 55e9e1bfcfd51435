package restaurant

// Restaurant 定义了数据库中餐厅的数据结构。
// 可选字段使用指针，缺失时存为 NULL，JSON 中输出 null。
type Restaurant struct {
	// ID 在导入时分配，此后不再改变
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`

	// Name 是餐厅名称，必填
	Name string `gorm:"not null" json:"name"`

	// Year 是上榜年份
	Year *int64 `json:"year"`

	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`

	City   *string `json:"city"`
	Region *string `json:"region"`
	// ZipCode 沿用旧库的驼峰列名，已有的数据库文件可以直接打开
	ZipCode *string `gorm:"column:zipCode" json:"zipCode"`

	Cuisine *string `json:"cuisine"`
	Price   *string `json:"price"`
	URL     *string `gorm:"column:url" json:"url"`

	// --- 以下是用于排名的字段 ---

	// Score 是得票数，只会通过投票递增
	Score int64 `gorm:"default:0" json:"score"`
}

// TableName 固定表名为 restaurants
func (Restaurant) TableName() string {
	return "restaurants"
}
