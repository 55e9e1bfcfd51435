package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 结构体定义了应用程序的所有配置项
// 它与 config.yaml 文件的结构完全对应
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Seed     SeedConfig     `mapstructure:"seed"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig 定义了服务器相关的配置
type ServerConfig struct {
	Mode    string     `mapstructure:"mode"`
	Address string     `mapstructure:"address"`
	Cors    CorsConfig `mapstructure:"cors"`
}

// CorsConfig 定义了CORS相关的配置
type CorsConfig struct {
	AllowedOrigins []string `mapstructure:"allowedOrigins"`
}

// DatabaseConfig 定义了数据库和缓存相关的配置
type DatabaseConfig struct {
	// Driver 为 sqlite 或 postgres
	Driver        string      `mapstructure:"driver"`
	Path          string      `mapstructure:"path"`
	DSN           string      `mapstructure:"dsn"`
	BusyTimeoutMs int         `mapstructure:"busyTimeoutMs"`
	MaxOpenConns  int         `mapstructure:"maxOpenConns"`
	LogLevel      string      `mapstructure:"logLevel"`
	Redis         RedisConfig `mapstructure:"redis"`
}

// RedisConfig 定义了Redis的配置。Address 为空时排行榜缓存关闭。
type RedisConfig struct {
	Address        string        `mapstructure:"address"`
	Password       string        `mapstructure:"password"`
	DB             int           `mapstructure:"db"`
	LeaderboardTTL time.Duration `mapstructure:"leaderboardTTL"`
}

// SeedConfig 定义了首次启动时导入的数据集
type SeedConfig struct {
	Path      string `mapstructure:"path"`
	BatchSize int    `mapstructure:"batchSize"`
}

// LoggingConfig 定义了日志级别与格式 (text 或 json)
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// setDefaults 为所有配置项注册默认值。
// 只有注册过的键才能被 AutomaticEnv 覆盖，所以这里必须列全。
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.address", ":5000")
	v.SetDefault("server.cors.allowedOrigins", []string{"*"})

	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", "restaurants.db")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.busyTimeoutMs", 5000)
	v.SetDefault("database.maxOpenConns", 0)
	v.SetDefault("database.logLevel", "silent")

	v.SetDefault("database.redis.address", "")
	v.SetDefault("database.redis.password", "")
	v.SetDefault("database.redis.db", 0)
	v.SetDefault("database.redis.leaderboardTTL", "30s")

	v.SetDefault("seed.path", "one-star-michelin-restaurants.csv")
	v.SetDefault("seed.batchSize", 200)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// LoadConfig 函数负责查找、加载和解析配置文件。
// path 为空时在 ./config 和当前目录中查找 config.yaml，找不到则使用默认值；
// path 非空时该文件必须存在。
func LoadConfig(path string) (*Config, error) {
	// .env 只是本地开发的便利，不存在时忽略
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("无法加载 .env 文件: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// 允许通过环境变量覆盖配置，例如 DATABASE_PATH=/data/restaurants.db
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("无法读取配置文件: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("无法解析配置: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return errors.New("database.path 不能为空")
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			return errors.New("使用 postgres 时 database.dsn 不能为空")
		}
	default:
		return fmt.Errorf("不支持的数据库驱动: %q", c.Database.Driver)
	}
	if c.Seed.BatchSize <= 0 {
		return fmt.Errorf("seed.batchSize 必须为正数，当前为 %d", c.Seed.BatchSize)
	}
	return nil
}
