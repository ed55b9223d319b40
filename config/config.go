package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	OSS      OSSConfig      `mapstructure:"oss"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Events   EventsConfig   `mapstructure:"events"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Quota    QuotaConfig    `mapstructure:"quota"`
	Draft    DraftConfig    `mapstructure:"draft"`
	Gallery  GalleryConfig  `mapstructure:"gallery"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"` // mysql, sqlite
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	SQLitePath   string `mapstructure:"sqlite_path"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

type OSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
	BucketName      string `mapstructure:"bucket_name"`
	CDNDomain       string `mapstructure:"cdn_domain"`
}

type QueueConfig struct {
	ActivityQueue string `mapstructure:"activity_queue"`
	MaxWorkers    int    `mapstructure:"max_workers"`
	RetentionDays int    `mapstructure:"retention_days"` // 活动记录保留天数，0 表示不清理
}

type EventsConfig struct {
	Channel string `mapstructure:"channel"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

// QuotaConfig 每日创建配额
type QuotaConfig struct {
	DailyLimit int    `mapstructure:"daily_limit"` // 免费用户每日可创建图表数
	Timezone   string `mapstructure:"timezone"`    // 计算"今天"使用的参考时区
	Strict     bool   `mapstructure:"strict"`      // 原子预占配额，杜绝并发超额
}

// Location 返回配额参考时区，无法解析时回退到 UTC
func (q QuotaConfig) Location() (*time.Location, error) {
	if q.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(q.Timezone)
	if err != nil {
		return time.UTC, err
	}
	return loc, nil
}

// DraftConfig 编辑会话草稿
type DraftConfig struct {
	TTLMinutes int `mapstructure:"ttl_minutes"`
}

func (d DraftConfig) TTL() time.Duration {
	if d.TTLMinutes <= 0 {
		return 2 * time.Hour
	}
	return time.Duration(d.TTLMinutes) * time.Minute
}

type GalleryConfig struct {
	ListLimit int `mapstructure:"list_limit"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3001)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("jwt.expire_hours", 168)
	v.SetDefault("queue.activity_queue", "chart_activity")
	v.SetDefault("queue.max_workers", 2)
	v.SetDefault("queue.retention_days", 90)
	v.SetDefault("events.channel", "chart_events")
	v.SetDefault("quota.daily_limit", 1)
	v.SetDefault("quota.timezone", "UTC")
	v.SetDefault("draft.ttl_minutes", 120)
	v.SetDefault("gallery.list_limit", 50)
	v.SetDefault("log.level", "info")
}

func Load(configPath string) (*Config, error) {
	// .env 只用于本地开发，不存在时忽略
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	// 优先尝试读取 config.local.yaml（包含真实密钥，不提交到git）
	dir := filepath.Dir(configPath)
	localConfigPath := filepath.Join(dir, "config.local.yaml")

	if _, err := os.Stat(localConfigPath); err == nil {
		configPath = localConfigPath
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// 环境变量覆盖
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
