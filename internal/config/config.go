package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig Redis配置（会话存储）
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MQTTConfig MQTT配置（公告/紧急报告推送）
type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`    // 如 "tcp://localhost:1883"
	ClientID string `yaml:"client_id"` // 客户端 ID
	Username string `yaml:"username"`  // 可选
	Password string `yaml:"password"`  // 可选
	Topic    string `yaml:"topic"`     // 推送主题
	QoS      byte   `yaml:"qos"`
}

// BroadcastConfig WhatsApp 网关（HTTP webhook）配置
type BroadcastConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Token   string `yaml:"token"`
	Target  string `yaml:"target"` // 群组 ID 或号码
}

// StorageConfig 文件存储（S3）配置
type StorageConfig struct {
	Bucket        string `yaml:"bucket"`
	Region        string `yaml:"region"`
	PublicBaseURL string `yaml:"public_base_url"` // 为空时使用 https://<bucket>.s3.<region>.amazonaws.com
}

// Config manajemen-warga（HTTP API）配置
type Config struct {
	HTTP struct {
		Addr string
	}
	DBEnabled bool
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       struct {
		Level  string
		Format string
	}
	Session struct {
		TTL time.Duration
	}
	// PolicyFile 权限矩阵 YAML 文件路径；为空使用内置默认矩阵
	PolicyFile string
	MQTT       MQTTConfig      `yaml:"mqtt"`
	Broadcast  BroadcastConfig `yaml:"broadcast"`
	Storage    StorageConfig   `yaml:"storage"`
	// SeedAdmin 开发环境：启动时确保存在一个 RW 级管理员
	SeedAdmin struct {
		Enabled  bool
		Email    string
		Password string
	}
}

func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	// Default to true for local dev: if DB is unavailable, the service falls back to the
	// in-memory repositories.
	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "warga")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "10"), 10)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", "5"), 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = parseInt(getEnv("REDIS_DB", "0"), 0)
	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	cfg.Session.TTL = parseDuration(getEnv("SESSION_TTL", "12h"), 12*time.Hour)
	cfg.PolicyFile = getEnv("POLICY_FILE", "")

	// MQTT 推送（默认禁用）
	cfg.MQTT.Enabled = getEnv("MQTT_ENABLED", "false") == "true"
	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "manajemen-warga")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.Topic = getEnv("MQTT_TOPIC", "warga/broadcast")
	cfg.MQTT.QoS = byte(parseInt(getEnv("MQTT_QOS", "1"), 1))

	// WhatsApp 网关（默认禁用）
	cfg.Broadcast.Enabled = getEnv("BROADCAST_ENABLED", "false") == "true"
	cfg.Broadcast.URL = getEnv("BROADCAST_URL", "")
	cfg.Broadcast.Token = getEnv("BROADCAST_TOKEN", "")
	cfg.Broadcast.Target = getEnv("BROADCAST_TARGET", "")

	cfg.Storage.Bucket = getEnv("STORAGE_BUCKET", "")
	cfg.Storage.Region = getEnv("AWS_REGION", getEnv("AWS_DEFAULT_REGION", "ap-southeast-3"))
	cfg.Storage.PublicBaseURL = strings.TrimSuffix(getEnv("STORAGE_PUBLIC_BASE_URL", ""), "/")

	cfg.SeedAdmin.Enabled = getEnv("SEED_ADMIN", "false") == "true"
	cfg.SeedAdmin.Email = getEnv("SEED_ADMIN_EMAIL", "admin@warga.local")
	cfg.SeedAdmin.Password = getEnv("SEED_ADMIN_PASSWORD", "ChangeMe123!")

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
