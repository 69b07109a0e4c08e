package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	JWT          JWTConfig
	Storage      StorageConfig
	Tracing      TracingConfig `mapstructure:"tracing"`
	Redis        RedisConfig
	Rollbar      RollbarConfig      `mapstructure:"rollbar"`
	Revalidation RevalidationConfig `mapstructure:"revalidation"`
	CORS         CORSConfig         `mapstructure:"cors"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit"`

	// 运行时标志（非配置文件，通过命令行参数设置）
	ForceMigrate bool `mapstructure:"-"`
	MigrateOnly  bool `mapstructure:"-"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// RateLimitConfig MaxRequests 为按IP的全局限流；Admin/Upload 为按用户的限流
type RateLimitConfig struct {
	MaxRequests       int `mapstructure:"max_requests"`
	WindowMinutes     int `mapstructure:"window_minutes"`
	AdminMaxRequests  int `mapstructure:"admin_max_requests"`
	UploadMaxRequests int `mapstructure:"upload_max_requests"`
}

func (r RateLimitConfig) Window() time.Duration {
	if r.WindowMinutes <= 0 {
		return time.Minute
	}
	return time.Duration(r.WindowMinutes) * time.Minute
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"` // mysql | postgres | sqlite
	DSN          string `mapstructure:"dsn"`    // 设置后优先于下面的字段
	Host         string
	Port         int
	User         string
	Password     string
	DBName       string
	Charset      string
	ParseTime    bool
	SSLMode      string `mapstructure:"sslmode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	LogSQL       bool   `mapstructure:"log_sql"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

type StorageConfig struct {
	Type                 string `mapstructure:"type"`
	MinioEndpoint        string `mapstructure:"minio_endpoint"`
	MinioAccessID        string `mapstructure:"minio_access_key"`
	MinioSecret          string `mapstructure:"minio_secret_key"`
	MinioBucket          string `mapstructure:"minio_bucket"`
	MinioUseSSL          bool   `mapstructure:"minio_use_ssl"`
	MinioRegion          string `mapstructure:"minio_region"`
	OSSEndpoint          string `mapstructure:"oss_endpoint"`
	OSSAccessKey         string `mapstructure:"oss_access_key"`
	OSSSecretKey         string `mapstructure:"oss_secret_key"`
	OSSBucket            string `mapstructure:"oss_bucket"`
	PresignExpirySeconds int    `mapstructure:"presign_expiry_seconds"`
}

func (s StorageConfig) PresignExpiry() time.Duration {
	if s.PresignExpirySeconds <= 0 {
		return 360 * time.Second
	}
	return time.Duration(s.PresignExpirySeconds) * time.Second
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type RollbarConfig struct {
	Token       string `mapstructure:"token"`
	Environment string `mapstructure:"environment"`
	CodeVersion string `mapstructure:"code_version"`
	ServerHost  string `mapstructure:"server_host"`
}

// RevalidationConfig 编辑视图缓存与失效通知
type RevalidationConfig struct {
	Channel         string `mapstructure:"channel"`
	CacheTTLMinutes int    `mapstructure:"cache_ttl_minutes"`
}

func (r RevalidationConfig) CacheTTL() time.Duration {
	if r.CacheTTLMinutes <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(r.CacheTTLMinutes) * time.Minute
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.parsetime", true)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("storage.type", "minio")
	v.SetDefault("storage.presign_expiry_seconds", 360)
	v.SetDefault("storage.minio_region", "us-east-1")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("rollbar.environment", "development")
	v.SetDefault("revalidation.channel", "course_studio:revalidate")
	v.SetDefault("revalidation.cache_ttl_minutes", 10)
	v.SetDefault("rate_limit.max_requests", 6000)
	v.SetDefault("rate_limit.window_minutes", 1)
	v.SetDefault("rate_limit.admin_max_requests", 10)
	v.SetDefault("rate_limit.upload_max_requests", 5)
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("COURSE_STUDIO")
	v.AutomaticEnv()
	setDefaults(v)

	// Database
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.dsn", "DATABASE_URL")
	v.BindEnv("database.host", "DATABASE_HOST")
	v.BindEnv("database.port", "DATABASE_PORT")
	v.BindEnv("database.user", "DATABASE_USER")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("database.dbname", "DATABASE_NAME")

	// JWT
	v.BindEnv("jwt.secret", "JWT_SECRET")

	// Redis
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	v.BindEnv("server.mode", "SERVER_MODE")

	// Storage
	v.BindEnv("storage.type", "STORAGE_TYPE")
	v.BindEnv("storage.minio_endpoint", "MINIO_ENDPOINT")
	v.BindEnv("storage.minio_access_key", "MINIO_ACCESS_KEY")
	v.BindEnv("storage.minio_secret_key", "MINIO_SECRET_KEY")
	v.BindEnv("storage.minio_bucket", "MINIO_BUCKET")
	v.BindEnv("storage.minio_region", "MINIO_REGION")
	v.BindEnv("storage.oss_endpoint", "OSS_ENDPOINT")
	v.BindEnv("storage.oss_access_key", "OSS_ACCESS_KEY")
	v.BindEnv("storage.oss_secret_key", "OSS_SECRET_KEY")
	v.BindEnv("storage.oss_bucket", "OSS_BUCKET")

	// Rollbar
	v.BindEnv("rollbar.token", "ROLLBAR_TOKEN")
	v.BindEnv("rollbar.environment", "ROLLBAR_ENVIRONMENT")

	// Tracing
	v.BindEnv("tracing.enabled", "TRACING_ENABLED")
	v.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// 生产环境校验 JWT Secret 强度
	if cfg.Server.Mode == "release" && len(cfg.JWT.Secret) < 32 {
		return nil, fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(cfg.JWT.Secret))
	}

	return &cfg, nil
}
