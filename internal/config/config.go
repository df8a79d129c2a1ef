// 애플리케이션 설정 로딩
//
// .env 파일이 있으면 먼저 읽고, 그 다음 환경변수를 사용한다.
// 값이 없으면 아래 getenv 기본값을 따른다.

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	Auth     AuthConfig
	Redis    RedisConfig
	Storage  StorageConfig
	Client   ClientConfig
}

type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	LogLevel        string
	LogFormat       string
}

type PostgresConfig struct {
	// Driver is postgres or memory.
	Driver      string
	DatabaseURL string
	Host        string
	Port        string
	User        string
	Password    string
	Database    string
	SSLMode     string
}

type AuthConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     string
	RefreshTTL    string
	CookieSecure  string
	CookieDomain  string
	// RefreshStore selects where the refresh hash slot lives: postgres or redis.
	RefreshStore string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

type StorageConfig struct {
	Driver       string
	Dir          string
	PublicPrefix string
	S3Bucket     string
	S3Region     string
	S3Endpoint   string
	S3AccessKey  string
	S3SecretKey  string
}

type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
}

func Load() Config {
	// .env is optional
	_ = godotenv.Load()

	return Config{
		Server: ServerConfig{
			Addr:            getenv("SERVER_ADDR", ":8080"),
			ReadTimeout:     getDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			CORSOrigins:     splitList(getenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
			LogLevel:        getenv("LOG_LEVEL", "info"),
			LogFormat:       getenv("LOG_FORMAT", "json"),
		},
		Postgres: PostgresConfig{
			Driver:      getenv("DB_DRIVER", "postgres"),
			DatabaseURL: os.Getenv("DATABASE_URL"),
			Host:        getenv("PGHOST", "localhost"),
			Port:        getenv("PGPORT", "5432"),
			User:        os.Getenv("PGUSER"),
			Password:    os.Getenv("PGPASSWORD"),
			Database:    os.Getenv("PGDATABASE"),
			SSLMode:     getenv("PGSSLMODE", "disable"),
		},
		Auth: AuthConfig{
			AccessSecret:  os.Getenv("JWT_ACCESS_SECRET"),
			RefreshSecret: os.Getenv("JWT_REFRESH_SECRET"),
			AccessTTL:     getenv("JWT_ACCESS_TTL", "15m"),
			RefreshTTL:    getenv("JWT_REFRESH_TTL", "168h"),
			CookieSecure:  getenv("AUTH_COOKIE_SECURE", "false"),
			CookieDomain:  os.Getenv("AUTH_COOKIE_DOMAIN"),
			RefreshStore:  getenv("AUTH_REFRESH_STORE", "postgres"),
		},
		Redis: RedisConfig{
			Addr:     getenv("REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getInt("REDIS_DB", 0),
			Prefix:   getenv("REDIS_PREFIX", "postfeed"),
		},
		Storage: StorageConfig{
			Driver:       getenv("STORAGE_DRIVER", "disk"),
			Dir:          getenv("STORAGE_DIR", "./uploads"),
			PublicPrefix: getenv("STORAGE_PUBLIC_PREFIX", "/uploads"),
			S3Bucket:     os.Getenv("S3_BUCKET"),
			S3Region:     getenv("S3_REGION", "us-east-1"),
			S3Endpoint:   os.Getenv("S3_ENDPOINT"),
			S3AccessKey:  os.Getenv("S3_ACCESS_KEY"),
			S3SecretKey:  os.Getenv("S3_SECRET_KEY"),
		},
		Client: ClientConfig{
			BaseURL: getenv("API_BASE_URL", "http://localhost:8080"),
			Timeout: getDuration("API_TIMEOUT", 10*time.Second),
		},
	}
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
