package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config 애플리케이션 전체 설정
type Config struct {
	Server    ServerConfig
	WebSocket WebSocketConfig
	CORS      CORSConfig
	Canvas    CanvasConfig
	Store     StoreConfig
	Redis     RedisConfig
	Database  DatabaseConfig
	MDNS      MDNSConfig
}

// ServerConfig HTTP 서버 설정
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	PublicDir       string // 정적 웹 클라이언트 디렉터리 (비어 있으면 제공 안 함)
}

// WebSocketConfig WebSocket 관련 설정
type WebSocketConfig struct {
	ReadBufferSize  int
	WriteBufferSize int
	SendBufferSize  int // 연결별 송신 큐 길이
	WriteTimeout    time.Duration
	ReadLimit       int64
}

// CORSConfig CORS 설정
type CORSConfig struct {
	AllowOrigins string
	AllowHeaders string
}

// CanvasConfig 드로잉 저장소 제한 및 정리 주기
type CanvasConfig struct {
	Retention       time.Duration
	MaxBytes        int
	TargetBytes     int
	CleanupInterval time.Duration
	FlushTimeout    time.Duration
}

// StoreConfig 영속 백엔드 선택
type StoreConfig struct {
	Backend  string // file | redis | postgres
	DataFile string
	RedisKey string
}

// RedisConfig Redis 설정
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Presence bool // 접속자 수를 Redis 로 공유
}

// DatabaseConfig 데이터베이스 설정
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	TimeZone string
}

// DSN PostgreSQL DSN
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode, c.TimeZone,
	)
}

// MDNSConfig LAN 광고 설정
type MDNSConfig struct {
	Enabled  bool
	Instance string
}

// 백엔드 이름
const (
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Load 환경 변수에서 설정 로드
func Load() *Config {
	// .env 파일 로드 (없어도 에러 무시)
	if err := godotenv.Load(); err != nil {
		log.Println("ℹ️ No .env file found, using environment variables")
	}

	return &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", ":3000"),
			ReadTimeout:     getDuration("READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getDuration("WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:     getDuration("IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
			PublicDir:       getEnv("PUBLIC_DIR", ""),
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  getInt("WS_READ_BUFFER_SIZE", 16*1024),
			WriteBufferSize: getInt("WS_WRITE_BUFFER_SIZE", 16*1024),
			SendBufferSize:  getInt("WS_SEND_BUFFER", 256),
			WriteTimeout:    getDuration("WS_WRITE_TIMEOUT", 5*time.Second),
			ReadLimit:       int64(getBytes("WS_READ_LIMIT", 1024*1024)),
		},
		CORS: CORSConfig{
			AllowOrigins: getEnv("CORS_ALLOW_ORIGINS", "*"),
			AllowHeaders: getEnv("CORS_ALLOW_HEADERS", "Origin, Content-Type, Accept"),
		},
		Canvas: CanvasConfig{
			Retention:       getDuration("CANVAS_RETENTION", 7*24*time.Hour),
			MaxBytes:        getBytes("CANVAS_MAX_BYTES", 5*1024*1024),
			TargetBytes:     getBytes("CANVAS_TARGET_BYTES", 3*1024*1024),
			CleanupInterval: getDuration("CANVAS_CLEANUP_INTERVAL", time.Hour),
			FlushTimeout:    getDuration("CANVAS_FLUSH_TIMEOUT", 10*time.Second),
		},
		Store: StoreConfig{
			Backend:  strings.ToLower(getEnv("STORE_BACKEND", BackendFile)),
			DataFile: getEnv("DATA_FILE", "data/drawings.json"),
			RedisKey: getEnv("STORE_REDIS_KEY", "canvas:drawings"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getInt("REDIS_DB", 0),
			Presence: getBool("REDIS_PRESENCE", false),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "postgres"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			TimeZone: getEnv("DB_TIMEZONE", "UTC"),
		},
		MDNS: MDNSConfig{
			Enabled:  getBool("MDNS_ENABLED", false),
			Instance: getEnv("MDNS_INSTANCE", ""),
		},
	}
}

// Validate 설정 값 검증
func (c *Config) Validate() error {
	var errs []error

	if c.Canvas.Retention <= 0 {
		errs = append(errs, errors.New("CANVAS_RETENTION must be positive"))
	}
	if c.Canvas.MaxBytes <= 0 || c.Canvas.TargetBytes <= 0 {
		errs = append(errs, errors.New("CANVAS_MAX_BYTES and CANVAS_TARGET_BYTES must be positive"))
	}
	if c.Canvas.TargetBytes > c.Canvas.MaxBytes {
		errs = append(errs, fmt.Errorf("CANVAS_TARGET_BYTES (%d) must not exceed CANVAS_MAX_BYTES (%d)",
			c.Canvas.TargetBytes, c.Canvas.MaxBytes))
	}
	if c.Canvas.CleanupInterval <= 0 {
		errs = append(errs, errors.New("CANVAS_CLEANUP_INTERVAL must be positive"))
	}

	switch c.Store.Backend {
	case BackendFile:
		if c.Store.DataFile == "" {
			errs = append(errs, errors.New("DATA_FILE is required for the file backend"))
		}
	case BackendRedis:
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for the redis backend"))
		}
	case BackendPostgres:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend))
	}

	if c.Redis.Presence && c.Redis.Addr == "" {
		errs = append(errs, errors.New("REDIS_ADDR is required when REDIS_PRESENCE is enabled"))
	}

	return errors.Join(errs...)
}

// getEnv 환경 변수 조회 (기본값 지원)
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getInt 정수형 환경 변수 조회
func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getBool 불리언 환경 변수 조회
func getBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

// getDuration 시간 환경 변수 조회
func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		// 숫자만 있으면 초로 간주
		if !strings.ContainsAny(value, "smh") {
			if secs, err := strconv.Atoi(value); err == nil {
				return time.Duration(secs) * time.Second
			}
		}
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getBytes 크기 환경 변수 조회 (예: 5242880, 512KB, 5MB)
func getBytes(key string, defaultValue int) int {
	value := strings.ToUpper(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return defaultValue
	}

	multiplier := 1
	switch {
	case strings.HasSuffix(value, "MB"):
		multiplier = 1024 * 1024
		value = strings.TrimSuffix(value, "MB")
	case strings.HasSuffix(value, "KB"):
		multiplier = 1024
		value = strings.TrimSuffix(value, "KB")
	case strings.HasSuffix(value, "B"):
		value = strings.TrimSuffix(value, "B")
	}

	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 0 {
		return defaultValue
	}
	return n * multiplier
}
