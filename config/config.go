package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config 汇总服务运行所需的全部配置，只在启动时读取一次
type Config struct {
	AppEnv string
	Port   string

	DBDSN     string
	DBMaxOpen int
	DBMaxIdle int

	JWTSecret string
	JWTTTL    time.Duration

	LogLevel  string
	LogFormat string

	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int

	WSAuthMode       string
	WSBroadcastScope string
	WSSendBuffer     int
	WSMaxFrameBytes  int64

	RedisURL       string
	StorySweepSpec string
}

const (
	defaultDSN       = "root:root@tcp(localhost:3306)/social_hub?parseTime=true&charset=utf8mb4&loc=Local"
	developmentEnv   = "development"
	devJWTSecret     = "dev-secret-change-me"
	defaultSweepSpec = "@every 5m"
)

// Load reads .env (if present) and the process environment.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: load env file: %w", err)
	}

	cfg := &Config{
		AppEnv:           envString("APP_ENV", developmentEnv),
		Port:             envString("PORT", "8082"),
		DBDSN:            envString("DB_DSN", defaultDSN),
		DBMaxOpen:        envInt("DB_MAX_OPEN", 20),
		DBMaxIdle:        envInt("DB_MAX_IDLE", 10),
		JWTSecret:        strings.TrimSpace(os.Getenv("JWT_SECRET")),
		JWTTTL:           envDuration("JWT_TTL", 72*time.Hour),
		LogLevel:         envString("LOG_LEVEL", "info"),
		LogFormat:        envString("LOG_FORMAT", "text"),
		CORSOrigins:      envList("CORS_ORIGINS", []string{"*"}),
		RateLimitRPS:     envFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst:   envInt("RATE_LIMIT_BURST", 40),
		WSAuthMode:       envString("WS_AUTH_MODE", "token"),
		WSBroadcastScope: envString("WS_BROADCAST_SCOPE", "participants"),
		WSSendBuffer:     envInt("WS_SEND_BUFFER", 256),
		WSMaxFrameBytes:  int64(envInt("WS_MAX_FRAME_BYTES", 64<<10)),
		RedisURL:         strings.TrimSpace(os.Getenv("REDIS_URL")),
		StorySweepSpec:   envString("STORY_SWEEP_SPEC", defaultSweepSpec),
	}

	if cfg.JWTSecret == "" {
		if cfg.AppEnv != developmentEnv {
			return nil, errors.New("config: JWT_SECRET is required outside development")
		}
		cfg.JWTSecret = devJWTSecret
	}
	switch cfg.WSAuthMode {
	case "token", "trust":
	default:
		return nil, fmt.Errorf("config: WS_AUTH_MODE must be token or trust, got %q", cfg.WSAuthMode)
	}
	switch cfg.WSBroadcastScope {
	case "participants", "all":
	default:
		return nil, fmt.Errorf("config: WS_BROADCAST_SCOPE must be participants or all, got %q", cfg.WSBroadcastScope)
	}
	return cfg, nil
}

// Addr 返回 HTTP 监听地址
func (c *Config) Addr() string {
	return ":" + c.Port
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return def
	}
	return f
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func envList(key string, def []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
