package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 應用配置
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	AIServer  AIServerConfig  `mapstructure:"ai_server"`
	Enhancer  EnhancerConfig  `mapstructure:"enhancer"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Auth      AuthConfig      `mapstructure:"auth"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Upload    UploadConfig    `mapstructure:"upload"`
	LogLevel  string          `mapstructure:"log_level"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

// AIServerConfig OCR/分析服務設定
type AIServerConfig struct {
	URL         string        `mapstructure:"url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	RetryDelay  time.Duration `mapstructure:"retry_delay"`
}

// EnhancerConfig 文字補完服務設定
type EnhancerConfig struct {
	// Provider 為 "auto"（有 Gemini 金鑰時在行程內呼叫，否則走 http）、
	// "http"（呼叫外部 /enhance）或 "gemini"
	Provider    string        `mapstructure:"provider"`
	URL         string        `mapstructure:"url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	MaxTokens   int           `mapstructure:"max_tokens"`
}

// GeminiConfig Gemini 設定
type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// CacheConfig 緩存配置
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Backend         string        `mapstructure:"backend"`
	MaxSize         int           `mapstructure:"max_size"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// RedisConfig Redis 連線設定
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// DatabaseConfig 資料庫設定，URL 為空時使用記憶體儲存
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// AuthConfig 驗證設定
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// UploadConfig 上傳設定
type UploadConfig struct {
	MaxSizeBytes int64 `mapstructure:"max_size_bytes"`
}

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// .env 不存在時沿用環境變數
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindings := map[string]string{
		"ai_server.url":       "AI_SERVER_URL",
		"enhancer.provider":   "ENHANCER_PROVIDER",
		"enhancer.url":        "ENHANCER_URL",
		"gemini.api_key":      "GEMINI_API_KEY",
		"gemini.model":        "GEMINI_MODEL",
		"cache.enabled":       "CACHE_ENABLED",
		"cache.backend":       "CACHE_BACKEND",
		"redis.addr":          "REDIS_ADDR",
		"redis.password":      "REDIS_PASSWORD",
		"database.url":        "DATABASE_URL",
		"auth.jwt_secret":     "JWT_SECRET",
		"rate_limit.enabled":  "RATE_LIMIT_ENABLED",
		"rate_limit.requests": "RATE_LIMIT_REQUESTS",
		"rate_limit.window":   "RATE_LIMIT_WINDOW",
		"server.port":         "PORT",
		"log_level":           "LOG_LEVEL",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind env %s: %w", env, err)
		}
	}

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// logger 尚未初始化，改用 fmt.Println
	fmt.Println("Loading configuration",
		"ai_server_url:", v.GetString("ai_server.url"),
		"enhancer_provider:", v.GetString("enhancer.provider"),
		"gemini_api_key:", MaskSecret(v.GetString("gemini.api_key")),
	)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// MaskSecret 遮罩金鑰，只顯示前後各 4 個字符
func MaskSecret(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// setDefaults 設定預設值
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", true)
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.name", "menu-scanner")

	v.SetDefault("server.port", 3001)
	v.SetDefault("server.read_timeout", "30s")
	// OCR 最長可跑數分鐘，寫入逾時需大於單次分析的上限
	v.SetDefault("server.write_timeout", "35m")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "32m")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000", "http://localhost:80"})

	v.SetDefault("ai_server.url", "http://ai-server:8000")
	v.SetDefault("ai_server.timeout", "10m")
	v.SetDefault("ai_server.max_attempts", 3)
	v.SetDefault("ai_server.retry_delay", "2s")

	v.SetDefault("enhancer.provider", "auto")
	v.SetDefault("enhancer.url", "http://localhost:3001/api/gemini")
	v.SetDefault("enhancer.timeout", "30s")
	v.SetDefault("enhancer.max_attempts", 3)
	v.SetDefault("enhancer.base_delay", "1s")
	v.SetDefault("enhancer.max_tokens", 500)

	v.SetDefault("gemini.model", "gemini-1.5-flash")

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.max_size", 1000)
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.cleanup_interval", "10m")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 100)
	v.SetDefault("rate_limit.window", "15m")

	v.SetDefault("upload.max_size_bytes", 15*1024*1024) // 15MB

	v.SetDefault("log_level", "info")
}

// Validate 驗證設定
func Validate(cfg *Config) error {
	if cfg.Server.Port == 0 {
		return fmt.Errorf("server port is required")
	}

	if cfg.AIServer.URL == "" {
		return fmt.Errorf("ai server url is required")
	}
	if cfg.AIServer.MaxAttempts <= 0 || cfg.AIServer.Timeout <= 0 {
		return fmt.Errorf("invalid ai server retry settings")
	}

	switch cfg.Enhancer.Provider {
	case "auto":
		if cfg.Gemini.APIKey == "" && cfg.Enhancer.URL == "" {
			return fmt.Errorf("enhancer url or gemini api key is required for auto provider")
		}
	case "http":
		if cfg.Enhancer.URL == "" {
			return fmt.Errorf("enhancer url is required for http provider")
		}
	case "gemini":
		if cfg.Gemini.APIKey == "" {
			return fmt.Errorf("gemini api key is required for gemini provider")
		}
	default:
		return fmt.Errorf("unknown enhancer provider %q", cfg.Enhancer.Provider)
	}
	if cfg.Enhancer.MaxAttempts <= 0 || cfg.Enhancer.Timeout <= 0 {
		return fmt.Errorf("invalid enhancer retry settings")
	}

	if cfg.Cache.Enabled {
		if cfg.Cache.Backend != "memory" && cfg.Cache.Backend != "redis" {
			return fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
		}
		if cfg.Cache.MaxSize <= 0 {
			return fmt.Errorf("invalid cache max size")
		}
		if cfg.Cache.TTL <= 0 {
			return fmt.Errorf("invalid cache ttl")
		}
		if cfg.Cache.CleanupInterval <= 0 {
			return fmt.Errorf("invalid cache cleanup interval")
		}
	}

	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("jwt secret is required")
	}

	if cfg.RateLimit.Enabled && (cfg.RateLimit.Requests <= 0 || cfg.RateLimit.Window <= 0) {
		return fmt.Errorf("invalid rate limit settings")
	}

	if cfg.Upload.MaxSizeBytes <= 0 {
		return fmt.Errorf("invalid upload max size")
	}

	return nil
}
