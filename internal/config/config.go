// config - источник загрузки конфигурации для sanad-gateway.
//
// Источники (по убыванию приоритета):
//  1. явный путь --config;
//  2. CONFIG_PATH;
//  3. ./local.yaml;
//  4. только ENV (cleanenv).
package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env       string          `yaml:"env" env:"ENV" env-default:"local"`
	HTTP      HTTPConfig      `yaml:"http"`
	Backend   BackendConfig   `yaml:"backend"`
	Timeouts  TimeoutConfig   `yaml:"timeouts"`
	Cookies   CookieConfig    `yaml:"cookies"`
	Redis     RedisConfig     `yaml:"redis"`
	Breaker   BreakerConfig   `yaml:"breaker"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	CORS      CORSConfig      `yaml:"cors"`
	Frontend  FrontendConfig  `yaml:"frontend"`
}

// TimeoutConfig — таймауты входящего запроса и одного вызова бэкенда.
type TimeoutConfig struct {
	Service time.Duration `yaml:"service" env:"SERVICE" env-default:"30s"`
	Backend time.Duration `yaml:"backend" env:"BACKEND_TIMEOUT" env-default:"20s"`
}

// HTTPConfig — публичный HTTP-сервер шлюза.
type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"3000"`
}

func (h HTTPConfig) Addr() string { return net.JoinHostPort(h.Host, h.Port) }

// BackendConfig — адрес сервиса анализа иснадов.
type BackendConfig struct {
	BaseURL   string `yaml:"base_url"   env:"SANAD_API_BASE_URL" env-default:"http://localhost:8000"`
	UserAgent string `yaml:"user_agent" env:"BACKEND_USER_AGENT" env-default:"sanad-gateway"`
}

// CookieConfig — имена и флаги cookie с токенами.
type CookieConfig struct {
	AccessName  string `yaml:"access_name"  env:"COOKIE_ACCESS_NAME"  env-default:"sc_access"`
	RefreshName string `yaml:"refresh_name" env:"COOKIE_REFRESH_NAME" env-default:"sc_refresh"`
	// Secure принудительно включает флаг Secure; в prod он включён всегда.
	Secure bool `yaml:"secure" env:"COOKIE_SECURE" env-default:"false"`
}

// RedisConfig — кэш ротаций refresh-токена. Пустой URL отключает кэш.
type RedisConfig struct {
	URL      string        `yaml:"url"       env:"REDIS_URL"`
	Prefix   string        `yaml:"prefix"    env:"REDIS_PREFIX"    env-default:"sanad:rt:"`
	GraceTTL time.Duration `yaml:"grace_ttl" env:"REDIS_GRACE_TTL" env-default:"10s"`
}

// BreakerConfig — circuit breaker перед бэкендом.
type BreakerConfig struct {
	MaxRequests  uint32        `yaml:"max_requests"  env:"BREAKER_MAX_REQUESTS"  env-default:"3"`
	Interval     time.Duration `yaml:"interval"      env:"BREAKER_INTERVAL"      env-default:"1m"`
	Timeout      time.Duration `yaml:"timeout"       env:"BREAKER_TIMEOUT"       env-default:"30s"`
	FailureRatio float64       `yaml:"failure_ratio" env:"BREAKER_FAILURE_RATIO" env-default:"0.6"`
	MinRequests  uint32        `yaml:"min_requests"  env:"BREAKER_MIN_REQUESTS"  env-default:"10"`
}

// RateLimitConfig — лимит на login/register по IP клиента. 0 отключает лимит.
type RateLimitConfig struct {
	AuthRequests int           `yaml:"auth_requests" env:"RATELIMIT_AUTH_REQUESTS" env-default:"20"`
	AuthWindow   time.Duration `yaml:"auth_window"   env:"RATELIMIT_AUTH_WINDOW"   env-default:"1m"`
}

// CORSConfig — разрешённые origin фронтенда (cookie требуют AllowCredentials).
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-separator:","`
}

// FrontendConfig — раздача собранного фронтенда и защищённые пути.
type FrontendConfig struct {
	Dir       string   `yaml:"dir"       env:"FRONTEND_DIR"`
	Protected []string `yaml:"protected" env:"FRONTEND_PROTECTED" env-separator:"," env-default:"/dashboard,/profile,/sessions,/analysis"`
}

// SecureCookies — нужен ли флаг Secure у cookie в текущем окружении.
func (c *Config) SecureCookies() bool {
	return c.Env == "prod" || c.Cookies.Secure
}

// MustLoad — паника при ошибке загрузки.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

func Load(path string) (*Config, error) {
	var cfg Config

	tryRead := func(p string) (*Config, error) {
		if p == "" {
			return nil, fmt.Errorf("empty config path")
		}

		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		return &cfg, nil
	}

	// 1) --config
	if path != "" {
		return tryRead(path)
	}

	// 2) CONFIG_PATH
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return tryRead(envPath)
	}

	// 3) ./local.yaml
	if _, err := os.Stat("local.yaml"); err == nil {
		if err := cleanenv.ReadConfig("local.yaml", &cfg); err != nil {
			return nil, fmt.Errorf("failed to read local.yaml: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		return &cfg, nil
	}

	// 4) только ENV
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}

	return &cfg, nil
}
