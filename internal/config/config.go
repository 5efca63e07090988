package config

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort       string   `env:"HTTP_PORT" envDefault:"5004"`
	AppEnv         string   `env:"APP_ENV" envDefault:"production"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"https://passwordstrengthanalyser.com,https://www.passwordstrengthanalyser.com,http://localhost:3000"`

	DatabaseURL       string        `env:"DATABASE_URL"`
	StoreRetryDelay   time.Duration `env:"STORE_RETRY_DELAY" envDefault:"5s"`
	StorePingInterval time.Duration `env:"STORE_PING_INTERVAL" envDefault:"15s"`

	DBMaxConns        int32         `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"30m"`
	DBMaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"5m"`
	DBConnectTimeout  time.Duration `env:"DB_CONNECT_TIMEOUT" envDefault:"5s"`

	JWTSecret string        `env:"JWT_SECRET,required,notEmpty"`
	JWTTTL    time.Duration `env:"JWT_TTL" envDefault:"24h"`
	JWTIssuer string        `env:"JWT_ISSUER" envDefault:"password-analyzer"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	RateLimitWindow  time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
	RateLimitAnalyze int           `env:"RATE_LIMIT_ANALYZE" envDefault:"30"`
	RateLimitLogin   int           `env:"RATE_LIMIT_LOGIN" envDefault:"10"`

	PasswordHistoryLimit int  `env:"PASSWORD_HISTORY_LIMIT" envDefault:"100"`
	BcryptCost           int  `env:"BCRYPT_COST" envDefault:"10"`
	StrengthCheckWelcome bool `env:"STRENGTH_CHECK_WELCOME" envDefault:"false"`

	GoogleVerifyToken bool   `env:"GOOGLE_VERIFY_TOKEN" envDefault:"false"`
	GoogleUserInfoURL string `env:"GOOGLE_USERINFO_URL" envDefault:"https://www.googleapis.com/oauth2/v3/userinfo"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsDevelopment indica si se exponen detalles internos en las respuestas de error.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(strings.TrimSpace(c.AppEnv), "development")
}
