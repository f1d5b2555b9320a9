package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort      string        `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseURL   string        `env:"DATABASE_URL,required,notEmpty"`
	DBMaxConns    int32         `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns    int32         `env:"DB_MIN_CONNS" envDefault:"1"`
	AutoMigrate   bool          `env:"AUTO_MIGRATE" envDefault:"false"`
	StoreTimeout  time.Duration `env:"STORE_TIMEOUT" envDefault:"5s"`
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	LockTTL       time.Duration `env:"LOCK_TTL" envDefault:"30s"`
	LockWait      time.Duration `env:"LOCK_WAIT" envDefault:"5s"`
	JWTSecret     string        `env:"JWT_SECRET"`
	JWTIssuer     string        `env:"JWT_ISSUER" envDefault:"bigfive-core"`
	JWTAccessTTL  time.Duration `env:"JWT_ACCESS_TTL" envDefault:"15m"`
	ShutdownWait  time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	LLMAPIKey     string        `env:"LLM_API_KEY"`
	LLMBaseURL    string        `env:"LLM_BASE_URL" envDefault:"https://api.openai.com/v1"`
	LLMModel      string        `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`
	LLMMaxRetries int           `env:"LLM_MAX_RETRIES" envDefault:"2"`
	OTelEnabled   bool          `env:"OTEL_ENABLED" envDefault:"false"`
	OTelService   string        `env:"OTEL_SERVICE_NAME" envDefault:"bigfive-core"`
	OTelExporter  string        `env:"OTEL_EXPORTER" envDefault:"stdout"`
	OTelEndpoint  string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Environment   string        `env:"APP_ENV" envDefault:"development"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
