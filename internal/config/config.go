package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Access   AccessConfig
	Tracing  TracingConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string `env:"APP_NAME" envDefault:"console-access"`
	Env                   string `env:"APP_ENV" envDefault:"development"`
	Host                  string `env:"APP_HOST" envDefault:"0.0.0.0"`
	Port                  string `env:"APP_PORT" envDefault:"8080"`
	Version               string `env:"APP_VERSION" envDefault:"dev"`
	RequestTimeoutSeconds int    `env:"HTTP_REQUEST_TIMEOUT_SECONDS" envDefault:"30"`
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string `env:"POSTGRES_DSN"`
	MaxConns       int32  `env:"POSTGRES_MAX_CONNS" envDefault:"10"`
	MinConns       int32  `env:"POSTGRES_MIN_CONNS" envDefault:"2"`
	RunMigrations  bool   `env:"POSTGRES_RUN_MIGRATIONS" envDefault:"true"`
	MigrationsDir  string `env:"POSTGRES_MIGRATIONS_DIR" envDefault:"migrations"`
	ConnMaxIdleSec int32  `env:"POSTGRES_CONN_MAX_IDLE_SECONDS" envDefault:"30"`
	ConnMaxLifeSec int32  `env:"POSTGRES_CONN_MAX_LIFE_SECONDS" envDefault:"300"`
}

// RedisConfig holds Redis connection values. An empty Addr keeps sessions in memory.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// TracingConfig controls OpenTelemetry export. Tracing is off unless enabled.
type TracingConfig struct {
	Enabled bool `env:"OTEL_ENABLED" envDefault:"false"`
	// Endpoint is the OTLP/HTTP collector URL; empty uses the exporter default.
	Endpoint    string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	SampleRatio float64 `env:"OTEL_SAMPLE_RATIO" envDefault:"1"`
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string `env:"AUTH_JWT_SECRET" envDefault:"dev-secret"`
	Issuer                string `env:"AUTH_ISSUER" envDefault:"console-access"`
	AccessTokenTTLMinutes int    `env:"AUTH_ACCESS_TOKEN_TTL_MINUTES" envDefault:"60"`
	BcryptCost            int    `env:"AUTH_BCRYPT_COST" envDefault:"12"`
	// Bootstrap account created at startup when it does not exist yet.
	BootstrapEmail    string `env:"AUTH_BOOTSTRAP_EMAIL"`
	BootstrapPassword string `env:"AUTH_BOOTSTRAP_PASSWORD"`
	BootstrapRole     string `env:"AUTH_BOOTSTRAP_ROLE" envDefault:"admin"`
}

// Policy sources.
const (
	PolicySourceFile     = "file"
	PolicySourceDatabase = "database"
)

// AccessConfig controls the access guard and where its policy comes from.
type AccessConfig struct {
	SignInPath    string `env:"ACCESS_SIGNIN_PATH" envDefault:"/signin"`
	ForbiddenPath string `env:"ACCESS_FORBIDDEN_PATH" envDefault:"/403"`
	PolicySource  string `env:"POLICY_SOURCE" envDefault:"file"`
	// PolicyFile overrides the embedded console policy when set.
	PolicyFile string `env:"POLICY_FILE"`
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadAccess reads only the access settings, for tools that do not run the server.
func LoadAccess() (AccessConfig, error) {
	_ = godotenv.Load()

	var cfg AccessConfig
	if err := env.Parse(&cfg); err != nil {
		return AccessConfig{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate rejects combinations the service cannot start with.
func (c *Config) Validate() error {
	switch c.Access.PolicySource {
	case PolicySourceFile:
	case PolicySourceDatabase:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("POLICY_SOURCE=%s requires POSTGRES_DSN", PolicySourceDatabase)
		}
	default:
		return fmt.Errorf("invalid POLICY_SOURCE %q", c.Access.PolicySource)
	}
	if c.Access.SignInPath == "" || c.Access.ForbiddenPath == "" {
		return fmt.Errorf("ACCESS_SIGNIN_PATH and ACCESS_FORBIDDEN_PATH must be set")
	}
	if (c.Auth.BootstrapEmail == "") != (c.Auth.BootstrapPassword == "") {
		return fmt.Errorf("AUTH_BOOTSTRAP_EMAIL and AUTH_BOOTSTRAP_PASSWORD must be set together")
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATIO must be between 0 and 1")
	}
	if c.Access.SignInPath == c.Access.ForbiddenPath {
		return fmt.Errorf("sign-in and forbidden paths must differ")
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// AccessTokenTTL returns the lifetime of issued session tokens.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	if a.AccessTokenTTLMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}
