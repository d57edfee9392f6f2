package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Upstream      UpstreamConfig
	Cart          CartConfig
	Catalog       CatalogConfig
	Orders        OrdersConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"FIELDSALES_APP_ENV" required:"true"`
	Port         string `envconfig:"FIELDSALES_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"FIELDSALES_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FIELDSALES_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// DBConfig selects the cart-state datastore. The sqlite driver keeps the
// state on-device for single-rep deployments; postgres serves hosted
// multi-rep deployments.
type DBConfig struct {
	Driver string `envconfig:"FIELDSALES_DB_DRIVER" default:"sqlite"`
	DSN    string `envconfig:"FIELDSALES_DB_DSN" default:"fieldsales.db"`

	MaxOpenConns    int           `envconfig:"FIELDSALES_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"FIELDSALES_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"FIELDSALES_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FIELDSALES_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (db DBConfig) validate() error {
	switch db.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unsupported db driver %q", db.Driver)
	}
	if strings.TrimSpace(db.DSN) == "" {
		return fmt.Errorf("database DSN is required")
	}
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"FIELDSALES_REDIS_URL" required:"true"`
	PoolSize     int           `envconfig:"FIELDSALES_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FIELDSALES_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FIELDSALES_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FIELDSALES_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FIELDSALES_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"FIELDSALES_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"FIELDSALES_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"FIELDSALES_JWT_EXPIRATION_MINUTES" default:"720"`
}

// SessionTTL is how long the upstream token stays valid in the session store.
func (j JWTConfig) SessionTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// UpstreamConfig points at the order backend the mobile screens used to call
// directly.
type UpstreamConfig struct {
	BaseURL string        `envconfig:"FIELDSALES_UPSTREAM_BASE_URL" required:"true"`
	Timeout time.Duration `envconfig:"FIELDSALES_UPSTREAM_TIMEOUT" default:"30s"`
}

type CartConfig struct {
	// ClearOnCustomerChange empties the cart when the selected customer
	// changes. Off by default to match the legacy app behavior.
	ClearOnCustomerChange bool `envconfig:"FIELDSALES_CART_CLEAR_ON_CUSTOMER_CHANGE" default:"false"`
}

type CatalogConfig struct {
	CacheTTL time.Duration `envconfig:"FIELDSALES_CATALOG_CACHE_TTL" default:"5m"`
}

type OrdersConfig struct {
	// Timezone controls the business date stamped on submitted orders.
	Timezone string `envconfig:"FIELDSALES_ORDERS_TIMEZONE" default:"America/Tegucigalpa"`
	DueDays  int    `envconfig:"FIELDSALES_ORDERS_DUE_DAYS" default:"0"`
}

// AuthRateLimitConfig throttles the login surface: raw rep credentials pass
// through it upstream. Counters are per source IP and per attempted userName.
type AuthRateLimitConfig struct {
	LoginWindow    time.Duration `envconfig:"FIELDSALES_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginUserLimit int           `envconfig:"FIELDSALES_AUTH_RATE_LIMIT_LOGIN_USER_LIMIT" default:"5"`
	LoginIPLimit   int           `envconfig:"FIELDSALES_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"FIELDSALES_AUTO_MIGRATE" default:"true"`
}
