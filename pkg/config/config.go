package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	Admin         AdminConfig
	FeatureFlags  FeatureFlagsConfig
	Store         StoreConfig
	Verification  VerificationConfig
	Pricing       PricingConfig
	Reconcile     ReconcileConfig
	Notifications NotificationsConfig
	RateLimit     RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		if cfg.DB.DSN == "" {
			cfg.DB.DSN = defaultSQLiteDSN
		}
		cfg.DB.Driver = DriverSQLite
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Verification.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"STASHBOT_APP_ENV" required:"true"`
	Port         string   `envconfig:"STASHBOT_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"STASHBOT_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"STASHBOT_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"STASHBOT_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"STASHBOT_SERVICE_KIND" default:"bot"`
}

type DBConfig struct {
	DSN    string `envconfig:"STASHBOT_DB_DSN"`
	Driver string `envconfig:"STASHBOT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"STASHBOT_DB_HOST"`
	LegacyPort     int    `envconfig:"STASHBOT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STASHBOT_DB_USER"`
	LegacyPassword string `envconfig:"STASHBOT_DB_PASSWORD"`
	LegacyName     string `envconfig:"STASHBOT_DB_NAME"`
	LegacySSLMode  string `envconfig:"STASHBOT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STASHBOT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STASHBOT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STASHBOT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STASHBOT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the configured driver is the embedded sqlite driver.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, DriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"STASHBOT_REDIS_URL"`
	Address      string        `envconfig:"STASHBOT_REDIS_ADDR"`
	Password     string        `envconfig:"STASHBOT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STASHBOT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STASHBOT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STASHBOT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STASHBOT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STASHBOT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STASHBOT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether any redis endpoint is configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

// AdminConfig identifies the store operator and signs admin API tokens.
type AdminConfig struct {
	ChatID            int64  `envconfig:"STASHBOT_ADMIN_ID" required:"true"`
	JWTSecret         string `envconfig:"STASHBOT_ADMIN_JWT_SECRET" required:"true"`
	JWTIssuer         string `envconfig:"STASHBOT_ADMIN_JWT_ISSUER" default:"stashbot"`
	ExpirationMinutes int    `envconfig:"STASHBOT_ADMIN_JWT_EXPIRATION_MINUTES" default:"60"`
}

// TokenTTL returns the admin token lifetime.
func (a AdminConfig) TokenTTL() time.Duration {
	if a.ExpirationMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(a.ExpirationMinutes) * time.Minute
}

type FeatureFlagsConfig struct {
	UseSQLite      bool `envconfig:"STASHBOT_USE_SQLITE" default:"false"`
	AutoMigrate    bool `envconfig:"STASHBOT_AUTO_MIGRATE" default:"false"`
	MemorySessions bool `envconfig:"STASHBOT_MEMORY_SESSIONS" default:"false"`
}

type StoreConfig struct {
	Currency   string        `envconfig:"STASHBOT_STORE_CURRENCY" default:"LTC"`
	URIScheme  string        `envconfig:"STASHBOT_STORE_URI_SCHEME" default:"litecoin"`
	SessionTTL time.Duration `envconfig:"STASHBOT_STORE_SESSION_TTL" default:"30m"`
}

type VerificationConfig struct {
	InitialDelay     time.Duration `envconfig:"STASHBOT_VERIFY_INITIAL_DELAY" default:"10s"`
	Interval         time.Duration `envconfig:"STASHBOT_VERIFY_INTERVAL" default:"60s"`
	MaxAttempts      int           `envconfig:"STASHBOT_VERIFY_MAX_ATTEMPTS" default:"10"`
	BaseURL          string        `envconfig:"STASHBOT_VERIFY_BASE_URL" default:"https://api.blockcypher.com/v1/ltc/main"`
	Token            string        `envconfig:"STASHBOT_VERIFY_TOKEN"`
	MinConfirmations int           `envconfig:"STASHBOT_VERIFY_MIN_CONFIRMATIONS" default:"1"`
	Timeout          time.Duration `envconfig:"STASHBOT_VERIFY_HTTP_TIMEOUT" default:"15s"`
}

// Window returns the longest time a worker can keep an order pending.
func (v VerificationConfig) Window() time.Duration {
	return v.InitialDelay + v.Interval*time.Duration(v.MaxAttempts)
}

func (v VerificationConfig) validate() error {
	if v.MaxAttempts <= 0 {
		return fmt.Errorf("%s must be positive", EnvVerifyMaxAttempts)
	}
	if v.Interval <= 0 {
		return fmt.Errorf("%s must be positive", EnvVerifyInterval)
	}
	if v.InitialDelay < 0 {
		return fmt.Errorf("%s must not be negative", EnvVerifyInitialDelay)
	}
	return nil
}

type PricingConfig struct {
	BaseURL       string        `envconfig:"STASHBOT_PRICING_BASE_URL" default:"https://api.coingecko.com/api/v3"`
	AssetID       string        `envconfig:"STASHBOT_PRICING_ASSET_ID" default:"litecoin"`
	QuoteCurrency string        `envconfig:"STASHBOT_PRICING_QUOTE_CURRENCY" default:"usd"`
	APIKey        string        `envconfig:"STASHBOT_PRICING_API_KEY"`
	Timeout       time.Duration `envconfig:"STASHBOT_PRICING_HTTP_TIMEOUT" default:"10s"`
}

type ReconcileConfig struct {
	Interval time.Duration `envconfig:"STASHBOT_RECONCILE_INTERVAL" default:"5m"`
	Grace    time.Duration `envconfig:"STASHBOT_RECONCILE_GRACE" default:"2m"`
}

type NotificationsConfig struct {
	QueueSize int           `envconfig:"STASHBOT_NOTIFY_QUEUE_SIZE" default:"256"`
	Workers   int           `envconfig:"STASHBOT_NOTIFY_WORKERS" default:"2"`
	Retention time.Duration `envconfig:"STASHBOT_NOTIFY_RETENTION" default:"720h"`
}

// RateLimitConfig throttles payment reference submissions.
type RateLimitConfig struct {
	Window     time.Duration `envconfig:"STASHBOT_SUBMIT_RATE_WINDOW" default:"1m"`
	IPLimit    int           `envconfig:"STASHBOT_SUBMIT_RATE_IP_LIMIT" default:"30"`
	BuyerLimit int           `envconfig:"STASHBOT_SUBMIT_RATE_BUYER_LIMIT" default:"5"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
