package config

// EnvPrefix is handed to envconfig; every field carries its full variable name.
const EnvPrefix = "STASHBOT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	defaultSQLiteDSN = "file:stashbot.db?cache=shared&_busy_timeout=5000"
)

const (
	EnvAppEnv   = "STASHBOT_APP_ENV"
	EnvPort     = "STASHBOT_APP_PORT"
	EnvLogLevel = "STASHBOT_LOG_LEVEL"

	EnvDBDSN  = "STASHBOT_DB_DSN"
	EnvDBHost = "STASHBOT_DB_HOST"
	EnvDBUser = "STASHBOT_DB_USER"
	EnvDBName = "STASHBOT_DB_NAME"

	EnvRedisURL = "STASHBOT_REDIS_URL"

	EnvAdminID        = "STASHBOT_ADMIN_ID"
	EnvAdminJWTSecret = "STASHBOT_ADMIN_JWT_SECRET"

	EnvUseSQLite      = "STASHBOT_USE_SQLITE"
	EnvMemorySessions = "STASHBOT_MEMORY_SESSIONS"

	EnvVerifyInitialDelay = "STASHBOT_VERIFY_INITIAL_DELAY"
	EnvVerifyInterval     = "STASHBOT_VERIFY_INTERVAL"
	EnvVerifyMaxAttempts  = "STASHBOT_VERIFY_MAX_ATTEMPTS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
