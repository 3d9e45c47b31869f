package config

const EnvPrefix = "UNITRADE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	DefaultPlatformFee       = 30
	DefaultSoldRetentionDays = 30
)

const (
	EnvAppEnv     = "UNITRADE_APP_ENV"
	EnvPort       = "UNITRADE_APP_PORT"
	EnvLogLevel   = "UNITRADE_LOG_LEVEL"
	EnvLogFormat  = "UNITRADE_LOG_FORMAT"
	EnvDBDSN      = "UNITRADE_DB_DSN"
	EnvDBHost     = "UNITRADE_DB_HOST"
	EnvDBUser     = "UNITRADE_DB_USER"
	EnvDBPassword = "UNITRADE_DB_PASSWORD"
	EnvDBName     = "UNITRADE_DB_NAME"
	EnvRedisURL   = "UNITRADE_REDIS_URL"
	EnvJWTSecret  = "UNITRADE_JWT_SECRET"
	EnvJWTIssuer  = "UNITRADE_JWT_ISSUER"
	EnvJWTExpMins = "UNITRADE_JWT_EXPIRATION_MINUTES"
	EnvGCPProject = "UNITRADE_GCP_PROJECT_ID"
	EnvGCSBucket  = "UNITRADE_GCS_BUCKET_NAME"

	EnvDefaultPlatformFee = "UNITRADE_DEFAULT_PLATFORM_FEE"
	EnvSoldRetentionDays  = "UNITRADE_SOLD_RETENTION_DAYS"
	EnvAdminEmails        = "UNITRADE_ADMIN_EMAILS"
	EnvBigQueryDataset    = "UNITRADE_BIGQUERY_DATASET"
)

var discreteDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
