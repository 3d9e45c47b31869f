package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App              AppConfig
	Service          ServiceConfig
	DB               DBConfig
	Redis            RedisConfig
	JWT              JWTConfig
	Password         PasswordConfig
	AuthRateLimit    AuthRateLimitConfig
	MessageRateLimit MessageRateLimitConfig
	FeatureFlags     FeatureFlagsConfig
	GCP              GCPConfig
	GCS              GCSConfig
	Media            MediaConfig
	PubSub           PubSubConfig
	BigQuery         BigQueryConfig
	Marketplace      MarketplaceConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Marketplace.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"UNITRADE_APP_ENV" required:"true"`
	Port         string `envconfig:"UNITRADE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"UNITRADE_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"UNITRADE_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"UNITRADE_LOG_WARN_STACK" default:"false"`
	CORSOrigins  string `envconfig:"UNITRADE_CORS_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// AllowedOrigins splits the comma separated CORS origin list.
func (a AppConfig) AllowedOrigins() []string {
	return splitList(a.CORSOrigins)
}

type ServiceConfig struct {
	Kind string `envconfig:"UNITRADE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"UNITRADE_DB_DSN"`
	Driver string `envconfig:"UNITRADE_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"UNITRADE_DB_HOST"`
	Port     int    `envconfig:"UNITRADE_DB_PORT" default:"5432"`
	User     string `envconfig:"UNITRADE_DB_USER"`
	Password string `envconfig:"UNITRADE_DB_PASSWORD"`
	Name     string `envconfig:"UNITRADE_DB_NAME"`
	SSLMode  string `envconfig:"UNITRADE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"UNITRADE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"UNITRADE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"UNITRADE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"UNITRADE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"UNITRADE_REDIS_URL"`
	Address      string        `envconfig:"UNITRADE_REDIS_ADDR"`
	Password     string        `envconfig:"UNITRADE_REDIS_PASSWORD"`
	DB           int           `envconfig:"UNITRADE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"UNITRADE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"UNITRADE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"UNITRADE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"UNITRADE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"UNITRADE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a Redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type JWTConfig struct {
	Secret            string `envconfig:"UNITRADE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"UNITRADE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"UNITRADE_JWT_EXPIRATION_MINUTES" default:"1440"`
}

// TTL returns the access token lifetime.
func (j JWTConfig) TTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"UNITRADE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"UNITRADE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"UNITRADE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"UNITRADE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"UNITRADE_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"UNITRADE_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"UNITRADE_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"UNITRADE_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"UNITRADE_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"UNITRADE_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"UNITRADE_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type MessageRateLimitConfig struct {
	Window time.Duration `envconfig:"UNITRADE_MESSAGE_RATE_LIMIT_WINDOW" default:"1m"`
	Limit  int           `envconfig:"UNITRADE_MESSAGE_RATE_LIMIT" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate     bool `envconfig:"UNITRADE_AUTO_MIGRATE" default:"false"`
	AsyncImagePurge bool `envconfig:"UNITRADE_ASYNC_IMAGE_PURGE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"UNITRADE_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"UNITRADE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"UNITRADE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName string `envconfig:"UNITRADE_GCS_BUCKET_NAME" required:"true"`
}

type MediaConfig struct {
	MaxUploadMB int `envconfig:"UNITRADE_MAX_UPLOAD_MB" default:"10"`
}

// MaxUploadBytes converts the configured limit to bytes.
func (m MediaConfig) MaxUploadBytes() int64 {
	if m.MaxUploadMB <= 0 {
		return 10 << 20
	}
	return int64(m.MaxUploadMB) << 20
}

type PubSubConfig struct {
	ImageDeletionTopic        string `envconfig:"UNITRADE_PUBSUB_IMAGE_DELETION_TOPIC" default:"unitrade-image-deletion"`
	ImageDeletionSubscription string `envconfig:"UNITRADE_PUBSUB_IMAGE_DELETION_SUBSCRIPTION" default:"unitrade-image-deletion-worker"`
}

type BigQueryConfig struct {
	Dataset    string `envconfig:"UNITRADE_BIGQUERY_DATASET"`
	StatsTable string `envconfig:"UNITRADE_BIGQUERY_STATS_TABLE" default:"platform_stats_snapshots"`
}

// Enabled reports whether the warehouse sink is configured.
func (b BigQueryConfig) Enabled() bool {
	return strings.TrimSpace(b.Dataset) != ""
}

type MarketplaceConfig struct {
	DefaultFee          string        `envconfig:"UNITRADE_DEFAULT_PLATFORM_FEE" default:"30"`
	SoldRetentionDays   int           `envconfig:"UNITRADE_SOLD_RETENTION_DAYS" default:"30"`
	DefaultListingImage string        `envconfig:"UNITRADE_DEFAULT_LISTING_IMAGE" default:"https://images.unsplash.com/photo-1505740420928-5e560c06d30e?w=500"`
	AdminEmails         string        `envconfig:"UNITRADE_ADMIN_EMAILS"`
	CronInterval        time.Duration `envconfig:"UNITRADE_CRON_INTERVAL" default:"24h"`
}

// Fee parses the configured default platform fee.
func (m MarketplaceConfig) Fee() decimal.Decimal {
	fee, err := decimal.NewFromString(strings.TrimSpace(m.DefaultFee))
	if err != nil {
		return decimal.NewFromInt(DefaultPlatformFee)
	}
	return fee
}

// SoldRetention returns how long sold listings are kept before purge.
func (m MarketplaceConfig) SoldRetention() time.Duration {
	days := m.SoldRetentionDays
	if days <= 0 {
		days = DefaultSoldRetentionDays
	}
	return time.Duration(days) * 24 * time.Hour
}

// IsAdminEmail reports whether the address is bootstrapped as an administrator.
func (m MarketplaceConfig) IsAdminEmail(email string) bool {
	needle := strings.ToLower(strings.TrimSpace(email))
	if needle == "" {
		return false
	}
	for _, candidate := range splitList(m.AdminEmails) {
		if strings.ToLower(candidate) == needle {
			return true
		}
	}
	return false
}

func (m MarketplaceConfig) validate() error {
	fee, err := decimal.NewFromString(strings.TrimSpace(m.DefaultFee))
	if err != nil {
		return fmt.Errorf("%s must be numeric: %w", EnvDefaultPlatformFee, err)
	}
	if fee.IsNegative() {
		return fmt.Errorf("%s must not be negative", EnvDefaultPlatformFee)
	}
	return nil
}

func splitList(raw string) []string {
	out := []string{}
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range discreteDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
