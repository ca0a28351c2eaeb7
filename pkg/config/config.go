package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"google.golang.org/api/option"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	AdminLockout  AdminLockoutConfig
	FeatureFlags  FeatureFlagsConfig
	Lifecycle     LifecycleConfig
	Eventing      EventingConfig
	GCP           GCPConfig
	GCS           GCSConfig
	Uploads       UploadsConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Email         EmailConfig
	Realtime      RealtimeConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"TUTORGOAT_APP_ENV" required:"true"`
	Port         string   `envconfig:"TUTORGOAT_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"TUTORGOAT_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"TUTORGOAT_LOG_WARN_STACK" default:"false"`
	LogFormat    string   `envconfig:"TUTORGOAT_LOG_FORMAT" default:"json"`
	PublicURL    string   `envconfig:"TUTORGOAT_PUBLIC_URL" default:"http://localhost:3000"`
	CORSOrigins  []string `envconfig:"TUTORGOAT_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"TUTORGOAT_SERVICE_KIND" default:"api"`
	// MetricsAddr enables a /metrics listener on background workers.
	MetricsAddr string `envconfig:"TUTORGOAT_METRICS_ADDR"`
}

type DBConfig struct {
	DSN    string `envconfig:"TUTORGOAT_DB_DSN"`
	Driver string `envconfig:"TUTORGOAT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"TUTORGOAT_DB_HOST"`
	LegacyPort     int    `envconfig:"TUTORGOAT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TUTORGOAT_DB_USER"`
	LegacyPassword string `envconfig:"TUTORGOAT_DB_PASSWORD"`
	LegacyName     string `envconfig:"TUTORGOAT_DB_NAME"`
	LegacySSLMode  string `envconfig:"TUTORGOAT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TUTORGOAT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TUTORGOAT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TUTORGOAT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TUTORGOAT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"TUTORGOAT_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TUTORGOAT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"TUTORGOAT_REDIS_ADDR"`
	Password     string        `envconfig:"TUTORGOAT_REDIS_PASSWORD"`
	DB           int           `envconfig:"TUTORGOAT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TUTORGOAT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TUTORGOAT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TUTORGOAT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TUTORGOAT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TUTORGOAT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"TUTORGOAT_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"TUTORGOAT_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"TUTORGOAT_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"TUTORGOAT_REFRESH_TOKEN_TTL_MINUTES" default:"10080"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"TUTORGOAT_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"TUTORGOAT_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"TUTORGOAT_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"TUTORGOAT_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"TUTORGOAT_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"TUTORGOAT_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"15m"`
	LoginEmailLimit int           `envconfig:"TUTORGOAT_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"TUTORGOAT_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	InquiryWindow   time.Duration `envconfig:"TUTORGOAT_RATE_LIMIT_INQUIRY_WINDOW" default:"1h"`
	InquiryIPLimit  int           `envconfig:"TUTORGOAT_RATE_LIMIT_INQUIRY_IP_LIMIT" default:"10"`
	ContactWindow   time.Duration `envconfig:"TUTORGOAT_RATE_LIMIT_CONTACT_WINDOW" default:"1h"`
	ContactIPLimit  int           `envconfig:"TUTORGOAT_RATE_LIMIT_CONTACT_IP_LIMIT" default:"5"`
}

// AdminLockoutConfig controls account locking after repeated failed logins.
type AdminLockoutConfig struct {
	MaxAttempts  int           `envconfig:"TUTORGOAT_ADMIN_MAX_LOGIN_ATTEMPTS" default:"5"`
	LockDuration time.Duration `envconfig:"TUTORGOAT_ADMIN_LOCK_DURATION" default:"2h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate       bool `envconfig:"TUTORGOAT_AUTO_MIGRATE" default:"false"`
	EmitStatusEvents  bool `envconfig:"TUTORGOAT_EMIT_STATUS_EVENTS" default:"true"`
	TransitionLocking bool `envconfig:"TUTORGOAT_TRANSITION_LOCKING" default:"true"`
}

// LifecycleConfig tunes the per-inquiry transition lock.
type LifecycleConfig struct {
	LockTTL        time.Duration `envconfig:"TUTORGOAT_LIFECYCLE_LOCK_TTL" default:"10s"`
	LockRetries    int           `envconfig:"TUTORGOAT_LIFECYCLE_LOCK_RETRIES" default:"5"`
	LockRetryDelay time.Duration `envconfig:"TUTORGOAT_LIFECYCLE_LOCK_RETRY_DELAY" default:"100ms"`
	MaxBulkItems   int           `envconfig:"TUTORGOAT_LIFECYCLE_MAX_BULK_ITEMS" default:"100"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"TUTORGOAT_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"TUTORGOAT_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"TUTORGOAT_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"TUTORGOAT_GOOGLE_APPLICATION_CREDENTIALS"`
}

// ClientOptions turns the credential settings into options shared by the
// Pub/Sub and Cloud Storage clients. Empty settings fall back to ADC.
func (g GCPConfig) ClientOptions() []option.ClientOption {
	switch {
	case strings.TrimSpace(g.CredentialsJSON) != "":
		return []option.ClientOption{option.WithCredentialsJSON([]byte(g.CredentialsJSON))}
	case strings.TrimSpace(g.ApplicationCredentials) != "":
		return []option.ClientOption{option.WithCredentialsFile(g.ApplicationCredentials)}
	default:
		return nil
	}
}

type GCSConfig struct {
	BucketName        string        `envconfig:"TUTORGOAT_GCS_BUCKET_NAME" required:"true"`
	UploadURLExpiry   time.Duration `envconfig:"TUTORGOAT_GCS_UPLOAD_URL_EXPIRY" default:"15m"`
	DownloadURLExpiry time.Duration `envconfig:"TUTORGOAT_GCS_DOWNLOAD_URL_EXPIRY" default:"10m"`
	ObjectPrefix      string        `envconfig:"TUTORGOAT_GCS_OBJECT_PREFIX" default:"inquiries"`
}

// UploadsConfig limits public attachment uploads.
type UploadsConfig struct {
	MaxFileMB    int      `envconfig:"TUTORGOAT_UPLOAD_MAX_FILE_MB" default:"10"`
	MaxFiles     int      `envconfig:"TUTORGOAT_UPLOAD_MAX_FILES" default:"5"`
	AllowedMIMEs []string `envconfig:"TUTORGOAT_UPLOAD_ALLOWED_MIME_TYPES" default:"application/pdf,application/msword,application/vnd.openxmlformats-officedocument.wordprocessingml.document,text/plain,image/jpeg,image/png,image/gif"`
}

// MaxFileBytes returns the per-file limit in bytes.
func (u UploadsConfig) MaxFileBytes() int64 {
	return int64(u.MaxFileMB) * 1024 * 1024
}

type PubSubConfig struct {
	InquiryTopic        string `envconfig:"TUTORGOAT_PUBSUB_INQUIRY_TOPIC" default:"tg-inquiry-events"`
	InquirySubscription string `envconfig:"TUTORGOAT_PUBSUB_INQUIRY_SUBSCRIPTION" default:"tg-inquiry-notifications"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"TUTORGOAT_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"TUTORGOAT_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"TUTORGOAT_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// EmailConfig configures the SMTP sender used by the notifications worker.
type EmailConfig struct {
	Enabled    bool   `envconfig:"TUTORGOAT_EMAIL_ENABLED" default:"false"`
	SMTPHost   string `envconfig:"TUTORGOAT_SMTP_HOST" default:"smtp.gmail.com"`
	SMTPPort   int    `envconfig:"TUTORGOAT_SMTP_PORT" default:"587"`
	Username   string `envconfig:"TUTORGOAT_SMTP_USERNAME"`
	Password   string `envconfig:"TUTORGOAT_SMTP_PASSWORD"`
	From       string `envconfig:"TUTORGOAT_EMAIL_FROM" default:"TutorGoat <noreply@tutorgoat.com>"`
	StaffEmail string `envconfig:"TUTORGOAT_STAFF_EMAIL"`
}

type RealtimeConfig struct {
	Channel         string        `envconfig:"TUTORGOAT_REALTIME_CHANNEL" default:"admin-events"`
	ClientBuffer    int           `envconfig:"TUTORGOAT_REALTIME_CLIENT_BUFFER" default:"32"`
	KeepAlivePeriod time.Duration `envconfig:"TUTORGOAT_REALTIME_KEEPALIVE" default:"25s"`
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
