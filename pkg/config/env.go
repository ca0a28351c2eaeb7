package config

// EnvPrefix is the envconfig prefix; every variable carries it explicitly.
const EnvPrefix = "TUTORGOAT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv                 = "TUTORGOAT_APP_ENV"
	EnvPort                   = "TUTORGOAT_APP_PORT"
	EnvLogLevel               = "TUTORGOAT_LOG_LEVEL"
	EnvLogFormat              = "TUTORGOAT_LOG_FORMAT"
	EnvDBDSN                  = "TUTORGOAT_DB_DSN"
	EnvDBHost                 = "TUTORGOAT_DB_HOST"
	EnvDBUser                 = "TUTORGOAT_DB_USER"
	EnvDBName                 = "TUTORGOAT_DB_NAME"
	EnvDBPassword             = "TUTORGOAT_DB_PASSWORD"
	EnvRedisURL               = "TUTORGOAT_REDIS_URL"
	EnvJWTSecret              = "TUTORGOAT_JWT_SECRET"
	EnvJWTIssuer              = "TUTORGOAT_JWT_ISSUER"
	EnvJWTExpMins             = "TUTORGOAT_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "TUTORGOAT_REFRESH_TOKEN_TTL_MINUTES"
	EnvGCPProjectID           = "TUTORGOAT_GCP_PROJECT_ID"
	EnvGCSBucket              = "TUTORGOAT_GCS_BUCKET_NAME"
	EnvGCSUploadExpiry        = "TUTORGOAT_GCS_UPLOAD_URL_EXPIRY"
	EnvPubSubInquiryTopic     = "TUTORGOAT_PUBSUB_INQUIRY_TOPIC"
	EnvPubSubInquirySub       = "TUTORGOAT_PUBSUB_INQUIRY_SUBSCRIPTION"
	EnvUploadAllowedMIMETypes = "TUTORGOAT_UPLOAD_ALLOWED_MIME_TYPES"
	EnvAdminMaxLoginAttempts  = "TUTORGOAT_ADMIN_MAX_LOGIN_ATTEMPTS"
	EnvAdminLockDuration      = "TUTORGOAT_ADMIN_LOCK_DURATION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
