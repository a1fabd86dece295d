// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// JWTConfig provides settings for the admin introspection endpoints.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// MinIOConfig provides settings for MinIO S3-compatible object storage.
type MinIOConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOMaxFileSize() int64
	GetMinioBucketMediaAssets() string
	IsMinIOEnabled() bool
}

// EmailConfig provides settings for the SMTP fallback notification channel.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetEmailFromName() string
	GetEmailFromAddress() string
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
}

// WhatsAppConfig provides process-level WhatsApp gateway settings. No package
// reads them: outbound sends resolve credentials from the tenant's channel
// binding only, and a tenant without one gets an error.
type WhatsAppConfig interface {
	GetWhatsAppURL() string
	GetWhatsAppKey() string
	GetWhatsAppDeviceID() string
}

// WorkerRoleConfig selects which job-queue handler set a process registers.
type WorkerRoleConfig interface {
	GetWorkerRole() string // core | dispatch | all
}

// PollerConfig tunes the job queue's poll loop.
type PollerConfig interface {
	GetPollInterval() time.Duration
	GetBatchSize() int
	GetPollerConcurrency() int
	GetLeaseHorizon() time.Duration
	GetBaseRetryDelay() time.Duration
	GetMaxRetryDelay() time.Duration
}

// TenancyConfig controls which bots are loadable and how long tenant
// resolutions are cached.
type TenancyConfig interface {
	GetEnabledBots() []string
	GetTenantCacheTTL() time.Duration
	GetCredentialEncryptionKey() string
}

// OperatorConfig controls operator/crew delivery behavior.
type OperatorConfig interface {
	GetOperatorLeadTranslationEnabled() bool
	GetOperatorLeadTargetLang() string
	GetDispatchCrewFallbackEnabled() bool
	GetMaxInlineMediaCount() int
}

// MediaConfig controls media asset retention.
type MediaConfig interface {
	GetMediaTTL() time.Duration
}

// EstimateConfig controls whether the user-facing price range is shown.
type EstimateConfig interface {
	GetEstimateDisplayEnabled() bool
}

// SchedulerConfig provides settings for the asynq-backed periodic sweep
// scheduler that triggers media_cleanup and lease-recovery ticks.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetMediaCleanupCron() string
	GetLeaseRecoveryCron() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env      string
	HTTPAddr string

	DatabaseURL string

	JWTAccessSecret string

	CORSAllowAll   bool
	CORSOrigins    []string
	CORSAllowCreds bool

	MinIOEndpoint          string
	MinIOAccessKey         string
	MinIOSecretKey         string
	MinIOUseSSL            bool
	MinIOMaxFileSize       int64
	MinioBucketMediaAssets string

	EmailEnabled     bool
	EmailFromName    string
	EmailFromAddress string
	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string

	WhatsAppURL      string
	WhatsAppKey      string
	WhatsAppDeviceID string

	WorkerRole string

	PollInterval      time.Duration
	BatchSize         int
	PollerConcurrency int
	LeaseHorizon      time.Duration
	BaseRetryDelay    time.Duration
	MaxRetryDelay     time.Duration

	EnabledBots             []string
	TenantCacheTTL          time.Duration
	CredentialEncryptionKey string

	OperatorLeadTranslationEnabled bool
	OperatorLeadTargetLang         string
	DispatchCrewFallbackEnabled    bool
	MaxInlineMediaCount            int

	MediaTTL time.Duration

	EstimateDisplayEnabled bool

	PricingConfigPath string
	MigrationsDir     string
	MaxDateDays       int
	SessionStaleHint  time.Duration
	SessionTTL        time.Duration

	RedisURL          string
	RedisTLSInsecure  bool
	AsynqQueueName    string
	MediaCleanupCron  string
	LeaseRecoveryCron string
}

// =============================================================================
// Interface Implementations
// =============================================================================

func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

func (c *Config) GetMinIOEndpoint() string          { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string         { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string         { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool              { return c.MinIOUseSSL }
func (c *Config) GetMinIOMaxFileSize() int64        { return c.MinIOMaxFileSize }
func (c *Config) GetMinioBucketMediaAssets() string { return c.MinioBucketMediaAssets }
func (c *Config) IsMinIOEnabled() bool              { return c.MinIOEndpoint != "" }

func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }

func (c *Config) GetWhatsAppURL() string      { return c.WhatsAppURL }
func (c *Config) GetWhatsAppKey() string      { return c.WhatsAppKey }
func (c *Config) GetWhatsAppDeviceID() string { return c.WhatsAppDeviceID }

func (c *Config) GetWorkerRole() string { return c.WorkerRole }

func (c *Config) GetPollInterval() time.Duration   { return c.PollInterval }
func (c *Config) GetBatchSize() int                { return c.BatchSize }
func (c *Config) GetPollerConcurrency() int        { return c.PollerConcurrency }
func (c *Config) GetLeaseHorizon() time.Duration   { return c.LeaseHorizon }
func (c *Config) GetBaseRetryDelay() time.Duration { return c.BaseRetryDelay }
func (c *Config) GetMaxRetryDelay() time.Duration  { return c.MaxRetryDelay }

func (c *Config) GetEnabledBots() []string           { return c.EnabledBots }
func (c *Config) GetTenantCacheTTL() time.Duration   { return c.TenantCacheTTL }
func (c *Config) GetCredentialEncryptionKey() string { return c.CredentialEncryptionKey }

func (c *Config) GetOperatorLeadTranslationEnabled() bool { return c.OperatorLeadTranslationEnabled }
func (c *Config) GetOperatorLeadTargetLang() string       { return c.OperatorLeadTargetLang }
func (c *Config) GetDispatchCrewFallbackEnabled() bool    { return c.DispatchCrewFallbackEnabled }
func (c *Config) GetMaxInlineMediaCount() int             { return c.MaxInlineMediaCount }

func (c *Config) GetMediaTTL() time.Duration { return c.MediaTTL }

func (c *Config) GetEstimateDisplayEnabled() bool { return c.EstimateDisplayEnabled }

func (c *Config) GetRedisURL() string          { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool    { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string    { return c.AsynqQueueName }
func (c *Config) GetMediaCleanupCron() string  { return c.MediaCleanupCron }
func (c *Config) GetLeaseRecoveryCron() string { return c.LeaseRecoveryCron }

func (c *Config) GetPricingConfigPath() string { return c.PricingConfigPath }
func (c *Config) GetMigrationsDir() string     { return c.MigrationsDir }
func (c *Config) GetMaxDateDays() int          { return c.MaxDateDays }
func (c *Config) GetSessionStaleHint() time.Duration { return c.SessionStaleHint }
func (c *Config) GetSessionTTL() time.Duration       { return c.SessionTTL }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	workerRole := strings.ToLower(getEnv("WORKER_ROLE", "all"))

	cfg := &Config{
		Env:      getEnv("APP_ENV", "development"),
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		JWTAccessSecret: getEnv("JWT_ACCESS_SECRET", ""),

		CORSAllowAll:   corsAllowAll,
		CORSOrigins:    corsOrigins,
		CORSAllowCreds: strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),

		MinIOEndpoint:          getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:         getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:         getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:            strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinIOMaxFileSize:       mustInt64(getEnv("MINIO_MAX_FILE_SIZE", "52428800")),
		MinioBucketMediaAssets: getEnv("MINIO_BUCKET_MEDIA_ASSETS", "media-assets"),

		EmailEnabled:     strings.EqualFold(getEnv("EMAIL_ENABLED", "false"), "true"),
		EmailFromName:    getEnv("EMAIL_FROM_NAME", "Dispatch"),
		EmailFromAddress: getEnv("EMAIL_FROM_ADDRESS", ""),
		SMTPHost:         getEnv("SMTP_HOST", ""),
		SMTPPort:         int(mustInt64(getEnv("SMTP_PORT", "587"))),
		SMTPUsername:     getEnv("SMTP_USERNAME", ""),
		SMTPPassword:     getEnv("SMTP_PASSWORD", ""),

		WhatsAppURL:      getEnv("WHATSAPP_GATEWAY_URL", ""),
		WhatsAppKey:      getEnv("WHATSAPP_GATEWAY_KEY", ""),
		WhatsAppDeviceID: getEnv("WHATSAPP_DEVICE_ID", ""),

		WorkerRole: workerRole,

		PollInterval:      mustDuration(getEnv("JOB_POLL_INTERVAL", "500ms")),
		BatchSize:         int(mustInt64(getEnv("JOB_BATCH_SIZE", "5"))),
		PollerConcurrency: int(mustInt64(getEnv("JOB_POLLER_CONCURRENCY", "2"))),
		LeaseHorizon:      mustDuration(getEnv("JOB_LEASE_HORIZON", "5m")),
		BaseRetryDelay:    mustDuration(getEnv("JOB_BASE_RETRY_DELAY", "60s")),
		MaxRetryDelay:     mustDuration(getEnv("JOB_MAX_RETRY_DELAY", "1h")),

		EnabledBots:             splitCSV(getEnv("ENABLED_BOTS", "moving_bot_v1")),
		TenantCacheTTL:          mustDuration(getEnv("TENANT_CACHE_TTL", "5m")),
		CredentialEncryptionKey: getEnv("CREDENTIAL_ENCRYPTION_KEY", ""),

		OperatorLeadTranslationEnabled: strings.EqualFold(getEnv("OPERATOR_LEAD_TRANSLATION_ENABLED", "false"), "true"),
		OperatorLeadTargetLang:         getEnv("OPERATOR_LEAD_TARGET_LANG", "ru"),
		DispatchCrewFallbackEnabled:    strings.EqualFold(getEnv("DISPATCH_CREW_FALLBACK_ENABLED", "true"), "true"),
		MaxInlineMediaCount:            int(mustInt64(getEnv("MAX_INLINE_MEDIA_COUNT", "3"))),

		MediaTTL: mustDuration(getEnv("MEDIA_TTL", "720h")),

		EstimateDisplayEnabled: strings.EqualFold(getEnv("ESTIMATE_DISPLAY_ENABLED", "true"), "true"),

		PricingConfigPath: getEnv("PRICING_CONFIG_PATH", "configs/pricing.json"),
		MigrationsDir:     getEnv("MIGRATIONS_DIR", "migrations"),
		MaxDateDays:       int(mustInt64(getEnv("MAX_DATE_DAYS", "180"))),
		SessionStaleHint:  mustDuration(getEnv("SESSION_STALE_HINT", "1h")),
		SessionTTL:        mustDuration(getEnv("SESSION_TTL", "6h")),

		RedisURL:          getEnv("REDIS_URL", ""),
		RedisTLSInsecure:  strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:    getEnv("ASYNQ_QUEUE_NAME", "sweeps"),
		MediaCleanupCron:  getEnv("MEDIA_CLEANUP_CRON", "@every 1h"),
		LeaseRecoveryCron: getEnv("LEASE_RECOVERY_CRON", "@every 1m"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.WorkerRole != "core" && cfg.WorkerRole != "dispatch" && cfg.WorkerRole != "all" {
		return nil, fmt.Errorf("WORKER_ROLE must be one of core|dispatch|all, got %q", cfg.WorkerRole)
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if cfg.EmailEnabled && (cfg.SMTPHost == "" || cfg.EmailFromAddress == "") {
		return nil, fmt.Errorf("SMTP_HOST and EMAIL_FROM_ADDRESS are required when EMAIL_ENABLED is true")
	}
	if len(cfg.EnabledBots) == 0 {
		return nil, fmt.Errorf("ENABLED_BOTS must list at least one bot id")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt64(value string) int64 {
	result, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
