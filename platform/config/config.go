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
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
	GetStoreDriver() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetIngestRateLimit() float64
	GetIngestBurst() int
	GetLocation() *time.Location
}

// SchedulerConfig provides settings for the recurring jobs and the asynq worker.
type SchedulerConfig interface {
	GetSchedulerMode() string
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetFollowUpInterval() time.Duration
	GetSummaryCron() string
	GetLocation() *time.Location
}

// WhatsAppConfig provides settings for the outbound messaging gateway.
type WhatsAppConfig interface {
	GetWhatsAppURL() string
	GetWhatsAppKey() string
	GetWhatsAppDeviceID() string
	GetNotifyTimeout() time.Duration
}

// MinIOConfig provides settings for the MinIO-backed spreadsheet mirror.
type MinIOConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMirrorBucket() string
	GetLeadsSheetName() string
	GetLogSheetName() string
	IsMinIOEnabled() bool
}

// SMTPConfig provides settings for the daily summary e-mail copy.
type SMTPConfig interface {
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
	GetSummaryEmailTo() string
	IsSMTPEnabled() bool
}

// LeadsConfig provides the lead engine settings: contacts, keywords and thresholds.
type LeadsConfig interface {
	GetDefaultAdminContact() string
	GetDefaultAssignedContact() string
	GetSourceAssignedContacts() map[string]string
	GetPhoneRegion() string
	GetKeywords() []string
	GetBrandName() string
	GetReminderAfter() time.Duration
	GetStaleAfter() time.Duration
	GetFollowUpBatchLimit() int
	GetSummaryBatchLimit() int
	GetLocation() *time.Location
}

// DiagnosticsConfig provides settings for the integration failure recorder.
type DiagnosticsConfig interface {
	GetRedisURL() string
	GetDiagnosticsKey() string
	GetDiagnosticsMaxEntries() int
}

// =============================================================================
// Main Config Struct
// =============================================================================

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"

	SchedulerModeInProcess = "inprocess"
	SchedulerModeAsynq     = "asynq"
	SchedulerModeDisabled  = "disabled"
)

// DefaultKeywords are the trade terms that mark an inbound message as a new service inquiry.
var DefaultKeywords = []string{
	"paip", "wiring", "renovate", "leaking", "kontraktor",
	"plumber", "electrical", "bumbung",
}

// Config holds all application configuration values.
// It is built once by Load and shared read-only afterwards.
type Config struct {
	Env                    string
	HTTPAddr               string
	DatabaseURL            string
	StoreDriver            string
	Timezone               string
	Location               *time.Location
	CORSAllowAll           bool
	CORSOrigins            []string
	IngestRateLimit        float64
	IngestBurst            int
	DefaultAdminContact    string
	DefaultAssignedContact string
	SourceAssignedContacts map[string]string
	PhoneRegion            string
	Keywords               []string
	BrandName              string
	FollowUpInterval       time.Duration
	ReminderAfter          time.Duration
	StaleAfter             time.Duration
	FollowUpBatchLimit     int
	SummaryCron            string
	SummaryBatchLimit      int
	SchedulerMode          string
	RedisURL               string
	RedisTLSInsecure       bool
	AsynqQueueName         string
	AsynqConcurrency       int
	WhatsAppURL            string
	WhatsAppKey            string
	WhatsAppDeviceID       string
	NotifyTimeout          time.Duration
	MinIOEndpoint          string
	MinIOAccessKey         string
	MinIOSecretKey         string
	MinIOUseSSL            bool
	MirrorBucket           string
	LeadsSheetName         string
	LogSheetName           string
	SMTPHost               string
	SMTPPort               int
	SMTPUsername           string
	SMTPPassword           string
	EmailFromName          string
	EmailFromAddress       string
	SummaryEmailTo         string
	DiagnosticsKey         string
	DiagnosticsMaxEntries  int
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }
func (c *Config) GetStoreDriver() string { return c.StoreDriver }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string         { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool       { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string    { return c.CORSOrigins }
func (c *Config) GetIngestRateLimit() float64 { return c.IngestRateLimit }
func (c *Config) GetIngestBurst() int         { return c.IngestBurst }
func (c *Config) GetLocation() *time.Location { return c.Location }

// SchedulerConfig implementation
func (c *Config) GetSchedulerMode() string           { return c.SchedulerMode }
func (c *Config) GetRedisURL() string                { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool          { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string          { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int           { return c.AsynqConcurrency }
func (c *Config) GetFollowUpInterval() time.Duration { return c.FollowUpInterval }
func (c *Config) GetSummaryCron() string             { return c.SummaryCron }

// WhatsAppConfig implementation
func (c *Config) GetWhatsAppURL() string          { return c.WhatsAppURL }
func (c *Config) GetWhatsAppKey() string          { return c.WhatsAppKey }
func (c *Config) GetWhatsAppDeviceID() string     { return c.WhatsAppDeviceID }
func (c *Config) GetNotifyTimeout() time.Duration { return c.NotifyTimeout }

// MinIOConfig implementation
func (c *Config) GetMinIOEndpoint() string  { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool      { return c.MinIOUseSSL }
func (c *Config) GetMirrorBucket() string   { return c.MirrorBucket }
func (c *Config) GetLeadsSheetName() string { return c.LeadsSheetName }
func (c *Config) GetLogSheetName() string   { return c.LogSheetName }
func (c *Config) IsMinIOEnabled() bool      { return c.MinIOEndpoint != "" }

// SMTPConfig implementation
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }
func (c *Config) GetSummaryEmailTo() string   { return c.SummaryEmailTo }
func (c *Config) IsSMTPEnabled() bool {
	return c.SMTPHost != "" && c.SummaryEmailTo != "" && c.EmailFromAddress != ""
}

// LeadsConfig implementation
func (c *Config) GetDefaultAdminContact() string    { return c.DefaultAdminContact }
func (c *Config) GetDefaultAssignedContact() string { return c.DefaultAssignedContact }
func (c *Config) GetSourceAssignedContacts() map[string]string {
	return c.SourceAssignedContacts
}
func (c *Config) GetPhoneRegion() string          { return c.PhoneRegion }
func (c *Config) GetKeywords() []string           { return c.Keywords }
func (c *Config) GetBrandName() string            { return c.BrandName }
func (c *Config) GetReminderAfter() time.Duration { return c.ReminderAfter }
func (c *Config) GetStaleAfter() time.Duration    { return c.StaleAfter }
func (c *Config) GetFollowUpBatchLimit() int      { return c.FollowUpBatchLimit }
func (c *Config) GetSummaryBatchLimit() int       { return c.SummaryBatchLimit }

// DiagnosticsConfig implementation
func (c *Config) GetDiagnosticsKey() string     { return c.DiagnosticsKey }
func (c *Config) GetDiagnosticsMaxEntries() int { return c.DiagnosticsMaxEntries }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	keywords, err := loadKeywords(getEnv("LEAD_KEYWORDS", ""), getEnv("LEAD_KEYWORDS_FILE", ""))
	if err != nil {
		return nil, err
	}

	redisURL := getEnv("REDIS_URL", "")
	schedulerMode := strings.ToLower(getEnv("SCHEDULER_MODE", ""))
	if schedulerMode == "" {
		schedulerMode = SchedulerModeInProcess
		if redisURL != "" {
			schedulerMode = SchedulerModeAsynq
		}
	}

	cfg := &Config{
		Env:                    getEnv("APP_ENV", "development"),
		HTTPAddr:               getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:            getEnv("DATABASE_URL", ""),
		StoreDriver:            strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres)),
		Timezone:               getEnv("APP_TIMEZONE", "Asia/Kuala_Lumpur"),
		CORSAllowAll:           corsAllowAll,
		CORSOrigins:            corsOrigins,
		IngestRateLimit:        mustFloat(getEnv("INGEST_RATE_LIMIT", "5")),
		IngestBurst:            mustInt(getEnv("INGEST_RATE_BURST", "20")),
		DefaultAdminContact:    strings.TrimSpace(getEnv("DEFAULT_ADMIN_CONTACT", "")),
		DefaultAssignedContact: strings.TrimSpace(getEnv("DEFAULT_ASSIGNED_CONTACT", "")),
		SourceAssignedContacts: loadSourceContacts(),
		PhoneRegion:            strings.ToUpper(getEnv("PHONE_DEFAULT_REGION", "MY")),
		Keywords:               keywords,
		BrandName:              getEnv("BRAND_NAME", "PK"),
		FollowUpInterval:       mustDuration(getEnv("FOLLOWUP_SCAN_INTERVAL", "5m")),
		ReminderAfter:          mustDuration(getEnv("FOLLOWUP_REMINDER_AFTER", "15m")),
		StaleAfter:             mustDuration(getEnv("FOLLOWUP_STALE_AFTER", "24h")),
		FollowUpBatchLimit:     mustInt(getEnv("FOLLOWUP_BATCH_LIMIT", "5000")),
		SummaryCron:            getEnv("SUMMARY_CRON", "0 9 * * *"),
		SummaryBatchLimit:      mustInt(getEnv("SUMMARY_BATCH_LIMIT", "10000")),
		SchedulerMode:          schedulerMode,
		RedisURL:               redisURL,
		RedisTLSInsecure:       strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:         getEnv("ASYNQ_QUEUE", "leads"),
		AsynqConcurrency:       mustInt(getEnv("ASYNQ_CONCURRENCY", "2")),
		WhatsAppURL:            getEnv("WHATSAPP_API_URL", ""),
		WhatsAppKey:            getEnv("WHATSAPP_API_KEY", ""),
		WhatsAppDeviceID:       getEnv("WHATSAPP_DEVICE_ID", ""),
		NotifyTimeout:          mustDuration(getEnv("NOTIFY_TIMEOUT", "10s")),
		MinIOEndpoint:          getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:         getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:         getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:            strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MirrorBucket:           getEnv("MINIO_BUCKET_SHEETS", "lead-sheets"),
		LeadsSheetName:         getEnv("SHEET_LEADS_NAME", "PK Leads Master"),
		LogSheetName:           getEnv("SHEET_LOGS_NAME", "PK Lead Logs"),
		SMTPHost:               getEnv("SMTP_HOST", ""),
		SMTPPort:               mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:           getEnv("SMTP_USERNAME", ""),
		SMTPPassword:           getEnv("SMTP_PASSWORD", ""),
		EmailFromName:          getEnv("EMAIL_FROM_NAME", "Lead Engine"),
		EmailFromAddress:       getEnv("EMAIL_FROM_ADDRESS", ""),
		SummaryEmailTo:         getEnv("SUMMARY_EMAIL_TO", ""),
		DiagnosticsKey:         getEnv("DIAGNOSTICS_KEY", "leads:diagnostics"),
		DiagnosticsMaxEntries:  mustInt(getEnv("DIAGNOSTICS_MAX_ENTRIES", "500")),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DefaultAdminContact == "" {
		return fmt.Errorf("DEFAULT_ADMIN_CONTACT is required")
	}
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER is postgres")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver)
	}
	switch c.SchedulerMode {
	case SchedulerModeInProcess, SchedulerModeDisabled:
	case SchedulerModeAsynq:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when SCHEDULER_MODE is asynq")
		}
		if c.StoreDriver != StoreDriverPostgres {
			return fmt.Errorf("SCHEDULER_MODE asynq requires STORE_DRIVER postgres")
		}
	default:
		return fmt.Errorf("unsupported SCHEDULER_MODE %q", c.SchedulerMode)
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("invalid APP_TIMEZONE %q: %w", c.Timezone, err)
	}
	c.Location = loc

	if len(c.Keywords) == 0 {
		return fmt.Errorf("at least one lead keyword is required")
	}
	if c.FollowUpInterval <= 0 || c.ReminderAfter <= 0 || c.StaleAfter <= 0 {
		return fmt.Errorf("follow-up durations must be positive")
	}
	positive := []struct {
		key   string
		value int
	}{
		{"FOLLOWUP_BATCH_LIMIT", c.FollowUpBatchLimit},
		{"SUMMARY_BATCH_LIMIT", c.SummaryBatchLimit},
		{"ASYNQ_CONCURRENCY", c.AsynqConcurrency},
		{"DIAGNOSTICS_MAX_ENTRIES", c.DiagnosticsMaxEntries},
		{"SMTP_PORT", c.SMTPPort},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return fmt.Errorf("%s must be a positive integer", p.key)
		}
	}
	if c.IngestRateLimit <= 0 || c.IngestBurst <= 0 {
		return fmt.Errorf("INGEST_RATE_LIMIT and INGEST_RATE_BURST must be positive")
	}
	if c.NotifyTimeout <= 0 {
		return fmt.Errorf("NOTIFY_TIMEOUT must be positive")
	}
	if _, err := cron.ParseStandard(c.SummaryCron); err != nil {
		return fmt.Errorf("invalid SUMMARY_CRON %q: %w", c.SummaryCron, err)
	}
	if c.CORSAllowAll && len(c.CORSOrigins) == 0 {
		c.CORSOrigins = []string{"*"}
	}
	return nil
}

// keywordFile is the YAML layout accepted by LEAD_KEYWORDS_FILE.
type keywordFile struct {
	Keywords []string `yaml:"keywords"`
}

func loadKeywords(csv, file string) ([]string, error) {
	if file != "" {
		raw, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read LEAD_KEYWORDS_FILE: %w", err)
		}
		keywords, err := ParseKeywordsYAML(raw)
		if err != nil {
			return nil, fmt.Errorf("parse LEAD_KEYWORDS_FILE: %w", err)
		}
		return keywords, nil
	}
	if strings.TrimSpace(csv) != "" {
		return normalizeKeywords(splitCSV(csv)), nil
	}
	return append([]string(nil), DefaultKeywords...), nil
}

// ParseKeywordsYAML decodes a `keywords:` list and lowercases every entry.
func ParseKeywordsYAML(raw []byte) ([]string, error) {
	var doc keywordFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return normalizeKeywords(doc.Keywords), nil
}

func normalizeKeywords(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		kw := strings.ToLower(strings.TrimSpace(value))
		if kw == "" {
			continue
		}
		if _, ok := seen[kw]; ok {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}
	return out
}

func loadSourceContacts() map[string]string {
	contacts := make(map[string]string)
	for _, source := range []string{"website", "facebook", "manual", "messaging"} {
		key := "DEFAULT_ASSIGNED_CONTACT_" + strings.ToUpper(source)
		if value := strings.TrimSpace(getEnv(key, "")); value != "" {
			contacts[source] = value
		}
	}
	return contacts
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

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func mustFloat(value string) float64 {
	result, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
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
