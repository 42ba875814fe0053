package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	EvidenceStorageLocal = "local"
	EvidenceStorageOSS   = "oss"

	TransitionPolicyPermissive = "permissive"
	TransitionPolicyStrict     = "strict"
)

type HTTPConfig struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
}

type DBConfig struct {
	DSN              string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
	OperationTimeout time.Duration
}

type AuthConfig struct {
	AccessSecret      string
	AccessTTL         time.Duration
	BootstrapName     string
	BootstrapEmail    string
	BootstrapPassword string
}

type EvidenceConfig struct {
	Storage  string
	Dir      string
	MaxBytes int64
}

type OSSConfig struct {
	Endpoint        string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	PublicBaseURL   string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

type NotificationConfig struct {
	SubmissionReceipt bool
	TrackingBaseURL   string
}

type OutboxConfig struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type RedisConfig struct {
	Addr          string
	Password      string
	RatePerMinute int
}

type LifecycleConfig struct {
	TransitionPolicy string
	Timezone         string
}

type Config struct {
	Environment  string
	LogLevel     string
	HTTP         HTTPConfig
	DB           DBConfig
	Auth         AuthConfig
	Evidence     EvidenceConfig
	OSS          OSSConfig
	SMTP         SMTPConfig
	Notification NotificationConfig
	Outbox       OutboxConfig
	Kafka        KafkaConfig
	Redis        RedisConfig
	Lifecycle    LifecycleConfig
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")
	v.AddConfigPath("./internal/config")

	v.AutomaticEnv()

	_ = v.ReadInConfig()

	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		LogLevel:    v.GetString("LOG_LEVEL"),
		HTTP: HTTPConfig{
			Host:            v.GetString("HTTP_HOST"),
			Port:            v.GetInt("HTTP_PORT"),
			ShutdownTimeout: v.GetDuration("HTTP_SHUTDOWN_TIMEOUT"),
		},
		DB: DBConfig{
			DSN:              v.GetString("DB_DSN"),
			MaxOpenConns:     v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:     v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime:  v.GetDuration("DB_CONN_MAX_LIFETIME"),
			OperationTimeout: v.GetDuration("DB_OPERATION_TIMEOUT"),
		},
		Auth: AuthConfig{
			AccessSecret:      v.GetString("JWT_ACCESS_SECRET"),
			AccessTTL:         v.GetDuration("JWT_ACCESS_TTL"),
			BootstrapName:     v.GetString("ADMIN_BOOTSTRAP_NAME"),
			BootstrapEmail:    v.GetString("ADMIN_BOOTSTRAP_EMAIL"),
			BootstrapPassword: v.GetString("ADMIN_BOOTSTRAP_PASSWORD"),
		},
		Evidence: EvidenceConfig{
			Storage:  strings.ToLower(strings.TrimSpace(v.GetString("EVIDENCE_STORAGE"))),
			Dir:      v.GetString("EVIDENCE_DIR"),
			MaxBytes: v.GetInt64("EVIDENCE_MAX_BYTES"),
		},
		OSS: OSSConfig{
			Endpoint:        v.GetString("OSS_ENDPOINT"),
			AccessKeyID:     v.GetString("OSS_ACCESS_KEY_ID"),
			AccessKeySecret: v.GetString("OSS_ACCESS_KEY_SECRET"),
			Bucket:          v.GetString("OSS_BUCKET"),
			PublicBaseURL:   v.GetString("OSS_PUBLIC_BASE_URL"),
		},
		SMTP: SMTPConfig{
			Host:     v.GetString("SMTP_HOST"),
			Port:     v.GetInt("SMTP_PORT"),
			Username: v.GetString("SMTP_USERNAME"),
			Password: v.GetString("SMTP_PASSWORD"),
			From:     v.GetString("SMTP_FROM"),
			Timeout:  v.GetDuration("SMTP_TIMEOUT"),
		},
		Notification: NotificationConfig{
			SubmissionReceipt: v.GetBool("NOTIFY_SUBMISSION_RECEIPT"),
			TrackingBaseURL:   v.GetString("TRACKING_BASE_URL"),
		},
		Outbox: OutboxConfig{
			PollInterval: v.GetDuration("OUTBOX_POLL_INTERVAL"),
			BatchSize:    v.GetInt("OUTBOX_BATCH_SIZE"),
			MaxAttempts:  v.GetInt("OUTBOX_MAX_ATTEMPTS"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(v.GetString("KAFKA_BROKERS")),
			Topic:   v.GetString("KAFKA_TOPIC"),
		},
		Redis: RedisConfig{
			Addr:          v.GetString("REDIS_ADDR"),
			Password:      v.GetString("REDIS_PASSWORD"),
			RatePerMinute: v.GetInt("RATE_LIMIT_PER_MINUTE"),
		},
		Lifecycle: LifecycleConfig{
			TransitionPolicy: strings.ToLower(strings.TrimSpace(v.GetString("STATUS_TRANSITION_POLICY"))),
			Timezone:         v.GetString("APP_TIMEZONE"),
		},
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.HTTP.Host == "" {
		cfg.HTTP.Host = "0.0.0.0"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.HTTP.ShutdownTimeout <= 0 {
		cfg.HTTP.ShutdownTimeout = 20 * time.Second
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.DB.OperationTimeout <= 0 {
		cfg.DB.OperationTimeout = 10 * time.Second
	}
	if cfg.Auth.AccessTTL <= 0 {
		cfg.Auth.AccessTTL = 12 * time.Hour
	}
	if cfg.Auth.BootstrapName == "" {
		cfg.Auth.BootstrapName = "Administrator"
	}
	if cfg.Evidence.Storage == "" {
		cfg.Evidence.Storage = EvidenceStorageLocal
	}
	if cfg.Evidence.Dir == "" {
		cfg.Evidence.Dir = "./uploads"
	}
	if cfg.Evidence.MaxBytes <= 0 {
		cfg.Evidence.MaxBytes = 5 << 20
	}
	if cfg.SMTP.Port == 0 {
		cfg.SMTP.Port = 587
	}
	if cfg.SMTP.Timeout <= 0 {
		cfg.SMTP.Timeout = 15 * time.Second
	}
	if cfg.SMTP.From == "" {
		cfg.SMTP.From = "SIPelan Disnaker <no-reply@sipelan.local>"
	}
	if cfg.Outbox.PollInterval <= 0 {
		cfg.Outbox.PollInterval = 5 * time.Second
	}
	if cfg.Outbox.BatchSize <= 0 {
		cfg.Outbox.BatchSize = 20
	}
	if cfg.Outbox.MaxAttempts <= 0 {
		cfg.Outbox.MaxAttempts = 8
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "sipelan-pengaduan"
	}
	if cfg.Redis.RatePerMinute <= 0 {
		cfg.Redis.RatePerMinute = 30
	}
	if cfg.Lifecycle.TransitionPolicy == "" {
		cfg.Lifecycle.TransitionPolicy = TransitionPolicyPermissive
	}
	if cfg.Lifecycle.Timezone == "" {
		cfg.Lifecycle.Timezone = "Asia/Jakarta"
	}
}

func validate(cfg *Config) error {
	if cfg.DB.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if cfg.Auth.AccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if (cfg.Auth.BootstrapEmail == "") != (cfg.Auth.BootstrapPassword == "") {
		return fmt.Errorf("ADMIN_BOOTSTRAP_EMAIL and ADMIN_BOOTSTRAP_PASSWORD must be set together")
	}
	switch cfg.Evidence.Storage {
	case EvidenceStorageLocal:
	case EvidenceStorageOSS:
		if cfg.OSS.Endpoint == "" || cfg.OSS.Bucket == "" {
			return fmt.Errorf("OSS_ENDPOINT and OSS_BUCKET are required for oss evidence storage")
		}
		if cfg.OSS.AccessKeyID == "" || cfg.OSS.AccessKeySecret == "" {
			return fmt.Errorf("OSS_ACCESS_KEY_ID and OSS_ACCESS_KEY_SECRET are required for oss evidence storage")
		}
	default:
		return fmt.Errorf("EVIDENCE_STORAGE must be one of local, oss, got %q", cfg.Evidence.Storage)
	}
	switch cfg.Lifecycle.TransitionPolicy {
	case TransitionPolicyPermissive, TransitionPolicyStrict:
	default:
		return fmt.Errorf("STATUS_TRANSITION_POLICY must be one of permissive, strict, got %q", cfg.Lifecycle.TransitionPolicy)
	}
	return nil
}

// Location resolves the configured timezone, falling back to WIB.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Lifecycle.Timezone)
	if err != nil {
		return time.FixedZone("WIB", 7*60*60)
	}
	return loc
}

func (c *Config) MailEnabled() bool {
	return strings.TrimSpace(c.SMTP.Host) != ""
}

func (c *Config) EventsEnabled() bool {
	return len(c.Kafka.Brokers) > 0
}

func (c *Config) RateLimitEnabled() bool {
	return strings.TrimSpace(c.Redis.Addr) != ""
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
