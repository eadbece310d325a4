package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// MinSecretLength is the shortest accepted HS256 signing secret, in bytes.
const MinSecretLength = 32

var (
	ErrMissingSecret = errors.New("JWT_SECRET is required")
	ErrShortSecret   = fmt.Errorf("JWT_SECRET must be at least %d bytes", MinSecretLength)
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	Service   string `env:"SERVICE_NAME"`
	JWTSecret string `env:"JWT_SECRET"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`

	Mongo     MongoConfig
	Redis     RedisConfig
	Directory DirectoryConfig
	Broker    BrokerConfig
	Outbox    OutboxConfig
	SMTP      SMTPConfig
	Mail      MailConfig
}

type MongoConfig struct {
	URI      string        `env:"MONGO_URI,     default=mongodb://localhost:27017/?replicaSet=rs0"`
	Database string        `env:"MONGO_DB,      default=clinic_users"`
	Timeout  time.Duration `env:"MONGO_TIMEOUT, default=10s"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

// DirectoryConfig locates the user service for login lookups.
type DirectoryConfig struct {
	BaseURL string        `env:"DIRECTORY_URL,     default=http://localhost:8081"`
	Timeout time.Duration `env:"DIRECTORY_TIMEOUT, default=5s"`
}

// BrokerConfig describes the Redis stream carrying registration events.
type BrokerConfig struct {
	Stream       string        `env:"BROKER_STREAM,         default=userTopic"`
	DeadLetter   string        `env:"BROKER_DEAD_LETTER,    default=userTopic.dlq"`
	Group        string        `env:"CONSUMER_GROUP,        default=notification-service"`
	Consumer     string        `env:"CONSUMER_NAME"`
	Workers      int           `env:"CONSUMER_WORKERS,      default=4"`
	Block        time.Duration `env:"BROKER_BLOCK,          default=5s"`
	BatchSize    int64         `env:"BROKER_BATCH_SIZE,     default=16"`
	ClaimMinIdle time.Duration `env:"BROKER_CLAIM_MIN_IDLE, default=1m"`
	MaxDelivery  int64         `env:"BROKER_MAX_DELIVERIES, default=5"`
	DedupTTL     time.Duration `env:"DEDUP_TTL,             default=24h"`
	MaxLen       int64         `env:"BROKER_MAX_LEN,        default=100000"`
}

type OutboxConfig struct {
	PollInterval time.Duration `env:"OUTBOX_POLL_INTERVAL, default=2s"`
	BatchSize    int           `env:"OUTBOX_BATCH_SIZE,    default=50"`
}

type SMTPConfig struct {
	Host     string `env:"SMTP_HOST, default=localhost"`
	Port     int    `env:"SMTP_PORT, default=587"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	// TLSMode is one of auto, starttls, ssl, none.
	TLSMode string `env:"SMTP_TLS_MODE, default=auto"`
}

type MailConfig struct {
	From        string `env:"MAIL_FROM,         default=no-reply@clinic.local"`
	FromName    string `env:"MAIL_FROM_NAME,    default=Clinic"`
	TemplateDir string `env:"MAIL_TEMPLATE_DIR"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return LoadFrom(ctx, envconfig.OsLookuper())
}

// LoadFrom reads configuration through the given lookuper.
func LoadFrom(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: l,
	}); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

// ValidateSigningSecret fails when the token secret is missing or too short.
// Services that sign or verify tokens call it before serving.
func (c *Config) ValidateSigningSecret() error {
	switch {
	case c.JWTSecret == "":
		return ErrMissingSecret
	case len(c.JWTSecret) < MinSecretLength:
		return ErrShortSecret
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
