package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

type Config struct {
	HTTPPort      string `envconfig:"APP_PORT" default:"3000"`
	StorageDriver string `envconfig:"STORAGE_DRIVER" default:"postgres"`
	LogLevel      string `envconfig:"LOG_LEVEL" default:"info"`
	LogFile       string `envconfig:"LOG_FILE" default:"ipn-relay.log"`

	Bot        BotConfig
	DB         DBConfig
	Rates      RatesConfig
	IPN        IPNConfig
	Dispatcher DispatcherConfig
	JWT        JWTConfig
	Kafka      KafkaConfig
	MongoDB    MongoDBConfig
}

type BotConfig struct {
	Token             string        `envconfig:"BOT_TOKEN" required:"true"`
	AdminUserID       string        `envconfig:"ADMIN_USER_ID" required:"true"`
	CashOutAdminOnly  bool          `envconfig:"CASHOUT_ADMIN_ONLY" default:"true"`
	DefaultFeePercent string        `envconfig:"DEFAULT_FEE_PERCENT" default:"10"`
	SendRPS           float64       `envconfig:"TELEGRAM_SEND_RPS" default:"25"`
	PollTimeout       time.Duration `envconfig:"TELEGRAM_POLL_TIMEOUT" default:"60s"`
}

type DBConfig struct {
	Host          string        `envconfig:"POSTGRES_HOST"     default:"localhost"`
	Port          string        `envconfig:"POSTGRES_PORT"     default:"5432"`
	User          string        `envconfig:"POSTGRES_USER"     default:"postgres"`
	Password      string        `envconfig:"POSTGRES_PASSWORD"`
	DBName        string        `envconfig:"POSTGRES_DB"       default:"ipn_relay"`
	SSLMode       string        `envconfig:"POSTGRES_SSLMODE"  default:"disable"`
	RetryAttempts int           `envconfig:"DB_RETRY_ATTEMPTS" default:"0"`
	RetryDelay    time.Duration `envconfig:"DB_RETRY_DELAY" default:"1s"`
	MaxRetryDelay time.Duration `envconfig:"DB_MAX_RETRY_DELAY" default:"30s"`
}

type RatesConfig struct {
	APIURL   string        `envconfig:"RATES_API_URL" default:"https://cdn.jsdelivr.net/npm/@fawazahmed0/currency-api@latest/v1/currencies/usd.json"`
	Timeout  time.Duration `envconfig:"RATES_TIMEOUT" default:"5s"`
	CacheTTL time.Duration `envconfig:"RATES_CACHE_TTL" default:"30s"`
}

type IPNConfig struct {
	VerifyEnabled  bool          `envconfig:"IPN_VERIFY_ENABLED" default:"false"`
	VerifyURL      string        `envconfig:"IPN_VERIFY_URL" default:"https://ipnpb.paypal.com/cgi-bin/webscr"`
	VerifyTimeout  time.Duration `envconfig:"IPN_VERIFY_TIMEOUT" default:"10s"`
	ForwardTimeout time.Duration `envconfig:"FORWARD_TIMEOUT" default:"10s"`
}

type DispatcherConfig struct {
	Workers   int `envconfig:"DISPATCH_WORKERS" default:"5"`
	QueueSize int `envconfig:"DISPATCH_QUEUE" default:"100"`
}

type JWTConfig struct {
	Secret     string        `envconfig:"JWT_SECRET"`
	Expiration time.Duration `envconfig:"JWT_EXPIRATION" default:"1h"`
}

type KafkaConfig struct {
	Brokers []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	Topic   string   `envconfig:"KAFKA_TOPIC" default:"ipn-payments"`
	Enabled bool     `envconfig:"KAFKA_ENABLED" default:"false"`
}

type MongoDBConfig struct {
	Enabled    bool          `envconfig:"MONGO_ENABLED" default:"false"`
	URI        string        `envconfig:"MONGO_URI" default:"mongodb://localhost:27017"`
	Database   string        `envconfig:"MONGO_DATABASE" default:"ipn_relay"`
	Collection string        `envconfig:"MONGO_COLLECTION" default:"notifications"`
	Timeout    time.Duration `envconfig:"MONGO_TIMEOUT" default:"10s"`
}

func NewConfig() (*Config, error) {
	envFile := "config.env"

	if err := godotenv.Load(envFile); err != nil {
		log.Printf("warning: не удалось загрузить файл %s, используются только системные переменные окружения: %v", envFile, err)
	}

	return Load()
}

// Load читает конфигурацию только из переменных окружения.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("ошибка парсинга конфигурации: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("некорректная конфигурация: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Bot.Token) == "" {
		return errors.New("BOT_TOKEN is required")
	}
	if strings.TrimSpace(c.Bot.AdminUserID) == "" {
		return errors.New("ADMIN_USER_ID is required")
	}

	switch c.StorageDriver {
	case StorageDriverPostgres, StorageDriverMemory:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}

	if c.Dispatcher.Workers <= 0 {
		return errors.New("DISPATCH_WORKERS must be positive")
	}
	if c.Dispatcher.QueueSize <= 0 {
		return errors.New("DISPATCH_QUEUE must be positive")
	}
	if c.Bot.SendRPS <= 0 {
		return errors.New("TELEGRAM_SEND_RPS must be positive")
	}
	return nil
}

// APIEnabled сообщает, смонтирован ли отчётный HTTP API.
func (c *Config) APIEnabled() bool {
	return c.JWT.Secret != ""
}

func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

func (d *DBConfig) MigrationURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}
