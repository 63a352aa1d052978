package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Environment    string
	Port           string
	DatabaseDriver string
	DatabaseURL    string
	SecretKey      string
	LogLevel       string
	AllowedOrigins string

	SessionBackend  string
	SessionDuration time.Duration
	CookieSecure    bool
	RedisAddr       string
	RedisPassword   string

	GoogleClientID          string
	GoogleClientSecret      string
	GoogleClientSecretsFile string

	MailgunDomain      string
	MailgunAPIKey      string
	MailgunSenderEmail string
	MailgunSenderName  string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
}

const defaultSecretKey = "your-secret-key-change-this-in-production"

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("port", "8080")
	v.SetDefault("database_driver", "sqlite3")
	v.SetDefault("database_url", "catalog.db")
	v.SetDefault("secret_key", defaultSecretKey)
	v.SetDefault("log_level", "info")
	v.SetDefault("allowed_origins", "http://localhost:8080")

	v.SetDefault("session_backend", "cookie")
	v.SetDefault("session_duration", "24h")
	v.SetDefault("cookie_secure", false)
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_password", "")

	v.SetDefault("google_client_id", "")
	v.SetDefault("google_client_secret", "")
	v.SetDefault("google_client_secrets_file", "client_secrets.json")

	v.SetDefault("mailgun_domain", "")
	v.SetDefault("mailgun_api_key", "")
	v.SetDefault("mailgun_sender_email", "catalog@localhost")
	v.SetDefault("mailgun_sender_name", "Item Catalog")

	v.SetDefault("minio_endpoint", "")
	v.SetDefault("minio_access_key", "")
	v.SetDefault("minio_secret_key", "")
	v.SetDefault("minio_bucket", "catalog-exports")
	v.SetDefault("minio_use_ssl", false)
}

// Load reads configuration from defaults, an optional config file, a .env
// file and the environment, in increasing order of precedence. An empty
// configFile looks for catalog.yaml in the working directory.
func Load(configFile string) (*Config, error) {
	// a missing .env is fine
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("catalog")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Environment:    v.GetString("environment"),
		Port:           v.GetString("port"),
		DatabaseDriver: v.GetString("database_driver"),
		DatabaseURL:    v.GetString("database_url"),
		SecretKey:      v.GetString("secret_key"),
		LogLevel:       v.GetString("log_level"),
		AllowedOrigins: v.GetString("allowed_origins"),

		SessionBackend:  v.GetString("session_backend"),
		SessionDuration: v.GetDuration("session_duration"),
		CookieSecure:    v.GetBool("cookie_secure"),
		RedisAddr:       v.GetString("redis_addr"),
		RedisPassword:   v.GetString("redis_password"),

		GoogleClientID:          v.GetString("google_client_id"),
		GoogleClientSecret:      v.GetString("google_client_secret"),
		GoogleClientSecretsFile: v.GetString("google_client_secrets_file"),

		MailgunDomain:      v.GetString("mailgun_domain"),
		MailgunAPIKey:      v.GetString("mailgun_api_key"),
		MailgunSenderEmail: v.GetString("mailgun_sender_email"),
		MailgunSenderName:  v.GetString("mailgun_sender_name"),

		MinioEndpoint:  v.GetString("minio_endpoint"),
		MinioAccessKey: v.GetString("minio_access_key"),
		MinioSecretKey: v.GetString("minio_secret_key"),
		MinioBucket:    v.GetString("minio_bucket"),
		MinioUseSSL:    v.GetBool("minio_use_ssl"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case "sqlite3", "pgx":
	default:
		return fmt.Errorf("unsupported database driver %q", c.DatabaseDriver)
	}

	switch c.SessionBackend {
	case "cookie", "redis":
	default:
		return fmt.Errorf("unsupported session backend %q", c.SessionBackend)
	}

	if c.SessionDuration <= 0 {
		return fmt.Errorf("session duration must be positive")
	}

	if !c.IsDevelopment() && c.SecretKey == defaultSecretKey {
		return fmt.Errorf("secret_key must be set outside development")
	}

	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
