package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	State    StateConfig    `mapstructure:"state"`
	Orders   OrdersConfig   `mapstructure:"orders"`
	Commerce CommerceConfig `mapstructure:"commerce"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Cart     CartConfig     `mapstructure:"cart"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	CORS     CORSConfig     `mapstructure:"cors"`
	SMTP     SMTPConfig     `mapstructure:"smtp"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Host                    string        `mapstructure:"host"`
	Port                    int           `mapstructure:"port"`
	Mode                    string        `mapstructure:"mode"`
	ReadTimeout             time.Duration `mapstructure:"read_timeout"`
	WriteTimeout            time.Duration `mapstructure:"write_timeout"`
	GracefulShutdownTimeout time.Duration `mapstructure:"graceful_shutdown_timeout"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	DB              string        `mapstructure:"db"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type StateConfig struct {
	Backend string `mapstructure:"backend"` // "redis" | "memory"
}

type OrdersConfig struct {
	Backend string `mapstructure:"backend"` // "postgres" | "memory"
}

type CommerceConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	ClientID       string        `mapstructure:"client_id"`
	CatalogNodeID  string        `mapstructure:"catalog_node_id"`
	Channel        string        `mapstructure:"channel"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RateLimitRPS   float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
	// Location applied to cart expiry timestamps that carry no zone offset.
	CartExpiryLocation string `mapstructure:"cart_expiry_location"`
}

type CacheConfig struct {
	SafetyMargin time.Duration `mapstructure:"safety_margin"`
}

type CartConfig struct {
	TreatMissingAsRemoved bool `mapstructure:"treat_missing_as_removed"`
}

type TelegramConfig struct {
	Token         string        `mapstructure:"token"`
	APIURL        string        `mapstructure:"api_url"`
	WebhookURL    string        `mapstructure:"webhook_url"`
	WebhookSecret string        `mapstructure:"webhook_secret"`
	PollTimeout   time.Duration `mapstructure:"poll_timeout"`
}

type JWTConfig struct {
	SigningKey     string        `mapstructure:"signing_key"`
	Issuer         string        `mapstructure:"issuer"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

type CORSConfig struct {
	AllowedOrigins   []string      `mapstructure:"allowed_origins"`
	AllowedMethods   []string      `mapstructure:"allowed_methods"`
	AllowedHeaders   []string      `mapstructure:"allowed_headers"`
	AllowCredentials bool          `mapstructure:"allow_credentials"`
	MaxAge           time.Duration `mapstructure:"max_age"`
}

type SMTPConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	Username      string `mapstructure:"username"`
	Password      string `mapstructure:"password"`
	FromEmail     string `mapstructure:"from_email"`
	FromName      string `mapstructure:"from_name"`
	UseSTARTTLS   bool   `mapstructure:"use_starttls"`
	SkipTLSVerify bool   `mapstructure:"skip_tls_verify"`
}

// Enabled reports whether order confirmation mail is configured.
func (c SMTPConfig) Enabled() bool {
	return strings.TrimSpace(c.Host) != ""
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.graceful_shutdown_timeout", 15*time.Second)

	v.SetDefault("database.redis.host", "localhost")
	v.SetDefault("database.redis.port", 6379)
	v.SetDefault("database.redis.db", 0)
	v.SetDefault("database.redis.pool_size", 10)

	v.SetDefault("state.backend", "redis")
	v.SetDefault("orders.backend", "memory")

	v.SetDefault("commerce.base_url", "https://api.moltin.com")
	v.SetDefault("commerce.channel", "web store")
	v.SetDefault("commerce.request_timeout", 10*time.Second)
	v.SetDefault("commerce.rate_limit_rps", 5.0)
	v.SetDefault("commerce.rate_limit_burst", 10)
	v.SetDefault("commerce.cart_expiry_location", "UTC")

	v.SetDefault("cache.safety_margin", 300*time.Second)
	v.SetDefault("cart.treat_missing_as_removed", false)

	v.SetDefault("telegram.api_url", "https://api.telegram.org")
	v.SetDefault("telegram.poll_timeout", 30*time.Second)

	v.SetDefault("jwt.issuer", "storebot")
	v.SetDefault("jwt.access_token_ttl", 24*time.Hour)

	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.max_age", 12*time.Hour)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Keys without a meaningful default still need registering, otherwise
	// AutomaticEnv never surfaces them through Unmarshal.
	for _, key := range []string{
		"commerce.client_id", "commerce.catalog_node_id",
		"telegram.token", "telegram.webhook_url", "telegram.webhook_secret",
		"jwt.signing_key", "database.redis.password",
		"database.postgres.host", "database.postgres.db", "database.postgres.user",
		"database.postgres.password", "database.postgres.sslmode",
		"smtp.host", "smtp.username", "smtp.password", "smtp.from_email", "smtp.from_name",
	} {
		v.SetDefault(key, "")
	}
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("smtp.port", 587)
}

// Load reads config.yaml, overlays .env and environment variables, and returns Config.
// A missing config file is not an error; defaults and the environment are enough to run.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Environment variable override: COMMERCE_CLIENT_ID -> commerce.client_id
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
