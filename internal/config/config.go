package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	HTTPPort           string        `mapstructure:"HTTP_PORT"`
	GRPCPort           string        `mapstructure:"GRPC_PORT"`
	RequestTimeout     time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	ShutdownTimeout    time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
	MaxRequestBodySize int64         `mapstructure:"MAX_REQUEST_BODY_SIZE"`
	LogLevel           string        `mapstructure:"LOG_LEVEL"`

	OrderStore     string `mapstructure:"ORDER_STORE"`
	DBHost         string `mapstructure:"DB_HOST"`
	DBPort         int    `mapstructure:"DB_PORT"`
	DBUser         string `mapstructure:"DB_USER"`
	DBPassword     string `mapstructure:"DB_PASSWORD"`
	DBName         string `mapstructure:"DB_NAME"`
	MigrationsPath string `mapstructure:"MIGRATIONS_PATH"`
	MongoURI       string `mapstructure:"MONGO_URI"`
	MongoDBName    string `mapstructure:"MONGO_DB_NAME"`

	SQLitePath           string `mapstructure:"SQLITE_PATH"`
	SQLiteMigrationsPath string `mapstructure:"SQLITE_MIGRATIONS_PATH"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	KafkaBrokers  string `mapstructure:"KAFKA_BROKERS"`

	RazorpayKeyID     string        `mapstructure:"RAZORPAY_KEY_ID"`
	RazorpayKeySecret string        `mapstructure:"RAZORPAY_KEY_SECRET"`
	RazorpayBaseURL   string        `mapstructure:"RAZORPAY_BASE_URL"`
	ProviderTimeout   time.Duration `mapstructure:"PROVIDER_TIMEOUT"`

	JWTSecret   string        `mapstructure:"JWT_SECRET"`
	JWTTTL      time.Duration `mapstructure:"JWT_TTL"`
	FrontendURL string        `mapstructure:"FRONTEND_URL"`
}

const (
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
	StoreSQLite   = "sqlite"
)

var defaults = map[string]any{
	"HTTP_PORT":             "5000",
	"GRPC_PORT":             "50057",
	"REQUEST_TIMEOUT":       30 * time.Second,
	"SHUTDOWN_TIMEOUT":      10 * time.Second,
	"MAX_REQUEST_BODY_SIZE": int64(1 << 20), // 1MB
	"LOG_LEVEL":             "info",

	"ORDER_STORE":     StorePostgres,
	"DB_HOST":         "localhost",
	"DB_PORT":         5432,
	"DB_USER":         "postgres",
	"DB_PASSWORD":     "postgres",
	"DB_NAME":         "food",
	"MIGRATIONS_PATH": "./internal/orders/repository/migrations",
	"MONGO_URI":       "mongodb://localhost:27017",
	"MONGO_DB_NAME":   "fooddb",

	"SQLITE_PATH":            "food.db",
	"SQLITE_MIGRATIONS_PATH": "./internal/orders/repository/migrations_sqlite",

	"REDIS_ADDR":     "localhost:6379",
	"REDIS_PASSWORD": "",
	"KAFKA_BROKERS":  "localhost:9092",

	"RAZORPAY_KEY_ID":     "",
	"RAZORPAY_KEY_SECRET": "",
	"RAZORPAY_BASE_URL":   "https://api.razorpay.com",
	"PROVIDER_TIMEOUT":    10 * time.Second,

	"JWT_SECRET":   "",
	"JWT_TTL":      7 * 24 * time.Hour,
	"FRONTEND_URL": "",
}

// Load reads defaults, then the optional file named by CONFIG_FILE, then the environment.
func Load() (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.AutomaticEnv()

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", file, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.RazorpayKeySecret == "" {
		errs = append(errs, errors.New("RAZORPAY_KEY_SECRET is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	switch c.OrderStore {
	case StorePostgres, StoreMongo, StoreSQLite:
	default:
		errs = append(errs, fmt.Errorf("ORDER_STORE must be one of %q, %q, %q, got %q",
			StorePostgres, StoreMongo, StoreSQLite, c.OrderStore))
	}
	return errors.Join(errs...)
}

func (c *Config) Brokers() []string {
	var out []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// ClientConfig configures the terminal storefront.
type ClientConfig struct {
	APIURL         string        `mapstructure:"API_URL"`
	SessionFile    string        `mapstructure:"SESSION_FILE"`
	CartFile       string        `mapstructure:"CART_FILE"`
	Token          string        `mapstructure:"TOKEN"`
	RazorpayKeyID  string        `mapstructure:"RAZORPAY_KEY_ID"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`
}

var clientDefaults = map[string]any{
	"API_URL":         "http://localhost:5000",
	"SESSION_FILE":    ".food-session.json",
	"CART_FILE":       "cart.json",
	"TOKEN":           "",
	"RAZORPAY_KEY_ID": "",
	"REQUEST_TIMEOUT": 30 * time.Second,
	"LOG_LEVEL":       "info",
}

func LoadClient() (*ClientConfig, error) {
	v := viper.New()
	for k, val := range clientDefaults {
		v.SetDefault(k, val)
	}
	v.AutomaticEnv()

	cfg := &ClientConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal client config: %w", err)
	}
	if cfg.APIURL == "" {
		return nil, errors.New("API_URL is required")
	}
	return cfg, nil
}
