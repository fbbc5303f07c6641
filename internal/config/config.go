package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage drivers
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	Env             string        `mapstructure:"ENV"`
	Port            string        `mapstructure:"PORT"`
	LogLevel        string        `mapstructure:"LOG_LEVEL"`
	StorageDriver   string        `mapstructure:"STORAGE_DRIVER"`
	DatabaseURL     string        `mapstructure:"DATABASE_URL"`
	JWTSecret       string        `mapstructure:"APP_JWT_SECRET"`
	WSRequireAuth   bool          `mapstructure:"WS_REQUIRE_AUTH"`
	CORSAllowed     string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	SeedOnStart     bool          `mapstructure:"SEED_ON_START"`
	AMQPURL         string        `mapstructure:"AMQP_URL"`
	AMQPExchange    string        `mapstructure:"AMQP_EXCHANGE"`
	FirebaseBase64  string        `mapstructure:"FIREBASE_CREDENTIALS_BASE64"`
	FirebaseFile    string        `mapstructure:"FIREBASE_CREDENTIALS_FILE"`
	FCMAdminTopic   string        `mapstructure:"FCM_ADMIN_TOPIC"`
	HistoryLimit    int           `mapstructure:"HISTORY_LIMIT"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
}

// Load reads .env (if present) and the environment on top of the defaults
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORAGE_DRIVER", StoragePostgres)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("APP_JWT_SECRET", "")
	v.SetDefault("WS_REQUIRE_AUTH", false)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("SEED_ON_START", false)
	v.SetDefault("AMQP_URL", "")
	v.SetDefault("AMQP_EXCHANGE", "tracking_fanout")
	v.SetDefault("FIREBASE_CREDENTIALS_BASE64", "")
	v.SetDefault("FIREBASE_CREDENTIALS_FILE", "")
	v.SetDefault("FCM_ADMIN_TOPIC", "admin-tracking")
	v.SetDefault("HISTORY_LIMIT", 100)
	v.SetDefault("SHUTDOWN_TIMEOUT", "15s")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks settings that would otherwise fail late
func (c Config) Validate() error {
	switch c.StorageDriver {
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL environment variable is required for storage driver %q", c.StorageDriver)
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q (want %s or %s)", c.StorageDriver, StoragePostgres, StorageMemory)
	}
	if c.WSRequireAuth && c.JWTSecret == "" {
		return fmt.Errorf("WS_REQUIRE_AUTH needs APP_JWT_SECRET")
	}
	return nil
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS on commas
func (c Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSAllowed, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

func (c Config) IsDev() bool {
	return c.Env == "dev" || c.Env == "development"
}
