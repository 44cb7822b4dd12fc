package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	LogLevel    string

	HTTPAddr string
	// BaseURL is the externally reachable origin, used to build the
	// redirect-return and webhook URLs handed to gateways.
	BaseURL string

	AdminEmail string
	// AdminToken guards the back-office payment endpoints. Empty disables
	// them entirely rather than leaving them open.
	AdminToken string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	RedisAddr     string
	RedisPassword string

	// Checkout rate limiting applies only when redis is configured.
	CheckoutRatePerMinute int
	CheckoutBurst         int

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:               getenv("APP_NAME", "nilemart"),
		AppVersion:            getenv("APP_VERSION", "0.1.0"),
		Environment:           getenv("ENVIRONMENT", "development"),
		LogLevel:              strings.ToLower(getenv("LOG_LEVEL", "info")),
		HTTPAddr:              getenv("HTTP_ADDR", ":8080"),
		BaseURL:               strings.TrimRight(getenv("BASE_URL", "http://localhost:8080"), "/"),
		AdminEmail:            strings.TrimSpace(getenv("ADMIN_EMAIL", "")),
		AdminToken:            strings.TrimSpace(getenv("ADMIN_TOKEN", "")),
		DBType:                getenv("DATABASE_TYPE", "postgres"),
		DBHost:                getenv("DATABASE_HOST", "localhost"),
		DBPort:                getenv("DATABASE_PORT", "5432"),
		DBName:                getenv("DATABASE_NAME", "storefront"),
		DBUser:                getenv("DATABASE_USER", "postgres"),
		DBPassword:            getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:             getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:         getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:         getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime:     getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime:     getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
		RedisAddr:             strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword:         getenv("REDIS_PASSWORD", ""),
		CheckoutRatePerMinute: getenvInt("CHECKOUT_RATE_PER_MINUTE", 30),
		CheckoutBurst:         getenvInt("CHECKOUT_BURST", 10),
		SMTPHost:              strings.TrimSpace(getenv("SMTP_HOST", "")),
		SMTPPort:              getenvInt("SMTP_PORT", 587),
		SMTPUsername:          getenv("SMTP_USERNAME", ""),
		SMTPPassword:          getenv("SMTP_PASSWORD", ""),
		SMTPFrom:              getenv("SMTP_FROM", "no-reply@nilemart.example"),
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewGatewayConfigHolder),
)
