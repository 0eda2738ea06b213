package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers.
const (
	StoreMongo  = "mongo"
	StoreMySQL  = "mysql"
	StoreMemory = "memory"
)

// Mail providers.
const (
	MailProviderSMTP  = "smtp"
	MailProviderBrevo = "brevo"
	MailProviderLog   = "log"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	AppEnv     string
	ServerPort string

	StoreDriver string
	MongoURI    string
	MongoDB     string
	MySQLDSN    string

	RedisAddr string
	RedisDB   int
	RedisPass string

	JWTSecret      string
	PasswordPepper string

	OTPTTL       time.Duration
	OTPResendTTL time.Duration

	MailProvider string
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	MailFrom     string
	MailFromName string
	BrevoAPIKey  string

	AuthRateLimit  int
	AuthRateWindow time.Duration

	SwaggerHost string
	SeedFile    string
}

// Load reads an optional .env file and builds Config from environment with
// sensible defaults.
func Load() *Config {
	// a missing .env is fine, real deployments set the environment directly
	_ = godotenv.Load()

	return &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		StoreDriver:    getEnv("STORE_DRIVER", StoreMongo),
		MongoURI:       getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:        getEnv("MONGO_DB", "candlux"),
		MySQLDSN:       getEnv("MYSQL_DSN", "user:password@tcp(localhost:3306)/candlux?charset=utf8mb4&parseTime=True&loc=UTC"),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:        getEnvInt("REDIS_DB", 0),
		RedisPass:      os.Getenv("REDIS_PASSWORD"),
		JWTSecret:      getEnv("JWT_SECRET", "change-me"),
		PasswordPepper: os.Getenv("PASSWORD_PEPPER"),
		OTPTTL:         getEnvDuration("OTP_TTL", 10*time.Minute),
		OTPResendTTL:   getEnvDuration("OTP_RESEND_TTL", time.Minute),
		MailProvider:   getEnv("MAIL_PROVIDER", MailProviderLog),
		SMTPHost:       getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:       getEnvInt("SMTP_PORT", 587),
		SMTPUsername:   os.Getenv("SMTP_USERNAME"),
		SMTPPassword:   os.Getenv("SMTP_PASSWORD"),
		MailFrom:       getEnv("MAIL_FROM", "no-reply@candlux.local"),
		MailFromName:   getEnv("MAIL_FROM_NAME", "Candlux"),
		BrevoAPIKey:    os.Getenv("BREVO_API_KEY"),
		AuthRateLimit:  getEnvInt("AUTH_RATE_LIMIT", 20),
		AuthRateWindow: getEnvDuration("AUTH_RATE_WINDOW", time.Minute),
		SwaggerHost:    os.Getenv("SWAGGER_HOST"),
		SeedFile:       getEnv("SEED_FILE", "seed/accounts.json"),
	}
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreMongo, StoreMySQL, StoreMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	switch c.MailProvider {
	case MailProviderLog:
	case MailProviderSMTP:
		if c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("MAIL_PROVIDER=smtp requires SMTP_USERNAME and SMTP_PASSWORD")
		}
	case MailProviderBrevo:
		if c.BrevoAPIKey == "" {
			return fmt.Errorf("MAIL_PROVIDER=brevo requires BREVO_API_KEY")
		}
	default:
		return fmt.Errorf("unknown MAIL_PROVIDER %q", c.MailProvider)
	}
	if c.OTPTTL <= 0 || c.OTPResendTTL <= 0 {
		return fmt.Errorf("OTP_TTL and OTP_RESEND_TTL must be positive")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must be set")
	}
	return nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}
