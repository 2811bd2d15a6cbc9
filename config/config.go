package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	DatabaseURL       string `mapstructure:"DATABASE_URL"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Redis configuration.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB  int    `mapstructure:"REDIS_CACHE_DB"`
	RedisLockDB   int    `mapstructure:"REDIS_LOCK_DB"`
	RedisQueueDB  int    `mapstructure:"REDIS_QUEUE_DB"`

	// WhatsApp Cloud API.
	WhatsAppToken       string `mapstructure:"WHATSAPP_TOKEN"`
	WhatsAppPhoneID     string `mapstructure:"WHATSAPP_PHONE_ID"`
	WhatsAppVerifyToken string `mapstructure:"WHATSAPP_VERIFY_TOKEN"`
	WhatsAppAPIBase     string `mapstructure:"WHATSAPP_API_BASE"`

	// Google Calendar.
	CalendarID              string `mapstructure:"CALENDAR_ID"`
	GoogleCredentialsFile   string `mapstructure:"GOOGLE_CREDENTIALS_FILE"`
	CalendarTimezone        string `mapstructure:"CALENDAR_TIMEZONE"`
	CalendarQueryTimeoutSec int    `mapstructure:"CALENDAR_QUERY_TIMEOUT_SEC"`

	// Stripe.
	StripeKey           string `mapstructure:"STRIPE_KEY"`
	StripeWebhookSecret string `mapstructure:"STRIPE_WEBHOOK_SECRET"`
	StripeSuccessURL    string `mapstructure:"STRIPE_SUCCESS_URL"`
	Currency            string `mapstructure:"CURRENCY"`

	// Pricing, in minor currency units (paise).
	CourtBaseRate   int64 `mapstructure:"COURT_BASE_RATE"`
	PerPlayerRate   int64 `mapstructure:"PER_PLAYER_RATE"`
	RacketPrice     int64 `mapstructure:"RACKET_PRICE"`
	ShuttlesPrice   int64 `mapstructure:"SHUTTLES_PRICE"`
	CoachPrice      int64 `mapstructure:"COACH_PRICE"`
	ReminderLeadMin int   `mapstructure:"REMINDER_LEAD_MIN"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CACHE_DB", 0)
	viper.SetDefault("REDIS_LOCK_DB", 1)
	viper.SetDefault("REDIS_QUEUE_DB", 2)
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("WHATSAPP_API_BASE", "https://graph.facebook.com/v19.0")
	viper.SetDefault("CALENDAR_TIMEZONE", "Asia/Kolkata")
	viper.SetDefault("CALENDAR_QUERY_TIMEOUT_SEC", 5)
	viper.SetDefault("STRIPE_SUCCESS_URL", "https://twenty44.in/thanks")
	viper.SetDefault("CURRENCY", "inr")
	viper.SetDefault("COURT_BASE_RATE", 40000)
	viper.SetDefault("PER_PLAYER_RATE", 5000)
	viper.SetDefault("RACKET_PRICE", 10000)
	viper.SetDefault("SHUTTLES_PRICE", 15000)
	viper.SetDefault("COACH_PRICE", 50000)
	viper.SetDefault("REMINDER_LEAD_MIN", 60)

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
