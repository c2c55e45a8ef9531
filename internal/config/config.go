package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config структура конфигурации
type Config struct {
	TelegramBotToken string
	JWTSecret        string
	DatabaseURL      string
	// AdminDatabaseURL подключение с правами на admin_set_boost
	AdminDatabaseURL string
	DatabaseConfig   DatabaseConfig
	AppEnv           string
	Port             string
	// PublicAppURL адрес фронтенда, на который провайдеры возвращают покупателя
	PublicAppURL string

	Payments PaymentsConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
}

// DatabaseConfig содержит конфигурацию базы данных
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// PaymentsConfig настройки платёжных провайдеров
type PaymentsConfig struct {
	StripeSecretKey string `envconfig:"STRIPE_SECRET_KEY"`
	StripeAPIURL    string `envconfig:"STRIPE_API_URL"`

	PayPalClientID  string `envconfig:"PAYPAL_CLIENT_ID"`
	PayPalSecret    string `envconfig:"PAYPAL_SECRET"`
	PayPalAPIURL    string `envconfig:"PAYPAL_API_URL" default:"https://api-m.paypal.com"`
	PayPalBrandName string `envconfig:"PAYPAL_BRAND_NAME" default:"BonPlan Comores"`

	AuthTimeout     time.Duration `envconfig:"PAYMENT_AUTH_TIMEOUT" default:"5s"`
	CheckoutTimeout time.Duration `envconfig:"PAYMENT_CHECKOUT_TIMEOUT" default:"8s"`
	CaptureTimeout  time.Duration `envconfig:"PAYMENT_CAPTURE_TIMEOUT" default:"15s"`
	ConfirmTimeout  time.Duration `envconfig:"PAYMENT_CONFIRM_TIMEOUT" default:"8s"`

	CaptureLockTTL   time.Duration `envconfig:"PAYPAL_CAPTURE_LOCK_TTL" default:"2m"`
	CaptureResultTTL time.Duration `envconfig:"PAYPAL_CAPTURE_RESULT_TTL" default:"72h"`
}

// StripeEnabled сообщает, заданы ли ключи Stripe
func (p PaymentsConfig) StripeEnabled() bool {
	return p.StripeSecretKey != ""
}

// PayPalEnabled сообщает, заданы ли ключи PayPal
func (p PaymentsConfig) PayPalEnabled() bool {
	return p.PayPalClientID != "" && p.PayPalSecret != ""
}

// RedisConfig подключение к Redis. Пустой адрес - журнал списаний в памяти.
type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// KafkaConfig брокеры для событий бустов. Пустой список - события не публикуются.
type KafkaConfig struct {
	Brokers    []string `envconfig:"KAFKA_BROKERS"`
	BoostTopic string   `envconfig:"KAFKA_BOOST_TOPIC" default:"boost-events"`
}

// LoadConfig загружает переменные из .env
func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		log.Println("⚠️ .env файл не найден, используем переменные окружения")
	}

	cfg, err := loadFromEnv()
	if err != nil {
		log.Fatalf("❌ Ошибка конфигурации: %v", err)
	}
	return cfg
}

// LoadDatabaseURL загружает .env и возвращает только подключение к базе.
// Нужен утилите миграций, которой не нужны остальные переменные.
func LoadDatabaseURL() string {
	_ = godotenv.Load()
	_, dbURL := databaseFromEnv()
	return getEnv("ADMIN_DATABASE_URL", dbURL)
}

func databaseFromEnv() (DatabaseConfig, string) {
	dbConfig := DatabaseConfig{
		Host:     getEnv("PGHOST", "localhost"),
		Port:     getEnv("PGPORT", "5432"),
		User:     getEnv("PGUSER", "bonplan_user"),
		Password: getEnv("PGPASSWORD", "bonplan_pass"),
		Name:     getEnv("PGDATABASE", "bonplan"),
		SSLMode:  getEnv("PGSSLMODE", "disable"),
	}

	// Формируем строку подключения к базе данных
	dbURL := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		dbConfig.User, dbConfig.Password, dbConfig.Host, dbConfig.Port, dbConfig.Name, dbConfig.SSLMode)
	return dbConfig, dbURL
}

func loadFromEnv() (*Config, error) {
	dbConfig, dbURL := databaseFromEnv()

	cfg := &Config{
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		JWTSecret:        getEnv("JWT_SECRET", ""),
		DatabaseURL:      dbURL,
		AdminDatabaseURL: getEnv("ADMIN_DATABASE_URL", dbURL),
		DatabaseConfig:   dbConfig,
		AppEnv:           getEnv("APP_ENV", "production"),
		Port:             getEnv("PORT", "8080"),
		PublicAppURL:     strings.TrimRight(getEnv("PUBLIC_APP_URL", ""), "/"),
	}

	if err := envconfig.Process("", &cfg.Payments); err != nil {
		return nil, fmt.Errorf("платёжные настройки: %w", err)
	}
	if err := envconfig.Process("", &cfg.Redis); err != nil {
		return nil, fmt.Errorf("настройки Redis: %w", err)
	}
	if err := envconfig.Process("", &cfg.Kafka); err != nil {
		return nil, fmt.Errorf("настройки Kafka: %w", err)
	}

	if cfg.TelegramBotToken == "" || cfg.JWTSecret == "" || cfg.PublicAppURL == "" {
		return nil, fmt.Errorf("не заданы обязательные переменные окружения TELEGRAM_BOT_TOKEN, JWT_SECRET, PUBLIC_APP_URL")
	}

	return cfg, nil
}

// getEnv получает переменную окружения или использует дефолтное значение
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
