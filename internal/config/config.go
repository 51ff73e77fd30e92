package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/valeevte/PriceLedger/internal/database"
)

// Config — конфигурация сервиса, читается из окружения (и .env, если есть).
type Config struct {
	Env     string
	Port    string
	GinMode string

	DB database.DBConfig

	JWTSecret      string
	RequestTimeout time.Duration
	FanoutLimit    int
	Location       *time.Location

	// интервал проверки целевых цен вишлиста
	SweepInterval   time.Duration
	HonorValidUntil bool

	RedisAddr       string
	RedisPassword   string
	CompareCacheTTL time.Duration

	AlertTopicARN   string
	ReceiptBucket   string
	OCRQueueURL     string
	OCRResultURL    string
	AWSEndpoint     string
	ReceiptMaxBytes int64
}

// Load читает конфигурацию. .env не обязателен.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:           getEnv("APP_ENV", "development"),
		Port:          getEnv("PORT", "8080"),
		GinMode:       os.Getenv("GIN_MODE"),
		DB:            database.NewDBConfigFromEnv(),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		AlertTopicARN: os.Getenv("ALERT_SNS_TOPIC_ARN"),
		ReceiptBucket: os.Getenv("RECEIPT_BUCKET"),
		OCRQueueURL:   os.Getenv("RECEIPT_OCR_QUEUE_URL"),
		OCRResultURL:  os.Getenv("RECEIPT_RESULT_QUEUE_URL"),
		AWSEndpoint:   os.Getenv("AWS_ENDPOINT"),
	}

	var err error
	if cfg.RequestTimeout, err = getDuration("REQUEST_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = getDuration("WISHLIST_SWEEP_INTERVAL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.CompareCacheTTL, err = getDuration("COMPARE_CACHE_TTL", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.FanoutLimit, err = getInt("FANOUT_LIMIT", 8); err != nil {
		return nil, err
	}
	if cfg.FanoutLimit < 1 {
		return nil, fmt.Errorf("FANOUT_LIMIT must be positive, got %d", cfg.FanoutLimit)
	}
	maxMB, err := getInt("RECEIPT_MAX_MB", 10)
	if err != nil {
		return nil, err
	}
	cfg.ReceiptMaxBytes = int64(maxMB) << 20

	if cfg.HonorValidUntil, err = getBool("RESOLVER_HONOR_VALID_UNTIL", false); err != nil {
		return nil, err
	}

	cfg.Location = time.Local
	if tz := os.Getenv("APP_TIMEZONE"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("APP_TIMEZONE: %w", err)
		}
		cfg.Location = loc
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET must be set")
	}
	if err := cfg.DB.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s: invalid duration %q", key, v)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, v)
	}
	return n, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: invalid bool %q", key, v)
	}
	return b, nil
}
