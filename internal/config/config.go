package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"

	"retailstore/backend/internal/domain"
	"retailstore/backend/internal/pricing"
)

type Config struct {
	Port                      string
	AllowedOrigin             string
	DatabaseURL               string
	RedisAddr                 string
	RedisPassword             string
	RedisDB                   int
	ReceiptDir                string
	FinancialsCacheTTLSeconds int
	SeedSampleData            bool
	LogFormat                 string
	LogLevel                  string
	MetricsNamespace          string
	AuthSecret                string
	AccessTokenTTLMinutes     int
	ManagerPassword           string
	CashierPassword           string

	GroceriesMarkup    decimal.Decimal
	NonFoodsMarkup     decimal.Decimal
	NearExpiryDays     int
	NearExpiryDiscount decimal.Decimal
}

// Load reads the environment, plus an optional .env file. Malformed pricing values are
// reported as configuration errors.
func Load() (Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	groceries, err := parseDecimal(k, "GROCERIES_MARKUP", "0.20")
	if err != nil {
		return Config{}, err
	}
	nonFoods, err := parseDecimal(k, "NON_FOODS_MARKUP", "0.25")
	if err != nil {
		return Config{}, err
	}
	discount, err := parseDecimal(k, "NEAR_EXPIRY_DISCOUNT", "0.30")
	if err != nil {
		return Config{}, err
	}
	days, err := strconv.Atoi(valueOrDefault(k.String("NEAR_EXPIRY_DAYS"), "5"))
	if err != nil {
		return Config{}, fmt.Errorf("%w: NEAR_EXPIRY_DAYS: %v", domain.ErrInvalidConfig, err)
	}

	cfg := Config{
		Port:                      valueOrDefault(k.String("PORT"), "8080"),
		AllowedOrigin:             valueOrDefault(k.String("ALLOWED_ORIGIN"), "http://127.0.0.1:3000"),
		DatabaseURL:               k.String("DATABASE_URL"),
		RedisAddr:                 k.String("REDIS_ADDR"),
		RedisPassword:             k.String("REDIS_PASSWORD"),
		RedisDB:                   positiveInt(k.String("REDIS_DB"), 0),
		ReceiptDir:                valueOrDefault(k.String("RECEIPT_DIR"), "receipts"),
		FinancialsCacheTTLSeconds: positiveInt(k.String("FINANCIALS_CACHE_TTL_SECONDS"), 30),
		SeedSampleData:            parseBool(valueOrDefault(k.String("SEED_SAMPLE_DATA"), "true")),
		LogFormat:                 valueOrDefault(k.String("LOG_FORMAT"), "json"),
		LogLevel:                  valueOrDefault(k.String("LOG_LEVEL"), "info"),
		MetricsNamespace:          valueOrDefault(k.String("METRICS_NAMESPACE"), "retailstore"),
		AuthSecret:                strings.TrimSpace(k.String("AUTH_SECRET")),
		AccessTokenTTLMinutes:     positiveInt(k.String("ACCESS_TOKEN_TTL_MINUTES"), 480),
		ManagerPassword:           strings.TrimSpace(k.String("MANAGER_PASSWORD")),
		CashierPassword:           strings.TrimSpace(k.String("CASHIER_PASSWORD")),
		GroceriesMarkup:           groceries,
		NonFoodsMarkup:            nonFoods,
		NearExpiryDays:            days,
		NearExpiryDiscount:        discount,
	}
	return cfg, nil
}

// Pricing validates the pricing parameters.
func (c Config) Pricing() (pricing.Config, error) {
	return pricing.NewConfig(c.GroceriesMarkup, c.NonFoodsMarkup, c.NearExpiryDays, c.NearExpiryDiscount)
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", strings.TrimPrefix(c.Port, ":"))
}

func parseDecimal(k *koanf.Koanf, key string, fallback string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(valueOrDefault(k.String(key), fallback))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s: %v", domain.ErrInvalidConfig, key, err)
	}
	return d, nil
}

func positiveInt(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func parseBool(value string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	return err == nil && b
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}
