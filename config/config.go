package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"wishlist-service/pkg/database"

	"go.uber.org/zap"
)

type Config struct {
	Port        string
	Storage     string // postgres | memory
	CORSOrigins []string
	JWT         JWT
	DB          DB
	Redis       Redis
	Kafka       Kafka
	WS          WS
	URLParser   URLParser
}

type JWT struct {
	Secret    string
	Issuer    string
	Audience  string
	AccessExp time.Duration
}

type DB struct {
	database.Config
}

type Redis struct {
	Enabled          bool
	Addr             string
	Password         string
	DB               int
	EventsChannel    string
	RateLimitSeconds int
}

type Kafka struct {
	Enabled     bool
	Brokers     []string
	TopicEvents string
	TopicEmail  string
}

type WS struct {
	Buffer int
}

type URLParser struct {
	CacheSize int
	Timeout   time.Duration
}

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

func Load(log *zap.Logger) *Config {
	cfg := &Config{
		Port:        getEnvDefault("APP_PORT", ":8000"),
		Storage:     getEnvDefault("STORAGE", StoragePostgres),
		CORSOrigins: splitAndTrim(getEnvDefault("CORS_ORIGINS", "*")),
		JWT: JWT{
			Secret:    getEnv("JWT_SECRET", log),
			Issuer:    getEnvDefault("JWT_ISSUER", "wishlist-service"),
			Audience:  getEnvDefault("JWT_AUDIENCE", "wishlist-clients"),
			AccessExp: parseDurationWithDays(getEnvDefault("ACCESS_EXP", "7d")),
		},
		Redis: Redis{
			Enabled:          getEnvDefault("REDIS_ENABLED", "false") == "true",
			EventsChannel:    getEnvDefault("REDIS_EVENTS_CHANNEL", "wishlist:events"),
			RateLimitSeconds: atoiDefault(getEnvDefault("RATE_LIMIT_SECONDS", "2"), 2),
		},
		Kafka: Kafka{
			Enabled: getEnvDefault("KAFKA_ENABLED", "false") == "true",
		},
		WS: WS{
			Buffer: atoiDefault(getEnvDefault("WS_BUFFER", "64"), 64),
		},
		URLParser: URLParser{
			CacheSize: atoiDefault(getEnvDefault("URL_CACHE_SIZE", "256"), 256),
			Timeout:   parseDurationWithDays(getEnvDefault("URL_PARSE_TIMEOUT", "10s")),
		},
	}

	if cfg.Storage == StoragePostgres {
		cfg.DB = DB{
			Config: database.Config{
				Host:     getEnv("DB_HOST", log),
				Port:     getEnv("DB_PORT", log),
				User:     getEnv("DB_USER", log),
				Password: getEnv("DB_PASSWORD", log),
				Name:     getEnv("DB_NAME", log),
				SSLMode:  getEnvDefault("DB_SSLMODE", "disable"),
			},
		}
	}

	if cfg.Redis.Enabled {
		cfg.Redis.Addr = getEnv("REDIS_ADDR", log)
		cfg.Redis.Password = getEnvDefault("REDIS_PASSWORD", "")
		cfg.Redis.DB = atoiDefault(getEnvDefault("REDIS_DB", "0"), 0)
	}

	if cfg.Kafka.Enabled {
		cfg.Kafka.Brokers = splitAndTrim(getEnv("KAFKA_BROKERS", log))
		cfg.Kafka.TopicEvents = getEnvDefault("KAFKA_TOPIC_EVENTS", "wishlist.events")
		cfg.Kafka.TopicEmail = getEnvDefault("KAFKA_TOPIC_EMAIL", "wishlist.email")
	}

	return cfg
}

// LoadDB читает только параметры подключения к БД (для cmd/migrate).
func LoadDB(log *zap.Logger) DB {
	return DB{
		Config: database.Config{
			Host:     getEnv("DB_HOST", log),
			Port:     getEnv("DB_PORT", log),
			User:     getEnv("DB_USER", log),
			Password: getEnv("DB_PASSWORD", log),
			Name:     getEnv("DB_NAME", log),
			SSLMode:  getEnvDefault("DB_SSLMODE", "disable"),
		},
	}
}

func getEnv(key string, log *zap.Logger) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	log.Error("Обязательная переменная окружения не установлена", zap.String("key", key))
	panic("missing required environment variable: " + key)
}

func getEnvDefault(key, def string) string {
	if val, exists := os.LookupEnv(key); exists && val != "" {
		return val
	}
	return def
}

func parseDurationWithDays(s string) time.Duration {
	if strings.HasSuffix(s, "d") {
		daysStr := strings.TrimSuffix(s, "d")
		days, err := time.ParseDuration(daysStr + "h")
		if err != nil {
			log.Printf("Ошибка парсинга TTL: %v", err)
			return 0
		}
		return time.Duration(24) * days
	}

	duration, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return duration
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := []string{}
	for _, p := range strings.Split(s, ",") {
		pt := strings.TrimSpace(p)
		if pt != "" {
			parts = append(parts, pt)
		}
	}
	return parts
}
