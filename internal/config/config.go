package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DriverJSON   = "json"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Config holds application configuration values.
type Config struct {
	HTTPPort    string
	Environment string

	StorageDriver string
	CatalogPath   string
	DatabaseDSN   string
	SeedCSV       string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisKey      string

	// Kafka mirror; disabled when KafkaBrokers is empty.
	KafkaBrokers       []string
	KafkaTopicDispense string
	KafkaTopicRestock  string
	KafkaClientID      string
}

// Load reads configuration from environment variables with reasonable defaults.
// A .env file in the working directory is applied first when present.
func Load() Config {
	_ = godotenv.Load()

	port := getEnv("HTTP_PORT", "8000")
	// Validate that port is numeric.
	if _, err := strconv.Atoi(port); err != nil {
		log.Printf("invalid HTTP_PORT value %q, defaulting to 8000", port)
		port = "8000"
	}

	driver := strings.ToLower(getEnv("STORAGE_DRIVER", DriverJSON))
	switch driver {
	case DriverJSON, DriverSQLite, DriverRedis:
	default:
		log.Printf("unknown STORAGE_DRIVER %q, defaulting to %s", driver, DriverJSON)
		driver = DriverJSON
	}

	return Config{
		HTTPPort:    port,
		Environment: getEnv("ENVIRONMENT", "development"),

		StorageDriver: driver,
		CatalogPath:   getEnv("CATALOG_PATH", "data/medicines.json"),
		DatabaseDSN:   getEnv("DATABASE_DSN", "file:meddispense.db?_pragma=busy_timeout(5000)"),
		SeedCSV:       getEnv("SEED_CSV", "assets/medicines.csv"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),
		RedisKey:      getEnv("REDIS_KEY", "meddispense:catalog"),

		KafkaBrokers:       splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopicDispense: getEnv("KAFKA_TOPIC_DISPENSE", "meddispense.dispense"),
		KafkaTopicRestock:  getEnv("KAFKA_TOPIC_RESTOCK", "meddispense.restock"),
		KafkaClientID:      getEnv("KAFKA_CLIENT_ID", "meddispense"),
	}
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("invalid %s value %q, defaulting to %d", key, value, defaultValue)
		return defaultValue
	}
	return result
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
