package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	DataFile      string
	ColumnMapFile string

	AsOf              string
	OverdueThreshold  float64
	MismatchTolerance float64
	OverdueGraceDays  int
	TrendMonths       int

	OutputDir        string
	HTTPAddr         string
	SnapshotSchedule string
	TimeZone         string
	ChromeBin        string
	MaxRetries       int
	LogLevel         string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "collections"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "collections"),
		PostgresDB:       getEnv("POSTGRES_DB", "collections_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		DataFile:      getEnv("DATA_FILE", ""),
		ColumnMapFile: getEnv("COLUMN_MAP_FILE", ""),

		AsOf:              getEnv("AS_OF", ""),
		OverdueThreshold:  getEnvFloat("OVERDUE_THRESHOLD", 1000),
		MismatchTolerance: getEnvFloat("MISMATCH_TOLERANCE", 1000),
		OverdueGraceDays:  getEnvInt("OVERDUE_GRACE_DAYS", 15),
		TrendMonths:       getEnvInt("TREND_MONTHS", 24),

		OutputDir:        getEnv("OUTPUT_DIR", "./output"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		SnapshotSchedule: getEnv("SNAPSHOT_SCHEDULE", ""),
		TimeZone:         getEnv("TIMEZONE", "Asia/Kolkata"),
		ChromeBin:        getEnv("CHROME_BIN", ""),
		MaxRetries:       getEnvInt("MAX_RETRIES", 3),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err == nil {
			return f
		}
	}
	return fallback
}
